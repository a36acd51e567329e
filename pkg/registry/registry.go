// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

var (
	ErrActivityNotFound = errors.New("activity not found")
	ErrDuplicateID      = errors.New("duplicate activity id")
)

var activityIDPattern = regexp.MustCompile(`^[a-z]+\.[a-z]+\.[a-z]+$`)

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}
	return &reg, nil
}

// LoadOrDefault reads the registry at path, falling back to the built-in
// activities when the file does not exist.
func LoadOrDefault(path string) (*ActivityRegistry, error) {
	if path == "" {
		return Default(), nil
	}
	reg, err := LoadRegistry(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return reg, err
}

// Save writes the registry as indented JSON, creating parent directories.
func Save(reg *ActivityRegistry, path string) error {
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}

// Find returns the activity with the given id.
func (r *ActivityRegistry) Find(id string) (*Activity, error) {
	for i := range r.Activities {
		if r.Activities[i].ID == id {
			return &r.Activities[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrActivityNotFound, id)
}

// FindByTaskType returns the activity bound to a job type.
func (r *ActivityRegistry) FindByTaskType(taskType string) (*Activity, error) {
	for i := range r.Activities {
		if r.Activities[i].TaskType == taskType {
			return &r.Activities[i], nil
		}
	}
	return nil, fmt.Errorf("%w: task type %s", ErrActivityNotFound, taskType)
}

// Add appends a new activity.
func (r *ActivityRegistry) Add(a Activity) error {
	if _, err := r.Find(a.ID); err == nil {
		return fmt.Errorf("%w: %s", ErrDuplicateID, a.ID)
	}
	r.Activities = append(r.Activities, a)
	r.touch()
	return nil
}

func (r *ActivityRegistry) touch() {
	r.LastUpdated = time.Now().UTC().Format(time.RFC3339)
}

// Validate checks ids, required fields and task type uniqueness.
func (r *ActivityRegistry) Validate() error {
	if len(r.Activities) == 0 {
		return fmt.Errorf("registry contains no activities")
	}

	ids := make(map[string]bool)
	taskTypes := make(map[string]string)
	for _, a := range r.Activities {
		if a.ID == "" {
			return fmt.Errorf("activity missing required field: ID")
		}
		if ids[a.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateID, a.ID)
		}
		ids[a.ID] = true

		if !activityIDPattern.MatchString(a.ID) {
			return fmt.Errorf("activity %s: ID must follow format domain.subdomain.action (e.g., qualification.score.compute)", a.ID)
		}
		if a.DisplayName == "" {
			return fmt.Errorf("activity %s missing required field: DisplayName", a.ID)
		}
		if a.TaskType == "" {
			return fmt.Errorf("activity %s missing required field: TaskType", a.ID)
		}
		if a.Category == "" {
			return fmt.Errorf("activity %s missing required field: Category", a.ID)
		}
		if other, ok := taskTypes[a.TaskType]; ok {
			return fmt.Errorf("activities %s and %s share task type %s", other, a.ID, a.TaskType)
		}
		taskTypes[a.TaskType] = a.ID

		if a.ImplementationStatus != "" && !contains(ImplementationStatuses, a.ImplementationStatus) {
			return fmt.Errorf("activity %s: unknown implementation status %q", a.ID, a.ImplementationStatus)
		}
		if a.Timeout != "" {
			if _, err := time.ParseDuration(a.Timeout); err != nil {
				return fmt.Errorf("activity %s: invalid timeout %q", a.ID, a.Timeout)
			}
		}
	}
	return nil
}

// TimeoutDuration parses Timeout, returning fallback when unset or invalid.
func (a Activity) TimeoutDuration(fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(a.Timeout)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
