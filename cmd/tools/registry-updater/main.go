// cmd/tools/registry-updater/main.go
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"dd-qualification/pkg/registry"
)

const defaultRegistryPath = "configs/activity-registry.json"

var errUsage = errors.New("usage")

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		help(out)
		return errUsage
	}

	switch args[0] {
	case "add":
		return runAdd(args[1:], out)
	case "update":
		return runUpdate(args[1:], out)
	case "validate":
		return runValidate(args[1:], out)
	case "export":
		return runExport(args[1:], out)
	case "help", "-h", "--help":
		help(out)
		return nil
	default:
		help(out)
		return errUsage
	}
}

func runAdd(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	fs.SetOutput(out)
	path := fs.String("path", defaultRegistryPath, "Path to registry file")
	id := fs.String("id", "", "Activity ID (e.g., qualification.findings.search)")
	displayName := fs.String("displayName", "", "Display Name (e.g., Search Findings)")
	description := fs.String("description", "", "Description")
	category := fs.String("category", "qualification", "Category")
	taskType := fs.String("taskType", "", "Camunda Task Type (e.g., search-qualification-findings)")
	version := fs.String("version", "1.0.0", "Version")
	status := fs.String("status", "planned", "Implementation Status (planned, in-progress, completed, verified)")
	timeout := fs.String("timeout", "30s", "Job timeout")
	retries := fs.Int("retries", 3, "Job retries")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	if *id == "" || *displayName == "" || *description == "" || *taskType == "" {
		fs.Usage()
		return fmt.Errorf("id, displayName, description and taskType are required for add")
	}

	reg, err := registry.LoadOrDefault(*path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	activity := registry.Activity{
		ID:                   *id,
		DisplayName:          *displayName,
		Description:          *description,
		Category:             *category,
		Version:              *version,
		TaskType:             *taskType,
		ImplementationStatus: *status,
		InputSchema: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{"subjectId": map[string]interface{}{"type": "string", "minLength": 1}},
			"required":   []interface{}{"subjectId"},
		},
		OutputSchema: map[string]interface{}{"type": "object"},
		ErrorCodes:   []string{"INVALID_INPUT", "EVIDENCE_STORE_UNAVAILABLE"},
		Timeout:      *timeout,
		Retries:      *retries,
		Workflows:    []string{},
		Tags:         []string{},
	}
	if err := reg.Add(activity); err != nil {
		return err
	}
	if err := reg.Validate(); err != nil {
		return err
	}
	if err := registry.Save(reg, *path); err != nil {
		return err
	}

	fmt.Fprintf(out, "Added activity: %s\n", *id)
	return nil
}

func runUpdate(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("update", flag.ContinueOnError)
	fs.SetOutput(out)
	path := fs.String("path", defaultRegistryPath, "Path to registry file")
	id := fs.String("id", "", "Activity ID to update")
	field := fs.String("field", "", "Field to update (status, version, displayName, description, category, taskType, timeout, retries, tags)")
	value := fs.String("value", "", "New value for the field")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	if *id == "" || *field == "" || *value == "" {
		fs.Usage()
		return fmt.Errorf("id, field and value are required for update")
	}

	reg, err := registry.LoadRegistry(*path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	activity, err := reg.Find(*id)
	if err != nil {
		return err
	}
	if err := setField(activity, *field, *value); err != nil {
		return err
	}
	if err := reg.Validate(); err != nil {
		return err
	}

	reg.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	if err := registry.Save(reg, *path); err != nil {
		return err
	}

	fmt.Fprintf(out, "Updated activity %s, field %s to %s\n", *id, *field, *value)
	return nil
}

func setField(a *registry.Activity, field, value string) error {
	switch field {
	case "status":
		a.ImplementationStatus = value
	case "version":
		a.Version = value
	case "displayName":
		a.DisplayName = value
	case "description":
		a.Description = value
	case "category":
		a.Category = value
	case "taskType":
		a.TaskType = value
	case "timeout":
		a.Timeout = value
	case "retries":
		retries, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid retries value: %w", err)
		}
		a.Retries = retries
	case "tags":
		a.Tags = strings.Split(value, ",")
	default:
		return fmt.Errorf("unknown field: %s", field)
	}
	return nil
}

func runValidate(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(out)
	path := fs.String("path", defaultRegistryPath, "Path to registry file")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	reg, err := registry.LoadRegistry(*path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	if err := reg.Validate(); err != nil {
		return fmt.Errorf("registry validation failed: %w", err)
	}

	fmt.Fprintf(out, "Registry validation passed. Found %d activities.\n", len(reg.Activities))
	return nil
}

// runExport writes the built-in activities, overwriting path only with -force.
func runExport(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(out)
	path := fs.String("path", defaultRegistryPath, "Path to registry file")
	force := fs.Bool("force", false, "Overwrite an existing registry file")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	if _, err := os.Stat(*path); err == nil && !*force {
		return fmt.Errorf("%s exists; use -force to overwrite", *path)
	}

	reg := registry.Default()
	if err := registry.Save(reg, *path); err != nil {
		return err
	}
	fmt.Fprintf(out, "Exported %d built-in activities to %s\n", len(reg.Activities), *path)
	return nil
}

func help(out io.Writer) {
	fmt.Fprint(out, `
Usage: registry-updater <command> [flags]

Commands:
  add       Add a new activity to the registry
  update    Update an existing activity's field
  validate  Validate the registry file
  export    Write the built-in qualification activities to the registry file
  help      Show this help message

Examples:
  registry-updater export -path configs/activity-registry.json
  registry-updater add -id qualification.findings.search -displayName "Search Findings" -description "Searches indexed findings" -taskType search-qualification-findings
  registry-updater update -id qualification.score.refresh -field timeout -value 90s
  registry-updater validate -path configs/activity-registry.json

Use 'registry-updater <command> -h' for more information about a command.
`)
}
