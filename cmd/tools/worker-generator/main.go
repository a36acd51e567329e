// cmd/tools/worker-generator/main.go
package main

import (
	"bytes"
	"flag"
	"fmt"
	"go/format"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"time"

	"dd-qualification/pkg/registry"
)

// WorkerData holds data for templates
type WorkerData struct {
	Name          string
	PackageName   string
	TaskType      string
	Description   string
	Category      string
	Timeout       string
	TimeoutMillis int64
	Retries       int
	ErrorCodes    []string
	InputFields   []Field
	OutputFields  []Field
}

// Field is one struct field derived from a JSON schema property.
type Field struct {
	GoName      string
	GoType      string
	JSONName    string
	Description string
	Required    bool
}

// schemaFields extracts properties from a JSON schema object, sorted by name.
func schemaFields(schema map[string]interface{}) []Field {
	props, _ := schema["properties"].(map[string]interface{})
	required := map[string]bool{}
	if req, ok := schema["required"].([]interface{}); ok {
		for _, r := range req {
			if s, ok := r.(string); ok {
				required[s] = true
			}
		}
	}

	fields := make([]Field, 0, len(props))
	for name, raw := range props {
		details, _ := raw.(map[string]interface{})
		desc, _ := details["description"].(string)
		fields = append(fields, Field{
			GoName:      goName(name),
			GoType:      goTypeFromJSONType(details["type"]),
			JSONName:    name,
			Description: desc,
			Required:    required[name],
		})
	}
	// Required properties without a declared shape still get a field.
	for name := range required {
		if _, ok := props[name]; !ok {
			fields = append(fields, Field{GoName: goName(name), GoType: "interface{}", JSONName: name, Required: true})
		}
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].JSONName < fields[j].JSONName })
	return fields
}

// goTypeFromJSONType maps JSON schema types to Go types
func goTypeFromJSONType(jsonType interface{}) string {
	switch jsonType {
	case "string":
		return "string"
	case "integer":
		return "int"
	case "number":
		return "float64"
	case "boolean":
		return "bool"
	case "object":
		return "map[string]interface{}"
	case "array":
		return "[]interface{}"
	default:
		return "interface{}"
	}
}

// goName turns a camelCase JSON property into an exported Go identifier.
func goName(prop string) string {
	if prop == "" {
		return prop
	}
	name := strings.ToUpper(prop[:1]) + prop[1:]
	for _, initialism := range []string{"Id", "Url", "Json"} {
		if strings.HasSuffix(name, initialism) {
			name = strings.TrimSuffix(name, initialism) + strings.ToUpper(initialism)
		}
	}
	return name
}

func packageName(taskType string) string {
	return strings.ToLower(strings.NewReplacer("-", "", "_", "", ".", "").Replace(taskType))
}

const configTemplate = `package {{ .PackageName }}

import (
	"fmt"
	"time"

	"dd-qualification/internal/common/config"
)

type Config struct {
	Enabled       bool          ` + "`mapstructure:\"enabled\"`" + `
	MaxJobsActive int           ` + "`mapstructure:\"max_jobs_active\"`" + `
	Timeout       time.Duration ` + "`mapstructure:\"timeout\"`" + `
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       {{ .TimeoutMillis }} * time.Millisecond,
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	return nil
}

func createConfigFromAppConfig(appConfig *config.Config, customConfig *Config) *Config {
	if customConfig != nil {
		return customConfig
	}

	cfg := DefaultConfig()
	if appConfig != nil {
		if workerCfg, exists := appConfig.Workers[TaskType]; exists {
			cfg.Enabled = workerCfg.Enabled
			if workerCfg.MaxJobsActive > 0 {
				cfg.MaxJobsActive = workerCfg.MaxJobsActive
			}
			if workerCfg.Timeout > 0 {
				cfg.Timeout = config.GetDuration(workerCfg.Timeout)
			}
		}
	}
	return cfg
}
`

const modelsTemplate = `package {{ .PackageName }}

import "context"

type Input struct {
{{- range .InputFields }}
	{{ .GoName }} {{ .GoType }} ` + "`json:\"{{ .JSONName }}{{ if not .Required }},omitempty{{ end }}\"`" + `{{ if .Description }} // {{ .Description }}{{ end }}
{{- end }}
}

type Output struct {
{{- range .OutputFields }}
	{{ .GoName }} {{ .GoType }} ` + "`json:\"{{ .JSONName }}\"`" + `{{ if .Description }} // {{ .Description }}{{ end }}
{{- end }}
}

// Service performs the {{ .Name }} work.
type Service interface {
	Run(ctx context.Context, input *Input) (*Output, error)
}
`

const handlerTemplate = `package {{ .PackageName }}

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"dd-qualification/internal/common/config"
	apperrors "dd-qualification/internal/common/errors"
	"dd-qualification/internal/common/logger"
	"dd-qualification/internal/common/metrics"
	"dd-qualification/internal/common/validation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "{{ .TaskType }}"

type Handler struct {
	config     *Config
	service    Service
	validator  *validation.Validator
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

type HandlerOptions struct {
	AppConfig    *config.Config
	CustomConfig *Config
	Service      Service
	Validator    *validation.Validator
	Logger       logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)
	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Service == nil {
		return nil, fmt.Errorf("%s: service is required", TaskType)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	log = log.WithFields(map[string]interface{}{"worker": TaskType})

	return &Handler{
		config:     workerConfig,
		service:    opts.Service,
		validator:  opts.Validator,
		errHandler: apperrors.NewErrorHandler(log),
		logger:     log,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := h.parseInput(job)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	output, err := h.service.Run(ctx, input)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	request, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromObject(output)
	if err != nil {
		h.failJob(ctx, client, job, apperrors.NewInternalError(err))
		return
	}
	if _, err := request.Send(ctx); err != nil {
		h.logger.Error("Failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	variables := job.GetVariables()

	result := h.validator.ValidateJSON(TaskType, variables)
	if !result.Valid {
		return nil, apperrors.NewSchemaValidationFailedError(result.Summary())
	}

	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, apperrors.NewInvalidJobInputError(err.Error())
	}
	return &input, nil
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := apperrors.AsStandardError(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.errHandler.HandleJobError(ctx, client, job, stdErr)
}

func (h *Handler) GetTaskType() string {
	return TaskType
}

func (h *Handler) IsEnabled() bool {
	return h.config.Enabled
}
`

const readmeTemplate = `# {{ .Name }} Worker

{{ .Description }}

- **Task Type**: {{ .TaskType }}
- **Timeout**: {{ .Timeout }}
- **Retries**: {{ .Retries }}

## Error Codes
{{ range .ErrorCodes }}
- {{ . }}
{{- end }}

## Configuration in config.yaml

` + "```yaml" + `
workers:
  {{ .TaskType }}:
    enabled: true
    max_jobs_active: 5
    timeout: {{ .TimeoutMillis }}
` + "```" + `
`

var templates = []struct {
	filename string
	body     string
}{
	{"config.go", configTemplate},
	{"models.go", modelsTemplate},
	{"handler.go", handlerTemplate},
	{"README.md", readmeTemplate},
}

func main() {
	activity := flag.String("activity", "", "Activity ID from registry (e.g., qualification.score.compute)")
	outputDir := flag.String("output", "./internal/workers/", "Output directory for the generated worker")
	registryPath := flag.String("registry", "configs/activity-registry.json", "Path to the activity registry JSON file")
	force := flag.Bool("force", false, "Overwrite existing files")
	flag.Parse()

	if *activity == "" {
		fmt.Println("Usage: worker-generator --activity <id> --output <dir> [--registry <path>] [--force]")
		fmt.Println("\nExample:")
		fmt.Println("  go run ./cmd/tools/worker-generator --activity qualification.findings.search")
		os.Exit(1)
	}

	reg, err := registry.LoadOrDefault(*registryPath)
	if err != nil {
		fmt.Printf("Error loading registry from %s: %v\n", *registryPath, err)
		os.Exit(1)
	}

	if _, err := generate(reg, *activity, *outputDir, *force, os.Stdout); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

// generate writes a worker scaffold for one activity and returns its
// directory. Go sources are gofmt'd, so a template mistake fails here.
func generate(reg *registry.ActivityRegistry, activityID, outputDir string, force bool, out io.Writer) (string, error) {
	activity, err := reg.Find(activityID)
	if err != nil {
		return "", err
	}

	data := WorkerData{
		Name:          activity.DisplayName,
		PackageName:   packageName(activity.TaskType),
		TaskType:      activity.TaskType,
		Description:   activity.Description,
		Category:      activity.Category,
		Timeout:       activity.Timeout,
		TimeoutMillis: activity.TimeoutDuration(30 * time.Second).Milliseconds(),
		Retries:       activity.Retries,
		ErrorCodes:    activity.ErrorCodes,
		InputFields:   schemaFields(activity.InputSchema),
		OutputFields:  schemaFields(activity.OutputSchema),
	}

	workerDir := filepath.Join(outputDir, strings.ToLower(activity.Category), activity.TaskType)
	if err := os.MkdirAll(workerDir, 0755); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}

	for _, t := range templates {
		path := filepath.Join(workerDir, t.filename)
		if _, err := os.Stat(path); err == nil && !force {
			return "", fmt.Errorf("%s exists; use --force to overwrite", path)
		}

		tmpl, err := template.New(t.filename).Parse(t.body)
		if err != nil {
			return "", fmt.Errorf("parse template %s: %w", t.filename, err)
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return "", fmt.Errorf("render %s: %w", t.filename, err)
		}

		content := buf.Bytes()
		if strings.HasSuffix(t.filename, ".go") {
			if content, err = format.Source(content); err != nil {
				return "", fmt.Errorf("format %s: %w", t.filename, err)
			}
		}
		if err := os.WriteFile(path, content, 0644); err != nil {
			return "", fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Fprintf(out, "✓ Generated %s\n", path)
	}

	fmt.Fprintf(out, "\n✅ Worker scaffold generated at: %s\n", workerDir)
	fmt.Fprintf(out, "\nNext steps:\n")
	fmt.Fprintf(out, "  1. Implement Service and pass it in HandlerOptions\n")
	fmt.Fprintf(out, "  2. Add the worker to buildWorkers in cmd/worker-manager/workers.go\n")
	fmt.Fprintf(out, "  3. Add configuration to configs/config.yaml\n")
	return workerDir, nil
}
