// pkg/registry/builtin.go
package registry

import "time"

const builtinVersion = "1.0.0"

func subjectInput(extra map[string]interface{}) map[string]interface{} {
	props := map[string]interface{}{
		"subjectId": map[string]interface{}{
			"type":        "string",
			"minLength":   1,
			"description": "Management team member whose qualification is evaluated",
		},
	}
	for k, v := range extra {
		props[k] = v
	}
	return map[string]interface{}{
		"type":       "object",
		"properties": props,
		"required":   []interface{}{"subjectId"},
	}
}

func objectOutput(required ...string) map[string]interface{} {
	req := make([]interface{}, len(required))
	for i, r := range required {
		req[i] = r
	}
	return map[string]interface{}{
		"type":     "object",
		"required": req,
	}
}

// Default returns the activities implemented by the qualification workers.
func Default() *ActivityRegistry {
	return &ActivityRegistry{
		Version:     builtinVersion,
		LastUpdated: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Format(time.RFC3339),
		Activities: []Activity{
			{
				ID:                   "qualification.score.compute",
				DisplayName:          "Compute Qualification Score",
				Description:          "Scores a subject's evidence into a qualification score vector without persisting it",
				Category:             "qualification",
				Version:              builtinVersion,
				TaskType:             "compute-qualification-score",
				ImplementationStatus: "completed",
				InputSchema:          subjectInput(nil),
				OutputSchema:         objectOutput("subjectId", "scoreVector", "qualificationLevel"),
				ErrorCodes:           []string{"INVALID_INPUT", "EVIDENCE_STORE_UNAVAILABLE", "OPERATION_TIMEOUT"},
				Timeout:              "30s",
				Retries:              3,
				Workflows:            []string{"management-due-diligence"},
				Tags:                 []string{"scoring", "read-only"},
			},
			{
				ID:                   "qualification.verdict.validate",
				DisplayName:          "Validate Qualification",
				Description:          "Runs the rule-based validator over a subject's evidence without persisting the verdict",
				Category:             "qualification",
				Version:              builtinVersion,
				TaskType:             "validate-qualification",
				ImplementationStatus: "completed",
				InputSchema:          subjectInput(nil),
				OutputSchema:         objectOutput("subjectId", "isValid", "validationScore"),
				ErrorCodes:           []string{"INVALID_INPUT", "EVIDENCE_STORE_UNAVAILABLE", "OPERATION_TIMEOUT"},
				Timeout:              "30s",
				Retries:              3,
				Workflows:            []string{"management-due-diligence"},
				Tags:                 []string{"validation", "read-only"},
			},
			{
				ID:                   "qualification.score.refresh",
				DisplayName:          "Refresh Qualification",
				Description:          "Scores and validates a subject, writes the result to every assessment and publishes snapshot, findings and alerts",
				Category:             "qualification",
				Version:              builtinVersion,
				TaskType:             "refresh-qualification",
				ImplementationStatus: "completed",
				InputSchema: subjectInput(map[string]interface{}{
					"notify": map[string]interface{}{
						"type":        "boolean",
						"description": "Send an alert when the verdict is invalid (defaults to configuration)",
					},
				}),
				OutputSchema: objectOutput("subjectId", "runId", "scoreVector", "isValid", "updatedAssessments"),
				ErrorCodes: []string{
					"INVALID_INPUT", "EVIDENCE_STORE_UNAVAILABLE", "WRITEBACK_PARTIAL_FAILURE", "OPERATION_TIMEOUT",
				},
				Timeout:   "60s",
				Retries:   2,
				Workflows: []string{"management-due-diligence", "evidence-update"},
				Tags:      []string{"scoring", "validation", "write-back"},
			},
			{
				ID:                   "qualification.snapshot.get",
				DisplayName:          "Get Qualification Snapshot",
				Description:          "Returns the cached qualification of a subject, computing it when no snapshot exists",
				Category:             "qualification",
				Version:              builtinVersion,
				TaskType:             "get-qualification-snapshot",
				ImplementationStatus: "completed",
				InputSchema: subjectInput(map[string]interface{}{
					"maxAgeSeconds": map[string]interface{}{
						"type":        "integer",
						"minimum":     0,
						"description": "Ignore snapshots older than this; 0 accepts any cached snapshot",
					},
				}),
				OutputSchema: objectOutput("subjectId", "scoreVector", "validation", "fromCache"),
				ErrorCodes:   []string{"INVALID_INPUT", "EVIDENCE_STORE_UNAVAILABLE", "OPERATION_TIMEOUT"},
				Timeout:      "15s",
				Retries:      3,
				Workflows:    []string{"management-due-diligence"},
				Tags:         []string{"cache", "read-only"},
			},
		},
	}
}
