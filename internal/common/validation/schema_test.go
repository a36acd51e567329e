package validation

import (
	"testing"

	"dd-qualification/pkg/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDefaultValidator(t *testing.T) *Validator {
	v, err := NewValidator(registry.Default())
	require.NoError(t, err)
	return v
}

func TestValidator_ValidateJSON(t *testing.T) {
	v := newDefaultValidator(t)

	tests := []struct {
		name      string
		taskType  string
		variables string
		valid     bool
		field     string
		code      string
	}{
		{name: "valid subject", taskType: "compute-qualification-score", variables: `{"subjectId":"tm-1"}`, valid: true},
		{name: "extra process variables allowed", taskType: "validate-qualification", variables: `{"subjectId":"tm-1","dealId":"d-9"}`, valid: true},
		{name: "missing subject", taskType: "compute-qualification-score", variables: `{}`, field: "(root)", code: "REQUIRED_FIELD_MISSING"},
		{name: "empty subject", taskType: "validate-qualification", variables: `{"subjectId":""}`, field: "subjectId", code: "MIN_LENGTH_VIOLATION"},
		{name: "numeric subject", taskType: "refresh-qualification", variables: `{"subjectId":42}`, field: "subjectId", code: "INVALID_TYPE"},
		{name: "notify must be boolean", taskType: "refresh-qualification", variables: `{"subjectId":"tm-1","notify":"yes"}`, field: "notify", code: "INVALID_TYPE"},
		{name: "negative max age", taskType: "get-qualification-snapshot", variables: `{"subjectId":"tm-1","maxAgeSeconds":-5}`, field: "maxAgeSeconds", code: "MINIMUM_VIOLATION"},
		{name: "fractional max age", taskType: "get-qualification-snapshot", variables: `{"subjectId":"tm-1","maxAgeSeconds":1.5}`, field: "maxAgeSeconds", code: "INVALID_TYPE"},
		{name: "malformed json", taskType: "compute-qualification-score", variables: `{"subjectId":`, field: "(root)", code: "INVALID_JSON"},
		{name: "unknown task type passes", taskType: "send-notification", variables: `{"anything":true}`, valid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := v.ValidateJSON(tt.taskType, tt.variables)

			assert.Equal(t, tt.valid, result.Valid)
			if tt.valid {
				assert.Empty(t, result.Errors)
				return
			}
			require.NotEmpty(t, result.Errors)
			assert.Equal(t, tt.field, result.Errors[0].Field)
			assert.Equal(t, tt.code, result.Errors[0].Code)
			assert.NotEmpty(t, result.Summary())
		})
	}
}

func TestValidator_HasSchema(t *testing.T) {
	v := newDefaultValidator(t)
	assert.True(t, v.HasSchema("refresh-qualification"))
	assert.False(t, v.HasSchema("send-notification"))
}

func TestNewValidator_RejectsBrokenSchema(t *testing.T) {
	reg := &registry.ActivityRegistry{Activities: []registry.Activity{{
		ID:          "qualification.broken.schema",
		TaskType:    "broken",
		InputSchema: map[string]interface{}{"type": 12},
	}}}

	_, err := NewValidator(reg)
	assert.Error(t, err)
}

func TestNilValidatorAcceptsEverything(t *testing.T) {
	var v *Validator
	assert.True(t, v.ValidateJSON("compute-qualification-score", `{}`).Valid)
}

func TestValidateInput(t *testing.T) {
	schema := map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"subjectId"},
		"properties": map[string]interface{}{
			"subjectId": map[string]interface{}{"type": "string"},
		},
	}

	result, err := ValidateInput(map[string]interface{}{"subjectId": "tm-1"}, schema)
	require.NoError(t, err)
	assert.True(t, result.Valid)

	result, err = ValidateInput(map[string]interface{}{}, schema)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.True(t, result.HasErrors("(root)"))
	assert.Equal(t, []string{"(root): subjectId is required"}, result.GetErrorMessages())
}
