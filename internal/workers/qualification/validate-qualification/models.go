package validatequalification

import (
	"context"

	"dd-qualification/internal/qualification"
)

type Input struct {
	SubjectID string `json:"subjectId"`
}

type Output struct {
	SubjectID       string                  `json:"subjectId"`
	IsValid         bool                    `json:"isValid"`
	ValidationScore int                     `json:"validationScore"`
	Confidence      float64                 `json:"validationConfidence"`
	Discrepancies   []qualification.Finding `json:"discrepancies"`
	RedFlags        []qualification.Finding `json:"redFlags"`
	Recommendations []string                `json:"recommendations"`
}

// Checker is satisfied by *qualification.Engine.
type Checker interface {
	Validate(ctx context.Context, subjectID string) (qualification.ValidationResult, error)
}

func newOutput(subjectID string, r qualification.ValidationResult) *Output {
	out := &Output{
		SubjectID:       subjectID,
		IsValid:         r.IsValid,
		ValidationScore: r.Score,
		Confidence:      r.Confidence,
		Discrepancies:   r.Discrepancies,
		RedFlags:        r.RedFlags,
		Recommendations: r.Recommendations,
	}
	// Process variables are easier to consume as [] than null.
	if out.Discrepancies == nil {
		out.Discrepancies = []qualification.Finding{}
	}
	if out.RedFlags == nil {
		out.RedFlags = []qualification.Finding{}
	}
	if out.Recommendations == nil {
		out.Recommendations = []string{}
	}
	return out
}
