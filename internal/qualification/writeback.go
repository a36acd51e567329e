package qualification

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

// BuildUpdate renders the payload broadcast to every assessment row of a
// subject. The score is a property of the subject, so each row receives the
// same numbers regardless of its assessment type.
//
// The persisted confidence is the validator's evidence-derived confidence.
// The vector confidence is computed from the stored confidence_level, so
// writing it back would compound on every refresh.
func BuildUpdate(vector ScoreVector, result ValidationResult) AssessmentUpdate {
	flags := make([]FlagItem, len(result.RedFlags))
	for i, f := range result.RedFlags {
		flags[i] = FlagItem{Flag: f.Message, Severity: DefaultTag}
	}
	recs := make([]RecommendationItem, len(result.Recommendations))
	for i, r := range result.Recommendations {
		recs[i] = RecommendationItem{Recommendation: r, Priority: DefaultTag}
	}
	return AssessmentUpdate{
		OverallScore:    vector.Overall,
		ConfidenceLevel: result.Confidence,
		RedFlags:        flags,
		Recommendations: recs,
	}
}

// RowFailure is one assessment row the write-back could not update.
type RowFailure struct {
	AssessmentID string `json:"assessmentId"`
	Error        string `json:"error"`
}

// WritebackError reports a partial write-back. Rows not listed were
// updated; re-running the refresh converges the rest.
type WritebackError struct {
	Failed []RowFailure
	Total  int
	err    error
}

func (e *WritebackError) Error() string {
	ids := make([]string, len(e.Failed))
	for i, f := range e.Failed {
		ids[i] = f.AssessmentID
	}
	return fmt.Sprintf("write-back failed for %d of %d assessments [%s]: %v",
		len(e.Failed), e.Total, strings.Join(ids, ", "), e.err)
}

// Unwrap returns the combined per-row errors.
func (e *WritebackError) Unwrap() error {
	return e.err
}

// Errors returns the individual per-row errors.
func (e *WritebackError) Errors() []error {
	return multierr.Errors(e.err)
}

// writeBack issues one update per assessment. A failing row does not stop
// the others. It returns the ids that were updated and, if any row failed,
// a *WritebackError.
func writeBack(ctx context.Context, store EvidenceStore, assessments []Assessment, update AssessmentUpdate) ([]string, error) {
	updated := make([]string, 0, len(assessments))
	var (
		combined error
		failed   []RowFailure
	)
	for _, a := range assessments {
		if err := store.UpdateAssessment(ctx, a.ID, update); err != nil {
			combined = multierr.Append(combined, fmt.Errorf("assessment %s: %w", a.ID, err))
			failed = append(failed, RowFailure{AssessmentID: a.ID, Error: err.Error()})
			continue
		}
		updated = append(updated, a.ID)
	}
	if combined != nil {
		return updated, &WritebackError{Failed: failed, Total: len(assessments), err: combined}
	}
	return updated, nil
}
