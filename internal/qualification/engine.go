// Package qualification scores and validates management-team candidates
// from structured due-diligence evidence.
package qualification

import (
	"context"
	"strconv"
	"time"

	"dd-qualification/internal/common/logger"
	"dd-qualification/internal/common/metrics"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "dd-qualification/qualification"

// Engine loads evidence from an EvidenceStore and runs the scorers, the
// validator and the write-back. It holds no per-subject state; one Engine
// is safe for concurrent use if the store is.
type Engine struct {
	store  EvidenceStore
	logger logger.Logger
	tracer trace.Tracer
	now    func() time.Time
}

// RefreshResult is what a refresh computed and persisted.
type RefreshResult struct {
	RunID      string           `json:"runId"`
	SubjectID  string           `json:"subjectId"`
	Vector     ScoreVector      `json:"scoreVector"`
	Validation ValidationResult `json:"validation"`
	Update     AssessmentUpdate `json:"update"`
	Updated    []string         `json:"updatedAssessments"`
	Failed     []RowFailure     `json:"failedAssessments,omitempty"`
	ComputedAt time.Time        `json:"computedAt"`
}

func NewEngine(store EvidenceStore, log logger.Logger) *Engine {
	return &Engine{
		store:  store,
		logger: log.WithFields(map[string]interface{}{"component": "qualification-engine"}),
		tracer: otel.Tracer(tracerName),
		now:    time.Now,
	}
}

// Load reads the subject's evidence once. Store errors are returned as is.
func (e *Engine) Load(ctx context.Context, subjectID string) (*Evidence, error) {
	ctx, span := e.tracer.Start(ctx, "qualification.load", trace.WithAttributes(attribute.String("subject.id", subjectID)))
	defer span.End()

	ev, err := LoadEvidence(ctx, e.store, subjectID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "evidence load failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("assessments", len(ev.Assessments)))

	for field, values := range ev.unknownCategories() {
		e.logger.Warn("unrecognized category, default weight applied", map[string]interface{}{
			"subjectId": subjectID,
			"field":     field,
			"values":    values,
		})
	}
	return ev, nil
}

// ComputeScoreVector scores a subject without writing anything.
func (e *Engine) ComputeScoreVector(ctx context.Context, subjectID string) (ScoreVector, error) {
	ev, err := e.Load(ctx, subjectID)
	if err != nil {
		return ScoreVector{}, err
	}
	v := e.score(ctx, ev)
	return v, nil
}

// Validate runs the rule-based validator without writing anything.
func (e *Engine) Validate(ctx context.Context, subjectID string) (ValidationResult, error) {
	ev, err := e.Load(ctx, subjectID)
	if err != nil {
		return ValidationResult{}, err
	}
	return e.validate(ctx, ev), nil
}

// Evaluate scores and validates one evidence snapshot.
func (e *Engine) Evaluate(ctx context.Context, subjectID string) (*Evidence, ScoreVector, ValidationResult, error) {
	ev, err := e.Load(ctx, subjectID)
	if err != nil {
		return nil, ScoreVector{}, ValidationResult{}, err
	}
	return ev, e.score(ctx, ev), e.validate(ctx, ev), nil
}

// RefreshAndPersist scores and validates the subject from a single evidence
// read, then writes the result to every assessment row. On partial
// write-back failure the result is still returned together with a
// *WritebackError.
func (e *Engine) RefreshAndPersist(ctx context.Context, subjectID string) (*RefreshResult, error) {
	runID := uuid.NewString()
	ctx, span := e.tracer.Start(ctx, "qualification.refresh", trace.WithAttributes(
		attribute.String("subject.id", subjectID),
		attribute.String("run.id", runID),
	))
	defer span.End()

	log := e.logger.WithFields(map[string]interface{}{"subjectId": subjectID, "runId": runID})

	ev, vector, verdict, err := e.Evaluate(ctx, subjectID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "evaluation failed")
		return nil, err
	}

	update := BuildUpdate(vector, verdict)
	updated, werr := writeBack(ctx, e.store, ev.Assessments, update)

	result := &RefreshResult{
		RunID:      runID,
		SubjectID:  subjectID,
		Vector:     vector,
		Validation: verdict,
		Update:     update,
		Updated:    updated,
		ComputedAt: e.now().UTC(),
	}

	if werr != nil {
		if wb, ok := werr.(*WritebackError); ok {
			result.Failed = wb.Failed
			metrics.WritebackFailures.Add(float64(len(wb.Failed)))
		}
		span.RecordError(werr)
		span.SetStatus(codes.Error, "partial write-back")
		log.Warn("write-back incomplete", map[string]interface{}{
			"updated": len(updated),
			"failed":  len(result.Failed),
			"error":   werr.Error(),
		})
		return result, werr
	}

	log.Info("qualification refreshed", map[string]interface{}{
		"overall":  vector.Overall,
		"isValid":  verdict.IsValid,
		"redFlags": len(verdict.RedFlags),
		"updated":  len(updated),
	})
	return result, nil
}

func (e *Engine) score(ctx context.Context, ev *Evidence) ScoreVector {
	_, span := e.tracer.Start(ctx, "qualification.score")
	defer span.End()

	v := Score(ev)
	metrics.ScoresComputed.Inc()
	metrics.OverallScore.Observe(float64(v.Overall))
	span.SetAttributes(attribute.Int("overall", v.Overall))
	return v
}

func (e *Engine) validate(ctx context.Context, ev *Evidence) ValidationResult {
	_, span := e.tracer.Start(ctx, "qualification.validate")
	defer span.End()

	r := ValidateEvidence(ev)
	metrics.ValidationVerdicts.WithLabelValues(strconv.FormatBool(r.IsValid)).Inc()
	span.SetAttributes(attribute.Bool("valid", r.IsValid), attribute.Int("score", r.Score))
	return r
}
