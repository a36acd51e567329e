package refreshqualification

import (
	"context"
	"time"

	"dd-qualification/internal/alerts"
	"dd-qualification/internal/findings"
	"dd-qualification/internal/qualification"
	"dd-qualification/internal/snapshot"
)

type Input struct {
	SubjectID string `json:"subjectId"`
	Notify    *bool  `json:"notify,omitempty"`
}

type Output struct {
	SubjectID          string                         `json:"subjectId"`
	RunID              string                         `json:"runId"`
	ScoreVector        qualification.ScoreVector      `json:"scoreVector"`
	QualificationLevel string                         `json:"qualificationLevel"`
	IsValid            bool                           `json:"isValid"`
	Validation         qualification.ValidationResult `json:"validation"`
	UpdatedAssessments []string                       `json:"updatedAssessments"`
	SnapshotCached     bool                           `json:"snapshotCached"`
	FindingsIndexed    bool                           `json:"findingsIndexed"`
	Alerts             []alerts.Delivery              `json:"alerts,omitempty"`
	ComputedAt         time.Time                      `json:"computedAt"`
}

// Refresher is satisfied by *qualification.Engine.
type Refresher interface {
	RefreshAndPersist(ctx context.Context, subjectID string) (*qualification.RefreshResult, error)
}

type SnapshotWriter interface {
	Put(ctx context.Context, snap snapshot.Snapshot) error
}

type FindingsWriter interface {
	Put(ctx context.Context, doc findings.Document) error
}

type Alerter interface {
	Notify(ctx context.Context, r *qualification.RefreshResult) ([]alerts.Delivery, error)
}

func newOutput(r *qualification.RefreshResult) *Output {
	updated := r.Updated
	if updated == nil {
		updated = []string{}
	}
	return &Output{
		SubjectID:          r.SubjectID,
		RunID:              r.RunID,
		ScoreVector:        r.Vector,
		QualificationLevel: r.Vector.Level(),
		IsValid:            r.Validation.IsValid,
		Validation:         r.Validation,
		UpdatedAssessments: updated,
		ComputedAt:         r.ComputedAt,
	}
}
