package getqualificationsnapshot

import (
	"context"
	"time"

	"dd-qualification/internal/qualification"
	"dd-qualification/internal/snapshot"
)

type Input struct {
	SubjectID     string `json:"subjectId"`
	MaxAgeSeconds *int   `json:"maxAgeSeconds,omitempty"`
}

type Output struct {
	SubjectID          string                         `json:"subjectId"`
	RunID              string                         `json:"runId,omitempty"`
	ScoreVector        qualification.ScoreVector      `json:"scoreVector"`
	QualificationLevel string                         `json:"qualificationLevel"`
	Validation         qualification.ValidationResult `json:"validation"`
	IsValid            bool                           `json:"isValid"`
	ComputedAt         time.Time                      `json:"computedAt"`
	FromCache          bool                           `json:"fromCache"`
}

// Evaluator is satisfied by *qualification.Engine.
type Evaluator interface {
	Evaluate(ctx context.Context, subjectID string) (*qualification.Evidence, qualification.ScoreVector, qualification.ValidationResult, error)
}

// SnapshotCache is satisfied by *snapshot.Cache.
type SnapshotCache interface {
	Get(ctx context.Context, subjectID string) (*snapshot.Snapshot, bool, error)
	Put(ctx context.Context, snap snapshot.Snapshot) error
}

func newOutput(snap *snapshot.Snapshot, fromCache bool) *Output {
	return &Output{
		SubjectID:          snap.SubjectID,
		RunID:              snap.RunID,
		ScoreVector:        snap.Vector,
		QualificationLevel: snap.Vector.Level(),
		Validation:         snap.Validation,
		IsValid:            snap.Validation.IsValid,
		ComputedAt:         snap.ComputedAt,
		FromCache:          fromCache,
	}
}
