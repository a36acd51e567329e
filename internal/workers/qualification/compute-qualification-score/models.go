package computequalificationscore

import (
	"context"

	"dd-qualification/internal/qualification"
)

type Input struct {
	SubjectID string `json:"subjectId"`
}

type Output struct {
	SubjectID          string                    `json:"subjectId"`
	ScoreVector        qualification.ScoreVector `json:"scoreVector"`
	QualificationLevel string                    `json:"qualificationLevel"`
	OverallScore       int                       `json:"overallQualificationScore"`
}

// Scorer is satisfied by *qualification.Engine.
type Scorer interface {
	ComputeScoreVector(ctx context.Context, subjectID string) (qualification.ScoreVector, error)
}
