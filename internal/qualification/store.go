package qualification

import "context"

// EvidenceStore is the read/update contract the engine needs from the
// persistence layer. Implementations return their own errors; the engine
// passes them through unchanged.
type EvidenceStore interface {
	AssessmentsBySubject(ctx context.Context, subjectID string) ([]Assessment, error)
	SkillsByAssessment(ctx context.Context, assessmentID string) ([]SkillValidation, error)
	ReferencesByAssessment(ctx context.Context, assessmentID string) ([]ReferenceCheck, error)
	PerformanceByAssessment(ctx context.Context, assessmentID string) ([]PerformanceValidation, error)
	CompetencyByAssessment(ctx context.Context, assessmentID string) ([]CompetencyValidation, error)
	CulturalFitByAssessment(ctx context.Context, assessmentID string) ([]CulturalFitAssessment, error)
	UpdateAssessment(ctx context.Context, assessmentID string, update AssessmentUpdate) error
}

// DefaultTag is the severity and priority attached to rendered items.
const DefaultTag = "medium"

// FlagItem is a red flag as persisted on an assessment row.
type FlagItem struct {
	Flag     string `json:"flag"`
	Severity string `json:"severity"`
}

// RecommendationItem is a recommendation as persisted on an assessment row.
type RecommendationItem struct {
	Recommendation string `json:"recommendation"`
	Priority       string `json:"priority"`
}

// AssessmentUpdate is the partial set of fields the write-back touches.
type AssessmentUpdate struct {
	OverallScore    int                  `json:"overallQualificationScore"`
	ConfidenceLevel float64              `json:"confidenceLevel"`
	RedFlags        []FlagItem           `json:"redFlags"`
	Recommendations []RecommendationItem `json:"recommendations"`
}
