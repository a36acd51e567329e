// Package postgres implements the qualification evidence store on
// PostgreSQL through sqlx.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"dd-qualification/internal/common/logger"
	"dd-qualification/internal/qualification"

	"github.com/jmoiron/sqlx"
)

var ErrAssessmentNotFound = errors.New("ASSESSMENT_NOT_FOUND")

// Store reads evidence records and writes assessment scores. Reads are
// ordered by created_at then id so repeated reads see the same sequence.
type Store struct {
	db     *sqlx.DB
	logger logger.Logger
}

var _ qualification.EvidenceStore = (*Store)(nil)

func NewStore(db *sqlx.DB, log logger.Logger) *Store {
	return &Store{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "evidence-store"}),
	}
}

type assessmentRow struct {
	ID                         string   `db:"id"`
	SubjectID                  string   `db:"subject_id"`
	AssessmentType             string   `db:"assessment_type"`
	OverallScore               float64  `db:"overall_qualification_score"`
	VerificationStatus         string   `db:"verification_status"`
	ConfidenceLevel            float64  `db:"confidence_level"`
	Findings                   TextList `db:"findings"`
	Recommendations            TextList `db:"recommendations"`
	RedFlags                   TextList `db:"red_flags"`
	ValidationEvidence         TextList `db:"validation_evidence"`
	ExternalValidationRequired bool     `db:"external_validation_required"`
}

func (s *Store) AssessmentsBySubject(ctx context.Context, subjectID string) ([]qualification.Assessment, error) {
	var rows []assessmentRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, subject_id, assessment_type,
			COALESCE(overall_qualification_score, 0) AS overall_qualification_score,
			verification_status,
			COALESCE(confidence_level, 0) AS confidence_level,
			findings, recommendations, red_flags, validation_evidence,
			COALESCE(external_validation_required, false) AS external_validation_required
		FROM qualification_assessments
		WHERE subject_id = $1
		ORDER BY created_at, id`, subjectID)
	if err != nil {
		return nil, fmt.Errorf("query assessments for subject %s: %w", subjectID, err)
	}

	out := make([]qualification.Assessment, len(rows))
	for i, r := range rows {
		out[i] = qualification.Assessment{
			ID:                         r.ID,
			SubjectID:                  r.SubjectID,
			Type:                       qualification.ParseAssessmentType(r.AssessmentType),
			OverallScore:               r.OverallScore,
			VerificationStatus:         qualification.VerificationStatus(r.VerificationStatus),
			ConfidenceLevel:            r.ConfidenceLevel,
			Findings:                   r.Findings,
			Recommendations:            r.Recommendations,
			RedFlags:                   r.RedFlags,
			ValidationEvidence:         r.ValidationEvidence,
			ExternalValidationRequired: r.ExternalValidationRequired,
		}
	}
	return out, nil
}

type skillRow struct {
	ID                   string  `db:"id"`
	AssessmentID         string  `db:"assessment_id"`
	SkillName            string  `db:"skill_name"`
	SkillCategory        string  `db:"skill_category"`
	ClaimedProficiency   float64 `db:"claimed_proficiency"`
	ValidatedProficiency float64 `db:"validated_proficiency"`
	EvidenceQuality      float64 `db:"evidence_quality"`
	IndustryRelevance    float64 `db:"industry_relevance"`
}

func (s *Store) SkillsByAssessment(ctx context.Context, assessmentID string) ([]qualification.SkillValidation, error) {
	var rows []skillRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, assessment_id, skill_name, skill_category,
			COALESCE(claimed_proficiency, 0) AS claimed_proficiency,
			COALESCE(validated_proficiency, 0) AS validated_proficiency,
			COALESCE(evidence_quality, 0) AS evidence_quality,
			COALESCE(industry_relevance, 0) AS industry_relevance
		FROM skill_validations
		WHERE assessment_id = $1
		ORDER BY created_at, id`, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("query skill validations for assessment %s: %w", assessmentID, err)
	}

	out := make([]qualification.SkillValidation, len(rows))
	for i, r := range rows {
		out[i] = qualification.SkillValidation{
			ID:                   r.ID,
			AssessmentID:         r.AssessmentID,
			SkillName:            r.SkillName,
			Category:             qualification.ParseSkillCategory(r.SkillCategory),
			ClaimedProficiency:   r.ClaimedProficiency,
			ValidatedProficiency: r.ValidatedProficiency,
			EvidenceQuality:      r.EvidenceQuality,
			IndustryRelevance:    r.IndustryRelevance,
		}
	}
	return out, nil
}

type referenceRow struct {
	ID                string   `db:"id"`
	AssessmentID      string   `db:"assessment_id"`
	ReferenceName     string   `db:"reference_name"`
	ResponseStatus    string   `db:"response_status"`
	OverallRating     float64  `db:"overall_rating"`
	IntegrityRating   float64  `db:"integrity_rating"`
	PerformanceRating float64  `db:"performance_rating"`
	WouldRehire       string   `db:"would_rehire"`
	Relationship      string   `db:"relationship_to_candidate"`
	RedFlags          TextList `db:"red_flags"`
}

func (s *Store) ReferencesByAssessment(ctx context.Context, assessmentID string) ([]qualification.ReferenceCheck, error) {
	var rows []referenceRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, assessment_id,
			COALESCE(reference_name, '') AS reference_name,
			response_status,
			COALESCE(overall_rating, 0) AS overall_rating,
			COALESCE(integrity_rating, 0) AS integrity_rating,
			COALESCE(performance_rating, 0) AS performance_rating,
			COALESCE(would_rehire::text, 'unknown') AS would_rehire,
			COALESCE(relationship_to_candidate, '') AS relationship_to_candidate,
			red_flags
		FROM reference_checks
		WHERE assessment_id = $1
		ORDER BY created_at, id`, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("query reference checks for assessment %s: %w", assessmentID, err)
	}

	out := make([]qualification.ReferenceCheck, len(rows))
	for i, r := range rows {
		out[i] = qualification.ReferenceCheck{
			ID:                r.ID,
			AssessmentID:      r.AssessmentID,
			ReferenceName:     r.ReferenceName,
			Status:            qualification.ResponseStatus(r.ResponseStatus),
			OverallRating:     r.OverallRating,
			IntegrityRating:   r.IntegrityRating,
			PerformanceRating: r.PerformanceRating,
			WouldRehire:       qualification.ParseRehire(r.WouldRehire),
			Relationship:      qualification.ParseRelationship(r.Relationship),
			RedFlags:          r.RedFlags,
		}
	}
	return out, nil
}

type performanceRow struct {
	ID                    string   `db:"id"`
	AssessmentID          string   `db:"assessment_id"`
	Company               string   `db:"company"`
	Role                  string   `db:"role"`
	ValidationConfidence  float64  `db:"validation_confidence"`
	StakeholderFeedback   float64  `db:"stakeholder_feedback"`
	PeerReview            float64  `db:"peer_review"`
	SubordinateFeedback   float64  `db:"subordinate_feedback"`
	ClientSatisfaction    float64  `db:"client_satisfaction"`
	DiscrepanciesFound    TextList `db:"discrepancies_found"`
	ClaimedAchievements   TextList `db:"claimed_achievements"`
	ValidatedAchievements TextList `db:"validated_achievements"`
}

func (s *Store) PerformanceByAssessment(ctx context.Context, assessmentID string) ([]qualification.PerformanceValidation, error) {
	var rows []performanceRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, assessment_id,
			COALESCE(company, '') AS company,
			COALESCE(role, '') AS role,
			COALESCE(validation_confidence, 0) AS validation_confidence,
			COALESCE(stakeholder_feedback, 0) AS stakeholder_feedback,
			COALESCE(peer_review, 0) AS peer_review,
			COALESCE(subordinate_feedback, 0) AS subordinate_feedback,
			COALESCE(client_satisfaction, 0) AS client_satisfaction,
			discrepancies_found, claimed_achievements, validated_achievements
		FROM performance_validations
		WHERE assessment_id = $1
		ORDER BY created_at, id`, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("query performance validations for assessment %s: %w", assessmentID, err)
	}

	out := make([]qualification.PerformanceValidation, len(rows))
	for i, r := range rows {
		out[i] = qualification.PerformanceValidation{
			ID:                    r.ID,
			AssessmentID:          r.AssessmentID,
			Company:               r.Company,
			Role:                  r.Role,
			ValidationConfidence:  r.ValidationConfidence,
			StakeholderFeedback:   r.StakeholderFeedback,
			PeerReview:            r.PeerReview,
			SubordinateFeedback:   r.SubordinateFeedback,
			ClientSatisfaction:    r.ClientSatisfaction,
			DiscrepanciesFound:    r.DiscrepanciesFound,
			ClaimedAchievements:   r.ClaimedAchievements,
			ValidatedAchievements: r.ValidatedAchievements,
		}
	}
	return out, nil
}

type competencyRow struct {
	ID                   string   `db:"id"`
	AssessmentID         string   `db:"assessment_id"`
	CompetencyName       string   `db:"competency_name"`
	CompetencyCategory   string   `db:"competency_category"`
	RequiredLevel        float64  `db:"required_level"`
	DemonstratedLevel    float64  `db:"demonstrated_level"`
	AssessorConfidence   float64  `db:"assessor_confidence"`
	FuturePotentialScore float64  `db:"future_potential_score"`
	CompetencyGaps       TextList `db:"competency_gaps"`
}

func (s *Store) CompetencyByAssessment(ctx context.Context, assessmentID string) ([]qualification.CompetencyValidation, error) {
	var rows []competencyRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, assessment_id,
			COALESCE(competency_name, '') AS competency_name,
			COALESCE(competency_category, '') AS competency_category,
			COALESCE(required_level, 0) AS required_level,
			COALESCE(demonstrated_level, 0) AS demonstrated_level,
			COALESCE(assessor_confidence, 0) AS assessor_confidence,
			COALESCE(future_potential_score, 0) AS future_potential_score,
			competency_gaps
		FROM competency_validations
		WHERE assessment_id = $1
		ORDER BY created_at, id`, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("query competency validations for assessment %s: %w", assessmentID, err)
	}

	out := make([]qualification.CompetencyValidation, len(rows))
	for i, r := range rows {
		out[i] = qualification.CompetencyValidation{
			ID:                   r.ID,
			AssessmentID:         r.AssessmentID,
			CompetencyName:       r.CompetencyName,
			Category:             qualification.ParseCompetencyCategory(r.CompetencyCategory),
			RequiredLevel:        r.RequiredLevel,
			DemonstratedLevel:    r.DemonstratedLevel,
			AssessorConfidence:   r.AssessorConfidence,
			FuturePotentialScore: r.FuturePotentialScore,
			CompetencyGaps:       r.CompetencyGaps,
		}
	}
	return out, nil
}

type culturalFitRow struct {
	ID                 string   `db:"id"`
	AssessmentID       string   `db:"assessment_id"`
	ValuesAlignment    float64  `db:"values_alignment"`
	WorkStyleFit       float64  `db:"work_style_fit"`
	CommunicationFit   float64  `db:"communication_fit"`
	LeadershipFit      float64  `db:"leadership_fit"`
	TeamIntegrationFit float64  `db:"team_integration_fit"`
	CulturalRedFlags   TextList `db:"cultural_red_flags"`
}

func (s *Store) CulturalFitByAssessment(ctx context.Context, assessmentID string) ([]qualification.CulturalFitAssessment, error) {
	var rows []culturalFitRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, assessment_id,
			COALESCE(values_alignment, 0) AS values_alignment,
			COALESCE(work_style_fit, 0) AS work_style_fit,
			COALESCE(communication_fit, 0) AS communication_fit,
			COALESCE(leadership_fit, 0) AS leadership_fit,
			COALESCE(team_integration_fit, 0) AS team_integration_fit,
			cultural_red_flags
		FROM cultural_fit_assessments
		WHERE assessment_id = $1
		ORDER BY created_at, id`, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("query cultural fit assessments for assessment %s: %w", assessmentID, err)
	}

	out := make([]qualification.CulturalFitAssessment, len(rows))
	for i, r := range rows {
		out[i] = qualification.CulturalFitAssessment{
			ID:                 r.ID,
			AssessmentID:       r.AssessmentID,
			ValuesAlignment:    r.ValuesAlignment,
			WorkStyleFit:       r.WorkStyleFit,
			CommunicationFit:   r.CommunicationFit,
			LeadershipFit:      r.LeadershipFit,
			TeamIntegrationFit: r.TeamIntegrationFit,
			CulturalRedFlags:   r.CulturalRedFlags,
		}
	}
	return out, nil
}

// UpdateAssessment overwrites the scored fields of one assessment row.
func (s *Store) UpdateAssessment(ctx context.Context, assessmentID string, update qualification.AssessmentUpdate) error {
	redFlags, err := jsonColumn(update.RedFlags)
	if err != nil {
		return fmt.Errorf("marshal red flags: %w", err)
	}
	recommendations, err := jsonColumn(update.Recommendations)
	if err != nil {
		return fmt.Errorf("marshal recommendations: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE qualification_assessments
		SET overall_qualification_score = $1,
			confidence_level = $2,
			red_flags = $3,
			recommendations = $4,
			updated_at = NOW()
		WHERE id = $5`,
		update.OverallScore,
		update.ConfidenceLevel,
		redFlags,
		recommendations,
		assessmentID,
	)
	if err != nil {
		return fmt.Errorf("update assessment %s: %w", assessmentID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update assessment %s: %w", assessmentID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrAssessmentNotFound, assessmentID)
	}

	s.logger.Debug("assessment updated", map[string]interface{}{
		"assessmentId": assessmentID,
		"overallScore": update.OverallScore,
	})
	return nil
}
