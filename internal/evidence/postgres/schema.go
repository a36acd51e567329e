package postgres

import (
	"context"
	"fmt"
)

// Schema creates the evidence tables when they do not exist. Production
// databases are migrated by the deal platform; this is for local and e2e
// environments.
const Schema = `
CREATE TABLE IF NOT EXISTS qualification_assessments (
	id TEXT PRIMARY KEY,
	subject_id TEXT NOT NULL,
	assessment_type TEXT NOT NULL,
	overall_qualification_score NUMERIC,
	verification_status TEXT NOT NULL DEFAULT 'pending',
	confidence_level NUMERIC,
	findings JSONB NOT NULL DEFAULT '[]',
	recommendations JSONB NOT NULL DEFAULT '[]',
	red_flags JSONB NOT NULL DEFAULT '[]',
	validation_evidence JSONB NOT NULL DEFAULT '[]',
	external_validation_required BOOLEAN DEFAULT false,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_qualification_assessments_subject ON qualification_assessments (subject_id);

CREATE TABLE IF NOT EXISTS skill_validations (
	id TEXT PRIMARY KEY,
	assessment_id TEXT NOT NULL REFERENCES qualification_assessments (id),
	skill_name TEXT NOT NULL,
	skill_category TEXT NOT NULL,
	claimed_proficiency NUMERIC,
	validated_proficiency NUMERIC,
	evidence_quality NUMERIC,
	industry_relevance NUMERIC,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS reference_checks (
	id TEXT PRIMARY KEY,
	assessment_id TEXT NOT NULL REFERENCES qualification_assessments (id),
	reference_name TEXT,
	response_status TEXT NOT NULL DEFAULT 'pending',
	overall_rating NUMERIC,
	integrity_rating NUMERIC,
	performance_rating NUMERIC,
	would_rehire BOOLEAN,
	relationship_to_candidate TEXT,
	red_flags JSONB NOT NULL DEFAULT '[]',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS performance_validations (
	id TEXT PRIMARY KEY,
	assessment_id TEXT NOT NULL REFERENCES qualification_assessments (id),
	company TEXT,
	role TEXT,
	validation_confidence NUMERIC,
	stakeholder_feedback NUMERIC,
	peer_review NUMERIC,
	subordinate_feedback NUMERIC,
	client_satisfaction NUMERIC,
	discrepancies_found JSONB NOT NULL DEFAULT '[]',
	claimed_achievements JSONB NOT NULL DEFAULT '[]',
	validated_achievements JSONB NOT NULL DEFAULT '[]',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS competency_validations (
	id TEXT PRIMARY KEY,
	assessment_id TEXT NOT NULL REFERENCES qualification_assessments (id),
	competency_name TEXT,
	competency_category TEXT,
	required_level NUMERIC,
	demonstrated_level NUMERIC,
	assessor_confidence NUMERIC,
	future_potential_score NUMERIC,
	competency_gaps JSONB NOT NULL DEFAULT '[]',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS cultural_fit_assessments (
	id TEXT PRIMARY KEY,
	assessment_id TEXT NOT NULL REFERENCES qualification_assessments (id),
	values_alignment NUMERIC,
	work_style_fit NUMERIC,
	communication_fit NUMERIC,
	leadership_fit NUMERIC,
	team_integration_fit NUMERIC,
	cultural_red_flags JSONB NOT NULL DEFAULT '[]',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// EnsureSchema applies Schema.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply evidence schema: %w", err)
	}
	return nil
}
