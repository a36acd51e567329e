package qualification

import "context"

// ReferenceGroup keeps references together with their parent assessment;
// the validator checks the completed-reference count per assessment.
type ReferenceGroup struct {
	AssessmentID string
	Checks       []ReferenceCheck
}

// Evidence is everything known about one subject, read once so that scoring
// and validation in the same refresh see the same snapshot.
type Evidence struct {
	SubjectID       string
	Assessments     []Assessment
	Skills          []SkillValidation
	ReferenceGroups []ReferenceGroup
	Performance     []PerformanceValidation
	Competency      []CompetencyValidation
	CulturalFit     []CulturalFitAssessment
}

// References flattens the reference groups.
func (e *Evidence) References() []ReferenceCheck {
	var out []ReferenceCheck
	for _, g := range e.ReferenceGroups {
		out = append(out, g.Checks...)
	}
	return out
}

// HasType reports whether any assessment of type t exists, whatever its
// verification status.
func (e *Evidence) HasType(t AssessmentType) bool {
	for _, a := range e.Assessments {
		if a.Type == t {
			return true
		}
	}
	return false
}

func (e *Evidence) HasCulturalFit() bool {
	return e.HasType(TypeCulturalFit)
}

// LoadEvidence reads the subject's assessments and, for each, the evidence
// family matching its type. Assessments of an unrecognized type are kept
// (they still count toward confidence) but have no records to fetch.
func LoadEvidence(ctx context.Context, store EvidenceStore, subjectID string) (*Evidence, error) {
	assessments, err := store.AssessmentsBySubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	ev := &Evidence{SubjectID: subjectID, Assessments: make([]Assessment, len(assessments))}
	for i, a := range assessments {
		a.Type = ParseAssessmentType(string(a.Type))
		a.VerificationStatus = VerificationStatus(normalize(string(a.VerificationStatus)))
		ev.Assessments[i] = a

		switch a.Type {
		case TypeSkills:
			skills, err := store.SkillsByAssessment(ctx, a.ID)
			if err != nil {
				return nil, err
			}
			ev.Skills = append(ev.Skills, skills...)
		case TypeReferences:
			refs, err := store.ReferencesByAssessment(ctx, a.ID)
			if err != nil {
				return nil, err
			}
			ev.ReferenceGroups = append(ev.ReferenceGroups, ReferenceGroup{AssessmentID: a.ID, Checks: refs})
		case TypePerformance:
			perf, err := store.PerformanceByAssessment(ctx, a.ID)
			if err != nil {
				return nil, err
			}
			ev.Performance = append(ev.Performance, perf...)
		case TypeCompetency:
			comp, err := store.CompetencyByAssessment(ctx, a.ID)
			if err != nil {
				return nil, err
			}
			ev.Competency = append(ev.Competency, comp...)
		case TypeCulturalFit:
			fit, err := store.CulturalFitByAssessment(ctx, a.ID)
			if err != nil {
				return nil, err
			}
			ev.CulturalFit = append(ev.CulturalFit, fit...)
		}
	}
	return ev, nil
}

// unknownCategories lists category and relationship values that fell back
// to the default weight.
func (e *Evidence) unknownCategories() map[string][]string {
	out := make(map[string][]string)
	for _, s := range e.Skills {
		if !s.Category.Known() {
			out["skillCategory"] = append(out["skillCategory"], string(s.Category))
		}
	}
	for _, c := range e.Competency {
		if !c.Category.Known() {
			out["competencyCategory"] = append(out["competencyCategory"], string(c.Category))
		}
	}
	for _, r := range e.References() {
		if r.Completed() && !r.Relationship.Known() {
			out["relationship"] = append(out["relationship"], string(r.Relationship))
		}
	}
	for _, a := range e.Assessments {
		switch a.Type {
		case TypeSkills, TypeReferences, TypePerformance, TypeCompetency, TypeCulturalFit:
		default:
			out["assessmentType"] = append(out["assessmentType"], string(a.Type))
		}
	}
	return out
}
