package qualification

import "fmt"

// Finding codes raised by the validator.
const (
	CodeMissingAssessment       = "MISSING_ASSESSMENT"
	CodeSkillVariance           = "SKILL_VARIANCE"
	CodeLowEvidenceQuality      = "LOW_EVIDENCE_QUALITY"
	CodeInsufficientReferences  = "INSUFFICIENT_REFERENCES"
	CodeReferenceRedFlag        = "REFERENCE_RED_FLAG"
	CodeNegativeRehire          = "NEGATIVE_REHIRE"
	CodeLowValidationConfidence = "LOW_VALIDATION_CONFIDENCE"
	CodeExcessiveDiscrepancies  = "EXCESSIVE_DISCREPANCIES"
)

// Verdict thresholds.
const (
	MinValidScore       = 60
	MaxValidRedFlags    = 3
	minCompletedRefs    = 2
	skillVarianceLimit  = 20
	minEvidenceQuality  = 60
	minPerfConfidence   = 0.7
	maxPerfDiscrepancy  = 3
	recommendScoreBelow = 70
	recommendFlagsAbove = 2
	recommendConfBelow  = 70 // hundredths
)

var (
	recsLowScore = []string{
		"Conduct additional reference checks",
		"Request supporting documentation for claimed qualifications",
	}
	recsRedFlags = []string{
		"Conduct deeper investigation into identified red flags",
		"Perform additional due diligence before proceeding",
	}
	recsLowConfidence = []string{
		"Improve evidence quality for key qualifications",
		"Obtain third-party validation of claimed achievements",
	}
)

// validation accumulates deductions for one pass. Confidence is tracked in
// hundredths so repeated 0.1 deductions compare exactly against thresholds.
type validation struct {
	score         int
	confidence    int
	discrepancies []Finding
	redFlags      []Finding
}

func (v *validation) discrepancy(f Finding, points, confidence int) {
	v.discrepancies = append(v.discrepancies, f)
	v.score -= points
	v.confidence -= confidence
}

func (v *validation) redFlag(f Finding, points int) {
	v.redFlags = append(v.redFlags, f)
	v.score -= points
}

// ValidateEvidence re-walks the evidence with rule checks and produces a
// verdict independent of the weighted overall score.
func ValidateEvidence(ev *Evidence) ValidationResult {
	if ev == nil {
		ev = &Evidence{}
	}
	v := &validation{score: 100, confidence: 100}

	for _, t := range []AssessmentType{TypeSkills, TypeReferences, TypePerformance} {
		if !ev.HasType(t) {
			v.discrepancy(Finding{
				Code:    CodeMissingAssessment,
				Message: fmt.Sprintf("No %s assessment on file", t),
			}, 15, 10)
		}
	}

	for _, s := range ev.Skills {
		variance := s.ClaimedProficiency - s.ValidatedProficiency
		if variance < 0 {
			variance = -variance
		}
		if variance > skillVarianceLimit {
			v.discrepancy(Finding{
				Code: CodeSkillVariance,
				Message: fmt.Sprintf("Skill %s claimed at %.0f but validated at %.0f",
					skillLabel(s), s.ClaimedProficiency, s.ValidatedProficiency),
				AssessmentID: s.AssessmentID,
				RecordID:     s.ID,
			}, 5, 0)
		}
		if s.EvidenceQuality < minEvidenceQuality {
			v.redFlag(Finding{
				Code:         CodeLowEvidenceQuality,
				Message:      fmt.Sprintf("Low evidence quality (%.0f) for skill %s", s.EvidenceQuality, skillLabel(s)),
				AssessmentID: s.AssessmentID,
				RecordID:     s.ID,
			}, 3)
		}
	}

	for _, g := range ev.ReferenceGroups {
		completed := 0
		for _, r := range g.Checks {
			// Flags and would_rehire count only once the reference has responded.
			if !r.Completed() {
				continue
			}
			completed++
			for _, flag := range r.RedFlags {
				v.redFlag(Finding{
					Code:         CodeReferenceRedFlag,
					Message:      fmt.Sprintf("Reference %s: %s", referenceLabel(r), flag),
					AssessmentID: g.AssessmentID,
					RecordID:     r.ID,
				}, 5)
			}
			if ParseRehire(string(r.WouldRehire)) == RehireNo {
				v.redFlag(Finding{
					Code:         CodeNegativeRehire,
					Message:      fmt.Sprintf("Reference %s would not rehire the candidate", referenceLabel(r)),
					AssessmentID: g.AssessmentID,
					RecordID:     r.ID,
				}, 15)
			}
		}
		if completed < minCompletedRefs {
			v.discrepancy(Finding{
				Code:         CodeInsufficientReferences,
				Message:      fmt.Sprintf("Only %d completed reference(s); at least %d required", completed, minCompletedRefs),
				AssessmentID: g.AssessmentID,
			}, 10, 15)
		}
	}

	for _, p := range ev.Performance {
		if p.ValidationConfidence < minPerfConfidence {
			v.discrepancy(Finding{
				Code:         CodeLowValidationConfidence,
				Message:      fmt.Sprintf("Performance record %s validated with confidence %.2f", performanceLabel(p), p.ValidationConfidence),
				AssessmentID: p.AssessmentID,
				RecordID:     p.ID,
			}, 8, 10)
		}
		if n := len(p.DiscrepanciesFound); n > maxPerfDiscrepancy {
			v.redFlag(Finding{
				Code:         CodeExcessiveDiscrepancies,
				Message:      fmt.Sprintf("Performance record %s has %d discrepancies", performanceLabel(p), n),
				AssessmentID: p.AssessmentID,
				RecordID:     p.ID,
			}, 2*n)
		}
	}

	return v.result()
}

func (v *validation) result() ValidationResult {
	score := v.score
	if score < 0 {
		score = 0
	}
	confidence := clamp(float64(v.confidence)/100, 0, 1)

	recs := []string{}
	if score < recommendScoreBelow {
		recs = append(recs, recsLowScore...)
	}
	if len(v.redFlags) > recommendFlagsAbove {
		recs = append(recs, recsRedFlags...)
	}
	if v.confidence < recommendConfBelow {
		recs = append(recs, recsLowConfidence...)
	}

	discrepancies := v.discrepancies
	if discrepancies == nil {
		discrepancies = []Finding{}
	}
	redFlags := v.redFlags
	if redFlags == nil {
		redFlags = []Finding{}
	}

	return ValidationResult{
		IsValid:         score >= MinValidScore && len(redFlags) <= MaxValidRedFlags,
		Score:           score,
		Confidence:      confidence,
		Discrepancies:   discrepancies,
		RedFlags:        redFlags,
		Recommendations: recs,
	}
}

func skillLabel(s SkillValidation) string {
	if s.SkillName != "" {
		return s.SkillName
	}
	return s.ID
}

func referenceLabel(r ReferenceCheck) string {
	if r.ReferenceName != "" {
		return r.ReferenceName
	}
	return r.ID
}

func performanceLabel(p PerformanceValidation) string {
	switch {
	case p.Role != "" && p.Company != "":
		return p.Role + " at " + p.Company
	case p.Company != "":
		return p.Company
	default:
		return p.ID
	}
}
