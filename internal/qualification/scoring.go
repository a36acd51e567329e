package qualification

import (
	"math"

	"github.com/montanaflynn/stats"
)

// Per-record formulas are written over integer percentages so integral
// inputs produce exact intermediate values (0.6*60 is not exactly 36 in
// binary floating point, 60*60/100 is).

// SkillRecordScore scores one skill: a blend of validated proficiency,
// evidence quality and industry relevance, minus a capped penalty for the
// gap between claimed and validated proficiency.
func SkillRecordScore(s SkillValidation) float64 {
	validated := clamp(s.ValidatedProficiency, 0, 100)
	claimed := clamp(s.ClaimedProficiency, 0, 100)

	score := (60*validated + 25*clamp(s.EvidenceQuality, 0, 100) + 15*clamp(s.IndustryRelevance, 0, 100)) / 100
	penalty := math.Min(math.Abs(claimed-validated)*0.5, 20)
	return clamp(score-penalty, 0, 100)
}

// SkillsScore is the category-weighted mean of skill scores, rounded to an
// integer. No skills scores 0.
func SkillsScore(skills []SkillValidation) float64 {
	if len(skills) == 0 {
		return 0
	}
	scores := make([]float64, len(skills))
	weights := make([]float64, len(skills))
	for i, s := range skills {
		scores[i] = SkillRecordScore(s)
		weights[i] = s.Category.Weight()
	}
	return math.Round(weightedMean(scores, weights))
}

// ReferenceRecordScore scores one completed reference. The relationship
// multiplier can push the score past 100; it saturates there.
func ReferenceRecordScore(r ReferenceCheck) float64 {
	score := (40*clamp(r.OverallRating, 0, 100) + 30*clamp(r.IntegrityRating, 0, 100) + 30*clamp(r.PerformanceRating, 0, 100)) / 100

	switch ParseRehire(string(r.WouldRehire)) {
	case RehireYes:
		score += 5
	case RehireNo:
		score -= 10
	}
	score -= 5 * float64(len(r.RedFlags))
	score *= r.Relationship.Weight()
	return clamp(score, 0, 100)
}

// ReferencesScore is the plain mean over completed references only. With
// no completed reference the category scores 0.
func ReferencesScore(refs []ReferenceCheck) float64 {
	scores := make([]float64, 0, len(refs))
	for _, r := range refs {
		if !r.Completed() {
			continue
		}
		scores = append(scores, ReferenceRecordScore(r))
	}
	return mean(scores)
}

// PerformanceRecordScore blends validation confidence with the stakeholder
// composite, deducts for discrepancies and adds up to 10 points for the
// share of claimed achievements that were validated.
func PerformanceRecordScore(p PerformanceValidation) float64 {
	base := clamp(p.ValidationConfidence, 0, 1) * 100
	composite := (30*clamp(p.StakeholderFeedback, 0, 100) +
		25*clamp(p.PeerReview, 0, 100) +
		25*clamp(p.SubordinateFeedback, 0, 100) +
		20*clamp(p.ClientSatisfaction, 0, 100)) / 100

	score := (60*base + 40*composite) / 100
	score -= 3 * float64(len(p.DiscrepanciesFound))
	score += verificationBonus(p)
	return clamp(score, 0, 100)
}

func verificationBonus(p PerformanceValidation) float64 {
	if len(p.ClaimedAchievements) == 0 {
		return 0
	}
	rate := math.Min(1, float64(len(p.ValidatedAchievements))/float64(len(p.ClaimedAchievements)))
	return 10 * rate
}

// PerformanceScore is the plain mean of performance record scores.
func PerformanceScore(records []PerformanceValidation) float64 {
	scores := make([]float64, len(records))
	for i, p := range records {
		scores[i] = PerformanceRecordScore(p)
	}
	return mean(scores)
}

// CompetencyRecordScore compares demonstrated against required level and
// blends in assessor confidence and future potential, minus 2 per gap.
func CompetencyRecordScore(c CompetencyValidation) float64 {
	required := math.Max(c.RequiredLevel, 1)
	level := math.Min(100, math.Max(c.DemonstratedLevel, 0)/required*100)

	score := (50*level + 30*clamp(c.AssessorConfidence, 0, 1)*100 + 20*clamp(c.FuturePotentialScore, 0, 100)) / 100
	score -= 2 * float64(len(c.CompetencyGaps))
	return clamp(score, 0, 100)
}

// CompetencyScore is the category-weighted mean of competency scores,
// rounded to an integer.
func CompetencyScore(records []CompetencyValidation) float64 {
	if len(records) == 0 {
		return 0
	}
	scores := make([]float64, len(records))
	weights := make([]float64, len(records))
	for i, c := range records {
		scores[i] = CompetencyRecordScore(c)
		weights[i] = c.Category.Weight()
	}
	return math.Round(weightedMean(scores, weights))
}

// CulturalFitRecordScore is the weighted sum of the five fit dimensions
// minus 5 per cultural red flag.
func CulturalFitRecordScore(c CulturalFitAssessment) float64 {
	score := (25*clamp(c.ValuesAlignment, 0, 100) +
		20*clamp(c.WorkStyleFit, 0, 100) +
		20*clamp(c.CommunicationFit, 0, 100) +
		20*clamp(c.LeadershipFit, 0, 100) +
		15*clamp(c.TeamIntegrationFit, 0, 100)) / 100
	score -= 5 * float64(len(c.CulturalRedFlags))
	return clamp(score, 0, 100)
}

// CulturalFitScore averages the cultural fit records. present reports
// whether the subject has any cultural_fit assessment at all; without one
// the neutral prior of 75 applies. An assessment with no records scores 0.
func CulturalFitScore(records []CulturalFitAssessment, present bool) float64 {
	if !present {
		return NeutralCulturalFit
	}
	scores := make([]float64, len(records))
	for i, c := range records {
		scores[i] = CulturalFitRecordScore(c)
	}
	return mean(scores)
}

// OverallScore combines the five category scores with the fixed category
// weights and rounds to the nearest integer.
func OverallScore(skills, references, performance, competency, culturalFit float64) int {
	return int(math.Round(WeightSkills*skills +
		WeightReferences*references +
		WeightPerformance*performance +
		WeightCompetency*competency +
		WeightCulturalFit*culturalFit))
}

// Confidence is the mean stored confidence level scaled by the share of
// assessments whose verification is completed.
func Confidence(assessments []Assessment) float64 {
	if len(assessments) == 0 {
		return 0
	}
	levels := make([]float64, len(assessments))
	completed := 0
	for i, a := range assessments {
		levels[i] = clamp(a.ConfidenceLevel, 0, 1)
		if a.VerificationStatus == StatusCompleted {
			completed++
		}
	}
	return clamp(mean(levels)*float64(completed)/float64(len(assessments)), 0, 1)
}

// VerificationCompleteness is the fraction of the four required assessment
// types with at least one completed assessment.
func VerificationCompleteness(assessments []Assessment) float64 {
	done := make(map[AssessmentType]bool, len(RequiredTypes))
	for _, a := range assessments {
		if a.VerificationStatus == StatusCompleted {
			done[a.Type] = true
		}
	}
	count := 0
	for _, t := range RequiredTypes {
		if done[t] {
			count++
		}
	}
	return float64(count) / float64(len(RequiredTypes))
}

// RedFlagCount tallies red flags recorded on the assessments themselves,
// not on their evidence records.
func RedFlagCount(assessments []Assessment) int {
	n := 0
	for _, a := range assessments {
		n += len(a.RedFlags)
	}
	return n
}

// Score computes the full vector for an evidence bundle. A bundle without
// assessments yields the zero vector.
func Score(ev *Evidence) ScoreVector {
	if ev == nil || len(ev.Assessments) == 0 {
		return ScoreVector{}
	}

	v := ScoreVector{
		Skills:                   SkillsScore(ev.Skills),
		References:               ReferencesScore(ev.References()),
		Performance:              PerformanceScore(ev.Performance),
		Competency:               CompetencyScore(ev.Competency),
		CulturalFit:              CulturalFitScore(ev.CulturalFit, ev.HasCulturalFit()),
		Confidence:               Confidence(ev.Assessments),
		RedFlagCount:             RedFlagCount(ev.Assessments),
		VerificationCompleteness: VerificationCompleteness(ev.Assessments),
	}
	v.Overall = OverallScore(v.Skills, v.References, v.Performance, v.Competency, v.CulturalFit)
	return v
}

func mean(xs []float64) float64 {
	m, err := stats.Mean(stats.Float64Data(xs))
	if err != nil {
		return 0 // empty input
	}
	return m
}

func weightedMean(xs, weights []float64) float64 {
	products := make([]float64, len(xs))
	for i := range xs {
		products[i] = xs[i] * weights[i]
	}
	num, err := stats.Sum(stats.Float64Data(products))
	if err != nil {
		return 0
	}
	den, err := stats.Sum(stats.Float64Data(weights))
	if err != nil || den == 0 {
		return 0
	}
	return num / den
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
