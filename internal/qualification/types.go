package qualification

import "strings"

// AssessmentType identifies the evidence family an assessment groups.
type AssessmentType string

const (
	TypeSkills      AssessmentType = "skills"
	TypeReferences  AssessmentType = "references"
	TypePerformance AssessmentType = "performance"
	TypeCompetency  AssessmentType = "competency"
	TypeCulturalFit AssessmentType = "cultural_fit"
)

// RequiredTypes are the assessment types counted by verification
// completeness. Cultural fit is optional.
var RequiredTypes = []AssessmentType{TypeSkills, TypeReferences, TypePerformance, TypeCompetency}

// ParseAssessmentType normalizes a stored type string.
func ParseAssessmentType(s string) AssessmentType {
	return AssessmentType(normalize(s))
}

type VerificationStatus string

const (
	StatusPending    VerificationStatus = "pending"
	StatusInProgress VerificationStatus = "in_progress"
	StatusCompleted  VerificationStatus = "completed"
	StatusFailed     VerificationStatus = "failed"
)

// Assessment is one evaluation pass of one evidence family for a subject.
type Assessment struct {
	ID                         string             `json:"id"`
	SubjectID                  string             `json:"subjectId"`
	Type                       AssessmentType     `json:"assessmentType"`
	OverallScore               float64            `json:"overallQualificationScore"`
	VerificationStatus         VerificationStatus `json:"verificationStatus"`
	ConfidenceLevel            float64            `json:"confidenceLevel"`
	Findings                   []string           `json:"findings,omitempty"`
	Recommendations            []string           `json:"recommendations,omitempty"`
	RedFlags                   []string           `json:"redFlags,omitempty"`
	ValidationEvidence         []string           `json:"validationEvidence,omitempty"`
	ExternalValidationRequired bool               `json:"externalValidationRequired"`
}

// SkillValidation is one claimed skill under a skills assessment.
type SkillValidation struct {
	ID                   string        `json:"id"`
	AssessmentID         string        `json:"assessmentId"`
	SkillName            string        `json:"skillName"`
	Category             SkillCategory `json:"skillCategory"`
	ClaimedProficiency   float64       `json:"claimedProficiency"`
	ValidatedProficiency float64       `json:"validatedProficiency"`
	EvidenceQuality      float64       `json:"evidenceQuality"`
	IndustryRelevance    float64       `json:"industryRelevance"`
}

type ResponseStatus string

const (
	ResponsePending     ResponseStatus = "pending"
	ResponseCompleted   ResponseStatus = "completed"
	ResponseDeclined    ResponseStatus = "declined"
	ResponseUnreachable ResponseStatus = "unreachable"
)

// Rehire is the tri-state would-rehire answer of a reference.
type Rehire string

const (
	RehireYes     Rehire = "true"
	RehireNo      Rehire = "false"
	RehireUnknown Rehire = "unknown"
)

// ParseRehire accepts the spellings stored by intake forms.
func ParseRehire(s string) Rehire {
	switch normalize(s) {
	case "true", "yes", "y", "1":
		return RehireYes
	case "false", "no", "n", "0":
		return RehireNo
	default:
		return RehireUnknown
	}
}

// ReferenceCheck is one reference under a references assessment.
type ReferenceCheck struct {
	ID                string         `json:"id"`
	AssessmentID      string         `json:"assessmentId"`
	ReferenceName     string         `json:"referenceName"`
	Status            ResponseStatus `json:"responseStatus"`
	OverallRating     float64        `json:"overallRating"`
	IntegrityRating   float64        `json:"integrityRating"`
	PerformanceRating float64        `json:"performanceRating"`
	WouldRehire       Rehire         `json:"wouldRehire"`
	Relationship      Relationship   `json:"relationshipToCandidate"`
	RedFlags          []string       `json:"redFlags,omitempty"`
}

// Completed reports whether the reference counts toward scoring.
func (r ReferenceCheck) Completed() bool {
	return ResponseStatus(normalize(string(r.Status))) == ResponseCompleted
}

// PerformanceValidation is one historical role's validated track record.
type PerformanceValidation struct {
	ID                    string   `json:"id"`
	AssessmentID          string   `json:"assessmentId"`
	Company               string   `json:"company"`
	Role                  string   `json:"role"`
	ValidationConfidence  float64  `json:"validationConfidence"`
	StakeholderFeedback   float64  `json:"stakeholderFeedback"`
	PeerReview            float64  `json:"peerReview"`
	SubordinateFeedback   float64  `json:"subordinateFeedback"`
	ClientSatisfaction    float64  `json:"clientSatisfaction"`
	DiscrepanciesFound    []string `json:"discrepanciesFound,omitempty"`
	ClaimedAchievements   []string `json:"claimedAchievements,omitempty"`
	ValidatedAchievements []string `json:"validatedAchievements,omitempty"`
}

// CompetencyValidation is one behavioural competency rating.
type CompetencyValidation struct {
	ID                   string             `json:"id"`
	AssessmentID         string             `json:"assessmentId"`
	CompetencyName       string             `json:"competencyName"`
	Category             CompetencyCategory `json:"competencyCategory"`
	RequiredLevel        float64            `json:"requiredLevel"`
	DemonstratedLevel    float64            `json:"demonstratedLevel"`
	AssessorConfidence   float64            `json:"assessorConfidence"`
	FuturePotentialScore float64            `json:"futurePotentialScore"`
	CompetencyGaps       []string           `json:"competencyGaps,omitempty"`
}

// CulturalFitAssessment holds the five cultural sub-scores.
type CulturalFitAssessment struct {
	ID                 string   `json:"id"`
	AssessmentID       string   `json:"assessmentId"`
	ValuesAlignment    float64  `json:"valuesAlignment"`
	WorkStyleFit       float64  `json:"workStyleFit"`
	CommunicationFit   float64  `json:"communicationFit"`
	LeadershipFit      float64  `json:"leadershipFit"`
	TeamIntegrationFit float64  `json:"teamIntegrationFit"`
	CulturalRedFlags   []string `json:"culturalRedFlags,omitempty"`
}

// ScoreVector is the full scoring output for one subject.
type ScoreVector struct {
	Overall                  int     `json:"overall"`
	Skills                   float64 `json:"skills"`
	References               float64 `json:"references"`
	Performance              float64 `json:"performance"`
	Competency               float64 `json:"competency"`
	CulturalFit              float64 `json:"culturalFit"`
	Confidence               float64 `json:"confidence"`
	RedFlagCount             int     `json:"redFlagCount"`
	VerificationCompleteness float64 `json:"verificationCompleteness"`
}

// Level buckets the overall score.
func (v ScoreVector) Level() string {
	return ClassifyLevel(v.Overall)
}

// ClassifyLevel maps an overall score onto excellent/high/medium/low.
func ClassifyLevel(overall int) string {
	switch {
	case overall >= 81:
		return "excellent"
	case overall >= 61:
		return "high"
	case overall >= 41:
		return "medium"
	default:
		return "low"
	}
}

// Finding is a discrepancy or red flag raised by the validator.
type Finding struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	AssessmentID string `json:"assessmentId,omitempty"`
	RecordID     string `json:"recordId,omitempty"`
}

// ValidationResult is the validator's independent verdict.
type ValidationResult struct {
	IsValid         bool      `json:"isValid"`
	Score           int       `json:"score"`
	Confidence      float64   `json:"confidence"`
	Discrepancies   []Finding `json:"discrepancies"`
	RedFlags        []Finding `json:"redFlags"`
	Recommendations []string  `json:"recommendations"`
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
