package qualification

// DefaultWeight applies to any category or relationship missing from the
// weight tables below. Callers can detect that case with Known.
const DefaultWeight = 1.0

type SkillCategory string

const (
	SkillTechnical   SkillCategory = "technical"
	SkillLeadership  SkillCategory = "leadership"
	SkillStrategic   SkillCategory = "strategic"
	SkillFinancial   SkillCategory = "financial"
	SkillOperational SkillCategory = "operational"
)

var skillWeights = map[SkillCategory]float64{
	SkillLeadership:  1.3,
	SkillStrategic:   1.2,
	SkillFinancial:   1.1,
	SkillOperational: 1.0,
	SkillTechnical:   0.9,
}

func ParseSkillCategory(s string) SkillCategory {
	return SkillCategory(normalize(s))
}

func (c SkillCategory) Known() bool {
	_, ok := skillWeights[ParseSkillCategory(string(c))]
	return ok
}

func (c SkillCategory) Weight() float64 {
	if w, ok := skillWeights[ParseSkillCategory(string(c))]; ok {
		return w
	}
	return DefaultWeight
}

type CompetencyCategory string

const (
	CompetencyLeadership CompetencyCategory = "leadership"
	CompetencyStrategic  CompetencyCategory = "strategic"
	CompetencyExecution  CompetencyCategory = "execution"
	CompetencyFinancial  CompetencyCategory = "financial"
	CompetencyTechnical  CompetencyCategory = "technical"
)

var competencyWeights = map[CompetencyCategory]float64{
	CompetencyLeadership: 1.3,
	CompetencyStrategic:  1.2,
	CompetencyExecution:  1.1,
	CompetencyFinancial:  1.0,
	CompetencyTechnical:  0.9,
}

func ParseCompetencyCategory(s string) CompetencyCategory {
	return CompetencyCategory(normalize(s))
}

func (c CompetencyCategory) Known() bool {
	_, ok := competencyWeights[ParseCompetencyCategory(string(c))]
	return ok
}

func (c CompetencyCategory) Weight() float64 {
	if w, ok := competencyWeights[ParseCompetencyCategory(string(c))]; ok {
		return w
	}
	return DefaultWeight
}

// Relationship is how a reference knows the candidate.
type Relationship string

const (
	RelationshipDirectManager Relationship = "direct_manager"
	RelationshipBoardMember   Relationship = "board_member"
	RelationshipClient        Relationship = "client"
	RelationshipPeer          Relationship = "peer"
	RelationshipSubordinate   Relationship = "subordinate"
)

var relationshipWeights = map[Relationship]float64{
	RelationshipDirectManager: 1.2,
	RelationshipBoardMember:   1.1,
	RelationshipClient:        1.0,
	RelationshipPeer:          0.9,
	RelationshipSubordinate:   0.8,
}

func ParseRelationship(s string) Relationship {
	return Relationship(normalize(s))
}

func (r Relationship) Known() bool {
	_, ok := relationshipWeights[ParseRelationship(string(r))]
	return ok
}

func (r Relationship) Weight() float64 {
	if w, ok := relationshipWeights[ParseRelationship(string(r))]; ok {
		return w
	}
	return DefaultWeight
}

// Category weights of the overall score. They sum to 1.
const (
	WeightSkills      = 0.25
	WeightReferences  = 0.20
	WeightPerformance = 0.25
	WeightCompetency  = 0.20
	WeightCulturalFit = 0.10
)

// NeutralCulturalFit is reported when a subject has assessments but none of
// type cultural_fit.
const NeutralCulturalFit = 75.0
