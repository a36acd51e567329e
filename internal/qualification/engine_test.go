package qualification

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"

	"dd-qualification/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryStore is an in-memory EvidenceStore that applies updates to its
// assessments so repeated refreshes observe their own writes.
type memoryStore struct {
	mu          sync.Mutex
	assessments map[string][]Assessment
	skills      map[string][]SkillValidation
	references  map[string][]ReferenceCheck
	performance map[string][]PerformanceValidation
	competency  map[string][]CompetencyValidation
	culturalFit map[string][]CulturalFitAssessment

	readErr   error
	failRows  map[string]error
	updates   map[string][]AssessmentUpdate
	readCalls int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		assessments: map[string][]Assessment{},
		skills:      map[string][]SkillValidation{},
		references:  map[string][]ReferenceCheck{},
		performance: map[string][]PerformanceValidation{},
		competency:  map[string][]CompetencyValidation{},
		culturalFit: map[string][]CulturalFitAssessment{},
		failRows:    map[string]error{},
		updates:     map[string][]AssessmentUpdate{},
	}
}

func (m *memoryStore) AssessmentsBySubject(_ context.Context, subjectID string) ([]Assessment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readCalls++
	if m.readErr != nil {
		return nil, m.readErr
	}
	out := make([]Assessment, len(m.assessments[subjectID]))
	copy(out, m.assessments[subjectID])
	return out, nil
}

func (m *memoryStore) SkillsByAssessment(_ context.Context, id string) ([]SkillValidation, error) {
	return m.skills[id], nil
}

func (m *memoryStore) ReferencesByAssessment(_ context.Context, id string) ([]ReferenceCheck, error) {
	return m.references[id], nil
}

func (m *memoryStore) PerformanceByAssessment(_ context.Context, id string) ([]PerformanceValidation, error) {
	return m.performance[id], nil
}

func (m *memoryStore) CompetencyByAssessment(_ context.Context, id string) ([]CompetencyValidation, error) {
	return m.competency[id], nil
}

func (m *memoryStore) CulturalFitByAssessment(_ context.Context, id string) ([]CulturalFitAssessment, error) {
	return m.culturalFit[id], nil
}

func (m *memoryStore) UpdateAssessment(_ context.Context, id string, u AssessmentUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failRows[id]; err != nil {
		return err
	}
	m.updates[id] = append(m.updates[id], u)
	for subject, list := range m.assessments {
		for i := range list {
			if list[i].ID != id {
				continue
			}
			list[i].OverallScore = float64(u.OverallScore)
			list[i].ConfidenceLevel = u.ConfidenceLevel
			list[i].RedFlags = make([]string, len(u.RedFlags))
			for j, f := range u.RedFlags {
				list[i].RedFlags[j] = f.Flag
			}
			list[i].Recommendations = make([]string, len(u.Recommendations))
			for j, r := range u.Recommendations {
				list[i].Recommendations[j] = r.Recommendation
			}
			m.assessments[subject] = list
		}
	}
	return nil
}

// seedSubject stores a fully assessed candidate.
func seedSubject(m *memoryStore, subjectID string) {
	m.assessments[subjectID] = []Assessment{
		{ID: "as-skills", SubjectID: subjectID, Type: TypeSkills, VerificationStatus: StatusCompleted, ConfidenceLevel: 0.9},
		{ID: "as-refs", SubjectID: subjectID, Type: TypeReferences, VerificationStatus: StatusCompleted, ConfidenceLevel: 0.8,
			RedFlags: []string{"intake: gap in employment history"}},
		{ID: "as-perf", SubjectID: subjectID, Type: TypePerformance, VerificationStatus: StatusInProgress, ConfidenceLevel: 0.7},
		{ID: "as-comp", SubjectID: subjectID, Type: "Competency", VerificationStatus: "COMPLETED", ConfidenceLevel: 0.6},
	}
	m.skills["as-skills"] = []SkillValidation{{
		ID: "sk-1", AssessmentID: "as-skills", Category: SkillTechnical,
		ClaimedProficiency: 90, ValidatedProficiency: 60, EvidenceQuality: 80, IndustryRelevance: 90,
	}}
	m.references["as-refs"] = []ReferenceCheck{
		{ID: "r1", Status: ResponseCompleted, OverallRating: 90, IntegrityRating: 95, PerformanceRating: 85, WouldRehire: RehireYes, Relationship: RelationshipPeer},
		{ID: "r2", Status: ResponseCompleted, OverallRating: 90, IntegrityRating: 95, PerformanceRating: 85, WouldRehire: RehireYes, Relationship: RelationshipPeer},
		{ID: "r3", Status: ResponseCompleted, OverallRating: 90, IntegrityRating: 95, PerformanceRating: 85, WouldRehire: RehireYes, Relationship: RelationshipPeer},
		{ID: "r4", Status: ResponsePending, WouldRehire: RehireNo, RedFlags: []string{"ignored"}},
	}
	m.performance["as-perf"] = []PerformanceValidation{{
		ID: "pv-1", ValidationConfidence: 0.8,
		StakeholderFeedback: 80, PeerReview: 70, SubordinateFeedback: 60, ClientSatisfaction: 90,
		DiscrepanciesFound:  []string{"revenue overstated"},
		ClaimedAchievements: []string{"a", "b", "c", "d"}, ValidatedAchievements: []string{"a", "b"},
	}}
	m.competency["as-comp"] = []CompetencyValidation{{
		ID: "cv-1", Category: "Leadership", RequiredLevel: 4, DemonstratedLevel: 4, AssessorConfidence: 0.5, FuturePotentialScore: 50,
	}}
}

func newTestEngine(t *testing.T, store EvidenceStore) *Engine {
	return NewEngine(store, logger.NewTestLogger(t))
}

func TestEngine_ComputeScoreVector(t *testing.T) {
	store := newMemoryStore()
	seedSubject(store, "tm-1")

	v, err := newTestEngine(t, store).ComputeScoreVector(context.Background(), "tm-1")
	require.NoError(t, err)

	assert.Equal(t, 55.0, v.Skills)
	assert.InDelta(t, 85.5, v.References, 1e-9)
	assert.InDelta(t, 78.6, v.Performance, 1e-9)
	assert.Equal(t, 75.0, v.Competency)
	assert.Equal(t, NeutralCulturalFit, v.CulturalFit)
	// 13.75 + 17.1 + 19.65 + 15 + 7.5 = 73
	assert.Equal(t, 73, v.Overall)
	// mean(0.9, 0.8, 0.7, 0.6) * 3/4
	assert.InDelta(t, 0.5625, v.Confidence, 1e-9)
	assert.InDelta(t, 0.75, v.VerificationCompleteness, 1e-9)
	assert.Equal(t, 1, v.RedFlagCount)
	assert.Equal(t, "high", v.Level())

	assert.Empty(t, store.updates, "scoring must not write")
}

func TestEngine_EmptySubject(t *testing.T) {
	store := newMemoryStore()
	engine := newTestEngine(t, store)

	v, err := engine.ComputeScoreVector(context.Background(), "tm-unknown")
	require.NoError(t, err)
	assert.Equal(t, ScoreVector{}, v)

	result, err := engine.RefreshAndPersist(context.Background(), "tm-unknown")
	require.NoError(t, err)
	assert.Empty(t, result.Updated)
	assert.False(t, result.Validation.IsValid)
}

func TestEngine_StoreErrorPropagatesUnchanged(t *testing.T) {
	storeErr := stderrors.New("connection refused")
	store := newMemoryStore()
	store.readErr = storeErr
	engine := newTestEngine(t, store)

	_, err := engine.ComputeScoreVector(context.Background(), "tm-1")
	assert.Same(t, storeErr, err)

	_, err = engine.Validate(context.Background(), "tm-1")
	assert.Same(t, storeErr, err)

	result, err := engine.RefreshAndPersist(context.Background(), "tm-1")
	assert.Same(t, storeErr, err)
	assert.Nil(t, result)
}

func TestEngine_Validate(t *testing.T) {
	store := newMemoryStore()
	seedSubject(store, "tm-1")

	r, err := newTestEngine(t, store).Validate(context.Background(), "tm-1")
	require.NoError(t, err)

	// skill variance 30 -> -5; everything else passes
	assert.Equal(t, 95, r.Score)
	assert.True(t, r.IsValid)
	assert.Equal(t, []string{CodeSkillVariance}, findingCodes(r.Discrepancies))
	assert.Empty(t, r.RedFlags)
	assert.Empty(t, store.updates)
}

func TestEngine_RefreshAndPersist_BroadcastsSamePayload(t *testing.T) {
	store := newMemoryStore()
	seedSubject(store, "tm-1")
	store.references["as-refs"][0].RedFlags = []string{"missed covenant"}

	result, err := newTestEngine(t, store).RefreshAndPersist(context.Background(), "tm-1")
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.ElementsMatch(t, []string{"as-skills", "as-refs", "as-perf", "as-comp"}, result.Updated)
	assert.Empty(t, result.Failed)
	assert.Equal(t, 1, store.readCalls, "score and verdict come from one evidence read")

	expected := result.Update
	assert.Equal(t, result.Vector.Overall, expected.OverallScore)
	assert.Equal(t, result.Validation.Confidence, expected.ConfidenceLevel)
	require.Len(t, expected.RedFlags, 1)
	assert.Equal(t, FlagItem{Flag: "Reference r1: missed covenant", Severity: "medium"}, expected.RedFlags[0])
	for _, rec := range expected.Recommendations {
		assert.Equal(t, "medium", rec.Priority)
	}

	for _, id := range result.Updated {
		require.Len(t, store.updates[id], 1)
		assert.Equal(t, expected, store.updates[id][0])
	}
}

func TestEngine_RefreshAndPersist_Idempotent(t *testing.T) {
	store := newMemoryStore()
	seedSubject(store, "tm-1")
	store.skills["as-skills"][0].EvidenceQuality = 40
	engine := newTestEngine(t, store)

	runs := make([]*RefreshResult, 3)
	for i := range runs {
		r, err := engine.RefreshAndPersist(context.Background(), "tm-1")
		require.NoError(t, err)
		runs[i] = r
	}
	first, second, third := runs[0], runs[1], runs[2]

	// The written payload depends on evidence only, so it never moves.
	assert.Equal(t, first.Update, second.Update)
	assert.Equal(t, second.Update, third.Update)
	assert.Equal(t, first.Validation, third.Validation)
	assert.NotEqual(t, first.RunID, second.RunID)

	// Confidence and redFlagCount read the columns the first write-back
	// overwrote; they move once and then hold.
	assert.InDelta(t, 0.5625, first.Vector.Confidence, 1e-9)
	assert.Equal(t, 1, first.Vector.RedFlagCount)
	assert.InDelta(t, first.Validation.Confidence*0.75, second.Vector.Confidence, 1e-9)
	assert.Equal(t, 4*len(first.Validation.RedFlags), second.Vector.RedFlagCount)
	assert.Equal(t, first.Vector.Overall, second.Vector.Overall)
	assert.Equal(t, second.Vector, third.Vector)

	for id, updates := range store.updates {
		require.Len(t, updates, 3, id)
		assert.Equal(t, updates[0], updates[1], id)
		assert.Equal(t, updates[1], updates[2], id)
	}
}

func TestEngine_RefreshAndPersist_PartialFailure(t *testing.T) {
	store := newMemoryStore()
	seedSubject(store, "tm-1")
	rowErr := stderrors.New("deadlock detected")
	store.failRows["as-refs"] = rowErr
	store.failRows["as-comp"] = rowErr

	result, err := newTestEngine(t, store).RefreshAndPersist(context.Background(), "tm-1")
	require.Error(t, err)
	require.NotNil(t, result)

	var wbErr *WritebackError
	require.True(t, stderrors.As(err, &wbErr))
	assert.Equal(t, 4, wbErr.Total)
	assert.Len(t, wbErr.Errors(), 2)
	assert.Contains(t, err.Error(), "write-back failed for 2 of 4 assessments")

	assert.ElementsMatch(t, []string{"as-skills", "as-perf"}, result.Updated)
	require.Len(t, result.Failed, 2)
	assert.Equal(t, "as-refs", result.Failed[0].AssessmentID)
	assert.Equal(t, "deadlock detected", result.Failed[0].Error)
	assert.Equal(t, "as-comp", result.Failed[1].AssessmentID)

	assert.Len(t, store.updates["as-skills"], 1)
	assert.Len(t, store.updates["as-perf"], 1)
}

func TestEngine_UnknownAssessmentTypeCountsTowardConfidenceOnly(t *testing.T) {
	store := newMemoryStore()
	store.assessments["tm-2"] = []Assessment{
		{ID: "as-x", Type: "background_check", VerificationStatus: StatusCompleted, ConfidenceLevel: 0.4},
	}

	v, err := newTestEngine(t, store).ComputeScoreVector(context.Background(), "tm-2")
	require.NoError(t, err)
	assert.InDelta(t, 0.4, v.Confidence, 1e-9)
	assert.Equal(t, 0.0, v.VerificationCompleteness)
	assert.Equal(t, NeutralCulturalFit, v.CulturalFit)
	assert.Equal(t, 8, v.Overall) // round(7.5)
}
