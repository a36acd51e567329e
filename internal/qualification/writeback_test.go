package qualification

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildUpdate(t *testing.T) {
	vector := ScoreVector{Overall: 64, Confidence: 0.42}
	result := ValidationResult{
		Confidence: 0.85,
		RedFlags: []Finding{
			{Code: CodeNegativeRehire, Message: "Reference ref-2 would not rehire the candidate"},
		},
		Recommendations: []string{"Conduct additional reference checks"},
	}

	u := BuildUpdate(vector, result)

	assert.Equal(t, 64, u.OverallScore)
	assert.Equal(t, 0.85, u.ConfidenceLevel)
	assert.Equal(t, []FlagItem{{Flag: "Reference ref-2 would not rehire the candidate", Severity: "medium"}}, u.RedFlags)
	assert.Equal(t, []RecommendationItem{{Recommendation: "Conduct additional reference checks", Priority: "medium"}}, u.Recommendations)
}

func TestBuildUpdate_EmptyListsEncodeAsArrays(t *testing.T) {
	u := BuildUpdate(ScoreVector{}, ValidationResult{})

	raw, err := json.Marshal(u)
	require.NoError(t, err)
	assert.JSONEq(t, `{"overallQualificationScore":0,"confidenceLevel":0,"redFlags":[],"recommendations":[]}`, string(raw))
}
