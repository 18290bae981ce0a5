package legco

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolByName(t *testing.T) {
	def, ok := ToolByName(ToolBills)
	require.True(t, ok)
	assert.Equal(t, ToolBills, def.Name)

	_, ok = ToolByName("search_nothing")
	assert.False(t, ok)
}

func TestValidateParamsDefaults(t *testing.T) {
	def, _ := ToolByName(ToolQuestions)
	clean, err := ValidateParams(def, map[string]any{})
	require.NoError(t, err)

	assert.Equal(t, "oral", clean["question_type"])
	assert.Equal(t, 100, clean["top"])
	assert.Equal(t, 0, clean["skip"])
	assert.Equal(t, "json", clean["format"])
}

func TestValidateParamsDropsUnknownArguments(t *testing.T) {
	def, _ := ToolByName(ToolBills)
	clean, err := ValidateParams(def, map[string]any{"surprise": "value"})
	require.NoError(t, err)
	assert.NotContains(t, clean, "surprise")
}

func TestValidateParamsRejectsBadDate(t *testing.T) {
	def, _ := ToolByName(ToolVotingResults)
	_, err := ValidateParams(def, map[string]any{"start_date": "2024-02-30"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "start_date", verr.Field)
}

func TestValidateParamsRejectsBadEnum(t *testing.T) {
	def, _ := ToolByName(ToolQuestions)
	_, err := ValidateParams(def, map[string]any{"question_type": "shouted"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "question_type", verr.Field)
}

func TestValidateParamsIntRange(t *testing.T) {
	def, _ := ToolByName(ToolVotingResults)

	// JSON numbers arrive as float64; whole values normalize to int.
	clean, err := ValidateParams(def, map[string]any{"top": float64(50)})
	require.NoError(t, err)
	assert.Equal(t, 50, clean["top"])

	_, err = ValidateParams(def, map[string]any{"top": 0})
	assert.Error(t, err)

	_, err = ValidateParams(def, map[string]any{"top": 1001})
	assert.Error(t, err)

	_, err = ValidateParams(def, map[string]any{"top": 1.5})
	assert.Error(t, err)
}

func TestValidateParamsSanitizesText(t *testing.T) {
	def, _ := ToolByName(ToolQuestions)
	clean, err := ValidateParams(def, map[string]any{"member_name": "O'Brien; DROP"})
	require.NoError(t, err)
	assert.Equal(t, "O''Brien DROP", clean["member_name"])

	// Text that sanitizes to nothing is dropped entirely.
	clean, err = ValidateParams(def, map[string]any{"member_name": ";;;"})
	require.NoError(t, err)
	assert.NotContains(t, clean, "member_name")
}

func TestResolveEndpoint(t *testing.T) {
	tests := []struct {
		tool     string
		params   map[string]any
		endpoint string
	}{
		{ToolVotingResults, nil, EndpointVoting},
		{ToolBills, nil, EndpointBills},
		{ToolQuestions, map[string]any{"question_type": "oral"}, EndpointQuestionsOral},
		{ToolQuestions, map[string]any{"question_type": "written"}, EndpointQuestionsWritten},
		{ToolHansard, map[string]any{"hansard_type": "hansard"}, EndpointHansard},
		{ToolHansard, map[string]any{"hansard_type": "questions"}, EndpointHansardQuestions},
		{ToolHansard, map[string]any{"hansard_type": "bills"}, EndpointHansardBills},
		{ToolHansard, map[string]any{"hansard_type": "motions"}, EndpointHansardMotions},
		{ToolHansard, map[string]any{"hansard_type": "voting"}, EndpointHansardVoting},
	}
	for _, tc := range tests {
		endpoint, err := ResolveEndpoint(tc.tool, tc.params)
		require.NoError(t, err)
		assert.Equal(t, tc.endpoint, endpoint)
	}

	_, err := ResolveEndpoint("search_nothing", nil)
	assert.Error(t, err)
}
