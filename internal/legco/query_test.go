package legco

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildQueryPagingOnly(t *testing.T) {
	query, err := BuildQuery(EndpointVoting, map[string]any{
		"top":    100,
		"skip":   0,
		"format": "json",
	})
	require.NoError(t, err)

	assert.Equal(t, "100", query.Get("$top"))
	assert.Equal(t, "0", query.Get("$skip"))
	assert.Equal(t, "allpages", query.Get("$inlinecount"))
	assert.False(t, query.Has("$filter"))
	// json is the upstream default; only xml is requested explicitly.
	assert.False(t, query.Has("$format"))
}

func TestBuildQueryXMLFormat(t *testing.T) {
	query, err := BuildQuery(EndpointVoting, map[string]any{"format": "xml"})
	require.NoError(t, err)
	assert.Equal(t, "xml", query.Get("$format"))
}

func TestBuildQueryMultiWordKeywords(t *testing.T) {
	query, err := BuildQuery(EndpointQuestionsOral, map[string]any{
		"subject_keywords": "housing policy",
	})
	require.NoError(t, err)
	assert.Equal(t,
		"(substringof('housing', SubjectName) and substringof('policy', SubjectName))",
		query.Get("$filter"))
}

func TestBuildQuerySingleWordKeyword(t *testing.T) {
	query, err := BuildQuery(EndpointQuestionsOral, map[string]any{
		"subject_keywords": "housing",
	})
	require.NoError(t, err)
	assert.Equal(t, "substringof('housing', SubjectName)", query.Get("$filter"))
}

func TestBuildQueryVotingClauses(t *testing.T) {
	query, err := BuildQuery(EndpointVoting, map[string]any{
		"meeting_type": "Council Meeting",
		"start_date":   "2024-01-01",
		"end_date":     "2024-06-30",
		"term_no":      7,
	})
	require.NoError(t, err)
	assert.Equal(t,
		"type eq 'Council Meeting' and start_date ge datetime'2024-01-01'"+
			" and start_date le datetime'2024-06-30' and term_no eq 7",
		query.Get("$filter"))
}

func TestBuildQueryBillsYearClause(t *testing.T) {
	query, err := BuildQuery(EndpointBills, map[string]any{"gazette_year": 2021})
	require.NoError(t, err)
	assert.Equal(t, "year(bill_gazette_date) eq 2021", query.Get("$filter"))
}

func TestBuildQueryHansardQuestionsStaticClause(t *testing.T) {
	query, err := BuildQuery(EndpointHansardQuestions, map[string]any{
		"question_type": "Oral",
	})
	require.NoError(t, err)
	assert.Equal(t,
		"QuestionType eq 'Oral' and HansardType eq 'English'",
		query.Get("$filter"))
}

func TestBuildQueryDropsUnmappedParams(t *testing.T) {
	// member_name has no field on the bills collection; it must not leak
	// into the filter.
	query, err := BuildQuery(EndpointBills, map[string]any{
		"member_name":    "Chan",
		"title_keywords": "transport",
	})
	require.NoError(t, err)
	assert.Equal(t, "substringof('transport', bill_title_eng)", query.Get("$filter"))
}

func TestBuildQueryUnknownEndpoint(t *testing.T) {
	_, err := BuildQuery("nonexistent", nil)
	require.Error(t, err)
	var qbe *QueryBuildError
	assert.ErrorAs(t, err, &qbe)
	assert.Equal(t, "nonexistent", qbe.Endpoint)
}
