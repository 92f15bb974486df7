package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_EqualityClause(t *testing.T) {
	expr, err := Parse([]string{"lang == en"})
	require.NoError(t, err)
	require.Len(t, expr, 1)

	assert.True(t, expr.Matches(map[string]any{"lang": "en"}))
	assert.False(t, expr.Matches(map[string]any{"lang": "fr"}))
}

func TestParse_Scenario6_LanguageFilter(t *testing.T) {
	expr, err := Parse([]string{"lang == en"})
	require.NoError(t, err)

	chunks := []map[string]any{
		{"lang": "en"},
		{"lang": "fr"},
		{"lang": "en"},
	}
	var matched int
	for _, c := range chunks {
		if expr.Matches(c) {
			matched++
		}
	}
	assert.Equal(t, 2, matched)
}

func TestMatches_MissingKeyEvaluatesFalse(t *testing.T) {
	expr, err := Parse([]string{"page >= 1"})
	require.NoError(t, err)
	assert.False(t, expr.Matches(map[string]any{"other": "value"}))
}

func TestMatches_NumericComparisons(t *testing.T) {
	expr, err := Parse([]string{"page >= 3"})
	require.NoError(t, err)

	assert.True(t, expr.Matches(map[string]any{"page": 3.0}))
	assert.True(t, expr.Matches(map[string]any{"page": 4.0}))
	assert.False(t, expr.Matches(map[string]any{"page": 2.0}))
}

func TestMatches_NotEqual(t *testing.T) {
	expr, err := Parse([]string{"lang != en"})
	require.NoError(t, err)
	assert.False(t, expr.Matches(map[string]any{"lang": "en"}))
	assert.True(t, expr.Matches(map[string]any{"lang": "fr"}))
}

func TestMatches_InOperator(t *testing.T) {
	expr, err := Parse([]string{"tag in [news, sports]"})
	require.NoError(t, err)

	assert.True(t, expr.Matches(map[string]any{"tag": "news"}))
	assert.True(t, expr.Matches(map[string]any{"tag": "sports"}))
	assert.False(t, expr.Matches(map[string]any{"tag": "weather"}))
}

func TestMatches_ConjunctionRequiresAllPredicates(t *testing.T) {
	expr, err := Parse([]string{"lang == en", "page >= 2"})
	require.NoError(t, err)

	assert.True(t, expr.Matches(map[string]any{"lang": "en", "page": 2.0}))
	assert.False(t, expr.Matches(map[string]any{"lang": "en", "page": 1.0}))
	assert.False(t, expr.Matches(map[string]any{"lang": "fr", "page": 2.0}))
}

func TestMatches_EmptyExpressionMatchesEverything(t *testing.T) {
	expr, err := Parse(nil)
	require.NoError(t, err)
	assert.True(t, expr.Matches(map[string]any{}))
	assert.True(t, expr.Matches(map[string]any{"anything": "goes"}))
}

func TestParse_MalformedClauseFails(t *testing.T) {
	_, err := Parse([]string{"lang =="})
	require.Error(t, err)
}

func TestParse_UnknownOperatorFails(t *testing.T) {
	_, err := Parse([]string{"lang ~= en"})
	require.Error(t, err)
}

func TestMatches_StringOrdering(t *testing.T) {
	expr, err := Parse([]string{"name < m"})
	require.NoError(t, err)
	assert.True(t, expr.Matches(map[string]any{"name": "alpha"}))
	assert.False(t, expr.Matches(map[string]any{"name": "zulu"}))
}
