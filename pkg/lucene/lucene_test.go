// Copyright (c) 2024 Tigera, Inc. All rights reserved.

package lucene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomas-touhey/kaquel/pkg/query"
)

func TestParseEmptyIsMatchAll(t *testing.T) {
	q, err := Parse("   ")
	require.NoError(t, err)
	assert.Equal(t, query.MatchAll{}, q)
}

func TestParseValidQueriesFallBackToQueryString(t *testing.T) {
	valid := []string{
		"status:active",
		`title:"quick brown fox"`,
		"price:[10 TO 100]",
		"count:{1 TO 5}",
		"name:jo* AND age:[18 TO *]",
		"quick~ brown~0.8",
		"+required -prohibited term",
		"field:value^2.0",
		"a AND (b OR c) AND NOT d",
		"/joh?n(ath[oa]n)/",
	}

	for _, v := range valid {
		q, err := Parse(v)
		require.NoErrorf(t, err, "query %q should be structurally valid", v)
		assert.Equal(t, query.QueryString{Query: v}, q)
	}
}

func TestParseRejectsUnbalancedBrackets(t *testing.T) {
	invalid := []string{
		"price:[10 TO 100",
		"price:10 TO 100]",
		"(a AND b",
		"a AND b)",
		`"unterminated`,
		"/unterminated regex",
	}

	for _, v := range invalid {
		_, err := Parse(v)
		assert.Errorf(t, err, "query %q should be rejected", v)
	}
}

func TestParseRejectsDanglingOperators(t *testing.T) {
	invalid := []string{
		"AND term",
		"term AND",
		"term AND OR other",
		"+",
		"-",
	}

	for _, v := range invalid {
		_, err := Parse(v)
		assert.Errorf(t, err, "query %q should be rejected", v)
	}
}

func TestParseRejectsLeadingWildcardsWhenDisabled(t *testing.T) {
	_, err := Parse("*foo", WithAllowLeadingWildcards(false))
	assert.Error(t, err)

	_, err = Parse("foo*", WithAllowLeadingWildcards(false))
	assert.NoError(t, err)
}
