// Copyright (c) 2024 Tigera, Inc. All rights reserved.

package kaquel

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomas-touhey/kaquel/pkg/kql"
)

func TestParseKQL(t *testing.T) {
	q, err := ParseKQL("http.request.method: GET")
	require.NoError(t, err)

	v, err := q.Source()
	require.NoError(t, err)
	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"match":{"http.request.method":"GET"}}`, string(data))
}

func TestParseKQLWithOptions(t *testing.T) {
	_, err := ParseKQLWithOptions("a: *foo", kql.WithAllowLeadingWildcards(false))
	assert.Error(t, err)
}

func TestParseLucene(t *testing.T) {
	q, err := ParseLucene("status:active AND NOT archived:true")
	require.NoError(t, err)

	v, err := q.Source()
	require.NoError(t, err)
	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"query_string":{"query":"status:active AND NOT archived:true"}}`, string(data))
}

func TestRenderAsKQL(t *testing.T) {
	q, err := ParseKQL("a: 1 and b: 2")
	require.NoError(t, err)

	s, err := RenderAsKQL(q)
	require.NoError(t, err)
	assert.Equal(t, "a: 1 and b: 2", s)
}

func TestToElasticQuerySourceMatchesQuerySource(t *testing.T) {
	q, err := ParseKQL("http.request.method: GET")
	require.NoError(t, err)

	eq := ToElasticQuery(q)

	qSource, err := q.Source()
	require.NoError(t, err)
	eqSource, err := eq.Source()
	require.NoError(t, err)

	qData, err := json.Marshal(qSource)
	require.NoError(t, err)
	eqData, err := json.Marshal(eqSource)
	require.NoError(t, err)
	assert.Equal(t, string(qData), string(eqData))
}

func TestDecodeESQueryJSONThenRenderAsKQL(t *testing.T) {
	q, err := DecodeESQueryJSON([]byte(`{"match":{"http.request.method":"GET"}}`))
	require.NoError(t, err)

	s, err := RenderAsKQL(q)
	require.NoError(t, err)
	assert.Equal(t, "http.request.method: GET", s)
}
