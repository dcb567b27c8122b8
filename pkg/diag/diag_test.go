// Copyright (c) 2024 Tigera, Inc. All rights reserved.

package diag

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositionString(t *testing.T) {
	p := Position{Offset: 12, Line: 2, Column: 3}
	assert.Equal(t, "2:3", p.String())
}

func TestDecodeErrorMessage(t *testing.T) {
	err := NewDecodeError(Position{Line: 4, Column: 9}, "unexpected token")
	assert.Equal(t, "unexpected token at 4:9", err.Error())

	errf := NewDecodeErrorf(Position{Line: 1, Column: 1}, "unexpected token %s", "AND")
	assert.Equal(t, "unexpected token AND at 1:1", errf.Error())
}

func TestJSONObjectPreservesInsertionOrder(t *testing.T) {
	obj := NewJSONObject().Set("gte", 1).Set("lt", 2).Set("time_zone", "UTC")

	data, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"gte":1,"lt":2,"time_zone":"UTC"}`, string(data))
}

func TestJSONObjectSetOverwritesInPlace(t *testing.T) {
	obj := NewJSONObject().Set("a", 1).Set("b", 2).Set("a", 3)

	assert.Equal(t, []string{"a", "b"}, obj.Keys())
	v, ok := obj.Get("a")
	require.True(t, ok)
	assert.Equal(t, 3, v)
}

func TestEmptyJSONObjectMarshalsToEmptyObject(t *testing.T) {
	data, err := json.Marshal(NewJSONObject())
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))

	var nilObj *JSONObject
	data, err = json.Marshal(nilObj)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}

func TestJSONObjectNestsCleanly(t *testing.T) {
	inner := NewJSONObject().Set("value", "GET")
	outer := NewJSONObject().Set("wildcard", NewJSONObject().Set("http.request.method", inner))

	data, err := json.Marshal(outer)
	require.NoError(t, err)
	assert.JSONEq(t, `{"wildcard":{"http.request.method":{"value":"GET"}}}`, string(data))
}
