// Copyright (c) 2024 Tigera, Inc. All rights reserved.

package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomas-touhey/kaquel/pkg/diag"
)

func TestReaderAdvanceTracksLineAndColumn(t *testing.T) {
	r := New("ab\ncd")

	c, ok := r.Advance()
	require.True(t, ok)
	assert.Equal(t, 'a', c)
	assert.Equal(t, diag.Position{Offset: 1, Line: 1, Column: 2}, r.Position())

	r.Advance() // 'b'
	c, ok = r.Advance()
	require.True(t, ok)
	assert.Equal(t, '\n', c)
	assert.Equal(t, diag.Position{Offset: 3, Line: 2, Column: 1}, r.Position())
}

func TestReaderPeekDoesNotAdvance(t *testing.T) {
	r := New("xyz")

	c, ok := r.Peek()
	require.True(t, ok)
	assert.Equal(t, 'x', c)
	assert.Equal(t, uint32(0), r.Position().Offset)

	c, ok = r.PeekN(2)
	require.True(t, ok)
	assert.Equal(t, 'z', c)
}

func TestReaderMarkAndRestore(t *testing.T) {
	r := New("hello world")

	r.Advance()
	r.Advance()
	mark := r.Mark()

	r.Advance()
	r.Advance()
	r.Advance()

	r.Restore(mark)
	c, _ := r.Peek()
	assert.Equal(t, 'l', c)
}

func TestReaderSkipWhitespace(t *testing.T) {
	r := New("   \t\nfoo")
	r.SkipWhitespace()
	assert.Equal(t, "foo", r.Rest())
}

func TestReaderEOF(t *testing.T) {
	r := New("a")
	assert.False(t, r.EOF())
	r.Advance()
	assert.True(t, r.EOF())

	_, ok := r.Advance()
	assert.False(t, ok)
	_, ok = r.Peek()
	assert.False(t, ok)
}

func TestReaderHandlesUTF8(t *testing.T) {
	r := New("café")
	for i := 0; i < 3; i++ {
		r.Advance()
	}
	c, ok := r.Advance()
	require.True(t, ok)
	assert.Equal(t, 'é', c)
	assert.True(t, r.EOF())
}
