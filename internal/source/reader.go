// Copyright (c) 2024 Tigera, Inc. All rights reserved.

// Package source implements the byte/rune cursor shared by kaquel's
// lexers: a single-use, sequential reader over a source string, with
// line/column tracking and mark/restore backtracking.
package source

import (
	"unicode"
	"unicode/utf8"

	"github.com/thomas-touhey/kaquel/pkg/diag"
)

// Reader is a cursor over a UTF-8 source string. It is not safe for
// concurrent use; each parse call owns its own Reader and discards it
// once the parse returns.
type Reader struct {
	src string
	pos diag.Position
}

// New returns a Reader positioned at the start of src.
func New(src string) *Reader {
	return &Reader{src: src, pos: diag.Position{Offset: 0, Line: 1, Column: 1}}
}

// Position returns the reader's current position.
func (r *Reader) Position() diag.Position {
	return r.pos
}

// EOF reports whether the reader has consumed the entire source.
func (r *Reader) EOF() bool {
	return int(r.pos.Offset) >= len(r.src)
}

// Peek returns the rune at the cursor without advancing it, and ok=false
// at end of input.
func (r *Reader) Peek() (rune, bool) {
	return r.PeekN(0)
}

// PeekN returns the rune n runes ahead of the cursor without advancing
// it, and ok=false if that position is past the end of input.
func (r *Reader) PeekN(n int) (rune, bool) {
	rest := r.src[r.pos.Offset:]
	for i := 0; ; i++ {
		if rest == "" {
			return 0, false
		}
		c, size := utf8.DecodeRuneInString(rest)
		if i == n {
			return c, true
		}
		rest = rest[size:]
	}
}

// Advance consumes and returns the rune at the cursor, updating line and
// column (a '\n' starts a new line; any other rune advances the column).
func (r *Reader) Advance() (rune, bool) {
	if r.EOF() {
		return 0, false
	}

	c, size := utf8.DecodeRuneInString(r.src[r.pos.Offset:])
	r.pos.Offset += uint32(size)
	if c == '\n' {
		r.pos.Line++
		r.pos.Column = 1
	} else {
		r.pos.Column++
	}
	return c, true
}

// Mark returns the reader's current position, to later Restore to.
func (r *Reader) Mark() diag.Position {
	return r.pos
}

// Restore rewinds the reader to a position previously returned by Mark.
func (r *Reader) Restore(pos diag.Position) {
	r.pos = pos
}

// SkipWhitespace advances the cursor past any run of Unicode whitespace.
func (r *Reader) SkipWhitespace() {
	for {
		c, ok := r.Peek()
		if !ok || !unicode.IsSpace(c) {
			return
		}
		r.Advance()
	}
}

// Rest returns the unconsumed remainder of the source.
func (r *Reader) Rest() string {
	return r.src[r.pos.Offset:]
}
