// Copyright (c) 2024 Tigera, Inc. All rights reserved.

package kql

import (
	"strings"
	"unicode"

	"github.com/thomas-touhey/kaquel/internal/source"
	"github.com/thomas-touhey/kaquel/pkg/diag"
)

// isUnquotedBoundary reports whether c cannot appear unescaped within an
// unquoted literal, matching the exclusion set in the original token
// pattern: backslash, the structural operators, the quote character, and
// whitespace.
func isUnquotedBoundary(c rune) bool {
	switch c {
	case '\\', ':', '(', ')', '<', '>', '"', '{', '}':
		return true
	default:
		return unicode.IsSpace(c)
	}
}

// unescape strips a single backslash from every backslash-prefixed
// character in s.
func unescape(s string) string {
	if !strings.Contains(s, "\\") {
		return s
	}

	var b strings.Builder
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		if runes[i] == '\\' && i+1 < len(runes) {
			b.WriteRune(runes[i+1])
			i++
			continue
		}
		b.WriteRune(runes[i])
	}
	return b.String()
}

// Tokenize lexes src into a token stream, always ending in a TokenEnd. It
// is grounded on kaquel.kql.parse_kql_tokens from the original
// implementation.
func Tokenize(src string) ([]Token, error) {
	r := source.New(src)
	var tokens []Token

	for {
		r.SkipWhitespace()
		if r.EOF() {
			break
		}

		pos := r.Position()
		c, _ := r.Peek()

		switch c {
		case '<', '>':
			r.Advance()
			typ := TokenLT
			if c == '>' {
				typ = TokenGT
			}
			if next, ok := r.Peek(); ok && next == '=' {
				r.Advance()
				if c == '<' {
					typ = TokenLTE
				} else {
					typ = TokenGTE
				}
			}
			tokens = append(tokens, Token{Type: typ, Position: pos})
			continue
		case ':':
			r.Advance()
			tokens = append(tokens, Token{Type: TokenColon, Position: pos})
			continue
		case '(':
			r.Advance()
			tokens = append(tokens, Token{Type: TokenLParen, Position: pos})
			continue
		case ')':
			r.Advance()
			tokens = append(tokens, Token{Type: TokenRParen, Position: pos})
			continue
		case '{':
			r.Advance()
			tokens = append(tokens, Token{Type: TokenLBrace, Position: pos})
			continue
		case '}':
			r.Advance()
			tokens = append(tokens, Token{Type: TokenRBrace, Position: pos})
			continue
		case '"':
			value, err := scanQuotedLiteral(r)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, Token{Type: TokenQuotedLiteral, Value: value, Position: pos})
			continue
		}

		raw, ok := scanUnquotedLiteral(r)
		if !ok {
			return nil, decodeErrorAt(r, pos)
		}

		if typ, isKeyword := keywordTokens[strings.ToLower(raw)]; isKeyword {
			tokens = append(tokens, Token{Type: typ, Position: pos})
		} else {
			tokens = append(tokens, Token{Type: TokenUnquotedLiteral, Value: unescape(raw), Position: pos})
		}
	}

	tokens = append(tokens, Token{Type: TokenEnd, Position: r.Position()})
	return tokens, nil
}

// scanQuotedLiteral consumes a "..." literal (the opening quote must be
// at the cursor) and returns its unescaped contents.
func scanQuotedLiteral(r *source.Reader) (string, error) {
	start := r.Position()
	restAtStart := r.Rest()
	r.Advance() // opening quote

	var raw strings.Builder
	for {
		c, ok := r.Advance()
		if !ok {
			return "", decodeError(start, restAtStart)
		}
		if c == '\\' {
			esc, ok := r.Advance()
			if !ok {
				return "", decodeError(start, restAtStart)
			}
			raw.WriteRune('\\')
			raw.WriteRune(esc)
			continue
		}
		if c == '"' {
			return unescape(raw.String()), nil
		}
		raw.WriteRune(c)
	}
}

// scanUnquotedLiteral consumes a run of characters that do not need
// quoting, honoring backslash escapes, and returns the raw (still
// escaped) text. A trailing lone backslash with nothing to escape is
// left unconsumed, matching the original pattern's \\. requirement.
func scanUnquotedLiteral(r *source.Reader) (string, bool) {
	var raw strings.Builder
	consumed := false

	for {
		c, ok := r.Peek()
		if !ok {
			break
		}

		if c == '\\' {
			if _, ok := r.PeekN(1); !ok {
				break
			}
			r.Advance()
			esc, _ := r.Advance()
			raw.WriteRune('\\')
			raw.WriteRune(esc)
			consumed = true
			continue
		}

		if isUnquotedBoundary(c) {
			break
		}

		r.Advance()
		raw.WriteRune(c)
		consumed = true
	}

	return raw.String(), consumed
}

func decodeErrorAt(r *source.Reader, pos diag.Position) *diag.DecodeError {
	return decodeError(pos, r.Rest())
}

func decodeError(pos diag.Position, rest string) *diag.DecodeError {
	if len(rest) > 30 {
		rest = rest[:27] + "..."
	}
	return diag.NewDecodeErrorf(pos, "could not parse query starting from: %s", rest)
}
