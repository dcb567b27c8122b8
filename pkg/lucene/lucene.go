// Copyright (c) 2024 Tigera, Inc. All rights reserved.

// Package lucene validates Apache Lucene classical query syntax and
// wraps it as a query.QueryString escape hatch, rather than building a
// full Lucene AST, since ElasticSearch's own query_string endpoint
// already implements the full Lucene grammar faithfully, and
// re-implementing it here would only add risk of semantic drift without
// adding capability.
package lucene

import (
	"unicode"

	"github.com/sirupsen/logrus"

	"github.com/thomas-touhey/kaquel/internal/source"
	"github.com/thomas-touhey/kaquel/pkg/diag"
	"github.com/thomas-touhey/kaquel/pkg/query"
)

// Option configures the Lucene validator.
type Option func(*validatorOptions)

type validatorOptions struct {
	allowLeadingWildcards bool
}

func defaultOptions() validatorOptions {
	return validatorOptions{allowLeadingWildcards: true}
}

// WithAllowLeadingWildcards controls whether a term beginning with "*"
// or "?" is accepted. It defaults to true, matching KQL's own default
// and ElasticSearch's allow_leading_wildcard search setting.
func WithAllowLeadingWildcards(allow bool) Option {
	return func(o *validatorOptions) { o.allowLeadingWildcards = allow }
}

// openers/closers for the bracket kinds Lucene syntax nests: grouping
// parentheses and the inclusive/exclusive range delimiters.
var bracketPairs = map[rune]rune{
	'(': ')',
	'[': ']',
	'{': '}',
}

var bracketClosers = map[rune]rune{
	')': '(',
	']': '[',
	'}': '{',
}

type bracketFrame struct {
	open rune
	pos  diag.Position
}

// Parse validates a Lucene query for structural well-formedness — bracket
// and quote balance, and operators appearing only in positions Lucene
// syntax allows — then wraps the original source as a query.QueryString,
// delegating semantic evaluation to ElasticSearch's own query_string
// parser. There is no further grammar to replicate here.
func Parse(q string, opts ...Option) (query.Query, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	if isBlank(q) {
		logrus.Trace("lucene: empty query, treating as match_all")
		return query.MatchAll{}, nil
	}

	if err := validateStructure(q, options); err != nil {
		return nil, err
	}

	logrus.WithField("length", len(q)).Debug("lucene: validated query, falling back to query_string")
	return query.QueryString{Query: q}, nil
}

func isBlank(s string) bool {
	for _, c := range s {
		if !unicode.IsSpace(c) {
			return false
		}
	}
	return true
}

// validateStructure walks the query once, tracking bracket nesting,
// quoted-string state, regex-literal state, and the position of each
// whitespace-delimited word, and rejects anything that could not be a
// syntactically valid Lucene query.
func validateStructure(q string, options validatorOptions) error {
	r := source.New(q)

	var brackets []bracketFrame
	var wordStart diag.Position
	var word []rune
	hasWord := false
	var prevWord string
	wordCount := 0

	flushWord := func() error {
		if !hasWord {
			return nil
		}
		w := string(word)
		if err := validateWord(w, wordStart, prevWord, wordCount == 0, options); err != nil {
			return err
		}
		prevWord = w
		wordCount++
		word = nil
		hasWord = false
		return nil
	}

	for {
		c, ok := r.Peek()
		if !ok {
			break
		}

		switch {
		case unicode.IsSpace(c):
			if err := flushWord(); err != nil {
				return err
			}
			r.Advance()

		case c == '"':
			if err := flushWord(); err != nil {
				return err
			}
			if err := skipQuoted(r); err != nil {
				return err
			}
			prevWord = `"..."`
			wordCount++

		case c == '/':
			if err := flushWord(); err != nil {
				return err
			}
			if err := skipRegexp(r); err != nil {
				return err
			}
			prevWord = "/.../"
			wordCount++

		case c == '(' || c == '[' || c == '{':
			if err := flushWord(); err != nil {
				return err
			}
			pos := r.Position()
			r.Advance()
			brackets = append(brackets, bracketFrame{open: c, pos: pos})
			prevWord = string(c)
			wordCount++

		case c == ')' || c == ']' || c == '}':
			if err := flushWord(); err != nil {
				return err
			}
			pos := r.Position()
			if len(brackets) == 0 {
				return diag.NewDecodeErrorf(pos, "unmatched closing %q", c)
			}
			top := brackets[len(brackets)-1]
			if bracketClosers[c] != top.open {
				return diag.NewDecodeErrorf(pos, "mismatched closing %q for opening %q at %s", c, top.open, top.pos)
			}
			brackets = brackets[:len(brackets)-1]
			r.Advance()
			prevWord = string(c)
			wordCount++

		default:
			if !hasWord {
				wordStart = r.Position()
				hasWord = true
			}
			char, _ := r.Advance()
			word = append(word, char)
		}
	}

	if err := flushWord(); err != nil {
		return err
	}

	if len(brackets) > 0 {
		top := brackets[len(brackets)-1]
		return diag.NewDecodeErrorf(top.pos, "unclosed %q", top.open)
	}

	if binaryOperators[prevWord] {
		return diag.NewDecodeErrorf(r.Position(), "query cannot end with operator %q", prevWord)
	}

	return nil
}

// skipQuoted consumes a double-quoted string, honoring backslash
// escapes, and fails if it is never closed.
func skipQuoted(r *source.Reader) error {
	start := r.Position()
	r.Advance() // opening quote

	for {
		c, ok := r.Advance()
		if !ok {
			return diag.NewDecodeError(start, "unterminated quoted string")
		}
		if c == '\\' {
			if _, ok := r.Advance(); !ok {
				return diag.NewDecodeError(start, "unterminated quoted string")
			}
			continue
		}
		if c == '"' {
			return nil
		}
	}
}

// skipRegexp consumes a /.../ regular expression literal.
func skipRegexp(r *source.Reader) error {
	start := r.Position()
	r.Advance() // opening slash

	for {
		c, ok := r.Advance()
		if !ok {
			return diag.NewDecodeError(start, "unterminated regular expression")
		}
		if c == '\\' {
			if _, ok := r.Advance(); !ok {
				return diag.NewDecodeError(start, "unterminated regular expression")
			}
			continue
		}
		if c == '/' {
			return nil
		}
	}
}

// binaryOperators names the word forms that act as binary boolean
// operators: they need a term on both sides, so they cannot open or
// close the query, nor directly follow one another.
var binaryOperators = map[string]bool{
	"AND": true,
	"OR":  true,
	"&&":  true,
	"||":  true,
}

// validateWord rejects a bare word that could not appear at this
// position in any valid Lucene query: a dangling binary operator, a
// standalone required/prohibited marker with nothing to attach to, a
// boost/fuzziness marker with no preceding term, or a forbidden leading
// wildcard. NOT and ! are unary prefixes (as in "AND NOT", "a AND !b")
// and so are exempt from the adjacency check.
func validateWord(w string, pos diag.Position, prevWord string, isFirst bool, options validatorOptions) error {
	if binaryOperators[w] {
		if isFirst {
			return diag.NewDecodeErrorf(pos, "query cannot start with operator %q", w)
		}
		if binaryOperators[prevWord] {
			return diag.NewDecodeErrorf(pos, "operator %q cannot follow operator %q", w, prevWord)
		}
		return nil
	}

	if w == "NOT" || w == "!" {
		return nil
	}

	if w == "+" || w == "-" {
		return diag.NewDecodeErrorf(pos, "dangling %q with nothing to attach to", w)
	}

	if (w[0] == '^' || w[0] == '~') && len(w) >= 1 {
		if isFirst || binaryOperators[prevWord] {
			return diag.NewDecodeErrorf(pos, "modifier %q has no preceding term", w)
		}
	}

	if !options.allowLeadingWildcards {
		term := w
		for len(term) > 0 && (term[0] == '+' || term[0] == '-') {
			term = term[1:]
		}
		if len(term) > 0 && (term[0] == '*' || term[0] == '?') {
			return diag.NewDecodeErrorf(pos, "leading wildcards are forbidden in %q", w)
		}
	}

	return nil
}
