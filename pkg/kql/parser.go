// Copyright (c) 2024 Tigera, Inc. All rights reserved.

package kql

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/thomas-touhey/kaquel/pkg/diag"
	"github.com/thomas-touhey/kaquel/pkg/query"
)

// Option configures the KQL parser, following the functional-options
// pattern idiomatic Go libraries use in place of keyword arguments.
type Option func(*parserOptions)

type parserOptions struct {
	allowLeadingWildcards bool
	filtersInMustClause   bool
}

func defaultOptions() parserOptions {
	return parserOptions{allowLeadingWildcards: true, filtersInMustClause: false}
}

// WithAllowLeadingWildcards controls whether an unquoted value literal
// beginning with "*" is accepted. It defaults to true.
func WithAllowLeadingWildcards(allow bool) Option {
	return func(o *parserOptions) { o.allowLeadingWildcards = allow }
}

// WithFiltersInMustClause controls whether "and" clauses ("a: 1 and b: 2",
// or a value list such as "a: (1 and 2)") are placed in a bool query's
// "filter" clause (the default) or its "must" clause.
func WithFiltersInMustClause(mustClause bool) Option {
	return func(o *parserOptions) { o.filtersInMustClause = mustClause }
}

// LeadingWildcardsForbidden is raised when a leading wildcard is
// encountered while WithAllowLeadingWildcards(false) is in effect. It
// satisfies the error interface and wraps a *diag.DecodeError so that
// callers who only look for *diag.DecodeError with errors.As still
// catch it.
type LeadingWildcardsForbidden struct {
	*diag.DecodeError
}

// Unwrap returns the wrapped *diag.DecodeError.
func (e *LeadingWildcardsForbidden) Unwrap() error {
	return e.DecodeError
}

func newLeadingWildcardsForbidden(pos diag.Position) *LeadingWildcardsForbidden {
	return &LeadingWildcardsForbidden{diag.NewDecodeError(pos, "leading wildcards are forbidden")}
}

// Parse parses a KQL expression into a query.Query.
func Parse(kuery string, opts ...Option) (query.Query, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	tokens, err := Tokenize(kuery)
	if err != nil {
		return nil, err
	}

	logrus.WithField("tokens", len(tokens)).Trace("kql: lexed query")

	if tokens[0].Type == TokenEnd {
		return query.MatchAll{}, nil
	}

	p := &parser{tokens: tokens, options: options}
	result, token, err := p.parseOrQuery("")
	if err != nil {
		return nil, err
	}
	if token.Type != TokenEnd {
		return nil, unexpectedToken(token)
	}

	return result, nil
}

type parser struct {
	tokens  []Token
	pos     int
	options parserOptions
}

func (p *parser) next() Token {
	t := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return t
}

func unexpectedToken(t Token) *diag.DecodeError {
	return diag.NewDecodeErrorf(t.Position, "unexpected token %s", t.Type)
}

// parseAndValueList parses a KQL "and value list": a sequence of values
// (or parenthesized sub-lists) joined by "and", scoped to a single field.
func (p *parser) parseAndValueList(field string) (query.Query, Token, error) {
	var elements []query.Query

	var token Token
	for {
		token = p.next()

		isNot := false
		if token.Type == TokenNot {
			isNot = true
			token = p.next()
		}

		var result query.Query
		var err error

		switch token.Type {
		case TokenLParen:
			result, token, err = p.parseOrValueList(field)
			if err != nil {
				return nil, Token{}, err
			}
			if token.Type != TokenRParen {
				return nil, Token{}, unexpectedToken(token)
			}
			token = p.next()
		case TokenQuotedLiteral:
			if field == "*" {
				result = query.MultiMatch{Type: query.MultiMatchPhrase, Value: token.Value, Lenient: true}
			} else {
				result = query.MatchPhrase{Field: field, Value: token.Value}
			}
			token = p.next()
		case TokenUnquotedLiteral:
			parts := []string{token.Value}
			litPos := token.Position
			for {
				next := p.next()
				if next.Type != TokenUnquotedLiteral {
					token = next
					break
				}
				parts = append(parts, next.Value)
			}

			if !p.options.allowLeadingWildcards && anyHasLeadingWildcard(parts) {
				return nil, Token{}, newLeadingWildcardsForbidden(litPos)
			}

			joined := strings.Join(parts, " ")
			if field == "*" {
				result = query.MultiMatch{Value: joined, Lenient: true}
			} else {
				result = query.Match{Field: field, Value: joined}
			}
		default:
			return nil, Token{}, unexpectedToken(token)
		}

		if isNot {
			result = &query.Bool{MustNot: []query.Query{result}}
		}

		elements = append(elements, result)
		if token.Type != TokenAnd {
			break
		}
	}

	if len(elements) == 1 {
		return elements[0], token, nil
	}
	if p.options.filtersInMustClause {
		return query.NewBool(elements, nil, nil, nil, nil), token, nil
	}
	return query.NewBool(nil, elements, nil, nil, nil), token, nil
}

// parseOrValueList parses a sequence of "and value lists" joined by "or".
func (p *parser) parseOrValueList(field string) (query.Query, Token, error) {
	var elements []query.Query

	var token Token
	for {
		var result query.Query
		var err error
		result, token, err = p.parseAndValueList(field)
		if err != nil {
			return nil, Token{}, err
		}
		elements = append(elements, result)

		if token.Type != TokenOr {
			break
		}
	}

	if len(elements) == 1 {
		return elements[0], token, nil
	}

	one := 1
	return query.NewBool(nil, nil, elements, nil, &one), token, nil
}

// parseExpression parses a single KQL expression: a field comparison, a
// nested block, a bare/phrase literal, or a parenthesized sub-query.
func (p *parser) parseExpression(prefix string) (query.Query, Token, error) {
	token := p.next()

	isNot := false
	if token.Type == TokenNot {
		isNot = true
		token = p.next()
	}

	var result query.Query

	switch token.Type {
	case TokenUnquotedLiteral, TokenQuotedLiteral:
		opToken := p.next()

		switch opToken.Type {
		case TokenGT, TokenGTE, TokenLT, TokenLTE:
			compToken := p.next()
			if compToken.Type != TokenUnquotedLiteral {
				return nil, Token{}, unexpectedToken(token)
			}

			field := prefix + token.Value
			value := query.PromoteNumeric(compToken.Value)

			var r *query.Range
			var err error
			switch opToken.Type {
			case TokenGT:
				r, err = query.NewRange(field, value, nil, nil, nil, "")
			case TokenGTE:
				r, err = query.NewRange(field, nil, value, nil, nil, "")
			case TokenLT:
				r, err = query.NewRange(field, nil, nil, value, nil, "")
			default:
				r, err = query.NewRange(field, nil, nil, nil, value, "")
			}
			if err != nil {
				return nil, Token{}, err
			}
			result = r
			token = p.next()

		case TokenColon:
			compToken := p.next()

			switch compToken.Type {
			case TokenLBrace:
				if isNot {
					return nil, Token{}, unexpectedToken(opToken)
				}

				path := prefix + token.Value
				inner, endToken, err := p.parseOrQuery(path + ".")
				if err != nil {
					return nil, Token{}, err
				}
				if endToken.Type != TokenRBrace {
					return nil, Token{}, unexpectedToken(endToken)
				}

				result = query.Nested{Path: path, Query: inner, ScoreMode: query.ScoreModeNone}
				token = p.next()

			case TokenLParen:
				var err error
				result, token, err = p.parseOrValueList(prefix + token.Value)
				if err != nil {
					return nil, Token{}, err
				}
				if token.Type != TokenRParen {
					return nil, Token{}, unexpectedToken(token)
				}
				token = p.next()

			case TokenQuotedLiteral:
				if token.Value == "*" {
					result = query.MultiMatch{Type: query.MultiMatchPhrase, Value: compToken.Value, Lenient: true}
				} else {
					result = query.MatchPhrase{Field: prefix + token.Value, Value: compToken.Value}
				}
				token = p.next()

			case TokenUnquotedLiteral:
				parts := []string{compToken.Value}
				litPos := compToken.Position
				next := p.next()
				for next.Type == TokenUnquotedLiteral {
					parts = append(parts, next.Value)
					next = p.next()
				}

				if !p.options.allowLeadingWildcards && anyHasLeadingWildcard(parts) {
					return nil, Token{}, newLeadingWildcardsForbidden(litPos)
				}

				if token.Value == "*" {
					if hasExactly(parts, "*") {
						result = query.MatchAll{}
					} else {
						result = query.MultiMatch{Value: strings.Join(parts, " "), Lenient: true}
					}
				} else if hasExactly(parts, "*") {
					result = query.Exists{Field: prefix + token.Value}
				} else {
					result = query.Match{Field: prefix + token.Value, Value: strings.Join(parts, " ")}
				}

				token = next

			default:
				return nil, Token{}, unexpectedToken(compToken)
			}

		default:
			// The field token was not followed by a range operator, a
			// colon, or anything recognized as a comparison — it stands
			// alone as a bare literal or phrase query.
			if token.Type == TokenQuotedLiteral {
				result = query.MultiMatch{Type: query.MultiMatchPhrase, Value: token.Value, Lenient: true}
				token = opToken
				break
			}

			parts := []string{token.Value}
			if opToken.Type == TokenUnquotedLiteral {
				parts = append(parts, opToken.Value)
				next := p.next()
				for next.Type == TokenUnquotedLiteral {
					parts = append(parts, next.Value)
					next = p.next()
				}
				opToken = next
			}

			if !p.options.allowLeadingWildcards && anyHasLeadingWildcard(parts) {
				return nil, Token{}, newLeadingWildcardsForbidden(token.Position)
			}

			result = query.MultiMatch{Value: strings.Join(parts, " "), Lenient: true}
			token = opToken
		}

	case TokenLParen:
		var err error
		result, token, err = p.parseOrQuery(prefix)
		if err != nil {
			return nil, Token{}, err
		}
		if token.Type != TokenRParen {
			return nil, Token{}, unexpectedToken(token)
		}
		token = p.next()

	default:
		return nil, Token{}, unexpectedToken(token)
	}

	if isNot {
		result = &query.Bool{MustNot: []query.Query{result}}
	}

	return result, token, nil
}

// parseAndQuery parses a sequence of expressions joined by "and".
func (p *parser) parseAndQuery(prefix string) (query.Query, Token, error) {
	var elements []query.Query

	var token Token
	for {
		var result query.Query
		var err error
		result, token, err = p.parseExpression(prefix)
		if err != nil {
			return nil, Token{}, err
		}
		elements = append(elements, result)

		if token.Type != TokenAnd {
			break
		}
	}

	if len(elements) == 1 {
		return elements[0], token, nil
	}
	if p.options.filtersInMustClause {
		return query.NewBool(elements, nil, nil, nil, nil), token, nil
	}
	return query.NewBool(nil, elements, nil, nil, nil), token, nil
}

// parseOrQuery parses a sequence of "and queries" joined by "or".
func (p *parser) parseOrQuery(prefix string) (query.Query, Token, error) {
	var elements []query.Query

	var token Token
	for {
		var result query.Query
		var err error
		result, token, err = p.parseAndQuery(prefix)
		if err != nil {
			return nil, Token{}, err
		}
		elements = append(elements, result)

		if token.Type != TokenOr {
			break
		}
	}

	if len(elements) == 1 {
		return elements[0], token, nil
	}

	one := 1
	return query.NewBool(nil, nil, elements, nil, &one), token, nil
}

func anyHasLeadingWildcard(parts []string) bool {
	for _, p := range parts {
		if strings.HasPrefix(p, "*") {
			return true
		}
	}
	return false
}

func hasExactly(parts []string, value string) bool {
	for _, p := range parts {
		if p == value {
			return true
		}
	}
	return false
}
