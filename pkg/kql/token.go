// Copyright (c) 2024 Tigera, Inc. All rights reserved.

// Package kql implements the Kibana Query Language: a lexer, a recursive
// descent parser that emits a github.com/thomas-touhey/kaquel/pkg/query
// AST, and a renderer back from that AST to KQL source.
package kql

import "github.com/thomas-touhey/kaquel/pkg/diag"

// TokenType identifies the kind of a lexed Token.
type TokenType int

const (
	TokenEnd TokenType = iota
	TokenUnquotedLiteral
	TokenQuotedLiteral

	TokenLTE
	TokenGTE
	TokenLT
	TokenGT
	TokenColon
	TokenLParen
	TokenRParen
	TokenLBrace
	TokenRBrace

	TokenOr
	TokenAnd
	TokenNot
)

// String names a TokenType, for diagnostics.
func (t TokenType) String() string {
	switch t {
	case TokenEnd:
		return "end of input"
	case TokenUnquotedLiteral:
		return "unquoted literal"
	case TokenQuotedLiteral:
		return "quoted literal"
	case TokenLTE:
		return "<="
	case TokenGTE:
		return ">="
	case TokenLT:
		return "<"
	case TokenGT:
		return ">"
	case TokenColon:
		return ":"
	case TokenLParen:
		return "("
	case TokenRParen:
		return ")"
	case TokenLBrace:
		return "{"
	case TokenRBrace:
		return "}"
	case TokenOr:
		return "or"
	case TokenAnd:
		return "and"
	case TokenNot:
		return "not"
	default:
		return "unknown token"
	}
}

// keywordTokens maps case-folded keyword literals to their token type.
var keywordTokens = map[string]TokenType{
	"or":  TokenOr,
	"and": TokenAnd,
	"not": TokenNot,
}

// Token is a single lexed unit of KQL source. Value is only meaningful
// for TokenUnquotedLiteral and TokenQuotedLiteral.
type Token struct {
	Type     TokenType
	Value    string
	Position diag.Position
}
