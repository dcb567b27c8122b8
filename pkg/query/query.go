// Copyright (c) 2024 Tigera, Inc. All rights reserved.

// Package query implements the unified query abstract syntax tree that
// both the KQL and Lucene front-ends funnel into: a strict subset of the
// ElasticSearch Query DSL, with a deterministic JSON renderer.
package query

import (
	"math"
	"strconv"

	"github.com/olivere/elastic/v7"
	"github.com/pkg/errors"

	"github.com/thomas-touhey/kaquel/pkg/diag"
)

// Query is any node of the query AST. Its sole method renders the node
// as a JSON-serializable value; the signature is deliberately identical
// to github.com/olivere/elastic/v7's own Query interface, so that any
// kaquel query.Query is already a valid elastic.Query with no adapter
// required — see the root package's ToElasticQuery.
type Query interface {
	// Source renders the node as a JSON-serializable value, following
	// the canonical ElasticSearch Query DSL shape for the node's kind.
	Source() (interface{}, error)
}

var _ elastic.Query = Query(nil) // Query must stay structurally == elastic.Query.

// Operator is the term combination operator of a Match or MultiMatch
// query.
type Operator string

const (
	// OperatorOR is the default: any term may match.
	OperatorOR Operator = ""
	// OperatorAND requires every term to match.
	OperatorAND Operator = "and"
)

// MultiMatchType selects how a MultiMatch query combines its fields.
type MultiMatchType string

const (
	MultiMatchBestFields   MultiMatchType = "best_fields"
	MultiMatchPhrase       MultiMatchType = "phrase"
	MultiMatchPhrasePrefix MultiMatchType = "phrase_prefix"
)

// NestedScoreMode selects how a Nested query's matches affect the root
// document's score.
type NestedScoreMode string

const (
	ScoreModeAvg  NestedScoreMode = "avg"
	ScoreModeMax  NestedScoreMode = "max"
	ScoreModeMin  NestedScoreMode = "min"
	ScoreModeNone NestedScoreMode = "none"
	ScoreModeSum  NestedScoreMode = "sum"
)

// PromoteNumeric renders a literal as a JSON number when it parses
// losslessly as an integer or a float, and as a JSON string otherwise.
func PromoteNumeric(literal string) interface{} {
	if i, err := strconv.ParseInt(literal, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(literal, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return f
	}
	return literal
}

// --- MatchAll / MatchNone ---

// MatchAll matches every document.
type MatchAll struct{}

func (MatchAll) Source() (interface{}, error) {
	return diag.NewJSONObject().Set("match_all", diag.NewJSONObject()), nil
}

// MatchNone matches no document.
type MatchNone struct{}

func (MatchNone) Source() (interface{}, error) {
	return diag.NewJSONObject().Set("match_none", diag.NewJSONObject()), nil
}

// --- Match ---

// Match is a full-text match query against a single field.
type Match struct {
	Field    string
	Value    interface{}
	Operator Operator
}

func (m Match) Source() (interface{}, error) {
	if m.Field == "" {
		return nil, errors.New("match query requires a non-empty field")
	}

	if m.Operator == OperatorAND {
		inner := diag.NewJSONObject().Set("query", m.Value).Set("operator", "and")
		return diag.NewJSONObject().Set("match", diag.NewJSONObject().Set(m.Field, inner)), nil
	}

	return diag.NewJSONObject().Set("match", diag.NewJSONObject().Set(m.Field, m.Value)), nil
}

// --- MatchPhrase ---

type MatchPhrase struct {
	Field string
	Value interface{}
}

func (m MatchPhrase) Source() (interface{}, error) {
	if m.Field == "" {
		return nil, errors.New("match_phrase query requires a non-empty field")
	}
	return diag.NewJSONObject().Set("match_phrase", diag.NewJSONObject().Set(m.Field, m.Value)), nil
}

// --- MatchPhrasePrefix ---

type MatchPhrasePrefix struct {
	Field string
	Value interface{}
}

func (m MatchPhrasePrefix) Source() (interface{}, error) {
	if m.Field == "" {
		return nil, errors.New("match_phrase_prefix query requires a non-empty field")
	}
	return diag.NewJSONObject().Set("match_phrase_prefix", diag.NewJSONObject().Set(m.Field, m.Value)), nil
}

// --- MultiMatch ---

// MultiMatch searches across several fields, or across all default
// fields when Fields is empty (used by KQL's field-less expressions).
type MultiMatch struct {
	Fields   []string
	Value    string
	Type     MultiMatchType
	Operator Operator
	// Lenient, when true, tells ElasticSearch to ignore format-based
	// errors (e.g. a text query against a numeric field). The KQL parser
	// always sets this, mirroring Kibana's own behavior for field-less
	// and wildcard-field expressions.
	Lenient bool
}

func (m MultiMatch) Source() (interface{}, error) {
	inner := diag.NewJSONObject().Set("query", m.Value)
	if m.Type != "" {
		inner.Set("type", string(m.Type))
	}
	if len(m.Fields) > 0 {
		inner.Set("fields", m.Fields)
	}
	if m.Operator == OperatorAND {
		inner.Set("operator", "and")
	}
	if m.Lenient {
		inner.Set("lenient", true)
	}
	return diag.NewJSONObject().Set("multi_match", inner), nil
}

// --- Term ---

type Term struct {
	Field string
	Value interface{}
}

func (t Term) Source() (interface{}, error) {
	if t.Field == "" {
		return nil, errors.New("term query requires a non-empty field")
	}
	return diag.NewJSONObject().Set("term", diag.NewJSONObject().Set(t.Field, t.Value)), nil
}

// --- Exists ---

type Exists struct {
	Field string
}

func (e Exists) Source() (interface{}, error) {
	if e.Field == "" {
		return nil, errors.New("exists query requires a non-empty field")
	}
	return diag.NewJSONObject().Set("exists", diag.NewJSONObject().Set("field", e.Field)), nil
}

// --- Range ---

// Range is a range query with at least one bound set; NewRange enforces
// that invariant.
type Range struct {
	Field    string
	Gt       interface{}
	Gte      interface{}
	Lt       interface{}
	Lte      interface{}
	TimeZone string
}

// NewRange validates that at least one bound is set before returning the
// Range node.
func NewRange(field string, gt, gte, lt, lte interface{}, timeZone string) (*Range, error) {
	r := &Range{Field: field, Gt: gt, Gte: gte, Lt: lt, Lte: lte, TimeZone: timeZone}
	if gt == nil && gte == nil && lt == nil && lte == nil {
		return nil, errors.Errorf("range query on field %q must set at least one bound", field)
	}
	return r, nil
}

func (r Range) Source() (interface{}, error) {
	if r.Field == "" {
		return nil, errors.New("range query requires a non-empty field")
	}
	if r.Gt == nil && r.Gte == nil && r.Lt == nil && r.Lte == nil {
		return nil, errors.Errorf("range query on field %q must set at least one bound", r.Field)
	}

	bounds := diag.NewJSONObject()
	if r.Gt != nil {
		bounds.Set("gt", r.Gt)
	}
	if r.Gte != nil {
		bounds.Set("gte", r.Gte)
	}
	if r.Lt != nil {
		bounds.Set("lt", r.Lt)
	}
	if r.Lte != nil {
		bounds.Set("lte", r.Lte)
	}
	if r.TimeZone != "" {
		bounds.Set("time_zone", r.TimeZone)
	}

	return diag.NewJSONObject().Set("range", diag.NewJSONObject().Set(r.Field, bounds)), nil
}

// --- Wildcard ---

type Wildcard struct {
	Field string
	Value string
}

func (w Wildcard) Source() (interface{}, error) {
	if w.Field == "" {
		return nil, errors.New("wildcard query requires a non-empty field")
	}
	return diag.NewJSONObject().Set(
		"wildcard",
		diag.NewJSONObject().Set(w.Field, diag.NewJSONObject().Set("value", w.Value)),
	), nil
}

// --- Regexp ---

type Regexp struct {
	Field string
	Value string
}

func (r Regexp) Source() (interface{}, error) {
	if r.Field == "" {
		return nil, errors.New("regexp query requires a non-empty field")
	}
	return diag.NewJSONObject().Set(
		"regexp",
		diag.NewJSONObject().Set(r.Field, diag.NewJSONObject().Set("value", r.Value)),
	), nil
}

// --- Fuzzy ---

type Fuzzy struct {
	Field     string
	Value     string
	Fuzziness interface{}
}

func (f Fuzzy) Source() (interface{}, error) {
	if f.Field == "" {
		return nil, errors.New("fuzzy query requires a non-empty field")
	}

	inner := diag.NewJSONObject().Set("value", f.Value)
	if f.Fuzziness != nil {
		inner.Set("fuzziness", f.Fuzziness)
	}
	return diag.NewJSONObject().Set("fuzzy", diag.NewJSONObject().Set(f.Field, inner)), nil
}

// --- Prefix ---

type Prefix struct {
	Field string
	Value string
}

func (p Prefix) Source() (interface{}, error) {
	if p.Field == "" {
		return nil, errors.New("prefix query requires a non-empty field")
	}
	return diag.NewJSONObject().Set(
		"prefix",
		diag.NewJSONObject().Set(p.Field, diag.NewJSONObject().Set("value", p.Value)),
	), nil
}

// --- Nested ---

// Nested wraps a query scoped to a nested object field, mirroring KQL's
// "field: { ... }" syntax.
type Nested struct {
	Path      string
	Query     Query
	ScoreMode NestedScoreMode
}

func (n Nested) Source() (interface{}, error) {
	if n.Path == "" {
		return nil, errors.New("nested query requires a non-empty path")
	}
	if n.Query == nil {
		return nil, errors.New("nested query requires an inner query")
	}

	inner, err := n.Query.Source()
	if err != nil {
		return nil, errors.Wrapf(err, "rendering nested query at path %q", n.Path)
	}

	scoreMode := n.ScoreMode
	if scoreMode == "" {
		scoreMode = ScoreModeAvg
	}

	return diag.NewJSONObject().Set("nested", diag.NewJSONObject().
		Set("path", n.Path).
		Set("query", inner).
		Set("score_mode", string(scoreMode))), nil
}

// --- QueryString ---

// QueryString delegates semantic evaluation to ElasticSearch's own Lucene
// parser; it is the Lucene validator's escape hatch. The KQL parser does
// not produce it: field-less KQL values, wildcards included, become a
// lenient MultiMatch.
type QueryString struct {
	Query string
}

func (q QueryString) Source() (interface{}, error) {
	if q.Query == "" {
		return nil, errors.New("query_string query requires a non-empty query")
	}
	return diag.NewJSONObject().Set("query_string", diag.NewJSONObject().Set("query", q.Query)), nil
}

// --- Bool ---

// Bool is an ElasticSearch boolean compound query. NewBool enforces the
// invariant that a Bool with all four clause lists empty collapses to
// MatchAll, so that no caller ever observes a genuinely empty Bool node.
type Bool struct {
	Must               []Query
	Filter             []Query
	Should             []Query
	MustNot            []Query
	MinimumShouldMatch *int
}

// NewBool returns a Bool node, or MatchAll{} if every clause list is
// empty.
func NewBool(must, filter, should, mustNot []Query, minimumShouldMatch *int) Query {
	if len(must) == 0 && len(filter) == 0 && len(should) == 0 && len(mustNot) == 0 {
		return MatchAll{}
	}
	return &Bool{Must: must, Filter: filter, Should: should, MustNot: mustNot, MinimumShouldMatch: minimumShouldMatch}
}

func (b *Bool) Source() (interface{}, error) {
	inner := diag.NewJSONObject()

	for _, pair := range []struct {
		key     string
		clauses []Query
	}{
		{"must", b.Must},
		{"filter", b.Filter},
		{"should", b.Should},
		{"must_not", b.MustNot},
	} {
		rendered, err := renderClauseList(pair.clauses)
		if err != nil {
			return nil, errors.Wrapf(err, "rendering bool.%s", pair.key)
		}
		if rendered != nil {
			inner.Set(pair.key, rendered)
		}
	}

	if b.MinimumShouldMatch != nil {
		inner.Set("minimum_should_match", *b.MinimumShouldMatch)
	}

	return diag.NewJSONObject().Set("bool", inner), nil
}

// renderClauseList renders a bool clause list using ElasticSearch's
// canonical form: an empty list is omitted entirely; a single-entry list
// is rendered as that entry's own object rather than as a one-element
// array (e.g. "must_not": {"match": ...}).
func renderClauseList(clauses []Query) (interface{}, error) {
	switch len(clauses) {
	case 0:
		return nil, nil
	case 1:
		return clauses[0].Source()
	default:
		rendered := make([]interface{}, len(clauses))
		for i, c := range clauses {
			v, err := c.Source()
			if err != nil {
				return nil, errors.Wrapf(err, "clause %d", i)
			}
			rendered[i] = v
		}
		return rendered, nil
	}
}
