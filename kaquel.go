// Copyright (c) 2024 Tigera, Inc. All rights reserved.

// Package kaquel parses the Kibana Query Language and Apache Lucene
// query syntax into a query abstract syntax tree that is a strict
// subset of the ElasticSearch Query DSL, renders that tree to JSON, and
// can render a subset of it back to KQL source.
package kaquel

import (
	"github.com/olivere/elastic/v7"

	"github.com/thomas-touhey/kaquel/pkg/kql"
	"github.com/thomas-touhey/kaquel/pkg/lucene"
	"github.com/thomas-touhey/kaquel/pkg/query"
)

// ParseKQL parses a KQL expression into a query.Query, using default
// parser options (leading wildcards allowed, implicit AND clauses placed
// in a bool query's filter clause).
func ParseKQL(source string) (query.Query, error) {
	return kql.Parse(source)
}

// ParseKQLWithOptions parses a KQL expression with non-default parser
// behavior; see pkg/kql's Option constructors.
func ParseKQLWithOptions(source string, opts ...kql.Option) (query.Query, error) {
	return kql.Parse(source, opts...)
}

// ParseLucene validates a Lucene classical query and wraps it as a
// query.Query whose semantic evaluation is deferred to ElasticSearch's
// own query_string implementation; see pkg/lucene for the rationale.
func ParseLucene(source string) (query.Query, error) {
	return lucene.Parse(source)
}

// ParseLuceneWithOptions validates a Lucene query with non-default
// validator behavior; see pkg/lucene's Option constructors.
func ParseLuceneWithOptions(source string, opts ...lucene.Option) (query.Query, error) {
	return lucene.Parse(source, opts...)
}

// RenderAsKQL renders a query.Query back to KQL source, using default
// renderer options. Not every query.Query value has a KQL
// representation; see pkg/kql.RenderError.
func RenderAsKQL(q query.Query) (string, error) {
	return kql.RenderAsKQL(q)
}

// RenderAsKQLWithOptions renders a query.Query back to KQL source with
// non-default renderer behavior.
func RenderAsKQLWithOptions(q query.Query, opts ...kql.Option) (string, error) {
	return kql.RenderAsKQL(q, opts...)
}

// ToElasticQuery adapts a query.Query to github.com/olivere/elastic/v7's
// own Query interface. Since query.Query's Source() (interface{}, error)
// method is already structurally identical to elastic.Query's — the same
// convention github.com/projectcalico/calico/lma/pkg/elastic/index follows
// with its own JsonObjectElasticQuery helper — every query.Query value is already
// a valid elastic.Query; this function exists purely so callers already
// importing olivere/elastic don't need to know that.
func ToElasticQuery(q query.Query) elastic.Query {
	return q
}

// DecodeESQuery reconstructs a query.Query from a decoded ElasticSearch
// Query DSL JSON object, so that RenderAsKQL can be driven end-to-end
// from a JSON document someone else produced.
func DecodeESQuery(m map[string]interface{}) (query.Query, error) {
	return query.Decode(m)
}

// DecodeESQueryJSON decodes raw ElasticSearch Query DSL JSON bytes into
// a query.Query.
func DecodeESQueryJSON(data []byte) (query.Query, error) {
	return query.DecodeJSON(data)
}
