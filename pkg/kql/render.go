// Copyright (c) 2024 Tigera, Inc. All rights reserved.

package kql

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/thomas-touhey/kaquel/pkg/query"
)

// RenderError indicates that a query.Query value makes use of a feature
// that has no KQL representation (e.g. a "must" clause while rendering
// with WithFiltersInMustClause(false), or a query kind KQL cannot
// express at all, such as query.Wildcard).
type RenderError struct {
	message string
}

func newRenderError(format string, args ...interface{}) *RenderError {
	return &RenderError{message: fmt.Sprintf(format, args...)}
}

func (e *RenderError) Error() string { return e.message }

var kqlEscapePattern = regexp.MustCompile(`([\\():<>"])`)

func renderLiteral(v interface{}) string {
	raw := fmt.Sprintf("%v", v)
	return kqlEscapePattern.ReplaceAllString(raw, `\$1`)
}

// RenderAsKQL renders a query.Query as KQL source. It shares an
// asymmetry with Parse: not every query.Query value has a KQL
// representation (see RenderError).
func RenderAsKQL(q query.Query, opts ...Option) (string, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return renderRecursive(q, renderState{filtersInMustClause: options.filtersInMustClause})
}

type renderState struct {
	filtersInMustClause bool
	prefix              string
	inAnd               bool
	inNot               bool
}

func renderRecursive(q query.Query, st renderState) (string, error) {
	switch v := q.(type) {
	case *query.Bool:
		return renderBool(v, st)
	case query.Exists:
		if !strings.HasPrefix(v.Field, st.prefix) {
			return "", newRenderError("exists query field does not start with prefix %q", st.prefix)
		}
		return v.Field[len(st.prefix):] + ": *", nil
	case query.MatchAll:
		return "*", nil
	case query.MatchPhrase:
		if !strings.HasPrefix(v.Field, st.prefix) {
			return "", newRenderError("match_phrase query field does not start with prefix %q", st.prefix)
		}
		return v.Field[len(st.prefix):] + `: "` + renderLiteral(v.Value) + `"`, nil
	case query.Match:
		if !strings.HasPrefix(v.Field, st.prefix) {
			return "", newRenderError("match query field does not start with prefix %q", st.prefix)
		}
		return v.Field[len(st.prefix):] + ": " + renderLiteral(v.Value), nil
	case query.MultiMatch:
		if !v.Lenient {
			return "", newRenderError("expected a lenient multi_match query")
		}
		if len(v.Fields) > 0 {
			return "", newRenderError("cannot render a multi_match query with specific fields")
		}
		switch v.Type {
		case query.MultiMatchBestFields, "":
			return renderLiteral(v.Value), nil
		case query.MultiMatchPhrase:
			return `"` + renderLiteral(v.Value) + `"`, nil
		default:
			return "", newRenderError("cannot render a multi_match query with type %q", v.Type)
		}
	case query.Nested:
		if v.ScoreMode != query.ScoreModeNone {
			return "", newRenderError("cannot render a nested query with score mode %q", v.ScoreMode)
		}
		if !strings.HasPrefix(v.Path, st.prefix) {
			return "", newRenderError("nested query path does not start with prefix %q", st.prefix)
		}
		inner, err := renderRecursive(v.Query, renderState{filtersInMustClause: st.filtersInMustClause, prefix: v.Path + "."})
		if err != nil {
			return "", err
		}
		return v.Path[len(st.prefix):] + ": { " + inner + " }", nil
	case *query.Range:
		return renderRange(v, st)
	default:
		return "", newRenderError("cannot render a %T query as KQL", q)
	}
}

func renderBool(b *query.Bool, st renderState) (string, error) {
	if st.filtersInMustClause {
		if len(b.Filter) > 0 {
			return "", newRenderError("cannot render a bool query with a filter clause while filters_in_must_clause is true")
		}
	} else if len(b.Must) > 0 {
		return "", newRenderError("cannot render a bool query with a must clause while filters_in_must_clause is false")
	}

	must, filter, should, mustNot := b.Must, b.Filter, b.Should, b.MustNot
	if len(should) > 0 && b.MinimumShouldMatch != nil && *b.MinimumShouldMatch == len(should) {
		filter = append(append([]query.Query{}, filter...), should...)
		should = nil
	} else if b.MinimumShouldMatch != nil && *b.MinimumShouldMatch != 1 {
		return "", newRenderError("cannot render a bool query with a complex minimum_should_match value")
	}

	if len(must) == 0 && len(filter) == 0 && len(mustNot) == 0 {
		if len(should) == 0 {
			return "", newRenderError("cannot render an empty bool query")
		}

		multiple := len(should) > 1
		parts := make([]string, len(should))
		for i, sub := range should {
			var err error
			parts[i], err = renderRecursive(sub, renderState{
				filtersInMustClause: st.filtersInMustClause,
				prefix:              st.prefix,
				inAnd:               st.inAnd && !multiple,
				inNot:               st.inNot && !multiple,
			})
			if err != nil {
				return "", err
			}
		}

		result := strings.Join(parts, " or ")
		if multiple && (st.inAnd || st.inNot) {
			return "(" + result + ")", nil
		}
		return result, nil
	}

	boolShould := 0
	if len(should) > 0 {
		boolShould = 1
	}
	mustNotAsClause := 0
	if len(mustNot) > 0 {
		mustNotAsClause = 1
	}
	multiple := len(must)+len(filter)+mustNotAsClause+boolShould > 1

	var andClauses []string
	for _, sub := range append(append([]query.Query{}, must...), filter...) {
		s, err := renderRecursive(sub, renderState{
			filtersInMustClause: st.filtersInMustClause,
			prefix:              st.prefix,
			inAnd:               st.inAnd || multiple,
			inNot:               st.inNot && !multiple,
		})
		if err != nil {
			return "", err
		}
		andClauses = append(andClauses, s)
	}

	if len(should) == 1 {
		s, err := renderRecursive(should[0], renderState{
			filtersInMustClause: st.filtersInMustClause,
			prefix:              st.prefix,
			inAnd:               st.inAnd || multiple,
			inNot:               st.inNot && !multiple,
		})
		if err != nil {
			return "", err
		}
		andClauses = append(andClauses, s)
	} else if len(should) > 0 {
		parts := make([]string, len(should))
		for i, sub := range should {
			s, err := renderRecursive(sub, renderState{filtersInMustClause: st.filtersInMustClause, prefix: st.prefix})
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		andClauses = append(andClauses, "("+strings.Join(parts, " or ")+")")
	}

	if len(mustNot) == 1 {
		s, err := renderRecursive(mustNot[0], renderState{filtersInMustClause: st.filtersInMustClause, prefix: st.prefix, inNot: true})
		if err != nil {
			return "", err
		}
		andClauses = append(andClauses, "not "+s)
	} else if len(mustNot) > 1 {
		parts := make([]string, len(mustNot))
		for i, sub := range mustNot {
			s, err := renderRecursive(sub, renderState{filtersInMustClause: st.filtersInMustClause, prefix: st.prefix})
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		andClauses = append(andClauses, "not ("+strings.Join(parts, " or ")+")")
	}

	result := strings.Join(andClauses, " and ")
	if st.inNot && multiple {
		return "(" + result + ")", nil
	}
	return result, nil
}

func renderRange(r *query.Range, st renderState) (string, error) {
	if !strings.HasPrefix(r.Field, st.prefix) {
		return "", newRenderError("range query field does not start with prefix %q", st.prefix)
	}

	field := r.Field[len(st.prefix):]
	var clauses []string
	if r.Gt != nil {
		clauses = append(clauses, fmt.Sprintf("%s > %s", field, renderLiteral(r.Gt)))
	}
	if r.Gte != nil {
		clauses = append(clauses, fmt.Sprintf("%s >= %s", field, renderLiteral(r.Gte)))
	}
	if r.Lt != nil {
		clauses = append(clauses, fmt.Sprintf("%s < %s", field, renderLiteral(r.Lt)))
	}
	if r.Lte != nil {
		clauses = append(clauses, fmt.Sprintf("%s <= %s", field, renderLiteral(r.Lte)))
	}

	if len(clauses) > 1 && st.inNot {
		return "(" + strings.Join(clauses, " and ") + ")", nil
	}
	return strings.Join(clauses, " and "), nil
}
