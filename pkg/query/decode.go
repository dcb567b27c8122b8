// Copyright (c) 2024 Tigera, Inc. All rights reserved.

package query

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

// Decode reconstructs a Query AST from an already-decoded ElasticSearch
// Query DSL JSON object, e.g. the output of json.Unmarshal into a
// map[string]interface{}. It additionally understands "wildcard",
// "regexp", "fuzzy", "prefix" and "term" shapes.
func Decode(m map[string]interface{}) (Query, error) {
	if len(m) != 1 {
		return nil, errors.Errorf("expected exactly one query kind, got %d", len(m))
	}

	for kind, body := range m {
		switch kind {
		case "match_all":
			return MatchAll{}, nil
		case "match_none":
			return MatchNone{}, nil
		case "bool":
			return decodeBool(body)
		case "exists":
			return decodeExists(body)
		case "match":
			return decodeFieldValue(body, "match")
		case "match_phrase":
			return decodeFieldValue(body, "match_phrase")
		case "match_phrase_prefix":
			return decodeFieldValue(body, "match_phrase_prefix")
		case "multi_match":
			return decodeMultiMatch(body)
		case "nested":
			return decodeNested(body)
		case "query_string":
			return decodeQueryString(body)
		case "range":
			return decodeRange(body)
		case "term":
			return decodeFieldValue(body, "term")
		case "wildcard":
			return decodeFieldValue(body, "wildcard")
		case "regexp":
			return decodeFieldValue(body, "regexp")
		case "prefix":
			return decodeFieldValue(body, "prefix")
		case "fuzzy":
			return decodeFieldValue(body, "fuzzy")
		default:
			return nil, errors.Errorf("unsupported query kind %q", kind)
		}
	}

	panic("unreachable")
}

// DecodeJSON decodes raw JSON bytes into a Query, supplementing Decode to
// accept the wire format directly rather than a pre-decoded mapping.
func DecodeJSON(data []byte) (Query, error) {
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, "decoding ES query JSON")
	}
	return Decode(m)
}

// DecodeReader decodes a Query from an io.Reader of ES-DSL JSON.
func DecodeReader(r io.Reader) (Query, error) {
	var m map[string]interface{}
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, errors.Wrap(err, "decoding ES query JSON")
	}
	return Decode(m)
}

func asObject(body interface{}, kind string) (map[string]interface{}, error) {
	m, ok := body.(map[string]interface{})
	if !ok {
		return nil, errors.Errorf("%s query body must be an object", kind)
	}
	return m, nil
}

// singleField returns the sole key/value pair of an object shaped like
// {"<field>": ...}.
func singleField(m map[string]interface{}, kind string) (string, interface{}, error) {
	if len(m) != 1 {
		return "", nil, errors.Errorf("%s query must name exactly one field", kind)
	}
	for k, v := range m {
		return k, v, nil
	}
	panic("unreachable")
}

func decodeFieldValue(body interface{}, kind string) (Query, error) {
	m, err := asObject(body, kind)
	if err != nil {
		return nil, err
	}

	field, value, err := singleField(m, kind)
	if err != nil {
		return nil, err
	}

	switch kind {
	case "match":
		field, operator, query, err := decodeMatchLike(field, value, kind)
		if err != nil {
			return nil, err
		}
		return Match{Field: field, Value: query, Operator: operator}, nil
	case "match_phrase":
		return MatchPhrase{Field: field, Value: unwrapQueryField(value)}, nil
	case "match_phrase_prefix":
		return MatchPhrasePrefix{Field: field, Value: unwrapQueryField(value)}, nil
	case "term":
		return Term{Field: field, Value: unwrapValueField(value)}, nil
	case "wildcard":
		v, err := stringValueField(value, kind)
		if err != nil {
			return nil, err
		}
		return Wildcard{Field: field, Value: v}, nil
	case "prefix":
		v, err := stringValueField(value, kind)
		if err != nil {
			return nil, err
		}
		return Prefix{Field: field, Value: v}, nil
	case "regexp":
		v, err := stringValueField(value, kind)
		if err != nil {
			return nil, err
		}
		return Regexp{Field: field, Value: v}, nil
	case "fuzzy":
		return decodeFuzzy(field, value)
	default:
		return nil, errors.Errorf("unsupported field-value query kind %q", kind)
	}
}

// decodeMatchLike handles the two shapes ElasticSearch accepts for
// "match": a bare value, or {"query": ..., "operator": "and"|"or"}.
func decodeMatchLike(field string, value interface{}, kind string) (string, Operator, interface{}, error) {
	if obj, ok := value.(map[string]interface{}); ok {
		q, ok := obj["query"]
		if !ok {
			return "", "", nil, errors.Errorf("%s query object must set %q", kind, "query")
		}
		op := OperatorOR
		if raw, ok := obj["operator"]; ok {
			s, ok := raw.(string)
			if !ok {
				return "", "", nil, errors.Errorf("%s.operator must be a string", kind)
			}
			if s == string(OperatorAND) {
				op = OperatorAND
			}
		}
		return field, op, q, nil
	}
	return field, OperatorOR, value, nil
}

func unwrapQueryField(value interface{}) interface{} {
	if obj, ok := value.(map[string]interface{}); ok {
		if q, ok := obj["query"]; ok {
			return q
		}
	}
	return value
}

func unwrapValueField(value interface{}) interface{} {
	if obj, ok := value.(map[string]interface{}); ok {
		if v, ok := obj["value"]; ok {
			return v
		}
	}
	return value
}

func stringValueField(value interface{}, kind string) (string, error) {
	unwrapped := unwrapValueField(value)
	s, ok := unwrapped.(string)
	if !ok {
		return "", errors.Errorf("%s query value must be a string", kind)
	}
	return s, nil
}

func decodeFuzzy(field string, value interface{}) (Query, error) {
	if s, ok := value.(string); ok {
		return Fuzzy{Field: field, Value: s}, nil
	}

	obj, ok := value.(map[string]interface{})
	if !ok {
		return nil, errors.New("fuzzy query value must be a string or an object")
	}

	v, ok := obj["value"].(string)
	if !ok {
		return nil, errors.New("fuzzy query object must set a string \"value\"")
	}

	f := Fuzzy{Field: field, Value: v}
	if fuzziness, ok := obj["fuzziness"]; ok {
		f.Fuzziness = fuzziness
	}
	return f, nil
}

func decodeExists(body interface{}) (Query, error) {
	m, err := asObject(body, "exists")
	if err != nil {
		return nil, err
	}
	field, ok := m["field"].(string)
	if !ok {
		return nil, errors.New("exists query must set a string \"field\"")
	}
	return Exists{Field: field}, nil
}

func decodeQueryString(body interface{}) (Query, error) {
	m, err := asObject(body, "query_string")
	if err != nil {
		return nil, err
	}
	q, ok := m["query"].(string)
	if !ok {
		return nil, errors.New("query_string query must set a string \"query\"")
	}
	return QueryString{Query: q}, nil
}

func decodeRange(body interface{}) (Query, error) {
	m, err := asObject(body, "range")
	if err != nil {
		return nil, err
	}

	field, value, err := singleField(m, "range")
	if err != nil {
		return nil, err
	}

	bounds, ok := value.(map[string]interface{})
	if !ok {
		return nil, errors.New("range query field body must be an object")
	}

	r := &Range{Field: field, Gt: bounds["gt"], Gte: bounds["gte"], Lt: bounds["lt"], Lte: bounds["lte"]}
	if tz, ok := bounds["time_zone"].(string); ok {
		r.TimeZone = tz
	}
	if r.Gt == nil && r.Gte == nil && r.Lt == nil && r.Lte == nil {
		return nil, errors.Errorf("range query on field %q must set at least one bound", field)
	}
	return r, nil
}

func decodeMultiMatch(body interface{}) (Query, error) {
	m, err := asObject(body, "multi_match")
	if err != nil {
		return nil, err
	}

	q, ok := m["query"].(string)
	if !ok {
		return nil, errors.New("multi_match query must set a string \"query\"")
	}

	mm := MultiMatch{Value: q}

	if rawFields, ok := m["fields"]; ok {
		fields, ok := rawFields.([]interface{})
		if !ok {
			return nil, errors.New("multi_match.fields must be an array")
		}
		for _, rf := range fields {
			f, ok := rf.(string)
			if !ok {
				return nil, errors.New("multi_match.fields entries must be strings")
			}
			mm.Fields = append(mm.Fields, f)
		}
	}

	if t, ok := m["type"].(string); ok {
		mm.Type = MultiMatchType(t)
	}
	if op, ok := m["operator"].(string); ok && op == string(OperatorAND) {
		mm.Operator = OperatorAND
	}
	if lenient, ok := m["lenient"].(bool); ok {
		mm.Lenient = lenient
	}

	return mm, nil
}

func decodeNested(body interface{}) (Query, error) {
	m, err := asObject(body, "nested")
	if err != nil {
		return nil, err
	}

	path, ok := m["path"].(string)
	if !ok {
		return nil, errors.New("nested query must set a string \"path\"")
	}

	innerRaw, ok := m["query"].(map[string]interface{})
	if !ok {
		return nil, errors.New("nested query must set an object \"query\"")
	}
	inner, err := Decode(innerRaw)
	if err != nil {
		return nil, errors.Wrap(err, "decoding nested.query")
	}

	n := Nested{Path: path, Query: inner, ScoreMode: ScoreModeAvg}
	if sm, ok := m["score_mode"].(string); ok {
		n.ScoreMode = NestedScoreMode(sm)
	}
	return n, nil
}

func decodeBool(body interface{}) (Query, error) {
	m, err := asObject(body, "bool")
	if err != nil {
		return nil, err
	}

	must, err := decodeClauseList(m["must"])
	if err != nil {
		return nil, errors.Wrap(err, "decoding bool.must")
	}
	filter, err := decodeClauseList(m["filter"])
	if err != nil {
		return nil, errors.Wrap(err, "decoding bool.filter")
	}
	should, err := decodeClauseList(m["should"])
	if err != nil {
		return nil, errors.Wrap(err, "decoding bool.should")
	}
	mustNot, err := decodeClauseList(m["must_not"])
	if err != nil {
		return nil, errors.Wrap(err, "decoding bool.must_not")
	}

	var minShouldMatch *int
	if raw, ok := m["minimum_should_match"]; ok {
		f, ok := raw.(float64)
		if !ok {
			return nil, errors.New("bool.minimum_should_match must be a number")
		}
		v := int(f)
		minShouldMatch = &v
	}

	return NewBool(must, filter, should, mustNot, minShouldMatch), nil
}

// decodeClauseList decodes a bool clause list's canonical shape: an
// absent key, a bare query object, or an array of query objects.
func decodeClauseList(raw interface{}) ([]Query, error) {
	if raw == nil {
		return nil, nil
	}

	switch v := raw.(type) {
	case map[string]interface{}:
		q, err := Decode(v)
		if err != nil {
			return nil, err
		}
		return []Query{q}, nil
	case []interface{}:
		clauses := make([]Query, 0, len(v))
		for i, entry := range v {
			obj, ok := entry.(map[string]interface{})
			if !ok {
				return nil, errors.Errorf("clause %d must be an object", i)
			}
			q, err := Decode(obj)
			if err != nil {
				return nil, errors.Wrapf(err, "clause %d", i)
			}
			clauses = append(clauses, q)
		}
		return clauses, nil
	default:
		return nil, errors.New("clause list must be an object or an array of objects")
	}
}
