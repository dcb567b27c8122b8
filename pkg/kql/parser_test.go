// Copyright (c) 2024 Tigera, Inc. All rights reserved.

package kql_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/thomas-touhey/kaquel/pkg/diag"
	"github.com/thomas-touhey/kaquel/pkg/kql"
)

func render(q interface{ Source() (interface{}, error) }) string {
	v, err := q.Source()
	Expect(err).NotTo(HaveOccurred())
	data, err := json.Marshal(v)
	Expect(err).NotTo(HaveOccurred())
	return string(data)
}

var _ = Describe("Parse", func() {
	DescribeTable("valid KQL expressions",
		func(kuery, expectedJSON string) {
			q, err := kql.Parse(kuery)
			Expect(err).NotTo(HaveOccurred())
			Expect(render(q)).To(MatchJSON(expectedJSON))
		},
		Entry("empty query", "", `{"match_all":{}}`),
		Entry("bare literal", "quick brown", `{"multi_match":{"query":"quick brown","lenient":true}}`),
		Entry("bare phrase", `"quick brown"`, `{"multi_match":{"query":"quick brown","type":"phrase","lenient":true}}`),
		Entry("basic match", "http.request.method: GET",
			`{"match":{"http.request.method":"GET"}}`),
		Entry("quoted phrase match", `message: "quick brown fox"`,
			`{"match_phrase":{"message":"quick brown fox"}}`),
		Entry("existence check", "http.request.method: *",
			`{"exists":{"field":"http.request.method"}}`),
		Entry("field-qualified wildcard collapses to match_all", "*: *", `{"match_all":{}}`),
		Entry("or list", "status: (400 or 404)",
			`{"bool":{"should":[{"match":{"status":"400"}},{"match":{"status":"404"}}],"minimum_should_match":1}}`),
		Entry("and list", "status: (400 and 404)",
			`{"bool":{"filter":[{"match":{"status":"400"}},{"match":{"status":"404"}}]}}`),
		Entry("and expression", "a: 1 and b: 2",
			`{"bool":{"filter":[{"match":{"a":"1"}},{"match":{"b":"2"}}]}}`),
		Entry("or expression", "a: 1 or b: 2",
			`{"bool":{"should":[{"match":{"a":"1"}},{"match":{"b":"2"}}],"minimum_should_match":1}}`),
		Entry("not expression", "not a: 1",
			`{"bool":{"must_not":{"match":{"a":"1"}}}}`),
		Entry("gt range", "status > 400", `{"range":{"status":{"gt":400}}}`),
		Entry("gte range", "status >= 400", `{"range":{"status":{"gte":400}}}`),
		Entry("lt range", "status < 500", `{"range":{"status":{"lt":500}}}`),
		Entry("lte range", "status <= 500", `{"range":{"status":{"lte":500}}}`),
		Entry("nested field", "user: { name: alice and age > 20 }",
			`{"nested":{"path":"user","query":{"bool":{"filter":[{"match":{"user.name":"alice"}},{"range":{"user.age":{"gt":20}}}]}},"score_mode":"none"}}`),
		Entry("parenthesized group", "(a: 1 or a: 2) and b: 3",
			`{"bool":{"filter":[{"bool":{"should":[{"match":{"a":"1"}},{"match":{"a":"2"}}],"minimum_should_match":1}},{"match":{"b":"3"}}]}}`),
	)

	DescribeTable("filters_in_must_clause option",
		func(kuery string, mustClause bool, expectedJSON string) {
			q, err := kql.Parse(kuery, kql.WithFiltersInMustClause(mustClause))
			Expect(err).NotTo(HaveOccurred())
			Expect(render(q)).To(MatchJSON(expectedJSON))
		},
		Entry("default places implicit AND in filter", "a: 1 and b: 2", false,
			`{"bool":{"filter":[{"match":{"a":"1"}},{"match":{"b":"2"}}]}}`),
		Entry("option places implicit AND in must", "a: 1 and b: 2", true,
			`{"bool":{"must":[{"match":{"a":"1"}},{"match":{"b":"2"}}]}}`),
	)

	It("rejects leading wildcards when disabled", func() {
		_, err := kql.Parse("a: *foo", kql.WithAllowLeadingWildcards(false))
		Expect(err).To(HaveOccurred())
	})

	It("allows leading wildcards by default", func() {
		q, err := kql.Parse("a: *foo")
		Expect(err).NotTo(HaveOccurred())
		Expect(render(q)).To(MatchJSON(`{"match":{"a":"*foo"}}`))
	})

	It("reports a decode error with position on malformed input", func() {
		_, err := kql.Parse(`a: "unterminated`)
		Expect(err).To(HaveOccurred())
		Expect(err).To(BeAssignableToTypeOf(&diag.DecodeError{}))
		Expect(err.(*diag.DecodeError).Position).To(Equal(diag.Position{Offset: 3, Line: 1, Column: 4}))
	})

	It("reports a decode error on an unexpected token", func() {
		_, err := kql.Parse("a: (1 or")
		Expect(err).To(HaveOccurred())
	})
})
