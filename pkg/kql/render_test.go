// Copyright (c) 2024 Tigera, Inc. All rights reserved.

package kql_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/thomas-touhey/kaquel/pkg/kql"
	"github.com/thomas-touhey/kaquel/pkg/query"
)

var _ = Describe("RenderAsKQL", func() {
	DescribeTable("round-trips through Parse",
		func(kuery string) {
			q, err := kql.Parse(kuery)
			Expect(err).NotTo(HaveOccurred())

			rendered, err := kql.RenderAsKQL(q)
			Expect(err).NotTo(HaveOccurred())

			reparsed, err := kql.Parse(rendered)
			Expect(err).NotTo(HaveOccurred())

			original, err := q.Source()
			Expect(err).NotTo(HaveOccurred())
			roundTripped, err := reparsed.Source()
			Expect(err).NotTo(HaveOccurred())
			Expect(roundTripped).To(Equal(original))
		},
		Entry("bare literal", "quick brown"),
		Entry("bare phrase", `"quick brown fox"`),
		Entry("simple match", "http.request.method: GET"),
		Entry("existence check", "a: *"),
		Entry("and expression", "a: 1 and b: 2"),
		Entry("or expression", "a: 1 or b: 2"),
		Entry("not expression", "not a: 1"),
		Entry("gt range", "status > 400"),
		Entry("compound range", "status >= 400 and status < 500"),
		Entry("nested field", "user: { name: alice and age > 20 }"),
	)

	It("renders the empty query as a lone wildcard", func() {
		s, err := kql.RenderAsKQL(query.MatchAll{})
		Expect(err).NotTo(HaveOccurred())
		Expect(s).To(Equal("*"))
	})

	It("fails to render a wildcard query, which has no KQL representation", func() {
		_, err := kql.RenderAsKQL(query.Wildcard{Field: "a", Value: "b*"})
		Expect(err).To(HaveOccurred())
	})

	It("fails to render a must clause when filters_in_must_clause is false", func() {
		b := query.NewBool([]query.Query{query.Exists{Field: "a"}}, nil, nil, nil, nil)
		_, err := kql.RenderAsKQL(b)
		Expect(err).To(HaveOccurred())
	})

	It("renders a must clause when filters_in_must_clause is true", func() {
		b := query.NewBool([]query.Query{query.Exists{Field: "a"}, query.Exists{Field: "b"}}, nil, nil, nil, nil)
		s, err := kql.RenderAsKQL(b, kql.WithFiltersInMustClause(true))
		Expect(err).NotTo(HaveOccurred())
		Expect(s).To(Equal("a: * and b: *"))
	})
})
