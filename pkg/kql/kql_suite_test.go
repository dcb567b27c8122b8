// Copyright (c) 2024 Tigera, Inc. All rights reserved.

package kql_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestKQL(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "kql Suite")
}
