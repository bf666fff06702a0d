package engine_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"wealthos.app/roundtable/internal/engine"
)

var _ = Describe("NormalizeContribution", func() {
	It("drops blank lines", func() {
		out := engine.NormalizeContribution("first\n\n  \nsecond\n")
		Expect(out).To(Equal("first\nsecond"))
	})

	It("keeps at most the first three non-blank lines", func() {
		out := engine.NormalizeContribution("a\nb\nc\nd\ne")
		Expect(out).To(Equal("a\nb\nc"))
	})

	It("trims surrounding whitespace per line", func() {
		out := engine.NormalizeContribution("  hello \n\tworld\t")
		Expect(out).To(Equal("hello\nworld"))
	})

	It("substitutes the filler for empty output", func() {
		Expect(engine.NormalizeContribution("")).To(Equal(engine.FillerContent))
		Expect(engine.NormalizeContribution("\n \n\t\n")).To(Equal(engine.FillerContent))
	})

	It("is idempotent", func() {
		inputs := []string{
			"one\ntwo\nthree\nfour",
			"  spaced  \n\nblank",
			"",
			"single",
		}
		for _, in := range inputs {
			once := engine.NormalizeContribution(in)
			Expect(engine.NormalizeContribution(once)).To(Equal(once))
		}
	})
})
