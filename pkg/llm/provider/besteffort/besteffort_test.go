package besteffort_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/reel/pkg/llm"
	"github.com/papercomputeco/reel/pkg/llm/provider"
	"github.com/papercomputeco/reel/pkg/llm/provider/besteffort"
)

var _ = Describe("BestEffort Provider", func() {
	var p provider.Provider

	BeforeEach(func() {
		p = besteffort.New()
	})

	Describe("Name", func() {
		It("returns 'besteffort'", func() {
			Expect(p.Name()).To(Equal("besteffort"))
		})
	})

	Describe("CanHandle", func() {
		It("always returns true for any payload", func() {
			Expect(p.CanHandle([]byte(`{"anything": "here"}`))).To(BeTrue())
		})

		It("returns true for invalid JSON", func() {
			Expect(p.CanHandle([]byte(`not json`))).To(BeTrue())
		})
	})

	Describe("ParseChunk", func() {
		It("extracts legacy top-level text", func() {
			chunk, err := p.ParseChunk([]byte(`{"id":"cmpl-1","model":"legacy","text":"Hello","usage":{"input_tokens":2,"output_tokens":3}}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(chunk.Shape).To(Equal(llm.ShapeText))
			Expect(chunk.Text).To(Equal("Hello"))
			Expect(chunk.Meta).To(Equal(&llm.Meta{ID: "cmpl-1", Model: "legacy"}))
			Expect(chunk.Usage.PromptTokens).To(Equal(2))
			Expect(chunk.Usage.CompletionTokens).To(Equal(3))
			Expect(chunk.Usage.TotalTokens).To(Equal(5))
		})

		It("ignores text when a delta object exists", func() {
			chunk, err := p.ParseChunk([]byte(`{"text":"Hello","delta":{}}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(chunk.Recognized()).To(BeFalse())
		})

		It("recognizes string and object errors", func() {
			chunk, err := p.ParseChunk([]byte(`{"error":"rate limited"}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(chunk.Shape).To(Equal(llm.ShapeError))
			Expect(chunk.Error).To(Equal("rate limited"))

			chunk, err = p.ParseChunk([]byte(`{"error":{"message":"bad key","code":401}}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(chunk.Error).To(Equal("bad key"))
		})

		It("reports unknown shapes", func() {
			for _, payload := range []string{`{"anything":"here"}`, `[1,2,3]`, `42`, `"str"`} {
				chunk, err := p.ParseChunk([]byte(payload))
				Expect(err).NotTo(HaveOccurred())
				Expect(chunk.Shape).To(Equal(llm.ShapeUnknown))
			}
		})
	})
})
