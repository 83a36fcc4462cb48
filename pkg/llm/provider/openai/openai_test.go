package openai_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/reel/pkg/llm"
	"github.com/papercomputeco/reel/pkg/llm/provider"
	"github.com/papercomputeco/reel/pkg/llm/provider/openai"
)

var _ = Describe("OpenAI Provider", func() {
	var p provider.Provider

	BeforeEach(func() {
		p = openai.New()
	})

	Describe("Name", func() {
		It("returns 'openai'", func() {
			Expect(p.Name()).To(Equal("openai"))
		})
	})

	Describe("CanHandle", func() {
		It("returns true for chat completion chunks", func() {
			payload := []byte(`{"id":"chatcmpl-1","object":"chat.completion.chunk","choices":[]}`)
			Expect(p.CanHandle(payload)).To(BeTrue())
		})

		It("returns true for a bare choices array", func() {
			payload := []byte(`{"choices":[{"delta":{"content":"Hello"}}]}`)
			Expect(p.CanHandle(payload)).To(BeTrue())
		})

		It("returns true for images responses", func() {
			payload := []byte(`{"created":1,"data":[{"b64_json":"aGk="}]}`)
			Expect(p.CanHandle(payload)).To(BeTrue())
		})

		It("returns false for Anthropic events", func() {
			payload := []byte(`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hi"}}`)
			Expect(p.CanHandle(payload)).To(BeFalse())
		})

		It("returns false for invalid JSON", func() {
			Expect(p.CanHandle([]byte(`{not json`))).To(BeFalse())
		})
	})

	Describe("ParseChunk", func() {
		It("extracts meta from the chunk envelope", func() {
			chunk, err := p.ParseChunk([]byte(`{
				"id": "gen-1",
				"provider": "OpenAI",
				"model": "openai/gpt-4o",
				"created": 1735689600,
				"system_fingerprint": "fp_1",
				"choices": [{"index": 0, "delta": {"role": "assistant", "content": ""}}]
			}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(chunk.Shape).To(Equal(llm.ShapeChatCompletion))
			Expect(chunk.Meta).To(Equal(&llm.Meta{
				ID:                "gen-1",
				Model:             "openai/gpt-4o",
				Provider:          "OpenAI",
				Created:           1735689600,
				SystemFingerprint: "fp_1",
			}))
			Expect(chunk.Text).To(BeEmpty())
		})

		It("leaves meta unset without an id", func() {
			chunk, err := p.ParseChunk([]byte(`{"choices":[{"delta":{"content":"Hello"}}]}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(chunk.Meta).To(BeNil())
			Expect(chunk.Text).To(Equal("Hello"))
		})

		It("concatenates text content blocks", func() {
			chunk, err := p.ParseChunk([]byte(`{"choices":[{"delta":{"content":[
				{"type":"text","text":"Hel"},
				{"type":"image_url","image_url":{"url":"https://x"}},
				{"type":"text","text":"lo"}
			]}}]}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(chunk.Text).To(Equal("Hello"))
		})

		It("prefers tool-call arguments over content", func() {
			chunk, err := p.ParseChunk([]byte(`{"choices":[{"delta":{
				"content": "ignored",
				"tool_calls": [{"index":0,"id":"call_1","type":"function","function":{"name":"get_weather","arguments":"{\"ci"}}]
			}}]}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(chunk.Text).To(Equal(`{"ci`))
			Expect(chunk.ToolCalls).To(Equal([]llm.ToolCallDelta{
				{Index: 0, ID: "call_1", Name: "get_weather", Arguments: `{"ci`},
			}))
		})

		It("keeps parallel tool-call indexes", func() {
			chunk, err := p.ParseChunk([]byte(`{"choices":[{"delta":{"tool_calls":[
				{"index":1,"function":{"arguments":"{}"}},
				{"index":2,"id":"call_3","function":{"name":"b","arguments":""}}
			]}}]}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(chunk.ToolCalls).To(HaveLen(2))
			Expect(chunk.ToolCalls[0].Index).To(Equal(1))
			Expect(chunk.ToolCalls[1].Index).To(Equal(2))
			Expect(chunk.Text).To(Equal("{}"))
		})

		It("maps legacy function_call to tool index 0", func() {
			chunk, err := p.ParseChunk([]byte(`{"choices":[{"delta":{"function_call":{"name":"lookup","arguments":"{\"q\":1}"}}}]}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(chunk.Text).To(Equal(`{"q":1}`))
			Expect(chunk.ToolCalls).To(Equal([]llm.ToolCallDelta{
				{Index: 0, Name: "lookup", Arguments: `{"q":1}`},
			}))
		})

		It("serializes tool_use content blocks", func() {
			chunk, err := p.ParseChunk([]byte(`{"choices":[{"delta":{"content":[
				{"type":"text","text":"calling"},
				{"type":"tool_use","id":"toolu_1","name":"search","input":{ "q" : "go" }}
			]}}]}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(chunk.Text).To(Equal(`{"q":"go"}`))
			Expect(chunk.ToolUses).To(Equal([]llm.ToolComplete{
				{Index: 1, CallID: "toolu_1", FunctionName: "search", Arguments: `{"q":"go"}`},
			}))
		})

		It("falls back to legacy completion text", func() {
			chunk, err := p.ParseChunk([]byte(`{"object":"text_completion","choices":[{"text":"Once","finish_reason":null}]}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(chunk.Text).To(Equal("Once"))
			Expect(chunk.FinishReasons).To(BeEmpty())
		})

		It("collects finish reasons per choice", func() {
			chunk, err := p.ParseChunk([]byte(`{"choices":[
				{"index":0,"delta":{},"finish_reason":"stop"},
				{"index":1,"delta":{},"finish_reason":"length"}
			]}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(chunk.FinishReasons).To(Equal([]string{"stop", "length"}))
		})

		It("extracts usage with cost", func() {
			chunk, err := p.ParseChunk([]byte(`{"choices":[],"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15,"cost":0.0012}}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(chunk.Usage).NotTo(BeNil())
			Expect(chunk.Usage.PromptTokens).To(Equal(10))
			Expect(chunk.Usage.CompletionTokens).To(Equal(5))
			Expect(chunk.Usage.TotalTokens).To(Equal(15))
			Expect(chunk.Usage.Cost).To(HaveValue(BeNumerically("~", 0.0012)))
			Expect(chunk.UsagePartial).To(BeFalse())
		})

		It("extracts delta images", func() {
			chunk, err := p.ParseChunk([]byte(`{"choices":[{"delta":{"images":[
				{"type":"image_url","image_url":{"url":"data:image/png;base64,aGk="}},
				{"type":"image_url","image_url":{"url":"https://cdn.example.com/a.png"}}
			]}}]}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(chunk.Images).To(Equal([]llm.Image{
				{Index: 0, B64: "data:image/png;base64,aGk="},
				{Index: 1, URL: "https://cdn.example.com/a.png"},
			}))
		})

		It("extracts images API data entries", func() {
			chunk, err := p.ParseChunk([]byte(`{"created":1,"data":[{"b64_json":"aGk="},{"url":"https://x/y.png"},{}]}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(chunk.Shape).To(Equal(llm.ShapeImageData))
			Expect(chunk.Images).To(Equal([]llm.Image{
				{Index: 0, B64: "aGk="},
				{Index: 1, URL: "https://x/y.png"},
			}))
		})

		It("returns an error for invalid JSON", func() {
			_, err := p.ParseChunk([]byte(`{"choices":`))
			Expect(err).To(HaveOccurred())
		})
	})
})
