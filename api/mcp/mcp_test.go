package mcp_test

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/reel/api/mcp"
	"github.com/papercomputeco/reel/pkg/eventstream"
	"github.com/papercomputeco/reel/pkg/llm"
	reellogger "github.com/papercomputeco/reel/pkg/logger"
	"github.com/papercomputeco/reel/pkg/storage"
	"github.com/papercomputeco/reel/pkg/storage/inmemory"
)

const toolStream = `data: {"id":"c1","model":"gpt-4o","choices":[{"index":0,"delta":{"content":"see:\n` + "```" + `sh\nls\n` + "```" + `\n"}}]}` + "\n\n" +
	`data: {"id":"c1","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_1","function":{"name":"run","arguments":"{\"cmd\":"}}]}}]}` + "\n\n" +
	`data: {"id":"c1","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"\"ls\"}"}}]},"finish_reason":"tool_calls"}]}` + "\n\n" +
	"data: [DONE]\n\n"

// failingStore is a store whose reads fail.
type failingStore struct {
	storage.Driver
}

func (failingStore) List(context.Context, storage.ListOptions) ([]*eventstream.Transcript, error) {
	return nil, errors.New("disk on fire")
}

// errorText returns the text of an error result.
func errorText(res *sdk.CallToolResult) string {
	Expect(res.IsError).To(BeTrue())
	text, ok := res.Content[0].(*sdk.TextContent)
	Expect(ok).To(BeTrue())
	return text.Text
}

// connect serves server over in-memory transports and returns a client session.
func connect(server *mcp.Server) *sdk.ClientSession {
	ctx := context.Background()
	clientTransport, serverTransport := sdk.NewInMemoryTransports()

	ss, err := server.MCPServer().Connect(ctx, serverTransport, nil)
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(func() { _ = ss.Close() })

	client := sdk.NewClient(&sdk.Implementation{Name: "reel-test", Version: "v0.0.0"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(func() { _ = cs.Close() })

	return cs
}

// callTool invokes name and decodes its JSON text content into out.
func callTool(cs *sdk.ClientSession, name string, args map[string]any, out any) *sdk.CallToolResult {
	res, err := cs.CallTool(context.Background(), &sdk.CallToolParams{Name: name, Arguments: args})
	Expect(err).NotTo(HaveOccurred())
	Expect(res.Content).NotTo(BeEmpty())

	if out != nil && !res.IsError {
		text, ok := res.Content[0].(*sdk.TextContent)
		Expect(ok).To(BeTrue())
		Expect(json.Unmarshal([]byte(text.Text), out)).To(Succeed())
	}
	return res
}

var _ = Describe("MCP Server", func() {
	var store *inmemory.Driver

	BeforeEach(func() {
		store = inmemory.NewDriver()
	})

	Describe("NewServer", func() {
		It("returns an error when logger is nil", func() {
			_, err := mcp.NewServer(mcp.Config{})
			Expect(err).To(MatchError(ContainSubstring("logger is required")))
		})

		It("creates an empty server in noop mode", func() {
			server, err := mcp.NewServer(mcp.Config{Noop: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(server.Handler()).NotTo(BeNil())
		})

		It("only registers transcript tools with a store", func() {
			server, err := mcp.NewServer(mcp.Config{Logger: reellogger.Nop()})
			Expect(err).NotTo(HaveOccurred())

			res, err := connect(server).ListTools(context.Background(), nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Tools).To(HaveLen(1))
			Expect(res.Tools[0].Name).To(Equal("parse_response"))
		})
	})

	Describe("parse_response", func() {
		var cs *sdk.ClientSession

		BeforeEach(func() {
			server, err := mcp.NewServer(mcp.Config{Logger: reellogger.Nop(), Store: store})
			Expect(err).NotTo(HaveOccurred())
			cs = connect(server)
		})

		It("returns text, tool calls, and segments", func() {
			var out mcp.TranscriptOutput
			res := callTool(cs, "parse_response", map[string]any{"body": toolStream}, &out)
			Expect(res.IsError).To(BeFalse())

			Expect(out.Model).To(Equal("gpt-4o"))
			Expect(out.FinishReason).To(Equal("tool_calls"))
			Expect(out.ToolCalls).To(Equal([]mcp.ToolCall{{CallID: "call_1", Name: "run", Arguments: `{"cmd":"ls"}`}}))
			Expect(out.Segments).To(ContainElement(mcp.Segment{Type: "code", Language: "sh", Content: "ls\n", Complete: true}))
			Expect(out.Stats.SawDone).To(BeTrue())
		})

		It("reports an unknown provider as a tool error", func() {
			res := callTool(cs, "parse_response", map[string]any{"body": toolStream, "provider": "palm"}, nil)
			Expect(errorText(res)).To(ContainSubstring("palm"))
		})
	})

	Describe("transcript tools", func() {
		var cs *sdk.ClientSession

		BeforeEach(func() {
			base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
			for i, id := range []string{"e1", "e2"} {
				_, err := store.Put(context.Background(), &eventstream.Transcript{
					EventID:   id,
					SessionID: "s1",
					EmittedAt: base.Add(time.Duration(i) * time.Minute),
					Source:    eventstream.TranscriptSource{Provider: "openai"},
					Text:      "answer " + id,
					Usage:     &llm.Usage{TotalTokens: 10 + i},
				})
				Expect(err).NotTo(HaveOccurred())
			}

			server, err := mcp.NewServer(mcp.Config{Logger: reellogger.Nop(), Store: store})
			Expect(err).NotTo(HaveOccurred())
			cs = connect(server)
		})

		It("lists transcripts newest first", func() {
			var out mcp.ListOutput
			callTool(cs, "list_transcripts", map[string]any{"session_id": "s1"}, &out)

			Expect(out.Count).To(Equal(2))
			Expect(out.Transcripts[0].EventID).To(Equal("e2"))
			Expect(out.Transcripts[0].Preview).To(Equal("answer e2"))
			Expect(out.Transcripts[0].TotalTokens).To(Equal(11))
		})

		It("gets a transcript by event id", func() {
			var out mcp.TranscriptOutput
			callTool(cs, "get_transcript", map[string]any{"event_id": "e1"}, &out)

			Expect(out.Text).To(Equal("answer e1"))
			Expect(out.Usage.TotalTokens).To(Equal(10))
		})

		It("reports a missing transcript as a tool error", func() {
			res := callTool(cs, "get_transcript", map[string]any{"event_id": "nope"}, nil)
			Expect(errorText(res)).To(Equal("transcript not found: nope"))
		})

		It("reports store failures as a tool error", func() {
			server, err := mcp.NewServer(mcp.Config{Logger: reellogger.Nop(), Store: failingStore{Driver: store}})
			Expect(err).NotTo(HaveOccurred())

			res := callTool(connect(server), "list_transcripts", map[string]any{}, nil)
			Expect(errorText(res)).To(ContainSubstring("disk on fire"))
		})
	})
})
