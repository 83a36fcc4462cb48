package transcriptscmder_test

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	reelcmder "github.com/papercomputeco/reel/cmd/reel"
	"github.com/papercomputeco/reel/pkg/eventstream"
	"github.com/papercomputeco/reel/pkg/llm"
	"github.com/papercomputeco/reel/pkg/storage/sqlite"
)

var epoch = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

func recorded(id, session string, offset int) *eventstream.Transcript {
	return &eventstream.Transcript{
		SchemaVersion: eventstream.SchemaVersionV1,
		EventType:     eventstream.EventTypeStreamParsed,
		EventID:       id,
		EmittedAt:     epoch.Add(time.Duration(offset) * time.Second),
		SessionID:     session,
		Source:        eventstream.TranscriptSource{Provider: "openai"},
		Meta:          &llm.Meta{ID: "chatcmpl-" + id, Model: "gpt-4o"},
		Text:          "answer " + id,
		FinishReason:  "stop",
		Events: []eventstream.EnvelopeEvent{
			{Topic: llm.TopicDelta, Payload: json.RawMessage(`{"seq":0,"content":"answer"}`)},
		},
	}
}

var _ = Describe("NewTranscriptsCmd", func() {
	var (
		dbPath    string
		configDir string
	)

	BeforeEach(func() {
		dir := GinkgoT().TempDir()
		dbPath = filepath.Join(dir, "reel.sqlite")
		configDir = filepath.Join(dir, ".reel")
		GinkgoT().Setenv("REEL_SQLITE", "")

		st, err := sqlite.NewDriver(dbPath)
		Expect(err).NotTo(HaveOccurred())
		for i, t := range []*eventstream.Transcript{
			recorded("evt-1", "sess-a", 0),
			recorded("evt-2", "sess-b", 1),
			recorded("evt-3", "sess-a", 2),
		} {
			inserted, err := st.Put(context.Background(), t)
			Expect(err).NotTo(HaveOccurred(), "transcript %d", i)
			Expect(inserted).To(BeTrue())
		}
		Expect(st.Close()).To(Succeed())
	})

	run := func(args ...string) (string, error) {
		var out bytes.Buffer
		cmd := reelcmder.NewReelCmd()
		cmd.SetOut(&out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(append(args, "--config-dir", configDir))
		err := cmd.Execute()
		return out.String(), err
	}

	It("lists transcripts newest first", func() {
		out, err := run("transcripts", "list", "--sqlite", dbPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("evt-3"))
		Expect(out).To(ContainSubstring("openai gpt-4o"))
		Expect(bytes.Index([]byte(out), []byte("evt-3"))).To(BeNumerically("<", bytes.Index([]byte(out), []byte("evt-1"))))
	})

	It("filters by session and limits as JSON without events", func() {
		out, err := run("transcripts", "list", "--sqlite", dbPath, "--session", "sess-a", "-n", "1", "--json")
		Expect(err).NotTo(HaveOccurred())

		var got []*eventstream.Transcript
		Expect(json.Unmarshal([]byte(out), &got)).To(Succeed())
		Expect(got).To(HaveLen(1))
		Expect(got[0].EventID).To(Equal("evt-3"))
		Expect(got[0].Events).To(BeEmpty())
	})

	It("shows one transcript with its events", func() {
		out, err := run("transcripts", "show", "evt-2", "--sqlite", dbPath, "--json")
		Expect(err).NotTo(HaveOccurred())

		var got eventstream.Transcript
		Expect(json.Unmarshal([]byte(out), &got)).To(Succeed())
		Expect(got.SessionID).To(Equal("sess-b"))
		Expect(got.Events).To(HaveLen(1))
	})

	It("renders a summary by default", func() {
		out, err := run("transcripts", "show", "evt-1", "--sqlite", dbPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("sess-a"))
		Expect(out).To(ContainSubstring("answer evt-1"))
	})

	It("reports missing transcripts", func() {
		_, err := run("transcripts", "show", "evt-9", "--sqlite", dbPath)
		Expect(err).To(MatchError(ContainSubstring("transcript not found: evt-9")))
	})

	It("reads the database path from storage config", func() {
		GinkgoT().Setenv("REEL_STORAGE_SQLITE_PATH", dbPath)
		out, err := run("transcripts", "list")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("evt-2"))
	})
})
