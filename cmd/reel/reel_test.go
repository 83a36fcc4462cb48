package reelcmder_test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	reelcmder "github.com/papercomputeco/reel/cmd/reel"
	"github.com/papercomputeco/reel/pkg/eventstream"
	"github.com/papercomputeco/reel/pkg/llm"
)

const openaiStream = "data: {\"id\":\"c1\",\"model\":\"gpt-4o\",\"choices\":[{\"index\":0,\"delta\":{\"content\":\"Hi\\n```go\\nx := 1\\n```\\n\"}}]}\n\n" +
	"data: {\"id\":\"c1\",\"model\":\"gpt-4o\",\"choices\":[{\"index\":0,\"delta\":{},\"finish_reason\":\"stop\"}]}\n\n" +
	"data: [DONE]\n\n"

var _ = Describe("NewReelCmd", func() {
	var configDir string

	BeforeEach(func() {
		configDir = filepath.Join(GinkgoT().TempDir(), ".reel")
	})

	run := func(stdin string, args ...string) (string, error) {
		var out, errOut bytes.Buffer
		cmd := reelcmder.NewReelCmd()
		cmd.SetIn(strings.NewReader(stdin))
		cmd.SetOut(&out)
		cmd.SetErr(&errOut)
		cmd.SetArgs(append(args, "--config-dir", configDir))
		err := cmd.Execute()
		return out.String(), err
	}

	topics := func(out string) []llm.Topic {
		var got []llm.Topic
		sc := bufio.NewScanner(strings.NewReader(out))
		for sc.Scan() {
			var env eventstream.EnvelopeEvent
			Expect(json.Unmarshal(sc.Bytes(), &env)).To(Succeed())
			got = append(got, env.Topic)
		}
		return got
	}

	It("registers the subcommands", func() {
		cmd := reelcmder.NewReelCmd()
		names := make([]string, 0, len(cmd.Commands()))
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements("parse", "serve", "config", "version"))
	})

	It("prints the version", func() {
		out, err := run("", "version")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Version:"))
		Expect(out).To(ContainSubstring("Sha:"))
	})

	Describe("parse", func() {
		It("prints one JSON event per line from stdin", func() {
			out, err := run(openaiStream, "parse", "--json")
			Expect(err).NotTo(HaveOccurred())

			got := topics(out)
			Expect(got).To(ContainElements(llm.TopicDelta, llm.TopicDone, llm.TopicCodeStart, llm.TopicCodeEnd))
			Expect(got).NotTo(ContainElement(llm.TopicRawJSON))
		})

		It("includes raw_json events with --raw", func() {
			out, err := run(openaiStream, "parse", "--json", "--raw")
			Expect(err).NotTo(HaveOccurred())
			Expect(topics(out)).To(ContainElement(llm.TopicRawJSON))
		})

		It("reads from a file argument", func() {
			path := filepath.Join(GinkgoT().TempDir(), "capture.sse")
			Expect(os.WriteFile(path, []byte(openaiStream), 0o600)).To(Succeed())

			out, err := run("", "parse", "--json", path)
			Expect(err).NotTo(HaveOccurred())
			Expect(topics(out)).To(ContainElement(llm.TopicDelta))
		})

		It("prints the final segments", func() {
			out, err := run(openaiStream, "parse", "--segments")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring(`"type": "markdown"`))
			Expect(out).To(ContainSubstring(`"type": "code"`))
			Expect(out).To(ContainSubstring(`"language": "go"`))
		})

		It("rejects an unknown provider", func() {
			_, err := run(openaiStream, "parse", "--provider", "palm")
			Expect(err).To(HaveOccurred())
		})

		It("rejects --pretty together with --json", func() {
			_, err := run(openaiStream, "parse", "--pretty", "--json")
			Expect(err).To(HaveOccurred())
		})

		It("fails on a missing file", func() {
			_, err := run("", "parse", filepath.Join(configDir, "absent.sse"))
			Expect(err).To(MatchError(ContainSubstring("opening input")))
		})
	})
})
