// Package parsecmder provides the parse command, which runs a captured
// response body through a parser session offline.
package parsecmder

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/reel/pkg/cliui"
	"github.com/papercomputeco/reel/pkg/config"
	"github.com/papercomputeco/reel/pkg/eventstream"
	"github.com/papercomputeco/reel/pkg/llm"
	"github.com/papercomputeco/reel/pkg/llm/provider"
	"github.com/papercomputeco/reel/pkg/logger"
	"github.com/papercomputeco/reel/pkg/parser"
)

const parseLongDesc string = `Parse a captured LLM response body.

Reads an SSE stream or a non-streaming JSON response from the given file
(or stdin when no file or "-" is given) and prints the events it produces.

By default one JSON object is printed per event as it is produced:
  {"topic":"or.delta","payload":{"seq":0,"content":"Hello"}}

With --pretty (the default when stdout is a terminal) the rendered
segments and a transcript summary are printed instead.

Examples:
  reel parse capture.sse
  curl -sN https://api.openai.com/v1/chat/completions ... | reel parse
  reel parse --provider anthropic --segments response.txt`

const parseShortDesc string = "Parse a captured response body"

type parseCommander struct {
	provider string
	repair   bool
	pretty   bool
	json     bool
	segments bool
	raw      bool

	in     io.Reader
	out    io.Writer
	logger *slog.Logger
}

func NewParseCmd() *cobra.Command {
	cmder := &parseCommander{}

	cmd := &cobra.Command{
		Use:   "parse [file]",
		Short: parseShortDesc,
		Long:  parseLongDesc,
		Args:  cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, []string{
				config.FlagProvider,
				config.FlagRepair,
			})
			cmder.provider = v.GetString("parser.provider")
			cmder.repair = v.GetBool("parser.repair_tool_json")
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			debug, err := cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			cmder.logger = logger.New(
				logger.WithDebug(debug),
				logger.WithPretty(true),
				logger.WithWriter(cmd.ErrOrStderr()),
			)
			cmder.out = cmd.OutOrStdout()

			if !cmd.Flags().Changed("pretty") && !cmder.json {
				cmder.pretty = isTerminal(cmder.out)
			}

			in, closer, err := openInput(cmd, args)
			if err != nil {
				return err
			}
			defer closer()
			cmder.in = in

			return cmder.run(cmd)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagProvider, &cmder.provider)
	config.AddBoolFlag(cmd, config.Flags, config.FlagRepair, &cmder.repair)
	cmd.Flags().BoolVar(&cmder.pretty, "pretty", false, "Render segments and a summary instead of JSON events")
	cmd.Flags().BoolVar(&cmder.json, "json", false, "Always print JSON events, even on a terminal")
	cmd.Flags().BoolVar(&cmder.segments, "segments", false, "Print the final segments instead of events")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Include raw_json events in the output")
	cmd.MarkFlagsMutuallyExclusive("pretty", "json")

	return cmd
}

func (c *parseCommander) run(cmd *cobra.Command) error {
	opts := []parser.Option{
		parser.WithLogger(c.logger),
		parser.WithRepair(c.repair),
	}
	prov, err := provider.Resolve(c.provider)
	if err != nil {
		return err
	}
	opts = append(opts, parser.WithProvider(prov))

	s := parser.New(opts...)
	rec, err := parser.Record(s)
	if err != nil {
		return err
	}

	streamEvents := !c.pretty && !c.segments
	var writeErr error
	if streamEvents {
		enc := json.NewEncoder(c.out)
		err := s.Subscribe(nil, func(ev llm.Event, _ eventstream.Emit) {
			if writeErr != nil {
				return
			}
			if _, isRaw := ev.(llm.RawJSON); isRaw && !c.raw {
				return
			}
			env, err := eventstream.NewEnvelopeEvent(ev)
			if err != nil {
				writeErr = err
				return
			}
			writeErr = enc.Encode(env)
		})
		if err != nil {
			return err
		}
	}

	n, err := s.Consume(cmd.Context(), c.in)
	if err != nil {
		return fmt.Errorf("parsing input: %w", err)
	}
	if writeErr != nil {
		return fmt.Errorf("writing events: %w", writeErr)
	}
	c.logger.Debug("input parsed", "bytes", n, "session_id", s.ID())

	switch {
	case c.pretty:
		if err := cliui.RenderSegments(c.out, s.Segments()); err != nil {
			return err
		}
		t, err := rec.Transcript(s)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.out)
		return cliui.RenderTranscript(c.out, t)
	case c.segments:
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(s.Segments())
	}
	return nil
}

func openInput(cmd *cobra.Command, args []string) (io.Reader, func(), error) {
	if len(args) == 0 || args[0] == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}

	f, err := os.Open(args[0])
	if err != nil {
		return nil, nil, fmt.Errorf("opening input: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
