// Package reelcmder
package reelcmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/reel/cmd/reel/config"
	parsecmder "github.com/papercomputeco/reel/cmd/reel/parse"
	servecmder "github.com/papercomputeco/reel/cmd/reel/serve"
	transcriptscmder "github.com/papercomputeco/reel/cmd/reel/transcripts"
	versioncmder "github.com/papercomputeco/reel/cmd/version"
)

const reelLongDesc string = `Reel turns streamed LLM responses into structured events.

It reads Server-Sent Events from OpenAI-compatible and Anthropic APIs,
normalizes them into text deltas, tool calls, code blocks, and usage, and
either prints them or relays them as a proxy while publishing transcripts.

Commands:
  reel parse [file]     Parse a captured SSE stream from a file or stdin
  reel serve            Run the recording proxy and transcript API
  reel transcripts      Browse recorded transcripts
  reel config           Manage persistent configuration`

const reelShortDesc string = "Reel - LLM stream parser"

func NewReelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "reel",
		Short:        reelShortDesc,
		Long:         reelLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .reel/ config directory")

	// Add subcommands
	cmd.AddCommand(parsecmder.NewParseCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(transcriptscmder.NewTranscriptsCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
