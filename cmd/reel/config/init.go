package configcmder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/reel/pkg/cliui"
	"github.com/papercomputeco/reel/pkg/config"
)

const initLongDesc string = `Write a fresh config.toml.

Without a preset the defaults are written. Presets point the proxy at a
vendor upstream and pin the matching response dialect.

Presets: openai, anthropic, openrouter

Examples:
  reel config init
  reel config init anthropic`

const initShortDesc string = "Write a fresh config.toml"

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "init [preset]",
		Short:     initShortDesc,
		Long:      initLongDesc,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: config.ValidPresetNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			preset := ""
			if len(args) == 1 {
				preset = args[0]
			}
			return runInit(cmd, preset, configDir)
		},
	}

	return cmd
}

func runInit(cmd *cobra.Command, preset, configDir string) error {
	cfg := config.NewDefaultConfig()
	if preset != "" {
		var err error
		cfg, err = config.PresetConfig(preset)
		if err != nil {
			return fmt.Errorf("%w\n\nAvailable presets: %s", err, strings.Join(config.ValidPresetNames(), ", "))
		}
	}

	cfger, err := writableConfiger(configDir)
	if err != nil {
		return err
	}

	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\n  %s Wrote %s\n\n",
		cliui.SuccessMark,
		cliui.ValueStyle.Render(cfger.GetTarget()),
	)
	return nil
}
