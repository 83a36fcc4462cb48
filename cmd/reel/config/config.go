// Package configcmder provides the config command for managing persistent
// reel configuration stored in the .reel/ directory.
package configcmder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/reel/pkg/config"
	"github.com/papercomputeco/reel/pkg/dotdir"
)

const configLongDesc string = `Manage persistent reel configuration.

Configuration is stored as config.toml in the .reel/ directory (./.reel or
~/.reel) and provides default values for command flags. CLI flags and REEL_*
environment variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  parser.provider, parser.repair_tool_json,
  proxy.listen, proxy.upstream,
  publisher.provider, publisher.brokers, publisher.topic, publisher.workers,
  storage.sqlite_path, storage.postgres_dsn,
  api.listen,
  log.json, log.pretty, log.file

Use subcommands to manage configuration values:
  reel config init [preset]         Write a fresh config.toml
  reel config set <key> <value>     Set a configuration value
  reel config get <key>             Get a configuration value
  reel config list                  List all configuration values

Examples:
  reel config init anthropic
  reel config set publisher.provider kafka
  reel config set publisher.brokers localhost:9092
  reel config set storage.sqlite_path ~/.reel/reel.sqlite
  reel config get proxy.upstream`

const configShortDesc string = "Manage persistent reel configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func validateKey(key string) error {
	if !config.IsValidConfigKey(key) {
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
			key, strings.Join(config.ValidConfigKeys(), ", "))
	}
	return nil
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

// writableConfiger resolves a Configer whose directory exists, creating
// ~/.reel (or the override) when no directory was found.
func writableConfiger(configDir string) (*config.Configer, error) {
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if cfger.GetTarget() != "" {
		return cfger, nil
	}

	dir, err := dotdir.NewManager().Init(configDir)
	if err != nil {
		return nil, err
	}
	return config.NewConfiger(dir)
}
