// Package transcriptscmder provides the transcripts command for browsing
// transcripts recorded by the proxy into SQLite or PostgreSQL.
package transcriptscmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/reel/cmd/reel/sqlitepath"
	"github.com/papercomputeco/reel/pkg/cliui"
	"github.com/papercomputeco/reel/pkg/config"
	"github.com/papercomputeco/reel/pkg/eventstream"
	"github.com/papercomputeco/reel/pkg/storage"
	"github.com/papercomputeco/reel/pkg/storage/postgres"
	"github.com/papercomputeco/reel/pkg/storage/sqlite"
	"github.com/papercomputeco/reel/pkg/utils"
)

const transcriptsLongDesc string = `Browse recorded transcripts.

Reads transcripts written by "reel serve --publisher storage". The store is
chosen from --postgres, then --sqlite, then storage.* config values, then
well known locations (./.reel/reel.sqlite, ~/.reel/reel.sqlite).

Examples:
  reel transcripts list
  reel transcripts list --session 2f0c... --limit 5
  reel transcripts show <event-id>
  reel transcripts show --json <event-id>`

const transcriptsShortDesc string = "Browse recorded transcripts"

const connectTimeout = 10 * time.Second

type storeFlags struct {
	sqlite   string
	postgres string
}

func NewTranscriptsCmd() *cobra.Command {
	flags := &storeFlags{}

	cmd := &cobra.Command{
		Use:   "transcripts",
		Short: transcriptsShortDesc,
		Long:  transcriptsLongDesc,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, []string{
				config.FlagSQLite,
				config.FlagPostgres,
			})
			flags.sqlite = v.GetString("storage.sqlite_path")
			flags.postgres = v.GetString("storage.postgres_dsn")
			return nil
		},
	}

	cmd.AddCommand(newListCmd(flags))
	cmd.AddCommand(newShowCmd(flags))

	return cmd
}

func newListCmd(flags *storeFlags) *cobra.Command {
	var (
		opts   storage.ListOptions
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded transcripts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := flags.open(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			ts, err := st.List(cmd.Context(), opts)
			if err != nil {
				return fmt.Errorf("listing transcripts: %w", err)
			}

			if asJSON {
				for _, t := range ts {
					t.Events = nil
				}
				return writeJSON(cmd.OutOrStdout(), ts)
			}
			return renderList(cmd.OutOrStdout(), ts)
		},
	}

	cmd.Flags().StringVar(&opts.SessionID, "session", "", "Only list transcripts from this session")
	cmd.Flags().StringVar(&opts.Provider, "from", "", "Only list transcripts from this provider")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", storage.DefaultListLimit, "Maximum number of transcripts to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print transcripts as JSON")
	flags.register(cmd)

	return cmd
}

func newShowCmd(flags *storeFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <event-id>",
		Short: "Show one recorded transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := flags.open(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			t, err := st.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), t)
			}
			return cliui.RenderTranscript(cmd.OutOrStdout(), t)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the transcript as JSON, events included")
	flags.register(cmd)

	return cmd
}

// register adds the store selection flags to a subcommand. The parent's
// PersistentPreRunE binds them after parsing.
func (f *storeFlags) register(cmd *cobra.Command) {
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &f.sqlite)
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgres, &f.postgres)
}

func (f *storeFlags) open(ctx context.Context) (storage.Driver, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if f.postgres != "" {
		ctx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()

		d, err := postgres.NewDriver(ctx, f.postgres)
		if err != nil {
			return nil, err
		}
		return d, nil
	}

	path, err := sqlitepath.Resolve(f.sqlite)
	if err != nil {
		return nil, err
	}
	d, err := sqlite.NewDriver(path)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func renderList(w io.Writer, ts []*eventstream.Transcript) error {
	if len(ts) == 0 {
		_, err := fmt.Fprintln(w, cliui.DimStyle.Render("no transcripts recorded"))
		return err
	}

	for _, t := range ts {
		model := ""
		if t.Meta != nil {
			model = t.Meta.Model
		}
		line := fmt.Sprintf("%s  %s  %s",
			cliui.KeyStyle.Render(t.EventID),
			cliui.DimStyle.Render(t.EmittedAt.Local().Format(time.DateTime)),
			strings.TrimSpace(t.Source.Provider+" "+model),
		)
		if t.Text != "" {
			line += "  " + utils.Truncate(strings.ReplaceAll(t.Text, "\n", " "), 60)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return nil
}
