// Package servecmder provides the serve command, which runs the parsing proxy
// and the transcript API server.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/reel/api"
	"github.com/papercomputeco/reel/pkg/cliui"
	"github.com/papercomputeco/reel/pkg/config"
	"github.com/papercomputeco/reel/pkg/eventstream"
	"github.com/papercomputeco/reel/pkg/eventstream/kafka"
	"github.com/papercomputeco/reel/pkg/eventstream/nop"
	"github.com/papercomputeco/reel/pkg/eventstream/store"
	"github.com/papercomputeco/reel/pkg/logger"
	"github.com/papercomputeco/reel/pkg/storage"
	"github.com/papercomputeco/reel/pkg/storage/inmemory"
	"github.com/papercomputeco/reel/pkg/storage/postgres"
	"github.com/papercomputeco/reel/pkg/storage/sqlite"
	"github.com/papercomputeco/reel/proxy"
)

const storageConnectTimeout = 10 * time.Second

const serveLongDesc string = `Run the reel parsing proxy and transcript API.

The proxy transparently forwards every request to the configured upstream
and relays the response untouched. Successful responses are parsed on the
side and a transcript of each one is published to the configured publisher
(nop, kafka, or storage).

The API server lists and serves stored transcripts, parses bodies posted to
/parse, and exposes the same operations as MCP tools on /mcp. Transcripts
are stored in PostgreSQL when --postgres is set, in SQLite when --sqlite is
set, and in memory otherwise.

Point an OpenAI or Anthropic compatible client at the proxy:
  reel serve --upstream https://api.openai.com --publisher storage --sqlite reel.sqlite
  OPENAI_BASE_URL=http://localhost:8080/v1 my-agent
  curl localhost:8081/transcripts

Changes to parser.repair_tool_json in config.toml apply without a restart.`

const serveShortDesc string = "Run the parsing proxy"

var serveFlags = []string{
	config.FlagListen,
	config.FlagUpstream,
	config.FlagProvider,
	config.FlagRepair,
	config.FlagPublisher,
	config.FlagBrokers,
	config.FlagTopic,
	config.FlagWorkers,
	config.FlagSQLite,
	config.FlagPostgres,
	config.FlagAPIListen,
	config.FlagLogJSON,
	config.FlagLogPretty,
	config.FlagLogFile,
}

type serveCommander struct {
	listen    string
	upstream  string
	provider  string
	repair    bool
	publisher string
	brokers   string
	topic     string
	workers   uint
	sqlite    string
	postgres  string
	apiListen string
	logJSON   bool
	logPretty bool
	logFile   string

	debug  bool
	viper  *viper.Viper
	cfg    *config.Config
	logger *slog.Logger
}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, serveFlags)
			cmder.viper = v
			cmder.cfg = config.FromViper(v)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			return cmder.run(cmd)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagListen, &cmder.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagUpstream, &cmder.upstream)
	config.AddStringFlag(cmd, config.Flags, config.FlagProvider, &cmder.provider)
	config.AddBoolFlag(cmd, config.Flags, config.FlagRepair, &cmder.repair)
	config.AddStringFlag(cmd, config.Flags, config.FlagPublisher, &cmder.publisher)
	config.AddStringFlag(cmd, config.Flags, config.FlagBrokers, &cmder.brokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagTopic, &cmder.topic)
	config.AddUintFlag(cmd, config.Flags, config.FlagWorkers, &cmder.workers)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &cmder.sqlite)
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgres, &cmder.postgres)
	config.AddStringFlag(cmd, config.Flags, config.FlagAPIListen, &cmder.apiListen)
	config.AddBoolFlag(cmd, config.Flags, config.FlagLogJSON, &cmder.logJSON)
	config.AddBoolFlag(cmd, config.Flags, config.FlagLogPretty, &cmder.logPretty)
	config.AddStringFlag(cmd, config.Flags, config.FlagLogFile, &cmder.logFile)

	return cmd
}

func (c *serveCommander) run(cmd *cobra.Command) error {
	l, closeLog, err := newLogger(cmd.ErrOrStderr(), c.cfg.Log, c.debug)
	if err != nil {
		return err
	}
	c.logger = l
	defer func() {
		if err := closeLog(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "closing log file: %v\n", err)
		}
	}()

	var transcripts storage.Driver
	err = cliui.Step(cmd.ErrOrStderr(), "Opening "+storageKind(c.cfg.Storage)+" transcript store", func() error {
		var err error
		transcripts, err = newStorage(cmd.Context(), c.cfg.Storage)
		return err
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := transcripts.Close(); err != nil {
			c.logger.Error("error closing transcript store", "error", err)
		}
	}()

	var pub eventstream.Publisher
	err = cliui.Step(cmd.ErrOrStderr(), fmt.Sprintf("Starting %s publisher", c.cfg.Publisher.Provider), func() error {
		var err error
		pub, err = newPublisher(c.cfg.Publisher, transcripts)
		return err
	})
	if err != nil {
		return err
	}

	p, err := proxy.New(proxy.Config{
		ListenAddr:     c.cfg.Proxy.Listen,
		UpstreamURL:    c.cfg.Proxy.Upstream,
		Provider:       c.cfg.Parser.Provider,
		RepairToolJSON: c.cfg.Parser.RepairToolJSON,
		Publisher:      pub,
		NumWorkers:     c.cfg.Publisher.Workers,
	}, c.logger)
	if err != nil {
		_ = pub.Close()
		return fmt.Errorf("creating proxy: %w", err)
	}
	defer func() {
		if err := p.Close(); err != nil {
			c.logger.Error("error shutting down proxy", "error", err)
		}
	}()

	apiServer, err := api.NewServer(api.Config{
		ListenAddr:     c.cfg.API.Listen,
		RepairToolJSON: c.cfg.Parser.RepairToolJSON,
	}, transcripts, c.logger)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	defer func() {
		if err := apiServer.Shutdown(); err != nil {
			c.logger.Error("error shutting down API server", "error", err)
		}
	}()

	c.watchConfig(p)

	errChan := make(chan error, 2)
	go func() {
		if err := p.Run(); err != nil {
			errChan <- fmt.Errorf("proxy error: %w", err)
		}
	}()
	go func() {
		if err := apiServer.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		st := p.PublishStats()
		c.logger.Info("received signal, shutting down",
			"signal", sig.String(),
			"published", st.Published,
			"failed", st.Failed,
			"dropped", st.Dropped,
		)
		return nil
	}
}

// watchConfig applies parser.repair_tool_json edits to the running proxy.
// Flags and env vars still win over the file.
func (c *serveCommander) watchConfig(p *proxy.Proxy) {
	if c.viper.ConfigFileUsed() == "" {
		return
	}

	c.viper.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		c.logger.Debug("config file changed", "path", e.Name, "op", e.Op.String())
		p.SetRepair(c.viper.GetBool("parser.repair_tool_json"))
	})
	c.viper.WatchConfig()
}

// storageKind names the backend newStorage picks for cfg.
func storageKind(cfg config.StorageConfig) string {
	switch {
	case cfg.PostgresDSN != "":
		return "postgres"
	case cfg.SQLitePath != "":
		return "sqlite"
	default:
		return "in-memory"
	}
}

// newStorage opens the transcript store selected by cfg.
// newLogger builds the console logger on w. When cfg.File is set, records
// are also appended to that file as JSON with source locations.
func newLogger(w io.Writer, cfg config.LogConfig, debug bool) (*slog.Logger, func() error, error) {
	console := logger.New(
		logger.WithDebug(debug),
		logger.WithJSON(cfg.JSON),
		logger.WithPretty(cfg.Pretty),
		logger.WithWriter(w),
	)
	if cfg.File == "" {
		return console, func() error { return nil }, nil
	}

	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	file := logger.New(
		logger.WithDebug(debug),
		logger.WithJSON(true),
		logger.WithSource(true),
		logger.WithWriter(f),
	)
	return logger.Multi(console, file), f.Close, nil
}

func newStorage(ctx context.Context, cfg config.StorageConfig) (storage.Driver, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	switch storageKind(cfg) {
	case "postgres":
		ctx, cancel := context.WithTimeout(ctx, storageConnectTimeout)
		defer cancel()

		d, err := postgres.NewDriver(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return d, nil
	case "sqlite":
		d, err := sqlite.NewDriver(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return d, nil
	default:
		return inmemory.NewDriver(), nil
	}
}

// newPublisher builds the transcript publisher named by cfg.Provider. The
// storage publisher writes into st.
func newPublisher(cfg config.PublisherConfig, st storage.Driver) (eventstream.Publisher, error) {
	switch cfg.Provider {
	case "", config.PublisherNop:
		return nop.NewPublisher(), nil
	case config.PublisherKafka:
		pub, err := kafka.NewPublisher(kafka.Config{
			Brokers: cfg.Brokers,
			Topic:   cfg.Topic,
		})
		if err != nil {
			return nil, err
		}
		return pub, nil
	case config.PublisherStorage:
		if st == nil {
			return nil, errors.New("storage publisher requires a transcript store")
		}
		pub, err := store.NewPublisher(st)
		if err != nil {
			return nil, err
		}
		return pub, nil
	default:
		return nil, fmt.Errorf("unknown publisher provider: %q", cfg.Provider)
	}
}
