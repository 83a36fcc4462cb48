package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag. Commands reference flags
// by registry key so the same logical flag keeps one name and description
// everywhere it appears.
type Flag struct {
	// Name is the long flag name (e.g. "upstream").
	Name string

	// Shorthand is the one-letter short flag (e.g. "u"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "proxy.upstream").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of registry keys to Flag definitions.
type FlagSet map[string]Flag

// Flag registry keys.
const (
	FlagListen    = "listen"
	FlagUpstream  = "upstream"
	FlagProvider  = "provider"
	FlagRepair    = "repair"
	FlagPublisher = "publisher"
	FlagBrokers   = "brokers"
	FlagTopic     = "topic"
	FlagWorkers   = "workers"
	FlagSQLite    = "sqlite"
	FlagPostgres  = "postgres"
	FlagAPIListen = "api-listen"
	FlagLogJSON   = "log-json"
	FlagLogPretty = "log-pretty"
	FlagLogFile   = "log-file"
)

// Flags is the registry shared by every reel command.
var Flags = FlagSet{
	FlagListen:    {Name: "listen", Shorthand: "l", ViperKey: "proxy.listen", Description: "Address for the parsing proxy to listen on"},
	FlagUpstream:  {Name: "upstream", Shorthand: "u", ViperKey: "proxy.upstream", Description: "Upstream LLM provider base URL"},
	FlagProvider:  {Name: "provider", Shorthand: "p", ViperKey: "parser.provider", Description: "Response dialect: auto, openai, anthropic, besteffort"},
	FlagRepair:    {Name: "repair", ViperKey: "parser.repair_tool_json", Description: "Repair truncated tool-call argument JSON"},
	FlagPublisher: {Name: "publisher", ViperKey: "publisher.provider", Description: "Transcript publisher: nop, kafka, or storage"},
	FlagBrokers:   {Name: "brokers", ViperKey: "publisher.brokers", Description: "Comma separated Kafka broker addresses"},
	FlagTopic:     {Name: "topic", ViperKey: "publisher.topic", Description: "Kafka topic for transcripts"},
	FlagWorkers:   {Name: "workers", ViperKey: "publisher.workers", Description: "Number of transcript publish workers"},
	FlagSQLite:    {Name: "sqlite", Shorthand: "s", ViperKey: "storage.sqlite_path", Description: "Path to SQLite transcript database"},
	FlagPostgres:  {Name: "postgres", ViperKey: "storage.postgres_dsn", Description: "PostgreSQL connection string for the transcript store"},
	FlagAPIListen: {Name: "api-listen", Shorthand: "a", ViperKey: "api.listen", Description: "Address for the transcript API server to listen on"},
	FlagLogJSON:   {Name: "log-json", ViperKey: "log.json", Description: "Emit JSON logs"},
	FlagLogPretty: {Name: "log-pretty", ViperKey: "log.pretty", Description: "Emit colored human readable logs"},
	FlagLogFile:   {Name: "log-file", ViperKey: "log.file", Description: "Also append JSON logs to this file"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultViper().GetString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, key string, target *uint) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultViper().GetUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddBoolFlag registers a bool flag on cmd from the given FlagSet.
func AddBoolFlag(cmd *cobra.Command, fs FlagSet, key string, target *bool) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultViper().GetBool(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().BoolVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().BoolVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, keys []string) {
	for _, key := range keys {
		def, ok := fs[key]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

func defaultViper() *viper.Viper {
	v := viper.New()
	setViperDefaults(v)
	return v
}
