package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/reel/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (REEL_PROXY_LISTEN, REEL_PUBLISHER_TOPIC, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	target, err := dotdir.NewManager().Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}
	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix("REEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// FromViper materializes a Config from the merged viper state.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Version: v.GetInt("version"),
		Parser: ParserConfig{
			Provider:       v.GetString("parser.provider"),
			RepairToolJSON: v.GetBool("parser.repair_tool_json"),
		},
		Proxy: ProxyConfig{
			Listen:   v.GetString("proxy.listen"),
			Upstream: v.GetString("proxy.upstream"),
		},
		Publisher: PublisherConfig{
			Provider: v.GetString("publisher.provider"),
			Brokers:  brokerList(v),
			Topic:    v.GetString("publisher.topic"),
			Workers:  v.GetUint("publisher.workers"),
		},
		Storage: StorageConfig{
			SQLitePath:  v.GetString("storage.sqlite_path"),
			PostgresDSN: v.GetString("storage.postgres_dsn"),
		},
		API: APIConfig{
			Listen: v.GetString("api.listen"),
		},
		Log: LogConfig{
			JSON:   v.GetBool("log.json"),
			Pretty: v.GetBool("log.pretty"),
			File:   v.GetString("log.file"),
		},
	}
}

// brokerList accepts either a TOML array or a comma separated env value.
func brokerList(v *viper.Viper) []string {
	var out []string
	for _, b := range v.GetStringSlice("publisher.brokers") {
		out = append(out, splitList(b)...)
	}
	return out
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	v.SetDefault("parser.provider", d.Parser.Provider)
	v.SetDefault("parser.repair_tool_json", d.Parser.RepairToolJSON)

	v.SetDefault("proxy.listen", d.Proxy.Listen)
	v.SetDefault("proxy.upstream", d.Proxy.Upstream)

	v.SetDefault("publisher.provider", d.Publisher.Provider)
	v.SetDefault("publisher.brokers", d.Publisher.Brokers)
	v.SetDefault("publisher.topic", d.Publisher.Topic)
	v.SetDefault("publisher.workers", d.Publisher.Workers)

	v.SetDefault("storage.sqlite_path", d.Storage.SQLitePath)
	v.SetDefault("storage.postgres_dsn", d.Storage.PostgresDSN)

	v.SetDefault("api.listen", d.API.Listen)

	v.SetDefault("log.json", d.Log.JSON)
	v.SetDefault("log.pretty", d.Log.Pretty)
	v.SetDefault("log.file", d.Log.File)
}
