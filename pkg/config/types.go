package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Config represents the persistent reel configuration stored as config.toml
// in the .reel/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version   int             `toml:"version"`
	Parser    ParserConfig    `toml:"parser"`
	Proxy     ProxyConfig     `toml:"proxy"`
	Publisher PublisherConfig `toml:"publisher"`
	Storage   StorageConfig   `toml:"storage"`
	API       APIConfig       `toml:"api"`
	Log       LogConfig       `toml:"log"`
}

// ParserConfig holds settings applied to every parser session.
type ParserConfig struct {
	// Provider pins the vendor normalizer. Empty or "auto" detects per payload.
	Provider       string `toml:"provider,omitempty"`
	RepairToolJSON bool   `toml:"repair_tool_json,omitempty"`
}

// ProxyConfig holds the parsing proxy settings.
type ProxyConfig struct {
	Listen   string `toml:"listen,omitempty"`
	Upstream string `toml:"upstream,omitempty"`
}

// PublisherConfig selects where finished transcripts are sent.
type PublisherConfig struct {
	Provider string   `toml:"provider,omitempty"`
	Brokers  []string `toml:"brokers,omitempty"`
	Topic    string   `toml:"topic,omitempty"`
	Workers  uint     `toml:"workers,omitempty"`
}

// StorageConfig selects the transcript store used by the storage publisher
// and the API server. PostgresDSN wins over SQLitePath; with neither set
// transcripts are kept in memory.
type StorageConfig struct {
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// APIConfig holds the transcript API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	JSON   bool   `toml:"json,omitempty"`
	Pretty bool   `toml:"pretty,omitempty"`
	File   string `toml:"file,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func boolKey(name string, field func(c *Config) *bool) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = b
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"parser.provider": {
		get: func(c *Config) string { return c.Parser.Provider },
		set: func(c *Config, v string) error { c.Parser.Provider = v; return nil },
	},
	"parser.repair_tool_json": boolKey("parser.repair_tool_json", func(c *Config) *bool { return &c.Parser.RepairToolJSON }),
	"proxy.listen": {
		get: func(c *Config) string { return c.Proxy.Listen },
		set: func(c *Config, v string) error { c.Proxy.Listen = v; return nil },
	},
	"proxy.upstream": {
		get: func(c *Config) string { return c.Proxy.Upstream },
		set: func(c *Config, v string) error { c.Proxy.Upstream = v; return nil },
	},
	"publisher.provider": {
		get: func(c *Config) string { return c.Publisher.Provider },
		set: func(c *Config, v string) error {
			switch v {
			case PublisherNop, PublisherKafka, PublisherStorage:
				c.Publisher.Provider = v
				return nil
			default:
				return fmt.Errorf("invalid value for publisher.provider: %q (available: %s)", v, strings.Join(ValidPublishers(), ", "))
			}
		},
	},
	"publisher.brokers": {
		get: func(c *Config) string { return strings.Join(c.Publisher.Brokers, ",") },
		set: func(c *Config, v string) error { c.Publisher.Brokers = splitList(v); return nil },
	},
	"publisher.topic": {
		get: func(c *Config) string { return c.Publisher.Topic },
		set: func(c *Config, v string) error { c.Publisher.Topic = v; return nil },
	},
	"publisher.workers": {
		get: func(c *Config) string {
			if c.Publisher.Workers == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Publisher.Workers), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for publisher.workers: %w", err)
			}
			c.Publisher.Workers = uint(n)
			return nil
		},
	},
	"storage.sqlite_path": {
		get: func(c *Config) string { return c.Storage.SQLitePath },
		set: func(c *Config, v string) error { c.Storage.SQLitePath = v; return nil },
	},
	"storage.postgres_dsn": {
		get: func(c *Config) string { return c.Storage.PostgresDSN },
		set: func(c *Config, v string) error { c.Storage.PostgresDSN = v; return nil },
	},
	"api.listen": {
		get: func(c *Config) string { return c.API.Listen },
		set: func(c *Config, v string) error { c.API.Listen = v; return nil },
	},
	"log.json":   boolKey("log.json", func(c *Config) *bool { return &c.Log.JSON }),
	"log.pretty": boolKey("log.pretty", func(c *Config) *bool { return &c.Log.Pretty }),
	"log.file": {
		get: func(c *Config) string { return c.Log.File },
		set: func(c *Config, v string) error { c.Log.File = v; return nil },
	},
}

// splitList parses a comma separated value, dropping empty entries.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
