package dao

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix is the prefix of environment variables read by LoadConfig.
const EnvPrefix = "DAO_"

// Config holds the runtime settings shared by data-access objects, the
// query builders they create and the daoctl tool.
type Config struct {
	// Dialect is the engine dialect name (sqlite, postgres or mysql).
	Dialect string `koanf:"dialect"`
	// DSN is the data source name used by daoctl to open the engine.
	DSN string `koanf:"dsn"`
	// LogSQL logs the SQL text of every built query.
	LogSQL bool `koanf:"log_sql"`
	// LogValues also logs the bound parameter values. Requires LogSQL.
	LogValues bool `koanf:"log_values"`
	// StrictInsert turns an insert that wrote no row into a WriteAnomalyError.
	// When false the anomaly is logged and the caller gets the -1 row id.
	StrictInsert bool `koanf:"strict_insert"`
	// Collation is appended to ORDER BY terms of string columns. Empty
	// means the dialect default.
	Collation string `koanf:"collation"`
	// IdentityScope installs a default identity scope on new data-access objects.
	IdentityScope bool `koanf:"identity_scope"`
	// SlowQueryThreshold is used by the statistics driver.
	SlowQueryThreshold time.Duration `koanf:"slow_query_threshold"`
	// MaxOpenConns is applied to the connection pool when non-zero.
	MaxOpenConns int `koanf:"max_open_conns"`

	// Logger receives anomaly and SQL logs. Nil means slog.Default().
	Logger *slog.Logger `koanf:"-"`
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return Config{
		Dialect:            "sqlite",
		DSN:                "file::memory:?cache=shared",
		IdentityScope:      true,
		SlowQueryThreshold: 100 * time.Millisecond,
	}
}

// Log returns the configured logger or the default one.
func (c Config) Log() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// LoadConfig loads configuration from defaults, an optional YAML file,
// DAO_ environment variables and explicitly set flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func LoadConfig(path string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")
	def := DefaultConfig()
	if err := k.Load(confmap.Provider(map[string]any{
		"dialect":              def.Dialect,
		"dsn":                  def.DSN,
		"log_sql":              def.LogSQL,
		"log_values":           def.LogValues,
		"strict_insert":        def.StrictInsert,
		"collation":            def.Collation,
		"identity_scope":       def.IdentityScope,
		"slow_query_threshold": def.SlowQueryThreshold.String(),
		"max_open_conns":       def.MaxOpenConns,
	}, "."), nil); err != nil {
		return Config{}, fmt.Errorf("dao: load defaults: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("dao: read config file %s: %w", path, err)
		}
	}
	// DAO_LOG_SQL -> log_sql
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return Config{}, fmt.Errorf("dao: load env vars: %w", err)
	}
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return Config{}, fmt.Errorf("dao: load flags: %w", err)
		}
	}
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("dao: decode config: %w", err)
	}
	return cfg, nil
}
