package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/nonibytes/jsonquery/internal/logger"
)

// EnvPrefix prefixes every environment variable read by Load
const EnvPrefix = "JSONQUERY"

// Config is the runtime configuration of the jsonquery command
type Config struct {
	// Backend is sqlite or postgres
	Backend string `mapstructure:"backend"`
	// DSN is a sqlite directory or .db file, or a postgres connection string
	DSN    string `mapstructure:"dsn"`
	Schema string `mapstructure:"schema"`
	// Driver selects the sqlite driver: sqlite (modernc) or sqlite3 (mattn)
	Driver string `mapstructure:"driver"`

	CursorTTL        time.Duration `mapstructure:"cursor_ttl"`
	CompileCacheSize int           `mapstructure:"compile_cache_size"`
	CaseSensitive    bool          `mapstructure:"case_sensitive"`

	Log logger.Config `mapstructure:"log"`
}

var defaults = map[string]any{
	"backend":            "sqlite",
	"dsn":                ".",
	"schema":             "jsonquery",
	"driver":             "sqlite",
	"cursor_ttl":         time.Hour,
	"compile_cache_size": 256,
	"case_sensitive":     false,
	"log.level":          "INFO",
	"log.format":         "text",
	"log.add_source":     false,
}

// EnvName returns the environment variable for a config key,
// e.g. log.level -> JSONQUERY_LOG_LEVEL
func EnvName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Load reads configuration from an optional config file, a .env file in the
// working directory and JSONQUERY_* environment variables, in increasing
// order of precedence. Callers apply their own overrides and then Validate.
func Load(configFile string) (Config, error) {
	return load(configFile, ".env")
}

func load(configFile, dotenv string) (Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	// 1. Config file (yaml, toml, json, ...)
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	// 2. .env file; real environment variables win
	if dotenv != "" {
		if err := applyDotEnv(v, dotenv); err != nil {
			return Config{}, err
		}
	}

	// 3. Environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

func applyDotEnv(v *viper.Viper, path string) error {
	dot := viper.New()
	dot.SetConfigFile(path)
	dot.SetConfigType("env")
	if err := dot.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.Is(err, fs.ErrNotExist) || errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	for key := range defaults {
		name := EnvName(key)
		if _, set := os.LookupEnv(name); set {
			continue
		}
		if val := dot.GetString(strings.ToLower(name)); val != "" {
			v.Set(key, val)
		}
	}
	return nil
}

// Validate checks backend-specific settings
func (c Config) Validate() error {
	switch c.Backend {
	case "sqlite":
		if c.Driver != "sqlite" && c.Driver != "sqlite3" {
			return fmt.Errorf("unknown sqlite driver %q (want sqlite or sqlite3)", c.Driver)
		}
	case "postgres":
		if c.DSN == "" || c.DSN == "." {
			return errors.New("postgres backend requires a DSN")
		}
	default:
		return fmt.Errorf("unknown backend %q (want sqlite or postgres)", c.Backend)
	}
	if c.CursorTTL <= 0 {
		return fmt.Errorf("cursor ttl must be positive, got %s", c.CursorTTL)
	}
	return nil
}
