package cliopt

import (
	"github.com/spf13/pflag"

	"github.com/nonibytes/jsonquery/internal/config"
)

// GlobalOptions are parsed once at the CLI root and passed to subcommands.
// Flags that were set on the command line override the loaded config.
//
// NOTE: This is a separate package to avoid import cycles between the root
// command router and per-command code.
type GlobalOptions struct {
	ConfigFile string

	Backend       string
	DSN           string
	Schema        string
	Driver        string
	Cache         string
	CaseSensitive bool
	LogLevel      string

	Format string
}

func DefaultGlobalOptions() GlobalOptions {
	return GlobalOptions{
		Backend: "sqlite",
		DSN:     ".",
		Driver:  "sqlite",
		Format:  "pretty",
	}
}

func BindGlobalFlags(fs *pflag.FlagSet, g *GlobalOptions) {
	fs.StringVar(&g.ConfigFile, "config", g.ConfigFile, "config file (yaml, toml or json)")

	fs.StringVar(&g.Backend, "backend", g.Backend, "backend: sqlite|postgres")
	fs.StringVar(&g.DSN, "dsn", g.DSN, "sqlite directory or .db file, or postgres DSN")
	fs.StringVar(&g.Schema, "schema", g.Schema, "postgres schema")
	fs.StringVar(&g.Driver, "driver", g.Driver, "sqlite driver: sqlite|sqlite3")
	fs.StringVarP(&g.Cache, "cache", "c", g.Cache, "cache name")
	fs.BoolVar(&g.CaseSensitive, "case-sensitive", g.CaseSensitive, "compare strings case-sensitively")
	fs.StringVar(&g.LogLevel, "log-level", g.LogLevel, "log level: DEBUG|INFO|WARN|ERROR")

	fs.StringVar(&g.Format, "format", g.Format, "output: pretty|json")
}

// Apply copies the flags the user actually set over cfg
func Apply(fs *pflag.FlagSet, g GlobalOptions, cfg *config.Config) {
	if fs.Changed("backend") {
		cfg.Backend = g.Backend
	}
	if fs.Changed("dsn") {
		cfg.DSN = g.DSN
	}
	if fs.Changed("schema") {
		cfg.Schema = g.Schema
	}
	if fs.Changed("driver") {
		cfg.Driver = g.Driver
	}
	if fs.Changed("case-sensitive") {
		cfg.CaseSensitive = g.CaseSensitive
	}
	if fs.Changed("log-level") {
		cfg.Log.Level = g.LogLevel
	}
}
