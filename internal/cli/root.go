package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nonibytes/jsonquery/internal/cli/commands"
	"github.com/nonibytes/jsonquery/internal/cliopt"
	"github.com/nonibytes/jsonquery/internal/config"
	"github.com/nonibytes/jsonquery/internal/logger"
	jqerrors "github.com/nonibytes/jsonquery/jsonquery/errors"
)

const rootLong = `jsonquery: declarative filter, sort and paging over JSON records

Core commands read JSON lines from stdin:
  match     --filter <json>        print the matching lines
  sort      --by "-a,+b"           stable sort
  apply     --query <json>         filter, sort, page and project
  merge | optimize | describe | params   work on GetQuery lines

Cache commands store records in sqlite or postgres:
  cache create|put|get|delete|count|query|save|load|unsave|queries|optimize

Configuration comes from --config, .env and JSONQUERY_* variables;
flags override both.`

// NewRootCommand builds the command tree
func NewRootCommand() *cobra.Command {
	g := cliopt.DefaultGlobalOptions()
	env := &commands.Env{}

	root := &cobra.Command{
		Use:           "jsonquery",
		Short:         "Declarative queries over JSON records",
		Long:          rootLong,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(g.ConfigFile)
			if err != nil {
				return err
			}
			cliopt.Apply(cmd.Flags(), g, &cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger.Init(cfg.Log)

			env.Global = g
			env.Config = cfg
			logger.Debug("config loaded", "backend", cfg.Backend, "cache", env.Global.Cache)
			return nil
		},
	}
	cliopt.BindGlobalFlags(root.PersistentFlags(), &g)

	root.AddCommand(commands.NewCoreCommands(env)...)
	root.AddCommand(commands.NewCacheCommand(env))
	return root
}

// Execute runs the CLI and returns an exit code.
func Execute(argv []string) int {
	root := NewRootCommand()
	root.SetArgs(argv)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return exitCode(err)
	}
	return 0
}

// exitCode is 2 for bad input and 1 for everything else
func exitCode(err error) int {
	var e *jqerrors.Error
	if errors.As(err, &e) {
		switch e.Kind {
		case jqerrors.ErrParse, jqerrors.ErrSchema, jqerrors.ErrCompile, jqerrors.ErrCursor:
			return 2
		}
	}
	return 1
}
