package commands

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/nonibytes/jsonquery/internal/cliopt"
	"github.com/nonibytes/jsonquery/internal/cliutil"
	"github.com/nonibytes/jsonquery/internal/config"
	"github.com/nonibytes/jsonquery/jsonquery"
)

// Env is what the root command resolves before any subcommand runs
type Env struct {
	Global cliopt.GlobalOptions
	Config config.Config
}

// Options returns the string comparison settings for core commands
func (e *Env) Options() jsonquery.Options {
	return jsonquery.Options{CaseSensitive: e.Config.CaseSensitive}
}

func (e *Env) Format() cliutil.OutputFormat {
	return cliutil.ParseOutputFormat(e.Global.Format)
}

// OpenCache opens the cache named by --cache
func (e *Env) OpenCache(ctx context.Context) (*jsonquery.Cache, error) {
	adapter, err := cliutil.OpenAdapter(e.Config, e.Global.Cache)
	if err != nil {
		return nil, err
	}
	return jsonquery.Open(ctx, adapter, cliutil.CacheOptions(e.Config))
}

// readQuery loads a GetQuery from an inline JSON flag or a file
func readQuery(inline, file string) (*jsonquery.GetQuery, error) {
	data := []byte(inline)
	if file != "" {
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		data = b
	}
	if len(data) == 0 {
		return &jsonquery.GetQuery{}, nil
	}
	return jsonquery.ParseGetQuery(data)
}

func queryFlags(cmd *cobra.Command, inline, file *string) {
	cmd.Flags().StringVarP(inline, "query", "q", "", "GetQuery JSON")
	cmd.Flags().StringVar(file, "query-file", "", "file holding GetQuery JSON")
	cmd.MarkFlagsMutuallyExclusive("query", "query-file")
}
