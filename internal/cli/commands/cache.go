package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/nonibytes/jsonquery/internal/cliutil"
	"github.com/nonibytes/jsonquery/jsonquery"
	jqerrors "github.com/nonibytes/jsonquery/jsonquery/errors"
	"github.com/nonibytes/jsonquery/jsonquery/filter"
	"github.com/nonibytes/jsonquery/jsonquery/pathexpr"
)

// NewCacheCommand returns the cache command group
func NewCacheCommand(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Store JSON records and run GetQueries against them",
	}
	cmd.AddCommand(
		newCacheCreateCommand(env),
		newCachePutCommand(env),
		newCacheGetCommand(env),
		newCacheDeleteCommand(env),
		newCacheCountCommand(env),
		newCacheDiscoverCommand(env),
		newCacheQueryCommand(env),
		newCacheSaveCommand(env),
		newCacheLoadCommand(env),
		newCacheUnsaveCommand(env),
		newCacheQueriesCommand(env),
		newCacheOptimizeCommand(env),
	)
	return cmd
}

// withCache opens the cache, runs fn and closes it
func withCache(cmd *cobra.Command, env *Env, fn func(c *jsonquery.Cache) error) error {
	c, err := env.OpenCache(cmd.Context())
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(c)
}

func newCacheCreateCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create a cache; --case-sensitive is stored as its default",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter, err := cliutil.OpenAdapter(env.Config, env.Global.Cache)
			if err != nil {
				return err
			}
			c, err := jsonquery.Create(cmd.Context(), adapter, cliutil.CacheOptions(env.Config))
			if err != nil {
				return err
			}
			defer c.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "created", adapter.CacheID())
			return nil
		},
	}
}

func newCachePutCommand(env *Env) *cobra.Command {
	var key, keyPath string
	cmd := &cobra.Command{
		Use:   "put",
		Short: "Store JSON lines from stdin",
		Long: `Store JSON lines from stdin.

With --key a single document is stored under that key. With --key-path each
line is stored under the string found at that path. Otherwise every line gets
a generated key, which is printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lines, err := cliutil.ReadJSONLines(cmd.InOrStdin())
			if err != nil {
				return err
			}
			return withCache(cmd, env, func(c *jsonquery.Cache) error {
				out := cmd.OutOrStdout()
				switch {
				case key != "":
					if len(lines) != 1 {
						return jqerrors.New(jqerrors.ErrSchema, fmt.Sprintf("--key expects one document, got %d", len(lines)))
					}
					return c.Put(cmd.Context(), key, lines[0])
				case keyPath != "":
					return putByPath(cmd, c, keyPath, lines)
				default:
					for _, doc := range lines {
						k, err := c.PutNew(cmd.Context(), doc)
						if err != nil {
							return err
						}
						fmt.Fprintln(out, k)
					}
					return nil
				}
			})
		},
	}
	cmd.Flags().StringVarP(&key, "key", "k", "", "record key")
	cmd.Flags().StringVar(&keyPath, "key-path", "", "path expression selecting each record's key")
	cmd.MarkFlagsMutuallyExclusive("key", "key-path")
	return cmd
}

func putByPath(cmd *cobra.Command, c *jsonquery.Cache, path string, lines [][]byte) error {
	expr, err := pathexpr.Compile(path)
	if err != nil {
		return err
	}
	b := jsonquery.NewBatch()
	for i, doc := range lines {
		v, ok := expr.Evaluate(doc)
		k, isString := v.(string)
		if !ok || !isString || k == "" {
			return jqerrors.New(jqerrors.ErrSchema, fmt.Sprintf("line %d: no string key at %s", i+1, expr))
		}
		if err := b.Put(k, doc); err != nil {
			return err
		}
	}
	n, err := c.Batch(cmd.Context(), b)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "stored %d records\n", n)
	return nil
}

func newCacheGetCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "get KEY...",
		Short: "Print stored records",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(cmd, env, func(c *jsonquery.Cache) error {
				out := cmd.OutOrStdout()
				if len(args) == 1 {
					rec, err := c.Get(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					cliutil.PrintRaw(out, env.Format(), rec.DocJSON)
					return nil
				}
				recs, err := c.GetMany(cmd.Context(), args)
				if err != nil {
					return err
				}
				for _, rec := range recs {
					cliutil.PrintRaw(out, env.Format(), rec.DocJSON)
				}
				return nil
			})
		},
	}
}

func newCacheDeleteCommand(env *Env) *cobra.Command {
	var where string
	cmd := &cobra.Command{
		Use:   "delete [KEY...]",
		Short: "Delete records by key or by filter",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 0) == (where == "") {
				return jqerrors.New(jqerrors.ErrSchema, "give either keys or --where")
			}
			return withCache(cmd, env, func(c *jsonquery.Cache) error {
				var n int
				var err error
				if where != "" {
					f, perr := filter.Parse([]byte(where))
					if perr != nil {
						return perr
					}
					n, err = c.DeleteWhere(cmd.Context(), f)
				} else {
					n, err = c.DeleteMany(cmd.Context(), args)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d\n", n)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&where, "where", "w", "", "filter JSON selecting the records to delete")
	return cmd
}

func newCacheDiscoverCommand(env *Env) *cobra.Command {
	var where string
	var top int
	cmd := &cobra.Command{
		Use:   "discover FIELD",
		Short: "Show the most frequent values of a field",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := filter.Parse([]byte(where))
			if err != nil {
				return err
			}
			return withCache(cmd, env, func(c *jsonquery.Cache) error {
				counts, err := c.DiscoverValues(cmd.Context(), args[0], f, top)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if env.Format() == cliutil.FormatJSON {
					cliutil.PrintJSON(out, counts)
					return nil
				}
				for _, vc := range counts {
					fmt.Fprintf(out, "%6d  %s\n", vc.Count, vc.Value)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&where, "where", "w", "", "filter JSON restricting the records")
	cmd.Flags().IntVar(&top, "top", jsonquery.DefaultDiscoverTop, "number of values")
	return cmd
}

func newCacheCountCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of stored records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(cmd, env, func(c *jsonquery.Cache) error {
				n, err := c.Count(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), n)
				return nil
			})
		},
	}
}

func newCacheQueryCommand(env *Env) *cobra.Command {
	var inline, file, saved, after, cursorMode string
	var limit int
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run a GetQuery against the cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(cmd, env, func(c *jsonquery.Cache) error {
				var q *jsonquery.GetQuery
				var err error
				if saved != "" {
					q, err = c.LoadQuery(cmd.Context(), saved)
				} else {
					q, err = readQuery(inline, file)
				}
				if err != nil {
					return err
				}
				if cmd.Flags().Changed("limit") {
					q.Merge(&jsonquery.GetQuery{Limit: &limit})
				}

				qopts := jsonquery.QueryOptions{After: after, CursorMode: jsonquery.CursorMode(cursorMode)}
				if cmd.Flags().Changed("case-sensitive") {
					o := env.Options()
					qopts.Options = &o
				}

				start := time.Now()
				page, err := c.Query(cmd.Context(), q, qopts)
				if err != nil {
					return err
				}
				printPage(cmd.OutOrStdout(), env.Format(), page, time.Since(start))
				return nil
			})
		},
	}
	queryFlags(cmd, &inline, &file)
	cmd.Flags().StringVarP(&saved, "saved", "s", "", "run a saved query")
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "page size (never raises the query's own limit)")
	cmd.Flags().StringVar(&after, "after", "", "cursor from a previous page")
	cmd.Flags().StringVar(&cursorMode, "cursor", string(jsonquery.CursorShort), "cursor: short|full")
	cmd.MarkFlagsMutuallyExclusive("query", "saved")
	cmd.MarkFlagsMutuallyExclusive("query-file", "saved")
	return cmd
}

func printPage(w io.Writer, format cliutil.OutputFormat, page jsonquery.Page, dur time.Duration) {
	if format == cliutil.FormatJSON {
		for _, it := range page.Items {
			fmt.Fprintln(w, string(it))
		}
		if page.NextCursor != "" {
			fmt.Fprintf(w, `{"next":%q}`+"\n", page.NextCursor)
		}
		return
	}
	fmt.Fprintf(w, "Found %d records in %dms\n", page.Total, dur.Milliseconds())
	for _, it := range page.Items {
		cliutil.PrintRaw(w, format, it)
	}
	if page.NextCursor != "" {
		fmt.Fprintf(w, "\nnext: %s\n", page.NextCursor)
	}
}

func newCacheSaveCommand(env *Env) *cobra.Command {
	var inline, file string
	cmd := &cobra.Command{
		Use:   "save NAME",
		Short: "Save a GetQuery under a name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := readQuery(inline, file)
			if err != nil {
				return err
			}
			return withCache(cmd, env, func(c *jsonquery.Cache) error {
				if err := c.SaveQuery(cmd.Context(), args[0], q); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "saved", args[0])
				return nil
			})
		},
	}
	queryFlags(cmd, &inline, &file)
	return cmd
}

func newCacheLoadCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "load NAME",
		Short: "Print a saved GetQuery",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(cmd, env, func(c *jsonquery.Cache) error {
				q, err := c.LoadQuery(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printQuery(cmd, env, q)
				return nil
			})
		},
	}
}

func newCacheUnsaveCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "unsave NAME",
		Short: "Remove a saved GetQuery",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(cmd, env, func(c *jsonquery.Cache) error {
				ok, err := c.DeleteQuery(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !ok {
					return jqerrors.NotFoundError("query " + args[0])
				}
				fmt.Fprintln(cmd.OutOrStdout(), "removed", args[0])
				return nil
			})
		},
	}
}

func newCacheQueriesCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "queries",
		Short: "List saved GetQuery names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(cmd, env, func(c *jsonquery.Cache) error {
				names, err := c.ListQueries(cmd.Context())
				if err != nil {
					return err
				}
				for _, n := range names {
					fmt.Fprintln(cmd.OutOrStdout(), n)
				}
				return nil
			})
		},
	}
}

func newCacheOptimizeCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "optimize",
		Short: "Compact the cache storage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(cmd, env, func(c *jsonquery.Cache) error {
				if err := c.Optimize(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "optimized")
				return nil
			})
		},
	}
}
