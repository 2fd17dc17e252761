package commands

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nonibytes/jsonquery/internal/cliutil"
	"github.com/nonibytes/jsonquery/jsonquery"
	jqerrors "github.com/nonibytes/jsonquery/jsonquery/errors"
	"github.com/nonibytes/jsonquery/jsonquery/filter"
	"github.com/nonibytes/jsonquery/jsonquery/sortorder"
)

// NewCoreCommands returns the commands that work on JSON lines from stdin
func NewCoreCommands(env *Env) []*cobra.Command {
	return []*cobra.Command{
		newMatchCommand(env),
		newSortCommand(env),
		newApplyCommand(env),
		newMergeCommand(env),
		newOptimizeCommand(env),
		newDescribeCommand(env),
		newParamsCommand(env),
	}
}

func newMatchCommand(env *Env) *cobra.Command {
	var filterJSON string
	var invert bool
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Print the JSON lines from stdin that match a filter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			match, err := filter.CompileJSON([]byte(filterJSON), env.Options())
			if err != nil {
				return err
			}
			lines, err := cliutil.ReadJSONLines(cmd.InOrStdin())
			if err != nil {
				return err
			}
			docs, err := cliutil.DecodeLines(lines)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i, doc := range docs {
				if match(doc) != invert {
					fmt.Fprintln(out, string(lines[i]))
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&filterJSON, "filter", "f", "", "filter JSON")
	cmd.Flags().BoolVarP(&invert, "invert", "v", false, "print the lines that do not match")
	_ = cmd.MarkFlagRequired("filter")
	return cmd
}

func newSortCommand(env *Env) *cobra.Command {
	var by string
	cmd := &cobra.Command{
		Use:   "sort",
		Short: "Stable-sort the JSON lines from stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			order, err := sortorder.Parse(by)
			if err != nil {
				return err
			}
			cmp, err := sortorder.Compile(order, env.Options())
			if err != nil {
				return err
			}
			lines, err := cliutil.ReadJSONLines(cmd.InOrStdin())
			if err != nil {
				return err
			}
			docs, err := cliutil.DecodeLines(lines)
			if err != nil {
				return err
			}
			idx := make([]int, len(docs))
			for i := range idx {
				idx[i] = i
			}
			slices.SortStableFunc(idx, func(a, b int) int { return cmp(docs[a], docs[b]) })
			out := cmd.OutOrStdout()
			for _, i := range idx {
				fmt.Fprintln(out, string(lines[i]))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&by, "by", "b", "", `sort order, e.g. "-rating,+name"`)
	_ = cmd.MarkFlagRequired("by")
	return cmd
}

func newApplyCommand(env *Env) *cobra.Command {
	var inline, file string
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Run a GetQuery over the JSON lines from stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := readQuery(inline, file)
			if err != nil {
				return err
			}
			lines, err := cliutil.ReadJSONLines(cmd.InOrStdin())
			if err != nil {
				return err
			}
			docs, err := cliutil.DecodeLines(lines)
			if err != nil {
				return err
			}
			res, err := q.Apply(docs, env.Options())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, r := range res {
				b, err := json.Marshal(r)
				if err != nil {
					return jqerrors.Wrap(jqerrors.ErrIO, "encode record", err)
				}
				fmt.Fprintln(out, string(b))
			}
			return nil
		},
	}
	queryFlags(cmd, &inline, &file)
	return cmd
}

// readQueries parses one GetQuery per stdin line
func readQueries(cmd *cobra.Command) ([]*jsonquery.GetQuery, error) {
	lines, err := cliutil.ReadJSONLines(cmd.InOrStdin())
	if err != nil {
		return nil, err
	}
	qs := make([]*jsonquery.GetQuery, 0, len(lines))
	for i, b := range lines {
		q, err := jsonquery.ParseGetQuery(b)
		if err != nil {
			return nil, jqerrors.Wrap(jqerrors.ErrParse, fmt.Sprintf("line %d", i+1), err)
		}
		qs = append(qs, q)
	}
	return qs, nil
}

func newMergeCommand(env *Env) *cobra.Command {
	var optimize bool
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge the GetQuery lines from stdin into one query",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			qs, err := readQueries(cmd)
			if err != nil {
				return err
			}
			merged := &jsonquery.GetQuery{}
			for _, q := range qs {
				merged.Merge(q)
			}
			if optimize {
				merged.Optimize()
			}
			printQuery(cmd, env, merged)
			return nil
		},
	}
	cmd.Flags().BoolVar(&optimize, "optimize", false, "optimize the merged query")
	return cmd
}

func newOptimizeCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "optimize",
		Short: "Simplify each GetQuery line from stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			qs, err := readQueries(cmd)
			if err != nil {
				return err
			}
			for _, q := range qs {
				q.Optimize()
				printQuery(cmd, env, q)
			}
			return nil
		},
	}
}

func newDescribeCommand(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "describe",
		Short: "Print each GetQuery line from stdin in readable form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			qs, err := readQueries(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, q := range qs {
				fmt.Fprintf(out, "WHERE %s", filter.String(q.Filter))
				if !q.SortOrder.Empty() {
					fmt.Fprintf(out, " ORDER BY %s", q.SortOrder.String())
				}
				if q.Limit != nil {
					fmt.Fprintf(out, " LIMIT %d", *q.Limit)
				}
				if q.Offset != nil {
					fmt.Fprintf(out, " OFFSET %d", *q.Offset)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
}

func newParamsCommand(env *Env) *cobra.Command {
	var decode bool
	cmd := &cobra.Command{
		Use:   "params",
		Short: "Convert GetQuery lines to URL query strings, or back with --decode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if decode {
				sc := bufio.NewScanner(cmd.InOrStdin())
				for sc.Scan() {
					line := strings.TrimPrefix(strings.TrimSpace(sc.Text()), "?")
					if line == "" {
						continue
					}
					v, err := url.ParseQuery(line)
					if err != nil {
						return jqerrors.Wrap(jqerrors.ErrParse, "query string", err)
					}
					q, err := jsonquery.ParseQueryParams(v)
					if err != nil {
						return err
					}
					printQuery(cmd, env, q)
				}
				return sc.Err()
			}

			qs, err := readQueries(cmd)
			if err != nil {
				return err
			}
			for _, q := range qs {
				s, ok, err := q.QueryString()
				if err != nil {
					return err
				}
				if ok {
					fmt.Fprintln(out, s)
				} else {
					fmt.Fprintln(out)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&decode, "decode", "d", false, "read query strings and print GetQuery JSON")
	return cmd
}

func printQuery(cmd *cobra.Command, env *Env, q *jsonquery.GetQuery) {
	if env.Format() == cliutil.FormatJSON {
		b, _ := json.Marshal(q)
		fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return
	}
	cliutil.PrintJSON(cmd.OutOrStdout(), q)
}
