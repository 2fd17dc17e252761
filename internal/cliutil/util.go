package cliutil

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/nonibytes/jsonquery/internal/config"
	"github.com/nonibytes/jsonquery/internal/logger"
	"github.com/nonibytes/jsonquery/jsonquery"
	jqerrors "github.com/nonibytes/jsonquery/jsonquery/errors"
	"github.com/nonibytes/jsonquery/jsonquery/storage"
	"github.com/nonibytes/jsonquery/jsonquery/storage/postgres"
	"github.com/nonibytes/jsonquery/jsonquery/storage/sqlite"
)

type OutputFormat string

const (
	FormatPretty OutputFormat = "pretty"
	FormatJSON   OutputFormat = "json"
)

func ParseOutputFormat(s string) OutputFormat {
	switch OutputFormat(s) {
	case FormatPretty, FormatJSON:
		return OutputFormat(s)
	default:
		return FormatPretty
	}
}

func PrintJSON(w io.Writer, v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(w, string(b))
}

// PrintRaw writes one JSON document per line, indented in pretty mode
func PrintRaw(w io.Writer, format OutputFormat, doc []byte) {
	if format == FormatPretty {
		var buf bytes.Buffer
		if err := json.Indent(&buf, doc, "", "  "); err == nil {
			fmt.Fprintln(w, buf.String())
			return
		}
	}
	fmt.Fprintln(w, string(doc))
}

// ReadJSONLines reads one JSON value per non-blank line
func ReadJSONLines(r io.Reader) ([][]byte, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var out [][]byte
	line := 0
	for sc.Scan() {
		line++
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}
		if !json.Valid(b) {
			return nil, jqerrors.ParseError(fmt.Sprintf("line %d: invalid JSON", line))
		}
		out = append(out, append([]byte(nil), b...))
	}
	if err := sc.Err(); err != nil {
		return nil, jqerrors.Wrap(jqerrors.ErrIO, "read input", err)
	}
	return out, nil
}

// DecodeLines decodes each line keeping numbers exact
func DecodeLines(lines [][]byte) ([]any, error) {
	out := make([]any, 0, len(lines))
	for i, b := range lines {
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, jqerrors.Wrap(jqerrors.ErrParse, fmt.Sprintf("line %d", i+1), err)
		}
		out = append(out, v)
	}
	return out, nil
}

// ResolveCacheRef transforms the user-provided -c/--cache value into a backend-specific reference.
//
//   - sqlite: if the name contains a path separator or ends with .db, treat as explicit path.
//     else: <DSN>/<name>.db, where an empty name means DSN itself when it is a .db file
//     and <DSN>/jsonquery.db otherwise.
//   - postgres: the name becomes the schema; empty means the configured schema.
func ResolveCacheRef(cfg config.Config, name string) string {
	switch strings.ToLower(cfg.Backend) {
	case "sqlite":
		if name == "" {
			if strings.HasSuffix(cfg.DSN, ".db") {
				return cfg.DSN
			}
			name = "jsonquery"
		}
		if strings.Contains(name, string(filepath.Separator)) || strings.HasSuffix(name, ".db") {
			return name
		}
		return filepath.Join(cfg.DSN, name+".db")
	default:
		if name == "" {
			return cfg.Schema
		}
		return name
	}
}

// OpenAdapter builds the storage adapter for the configured backend
func OpenAdapter(cfg config.Config, name string) (storage.Adapter, error) {
	ref := ResolveCacheRef(cfg, name)
	switch strings.ToLower(cfg.Backend) {
	case "sqlite":
		return sqlite.NewWithDriver(ref, cfg.Driver), nil
	case "postgres":
		return postgres.New(cfg.DSN, ref), nil
	default:
		return nil, jqerrors.New(jqerrors.ErrSchema, fmt.Sprintf("unknown backend %q", cfg.Backend))
	}
}

// CacheOptions maps the config onto cache options
func CacheOptions(cfg config.Config) jsonquery.CacheOptions {
	opts := jsonquery.DefaultCacheOptions()
	opts.CursorTTL = cfg.CursorTTL
	opts.CompileCacheSize = cfg.CompileCacheSize
	opts.Options = jsonquery.Options{CaseSensitive: cfg.CaseSensitive}
	opts.Logger = logger.Get()
	return opts
}
