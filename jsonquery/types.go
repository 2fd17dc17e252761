package jsonquery

import (
	"log/slog"
	"time"
)

// CursorMode specifies how cursors are returned
type CursorMode string

const (
	CursorShort CursorMode = "short" // c:handle stored in DB
	CursorFull  CursorMode = "full"  // self-contained base64url JSON
)

// CacheOptions configures cache behavior
type CacheOptions struct {
	CursorTTL time.Duration // default 1h
	Now       func() time.Time
	// CompileCacheSize bounds the number of compiled predicates kept per cache
	CompileCacheSize int
	// Options is persisted by Create and used by queries that do not override it
	Options Options
	Logger  *slog.Logger
}

// DefaultCacheOptions returns sensible defaults
func DefaultCacheOptions() CacheOptions {
	return CacheOptions{
		CursorTTL:        DefaultCursorTTL,
		Now:              time.Now,
		CompileCacheSize: DefaultCompileCacheSize,
		Logger:           slog.Default(),
	}
}

func (o CacheOptions) withDefaults() CacheOptions {
	if o.CursorTTL <= 0 {
		o.CursorTTL = DefaultCursorTTL
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.CompileCacheSize <= 0 {
		o.CompileCacheSize = DefaultCompileCacheSize
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// QueryOptions configures a Cache.Query call
type QueryOptions struct {
	After      string // cursor token or ""
	CursorMode CursorMode
	// Options overrides the cache's stored string comparison settings
	Options *Options
}

// RecordMeta holds record timestamps
type RecordMeta struct {
	CreatedAtMS int64
	UpdatedAtMS int64
}

// Record is a stored document with its key
type Record struct {
	Key     string
	DocJSON []byte
	Meta    RecordMeta
}

// Page is one page of query results
type Page struct {
	Items      [][]byte // projected JSON per record
	Total      int      // matches before offset and limit
	NextCursor string
	HasMore    bool
}

// settings is what Create persists in the meta table
type settings struct {
	Options Options `json:"options"`
}
