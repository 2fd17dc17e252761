package jsonquery

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	jqerrors "github.com/nonibytes/jsonquery/jsonquery/errors"
	"github.com/nonibytes/jsonquery/jsonquery/filter"
	"github.com/nonibytes/jsonquery/jsonquery/sortorder"
	"github.com/nonibytes/jsonquery/jsonquery/storage"
	"github.com/nonibytes/jsonquery/jsonquery/storage/sqlbuilder"
)

// Cache is a persisted set of JSON records that GetQueries run against
type Cache struct {
	adapter    storage.Adapter
	db         *sql.DB
	opts       CacheOptions
	settings   settings
	cursors    *cursorStore
	predicates *lru.Cache[string, filter.Predicate]
	log        *slog.Logger
}

// Create creates a new cache. opts.Options is stored and becomes the
// default string comparison of every query.
func Create(ctx context.Context, adapter storage.Adapter, opts CacheOptions) (*Cache, error) {
	opts = opts.withDefaults()
	db, err := adapter.Connect(ctx)
	if err != nil {
		return nil, jqerrors.Wrap(jqerrors.ErrIO, "connect to database", err)
	}

	st := settings{Options: opts.Options}
	settingsJSON, err := json.Marshal(st)
	if err != nil {
		db.Close()
		return nil, jqerrors.Wrap(jqerrors.ErrSchema, "settings json", err)
	}
	if err := adapter.CreateCache(ctx, db, settingsJSON); err != nil {
		db.Close()
		return nil, jqerrors.Wrap(jqerrors.ErrSQL, "create cache", err)
	}

	return newCache(adapter, db, opts, st)
}

// Open opens an existing cache
func Open(ctx context.Context, adapter storage.Adapter, opts CacheOptions) (*Cache, error) {
	opts = opts.withDefaults()
	db, err := adapter.Connect(ctx)
	if err != nil {
		return nil, jqerrors.Wrap(jqerrors.ErrIO, "connect to database", err)
	}

	settingsJSON, err := adapter.OpenCache(ctx, db)
	if err != nil {
		db.Close()
		if errors.Is(err, storage.ErrNotACache) {
			return nil, jqerrors.Wrap(jqerrors.ErrSchema, "open cache", err)
		}
		return nil, jqerrors.Wrap(jqerrors.ErrSQL, "open cache", err)
	}
	var st settings
	if err := json.Unmarshal(settingsJSON, &st); err != nil {
		db.Close()
		return nil, jqerrors.Wrap(jqerrors.ErrSchema, "settings json", err)
	}

	return newCache(adapter, db, opts, st)
}

func newCache(adapter storage.Adapter, db *sql.DB, opts CacheOptions, st settings) (*Cache, error) {
	predicates, err := lru.New[string, filter.Predicate](opts.CompileCacheSize)
	if err != nil {
		db.Close()
		return nil, jqerrors.Wrap(jqerrors.ErrIO, "predicate cache", err)
	}
	return &Cache{
		adapter:  adapter,
		db:       db,
		opts:     opts,
		settings: st,
		cursors: &cursorStore{
			db:   db,
			sqlt: adapter.SQL(),
			ttl:  opts.CursorTTL,
			now:  opts.Now,
		},
		predicates: predicates,
		log:        opts.Logger.With("cache", adapter.CacheID()),
	}, nil
}

// Close closes the cache
func (c *Cache) Close() error {
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			return jqerrors.Wrap(jqerrors.ErrIO, "close database", err)
		}
	}
	return c.adapter.Close()
}

// Options returns the stored default string comparison settings
func (c *Cache) Options() Options {
	return c.settings.Options
}

// Put inserts or replaces the record under key
func (c *Cache) Put(ctx context.Context, key string, docJSON []byte) error {
	if err := checkRecord(key, docJSON); err != nil {
		return err
	}
	if _, err := c.db.ExecContext(ctx, c.adapter.SQL().UpsertRecord, key, string(docJSON), c.nowMS()); err != nil {
		return jqerrors.Wrap(jqerrors.ErrSQL, "put record", err)
	}
	return nil
}

// PutNew stores docJSON under a freshly generated key and returns the key
func (c *Cache) PutNew(ctx context.Context, docJSON []byte) (string, error) {
	key := uuid.NewString()
	if err := c.Put(ctx, key, docJSON); err != nil {
		return "", err
	}
	return key, nil
}

func checkRecord(key string, docJSON []byte) error {
	if key == "" {
		return jqerrors.New(jqerrors.ErrSchema, "record key cannot be empty")
	}
	if !json.Valid(docJSON) {
		return jqerrors.New(jqerrors.ErrParse, fmt.Sprintf("record %q is not valid JSON", key))
	}
	return nil
}

// Get retrieves a record by key
func (c *Cache) Get(ctx context.Context, key string) (Record, error) {
	var doc string
	var createdAt, updatedAt int64
	err := c.db.QueryRowContext(ctx, c.adapter.SQL().GetRecord, key).Scan(&doc, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, jqerrors.NotFoundError(key)
	}
	if err != nil {
		return Record{}, jqerrors.Wrap(jqerrors.ErrSQL, "get record", err)
	}
	return Record{
		Key:     key,
		DocJSON: []byte(doc),
		Meta:    RecordMeta{CreatedAtMS: createdAt, UpdatedAtMS: updatedAt},
	}, nil
}

// GetMany returns the stored documents of keys in the order given; missing
// keys are skipped
func (c *Cache) GetMany(ctx context.Context, keys []string) ([]Record, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	b := sqlbuilder.New(c.adapter.PlaceholderStyle())
	stmt := fmt.Sprintf(c.adapter.SQL().GetRecordsIn, sqlbuilder.List(b, keys))
	rows, err := c.db.QueryContext(ctx, stmt, b.Args()...)
	if err != nil {
		return nil, jqerrors.Wrap(jqerrors.ErrSQL, "get records", err)
	}
	defer rows.Close()

	found := make(map[string][]byte, len(keys))
	for rows.Next() {
		var key, doc string
		if err := rows.Scan(&key, &doc); err != nil {
			return nil, jqerrors.Wrap(jqerrors.ErrSQL, "scan record", err)
		}
		found[key] = []byte(doc)
	}
	if err := rows.Err(); err != nil {
		return nil, jqerrors.Wrap(jqerrors.ErrSQL, "get records", err)
	}

	out := make([]Record, 0, len(found))
	for _, key := range keys {
		if doc, ok := found[key]; ok {
			out = append(out, Record{Key: key, DocJSON: doc})
			delete(found, key)
		}
	}
	return out, nil
}

// Delete removes a record by key and reports whether it existed
func (c *Cache) Delete(ctx context.Context, key string) (bool, error) {
	res, err := c.db.ExecContext(ctx, c.adapter.SQL().DeleteRecord, key)
	if err != nil {
		return false, jqerrors.Wrap(jqerrors.ErrSQL, "delete record", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, jqerrors.Wrap(jqerrors.ErrSQL, "delete record", err)
	}
	return n > 0, nil
}

// DeleteMany removes records by key and returns how many existed
func (c *Cache) DeleteMany(ctx context.Context, keys []string) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	b := sqlbuilder.New(c.adapter.PlaceholderStyle())
	stmt := fmt.Sprintf(c.adapter.SQL().DeleteRecords, sqlbuilder.List(b, keys))
	res, err := c.db.ExecContext(ctx, stmt, b.Args()...)
	if err != nil {
		return 0, jqerrors.Wrap(jqerrors.ErrSQL, "delete records", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, jqerrors.Wrap(jqerrors.ErrSQL, "delete records", err)
	}
	return int(n), nil
}

// Count returns the number of stored records
func (c *Cache) Count(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, c.adapter.SQL().CountRecords).Scan(&n); err != nil {
		return 0, jqerrors.Wrap(jqerrors.ErrSQL, "count records", err)
	}
	return n, nil
}

type row struct {
	key string
	raw []byte
	doc any
}

// Query evaluates q over the stored records. Records are tested in
// insertion order, so ties in the sort order keep insertion order. When
// q.Limit leaves records behind, NextCursor resumes after the page.
func (c *Cache) Query(ctx context.Context, q *GetQuery, qopts QueryOptions) (page Page, err error) {
	start := time.Now()
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		QueriesTotal.WithLabelValues(status).Inc()
		QueryDuration.Observe(time.Since(start).Seconds())
	}()

	if q == nil {
		q = &GetQuery{}
	}

	// best effort
	_ = c.cursors.CleanupExpired(ctx)

	opts := c.settings.Options
	if qopts.Options != nil {
		opts = *qopts.Options
	}

	hash, err := hashQuery(q, opts)
	if err != nil {
		return Page{}, err
	}
	offset := 0
	if q.Offset != nil {
		offset = max(*q.Offset, 0)
	}
	if qopts.After != "" {
		pos, err := c.cursors.Resolve(ctx, qopts.After)
		if err != nil {
			return Page{}, err
		}
		if pos.Hash != hash {
			return Page{}, jqerrors.CursorError("cursor does not belong to this query")
		}
		offset = pos.Offset
	}

	compiled, err := c.compile(q, opts)
	if err != nil {
		return Page{}, err
	}

	rows, scanned, err := c.scan(ctx, q, compiled)
	if err != nil {
		return Page{}, err
	}
	RecordsScanned.Add(float64(scanned))
	RecordsMatched.Add(float64(len(rows)))

	if !q.SortOrder.Empty() {
		slices.SortStableFunc(rows, func(a, b row) int { return compiled.Compare(a.doc, b.doc) })
	}

	pageRows := window(rows, &offset, q.Limit)
	page = Page{Total: len(rows), Items: make([][]byte, 0, len(pageRows))}
	for _, r := range pageRows {
		item := r.raw
		if compiled.project != nil {
			item, err = json.Marshal(compiled.Project(r.doc))
			if err != nil {
				return Page{}, jqerrors.Wrap(jqerrors.ErrIO, "encode record", err)
			}
		}
		page.Items = append(page.Items, item)
	}

	next := offset + len(pageRows)
	page.HasMore = next < len(rows)
	if page.HasMore && q.Limit != nil {
		mode := qopts.CursorMode
		if mode == "" {
			mode = CursorFull
		}
		page.NextCursor, err = c.cursors.Store(ctx, CursorPosition{Offset: next, Hash: hash}, mode)
		if err != nil {
			return Page{}, err
		}
	}

	c.log.Debug("query",
		"filter", filter.String(q.Filter),
		"sort", q.SortOrder.String(),
		"scanned", scanned,
		"matched", len(rows),
		"offset", offset,
		"returned", len(page.Items),
	)
	return page, nil
}

// compile builds the query closures, reusing compiled predicates across calls
func (c *Cache) compile(q *GetQuery, opts Options) (*Compiled, error) {
	match, err := c.predicate(q.Filter, opts)
	if err != nil {
		return nil, err
	}
	cmp, err := sortorder.Compile(q.SortOrder, opts)
	if err != nil {
		return nil, err
	}
	proj, err := newProjection(q.Fields)
	if err != nil {
		return nil, err
	}
	return &Compiled{Query: q, Match: match, Compare: cmp, project: proj}, nil
}

func (c *Cache) predicate(f filter.Filter, opts Options) (filter.Predicate, error) {
	if f == nil {
		return filter.MatchAll, nil
	}
	fj, err := filter.Marshal(f)
	if err != nil {
		return nil, jqerrors.Wrap(jqerrors.ErrCompile, "filter json", err)
	}
	key := strconv.FormatBool(opts.CaseSensitive) + "|" + string(fj)
	if p, ok := c.predicates.Get(key); ok {
		PredicateCache.WithLabelValues("hit").Inc()
		return p, nil
	}
	PredicateCache.WithLabelValues("miss").Inc()
	p, err := filter.Compile(f, opts)
	if err != nil {
		return nil, err
	}
	c.predicates.Add(key, p)
	return p, nil
}

// scan loads the records inside q's key range and keeps the matching ones
func (c *Cache) scan(ctx context.Context, q *GetQuery, compiled *Compiled) ([]row, int, error) {
	b := sqlbuilder.New(c.adapter.PlaceholderStyle())
	var conds []string
	if q.Min != nil {
		conds = append(conds, "record_key >= "+b.Arg(*q.Min))
	}
	if q.Max != nil {
		conds = append(conds, "record_key <= "+b.Arg(*q.Max))
	}
	stmt := c.adapter.SQL().ScanRecords
	if len(conds) > 0 {
		stmt += " WHERE " + strings.Join(conds, " AND ")
	}
	stmt += " ORDER BY seq"

	rs, err := c.db.QueryContext(ctx, stmt, b.Args()...)
	if err != nil {
		return nil, 0, jqerrors.Wrap(jqerrors.ErrSQL, "scan records", err)
	}
	defer rs.Close()

	var out []row
	scanned := 0
	for rs.Next() {
		var key, doc string
		if err := rs.Scan(&key, &doc); err != nil {
			return nil, scanned, jqerrors.Wrap(jqerrors.ErrSQL, "scan record", err)
		}
		scanned++
		decoded, err := decodeDoc([]byte(doc))
		if err != nil {
			c.log.Warn("skipping undecodable record", "key", key, "error", err)
			continue
		}
		if compiled.Match(decoded) {
			out = append(out, row{key: key, raw: []byte(doc), doc: decoded})
		}
	}
	if err := rs.Err(); err != nil {
		return nil, scanned, jqerrors.Wrap(jqerrors.ErrSQL, "scan records", err)
	}
	return out, scanned, nil
}

func decodeDoc(data []byte) (any, error) {
	var v any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// SaveQuery validates q against the GetQuery schema and stores it by name
func (c *Cache) SaveQuery(ctx context.Context, name string, q *GetQuery) error {
	if name == "" {
		return jqerrors.New(jqerrors.ErrSchema, "query name cannot be empty")
	}
	data, err := json.Marshal(q)
	if err != nil {
		return jqerrors.Wrap(jqerrors.ErrParse, "encode query", err)
	}
	if err := ValidateJSON(data); err != nil {
		return err
	}
	if _, err := c.db.ExecContext(ctx, c.adapter.SQL().PutQuery, name, string(data), c.nowMS()); err != nil {
		return jqerrors.Wrap(jqerrors.ErrSQL, "save query", err)
	}
	return nil
}

// LoadQuery returns the query saved under name
func (c *Cache) LoadQuery(ctx context.Context, name string) (*GetQuery, error) {
	var data string
	err := c.db.QueryRowContext(ctx, c.adapter.SQL().GetQuery, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, jqerrors.NotFoundError("query " + name)
	}
	if err != nil {
		return nil, jqerrors.Wrap(jqerrors.ErrSQL, "load query", err)
	}
	return FromJSON([]byte(data))
}

// DeleteQuery removes a saved query and reports whether it existed
func (c *Cache) DeleteQuery(ctx context.Context, name string) (bool, error) {
	res, err := c.db.ExecContext(ctx, c.adapter.SQL().DeleteQuery, name)
	if err != nil {
		return false, jqerrors.Wrap(jqerrors.ErrSQL, "delete query", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, jqerrors.Wrap(jqerrors.ErrSQL, "delete query", err)
	}
	return n > 0, nil
}

// ListQueries returns saved query names in order
func (c *Cache) ListQueries(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, c.adapter.SQL().ListQueries)
	if err != nil {
		return nil, jqerrors.Wrap(jqerrors.ErrSQL, "list queries", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, jqerrors.Wrap(jqerrors.ErrSQL, "scan query name", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, jqerrors.Wrap(jqerrors.ErrSQL, "list queries", err)
	}
	return names, nil
}

// Optimize compacts the database (VACUUM, ANALYZE, ...)
func (c *Cache) Optimize(ctx context.Context) error {
	if err := c.adapter.Optimize(ctx, c.db); err != nil {
		return jqerrors.Wrap(jqerrors.ErrSQL, "optimize", err)
	}
	return nil
}

// Adapter returns the underlying storage adapter
func (c *Cache) Adapter() storage.Adapter {
	return c.adapter
}

func (c *Cache) nowMS() int64 {
	return c.opts.Now().UnixMilli()
}
