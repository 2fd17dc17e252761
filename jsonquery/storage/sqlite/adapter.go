package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/nonibytes/jsonquery/jsonquery/storage"
	"github.com/nonibytes/jsonquery/jsonquery/storage/sqlbuilder"
)

// Driver names registered by modernc.org/sqlite and mattn/go-sqlite3
const (
	DriverModernc = "sqlite"
	DriverMattn   = "sqlite3"
)

type Adapter struct {
	Path       string
	DriverName string
}

// New uses the pure Go driver. The caller must import modernc.org/sqlite.
func New(path string) *Adapter {
	return &Adapter{Path: path, DriverName: DriverModernc}
}

func NewWithDriver(path, driver string) *Adapter {
	return &Adapter{Path: path, DriverName: driver}
}

func (a *Adapter) Backend() storage.Backend {
	return storage.BackendSQLite
}

func (a *Adapter) PlaceholderStyle() sqlbuilder.PlaceholderStyle {
	return sqlbuilder.PlaceholderQuestion
}

func (a *Adapter) CacheID() string {
	return a.Path
}

func (a *Adapter) Connect(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open(a.DriverName, a.dsn())
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// dsn appends the busy timeout in the syntax each driver understands
func (a *Adapter) dsn() string {
	params := "_busy_timeout=5000&_foreign_keys=on"
	if a.DriverName == DriverModernc {
		params = "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	}
	if strings.Contains(a.Path, "?") {
		return a.Path + "&" + params
	}
	return a.Path + "?" + params
}

func (a *Adapter) Close() error {
	return nil
}

func (a *Adapter) SQL() storage.SQL {
	return SQLTemplates
}

func (a *Adapter) CreateCache(ctx context.Context, db *sql.DB, settingsJSON []byte) error {
	if err := storage.Bootstrap(ctx, db, a.SQL(), ddlBase, settingsJSON); err != nil {
		return err
	}
	_, _ = db.ExecContext(ctx, "PRAGMA journal_mode=WAL;")
	_, _ = db.ExecContext(ctx, "PRAGMA synchronous=NORMAL;")
	return nil
}

func (a *Adapter) OpenCache(ctx context.Context, db *sql.DB) ([]byte, error) {
	return storage.ReadSettings(ctx, db, a.SQL())
}

func (a *Adapter) Optimize(ctx context.Context, db *sql.DB) error {
	_, _ = db.ExecContext(ctx, "PRAGMA optimize")
	_, err := db.ExecContext(ctx, "VACUUM")
	return err
}
