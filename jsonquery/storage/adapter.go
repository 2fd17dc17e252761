package storage

import (
	"context"
	"database/sql"

	"github.com/nonibytes/jsonquery/jsonquery/storage/sqlbuilder"
)

type Backend string

const (
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
)

// Meta keys written by CreateCache
const (
	MetaMagic    = "jsonquery_magic"
	MetaVersion  = "jsonquery_version"
	MetaSettings = "settings_json"

	Magic   = "jsonquery"
	Version = "1"
)

// Adapter abstracts database-specific operations
type Adapter interface {
	Backend() Backend
	PlaceholderStyle() sqlbuilder.PlaceholderStyle
	CacheID() string

	Connect(ctx context.Context) (*sql.DB, error)
	Close() error

	// CreateCache creates the tables and stores settingsJSON in meta
	CreateCache(ctx context.Context, db *sql.DB, settingsJSON []byte) error
	// OpenCache checks the magic row and returns the stored settings
	OpenCache(ctx context.Context, db *sql.DB) (settingsJSON []byte, err error)
	Optimize(ctx context.Context, db *sql.DB) error

	SQL() SQL
}

// SQL holds prepared SQL templates for common operations.
// Templates ending in "In" take a placeholder list built with sqlbuilder.
type SQL struct {
	GetMeta string
	SetMeta string

	GetRecord     string
	UpsertRecord  string
	DeleteRecord  string
	CountRecords  string
	ScanRecords   string
	GetRecordsIn  string
	DeleteRecords string

	CleanupExpiredCursors string
	GetCursor             string
	PutCursor             string

	PutQuery    string
	GetQuery    string
	DeleteQuery string
	ListQueries string
}

// Bootstrap runs ddl and writes the meta rows shared by every backend
func Bootstrap(ctx context.Context, db *sql.DB, sqlt SQL, ddl string, settingsJSON []byte) error {
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, sqlt.SetMeta, MetaMagic, Magic); err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, sqlt.SetMeta, MetaVersion, Version); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx, sqlt.SetMeta, MetaSettings, string(settingsJSON))
	return err
}

// ReadSettings verifies the magic row and returns the stored settings
func ReadSettings(ctx context.Context, db *sql.DB, sqlt SQL) ([]byte, error) {
	var magic string
	if err := db.QueryRowContext(ctx, sqlt.GetMeta, MetaMagic).Scan(&magic); err != nil {
		return nil, err
	}
	if magic != Magic {
		return nil, ErrNotACache
	}
	var settings string
	if err := db.QueryRowContext(ctx, sqlt.GetMeta, MetaSettings).Scan(&settings); err != nil {
		return nil, err
	}
	return []byte(settings), nil
}
