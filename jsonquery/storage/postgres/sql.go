package postgres

import "github.com/nonibytes/jsonquery/jsonquery/storage"

var SQLTemplates = storage.SQL{
	GetMeta: "SELECT value FROM meta WHERE key = $1",
	SetMeta: "INSERT INTO meta(key,value) VALUES($1,$2) ON CONFLICT(key) DO UPDATE SET value=EXCLUDED.value",

	GetRecord: "SELECT doc_json::text, created_at, updated_at FROM records WHERE record_key = $1",
	UpsertRecord: `INSERT INTO records(record_key, doc_json, created_at, updated_at)
	        VALUES($1, $2::jsonb, $3, $3)
	        ON CONFLICT(record_key) DO UPDATE
	          SET doc_json=EXCLUDED.doc_json,
	              updated_at=EXCLUDED.updated_at`,
	DeleteRecord:  "DELETE FROM records WHERE record_key = $1",
	CountRecords:  "SELECT COUNT(*) FROM records",
	ScanRecords:   "SELECT record_key, doc_json::text FROM records",
	GetRecordsIn:  "SELECT record_key, doc_json::text FROM records WHERE record_key IN (%s)",
	DeleteRecords: "DELETE FROM records WHERE record_key IN (%s)",

	CleanupExpiredCursors: "DELETE FROM cursor_store WHERE expires_at < $1",
	GetCursor:             "SELECT payload, expires_at FROM cursor_store WHERE handle = $1",
	PutCursor:             "INSERT INTO cursor_store(handle, payload, created_at, expires_at) VALUES($1,$2,$3,$4)",

	PutQuery: `INSERT INTO saved_queries(name, query_json, updated_at) VALUES($1, $2, $3)
	        ON CONFLICT(name) DO UPDATE SET query_json=EXCLUDED.query_json, updated_at=EXCLUDED.updated_at`,
	GetQuery:    "SELECT query_json FROM saved_queries WHERE name = $1",
	DeleteQuery: "DELETE FROM saved_queries WHERE name = $1",
	ListQueries: "SELECT name FROM saved_queries ORDER BY name",
}
