package jsonquery

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	jqerrors "github.com/nonibytes/jsonquery/jsonquery/errors"
	"github.com/nonibytes/jsonquery/jsonquery/storage"
)

const shortCursorPrefix = "c:"

// CursorPosition is the resume point of a paged query
type CursorPosition struct {
	Offset int    `json:"offset"`
	Hash   string `json:"hash"`
}

// hashQuery identifies everything but the offset of q, so a cursor cannot
// resume a different query
func hashQuery(q *GetQuery, opts Options) (string, error) {
	base := q.Clone()
	base.Offset = nil
	qb, err := json.Marshal(base)
	if err != nil {
		return "", jqerrors.Wrap(jqerrors.ErrCursor, "query json", err)
	}
	ob, err := json.Marshal(opts)
	if err != nil {
		return "", jqerrors.Wrap(jqerrors.ErrCursor, "options json", err)
	}
	h := sha256.New()
	h.Write(qb)
	h.Write([]byte("\n"))
	h.Write(ob)
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

func encodeFull(pos CursorPosition) (string, error) {
	b, err := json.Marshal(pos)
	if err != nil {
		return "", jqerrors.Wrap(jqerrors.ErrCursor, "cursor json", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func decodeFull(tok string) (CursorPosition, error) {
	b, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil {
		return CursorPosition{}, jqerrors.CursorError("base64 decode error")
	}
	var pos CursorPosition
	if err := json.Unmarshal(b, &pos); err != nil {
		return CursorPosition{}, jqerrors.CursorError("cursor json parse error")
	}
	return pos, nil
}

func makeShortHandle() (string, error) {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return "", jqerrors.Wrap(jqerrors.ErrCursor, "rand", err)
	}
	return hex.EncodeToString(b), nil
}

// IsShortCursor reports whether tok is a c:handle token
func IsShortCursor(tok string) bool {
	return len(tok) > len(shortCursorPrefix) && strings.HasPrefix(tok, shortCursorPrefix)
}

// cursorStore keeps short cursor handles in the cursor_store table
type cursorStore struct {
	db   *sql.DB
	sqlt storage.SQL
	ttl  time.Duration
	now  func() time.Time
}

func (s *cursorStore) Resolve(ctx context.Context, tok string) (CursorPosition, error) {
	if !IsShortCursor(tok) {
		return decodeFull(tok)
	}
	handle := tok[len(shortCursorPrefix):]

	var payload string
	var expiresAt int64
	err := s.db.QueryRowContext(ctx, s.sqlt.GetCursor, handle).Scan(&payload, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return CursorPosition{}, jqerrors.CursorError("cursor expired or not found")
	}
	if err != nil {
		return CursorPosition{}, jqerrors.Wrap(jqerrors.ErrSQL, "query cursor", err)
	}
	if s.now().UnixMilli() > expiresAt {
		return CursorPosition{}, jqerrors.CursorError("cursor expired")
	}

	var pos CursorPosition
	if err := json.Unmarshal([]byte(payload), &pos); err != nil {
		return CursorPosition{}, jqerrors.CursorError("cursor json parse error")
	}
	return pos, nil
}

func (s *cursorStore) Store(ctx context.Context, pos CursorPosition, mode CursorMode) (string, error) {
	if mode != CursorShort {
		return encodeFull(pos)
	}
	handle, err := makeShortHandle()
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(pos)
	if err != nil {
		return "", jqerrors.Wrap(jqerrors.ErrCursor, "cursor json", err)
	}
	nowMS := s.now().UnixMilli()
	if _, err := s.db.ExecContext(ctx, s.sqlt.PutCursor, handle, string(payload), nowMS, nowMS+s.ttl.Milliseconds()); err != nil {
		return "", jqerrors.Wrap(jqerrors.ErrSQL, "store cursor", err)
	}
	return shortCursorPrefix + handle, nil
}

func (s *cursorStore) CleanupExpired(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, s.sqlt.CleanupExpiredCursors, s.now().UnixMilli())
	return err
}
