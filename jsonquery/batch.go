package jsonquery

import (
	"context"

	jqerrors "github.com/nonibytes/jsonquery/jsonquery/errors"
)

type batchOpKind int

const (
	batchPut batchOpKind = iota
	batchDelete
)

type batchOp struct {
	kind batchOpKind
	key  string
	doc  []byte // for put
}

// Batch collects puts and deletes that Cache.Batch applies in one transaction
type Batch struct {
	ops []batchOp
}

func NewBatch() Batch {
	return Batch{ops: make([]batchOp, 0)}
}

func (b *Batch) Put(key string, doc []byte) error {
	if err := checkRecord(key, doc); err != nil {
		return err
	}
	b.ops = append(b.ops, batchOp{kind: batchPut, key: key, doc: doc})
	return nil
}

func (b *Batch) Delete(key string) error {
	if key == "" {
		return jqerrors.New(jqerrors.ErrSchema, "record key cannot be empty")
	}
	b.ops = append(b.ops, batchOp{kind: batchDelete, key: key})
	return nil
}

func (b *Batch) Len() int {
	return len(b.ops)
}

func (b *Batch) Empty() bool {
	return len(b.ops) == 0
}

// Batch applies b atomically and returns the number of operations applied
func (c *Cache) Batch(ctx context.Context, b Batch) (int, error) {
	if b.Empty() {
		return 0, nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, jqerrors.Wrap(jqerrors.ErrSQL, "begin transaction", err)
	}
	defer tx.Rollback()

	sqlt := c.adapter.SQL()
	nowMS := c.nowMS()
	for _, op := range b.ops {
		switch op.kind {
		case batchPut:
			if _, err := tx.ExecContext(ctx, sqlt.UpsertRecord, op.key, string(op.doc), nowMS); err != nil {
				return 0, jqerrors.Wrap(jqerrors.ErrSQL, "put record", err)
			}
		case batchDelete:
			if _, err := tx.ExecContext(ctx, sqlt.DeleteRecord, op.key); err != nil {
				return 0, jqerrors.Wrap(jqerrors.ErrSQL, "delete record", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, jqerrors.Wrap(jqerrors.ErrSQL, "commit transaction", err)
	}
	return len(b.ops), nil
}
