package tx

import (
	"context"
	"database/sql"
	"sync"
)

type ctxKey struct{}

type journalKey struct{}

var (
	txKey      = ctxKey{}
	journalCtx = journalKey{}
)

// WithTx stores a SQL transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey).(*sql.Tx)
	return tx, ok
}

// Journal is the in-memory counterpart of *sql.Tx. In-memory stores stage their writes
// on it instead of applying them; the transaction runner applies every staged write on
// commit or drops them all on rollback.
//
// Staged operations must not fail: stores validate before staging, while the caller
// holds the lock that serialises writers of the same record.
type Journal struct {
	mu  sync.Mutex
	ops []func()
}

func NewJournal() *Journal {
	return &Journal{}
}

// Stage queues op for commit.
func (j *Journal) Stage(op func()) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ops = append(j.ops, op)
}

// Len reports how many writes are staged.
func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.ops)
}

// Commit applies staged writes in the order they were staged. A journal commits once.
func (j *Journal) Commit() {
	j.mu.Lock()
	ops := j.ops
	j.ops = nil
	j.mu.Unlock()
	for _, op := range ops {
		op()
	}
}

// Discard drops staged writes.
func (j *Journal) Discard() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ops = nil
}

// WithJournal stores a journal in context for in-memory stores.
func WithJournal(ctx context.Context, j *Journal) context.Context {
	if j == nil {
		return ctx
	}
	return context.WithValue(ctx, journalCtx, j)
}

// JournalFrom extracts a journal from context if present.
func JournalFrom(ctx context.Context) (*Journal, bool) {
	j, ok := ctx.Value(journalCtx).(*Journal)
	return j, ok
}
