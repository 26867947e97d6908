package service

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	dErrors "cardledger/pkg/domain-errors"
	txcontext "cardledger/pkg/platform/tx"
)

// StoreTx provides the transactional boundary for card mutations. key names the card
// being mutated; implementations serialise transactions that share a key.
//
// RunReadOnly gives fn a consistent view across stores: no committed transaction is
// visible in part.
type StoreTx interface {
	RunInTx(ctx context.Context, key string, fn func(ctx context.Context) error) error
	RunReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}

// numCardShards spreads per-card locks over a fixed set of mutexes.
const numCardShards = 128

// defaultCardTxTimeout is the maximum duration of a card transaction.
const defaultCardTxTimeout = 5 * time.Second

// shardedCardTx is the in-memory StoreTx. The shard lock for the key is held while fn runs
// and while its staged writes are applied, so transactions on the same card are linearizable.
// Staged writes are applied under commitMu, which readers share, so a journal lands in all
// stores at once.
type shardedCardTx struct {
	shards   [numCardShards]sync.Mutex
	commitMu sync.RWMutex
	timeout  time.Duration
}

func newShardedCardTx() *shardedCardTx {
	return &shardedCardTx{timeout: defaultCardTxTimeout}
}

func (t *shardedCardTx) RunInTx(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	shard := &t.shards[shardFor(key)]
	shard.Lock()
	defer shard.Unlock()

	// Check again after acquiring lock
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	journal := txcontext.NewJournal()
	if err := fn(txcontext.WithJournal(ctx, journal)); err != nil {
		journal.Discard()
		return err
	}
	if err := ctx.Err(); err != nil {
		journal.Discard()
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	t.commitMu.Lock()
	journal.Commit()
	t.commitMu.Unlock()
	return nil
}

func (t *shardedCardTx) RunReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "read aborted: context cancelled")
	}
	t.commitMu.RLock()
	defer t.commitMu.RUnlock()
	return fn(ctx)
}

func shardFor(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32() % numCardShards
}
