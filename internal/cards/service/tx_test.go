package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "cardledger/pkg/domain-errors"
	txcontext "cardledger/pkg/platform/tx"
)

func TestShardedCardTxCommitsStagedWrites(t *testing.T) {
	tx := newShardedCardTx()
	applied := false
	err := tx.RunInTx(context.Background(), "card-1", func(ctx context.Context) error {
		j, ok := txcontext.JournalFrom(ctx)
		require.True(t, ok)
		j.Stage(func() { applied = true })
		assert.False(t, applied)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, applied)
}

func TestShardedCardTxDiscardsOnError(t *testing.T) {
	tx := newShardedCardTx()
	applied := false
	boom := errors.New("boom")
	err := tx.RunInTx(context.Background(), "card-1", func(ctx context.Context) error {
		j, _ := txcontext.JournalFrom(ctx)
		j.Stage(func() { applied = true })
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, applied)
}

func TestShardedCardTxRejectsCancelledContext(t *testing.T) {
	tx := newShardedCardTx()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := tx.RunInTx(ctx, "card-1", func(context.Context) error {
		called = true
		return nil
	})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))
	assert.False(t, called)
}

func TestShardedCardTxAppliesDefaultDeadline(t *testing.T) {
	tx := newShardedCardTx()
	err := tx.RunInTx(context.Background(), "card-1", func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		assert.True(t, ok)
		return nil
	})
	require.NoError(t, err)
}

func TestShardedCardTxCommitWaitsForReaders(t *testing.T) {
	tx := newShardedCardTx()
	var applied atomic.Bool
	committed := make(chan error, 1)

	err := tx.RunReadOnly(context.Background(), func(context.Context) error {
		go func() {
			committed <- tx.RunInTx(context.Background(), "card-1", func(ctx context.Context) error {
				j, _ := txcontext.JournalFrom(ctx)
				j.Stage(func() { applied.Store(true) })
				return nil
			})
		}()
		time.Sleep(20 * time.Millisecond)
		assert.False(t, applied.Load(), "staged writes wait for the read to finish")
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, <-committed)
	assert.True(t, applied.Load())
}

func TestShardedCardTxReadRejectsCancelledContext(t *testing.T) {
	tx := newShardedCardTx()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := tx.RunReadOnly(ctx, func(context.Context) error {
		t.Fatal("read ran with a cancelled context")
		return nil
	})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))
}

func TestShardForIsStable(t *testing.T) {
	assert.Equal(t, shardFor("abc"), shardFor("abc"))
	assert.Less(t, shardFor("abc"), uint32(numCardShards))
}
