//go:build integration

package card_test

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"cardledger/internal/cards/models"
	"cardledger/internal/cards/store/card"
	"cardledger/pkg/platform/sentinel"
	txcontext "cardledger/pkg/platform/tx"
	"cardledger/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *card.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = card.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "trades", "cards", "outbox")
	s.Require().NoError(err)
}

func newTestCard(owner, name string) *models.Card {
	c, err := models.NewCard(models.NewCardID(), owner, name, "Base Set", models.Grade{Label: "Gem 10", Confidence: 0.97},
		models.Image{ContentType: "image/jpeg", Data: []byte(name)}, time.Now().UTC().Truncate(time.Microsecond))
	if err != nil {
		panic(err)
	}
	return c
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	c := newTestCard("Ash", "Pikachu")
	c.EstimatedValue = decimal.NewNullDecimal(decimal.RequireFromString("149.99"))
	s.Require().NoError(s.store.Insert(ctx, c))

	found, err := s.store.FindByID(ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(c.ID, found.ID)
	s.Equal(c.ImageDigest, found.ImageDigest)
	s.True(found.EstimatedValue.Valid)
	s.True(c.EstimatedValue.Decimal.Equal(found.EstimatedValue.Decimal))
	s.True(c.CreatedAt.Equal(found.CreatedAt))

	s.Require().ErrorIs(s.store.Insert(ctx, c), sentinel.ErrAlreadyUsed)

	_, err = s.store.FindByID(ctx, models.NewCardID())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListByOwnerOrder() {
	ctx := context.Background()
	a := newTestCard("Ash", "Pikachu")
	b := newTestCard("Brock", "Onix")
	c := newTestCard("Ash", "Squirtle")
	for _, x := range []*models.Card{a, b, c} {
		s.Require().NoError(s.store.Insert(ctx, x))
	}

	cards, err := s.store.ListByOwner(ctx, "Ash")
	s.Require().NoError(err)
	s.Require().Len(cards, 2)
	s.Equal(a.ID, cards[0].ID)
	s.Equal(c.ID, cards[1].ID)
}

func (s *PostgresStoreSuite) TestUpdateOwnerCompareAndSwap() {
	ctx := context.Background()
	c := newTestCard("Ash", "Pikachu")
	s.Require().NoError(s.store.Insert(ctx, c))

	s.Require().ErrorIs(s.store.UpdateOwner(ctx, c.ID, "Gary", "Brock"), sentinel.ErrConflict)
	s.Require().ErrorIs(s.store.UpdateOwner(ctx, models.NewCardID(), "Ash", "Brock"), sentinel.ErrNotFound)
	s.Require().NoError(s.store.UpdateOwner(ctx, c.ID, "Ash", "Brock"))

	owner, err := s.store.OwnerOf(ctx, c.ID)
	s.Require().NoError(err)
	s.Equal("Brock", owner)
	_, err = s.store.OwnerOf(ctx, models.NewCardID())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

// TestConcurrentCompareAndSwap verifies only one of many racing swaps from the same owner wins.
func (s *PostgresStoreSuite) TestConcurrentCompareAndSwap() {
	ctx := context.Background()
	c := newTestCard("Ash", "Pikachu")
	s.Require().NoError(s.store.Insert(ctx, c))

	const goroutines = 20
	var wg sync.WaitGroup
	var wins, conflicts atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.store.UpdateOwner(ctx, c.ID, "Ash", "Trainer"+string(rune('A'+i)))
			switch {
			case err == nil:
				wins.Add(1)
			case err == sentinel.ErrConflict:
				conflicts.Add(1)
			}
		}(i)
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load())
	s.Equal(int32(goroutines-1), conflicts.Load())
}

func (s *PostgresStoreSuite) TestRollbackDiscardsWrites() {
	ctx := context.Background()
	c := newTestCard("Ash", "Pikachu")

	tx, err := s.postgres.DB.BeginTx(ctx, &sql.TxOptions{})
	s.Require().NoError(err)
	s.Require().NoError(s.store.Insert(txcontext.WithTx(ctx, tx), c))
	s.Require().NoError(tx.Rollback())

	_, err = s.store.FindByID(ctx, c.ID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}
