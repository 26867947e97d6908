//go:build integration

package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"cardledger/internal/cards/models"
	"cardledger/internal/cards/store/card"
	"cardledger/internal/cards/store/ledger"
	"cardledger/pkg/testutil/containers"
)

type PostgresLedgerSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	cards    *card.Postgres
	store    *ledger.Postgres
}

func TestPostgresLedgerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresLedgerSuite))
}

func (s *PostgresLedgerSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.cards = card.NewPostgres(s.postgres.DB)
	s.store = ledger.NewPostgres(s.postgres.DB)
}

func (s *PostgresLedgerSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "trades", "cards", "outbox"))
}

func (s *PostgresLedgerSuite) insertCard(owner string) models.CardID {
	c, err := models.NewCard(models.NewCardID(), owner, "Pikachu", "", models.Grade{Label: "Poor", Confidence: 0.4},
		models.Image{ContentType: "image/png", Data: []byte("x")}, time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.cards.Insert(context.Background(), c))
	return c.ID
}

func (s *PostgresLedgerSuite) TestHistoryAndLatest() {
	ctx := context.Background()
	t0 := time.Now().UTC().Truncate(time.Microsecond)
	a := s.insertCard("Ash")
	b := s.insertCard("Gary")

	for _, r := range []*models.TradeRecord{
		{CardID: a, FromOwner: "Ash", ToOwner: "Brock", TradedAt: t0},
		{CardID: a, FromOwner: "Brock", ToOwner: "Misty", TradedAt: t0},
		{CardID: b, FromOwner: "Gary", ToOwner: "Ash", TradedAt: t0.Add(time.Second)},
	} {
		s.Require().NoError(s.store.Append(ctx, r))
		s.NotZero(r.ID)
	}

	history, err := s.store.HistoryFor(ctx, a)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.NoError(models.VerifyChain("Misty", history))

	latest, err := s.store.LatestFor(ctx, []models.CardID{a, b, models.NewCardID()})
	s.Require().NoError(err)
	s.Len(latest, 2)
	s.Equal("Misty", latest[a].ToOwner)
	s.Equal("Ash", latest[b].ToOwner)
}

func (s *PostgresLedgerSuite) TestTradesAreAppendOnly() {
	ctx := context.Background()
	a := s.insertCard("Ash")
	s.Require().NoError(s.store.Append(ctx, &models.TradeRecord{CardID: a, FromOwner: "Ash", ToOwner: "Brock", TradedAt: time.Now()}))

	_, err := s.postgres.DB.ExecContext(ctx, `UPDATE trades SET to_owner = 'Gary'`)
	s.Require().Error(err)
	s.Contains(err.Error(), "append-only")

	_, err = s.postgres.DB.ExecContext(ctx, `DELETE FROM trades`)
	s.Require().Error(err)
}
