package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"cardledger/internal/cards/models"
	txcontext "cardledger/pkg/platform/tx"
)

// Postgres appends to the trades table. A trigger in the schema rejects UPDATE and DELETE.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type dbExecutor interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Postgres) Append(ctx context.Context, rec *models.TradeRecord) error {
	query := `
		INSERT INTO trades (card_id, from_owner, to_owner, traded_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := s.execer(ctx).QueryRowContext(ctx, query,
		uuid.UUID(rec.CardID), rec.FromOwner, rec.ToOwner, rec.TradedAt,
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("append trade: %w", err)
	}
	return nil
}

func (s *Postgres) HistoryFor(ctx context.Context, cardID models.CardID) ([]models.TradeRecord, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT id, card_id, from_owner, to_owner, traded_at
		FROM trades
		WHERE card_id = $1
		ORDER BY traded_at, id
	`, uuid.UUID(cardID))
	if err != nil {
		return nil, fmt.Errorf("query trade history: %w", err)
	}
	return scanTrades(rows)
}

func (s *Postgres) LatestFor(ctx context.Context, cardIDs []models.CardID) (map[models.CardID]models.TradeRecord, error) {
	out := make(map[models.CardID]models.TradeRecord, len(cardIDs))
	if len(cardIDs) == 0 {
		return out, nil
	}
	ids := make([]string, len(cardIDs))
	for i, id := range cardIDs {
		ids[i] = id.String()
	}
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT DISTINCT ON (card_id) id, card_id, from_owner, to_owner, traded_at
		FROM trades
		WHERE card_id = ANY($1::uuid[])
		ORDER BY card_id, traded_at DESC, id DESC
	`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("query latest trades: %w", err)
	}
	records, err := scanTrades(rows)
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		out[r.CardID] = r
	}
	return out, nil
}

func scanTrades(rows *sql.Rows) ([]models.TradeRecord, error) {
	defer rows.Close()
	records := make([]models.TradeRecord, 0)
	for rows.Next() {
		var (
			r  models.TradeRecord
			id uuid.UUID
		)
		if err := rows.Scan(&r.ID, &id, &r.FromOwner, &r.ToOwner, &r.TradedAt); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		r.CardID = models.CardID(id)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trades: %w", err)
	}
	return records, nil
}
