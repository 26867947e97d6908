package card

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"cardledger/internal/cards/models"
	"cardledger/internal/platform/postgres"
	"cardledger/pkg/platform/sentinel"
	txcontext "cardledger/pkg/platform/tx"
)

// Postgres stores cards in the cards table. Calls join the transaction in ctx when present.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const cardColumns = `id, owner, name, info, grade, confidence, image_ref, image_digest, estimated_value, created_at`

func (s *Postgres) Insert(ctx context.Context, card *models.Card) error {
	query := `
		INSERT INTO cards (id, owner, name, info, grade, confidence, image_ref, image_digest, estimated_value, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(card.ID),
		card.Owner,
		card.Name,
		card.Info,
		card.Grade,
		card.Confidence,
		card.ImageRef,
		card.ImageDigest,
		card.EstimatedValue,
		card.CreatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert card: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id models.CardID) (*models.Card, error) {
	return s.findOne(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = $1`, id)
}

func (s *Postgres) OwnerOf(ctx context.Context, id models.CardID) (string, error) {
	var owner string
	err := s.execer(ctx).QueryRowContext(ctx, `SELECT owner FROM cards WHERE id = $1`, uuid.UUID(id)).Scan(&owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", sentinel.ErrNotFound
		}
		return "", fmt.Errorf("find card owner: %w", err)
	}
	return owner, nil
}

// FindByIDForUpdate locks the row until the surrounding transaction ends.
func (s *Postgres) FindByIDForUpdate(ctx context.Context, id models.CardID) (*models.Card, error) {
	return s.findOne(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = $1 FOR UPDATE`, id)
}

func (s *Postgres) findOne(ctx context.Context, query string, id models.CardID) (*models.Card, error) {
	card, err := scanCard(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(id)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find card: %w", err)
	}
	return card, nil
}

func (s *Postgres) ListByOwner(ctx context.Context, owner string) ([]*models.Card, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE owner = $1 ORDER BY seq`, owner)
	if err != nil {
		return nil, fmt.Errorf("list cards by owner: %w", err)
	}
	defer rows.Close()

	cards := make([]*models.Card, 0)
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cards: %w", err)
	}
	return cards, nil
}

func (s *Postgres) UpdateOwner(ctx context.Context, id models.CardID, expectedOwner, newOwner string) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE cards SET owner = $3 WHERE id = $1 AND owner = $2`,
		uuid.UUID(id), expectedOwner, newOwner,
	)
	if err != nil {
		return fmt.Errorf("update card owner: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update card owner: %w", err)
	}
	if n == 1 {
		return nil
	}

	var exists bool
	if err := s.execer(ctx).QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM cards WHERE id = $1)`, uuid.UUID(id)).Scan(&exists); err != nil {
		return fmt.Errorf("check card exists: %w", err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrConflict
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (*models.Card, error) {
	var (
		c  models.Card
		id uuid.UUID
	)
	if err := row.Scan(&id, &c.Owner, &c.Name, &c.Info, &c.Grade, &c.Confidence,
		&c.ImageRef, &c.ImageDigest, &c.EstimatedValue, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.ID = models.CardID(id)
	return &c, nil
}
