// Package cache is a read-through cache of graded cards in Redis. Only the fields fixed
// at grading time are stored; the owner is left out because a transfer can change it
// between a read and the cache write that follows it.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"cardledger/internal/cards/models"
)

const keyPrefix = "cardledger:card:"

// Redis caches cards by id. A miss returns (nil, nil). Cards read back have no Owner.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedis(client redis.UniversalClient, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Redis{client: client, ttl: ttl}
}

type cachedCard struct {
	ID             uuid.UUID           `json:"id"`
	Name           string              `json:"name"`
	Info           string              `json:"info"`
	Grade          string              `json:"grade"`
	Confidence     float64             `json:"confidence"`
	ImageRef       string              `json:"image_ref"`
	ImageDigest    string              `json:"image_digest"`
	EstimatedValue decimal.NullDecimal `json:"estimated_value"`
	CreatedAt      time.Time           `json:"created_at"`
}

func key(id models.CardID) string {
	return keyPrefix + id.String()
}

func (c *Redis) Get(ctx context.Context, id models.CardID) (*models.Card, error) {
	raw, err := c.client.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}
	var cc cachedCard
	if err := json.Unmarshal(raw, &cc); err != nil {
		return nil, fmt.Errorf("cache decode: %w", err)
	}
	return &models.Card{
		ID:             models.CardID(cc.ID),
		Name:           cc.Name,
		Info:           cc.Info,
		Grade:          cc.Grade,
		Confidence:     cc.Confidence,
		ImageRef:       cc.ImageRef,
		ImageDigest:    cc.ImageDigest,
		EstimatedValue: cc.EstimatedValue,
		CreatedAt:      cc.CreatedAt,
	}, nil
}

func (c *Redis) Set(ctx context.Context, card *models.Card) error {
	raw, err := json.Marshal(cachedCard{
		ID:             uuid.UUID(card.ID),
		Name:           card.Name,
		Info:           card.Info,
		Grade:          card.Grade,
		Confidence:     card.Confidence,
		ImageRef:       card.ImageRef,
		ImageDigest:    card.ImageDigest,
		EstimatedValue: card.EstimatedValue,
		CreatedAt:      card.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := c.client.Set(ctx, key(card.ID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}
