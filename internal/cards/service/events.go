package service

import (
	"context"
	"time"

	"cardledger/internal/cards/models"
	"cardledger/pkg/platform/outbox"
	"cardledger/pkg/requestcontext"
)

const (
	aggregateCard        = "card"
	EventCardGraded      = "card.graded"
	EventCardTransferred = "card.transferred"
)

type cardGradedEvent struct {
	CardID      string    `json:"card_id"`
	Owner       string    `json:"owner"`
	Name        string    `json:"card_name"`
	Grade       string    `json:"grade"`
	Confidence  float64   `json:"confidence"`
	ImageDigest string    `json:"image_digest"`
	CreatedAt   time.Time `json:"created_at"`
	RequestID   string    `json:"request_id,omitempty"`
}

type cardTransferredEvent struct {
	CardID    string    `json:"card_id"`
	FromOwner string    `json:"from_owner"`
	ToOwner   string    `json:"to_owner"`
	TradedAt  time.Time `json:"traded_at"`
	RequestID string    `json:"request_id,omitempty"`
}

func (s *Service) emitCardGraded(ctx context.Context, card *models.Card) error {
	if s.outbox == nil {
		return nil
	}
	entry, err := outbox.NewEntry(aggregateCard, card.ID.String(), EventCardGraded, cardGradedEvent{
		CardID:      card.ID.String(),
		Owner:       card.Owner,
		Name:        card.Name,
		Grade:       card.Grade,
		Confidence:  card.Confidence,
		ImageDigest: card.ImageDigest,
		CreatedAt:   card.CreatedAt,
		RequestID:   requestcontext.RequestID(ctx),
	}, card.CreatedAt)
	if err != nil {
		return err
	}
	return s.outbox.Append(ctx, entry)
}

func (s *Service) emitCardTransferred(ctx context.Context, rec *models.TradeRecord) error {
	if s.outbox == nil {
		return nil
	}
	entry, err := outbox.NewEntry(aggregateCard, rec.CardID.String(), EventCardTransferred, cardTransferredEvent{
		CardID:    rec.CardID.String(),
		FromOwner: rec.FromOwner,
		ToOwner:   rec.ToOwner,
		TradedAt:  rec.TradedAt,
		RequestID: requestcontext.RequestID(ctx),
	}, rec.TradedAt)
	if err != nil {
		return err
	}
	return s.outbox.Append(ctx, entry)
}
