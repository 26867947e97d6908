// Package outbox implements the transactional outbox: domain events are written in the same
// transaction as the state change they describe and relayed to the broker afterwards.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Entry is one pending or published event.
type Entry struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
	PublishedAt   *time.Time
}

// NewEntry marshals payload and stamps a fresh id.
func NewEntry(aggregateType, aggregateID, eventType string, payload any, now time.Time) (Entry, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Entry{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Entry{
		ID:            uuid.New(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       body,
		CreatedAt:     now,
	}, nil
}

// Store persists entries. Append joins the transaction carried by ctx, if any.
// Store persists entries. Pending returns unpublished entries in append order, whatever
// their CreatedAt.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	Pending(ctx context.Context, limit int) ([]Entry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

// Publisher delivers an entry to the broker.
type Publisher interface {
	Publish(ctx context.Context, entry Entry) error
}
