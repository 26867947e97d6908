// Package ledger is the append-only trade history of every card.
package ledger

import (
	"context"
	"sort"
	"sync"

	"cardledger/internal/cards/models"
	txcontext "cardledger/pkg/platform/tx"
)

// InMemory keeps trade records per card. Appends inside a journal-backed transaction get
// their ID when the journal commits.
type InMemory struct {
	mu     sync.RWMutex
	nextID int64
	byCard map[models.CardID][]models.TradeRecord
}

func NewInMemory() *InMemory {
	return &InMemory{byCard: make(map[models.CardID][]models.TradeRecord)}
}

func (s *InMemory) Append(ctx context.Context, rec *models.TradeRecord) error {
	apply := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.nextID++
		rec.ID = s.nextID
		s.byCard[rec.CardID] = append(s.byCard[rec.CardID], *rec)
	}
	if j, ok := txcontext.JournalFrom(ctx); ok {
		j.Stage(apply)
		return nil
	}
	apply()
	return nil
}

// HistoryFor returns the card's trades, oldest first.
func (s *InMemory) HistoryFor(_ context.Context, cardID models.CardID) ([]models.TradeRecord, error) {
	s.mu.RLock()
	out := append([]models.TradeRecord{}, s.byCard[cardID]...)
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].TradedAt.Equal(out[j].TradedAt) {
			return out[i].TradedAt.Before(out[j].TradedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// LatestFor returns the most recent trade of each card that has one.
func (s *InMemory) LatestFor(ctx context.Context, cardIDs []models.CardID) (map[models.CardID]models.TradeRecord, error) {
	out := make(map[models.CardID]models.TradeRecord, len(cardIDs))
	for _, id := range cardIDs {
		history, err := s.HistoryFor(ctx, id)
		if err != nil {
			return nil, err
		}
		if n := len(history); n > 0 {
			out[id] = history[n-1]
		}
	}
	return out, nil
}
