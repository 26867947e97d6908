// Package card persists cards: the mutable current-owner view of each card.
package card

import (
	"context"
	"sync"

	"cardledger/internal/cards/models"
	"cardledger/pkg/platform/sentinel"
	txcontext "cardledger/pkg/platform/tx"
)

// InMemory is the in-process card store. Writes made with a tx.Journal in ctx are staged
// and applied when the journal commits; reads always see committed state.
type InMemory struct {
	mu    sync.RWMutex
	cards map[models.CardID]*models.Card
	order []models.CardID
}

func NewInMemory() *InMemory {
	return &InMemory{cards: make(map[models.CardID]*models.Card)}
}

func (s *InMemory) Insert(ctx context.Context, card *models.Card) error {
	s.mu.RLock()
	_, exists := s.cards[card.ID]
	s.mu.RUnlock()
	if exists {
		return sentinel.ErrAlreadyUsed
	}

	stored := card.Clone()
	apply := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.cards[stored.ID]; ok {
			return
		}
		s.cards[stored.ID] = stored
		s.order = append(s.order, stored.ID)
	}
	if j, ok := txcontext.JournalFrom(ctx); ok {
		j.Stage(apply)
		return nil
	}
	apply()
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id models.CardID) (*models.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cards[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return c.Clone(), nil
}

// OwnerOf returns the committed owner of the card.
func (s *InMemory) OwnerOf(_ context.Context, id models.CardID) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cards[id]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	return c.Owner, nil
}

// FindByIDForUpdate is FindByID: the caller's transaction already holds the card's lock.
func (s *InMemory) FindByIDForUpdate(ctx context.Context, id models.CardID) (*models.Card, error) {
	return s.FindByID(ctx, id)
}

func (s *InMemory) ListByOwner(_ context.Context, owner string) ([]*models.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Card, 0)
	for _, id := range s.order {
		if c := s.cards[id]; c.Owner == owner {
			out = append(out, c.Clone())
		}
	}
	return out, nil
}

// UpdateOwner swaps the owner only if it is still expectedOwner.
func (s *InMemory) UpdateOwner(ctx context.Context, id models.CardID, expectedOwner, newOwner string) error {
	s.mu.RLock()
	c, ok := s.cards[id]
	var current string
	if ok {
		current = c.Owner
	}
	s.mu.RUnlock()
	if !ok {
		return sentinel.ErrNotFound
	}
	if current != expectedOwner {
		return sentinel.ErrConflict
	}

	apply := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.cards[id]; ok {
			c.Owner = newOwner
		}
	}
	if j, ok := txcontext.JournalFrom(ctx); ok {
		j.Stage(apply)
		return nil
	}
	apply()
	return nil
}
