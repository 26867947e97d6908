package outbox

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	txcontext "cardledger/pkg/platform/tx"
)

// InMemoryStore keeps entries in insertion order. Appends made inside a journal-backed
// transaction become visible only when the journal commits.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(ctx context.Context, entry Entry) error {
	if j, ok := txcontext.JournalFrom(ctx); ok {
		j.Stage(func() { s.append(entry) })
		return nil
	}
	s.append(entry)
	return nil
}

func (s *InMemoryStore) append(entry Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
}

func (s *InMemoryStore) Pending(_ context.Context, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	for _, e := range s.entries {
		if e.PublishedAt != nil {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *InMemoryStore) MarkPublished(_ context.Context, ids []uuid.UUID, at time.Time) error {
	want := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if _, ok := want[s.entries[i].ID]; ok && s.entries[i].PublishedAt == nil {
			t := at
			s.entries[i].PublishedAt = &t
		}
	}
	return nil
}

// All returns every entry, published or not.
func (s *InMemoryStore) All() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Entry(nil), s.entries...)
}
