package catalog

import (
	"context"
	"sync"
)

type MemStore struct {
	mu sync.RWMutex
	st State
}

func NewMemStore(seed Seed) *MemStore {
	return &MemStore{st: NewState(seed, nil)}
}

func NewMemStoreFromState(st State) *MemStore {
	return &MemStore{st: st.Clone()}
}

func (s *MemStore) Ping(ctx context.Context) error { return nil }

func (s *MemStore) Snapshot(ctx context.Context) (State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.Clone(), nil
}

// AdjustPrice never writes into the current primary slice: it builds a new
// one and swaps it in, so slices handed out earlier stay as they were.
func (s *MemStore) AdjustPrice(ctx context.Context, id string, delta int64) (Item, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.st.Primary.IndexOf(id)
	if !ok {
		return Item{}, 0, ErrItemNotFound
	}

	it := s.st.Primary[i]
	price, err := addPrice(it.Price, delta)
	if err != nil {
		return Item{}, 0, err
	}
	it.Price = price

	next := s.st.Primary.Clone()
	next[i] = it

	s.st.Primary = next
	s.st.Version++
	return it, s.st.Version, nil
}
