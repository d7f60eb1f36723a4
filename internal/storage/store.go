package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/dyike/CortexSwing/models"
)

// UpdateFunc receives the stored position for a ticker (nil when none) and
// returns what should be stored. Returning nil deletes the entry; returning
// cur unchanged leaves the store untouched. A non-nil error aborts the
// update with nothing written.
type UpdateFunc func(cur *models.OpenPosition) (*models.OpenPosition, error)

// PositionStore is a durable ticker -> OpenPosition map. Update runs fn
// under the store's write lock so concurrent read-modify-write cycles on
// the same store never interleave.
type PositionStore interface {
	List(ctx context.Context) ([]models.OpenPosition, error)
	Get(ctx context.Context, ticker string) (*models.OpenPosition, error)
	Update(ctx context.Context, ticker string, fn UpdateFunc) error
	Close() error
}

// MemoryStore keeps positions in process memory.
type MemoryStore struct {
	mu        sync.Mutex
	positions map[string]models.OpenPosition
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{positions: make(map[string]models.OpenPosition)}
}

func (s *MemoryStore) List(ctx context.Context) ([]models.OpenPosition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.OpenPosition, 0, len(s.positions))
	for _, p := range s.positions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out, nil
}

func (s *MemoryStore) Get(ctx context.Context, ticker string) (*models.OpenPosition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.positions[ticker]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *MemoryStore) Update(ctx context.Context, ticker string, fn UpdateFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var cur *models.OpenPosition
	if p, ok := s.positions[ticker]; ok {
		cur = &p
	}
	next, err := fn(cur)
	if err != nil {
		return err
	}
	switch {
	case next == cur:
	case next == nil:
		delete(s.positions, ticker)
	default:
		stored := *next
		stored.Ticker = ticker
		s.positions[ticker] = stored
	}
	return nil
}

func (s *MemoryStore) Close() error { return nil }
