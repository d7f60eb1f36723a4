package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dyike/CortexSwing/models"
)

func openTestStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func insert(p models.OpenPosition) func(*models.OpenPosition) (*models.OpenPosition, error) {
	return func(cur *models.OpenPosition) (*models.OpenPosition, error) {
		if cur != nil {
			return nil, models.ErrPositionAlreadyOpen
		}
		return &p, nil
	}
}

func TestStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "positions.db")
	opened := time.Date(2024, 6, 3, 14, 30, 0, 0, time.UTC)

	s := openTestStore(t, path)
	pos := models.OpenPosition{ID: "p-1", Ticker: "PLTR", EntryPrice: 100, StopLoss: 90, TakeProfit: 115, OpenedAt: opened}
	if err := s.Update(ctx, "PLTR", insert(pos)); err != nil {
		t.Fatalf("Update: %v", err)
	}
	_ = s.Close()

	reopened := openTestStore(t, path)
	got, err := reopened.Get(ctx, "PLTR")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.ID != pos.ID || got.EntryPrice != 100 || got.StopLoss != 90 || got.TakeProfit != 115 {
		t.Fatalf("got %+v, want %+v", got, pos)
	}
	if !got.OpenedAt.Equal(opened) {
		t.Fatalf("opened_at = %s, want %s", got.OpenedAt, opened)
	}

	missing, err := reopened.Get(ctx, "AAPL")
	if err != nil || missing != nil {
		t.Fatalf("expected nil for unknown ticker, got %+v, %v", missing, err)
	}
}

func TestStoreUpdateSemantics(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, filepath.Join(t.TempDir(), "positions.db"))

	for _, ticker := range []string{"MSFT", "AAPL"} {
		p := models.OpenPosition{ID: ticker, Ticker: ticker, EntryPrice: 10, StopLoss: 9, TakeProfit: 11.5, OpenedAt: time.Now()}
		if err := s.Update(ctx, ticker, insert(p)); err != nil {
			t.Fatalf("Update %s: %v", ticker, err)
		}
	}

	err := s.Update(ctx, "AAPL", insert(models.OpenPosition{ID: "dup", EntryPrice: 50, OpenedAt: time.Now()}))
	if !errors.Is(err, models.ErrPositionAlreadyOpen) {
		t.Fatalf("expected ErrPositionAlreadyOpen, got %v", err)
	}
	if got, _ := s.Get(ctx, "AAPL"); got == nil || got.ID != "AAPL" || got.EntryPrice != 10 {
		t.Fatalf("failed update must leave the row alone, got %+v", got)
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].Ticker != "AAPL" || list[1].Ticker != "MSFT" {
		t.Fatalf("unexpected list %+v", list)
	}

	if err := s.Update(ctx, "MSFT", func(*models.OpenPosition) (*models.OpenPosition, error) { return nil, nil }); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := s.Get(ctx, "MSFT"); got != nil {
		t.Fatalf("expected MSFT deleted, got %+v", got)
	}
}

func TestConcurrentStoresSerializeOpens(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "positions.db")
	a := openTestStore(t, path)
	b := openTestStore(t, path)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		opened   int
		rejected int
	)
	for i, s := range []*Store{a, b, a, b} {
		wg.Add(1)
		go func(i int, s *Store) {
			defer wg.Done()
			p := models.OpenPosition{ID: string(rune('a' + i)), EntryPrice: 100, StopLoss: 90, TakeProfit: 115, OpenedAt: time.Now()}
			err := s.Update(ctx, "TSLA", insert(p))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				opened++
			case errors.Is(err, models.ErrPositionAlreadyOpen):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i, s)
	}
	wg.Wait()

	if opened != 1 || rejected != 3 {
		t.Fatalf("expected exactly one open, got opened=%d rejected=%d", opened, rejected)
	}
}
