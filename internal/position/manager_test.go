package position

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dyike/CortexSwing/config"
	"github.com/dyike/CortexSwing/internal/storage"
	"github.com/dyike/CortexSwing/models"
)

type fakePrices struct {
	prices map[string]float64
	errs   map[string]error
}

func (f *fakePrices) CurrentPrice(_ context.Context, ticker string) (float64, error) {
	if err, ok := f.errs[ticker]; ok {
		return 0, err
	}
	p, ok := f.prices[ticker]
	if !ok {
		return 0, models.ErrNoData
	}
	return p, nil
}

type fakeNotifier struct {
	messages []string
	err      error
}

func (f *fakeNotifier) Send(_ context.Context, msg string) error {
	f.messages = append(f.messages, msg)
	return f.err
}

type fakeOrders struct {
	sides []models.OrderSide
}

func (f *fakeOrders) PlaceOrder(_ context.Context, _ string, _ int, side models.OrderSide) error {
	f.sides = append(f.sides, side)
	return errors.New("broker down")
}

func testStrategy() config.StrategyConfig {
	cfg := config.DefaultStrategy()
	cfg.StopLoss = 0.10
	cfg.TakeProfit = 0.15
	return cfg
}

var fixedNow = time.Date(2024, 7, 1, 15, 0, 0, 0, time.UTC)

func newTestManager(prices *fakePrices, opts ...Option) (*Manager, *storage.MemoryStore) {
	store := storage.NewMemoryStore()
	opts = append(opts, WithClock(func() time.Time { return fixedNow }))
	return NewManager(store, prices, testStrategy(), nil, opts...), store
}

func TestOpenComputesThresholds(t *testing.T) {
	m, store := newTestManager(&fakePrices{})

	pos, err := m.Open(context.Background(), "pltr", 100)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if pos.Ticker != "PLTR" || pos.StopLoss != 90 || pos.TakeProfit != 115 {
		t.Fatalf("unexpected position %+v", pos)
	}
	if pos.ID == "" || !pos.OpenedAt.Equal(fixedNow) {
		t.Fatalf("expected id and open time, got %+v", pos)
	}

	stored, _ := store.Get(context.Background(), "PLTR")
	if stored == nil || stored.EntryPrice != 100 {
		t.Fatalf("position not persisted: %+v", stored)
	}
}

func TestOpenRejectsSecondPosition(t *testing.T) {
	ctx := context.Background()
	m, store := newTestManager(&fakePrices{})

	first, err := m.Open(ctx, "PLTR", 100)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := m.Open(ctx, "PLTR", 120); !errors.Is(err, models.ErrPositionAlreadyOpen) {
		t.Fatalf("expected ErrPositionAlreadyOpen, got %v", err)
	}

	stored, _ := store.Get(ctx, "PLTR")
	if stored == nil || stored.ID != first.ID || stored.EntryPrice != 100 || stored.StopLoss != 90 {
		t.Fatalf("existing position modified: %+v", stored)
	}
}

func TestOpenRejectsBadInput(t *testing.T) {
	m, _ := newTestManager(&fakePrices{})
	if _, err := m.Open(context.Background(), " ", 100); err == nil {
		t.Errorf("expected error for empty ticker")
	}
	if _, err := m.Open(context.Background(), "PLTR", 0); err == nil {
		t.Errorf("expected error for zero entry")
	}
}

func TestMonitorThresholds(t *testing.T) {
	tests := []struct {
		name   string
		price  float64
		reason models.CloseReason
		closed bool
	}{
		{"below stop", 89, models.CloseStopLoss, true},
		{"at stop", 90, models.CloseStopLoss, true},
		{"above target", 116, models.CloseTakeProfit, true},
		{"inside band", 105, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			notifier := &fakeNotifier{}
			m, store := newTestManager(&fakePrices{prices: map[string]float64{"PLTR": tt.price}}, WithNotifier(notifier))

			seeded := models.OpenPosition{ID: "seed", Ticker: "PLTR", EntryPrice: 100, StopLoss: 90, TakeProfit: 115, OpenedAt: fixedNow}
			_ = store.Update(ctx, "PLTR", func(*models.OpenPosition) (*models.OpenPosition, error) { return &seeded, nil })

			report, err := m.Monitor(ctx)
			if err != nil {
				t.Fatalf("Monitor: %v", err)
			}
			stored, _ := store.Get(ctx, "PLTR")

			if !tt.closed {
				if len(report.Closed) != 0 || len(report.Held) != 1 {
					t.Fatalf("expected position held, got %+v", report)
				}
				if stored == nil || *stored != seeded {
					t.Fatalf("held position changed: %+v", stored)
				}
				if len(notifier.messages) != 0 {
					t.Fatalf("no notification expected")
				}
				return
			}

			if len(report.Closed) != 1 || report.Closed[0].Reason != tt.reason {
				t.Fatalf("expected close with %s, got %+v", tt.reason, report.Closed)
			}
			if report.Closed[0].ExitPrice != tt.price {
				t.Errorf("exit price = %v, want %v", report.Closed[0].ExitPrice, tt.price)
			}
			if stored != nil {
				t.Fatalf("closed position still stored: %+v", stored)
			}
			if len(notifier.messages) != 1 || !strings.Contains(notifier.messages[0], "PLTR") {
				t.Fatalf("expected one notification, got %v", notifier.messages)
			}
		})
	}
}

func TestMonitorIsolatesFetchFailures(t *testing.T) {
	ctx := context.Background()
	fetchErr := errors.New("timeout")
	prices := &fakePrices{
		prices: map[string]float64{"AAPL": 80},
		errs:   map[string]error{"MSFT": fetchErr},
	}
	m, store := newTestManager(prices)

	for _, ticker := range []string{"AAPL", "MSFT"} {
		if _, err := m.Open(ctx, ticker, 100); err != nil {
			t.Fatalf("Open %s: %v", ticker, err)
		}
	}

	report, err := m.Monitor(ctx)
	if err != nil {
		t.Fatalf("Monitor: %v", err)
	}
	if len(report.Closed) != 1 || report.Closed[0].Position.Ticker != "AAPL" {
		t.Fatalf("expected AAPL closed, got %+v", report.Closed)
	}
	if !errors.Is(report.Failed["MSFT"], fetchErr) {
		t.Fatalf("expected MSFT failure recorded, got %v", report.Failed)
	}
	if p, _ := store.Get(ctx, "MSFT"); p == nil || p.EntryPrice != 100 {
		t.Fatalf("MSFT position should be untouched, got %+v", p)
	}

	prices.errs = nil
	prices.prices["MSFT"] = 120
	report, err = m.Monitor(ctx)
	if err != nil {
		t.Fatalf("second Monitor: %v", err)
	}
	if len(report.Closed) != 1 || report.Closed[0].Reason != models.CloseTakeProfit {
		t.Fatalf("expected MSFT closed on retry, got %+v", report.Closed)
	}
}

func TestMonitorSurvivesNotifierAndBrokerFailures(t *testing.T) {
	ctx := context.Background()
	notifier := &fakeNotifier{err: errors.New("telegram down")}
	orders := &fakeOrders{}
	m, store := newTestManager(&fakePrices{prices: map[string]float64{"PLTR": 50}}, WithNotifier(notifier), WithOrders(orders))

	if _, err := m.Open(ctx, "PLTR", 100); err != nil {
		t.Fatalf("Open: %v", err)
	}
	report, err := m.Monitor(ctx)
	if err != nil {
		t.Fatalf("Monitor: %v", err)
	}
	if len(report.Closed) != 1 {
		t.Fatalf("expected close despite failures, got %+v", report)
	}
	if p, _ := store.Get(ctx, "PLTR"); p != nil {
		t.Fatalf("position should be deleted")
	}
	if len(orders.sides) != 1 || orders.sides[0] != models.OrderSideSell {
		t.Fatalf("expected one sell attempt, got %v", orders.sides)
	}
}

func TestCheckPrefersStopLoss(t *testing.T) {
	// Degenerate thresholds where both trigger.
	p := models.OpenPosition{StopLoss: 100, TakeProfit: 100}
	reason, hit := Check(p, 100)
	if !hit || reason != models.CloseStopLoss {
		t.Fatalf("expected stop-loss precedence, got %s %v", reason, hit)
	}
}
