package config

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestManagerCreatesAndUpdates(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(WithConfigDir(dir))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	path := filepath.Join(dir, "config.json")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not created: %v", err)
	}
	if got := mgr.Strategy().RSIHigh; got != 60 {
		t.Fatalf("expected default rsi high 60, got %v", got)
	}

	cfg := mgr.Get()
	cfg.Strategy.RSILow = 40
	cfg.Strategy.VolumeMultiplier = 1.5

	data, _ := json.Marshal(cfg)
	if err := mgr.UpdateFromJSON(string(data)); err != nil {
		t.Fatalf("UpdateFromJSON: %v", err)
	}

	updated := mgr.Strategy()
	if updated.RSILow != 40 || updated.VolumeMultiplier != 1.5 {
		t.Fatalf("strategy not updated: %+v", updated)
	}

	reopened, err := NewManager(WithConfigPath(path))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.Strategy().RSILow != 40 {
		t.Fatalf("expected persisted rsi low 40, got %v", reopened.Strategy().RSILow)
	}
}

func TestManagerRejectsInvalidUpdate(t *testing.T) {
	mgr, err := NewManager(WithConfigDir(t.TempDir()))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	cfg := mgr.Get()
	cfg.Strategy.RSILow = 70
	cfg.Strategy.RSIHigh = 30
	if err := mgr.Update(cfg); err == nil {
		t.Fatalf("expected validation error for inverted rsi band")
	}
	if mgr.Strategy().RSILow != 45 {
		t.Fatalf("invalid update must not be applied")
	}
}

func TestManagerUpdateStrategy(t *testing.T) {
	mgr, err := NewManager(WithConfigDir(t.TempDir()))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	if err := mgr.UpdateStrategy(func(s *StrategyConfig) error {
		return s.Set("order_quantity", "3")
	}); err != nil {
		t.Fatalf("UpdateStrategy: %v", err)
	}
	if mgr.Strategy().OrderQuantity != 3 {
		t.Fatalf("expected order quantity 3, got %d", mgr.Strategy().OrderQuantity)
	}

	err = mgr.UpdateStrategy(func(s *StrategyConfig) error {
		s.TakeProfit = 2
		return nil
	})
	if err == nil {
		t.Fatalf("expected take profit of 2 to be rejected")
	}
	if mgr.Strategy().TakeProfit != 0.15 {
		t.Fatalf("rejected update leaked into memory: %v", mgr.Strategy().TakeProfit)
	}
}

func TestStrategyChanges(t *testing.T) {
	before := DefaultStrategy()
	after := before
	after.StopLoss = 0.08
	after.OrderQuantity = 2

	got := strategyChanges(before, after)
	want := []string{"stop_loss: 0.1 -> 0.08", "order_quantity: 1 -> 2"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if changes := strategyChanges(before, before); len(changes) != 0 {
		t.Fatalf("expected no changes, got %v", changes)
	}
}

func TestManagerWatchReloads(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(WithConfigDir(dir), WithDebounce(50*time.Millisecond))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan Config, 1)
	if err := mgr.Watch(ctx, func(cfg Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	}); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	cfg := mgr.Get()
	cfg.Strategy.TakeProfit = 0.2

	if err := writeConfigFile(mgr.Path(), cfg); err != nil {
		t.Fatalf("writeConfigFile: %v", err)
	}

	select {
	case got := <-reloaded:
		if got.Strategy.TakeProfit != 0.2 {
			t.Fatalf("expected take profit 0.2, got %v", got.Strategy.TakeProfit)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("watcher did not fire on config change")
	}
}

func TestManagerWatchIgnoresInvalidEdit(t *testing.T) {
	mgr, err := NewManager(WithConfigDir(t.TempDir()), WithDebounce(50*time.Millisecond))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan Config, 4)
	if err := mgr.Watch(ctx, func(cfg Config) { reloaded <- cfg }); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	if err := os.WriteFile(mgr.Path(), []byte(`{"strategy": {"rsi_low": 80}}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case cfg := <-reloaded:
		t.Fatalf("invalid edit was applied: %+v", cfg.Strategy)
	case <-time.After(500 * time.Millisecond):
	}
	if mgr.Strategy().RSILow != 45 {
		t.Fatalf("expected previous rsi low 45, got %v", mgr.Strategy().RSILow)
	}
}
