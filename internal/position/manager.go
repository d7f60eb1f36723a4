package position

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dyike/CortexSwing/config"
	"github.com/dyike/CortexSwing/internal/logging"
	"github.com/dyike/CortexSwing/internal/storage"
	"github.com/dyike/CortexSwing/models"
)

type PriceSource interface {
	CurrentPrice(ctx context.Context, ticker string) (float64, error)
}

type Notifier interface {
	Send(ctx context.Context, message string) error
}

type OrderPlacer interface {
	PlaceOrder(ctx context.Context, ticker string, qty int, side models.OrderSide) error
}

// Manager drives the NoPosition -> Open -> Closed lifecycle for each ticker.
type Manager struct {
	store    storage.PositionStore
	prices   PriceSource
	notifier Notifier
	orders   OrderPlacer
	logger   *zap.Logger
	now      func() time.Time

	mu  sync.RWMutex
	cfg config.StrategyConfig
}

type Option func(*Manager)

func WithNotifier(n Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}

// WithOrders makes closes also submit a sell order.
func WithOrders(o OrderPlacer) Option {
	return func(m *Manager) { m.orders = o }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(store storage.PositionStore, prices PriceSource, cfg config.StrategyConfig, logger *zap.Logger, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		prices: prices,
		cfg:    cfg,
		logger: logging.OrNop(logger),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetStrategy swaps thresholds used by later Open calls. Stored positions
// keep the stop and target they were opened with.
func (m *Manager) SetStrategy(cfg config.StrategyConfig) {
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
}

func (m *Manager) strategy() config.StrategyConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Open records a new position at entry. It fails with
// ErrPositionAlreadyOpen, leaving the stored position as it was, when the
// ticker already has one.
func (m *Manager) Open(ctx context.Context, ticker string, entry float64) (*models.OpenPosition, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, fmt.Errorf("open position: ticker is required")
	}
	if entry <= 0 {
		return nil, fmt.Errorf("open position %s: entry price must be positive, got %v", ticker, entry)
	}

	stop, target := Thresholds(entry, m.strategy())
	pos := models.OpenPosition{
		ID:         uuid.NewString(),
		Ticker:     ticker,
		EntryPrice: entry,
		StopLoss:   stop,
		TakeProfit: target,
		OpenedAt:   m.now().UTC(),
	}

	err := m.store.Update(ctx, ticker, func(cur *models.OpenPosition) (*models.OpenPosition, error) {
		if cur != nil {
			return nil, models.ErrPositionAlreadyOpen
		}
		return &pos, nil
	})
	if err != nil {
		return nil, fmt.Errorf("open position %s: %w", ticker, err)
	}

	m.logger.Info("position opened",
		zap.String("ticker", ticker),
		zap.Float64("entry", entry),
		zap.Float64("stop_loss", stop),
		zap.Float64("take_profit", target),
	)
	return &pos, nil
}

// Thresholds returns the stop-loss and take-profit prices for an entry.
func Thresholds(entry float64, cfg config.StrategyConfig) (stop, target float64) {
	e := decimal.NewFromFloat(entry)
	one := decimal.NewFromInt(1)
	stop = e.Mul(one.Sub(decimal.NewFromFloat(cfg.StopLoss))).Round(4).InexactFloat64()
	target = e.Mul(one.Add(decimal.NewFromFloat(cfg.TakeProfit))).Round(4).InexactFloat64()
	return stop, target
}

// Check decides whether price closes p. The stop-loss is tested first so
// the outcome is deterministic even if both thresholds are crossed.
func Check(p models.OpenPosition, price float64) (models.CloseReason, bool) {
	switch {
	case price <= p.StopLoss:
		return models.CloseStopLoss, true
	case price >= p.TakeProfit:
		return models.CloseTakeProfit, true
	}
	return "", false
}

// MonitorReport lists what one monitoring pass did per ticker.
type MonitorReport struct {
	Closed []models.ClosedPosition
	Held   []HeldPosition
	Failed map[string]error
}

type HeldPosition struct {
	Position models.OpenPosition
	Price    float64
}

// Monitor checks every stored position against its live price. A price
// fetch or store failure for one ticker is recorded and the pass moves on;
// that position stays as it was and is retried next pass.
func (m *Manager) Monitor(ctx context.Context) (*MonitorReport, error) {
	positions, err := m.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load positions: %w", err)
	}

	report := &MonitorReport{Failed: make(map[string]error)}
	for _, p := range positions {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		price, err := m.prices.CurrentPrice(ctx, p.Ticker)
		if err != nil {
			m.logger.Warn("price fetch failed, position left open",
				zap.String("ticker", p.Ticker), zap.Error(err))
			report.Failed[p.Ticker] = err
			continue
		}

		closed, held, err := m.settle(ctx, p.Ticker, price)
		switch {
		case err != nil:
			m.logger.Error("position update failed",
				zap.String("ticker", p.Ticker), zap.Error(err))
			report.Failed[p.Ticker] = err
		case closed != nil:
			report.Closed = append(report.Closed, *closed)
			m.afterClose(ctx, *closed)
		case held != nil:
			report.Held = append(report.Held, HeldPosition{Position: *held, Price: price})
		}
	}
	return report, nil
}

// settle re-reads the position inside the store transaction so a position
// closed by a concurrent pass is not closed twice.
func (m *Manager) settle(ctx context.Context, ticker string, price float64) (closed *models.ClosedPosition, held *models.OpenPosition, err error) {
	err = m.store.Update(ctx, ticker, func(cur *models.OpenPosition) (*models.OpenPosition, error) {
		if cur == nil {
			return nil, nil
		}
		reason, hit := Check(*cur, price)
		if !hit {
			kept := *cur
			held = &kept
			return cur, nil
		}
		closed = &models.ClosedPosition{
			Position:  *cur,
			ExitPrice: price,
			Reason:    reason,
			ClosedAt:  m.now().UTC(),
		}
		return nil, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return closed, held, nil
}

func (m *Manager) afterClose(ctx context.Context, c models.ClosedPosition) {
	m.logger.Info("position closed",
		zap.String("ticker", c.Position.Ticker),
		zap.String("reason", string(c.Reason)),
		zap.Float64("entry", c.Position.EntryPrice),
		zap.Float64("exit", c.ExitPrice),
	)

	if m.notifier != nil {
		if err := m.notifier.Send(ctx, CloseMessage(c)); err != nil {
			m.logger.Warn("close notification failed",
				zap.String("ticker", c.Position.Ticker), zap.Error(err))
		}
	}
	if m.orders != nil {
		qty := m.strategy().OrderQuantity
		if err := m.orders.PlaceOrder(ctx, c.Position.Ticker, qty, models.OrderSideSell); err != nil {
			m.logger.Warn("sell order failed",
				zap.String("ticker", c.Position.Ticker), zap.Error(err))
		}
	}
}

func CloseMessage(c models.ClosedPosition) string {
	label := "TAKE-PROFIT"
	if c.Reason == models.CloseStopLoss {
		label = "STOP-LOSS"
	}
	return fmt.Sprintf("%s hit for %s\nEntry: $%.2f | Exit: $%.2f (%+.2f%%)\nStop: $%.2f | Target: $%.2f",
		label, c.Position.Ticker,
		c.Position.EntryPrice, c.ExitPrice, c.ReturnPct(),
		c.Position.StopLoss, c.Position.TakeProfit)
}
