package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dyike/CortexSwing/config"
	"github.com/dyike/CortexSwing/internal/audit"
	"github.com/dyike/CortexSwing/internal/broker"
	"github.com/dyike/CortexSwing/internal/notify"
	"github.com/dyike/CortexSwing/internal/position"
	"github.com/dyike/CortexSwing/internal/rationale"
	"github.com/dyike/CortexSwing/internal/sentiment"
	"github.com/dyike/CortexSwing/internal/storage"
	"github.com/dyike/CortexSwing/internal/storage/sqlite"
	"github.com/dyike/CortexSwing/internal/trading"
	"github.com/dyike/CortexSwing/internal/watchlist"
	"github.com/dyike/CortexSwing/pkg/dataflows"
)

// app holds the resolved configuration and builds collaborators on demand
// so commands like "watchlist list" never touch the network or database.
type app struct {
	cfg     *config.Config
	manager *config.Manager
	logger  *zap.Logger

	provider dataflows.MarketDataProvider
}

func (a *app) marketData() (dataflows.MarketDataProvider, error) {
	if a.provider != nil {
		return a.provider, nil
	}
	p, err := dataflows.NewProvider(a.cfg, a.logger)
	if err != nil {
		return nil, fmt.Errorf("market data: %w", err)
	}
	a.provider = p
	return p, nil
}

func (a *app) openStore() (storage.PositionStore, error) {
	store, err := sqlite.Open(a.cfg.PositionsDB)
	if err != nil {
		return nil, fmt.Errorf("open positions db: %w", err)
	}
	return store, nil
}

func (a *app) watchlist() *watchlist.Store {
	return watchlist.NewStore(a.cfg.WatchlistPath)
}

func (a *app) telegram() *notify.Telegram {
	return notify.NewTelegram(a.cfg.TelegramToken, a.cfg.TelegramChatID, nil, a.logger)
}

// orders returns nil when no broker is configured so callers skip order
// placement entirely.
func (a *app) orders() position.OrderPlacer {
	alpaca := broker.NewAlpaca(a.cfg.AlpacaBaseURL, a.cfg.AlpacaAPIKey, a.cfg.AlpacaSecretKey, nil, a.logger)
	if !alpaca.Enabled() {
		a.logger.Debug("alpaca not configured, order placement disabled")
		return nil
	}
	return alpaca
}

func (a *app) positionManager(store storage.PositionStore, prices position.PriceSource) *position.Manager {
	opts := []position.Option{position.WithNotifier(a.telegram())}
	if o := a.orders(); o != nil {
		opts = append(opts, position.WithOrders(o))
	}
	return position.NewManager(store, prices, a.cfg.Strategy, a.logger, opts...)
}

// session wires the live pipeline. Buy alerts go to Telegram only when
// alert is set.
func (a *app) session(ctx context.Context, store storage.PositionStore, alert bool) (*trading.Session, error) {
	provider, err := a.marketData()
	if err != nil {
		return nil, err
	}
	deps := trading.Deps{
		Bars:      provider,
		Sentiment: sentiment.NewFromConfig(a.cfg, a.logger),
		Rationale: rationale.New(ctx, a.cfg, a.logger),
		Recorder:  audit.NewTradeLog(a.cfg.TradeLogPath),
		Positions: a.positionManager(store, provider),
	}
	if alert {
		deps.Notifier = a.telegram()
	}
	if o := a.orders(); o != nil {
		deps.Orders = o
	}
	return trading.NewSession(a.cfg, deps, a.logger), nil
}
