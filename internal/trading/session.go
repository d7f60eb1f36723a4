package trading

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dyike/CortexSwing/config"
	"github.com/dyike/CortexSwing/internal/indicators"
	"github.com/dyike/CortexSwing/internal/logging"
	"github.com/dyike/CortexSwing/internal/position"
	"github.com/dyike/CortexSwing/internal/rationale"
	"github.com/dyike/CortexSwing/internal/signal"
	"github.com/dyike/CortexSwing/models"
)

type BarSource interface {
	FetchBars(ctx context.Context, ticker, period, interval string) ([]models.Bar, error)
}

type SentimentSource interface {
	FetchSentiment(ctx context.Context, ticker string) models.SentimentReading
}

type PositionOpener interface {
	Open(ctx context.Context, ticker string, entry float64) (*models.OpenPosition, error)
}

type SignalRecorder interface {
	Append(sig models.TradingSignal) error
}

// Deps are the collaborators a Session calls. Notifier and Orders are
// optional; Positions and Recorder may be nil to analyze without acting.
type Deps struct {
	Bars      BarSource
	Sentiment SentimentSource
	Rationale rationale.Writer
	Recorder  SignalRecorder
	Positions PositionOpener
	Notifier  position.Notifier
	Orders    position.OrderPlacer
}

// Session runs the live pipeline for one or more tickers:
// bars, indicators, sentiment, evaluation, and on a buy signal the
// rationale, audit entry, alert, position and order.
type Session struct {
	deps     Deps
	period   string
	interval string
	strategy config.StrategyConfig
	eval     *signal.Evaluator
	logger   *zap.Logger
	now      func() time.Time
}

func NewSession(cfg *config.Config, deps Deps, logger *zap.Logger) *Session {
	logger = logging.OrNop(logger)
	if deps.Rationale == nil {
		deps.Rationale = rationale.NewTemplate(cfg.Strategy)
	}
	return &Session{
		deps:     deps,
		period:   cfg.DataPeriod,
		interval: cfg.DataInterval,
		strategy: cfg.Strategy,
		eval:     signal.NewEvaluator(cfg.Strategy, logger),
		logger:   logger,
		now:      time.Now,
	}
}

// ScanReport collects the outcome of a watchlist pass.
type ScanReport struct {
	Signals []models.TradingSignal
	Failed  map[string]error
}

// BuyCount is the number of tickers that fired.
func (r *ScanReport) BuyCount() int {
	n := 0
	for _, s := range r.Signals {
		if s.Buy {
			n++
		}
	}
	return n
}

// Scan analyzes tickers one at a time. A failure on one ticker is recorded
// and never stops the pass.
func (s *Session) Scan(ctx context.Context, tickers []string) (*ScanReport, error) {
	report := &ScanReport{Failed: make(map[string]error)}
	for _, ticker := range tickers {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		sig, err := s.Analyze(ctx, ticker)
		if err != nil {
			s.logger.Warn("ticker skipped", zap.String("ticker", ticker), zap.Error(err))
			report.Failed[ticker] = err
			continue
		}
		report.Signals = append(report.Signals, *sig)
	}
	return report, nil
}

// Analyze evaluates the most recent complete bar of ticker and, when all
// conditions hold, acts on the buy signal.
func (s *Session) Analyze(ctx context.Context, ticker string) (*models.TradingSignal, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, errors.New("ticker is required")
	}

	bars, err := s.deps.Bars.FetchBars(ctx, ticker, s.period, s.interval)
	if err != nil {
		return nil, fmt.Errorf("fetch bars for %s: %w", ticker, err)
	}
	ibars, err := indicators.Compute(bars, s.strategy)
	if err != nil {
		return nil, fmt.Errorf("indicators for %s: %w", ticker, err)
	}
	latest := ibars[len(ibars)-1]

	reading := models.NeutralSentiment()
	if s.deps.Sentiment != nil {
		reading = s.deps.Sentiment.FetchSentiment(ctx, ticker)
	}

	conds, buy, err := s.eval.Evaluate(latest, reading)
	if err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", ticker, err)
	}

	sig := &models.TradingSignal{
		Ticker:     ticker,
		Timestamp:  s.now(),
		Bar:        latest,
		Sentiment:  reading,
		Conditions: conds,
		Buy:        buy,
	}
	s.logger.Info("signal evaluated",
		zap.String("ticker", ticker),
		zap.Time("bar", latest.Date),
		zap.Bool("buy", buy),
		zap.String("conditions", signal.FormatConditions(conds)),
	)
	if buy {
		s.act(ctx, sig)
	}
	return sig, nil
}

// act runs the side effects of a buy signal. Each step is best-effort:
// a failure is logged and the remaining steps still run.
func (s *Session) act(ctx context.Context, sig *models.TradingSignal) {
	log := s.logger.With(zap.String("ticker", sig.Ticker))
	sig.Rationale = s.deps.Rationale.Write(ctx, *sig)

	if s.deps.Recorder != nil {
		if err := s.deps.Recorder.Append(*sig); err != nil {
			log.Error("trade log append failed", zap.Error(err))
		}
	}
	if s.deps.Notifier != nil {
		if err := s.deps.Notifier.Send(ctx, AlertMessage(*sig)); err != nil {
			log.Warn("buy alert failed", zap.Error(err))
		}
	}
	if s.deps.Positions == nil {
		return
	}

	if _, err := s.deps.Positions.Open(ctx, sig.Ticker, sig.Bar.Close); err != nil {
		if errors.Is(err, models.ErrPositionAlreadyOpen) {
			log.Info("position already open, signal not acted on")
		} else {
			log.Error("open position failed", zap.Error(err))
		}
		return
	}
	if s.deps.Orders != nil {
		if err := s.deps.Orders.PlaceOrder(ctx, sig.Ticker, s.strategy.OrderQuantity, models.OrderSideBuy); err != nil {
			log.Warn("buy order failed", zap.Error(err))
		}
	}
}

// AlertMessage is the notification text for a fired signal.
func AlertMessage(sig models.TradingSignal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🚨 BUY SIGNAL for %s at $%.2f\n", sig.Ticker, sig.Bar.Close)
	if sig.Bar.Validate() == nil {
		fmt.Fprintf(&b, "RSI %.1f | MA50 $%.2f | Volume %.2fM vs avg %.2fM\n",
			*sig.Bar.RSI, *sig.Bar.MA50, sig.Bar.Volume/1e6, *sig.Bar.VolumeAvg/1e6)
	}
	fmt.Fprintf(&b, "Market %s, news %s\n", sig.Sentiment.Market, sig.Sentiment.News)
	b.WriteString(sig.Rationale)
	return b.String()
}
