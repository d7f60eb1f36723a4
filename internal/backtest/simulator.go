package backtest

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dyike/CortexSwing/config"
	"github.com/dyike/CortexSwing/internal/indicators"
	"github.com/dyike/CortexSwing/internal/logging"
	"github.com/dyike/CortexSwing/internal/signal"
	"github.com/dyike/CortexSwing/models"
)

// Result is the ordered trade list of one run and its totals.
type Result struct {
	Params  models.BacktestParams   `json:"params"`
	Trades  []models.SimulatedTrade `json:"trades"`
	Summary models.BacktestSummary  `json:"summary"`
}

// Simulator replays a bar history one decision day at a time. Every day a
// signal fires opens its own independently capitalised trade, so trades may
// overlap.
type Simulator struct {
	cfg       config.StrategyConfig
	evaluator *signal.Evaluator
	logger    *zap.Logger
}

func NewSimulator(cfg config.StrategyConfig, logger *zap.Logger) *Simulator {
	logger = logging.OrNop(logger)
	return &Simulator{
		cfg:       cfg,
		evaluator: signal.NewEvaluator(cfg, logger),
		logger:    logger,
	}
}

// Run computes indicators for raw bars and simulates over them.
func (s *Simulator) Run(bars []models.Bar) (*Result, error) {
	need := s.cfg.HoldingDays + s.cfg.MinBars()
	if len(bars) < need {
		return nil, fmt.Errorf("%w: backtest needs %d bars, have %d", models.ErrInsufficientHistory, need, len(bars))
	}
	ibars, err := indicators.Compute(bars, s.cfg)
	if err != nil {
		return nil, err
	}
	return s.Simulate(ibars)
}

// Simulate evaluates decision points 0..len-H-1. Sentiment is held at a
// fixed bullish/positive reading because historical sentiment is not
// available.
func (s *Simulator) Simulate(ibars []models.IndicatorBar) (*Result, error) {
	h := s.cfg.HoldingDays
	if len(ibars) < h+1 {
		return nil, fmt.Errorf("%w: %d indicator bars cannot cover a %d-day horizon", models.ErrInsufficientHistory, len(ibars), h)
	}

	sentiment := models.BullishSentiment()
	trades := make([]models.SimulatedTrade, 0)
	for i := 0; i < len(ibars)-h; i++ {
		_, buy, err := s.evaluator.Evaluate(ibars[i], sentiment)
		if err != nil {
			return nil, fmt.Errorf("evaluate %s: %w", ibars[i].Date.Format("2006-01-02"), err)
		}
		if !buy {
			continue
		}
		trade := s.resolve(ibars, i)
		trade.Rationale = signal.Describe(ibars[i], sentiment, s.cfg)
		trades = append(trades, trade)
	}

	result := &Result{
		Params: models.BacktestParams{
			HoldingDays: h,
			StopLoss:    s.cfg.BacktestStopLoss,
			Capital:     s.cfg.Capital,
		},
		Trades:  trades,
		Summary: Summarize(trades, s.cfg.Capital),
	}
	s.logger.Info("backtest finished",
		zap.Int("decision_points", len(ibars)-h),
		zap.Int("trades", result.Summary.Trades),
		zap.Float64("total_pnl", result.Summary.TotalPnL),
	)
	return result, nil
}

// resolve finds the exit for an entry at bar i: the first close strictly
// below the stop inside the horizon, else the close at i+H.
func (s *Simulator) resolve(ibars []models.IndicatorBar, i int) models.SimulatedTrade {
	entry := ibars[i]
	stop := decimal.NewFromFloat(entry.Close).Mul(decimal.NewFromInt(1).Sub(decimal.NewFromFloat(s.cfg.BacktestStopLoss)))

	exit := ibars[i+s.cfg.HoldingDays]
	reason := models.ExitHeldToHorizon
	for k := i + 1; k <= i+s.cfg.HoldingDays; k++ {
		if decimal.NewFromFloat(ibars[k].Close).LessThan(stop) {
			exit = ibars[k]
			reason = models.ExitStopLoss
			break
		}
	}

	pnl, ret := tradeReturn(s.cfg.Capital, entry.Close, exit.Close)
	return models.SimulatedTrade{
		EntryDate:  entry.Date,
		ExitDate:   exit.Date,
		EntryPrice: entry.Close,
		ExitPrice:  exit.Close,
		ExitReason: reason,
		PnL:        pnl,
		ReturnPct:  ret,
	}
}

// tradeReturn is capital*(exit-entry)/entry rounded to cents, and the same
// figure as a percentage of capital.
func tradeReturn(capital, entry, exit float64) (pnl float64, returnPct float64) {
	c := decimal.NewFromFloat(capital)
	p := c.Mul(decimal.NewFromFloat(exit).Sub(decimal.NewFromFloat(entry))).
		Div(decimal.NewFromFloat(entry)).
		Round(2)
	r := p.Div(c).Mul(decimal.NewFromInt(100)).Round(4)
	return p.InexactFloat64(), r.InexactFloat64()
}

// Summarize totals a trade list. Capital is a per-trade notional, so the
// ending balance is capital plus the summed PnL without compounding.
func Summarize(trades []models.SimulatedTrade, capital float64) models.BacktestSummary {
	total := decimal.Zero
	summary := models.BacktestSummary{Trades: len(trades)}
	for _, t := range trades {
		total = total.Add(decimal.NewFromFloat(t.PnL))
		if t.PnL > 0 {
			summary.Wins++
		} else {
			summary.Losses++
		}
	}
	if len(trades) > 0 {
		summary.WinRate = decimal.NewFromInt(int64(summary.Wins)).
			Div(decimal.NewFromInt(int64(len(trades)))).
			Mul(decimal.NewFromInt(100)).
			Round(2).
			InexactFloat64()
	}
	summary.TotalPnL = total.Round(2).InexactFloat64()
	summary.EndingBalance = decimal.NewFromFloat(capital).Add(total).Round(2).InexactFloat64()
	return summary
}
