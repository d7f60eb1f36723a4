package signal

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dyike/CortexSwing/config"
	"github.com/dyike/CortexSwing/internal/logging"
	"github.com/dyike/CortexSwing/models"
)

// Evaluator applies the five buy conditions to a single indicator bar.
// It holds no mutable state and is safe for concurrent use.
type Evaluator struct {
	cfg    config.StrategyConfig
	logger *zap.Logger
}

func NewEvaluator(cfg config.StrategyConfig, logger *zap.Logger) *Evaluator {
	return &Evaluator{cfg: cfg, logger: logging.OrNop(logger)}
}

// Evaluate returns the per-condition breakdown in a fixed order and whether
// all of them hold.
func (e *Evaluator) Evaluate(bar models.IndicatorBar, s models.SentimentReading) (models.ConditionSet, bool, error) {
	if err := bar.Validate(); err != nil {
		return nil, false, err
	}

	rsi := *bar.RSI
	conds := models.ConditionSet{
		{Name: models.ConditionPriceAboveMA50, Passed: bar.Close > *bar.MA50},
		{Name: models.ConditionRSIInBand, Passed: rsi > e.cfg.RSILow && rsi < e.cfg.RSIHigh},
		{Name: models.ConditionVolumeSpike, Passed: bar.Volume > *bar.VolumeAvg*e.cfg.VolumeMultiplier},
		{Name: models.ConditionMarketBullish, Passed: s.Market == models.SentimentBullish},
		{Name: models.ConditionNewsPositive, Passed: s.News == models.SentimentPositive},
	}
	buy := conds.All()

	if ce := e.logger.Check(zap.DebugLevel, "signal evaluated"); ce != nil {
		ce.Write(
			zap.Time("date", bar.Date),
			zap.Float64("close", bar.Close),
			zap.Float64("rsi", rsi),
			zap.String("conditions", FormatConditions(conds)),
			zap.Bool("buy", buy),
		)
	}
	return conds, buy, nil
}

// FormatConditions renders the breakdown as "name=true, name=false".
func FormatConditions(conds models.ConditionSet) string {
	parts := make([]string, len(conds))
	for i, c := range conds {
		parts[i] = fmt.Sprintf("%s=%t", c.Name, c.Passed)
	}
	return strings.Join(parts, ", ")
}

// Describe is the template rationale for a bar that produced a signal.
func Describe(bar models.IndicatorBar, s models.SentimentReading, cfg config.StrategyConfig) string {
	if bar.Validate() != nil {
		return "indicator data incomplete"
	}
	ratio := 0.0
	if *bar.VolumeAvg > 0 {
		ratio = bar.Volume / *bar.VolumeAvg
	}
	return fmt.Sprintf(
		"Close %.2f above MA%d %.2f, RSI %.1f inside %.0f-%.0f, volume %.2fx its %d-day average, market %s, news %s.",
		bar.Close, cfg.MAWindow, *bar.MA50, *bar.RSI, cfg.RSILow, cfg.RSIHigh,
		ratio, cfg.VolumeAvgWindow, s.Market, s.News,
	)
}
