package indicators

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"

	"github.com/dyike/CortexSwing/config"
	"github.com/dyike/CortexSwing/models"
)

// Compute derives RSI, the close moving average and the volume average for
// every bar whose trailing windows are complete. Bars without a full window
// are dropped, so every returned row is fully populated.
func Compute(bars []models.Bar, cfg config.StrategyConfig) ([]models.IndicatorBar, error) {
	need := cfg.MinBars()
	if len(bars) < need {
		return []models.IndicatorBar{}, fmt.Errorf("%w: have %d bars, need %d", models.ErrInsufficientHistory, len(bars), need)
	}

	closes := make([]float64, len(bars))
	volumes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
		volumes[i] = b.Volume
	}

	ma := talib.Sma(closes, cfg.MAWindow)
	volAvg := talib.Sma(volumes, cfg.VolumeAvgWindow)
	rsi := RSI(closes, cfg.RSIWindow)

	out := make([]models.IndicatorBar, 0, len(bars)-need+1)
	for i := need - 1; i < len(bars); i++ {
		if math.IsNaN(rsi[i]) {
			continue
		}
		out = append(out, models.IndicatorBar{
			Bar:       bars[i],
			RSI:       models.Float(rsi[i]),
			MA50:      models.Float(ma[i]),
			VolumeAvg: models.Float(volAvg[i]),
		})
	}
	if len(out) == 0 {
		return out, fmt.Errorf("%w: no complete indicator row", models.ErrInsufficientHistory)
	}
	return out, nil
}

// RSI returns one value per close using the simple mean of gains and losses
// over the trailing window of close-to-close changes. Entries without a full
// window are NaN. A window with no losses saturates at 100; a flat window
// with neither gains nor losses reads 50.
func RSI(closes []float64, window int) []float64 {
	out := make([]float64, len(closes))
	for i := range out {
		out[i] = math.NaN()
	}
	if window < 1 {
		return out
	}

	for i := window; i < len(closes); i++ {
		var gain, loss float64
		for j := i - window + 1; j <= i; j++ {
			diff := closes[j] - closes[j-1]
			if diff > 0 {
				gain += diff
			} else {
				loss -= diff
			}
		}
		avgGain := gain / float64(window)
		avgLoss := loss / float64(window)
		out[i] = rsiFromAverages(avgGain, avgLoss)
	}
	return out
}

func rsiFromAverages(avgGain, avgLoss float64) float64 {
	switch {
	case avgLoss == 0 && avgGain == 0:
		return 50
	case avgLoss == 0:
		return 100
	}
	rs := avgGain / avgLoss
	v := 100 - 100/(1+rs)
	return math.Max(0, math.Min(100, v))
}
