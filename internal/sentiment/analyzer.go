package sentiment

import (
	"context"

	"go.uber.org/zap"

	"github.com/dyike/CortexSwing/config"
	"github.com/dyike/CortexSwing/internal/logging"
	"github.com/dyike/CortexSwing/models"
)

const defaultHeadlineLimit = 10

// Analyzer turns headlines into a SentimentReading. It never fails: when no
// source produces headlines the reading is neutral/neutral.
type Analyzer struct {
	sources []HeadlineSource
	limit   int
	logger  *zap.Logger
}

func NewAnalyzer(logger *zap.Logger, sources ...HeadlineSource) *Analyzer {
	return &Analyzer{
		sources: sources,
		limit:   defaultHeadlineLimit,
		logger:  logging.OrNop(logger),
	}
}

// NewFromConfig prefers NewsAPI when a key is configured and falls back to
// the Google News feed.
func NewFromConfig(cfg *config.Config, logger *zap.Logger) *Analyzer {
	var sources []HeadlineSource
	if cfg.NewsAPIKey != "" {
		sources = append(sources, NewNewsAPISource(cfg.NewsAPIKey, nil))
	}
	sources = append(sources, NewGoogleNewsSource(nil))
	return NewAnalyzer(logger, sources...)
}

func (a *Analyzer) FetchSentiment(ctx context.Context, ticker string) models.SentimentReading {
	for _, src := range a.sources {
		headlines, err := src.Headlines(ctx, ticker, a.limit)
		if err != nil {
			a.logger.Warn("headline source failed",
				zap.String("source", src.Name()),
				zap.String("ticker", ticker),
				zap.Error(err))
			continue
		}
		if len(headlines) == 0 {
			continue
		}

		avg := Average(headlines)
		reading := Classify(avg)
		a.logger.Debug("sentiment scored",
			zap.String("source", src.Name()),
			zap.String("ticker", ticker),
			zap.Int("headlines", len(headlines)),
			zap.Float64("polarity", avg),
			zap.String("market", string(reading.Market)))
		return reading
	}

	a.logger.Info("no headlines, sentiment neutral", zap.String("ticker", ticker), zap.String("feed", feedURL(ticker)))
	return models.NeutralSentiment()
}
