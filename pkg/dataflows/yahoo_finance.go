package dataflows

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/quote"
	"go.uber.org/zap"

	"github.com/dyike/CortexSwing/internal/logging"
	"github.com/dyike/CortexSwing/models"
)

// YahooFinanceClient handles Yahoo Finance data operations
type YahooFinanceClient struct {
	cache  *CacheManager
	retry  *RetryConfig
	logger *zap.Logger
	now    func() time.Time
}

func NewYahooFinanceClient(cacheDir string, cacheEnabled bool, logger *zap.Logger) *YahooFinanceClient {
	return &YahooFinanceClient{
		cache:  NewCacheManager(filepath.Join(cacheDir, "yahoo_finance"), 6*time.Hour, cacheEnabled),
		retry:  DefaultRetryConfig(),
		logger: logging.OrNop(logger),
		now:    time.Now,
	}
}

// CurrentPrice returns the regular market price from a live quote.
func (yf *YahooFinanceClient) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return 0, err
	}
	symbol = NormalizeSymbol(symbol)

	var price float64
	err := WithRetry(ctx, yf.retry, func() error {
		q, err := quote.Get(symbol)
		if err != nil {
			return fmt.Errorf("get quote for %s: %w", symbol, err)
		}
		if q == nil || q.RegularMarketPrice <= 0 {
			return fmt.Errorf("quote for %s: %w", symbol, models.ErrNoData)
		}
		price = q.RegularMarketPrice
		return nil
	})
	if err != nil {
		return 0, err
	}
	return price, nil
}

// FetchBars gets daily bars covering period, served from the file cache
// when a fresh copy exists.
func (yf *YahooFinanceClient) FetchBars(ctx context.Context, symbol, period, interval string) ([]models.Bar, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	if err := checkInterval(interval); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)

	end := yf.now()
	start, err := PeriodStart(period, end)
	if err != nil {
		return nil, err
	}

	cacheKey := map[string]string{
		"symbol": symbol,
		"period": period,
		"end":    end.Format("2006-01-02"),
	}
	var cached []models.Bar
	if yf.cache.Get("yahoo", "bars", cacheKey, &cached) && len(cached) > 0 {
		return cached, nil
	}

	var bars []models.Bar
	err = WithRetry(ctx, yf.retry, func() error {
		params := &chart.Params{
			Symbol:   symbol,
			Start:    datetime.New(&start),
			End:      datetime.New(&end),
			Interval: datetime.OneDay,
		}

		iter := chart.Get(params)
		bars = bars[:0]
		for iter.Next() {
			b := iter.Bar()
			bars = append(bars, models.Bar{
				Date:   time.Unix(int64(b.Timestamp), 0).UTC(),
				Open:   b.Open.InexactFloat64(),
				High:   b.High.InexactFloat64(),
				Low:    b.Low.InexactFloat64(),
				Close:  b.Close.InexactFloat64(),
				Volume: float64(b.Volume),
			})
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("get historical data for %s: %w", symbol, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	bars = NormalizeBars(bars)
	if len(bars) == 0 {
		return nil, fmt.Errorf("bars for %s over %s: %w", symbol, period, models.ErrNoData)
	}

	if err := yf.cache.Set("yahoo", "bars", cacheKey, bars); err != nil {
		yf.logger.Debug("bar cache write failed", zap.String("ticker", symbol), zap.Error(err))
	}
	return bars, nil
}
