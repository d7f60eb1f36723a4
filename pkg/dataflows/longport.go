package dataflows

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	lpconfig "github.com/longportapp/openapi-go/config"
	"github.com/longportapp/openapi-go/quote"
	"github.com/shopspring/decimal"

	"github.com/dyike/CortexSwing/models"
)

type LongportConfig struct {
	AppKey      string
	AppSecret   string
	AccessToken string
}

// LongportClient serves bars and quotes from the Longport OpenAPI.
type LongportClient struct {
	quoteCtx *quote.QuoteContext
	retry    *RetryConfig
	now      func() time.Time
}

func NewLongportClient(cfg LongportConfig) (*LongportClient, error) {
	if cfg.AppKey == "" || cfg.AppSecret == "" || cfg.AccessToken == "" {
		return nil, errors.New("longport API credentials not configured")
	}

	conf, err := lpconfig.New(lpconfig.WithConfigKey(cfg.AppKey, cfg.AppSecret, cfg.AccessToken))
	if err != nil {
		return nil, fmt.Errorf("longport config: %w", err)
	}

	quoteContext, err := quote.NewFromCfg(conf)
	if err != nil {
		return nil, fmt.Errorf("longport quote context: %w", err)
	}

	return &LongportClient{
		quoteCtx: quoteContext,
		retry:    DefaultRetryConfig(),
		now:      time.Now,
	}, nil
}

// LongportSymbol appends the US market suffix to bare tickers.
func LongportSymbol(ticker string) string {
	ticker = NormalizeSymbol(ticker)
	if strings.Contains(ticker, ".") {
		return ticker
	}
	return ticker + ".US"
}

// candleCount estimates trading days in a period, with headroom for holidays.
func candleCount(period string, now time.Time) (int32, error) {
	start, err := PeriodStart(period, now)
	if err != nil {
		return 0, err
	}
	days := int(now.Sub(start).Hours()/24)*5/7 + 5
	if days > 1000 {
		days = 1000
	}
	return int32(days), nil
}

func (lpc *LongportClient) FetchBars(ctx context.Context, ticker, period, interval string) ([]models.Bar, error) {
	if err := ValidateSymbol(ticker); err != nil {
		return nil, err
	}
	if err := checkInterval(interval); err != nil {
		return nil, err
	}
	count, err := candleCount(period, lpc.now())
	if err != nil {
		return nil, err
	}

	symbol := LongportSymbol(ticker)
	var sticks []*quote.Candlestick
	err = WithRetry(ctx, lpc.retry, func() error {
		var err error
		sticks, err = lpc.quoteCtx.Candlesticks(ctx, symbol, quote.PeriodDay, count, quote.AdjustTypeNo)
		if err != nil {
			return fmt.Errorf("candlesticks for %s: %w", symbol, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	bars := make([]models.Bar, 0, len(sticks))
	for _, s := range sticks {
		if s == nil {
			continue
		}
		bars = append(bars, models.Bar{
			Date:   time.Unix(s.Timestamp, 0).UTC(),
			Open:   decimalValue(s.Open),
			High:   decimalValue(s.High),
			Low:    decimalValue(s.Low),
			Close:  decimalValue(s.Close),
			Volume: float64(s.Volume),
		})
	}

	bars = NormalizeBars(bars)
	if len(bars) == 0 {
		return nil, fmt.Errorf("bars for %s over %s: %w", symbol, period, models.ErrNoData)
	}
	return bars, nil
}

func (lpc *LongportClient) CurrentPrice(ctx context.Context, ticker string) (float64, error) {
	if err := ValidateSymbol(ticker); err != nil {
		return 0, err
	}
	symbol := LongportSymbol(ticker)

	var price float64
	err := WithRetry(ctx, lpc.retry, func() error {
		quotes, err := lpc.quoteCtx.Quote(ctx, []string{symbol})
		if err != nil {
			return fmt.Errorf("quote for %s: %w", symbol, err)
		}
		if len(quotes) == 0 || quotes[0] == nil || quotes[0].LastDone == nil {
			return fmt.Errorf("quote for %s: %w", symbol, models.ErrNoData)
		}
		price = decimalValue(quotes[0].LastDone)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return price, nil
}

func decimalValue(d *decimal.Decimal) float64 {
	if d == nil {
		return 0
	}
	f, _ := d.Float64()
	return f
}
