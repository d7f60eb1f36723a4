package dataflows

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dyike/CortexSwing/models"
)

// MarketDataProvider fetches daily bars and live prices. FetchBars returns
// ErrNoData when the provider has nothing for the ticker.
type MarketDataProvider interface {
	FetchBars(ctx context.Context, ticker, period, interval string) ([]models.Bar, error)
	CurrentPrice(ctx context.Context, ticker string) (float64, error)
}

// PeriodStart converts a lookback period such as "3mo" or "1y" into the
// first calendar day it covers.
func PeriodStart(period string, now time.Time) (time.Time, error) {
	p := strings.ToLower(strings.TrimSpace(period))
	if p == "ytd" {
		return time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location()), nil
	}

	var (
		n    int
		unit string
	)
	if _, err := fmt.Sscanf(p, "%d%s", &n, &unit); err != nil || n <= 0 {
		return time.Time{}, fmt.Errorf("invalid period %q", period)
	}
	switch unit {
	case "d":
		return now.AddDate(0, 0, -n), nil
	case "wk", "w":
		return now.AddDate(0, 0, -7*n), nil
	case "mo", "m":
		return now.AddDate(0, -n, 0), nil
	case "y":
		return now.AddDate(-n, 0, 0), nil
	}
	return time.Time{}, fmt.Errorf("invalid period unit in %q", period)
}

func checkInterval(interval string) error {
	if interval != "" && interval != "1d" {
		return fmt.Errorf("unsupported interval %q, only 1d bars are supported", interval)
	}
	return nil
}
