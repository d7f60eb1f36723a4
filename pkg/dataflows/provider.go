package dataflows

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/dyike/CortexSwing/config"
)

// NewProvider picks the market-data source named in the config.
func NewProvider(cfg *config.Config, logger *zap.Logger) (MarketDataProvider, error) {
	switch cfg.MarketDataProvider {
	case "", "yahoo":
		return NewYahooFinanceClient(cfg.DataCacheDir, cfg.CacheEnabled, logger), nil
	case "longport":
		client, err := NewLongportClient(LongportConfig{
			AppKey:      cfg.LongportAppKey,
			AppSecret:   cfg.LongportAppSecret,
			AccessToken: cfg.LongportAccessToken,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	return nil, fmt.Errorf("unknown market data provider %q", cfg.MarketDataProvider)
}
