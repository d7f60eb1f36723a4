package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// StrategyConfig holds every threshold the indicator, signal, backtest and
// position components read. There is exactly one copy of each knob.
type StrategyConfig struct {
	RSIWindow        int     `json:"rsi_window"`
	MAWindow         int     `json:"ma_window"`
	VolumeAvgWindow  int     `json:"volume_avg_window"`
	RSILow           float64 `json:"rsi_low"`
	RSIHigh          float64 `json:"rsi_high"`
	VolumeMultiplier float64 `json:"volume_multiplier"`

	HoldingDays      int     `json:"holding_days"`
	BacktestStopLoss float64 `json:"backtest_stop_loss"`
	Capital          float64 `json:"capital"`

	StopLoss      float64 `json:"stop_loss"`
	TakeProfit    float64 `json:"take_profit"`
	OrderQuantity int     `json:"order_quantity"`
}

type Config struct {
	ProjectDir   string `json:"project_dir"`
	ResultsDir   string `json:"results_dir"`
	DataDir      string `json:"data_dir"`
	DataCacheDir string `json:"data_cache_dir"`
	LogsDir      string `json:"logs_dir"`

	WatchlistPath string `json:"watchlist_path"`
	PositionsDB   string `json:"positions_db"`
	TradeLogPath  string `json:"trade_log_path"`

	Strategy StrategyConfig `json:"strategy"`

	MarketDataProvider string `json:"market_data_provider"`
	DataPeriod         string `json:"data_period"`
	DataInterval       string `json:"data_interval"`
	CacheEnabled       bool   `json:"cache_enabled"`
	Debug              bool   `json:"debug"`

	// Longport API Configuration
	LongportAppKey      string `json:"longport_app_key"`
	LongportAppSecret   string `json:"longport_app_secret"`
	LongportAccessToken string `json:"longport_access_token"`

	// Rationale model
	DeepSeekAPIKey string `json:"deepseek_api_key"`
	RationaleModel string `json:"rationale_model"`

	NewsAPIKey string `json:"news_api_key"`

	TelegramToken  string `json:"telegram_token"`
	TelegramChatID string `json:"telegram_chat_id"`

	AlpacaAPIKey    string `json:"alpaca_api_key"`
	AlpacaSecretKey string `json:"alpaca_secret_key"`
	AlpacaBaseURL   string `json:"alpaca_base_url"`
}

func DefaultStrategy() StrategyConfig {
	return StrategyConfig{
		RSIWindow:        14,
		MAWindow:         50,
		VolumeAvgWindow:  20,
		RSILow:           45,
		RSIHigh:          60,
		VolumeMultiplier: 1.3,

		HoldingDays:      5,
		BacktestStopLoss: 0.05,
		Capital:          1000,

		StopLoss:      0.10,
		TakeProfit:    0.15,
		OrderQuantity: 1,
	}
}

// DefaultConfigWithRoot lays out every path under root without reading the environment.
func DefaultConfigWithRoot(root string) *Config {
	return &Config{
		ProjectDir:   root,
		ResultsDir:   filepath.Join(root, "results"),
		DataDir:      filepath.Join(root, "data"),
		DataCacheDir: filepath.Join(root, "data", "cache"),
		LogsDir:      filepath.Join(root, "logs"),

		WatchlistPath: filepath.Join(root, "data", "tickers.json"),
		PositionsDB:   filepath.Join(root, "data", "positions.db"),
		TradeLogPath:  filepath.Join(root, "logs", "trade_log.txt"),

		Strategy: DefaultStrategy(),

		MarketDataProvider: "yahoo",
		DataPeriod:         "3mo",
		DataInterval:       "1d",
		CacheEnabled:       true,

		RationaleModel: "deepseek-chat",
		AlpacaBaseURL:  "https://paper-api.alpaca.markets",
	}
}

func DefaultConfig() *Config {
	root, _ := os.Getwd()

	// Load environment variables from .env file
	_ = godotenv.Load()

	// Derived paths follow PROJECT_DIR unless overridden individually.
	if val := os.Getenv("PROJECT_DIR"); val != "" {
		root = val
	}
	cfg := DefaultConfigWithRoot(root)
	cfg.loadFromEnv()

	return cfg
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv("RESULTS_DIR"); val != "" {
		c.ResultsDir = val
	}
	if val := os.Getenv("DATA_DIR"); val != "" {
		c.DataDir = val
	}
	if val := os.Getenv("DATA_CACHE_DIR"); val != "" {
		c.DataCacheDir = val
	}
	if val := os.Getenv("LOGS_DIR"); val != "" {
		c.LogsDir = val
	}
	if val := os.Getenv("WATCHLIST_PATH"); val != "" {
		c.WatchlistPath = val
	}
	if val := os.Getenv("POSITIONS_DB"); val != "" {
		c.PositionsDB = val
	}
	if val := os.Getenv("TRADE_LOG_PATH"); val != "" {
		c.TradeLogPath = val
	}

	if val := os.Getenv("MARKET_DATA_PROVIDER"); val != "" {
		c.MarketDataProvider = strings.ToLower(val)
	}
	if val := os.Getenv("DATA_PERIOD"); val != "" {
		c.DataPeriod = val
	}
	if val := os.Getenv("DATA_INTERVAL"); val != "" {
		c.DataInterval = val
	}
	if val := os.Getenv("CACHE_ENABLED"); val != "" {
		if cache, err := strconv.ParseBool(val); err == nil {
			c.CacheEnabled = cache
		}
	}
	if val := os.Getenv("CORTEXSWING_DEBUG"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.Debug = enabled
		}
	}

	envInt("RSI_WINDOW", &c.Strategy.RSIWindow)
	envInt("MA_WINDOW", &c.Strategy.MAWindow)
	envInt("VOLUME_AVG_WINDOW", &c.Strategy.VolumeAvgWindow)
	envFloat("RSI_LOW", &c.Strategy.RSILow)
	envFloat("RSI_HIGH", &c.Strategy.RSIHigh)
	envFloat("VOLUME_MULTIPLIER", &c.Strategy.VolumeMultiplier)
	envInt("HOLDING_DAYS", &c.Strategy.HoldingDays)
	envFloat("BACKTEST_STOP_LOSS", &c.Strategy.BacktestStopLoss)
	envFloat("CAPITAL", &c.Strategy.Capital)
	envFloat("STOP_LOSS", &c.Strategy.StopLoss)
	envFloat("TAKE_PROFIT", &c.Strategy.TakeProfit)
	envInt("ORDER_QUANTITY", &c.Strategy.OrderQuantity)

	if val := os.Getenv("LONGPORT_APP_KEY"); val != "" {
		c.LongportAppKey = val
	}
	if val := os.Getenv("LONGPORT_APP_SECRET"); val != "" {
		c.LongportAppSecret = val
	}
	if val := os.Getenv("LONGPORT_ACCESS_TOKEN"); val != "" {
		c.LongportAccessToken = val
	}

	if val := os.Getenv("DEEPSEEK_API_KEY"); val != "" {
		c.DeepSeekAPIKey = val
	}
	if val := os.Getenv("RATIONALE_MODEL"); val != "" {
		c.RationaleModel = val
	}
	if val := os.Getenv("NEWS_API_KEY"); val != "" {
		c.NewsAPIKey = val
	}
	if val := os.Getenv("TELEGRAM_TOKEN"); val != "" {
		c.TelegramToken = val
	}
	if val := os.Getenv("TELEGRAM_CHAT_ID"); val != "" {
		c.TelegramChatID = val
	}
	if val := os.Getenv("ALPACA_API_KEY"); val != "" {
		c.AlpacaAPIKey = val
	}
	if val := os.Getenv("ALPACA_SECRET_KEY"); val != "" {
		c.AlpacaSecretKey = val
	}
	if val := os.Getenv("ALPACA_BASE_URL"); val != "" {
		c.AlpacaBaseURL = val
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(key); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			*dst = v
		}
	}
}

func envFloat(key string, dst *float64) {
	if val := os.Getenv(key); val != "" {
		if v, err := strconv.ParseFloat(val, 64); err == nil {
			*dst = v
		}
	}
}

// Validate rejects strategy settings the engine cannot run with.
func (c *Config) Validate() error {
	if err := c.Strategy.Validate(); err != nil {
		return err
	}
	switch c.MarketDataProvider {
	case "", "yahoo", "longport":
	default:
		return fmt.Errorf("unknown market data provider %q", c.MarketDataProvider)
	}
	return nil
}

func (s StrategyConfig) Validate() error {
	var errs []error
	if s.RSIWindow < 1 {
		errs = append(errs, fmt.Errorf("rsi_window must be >= 1, got %d", s.RSIWindow))
	}
	if s.MAWindow < 2 {
		errs = append(errs, fmt.Errorf("ma_window must be >= 2, got %d", s.MAWindow))
	}
	if s.VolumeAvgWindow < 2 {
		errs = append(errs, fmt.Errorf("volume_avg_window must be >= 2, got %d", s.VolumeAvgWindow))
	}
	if s.RSILow < 0 || s.RSIHigh > 100 || s.RSILow >= s.RSIHigh {
		errs = append(errs, fmt.Errorf("rsi band %.2f-%.2f is invalid", s.RSILow, s.RSIHigh))
	}
	if s.VolumeMultiplier <= 0 {
		errs = append(errs, fmt.Errorf("volume_multiplier must be > 0, got %.2f", s.VolumeMultiplier))
	}
	if s.HoldingDays < 1 {
		errs = append(errs, fmt.Errorf("holding_days must be >= 1, got %d", s.HoldingDays))
	}
	if s.BacktestStopLoss <= 0 || s.BacktestStopLoss >= 1 {
		errs = append(errs, fmt.Errorf("backtest_stop_loss must be in (0,1), got %.4f", s.BacktestStopLoss))
	}
	if s.StopLoss <= 0 || s.StopLoss >= 1 {
		errs = append(errs, fmt.Errorf("stop_loss must be in (0,1), got %.4f", s.StopLoss))
	}
	if s.TakeProfit <= 0 || s.TakeProfit >= 1 {
		errs = append(errs, fmt.Errorf("take_profit must be in (0,1), got %.4f", s.TakeProfit))
	}
	if s.Capital <= 0 {
		errs = append(errs, fmt.Errorf("capital must be > 0, got %.2f", s.Capital))
	}
	if s.OrderQuantity < 1 {
		errs = append(errs, fmt.Errorf("order_quantity must be >= 1, got %d", s.OrderQuantity))
	}
	return errors.Join(errs...)
}

// strategyKeys is the JSON key order used when listing or diffing knobs.
var strategyKeys = []string{
	"rsi_window", "ma_window", "volume_avg_window",
	"rsi_low", "rsi_high", "volume_multiplier",
	"holding_days", "backtest_stop_loss", "capital",
	"stop_loss", "take_profit", "order_quantity",
}

// StrategyKeys returns the settable knob names.
func StrategyKeys() []string {
	return append([]string(nil), strategyKeys...)
}

func (s StrategyConfig) fields() map[string]string {
	data, _ := json.Marshal(s)
	raw := map[string]json.RawMessage{}
	_ = json.Unmarshal(data, &raw)

	out := make(map[string]string, len(raw))
	for k, v := range raw {
		out[k] = string(v)
	}
	return out
}

// Set assigns a numeric value to the knob named by its JSON key. Integer
// knobs reject fractional values. The result is not validated.
func (s *StrategyConfig) Set(key, value string) error {
	fields := s.fields()
	if _, ok := fields[key]; !ok {
		return fmt.Errorf("unknown strategy key %q", key)
	}
	num, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fmt.Errorf("%s: %q is not a number", key, value)
	}
	fields[key] = strconv.FormatFloat(num, 'f', -1, 64)

	raw := make(map[string]json.RawMessage, len(fields))
	for k, v := range fields {
		raw[k] = json.RawMessage(v)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	var next StrategyConfig
	if err := json.Unmarshal(data, &next); err != nil {
		return fmt.Errorf("%s: %q does not fit: %w", key, value, err)
	}
	*s = next
	return nil
}

// MinBars is the shortest bar sequence that yields one fully populated indicator row.
func (s StrategyConfig) MinBars() int {
	n := s.RSIWindow + 1
	if s.MAWindow > n {
		n = s.MAWindow
	}
	if s.VolumeAvgWindow > n {
		n = s.VolumeAvgWindow
	}
	return n
}

func (c *Config) EnsureDirectories() error {
	dirs := []string{c.ProjectDir, c.ResultsDir, c.DataDir, c.DataCacheDir, c.LogsDir}
	for _, dir := range dirs {
		path := strings.TrimSpace(dir)
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", path, err)
		}
	}
	return nil
}
