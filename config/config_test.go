package config

import "testing"

func TestDefaultStrategyIsValid(t *testing.T) {
	s := DefaultStrategy()
	if err := s.Validate(); err != nil {
		t.Fatalf("default strategy invalid: %v", err)
	}
	if s.VolumeAvgWindow != 20 {
		t.Errorf("expected volume window 20, got %d", s.VolumeAvgWindow)
	}
	if s.MinBars() != 50 {
		t.Errorf("expected 50 minimum bars, got %d", s.MinBars())
	}
}

func TestStrategyValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*StrategyConfig)
	}{
		{"inverted band", func(s *StrategyConfig) { s.RSILow, s.RSIHigh = 60, 45 }},
		{"zero multiplier", func(s *StrategyConfig) { s.VolumeMultiplier = 0 }},
		{"stop loss of one", func(s *StrategyConfig) { s.StopLoss = 1 }},
		{"negative take profit", func(s *StrategyConfig) { s.TakeProfit = -0.1 }},
		{"no capital", func(s *StrategyConfig) { s.Capital = 0 }},
		{"no holding days", func(s *StrategyConfig) { s.HoldingDays = 0 }},
		{"tiny ma window", func(s *StrategyConfig) { s.MAWindow = 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultStrategy()
			tt.mutate(&s)
			if err := s.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestLoadFromEnvOverridesStrategy(t *testing.T) {
	t.Setenv("RSI_LOW", "30")
	t.Setenv("RSI_HIGH", "70")
	t.Setenv("VOLUME_AVG_WINDOW", "5")
	t.Setenv("MARKET_DATA_PROVIDER", "Longport")
	t.Setenv("HOLDING_DAYS", "not-a-number")

	cfg := DefaultConfigWithRoot(t.TempDir())
	cfg.loadFromEnv()

	if cfg.Strategy.RSILow != 30 || cfg.Strategy.RSIHigh != 70 {
		t.Errorf("rsi band not overridden: %+v", cfg.Strategy)
	}
	if cfg.Strategy.VolumeAvgWindow != 5 {
		t.Errorf("expected volume window 5, got %d", cfg.Strategy.VolumeAvgWindow)
	}
	if cfg.MarketDataProvider != "longport" {
		t.Errorf("expected provider longport, got %s", cfg.MarketDataProvider)
	}
	if cfg.Strategy.HoldingDays != 5 {
		t.Errorf("unparseable override should keep default, got %d", cfg.Strategy.HoldingDays)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestEnsureDirectories(t *testing.T) {
	cfg := DefaultConfigWithRoot(t.TempDir())
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
}

func TestStrategySet(t *testing.T) {
	s := DefaultStrategy()
	if err := s.Set("rsi_low", "40"); err != nil {
		t.Fatalf("set rsi_low: %v", err)
	}
	if err := s.Set("holding_days", "7"); err != nil {
		t.Fatalf("set holding_days: %v", err)
	}
	if s.RSILow != 40 || s.HoldingDays != 7 {
		t.Fatalf("values not applied: %+v", s)
	}
	if s.RSIHigh != 60 || s.MAWindow != 50 {
		t.Fatalf("other knobs changed: %+v", s)
	}

	for _, tc := range [][2]string{
		{"rsi_lo", "40"},
		{"rsi_low", "forty"},
		{"holding_days", "2.5"},
	} {
		before := s
		if err := s.Set(tc[0], tc[1]); err == nil {
			t.Errorf("Set(%q, %q): expected error", tc[0], tc[1])
		}
		if s != before {
			t.Errorf("Set(%q, %q) modified strategy on error", tc[0], tc[1])
		}
	}
}
