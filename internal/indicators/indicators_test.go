package indicators

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/dyike/CortexSwing/config"
	"github.com/dyike/CortexSwing/models"
)

func makeBars(closes []float64, volume func(i int) float64) []models.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, len(closes))
	for i, c := range closes {
		bars[i] = models.Bar{
			Date:   start.AddDate(0, 0, i),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: volume(i),
		}
	}
	return bars
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestComputeInsufficientHistory(t *testing.T) {
	cfg := config.DefaultStrategy()
	closes := make([]float64, cfg.MinBars()-1)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}

	out, err := Compute(makeBars(closes, func(int) float64 { return 1000 }), cfg)
	if !errors.Is(err, models.ErrInsufficientHistory) {
		t.Fatalf("expected ErrInsufficientHistory, got %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected no rows, got %d", len(out))
	}
}

func TestComputeDropsIncompleteRows(t *testing.T) {
	cfg := config.DefaultStrategy()
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i%7)
	}
	bars := makeBars(closes, func(i int) float64 { return float64(1000 + i) })

	out, err := Compute(bars, cfg)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if len(out) != 60-cfg.MinBars()+1 {
		t.Fatalf("expected %d rows, got %d", 60-cfg.MinBars()+1, len(out))
	}
	if !out[0].Date.Equal(bars[cfg.MinBars()-1].Date) {
		t.Fatalf("first row should be bar %d", cfg.MinBars()-1)
	}

	for _, row := range out {
		if err := row.Validate(); err != nil {
			t.Fatalf("row %s not fully populated: %v", row.Date.Format("2006-01-02"), err)
		}
	}

	last := out[len(out)-1]
	var sum float64
	for _, c := range closes[len(closes)-50:] {
		sum += c
	}
	if !approx(*last.MA50, sum/50) {
		t.Errorf("ma50 = %v, want %v", *last.MA50, sum/50)
	}

	var vsum float64
	for i := 40; i < 60; i++ {
		vsum += float64(1000 + i)
	}
	if !approx(*last.VolumeAvg, vsum/20) {
		t.Errorf("volume avg = %v, want %v", *last.VolumeAvg, vsum/20)
	}
}

func TestRSIKnownValue(t *testing.T) {
	rsi := RSI([]float64{10, 11, 10.5}, 2)
	if !math.IsNaN(rsi[0]) || !math.IsNaN(rsi[1]) {
		t.Fatalf("expected NaN before the window fills, got %v", rsi[:2])
	}
	// avg gain 0.5, avg loss 0.25, RS 2
	if !approx(rsi[2], 100-100/3.0) {
		t.Fatalf("rsi = %v, want %v", rsi[2], 100-100/3.0)
	}
}

func TestRSIBoundaries(t *testing.T) {
	rising := make([]float64, 20)
	flat := make([]float64, 20)
	falling := make([]float64, 20)
	for i := range rising {
		rising[i] = 100 + float64(i)
		flat[i] = 100
		falling[i] = 100 - float64(i)
	}

	if got := RSI(rising, 14)[19]; got != 100 {
		t.Errorf("rising closes: rsi = %v, want 100", got)
	}
	if got := RSI(flat, 14)[19]; got != 50 {
		t.Errorf("flat closes: rsi = %v, want 50", got)
	}
	if got := RSI(falling, 14)[19]; got != 0 {
		t.Errorf("falling closes: rsi = %v, want 0", got)
	}
}

func TestRSIStaysInRange(t *testing.T) {
	closes := make([]float64, 200)
	for i := range closes {
		closes[i] = 100 + 10*math.Sin(float64(i)/3) + float64(i%5)
	}
	for i, v := range RSI(closes, 14) {
		if i < 14 {
			continue
		}
		if v < 0 || v > 100 || math.IsNaN(v) {
			t.Fatalf("rsi[%d] = %v out of range", i, v)
		}
	}
}
