package models

import (
	"math"
	"time"
)

// Bar is one daily OHLCV record as returned by a market-data provider.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// IndicatorBar is a Bar extended with trailing-window indicators.
// Indicator fields are nil when not computed.
type IndicatorBar struct {
	Bar
	RSI       *float64 `json:"rsi,omitempty"`
	MA50      *float64 `json:"ma50,omitempty"`
	VolumeAvg *float64 `json:"volume_avg,omitempty"`
}

// Validate reports the first field the signal conditions need but the bar lacks.
func (b IndicatorBar) Validate() error {
	switch {
	case !validNumber(b.Close) || b.Close <= 0:
		return &MissingFieldError{Field: "close"}
	case b.MA50 == nil || !validNumber(*b.MA50):
		return &MissingFieldError{Field: "ma50"}
	case b.RSI == nil || !validNumber(*b.RSI):
		return &MissingFieldError{Field: "rsi"}
	case !validNumber(b.Volume) || b.Volume < 0:
		return &MissingFieldError{Field: "volume"}
	case b.VolumeAvg == nil || !validNumber(*b.VolumeAvg):
		return &MissingFieldError{Field: "volume_avg"}
	}
	return nil
}

func validNumber(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Float returns a pointer to v, handy for building IndicatorBars by hand.
func Float(v float64) *float64 {
	return &v
}
