package models

import "time"

const (
	ConditionPriceAboveMA50 = "price_above_ma50"
	ConditionRSIInBand      = "rsi_in_band"
	ConditionVolumeSpike    = "volume_spike"
	ConditionMarketBullish  = "market_sentiment_bullish"
	ConditionNewsPositive   = "news_sentiment_positive"
)

type Condition struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
}

// ConditionSet keeps conditions in evaluation order.
type ConditionSet []Condition

// All is the logical AND of every condition. An empty set never signals.
func (cs ConditionSet) All() bool {
	if len(cs) == 0 {
		return false
	}
	for _, c := range cs {
		if !c.Passed {
			return false
		}
	}
	return true
}

func (cs ConditionSet) Get(name string) (passed bool, ok bool) {
	for _, c := range cs {
		if c.Name == name {
			return c.Passed, true
		}
	}
	return false, false
}

// TradingSignal is one evaluated decision point for a ticker.
type TradingSignal struct {
	Ticker     string           `json:"ticker"`
	Timestamp  time.Time        `json:"timestamp"`
	Bar        IndicatorBar     `json:"bar"`
	Sentiment  SentimentReading `json:"sentiment"`
	Conditions ConditionSet     `json:"conditions"`
	Buy        bool             `json:"buy"`
	Rationale  string           `json:"rationale,omitempty"`
}

type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)
