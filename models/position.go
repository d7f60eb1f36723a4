package models

import "time"

// OpenPosition is the live state for one ticker, keyed by Ticker.
type OpenPosition struct {
	ID         string    `json:"id"`
	Ticker     string    `json:"ticker"`
	EntryPrice float64   `json:"entry_price"`
	StopLoss   float64   `json:"stop_loss"`
	TakeProfit float64   `json:"take_profit"`
	OpenedAt   time.Time `json:"opened_at"`
}

type CloseReason string

const (
	CloseStopLoss   CloseReason = "stop_loss"
	CloseTakeProfit CloseReason = "take_profit"
)

type ClosedPosition struct {
	Position  OpenPosition `json:"position"`
	ExitPrice float64      `json:"exit_price"`
	Reason    CloseReason  `json:"reason"`
	ClosedAt  time.Time    `json:"closed_at"`
}

// ReturnPct is the percentage move from entry to exit.
func (c ClosedPosition) ReturnPct() float64 {
	if c.Position.EntryPrice == 0 {
		return 0
	}
	return (c.ExitPrice - c.Position.EntryPrice) / c.Position.EntryPrice * 100
}
