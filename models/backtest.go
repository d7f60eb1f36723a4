package models

import "time"

type ExitReason string

const (
	ExitHeldToHorizon ExitReason = "held_to_horizon"
	ExitStopLoss      ExitReason = "stop_loss"
)

// SimulatedTrade is one backtest entry and its resolved exit.
type SimulatedTrade struct {
	EntryDate  time.Time  `json:"entry_date"`
	ExitDate   time.Time  `json:"exit_date"`
	EntryPrice float64    `json:"entry_price"`
	ExitPrice  float64    `json:"exit_price"`
	ExitReason ExitReason `json:"exit_reason"`
	PnL        float64    `json:"pnl"`
	ReturnPct  float64    `json:"return_pct"`
	Rationale  string     `json:"rationale"`
}

type BacktestSummary struct {
	Trades        int     `json:"trades"`
	Wins          int     `json:"wins"`
	Losses        int     `json:"losses"`
	WinRate       float64 `json:"win_rate"`
	TotalPnL      float64 `json:"total_pnl"`
	EndingBalance float64 `json:"ending_balance"`
}

type BacktestParams struct {
	HoldingDays int     `json:"holding_days"`
	StopLoss    float64 `json:"stop_loss"`
	Capital     float64 `json:"capital"`
}

// BacktestReport is the durable artifact of one simulator run.
type BacktestReport struct {
	RunID       string           `json:"run_id"`
	Ticker      string           `json:"ticker"`
	Period      string           `json:"period"`
	GeneratedAt time.Time        `json:"generated_at"`
	Params      BacktestParams   `json:"params"`
	Trades      []SimulatedTrade `json:"trades"`
	Summary     BacktestSummary  `json:"summary"`
}
