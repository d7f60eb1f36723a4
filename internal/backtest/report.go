package backtest

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dyike/CortexSwing/models"
	"github.com/dyike/CortexSwing/pkg/utils"
)

func NewReport(ticker, period string, result *Result, now time.Time) models.BacktestReport {
	return models.BacktestReport{
		RunID:       uuid.NewString(),
		Ticker:      ticker,
		Period:      period,
		GeneratedAt: now,
		Params:      result.Params,
		Trades:      result.Trades,
		Summary:     result.Summary,
	}
}

// ReportName is the artifact base name for a (ticker, period) pair.
func ReportName(ticker, period string) string {
	return fmt.Sprintf("%s_%s_backtest", strings.ToUpper(ticker), period)
}

// WriteReport stores the report as JSON and markdown under dir. Re-running
// the same ticker and period replaces the previous artifact.
func WriteReport(dir string, report models.BacktestReport) (jsonPath, mdPath string, err error) {
	name := ReportName(report.Ticker, report.Period)
	jsonPath, err = utils.WriteJSON(dir, name+".json", report)
	if err != nil {
		return "", "", err
	}
	mdPath, err = utils.WriteMarkdown(dir, name+".md", RenderMarkdown(report))
	if err != nil {
		return jsonPath, "", err
	}
	return jsonPath, mdPath, nil
}

func RenderMarkdown(r models.BacktestReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Backtest: %s (%s)\n\n", r.Ticker, r.Period)
	fmt.Fprintf(&b, "Run `%s` generated %s\n\n", r.RunID, r.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Holding days: %d | Stop-loss: %.2f%% | Capital per trade: $%.2f\n\n",
		r.Params.HoldingDays, r.Params.StopLoss*100, r.Params.Capital)

	b.WriteString("| Entry date | Entry | Exit date | Exit | Reason | PnL | Return % |\n")
	b.WriteString("|---|---|---|---|---|---|---|\n")
	for _, t := range r.Trades {
		fmt.Fprintf(&b, "| %s | %.2f | %s | %.2f | %s | %.2f | %.2f |\n",
			t.EntryDate.Format("2006-01-02"), t.EntryPrice,
			t.ExitDate.Format("2006-01-02"), t.ExitPrice,
			t.ExitReason, t.PnL, t.ReturnPct)
	}
	if len(r.Trades) == 0 {
		b.WriteString("| - | - | - | - | no signals | - | - |\n")
	}

	s := r.Summary
	b.WriteString("\n## Summary\n\n")
	fmt.Fprintf(&b, "- Trades: %d (wins %d, losses %d, win rate %.2f%%)\n", s.Trades, s.Wins, s.Losses, s.WinRate)
	fmt.Fprintf(&b, "- Total PnL: $%.2f\n", s.TotalPnL)
	fmt.Fprintf(&b, "- Ending balance: $%.2f\n", s.EndingBalance)
	return b.String()
}

var tradeCSVHeaders = []string{"entry_date", "exit_date", "entry_price", "exit_price", "exit_reason", "pnl", "return_pct"}

// WriteTradesCSV stores the trade list as <name>_trades.csv under dir.
func WriteTradesCSV(dir string, report models.BacktestReport) (string, error) {
	rows := make([][]string, 0, len(report.Trades))
	for _, t := range report.Trades {
		rows = append(rows, []string{
			t.EntryDate.Format("2006-01-02"),
			t.ExitDate.Format("2006-01-02"),
			strconv.FormatFloat(t.EntryPrice, 'f', 4, 64),
			strconv.FormatFloat(t.ExitPrice, 'f', 4, 64),
			string(t.ExitReason),
			strconv.FormatFloat(t.PnL, 'f', 2, 64),
			strconv.FormatFloat(t.ReturnPct, 'f', 4, 64),
		})
	}
	return utils.WriteCSV(dir, ReportName(report.Ticker, report.Period)+"_trades.csv", tradeCSVHeaders, rows)
}
