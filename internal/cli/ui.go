package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/dyike/CortexSwing/config"
	"github.com/dyike/CortexSwing/internal/position"
	"github.com/dyike/CortexSwing/internal/trading"
	"github.com/dyike/CortexSwing/models"
)

// UI styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED"))

	boxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(0, 1)

	passStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981"))

	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6"))

	dividerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#374151"))
)

var divider = strings.Repeat("─", 60)

// RenderSignal shows the condition breakdown for one evaluated bar.
func RenderSignal(sig models.TradingSignal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", titleStyle.Render(sig.Ticker), sig.Bar.Date.Format("2006-01-02"))
	fmt.Fprintf(&b, "Close $%.2f", sig.Bar.Close)
	if sig.Bar.MA50 != nil && sig.Bar.RSI != nil && sig.Bar.VolumeAvg != nil {
		fmt.Fprintf(&b, " | MA50 $%.2f | RSI %.1f | Volume %.2fM (avg %.2fM)",
			*sig.Bar.MA50, *sig.Bar.RSI, sig.Bar.Volume/1e6, *sig.Bar.VolumeAvg/1e6)
	}
	fmt.Fprintf(&b, "\nSentiment: market %s, news %s\n\n", sig.Sentiment.Market, sig.Sentiment.News)

	for _, c := range sig.Conditions {
		if c.Passed {
			b.WriteString(passStyle.Render("✔ "+c.Name) + "\n")
		} else {
			b.WriteString(failStyle.Render("✘ "+c.Name) + "\n")
		}
	}
	b.WriteString("\n")
	if sig.Buy {
		b.WriteString(successStyle.Render("✅ BUY conditions met for "+sig.Ticker) + "\n")
		if sig.Rationale != "" {
			b.WriteString("Rationale: " + sig.Rationale)
		}
	} else {
		b.WriteString(failStyle.Render("❌ Conditions not met for " + sig.Ticker))
	}
	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

// RenderScan summarizes a watchlist pass.
func RenderScan(r *trading.ScanReport) string {
	if r == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("Watchlist scan") + "\n")
	for _, sig := range r.Signals {
		if sig.Buy {
			fmt.Fprintf(&b, "%s\n", successStyle.Render(fmt.Sprintf("BUY   %-6s $%.2f  %s", sig.Ticker, sig.Bar.Close, sig.Rationale)))
		} else {
			fmt.Fprintf(&b, "%s\n", failStyle.Render(fmt.Sprintf("PASS  %-6s $%.2f", sig.Ticker, sig.Bar.Close)))
		}
	}
	for _, ticker := range sortedKeys(r.Failed) {
		fmt.Fprintf(&b, "%s\n", errorStyle.Render(fmt.Sprintf("ERROR %-6s %v", ticker, r.Failed[ticker])))
	}
	fmt.Fprintf(&b, "\n%d scanned, %d signals, %d failed", len(r.Signals)+len(r.Failed), r.BuyCount(), len(r.Failed))
	return b.String()
}

// RenderBacktest prints the trade table and summary of a report.
func RenderBacktest(r models.BacktestReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", titleStyle.Render(fmt.Sprintf("Backtest %s (%s)", r.Ticker, r.Period)))
	fmt.Fprintf(&b, "Holding %d days | stop-loss %.1f%% | capital $%.2f per trade\n\n",
		r.Params.HoldingDays, r.Params.StopLoss*100, r.Params.Capital)

	if len(r.Trades) == 0 {
		b.WriteString(failStyle.Render("No trades: the buy rule never fired in this period.") + "\n")
	}
	for _, t := range r.Trades {
		line := fmt.Sprintf("%s → %s  $%.2f → $%.2f  %-15s  %+.2f (%+.2f%%)",
			t.EntryDate.Format("2006-01-02"), t.ExitDate.Format("2006-01-02"),
			t.EntryPrice, t.ExitPrice, t.ExitReason, t.PnL, t.ReturnPct)
		if t.PnL >= 0 {
			b.WriteString(passStyle.Render(line) + "\n")
		} else {
			b.WriteString(errorStyle.Render(line) + "\n")
		}
	}

	s := r.Summary
	fmt.Fprintf(&b, "\nTrades: %d (wins %d, losses %d, win rate %.1f%%)\n", s.Trades, s.Wins, s.Losses, s.WinRate)
	fmt.Fprintf(&b, "Total PnL: $%.2f\nEnding balance: $%.2f", s.TotalPnL, s.EndingBalance)
	return boxStyle.Render(b.String())
}

func RenderPositions(positions []models.OpenPosition) string {
	if len(positions) == 0 {
		return infoStyle.Render("No open positions.")
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Open positions (%d)", len(positions))) + "\n")
	for _, p := range positions {
		fmt.Fprintf(&b, "%-6s entry $%.2f  stop $%.4f  target $%.4f  opened %s\n",
			p.Ticker, p.EntryPrice, p.StopLoss, p.TakeProfit, p.OpenedAt.Local().Format("2006-01-02 15:04"))
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderMonitor summarizes one monitoring pass.
func RenderMonitor(r *position.MonitorReport, now time.Time) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Position check "+now.Format("2006-01-02 15:04:05")) + "\n")
	if len(r.Closed)+len(r.Held)+len(r.Failed) == 0 {
		b.WriteString(infoStyle.Render("No open positions."))
		return b.String()
	}
	for _, c := range r.Closed {
		line := fmt.Sprintf("CLOSED %-6s %s at $%.2f (entry $%.2f, %+.2f%%)",
			c.Position.Ticker, c.Reason, c.ExitPrice, c.Position.EntryPrice, c.ReturnPct())
		if c.Reason == models.CloseTakeProfit {
			b.WriteString(successStyle.Render(line) + "\n")
		} else {
			b.WriteString(errorStyle.Render(line) + "\n")
		}
	}
	for _, h := range r.Held {
		fmt.Fprintf(&b, "HOLD   %-6s $%.2f (stop $%.2f, target $%.2f)\n",
			h.Position.Ticker, h.Price, h.Position.StopLoss, h.Position.TakeProfit)
	}
	for _, ticker := range sortedKeys(r.Failed) {
		b.WriteString(warnStyle.Render(fmt.Sprintf("SKIP   %-6s %v", ticker, r.Failed[ticker])) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderConfig shows the effective configuration without secrets.
func RenderConfig(cfg *config.Config, path string) string {
	s := cfg.Strategy
	var b strings.Builder
	b.WriteString(titleStyle.Render("📋 Current CortexSwing Configuration") + "\n")
	if path != "" {
		fmt.Fprintf(&b, "Config File:          %s\n", path)
	}
	fmt.Fprintf(&b, "Project Directory:    %s\n", cfg.ProjectDir)
	fmt.Fprintf(&b, "Results Directory:    %s\n", cfg.ResultsDir)
	fmt.Fprintf(&b, "Watchlist:            %s\n", cfg.WatchlistPath)
	fmt.Fprintf(&b, "Positions DB:         %s\n", cfg.PositionsDB)
	fmt.Fprintf(&b, "Trade Log:            %s\n\n", cfg.TradeLogPath)

	fmt.Fprintf(&b, "Market Data:          %s (%s, %s)\n", cfg.MarketDataProvider, cfg.DataPeriod, cfg.DataInterval)
	fmt.Fprintf(&b, "Cache Enabled:        %t\n", cfg.CacheEnabled)
	fmt.Fprintf(&b, "Debug Mode:           %t\n\n", cfg.Debug)

	fmt.Fprintf(&b, "RSI:                  %d-bar, band (%.0f, %.0f)\n", s.RSIWindow, s.RSILow, s.RSIHigh)
	fmt.Fprintf(&b, "Moving Average:       %d-bar\n", s.MAWindow)
	fmt.Fprintf(&b, "Volume Spike:         %.2fx %d-bar average\n", s.VolumeMultiplier, s.VolumeAvgWindow)
	fmt.Fprintf(&b, "Backtest:             hold %d days, stop %.1f%%, $%.2f per trade\n", s.HoldingDays, s.BacktestStopLoss*100, s.Capital)
	fmt.Fprintf(&b, "Live Exits:           stop %.1f%%, target %.1f%%, qty %d\n\n", s.StopLoss*100, s.TakeProfit*100, s.OrderQuantity)

	b.WriteString("🔌 Integrations:\n")
	fmt.Fprintf(&b, "DeepSeek rationale:   %s\n", configured(cfg.DeepSeekAPIKey != ""))
	fmt.Fprintf(&b, "NewsAPI:              %s\n", configured(cfg.NewsAPIKey != ""))
	fmt.Fprintf(&b, "Telegram:             %s\n", configured(cfg.TelegramToken != "" && cfg.TelegramChatID != ""))
	fmt.Fprintf(&b, "Alpaca:               %s", configured(cfg.AlpacaAPIKey != "" && cfg.AlpacaSecretKey != ""))
	return b.String()
}

func configured(ok bool) string {
	if ok {
		return "✅ Configured"
	}
	return "❌ Not configured"
}

func sortedKeys(m map[string]error) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
