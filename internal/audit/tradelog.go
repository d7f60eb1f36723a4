package audit

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dyike/CortexSwing/models"
)

var separator = strings.Repeat("-", 60)

// TradeLog is the append-only text record of every fired buy signal.
type TradeLog struct {
	path string
	mu   sync.Mutex
}

func NewTradeLog(path string) *TradeLog {
	return &TradeLog{path: path}
}

func (l *TradeLog) Path() string { return l.path }

// Append writes one entry for sig. Entries are never rewritten.
func (l *TradeLog) Append(sig models.TradingSignal) error {
	entry, err := FormatEntry(sig)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open trade log: %w", err)
	}
	if _, err := f.WriteString(entry); err != nil {
		f.Close()
		return fmt.Errorf("append trade log: %w", err)
	}
	return f.Close()
}

func FormatEntry(sig models.TradingSignal) (string, error) {
	b := sig.Bar
	if err := b.Validate(); err != nil {
		return "", fmt.Errorf("format log entry for %s: %w", sig.Ticker, err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] BUY ALERT - %s\n", sig.Timestamp.Format("2006-01-02 15:04"), sig.Ticker)
	fmt.Fprintf(&sb, "Price: $%.2f | RSI: %.1f | MA50: $%.2f | Volume: %.2fM (Avg: %.2fM)\n",
		b.Close, *b.RSI, *b.MA50, b.Volume/1e6, *b.VolumeAvg/1e6)
	fmt.Fprintf(&sb, "Market sentiment: %s\n", sig.Sentiment.Market)
	fmt.Fprintf(&sb, "News sentiment: %s\n", sig.Sentiment.News)
	fmt.Fprintf(&sb, "Rationale: %s\n", sig.Rationale)
	sb.WriteString(separator + "\n")
	return sb.String(), nil
}

// ReadEntries returns the last n entries of the log at path, oldest first.
// n <= 0 returns everything. A missing log has no entries.
func ReadEntries(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open trade log: %w", err)
	}
	defer f.Close()

	var (
		entries []string
		cur     strings.Builder
	)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == separator {
			entries = append(entries, strings.TrimRight(cur.String(), "\n"))
			cur.Reset()
			continue
		}
		cur.WriteString(line + "\n")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read trade log: %w", err)
	}
	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return entries, nil
}
