package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dyike/CortexSwing/config"
	"github.com/dyike/CortexSwing/internal/indicators"
	"github.com/dyike/CortexSwing/internal/logging"
	"github.com/dyike/CortexSwing/pkg/dataflows"
	"github.com/dyike/CortexSwing/pkg/utils"
)

// dataflow fetches bars from the configured provider, computes the
// indicators and prints the most recent rows. With -csv the full indicator
// series is exported under <data>/csv/market/<SYMBOL>/.
func main() {
	symbol := flag.String("symbol", "PLTR", "ticker to fetch")
	period := flag.String("period", "6mo", "history period")
	rows := flag.Int("rows", 5, "number of recent rows to print")
	exportCSV := flag.Bool("csv", false, "export the indicator series as CSV")
	flag.Parse()

	ctx := context.Background()
	cfg := config.DefaultConfig()
	logger, err := logging.New(cfg.Debug)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	provider, err := dataflows.NewProvider(cfg, logger)
	if err != nil {
		panic(err)
	}

	ticker := dataflows.NormalizeSymbol(*symbol)
	bars, err := provider.FetchBars(ctx, ticker, *period, "1d")
	if err != nil {
		fmt.Fprintf(os.Stderr, "fetch bars: %v\n", err)
		os.Exit(1)
	}
	ibars, err := indicators.Compute(bars, cfg.Strategy)
	if err != nil {
		fmt.Fprintf(os.Stderr, "indicators: %v\n", err)
		os.Exit(1)
	}

	start := len(ibars) - *rows
	if start < 0 {
		start = 0
	}
	payload, _ := json.MarshalIndent(ibars[start:], "", "  ")
	fmt.Println(string(payload))

	if !*exportCSV {
		return
	}
	headers := []string{"date", "open", "high", "low", "close", "volume", "rsi", "ma50", "volume_avg"}
	records := make([][]string, 0, len(ibars))
	for _, b := range ibars {
		records = append(records, []string{
			b.Date.Format("2006-01-02"),
			formatFloat(b.Open), formatFloat(b.High), formatFloat(b.Low), formatFloat(b.Close),
			strconv.FormatFloat(b.Volume, 'f', 0, 64),
			formatFloat(*b.RSI), formatFloat(*b.MA50),
			strconv.FormatFloat(*b.VolumeAvg, 'f', 0, 64),
		})
	}
	dir := filepath.Join(cfg.DataDir, "csv", "market", ticker)
	path, err := utils.WriteCSV(dir, fmt.Sprintf("%s_%s_indicators.csv", ticker, *period), headers, records)
	if err != nil {
		fmt.Fprintf(os.Stderr, "export csv: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "wrote %d rows to %s\n", len(records), path)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
