package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dyike/CortexSwing/config"
	"github.com/dyike/CortexSwing/internal/backtest"
	"github.com/dyike/CortexSwing/internal/logging"
	"github.com/dyike/CortexSwing/pkg/dataflows"
)

const version = "v1.0.0"

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	return newRootCmd(config.DefaultConfig)
}

func newRootCmd(loadConfig func() *config.Config) *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "cortexswing",
		Short: "CortexSwing - rules-based swing trading engine",
		Long: `CortexSwing scans a watchlist for momentum breakouts (price above MA50, RSI in band,
volume spike, bullish sentiment), backtests the rule on history and manages open
positions with stop-loss and take-profit exits.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd, loadConfig)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// Default behavior: prompt for a ticker and analyze it
			ticker, err := PromptForTicker()
			if err != nil {
				return err
			}
			return runAnalyze(cmd, a, ticker, false)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("config", "", "Configuration file path (JSON, created if missing)")

	rootCmd.AddCommand(newAnalyzeCmd(a))
	rootCmd.AddCommand(newScanCmd(a))
	rootCmd.AddCommand(newBacktestCmd(a))
	rootCmd.AddCommand(newMonitorCmd(a))
	rootCmd.AddCommand(newPositionsCmd(a))
	rootCmd.AddCommand(newWatchlistCmd(a))
	rootCmd.AddCommand(newLogCmd(a))
	rootCmd.AddCommand(newConfigCmd(a))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func (a *app) setup(cmd *cobra.Command, loadConfig func() *config.Config) error {
	cfg := loadConfig()
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Debug = true
	}

	logger, err := logging.New(cfg.Debug)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	a.logger = logger

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		manager, err := config.NewManager(
			config.WithConfigPath(path),
			config.WithInitialConfig(cfg),
			config.WithLogger(logger),
		)
		if err != nil {
			return fmt.Errorf("load config %s: %w", path, err)
		}
		loaded := manager.Get()
		loaded.Debug = loaded.Debug || cfg.Debug
		cfg = &loaded
		a.manager = manager
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}
	a.cfg = cfg
	return nil
}

// interruptContext is cancelled on Ctrl-C or SIGTERM.
func interruptContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func newAnalyzeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze TICKER",
		Short: "Evaluate the latest bar of one ticker",
		Long: `Evaluate the buy conditions on the most recent complete bar of a ticker.
On a signal the rationale is written to the trade log and a position is opened.
Example: cortexswing analyze PLTR --alert`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			alert, _ := cmd.Flags().GetBool("alert")
			return runAnalyze(cmd, a, args[0], alert)
		},
	}
	cmd.Flags().Bool("alert", false, "Send a Telegram alert when the signal fires")
	return cmd
}

func runAnalyze(cmd *cobra.Command, a *app, ticker string, alert bool) error {
	ticker = dataflows.NormalizeSymbol(ticker)
	if err := dataflows.ValidateSymbol(ticker); err != nil {
		return err
	}
	ctx, cancel := interruptContext(cmd.Context())
	defer cancel()

	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	session, err := a.session(ctx, store, alert)
	if err != nil {
		return err
	}
	sig, err := session.Analyze(ctx, ticker)
	if err != nil {
		return fmt.Errorf("analyze %s: %w", ticker, err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), RenderSignal(*sig))
	return nil
}

func newScanCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Evaluate every ticker on the watchlist",
		RunE: func(cmd *cobra.Command, args []string) error {
			alert, _ := cmd.Flags().GetBool("alert")
			tickers, err := a.watchlist().List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(tickers) == 0 {
				fmt.Fprintln(out, infoStyle.Render("Watchlist is empty. Add tickers with 'cortexswing watchlist add TICKER'."))
				return nil
			}

			ctx, cancel := interruptContext(cmd.Context())
			defer cancel()

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			session, err := a.session(ctx, store, alert)
			if err != nil {
				return err
			}
			report, err := session.Scan(ctx, tickers)
			fmt.Fprintln(out, RenderScan(report))
			return err
		},
	}
	cmd.Flags().Bool("alert", false, "Send Telegram alerts for fired signals")
	return cmd
}

func newBacktestCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backtest TICKER",
		Short: "Replay the buy rule over history",
		Long: `Replay the buy rule over a ticker's daily history with a fixed holding period and
stop-loss. The report is written to the results directory as JSON and Markdown.
Example: cortexswing backtest PLTR --period 6mo`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			period, _ := cmd.Flags().GetString("period")
			ticker := dataflows.NormalizeSymbol(args[0])
			if err := dataflows.ValidateSymbol(ticker); err != nil {
				return err
			}

			ctx, cancel := interruptContext(cmd.Context())
			defer cancel()

			provider, err := a.marketData()
			if err != nil {
				return err
			}
			bars, err := provider.FetchBars(ctx, ticker, period, "1d")
			if err != nil {
				return fmt.Errorf("fetch bars for %s: %w", ticker, err)
			}

			result, err := backtest.NewSimulator(a.cfg.Strategy, a.logger).Run(bars)
			if err != nil {
				return fmt.Errorf("backtest %s: %w", ticker, err)
			}
			report := backtest.NewReport(ticker, period, result, time.Now())
			jsonPath, mdPath, err := backtest.WriteReport(a.cfg.ResultsDir, report)
			if err != nil {
				return err
			}
			a.logger.Info("backtest report written", zap.String("json", jsonPath), zap.String("markdown", mdPath))
			if withCSV, _ := cmd.Flags().GetBool("csv"); withCSV {
				csvPath, err := backtest.WriteTradesCSV(a.cfg.ResultsDir, report)
				if err != nil {
					return err
				}
				a.logger.Info("trade list exported", zap.String("csv", csvPath))
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, RenderBacktest(report))
			fmt.Fprintln(out, infoStyle.Render("Report saved to "+mdPath))
			return nil
		},
	}
	cmd.Flags().String("period", "6mo", "History to replay (e.g. 3mo, 6mo, 1y)")
	cmd.Flags().Bool("csv", false, "Also export the trade list as CSV")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "CortexSwing %s\n", version)
			fmt.Fprintln(cmd.OutOrStdout(), "Rules-based swing trading engine")
		},
	}
}

func newConfigCmd(a *app) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Run: func(cmd *cobra.Command, args []string) {
			path := ""
			if a.manager != nil {
				path = a.manager.Path()
			}
			fmt.Fprintln(cmd.OutOrStdout(), RenderConfig(a.cfg, path))
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and report missing credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			fmt.Fprintln(out, successStyle.Render("✅ Strategy configuration is valid"))
			warnings := configWarnings(a.cfg)
			for _, w := range warnings {
				fmt.Fprintln(out, warnStyle.Render("⚠️  "+w))
			}
			if len(warnings) > 0 {
				fmt.Fprintf(out, "%d optional integrations disabled.\n", len(warnings))
			}
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Change a strategy threshold in the --config file",
		Long:  "Keys: " + strings.Join(config.StrategyKeys(), ", "),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.manager == nil {
				return errors.New("config set needs --config to know which file to edit")
			}
			key, value := args[0], args[1]
			err := a.manager.UpdateStrategy(func(s *config.StrategyConfig) error {
				return s.Set(key, value)
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(
				fmt.Sprintf("✅ %s = %s saved to %s", key, value, a.manager.Path())))
			return nil
		},
	})

	return configCmd
}

// configWarnings lists integrations that will run in degraded mode.
func configWarnings(cfg *config.Config) []string {
	var warnings []string
	if cfg.MarketDataProvider == "longport" &&
		(cfg.LongportAppKey == "" || cfg.LongportAppSecret == "" || cfg.LongportAccessToken == "") {
		warnings = append(warnings, "Longport credentials incomplete; market data will fail")
	}
	if cfg.DeepSeekAPIKey == "" {
		warnings = append(warnings, "DEEPSEEK_API_KEY not set; rationales use the template")
	}
	if cfg.NewsAPIKey == "" {
		warnings = append(warnings, "NEWS_API_KEY not set; news sentiment uses Google News only")
	}
	if cfg.TelegramToken == "" || cfg.TelegramChatID == "" {
		warnings = append(warnings, "Telegram not configured; alerts are skipped")
	}
	if cfg.AlpacaAPIKey == "" || cfg.AlpacaSecretKey == "" {
		warnings = append(warnings, "Alpaca not configured; no orders are placed")
	}
	return warnings
}

func joinTickers(tickers []string) string {
	if len(tickers) == 0 {
		return "(none)"
	}
	return strings.Join(tickers, ", ")
}

var errAborted = errors.New("aborted")
