package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dyike/CortexSwing/internal/audit"
	"github.com/dyike/CortexSwing/internal/watchlist"
	"github.com/dyike/CortexSwing/pkg/dataflows"
)

func newWatchlistCmd(a *app) *cobra.Command {
	watchCmd := &cobra.Command{
		Use:     "watchlist",
		Aliases: []string{"tickers"},
		Short:   "Manage the tickers scanned by 'scan'",
	}

	watchCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List watchlist tickers",
		RunE: func(cmd *cobra.Command, args []string) error {
			tickers, err := a.watchlist().List()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Watchlist (%d): %s\n", len(tickers), joinTickers(tickers))
			return nil
		},
	})

	watchCmd.AddCommand(&cobra.Command{
		Use:   "add [TICKER]",
		Short: "Add a ticker, prompting when none is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var ticker string
			if len(args) == 1 {
				ticker = dataflows.NormalizeSymbol(args[0])
				if err := dataflows.ValidateSymbol(ticker); err != nil {
					return err
				}
			} else {
				var err error
				if ticker, err = PromptForTicker(); err != nil {
					return err
				}
			}

			added, err := a.watchlist().Add(ticker)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !added {
				fmt.Fprintln(out, infoStyle.Render(ticker+" is already on the watchlist"))
				return nil
			}
			fmt.Fprintln(out, successStyle.Render("✅ Added "+ticker))
			return nil
		},
	})

	removeCmd := &cobra.Command{
		Use:   "remove TICKER",
		Short: "Remove a ticker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ticker := dataflows.NormalizeSymbol(args[0])
			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				ok, err := ConfirmRemove(ticker)
				if err != nil {
					return err
				}
				if !ok {
					return errAborted
				}
			}

			err := a.watchlist().Remove(ticker)
			if errors.Is(err, watchlist.ErrTickerNotFound) {
				return fmt.Errorf("%s is not on the watchlist", ticker)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✅ Removed "+ticker))
			return nil
		},
	}
	removeCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	watchCmd.AddCommand(removeCmd)

	return watchCmd
}

func newLogCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Print the buy-signal trade log",
		RunE: func(cmd *cobra.Command, args []string) error {
			tail, _ := cmd.Flags().GetInt("tail")
			entries, err := audit.ReadEntries(a.cfg.TradeLogPath, tail)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, infoStyle.Render("No trade signals logged yet."))
				return nil
			}
			for _, e := range entries {
				fmt.Fprintln(out, e)
				fmt.Fprintln(out, dividerStyle.Render(divider))
			}
			return nil
		},
	}
	cmd.Flags().Int("tail", 0, "Show only the last N entries")
	return cmd
}
