package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dyike/CortexSwing/config"
	"github.com/dyike/CortexSwing/internal/position"
)

func newMonitorCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Check open positions against stop-loss and take-profit",
		Long: `Fetch the live price of every open position and close the ones that crossed their
stop-loss or take-profit. With --watch the check repeats every --interval until
interrupted, and strategy changes in the --config file apply to new positions.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			watch, _ := cmd.Flags().GetBool("watch")
			interval, _ := cmd.Flags().GetDuration("interval")
			if watch && interval <= 0 {
				return fmt.Errorf("interval must be positive, got %s", interval)
			}

			ctx, cancel := interruptContext(cmd.Context())
			defer cancel()

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			provider, err := a.marketData()
			if err != nil {
				return err
			}
			manager := a.positionManager(store, provider)

			if !watch {
				return monitorOnce(ctx, cmd, manager)
			}

			if a.manager != nil {
				err := a.manager.Watch(ctx, func(cfg config.Config) {
					manager.SetStrategy(cfg.Strategy)
				})
				if err != nil {
					a.logger.Warn("config watch unavailable", zap.Error(err))
				}
			}

			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				if err := monitorOnce(ctx, cmd, manager); err != nil {
					if ctx.Err() != nil {
						return nil
					}
					a.logger.Error("monitor pass failed", zap.Error(err))
				}
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}
			}
		},
	}
	cmd.Flags().Bool("watch", false, "Keep monitoring until interrupted")
	cmd.Flags().Duration("interval", 5*time.Minute, "Time between checks with --watch")
	return cmd
}

func monitorOnce(ctx context.Context, cmd *cobra.Command, manager *position.Manager) error {
	report, err := manager.Monitor(ctx)
	if report != nil {
		fmt.Fprintln(cmd.OutOrStdout(), RenderMonitor(report, time.Now()))
	}
	return err
}

func newPositionsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "positions",
		Short: "List open positions",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			positions, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), RenderPositions(positions))
			return nil
		},
	}
}
