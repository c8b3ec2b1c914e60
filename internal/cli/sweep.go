package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// sweepCmd runs a single dispatch sweep and exits. Useful for cron-style
// deployments that do not keep the server running.
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one verification sweep over open opinions",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.close()

		stats, err := a.dispatcher.DispatchOnce(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("scanned %d, dispatched %d, skipped %d, resolved %d, expired %d, errors %d\n",
			stats.Scanned, stats.Dispatched, stats.Skipped, stats.Resolved, stats.Expired, stats.Errors)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}
