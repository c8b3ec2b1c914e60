package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// reprocessCmd re-runs extraction for posts stuck in the failed state,
// the manual re-trigger after an extraction outage.
var reprocessCmd = &cobra.Command{
	Use:   "reprocess",
	Short: "Re-run extraction for failed posts",
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

		pipeline, err := a.pipeline()
		if err != nil {
			return err
		}

		recovered, err := pipeline.Reprocess(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("recovered %d post(s)\n", recovered)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reprocessCmd)
}
