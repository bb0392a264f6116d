package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	materializeFrom string
	materializeTo   string
)

var materializeCmd = &cobra.Command{
	Use:   "materialize <feature-view>",
	Short: "Move historical rows into the online store",
	Long: `Scan the feature view's source table and write the latest row per key to
the online store. Without --from the run resumes at the stored watermark,
without --to it runs up to now.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := openClient(false)
		if err != nil {
			return err
		}
		defer client.Close()

		var from, to *time.Time
		if materializeFrom != "" {
			parsed, err := time.Parse(time.RFC3339, materializeFrom)
			if err != nil {
				return fmt.Errorf("parse --from: %w", err)
			}
			from = &parsed
		}
		if materializeTo != "" {
			parsed, err := time.Parse(time.RFC3339, materializeTo)
			if err != nil {
				return fmt.Errorf("parse --to: %w", err)
			}
			to = &parsed
		}

		result, err := client.Materialize(cmd.Context(), args[0], from, to)
		if err != nil {
			return err
		}

		fmt.Printf("job %s: view %s window (%s, %s] scanned %d rows, wrote %d keys\n",
			result.JobId, result.FeatureView,
			result.From.Format(time.RFC3339), result.To.Format(time.RFC3339),
			result.RowsScanned, result.KeysWritten)
		return nil
	},
}

func init() {
	materializeCmd.Flags().StringVar(&materializeFrom, "from", "", "window start (RFC3339, exclusive)")
	materializeCmd.Flags().StringVar(&materializeTo, "to", "", "window end (RFC3339, inclusive)")
	rootCmd.AddCommand(materializeCmd)
}
