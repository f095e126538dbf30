// ABOUTME: CLI commands for listing and deleting logged readings.
// ABOUTME: Supports metric and date filters and deletion by ID prefix.
package main

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/healthdash/internal/models"
	"github.com/harperreed/healthdash/internal/storage"
)

var (
	listMetric string
	listFrom   string
	listTo     string
	listLimit  int
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls", "l"},
	Short:   "List logged readings",
	Long: `List recent readings, newest first.

OUTPUT FORMAT:

  Each line shows: ID  TIMESTAMP  METRIC  VALUE UNIT

  The ID is an 8-character prefix you can use with 'healthdash delete'.

EXAMPLES:

  healthdash list                        # Last 20 readings
  healthdash list --metric weight        # Only weight
  healthdash list --from 2025-06-01 -n 100`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := requireSession()
		if err != nil {
			return err
		}

		filter := storage.SampleFilter{Limit: listLimit}
		if listMetric != "" {
			m, ok := models.ParseMetricName(listMetric)
			if !ok {
				return fmt.Errorf("invalid metric: %q", listMetric)
			}
			filter.Metrics = []models.MetricName{m}
		}
		if listFrom != "" {
			if filter.From, err = parseTime(listFrom); err != nil {
				return fmt.Errorf("invalid --from: %s", listFrom)
			}
		}
		if listTo != "" {
			if filter.To, err = parseTime(listTo); err != nil {
				return fmt.Errorf("invalid --to: %s", listTo)
			}
		}

		samples, err := repo.ListSamples(cmd.Context(), sess.UserID, filter)
		if err != nil {
			return fmt.Errorf("failed to list readings: %w", err)
		}
		if len(samples) == 0 {
			fmt.Println("No readings found.")
			return nil
		}

		faint := color.New(color.Faint)
		for _, s := range samples {
			fmt.Printf("%s %s %s %s\n",
				faint.Sprint(shortID(s.ID)),
				faint.Sprint(s.LoggedAt.Local().Format("2006-01-02 15:04")),
				padRight(string(s.Metric), 24),
				truncate(s.Describe(), 40))
		}
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"del", "rm"},
	Short:   "Delete a logged reading",
	Long: `Delete a reading by its ID or ID prefix.

The ID prefix is shown in the first column of 'healthdash list' output.
If the prefix matches more than one reading, an error is returned.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := requireSession()
		if err != nil {
			return err
		}

		s, err := repo.GetSample(cmd.Context(), sess.UserID, args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}
		if err := repo.DeleteSample(cmd.Context(), sess.UserID, s.ID.String()); err != nil {
			return fmt.Errorf("failed to delete reading: %w", err)
		}

		color.Yellow("✗ Deleted %s", s.Metric.Label())
		fmt.Printf("  %s %s\n", color.New(color.Faint).Sprint(shortID(s.ID)), s.Describe())
		return nil
	},
}

// allMetrics returns the known metrics sorted by name.
func allMetrics() []models.MetricName {
	names := make([]models.MetricName, 0, len(models.Metrics))
	for m := range models.Metrics {
		names = append(names, m)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

func init() {
	listCmd.Flags().StringVarP(&listMetric, "metric", "m", "", "filter by metric")
	listCmd.Flags().StringVar(&listFrom, "from", "", "only readings at or after this time")
	listCmd.Flags().StringVar(&listTo, "to", "", "only readings at or before this time")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 20, "max number of results")
	rootCmd.AddCommand(listCmd, deleteCmd)
}
