// ABOUTME: CLI command for logging a single reading.
// ABOUTME: Handles numeric and text metrics plus the blood pressure shorthand.
package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/harperreed/healthdash/internal/aggregate"
	"github.com/harperreed/healthdash/internal/models"
)

var logAt string

var logCmd = &cobra.Command{
	Use:     "log <metric> <value> [value2]",
	Aliases: []string{"add", "a"},
	Short:   "Log a health reading",
	Long: `Log a health reading. For blood pressure, provide both systolic and diastolic values.

Examples:
  healthdash log weight 82.5
  healthdash log heartRate 64 --at "2025-06-14 07:00"
  healthdash log bp 120 80
  healthdash log mood good
  healthdash log symptoms headache,fatigue`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := requireSession()
		if err != nil {
			return err
		}

		loggedAt := now()
		if logAt != "" {
			loggedAt, err = parseTime(logAt)
			if err != nil {
				return fmt.Errorf("invalid timestamp: %s", logAt)
			}
		}

		if args[0] == "bp" {
			if len(args) < 3 {
				return fmt.Errorf("blood pressure requires two values: systolic and diastolic")
			}
			return logBloodPressure(cmd, sess.UserID, args[1], args[2], loggedAt)
		}

		metric, ok := models.ParseMetricName(args[0])
		if !ok || metric.IsGoal() {
			return fmt.Errorf("invalid metric %q (set targets with 'healthdash goal set')\nKnown metrics: %s", args[0], metricList())
		}

		value, err := parseValue(metric, strings.Join(args[1:], " "))
		if err != nil {
			return err
		}

		s := models.NewSample(sess.UserID, metric, value).WithLoggedAt(loggedAt)
		if err := aggregate.Check(s); err != nil {
			return fmt.Errorf("invalid value for %s: %w", metric, err)
		}
		if err := repo.CreateSamples(cmd.Context(), s); err != nil {
			return fmt.Errorf("failed to log %s: %w", metric, err)
		}

		color.Green("✓ Logged %s", metric.Label())
		fmt.Printf("  %s %s\n", color.New(color.Faint).Sprint(shortID(s.ID)), s.Describe())
		return nil
	},
}

func logBloodPressure(cmd *cobra.Command, userID uuid.UUID, sysStr, diaStr string, at time.Time) error {
	sys, err := strconv.ParseFloat(sysStr, 64)
	if err != nil {
		return fmt.Errorf("invalid systolic value: %s", sysStr)
	}
	dia, err := strconv.ParseFloat(diaStr, 64)
	if err != nil {
		return fmt.Errorf("invalid diastolic value: %s", diaStr)
	}

	mSys := models.NewSample(userID, models.MetricBPSystolic, models.NumberValue(sys)).WithLoggedAt(at)
	mDia := models.NewSample(userID, models.MetricBPDiastolic, models.NumberValue(dia)).WithLoggedAt(at)
	if err := aggregate.Check(mSys, mDia); err != nil {
		return fmt.Errorf("invalid blood pressure: %w", err)
	}
	if err := repo.CreateSamples(cmd.Context(), mSys, mDia); err != nil {
		return fmt.Errorf("failed to log blood pressure: %w", err)
	}

	color.Green("✓ Logged blood pressure")
	fmt.Printf("  %s %.0f/%.0f mmHg\n", color.New(color.Faint).Sprint(shortID(mSys.ID)), sys, dia)
	return nil
}

// parseValue converts CLI text to the metric's value kind. Symptoms take a
// comma separated list.
func parseValue(metric models.MetricName, raw string) (models.Value, error) {
	switch metric.Kind() {
	case models.KindNumeric:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return models.Value{}, fmt.Errorf("invalid value for %s: %s", metric, raw)
		}
		return models.NumberValue(f), nil
	case models.KindStructured:
		items := splitCSV(raw)
		b, err := json.Marshal(items)
		if err != nil {
			return models.Value{}, err
		}
		return models.JSONValue(b), nil
	default:
		return models.TextValue(raw), nil
	}
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func metricList() string {
	names := make([]string, 0, len(models.Metrics))
	for _, m := range allMetrics() {
		names = append(names, string(m))
	}
	return strings.Join(names, ", ")
}

func init() {
	logCmd.Flags().StringVar(&logAt, "at", "", "timestamp (YYYY-MM-DD HH:MM)")
	rootCmd.AddCommand(logCmd)
}
