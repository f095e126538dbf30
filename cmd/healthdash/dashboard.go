// ABOUTME: CLI commands for the dashboard: overview, trends, alerts and score.
// ABOUTME: Renders sparklines from the bucket series and colors alerts by severity.
package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/healthdash/internal/aggregate"
	"github.com/harperreed/healthdash/internal/dashboard"
	"github.com/harperreed/healthdash/internal/models"
)

var (
	dashRange       string
	dashGranularity string
	alertsDismissed []string
)

var dashboardCmd = &cobra.Command{
	Use:     "dashboard",
	Aliases: []string{"dash", "d"},
	Short:   "Show trends, alerts and health score",
	Long: `Show the dashboard for a time range.

RANGES:

  7d, 30d (default), 90d, 12m. 12m uses monthly buckets unless
  --granularity day is given.

EXAMPLES:

  healthdash dashboard
  healthdash dashboard --range 90d
  healthdash dashboard -r 12m -g day`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		view, err := buildView(cmd)
		if err != nil {
			return err
		}
		snap := view.Snapshot

		printScore(snap.Score)
		fmt.Println()
		if view.Status == dashboard.StatusEmpty {
			color.New(color.Faint).Println("No readings yet. Log some with 'healthdash log' or 'healthdash daily set'.")
			fmt.Println()
		}
		printTrends(snap)
		fmt.Println()
		printAlerts(snap.Alerts)
		return nil
	},
}

var trendsCmd = &cobra.Command{
	Use:   "trends",
	Short: "Show metric trends for a time range",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		view, err := buildView(cmd)
		if err != nil {
			return err
		}
		printTrends(view.Snapshot)
		return nil
	},
}

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Show health alerts",
	Long: `Show the current health alerts, most urgent first. Alerts are derived from
the latest readings each time; --dismiss hides alerts by ID for this run only.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		view, err := buildView(cmd)
		if err != nil {
			return err
		}
		alerts := view.Snapshot.Alerts
		for _, id := range alertsDismissed {
			alerts = aggregate.Dismiss(alerts, strings.TrimSpace(id))
		}
		printAlerts(alerts)
		return nil
	},
}

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Show the overall health score",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		view, err := buildView(cmd)
		if err != nil {
			return err
		}
		printScore(view.Snapshot.Score)
		return nil
	},
}

func buildView(cmd *cobra.Command) (dashboard.View, error) {
	sess, err := requireSession()
	if err != nil {
		return dashboard.View{}, err
	}
	r, err := aggregate.ParseRange(dashRange)
	if err != nil {
		return dashboard.View{}, err
	}
	g := aggregate.Granularity(strings.ToLower(dashGranularity))
	if g != "" && g != aggregate.Day && g != aggregate.Month {
		return dashboard.View{}, fmt.Errorf("unknown granularity %q (use day or month)", dashGranularity)
	}

	view := newDashboard().Build(cmd.Context(), sess.UserID, dashboard.Request{
		Range:       r,
		Granularity: g,
		Now:         now(),
	})
	if view.Status == dashboard.StatusUnavailable {
		return view, fmt.Errorf("dashboard unavailable: %s", view.Error)
	}
	if view.Rejected > 0 {
		color.Yellow("! %d stored readings could not be read and were skipped", view.Rejected)
	}
	return view, nil
}

func printScore(score int) {
	c := color.New(color.FgGreen, color.Bold)
	switch {
	case score < 50:
		c = color.New(color.FgRed, color.Bold)
	case score < 70:
		c = color.New(color.FgYellow, color.Bold)
	}
	fmt.Printf("Health score %s\n", c.Sprintf("%d/100", score))
}

func printTrends(snap aggregate.Snapshot) {
	faint := color.New(color.Faint)
	fmt.Printf("%s %s\n", color.New(color.Bold).Sprint("Trends"),
		faint.Sprintf("(%s, by %s)", snap.Range, snap.Granularity))

	for _, m := range models.ChartMetrics {
		tr, ok := snap.Trends[m]
		if !ok {
			continue
		}
		latest := "-"
		if v, ok := snap.Latest[m]; ok {
			latest = fmt.Sprintf("%s %s", formatNumber(v), m.Unit())
		}
		fmt.Printf("  %s %s %s %s\n",
			padRight(m.Label(), 14),
			sparkline(snap.Buckets, m),
			trendArrow(tr, snap.Favorable[m]),
			faint.Sprint(latest))
	}
}

func trendArrow(tr aggregate.TrendResult, favorable bool) string {
	label := fmt.Sprintf("%s %+.1f%%", tr.Direction, tr.Magnitude)
	switch {
	case tr.Points == 0:
		return color.New(color.Faint).Sprint(padRight("no data", 14))
	case tr.Direction == aggregate.TrendStable:
		return padRight(label, 14)
	case favorable:
		return color.GreenString(padRight(label, 14))
	default:
		return color.RedString(padRight(label, 14))
	}
}

var sparks = []rune("▁▂▃▄▅▆▇█")

// sparkline draws one rune per bucket, a space where the bucket is empty.
func sparkline(buckets []aggregate.Bucket, metric models.MetricName) string {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, b := range buckets {
		if v, ok := b.Number(metric); ok {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
	}

	var sb strings.Builder
	for _, b := range buckets {
		v, ok := b.Number(metric)
		if !ok {
			sb.WriteRune(' ')
			continue
		}
		i := len(sparks) / 2
		if hi > lo {
			i = int((v - lo) / (hi - lo) * float64(len(sparks)-1))
		}
		sb.WriteRune(sparks[i])
	}
	return sb.String()
}

func printAlerts(alerts []aggregate.Alert) {
	fmt.Println(color.New(color.Bold).Sprint("Alerts"))
	if len(alerts) == 0 {
		color.New(color.Faint).Println("  No alerts.")
		return
	}
	faint := color.New(color.Faint)
	for _, a := range alerts {
		fmt.Printf("  %s %s\n", severityBadge(a.Severity), color.New(color.Bold).Sprint(a.Title))
		fmt.Printf("    %s\n", a.Message)
		if a.RecommendedAction != "" {
			fmt.Printf("    %s %s\n", faint.Sprint("→"), a.RecommendedAction)
		}
		fmt.Printf("    %s\n", faint.Sprint(a.ID))
	}
}

func severityBadge(s aggregate.Severity) string {
	label := padRight(strings.ToUpper(string(s)), 8)
	switch s {
	case aggregate.SeverityCritical:
		return color.RedString(label)
	case aggregate.SeverityWarning:
		return color.YellowString(label)
	case aggregate.SeverityPositive:
		return color.GreenString(label)
	default:
		return color.CyanString(label)
	}
}

func formatNumber(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.1f", v)
}

func init() {
	for _, c := range []*cobra.Command{dashboardCmd, trendsCmd, alertsCmd, scoreCmd} {
		c.Flags().StringVarP(&dashRange, "range", "r", "30d", "time range: 7d, 30d, 90d or 12m")
		c.Flags().StringVarP(&dashGranularity, "granularity", "g", "", "bucket size: day or month")
	}
	alertsCmd.Flags().StringSliceVar(&alertsDismissed, "dismiss", nil, "alert IDs to hide")
	rootCmd.AddCommand(dashboardCmd, trendsCmd, alertsCmd, scoreCmd)
}
