// ABOUTME: CLI commands for the daily tracking form and personal goals.
// ABOUTME: 'daily' shows a day, 'daily set' merges flags into it, 'goal' manages targets.
package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/healthdash/internal/models"
	"github.com/harperreed/healthdash/internal/tracking"
)

var (
	dailyDate string
	dailyForm tracking.DailyLog
)

var dailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Show the daily tracking form",
	Long: `Show what was tracked on a day (today by default).

Examples:
  healthdash daily
  healthdash daily --date 2025-06-14
  healthdash daily set --steps 9000 --sleep 7.5 --mood good`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := requireSession()
		if err != nil {
			return err
		}
		day, err := dailyDay()
		if err != nil {
			return err
		}

		l, err := newTracking().Load(cmd.Context(), sess.UserID, day)
		if err != nil {
			return err
		}
		printDailyLog(day, l)
		return nil
	},
}

var dailySetCmd = &cobra.Command{
	Use:   "set",
	Short: "Save the daily tracking form",
	Long: `Save fields of a day's tracking form. Fields not given keep the value already
saved for that day. Pass --clear to start the day from an empty form.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := requireSession()
		if err != nil {
			return err
		}
		day, err := dailyDay()
		if err != nil {
			return err
		}

		svc := newTracking()
		var l tracking.DailyLog
		if clear, _ := cmd.Flags().GetBool("clear"); !clear {
			if l, err = svc.Load(cmd.Context(), sess.UserID, day); err != nil {
				return err
			}
		}
		mergeDailyFlags(cmd, &l)

		if err := svc.Save(cmd.Context(), sess.UserID, day, l); err != nil {
			return err
		}
		color.Green("✓ Saved %s", day.Format("Mon Jan 2"))
		printDailyLog(day, l)
		return nil
	},
}

var goalCmd = &cobra.Command{
	Use:   "goal",
	Short: "Manage personal targets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return goalListCmd.RunE(cmd, args)
	},
}

var goalSetCmd = &cobra.Command{
	Use:   "set <metric> <value>",
	Short: "Set a target for a metric",
	Long: `Set a target for a numeric metric. The newest target wins.

Examples:
  healthdash goal set steps 12000
  healthdash goal set weight 75`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := requireSession()
		if err != nil {
			return err
		}
		metric, ok := models.ParseMetricName(args[0])
		if !ok {
			return fmt.Errorf("invalid metric: %q", args[0])
		}
		value, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid value: %s", args[1])
		}

		goal, err := newTracking().SetGoal(cmd.Context(), sess.UserID, metric, value, now())
		if err != nil {
			return err
		}
		target := goal.Metric.GoalTarget()
		color.Green("✓ Goal set for %s", target.Label())
		fmt.Printf("  %s %s %s\n", color.New(color.Faint).Sprint(shortID(goal.ID)), goal.Value, target.Unit())
		return nil
	},
}

var goalListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List current targets",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := requireSession()
		if err != nil {
			return err
		}
		targets, err := newTracking().Targets(cmd.Context(), sess.UserID)
		if err != nil {
			return err
		}
		defaults := models.DefaultTargets()
		faint := color.New(color.Faint)
		for _, m := range allMetrics() {
			v, ok := targets[m]
			if !ok {
				continue
			}
			note := ""
			if v == defaults[m] {
				note = faint.Sprint(" (default)")
			}
			fmt.Printf("%s %s %s%s\n", padRight(m.Label(), 16), strconv.FormatFloat(v, 'f', -1, 64), m.Unit(), note)
		}
		return nil
	},
}

// dailyDay resolves --date. Past days are saved at noon so they sit well
// inside the calendar day.
func dailyDay() (time.Time, error) {
	current := now()
	if dailyDate == "" {
		return current, nil
	}
	t, err := parseTime(dailyDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date: %s", dailyDate)
	}
	t = t.In(current.Location())
	if t.Year() == current.Year() && t.YearDay() == current.YearDay() {
		return current, nil
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 12, 0, 0, 0, t.Location()), nil
}

func mergeDailyFlags(cmd *cobra.Command, l *tracking.DailyLog) {
	f := cmd.Flags()
	if f.Changed("steps") {
		l.Steps = dailyForm.Steps
	}
	if f.Changed("heart-rate") {
		l.HeartRate = dailyForm.HeartRate
	}
	if f.Changed("systolic") {
		l.Systolic = dailyForm.Systolic
	}
	if f.Changed("diastolic") {
		l.Diastolic = dailyForm.Diastolic
	}
	if f.Changed("weight") {
		l.WeightKg = dailyForm.WeightKg
	}
	if f.Changed("sleep") {
		l.SleepHours = dailyForm.SleepHours
	}
	if f.Changed("water") {
		l.Water = dailyForm.Water
	}
	if f.Changed("energy") {
		l.Energy = dailyForm.Energy
	}
	if f.Changed("mood") {
		l.Mood = dailyForm.Mood
	}
	if f.Changed("symptoms") {
		l.Symptoms = dailyForm.Symptoms
	}
}

func printDailyLog(day time.Time, l tracking.DailyLog) {
	faint := color.New(color.Faint)
	fmt.Println(color.New(color.Bold).Sprint(day.Format("Monday, January 2 2006")))
	if l.IsEmpty() {
		faint.Println("  Nothing tracked.")
		return
	}

	row := func(label string, v float64, unit string) {
		if v == 0 {
			return
		}
		fmt.Printf("  %s %s %s\n", padRight(label, 14), strconv.FormatFloat(v, 'f', -1, 64), faint.Sprint(unit))
	}
	row("Steps", l.Steps, "steps")
	row("Heart rate", l.HeartRate, "bpm")
	if l.Systolic != 0 || l.Diastolic != 0 {
		fmt.Printf("  %s %.0f/%.0f %s\n", padRight("Blood press.", 14), l.Systolic, l.Diastolic, faint.Sprint("mmHg"))
	}
	row("Weight", l.WeightKg, "kg")
	row("Sleep", l.SleepHours, "hours")
	row("Water", l.Water, "glasses")
	row("Energy", l.Energy, "of 5")
	if l.Mood != "" {
		fmt.Printf("  %s %s\n", padRight("Mood", 14), l.Mood)
	}
	if len(l.Symptoms) > 0 {
		fmt.Printf("  %s %s\n", padRight("Symptoms", 14), strings.Join(l.Symptoms, ", "))
	}
}

func init() {
	dailyCmd.PersistentFlags().StringVar(&dailyDate, "date", "", "day to show or save (YYYY-MM-DD)")

	f := dailySetCmd.Flags()
	f.Float64Var(&dailyForm.Steps, "steps", 0, "step count")
	f.Float64Var(&dailyForm.HeartRate, "heart-rate", 0, "resting heart rate (bpm)")
	f.Float64Var(&dailyForm.Systolic, "systolic", 0, "systolic blood pressure (mmHg)")
	f.Float64Var(&dailyForm.Diastolic, "diastolic", 0, "diastolic blood pressure (mmHg)")
	f.Float64Var(&dailyForm.WeightKg, "weight", 0, "weight (kg)")
	f.Float64Var(&dailyForm.SleepHours, "sleep", 0, "hours slept")
	f.Float64Var(&dailyForm.Water, "water", 0, "glasses of water")
	f.Float64Var(&dailyForm.Energy, "energy", 0, "energy level 1-5")
	f.StringVar(&dailyForm.Mood, "mood", "", "mood (e.g. good, tired)")
	f.StringSliceVar(&dailyForm.Symptoms, "symptoms", nil, "comma separated symptoms")
	f.Bool("clear", false, "start from an empty form instead of the saved day")

	dailyCmd.AddCommand(dailySetCmd)
	goalCmd.AddCommand(goalSetCmd, goalListCmd)
	rootCmd.AddCommand(dailyCmd, goalCmd)
}
