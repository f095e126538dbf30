// ABOUTME: CLI commands for lab reports: upload, list, download and delete.
// ABOUTME: Recognised lab values from uploads are logged as readings.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var reportOutput string

var reportCmd = &cobra.Command{
	Use:     "report",
	Aliases: []string{"reports"},
	Short:   "Manage lab reports",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return reportListCmd.RunE(cmd, args)
	},
}

var reportUploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a lab report",
	Long: `Upload a lab report (PDF, text or image). Lab values found in the text
(cholesterol, glucose, vitamin D, hemoglobin and the lipid panel) are logged
as readings dated at upload time.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := requireSession()
		if err != nil {
			return err
		}
		svc, err := newReports(cmd)
		if err != nil {
			return err
		}

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open file: %w", err)
		}
		defer f.Close()

		r, err := svc.Upload(cmd.Context(), sess.UserID, filepath.Base(args[0]), f)
		if err != nil {
			return fmt.Errorf("upload failed: %w", err)
		}

		faint := color.New(color.Faint)
		color.Green("✓ Uploaded %s", r.Title)
		fmt.Printf("  %s %s %s\n", faint.Sprint(shortID(r.ID)), r.Type, faint.Sprint(humanSize(r.Size)))

		keys := make([]string, 0, len(r.Biomarkers))
		for k := range r.Biomarkers {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("    %s %s\n", padRight(k, 18), strconv.FormatFloat(r.Biomarkers[k], 'f', -1, 64))
		}
		if r.Insight != "" {
			fmt.Printf("  %s\n", r.Insight)
		}
		return nil
	},
}

var reportListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List uploaded reports",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := requireSession()
		if err != nil {
			return err
		}
		reports, err := repo.ListReports(cmd.Context(), sess.UserID)
		if err != nil {
			return fmt.Errorf("failed to list reports: %w", err)
		}
		if len(reports) == 0 {
			fmt.Println("No reports uploaded.")
			return nil
		}

		faint := color.New(color.Faint)
		for _, r := range reports {
			fmt.Printf("%s %s %s %s %s\n",
				faint.Sprint(shortID(r.ID)),
				faint.Sprint(r.CreatedAt.Local().Format("2006-01-02")),
				padRight(string(r.Type), 8),
				padRight(truncate(r.Title, 32), 32),
				faint.Sprint(humanSize(r.Size)))
		}
		return nil
	},
}

var reportGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Download a report's file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := requireSession()
		if err != nil {
			return err
		}
		svc, err := newReports(cmd)
		if err != nil {
			return err
		}

		r, body, err := svc.Open(cmd.Context(), sess.UserID, args[0])
		if err != nil {
			return err
		}
		defer body.Close()

		dest := reportOutput
		if dest == "" {
			dest = r.Title
		}
		out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", dest, err)
		}
		if _, err := io.Copy(out, body); err != nil {
			out.Close()
			return fmt.Errorf("failed to write %s: %w", dest, err)
		}
		if err := out.Close(); err != nil {
			return err
		}
		color.Green("✓ Saved %s", dest)
		return nil
	},
}

var reportDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a report and its file",
	Long: `Delete a report and its stored file. Readings that were logged from the
report are kept.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := requireSession()
		if err != nil {
			return err
		}
		svc, err := newReports(cmd)
		if err != nil {
			return err
		}

		r, err := repo.GetReport(cmd.Context(), sess.UserID, args[0])
		if err != nil {
			return fmt.Errorf("report %s: %w", args[0], err)
		}
		if err := svc.Delete(cmd.Context(), sess.UserID, r.ID.String()); err != nil {
			return fmt.Errorf("failed to delete report: %w", err)
		}
		color.Yellow("✗ Deleted %s", r.Title)
		return nil
	},
}

func humanSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

func init() {
	reportGetCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "output file (default: the report's file name)")
	reportCmd.AddCommand(reportUploadCmd, reportListCmd, reportGetCmd, reportDeleteCmd)
	rootCmd.AddCommand(reportCmd)
}
