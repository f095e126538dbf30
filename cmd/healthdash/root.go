// ABOUTME: Root Cobra command for the healthdash CLI.
// ABOUTME: Loads config, logging, storage and the saved session via PersistentPre/PostRunE.
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/harperreed/healthdash/internal/aggregate"
	"github.com/harperreed/healthdash/internal/auth"
	"github.com/harperreed/healthdash/internal/config"
	"github.com/harperreed/healthdash/internal/dashboard"
	"github.com/harperreed/healthdash/internal/logging"
	"github.com/harperreed/healthdash/internal/reports"
	"github.com/harperreed/healthdash/internal/storage"
	"github.com/harperreed/healthdash/internal/tracking"
)

var (
	cfg      *config.Config
	repo     storage.Repository
	authSvc  *auth.Service
	sessions *auth.SessionStore
	session  *auth.Session

	// now is the CLI clock.
	now = time.Now
)

// errNotLoggedIn is returned by commands that need a session.
var errNotLoggedIn = errors.New("not logged in: run 'healthdash login' or 'healthdash register'")

var rootCmd = &cobra.Command{
	Use:     "healthdash",
	Short:   "Personal health dashboard",
	Version: version,
	Long: `Healthdash tracks daily health readings and lab results and turns them into
trends, alerts and an overall health score.

WHAT IT TRACKS:

  Vitals         weight, heartRate, bloodPressureSystolic, bloodPressureDiastolic
  Daily          steps, sleepHours, water, energy, mood, symptoms
  Lab results    cholesterol, glucose, vitaminD, hemoglobin (also read from reports)

QUICK START:

  $ healthdash register you@example.com      # Create an account
  $ healthdash log weight 82.5               # Log a reading
  $ healthdash log bp 120 80                 # Blood pressure (systolic diastolic)
  $ healthdash daily --steps 9000 --sleep 7  # Save today's tracking form
  $ healthdash dashboard                     # Trends, alerts and score
  $ healthdash report upload labs.pdf        # Upload a lab report

SERVERS:

  $ healthdash mcp      # Model Context Protocol server on stdio
  $ healthdash serve    # JSON HTTP API

DATA STORAGE:

  Config lives at ~/.config/healthdash/config.json. Data defaults to a SQLite
  database in ~/.local/share/healthdash; set "backend" to "postgres" or
  "badger" to change it. Any key can be overridden with HEALTHDASH_<KEY>.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if skipSetup(cmd) {
			return nil
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// MCP speaks JSON-RPC on stdout, so logs always go to stderr.
		logging.Setup(cfg.GetLogLevel(), true, os.Stderr)

		if err := cfg.EnsureSessionSecret(); err != nil {
			return fmt.Errorf("failed to prepare session secret: %w", err)
		}

		// A failed RunE skips PersistentPostRunE.
		if repo != nil {
			_ = repo.Close()
		}
		repo, err = cfg.OpenStorage(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to open storage: %w", err)
		}

		authSvc = auth.NewService(repo, cfg.SessionSecret)
		sessions = auth.NewSessionStore(config.GetConfigDir())
		session = loadSession()
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if repo != nil {
			err := repo.Close()
			repo = nil
			return err
		}
		return nil
	},
}

func skipSetup(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "help", "version", "install-skill", "completion":
		return true
	}
	return cmd.Parent() != nil && cmd.Parent().Name() == "completion"
}

// loadSession returns the saved session when its token still verifies.
func loadSession() *auth.Session {
	saved, err := sessions.Load()
	if err != nil || saved == nil {
		return nil
	}
	verified, err := authSvc.Verify(saved.Token)
	if err != nil {
		return nil
	}
	return verified
}

func requireSession() (*auth.Session, error) {
	if !session.Valid(now()) {
		return nil, errNotLoggedIn
	}
	return session, nil
}

func newDashboard() *dashboard.Service {
	return dashboard.NewService(repo, aggregate.NewEngine(aggregate.Options{
		SyntheticFill: cfg.SyntheticFill,
	}))
}

func newTracking() *tracking.Service {
	return tracking.NewService(repo)
}

func newReports(cmd *cobra.Command) (*reports.Service, error) {
	blobs, err := cfg.OpenBlobStore(cmd.Context())
	if err != nil {
		return nil, fmt.Errorf("failed to open report storage: %w", err)
	}
	return reports.NewService(repo, blobs), nil
}

// parseTime accepts the common timestamp spellings, in local time.
func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	formats := []string{
		"2006-01-02 15:04",
		"2006-01-02T15:04",
		"2006-01-02",
	}
	for _, f := range formats {
		if t, err := time.ParseInLocation(f, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time format")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func padRight(s string, length int) string {
	if len(s) >= length {
		return s
	}
	return s + strings.Repeat(" ", length-len(s))
}

func shortID(id fmt.Stringer) string {
	return id.String()[:8]
}
