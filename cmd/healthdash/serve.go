// ABOUTME: CLI command for starting the JSON HTTP API.
// ABOUTME: Serves every account with bearer-token sessions until interrupted.
package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/healthdash/internal/httpapi"
	"github.com/harperreed/healthdash/internal/logging"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the JSON HTTP API.

ENDPOINTS:

  POST /api/v1/auth/register, /api/v1/auth/login   Get a bearer token
  GET  /api/v1/dashboard?range=30d                   Trends, alerts and score
  /api/v1/samples, /daily, /goals, /profile, /reports
  GET  /healthz, /metrics                            Liveness and Prometheus metrics

The listen address comes from --addr, then listen_addr in the config file,
then 127.0.0.1:8080.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reports, err := newReports(cmd)
		if err != nil {
			return err
		}

		addr := serveAddr
		if addr == "" {
			addr = cfg.GetListenAddr()
		}

		// Request logs are JSON so they can be shipped as-is.
		logger := logging.Setup(cfg.GetLogLevel(), false, os.Stderr)
		server := httpapi.New(httpapi.Deps{
			Repo:      repo,
			Auth:      authSvc,
			Dashboard: newDashboard(),
			Tracking:  newTracking(),
			Reports:   reports,
			Logger:    logger,
		})

		color.Green("✓ Listening on http://%s", addr)
		return server.Start(cmd.Context(), addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (host:port)")
	rootCmd.AddCommand(serveCmd)
}
