// ABOUTME: CLI command for starting the MCP server.
// ABOUTME: Runs a stdio MCP server scoped to the signed-in account.
package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/harperreed/healthdash/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server",
	Long: `Start the Model Context Protocol (MCP) server for AI assistant integration.

The server speaks JSON-RPC on stdin/stdout and acts as the account saved by
'healthdash login'.

CLIENT CONFIGURATION:

  {
    "mcpServers": {
      "healthdash": {
        "command": "healthdash",
        "args": ["mcp"]
      }
    }
  }

AVAILABLE TOOLS:

  log_metric         Record a reading
  list_samples       List readings with metric and date filters
  delete_sample      Delete a reading by ID or prefix
  save_daily_log     Save today's tracking form
  get_dashboard      Trends, alerts and score for a range
  get_trends         Trend direction per metric
  get_alerts         Current alerts, most urgent first
  get_health_score   Overall score 0-100
  get_profile        Health profile with age and BMI
  update_profile     Update profile fields
  list_reports       Uploaded lab reports

AVAILABLE RESOURCES:

  healthdash://summary   Score, latest values and top alerts
  healthdash://alerts    Current alerts
  healthdash://today     Today's tracking form`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := requireSession()
		if err != nil {
			return err
		}

		deps := mcp.Deps{
			Repo:      repo,
			UserID:    sess.UserID,
			Dashboard: newDashboard(),
			Tracking:  newTracking(),
			Version:   version,
		}
		if svc, err := newReports(cmd); err != nil {
			log.Warn().Err(err).Msg("report storage unavailable; list_reports reads the database only")
		} else {
			deps.Reports = svc
		}

		server, err := mcp.NewServer(deps)
		if err != nil {
			return err
		}
		log.Info().Str("user_id", sess.UserID.String()).Msg("mcp server starting")
		return server.Serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
