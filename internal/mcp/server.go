// ABOUTME: MCP server setup for the health dashboard.
// ABOUTME: Binds tools and resources to one signed-in user's data.
package mcp

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/healthdash/internal/dashboard"
	"github.com/harperreed/healthdash/internal/reports"
	"github.com/harperreed/healthdash/internal/storage"
	"github.com/harperreed/healthdash/internal/tracking"
)

// Deps are the services the MCP tools call into.
type Deps struct {
	Repo      storage.Repository
	UserID    uuid.UUID
	Dashboard *dashboard.Service
	Tracking  *tracking.Service
	// Reports is optional; list_reports falls back to the repository.
	Reports *reports.Service
	Version string
}

// Server wraps the MCP server with storage access.
type Server struct {
	mcpServer *mcp.Server
	repo      storage.Repository
	userID    uuid.UUID
	dash      *dashboard.Service
	tracking  *tracking.Service
	reports   *reports.Service
	now       func() time.Time
}

// NewServer creates a new MCP server scoped to deps.UserID.
func NewServer(deps Deps) (*Server, error) {
	if deps.Repo == nil {
		return nil, errors.New("mcp server needs a repository")
	}
	if deps.UserID == uuid.Nil {
		return nil, errors.New("mcp server needs a signed-in user")
	}
	if deps.Dashboard == nil {
		deps.Dashboard = dashboard.NewService(deps.Repo, nil)
	}
	if deps.Tracking == nil {
		deps.Tracking = tracking.NewService(deps.Repo)
	}
	if deps.Version == "" {
		deps.Version = "dev"
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "healthdash",
			Version: deps.Version,
		},
		nil,
	)

	s := &Server{
		mcpServer: mcpServer,
		repo:      deps.Repo,
		userID:    deps.UserID,
		dash:      deps.Dashboard,
		tracking:  deps.Tracking,
		reports:   deps.Reports,
		now:       time.Now,
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Serve starts the MCP server using stdio transport.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}
