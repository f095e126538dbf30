// ABOUTME: MCP resource implementations for the health dashboard.
// ABOUTME: Provides healthdash://summary, healthdash://alerts and healthdash://today.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	summaryURI = "healthdash://summary"
	alertsURI  = "healthdash://alerts"
	todayURI   = "healthdash://today"
)

func (s *Server) registerResources() {
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         summaryURI,
		Name:        "Health Summary",
		Description: "Health score, latest value per metric, targets and 30-day trends",
		MIMEType:    "application/json",
	}, s.handleSummaryResource)

	s.mcpServer.AddResource(&mcp.Resource{
		URI:         alertsURI,
		Name:        "Health Alerts",
		Description: "Current alerts, most urgent first",
		MIMEType:    "application/json",
	}, s.handleAlertsResource)

	s.mcpServer.AddResource(&mcp.Resource{
		URI:         todayURI,
		Name:        "Today's Log",
		Description: "The daily tracking log for today",
		MIMEType:    "application/json",
	}, s.handleTodayResource)
}

// Resource handlers

func (s *Server) handleSummaryResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	view, err := s.build(ctx, windowInput{})
	if err != nil {
		return nil, err
	}

	trends := make(map[string]TrendOutput)
	for m, tr := range view.Snapshot.Trends {
		if tr.Points > 0 {
			trends[string(m)] = TrendOutput{TrendResult: tr, Favorable: view.Snapshot.Favorable[m]}
		}
	}

	return jsonResource(summaryURI, map[string]any{
		"status":  view.Status,
		"score":   view.Snapshot.Score,
		"latest":  view.Snapshot.Latest,
		"targets": view.Snapshot.Targets,
		"trends":  trends,
		"alerts":  len(view.Snapshot.Alerts),
	})
}

func (s *Server) handleAlertsResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	view, err := s.build(ctx, windowInput{})
	if err != nil {
		return nil, err
	}
	return jsonResource(alertsURI, map[string]any{
		"alerts": view.Snapshot.Alerts,
	})
}

func (s *Server) handleTodayResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	now := s.now()
	l, err := s.tracking.Load(ctx, s.userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to load today's log: %w", err)
	}
	return jsonResource(todayURI, map[string]any{
		"date":   now.Format(time.DateOnly),
		"log":    l,
		"logged": !l.IsEmpty(),
	})
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
