package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxtriage/internal/server"
	"github.com/teemow/inboxtriage/internal/tools/triage_tools"
)

const (
	runPrefix = "triage://runs/"
	latestURI = runPrefix + "latest"
)

// RegisterRunResources registers the triage run resources.
func RegisterRunResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	latest := mcp.NewResource(
		latestURI,
		"Latest Triage Run",
		mcp.WithResourceDescription("Clusters of the most recent triage run"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(latest, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleRun(ctx, request, sc)
	})

	byID := mcp.NewResourceTemplate(
		runPrefix+"{runId}",
		"Triage Run",
		mcp.WithTemplateDescription("Clusters of a stored triage run"),
		mcp.WithTemplateMIMEType("application/json"),
	)
	s.AddResourceTemplate(byID, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleRun(ctx, request, sc)
	})
	return nil
}

// runID extracts the run id from a resource URI; "latest" maps to "".
func runID(uri string) (string, error) {
	id, ok := strings.CutPrefix(uri, runPrefix)
	if !ok || id == "" {
		return "", fmt.Errorf("unsupported resource uri %q", uri)
	}
	if id == "latest" {
		return "", nil
	}
	return id, nil
}

func handleRun(_ context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	uri := request.Params.URI
	id, err := runID(uri)
	if err != nil {
		return nil, err
	}
	res, err := sc.Run(id)
	if err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(triage_tools.Summarize(res), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode run: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
