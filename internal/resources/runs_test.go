package resources

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxtriage/internal/archive"
	"github.com/teemow/inboxtriage/internal/demo"
	"github.com/teemow/inboxtriage/internal/server"
	"github.com/teemow/inboxtriage/internal/tools/triage_tools"
	"github.com/teemow/inboxtriage/internal/triage"
)

func read(t *testing.T, sc *server.ServerContext, uri string) (triage_tools.RunSummary, error) {
	t.Helper()
	req := mcp.ReadResourceRequest{}
	req.Params.URI = uri
	contents, err := handleRun(context.Background(), req, sc)
	if err != nil {
		return triage_tools.RunSummary{}, err
	}
	require.Len(t, contents, 1)
	text, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, uri, text.URI)
	assert.Equal(t, "application/json", text.MIMEType)

	var out triage_tools.RunSummary
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out, nil
}

func TestRunResources(t *testing.T) {
	session := demo.NewSession(demo.Config{Seed: 4, Size: 30, Now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)})
	sc, err := server.NewServerContext(context.Background(), session, triage.Options{Clusters: 3, Source: "demo"}, archive.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })

	_, err = read(t, sc, latestURI)
	assert.ErrorIs(t, err, server.ErrNoRuns)

	first, err := sc.Triage(context.Background(), 0, 0)
	require.NoError(t, err)
	second, err := sc.Triage(context.Background(), 2, 0)
	require.NoError(t, err)

	latest, err := read(t, sc, latestURI)
	require.NoError(t, err)
	assert.Equal(t, second.RunID, latest.RunID)
	assert.LessOrEqual(t, len(latest.Clusters), 2)

	byID, err := read(t, sc, runPrefix+first.RunID)
	require.NoError(t, err)
	assert.Equal(t, first.RunID, byID.RunID)
	assert.Equal(t, 30, byID.Fetched)

	_, err = read(t, sc, runPrefix+"missing")
	assert.ErrorIs(t, err, server.ErrUnknownRun)
	_, err = read(t, sc, "user://profile")
	assert.Error(t, err)
}

func TestRegisterRunResources(t *testing.T) {
	sc, err := server.NewServerContext(context.Background(), demo.NewSession(demo.Config{Size: 5}), triage.Options{}, archive.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })

	s := mcpserver.NewMCPServer("test", "1.0.0", mcpserver.WithResourceCapabilities(false, false))
	assert.NoError(t, RegisterRunResources(s, sc))
}
