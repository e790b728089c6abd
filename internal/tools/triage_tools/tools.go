package triage_tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxtriage/internal/archive"
	"github.com/teemow/inboxtriage/internal/server"
	"github.com/teemow/inboxtriage/internal/tools/batch"
	"github.com/teemow/inboxtriage/internal/tools/common"
	"github.com/teemow/inboxtriage/internal/triage"
)

const (
	sampleSubjects = 3
	topSenders     = 3
	// MaxArchiveMessages bounds one triage_archive_messages call.
	MaxArchiveMessages = 500
)

// RegisterTriageTools registers the triage tools with the MCP server.
func RegisterTriageTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	clusterTool := mcp.NewTool("triage_cluster_inbox",
		mcp.WithDescription("Fetch the most recent inbox messages and group them into at most K named clusters. Returns a run id for the other triage tools."),
		mcp.WithNumber("clusters",
			mcp.Description(fmt.Sprintf("Maximum number of clusters K (default: %d)", triage.DefaultClusters)),
		),
		mcp.WithNumber("count",
			mcp.Description(fmt.Sprintf("Number of recent messages to fetch (default: %d)", triage.DefaultCount)),
		),
	)
	s.AddTool(clusterTool, common.InstrumentedToolHandler("triage_cluster_inbox", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleClusterInbox(ctx, request, sc)
	}))

	showTool := mcp.NewTool("triage_show_cluster",
		mcp.WithDescription("List the messages of one cluster from a previous triage run"),
		mcp.WithNumber("clusterId",
			mcp.Required(),
			mcp.Description("Cluster id as returned by triage_cluster_inbox"),
		),
		mcp.WithString("runId",
			mcp.Description("Run id (default: the most recent run)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of messages to list (default: all)"),
		),
	)
	s.AddTool(showTool, common.InstrumentedToolHandler("triage_show_cluster", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleShowCluster(ctx, request, sc)
	}))

	if readOnly {
		return nil
	}

	archiveClusterTool := mcp.NewTool("triage_archive_cluster",
		mcp.WithDescription("Archive every message of a cluster. Returns a per-message report; failed and interrupted messages are listed so the call can be retried."),
		mcp.WithNumber("clusterId",
			mcp.Required(),
			mcp.Description("Cluster id as returned by triage_cluster_inbox"),
		),
		mcp.WithString("runId",
			mcp.Description("Run id (default: the most recent run)"),
		),
	)
	s.AddTool(archiveClusterTool, common.InstrumentedToolHandler("triage_archive_cluster", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleArchiveCluster(ctx, request, sc)
	}))

	archiveMessagesTool := mcp.NewTool("triage_archive_messages",
		mcp.WithDescription("Archive one or more messages by id, for example the failed ids of an earlier archive report"),
		mcp.WithString("messageIds",
			mcp.Required(),
			mcp.Description("Message id (string) or array of message ids"),
		),
	)
	s.AddTool(archiveMessagesTool, common.InstrumentedToolHandler("triage_archive_messages", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleArchiveMessages(ctx, request, sc)
	}))

	return nil
}

// ClusterSummary is the JSON shape of one cluster.
type ClusterSummary struct {
	ID             int      `json:"id"`
	Label          string   `json:"label"`
	Description    string   `json:"description"`
	Size           int      `json:"size"`
	Keywords       []string `json:"keywords,omitempty"`
	DominantDomain string   `json:"dominantDomain,omitempty"`
	TopSenders     []string `json:"topSenders"`
	SampleSubjects []string `json:"sampleSubjects"`
}

// RunSummary is the JSON shape of a triage run.
type RunSummary struct {
	RunID      string           `json:"runId"`
	Source     string           `json:"source"`
	Fetched    int              `json:"fetched"`
	Converged  bool             `json:"converged"`
	Iterations int              `json:"iterations"`
	Warnings   []string         `json:"warnings,omitempty"`
	Clusters   []ClusterSummary `json:"clusters"`
}

type messageSummary struct {
	ID       string    `json:"id"`
	From     string    `json:"from"`
	Subject  string    `json:"subject"`
	Received time.Time `json:"received"`
}

// Summarize converts a run into its JSON shape. Each cluster lists its top
// senders and the subjects of its most recent messages.
func Summarize(res *triage.Result) RunSummary {
	out := RunSummary{
		RunID:      res.RunID,
		Source:     res.Source,
		Fetched:    res.Fetched,
		Converged:  res.Converged,
		Iterations: res.Iterations,
		Warnings:   res.Warnings,
		Clusters:   make([]ClusterSummary, 0, len(res.Clusters)),
	}
	for i := range res.Clusters {
		c := &res.Clusters[i]
		cs := ClusterSummary{
			ID:             c.ID,
			Label:          c.Label,
			Description:    c.Description,
			Size:           c.Size(),
			Keywords:       c.Keywords,
			DominantDomain: c.DominantDomain,
			TopSenders:     c.TopSenders(topSenders),
		}
		for j := 0; j < len(c.Messages) && j < sampleSubjects; j++ {
			cs.SampleSubjects = append(cs.SampleSubjects, c.Messages[j].Subject)
		}
		out.Clusters = append(out.Clusters, cs)
	}
	return out
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}

func handleClusterInbox(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	clusters := request.GetInt("clusters", 0)
	count := request.GetInt("count", 0)
	if clusters < 0 || count < 0 {
		return mcp.NewToolResultError("clusters and count must be positive"), nil
	}

	res, err := sc.Triage(ctx, clusters, count)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to triage inbox: %v", err)), nil
	}
	if res.Empty() {
		return mcp.NewToolResultText(fmt.Sprintf("Nothing to triage: no messages in the inbox window (run %s).", res.RunID)), nil
	}
	return jsonResult(Summarize(res))
}

func lookupCluster(request mcp.CallToolRequest, sc *server.ServerContext) (*triage.Result, *triage.Cluster, *mcp.CallToolResult) {
	id := request.GetInt("clusterId", 0)
	if id <= 0 {
		return nil, nil, mcp.NewToolResultError("clusterId is required and must be positive")
	}
	res, err := sc.Run(request.GetString("runId", ""))
	if err != nil {
		return nil, nil, mcp.NewToolResultError(err.Error())
	}
	c, err := res.Cluster(id)
	if err != nil {
		return nil, nil, mcp.NewToolResultError(err.Error())
	}
	return res, c, nil
}

func handleShowCluster(_ context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	res, c, errResult := lookupCluster(request, sc)
	if errResult != nil {
		return errResult, nil
	}

	msgs := c.Messages
	if limit := request.GetInt("limit", 0); limit > 0 && limit < len(msgs) {
		msgs = msgs[:limit]
	}
	out := struct {
		RunID    string           `json:"runId"`
		Cluster  ClusterSummary   `json:"cluster"`
		Messages []messageSummary `json:"messages"`
	}{
		RunID:    res.RunID,
		Cluster:  Summarize(&triage.Result{Clusters: []triage.Cluster{*c}}).Clusters[0],
		Messages: make([]messageSummary, 0, len(msgs)),
	}
	for _, m := range msgs {
		out.Messages = append(out.Messages, messageSummary{ID: m.ID, From: m.From, Subject: m.Subject, Received: m.Received})
	}
	return jsonResult(out)
}

func reportResult(rep *archive.Report) (*mcp.CallToolResult, error) {
	text := rep.Summary() + "\n\n" + rep.JSON()
	if rep.Complete() {
		return mcp.NewToolResultText(text), nil
	}
	return mcp.NewToolResultError(text), nil
}

func handleArchiveCluster(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	res, c, errResult := lookupCluster(request, sc)
	if errResult != nil {
		return errResult, nil
	}
	req, err := res.ArchiveRequest(c.ID, sc.Account())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	rep, err := sc.Coordinator().Archive(ctx, req)
	if err != nil && rep == nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to archive cluster %d: %v", c.ID, err)), nil
	}
	return reportResult(rep)
}

func handleArchiveMessages(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	ids, err := batch.ParseStringOrArray(request.GetArguments()["messageIds"], "messageIds")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, dropped := batch.Limit(ids, MaxArchiveMessages); dropped {
		return mcp.NewToolResultError(fmt.Sprintf("at most %d messages can be archived per call", MaxArchiveMessages)), nil
	}

	rep, err := sc.Coordinator().Archive(ctx, archive.Request{
		IDs:     ids,
		Source:  sc.Source(),
		Account: sc.Account(),
	})
	if err != nil && rep == nil {
		if errors.Is(err, archive.ErrNoArchiver) {
			return mcp.NewToolResultError("this source cannot archive messages"), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("Failed to archive messages: %v", err)), nil
	}
	return reportResult(rep)
}
