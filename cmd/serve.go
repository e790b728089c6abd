package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/inboxtriage/internal/config"
	"github.com/teemow/inboxtriage/internal/instrumentation"
	"github.com/teemow/inboxtriage/internal/logging"
	"github.com/teemow/inboxtriage/internal/resources"
	"github.com/teemow/inboxtriage/internal/server"
	"github.com/teemow/inboxtriage/internal/tools/triage_tools"
)

const (
	transportStdio          = "stdio"
	transportStreamableHTTP = "streamable-http"
)

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: true)
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

type serveFlags struct {
	transport string
	httpAddr  string
	yolo      bool
	source    string
	account   string
	metrics   MetricsConfig
}

func newServeCmd(root *rootOptions) *cobra.Command {
	f := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server to provide inbox triage tools
for AI assistants.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP transport on /mcp

Safety Mode:
  By default, the server operates in read-only mode: it can cluster the inbox
  and show clusters. Use --yolo to enable the archive tools.

Triage runs are kept in memory for the lifetime of the server process.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("source") {
				cfg.Source.Type = f.source
			}
			if cmd.Flags().Changed("account") {
				cfg.Source.Account = f.account
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			// Load metrics config from environment if not set via flags
			if !cmd.Flags().Changed("metrics-enabled") && os.Getenv("METRICS_ENABLED") == "false" {
				f.metrics.Enabled = false
			}
			if !cmd.Flags().Changed("metrics-addr") {
				if addr := os.Getenv("METRICS_ADDR"); addr != "" {
					f.metrics.Addr = addr
				}
			}

			return runServe(cmd.Context(), cfg, f, root.logger(cmd))
		},
	}

	defaults := config.Default()
	cmd.Flags().StringVar(&f.transport, "transport", transportStdio, "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&f.httpAddr, "http-addr", ":8080", "HTTP server address (for streamable-http transport)")
	cmd.Flags().BoolVar(&f.yolo, "yolo", false, "Enable the archive tools (default is read-only)")
	cmd.Flags().StringVar(&f.source, "source", defaults.Source.Type, "Mail source: gmail, imap, mbox or demo")
	cmd.Flags().StringVar(&f.account, "account", defaults.Source.Account, "Google account name for the gmail source")
	cmd.Flags().BoolVar(&f.metrics.Enabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port (streamable-http only). Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&f.metrics.Addr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")
	return cmd
}

func runServe(ctx context.Context, cfg config.Config, f *serveFlags, slogger *slog.Logger) error {
	if f.transport != transportStdio && f.transport != transportStreamableHTTP {
		return fmt.Errorf("unsupported transport type: %s (supported: %s, %s)", f.transport, transportStdio, transportStreamableHTTP)
	}

	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := logging.NewSlogAdapter(slogger)

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			logger.Warn("error during instrumentation shutdown", logging.Err(err))
		}
	}()

	session, _, err := openSession(shutdownCtx, cfg.Source, logger)
	if err != nil {
		return err
	}

	opts := []server.Option{
		server.WithLogger(logger),
		server.WithAccount(cfg.Source.Account),
	}
	if provider.Enabled() {
		opts = append(opts,
			server.WithMetrics(provider.Metrics()),
			server.WithAuditLogger(instrumentation.NewAuditLogger(slogger, instrConfig.AuditLogging)),
		)
	}
	serverContext, err := server.NewServerContext(shutdownCtx, session, cfg.TriageOptions(), cfg.Archive, opts...)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			logger.Warn("error during server context shutdown", logging.Err(err))
		}
	}()

	mcpSrv := newMCPServer()
	readOnly := !f.yolo
	if readOnly {
		logger.Info("starting server in read-only mode (use --yolo to enable archive tools)")
	} else {
		logger.Info("starting server with archive tools enabled (--yolo flag is set)")
	}
	if err := triage_tools.RegisterTriageTools(mcpSrv, serverContext, readOnly); err != nil {
		return fmt.Errorf("failed to register triage tools: %w", err)
	}
	if err := resources.RegisterRunResources(mcpSrv, serverContext); err != nil {
		return fmt.Errorf("failed to register resources: %w", err)
	}

	if f.transport == transportStdio {
		return runStdioServer(mcpSrv)
	}
	return runStreamableHTTPServer(shutdownCtx, mcpSrv, serverContext, provider, f, logger)
}

func newMCPServer() *mcpserver.MCPServer {
	return mcpserver.NewMCPServer("inboxtriage", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false),
	)
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	if err := mcpserver.ServeStdio(mcpSrv); err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, provider *instrumentation.Provider, f *serveFlags, logger logging.Logger) error {
	if f.metrics.Enabled && provider.Enabled() {
		metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    f.metrics.Addr,
			InstrumentationProvider: provider,
			Logger:                  logger,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
		go func() {
			if err := metricsServer.Start(); err != nil {
				logger.Error("metrics server stopped", logging.Err(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Warn("error during metrics server shutdown", logging.Err(err))
			}
		}()
	}

	mux := http.NewServeMux()
	mux.Handle("/mcp", mcpserver.NewStreamableHTTPServer(mcpSrv))
	server.NewHealthChecker(sc).RegisterHealthEndpoints(mux)

	httpServer := &http.Server{
		Addr:              f.httpAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("streamable HTTP server starting", "addr", f.httpAddr, "endpoint", "/mcp", "health", "/healthz, /readyz")

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
	}

	logger.Info("HTTP server gracefully stopped")
	return nil
}
