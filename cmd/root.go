package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxtriage/internal/config"
	"github.com/teemow/inboxtriage/internal/logging"
)

// version will be set by main
var version = "dev"

// SetVersion sets the version reported by the CLI.
func SetVersion(v string) {
	version = v
}

// rootOptions are the flags shared by every command.
type rootOptions struct {
	configPath string
	debug      bool
	logFormat  string
}

func (o *rootOptions) loadConfig() (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func (o *rootOptions) logger(cmd *cobra.Command) *slog.Logger {
	return logging.NewLogger(cmd.ErrOrStderr(), o.debug, o.logFormat)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "inboxtriage",
		Short: "Groups recent email into named clusters and archives them in bulk",
		Long: `inboxtriage fetches the most recent messages of a mailbox, groups them into
a small number of clusters by sender, bulk-mail markers and content, names
each cluster, and lets you archive a whole cluster in one step.

It can run as:
  - A standalone CLI tool (default)
  - An MCP (Model Context Protocol) server for AI assistants`,
		Version:      version,
		SilenceUsage: true,
	}
	cmd.SetVersionTemplate(`{{printf "inboxtriage version %s\n" .Version}}`)

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", fmt.Sprintf("Config file (default: %s)", config.DefaultPath()))
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "Log format: text or json")

	cmd.AddCommand(newTriageCmd(opts))
	cmd.AddCommand(newAuthCmd(opts))
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newGenerateDocsCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// Execute is the main entry point for the CLI application
func Execute() {
	// If no subcommand is provided, run the triage command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "triage")
	}

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
