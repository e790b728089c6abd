package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxtriage/internal/archive"
	"github.com/teemow/inboxtriage/internal/config"
	"github.com/teemow/inboxtriage/internal/logging"
	"github.com/teemow/inboxtriage/internal/render"
	"github.com/teemow/inboxtriage/internal/triage"
)

// errIncompleteArchive makes the command exit non-zero after a partial
// archive. The report has already been printed.
var errIncompleteArchive = errors.New("archive incomplete")

type triageFlags struct {
	clusters       int
	count          int
	source         string
	account        string
	seed           uint64
	maxIterations  int
	minClusterSize int
	workers        int
	archiveID      int
	yes            bool
	samples        int
}

// apply copies the flags the user set onto cfg.
func (f *triageFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("clusters") {
		cfg.Clusters = f.clusters
	}
	if changed("count") {
		cfg.Count = f.count
	}
	if changed("source") {
		cfg.Source.Type = f.source
	}
	if changed("account") {
		cfg.Source.Account = f.account
	}
	if changed("seed") {
		cfg.Seed = f.seed
	}
	if changed("max-iterations") {
		cfg.MaxIterations = f.maxIterations
	}
	if changed("min-cluster-size") {
		cfg.MinClusterSize = f.minClusterSize
	}
	if changed("workers") {
		cfg.Archive.Workers = f.workers
	}
}

func newTriageCmd(root *rootOptions) *cobra.Command {
	f := &triageFlags{}

	cmd := &cobra.Command{
		Use:   "triage",
		Short: "Cluster the recent inbox and archive a chosen cluster",
		Long: `Fetch the most recent messages, group them into at most K named clusters
and print them with their sizes and top senders.

On a terminal an interactive picker selects the cluster to archive. Use
--archive ID to pick a cluster without the picker and --yes to skip the
confirmation. Messages that fail to archive are listed individually and the
command exits non-zero.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			f.apply(cmd, &cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return runTriage(ctx, cmd, cfg, f, logging.NewSlogAdapter(root.logger(cmd)))
		},
	}

	defaults := config.Default()
	cmd.Flags().IntVarP(&f.clusters, "clusters", "k", defaults.Clusters, "Maximum number of clusters")
	cmd.Flags().IntVarP(&f.count, "count", "n", defaults.Count, "Number of recent messages to fetch")
	cmd.Flags().StringVar(&f.source, "source", defaults.Source.Type, "Mail source: gmail, imap, mbox or demo")
	cmd.Flags().StringVar(&f.account, "account", defaults.Source.Account, "Google account name for the gmail source")
	cmd.Flags().Uint64Var(&f.seed, "seed", defaults.Seed, "Seed for cluster initialization")
	cmd.Flags().IntVar(&f.maxIterations, "max-iterations", defaults.MaxIterations, "Upper bound on clustering iterations")
	cmd.Flags().IntVar(&f.minClusterSize, "min-cluster-size", defaults.MinClusterSize, "Fold smaller clusters into their nearest neighbour")
	cmd.Flags().IntVar(&f.workers, "workers", defaults.Archive.Workers, "Concurrent archive calls")
	cmd.Flags().IntVar(&f.archiveID, "archive", 0, "Archive this cluster id without the interactive picker")
	cmd.Flags().BoolVarP(&f.yes, "yes", "y", false, "Do not ask for confirmation before archiving")
	cmd.Flags().IntVar(&f.samples, "samples", 3, "Subjects shown per cluster")
	return cmd
}

func runTriage(ctx context.Context, cmd *cobra.Command, cfg config.Config, f *triageFlags, logger logging.Logger) error {
	out := cmd.OutOrStdout()
	in := cmd.InOrStdin()

	session, closeSession, err := openSession(ctx, cfg.Source, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeSession(); err != nil {
			logger.Warn("failed to close session", logging.Err(err))
		}
	}()

	opts := cfg.TriageOptions()
	opts.Logger = logger
	res, err := triage.Run(ctx, session, opts)
	if err != nil {
		return fmt.Errorf("triage failed: %w", err)
	}
	if res.Empty() {
		fmt.Fprintln(out, "Nothing to triage: the inbox window is empty.")
		return nil
	}

	if err := render.Clusters(out, res); err != nil {
		return err
	}
	if f.samples > 0 {
		for i := range res.Clusters {
			if err := render.Samples(out, &res.Clusters[i], f.samples); err != nil {
				return err
			}
		}
	}

	id := f.archiveID
	if id == 0 {
		if !interactive(in, out) {
			return nil
		}
		if id, err = render.Pick(ctx, res, in, out); err != nil {
			return err
		}
		if id == 0 {
			fmt.Fprintln(out, "No cluster archived.")
			return nil
		}
	}

	c, err := res.Cluster(id)
	if err != nil {
		return err
	}
	if !f.yes {
		ok, err := render.Confirm(in, out, fmt.Sprintf("\nArchive %d messages in %q?", c.Size(), c.Label))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(out, "No messages archived.")
			return nil
		}
	}

	req, err := res.ArchiveRequest(id, cfg.Source.Account)
	if err != nil {
		return err
	}
	coord := archive.NewCoordinator(session, cfg.Archive, archive.WithLogger(logger))
	rep, err := coord.Archive(ctx, req)
	if err != nil {
		return err
	}
	if err := render.Report(out, rep); err != nil {
		return err
	}
	if !rep.Complete() {
		return fmt.Errorf("%w: %s", errIncompleteArchive, rep.Summary())
	}
	return nil
}

// interactive reports whether both ends are terminals, which the picker
// needs.
func interactive(in io.Reader, out io.Writer) bool {
	fin, ok := in.(*os.File)
	if !ok || !render.IsTerminal(fin) {
		return false
	}
	fout, ok := out.(*os.File)
	return ok && render.IsTerminal(fout)
}
