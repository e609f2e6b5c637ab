package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fruitsalade/hubmirror/internal/builder"
	"github.com/fruitsalade/hubmirror/internal/logging"
	"github.com/fruitsalade/hubmirror/internal/metrics"
	"github.com/fruitsalade/hubmirror/pkg/tree"
)

var buildOpts struct {
	ids            projectFlags
	depth          int
	noFiles        bool
	includeSpecial bool
	concurrency    int
	save           bool
	catalog        bool
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Fetch a project's folder tree from the remote",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ids, err := buildOpts.ids.ids()
		if err != nil {
			return err
		}

		if cfg.MetricsAddr != "" {
			stop := serveMetrics(cfg.MetricsAddr)
			defer stop()
		}

		c, err := newClient(ctx)
		if err != nil {
			return err
		}

		includeSpecial := cfg.IncludeSpecial
		if cmd.Flags().Changed("include-special") {
			includeSpecial = buildOpts.includeSpecial
		}
		concurrency := cfg.FetchConcurrency
		if cmd.Flags().Changed("concurrency") {
			concurrency = buildOpts.concurrency
		}

		b := builder.New(c).
			IncludeSpecial(includeSpecial).
			NoFiles(buildOpts.noFiles).
			Concurrency(concurrency)

		start := time.Now()
		if err := b.Build(ctx, ids, buildOpts.depth); err != nil {
			return err
		}
		project := b.Project()
		printSummary(cmd.OutOrStdout(), project, b.Failures(), time.Since(start))

		if buildOpts.save {
			store, closeFn, err := openSnapshots(ctx)
			if err != nil {
				return err
			}
			defer closeFn()
			if err := store.Save(ctx, project); err != nil {
				return err
			}
		}

		if buildOpts.catalog {
			store, err := openCatalog(ctx)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.SaveProject(ctx, project); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	f := buildCmd.Flags()
	buildOpts.ids.register(buildCmd)
	f.IntVarP(&buildOpts.depth, "depth", "d", tree.Unlimited, "Levels to fetch below the root folder (-1 for all)")
	f.BoolVar(&buildOpts.noFiles, "no-files", false, "Fetch folders only")
	f.BoolVar(&buildOpts.includeSpecial, "include-special", false, "Keep system folders directly under the root")
	f.IntVarP(&buildOpts.concurrency, "concurrency", "c", 1, "Folder fetches in flight at once")
	f.BoolVar(&buildOpts.save, "save", true, "Save a snapshot of the tree")
	f.BoolVar(&buildOpts.catalog, "catalog", false, "Also write the tree to the catalog database")
	rootCmd.AddCommand(buildCmd)
}

func printSummary(w io.Writer, p *tree.Project, failures []builder.BranchFailure, elapsed time.Duration) {
	folders := len(tree.GetFolders(p.Root, false))
	files := len(tree.GetFiles(p.Root))

	fmt.Fprintf(w, "Project:   %s (%s)\n", p.Name, p.Platform)
	fmt.Fprintf(w, "Folders:   %d\n", folders)
	fmt.Fprintf(w, "Files:     %d\n", files)
	fmt.Fprintf(w, "Duration:  %s\n", elapsed.Round(time.Millisecond))
	if len(failures) == 0 {
		return
	}
	fmt.Fprintf(w, "Incomplete: %d folder(s) could not be read\n", len(failures))
	for _, f := range failures {
		fmt.Fprintf(w, "  %s\n", f.Error())
	}
}

// serveMetrics exposes /metrics until the returned stop func is called.
func serveMetrics(addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Info("metrics server listening", logging.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("metrics server failed", logging.Err(err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			fmt.Fprintln(os.Stderr, "metrics shutdown:", err)
		}
	}
}
