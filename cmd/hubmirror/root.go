package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fruitsalade/hubmirror/internal/catalog"
	"github.com/fruitsalade/hubmirror/internal/config"
	"github.com/fruitsalade/hubmirror/internal/logging"
	"github.com/fruitsalade/hubmirror/internal/snapshot"
	"github.com/fruitsalade/hubmirror/internal/storage"
	"github.com/fruitsalade/hubmirror/internal/storage/local"
	s3backend "github.com/fruitsalade/hubmirror/internal/storage/s3"
	"github.com/fruitsalade/hubmirror/pkg/client"
	"github.com/fruitsalade/hubmirror/pkg/remoteid"
	"github.com/fruitsalade/hubmirror/pkg/retry"
	"github.com/fruitsalade/hubmirror/pkg/tree"
)

var (
	logLevel  string
	logFormat string

	cfg *config.Config
)

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format (console, json)")
}

var rootCmd = &cobra.Command{
	Use:           "hubmirror",
	Short:         "Mirror the folder trees of hub projects",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return err
		}
		if logLevel != "" {
			c.LogLevel = logLevel
		}
		if logFormat != "" {
			c.LogFormat = logFormat
		}
		if err := logging.Init(logging.Config{Level: c.LogLevel, Format: c.LogFormat}); err != nil {
			return fmt.Errorf("init logging: %w", err)
		}
		cfg = c
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logging.Sync()
	},
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// projectFlags are the identifier flags shared by every per-project command.
type projectFlags struct {
	account string
	project string
}

func (f *projectFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.account, "account", "a", "", "Hub (account) ID, with or without the b. prefix")
	cmd.Flags().StringVarP(&f.project, "project", "p", "", "Project ID, with or without the b. prefix")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("project")
}

func (f *projectFlags) ids() (remoteid.Pair, error) {
	if !remoteid.IsValidString(f.account) {
		return remoteid.Pair{}, fmt.Errorf("invalid account id %q", f.account)
	}
	if !remoteid.IsValidString(f.project) {
		return remoteid.Pair{}, fmt.Errorf("invalid project id %q", f.project)
	}
	return remoteid.NewPair(f.account, f.project), nil
}

func newClient(ctx context.Context) (*client.Client, error) {
	if err := cfg.RequireCredentials(); err != nil {
		return nil, err
	}

	src := client.TwoLeggedTokenSource(ctx, client.AuthConfig{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		BaseURL:      cfg.BaseURL,
	})
	if cfg.TokenFile != "" {
		src = client.CachedTokenSource(src, cfg.TokenFile, cfg.BaseURL)
	}

	rc := retry.DefaultConfig()
	rc.MaxAttempts = cfg.RetryAttempts
	return client.New(client.Config{
		BaseURL:     cfg.BaseURL,
		Timeout:     cfg.Timeout,
		RetryConfig: rc,
		TokenSource: src,
		Region:      cfg.Region,
		UserID:      cfg.UserID,
	}), nil
}

func openSnapshots(ctx context.Context) (*snapshot.Store, func(), error) {
	backend, err := storage.New(ctx, storage.Config{
		Backend: cfg.SnapshotBackend,
		Local: local.Config{
			RootPath:   cfg.SnapshotDir,
			CreateDirs: true,
		},
		S3: s3backend.Config{
			Endpoint:  cfg.S3Endpoint,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Region:    cfg.S3Region,
			UseSSL:    cfg.S3UseSSL,
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open snapshot storage: %w", err)
	}
	return snapshot.New(backend), func() { _ = backend.Close() }, nil
}

func openCatalog(ctx context.Context) (*catalog.Store, error) {
	if cfg.CatalogDriver == "" {
		return nil, fmt.Errorf("no catalog configured (set HUBMIRROR_CATALOG_DRIVER and HUBMIRROR_DATABASE_URL)")
	}
	store, err := catalog.Open(cfg.CatalogDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

// loadSnapshot reads the saved tree for the identifier flags.
func loadSnapshot(ctx context.Context, f *projectFlags) (*tree.Project, error) {
	ids, err := f.ids()
	if err != nil {
		return nil, err
	}
	store, closeFn, err := openSnapshots(ctx)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	p, err := store.Load(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w (run build first)", err)
	}
	return p, nil
}
