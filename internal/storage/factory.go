package storage

import (
	"context"
	"fmt"

	"github.com/fruitsalade/hubmirror/internal/storage/local"
	s3backend "github.com/fruitsalade/hubmirror/internal/storage/s3"
)

// Config selects and configures a backend.
type Config struct {
	Backend string // "local" or "s3"
	Local   local.Config
	S3      s3backend.Config
}

// New creates the backend named by cfg.Backend.
func New(ctx context.Context, cfg Config) (Backend, error) {
	switch cfg.Backend {
	case "", "local":
		b, err := local.New(cfg.Local)
		if err != nil {
			return nil, err
		}
		return b, nil
	case "s3":
		b, err := s3backend.New(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown backend type: %s", cfg.Backend)
	}
}
