// Package snapshot persists built project trees as JSON objects in a
// storage backend.
package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/fruitsalade/hubmirror/internal/logging"
	"github.com/fruitsalade/hubmirror/internal/storage"
	"github.com/fruitsalade/hubmirror/pkg/remoteid"
	"github.com/fruitsalade/hubmirror/pkg/tree"
)

const (
	keyPrefix = "projects"
	extension = ".json"
	backupExt = ".bak"
)

// ErrNotFound is returned by Load when no snapshot exists for a project.
var ErrNotFound = storage.ErrNotFound

// Store saves and loads project snapshots.
type Store struct {
	backend storage.Backend
	now     func() time.Time
}

// New creates a snapshot store over backend.
func New(backend storage.Backend) *Store {
	return &Store{backend: backend, now: func() time.Time { return time.Now().UTC() }}
}

// Key returns the object key of the snapshot for ids.
func Key(ids remoteid.Pair) string {
	return path.Join(keyPrefix, ids.Account.String(), ids.Project.String()+extension)
}

// Save stamps p.CacheUpdated and writes it. A previous snapshot is kept as a
// backup next to the new one.
func (s *Store) Save(ctx context.Context, p *tree.Project) error {
	if p == nil || p.Root == nil {
		return fmt.Errorf("save snapshot: empty project")
	}
	ids := p.IDs()
	if !ids.IsValid() {
		return fmt.Errorf("save snapshot: invalid project identifiers")
	}
	key := Key(ids)

	exists, err := s.backend.ObjectExists(ctx, key)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	if exists {
		if err := s.backend.CopyObject(ctx, key, key+backupExt); err != nil {
			logging.Warn("snapshot backup failed", logging.String("key", key), logging.Err(err))
		}
	}

	p.CacheUpdated = s.now()
	var buf bytes.Buffer
	if err := tree.Encode(&buf, p); err != nil {
		return err
	}
	if err := s.backend.PutObject(ctx, key, &buf, int64(buf.Len())); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	logging.Info("snapshot saved",
		logging.String("key", key),
		logging.String("backend", s.backend.Type()),
		logging.Int("bytes", buf.Len()),
	)
	return nil
}

// Load reads the snapshot for ids. The returned tree is fully linked.
func (s *Store) Load(ctx context.Context, ids remoteid.Pair) (*tree.Project, error) {
	key := Key(ids)
	rc, _, err := s.backend.GetObject(ctx, key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load snapshot %s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("load snapshot %s: %w", key, err)
	}
	defer rc.Close()

	p, err := tree.Decode(rc)
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", key, err)
	}
	return p, nil
}

// Exists reports whether a snapshot is stored for ids.
func (s *Store) Exists(ctx context.Context, ids remoteid.Pair) (bool, error) {
	return s.backend.ObjectExists(ctx, Key(ids))
}

// Delete removes the snapshot for ids and its backup.
func (s *Store) Delete(ctx context.Context, ids remoteid.Pair) error {
	key := Key(ids)
	if err := s.backend.DeleteObject(ctx, key); err != nil {
		return err
	}
	return s.backend.DeleteObject(ctx, key+backupExt)
}

// List returns the identifiers of every stored snapshot.
func (s *Store) List(ctx context.Context) ([]remoteid.Pair, error) {
	keys, err := s.backend.List(ctx, keyPrefix+"/")
	if err != nil {
		return nil, err
	}

	var out []remoteid.Pair
	for _, k := range keys {
		if !strings.HasSuffix(k, extension) {
			continue
		}
		parts := strings.Split(strings.TrimSuffix(k, extension), "/")
		if len(parts) != 3 {
			continue
		}
		ids := remoteid.NewPair(parts[1], parts[2])
		if ids.IsValid() {
			out = append(out, ids)
		}
	}
	return out, nil
}
