// Package builder assembles a project tree from per-folder remote listings.
//
// The remote exposes no subtree call, so a build is one contents fetch per
// folder: the project record, then the root folder record, then a recursive
// fill of every folder reachable within the depth limit.
package builder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/fruitsalade/hubmirror/internal/logging"
	"github.com/fruitsalade/hubmirror/internal/metrics"
	"github.com/fruitsalade/hubmirror/pkg/models"
	"github.com/fruitsalade/hubmirror/pkg/protocol"
	"github.com/fruitsalade/hubmirror/pkg/remoteid"
	"github.com/fruitsalade/hubmirror/pkg/tree"
)

// Unlimited builds the whole tree.
const Unlimited = tree.Unlimited

var (
	// ErrInvalidIDs is returned before any remote call for an invalid pair.
	ErrInvalidIDs = errors.New("invalid account/project ids")
	// ErrProjectFetch means the project record could not be used.
	ErrProjectFetch = errors.New("fetch project")
	// ErrRootFetch means the root folder or its contents could not be fetched.
	ErrRootFetch = errors.New("fetch root folder")
)

// Provider is the remote data source. A call either returns data (possibly
// empty) or an error.
type Provider interface {
	GetProject(ctx context.Context, ids remoteid.Pair) (*protocol.Object, error)
	GetFolderByProject(ctx context.Context, projectID remoteid.ID, folderID string) (*protocol.Object, error)
	GetFolderContents(ctx context.Context, projectID remoteid.ID, folderID string) ([]protocol.Object, error)
}

// BranchFailure records a folder whose contents could not be fetched. The
// folder stays in the tree without children.
type BranchFailure struct {
	FolderID string
	Path     []string
	Err      error
}

func (f BranchFailure) Error() string {
	return fmt.Sprintf("%s (%s): %v", strings.Join(f.Path, "/"), f.FolderID, f.Err)
}

func (f BranchFailure) Unwrap() error {
	return f.Err
}

// Builder fills a tree.Project. Configure it with the fluent setters, then
// call Build. A Builder must not run two builds at once.
type Builder struct {
	provider       Provider
	includeSpecial bool
	noFiles        bool
	concurrency    int

	project  *tree.Project
	built    bool
	failures []BranchFailure
}

// New returns a builder that skips special folders, keeps files and fetches
// one folder at a time.
func New(p Provider) *Builder {
	return &Builder{provider: p, concurrency: 1}
}

// IncludeSpecial keeps the system folders found directly under the root.
func (b *Builder) IncludeSpecial(include bool) *Builder {
	b.includeSpecial = include
	return b
}

// NoFiles leaves files out of the tree.
func (b *Builder) NoFiles(noFiles bool) *Builder {
	b.noFiles = noFiles
	return b
}

// Concurrency bounds the number of contents fetches in flight. Values below 1
// are treated as 1.
func (b *Builder) Concurrency(n int) *Builder {
	b.concurrency = max(n, 1)
	return b
}

// Project returns the last successfully built project, or nil.
func (b *Builder) Project() *tree.Project {
	return b.project
}

// Built reports whether the last Build succeeded.
func (b *Builder) Built() bool {
	return b.built
}

// Failures returns the folders of the last build whose contents could not be
// fetched.
func (b *Builder) Failures() []BranchFailure {
	return append([]BranchFailure(nil), b.failures...)
}

// run is the state of one build shared by the fill goroutines.
type run struct {
	project *tree.Project
	depth   int
	sem     *semaphore.Weighted
	log     *zap.Logger

	mu       sync.Mutex
	failures []BranchFailure
}

func (r *run) fail(folder *models.Node, err error) {
	f := BranchFailure{FolderID: folder.ID, Path: folder.ChildPath(), Err: err}
	r.log.Warn("folder contents fetch failed, branch left empty",
		logging.String("folder_id", f.FolderID),
		logging.Strings("path", f.Path),
		logging.Err(err),
	)

	r.mu.Lock()
	r.failures = append(r.failures, f)
	r.mu.Unlock()
}

// Build replaces the project with a fresh tree for ids, filled to depth
// levels below the root (Unlimited, or any negative depth, for all). It returns nil on success;
// descendant fetch errors do not fail a build and are reported by Failures.
func (b *Builder) Build(ctx context.Context, ids remoteid.Pair, depth int) error {
	b.project = nil
	b.built = false
	b.failures = nil

	if !ids.IsValid() {
		return ErrInvalidIDs
	}

	ctx = logging.WithBuildID(ctx, uuid.NewString())
	ctx = logging.WithProject(ctx, ids.Account.String(), ids.Project.String())
	log := logging.WithContext(ctx)
	start := time.Now()

	project, err := b.rootFolder(ctx, ids)
	if err != nil {
		metrics.RecordBuild(time.Since(start), 0, false)
		log.Error("build failed", logging.Err(err))
		return err
	}

	r := &run{
		project: project,
		depth:   depth,
		sem:     semaphore.NewWeighted(int64(b.concurrency)),
		log:     log,
	}
	if err := b.fill(ctx, r, project.Root); err != nil {
		metrics.RecordBuild(time.Since(start), 0, false)
		log.Error("build failed", logging.Err(err))
		return err
	}

	nodes := tree.CountNodes(project.Root)
	metrics.RecordBuild(time.Since(start), nodes, true)
	log.Info("project tree built",
		logging.String("project", project.Name),
		logging.Int("nodes", nodes),
		logging.Int("failed_folders", len(r.failures)),
		logging.Duration("duration", time.Since(start)),
	)

	b.project = project
	b.failures = r.failures
	b.built = true
	return nil
}

// rootFolder fetches the project record and its root folder.
func (b *Builder) rootFolder(ctx context.Context, ids remoteid.Pair) (*tree.Project, error) {
	obj, err := b.provider.GetProject(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrProjectFetch, ids.Project, err)
	}
	if obj == nil || obj.RootFolderID() == "" {
		return nil, fmt.Errorf("%w %s: no root folder", ErrProjectFetch, ids.Project)
	}

	project := tree.NewProject(ids)
	project.Name = obj.Name()
	project.Platform = obj.Platform()

	root, err := b.provider.GetFolderByProject(ctx, ids.Project, obj.RootFolderID())
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrRootFetch, obj.RootFolderID(), err)
	}
	if root == nil || root.Kind() != models.KindFolder {
		return nil, fmt.Errorf("%w %s: not a folder", ErrRootFetch, obj.RootFolderID())
	}

	project.Root = root.Node()
	return project, nil
}

// fill fetches the children of parent, attaches them in provider order and
// then descends into the child folders. Only a failure on the root or a
// context error is returned.
func (b *Builder) fill(ctx context.Context, r *run, parent *models.Node) error {
	if parent == nil || strings.TrimSpace(parent.ID) == "" || !parent.IsFolder() {
		return nil
	}
	if r.depth >= 0 && parent.Depth() >= r.depth {
		return nil
	}

	if err := r.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	records, err := b.provider.GetFolderContents(ctx, r.project.ID, parent.ID)
	r.sem.Release(1)

	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		metrics.RecordFolderFetch(0, false)
		if parent == r.project.Root {
			return fmt.Errorf("%w contents: %w", ErrRootFetch, err)
		}
		r.fail(parent, err)
		return nil
	}
	metrics.RecordFolderFetch(len(records), true)

	underRoot := models.IsRootFolder(parent)
	var folders []*models.Node
	for i := range records {
		child := records[i].Node()
		if child == nil {
			r.log.Debug("skipping record",
				logging.String("type", records[i].Type),
				logging.String("id", records[i].ID),
			)
			continue
		}
		child.Parent = parent
		child.PathSegments = parent.ChildPath()

		if !b.includeSpecial && underRoot && child.IsFolder() && models.HasSpecialPrefix(child.Name) {
			r.log.Debug("skipping special folder", logging.String("name", child.Name))
			continue
		}
		if b.noFiles && child.IsFile() {
			continue
		}

		parent.Contents = append(parent.Contents, child)
		if child.IsFolder() {
			folders = append(folders, child)
		}
	}

	if b.concurrency == 1 {
		for _, f := range folders {
			if err := b.fill(ctx, r, f); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, f := range folders {
		g.Go(func() error {
			return b.fill(gctx, r, f)
		})
	}
	return g.Wait()
}
