// Package catalog keeps built project trees in a SQL database, one row per
// node, so they can be queried without loading a snapshot.
package catalog

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/fruitsalade/hubmirror/internal/logging"
	"github.com/fruitsalade/hubmirror/internal/metrics"
	"github.com/fruitsalade/hubmirror/pkg/models"
	"github.com/fruitsalade/hubmirror/pkg/remoteid"
	"github.com/fruitsalade/hubmirror/pkg/tree"
)

//go:embed migrations/*.up.sql
var migrations embed.FS

// ErrNotFound is returned when a project is not in the catalog.
var ErrNotFound = errors.New("project not in catalog")

// Store is a SQL node catalog backed by PostgreSQL or SQLite.
type Store struct {
	db     *sql.DB
	driver string
}

// Open connects to the catalog. driver is "postgres" or "sqlite".
func Open(driver, dsn string) (*Store, error) {
	switch driver {
	case "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported catalog driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if driver == "sqlite" {
		// one connection keeps :memory: databases alive and serializes writers
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{db: db, driver: driver}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// rebind turns ? placeholders into $n for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Migrate creates the catalog tables.
func (s *Store) Migrate(ctx context.Context) error {
	files, err := fs.Glob(migrations, "migrations/*.up.sql")
	if err != nil {
		return fmt.Errorf("glob migrations: %w", err)
	}
	sort.Strings(files)

	for _, f := range files {
		logging.Debug("running migration", logging.String("file", f))
		content, err := migrations.ReadFile(f)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", f, err)
		}
		for _, stmt := range strings.Split(string(content), ";") {
			if strings.TrimSpace(stmt) == "" {
				continue
			}
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("exec migration %s: %w", f, err)
			}
		}
	}
	return nil
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// SaveProject replaces every row of p in one transaction. Nodes are stored
// in level order so a reload attaches children in the order they were saved.
func (s *Store) SaveProject(ctx context.Context, p *tree.Project) error {
	start := time.Now()
	defer func() {
		metrics.RecordDBQuery("save_project", time.Since(start))
	}()

	if p == nil || p.Root == nil {
		return fmt.Errorf("save project: empty project")
	}
	account, project := p.AccountID.String(), p.ID.String()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM nodes WHERE project_id = ?`), project); err != nil {
		return fmt.Errorf("delete nodes: %w", err)
	}
	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM projects WHERE account_id = ? AND project_id = ?`), account, project); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if _, err := tx.ExecContext(ctx, s.rebind(
		`INSERT INTO projects (account_id, project_id, name, platform, last_modified, cached_at)
		 VALUES (?, ?, ?, ?, ?, ?)`),
		account, project, p.Name, p.Platform.String(), toMillis(p.LastModified), toMillis(p.CacheUpdated),
	); err != nil {
		return fmt.Errorf("insert project: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, s.rebind(
		`INSERT INTO nodes (project_id, seq, parent_seq, id, name, kind, version, depth, path, last_modified, last_modified_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	seqs := make(map[*models.Node]int64)
	var seq int64
	for n := range tree.Levelorder(p.Root) {
		var parent sql.NullInt64
		if n != p.Root {
			parent = sql.NullInt64{Int64: seqs[n.Parent], Valid: true}
		}
		path, err := json.Marshal(n.PathSegments)
		if err != nil {
			return fmt.Errorf("encode path of %s: %w", n.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, project, seq, parent, n.ID, n.Name, n.Kind.String(),
			n.Version, n.Depth(), string(path), toMillis(n.LastModified), n.LastModifiedBy); err != nil {
			return fmt.Errorf("insert node %s: %w", n.ID, err)
		}
		seqs[n] = seq
		seq++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	logging.Debug("catalog saved",
		logging.String("project_id", project),
		logging.Int("nodes", int(seq)),
	)
	return nil
}

// LoadProject rebuilds a project tree from its rows. Parents and paths are
// re-linked; the result matches what SaveProject was given.
func (s *Store) LoadProject(ctx context.Context, ids remoteid.Pair) (*tree.Project, error) {
	start := time.Now()
	defer func() {
		metrics.RecordDBQuery("load_project", time.Since(start))
	}()

	account, project := ids.Account.String(), ids.Project.String()

	p := tree.NewProject(ids)
	var platform string
	var lastModified, cachedAt int64
	err := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT name, platform, last_modified, cached_at FROM projects WHERE account_id = ? AND project_id = ?`),
		account, project,
	).Scan(&p.Name, &platform, &lastModified, &cachedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load project %s: %w", project, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load project %s: %w", project, err)
	}
	p.Platform = models.ParsePlatform(platform)
	p.LastModified = fromMillis(lastModified)
	p.CacheUpdated = fromMillis(cachedAt)

	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT seq, parent_seq, id, name, kind, version, last_modified, last_modified_by
		 FROM nodes WHERE project_id = ? ORDER BY seq`), project)
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	defer rows.Close()

	bySeq := make(map[int64]*models.Node)
	for rows.Next() {
		var (
			seq      int64
			parent   sql.NullInt64
			kind     string
			modified int64
			n        models.Node
		)
		if err := rows.Scan(&seq, &parent, &n.ID, &n.Name, &kind, &n.Version, &modified, &n.LastModifiedBy); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		n.Kind = models.ParseKind(kind)
		n.LastModified = fromMillis(modified)
		node := &n
		bySeq[seq] = node

		if !parent.Valid {
			node.PathSegments = []string{}
			p.Root = node
			continue
		}
		// level order puts every parent before its children
		if dir, ok := bySeq[parent.Int64]; ok {
			node.Parent = dir
			node.PathSegments = dir.ChildPath()
			dir.Contents = append(dir.Contents, node)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return p, nil
}

// SearchResult is one node matched by SearchByName.
type SearchResult struct {
	ID           string
	Name         string
	Kind         models.Kind
	Version      int
	PathSegments []string
}

// SearchByName finds nodes of a project whose name contains query, case
// insensitively, shallowest first.
func (s *Store) SearchByName(ctx context.Context, projectID remoteid.ID, query string, limit int) ([]SearchResult, error) {
	start := time.Now()
	defer func() {
		metrics.RecordDBQuery("search_by_name", time.Since(start))
	}()

	if limit <= 0 {
		limit = 50
	}
	pattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"

	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT id, name, kind, version, path FROM nodes
		 WHERE project_id = ? AND LOWER(name) LIKE ?
		 ORDER BY depth, seq LIMIT ?`),
		projectID.String(), pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search nodes: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var kind, path string
		if err := rows.Scan(&r.ID, &r.Name, &kind, &r.Version, &path); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		r.Kind = models.ParseKind(kind)
		if err := json.Unmarshal([]byte(path), &r.PathSegments); err != nil {
			return nil, fmt.Errorf("decode path of %s: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ProjectCount returns the number of projects in the catalog.
func (s *Store) ProjectCount(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count projects: %w", err)
	}
	return count, nil
}

// DeleteProject removes a project and its nodes.
func (s *Store) DeleteProject(ctx context.Context, ids remoteid.Pair) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM nodes WHERE project_id = ?`), ids.Project.String()); err != nil {
		return fmt.Errorf("delete nodes: %w", err)
	}
	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM projects WHERE account_id = ? AND project_id = ?`),
		ids.Account.String(), ids.Project.String()); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return tx.Commit()
}
