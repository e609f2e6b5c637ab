package tree

import (
	"sync"
	"time"

	"github.com/fruitsalade/hubmirror/pkg/models"
	"github.com/fruitsalade/hubmirror/pkg/remoteid"
)

// Project is one project mirrored as a tree.
type Project struct {
	ID           remoteid.ID     `json:"id"`
	Name         string          `json:"name"`
	AccountID    remoteid.ID     `json:"account"`
	LastModified time.Time       `json:"lastModified"`
	Platform     models.Platform `json:"platform"`
	CacheUpdated time.Time       `json:"cached"`
	Root         *models.Node    `json:"root"`

	mu sync.Mutex
}

// farFuture keeps a project that was never stamped from looking stale.
var farFuture = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)

// NewProject returns an empty project for ids.
func NewProject(ids remoteid.Pair) *Project {
	return &Project{
		ID:           ids.Project,
		AccountID:    ids.Account,
		LastModified: farFuture,
		CacheUpdated: time.Now().UTC(),
	}
}

// IDs returns the account/project pair.
func (p *Project) IDs() remoteid.Pair {
	return remoteid.Pair{Account: p.AccountID, Project: p.ID}
}

// IsEmpty reports whether there is no root or the root has no contents.
func (p *Project) IsEmpty() bool {
	return p.Root == nil || len(p.Root.Contents) == 0
}

// AppendNodes grafts children under the first folder (in preorder) whose ID
// is parentID and returns how many nodes were added. Writers are serialized;
// readers walking the tree at the same time are not, and must be kept out by
// the caller.
func (p *Project) AppendNodes(parentID string, children []*models.Node) int {
	if parentID == "" || len(children) == 0 {
		return 0
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	added := 0
	for n := range Preorder(p.Root) {
		if !n.IsFolder() || n.ID != parentID {
			continue
		}
		for _, child := range children {
			if child == nil {
				continue
			}
			child.PathSegments = n.ChildPath()
			child.Parent = n
			n.Contents = append(n.Contents, child)
			added++
		}
		break
	}
	return added
}
