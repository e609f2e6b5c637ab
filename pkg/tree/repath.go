package tree

import (
	"slices"

	"github.com/fruitsalade/hubmirror/pkg/models"
)

// Repath reorganizes an existing tree in level order:
//
//   - a folder whose depth has reached depth loses all of its contents
//     (depth is ignored when negative),
//   - otherwise, with noFiles, file children are dropped,
//   - otherwise children are stably sorted with files before folders.
//
// Every surviving child is linked to its parent and gets its PathSegments
// rebuilt from the parent's.
func Repath(start *models.Node, depth int, noFiles bool) {
	walkLevels(start, func(dir *models.Node) {
		switch {
		case depth >= 0 && ParentDepth(dir) >= depth:
			dir.Contents = []*models.Node{}
		case noFiles:
			dir.Contents = slices.DeleteFunc(slices.Clone(dir.Contents), func(n *models.Node) bool {
				return !n.IsFolder()
			})
		default:
			dir.Contents = slices.Clone(dir.Contents)
			slices.SortStableFunc(dir.Contents, func(a, b *models.Node) int {
				return int(a.Kind) - int(b.Kind)
			})
		}
	})
}

// relink sets Parent and PathSegments of every node below start, keeping
// the order of each folder's contents.
func relink(start *models.Node) {
	walkLevels(start, nil)
}

// walkLevels visits the folders below start in level order. reshape, when
// set, may replace a folder's contents before its children are linked.
func walkLevels(start *models.Node, reshape func(dir *models.Node)) {
	if start == nil {
		return
	}

	toVisit := []*models.Node{start}
	var next []*models.Node
	for len(toVisit) > 0 {
		for _, dir := range toVisit {
			if !dir.IsFolder() || dir.Contents == nil {
				continue
			}
			if reshape != nil {
				reshape(dir)
			}
			for _, child := range dir.Contents {
				child.Parent = dir
				child.PathSegments = dir.ChildPath()
				next = append(next, child)
			}
		}
		toVisit, next = next, toVisit[:0]
	}
}
