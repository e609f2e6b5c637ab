// Package tree provides walks, searches and repair passes over project trees.
//
// Every walk re-links the Parent of each child it visits, so any walk doubles
// as a repair pass for a tree decoded from a snapshot.
package tree

import (
	"iter"
	"strings"

	"github.com/fruitsalade/hubmirror/pkg/models"
)

// Unlimited disables a depth limit. Any negative depth does the same.
const Unlimited = -1

// DefaultSeparator splits paths passed to FindByPathDefault.
const DefaultSeparator = "/"

// Preorder walks root depth-first, visiting a node before its children and
// children in their stored order.
func Preorder(root *models.Node) iter.Seq[*models.Node] {
	return func(yield func(*models.Node) bool) {
		if root == nil {
			return
		}
		stack := []*models.Node{root}
		for len(stack) > 0 {
			current := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if current.IsFolder() {
				// push in reverse so the first child pops first
				for i := len(current.Contents) - 1; i >= 0; i-- {
					child := current.Contents[i]
					child.Parent = current
					stack = append(stack, child)
				}
			}

			if !yield(current) {
				return
			}
		}
	}
}

// Levelorder walks root breadth-first: every node at depth k is visited
// before any node at depth k+1.
func Levelorder(root *models.Node) iter.Seq[*models.Node] {
	return func(yield func(*models.Node) bool) {
		if root == nil {
			return
		}
		toVisit := []*models.Node{root}
		var next []*models.Node
		for len(toVisit) > 0 {
			for _, current := range toVisit {
				if current.IsFolder() {
					for _, child := range current.Contents {
						child.Parent = current
						next = append(next, child)
					}
				}
				if !yield(current) {
					return
				}
			}
			toVisit, next = next, toVisit[:0]
		}
	}
}

// ToRoot yields the ancestors of n, nearest first.
func ToRoot(n *models.Node) iter.Seq[*models.Node] {
	return func(yield func(*models.Node) bool) {
		if n == nil {
			return
		}
		for current := n.Parent; current != nil; current = current.Parent {
			if !yield(current) {
				return
			}
		}
	}
}

// ParentDepth counts the Parent links from n up to the root. On a linked
// tree it equals n.Depth().
func ParentDepth(n *models.Node) int {
	depth := 0
	for range ToRoot(n) {
		depth++
	}
	return depth
}

// ToList flattens root in level order. With foldersOnly, files are left out.
func ToList(root *models.Node, foldersOnly bool) []*models.Node {
	var out []*models.Node
	for n := range Levelorder(root) {
		if foldersOnly && !n.IsFolder() {
			continue
		}
		out = append(out, n)
	}
	return out
}

// GetFiles returns every file under root in preorder.
func GetFiles(root *models.Node) []*models.Node {
	var out []*models.Node
	for n := range Preorder(root) {
		if n.IsFile() {
			out = append(out, n)
		}
	}
	return out
}

// GetFolders returns every folder under root (root included) in preorder.
// With emptyOnly, only folders without contents are returned.
func GetFolders(root *models.Node, emptyOnly bool) []*models.Node {
	var out []*models.Node
	for n := range Preorder(root) {
		if !n.IsFolder() {
			continue
		}
		if emptyOnly && len(n.Contents) > 0 {
			continue
		}
		out = append(out, n)
	}
	return out
}

// IndexByID maps every node ID under root to its node. IDs are expected to be
// unique; on a duplicate the later node in preorder wins.
func IndexByID(root *models.Node) map[string]*models.Node {
	index := make(map[string]*models.Node)
	for n := range Preorder(root) {
		index[n.ID] = n
	}
	return index
}

// FindByID returns the first node in preorder whose ID equals id (trimmed).
func FindByID(root *models.Node, id string) *models.Node {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	for n := range Preorder(root) {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// FindByPath resolves a sep-delimited path relative to start, one segment at a
// time, matching names case-insensitively. Every segment but the last must
// name a folder. A blank path resolves to nil; a path made only of
// separators resolves to start itself.
func FindByPath(start *models.Node, path, sep string) *models.Node {
	if start == nil || strings.TrimSpace(path) == "" {
		return nil
	}
	if sep == "" {
		sep = DefaultSeparator
	}

	var parts []string
	for _, p := range strings.Split(path, sep) {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return start
	}

	current := start
	for i, part := range parts {
		if !current.IsFolder() || len(current.Contents) == 0 {
			return nil
		}
		last := i == len(parts)-1
		var match *models.Node
		for _, child := range current.Contents {
			if !strings.EqualFold(child.Name, part) {
				continue
			}
			if last || child.IsFolder() {
				match = child
				break
			}
		}
		if match == nil {
			return nil
		}
		match.Parent = current
		if last {
			return match
		}
		current = match
	}
	return nil
}

// FindByPathDefault is FindByPath with "/" as the separator.
func FindByPathDefault(start *models.Node, path string) *models.Node {
	return FindByPath(start, path, DefaultSeparator)
}

// CountNodes counts all nodes in a tree.
func CountNodes(root *models.Node) int {
	count := 0
	for range Preorder(root) {
		count++
	}
	return count
}

// RemoveChild removes the direct child with the given ID from parent.
func RemoveChild(parent *models.Node, id string) bool {
	if parent == nil {
		return false
	}
	for i, child := range parent.Contents {
		if child.ID == id {
			parent.Contents = append(parent.Contents[:i], parent.Contents[i+1:]...)
			child.Parent = nil
			return true
		}
	}
	return false
}
