// Package models contains the tree node types shared by every package.
package models

import (
	"fmt"
	"strings"
	"time"
)

// Kind discriminates folders from files. The ordinal order puts files before
// folders, which is the order Repath sorts siblings into.
type Kind int

const (
	KindUnknown Kind = iota
	KindFile
	KindFolder
)

// Remote type names for each kind.
const (
	TypeItems   = "items"
	TypeFolders = "folders"
)

// ParseKind maps a remote type discriminator to a Kind.
func ParseKind(s string) Kind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case TypeItems:
		return KindFile
	case TypeFolders:
		return KindFolder
	default:
		return KindUnknown
	}
}

func (k Kind) String() string {
	switch k {
	case KindFile:
		return TypeItems
	case KindFolder:
		return TypeFolders
	default:
		return "unknown"
	}
}

// MarshalText writes the remote type name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText reads a remote type name.
func (k *Kind) UnmarshalText(text []byte) error {
	*k = ParseKind(string(text))
	return nil
}

// Node is a folder or a file in a project tree.
//
// Contents owns the children of a folder. Parent is a back-link only: it is
// not serialized, may be nil until a traversal re-links the tree, and is never
// used to enumerate the tree.
type Node struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Kind           Kind      `json:"type"`
	LastModified   time.Time `json:"lastModified"`
	LastModifiedBy string    `json:"lastModifiedBy,omitempty"`
	PathSegments   []string  `json:"path"`
	Version        int       `json:"version,omitempty"`
	Contents       []*Node   `json:"contents,omitempty"`

	Parent *Node `json:"-"`
}

// NewFolder creates an empty folder node.
func NewFolder(id, name string) *Node {
	return &Node{ID: id, Name: name, Kind: KindFolder, PathSegments: []string{}}
}

// NewFile creates a file node. Version 0 means unknown.
func NewFile(id, name string, version int) *Node {
	return &Node{ID: id, Name: name, Kind: KindFile, Version: version, PathSegments: []string{}}
}

// IsFolder reports whether the node is a folder.
func (n *Node) IsFolder() bool {
	return n != nil && n.Kind == KindFolder
}

// IsFile reports whether the node is a file.
func (n *Node) IsFile() bool {
	return n != nil && n.Kind == KindFile
}

// SetLastModifiedBy stores the trimmed user name; blank clears it.
func (n *Node) SetLastModifiedBy(name string) {
	n.LastModifiedBy = strings.TrimSpace(name)
}

// Depth is the number of ancestors, so the root folder is 0.
func (n *Node) Depth() int {
	return len(n.PathSegments)
}

// PathInProject returns PathSegments without the GUID root folder entry.
func (n *Node) PathInProject() []string {
	out := make([]string, 0, len(n.PathSegments))
	for _, seg := range n.PathSegments {
		if !IsGUIDRoot(seg) {
			out = append(out, seg)
		}
	}
	return out
}

// ChildPath returns the PathSegments a direct child of n should carry.
func (n *Node) ChildPath() []string {
	path := make([]string, 0, len(n.PathSegments)+1)
	path = append(path, n.PathSegments...)
	return append(path, n.Name)
}

// AddChild appends child to a folder and links it back. It does not touch the
// child's PathSegments.
func (n *Node) AddChild(child *Node) error {
	if !n.IsFolder() {
		return fmt.Errorf("add child %q: %q is not a folder", child.Name, n.Name)
	}
	child.Parent = n
	n.Contents = append(n.Contents, child)
	return nil
}

// EmptyFolders returns the descendant folders (n included) that have no contents.
func (n *Node) EmptyFolders() []*Node {
	if !n.IsFolder() {
		return nil
	}
	var out []*Node
	stack := []*Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !cur.IsFolder() {
			continue
		}
		if len(cur.Contents) == 0 {
			out = append(out, cur)
			continue
		}
		for i := len(cur.Contents) - 1; i >= 0; i-- {
			stack = append(stack, cur.Contents[i])
		}
	}
	return out
}
