package tree

import (
	"fmt"
	"io"
	"strings"

	"github.com/fruitsalade/hubmirror/pkg/models"
)

// Render writes an indented listing of root, one node per line.
func Render(w io.Writer, root *models.Node) error {
	base := ParentDepth(root)
	for n := range Preorder(root) {
		indent := strings.Repeat("  ", ParentDepth(n)-base)
		name := n.Name
		if n.IsFolder() {
			name += "/"
		} else if n.Version > 0 {
			name = fmt.Sprintf("%s (v%d)", name, n.Version)
		}
		if _, err := fmt.Fprintf(w, "%s%s\n", indent, name); err != nil {
			return err
		}
	}
	return nil
}
