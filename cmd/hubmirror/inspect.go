package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fruitsalade/hubmirror/pkg/models"
	"github.com/fruitsalade/hubmirror/pkg/tree"
)

var treeOpts struct {
	ids         projectFlags
	depth       int
	noFiles     bool
	hideSpecial bool
}

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the saved tree of a project",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadSnapshot(cmd.Context(), &treeOpts.ids)
		if err != nil {
			return err
		}
		if p.Root == nil {
			return fmt.Errorf("snapshot of %s has no root folder", p.ID)
		}
		if treeOpts.hideSpecial {
			pruneSpecial(p)
		}
		if cmd.Flags().Changed("depth") || treeOpts.noFiles {
			tree.Repath(p.Root, treeOpts.depth, treeOpts.noFiles)
		}
		return tree.Render(cmd.OutOrStdout(), p.Root)
	},
}

// pruneSpecial detaches the system folders of p anywhere in the tree.
func pruneSpecial(p *tree.Project) {
	for _, f := range tree.GetFolders(p.Root, false) {
		if f.Parent != nil && models.IsSpecialFolder(f, p.ID.String()) {
			tree.RemoveChild(f.Parent, f.ID)
		}
	}
}

var filesOpts struct {
	ids projectFlags
}

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List the files of a saved project, tab separated",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadSnapshot(cmd.Context(), &filesOpts.ids)
		if err != nil {
			return err
		}
		return writeFiles(cmd.OutOrStdout(), p.Root)
	},
}

func writeFiles(w io.Writer, root *models.Node) error {
	if _, err := fmt.Fprintln(w, "ID\tPath\tVersion\tLastModified\tLastModifiedBy"); err != nil {
		return err
	}
	for _, f := range tree.GetFiles(root) {
		path := append(f.PathInProject(), f.Name)
		modified := ""
		if !f.LastModified.IsZero() {
			modified = f.LastModified.UTC().Format(time.RFC3339)
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			f.ID, strings.Join(path, tree.DefaultSeparator), f.Version, modified, f.LastModifiedBy); err != nil {
			return err
		}
	}
	return nil
}

var findOpts struct {
	ids  projectFlags
	id   string
	path string
}

var findCmd = &cobra.Command{
	Use:   "find",
	Short: "Look up a node of a saved project by ID or path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if (findOpts.id == "") == (findOpts.path == "") {
			return fmt.Errorf("exactly one of --id or --path is required")
		}
		p, err := loadSnapshot(cmd.Context(), &findOpts.ids)
		if err != nil {
			return err
		}

		var n *models.Node
		if findOpts.id != "" {
			n = tree.FindByID(p.Root, findOpts.id)
		} else {
			n = tree.FindByPathDefault(p.Root, findOpts.path)
		}
		if n == nil {
			return fmt.Errorf("no node found")
		}
		describe(cmd.OutOrStdout(), n)
		return nil
	},
}

func describe(w io.Writer, n *models.Node) {
	fmt.Fprintf(w, "ID:      %s\n", n.ID)
	fmt.Fprintf(w, "Name:    %s\n", n.Name)
	fmt.Fprintf(w, "Type:    %s\n", n.Kind)
	fmt.Fprintf(w, "Path:    %s\n", strings.Join(n.PathInProject(), tree.DefaultSeparator))
	fmt.Fprintf(w, "Depth:   %d\n", n.Depth())
	if n.IsFile() {
		fmt.Fprintf(w, "Version: %d\n", n.Version)
	} else {
		fmt.Fprintf(w, "Items:   %d\n", len(n.Contents))
	}
	if !n.LastModified.IsZero() {
		fmt.Fprintf(w, "Changed: %s %s\n", n.LastModified.UTC().Format(time.RFC3339), n.LastModifiedBy)
	}
}

var searchOpts struct {
	ids   projectFlags
	limit int
}

var searchCmd = &cobra.Command{
	Use:   "search <name>",
	Short: "Search the catalog for nodes whose name contains <name>",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ids, err := searchOpts.ids.ids()
		if err != nil {
			return err
		}
		store, err := openCatalog(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		results, err := store.SearchByName(ctx, ids.Project, args[0], searchOpts.limit)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		for _, r := range results {
			var path []string
			for _, seg := range r.PathSegments {
				if !models.IsGUIDRoot(seg) {
					path = append(path, seg)
				}
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", r.Kind, r.ID, strings.Join(append(path, r.Name), tree.DefaultSeparator))
		}
		return nil
	},
}

func init() {
	treeOpts.ids.register(treeCmd)
	treeCmd.Flags().IntVarP(&treeOpts.depth, "depth", "d", tree.Unlimited, "Levels to show below the root folder")
	treeCmd.Flags().BoolVar(&treeOpts.noFiles, "no-files", false, "Show folders only")
	treeCmd.Flags().BoolVar(&treeOpts.hideSpecial, "hide-special", false, "Hide system folders")

	filesOpts.ids.register(filesCmd)

	findOpts.ids.register(findCmd)
	findCmd.Flags().StringVar(&findOpts.id, "id", "", "Node ID")
	findCmd.Flags().StringVar(&findOpts.path, "path", "", "Slash separated path below the root folder")

	searchOpts.ids.register(searchCmd)
	searchCmd.Flags().IntVarP(&searchOpts.limit, "limit", "n", 50, "Maximum results")

	rootCmd.AddCommand(treeCmd, filesCmd, findCmd, searchCmd)
}
