package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/fruitsalade/hubmirror/pkg/protocol"
	"github.com/fruitsalade/hubmirror/pkg/remoteid"
)

var hubsCmd = &cobra.Command{
	Use:   "hubs",
	Short: "List the hubs visible to the application",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd.Context())
		if err != nil {
			return err
		}
		hubs, err := c.ListHubs(cmd.Context())
		if err != nil {
			return err
		}
		writeObjects(cmd.OutOrStdout(), hubs, func(o protocol.Object) string {
			if o.Attributes == nil {
				return ""
			}
			return o.Attributes.Region
		})
		return nil
	},
}

var projectsOpts struct {
	account string
	filter  string
}

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List the projects of a hub",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !remoteid.IsValidString(projectsOpts.account) {
			return fmt.Errorf("invalid account id %q", projectsOpts.account)
		}
		c, err := newClient(cmd.Context())
		if err != nil {
			return err
		}
		projects, err := c.ListProjects(cmd.Context(), remoteid.Parse(projectsOpts.account), projectsOpts.filter)
		if err != nil {
			return err
		}
		writeObjects(cmd.OutOrStdout(), projects, func(o protocol.Object) string {
			return o.Platform().String()
		})
		return nil
	},
}

// writeObjects prints one "id<TAB>name<TAB>extra" line per object.
func writeObjects(w io.Writer, objs []protocol.Object, extra func(protocol.Object) string) {
	for _, o := range objs {
		fmt.Fprintf(w, "%s\t%s\t%s\n", remoteid.Parse(o.ID).String(), o.Name(), extra(o))
	}
}

func init() {
	projectsCmd.Flags().StringVarP(&projectsOpts.account, "account", "a", "", "Hub (account) ID")
	projectsCmd.Flags().StringVarP(&projectsOpts.filter, "filter", "f", "", "Only projects whose name contains this (3 characters or more)")
	_ = projectsCmd.MarkFlagRequired("account")

	rootCmd.AddCommand(hubsCmd, projectsCmd)
}
