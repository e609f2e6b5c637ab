// hubmirror builds local mirrors of hub project folder trees.
//
// Commands:
//   - build: fetch a project tree, print a summary, save a snapshot and
//     optionally a catalog copy
//   - tree, files, find: inspect a saved snapshot
//   - search: query the catalog by name
//   - hubs, projects: list what the credentials can see
//
// Configuration comes from HUBMIRROR_* environment variables; flags override.
package main

func main() {
	Execute()
}
