// Command tokeniter lexes files through the line token cache and exposes
// the cache's position, window and runner iterators from the command line.
package main

import (
	"os"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	root, a := newRootCmd()
	err := root.Execute()
	a.close()
	if err != nil {
		os.Exit(1)
	}
}
