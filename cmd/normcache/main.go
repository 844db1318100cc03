// Command normcache is a reference host process for internal/cache: it
// drives merges, inspects snapshots, compiles and validates edge maps,
// replays a durable merge log, and runs YAML conformance scenarios, all
// from the command line.
package main

import (
	"fmt"
	"os"
)

func main() {
	root := NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(GetExitCode(err))
	}
}
