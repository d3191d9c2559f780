// Command gridcore browses large datasets through a windowed, sortable,
// selectable grid backed by the synchronization engine.
package main

import (
	"fmt"
	"os"

	"github.com/rshade/gridcore/internal/cli"
	"github.com/rshade/gridcore/internal/config"
	"github.com/rshade/gridcore/pkg/version"
)

func main() {
	os.Exit(run())
}

// run executes the root command and maps errors to an exit code. Split from
// main so deferred cleanup runs before os.Exit.
func run() int {
	defer config.CloseLogFile()

	root := cli.NewRootCmd(version.GetVersion())
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
