// Command musig is the operator-facing CLI for manual protocol walkthroughs,
// mirroring the teacher's cmd/synnergy entrypoint: a bare cobra root command
// with subsystem middleware registered onto it.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"musigd/cmd/cli"
)

func main() {
	root := &cobra.Command{Use: "musig"}
	cli.RegisterMusig(root)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
