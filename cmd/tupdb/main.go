// Command tupdb exposes the dependency-graph database core over a
// standalone CLI: init, scan, graph, flags, and export.
package main

import (
	"fmt"
	"os"

	"github.com/naudhr/tup/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		if ee, ok := err.(*cli.ExitError); ok {
			fmt.Fprintln(os.Stderr, ee.Error())
			os.Exit(ee.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
