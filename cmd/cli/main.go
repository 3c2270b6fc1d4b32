// Command sptrsv-sim is the CLI entry point for rewriting, compiling, and
// scheduling SpTRSV dependency graphs.
package main

import (
	"github.com/sptrsv/sptrsv-sim/cmd/cli/cmd"
)

func main() {
	cmd.Execute()
}
