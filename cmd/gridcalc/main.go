// Command gridcalc is the CLI entry point: it owns argument parsing,
// timing instrumentation, and exit codes, and is the only thing in this
// module that calls os.Exit.
package main

import "github.com/cellmesh/gridcalc/cmd/gridcalc/cmd"

func main() {
	cmd.Execute()
}
