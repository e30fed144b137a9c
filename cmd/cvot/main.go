// Command cvot builds and inspects Causal Vector Orchestration Templates.
//
// Usage:
//
//	cvot [flags] <command> [args]
//
// Commands:
//
//	extract   - locate troubleshooting sections and assemble the graph
//	reconcile - weigh every causal vector with the LLM
//	export    - write a snapshot to an XLSX workbook
//	stats     - print node and edge counts of a snapshot
//	trace     - follow causal vectors from a node
package main

import (
	"fmt"
	"os"

	"github.com/brunobiangulo/gocvot/cmd/cvot/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
