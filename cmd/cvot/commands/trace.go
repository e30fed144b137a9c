package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brunobiangulo/gocvot/graph"
	"github.com/brunobiangulo/gocvot/store"
)

var (
	traceType  string
	traceDepth int
)

var traceCmd = &cobra.Command{
	Use:   "trace <snapshot.json> <node id or description>",
	Short: "Follow causal vectors from a node",
	Long: `Follow outgoing causal vectors breadth-first from a node, heaviest first
at each depth: indicator -> error -> cause -> solution.

The start node is given by id (N0007) or by description, matched case- and
whitespace-insensitively.

Examples:
  cvot trace cvot_weighted.json "Bus fault"
  cvot trace cvot_weighted.json N0012 --depth 1 --json`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := store.LoadGraph(args[0])
		if err != nil {
			return err
		}
		ix := graph.NewIndex(g)

		id := args[1]
		if _, ok := ix.Node(id); !ok {
			found, ok := ix.FindNode(traceType, args[1])
			if !ok {
				return fmt.Errorf("no node matches %q", args[1])
			}
			id = found
		}
		start, _ := ix.Node(id)
		return outputResult(struct {
			Start graph.Node  `json:"start" yaml:"start"`
			Hops  []graph.Hop `json:"hops" yaml:"hops"`
		}{start, ix.Trace(id, traceDepth)})
	},
}

func init() {
	traceCmd.Flags().StringVar(&traceType, "type", "", "restrict description lookup to one entity type")
	traceCmd.Flags().IntVar(&traceDepth, "depth", 3, "maximum number of hops")
}
