package commands

import (
	"github.com/spf13/cobra"

	"github.com/brunobiangulo/gocvot/graph"
	"github.com/brunobiangulo/gocvot/store"
)

type statsResult struct {
	Metadata graph.Metadata `json:"metadata" yaml:"metadata"`
	Counts   graph.Counts   `json:"counts" yaml:"counts"`
}

var statsCmd = &cobra.Command{
	Use:   "stats <snapshot.json>",
	Short: "Print node and edge counts of a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := store.LoadGraph(args[0])
		if err != nil {
			return err
		}
		return outputResult(statsResult{Metadata: g.Metadata, Counts: g.Counts()})
	},
}
