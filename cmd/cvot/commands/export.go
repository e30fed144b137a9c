package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brunobiangulo/gocvot/export"
	"github.com/brunobiangulo/gocvot/store"
)

var exportCmd = &cobra.Command{
	Use:   "export <snapshot.json> <workbook.xlsx>",
	Short: "Write a snapshot to an XLSX workbook",
	Long: `Write a snapshot to a workbook with a summary sheet, a node sheet and a
causal vector sheet, for review by engineers.

Examples:
  cvot export cvot_weighted.json cvot.xlsx`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := store.LoadGraph(args[0])
		if err != nil {
			return err
		}
		if err := export.WriteXLSX(args[1], g); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", args[1])
		return nil
	},
}
