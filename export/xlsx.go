// Package export writes CVOT snapshots to spreadsheet form for engineering
// review.
package export

import (
	"fmt"
	"maps"
	"slices"

	"github.com/xuri/excelize/v2"

	"github.com/brunobiangulo/gocvot/graph"
)

// Sheet names of the exported workbook.
const (
	SheetSummary = "Summary"
	SheetNodes   = "Nodes"
	SheetEdges   = "Causal Vectors"
)

var (
	nodeHeader = []any{"ID", "Type", "Description", "Source Title"}
	edgeHeader = []any{"Relationship", "From", "From Description", "To", "To Description", "Weight", "Confidence", "Analysis"}
)

// WriteXLSX writes g to a workbook at path with a summary sheet, one row per
// node, and one row per causal vector. Types are listed alphabetically and
// rows within a type keep snapshot order.
func WriteXLSX(path string, g *graph.Graph) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("naming summary sheet: %w", err)
	}
	if err := writeSummary(f, g); err != nil {
		return err
	}
	if err := writeNodes(f, g); err != nil {
		return err
	}
	if err := writeEdges(f, g); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, g *graph.Graph) error {
	c := g.Counts()
	rows := [][]any{
		{"System", g.Metadata.System},
		{"Version", g.Metadata.Version},
		{"Created", g.Metadata.CreatedDate},
		{"Description", g.Metadata.Description},
		{"Safety Level", g.Metadata.SafetyLevel},
		{"Last Weight Update", g.Metadata.LastWeightUpdate},
		{"Weight Analysis Method", g.Metadata.WeightAnalysisMethod},
		{"Nodes", c.TotalNodes},
		{"Causal Vectors", c.TotalEdges},
		{"Reconciled", c.Reconciled},
	}
	return setRows(f, SheetSummary, rows)
}

func writeNodes(f *excelize.File, g *graph.Graph) error {
	if _, err := f.NewSheet(SheetNodes); err != nil {
		return fmt.Errorf("creating nodes sheet: %w", err)
	}
	rows := [][]any{nodeHeader}
	for _, typ := range slices.Sorted(maps.Keys(g.Nodes)) {
		for _, n := range g.Nodes[typ] {
			rows = append(rows, []any{n.ID, typ, n.Description, n.SourceTitle})
		}
	}
	return setRows(f, SheetNodes, rows)
}

func writeEdges(f *excelize.File, g *graph.Graph) error {
	if _, err := f.NewSheet(SheetEdges); err != nil {
		return fmt.Errorf("creating edges sheet: %w", err)
	}
	ix := graph.NewIndex(g)
	describe := func(id string) string {
		if d, ok := ix.NodeDescription(id); ok {
			return d
		}
		return graph.UnknownDescription
	}

	rows := [][]any{edgeHeader}
	for _, rel := range slices.Sorted(maps.Keys(g.Edges)) {
		for _, e := range g.Edges[rel] {
			rows = append(rows, []any{
				rel, e.From, describe(e.From), e.To, describe(e.To),
				e.Weight, e.Confidence, e.AnalysisType,
			})
		}
	}
	return setRows(f, SheetEdges, rows)
}

func setRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
