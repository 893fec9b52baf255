package main

import (
	"encoding/json"
	"fmt"
	"os"

	"artdiff/internal/comparison"
	"artdiff/internal/model"
)

// outputJSON writes v to stdout as indented JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type comparisonView struct {
	ID                string   `json:"id"`
	Type              string   `json:"type"`
	RevisionA         string   `json:"revision_a"`
	RevisionB         string   `json:"revision_b"`
	DifferencePreview string   `json:"difference_preview,omitempty"`
	Change            *float64 `json:"change,omitempty"`
}

func printComparison(c *model.VisualComparison, typ model.ComparisonType) error {
	view := comparisonView{
		ID:                c.ID,
		Type:              string(typ),
		RevisionA:         c.RevisionA,
		RevisionB:         c.RevisionB,
		DifferencePreview: c.DifferencePreview.Or(""),
	}
	if change, ok := comparison.RoundedChange(c).Get(); ok {
		view.Change = &change
	}
	if jsonOutput {
		return outputJSON(view)
	}

	fmt.Printf("%s  %-11s  %s -> %s", view.ID, view.Type, view.RevisionA, view.RevisionB)
	if view.Change != nil {
		fmt.Printf("  change %.2f%%", *view.Change)
	}
	fmt.Println()
	return nil
}
