package store

import (
	"errors"
	"fmt"
	"strings"

	"artdiff/internal/model"
)

func comparePairKey(a, b string) string {
	return prefixComparePair + a + sep + b
}

// Comparison loads a comparison by id.
func (tx *Tx) Comparison(id string) (*model.VisualComparison, error) {
	var c model.VisualComparison
	if err := tx.getJSON(prefixComparison+id, &c); err != nil {
		return nil, fmt.Errorf("comparison %s: %w", id, err)
	}
	return &c, nil
}

// PutComparison creates or updates a comparison and indexes its revision pair.
func (tx *Tx) PutComparison(c *model.VisualComparison) error {
	if c.ID == "" || c.RevisionA == "" || c.RevisionB == "" {
		return fmt.Errorf("%w: comparison requires id and both revisions", model.ErrValidation)
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = tx.Now()
	}
	if err := tx.putJSON(comparePairKey(c.RevisionA, c.RevisionB), c.ID); err != nil {
		return err
	}
	return tx.putJSON(prefixComparison+c.ID, c)
}

// ComparisonForPair returns the comparison with exactly revision a as A and b as B.
func (tx *Tx) ComparisonForPair(a, b string) (*model.VisualComparison, error) {
	var id string
	if err := tx.getJSON(comparePairKey(a, b), &id); err != nil {
		return nil, err
	}
	return tx.Comparison(id)
}

// ComparisonLinking returns the first comparison whose A and B revisions are
// both among ids, in either order. It returns model.ErrNotFound when none does.
func (tx *Tx) ComparisonLinking(ids ...string) (*model.VisualComparison, error) {
	for _, a := range ids {
		for _, b := range ids {
			c, err := tx.ComparisonForPair(a, b)
			if errors.Is(err, model.ErrNotFound) {
				continue
			}
			return c, err
		}
	}
	return nil, model.ErrNotFound
}

// Comparisons lists every stored comparison.
func (tx *Tx) Comparisons() ([]*model.VisualComparison, error) {
	var out []*model.VisualComparison
	for _, key := range tx.keysWithPrefix(prefixComparison) {
		c, err := tx.Comparison(strings.TrimPrefix(key, prefixComparison))
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
