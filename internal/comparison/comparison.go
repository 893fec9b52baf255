package comparison

import (
	"context"
	"errors"

	"artdiff/internal/diff"
	"artdiff/internal/model"
	"artdiff/internal/store"
	"artdiff/pkg/geometry"
	"artdiff/pkg/opt"
)

// RoundedChange returns the comparison's change percentage rounded for
// display, unset until the difference has been generated.
func RoundedChange(c *model.VisualComparison) opt.Value[float64] {
	v, ok := c.Change.Get()
	if !ok {
		return opt.None[float64]()
	}
	return opt.Some(diff.RoundChange(v))
}

// Comparison loads a comparison by id.
func (p *Pairer) Comparison(ctx context.Context, id string) (*model.VisualComparison, error) {
	var c *model.VisualComparison
	err := p.db.View(ctx, func(tx *store.Tx) error {
		var err error
		c, err = tx.Comparison(id)
		return err
	})
	return c, err
}

// ArtRevisions returns the comparison's revisions that still exist, A first.
func (p *Pairer) ArtRevisions(ctx context.Context, c *model.VisualComparison) ([]*model.ArtRevision, error) {
	var revs []*model.ArtRevision
	err := p.db.View(ctx, func(tx *store.Tx) error {
		for _, id := range []string{c.RevisionA, c.RevisionB} {
			rev, err := tx.Revision(id)
			if errors.Is(err, model.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			revs = append(revs, rev)
		}
		return nil
	})
	return revs, err
}

// Type derives the comparison type from revision A's tags.
func (p *Pairer) Type(ctx context.Context, c *model.VisualComparison) (model.ComparisonType, error) {
	var t model.ComparisonType
	err := p.db.View(ctx, func(tx *store.Tx) error {
		rev, err := tx.Revision(c.RevisionA)
		if err != nil {
			return err
		}
		t = model.TypeOf(rev)
		return nil
	})
	return t, err
}

// Size returns the pixel size of revision A's preview.
func (p *Pairer) Size(ctx context.Context, c *model.VisualComparison) (geometry.Size, error) {
	var size geometry.Size
	err := p.db.View(ctx, func(tx *store.Tx) error {
		rev, err := tx.Revision(c.RevisionA)
		if err != nil {
			return err
		}
		id, ok := rev.Preview.Get()
		if !ok {
			return model.ErrMissingPrecondition
		}
		res, err := tx.Resource(id)
		if err != nil {
			return err
		}
		size = res.Size()
		return nil
	})
	return size, err
}
