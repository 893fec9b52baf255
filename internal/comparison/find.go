package comparison

import (
	"fmt"

	"artdiff/internal/model"
	"artdiff/internal/store"
	"artdiff/pkg/geometry"
	"artdiff/pkg/opt"
)

// revisionsWith returns a pass's revisions carrying tag at version, newest first.
func revisionsWith(tx *store.Tx, passID, tag, version string) ([]*model.ArtRevision, error) {
	all, err := tx.RevisionsForPass(passID)
	if err != nil {
		return nil, err
	}
	var out []*model.ArtRevision
	for _, rev := range all {
		if rev.VersionKey == version && rev.HasTag(tag) {
			out = append(out, rev)
		}
	}
	return out, nil
}

// firstRevision returns the newest matching revision, or nil.
func firstRevision(tx *store.Tx, passID, tag, version string) (*model.ArtRevision, error) {
	revs, err := revisionsWith(tx, passID, tag, version)
	if err != nil || len(revs) == 0 {
		return nil, err
	}
	return revs[0], nil
}

func validationRevisions(tx *store.Tx, passID string) (original, final *model.ArtRevision, err error) {
	if original, err = firstRevision(tx, passID, model.TagValidation, model.VersionOriginal); err != nil {
		return nil, nil, err
	}
	if final, err = firstRevision(tx, passID, model.TagValidation, model.VersionFinal); err != nil {
		return nil, nil, err
	}
	return original, final, nil
}

func findValidationPair(tx *store.Tx, passID string) (*model.VisualComparison, error) {
	original, final, err := validationRevisions(tx, passID)
	if err != nil {
		return nil, err
	}
	if original == nil || final == nil {
		return nil, fmt.Errorf("validation comparison for pass %s: %w", passID, model.ErrNotFound)
	}
	return tx.ComparisonLinking(original.ID, final.ID)
}

func findPassReviewPair(tx *store.Tx, passA, passB string) (*model.VisualComparison, error) {
	revsA, err := revisionsWith(tx, passA, model.TagPassReview, model.VersionOriginal)
	if err != nil {
		return nil, err
	}
	revsB, err := revisionsWith(tx, passB, model.TagPassReview, model.VersionOriginal)
	if err != nil {
		return nil, err
	}

	var matches [][2]*model.ArtRevision
	for _, ra := range revsA {
		for _, rb := range revsB {
			if opt.Equal(ra.Bounds, rb.Bounds) && opt.Equal(ra.Resolution, rb.Resolution) {
				matches = append(matches, [2]*model.ArtRevision{ra, rb})
			}
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("pass review comparison for %s and %s: %w", passA, passB, model.ErrNotFound)
	case 1:
		return tx.ComparisonLinking(matches[0][0].ID, matches[0][1].ID)
	}
	return nil, fmt.Errorf("%w: passes %s and %s share %d pass review bounds and resolutions",
		model.ErrAmbiguousPair, passA, passB, len(matches))
}

func unionBoundsForPasses(tx *store.Tx, passA, passB string) (geometry.Bounds, error) {
	var bounds []geometry.Bounds
	for _, pass := range []string{passA, passB} {
		rev, err := firstRevision(tx, pass, model.TagValidation, model.VersionFinal)
		if err != nil {
			return geometry.Bounds{}, err
		}
		if rev == nil {
			return geometry.Bounds{}, fmt.Errorf("%w: pass %s has no final validation revision", model.ErrMissingPrecondition, pass)
		}
		b, ok := rev.Bounds.Get()
		if !ok {
			return geometry.Bounds{}, fmt.Errorf("%w: final validation revision %s of pass %s has no bounds", model.ErrMissingPrecondition, rev.ID, pass)
		}
		bounds = append(bounds, b)
	}
	return geometry.Union(bounds[0], bounds[1:]...), nil
}
