package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"artdiff/internal/model"
	"artdiff/pkg/geometry"
	"artdiff/pkg/opt"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
}

func TestOpenWithPathPersists(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(DefaultConfig(dir))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Update(ctx, func(tx *Tx) error {
		return tx.PutResource(&model.StoredResource{ID: "r1", Path: "a.png", Width: 3, Height: 4})
	}))
	require.NoError(t, s.Close())

	s2, err := Open(DefaultConfig(dir))
	require.NoError(t, err)
	defer s2.Close()
	require.NoError(t, s2.View(ctx, func(tx *Tx) error {
		r, err := tx.Resource("r1")
		require.NoError(t, err)
		assert.Equal(t, 3, r.Width)
		return nil
	}))
}

func TestRevisionIndexes(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rev := &model.ArtRevision{
		ID:          "r1",
		PassID:      "p1",
		VersionKey:  model.VersionOriginal,
		ServiceTags: model.NewTagSet(model.TagPassReview),
	}
	require.NoError(t, s.Update(ctx, func(tx *Tx) error { return tx.PutRevision(rev) }))

	require.NoError(t, s.View(ctx, func(tx *Tx) error {
		found, err := tx.RevisionsByIdentity("p1", model.VersionOriginal, opt.None[geometry.Bounds]())
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "r1", found[0].ID)
		assert.False(t, found[0].CreatedAt.IsZero())
		return nil
	}))

	// Filling bounds moves the revision to the bounded identity bucket.
	b := geometry.NewBounds(0, 10, 10, 0)
	rev.Bounds = opt.Some(b)
	require.NoError(t, s.Update(ctx, func(tx *Tx) error { return tx.PutRevision(rev) }))

	require.NoError(t, s.View(ctx, func(tx *Tx) error {
		unbounded, err := tx.RevisionsByIdentity("p1", model.VersionOriginal, opt.None[geometry.Bounds]())
		require.NoError(t, err)
		assert.Empty(t, unbounded)

		bounded, err := tx.RevisionsByIdentity("p1", model.VersionOriginal, opt.Some(b))
		require.NoError(t, err)
		require.Len(t, bounded, 1)
		assert.Equal(t, opt.Some(b), bounded[0].Bounds)

		all, err := tx.RevisionsForPass("p1")
		require.NoError(t, err)
		assert.Len(t, all, 1)
		return nil
	}))
}

func TestRevisionsForPassNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.Update(ctx, func(tx *Tx) error {
		for i := 0; i < 3; i++ {
			err := tx.PutRevision(&model.ArtRevision{
				ID:         fmt.Sprintf("r%d", i),
				PassID:     "p1",
				VersionKey: model.VersionFinal,
				CreatedAt:  base.Add(time.Duration(i) * time.Minute),
			})
			if err != nil {
				return err
			}
		}
		return tx.PutRevision(&model.ArtRevision{ID: "other", PassID: "p2", VersionKey: "x"})
	}))

	require.NoError(t, s.View(ctx, func(tx *Tx) error {
		revs, err := tx.RevisionsForPass("p1")
		require.NoError(t, err)
		require.Len(t, revs, 3)
		assert.Equal(t, []string{"r2", "r1", "r0"}, []string{revs[0].ID, revs[1].ID, revs[2].ID})
		return nil
	}))
}

func TestPutRevisionValidation(t *testing.T) {
	s := openTestStore(t)
	err := s.Update(context.Background(), func(tx *Tx) error {
		return tx.PutRevision(&model.ArtRevision{ID: "r1"})
	})
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestFindOrCreateColorConcurrent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	key := model.ColorKey{Values: "0,0,0,100", ModelID: "cmyk", Type: "process"}

	const workers = 16
	ids := make([]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.Update(ctx, func(tx *Tx) error {
				c, _, err := tx.FindOrCreateColor(key, fmt.Sprintf("c%d", i))
				if err != nil {
					return err
				}
				ids[i] = c.ID
				return nil
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestColorModelCaseInsensitive(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Update(ctx, func(tx *Tx) error {
		return tx.PutColorModel(&model.ColorModel{ID: "m1", Name: "CMYK"})
	}))
	require.NoError(t, s.View(ctx, func(tx *Tx) error {
		cm, err := tx.ColorModelByName("Cmyk")
		require.NoError(t, err)
		assert.Equal(t, "m1", cm.ID)

		_, err = tx.ColorModelByName("lab")
		assert.ErrorIs(t, err, model.ErrNotFound)
		return nil
	}))
}

func TestComparisonLinking(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Update(ctx, func(tx *Tx) error {
		return tx.PutComparison(&model.VisualComparison{ID: "c1", RevisionA: "a", RevisionB: "b"})
	}))
	require.NoError(t, s.View(ctx, func(tx *Tx) error {
		c, err := tx.ComparisonLinking("b", "a")
		require.NoError(t, err)
		assert.Equal(t, "c1", c.ID)

		_, err = tx.ComparisonLinking("a", "z")
		assert.ErrorIs(t, err, model.ErrNotFound)

		all, err := tx.Comparisons()
		require.NoError(t, err)
		assert.Len(t, all, 1)
		return nil
	}))
}

func TestUpdateHonoursCancelledContext(t *testing.T) {
	s := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := s.Update(ctx, func(tx *Tx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
