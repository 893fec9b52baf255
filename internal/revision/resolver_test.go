package revision

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"artdiff/internal/model"
	"artdiff/internal/store"
	"artdiff/pkg/geometry"
	"artdiff/pkg/opt"
)

func newTestResolver(t *testing.T) (*Resolver, *store.Store) {
	t.Helper()
	db, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewResolver(db, nil), db
}

func reviewRequest(pass string, b geometry.Bounds) Request {
	return Request{
		PassID:      opt.Some(pass),
		VersionKey:  opt.Some(model.VersionOriginal),
		ServiceTags: opt.Some(model.NewTagSet(model.TagPassReview)),
		Bounds:      opt.Some(b),
		Resolution:  opt.Some(300),
	}
}

func countRevisions(t *testing.T, db *store.Store, pass string) int {
	t.Helper()
	var n int
	require.NoError(t, db.View(context.Background(), func(tx *store.Tx) error {
		revs, err := tx.RevisionsForPass(pass)
		n = len(revs)
		return err
	}))
	return n
}

func TestResolveIsIdempotent(t *testing.T) {
	r, db := newTestResolver(t)
	ctx := context.Background()
	req := reviewRequest("p1", geometry.NewBounds(0, 100, 100, 0))

	first, err := r.Resolve(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, Created, first.Outcome)

	second, err := r.Resolve(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, Matched, second.Outcome)
	assert.Equal(t, first.Revision.ID, second.Revision.ID)
	assert.Equal(t, 1, countRevisions(t, db, "p1"))
}

func TestResolveOpenFillsForward(t *testing.T) {
	r, _ := newTestResolver(t)
	ctx := context.Background()
	req := reviewRequest("p1", geometry.NewBounds(0, 10, 10, 0))
	req.Resolution = opt.None[int]()

	first, err := r.Resolve(ctx, req)
	require.NoError(t, err)
	assert.False(t, first.Revision.Resolution.IsSet())

	req.Resolution = opt.Some(150)
	req.Preview = opt.Some("res-1")
	second, err := r.Resolve(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, Filled, second.Outcome)
	assert.Equal(t, first.Revision.ID, second.Revision.ID)
	assert.Equal(t, 150, second.Revision.Resolution.MustGet())
	assert.Equal(t, "res-1", second.Revision.Preview.MustGet())
}

func TestResolveOpenNeverOverwrites(t *testing.T) {
	r, db := newTestResolver(t)
	ctx := context.Background()
	req := reviewRequest("p1", geometry.NewBounds(0, 10, 10, 0))

	first, err := r.Resolve(ctx, req)
	require.NoError(t, err)

	req.Resolution = opt.Some(600)
	second, err := r.Resolve(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, Created, second.Outcome)
	assert.NotEqual(t, first.Revision.ID, second.Revision.ID)
	assert.Equal(t, 2, countRevisions(t, db, "p1"))

	require.NoError(t, db.View(ctx, func(tx *store.Tx) error {
		rev, err := tx.Revision(first.Revision.ID)
		require.NoError(t, err)
		assert.Equal(t, 300, rev.Resolution.MustGet())
		return nil
	}))
}

func TestResolveOpenSeparatesTags(t *testing.T) {
	r, _ := newTestResolver(t)
	ctx := context.Background()
	b := geometry.NewBounds(0, 10, 10, 0)

	review, err := r.Resolve(ctx, reviewRequest("p1", b))
	require.NoError(t, err)

	req := reviewRequest("p1", b)
	req.ServiceTags = opt.Some(model.NewTagSet(model.TagValidation))
	validation, err := r.Resolve(ctx, req)
	require.NoError(t, err)
	assert.NotEqual(t, review.Revision.ID, validation.Revision.ID)

	req.ServiceTags = opt.Some(model.NewTagSet(model.TagValidation, model.TagPassReview))
	overlap, err := r.Resolve(ctx, req)
	require.NoError(t, err)
	assert.Contains(t, []string{review.Revision.ID, validation.Revision.ID}, overlap.Revision.ID)
}

func TestResolveTargetedFills(t *testing.T) {
	r, _ := newTestResolver(t)
	ctx := context.Background()

	placeholder, err := r.Resolve(ctx, Request{
		PassID:      opt.Some("p1"),
		VersionKey:  opt.Some(model.VersionFinal),
		ServiceTags: opt.Some(model.NewTagSet(model.TagValidation, "proof")),
	})
	require.NoError(t, err)

	res, err := r.Resolve(ctx, Request{
		TargetID:    placeholder.Revision.ID,
		VersionKey:  opt.Some(model.VersionFinal),
		ServiceTags: opt.Some(model.NewTagSet(model.TagValidation)),
		Bounds:      opt.Some(geometry.NewBounds(1, 2, 3, 0)),
		Resolution:  opt.Some(72),
		Preview:     opt.Some("res-9"),
	})
	require.NoError(t, err)
	assert.Equal(t, Filled, res.Outcome)
	assert.Equal(t, placeholder.Revision.ID, res.Revision.ID)
	assert.Equal(t, geometry.NewBounds(1, 2, 3, 0), res.Revision.Bounds.MustGet())
	assert.Equal(t, "res-9", res.Revision.Preview.MustGet())
}

func TestResolveTargetedConflictLeavesRevisionUnmodified(t *testing.T) {
	r, db := newTestResolver(t)
	ctx := context.Background()

	placeholder, err := r.Resolve(ctx, Request{
		PassID:      opt.Some("p1"),
		VersionKey:  opt.Some(model.VersionOriginal),
		ServiceTags: opt.Some(model.NewTagSet(model.TagValidation)),
		Bounds:      opt.Some(geometry.NewBounds(0, 10, 10, 0)),
	})
	require.NoError(t, err)

	tests := []struct {
		name  string
		req   Request
		field string
	}{
		{
			name:  "version key",
			req:   Request{VersionKey: opt.Some(model.VersionFinal), Preview: opt.Some("x")},
			field: "version_key",
		},
		{
			name:  "bounds",
			req:   Request{Bounds: opt.Some(geometry.NewBounds(0, 11, 10, 0)), Preview: opt.Some("x")},
			field: "bounds",
		},
		{
			name:  "tags not a superset",
			req:   Request{ServiceTags: opt.Some(model.NewTagSet(model.TagValidation, model.TagPassReview))},
			field: "service_tags",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.TargetID = placeholder.Revision.ID
			_, err := r.Resolve(ctx, tt.req)
			require.ErrorIs(t, err, model.ErrConflict)
			var ce *model.ConflictError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)

			require.NoError(t, db.View(ctx, func(tx *store.Tx) error {
				rev, err := tx.Revision(placeholder.Revision.ID)
				require.NoError(t, err)
				assert.False(t, rev.Preview.IsSet())
				assert.Equal(t, model.VersionOriginal, rev.VersionKey)
				assert.Equal(t, geometry.NewBounds(0, 10, 10, 0), rev.Bounds.MustGet())
				return nil
			}))
		})
	}
}

func TestResolveTargetedRejectsCompletedRevision(t *testing.T) {
	r, _ := newTestResolver(t)
	ctx := context.Background()
	done, err := r.Resolve(ctx, Request{
		PassID:     opt.Some("p1"),
		VersionKey: opt.Some(model.VersionOriginal),
		Preview:    opt.Some("res-1"),
	})
	require.NoError(t, err)

	_, err = r.Resolve(ctx, Request{TargetID: done.Revision.ID, Preview: opt.Some("res-2")})
	assert.ErrorIs(t, err, model.ErrConflict)
}

func TestResolveTargetedMissing(t *testing.T) {
	r, _ := newTestResolver(t)
	_, err := r.Resolve(context.Background(), Request{TargetID: "nope"})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestDeriveFromContext(t *testing.T) {
	pc := &model.ProcessingContext{
		StepID:              "step-1",
		StepTypeKey:         model.VersionFinal,
		PassID:              "p9",
		ServiceOfferingKeys: []string{model.TagValidation, "proof"},
	}

	derived := DeriveFromContext(Request{Context: pc})
	assert.Equal(t, "p9", derived.PassID.MustGet())
	assert.Equal(t, model.VersionFinal, derived.VersionKey.MustGet())
	assert.Equal(t, model.NewTagSet("proof", model.TagValidation), derived.ServiceTags.MustGet())

	explicit := DeriveFromContext(Request{
		Context:     pc,
		PassID:      opt.Some("p1"),
		VersionKey:  opt.Some(model.VersionOriginal),
		ServiceTags: opt.Some(model.TagSet{}),
	})
	assert.Equal(t, "p1", explicit.PassID.MustGet())
	assert.Equal(t, model.VersionOriginal, explicit.VersionKey.MustGet())
	assert.True(t, explicit.ServiceTags.MustGet().Empty())
}

func TestResolveUsesContext(t *testing.T) {
	r, _ := newTestResolver(t)
	res, err := r.Resolve(context.Background(), Request{
		Context: &model.ProcessingContext{StepID: "s1", StepTypeKey: model.VersionOriginal, PassID: "p2", ServiceOfferingKeys: []string{model.TagPassReview}},
	})
	require.NoError(t, err)
	assert.Equal(t, "p2", res.Revision.PassID)
	assert.True(t, res.Revision.HasTag(model.TagPassReview))
	assert.Equal(t, "s1", res.Revision.StepID.MustGet())
}

func TestResolveOpenRequiresPass(t *testing.T) {
	r, _ := newTestResolver(t)
	_, err := r.Resolve(context.Background(), Request{VersionKey: opt.Some(model.VersionOriginal)})
	assert.ErrorIs(t, err, model.ErrValidation)
}
