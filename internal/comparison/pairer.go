// Package comparison pairs passes for visual review, makes sure both sides of
// a pair have revisions at a shared bounds, and generates the difference
// between them.
package comparison

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"artdiff/internal/diff"
	artimage "artdiff/internal/image"
	"artdiff/internal/metrics"
	"artdiff/internal/model"
	"artdiff/internal/raster"
	"artdiff/internal/revision"
	"artdiff/internal/store"
	"artdiff/pkg/geometry"
	"artdiff/pkg/opt"
)

// Topology answers nearest-related-pass queries over the pass graph.
type Topology interface {
	// PreviousCompleted returns the nearest preceding pass sharing tag, if it
	// has completed processing.
	PreviousCompleted(passID, tag string) (*model.ArtPass, bool)
	// NextCompleted returns the nearest following completed passes sharing tag.
	NextCompleted(passID, tag string) []*model.ArtPass
}

// Rasters materializes stored previews, stores new ones and removes those
// that were never referenced.
type Rasters interface {
	Materialize(ctx context.Context, res *model.StoredResource) (*raster.WorkingBuffer, error)
	Put(ctx context.Context, img image.Image) (*model.StoredResource, error)
	Remove(ctx context.Context, res *model.StoredResource) error
}

// Observer is told about every newly created comparison.
type Observer interface {
	ComparisonCreated(ctx context.Context, c *model.VisualComparison)
}

// Pair is an ordered pair of passes to compare, earlier pass first.
type Pair struct {
	A, B *model.ArtPass
}

// Config wires a Pairer.
type Config struct {
	DB         *store.Store
	Topology   Topology
	Resolver   *revision.Resolver
	Rasters    Rasters
	Normalizer *artimage.Normalizer
	Comparator diff.Comparator
	Options    diff.Options
	Observer   Observer
	Logger     *slog.Logger
}

// Pairer finds, creates and generates visual comparisons.
type Pairer struct {
	db         *store.Store
	topology   Topology
	resolver   *revision.Resolver
	rasters    Rasters
	normalizer *artimage.Normalizer
	comparator diff.Comparator
	opts       diff.Options
	observer   Observer
	logger     *slog.Logger
	newID      func() string
}

// New creates a Pairer. A nil Comparator uses diff.Engine; a nil Resolver
// resolves against cfg.DB.
func New(cfg Config) *Pairer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	resolver := cfg.Resolver
	if resolver == nil {
		resolver = revision.NewResolver(cfg.DB, logger)
	}
	comparator := cfg.Comparator
	if comparator == nil {
		comparator = diff.Engine{}
	}
	return &Pairer{
		db:         cfg.DB,
		topology:   cfg.Topology,
		resolver:   resolver,
		rasters:    cfg.Rasters,
		normalizer: cfg.Normalizer,
		comparator: comparator,
		opts:       cfg.Options,
		observer:   cfg.Observer,
		logger:     logger,
		newID:      uuid.NewString,
	}
}

// MissingPairs lists the pass pairs around pass that need a pass review
// comparison: for each visibility tag, the nearest completed pass before it
// and the nearest completed passes after it. Pairs that already have a
// comparison are left out, as are pairs whose existing revisions match
// ambiguously.
func (p *Pairer) MissingPairs(ctx context.Context, pass *model.ArtPass) ([]Pair, error) {
	if p.topology == nil {
		return nil, fmt.Errorf("%w: no pass topology configured", model.ErrMissingPrecondition)
	}

	var candidates []Pair
	for _, tag := range pass.VisibilityTags {
		if prev, ok := p.topology.PreviousCompleted(pass.ID, tag); ok {
			candidates = append(candidates, Pair{A: prev, B: pass})
		}
		for _, next := range p.topology.NextCompleted(pass.ID, tag) {
			candidates = append(candidates, Pair{A: pass, B: next})
		}
	}

	var pairs []Pair
	seen := make(map[[2]string]bool)
	err := p.db.View(ctx, func(tx *store.Tx) error {
		for _, c := range candidates {
			key := [2]string{c.A.ID, c.B.ID}
			if seen[key] {
				continue
			}
			seen[key] = true
			_, err := findPassReviewPair(tx, c.A.ID, c.B.ID)
			switch {
			case errors.Is(err, model.ErrNotFound):
				pairs = append(pairs, c)
			case errors.Is(err, model.ErrAmbiguousPair):
				p.logger.Warn("skipping ambiguous pass pair", "pass_a", c.A.ID, "pass_b", c.B.ID, "error", err)
			case err != nil:
				return err
			}
		}
		return nil
	})
	return pairs, err
}

// FindValidationPair returns the comparison between a pass's original and
// final validation revisions.
func (p *Pairer) FindValidationPair(ctx context.Context, passID string) (*model.VisualComparison, error) {
	var c *model.VisualComparison
	err := p.db.View(ctx, func(tx *store.Tx) error {
		var err error
		c, err = findValidationPair(tx, passID)
		return err
	})
	return c, err
}

// FindPassReviewPair returns the comparison between the two passes'
// original pass review revisions that share bounds and resolution.
func (p *Pairer) FindPassReviewPair(ctx context.Context, passA, passB string) (*model.VisualComparison, error) {
	var c *model.VisualComparison
	err := p.db.View(ctx, func(tx *store.Tx) error {
		var err error
		c, err = findPassReviewPair(tx, passA, passB)
		return err
	})
	return c, err
}

// FindForPassesAndService finds the validation comparison of a pass when
// both passes are the same and the service is validation, or the pass
// review comparison between them when the service is pass_review.
func (p *Pairer) FindForPassesAndService(ctx context.Context, passA, passB, service string) (*model.VisualComparison, error) {
	switch {
	case passA == "" || passB == "":
		return nil, model.ErrNotFound
	case service == model.TagValidation && passA == passB:
		return p.FindValidationPair(ctx, passA)
	case service == model.TagPassReview:
		return p.FindPassReviewPair(ctx, passA, passB)
	}
	return nil, model.ErrNotFound
}

// UnionBoundsForPasses returns the union of the two passes' final validation
// bounds.
func (p *Pairer) UnionBoundsForPasses(ctx context.Context, passA, passB string) (geometry.Bounds, error) {
	var b geometry.Bounds
	err := p.db.View(ctx, func(tx *store.Tx) error {
		var err error
		b, err = unionBoundsForPasses(tx, passA, passB)
		return err
	})
	return b, err
}

// CreateMissingRevisionsForPasses makes sure both passes have an original
// pass review revision at their union bounds and returns the ones it created.
func (p *Pairer) CreateMissingRevisionsForPasses(ctx context.Context, passA, passB string) ([]*model.ArtRevision, error) {
	var results []*revision.Result
	err := p.db.Update(ctx, func(tx *store.Tx) error {
		results = results[:0]
		bounds, err := unionBoundsForPasses(tx, passA, passB)
		if err != nil {
			return err
		}
		for _, pass := range []string{passA, passB} {
			res, err := p.resolver.ResolveTx(tx, reviewRequest(pass, bounds))
			if err != nil {
				return err
			}
			results = append(results, res)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var created []*model.ArtRevision
	for _, res := range results {
		p.resolver.Record(res)
		if res.Outcome == revision.Created {
			created = append(created, res.Revision)
		}
	}
	return created, nil
}

// CreateForPasses creates the pass review comparison between two passes:
// it computes their union bounds, ensures both pass review revisions exist at
// those bounds and links them. Everything is written in one transaction. An
// existing comparison between the same revisions is returned unchanged.
func (p *Pairer) CreateForPasses(ctx context.Context, passA, passB string) (*model.VisualComparison, error) {
	ctx, span := otel.Tracer("comparison").Start(ctx, "comparison.CreateForPasses",
		trace.WithAttributes(
			attribute.String("pass_a", passA),
			attribute.String("pass_b", passB),
		),
	)
	defer span.End()

	if passA == passB {
		err := fmt.Errorf("%w: cannot pair pass %s with itself", model.ErrValidation, passA)
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid pair")
		return nil, err
	}

	var (
		c       *model.VisualComparison
		created bool
		results []*revision.Result
	)
	err := p.db.Update(ctx, func(tx *store.Tx) error {
		created = false
		results = results[:0]

		bounds, err := unionBoundsForPasses(tx, passA, passB)
		if err != nil {
			return err
		}
		revs := make([]*model.ArtRevision, 2)
		for i, pass := range []string{passA, passB} {
			res, err := p.resolver.ResolveTx(tx, reviewRequest(pass, bounds))
			if err != nil {
				return err
			}
			results = append(results, res)
			revs[i] = res.Revision
		}

		c, err = tx.ComparisonForPair(revs[0].ID, revs[1].ID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, model.ErrNotFound) {
			return err
		}
		c = &model.VisualComparison{ID: p.newID(), RevisionA: revs[0].ID, RevisionB: revs[1].ID}
		created = true
		return tx.PutComparison(c)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create failed")
		return nil, fmt.Errorf("create comparison for passes %s and %s: %w", passA, passB, err)
	}

	for _, res := range results {
		p.resolver.Record(res)
	}
	span.SetAttributes(attribute.String("comparison_id", c.ID), attribute.Bool("created", created))
	if created {
		metrics.ComparisonsCreated.WithLabelValues(string(model.ComparisonPassReview)).Inc()
		p.logger.Info("created comparison", "id", c.ID, "pass_a", passA, "pass_b", passB,
			"revision_a", c.RevisionA, "revision_b", c.RevisionB)
		p.notify(ctx, c)
	}
	return c, nil
}

// CreateValidation links a pass's original and final validation revisions,
// returning the existing comparison when there is one.
func (p *Pairer) CreateValidation(ctx context.Context, passID string) (*model.VisualComparison, error) {
	var (
		c       *model.VisualComparison
		created bool
	)
	err := p.db.Update(ctx, func(tx *store.Tx) error {
		created = false
		original, final, err := validationRevisions(tx, passID)
		if err != nil {
			return err
		}
		if original == nil || final == nil {
			return fmt.Errorf("%w: pass %s lacks original and final validation revisions", model.ErrMissingPrecondition, passID)
		}
		c, err = tx.ComparisonLinking(original.ID, final.ID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, model.ErrNotFound) {
			return err
		}
		c = &model.VisualComparison{ID: p.newID(), RevisionA: original.ID, RevisionB: final.ID}
		created = true
		return tx.PutComparison(c)
	})
	if err != nil {
		return nil, err
	}
	if created {
		metrics.ComparisonsCreated.WithLabelValues(string(model.ComparisonValidation)).Inc()
		p.logger.Info("created validation comparison", "id", c.ID, "pass", passID)
		p.notify(ctx, c)
	}
	return c, nil
}

func (p *Pairer) notify(ctx context.Context, c *model.VisualComparison) {
	if p.observer != nil && !c.DifferencePreview.IsSet() {
		p.observer.ComparisonCreated(ctx, c)
	}
}

func reviewRequest(passID string, bounds geometry.Bounds) revision.Request {
	return revision.Request{
		PassID:      opt.Some(passID),
		VersionKey:  opt.Some(model.VersionOriginal),
		ServiceTags: opt.Some(model.NewTagSet(model.TagPassReview)),
		Bounds:      opt.Some(bounds),
	}
}
