package comparison

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"artdiff/internal/diff"
	"artdiff/internal/metrics"
	"artdiff/internal/model"
	"artdiff/internal/store"
	"artdiff/pkg/opt"
)

// Generate computes the difference for a comparison: both previews are padded
// to a common canvas, diffed, and the difference raster and change score are
// stored on the comparison. The steps run in that order and only once; a
// comparison that already has a difference yields model.ErrAlreadyGenerated.
func (p *Pairer) Generate(ctx context.Context, comparisonID string) (c *model.VisualComparison, err error) {
	ctx, span := otel.Tracer("comparison").Start(ctx, "comparison.Generate",
		trace.WithAttributes(attribute.String("comparison_id", comparisonID)),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		if err != nil {
			metrics.ComparisonsGenerated.WithLabelValues("error").Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, "generate failed")
			return
		}
		metrics.ComparisonsGenerated.WithLabelValues("ok").Inc()
		metrics.DiffDuration.Observe(time.Since(start).Seconds())
	}()

	if p.rasters == nil || p.normalizer == nil {
		return nil, fmt.Errorf("%w: raster storage is not configured", model.ErrMissingPrecondition)
	}

	var previews [2]*model.StoredResource
	err = p.db.View(ctx, func(tx *store.Tx) error {
		var err error
		if c, err = tx.Comparison(comparisonID); err != nil {
			return err
		}
		if c.Generated() {
			return fmt.Errorf("comparison %s: %w", c.ID, model.ErrAlreadyGenerated)
		}
		for i, revID := range []string{c.RevisionA, c.RevisionB} {
			rev, err := tx.Revision(revID)
			if err != nil {
				return err
			}
			resID, ok := rev.Preview.Get()
			if !ok {
				return fmt.Errorf("%w: revision %s has no preview", model.ErrMissingPrecondition, rev.ID)
			}
			if previews[i], err = tx.Resource(resID); err != nil {
				return &model.ResourceError{ResourceID: resID, Op: "load", Err: err}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := p.normalizer.MatchCanvasSizes(ctx, previews[:]); err != nil {
		return nil, fmt.Errorf("normalize comparison %s: %w", comparisonID, err)
	}

	result, err := p.compare(ctx, previews[0], previews[1])
	if err != nil {
		return nil, fmt.Errorf("diff comparison %s: %w", comparisonID, err)
	}

	diffRes, err := p.rasters.Put(ctx, result.Image)
	if err != nil {
		return nil, err
	}

	err = p.db.Update(ctx, func(tx *store.Tx) error {
		var err error
		if c, err = tx.Comparison(comparisonID); err != nil {
			return err
		}
		if c.Generated() {
			return fmt.Errorf("comparison %s: %w", c.ID, model.ErrAlreadyGenerated)
		}
		c.DifferencePreview = opt.Some(diffRes.ID)
		c.Change = opt.Some(result.Change)
		return tx.PutComparison(c)
	})
	if err != nil {
		if rmErr := p.rasters.Remove(context.WithoutCancel(ctx), diffRes); rmErr != nil {
			p.logger.Warn("failed to remove unreferenced difference", "resource", diffRes.ID, "error", rmErr)
		}
		return nil, err
	}

	rounded := result.Rounded()
	metrics.ChangePercent.Observe(rounded)
	span.SetAttributes(attribute.Float64("change", rounded))
	p.logger.Info("generated difference", "comparison", c.ID, "change", rounded,
		"width", result.Image.Bounds().Dx(), "height", result.Image.Bounds().Dy())
	return c, nil
}

// compare materializes both previews and diffs them. The working buffers are
// released before returning.
func (p *Pairer) compare(ctx context.Context, a, b *model.StoredResource) (*diff.Result, error) {
	wa, err := p.rasters.Materialize(ctx, a)
	if err != nil {
		return nil, err
	}
	defer wa.Release()

	wb, err := p.rasters.Materialize(ctx, b)
	if err != nil {
		return nil, err
	}
	defer wb.Release()

	return p.comparator.Compare(wa.Image, wb.Image, p.opts)
}
