package image

import (
	"context"
	"image"
	"log/slog"

	"artdiff/internal/model"
	"artdiff/internal/raster"
	"artdiff/pkg/geometry"
)

// Resources materializes and persists stored rasters.
type Resources interface {
	Materialize(ctx context.Context, res *model.StoredResource) (*raster.WorkingBuffer, error)
	Persist(ctx context.Context, res *model.StoredResource, img image.Image) error
}

// Normalizer pads a set of rasters to a common canvas size.
type Normalizer struct {
	resources Resources
	opts      CanvasOptions
	logger    *slog.Logger
}

// NewNormalizer creates a Normalizer. Width and Height in opts are ignored;
// the canvas size is computed per call.
func NewNormalizer(resources Resources, opts CanvasOptions, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{resources: resources, opts: opts, logger: logger}
}

// MatchCanvasSizes pads every resource smaller than the largest width and
// height in the set up to that size, persisting each padded raster and
// updating the resource's dimensions in place. A zero maximum dimension makes
// the call a no-op.
func (n *Normalizer) MatchCanvasSizes(ctx context.Context, resources []*model.StoredResource) error {
	sizes := make([]geometry.Size, len(resources))
	for i, r := range resources {
		sizes[i] = r.Size()
	}
	target := geometry.MaxSize(sizes...)
	if target.IsZero() {
		return nil
	}

	for _, res := range resources {
		if res.Size() == target {
			continue
		}
		if err := n.expand(ctx, res, target); err != nil {
			return err
		}
	}
	return nil
}

func (n *Normalizer) expand(ctx context.Context, res *model.StoredResource, target geometry.Size) error {
	wb, err := n.resources.Materialize(ctx, res)
	if err != nil {
		return err
	}
	defer wb.Release()

	opts := n.opts
	opts.Width, opts.Height = target.Width, target.Height
	canvas := ExpandCanvas(wb.Image, opts)

	n.logger.Debug("expanding canvas",
		"resource", res.ID,
		"from_width", res.Width, "from_height", res.Height,
		"to_width", target.Width, "to_height", target.Height,
		"gravity", opts.Gravity.String())

	return n.resources.Persist(ctx, res, canvas)
}
