package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"artdiff/internal/color"
	"artdiff/internal/comparison"
	artimage "artdiff/internal/image"
	"artdiff/internal/model"
	"artdiff/internal/project"
	"artdiff/internal/raster"
	"artdiff/internal/revision"
	"artdiff/internal/store"
	"artdiff/pkg/geometry"
	"artdiff/pkg/opt"
)

// Service owns the store and every pipeline component built on it.
type Service struct {
	Config     Config
	DB         *store.Store
	Rasters    *raster.Store
	Resolver   *revision.Resolver
	Colors     *color.Deduplicator
	Normalizer *artimage.Normalizer
	Pairer     *comparison.Pairer
	State      *State
	Events     *Events
	Queue      *Queue

	logger *slog.Logger
}

// NewService opens the store and wires the pipeline. Comparisons created
// without a difference are queued for generation once the queue is started.
func NewService(cfg Config, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	diffOpts, err := cfg.DiffOptions()
	if err != nil {
		return nil, err
	}
	canvasOpts, err := cfg.CanvasOptions()
	if err != nil {
		return nil, err
	}

	storeCfg := cfg.StoreConfig()
	storeCfg.Logger = logger.With("component", "badger")
	db, err := store.Open(storeCfg)
	if err != nil {
		return nil, err
	}
	rasters, err := raster.New(db, cfg.Rasters.Dir, cfg.Rasters.TmpDir, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &Service{
		Config:     cfg,
		DB:         db,
		Rasters:    rasters,
		Resolver:   revision.NewResolver(db, logger),
		Colors:     color.NewDeduplicator(db, nil, logger),
		Normalizer: artimage.NewNormalizer(rasters, canvasOpts, logger),
		Events:     NewEvents(),
		logger:     logger,
	}
	s.State = NewState(s.Events)
	s.Pairer = comparison.New(comparison.Config{
		DB:         db,
		Topology:   s.State,
		Resolver:   s.Resolver,
		Rasters:    rasters,
		Normalizer: s.Normalizer,
		Comparator: cfg.Comparator(),
		Options:    diffOpts,
		Observer:   s.Events,
		Logger:     logger,
	})
	s.Queue = NewQueue(cfg.Queue.Workers, s.Pairer.Generate, s.Events, logger)
	s.Events.On(EventComparisonCreated, func(data interface{}) {
		c := data.(*model.VisualComparison)
		if s.Queue.Enqueue(Job{ComparisonID: c.ID, RevisionA: c.RevisionA, RevisionB: c.RevisionB}) {
			logger.Debug("queued difference generation", "comparison", c.ID)
		}
	})
	return s, nil
}

// Close drains the queue and closes the store.
func (s *Service) Close() error {
	s.Queue.Close()
	return s.DB.Close()
}

// ImportManifest registers the manifest's color models, then resolves every
// listed revision and imports its preview when it has none yet. Importing
// the same manifest twice changes nothing. It returns the resolved revisions
// in manifest order.
func (s *Service) ImportManifest(ctx context.Context, path string, f *project.File) ([]*model.ArtRevision, error) {
	if err := s.registerColorModels(ctx, f.ColorModels); err != nil {
		return nil, err
	}

	var revs []*model.ArtRevision
	for i, e := range f.Revisions {
		req := revision.Request{
			PassID:      opt.Some(e.Pass),
			VersionKey:  opt.Some(e.Version),
			ServiceTags: opt.Some(model.NewTagSet(e.Tags...)),
		}
		if e.Bounds != "" {
			b, err := geometry.ParseBounds(e.Bounds)
			if err != nil {
				return revs, fmt.Errorf("%w: revision %d: %v", model.ErrValidation, i, err)
			}
			req.Bounds = opt.Some(b)
		}
		if e.Resolution > 0 {
			req.Resolution = opt.Some(e.Resolution)
		}
		result, err := s.Resolver.Resolve(ctx, req)
		if err != nil {
			return revs, fmt.Errorf("revision %d: %w", i, err)
		}
		if e.Image != "" && !result.Revision.Preview.IsSet() {
			if result, err = s.attachPreview(ctx, result.Revision, project.ResolvePath(path, e.Image)); err != nil {
				return revs, fmt.Errorf("revision %d: %w", i, err)
			}
		}
		revs = append(revs, result.Revision)
	}
	s.logger.Info("imported manifest", "path", path, "revisions", len(revs))
	return revs, nil
}

func (s *Service) attachPreview(ctx context.Context, rev *model.ArtRevision, image string) (*revision.Result, error) {
	res, dpi, err := s.Rasters.Import(ctx, image)
	if err != nil {
		return nil, err
	}
	req := revision.Request{TargetID: rev.ID, Preview: opt.Some(res.ID)}
	if !rev.Resolution.IsSet() && dpi > 0 {
		req.Resolution = opt.Some(dpi)
	}
	return s.Resolver.Resolve(ctx, req)
}

func (s *Service) registerColorModels(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}
	return s.DB.Update(ctx, func(tx *store.Tx) error {
		for _, name := range names {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			_, err := tx.ColorModelByName(name)
			if err == nil {
				continue
			}
			if !errors.Is(err, model.ErrNotFound) {
				return err
			}
			if err := tx.PutColorModel(&model.ColorModel{ID: uuid.NewString(), Name: name}); err != nil {
				return err
			}
		}
		return nil
	})
}

// CompareMissing creates the pass review comparisons missing around every
// completed pass of the current manifest. Pairs whose passes lack final
// validation revisions, or whose revisions match ambiguously, are skipped and
// logged.
func (s *Service) CompareMissing(ctx context.Context) ([]*model.VisualComparison, error) {
	var created []*model.VisualComparison
	seen := make(map[[2]string]bool)
	for _, pass := range s.State.Passes() {
		if !pass.ProcessingComplete {
			continue
		}
		pairs, err := s.Pairer.MissingPairs(ctx, pass)
		if skippable(err) {
			s.logger.Warn("skipping pass", "pass", pass.ID, "error", err)
			continue
		}
		if err != nil {
			return created, err
		}
		for _, pair := range pairs {
			key := [2]string{pair.A.ID, pair.B.ID}
			if seen[key] {
				continue
			}
			seen[key] = true
			c, err := s.Pairer.CreateForPasses(ctx, pair.A.ID, pair.B.ID)
			if skippable(err) {
				s.logger.Warn("skipping pair", "pass_a", pair.A.ID, "pass_b", pair.B.ID, "error", err)
				continue
			}
			if err != nil {
				return created, err
			}
			created = append(created, c)
		}
	}
	return created, nil
}

// skippable reports errors that concern one pass pair rather than the run.
func skippable(err error) bool {
	return errors.Is(err, model.ErrMissingPrecondition) || errors.Is(err, model.ErrAmbiguousPair)
}

// EnqueuePending queues every comparison that has no difference yet and
// whose revisions both have previews. It returns how many were accepted.
func (s *Service) EnqueuePending(ctx context.Context) (int, error) {
	var jobs []Job
	err := s.DB.View(ctx, func(tx *store.Tx) error {
		all, err := tx.Comparisons()
		if err != nil {
			return err
		}
		for _, c := range all {
			if c.Generated() {
				continue
			}
			ready := true
			for _, id := range []string{c.RevisionA, c.RevisionB} {
				rev, err := tx.Revision(id)
				if err != nil {
					return err
				}
				ready = ready && rev.Preview.IsSet()
			}
			if ready {
				jobs = append(jobs, Job{ComparisonID: c.ID, RevisionA: c.RevisionA, RevisionB: c.RevisionB})
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	n := 0
	for _, j := range jobs {
		if s.Queue.Enqueue(j) {
			n++
		}
	}
	return n, nil
}

// Sync loads the manifest at path, imports its revisions, creates missing
// comparisons and queues every comparison that is ready to generate.
func (s *Service) Sync(ctx context.Context, path string) error {
	if err := s.State.LoadManifest(path); err != nil {
		return err
	}
	f, _ := s.State.Manifest()
	if _, err := s.ImportManifest(ctx, path, f); err != nil {
		return err
	}
	if _, err := s.CompareMissing(ctx); err != nil {
		return err
	}
	_, err := s.EnqueuePending(ctx)
	return err
}
