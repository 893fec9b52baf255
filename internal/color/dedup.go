// Package color canonicalizes color definitions so that each distinct
// (values, model, type) triple is stored exactly once.
package color

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"artdiff/internal/metrics"
	"artdiff/internal/model"
	"artdiff/internal/store"
)

// Spec is a color definition as it arrives from ingestion.
type Spec struct {
	Values string `validate:"required"`
	Model  string `validate:"required"`
	Type   string `validate:"required"`
}

// ModelLookup resolves a color model by name, ignoring case. It returns
// model.ErrNotFound when no such model exists.
type ModelLookup interface {
	ColorModelByName(ctx context.Context, name string) (*model.ColorModel, error)
}

// StoreModels looks color models up in the entity store.
type StoreModels struct {
	DB *store.Store
}

// ColorModelByName implements ModelLookup.
func (m StoreModels) ColorModelByName(ctx context.Context, name string) (*model.ColorModel, error) {
	var cm *model.ColorModel
	err := m.DB.View(ctx, func(tx *store.Tx) error {
		var err error
		cm, err = tx.ColorModelByName(name)
		return err
	})
	return cm, err
}

// Deduplicator maps color specs to canonical color ids. Safe for concurrent use.
type Deduplicator struct {
	db       *store.Store
	models   ModelLookup
	validate *validator.Validate
	group    singleflight.Group
	logger   *slog.Logger
}

// NewDeduplicator creates a Deduplicator. A nil models looks models up in db.
func NewDeduplicator(db *store.Store, models ModelLookup, logger *slog.Logger) *Deduplicator {
	if models == nil {
		models = StoreModels{DB: db}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Deduplicator{
		db:       db,
		models:   models,
		validate: validator.New(),
		logger:   logger,
	}
}

// Canonicalize returns the id of the color matching spec, creating it on first
// sight. An unknown color model is not an error: it yields ("", false, nil)
// and the caller skips the color.
func (d *Deduplicator) Canonicalize(ctx context.Context, spec Spec) (string, bool, error) {
	spec.Values = strings.TrimSpace(spec.Values)
	spec.Model = strings.TrimSpace(spec.Model)
	spec.Type = strings.TrimSpace(spec.Type)
	if err := d.validate.Struct(spec); err != nil {
		return "", false, fmt.Errorf("%w: color %+v: %v", model.ErrValidation, spec, err)
	}

	cm, err := d.models.ColorModelByName(ctx, strings.ToLower(spec.Model))
	if errors.Is(err, model.ErrNotFound) || (err == nil && cm == nil) {
		d.logger.Warn("skipping color with unknown model", "model", spec.Model, "values", spec.Values)
		metrics.ColorLookups.WithLabelValues("skipped").Inc()
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	key := model.ColorKey{Values: spec.Values, ModelID: cm.ID, Type: spec.Type}
	v, err, _ := d.group.Do(key.Values+"\x00"+key.ModelID+"\x00"+key.Type, func() (any, error) {
		var (
			c       *model.Color
			created bool
		)
		err := d.db.Update(ctx, func(tx *store.Tx) error {
			var err error
			c, created, err = tx.FindOrCreateColor(key, uuid.NewString())
			return err
		})
		if err != nil {
			return nil, err
		}
		if created {
			metrics.ColorLookups.WithLabelValues("created").Inc()
			d.logger.Debug("created color", "id", c.ID, "values", key.Values, "type", key.Type)
		} else {
			metrics.ColorLookups.WithLabelValues("hit").Inc()
		}
		return c.ID, nil
	})
	if err != nil {
		return "", false, fmt.Errorf("canonicalize color %q: %w", spec.Values, err)
	}
	return v.(string), true, nil
}
