// Package raster stores preview rasters on disk and hands them out as scoped
// working buffers.
//
// A WorkingBuffer owns a temporary copy of the stored file plus its decoded
// pixels. Callers must Release it on every path, typically with defer,
// so that peak memory and temp-file usage stay bounded.
package raster

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"artdiff/internal/model"
	"artdiff/internal/store"
)

// Store keeps raster files under a root directory and their metadata in the
// entity store.
type Store struct {
	dir    string
	tmpDir string
	db     *store.Store
	logger *slog.Logger
}

// New creates a raster store rooted at dir. Working files go to tmpDir, or
// the OS temp directory when tmpDir is empty.
func New(db *store.Store, dir, tmpDir string, logger *slog.Logger) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: raster directory is required", model.ErrValidation)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create raster directory: %w", err)
	}
	if tmpDir == "" {
		tmpDir = os.TempDir()
	} else if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return nil, fmt.Errorf("create temp directory: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{dir: dir, tmpDir: tmpDir, db: db, logger: logger}, nil
}

// Dir returns the root directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) abs(res *model.StoredResource) string {
	if filepath.IsAbs(res.Path) {
		return res.Path
	}
	return filepath.Join(s.dir, res.Path)
}

// Resource loads resource metadata by id.
func (s *Store) Resource(ctx context.Context, id string) (*model.StoredResource, error) {
	var res *model.StoredResource
	err := s.db.View(ctx, func(tx *store.Tx) error {
		var err error
		res, err = tx.Resource(id)
		return err
	})
	return res, err
}

// Put stores img as a new PNG resource.
func (s *Store) Put(ctx context.Context, img image.Image) (*model.StoredResource, error) {
	id := uuid.NewString()
	res := &model.StoredResource{ID: id, Path: id + ".png"}
	if err := s.write(ctx, res, img); err != nil {
		return nil, err
	}
	return res, nil
}

// Import copies an image file into the store. The second return value is the
// file's embedded resolution, if it carries one.
func (s *Store) Import(ctx context.Context, path string) (*model.StoredResource, int, error) {
	if !IsSupportedFormat(path) {
		return nil, 0, fmt.Errorf("%w: unsupported image format %q", model.ErrValidation, filepath.Ext(path))
	}
	img, err := DecodeFile(path)
	if err != nil {
		return nil, 0, &model.ResourceError{ResourceID: path, Op: "import", Err: err}
	}
	dpi, err := EmbeddedResolution(path)
	if err != nil && !errors.Is(err, ErrNoResolution) {
		s.logger.Debug("unreadable resolution metadata", "path", path, "error", err)
	}
	res, err := s.Put(ctx, img)
	if err != nil {
		return nil, 0, err
	}
	return res, dpi, nil
}

// Persist overwrites the stored raster with img and records its new size.
func (s *Store) Persist(ctx context.Context, res *model.StoredResource, img image.Image) error {
	return s.write(ctx, res, img)
}

func (s *Store) write(ctx context.Context, res *model.StoredResource, img image.Image) error {
	if err := EncodeFile(s.abs(res), img); err != nil {
		return &model.ResourceError{ResourceID: res.ID, Op: "persist", Err: err}
	}
	b := img.Bounds()
	res.Width, res.Height = b.Dx(), b.Dy()
	err := s.db.Update(ctx, func(tx *store.Tx) error {
		return tx.PutResource(res)
	})
	if err != nil {
		return &model.ResourceError{ResourceID: res.ID, Op: "persist", Err: err}
	}
	return nil
}

// Remove deletes a resource's metadata and its file.
func (s *Store) Remove(ctx context.Context, res *model.StoredResource) error {
	err := s.db.Update(ctx, func(tx *store.Tx) error {
		return tx.DeleteResource(res.ID)
	})
	if err != nil {
		return &model.ResourceError{ResourceID: res.ID, Op: "remove", Err: err}
	}
	if err := os.Remove(s.abs(res)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &model.ResourceError{ResourceID: res.ID, Op: "remove", Err: err}
	}
	return nil
}

// WorkingBuffer is a materialized raster. Release must be called exactly once
// the caller is finished; later calls are no-ops.
type WorkingBuffer struct {
	Resource *model.StoredResource
	Path     string
	Image    *image.NRGBA

	released bool
	logger   *slog.Logger
}

// Release removes the working file and drops the pixel buffer.
func (w *WorkingBuffer) Release() {
	if w == nil || w.released {
		return
	}
	w.released = true
	w.Image = nil
	if w.Path == "" {
		return
	}
	if err := os.Remove(w.Path); err != nil && !os.IsNotExist(err) {
		w.logger.Warn("failed to remove working file", "path", w.Path, "error", err)
	}
}

// Materialize copies the stored raster to a working file and decodes it.
// Any partially created working file is removed when materialization fails.
func (s *Store) Materialize(ctx context.Context, res *model.StoredResource) (*WorkingBuffer, error) {
	if res == nil {
		return nil, &model.ResourceError{Op: "materialize", Err: fmt.Errorf("no resource")}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	wb := &WorkingBuffer{Resource: res, logger: s.logger}
	path, err := s.copyToTemp(res)
	if err != nil {
		return nil, &model.ResourceError{ResourceID: res.ID, Op: "materialize", Err: err}
	}
	wb.Path = path

	img, err := DecodeFile(path)
	if err != nil {
		wb.Release()
		return nil, &model.ResourceError{ResourceID: res.ID, Op: "materialize", Err: err}
	}
	wb.Image = img
	return wb, nil
}

func (s *Store) copyToTemp(res *model.StoredResource) (string, error) {
	src, err := os.Open(s.abs(res))
	if err != nil {
		return "", err
	}
	defer src.Close()

	dst, err := os.CreateTemp(s.tmpDir, res.ID+"-*"+filepath.Ext(res.Path))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", err
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return "", err
	}
	return dst.Name(), nil
}
