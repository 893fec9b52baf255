package raster

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"artdiff/internal/model"
	"artdiff/internal/store"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	db, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	dir := t.TempDir()
	tmp := t.TempDir()
	s, err := New(db, dir, tmp, nil)
	require.NoError(t, err)
	return s, tmp
}

func solid(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestPutMaterializeRelease(t *testing.T) {
	s, tmp := newTestStore(t)
	ctx := context.Background()

	res, err := s.Put(ctx, solid(4, 3, color.NRGBA{R: 200, A: 255}))
	require.NoError(t, err)
	assert.Equal(t, 4, res.Width)
	assert.Equal(t, 3, res.Height)

	loaded, err := s.Resource(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Path, loaded.Path)

	wb, err := s.Materialize(ctx, loaded)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 3), wb.Image.Bounds())
	assert.Equal(t, color.NRGBA{R: 200, A: 255}, wb.Image.NRGBAAt(1, 1))
	_, err = os.Stat(wb.Path)
	require.NoError(t, err)
	assert.Equal(t, tmp, filepath.Dir(wb.Path))

	wb.Release()
	wb.Release()
	assert.Nil(t, wb.Image)
	_, err = os.Stat(wb.Path)
	assert.True(t, os.IsNotExist(err))
}

func TestMaterializeMissingFile(t *testing.T) {
	s, tmp := newTestStore(t)
	_, err := s.Materialize(context.Background(), &model.StoredResource{ID: "gone", Path: "gone.png"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrResource))

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMaterializeUndecodableCleansUp(t *testing.T) {
	s, tmp := newTestStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "junk.png"), []byte("not a png"), 0o644))

	_, err := s.Materialize(context.Background(), &model.StoredResource{ID: "junk", Path: "junk.png"})
	assert.ErrorIs(t, err, model.ErrResource)

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries, "working file must be removed on decode failure")
}

func TestPersistUpdatesSize(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	res, err := s.Put(ctx, solid(2, 2, color.White))
	require.NoError(t, err)
	require.NoError(t, s.Persist(ctx, res, solid(5, 7, color.White)))

	loaded, err := s.Resource(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, loaded.Width)
	assert.Equal(t, 7, loaded.Height)

	img, err := DecodeFile(filepath.Join(s.Dir(), res.Path))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 5, 7), img.Bounds())
}

func TestImport(t *testing.T) {
	s, _ := newTestStore(t)
	src := filepath.Join(t.TempDir(), "in.png")
	require.NoError(t, EncodeFile(src, solid(3, 3, color.Black)))

	res, dpi, err := s.Import(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 0, dpi)
	assert.Equal(t, 3, res.Width)

	_, _, err = s.Import(context.Background(), "file.xyz")
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestToNRGBAShiftsOrigin(t *testing.T) {
	src := image.NewNRGBA(image.Rect(5, 5, 8, 9))
	src.Set(5, 5, color.White)
	out := ToNRGBA(src)
	assert.Equal(t, image.Rect(0, 0, 3, 4), out.Bounds())
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, out.NRGBAAt(0, 0))
}
