package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"artdiff/internal/model"
)

const manifestYAML = `
version: 1
name: carton
passes:
  - id: p1
    name: Concept
    visibility_tags: [client]
    processing_complete: true
  - id: p2
    name: Layout
    visibility_tags: [internal]
    processing_complete: true
  - id: p3
    name: Proof
    visibility_tags: [client, internal]
    processing_complete: true
  - id: p4
    name: Final
    visibility_tags: [client]
    processing_complete: false
  - id: p5
    name: Alternate
    visibility_tags: [client]
    processing_complete: true
    follows: [p3]
revisions:
  - pass: p1
    version: final
    tags: [validation]
    bounds: "0,100,100,0"
    image: previews/p1.png
`

func loadPipeline(t *testing.T) *Pipeline {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	require.NoError(t, writeFile(path, manifestYAML))
	f, err := Load(path)
	require.NoError(t, err)
	p, err := f.Pipeline()
	require.NoError(t, err)
	return p
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	require.NoError(t, writeFile(path, manifestYAML))
	f, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "carton", f.Name)
	require.Len(t, f.Passes, 5)
	assert.Equal(t, "Proof", f.Passes[2].Name)
	assert.Equal(t, []string{"p3"}, f.Passes[4].Follows)
	require.Len(t, f.Revisions, 1)
	assert.Equal(t, "0,100,100,0", f.Revisions[0].Bounds)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "previews/p1.png"), ResolvePath(path, f.Revisions[0].Image))
}

func TestSaveRoundTripJSON(t *testing.T) {
	f := New("box")
	f.Passes = []PassEntry{{ArtPass: model.ArtPass{ID: "a", VisibilityTags: model.NewTagSet("client")}}}
	path := filepath.Join(t.TempDir(), "m.json")
	require.NoError(t, f.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "box", loaded.Name)
	assert.Equal(t, "a", loaded.Passes[0].ID)
	assert.True(t, loaded.Passes[0].VisibilityTags.Has("client"))
}

func TestPreviousCompleted(t *testing.T) {
	p := loadPipeline(t)

	prev, ok := p.PreviousCompleted("p3", "client")
	require.True(t, ok)
	assert.Equal(t, "p1", prev.ID)

	prev, ok = p.PreviousCompleted("p3", "internal")
	require.True(t, ok)
	assert.Equal(t, "p2", prev.ID)

	_, ok = p.PreviousCompleted("p1", "client")
	assert.False(t, ok)
}

func TestPreviousCompletedStopsAtIncompletePass(t *testing.T) {
	f := New("x")
	f.Passes = []PassEntry{
		{ArtPass: model.ArtPass{ID: "a", VisibilityTags: model.NewTagSet("t"), ProcessingComplete: true}},
		{ArtPass: model.ArtPass{ID: "b", VisibilityTags: model.NewTagSet("t")}},
		{ArtPass: model.ArtPass{ID: "c", VisibilityTags: model.NewTagSet("t"), ProcessingComplete: true}},
	}
	p, err := f.Pipeline()
	require.NoError(t, err)
	_, ok := p.PreviousCompleted("c", "t")
	assert.False(t, ok)
}

func TestNextCompletedFollowsBranches(t *testing.T) {
	p := loadPipeline(t)

	next := p.NextCompleted("p3", "client")
	require.Len(t, next, 1)
	assert.Equal(t, "p5", next[0].ID)

	next = p.NextCompleted("p1", "client")
	require.Len(t, next, 1)
	assert.Equal(t, "p3", next[0].ID)

	assert.Empty(t, p.NextCompleted("p3", "internal"))
}

func TestPipelineValidation(t *testing.T) {
	f := New("x")
	f.Passes = []PassEntry{
		{ArtPass: model.ArtPass{ID: "a"}},
		{ArtPass: model.ArtPass{ID: "a"}},
	}
	_, err := f.Pipeline()
	assert.ErrorIs(t, err, model.ErrValidation)

	f.Passes = []PassEntry{
		{ArtPass: model.ArtPass{ID: "a"}, Follows: []string{"b"}},
		{ArtPass: model.ArtPass{ID: "b"}},
	}
	_, err = f.Pipeline()
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestSetPassComplete(t *testing.T) {
	f := New("x")
	f.Passes = []PassEntry{{ArtPass: model.ArtPass{ID: "a"}}}
	require.NoError(t, f.SetPassComplete("a", true))
	assert.True(t, f.Passes[0].ProcessingComplete)
	assert.ErrorIs(t, f.SetPassComplete("zz", true), model.ErrNotFound)

	p, err := f.Pipeline()
	require.NoError(t, err)
	assert.Equal(t, 0, p.Position("a"))
	assert.Equal(t, -1, p.Position("zz"))
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}
