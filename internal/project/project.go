// Package project provides the pass manifest: the passes of one artwork in
// pipeline order, and the revisions to import for them.
package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"artdiff/internal/model"
)

// File is a pass manifest (.yaml, .yml or .json).
type File struct {
	Version     int       `json:"version" yaml:"version"`
	Name        string    `json:"name" yaml:"name"`
	Created     time.Time `json:"created" yaml:"created"`
	Modified    time.Time `json:"modified" yaml:"modified"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`

	Passes    []PassEntry     `json:"passes" yaml:"passes"`
	Revisions []RevisionEntry `json:"revisions,omitempty" yaml:"revisions,omitempty"`

	// ColorModels are registered before colors are canonicalized.
	ColorModels []string `json:"color_models,omitempty" yaml:"color_models,omitempty"`
}

// PassEntry is a pass and its predecessors in the pipeline. A pass with no
// Follows follows the entry listed before it.
type PassEntry struct {
	model.ArtPass `yaml:",inline"`
	Follows       []string `json:"follows,omitempty" yaml:"follows,omitempty"`
}

// RevisionEntry is a rendered preview to register as a revision.
type RevisionEntry struct {
	Pass       string   `json:"pass" yaml:"pass"`
	Version    string   `json:"version" yaml:"version"`
	Tags       []string `json:"tags" yaml:"tags"`
	Bounds     string   `json:"bounds,omitempty" yaml:"bounds,omitempty"`
	Resolution int      `json:"resolution,omitempty" yaml:"resolution,omitempty"`
	// Image is relative to the manifest unless absolute.
	Image string `json:"image,omitempty" yaml:"image,omitempty"`
}

// New creates an empty manifest.
func New(name string) *File {
	now := time.Now()
	return &File{
		Version:  1,
		Name:     name,
		Created:  now,
		Modified: now,
	}
}

func isJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

// Load loads a manifest, choosing JSON or YAML by file extension.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if isJSON(path) {
		err = json.Unmarshal(data, &f)
	} else {
		err = yaml.Unmarshal(data, &f)
	}
	if err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return &f, nil
}

// Save writes the manifest, choosing JSON or YAML by file extension.
func (f *File) Save(path string) error {
	f.Modified = time.Now()

	var (
		data []byte
		err  error
	)
	if isJSON(path) {
		data, err = json.MarshalIndent(f, "", "  ")
	} else {
		data, err = yaml.Marshal(f)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ResolvePath returns p relative to the manifest at manifestPath, or p itself
// when absolute or empty.
func ResolvePath(manifestPath, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(filepath.Dir(manifestPath), p)
}

// SetPassComplete marks a pass as having finished processing.
func (f *File) SetPassComplete(id string, complete bool) error {
	for i := range f.Passes {
		if f.Passes[i].ID == id {
			f.Passes[i].ProcessingComplete = complete
			f.Modified = time.Now()
			return nil
		}
	}
	return fmt.Errorf("pass %s: %w", id, model.ErrNotFound)
}
