package model

import (
	"time"

	"artdiff/pkg/geometry"
	"artdiff/pkg/opt"
)

// ArtPass is a stage instance in the production pipeline. Its position in the
// pipeline is owned by the topology collaborator.
type ArtPass struct {
	ID                 string   `json:"id" yaml:"id"`
	Name               string   `json:"name" yaml:"name"`
	VisibilityTags     TagSet   `json:"visibility_tags" yaml:"visibility_tags"`
	ProcessingComplete bool     `json:"processing_complete" yaml:"processing_complete"`
	ServiceOfferings   []string `json:"service_offerings,omitempty" yaml:"service_offerings,omitempty"`
}

// ProcessingContext describes the step that produced a revision: the process
// set's pass and service offerings, and the step's type key.
type ProcessingContext struct {
	StepID              string
	StepTypeKey         string
	PassID              string
	ServiceOfferingKeys []string
}

// ArtRevision is a visual snapshot of a pass at a version, bounds and resolution.
type ArtRevision struct {
	ID          string                     `json:"id"`
	PassID      string                     `json:"pass_id"`
	VersionKey  string                     `json:"version_key"`
	ServiceTags TagSet                     `json:"service_tags"`
	Bounds      opt.Value[geometry.Bounds] `json:"bounds"`
	Resolution  opt.Value[int]             `json:"resolution"`
	Preview     opt.Value[string]          `json:"preview"`
	StepID      opt.Value[string]          `json:"step_id"`
	CreatedAt   time.Time                  `json:"created_at"`
}

// HasTag reports whether the revision carries the service tag.
func (r *ArtRevision) HasTag(tag string) bool {
	return r.ServiceTags.Has(tag)
}

// ColorModel is a named color model such as rgb or cmyk.
type ColorModel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ColorKey is the canonical identity of a color.
type ColorKey struct {
	Values  string `json:"values"`
	ModelID string `json:"model_id"`
	Type    string `json:"type"`
}

// Color is a de-duplicated color definition.
type Color struct {
	ID  string   `json:"id"`
	Key ColorKey `json:"key"`
}

// StoredResource is a raster held by the raster store.
type StoredResource struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Size returns the resource's pixel size.
func (r *StoredResource) Size() geometry.Size {
	return geometry.Size{Width: r.Width, Height: r.Height}
}

// ComparisonType is derived from revision A's tags.
type ComparisonType string

const (
	ComparisonValidation ComparisonType = "validation"
	ComparisonPassReview ComparisonType = "pass_review"
	ComparisonOther      ComparisonType = "other"
)

// VisualComparison links two revisions and, once generated, their difference.
type VisualComparison struct {
	ID                string             `json:"id"`
	RevisionA         string             `json:"revision_a"`
	RevisionB         string             `json:"revision_b"`
	DifferencePreview opt.Value[string]  `json:"difference_preview"`
	Change            opt.Value[float64] `json:"change"`
	CreatedAt         time.Time          `json:"created_at"`
}

// Generated reports whether the difference fields have been populated.
func (c *VisualComparison) Generated() bool {
	return c.DifferencePreview.IsSet() || c.Change.IsSet()
}

// TypeOf derives the comparison type from revision A.
func TypeOf(revisionA *ArtRevision) ComparisonType {
	switch {
	case revisionA == nil:
		return ComparisonOther
	case revisionA.HasTag(TagValidation):
		return ComparisonValidation
	case revisionA.HasTag(TagPassReview):
		return ComparisonPassReview
	}
	return ComparisonOther
}
