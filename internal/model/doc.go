// Package model defines the entities shared by the comparison core: passes,
// revisions, colors, stored resources and visual comparisons, together with
// the error taxonomy used across packages.
package model
