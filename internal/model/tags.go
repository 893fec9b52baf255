package model

import (
	"slices"
	"sort"
)

// Service tags and version keys with meaning to the comparison core.
const (
	TagValidation = "validation"
	TagPassReview = "pass_review"

	VersionOriginal = "original"
	VersionFinal    = "final"
)

// TagSet is a sorted, de-duplicated set of tags.
type TagSet []string

// NewTagSet builds a TagSet from arbitrary input.
func NewTagSet(tags ...string) TagSet {
	out := make(TagSet, 0, len(tags))
	for _, t := range tags {
		if t == "" {
			continue
		}
		out = append(out, t)
	}
	sort.Strings(out)
	return slices.Compact(out)
}

// Has reports whether tag is in the set.
func (s TagSet) Has(tag string) bool {
	_, ok := slices.BinarySearch(s, tag)
	return ok
}

// Empty reports whether the set has no tags.
func (s TagSet) Empty() bool { return len(s) == 0 }

// Contains reports whether every tag of other is in s.
func (s TagSet) Contains(other TagSet) bool {
	for _, t := range other {
		if !s.Has(t) {
			return false
		}
	}
	return true
}

// Overlaps reports whether s and other share at least one tag.
func (s TagSet) Overlaps(other TagSet) bool {
	for _, t := range other {
		if s.Has(t) {
			return true
		}
	}
	return false
}
