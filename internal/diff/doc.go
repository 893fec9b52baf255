// Package diff computes two-color difference masks between equally sized
// rasters and the share of pixels that changed.
//
// The change percentage is returned unrounded; RoundChange applies the
// reporting rule: two decimal places, and never 0.0 when anything changed.
package diff
