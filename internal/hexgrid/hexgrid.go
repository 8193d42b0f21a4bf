// Package hexgrid projects WGS-84 coordinates onto Uber's H3 hexagonal
// Earth grid at a fixed resolution and exposes the cell identity as the
// unsigned 64-bit integer the rest of the pipeline uses as a key.
package hexgrid

import (
	"fmt"

	h3 "github.com/uber/h3-go/v4"
)

// Resolution is the H3 resolution used for every hex cell in this
// pipeline (~0.74 km edge, ~0.46 km² area). Fixed by spec.md §3; not
// configurable, since the artifact format has no per-record resolution
// field.
const Resolution = 8

// CellID is the canonical H3 index, interpreted as an unsigned 64-bit
// integer (little-endian on disk — see internal/artifact).
type CellID uint64

// FromLatLng projects a coordinate onto the resolution-8 H3 grid.
// Returns an error if lat/lng are non-finite or outside H3's domain.
func FromLatLng(lat, lon float64) (CellID, error) {
	cell := h3.LatLngToCell(h3.NewLatLng(lat, lon), Resolution)
	if cell == 0 {
		return 0, fmt.Errorf("hexgrid: invalid projection for (%v, %v)", lat, lon)
	}
	return CellID(cell), nil
}

// Valid reports whether (lat, lon) lies within the domain spec.md §3
// requires samples to fall in before projection: lat in [-85, 85],
// lon in [-180, 180].
func Valid(lat, lon float64) bool {
	return lat >= -85 && lat <= 85 && lon >= -180 && lon <= 180
}
