// Package zone converts radiance samples (nW·cm⁻²·sr⁻¹) into Bortle
// light-pollution zones and Sky Quality Meter (SQM) readings.
//
// Both conversions key off the same stored radiance value so that a zone
// and its SQM are always reversible from the artifact record that holds
// them (see internal/artifact). The source prototype carried a second,
// MPSAS-keyed Bortle table and a second, inconsistent SQM formula; this
// package deliberately implements only the radiance-keyed pair.
package zone

import "math"

// thresholds maps a minimum radiance to its Bortle zone, in descending
// order. Zone 1 has no lower bound and is never stored in the artifact.
var thresholds = []struct {
	min  float32
	zone uint8
}{
	{125.0, 9},
	{50.0, 8},
	{20.0, 7},
	{9.0, 6},
	{3.0, 5},
	{1.0, 4},
	{0.50, 3},
	{0.25, 2},
}

// FromRadiance returns the Bortle zone (1-9) for a radiance sample.
func FromRadiance(radiance float32) uint8 {
	for _, t := range thresholds {
		if radiance >= t.min {
			return t.zone
		}
	}
	return 1
}

// SQM returns the Sky Quality Meter value (mag/arcsec²) for a radiance
// sample, clamped to [16.0, 22.0].
func SQM(radiance float32) float32 {
	if radiance <= 0 {
		return 22.0
	}
	r := float64(radiance)
	sqm := 22.0 - 1.7*math.Log10(1+2*r)
	if sqm < 16.0 {
		return 16.0
	}
	if sqm > 22.0 {
		return 22.0
	}
	return float32(sqm)
}
