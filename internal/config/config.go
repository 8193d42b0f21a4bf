// Package config holds the typed, explicitly-threaded tunables for the
// zones pipeline. There is no package-level mutable state: a Config value
// is built once by the CLI layer and passed down into the scan and kernel
// builders that need it.
package config

// Config collects every tunable the pipeline's components need. Zero
// value is not valid; use Default() and override individual fields.
type Config struct {
	// MinRadiance is the baseline-scan short-circuit threshold (nW·cm⁻²·sr⁻¹).
	// A strip whose maximum sample is at or below this is skipped entirely.
	MinRadiance float32

	// Zone2Threshold is the minimum radiance retained in the accumulator;
	// anything below it is an implicit Zone 1 and is never stored.
	Zone2Threshold float32

	// StripRows is the number of raster rows processed per strip.
	StripRows int

	// ReopenInterval is the number of strips between forced close/reopen
	// of the raster reader, bounding decoder buffer growth.
	ReopenInterval int

	// GCInterval is the number of strips between forced transient-buffer
	// collection and progress refresh.
	GCInterval int

	// Downsample is the block size (in fine-raster pixels per side) used
	// to build the coarse grid for scatter convolution.
	Downsample int

	// DownsampleBatchRows is the number of fine-raster rows read per
	// downsampling batch (must be a multiple of Downsample).
	DownsampleBatchRows int

	// PixelKM is the ground size of one coarse (downsampled) pixel, in
	// kilometers — the resolution the scatter PSF is built at.
	PixelKM float64

	// Scatter PSF parameters (Garstang-style).
	ScatterFraction   float64 // F
	ScatterScaleKM    float64 // S
	ScatterRefKM      float64 // D_ref
	ScatterPower      float64 // p
	ScatterMaxRadiusKM float64

	// ArtifactBatchSize is a row-batch size for artifact writing. No
	// component reads it: internal/artifact streams every row from one
	// sorted accumulator query, without batching.
	ArtifactBatchSize int

	// AccumulatorCacheBytes is the requested SQLite page-cache size, in
	// bytes. 0 makes the CLI size it from system RAM via internal/sysinfo.
	AccumulatorCacheBytes int64

	Verbose bool
}

// Default returns the spec-documented defaults.
func Default() Config {
	return Config{
		MinRadiance:         0.1,
		Zone2Threshold:      0.25,
		StripRows:           200,
		ReopenInterval:      25,
		GCInterval:          5,
		Downsample:          12,
		DownsampleBatchRows: 12 * 20,
		PixelKM:             5.55,
		ScatterFraction:     0.12,
		ScatterScaleKM:      20,
		ScatterRefKM:        10,
		ScatterPower:        2.5,
		ScatterMaxRadiusKM:  80,
		ArtifactBatchSize:   100_000,
	}
}
