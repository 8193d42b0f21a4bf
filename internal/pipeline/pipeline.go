// Package pipeline drives the strip-by-strip raster scans (baseline
// and scatter-enhanced) that feed the accumulator, following the
// memory-safety and resumability rules described in SPEC_FULL.md §4.
package pipeline

import (
	"errors"
	"fmt"
	"log"
	"runtime"

	"github.com/duskmap/zonesdb/internal/accumulator"
	"github.com/duskmap/zonesdb/internal/downsample"
	"github.com/duskmap/zonesdb/internal/hexgrid"
	"github.com/duskmap/zonesdb/internal/raster"
	"github.com/duskmap/zonesdb/internal/rowpool"
	"github.com/duskmap/zonesdb/internal/zone"
)

// Config holds the tunables both scans share.
type Config struct {
	MinRadiance    float32
	Zone2Threshold float32
	StripRows      int
	ReopenInterval int
	GCInterval     int
	Verbose        bool
}

// Stats reports what a scan did, for the CLI's summary line.
type Stats struct {
	StripsProcessed int64
	StripsSkipped   int64
	PixelsProjected int64
	PixelsRejected  int64 // out-of-domain lat/lon or hex-projection failures
}

// ScatterLookup supplies the enhanced scan's nearest-neighbour scatter
// value for a given fine-raster pixel. internal/scatter's convolved
// Grid satisfies this via the adapter NewScatterLookup returns.
type ScatterLookup interface {
	At(fineRow, fineCol int) float32
}

// gridLookup adapts a downsample.Grid (coarse resolution) to
// ScatterLookup (fine-pixel coordinates), per SPEC_FULL.md §4.E's
// nearest-neighbour rule.
type gridLookup struct {
	grid   *downsample.Grid
	factor int
}

// NewScatterLookup builds the fine->coarse nearest-neighbour adapter
// the Enhanced Scan uses to read the convolved scatter map.
func NewScatterLookup(grid *downsample.Grid, factor int) ScatterLookup {
	return &gridLookup{grid: grid, factor: factor}
}

func (g *gridLookup) At(fineRow, fineCol int) float32 {
	cr := fineRow / g.factor
	cc := fineCol / g.factor
	if cr >= g.grid.Height {
		cr = g.grid.Height - 1
	}
	if cc >= g.grid.Width {
		cc = g.grid.Width - 1
	}
	return g.grid.At(cr, cc)
}

// RunBaseline implements the Baseline Scan (SPEC_FULL.md §4.B): strip
// iteration with resumability, threshold masking, hex projection, and
// max-reduce upsert into acc.
func RunBaseline(path string, acc *accumulator.Accumulator, cfg Config) (Stats, error) {
	return runScan(path, acc, cfg, "Baseline", nil)
}

// RunEnhanced implements the Enhanced Scan (SPEC_FULL.md §4.E): clears
// progress first, then re-scans adding a nearest-neighbour scatter value
// to every fine pixel before thresholding and projection.
func RunEnhanced(path string, acc *accumulator.Accumulator, cfg Config, scatter ScatterLookup) (Stats, error) {
	if err := acc.ClearProgress(); err != nil {
		return Stats{}, fmt.Errorf("clearing progress for enhanced scan: %w", err)
	}
	return runScan(path, acc, cfg, "Enhanced", scatter)
}

func runScan(path string, acc *accumulator.Accumulator, cfg Config, label string, scatter ScatterLookup) (Stats, error) {
	r, err := raster.Open(path)
	if err != nil {
		return Stats{}, err
	}
	defer r.Close()

	width, height := r.Dimensions()
	affine, hasGeo := r.Affine()
	if !hasGeo {
		return Stats{}, fmt.Errorf("%w: raster carries no GeoTIFF tiepoint/scale tags", raster.ErrUnsupportedFormat)
	}

	numStrips := (height + cfg.StripRows - 1) / cfg.StripRows

	completed, err := acc.CompletedStrips()
	if err != nil {
		return Stats{}, fmt.Errorf("reading completed strips: %w", err)
	}

	pb := newProgressBar(label, int64(numStrips))
	defer pb.Finish()

	var stats Stats
	processedSinceReopen := 0
	processedSinceGC := 0

	for stripIdx := 0; stripIdx < numStrips; stripIdx++ {
		if completed[stripIdx] {
			stats.StripsSkipped++
			pb.Increment()
			continue
		}

		startRow := stripIdx * cfg.StripRows
		rows := cfg.StripRows
		if startRow+rows > height {
			rows = height - startRow
		}

		var data []float32
		r, data, err = readStripWithRetry(r, path, startRow, rows)
		if err != nil {
			return stats, fmt.Errorf("%s scan: reading strip %d: %w", label, stripIdx, err)
		}

		rowsOut, projected, rejected := processStrip(data, startRow, rows, width, affine, cfg, scatter)
		rowpool.Put(data)

		if err := acc.MarkStrip(stripIdx, rowsOut); err != nil {
			return stats, fmt.Errorf("%s scan: committing strip %d: %w", label, stripIdx, err)
		}

		stats.StripsProcessed++
		stats.PixelsProjected += projected
		stats.PixelsRejected += rejected
		pb.Increment()

		processedSinceReopen++
		processedSinceGC++

		if cfg.ReopenInterval > 0 && processedSinceReopen >= cfg.ReopenInterval {
			var reopenErr error
			r, reopenErr = reopenReader(r, path)
			if reopenErr != nil {
				return stats, fmt.Errorf("%s scan: reopening reader after strip %d: %w", label, stripIdx, reopenErr)
			}
			processedSinceReopen = 0
		}

		if cfg.GCInterval > 0 && processedSinceGC >= cfg.GCInterval {
			runtime.GC()
			processedSinceGC = 0
			if cfg.Verbose {
				log.Printf("%s scan: %d/%d strips, %d cells projected", label, stripIdx+1, numStrips, stats.PixelsProjected)
			}
		}
	}

	return stats, nil
}

// readStripWithRetry reads a window, retrying once on
// ErrTransientDecoder (SPEC_FULL.md §7). A failed read has already
// consumed bytes of the forward-only stream, so the same reader cannot
// re-read the window: the reader is closed and re-opened, and the read
// is attempted once more against the fresh reader. The reader to keep
// using is returned alongside the data.
func readStripWithRetry(r *raster.Reader, path string, startRow, rows int) (*raster.Reader, []float32, error) {
	data, err := r.ReadRows(startRow, rows)
	if err == nil {
		return r, data, nil
	}
	if !errors.Is(err, raster.ErrTransientDecoder) {
		return r, nil, err
	}
	fresh, reopenErr := reopenReader(r, path)
	if reopenErr != nil {
		return nil, nil, reopenErr
	}
	data, err = fresh.ReadRows(startRow, rows)
	return fresh, data, err
}

// stripMax reports the largest sample in data, used by the baseline
// scan's global short-circuit: a strip whose maximum never reaches
// MinRadiance contributes nothing, so it's skipped without walking
// every pixel through the affine/hex projection.
func stripMax(data []float32) float32 {
	var m float32
	for _, v := range data {
		if v > m {
			m = v
		}
	}
	return m
}

func reopenReader(old *raster.Reader, path string) (*raster.Reader, error) {
	if err := old.Close(); err != nil {
		return nil, fmt.Errorf("closing reader: %w", err)
	}
	return raster.Open(path)
}

// processStrip applies the masking/projection/upsert-row-building
// shared by both scans, differing only in whether a ScatterLookup adds
// nearest-neighbour scatter before thresholding.
func processStrip(data []float32, startRow, rows, width int, affine raster.Affine, cfg Config, scatter ScatterLookup) (rowsOut []accumulator.Row, projected, rejected int64) {
	if scatter == nil && stripMax(data) <= cfg.MinRadiance {
		return nil, 0, 0
	}

	for localRow := 0; localRow < rows; localRow++ {
		fineRow := startRow + localRow
		base := localRow * width
		for col := 0; col < width; col++ {
			v := data[base+col]
			if scatter != nil {
				v += scatter.At(fineRow, col)
			}
			if v <= cfg.MinRadiance || v < cfg.Zone2Threshold {
				continue
			}

			lon, lat := affine.PixelToLonLat(fineRow, col)
			if !hexgrid.Valid(lat, lon) {
				rejected++
				continue
			}

			id, err := hexgrid.FromLatLng(lat, lon)
			if err != nil {
				rejected++
				continue
			}

			rowsOut = append(rowsOut, accumulator.Row{
				H3:       id,
				Zone:     zone.FromRadiance(v),
				Radiance: v,
			})
			projected++
		}
	}
	return rowsOut, projected, rejected
}
