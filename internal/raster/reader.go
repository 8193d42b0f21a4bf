// Package raster presents a memory-safe streaming view over a (possibly
// gzip-wrapped) single-band float32 GeoTIFF: strip-by-strip forward reads
// over a decompressor that never materializes the whole file in memory.
//
// The reader is forward-only: strips must be requested in non-decreasing
// index order within one Open/Close lifetime. This matches the only
// access pattern the pipeline ever needs (top-to-bottom strip scans), and
// lets the decompressor run as a true streaming pass rather than an
// mmap-style random-access structure the uncompressed raster is too large
// to support (see DESIGN.md).
package raster

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/duskmap/zonesdb/internal/rowpool"
)

// Reader provides strip-level access to one raster file.
type Reader struct {
	path   string
	cr     *countingReader
	closer io.Closer
	bo     binary.ByteOrder

	info   *ifdInfo
	affine Affine
	hasGeo bool

	// lastStripIdx/lastStripData cache the most recently decoded TIFF
	// strip. A scan window's boundary rarely lines up with a TIFF
	// strip's boundary, so consecutive ReadRows calls often need the
	// tail of a strip the previous call already consumed off the
	// stream; re-serving it from here avoids asking the forward-only
	// decompressor to seek backward.
	lastStripIdx  int
	lastStripData []float32
}

// Open opens path, parses its TIFF header/IFD, and positions the stream
// immediately after the directory — ready for ReadRows calls in
// ascending row order.
func Open(path string) (*Reader, error) {
	cr, closer, err := openDecompressed(path)
	if err != nil {
		return nil, err
	}

	info, bo, err := parseIFD(cr)
	if err != nil {
		closer.Close()
		return nil, err
	}

	affine, hasGeo := deriveAffine(info)

	return &Reader{
		path:         path,
		cr:           cr,
		closer:       closer,
		bo:           bo,
		info:         info,
		affine:       affine,
		hasGeo:       hasGeo,
		lastStripIdx: -1,
	}, nil
}

// Close releases the decompressor and underlying file handle.
func (r *Reader) Close() error {
	return r.closer.Close()
}

// Dimensions returns (width, height) in pixels.
func (r *Reader) Dimensions() (width, height int) {
	return int(r.info.Width), int(r.info.Height)
}

// Affine returns the pixel→(lon,lat) transform. The second return value
// is false if the source TIFF carried no GeoTIFF tiepoint/scale tags.
func (r *Reader) Affine() (Affine, bool) {
	return r.affine, r.hasGeo
}

// RowsPerStrip returns the nominal strip height from the TIFF layout
// (the pipeline's own strip size, spec.md's 200-row scan strip, is
// independent of this and is handled by internal/pipeline).
func (r *Reader) RowsPerStrip() int {
	return int(r.info.RowsPerStrip)
}

// NumTIFFStrips returns the number of strips in the underlying TIFF
// layout.
func (r *Reader) NumTIFFStrips() int {
	return len(r.info.StripOffsets)
}

// ReadRows reads `numRows` consecutive raster rows starting at row
// `startRow` and returns them as a flat row-major
// []float32 of length numRows*width. The caller must request rows in
// strictly increasing order (no backward re-reads within one Open
// lifetime); reopening the reader (Close + Open) is the only way to
// restart from the top.
//
// Negative samples (no-data sentinels in the source) are coerced to 0,
// per spec.md §3.
//
// The returned slice comes from internal/rowpool; callers that process
// it and discard it promptly should rowpool.Put it back rather than
// letting it fall to the GC.
func (r *Reader) ReadRows(startRow, numRows int) ([]float32, error) {
	width := int(r.info.Width)
	height := int(r.info.Height)
	if startRow < 0 || numRows <= 0 || startRow+numRows > height {
		return nil, fmt.Errorf("%w: rows [%d,%d) outside [0,%d)", ErrWindowOutOfBounds, startRow, startRow+numRows, height)
	}

	out := rowpool.Get(numRows * width)
	rps := int(r.info.RowsPerStrip)
	if rps <= 0 {
		return nil, fmt.Errorf("%w: rows-per-strip is zero", ErrUnsupportedFormat)
	}

	row := startRow
	for row < startRow+numRows {
		stripIdx := row / rps
		if stripIdx >= len(r.info.StripOffsets) {
			return nil, fmt.Errorf("%w: row %d has no backing strip", ErrWindowOutOfBounds, row)
		}
		stripFirstRow := stripIdx * rps
		stripRows := rps
		if stripFirstRow+stripRows > height {
			stripRows = height - stripFirstRow
		}

		stripData, err := r.readStripBytes(stripIdx, stripRows, width)
		if err != nil {
			return nil, err
		}

		// Copy the overlap between [row, startRow+numRows) and this strip's
		// row range into the output buffer.
		copyFirst := row - stripFirstRow
		copyRows := stripRows - copyFirst
		if maxRows := startRow + numRows - row; copyRows > maxRows {
			copyRows = maxRows
		}
		srcOff := copyFirst * width
		dstOff := (row - startRow) * width
		n := copyRows * width
		copy(out[dstOff:dstOff+n], stripData[srcOff:srcOff+n])

		row += copyRows
	}

	return out, nil
}

// readStripBytes fast-forwards the stream to the given TIFF strip and
// decodes it into row-major float32 samples, coercing negatives to 0.
// A strip already decoded for the previous call is served from
// lastStripData instead of re-reading, since the underlying stream has
// already advanced past its bytes.
func (r *Reader) readStripBytes(stripIdx, stripRows, width int) ([]float32, error) {
	if stripIdx == r.lastStripIdx {
		return r.lastStripData, nil
	}

	offset := r.info.StripOffsets[stripIdx]
	byteCount := r.info.StripByteCounts[stripIdx]

	if err := r.cr.discardTo(offset); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransientDecoder, err)
	}

	raw := make([]byte, byteCount)
	if _, err := io.ReadFull(r.cr, raw); err != nil {
		return nil, fmt.Errorf("%w: reading strip %d: %v", ErrTransientDecoder, stripIdx, err)
	}

	wantSamples := stripRows * width
	if len(raw) < wantSamples*4 {
		return nil, fmt.Errorf("%w: strip %d short: got %d bytes, want %d", ErrUnsupportedFormat, stripIdx, len(raw), wantSamples*4)
	}

	out := make([]float32, wantSamples)
	for i := range out {
		bits := r.bo.Uint32(raw[i*4:])
		out[i] = math.Float32frombits(bits)
	}
	for i, v := range out {
		if v < 0 {
			out[i] = 0
		}
	}

	r.lastStripIdx = stripIdx
	r.lastStripData = out
	return out, nil
}
