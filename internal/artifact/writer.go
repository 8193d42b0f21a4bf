package artifact

import (
	"bufio"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/duskmap/zonesdb/internal/accumulator"
	"github.com/duskmap/zonesdb/internal/zone"
)

// digestChunkSize is the read buffer size for the post-write SHA-256
// pass (SPEC_FULL.md §4.F: "8 KiB chunks").
const digestChunkSize = 8 * 1024

// Writer streams the accumulator's sorted cells into a zones.db file:
// header placeholder first, then records in ascending h3_index order,
// then the record_count is patched back in.
type Writer struct {
	path string
	f    *os.File
	bw   *bufio.Writer

	recordCount uint64
}

// Create truncates (or creates) path and writes the magic plus a
// placeholder record_count, ready for WriteRow/WriteAll calls.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating artifact file: %w", err)
	}

	w := &Writer{path: path, f: f, bw: bufio.NewWriterSize(f, 1<<20)}
	if _, err := w.bw.Write(Magic[:]); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing magic: %w", err)
	}
	var placeholder [8]byte
	if _, err := w.bw.Write(placeholder[:]); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing record_count placeholder: %w", err)
	}

	return w, nil
}

// WriteRow encodes one accumulator row as a 20-byte record, skipping
// implicit Zone 1 cells (zone <= 1). Rows must arrive in ascending
// h3_index order — the caller (internal/accumulator's IterCellsSorted)
// already guarantees this.
func (w *Writer) WriteRow(row accumulator.Row) error {
	z := zone.FromRadiance(row.Radiance)
	if z <= 1 {
		return nil
	}
	sqm := zone.SQM(row.Radiance)

	var buf [recordSize]byte
	binary.LittleEndian.PutUint64(buf[0:8], uint64(row.H3))
	buf[8] = z
	binary.LittleEndian.PutUint32(buf[9:13], math.Float32bits(row.Radiance))
	binary.LittleEndian.PutUint32(buf[13:17], math.Float32bits(sqm))
	// buf[17:20] left as zero padding.

	if _, err := w.bw.Write(buf[:]); err != nil {
		return fmt.Errorf("writing record for cell %d: %w", row.H3, err)
	}
	w.recordCount++
	return nil
}

// WriteAll streams every row acc holds through WriteRow, in the
// ascending h3_index order IterCellsSorted already provides.
func (w *Writer) WriteAll(acc *accumulator.Accumulator) error {
	return acc.IterCellsSorted(w.WriteRow)
}

// Close flushes buffered writes, patches the record_count header
// field, and closes the file.
func (w *Writer) Close() error {
	if err := w.bw.Flush(); err != nil {
		w.f.Close()
		return fmt.Errorf("flushing artifact writer: %w", err)
	}

	var countBuf [8]byte
	binary.LittleEndian.PutUint64(countBuf[:], w.recordCount)
	if _, err := w.f.WriteAt(countBuf[:], 8); err != nil {
		w.f.Close()
		return fmt.Errorf("patching record_count: %w", err)
	}

	return w.f.Close()
}

// RecordCount returns the number of records written so far.
func (w *Writer) RecordCount() uint64 {
	return w.recordCount
}

// Digest computes the SHA-256 of the file at path in fixed-size
// chunks, for the post-write integrity log line.
func Digest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening artifact for digest: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, digestChunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("hashing artifact: %w", err)
	}

	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
