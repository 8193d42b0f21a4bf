package artifact

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"sort"
)

// Reader memory-maps-by-copy a zones.db file (a plain []byte read via
// os.ReadFile is adequate at this file's size — tens of MB at most —
// and keeps the lookup path allocation-free after construction) and
// supports binary search by h3_index.
type Reader struct {
	data []byte
}

// Open validates the header and loads path for lookups.
func Open(path string) (*Reader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading artifact: %w", err)
	}
	if len(data) < headerSize {
		return nil, fmt.Errorf("artifact too short: %d bytes", len(data))
	}
	if !bytes.Equal(data[0:8], Magic[:]) {
		return nil, fmt.Errorf("bad artifact magic")
	}

	count := binary.LittleEndian.Uint64(data[8:16])
	want := headerSize + int(count)*recordSize
	if len(data) != want {
		return nil, fmt.Errorf("artifact size %d does not match header record_count %d (want %d bytes)", len(data), count, want)
	}

	return &Reader{data: data}, nil
}

// RecordCount returns the number of records the header declares.
func (r *Reader) RecordCount() uint64 {
	return binary.LittleEndian.Uint64(r.data[8:16])
}

func (r *Reader) recordAt(i int) Record {
	off := headerSize + i*recordSize
	rec := r.data[off : off+recordSize]
	return Record{
		H3:       binary.LittleEndian.Uint64(rec[0:8]),
		Zone:     rec[8],
		Radiance: math.Float32frombits(binary.LittleEndian.Uint32(rec[9:13])),
		SQM:      math.Float32frombits(binary.LittleEndian.Uint32(rec[13:17])),
	}
}

// Lookup binary-searches for h3 and reports the matching record, if
// any.
func (r *Reader) Lookup(h3 uint64) (Record, bool) {
	n := int(r.RecordCount())
	i := sort.Search(n, func(i int) bool {
		off := headerSize + i*recordSize
		return binary.LittleEndian.Uint64(r.data[off:off+8]) >= h3
	})
	if i < n {
		rec := r.recordAt(i)
		if rec.H3 == h3 {
			return rec, true
		}
	}
	return Record{}, false
}
