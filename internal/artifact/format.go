// Package artifact reads and writes the zones.db binary format:
// a fixed 16-byte header followed by sorted, fixed-width 20-byte
// records, suitable for memory-mapped binary search downstream.
package artifact

// Magic identifies the file format. The trailing three zero bytes
// round the field out to 8 bytes alongside the "ASTR\x01" version tag.
var Magic = [8]byte{'A', 'S', 'T', 'R', 0x01, 0x00, 0x00, 0x00}

const (
	headerSize = 16 // magic (8) + record_count (8)
	recordSize = 20 // h3 (8) + zone (1) + radiance (4) + sqm (4) + padding (3)
)

// Record is one decoded artifact entry.
type Record struct {
	H3       uint64
	Zone     uint8
	Radiance float32
	SQM      float32
}
