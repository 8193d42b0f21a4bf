package raster

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sort"
)

// TIFF tag IDs this reader understands. Only the baseline/strip subset
// is parsed — no tile tags, no COG-specific tags — because the source
// format this pipeline reads is a single-IFD, strip-organized,
// uncompressed TIFF wrapped in gzip (see SPEC_FULL.md Open Question 3/4).
const (
	tagImageWidth         = 256
	tagImageLength        = 257
	tagBitsPerSample      = 258
	tagCompression        = 259
	tagSamplesPerPixel    = 277
	tagRowsPerStrip       = 278
	tagStripOffsets       = 273
	tagStripByteCounts    = 279
	tagSampleFormat       = 339
	tagModelPixelScaleTag = 33550
	tagModelTiepointTag   = 33922
)

const (
	dtByte     = 1
	dtShort    = 3
	dtLong     = 4
	dtRational = 5
	dtSShort   = 8
	dtSLong    = 9
	dtFloat    = 11
	dtDouble   = 12
)

var typeSize = map[uint16]uint32{
	dtByte: 1, dtShort: 2, dtLong: 4, dtRational: 8,
	dtSShort: 2, dtSLong: 4, dtFloat: 4, dtDouble: 8,
}

// ifdInfo holds everything downstream raster code needs from the TIFF
// directory: dimensions, sample layout, strip locations, and the raw
// GeoTIFF georeferencing tags (affine transform is derived in geotags.go).
type ifdInfo struct {
	Width, Height   uint32
	BitsPerSample   uint16
	SampleFormat    uint16
	Compression     uint16
	RowsPerStrip    uint32
	StripOffsets    []uint64
	StripByteCounts []uint64

	ModelPixelScale []float64
	ModelTiepoint   []float64
}

type rawEntry struct {
	tag      uint16
	datatype uint16
	count    uint32
	// inline holds the 4-byte value/offset field of the directory entry,
	// still in file byte order, not yet decoded.
	inline [4]byte
}

func (e *rawEntry) fitsInline() bool {
	sz, ok := typeSize[e.datatype]
	if !ok {
		return true // unknown type: treat as opaque, skip
	}
	return sz*e.count <= 4
}

// parseIFD reads the TIFF header and first (only) IFD from a forward-only
// counting reader. Array-valued entries whose data overflows the 4-byte
// inline field are resolved in increasing file-offset order, since the
// underlying stream cannot seek backward.
func parseIFD(cr *countingReader) (*ifdInfo, binary.ByteOrder, error) {
	var header [8]byte
	if _, err := io.ReadFull(cr, header[:]); err != nil {
		return nil, nil, fmt.Errorf("%w: reading TIFF header: %v", ErrUnsupportedFormat, err)
	}

	var bo binary.ByteOrder
	switch string(header[0:2]) {
	case "II":
		bo = binary.LittleEndian
	case "MM":
		bo = binary.BigEndian
	default:
		return nil, nil, fmt.Errorf("%w: bad byte-order marker %q", ErrUnsupportedFormat, header[0:2])
	}

	if magic := bo.Uint16(header[2:4]); magic != 42 {
		return nil, nil, fmt.Errorf("%w: bad TIFF magic %d (BigTIFF unsupported)", ErrUnsupportedFormat, magic)
	}

	ifdOffset := uint64(bo.Uint32(header[4:8]))
	if err := cr.discardTo(ifdOffset); err != nil {
		return nil, nil, fmt.Errorf("%w: seeking to IFD: %v", ErrUnsupportedFormat, err)
	}

	var countBuf [2]byte
	if _, err := io.ReadFull(cr, countBuf[:]); err != nil {
		return nil, nil, fmt.Errorf("%w: reading IFD entry count: %v", ErrUnsupportedFormat, err)
	}
	numEntries := bo.Uint16(countBuf[:])

	entries := make([]rawEntry, numEntries)
	for i := range entries {
		var buf [12]byte
		if _, err := io.ReadFull(cr, buf[:]); err != nil {
			return nil, nil, fmt.Errorf("%w: reading IFD entry %d: %v", ErrUnsupportedFormat, i, err)
		}
		e := rawEntry{
			tag:      bo.Uint16(buf[0:2]),
			datatype: bo.Uint16(buf[2:4]),
			count:    bo.Uint32(buf[4:8]),
		}
		copy(e.inline[:], buf[8:12])
		entries[i] = e
	}

	info := &ifdInfo{BitsPerSample: 32, SampleFormat: 1, Compression: 1}
	return resolveEntries(cr, bo, entries, info)
}

// resolveEntries decodes each directory entry, fetching overflow array
// data from the stream in ascending offset order.
func resolveEntries(cr *countingReader, bo binary.ByteOrder, entries []rawEntry, info *ifdInfo) (*ifdInfo, binary.ByteOrder, error) {
	type overflow struct {
		entry  *rawEntry
		offset uint64
	}
	var overflows []overflow

	for i := range entries {
		e := &entries[i]
		if e.fitsInline() {
			applyInline(bo, e, info)
			continue
		}
		offset := uint64(bo.Uint32(e.inline[:]))
		overflows = append(overflows, overflow{e, offset})
	}

	sort.Slice(overflows, func(i, j int) bool { return overflows[i].offset < overflows[j].offset })

	for _, ov := range overflows {
		if err := cr.discardTo(ov.offset); err != nil {
			return nil, nil, fmt.Errorf("%w: seeking to tag %d data: %v", ErrUnsupportedFormat, ov.entry.tag, err)
		}
		if err := applyArray(cr, bo, ov.entry, info); err != nil {
			return nil, nil, err
		}
	}

	if info.Width == 0 || info.Height == 0 {
		return nil, nil, fmt.Errorf("%w: missing ImageWidth/ImageLength", ErrUnsupportedFormat)
	}
	if info.Compression != 1 {
		return nil, nil, fmt.Errorf("%w: compressed TIFF strips (compression=%d) are not supported; expected an outer-gzip-only .tif.gz", ErrUnsupportedFormat, info.Compression)
	}
	if info.SampleFormat != 3 || info.BitsPerSample != 32 {
		return nil, nil, fmt.Errorf("%w: expected 32-bit IEEE float samples, got format=%d bits=%d", ErrUnsupportedFormat, info.SampleFormat, info.BitsPerSample)
	}
	if len(info.StripOffsets) == 0 || len(info.StripOffsets) != len(info.StripByteCounts) {
		return nil, nil, fmt.Errorf("%w: missing or mismatched strip layout", ErrUnsupportedFormat)
	}

	return info, bo, nil
}

func applyInline(bo binary.ByteOrder, e *rawEntry, info *ifdInfo) {
	scalar := func() uint32 {
		switch e.datatype {
		case dtShort:
			return uint32(bo.Uint16(e.inline[:2]))
		case dtLong:
			return bo.Uint32(e.inline[:4])
		}
		return 0
	}

	switch e.tag {
	case tagImageWidth:
		info.Width = scalar()
	case tagImageLength:
		info.Height = scalar()
	case tagBitsPerSample:
		info.BitsPerSample = uint16(scalar())
	case tagCompression:
		info.Compression = uint16(scalar())
	case tagSampleFormat:
		info.SampleFormat = uint16(scalar())
	case tagRowsPerStrip:
		info.RowsPerStrip = scalar()
	case tagStripOffsets:
		if e.count == 1 {
			info.StripOffsets = []uint64{uint64(scalar())}
		}
	case tagStripByteCounts:
		if e.count == 1 {
			info.StripByteCounts = []uint64{uint64(scalar())}
		}
	}
}

func applyArray(cr *countingReader, bo binary.ByteOrder, e *rawEntry, info *ifdInfo) error {
	switch e.tag {
	case tagStripOffsets:
		vals, err := readUintArray(cr, bo, e.datatype, e.count)
		if err != nil {
			return fmt.Errorf("%w: strip offsets: %v", ErrUnsupportedFormat, err)
		}
		info.StripOffsets = vals
	case tagStripByteCounts:
		vals, err := readUintArray(cr, bo, e.datatype, e.count)
		if err != nil {
			return fmt.Errorf("%w: strip byte counts: %v", ErrUnsupportedFormat, err)
		}
		info.StripByteCounts = vals
	case tagModelPixelScaleTag:
		vals, err := readFloat64Array(cr, bo, e.count)
		if err != nil {
			return fmt.Errorf("%w: ModelPixelScale: %v", ErrUnsupportedFormat, err)
		}
		info.ModelPixelScale = vals
	case tagModelTiepointTag:
		vals, err := readFloat64Array(cr, bo, e.count)
		if err != nil {
			return fmt.Errorf("%w: ModelTiepoint: %v", ErrUnsupportedFormat, err)
		}
		info.ModelTiepoint = vals
	default:
		// Unknown overflow tag: skip its bytes to keep the stream position
		// consistent for the next (higher-offset) overflow entry.
		sz, ok := typeSize[e.datatype]
		if !ok {
			return nil
		}
		_, err := io.CopyN(io.Discard, cr, int64(sz*e.count))
		return err
	}
	return nil
}

func readUintArray(cr *countingReader, bo binary.ByteOrder, datatype uint16, count uint32) ([]uint64, error) {
	out := make([]uint64, count)
	switch datatype {
	case dtShort:
		buf := make([]byte, 2*count)
		if _, err := io.ReadFull(cr, buf); err != nil {
			return nil, err
		}
		for i := range out {
			out[i] = uint64(bo.Uint16(buf[i*2:]))
		}
	case dtLong:
		buf := make([]byte, 4*count)
		if _, err := io.ReadFull(cr, buf); err != nil {
			return nil, err
		}
		for i := range out {
			out[i] = uint64(bo.Uint32(buf[i*4:]))
		}
	default:
		return nil, fmt.Errorf("unsupported integer array datatype %d", datatype)
	}
	return out, nil
}

func readFloat64Array(cr *countingReader, bo binary.ByteOrder, count uint32) ([]float64, error) {
	buf := make([]byte, 8*count)
	if _, err := io.ReadFull(cr, buf); err != nil {
		return nil, err
	}
	out := make([]float64, count)
	for i := range out {
		bits := bo.Uint64(buf[i*8:])
		out[i] = math.Float64frombits(bits)
	}
	return out, nil
}
