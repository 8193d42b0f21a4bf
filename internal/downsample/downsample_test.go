package downsample

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/duskmap/zonesdb/internal/raster"
)

// buildMinimalTIFF assembles the same single-IFD, single-strip, 32-bit
// float, WGS-84-tagged TIFF layout internal/raster understands. It
// intentionally duplicates reader_test.go's fixture builder rather
// than importing it, since that helper is unexported across packages.
func buildMinimalTIFF(t *testing.T, width, height, rowsPerStrip int, pixels []float32) []byte {
	t.Helper()
	require.Equal(t, width*height, len(pixels))
	require.Equal(t, 0, height%rowsPerStrip)

	const (
		dtShort  = 3
		dtLong   = 4
		dtDouble = 12
	)

	numStrips := height / rowsPerStrip
	stripBytes := rowsPerStrip * width * 4

	const numEntries = 10
	ifdStart := 8
	ifdSize := 2 + numEntries*12 + 4
	overflowStart := ifdStart + ifdSize

	stripOffOff := overflowStart
	stripCountOff := stripOffOff + numStrips*4
	pixelScaleOff := stripCountOff + numStrips*4
	tiepointOff := pixelScaleOff + 3*8
	dataStart := tiepointOff + 6*8

	stripOffsets := make([]uint32, numStrips)
	stripCounts := make([]uint32, numStrips)
	for i := 0; i < numStrips; i++ {
		stripOffsets[i] = uint32(dataStart + i*stripBytes)
		stripCounts[i] = uint32(stripBytes)
	}

	buf := new(bytes.Buffer)
	bo := binary.LittleEndian
	write := func(v interface{}) { require.NoError(t, binary.Write(buf, bo, v)) }

	buf.WriteString("II")
	write(uint16(42))
	write(uint32(ifdStart))

	type entry struct {
		tag, dtype uint16
		count      uint32
		inline     uint32
	}
	entries := []entry{
		{256, dtLong, 1, uint32(width)},
		{257, dtLong, 1, uint32(height)},
		{258, dtShort, 1, 32},
		{259, dtShort, 1, 1},
		{273, dtLong, uint32(numStrips), uint32(stripOffOff)},
		{278, dtLong, 1, uint32(rowsPerStrip)},
		{279, dtLong, uint32(numStrips), uint32(stripCountOff)},
		{339, dtShort, 1, 3},
		{33550, dtDouble, 3, uint32(pixelScaleOff)},
		{33922, dtDouble, 6, uint32(tiepointOff)},
	}
	require.Len(t, entries, numEntries)

	write(uint16(numEntries))
	for _, e := range entries {
		write(e.tag)
		write(e.dtype)
		write(e.count)
		write(e.inline)
	}
	write(uint32(0))
	require.Equal(t, overflowStart, buf.Len())

	for _, v := range stripOffsets {
		write(v)
	}
	for _, v := range stripCounts {
		write(v)
	}
	write(1.0) // pixel scale x
	write(1.0) // pixel scale y
	write(0.0)
	write(0.0) // tiepoint I
	write(0.0) // tiepoint J
	write(0.0) // tiepoint K
	write(0.0) // origin lon
	write(0.0) // origin lat
	write(0.0)

	require.Equal(t, dataStart, buf.Len())
	for _, p := range pixels {
		write(math.Float32bits(p))
	}

	return buf.Bytes()
}

func writeFlatTIFF(t *testing.T, width, height, rowsPerStrip int, pixels []float32) string {
	t.Helper()
	data := buildMinimalTIFF(t, width, height, rowsPerStrip, pixels)
	path := filepath.Join(t.TempDir(), "flat.tif")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestBuildAveragesBlocks(t *testing.T) {
	// 4x4 raster, factor 2 -> 2x2 coarse grid, each block averaging 4
	// fine pixels. Values chosen so each 2x2 block has a known mean.
	width, height, rowsPerStrip := 4, 4, 2
	pixels := []float32{
		1, 1, 2, 2,
		1, 1, 2, 2,
		3, 3, 4, 4,
		3, 3, 4, 4,
	}
	path := writeFlatTIFF(t, width, height, rowsPerStrip, pixels)

	r, err := raster.Open(path)
	require.NoError(t, err)
	defer r.Close()

	grid, err := Build(r, 2, 2)
	require.NoError(t, err)
	require.Equal(t, 2, grid.Width)
	require.Equal(t, 2, grid.Height)
	require.InDelta(t, 1.0, grid.At(0, 0), 1e-6)
	require.InDelta(t, 2.0, grid.At(0, 1), 1e-6)
	require.InDelta(t, 3.0, grid.At(1, 0), 1e-6)
	require.InDelta(t, 4.0, grid.At(1, 1), 1e-6)
}
