package raster

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// buildTestTIFF assembles a minimal, hand-written, uncompressed,
// float32, strip-based classic TIFF with GeoTIFF tiepoint/scale tags.
// Only the subset of the format internal/raster understands is emitted.
func buildTestTIFF(t *testing.T, width, height, rowsPerStrip int, pixels []float32, originLon, originLat, pixelSizeLon, pixelSizeLat float64) []byte {
	t.Helper()
	require.Equal(t, width*height, len(pixels))
	require.Equal(t, 0, height%rowsPerStrip)

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

	write := func(v interface{}) {
		require.NoError(t, binary.Write(buf, bo, v))
	}

	// Header.
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
	write(uint32(0)) // next IFD offset

	require.Equal(t, overflowStart, buf.Len())

	for _, v := range stripOffsets {
		write(v)
	}
	for _, v := range stripCounts {
		write(v)
	}
	write(pixelSizeLon)
	write(pixelSizeLat)
	write(0.0)
	write(0.0) // tiepoint I
	write(0.0) // tiepoint J
	write(0.0) // tiepoint K
	write(originLon)
	write(originLat)
	write(0.0)

	require.Equal(t, dataStart, buf.Len())

	for _, p := range pixels {
		write(math.Float32bits(p))
	}

	return buf.Bytes()
}

func writeTempFile(t *testing.T, data []byte, gz bool) string {
	t.Helper()
	dir := t.TempDir()
	name := "test.tif"
	if gz {
		name += ".gz"
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	if !gz {
		_, err = f.Write(data)
		require.NoError(t, err)
		return path
	}

	gw := gzip.NewWriter(f)
	_, err = gw.Write(data)
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	return path
}

func TestReadRowsPlainAndGzip(t *testing.T) {
	width, height, rowsPerStrip := 3, 4, 2
	pixels := make([]float32, width*height)
	for i := range pixels {
		pixels[i] = float32(i) - 1 // includes one negative value to test coercion
	}
	data := buildTestTIFF(t, width, height, rowsPerStrip, pixels, -10, 5, 0.1, 0.2)

	for _, gz := range []bool{false, true} {
		path := writeTempFile(t, data, gz)

		r, err := Open(path)
		require.NoError(t, err)

		w, h := r.Dimensions()
		require.Equal(t, width, w)
		require.Equal(t, height, h)

		got, err := r.ReadRows(0, height)
		require.NoError(t, err)
		require.Len(t, got, width*height)
		for i, v := range got {
			want := pixels[i]
			if want < 0 {
				want = 0
			}
			require.InDeltaf(t, want, v, 1e-6, "index %d (gz=%v)", i, gz)
		}

		aff, ok := r.Affine()
		require.True(t, ok)
		lon, lat := aff.PixelToLonLat(0, 0)
		require.InDelta(t, -10+0.05, lon, 1e-9)
		require.InDelta(t, 5-0.1, lat, 1e-9)

		require.NoError(t, r.Close())
	}
}

func TestReadRowsAcrossStrips(t *testing.T) {
	width, height, rowsPerStrip := 2, 6, 2
	pixels := make([]float32, width*height)
	for i := range pixels {
		pixels[i] = float32(i)
	}
	data := buildTestTIFF(t, width, height, rowsPerStrip, pixels, 0, 0, 1, 1)
	path := writeTempFile(t, data, false)

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	// A window spanning a strip boundary (rows 1-3) must stitch strips together.
	got, err := r.ReadRows(1, 3)
	require.NoError(t, err)
	want := pixels[1*width : 4*width]
	require.Equal(t, want, got)
}

func TestFileNotFound(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.tif"))
	require.ErrorIs(t, err, ErrFileNotFound)
}
