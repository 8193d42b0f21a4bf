package artifact

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/duskmap/zonesdb/internal/accumulator"
	"github.com/duskmap/zonesdb/internal/hexgrid"
)

func buildArtifact(t *testing.T, rows []accumulator.Row) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "zones.db")
	w, err := Create(path)
	require.NoError(t, err)

	for _, r := range rows {
		require.NoError(t, w.WriteRow(r))
	}
	require.NoError(t, w.Close())
	return path
}

func TestHeaderCoherence(t *testing.T) {
	rows := []accumulator.Row{
		{H3: 10, Zone: 5, Radiance: 3},
		{H3: 20, Zone: 3, Radiance: 0.6},
	}
	path := buildArtifact(t, rows)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	require.Equal(t, Magic[:], data[0:8])
	count := binary.LittleEndian.Uint64(data[8:16])
	require.EqualValues(t, len(rows), count)
	require.Len(t, data, headerSize+len(rows)*recordSize)
}

func TestZoneOneRowsAreSkipped(t *testing.T) {
	rows := []accumulator.Row{
		{H3: 1, Zone: 0, Radiance: 0.01}, // implicit zone 1
		{H3: 2, Zone: 0, Radiance: 5},    // zone recomputed from radiance in WriteRow
	}
	path := buildArtifact(t, rows)

	r, err := Open(path)
	require.NoError(t, err)
	require.EqualValues(t, 1, r.RecordCount())

	_, ok := r.Lookup(1)
	require.False(t, ok)
	rec, ok := r.Lookup(2)
	require.True(t, ok)
	require.Equal(t, uint8(5), rec.Zone) // zone(5.0) == 5
}

func TestSortedOutputAndLookup(t *testing.T) {
	rows := []accumulator.Row{
		{H3: hexgrid.CellID(100), Zone: 4, Radiance: 1.5},
		{H3: hexgrid.CellID(200), Zone: 6, Radiance: 15},
		{H3: hexgrid.CellID(300), Zone: 9, Radiance: 200},
	}
	path := buildArtifact(t, rows)

	r, err := Open(path)
	require.NoError(t, err)
	require.EqualValues(t, 3, r.RecordCount())

	var prev uint64
	for i := 0; i < int(r.RecordCount()); i++ {
		rec := r.recordAt(i)
		if i > 0 {
			require.Greater(t, rec.H3, prev)
		}
		prev = rec.H3
	}

	rec, ok := r.Lookup(200)
	require.True(t, ok)
	require.InDelta(t, 15, rec.Radiance, 1e-6)

	_, ok = r.Lookup(999)
	require.False(t, ok)
}

func TestDigestIsDeterministic(t *testing.T) {
	rows := []accumulator.Row{{H3: 1, Zone: 5, Radiance: 3}}
	path := buildArtifact(t, rows)

	d1, err := Digest(path)
	require.NoError(t, err)
	d2, err := Digest(path)
	require.NoError(t, err)
	require.Equal(t, d1, d2)
	require.Len(t, d1, 64)
}
