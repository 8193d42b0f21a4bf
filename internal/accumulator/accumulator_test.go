package accumulator

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/duskmap/zonesdb/internal/hexgrid"
)

func openTest(t *testing.T) *Accumulator {
	t.Helper()
	path := filepath.Join(t.TempDir(), "zones.db")
	a, err := Open(path, 0)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestUpsertBatchMaxReduce(t *testing.T) {
	a := openTest(t)
	cell := hexgrid.CellID(123)

	require.NoError(t, a.UpsertBatch([]Row{{H3: cell, Zone: 5, Radiance: 2.0}}))
	require.NoError(t, a.UpsertBatch([]Row{{H3: cell, Zone: 3, Radiance: 1.0}})) // weaker: must not overwrite
	require.NoError(t, a.UpsertBatch([]Row{{H3: cell, Zone: 7, Radiance: 9.0}})) // stronger: must overwrite

	row, ok, err := a.Lookup(cell)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint8(7), row.Zone)
	require.InDelta(t, 9.0, row.Radiance, 1e-9)
}

func TestMarkStripResumability(t *testing.T) {
	a := openTest(t)

	require.NoError(t, a.MarkStrip(0, []Row{{H3: 1, Zone: 4, Radiance: 1.5}}))
	require.NoError(t, a.MarkStrip(2, []Row{{H3: 2, Zone: 4, Radiance: 1.5}}))

	done, err := a.CompletedStrips()
	require.NoError(t, err)
	require.True(t, done[0])
	require.True(t, done[2])
	require.False(t, done[1])

	n, err := a.Count()
	require.NoError(t, err)
	require.EqualValues(t, 2, n)
}

func TestClearProgressKeepsCells(t *testing.T) {
	a := openTest(t)
	require.NoError(t, a.MarkStrip(0, []Row{{H3: 1, Zone: 4, Radiance: 1.5}}))

	require.NoError(t, a.ClearProgress())

	done, err := a.CompletedStrips()
	require.NoError(t, err)
	require.Empty(t, done)

	n, err := a.Count()
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestIterCellsSortedAscending(t *testing.T) {
	a := openTest(t)
	require.NoError(t, a.UpsertBatch([]Row{
		{H3: 30, Zone: 5, Radiance: 1},
		{H3: 10, Zone: 5, Radiance: 1},
		{H3: 20, Zone: 5, Radiance: 1},
	}))

	var seen []hexgrid.CellID
	err := a.IterCellsSorted(func(r Row) error {
		seen = append(seen, r.H3)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []hexgrid.CellID{10, 20, 30}, seen)
}

func TestRowsAboveZone1ExcludesZoneOne(t *testing.T) {
	a := openTest(t)
	require.NoError(t, a.UpsertBatch([]Row{
		{H3: 1, Zone: 1, Radiance: 500},
		{H3: 2, Zone: 9, Radiance: 0.01},
	}))

	n, err := a.RowsAboveZone1()
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}
