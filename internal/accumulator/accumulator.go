// Package accumulator is a durable, resumable, keyed max-reduce store
// for H3-indexed radiance observations. It backs both the Baseline Scan
// and the Enhanced Scan: each strip of raster rows is reduced to a set
// of (h3 cell, radiance) observations, and observations are merged into
// the store by keeping the larger radiance seen for each cell. Strip
// completion is recorded in the same transaction as its batch, so a
// crash or restart can resume from the last committed strip instead of
// re-scanning the whole raster.
package accumulator

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/duskmap/zonesdb/internal/hexgrid"
)

// Row is one max-reduced observation: the strongest radiance seen so
// far for a given H3 cell, and the zone it implies.
type Row struct {
	H3       hexgrid.CellID
	Zone     uint8
	Radiance float32
}

// Accumulator wraps a SQLite database holding the cells and progress
// tables described in SPEC_FULL.md's durable accumulator design.
type Accumulator struct {
	db *sql.DB
}

// Open opens (creating if necessary) the accumulator database at path,
// applies WAL/synchronous pragmas, and sizes its page cache from
// cacheBytes (0 leaves SQLite's own default in place).
func Open(path string, cacheBytes int64) (*Accumulator, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening accumulator db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", p, err)
		}
	}
	if cacheBytes > 0 {
		pageKB := -(cacheBytes / 1024) // negative cache_size is interpreted as KiB by SQLite
		if _, err := db.Exec(fmt.Sprintf("PRAGMA cache_size = %d", pageKB)); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting cache_size: %w", err)
		}
	}

	const schema = `
CREATE TABLE IF NOT EXISTS cells (
	h3       INTEGER PRIMARY KEY,
	zone     INTEGER NOT NULL,
	radiance REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS progress (
	strip_idx INTEGER PRIMARY KEY
);
`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing accumulator schema: %w", err)
	}

	return &Accumulator{db: db}, nil
}

// Close releases the underlying database handle.
func (a *Accumulator) Close() error {
	return a.db.Close()
}

// UpsertBatch merges rows into the cells table, keeping the larger
// radiance (and its corresponding zone) for each H3 cell already
// present. The whole batch commits atomically.
func (a *Accumulator) UpsertBatch(rows []Row) error {
	return a.withTx(func(tx *sql.Tx) error {
		return upsertRows(tx, rows)
	})
}

// MarkStrip merges rows and records stripIdx as completed in a single
// transaction, so a crash between the two can never leave the
// accumulator believing a strip finished when its rows did not commit
// (or vice versa).
func (a *Accumulator) MarkStrip(stripIdx int, rows []Row) error {
	return a.withTx(func(tx *sql.Tx) error {
		if err := upsertRows(tx, rows); err != nil {
			return err
		}
		_, err := tx.Exec(`INSERT OR IGNORE INTO progress (strip_idx) VALUES (?)`, stripIdx)
		return err
	})
}

func upsertRows(tx *sql.Tx, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	stmt, err := tx.Prepare(`
INSERT INTO cells (h3, zone, radiance) VALUES (?, ?, ?)
ON CONFLICT(h3) DO UPDATE SET
	zone = excluded.zone,
	radiance = excluded.radiance
WHERE excluded.radiance > cells.radiance
`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.Exec(uint64(r.H3), r.Zone, r.Radiance); err != nil {
			return fmt.Errorf("upserting cell %d: %w", r.H3, err)
		}
	}
	return nil
}

func (a *Accumulator) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := a.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// CompletedStrips returns the set of strip indices already marked
// complete, for the Baseline/Enhanced scan loops to skip on resume.
func (a *Accumulator) CompletedStrips() (map[int]bool, error) {
	rows, err := a.db.Query(`SELECT strip_idx FROM progress`)
	if err != nil {
		return nil, fmt.Errorf("reading progress: %w", err)
	}
	defer rows.Close()

	out := make(map[int]bool)
	for rows.Next() {
		var idx int
		if err := rows.Scan(&idx); err != nil {
			return nil, err
		}
		out[idx] = true
	}
	return out, rows.Err()
}

// ClearProgress truncates the progress table, forcing every strip to
// be re-scanned on the next pass, while leaving accumulated cell
// radiances in place. The Enhanced Scan uses this: it re-derives zones
// cell-by-cell but never lowers a radiance already recorded.
func (a *Accumulator) ClearProgress() error {
	_, err := a.db.Exec(`DELETE FROM progress`)
	return err
}

// Count returns the number of distinct H3 cells currently recorded.
func (a *Accumulator) Count() (int64, error) {
	var n int64
	err := a.db.QueryRow(`SELECT COUNT(*) FROM cells`).Scan(&n)
	return n, err
}

// IterCellsSorted calls fn once per cell in ascending H3-index order —
// the order the artifact writer requires for its sorted fixed-record
// layout.
func (a *Accumulator) IterCellsSorted(fn func(Row) error) error {
	rows, err := a.db.Query(`SELECT h3, zone, radiance FROM cells ORDER BY h3 ASC`)
	if err != nil {
		return fmt.Errorf("iterating cells: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var h3 uint64
		var z uint8
		var radiance float32
		if err := rows.Scan(&h3, &z, &radiance); err != nil {
			return err
		}
		if err := fn(Row{H3: hexgrid.CellID(h3), Zone: z, Radiance: radiance}); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Lookup returns the recorded row for a single cell, or ok=false if
// the cell was never observed.
func (a *Accumulator) Lookup(id hexgrid.CellID) (Row, bool, error) {
	var z uint8
	var radiance float32
	err := a.db.QueryRow(`SELECT zone, radiance FROM cells WHERE h3 = ?`, uint64(id)).Scan(&z, &radiance)
	if err == sql.ErrNoRows {
		return Row{}, false, nil
	}
	if err != nil {
		return Row{}, false, err
	}
	return Row{H3: id, Zone: z, Radiance: radiance}, true, nil
}

// RowsAboveZone1 reports how many recorded cells have zone > 1 — the
// artifact writer's record count, computed without a full export pass.
func (a *Accumulator) RowsAboveZone1() (int64, error) {
	var n int64
	err := a.db.QueryRow(`SELECT COUNT(*) FROM cells WHERE zone > 1`).Scan(&n)
	return n, err
}
