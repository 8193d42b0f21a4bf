// Package downsample block-averages the fine raster into the coarse
// grid the scatter kernel convolves: read the raster in vertical
// batches, average each non-overlapping NxN block, and discard any
// trailing rows/columns that don't fill a whole block.
package downsample

import (
	"fmt"

	"github.com/duskmap/zonesdb/internal/raster"
)

// Grid is a coarse radiance matrix held entirely in memory, row-major.
type Grid struct {
	Width, Height int
	Data          []float32 // len == Width*Height
}

// At returns the value at (row, col); callers are expected to clamp
// their own indices (used for nearest-neighbour scatter lookups).
func (g *Grid) At(row, col int) float32 {
	return g.Data[row*g.Width+col]
}

// Build reads r's full extent in vertical batches of batchRows rows
// (the caller is expected to pass a multiple of factor, e.g.
// factor*20) and reduces it to a Grid whose side is factor times
// smaller, averaging each factor×factor block. Negative samples are
// already coerced to 0 by the raster reader.
func Build(r *raster.Reader, factor, batchRows int) (*Grid, error) {
	if factor <= 0 {
		return nil, fmt.Errorf("downsample: factor must be positive, got %d", factor)
	}
	width, height := r.Dimensions()

	coarseWidth := width / factor
	coarseHeight := height / factor
	usableWidth := coarseWidth * factor
	usableHeight := coarseHeight * factor
	if coarseWidth == 0 || coarseHeight == 0 {
		return nil, fmt.Errorf("downsample: raster %dx%d too small for factor %d", width, height, factor)
	}

	grid := &Grid{Width: coarseWidth, Height: coarseHeight, Data: make([]float32, coarseWidth*coarseHeight)}
	counts := make([]float32, coarseWidth*coarseHeight)

	batchSize := batchRows
	if batchSize <= 0 {
		batchSize = factor
	}

	for startRow := 0; startRow < usableHeight; startRow += batchSize {
		rows := batchSize
		if startRow+rows > usableHeight {
			rows = usableHeight - startRow
		}
		// Only read whole multiples of factor so every block this batch
		// touches is fully covered by rows from a single read.
		rows -= rows % factor
		if rows == 0 {
			break
		}

		fine, err := r.ReadRows(startRow, rows)
		if err != nil {
			return nil, fmt.Errorf("downsample: reading rows [%d,%d): %w", startRow, startRow+rows, err)
		}

		accumulateBlocks(grid, counts, fine, width, startRow, rows, usableWidth, factor)
	}

	for i, c := range counts {
		if c > 0 {
			grid.Data[i] /= c
		}
	}

	return grid, nil
}

// accumulateBlocks adds each fine pixel in [startRow, startRow+rows)
// into the coarse block it belongs to.
func accumulateBlocks(grid *Grid, counts []float32, fine []float32, fineWidth, startRow, rows, usableWidth, factor int) {
	for localRow := 0; localRow < rows; localRow++ {
		fineRow := startRow + localRow
		coarseRow := fineRow / factor
		rowBase := localRow * fineWidth
		coarseRowBase := coarseRow * grid.Width

		for col := 0; col < usableWidth; col++ {
			coarseCol := col / factor
			idx := coarseRowBase + coarseCol
			v := fine[rowBase+col]
			if v < 0 {
				v = 0
			}
			grid.Data[idx] += v
			counts[idx]++
		}
	}
}
