package scatter

import (
	"gonum.org/v1/gonum/fourier"

	"github.com/duskmap/zonesdb/internal/downsample"
)

// Convolve runs a "same"-size 2-D FFT convolution of grid with kernel,
// clamping the result to non-negative (light scatter cannot remove
// light). The convolution is computed as a zero-padded linear
// convolution (no wraparound) via two passes of a 1-D complex FFT —
// rows then columns — since gonum's fourier package exposes a 1-D
// transform and the kernel is small relative to the coarse grid.
func Convolve(grid *downsample.Grid, kernel *Kernel) *downsample.Grid {
	gH, gW := grid.Height, grid.Width
	kSide := kernel.Side()
	r := kernel.Radius

	fullH := gH + kSide - 1
	fullW := gW + kSide - 1

	a := make([]complex128, fullH*fullW)
	for row := 0; row < gH; row++ {
		for col := 0; col < gW; col++ {
			a[row*fullW+col] = complex(float64(grid.At(row, col)), 0)
		}
	}

	b := make([]complex128, fullH*fullW)
	for dy := 0; dy < kSide; dy++ {
		for dx := 0; dx < kSide; dx++ {
			b[dy*fullW+dx] = complex(float64(kernel.Data[dy*kSide+dx]), 0)
		}
	}

	fft2D(a, fullH, fullW, false)
	fft2D(b, fullH, fullW, false)

	for i := range a {
		a[i] *= b[i]
	}

	fft2D(a, fullH, fullW, true)

	// gonum's CmplxFFT is unnormalized: Coefficients then Sequence
	// multiplies by the transform length. Two 1-D inverse passes (rows,
	// columns) leave the result scaled by fullH*fullW; divide it back out.
	norm := float64(fullH) * float64(fullW)

	out := &downsample.Grid{Width: gW, Height: gH, Data: make([]float32, gW*gH)}
	for row := 0; row < gH; row++ {
		for col := 0; col < gW; col++ {
			v := real(a[(row+r)*fullW+(col+r)]) / norm
			if v < 0 {
				v = 0
			}
			out.Data[row*gW+col] = float32(v)
		}
	}
	return out
}

// fft2D applies a 1-D complex FFT along rows, then along columns,
// operating in place. gonum's CmplxFFT is unnormalized — Coefficients
// followed by Sequence scales the result by the transform length — so
// callers must divide the inverse pass's output by the total element
// count themselves (Convolve does this once, after both 1-D passes).
func fft2D(data []complex128, rows, cols int, inverse bool) {
	rowT := fourier.NewCmplxFFT(cols)
	row := make([]complex128, cols)
	for r := 0; r < rows; r++ {
		copy(row, data[r*cols:(r+1)*cols])
		var out []complex128
		if inverse {
			out = rowT.Sequence(nil, row)
		} else {
			out = rowT.Coefficients(nil, row)
		}
		copy(data[r*cols:(r+1)*cols], out)
	}

	colT := fourier.NewCmplxFFT(rows)
	col := make([]complex128, rows)
	for c := 0; c < cols; c++ {
		for r := 0; r < rows; r++ {
			col[r] = data[r*cols+c]
		}
		var out []complex128
		if inverse {
			out = colT.Sequence(nil, col)
		} else {
			out = colT.Coefficients(nil, col)
		}
		for r := 0; r < rows; r++ {
			data[r*cols+c] = out[r]
		}
	}
}
