package scatter

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/duskmap/zonesdb/internal/downsample"
)

func TestBuildTruncatesAtOriginAndMaxRadius(t *testing.T) {
	p := DefaultParams()
	p.MaxRadiusKM = 20
	k := Build(p)

	// Center (d=0) is inside the 0.5km no-self-scatter exclusion.
	require.Zero(t, k.At(0, 0))

	// The corner of the kernel, at distance > MaxRadiusKM, must be zero.
	require.Zero(t, k.At(k.Radius, k.Radius))
}

func TestBuildIsNonNegative(t *testing.T) {
	k := Build(DefaultParams())
	for _, v := range k.Data {
		require.GreaterOrEqual(t, v, float32(0))
	}
}

func deltaKernel(radius int) *Kernel {
	side := 2*radius + 1
	data := make([]float32, side*side)
	data[radius*side+radius] = 1
	return &Kernel{Radius: radius, Data: data}
}

func TestConvolveWithDeltaKernelIsIdentity(t *testing.T) {
	grid := &downsample.Grid{
		Width: 4, Height: 3,
		Data: []float32{
			1, 2, 3, 4,
			5, 6, 7, 8,
			9, 10, 11, 12,
		},
	}
	out := Convolve(grid, deltaKernel(1))
	require.Equal(t, grid.Width, out.Width)
	require.Equal(t, grid.Height, out.Height)
	for i := range grid.Data {
		require.InDelta(t, grid.Data[i], out.Data[i], 1e-6)
	}
}

func TestConvolveClampsNonNegative(t *testing.T) {
	grid := &downsample.Grid{Width: 3, Height: 3, Data: make([]float32, 9)}
	out := Convolve(grid, Build(DefaultParams()))
	for _, v := range out.Data {
		require.GreaterOrEqual(t, v, float32(0))
	}
}
