package zone

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoundaries(t *testing.T) {
	cases := []struct {
		r    float32
		zone uint8
	}{
		{0.24, 1},
		{0.25, 2},
		{0.49, 2},
		{0.50, 3},
		{124.9, 8},
		{125.0, 9},
	}
	for _, c := range cases {
		assert.Equalf(t, c.zone, FromRadiance(c.r), "radiance %v", c.r)
	}
}

func TestSQMReferenceValues(t *testing.T) {
	assert.InDelta(t, 22.0, SQM(0), 1e-9)
	assert.InDelta(t, 22.0-1.7*math.Log10(1.5), SQM(0.25), 0.01)
	assert.InDelta(t, 22.0-1.7*math.Log10(251), SQM(125), 0.01)
}

func TestZoneMonotone(t *testing.T) {
	radiances := []float32{0, 0.1, 0.24, 0.25, 0.5, 1, 3, 9, 20, 50, 125, 1000}
	for i := 1; i < len(radiances); i++ {
		assert.LessOrEqualf(t, FromRadiance(radiances[i-1]), FromRadiance(radiances[i]),
			"zone must be non-decreasing: %v -> %v", radiances[i-1], radiances[i])
	}
}

func TestSQMMonotoneAndClamped(t *testing.T) {
	radiances := []float32{0, 0.1, 0.24, 0.25, 0.5, 1, 3, 9, 20, 50, 125, 1000}
	for i := 1; i < len(radiances); i++ {
		assert.GreaterOrEqualf(t, SQM(radiances[i-1]), SQM(radiances[i]),
			"sqm must be non-increasing: %v -> %v", radiances[i-1], radiances[i])
	}
	for _, r := range radiances {
		s := SQM(r)
		assert.GreaterOrEqual(t, s, float32(16.0))
		assert.LessOrEqual(t, s, float32(22.0))
	}
}

func TestZoneOneExcludedByCaller(t *testing.T) {
	// FromRadiance can return 1; it's the writer's job to skip those.
	assert.Equal(t, uint8(1), FromRadiance(0))
	assert.Equal(t, uint8(1), FromRadiance(0.1))
}
