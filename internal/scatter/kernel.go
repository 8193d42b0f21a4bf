package scatter

import "math"

// Params configures the Garstang-style atmospheric scatter point-spread
// function. Fraction and ScaleKM are the operator-tunable knobs exposed
// by the `skyglow` command; the rest are fixed defaults.
type Params struct {
	Fraction    float64 // F: overall scatter strength
	ScaleKM     float64 // S: exponential falloff scale
	RefKM       float64 // D_ref: power-law reference distance
	Power       float64 // p: power-law exponent
	MaxRadiusKM float64
	PixelKM     float64
}

// DefaultParams matches the values the pipeline falls back to when the
// operator doesn't override Fraction/ScaleKM.
func DefaultParams() Params {
	return Params{
		Fraction:    0.12,
		ScaleKM:     20,
		RefKM:       10,
		Power:       2.5,
		MaxRadiusKM: 80,
		PixelKM:     5.55,
	}
}

// Kernel is a square, centred point-spread function.
type Kernel struct {
	Radius int // half-width in pixels; side length is 2*Radius+1
	Data   []float32
}

// Side returns the kernel's edge length in pixels.
func (k *Kernel) Side() int {
	return 2*k.Radius + 1
}

// At returns the kernel value at centred offset (dy, dx), where dy and
// dx range over [-Radius, Radius].
func (k *Kernel) At(dy, dx int) float32 {
	side := k.Side()
	return k.Data[(dy+k.Radius)*side+(dx+k.Radius)]
}

// Build constructs the PSF described in SPEC_FULL.md: zero within 0.5km
// of the source (no self-scatter) and beyond MaxRadiusKM (hard
// truncation), otherwise an exponential-times-power-law falloff. The
// kernel is computed in float64 and cast to float32 once finished, so
// the accumulation of many small terms isn't subject to float32
// rounding until the final value is fixed.
func Build(p Params) *Kernel {
	radius := int(math.Ceil(p.MaxRadiusKM/p.PixelKM)) + 1
	side := 2*radius + 1

	f64 := make([]float64, side*side)
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			d := math.Hypot(float64(dy)*p.PixelKM, float64(dx)*p.PixelKM)
			var v float64
			if d >= 0.5 && d <= p.MaxRadiusKM {
				v = p.Fraction * math.Exp(-d/p.ScaleKM) / (1 + math.Pow(d/p.RefKM, p.Power))
			}
			f64[(dy+radius)*side+(dx+radius)] = v
		}
	}

	data := make([]float32, len(f64))
	for i, v := range f64 {
		data[i] = float32(v)
	}

	return &Kernel{Radius: radius, Data: data}
}
