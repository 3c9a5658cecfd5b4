package worldgen

import "terminus-core/internal/mathx"

// valueNoise samples lattice value noise at integer world coordinates. The
// lattice spacing is scale tiles; corner values come from hashing the lattice
// point, so the field is a pure function of (seed, x, y).
func valueNoise(seed int64, x, y, scale int) float64 {
	gx := mathx.FloorDiv(x, scale)
	gy := mathx.FloorDiv(y, scale)
	fx := smoothstep(float64(x-gx*scale) / float64(scale))
	fy := smoothstep(float64(y-gy*scale) / float64(scale))

	v00 := mathx.Unit(mathx.Hash2(seed, gx, gy))
	v10 := mathx.Unit(mathx.Hash2(seed, gx+1, gy))
	v01 := mathx.Unit(mathx.Hash2(seed, gx, gy+1))
	v11 := mathx.Unit(mathx.Hash2(seed, gx+1, gy+1))

	top := lerp(v00, v10, fx)
	bottom := lerp(v01, v11, fx)
	return lerp(top, bottom, fy)
}

// fractal sums octaves of value noise, halving the lattice spacing and the
// amplitude each octave, and stretches the result back toward [0, 1].
func fractal(seed int64, x, y, scale, octaves int) float64 {
	sum, total, amp := 0.0, 0.0, 1.0
	for o := 0; o < octaves && scale >= 1; o++ {
		sum += valueNoise(seed+int64(o)*7919, x, y, scale) * amp
		total += amp
		amp *= 0.5
		scale /= 2
	}
	v := (sum/total-0.5)*1.6 + 0.5
	return min(1, max(0, v))
}

func smoothstep(t float64) float64 { return t * t * (3 - 2*t) }

func lerp(a, b, t float64) float64 { return a + (b-a)*t }
