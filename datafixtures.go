package ktune

import "math"

// GenerateFloat32 generates deterministic float32 test data using a linear
// congruential generator, for reproducible tests across runs. Values lie in
// [0, 1): each is the top 24 bits of the generator state over 2^24.
func GenerateFloat32(size int, seed uint64) []float32 {
	data := make([]float32, size)
	rng := seed
	for i := range data {
		rng = rng*1103515245 + 12345 // LCG parameters from Numerical Recipes
		data[i] = float32(rng>>40) / float32(1<<24)
	}
	return data
}

// GenerateFloat32Range generates deterministic float32 data scaled into
// [min, max).
func GenerateFloat32Range(size int, seed uint64, min, max float32) []float32 {
	data := GenerateFloat32(size, seed)
	scale := max - min
	for i := range data {
		data[i] = data[i]*scale + min
	}
	return data
}

// GenerateFloat32EdgeCases returns values exercising floating-point edge
// cases: zero, denormals, infinities, NaN, and extreme magnitudes — useful
// as a kernel argument when validating tolerance handling around them.
func GenerateFloat32EdgeCases() []float32 {
	return []float32{
		0.0,
		-0.0,
		1.0,
		-1.0,
		math.SmallestNonzeroFloat32,
		-math.SmallestNonzeroFloat32,
		math.MaxFloat32,
		-math.MaxFloat32,
		float32(math.Inf(1)),
		float32(math.Inf(-1)),
		float32(math.NaN()),
		1e-38,
		-1e-38,
		1e38,
		-1e38,
	}
}

// GenerateSequence generates a simple arithmetic sequence, useful when a
// predictable pattern is more useful than pseudo-random data.
func GenerateSequence(size int, start, step float32) []float32 {
	data := make([]float32, size)
	for i := range data {
		data[i] = start + float32(i)*step
	}
	return data
}

// AlmostEqual reports whether a and b are within tolerance, treating
// matching-sign infinities and co-occurring NaN as equal.
func AlmostEqual(a, b, tolerance float32) bool {
	if math.IsNaN(float64(a)) && math.IsNaN(float64(b)) {
		return true
	}
	if math.IsInf(float64(a), 0) && math.IsInf(float64(b), 0) {
		return math.Signbit(float64(a)) == math.Signbit(float64(b))
	}
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff <= tolerance
}

// SlicesAlmostEqual reports whether a and b are element-wise AlmostEqual.
func SlicesAlmostEqual(a, b []float32, tolerance float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !AlmostEqual(a[i], b[i], tolerance) {
			return false
		}
	}
	return true
}
