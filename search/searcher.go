// Package search implements the Searcher strategy family (spec.md §4.D):
// FullSearch, RandomSearch, SimulatedAnnealing, and ParticleSwarm. A
// Searcher only ever deals in flat indices into a configuration list its
// caller owns, plus a description of each parameter's value-index range —
// it never depends on the core ktune package's configuration or kernel
// types, which keeps this package free to be imported the other way.
package search

// Searcher is a pull-based strategy that decides the order (and, for
// RandomSearch, the subset) of configurations a Tuning Runner visits.
type Searcher interface {
	// Next returns the flat index of the next configuration to run, and
	// false once the searcher is exhausted.
	Next() (int, bool)

	// Advance reports the duration (nanoseconds) of the run just completed,
	// or +Inf on failure, letting the searcher update any internal state
	// (current/best position, temperature, velocity) before the next Next.
	Advance(lastDurationNs float64)

	// Remaining returns how many configurations the searcher still intends
	// to visit.
	Remaining() int
}

// Space describes a kernel's parameter space as the number of admissible
// values each parameter has, in declaration order, plus a membership test
// used to reject resampled neighbours that violate a constraint.
type Space struct {
	// Sizes holds len(parameter[i].Values) for each parameter in
	// declaration order.
	Sizes []int

	// Valid reports whether the configuration described by idx (one
	// value-index per parameter, same order as Sizes) is admissible. A nil
	// Valid treats every index combination as admissible.
	Valid func(idx []int) bool

	// Index maps an admissible idx combination to its flat position in the
	// caller's materialised configuration list. Required by searchers that
	// resample arbitrary neighbours (SimulatedAnnealing, ParticleSwarm);
	// FullSearch and RandomSearch do not call it.
	Index func(idx []int) (int, bool)

	// Configurations lists every admissible idx combination, in the same
	// order as the caller's materialised configuration list. Required by
	// SimulatedAnnealing and ParticleSwarm to snap a candidate to the
	// nearest valid configuration by Hamming distance.
	Configurations [][]int
}

func (s Space) isValid(idx []int) bool {
	if s.Valid == nil {
		return true
	}
	return s.Valid(idx)
}

// hammingDistance counts the positions at which a and b differ.
func hammingDistance(a, b []int) int {
	d := 0
	for i := range a {
		if a[i] != b[i] {
			d++
		}
	}
	return d
}

// nearestValid returns the admissible combination in space.Configurations
// closest to candidate by Hamming distance, breaking ties by earliest
// declaration order.
func nearestValid(space Space, candidate []int) []int {
	best := space.Configurations[0]
	bestDist := hammingDistance(best, candidate)
	for _, c := range space.Configurations[1:] {
		if d := hammingDistance(c, candidate); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func clampIndex(v, size int) int {
	if v < 0 {
		return 0
	}
	if v >= size {
		return size - 1
	}
	return v
}

