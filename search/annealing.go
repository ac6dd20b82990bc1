package search

import (
	"math"
	"math/rand"
)

// SimulatedAnnealing walks the neighbourhood of a current configuration,
// accepting improving moves unconditionally and worsening moves with
// probability exp(-Δd/T), cooling by α after every accept/reject
// (spec.md §4.D).
type SimulatedAnnealing struct {
	space Space
	alpha float64

	temperature float64
	rng         *rand.Rand

	haveCurrent     bool
	current         []int
	currentDuration float64

	best         []int
	bestDuration float64

	pendingCandidate []int

	maxIterations int
	done          int
}

// NewSimulatedAnnealing creates a SimulatedAnnealing searcher over space,
// starting at a random admissible configuration, with initial temperature
// t0, cooling rate alpha, and a fixed iteration budget.
func NewSimulatedAnnealing(space Space, t0, alpha float64, maxIterations int, seed int64) *SimulatedAnnealing {
	rng := rand.New(rand.NewSource(seed))
	start := space.Configurations[rng.Intn(len(space.Configurations))]

	return &SimulatedAnnealing{
		space:         space,
		alpha:         alpha,
		temperature:   t0,
		rng:           rng,
		current:       append([]int(nil), start...),
		best:          append([]int(nil), start...),
		bestDuration:  math.Inf(1),
		maxIterations: maxIterations,
	}
}

func (s *SimulatedAnnealing) Next() (int, bool) {
	if s.done >= s.maxIterations {
		return 0, false
	}

	var candidate []int
	if !s.haveCurrent {
		candidate = s.current
	} else {
		candidate = s.neighbour(s.current)
	}
	s.pendingCandidate = candidate

	flat, ok := s.space.Index(candidate)
	if !ok {
		flat, _ = s.space.Index(s.current)
	}
	return flat, true
}

// neighbour picks one parameter at random and moves it to a uniformly
// random different admissible value, resampling up to resampleBound times
// when the result violates a constraint; it falls back to the current
// configuration when no valid neighbour is found (spec.md §4.D "else
// skip").
func (s *SimulatedAnnealing) neighbour(current []int) []int {
	const resampleBound = 32

	for attempt := 0; attempt < resampleBound; attempt++ {
		dim := s.rng.Intn(len(s.space.Sizes))
		size := s.space.Sizes[dim]
		if size <= 1 {
			continue
		}

		candidate := append([]int(nil), current...)
		for {
			v := s.rng.Intn(size)
			if v != current[dim] {
				candidate[dim] = v
				break
			}
		}

		if s.space.isValid(candidate) {
			return candidate
		}
	}
	return append([]int(nil), current...)
}

func (s *SimulatedAnnealing) Advance(lastDurationNs float64) {
	defer func() {
		s.temperature *= s.alpha
		s.done++
	}()

	if !s.haveCurrent {
		s.haveCurrent = true
		s.current = s.pendingCandidate
		s.currentDuration = lastDurationNs
		s.updateBest(s.current, lastDurationNs)
		return
	}

	delta := lastDurationNs - s.currentDuration
	accept := delta <= 0
	if !accept && s.temperature > 0 {
		accept = s.rng.Float64() < math.Exp(-delta/s.temperature)
	}

	if accept {
		s.current = s.pendingCandidate
		s.currentDuration = lastDurationNs
	}
	s.updateBest(s.pendingCandidate, lastDurationNs)
}

func (s *SimulatedAnnealing) updateBest(candidate []int, duration float64) {
	if duration < s.bestDuration {
		s.bestDuration = duration
		s.best = append([]int(nil), candidate...)
	}
}

func (s *SimulatedAnnealing) Remaining() int {
	if s.maxIterations-s.done < 0 {
		return 0
	}
	return s.maxIterations - s.done
}
