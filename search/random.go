package search

import (
	"math"
	"math/rand"
)

// RandomSearch shuffles the valid-configuration list with a seeded
// generator and visits the first ⌈fraction·N⌉ entries (clamped to [1, N]),
// grounded on the original random_searcher's shuffle-then-walk strategy.
type RandomSearch struct {
	order []int
	i     int
}

// NewRandomSearch creates a RandomSearch over n configurations, sampling
// the given fraction of them, seeded for reproducibility.
func NewRandomSearch(n int, fraction float64, seed int64) *RandomSearch {
	if n <= 0 {
		return &RandomSearch{}
	}
	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(n)

	count := int(math.Ceil(fraction * float64(n)))
	if count < 1 {
		count = 1
	}
	if count > n {
		count = n
	}
	return &RandomSearch{order: perm[:count]}
}

func (r *RandomSearch) Next() (int, bool) {
	if r.i >= len(r.order) {
		return 0, false
	}
	return r.order[r.i], true
}

func (r *RandomSearch) Advance(float64) {
	r.i++
}

func (r *RandomSearch) Remaining() int {
	if len(r.order)-r.i < 0 {
		return 0
	}
	return len(r.order) - r.i
}
