package search

import (
	"math"
	"math/rand"
)

type particleState struct {
	pos          []int
	vel          []float64
	bestPos      []int
	bestDuration float64
}

// ParticleSwarm maintains a swarm of particles over the parameter-index
// space, updating velocity and position from personal and global bests
// after each evaluation, snapping invalid candidates to their nearest
// admissible configuration by Hamming distance (spec.md §4.D).
type ParticleSwarm struct {
	space Space

	w, phiP, phiG, clamp float64
	rng                  *rand.Rand

	particles []particleState
	cursor    int
	pending   int // index of the particle currently awaiting Advance

	gBestPos      []int
	gBestDuration float64

	totalEvals int
	doneEvals  int
}

// NewParticleSwarm creates a ParticleSwarm searcher over space with the
// given swarm size, inertia weight w, cognitive/social coefficients
// phiP/phiG, velocity clamp, and iteration budget (one pass over the whole
// swarm counts as one iteration).
func NewParticleSwarm(space Space, swarmSize int, w, phiP, phiG, clamp float64, maxIterations int, seed int64) *ParticleSwarm {
	rng := rand.New(rand.NewSource(seed))

	particles := make([]particleState, swarmSize)
	for i := range particles {
		pos := make([]int, len(space.Sizes))
		for d, size := range space.Sizes {
			pos[d] = rng.Intn(size)
		}
		if !space.isValid(pos) {
			pos = nearestValid(space, pos)
		}
		particles[i] = particleState{
			pos:          pos,
			vel:          make([]float64, len(space.Sizes)),
			bestPos:      append([]int(nil), pos...),
			bestDuration: math.Inf(1),
		}
	}

	return &ParticleSwarm{
		space:         space,
		w:             w,
		phiP:          phiP,
		phiG:          phiG,
		clamp:         clamp,
		rng:           rng,
		particles:     particles,
		gBestPos:      append([]int(nil), particles[0].pos...),
		gBestDuration: math.Inf(1),
		totalEvals:    swarmSize * maxIterations,
	}
}

func (p *ParticleSwarm) Next() (int, bool) {
	if p.doneEvals >= p.totalEvals {
		return 0, false
	}

	p.pending = p.cursor
	particle := &p.particles[p.pending]

	flat, ok := p.space.Index(particle.pos)
	if !ok {
		particle.pos = nearestValid(p.space, particle.pos)
		flat, _ = p.space.Index(particle.pos)
	}
	return flat, true
}

func (p *ParticleSwarm) Advance(lastDurationNs float64) {
	particle := &p.particles[p.pending]

	if lastDurationNs < particle.bestDuration {
		particle.bestDuration = lastDurationNs
		particle.bestPos = append([]int(nil), particle.pos...)
	}
	if lastDurationNs < p.gBestDuration {
		p.gBestDuration = lastDurationNs
		p.gBestPos = append([]int(nil), particle.pos...)
	}

	for d := range particle.pos {
		r1, r2 := p.rng.Float64(), p.rng.Float64()
		v := p.w*particle.vel[d] +
			p.phiP*r1*float64(particle.bestPos[d]-particle.pos[d]) +
			p.phiG*r2*float64(p.gBestPos[d]-particle.pos[d])

		if v > p.clamp {
			v = p.clamp
		} else if v < -p.clamp {
			v = -p.clamp
		}
		particle.vel[d] = v

		next := particle.pos[d] + int(math.Round(v))
		particle.pos[d] = clampIndex(next, p.space.Sizes[d])
	}

	if !p.space.isValid(particle.pos) {
		particle.pos = nearestValid(p.space, particle.pos)
	}

	p.cursor = (p.cursor + 1) % len(p.particles)
	p.doneEvals++
}

func (p *ParticleSwarm) Remaining() int {
	if p.totalEvals-p.doneEvals < 0 {
		return 0
	}
	return p.totalEvals - p.doneEvals
}
