package ktune

import (
	"strconv"
	"strings"
)

// KernelId stably identifies a registered Kernel.
type KernelId int

// SearchMethod selects the search strategy used when tuning a kernel.
type SearchMethod int

const (
	SearchFull SearchMethod = iota
	SearchRandom
	SearchAnnealing
	SearchPSO
)

func (m SearchMethod) String() string {
	switch m {
	case SearchFull:
		return "FullSearch"
	case SearchRandom:
		return "RandomSearch"
	case SearchAnnealing:
		return "SimulatedAnnealing"
	case SearchPSO:
		return "ParticleSwarm"
	default:
		return "Unknown"
	}
}

// requiredSearchArgs returns the minimum number of search arguments the
// strategy needs, per spec.md §4.D.
func (m SearchMethod) requiredSearchArgs() int {
	switch m {
	case SearchRandom:
		return 1 // fraction
	case SearchAnnealing:
		return 2 // T0, alpha
	case SearchPSO:
		return 5 // swarm size, w, phi_p, phi_g, velocity clamp
	default:
		return 0
	}
}

// Kernel is a registered tunable unit: source text, declared base launch
// geometry, bound arguments, its parameter/constraint space, a search
// policy, and an optional launch orchestrator or reference specification.
type Kernel struct {
	id       KernelId
	name     string
	source   string
	global   Dim3
	local    Dim3

	boundArgs []ArgumentId

	parameters  []KernelParameter
	paramIndex  map[string]int
	constraints []KernelConstraint

	searchMethod    SearchMethod
	searchArguments []float64

	orchestrator LaunchOrchestrator

	reference *ReferenceSpec

	validationMethod    ValidationMethod
	toleranceThreshold  float64
	validationRanges    map[ArgumentId]int
	customComparators   map[ArgumentId]Comparator

	timeoutMillis int64
}

// Id returns the kernel's stable identifier.
func (k *Kernel) Id() KernelId { return k.id }

// Name returns the kernel's registered name.
func (k *Kernel) Name() string { return k.name }

// Source returns the kernel's raw source text, without any #define lines.
func (k *Kernel) Source() string { return k.source }

// GlobalSize returns the kernel's declared base global size.
func (k *Kernel) GlobalSize() Dim3 { return k.global }

// LocalSize returns the kernel's declared base local size.
func (k *Kernel) LocalSize() Dim3 { return k.local }

// BoundArguments returns the ordered argument ids bound to this kernel.
func (k *Kernel) BoundArguments() []ArgumentId {
	out := make([]ArgumentId, len(k.boundArgs))
	copy(out, k.boundArgs)
	return out
}

// Parameters returns the kernel's parameter list in declaration order.
func (k *Kernel) Parameters() []KernelParameter {
	out := make([]KernelParameter, len(k.parameters))
	copy(out, k.parameters)
	return out
}

// Constraints returns the kernel's registered constraints in declaration
// order.
func (k *Kernel) Constraints() []KernelConstraint {
	out := make([]KernelConstraint, len(k.constraints))
	copy(out, k.constraints)
	return out
}

// SearchMethod returns the kernel's configured search strategy.
func (k *Kernel) SearchMethod() SearchMethod { return k.searchMethod }

// SearchArguments returns the kernel's configured search-strategy
// arguments.
func (k *Kernel) SearchArguments() []float64 {
	out := make([]float64, len(k.searchArguments))
	copy(out, k.searchArguments)
	return out
}

// Orchestrator returns the kernel's launch orchestrator, or nil when the
// kernel uses the direct execution path.
func (k *Kernel) Orchestrator() LaunchOrchestrator { return k.orchestrator }

// Reference returns the kernel's reference specification, or nil when none
// has been set.
func (k *Kernel) Reference() *ReferenceSpec { return k.reference }

// sourceWithDefines renders the kernel source prefixed by one
// "#define NAME VALUE" line per parameter, in declaration order, for the
// given configuration. This is the single escape hatch through which
// tunable parameters reach the kernel program text.
func (k *Kernel) sourceWithDefines(cfg KernelConfiguration) string {
	var b strings.Builder
	for _, p := range k.parameters {
		v, ok := cfg.values[p.Name]
		if !ok {
			continue
		}
		b.WriteString("#define ")
		b.WriteString(p.Name)
		b.WriteByte(' ')
		b.WriteString(strconv.Itoa(v))
		b.WriteByte('\n')
	}
	b.WriteString(k.source)
	return b.String()
}
