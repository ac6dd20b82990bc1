package ktune

// CompositionId stably identifies a registered KernelComposition.
type CompositionId int

// KernelComposition bundles an ordered set of kernels to be tuned together
// as a single unit, with per-kernel argument bindings, arguments shared
// across sub-kernels, and composition-level parameters/constraints that may
// bind thread modifiers to specific sub-kernels.
type KernelComposition struct {
	id   CompositionId
	name string

	kernelIds []KernelId
	kernels   map[KernelId]*Kernel

	perKernelArgs map[KernelId][]ArgumentId
	sharedArgs    []ArgumentId

	parameters  []KernelParameter
	paramIndex  map[string]int
	constraints []KernelConstraint

	orchestrator LaunchOrchestrator

	searchMethod    SearchMethod
	searchArguments []float64
}

// Id returns the composition's stable identifier.
func (c *KernelComposition) Id() CompositionId { return c.id }

// Name returns the composition's registered name.
func (c *KernelComposition) Name() string { return c.name }

// KernelIds returns the composition's sub-kernel ids in declaration order.
func (c *KernelComposition) KernelIds() []KernelId {
	out := make([]KernelId, len(c.kernelIds))
	copy(out, c.kernelIds)
	return out
}

// Kernel returns the sub-kernel registered under id within this
// composition.
func (c *KernelComposition) Kernel(id KernelId) *Kernel {
	return c.kernels[id]
}

// Parameters returns the composition-level parameter list.
func (c *KernelComposition) Parameters() []KernelParameter {
	out := make([]KernelParameter, len(c.parameters))
	copy(out, c.parameters)
	return out
}

// Constraints returns the composition-level constraint list.
func (c *KernelComposition) Constraints() []KernelConstraint {
	out := make([]KernelConstraint, len(c.constraints))
	copy(out, c.constraints)
	return out
}

// SharedArguments returns argument ids shared across every sub-kernel.
func (c *KernelComposition) SharedArguments() []ArgumentId {
	out := make([]ArgumentId, len(c.sharedArgs))
	copy(out, c.sharedArgs)
	return out
}

// ArgumentsFor returns the argument ids bound to one sub-kernel, including
// any shared arguments.
func (c *KernelComposition) ArgumentsFor(id KernelId) []ArgumentId {
	out := append([]ArgumentId(nil), c.sharedArgs...)
	out = append(out, c.perKernelArgs[id]...)
	return out
}

// Orchestrator returns the composition's launch orchestrator. Per
// spec.md §4.E, compositions always run through the orchestrator path, so
// this is never nil on a composition that has been fully configured.
func (c *KernelComposition) Orchestrator() LaunchOrchestrator { return c.orchestrator }

// SearchMethod returns the composition's configured search strategy.
func (c *KernelComposition) SearchMethod() SearchMethod { return c.searchMethod }

// SearchArguments returns the composition's configured search-strategy
// arguments.
func (c *KernelComposition) SearchArguments() []float64 {
	out := make([]float64, len(c.searchArguments))
	copy(out, c.searchArguments)
	return out
}

// CompositionConfigurationGenerator multiplexes each sub-kernel's derived
// geometry under one shared composition-level parameter assignment. Per
// spec.md §9, it derives each sub-kernel's geometry map lazily rather than
// materialising the whole per-composition configuration table; All() builds
// the full list for callers that need one.
type CompositionConfigurationGenerator struct {
	comp        *KernelComposition
	autoCorrect bool
}

// NewCompositionConfigurationGenerator builds a generator for a
// composition's combined parameter space.
func NewCompositionConfigurationGenerator(c *KernelComposition, autoCorrect bool) *CompositionConfigurationGenerator {
	return &CompositionConfigurationGenerator{comp: c, autoCorrect: autoCorrect}
}

// Count returns the number of valid composition configurations.
func (g *CompositionConfigurationGenerator) Count() int {
	n := 0
	g.Iterate(func(KernelConfiguration) bool {
		n++
		return true
	})
	return n
}

// All materialises every valid composition configuration.
func (g *CompositionConfigurationGenerator) All() []KernelConfiguration {
	var out []KernelConfiguration
	g.Iterate(func(c KernelConfiguration) bool {
		out = append(out, c)
		return true
	})
	return out
}

// Iterate walks the valid composition-configuration sequence lazily. For
// each composition-level assignment, every sub-kernel's geometry is derived
// independently: a modifier scoped to a specific sub-kernel id only applies
// to that sub-kernel; an unscoped modifier applies to every sub-kernel that
// declares the same base dimension.
func (g *CompositionConfigurationGenerator) Iterate(yield func(KernelConfiguration) bool) {
	c := g.comp
	n := len(c.parameters)

	idx := make([]int, n)
	assignment := make(map[string]int, n)
	order := make([]string, n)
	for i, p := range c.parameters {
		order[i] = p.Name
	}

	emit := func() bool {
		for i, p := range c.parameters {
			assignment[p.Name] = p.Values[idx[i]]
		}
		if !g.satisfiesConstraints(assignment) {
			return true
		}

		subGlobal := make(map[KernelId]Dim3, len(c.kernelIds))
		subLocal := make(map[KernelId]Dim3, len(c.kernelIds))
		for _, kid := range c.kernelIds {
			sub := c.kernels[kid]
			scoped := scopedParameters(c.parameters, kid)
			global, local, ok := deriveGeometry(sub.global, sub.local, scoped, assignment, g.autoCorrect)
			if !ok {
				return true // this combination is invalid for at least one sub-kernel; skip it
			}
			subGlobal[kid] = global
			subLocal[kid] = local
		}

		values := make(map[string]int, n)
		for k, v := range assignment {
			values[k] = v
		}
		cfg := KernelConfiguration{
			values:    values,
			order:     append([]string(nil), order...),
			subGlobal: subGlobal,
			subLocal:  subLocal,
		}
		return yield(cfg)
	}

	if n == 0 {
		emit()
		return
	}

	for {
		if !emit() {
			return
		}
		if !advance(idx, c.parameters) {
			return
		}
	}
}

func (g *CompositionConfigurationGenerator) satisfiesConstraints(assignment map[string]int) bool {
	for _, c := range g.comp.constraints {
		if !c.evaluate(assignment) {
			return false
		}
	}
	return true
}

// scopedParameters returns the subset of parameters whose thread modifier
// applies to sub-kernel id: those with an unscoped modifier (KernelId == 0)
// or one explicitly scoped to id. Parameters without a modifier are left
// out, since deriveGeometry ignores them; their values still reach it
// through the shared assignment map.
func scopedParameters(parameters []KernelParameter, id KernelId) []KernelParameter {
	out := make([]KernelParameter, 0, len(parameters))
	for _, p := range parameters {
		if p.Modifier.Scope == ModifierNone {
			continue
		}
		if p.Modifier.HasKernelScope() && p.Modifier.KernelId != id {
			continue
		}
		out = append(out, p)
	}
	return out
}
