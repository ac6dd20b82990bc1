package ktune

// ConfigurationGenerator produces the lazy sequence of valid
// KernelConfiguration values over the Cartesian product of a kernel's
// parameter value lists, filtered by its constraints, and derives each
// configuration's launch geometry as it goes.
//
// Iteration order is the lexicographic order of parameter-declaration by
// value-index: the first declared parameter is the slowest-changing digit,
// the last declared parameter the fastest.
type ConfigurationGenerator struct {
	parameters  []KernelParameter
	constraints []KernelConstraint
	global      Dim3
	local       Dim3
	autoCorrect bool
}

// NewConfigurationGenerator builds a generator for a plain (non-composition)
// kernel's parameter space.
func NewConfigurationGenerator(k *Kernel, autoCorrect bool) *ConfigurationGenerator {
	return &ConfigurationGenerator{
		parameters:  k.Parameters(),
		constraints: k.Constraints(),
		global:      k.global,
		local:       k.local,
		autoCorrect: autoCorrect,
	}
}

// Count returns the number of valid configurations the generator produces,
// equivalent to len(All()) but without keeping the configurations.
func (g *ConfigurationGenerator) Count() int {
	n := 0
	g.Iterate(func(KernelConfiguration) bool {
		n++
		return true
	})
	return n
}

// All materialises every valid configuration, in iteration order.
// TuneKernel uses AllIndexed instead, which also returns each
// configuration's value indices for the searchers.
func (g *ConfigurationGenerator) All() []KernelConfiguration {
	var out []KernelConfiguration
	g.Iterate(func(c KernelConfiguration) bool {
		out = append(out, c)
		return true
	})
	return out
}

// Iterate walks the valid-configuration sequence lazily, calling yield for
// each one. It stops early if yield returns false.
func (g *ConfigurationGenerator) Iterate(yield func(KernelConfiguration) bool) {
	g.IterateIndexed(func(cfg KernelConfiguration, _ []int) bool {
		return yield(cfg)
	})
}

// AllIndexed materialises every valid configuration alongside the
// value-index tuple (one index per parameter, declaration order) that
// produced it. Searchers that reason about the parameter-index space
// directly (SimulatedAnnealing, ParticleSwarm) need this correspondence to
// map between the two.
func (g *ConfigurationGenerator) AllIndexed() ([]KernelConfiguration, [][]int) {
	var configs []KernelConfiguration
	var idxs [][]int
	g.IterateIndexed(func(cfg KernelConfiguration, idx []int) bool {
		configs = append(configs, cfg)
		idxs = append(idxs, idx)
		return true
	})
	return configs, idxs
}

// IterateIndexed is Iterate's underlying walk, additionally passing each
// yielded configuration's value-index tuple.
func (g *ConfigurationGenerator) IterateIndexed(yield func(KernelConfiguration, []int) bool) {
	n := len(g.parameters)
	if n == 0 {
		global, local, ok := deriveGeometry(g.global, g.local, nil, nil, g.autoCorrect)
		if ok {
			yield(KernelConfiguration{global: global, local: local}, nil)
		}
		return
	}

	idx := make([]int, n)
	assignment := make(map[string]int, n)
	order := make([]string, n)
	for i, p := range g.parameters {
		order[i] = p.Name
	}

	for {
		for i, p := range g.parameters {
			assignment[p.Name] = p.Values[idx[i]]
		}

		if g.satisfiesConstraints(assignment) {
			global, local, ok := deriveGeometry(g.global, g.local, g.parameters, assignment, g.autoCorrect)
			if ok {
				values := make(map[string]int, n)
				for k, v := range assignment {
					values[k] = v
				}
				cfg := KernelConfiguration{values: values, order: append([]string(nil), order...), global: global, local: local}
				if !yield(cfg, append([]int(nil), idx...)) {
					return
				}
			}
		}

		if !advance(idx, g.parameters) {
			return
		}
	}
}

// satisfiesConstraints reports whether assignment passes every registered
// constraint (testable property 1 in spec.md §8).
func (g *ConfigurationGenerator) satisfiesConstraints(assignment map[string]int) bool {
	for _, c := range g.constraints {
		if !c.evaluate(assignment) {
			return false
		}
	}
	return true
}

// advance increments the mixed-radix counter idx over the parameters'
// value-index ranges, treating the last parameter as the fastest-changing
// digit. It returns false once every combination has been produced.
func advance(idx []int, parameters []KernelParameter) bool {
	for i := len(idx) - 1; i >= 0; i-- {
		idx[i]++
		if idx[i] < len(parameters[i].Values) {
			return true
		}
		idx[i] = 0
	}
	return false
}

// deriveGeometry applies every parameter's thread modifier, in declaration
// order, to the kernel's base global/local size, then checks divisibility
// (applying automatic correction when enabled). It returns ok=false when
// the derived geometry is non-positive on a used axis or (with
// auto-correction disabled)
// mis-divisible — such a configuration is rejected as invalid, per
// spec.md §4.C.
func deriveGeometry(baseGlobal, baseLocal Dim3, parameters []KernelParameter, assignment map[string]int, autoCorrect bool) (Dim3, Dim3, bool) {
	global, local := baseGlobal, baseLocal

	for _, p := range parameters {
		m := p.Modifier
		if m.Scope == ModifierNone {
			continue
		}
		value := assignment[p.Name]
		switch m.Scope {
		case ModifierGlobal:
			current := global.At(m.Dimension)
			global = global.With(m.Dimension, m.Op.Apply(current, value))
		case ModifierLocal:
			current := local.At(m.Dimension)
			local = local.With(m.Dimension, m.Op.Apply(current, value))
		}
	}

	// A Y or Z axis that is zero in both the base and the derived sizes is
	// unused: it counts as 1 for the checks below and stays zero in the result.
	checkGlobal, checkLocal := global, local
	for _, d := range []Dimension{DimY, DimZ} {
		if baseGlobal.At(d) == 0 && baseLocal.At(d) == 0 && global.At(d) == 0 && local.At(d) == 0 {
			checkGlobal, checkLocal = checkGlobal.With(d, 1), checkLocal.With(d, 1)
		}
	}

	if !checkGlobal.Positive() || !checkLocal.Positive() {
		return Dim3{}, Dim3{}, false
	}

	if !checkGlobal.DivisibleBy(checkLocal) {
		if !autoCorrect {
			return Dim3{}, Dim3{}, false
		}
		global = global.RoundUpTo(local)
	}

	return global, local, true
}
