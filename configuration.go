package ktune

// KernelConfiguration is a concrete, immutable choice of one value per
// tunable parameter, together with the launch geometry derived from it. It
// is a small value type, copied freely between the generator, searchers,
// and the runner.
type KernelConfiguration struct {
	values map[string]int
	order  []string // parameter declaration order, for stable iteration

	global Dim3
	local  Dim3

	// subGlobal/subLocal hold per-sub-kernel geometry for a composition
	// configuration; both are nil for a plain kernel configuration.
	subGlobal map[KernelId]Dim3
	subLocal  map[KernelId]Dim3
}

// Value returns the chosen value for the named parameter and whether the
// parameter was present in this configuration.
func (c KernelConfiguration) Value(name string) (int, bool) {
	v, ok := c.values[name]
	return v, ok
}

// MustValue returns the chosen value for name, or zero if absent. Intended
// for use inside orchestrators that already know their own parameter names.
func (c KernelConfiguration) MustValue(name string) int {
	return c.values[name]
}

// ParameterNames returns the configuration's parameter names in
// declaration order.
func (c KernelConfiguration) ParameterNames() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// GlobalSize returns the configuration's derived effective global size.
func (c KernelConfiguration) GlobalSize() Dim3 { return c.global }

// LocalSize returns the configuration's derived effective local size.
func (c KernelConfiguration) LocalSize() Dim3 { return c.local }

// SubKernelGlobalSize returns the derived global size for one sub-kernel of
// a composition configuration.
func (c KernelConfiguration) SubKernelGlobalSize(id KernelId) Dim3 {
	if c.subGlobal == nil {
		return c.global
	}
	return c.subGlobal[id]
}

// SubKernelLocalSize returns the derived local size for one sub-kernel of a
// composition configuration.
func (c KernelConfiguration) SubKernelLocalSize(id KernelId) Dim3 {
	if c.subLocal == nil {
		return c.local
	}
	return c.subLocal[id]
}

// clone returns a deep-enough copy of c safe to hand to a caller that will
// mutate derived geometry for a sub-kernel without affecting c.
func (c KernelConfiguration) clone() KernelConfiguration {
	values := make(map[string]int, len(c.values))
	for k, v := range c.values {
		values[k] = v
	}
	order := make([]string, len(c.order))
	copy(order, c.order)
	out := KernelConfiguration{values: values, order: order, global: c.global, local: c.local}
	if c.subGlobal != nil {
		out.subGlobal = make(map[KernelId]Dim3, len(c.subGlobal))
		for k, v := range c.subGlobal {
			out.subGlobal[k] = v
		}
	}
	if c.subLocal != nil {
		out.subLocal = make(map[KernelId]Dim3, len(c.subLocal))
		for k, v := range c.subLocal {
			out.subLocal[k] = v
		}
	}
	return out
}
