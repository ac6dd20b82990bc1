package ktune

// LaunchOrchestrator is the core's up-interface: a user-supplied value that
// controls how one configuration is launched, possibly issuing several
// kernel calls with intervening argument updates. During LaunchComputation
// it is handed a RunContext bound only for the duration of that call — per
// spec.md §9's design note, this is modelled as an explicit value passed
// into the method rather than a field mutated on the orchestrator, which
// would otherwise create a lifetime hazard across concurrent or repeated
// runs.
type LaunchOrchestrator interface {
	LaunchComputation(ctx *RunContext, kernelId KernelId) error
}

// ArgumentPreloader is an optional capability a LaunchOrchestrator may
// additionally implement to request that the runner upload every bound
// argument before LaunchComputation is invoked (spec.md §6.2). When absent,
// the orchestrator is responsible for ordering uploads itself via
// UpdateArgumentVector/UpdateArgumentScalar.
type ArgumentPreloader interface {
	EnableArgumentPreload() bool
}

// RunContext is the manipulator interface granted to a LaunchOrchestrator
// for the lifetime of one run. It lets the orchestrator issue zero or more
// kernel launches, inspect the current configuration and geometry, and
// mutate argument contents or bindings between launches; the engine
// reflects mutations on the next launch.
type RunContext struct {
	engine   ComputeEngine
	registry *KernelRegistry
	args     *ArgumentStore
	config   KernelConfiguration

	// runtimeArgs tracks the current argument-id bindings per kernel id,
	// initialised from the registry and mutable via SwapKernelArguments /
	// ChangeKernelArguments.
	runtimeArgs map[KernelId][]ArgumentId

	deviceCallNs int64 // sum of per-launch device time, for overhead accounting
}

// RunKernel issues one engine launch for kernelId using its current
// geometry (or the overridden global/local size, when provided), and the
// context's current argument bindings for that kernel.
func (c *RunContext) RunKernel(kernelId KernelId, sizes ...Dim3) error {
	k, err := c.registry.Kernel(kernelId)
	if err != nil {
		return err
	}

	global := c.GetCurrentGlobalSize(kernelId)
	local := c.GetCurrentLocalSize(kernelId)
	if len(sizes) >= 1 {
		global = sizes[0]
	}
	if len(sizes) >= 2 {
		local = sizes[1]
	}

	argIds := c.runtimeArgs[kernelId]
	args, err := c.args.GetArguments(argIds)
	if err != nil {
		return err
	}

	rt := RuntimeData{
		KernelId:    kernelId,
		Name:        k.Name(),
		Source:      k.sourceWithDefines(c.config),
		GlobalSize:  global,
		LocalSize:   local,
		ArgumentIds: argIds,
	}

	result, err := c.engine.RunKernel(rt, args, nil)
	if err != nil {
		return err
	}
	c.deviceCallNs += result.DurationNs
	return nil
}

// GetCurrentGlobalSize returns the effective global size the current
// configuration derived for kernelId.
func (c *RunContext) GetCurrentGlobalSize(kernelId KernelId) Dim3 {
	return c.config.SubKernelGlobalSize(kernelId)
}

// GetCurrentLocalSize returns the effective local size the current
// configuration derived for kernelId.
func (c *RunContext) GetCurrentLocalSize(kernelId KernelId) Dim3 {
	return c.config.SubKernelLocalSize(kernelId)
}

// GetCurrentConfiguration returns the configuration being run.
func (c *RunContext) GetCurrentConfiguration() KernelConfiguration {
	return c.config
}

// GetParameterValue returns the current configuration's value for a named
// parameter.
func (c *RunContext) GetParameterValue(name string) (int, bool) {
	return c.config.Value(name)
}

// UpdateArgumentVector replaces a vector argument's contents between
// launches; the engine reflects the mutation on the next RunKernel call.
func (c *RunContext) UpdateArgumentVector(id ArgumentId, data []byte) error {
	arg, err := c.args.GetArgument(id)
	if err != nil {
		return err
	}
	if err := c.args.UpdateArgument(id, data, len(data)/arg.Kind().ElementSize()); err != nil {
		return err
	}
	return c.engine.UpdateArgument(id, data, len(data))
}

// UpdateArgumentScalar replaces a scalar float32 argument's value between
// launches.
func (c *RunContext) UpdateArgumentScalar(id ArgumentId, value float32) error {
	return c.UpdateArgumentVector(id, float32ToBytes([]float32{value}))
}

// SwapKernelArguments exchanges the argument ids bound at positions a and b
// for kernelId's next launch.
func (c *RunContext) SwapKernelArguments(kernelId KernelId, a, b int) error {
	ids := c.runtimeArgs[kernelId]
	if a < 0 || b < 0 || a >= len(ids) || b >= len(ids) {
		return newError(ErrInvalidArgument, "SwapKernelArguments", "argument position out of range")
	}
	ids[a], ids[b] = ids[b], ids[a]
	return nil
}

// ChangeKernelArguments replaces kernelId's entire argument-id binding for
// its next launch.
func (c *RunContext) ChangeKernelArguments(kernelId KernelId, newArgIds []ArgumentId) {
	c.runtimeArgs[kernelId] = append([]ArgumentId(nil), newArgIds...)
}
