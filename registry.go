package ktune

import "fmt"

// KernelRegistry stores kernel and composition metadata: source, entry
// geometry, parameter/constraint lists, bound arguments, search policy, and
// optional launch orchestrator or reference specification. It owns every
// Kernel and KernelComposition it creates.
type KernelRegistry struct {
	nextKernelId KernelId
	kernels      map[KernelId]*Kernel
	kernelOrder  []KernelId

	nextCompId CompositionId
	comps      map[CompositionId]*KernelComposition
}

// NewKernelRegistry creates an empty registry.
func NewKernelRegistry() *KernelRegistry {
	return &KernelRegistry{
		kernels: make(map[KernelId]*Kernel),
		comps:   make(map[CompositionId]*KernelComposition),
	}
}

// AddKernel registers a new kernel with the given source, name, and
// declared base launch geometry, and returns its stable id. Ids start at 1,
// so the zero KernelId never names a kernel and can mean "unscoped" in a
// ThreadModifier.
func (r *KernelRegistry) AddKernel(source, name string, global, local Dim3) KernelId {
	r.nextKernelId++
	id := r.nextKernelId
	k := &Kernel{
		id:               id,
		name:             name,
		source:           source,
		global:           global,
		local:            local,
		paramIndex:       make(map[string]int),
		validationMethod: ValidationAbsoluteDifference,
		validationRanges: make(map[ArgumentId]int),
	}
	r.kernels[id] = k
	r.kernelOrder = append(r.kernelOrder, id)
	return id
}

// AddKernelFromFile registers a new kernel whose source is read by the
// caller (file I/O is an external-collaborator concern per spec.md §1) and
// passed in as sourceText.
func (r *KernelRegistry) AddKernelFromFile(sourceText, name string, global, local Dim3) KernelId {
	return r.AddKernel(sourceText, name, global, local)
}

// AddComposition registers a new kernel composition from an ordered list of
// already-registered sub-kernel ids.
func (r *KernelRegistry) AddComposition(name string, kernelIds []KernelId) (CompositionId, error) {
	for _, kid := range kernelIds {
		if _, ok := r.kernels[kid]; !ok {
			return 0, newError(ErrInvalidId, "AddComposition", fmt.Sprintf("unknown kernel id %d", kid))
		}
	}

	id := r.nextCompId
	r.nextCompId++
	kmap := make(map[KernelId]*Kernel, len(kernelIds))
	for _, kid := range kernelIds {
		kmap[kid] = r.kernels[kid]
	}
	r.comps[id] = &KernelComposition{
		id:            id,
		name:          name,
		kernelIds:     append([]KernelId(nil), kernelIds...),
		kernels:       kmap,
		perKernelArgs: make(map[KernelId][]ArgumentId),
		paramIndex:    make(map[string]int),
	}
	return id, nil
}

// Kernel returns the registered kernel for id, or ErrInvalidId.
func (r *KernelRegistry) Kernel(id KernelId) (*Kernel, error) {
	k, ok := r.kernels[id]
	if !ok {
		return nil, newError(ErrInvalidId, "Kernel", fmt.Sprintf("unknown kernel id %d", id))
	}
	return k, nil
}

// Composition returns the registered composition for id, or ErrInvalidId.
func (r *KernelRegistry) Composition(id CompositionId) (*KernelComposition, error) {
	c, ok := r.comps[id]
	if !ok {
		return nil, newError(ErrInvalidId, "Composition", fmt.Sprintf("unknown composition id %d", id))
	}
	return c, nil
}

// KernelCount returns the number of registered kernels.
func (r *KernelRegistry) KernelCount() int { return len(r.kernels) }

// AddParameter adds a parameter to kernel id. Parameter names are unique
// within a kernel; a duplicate name fails with ErrInvalidArgument.
func (r *KernelRegistry) AddParameter(id KernelId, p KernelParameter) error {
	k, err := r.Kernel(id)
	if err != nil {
		return err
	}
	if err := p.validate(); err != nil {
		return err
	}
	if _, exists := k.paramIndex[p.Name]; exists {
		return newError(ErrInvalidArgument, "AddParameter", fmt.Sprintf("parameter %q already exists on kernel %q", p.Name, k.name))
	}
	k.paramIndex[p.Name] = len(k.parameters)
	k.parameters = append(k.parameters, p)
	return nil
}

// AddCompositionParameter adds a composition-level parameter, which may
// bind a thread modifier to a specific sub-kernel id.
func (r *KernelRegistry) AddCompositionParameter(id CompositionId, p KernelParameter) error {
	c, err := r.Composition(id)
	if err != nil {
		return err
	}
	if err := p.validate(); err != nil {
		return err
	}
	if _, exists := c.paramIndex[p.Name]; exists {
		return newError(ErrInvalidArgument, "AddCompositionParameter", fmt.Sprintf("parameter %q already exists on composition %q", p.Name, c.name))
	}
	c.paramIndex[p.Name] = len(c.parameters)
	c.parameters = append(c.parameters, p)
	return nil
}

// AddConstraint adds a constraint over a subset of kernel id's parameters.
// Every named parameter must already exist on the kernel.
func (r *KernelRegistry) AddConstraint(id KernelId, c KernelConstraint) error {
	k, err := r.Kernel(id)
	if err != nil {
		return err
	}
	for _, name := range c.ParameterNames {
		if _, ok := k.paramIndex[name]; !ok {
			return newError(ErrInvalidArgument, "AddConstraint", fmt.Sprintf("constraint references unknown parameter %q", name))
		}
	}
	k.constraints = append(k.constraints, c)
	return nil
}

// AddCompositionConstraint adds a constraint over a subset of composition
// id's parameters.
func (r *KernelRegistry) AddCompositionConstraint(id CompositionId, c KernelConstraint) error {
	comp, err := r.Composition(id)
	if err != nil {
		return err
	}
	for _, name := range c.ParameterNames {
		if _, ok := comp.paramIndex[name]; !ok {
			return newError(ErrInvalidArgument, "AddCompositionConstraint", fmt.Sprintf("constraint references unknown parameter %q", name))
		}
	}
	comp.constraints = append(comp.constraints, c)
	return nil
}

// BindArguments sets the ordered list of argument ids a kernel's launch
// receives.
func (r *KernelRegistry) BindArguments(id KernelId, argIds []ArgumentId) error {
	k, err := r.Kernel(id)
	if err != nil {
		return err
	}
	k.boundArgs = append([]ArgumentId(nil), argIds...)
	return nil
}

// BindCompositionArguments sets the argument ids bound to one sub-kernel of
// a composition, in addition to any shared arguments.
func (r *KernelRegistry) BindCompositionArguments(id CompositionId, kernelId KernelId, argIds []ArgumentId) error {
	c, err := r.Composition(id)
	if err != nil {
		return err
	}
	if _, ok := c.kernels[kernelId]; !ok {
		return newError(ErrInvalidId, "BindCompositionArguments", fmt.Sprintf("kernel %d is not part of composition %q", kernelId, c.name))
	}
	c.perKernelArgs[kernelId] = append([]ArgumentId(nil), argIds...)
	return nil
}

// SetSharedArguments sets the argument ids shared across every sub-kernel
// of a composition.
func (r *KernelRegistry) SetSharedArguments(id CompositionId, argIds []ArgumentId) error {
	c, err := r.Composition(id)
	if err != nil {
		return err
	}
	c.sharedArgs = append([]ArgumentId(nil), argIds...)
	return nil
}

// SetSearchMethod configures kernel id's search strategy and its arguments.
// It fails with ErrInvalidArgument when fewer arguments than the strategy
// requires are supplied (spec.md §4.D).
func (r *KernelRegistry) SetSearchMethod(id KernelId, method SearchMethod, args []float64) error {
	k, err := r.Kernel(id)
	if err != nil {
		return err
	}
	if len(args) < method.requiredSearchArgs() {
		return newError(ErrInvalidArgument, "SetSearchMethod", fmt.Sprintf("%s requires at least %d search arguments, got %d", method, method.requiredSearchArgs(), len(args)))
	}
	k.searchMethod = method
	k.searchArguments = append([]float64(nil), args...)
	return nil
}

// SetCompositionSearchMethod configures a composition's search strategy.
func (r *KernelRegistry) SetCompositionSearchMethod(id CompositionId, method SearchMethod, args []float64) error {
	c, err := r.Composition(id)
	if err != nil {
		return err
	}
	if len(args) < method.requiredSearchArgs() {
		return newError(ErrInvalidArgument, "SetCompositionSearchMethod", fmt.Sprintf("%s requires at least %d search arguments, got %d", method, method.requiredSearchArgs(), len(args)))
	}
	c.searchMethod = method
	c.searchArguments = append([]float64(nil), args...)
	return nil
}

// SetLaunchOrchestrator sets kernel id's launch orchestrator, switching it
// to the orchestrator execution path.
func (r *KernelRegistry) SetLaunchOrchestrator(id KernelId, o LaunchOrchestrator) error {
	k, err := r.Kernel(id)
	if err != nil {
		return err
	}
	k.orchestrator = o
	return nil
}

// SetCompositionOrchestrator sets a composition's mandatory launch
// orchestrator.
func (r *KernelRegistry) SetCompositionOrchestrator(id CompositionId, o LaunchOrchestrator) error {
	c, err := r.Composition(id)
	if err != nil {
		return err
	}
	c.orchestrator = o
	return nil
}

// SetReferenceKernel sets kernel id's reference to another registered
// kernel at a fixed configuration, compared on the given argument ids.
func (r *KernelRegistry) SetReferenceKernel(id KernelId, referenceKernelId KernelId, referenceConfig map[string]int, argumentIds []ArgumentId) error {
	k, err := r.Kernel(id)
	if err != nil {
		return err
	}
	if _, err := r.Kernel(referenceKernelId); err != nil {
		return err
	}
	k.reference = &ReferenceSpec{
		KernelId:    referenceKernelId,
		Config:      referenceConfig,
		ArgumentIds: append([]ArgumentId(nil), argumentIds...),
	}
	return nil
}

// SetReferenceComputer sets kernel id's reference to an externally-provided
// computer capability, invoked per marked argument id.
func (r *KernelRegistry) SetReferenceComputer(id KernelId, computer ReferenceComputer, argumentIds []ArgumentId) error {
	k, err := r.Kernel(id)
	if err != nil {
		return err
	}
	k.reference = &ReferenceSpec{
		Computer:    computer,
		ArgumentIds: append([]ArgumentId(nil), argumentIds...),
	}
	return nil
}

// SetValidationMethod sets kernel id's comparison method and tolerance
// threshold.
func (r *KernelRegistry) SetValidationMethod(id KernelId, method ValidationMethod, tolerance float64) error {
	k, err := r.Kernel(id)
	if err != nil {
		return err
	}
	k.validationMethod = method
	k.toleranceThreshold = tolerance
	return nil
}

// SetValidationRange caps comparison to the leading n elements of the given
// argument for kernel id.
func (r *KernelRegistry) SetValidationRange(id KernelId, argumentId ArgumentId, n int) error {
	k, err := r.Kernel(id)
	if err != nil {
		return err
	}
	k.validationRanges[argumentId] = n
	return nil
}

// SetArgumentComparator overrides the default comparison for one argument
// of kernel id.
func (r *KernelRegistry) SetArgumentComparator(id KernelId, argumentId ArgumentId, cmp Comparator) error {
	k, err := r.Kernel(id)
	if err != nil {
		return err
	}
	if k.customComparators == nil {
		k.customComparators = make(map[ArgumentId]Comparator)
	}
	k.customComparators[argumentId] = cmp
	return nil
}

// SetTimeoutMillis sets kernel id's soft per-run time budget; zero disables
// the budget.
func (r *KernelRegistry) SetTimeoutMillis(id KernelId, millis int64) error {
	k, err := r.Kernel(id)
	if err != nil {
		return err
	}
	k.timeoutMillis = millis
	return nil
}

// GetKernelSourceWithDefines returns id's source prefixed by one
// "#define NAME VALUE" line per parameter, in declaration order, for cfg.
func (r *KernelRegistry) GetKernelSourceWithDefines(id KernelId, cfg KernelConfiguration) (string, error) {
	k, err := r.Kernel(id)
	if err != nil {
		return "", err
	}
	return k.sourceWithDefines(cfg), nil
}
