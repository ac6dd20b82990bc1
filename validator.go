package ktune

import (
	"fmt"
	"math"
	"sync"
)

// ValidationMethod selects how two argument buffers are compared.
type ValidationMethod int

const (
	// ValidationAbsoluteDifference requires |a-b| <= tolerance for every
	// element.
	ValidationAbsoluteDifference ValidationMethod = iota
	// ValidationSideBySideComparison requires |a-b| / max(|a|,|b|,eps) <=
	// tolerance for every element.
	ValidationSideBySideComparison
	// ValidationSideBySideRelative is the relative-only form of
	// SideBySideComparison (identical formula; kept distinct per
	// spec.md §4.F so a caller's chosen name round-trips through
	// configuration).
	ValidationSideBySideRelative
)

func (m ValidationMethod) String() string {
	switch m {
	case ValidationAbsoluteDifference:
		return "AbsoluteDifference"
	case ValidationSideBySideComparison:
		return "SideBySideComparison"
	case ValidationSideBySideRelative:
		return "SideBySideRelative"
	default:
		return "Unknown"
	}
}

// epsilon guards the side-by-side comparisons' denominator against
// division by a value near zero.
const epsilon = 1e-12

// Comparator is a custom per-argument comparison overriding a kernel's
// default validation method.
type Comparator func(kind ArgumentKind, expected, actual []byte) bool

// compareElements applies method/tolerance to every element of expected and
// actual, optionally capped to the first rangeLimit elements (0 = no cap).
// Adapted from the teacher's Float32NearEqual: absolute and relative
// tolerance checks over raw numeric differences, generalised across the
// declared ArgumentKind instead of being float32-specific.
func compareElements(kind ArgumentKind, expected, actual []byte, method ValidationMethod, tolerance float64, rangeLimit int) bool {
	elemSize := kind.ElementSize()
	if elemSize == 0 || len(expected) != len(actual) {
		return false
	}
	n := len(expected) / elemSize
	if rangeLimit > 0 && rangeLimit < n {
		n = rangeLimit
	}

	for i := 0; i < n; i++ {
		a := readElement(kind, expected, i)
		b := readElement(kind, actual, i)
		if !withinTolerance(a, b, method, tolerance) {
			return false
		}
	}
	return true
}

func withinTolerance(a, b float64, method ValidationMethod, tolerance float64) bool {
	if math.IsNaN(a) && math.IsNaN(b) {
		return true
	}
	diff := math.Abs(a - b)

	switch method {
	case ValidationAbsoluteDifference:
		return diff <= tolerance
	case ValidationSideBySideComparison, ValidationSideBySideRelative:
		denom := math.Max(math.Max(math.Abs(a), math.Abs(b)), epsilon)
		return diff/denom <= tolerance
	default:
		return false
	}
}

// readElement decodes the i-th element of data (tagged by kind) as a
// float64 for tolerance comparison purposes.
func readElement(kind ArgumentKind, data []byte, i int) float64 {
	switch kind {
	case ArgFloat:
		return float64(bytesToFloat32(data)[i])
	case ArgDouble:
		return bytesToFloat64(data)[i]
	case ArgInt32:
		return float64(bytesToInt32(data)[i])
	default:
		// Other integer kinds are compared byte-for-byte at the element
		// granularity dictated by their size; treat each byte as an
		// unsigned integer digit and sum to a stable ordering key. This
		// keeps comparisons meaningful without a typed view per kind.
		start := i * kind.ElementSize()
		var v float64
		for j := 0; j < kind.ElementSize(); j++ {
			v = v*256 + float64(data[start+j])
		}
		return v
	}
}

// referenceExecutor is the subset of the Kernel Runner the Validator needs
// to compute a kernel-based reference result. KernelRunner implements it.
type referenceExecutor interface {
	runForReference(k *Kernel, cfg KernelConfiguration, argIds []ArgumentId) (map[ArgumentId][]byte, error)
}

// Validator is the Result Validator (component F): it ensures a reference
// exists before any tuning run of a kernel, computes it at most once (cached
// until ClearReferenceResults), and compares each run's marked output
// arguments against the cached expectation under a tolerance policy.
type Validator struct {
	mu       sync.Mutex
	args     *ArgumentStore
	executor referenceExecutor

	cache map[KernelId]map[ArgumentId][]byte
}

// NewValidator creates a Validator bound to the given argument store and
// reference executor (normally the Kernel Runner).
func NewValidator(args *ArgumentStore, executor referenceExecutor) *Validator {
	return &Validator{
		args:     args,
		executor: executor,
		cache:    make(map[KernelId]map[ArgumentId][]byte),
	}
}

// EnsureReferenceResult computes k's reference result if it has not already
// been computed since the last ClearReferenceResults call. Reference
// computation is the one exception to run-time error capture (spec.md §7):
// a failure here aborts tuning, since no further run can be judged.
func (v *Validator) EnsureReferenceResult(k *Kernel) error {
	if k.reference == nil {
		return newError(ErrInvalidArgument, "EnsureReferenceResult", fmt.Sprintf("kernel %q has no reference specification", k.name))
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.cache[k.id]; ok {
		return nil // already computed since the last clear
	}

	outputs := make(map[ArgumentId][]byte, len(k.reference.ArgumentIds))

	if k.reference.isComputerBased() {
		for _, argId := range k.reference.ArgumentIds {
			arg, err := v.args.GetArgument(argId)
			if err != nil {
				return err
			}
			buf := make([]byte, arg.SizeBytes())
			if err := k.reference.Computer.ComputeReference(buf, argId); err != nil {
				return wrapError(ErrEngineFailure, "EnsureReferenceResult", "reference computer failed", err)
			}
			outputs[argId] = buf
		}
	} else {
		refKernel, err := refKernelLookup(v.executor, k.reference.KernelId)
		if err != nil {
			return err
		}
		cfg := buildFixedConfiguration(refKernel, k.reference.Config)
		produced, err := v.executor.runForReference(refKernel, cfg, k.reference.ArgumentIds)
		if err != nil {
			return wrapError(ErrEngineFailure, "EnsureReferenceResult", "reference kernel run failed", err)
		}
		for _, argId := range k.reference.ArgumentIds {
			buf, ok := produced[argId]
			if !ok {
				return newError(ErrInvalidArgument, "EnsureReferenceResult", fmt.Sprintf("reference kernel did not produce argument %d", argId))
			}
			outputs[argId] = buf
		}
	}

	v.cache[k.id] = outputs
	return nil
}

// ClearReferenceResults purges the cached reference for kernel id, allowing
// it to be recomputed on the next EnsureReferenceResult call.
func (v *Validator) ClearReferenceResults(id KernelId) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.cache, id)
}

// Validate compares the tuned run's marked output arguments (as currently
// held in the argument store) against k's cached reference. It returns
// true iff every marked argument passes its comparison method within
// tolerance.
func (v *Validator) Validate(k *Kernel) (bool, error) {
	if k.reference == nil {
		return false, newError(ErrInvalidArgument, "Validate", fmt.Sprintf("kernel %q has no reference specification", k.name))
	}

	v.mu.Lock()
	expected, ok := v.cache[k.id]
	v.mu.Unlock()
	if !ok {
		return false, newError(ErrInvalidArgument, "Validate", "reference result has not been computed")
	}

	for _, argId := range k.reference.ArgumentIds {
		actualArg, err := v.args.GetArgument(argId)
		if err != nil {
			return false, err
		}
		exp := expected[argId]

		if cmp, ok := k.customComparators[argId]; ok {
			if !cmp(actualArg.Kind(), exp, actualArg.Bytes()) {
				return false, nil
			}
			continue
		}

		rangeLimit := k.validationRanges[argId]
		if !compareElements(actualArg.Kind(), exp, actualArg.Bytes(), k.validationMethod, k.toleranceThreshold, rangeLimit) {
			return false, nil
		}
	}
	return true, nil
}

// refKernelLookup is a small indirection so Validator does not need a
// *KernelRegistry reference solely to resolve one id; the executor (the
// Kernel Runner) already holds the registry.
func refKernelLookup(executor referenceExecutor, id KernelId) (*Kernel, error) {
	type kernelResolver interface {
		resolveKernel(KernelId) (*Kernel, error)
	}
	r, ok := executor.(kernelResolver)
	if !ok {
		return nil, newError(ErrInvalidId, "EnsureReferenceResult", "reference executor cannot resolve kernel ids")
	}
	return r.resolveKernel(id)
}

// buildFixedConfiguration derives a concrete KernelConfiguration for a
// reference kernel run at a fixed set of parameter values.
func buildFixedConfiguration(k *Kernel, fixed map[string]int) KernelConfiguration {
	global, local, ok := deriveGeometry(k.global, k.local, k.parameters, fixed, true)
	if !ok {
		global, local = k.global, k.local
	}
	values := make(map[string]int, len(fixed))
	order := make([]string, 0, len(fixed))
	for _, p := range k.parameters {
		if v, present := fixed[p.Name]; present {
			values[p.Name] = v
			order = append(order, p.Name)
		}
	}
	return KernelConfiguration{values: values, order: order, global: global, local: local}
}
