package ktune

import (
	"fmt"
	"time"
)

// KernelRunner is the Kernel Runner (component E). It executes one
// configuration either by calling the compute engine directly, or by
// invoking a user-supplied launch orchestrator through a RunContext bound
// for the duration of that single call.
type KernelRunner struct {
	engine   ComputeEngine
	args     *ArgumentStore
	registry *KernelRegistry
}

// NewKernelRunner creates a runner bound to the given engine, argument
// store, and kernel registry.
func NewKernelRunner(engine ComputeEngine, args *ArgumentStore, registry *KernelRegistry) *KernelRunner {
	return &KernelRunner{engine: engine, args: args, registry: registry}
}

// resolveKernel lets the Validator resolve a reference-kernel id without
// holding its own *KernelRegistry.
func (r *KernelRunner) resolveKernel(id KernelId) (*Kernel, error) {
	return r.registry.Kernel(id)
}

// RunKernel executes kernel k at configuration cfg and returns its
// TuningResult. Failure in either execution path is caught here: the
// device is left in a synchronised state by the engine's own RunKernel
// contract, and a failed TuningResult is returned rather than propagated,
// per spec.md §4.E/§7. When the engine also implements Profiler, the run is
// profiled and the sample is stored on the result of a run that did not fail.
func (r *KernelRunner) RunKernel(k *Kernel, cfg KernelConfiguration, outputs []OutputDescriptor) (result TuningResult) {
	result = TuningResult{KernelName: k.Name(), Configuration: cfg, Timestamp: time.Now(), Status: StatusValid}

	if profiler, ok := r.engine.(Profiler); ok && profiler.StartProfiling(k.id) == nil {
		defer func() {
			sample, err := profiler.StopProfiling(k.id)
			if err == nil && result.Status != StatusFailed {
				result.Profiling = &sample
			}
		}()
	}

	if k.orchestrator != nil {
		duration, overhead, err := r.runOrchestrated(k.orchestrator, k.id, cfg, map[KernelId][]ArgumentId{k.id: k.boundArgs})
		if err != nil {
			result.Status = StatusFailed
			result.ErrorMessage = err.Error()
			return result
		}
		result.DurationNs = duration
		result.OverheadNs = overhead
		return result
	}

	duration, err := r.runDirect(k, cfg, outputs)
	if err != nil {
		result.Status = StatusFailed
		result.ErrorMessage = err.Error()
		return result
	}
	result.DurationNs = duration
	return result
}

// RunComposition executes a composition at configuration cfg. Compositions
// always use the orchestrator path (spec.md §4.E).
func (r *KernelRunner) RunComposition(c *KernelComposition, cfg KernelConfiguration) TuningResult {
	result := TuningResult{KernelName: c.Name(), Configuration: cfg, Timestamp: time.Now(), Status: StatusValid}

	if c.orchestrator == nil {
		result.Status = StatusFailed
		result.ErrorMessage = "composition has no launch orchestrator"
		return result
	}

	argBindings := make(map[KernelId][]ArgumentId, len(c.kernelIds))
	for _, kid := range c.kernelIds {
		argBindings[kid] = c.ArgumentsFor(kid)
	}

	duration, overhead, err := r.runOrchestrated(c.orchestrator, c.kernelIds[0], cfg, argBindings)
	if err != nil {
		result.Status = StatusFailed
		result.ErrorMessage = err.Error()
		return result
	}
	result.DurationNs = duration
	result.OverheadNs = overhead
	return result
}

func (r *KernelRunner) runDirect(k *Kernel, cfg KernelConfiguration, outputs []OutputDescriptor) (int64, error) {
	args, err := r.args.GetArguments(k.boundArgs)
	if err != nil {
		return 0, err
	}

	rt := RuntimeData{
		KernelId:    k.id,
		Name:        k.name,
		Source:      k.sourceWithDefines(cfg),
		GlobalSize:  cfg.global,
		LocalSize:   cfg.local,
		ArgumentIds: k.boundArgs,
	}

	result, err := r.engine.RunKernel(rt, args, outputs)
	if err != nil {
		return 0, wrapError(ErrEngineFailure, "RunKernel", fmt.Sprintf("kernel %q launch failed", k.name), err)
	}
	return result.DurationNs, nil
}

func (r *KernelRunner) runOrchestrated(o LaunchOrchestrator, primaryKernelId KernelId, cfg KernelConfiguration, argBindings map[KernelId][]ArgumentId) (durationNs, overheadNs int64, err error) {
	if preloader, ok := o.(ArgumentPreloader); ok && preloader.EnableArgumentPreload() {
		for _, ids := range argBindings {
			for _, id := range ids {
				arg, gerr := r.args.GetArgument(id)
				if gerr != nil {
					return 0, 0, gerr
				}
				if uerr := r.engine.UploadArgument(arg); uerr != nil {
					return 0, 0, wrapError(ErrEngineFailure, "RunKernel", "argument preload failed", uerr)
				}
			}
		}
	}

	ctx := &RunContext{
		engine:      r.engine,
		registry:    r.registry,
		args:        r.args,
		config:      cfg,
		runtimeArgs: argBindings,
	}

	start := time.Now()
	launchErr := o.LaunchComputation(ctx, primaryKernelId)
	wall := time.Since(start).Nanoseconds()
	if launchErr != nil {
		return 0, 0, wrapError(ErrEngineFailure, "RunKernel", "launch orchestrator failed", launchErr)
	}

	overhead := wall - ctx.deviceCallNs
	if overhead < 0 {
		overhead = 0
	}
	return ctx.deviceCallNs, overhead, nil
}

// runForReference runs kernel k at configuration cfg through the normal
// execution path and downloads the requested argument ids from the engine,
// for use by the Validator when computing a kernel-based reference.
func (r *KernelRunner) runForReference(k *Kernel, cfg KernelConfiguration, argIds []ArgumentId) (map[ArgumentId][]byte, error) {
	outputs := make([]OutputDescriptor, 0, len(argIds))
	buffers := make(map[ArgumentId][]byte, len(argIds))
	for _, id := range argIds {
		arg, err := r.args.GetArgument(id)
		if err != nil {
			return nil, err
		}
		buf := make([]byte, arg.SizeBytes())
		buffers[id] = buf
		outputs = append(outputs, OutputDescriptor{ArgumentId: id, Dst: buf})
	}

	result := r.RunKernel(k, cfg, outputs)
	if result.Status != StatusValid {
		return nil, newError(ErrEngineFailure, "runForReference", result.ErrorMessage)
	}
	return buffers, nil
}
