// Package simengine is a CPU emulation of ktune.ComputeEngine. It compiles
// nothing: kernel bodies are registered directly as Go closures keyed by
// kernel name, and a launch dispatches the registered closure across a
// worker pool using the same grid/block geometry a real OpenCL or CUDA
// engine would receive. It exists so kernels, examples, and the core
// package's own tests can run an auto-tuning loop end to end without a
// driver.
package simengine

import (
	"fmt"
	"sync"
	"time"

	"github.com/accel-tune/ktune"
)

// Engine is a simengine instance: one buffer pool, one registry of
// KernelFuncs, and the engine-wide knobs spec.md §4.J asks every
// ComputeEngine to expose.
type Engine struct {
	mu      sync.Mutex
	pool    *Pool
	kernels map[string]KernelFunc
	workers int

	compilerOptions []string
	globalSizeType  ktune.GlobalSizeType
	autoCorrect     bool

	profiling map[ktune.KernelId]profilingState
}

type profilingState struct {
	started time.Time
}

// NewEngine creates a simengine instance using runtime.NumCPU() workers.
func NewEngine() *Engine {
	return New(defaultWorkers())
}

// New creates a simengine instance with an explicit worker count, mainly
// for tests that want deterministic single-worker execution.
func New(workers int) *Engine {
	if workers <= 0 {
		workers = defaultWorkers()
	}
	return &Engine{
		pool:        NewPool(),
		kernels:     make(map[string]KernelFunc),
		workers:     workers,
		autoCorrect: true,
		profiling:   make(map[ktune.KernelId]profilingState),
	}
}

// RegisterKernelFunc binds a CPU-executable body to a kernel name. RunKernel
// looks the body up by RuntimeData.Name at launch time.
func (e *Engine) RegisterKernelFunc(name string, fn KernelFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.kernels[name] = fn
}

// Pool exposes the engine's buffer pool, mainly so tests can assert on
// generation counters after a clear.
func (e *Engine) Pool() *Pool {
	return e.pool
}

// RunKernel implements ktune.ComputeEngine. It registers every bound
// argument's live handle with the pool, dispatches the registered
// KernelFunc across the launch geometry — which reads and writes those
// same arguments in place — and writes every requested output from the
// post-launch buffer contents.
func (e *Engine) RunKernel(runtime ktune.RuntimeData, args []*ktune.KernelArgument, outputs []ktune.OutputDescriptor) (ktune.EngineResult, error) {
	e.mu.Lock()
	fn, ok := e.kernels[runtime.Name]
	e.mu.Unlock()
	if !ok {
		return ktune.EngineResult{}, fmt.Errorf("simengine: no KernelFunc registered for kernel %q", runtime.Name)
	}

	for _, arg := range args {
		e.pool.Register(arg)
	}

	defines := parseDefines(runtime.Source)

	start := time.Now()
	launch(e.workers, runtime.GlobalSize, runtime.LocalSize, fn, args, defines)
	duration := time.Since(start)

	written := make([]ktune.ArgumentId, 0, len(outputs))
	for _, out := range outputs {
		buf, ok := e.pool.Bytes(out.ArgumentId)
		if !ok {
			continue
		}
		copy(out.Dst, buf)
		written = append(written, out.ArgumentId)
	}

	return ktune.EngineResult{DurationNs: duration.Nanoseconds(), OutputsWritten: written}, nil
}

// UploadArgument implements ktune.ComputeEngine. simengine has no real
// device memory to copy into; it takes a live handle on arg's own backing
// array so later engine-level calls for this id reach the same data.
func (e *Engine) UploadArgument(arg *ktune.KernelArgument) error {
	e.pool.Register(arg)
	return nil
}

// UpdateArgument implements ktune.ComputeEngine.
func (e *Engine) UpdateArgument(id ktune.ArgumentId, data []byte, sizeBytes int) error {
	if len(data) != sizeBytes {
		data = data[:sizeBytes]
	}
	return e.pool.Update(id, data)
}

// DownloadArgument implements ktune.ComputeEngine.
func (e *Engine) DownloadArgument(id ktune.ArgumentId, dst []byte, sizeBytes int) error {
	if len(dst) > sizeBytes {
		dst = dst[:sizeBytes]
	}
	return e.pool.Download(id, dst)
}

// ClearBuffer implements ktune.ComputeEngine.
func (e *Engine) ClearBuffer(id ktune.ArgumentId) error {
	return e.pool.Clear(id)
}

// ClearBuffers implements ktune.ComputeEngine.
func (e *Engine) ClearBuffers() error {
	e.pool.ClearAll()
	return nil
}

// ClearBuffersByAccess implements ktune.ComputeEngine.
func (e *Engine) ClearBuffersByAccess(access ktune.AccessMode) error {
	e.pool.ClearByAccess(access)
	return nil
}

// SetCompilerOptions implements ktune.ComputeEngine. simengine never
// compiles anything; it only records the options, and nothing reads them
// back.
func (e *Engine) SetCompilerOptions(opts []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.compilerOptions = append([]string(nil), opts...)
}

// SetGlobalSizeType implements ktune.ComputeEngine.
func (e *Engine) SetGlobalSizeType(t ktune.GlobalSizeType) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.globalSizeType = t
}

// SetAutomaticGlobalSizeCorrection implements ktune.ComputeEngine.
func (e *Engine) SetAutomaticGlobalSizeCorrection(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.autoCorrect = enabled
}

// GetPlatformInfo implements ktune.ComputeEngine.
func (e *Engine) GetPlatformInfo() ktune.PlatformInfo {
	return platformInfo()
}

// GetDeviceInfo implements ktune.ComputeEngine. simengine exposes exactly
// one platform with one device; platformIndex must be 0.
func (e *Engine) GetDeviceInfo(platformIndex int) ([]ktune.DeviceInfo, error) {
	if platformIndex != 0 {
		return nil, fmt.Errorf("simengine: platform index %d out of range, only platform 0 exists", platformIndex)
	}
	return []ktune.DeviceInfo{deviceInfo(e.workers)}, nil
}

// GetCurrentDeviceInfo implements ktune.ComputeEngine.
func (e *Engine) GetCurrentDeviceInfo() ktune.DeviceInfo {
	return deviceInfo(e.workers)
}

// StartProfiling implements ktune.Profiler, satisfied on every platform
// since simengine's counters are synthesized rather than read from real
// hardware performance counters (see profiler.go).
func (e *Engine) StartProfiling(kernelId ktune.KernelId) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profiling[kernelId] = profilingState{started: time.Now()}
	return nil
}

// StopProfiling implements ktune.Profiler.
func (e *Engine) StopProfiling(kernelId ktune.KernelId) (ktune.ProfilingSample, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	state, ok := e.profiling[kernelId]
	if !ok {
		return ktune.ProfilingSample{}, fmt.Errorf("simengine: StartProfiling was not called for kernel %d", kernelId)
	}
	delete(e.profiling, kernelId)
	return collectProfilingSample(time.Since(state.started)), nil
}
