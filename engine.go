package ktune

import "time"

// RuntimeData is the fully-resolved description of one kernel launch,
// handed to a ComputeEngine: identity, rendered source, effective launch
// geometry, bound argument ids, and any local-memory size modifiers.
type RuntimeData struct {
	KernelId    KernelId
	Name        string
	Source      string // source with #define lines already prepended
	GlobalSize  Dim3
	LocalSize   Dim3
	ArgumentIds []ArgumentId

	// LocalMemoryModifiers maps an argument id with UploadLocal to the byte
	// size its local-memory allocation should use for this launch.
	LocalMemoryModifiers map[ArgumentId]int
}

// OutputDescriptor names an argument the caller wants downloaded from the
// device after a launch, and where to place it.
type OutputDescriptor struct {
	ArgumentId ArgumentId
	Dst        []byte
}

// EngineResult is what a ComputeEngine reports back from one runKernel
// call: the device-measured duration and which outputs it actually wrote.
type EngineResult struct {
	DurationNs     int64
	OutputsWritten []ArgumentId
}

// ComputeEngine is the core's down-interface: the abstract capability that
// compiles (or caches) a program, uploads pending arguments, enqueues a
// kernel with a specified geometry, synchronises, and writes requested
// outputs. A real implementation wraps OpenCL or CUDA; this repository
// ships simengine, a CPU emulation of the same contract, for tests and
// examples.
type ComputeEngine interface {
	RunKernel(runtime RuntimeData, args []*KernelArgument, outputs []OutputDescriptor) (EngineResult, error)

	UploadArgument(arg *KernelArgument) error
	UpdateArgument(id ArgumentId, data []byte, sizeBytes int) error
	DownloadArgument(id ArgumentId, dst []byte, sizeBytes int) error

	ClearBuffer(id ArgumentId) error
	ClearBuffers() error
	ClearBuffersByAccess(access AccessMode) error

	SetCompilerOptions(opts []string)
	SetGlobalSizeType(t GlobalSizeType)
	SetAutomaticGlobalSizeCorrection(enabled bool)

	GetPlatformInfo() PlatformInfo
	GetDeviceInfo(platformIndex int) ([]DeviceInfo, error)
	GetCurrentDeviceInfo() DeviceInfo
}

// PlatformInfo describes one compute platform (e.g. one OpenCL platform or
// the CUDA runtime) as reported by a ComputeEngine.
type PlatformInfo struct {
	Name    string
	Vendor  string
	Version string
}

// DeviceInfo describes one compute device within a platform.
type DeviceInfo struct {
	Name            string
	ComputeUnits    int
	GlobalMemBytes  int64
	LocalMemBytes   int64
	MaxWorkGroupSize int
}

// Profiler is an optional capability a ComputeEngine may additionally
// implement. When present, the Kernel Runner records the returned counters
// on the TuningResult for the run, without a second runner implementation
// (spec.md §9 open question).
type Profiler interface {
	StartProfiling(kernelId KernelId) error
	StopProfiling(kernelId KernelId) (ProfilingSample, error)
}

// ProfilingSample carries whatever device-level counters the engine's
// Profiler captured around one run.
type ProfilingSample struct {
	Duration     time.Duration
	Counters     map[string]uint64
	DerivedStats map[string]float64
}
