package simengine

import (
	"runtime"

	"golang.org/x/sys/cpu"

	"github.com/accel-tune/ktune"
)

func platformInfo() ktune.PlatformInfo {
	return ktune.PlatformInfo{
		Name:    "simengine",
		Vendor:  "ktune",
		Version: "1",
	}
}

// deviceInfo reports the host CPU as the single simulated compute device.
func deviceInfo(workers int) ktune.DeviceInfo {
	return ktune.DeviceInfo{
		Name:             cpuName(),
		ComputeUnits:     workers,
		GlobalMemBytes:   systemMemoryBytes(),
		LocalMemBytes:    32 * 1024,
		MaxWorkGroupSize: 1024,
	}
}

func cpuName() string {
	switch {
	case cpu.X86.HasAVX512F:
		return "CPU (AVX-512)"
	case cpu.X86.HasAVX2:
		return "CPU (AVX2)"
	case cpu.X86.HasAVX:
		return "CPU (AVX)"
	case cpu.ARM64.HasASIMD:
		return "CPU (NEON)"
	default:
		return "CPU (scalar)"
	}
}

// systemMemoryBytes is a simplified stand-in for real OS memory enumeration,
// sized to be a plausible device memory budget on both CI runners and
// developer machines.
func systemMemoryBytes() int64 {
	return 16 * 1024 * 1024 * 1024
}

func defaultWorkers() int {
	n := runtime.NumCPU()
	if n < 1 {
		return 1
	}
	return n
}
