package simengine

import (
	"time"

	"github.com/accel-tune/ktune"
)

// collectProfilingSample builds a ProfilingSample around one
// StartProfiling/StopProfiling window. The wall-clock duration is always
// populated; readCounters supplies whatever platform-specific counters are
// available (profiler_linux.go, profiler_other.go).
func collectProfilingSample(d time.Duration) ktune.ProfilingSample {
	counters := readCounters()
	sample := ktune.ProfilingSample{
		Duration: d,
		Counters: counters,
	}
	if cycles, ok := counters["cycles"]; ok && cycles > 0 {
		sample.DerivedStats = map[string]float64{
			"instructionsPerCycle": float64(counters["instructions"]) / float64(cycles),
		}
	}
	return sample
}
