package simengine

import "testing"

func TestReadCountersReturnsNonNilMap(t *testing.T) {
	counters := readCounters()
	if counters == nil {
		t.Fatal("expected readCounters to return a non-nil map")
	}
}

func TestCollectProfilingSamplePopulatesDuration(t *testing.T) {
	sample := collectProfilingSample(1500)
	if sample.Duration != 1500 {
		t.Errorf("Duration = %v, want 1500", sample.Duration)
	}
	if sample.Counters == nil {
		t.Error("expected Counters to be populated (possibly empty)")
	}
}

func TestCollectProfilingSampleDerivesInstructionsPerCycleWhenCyclesPresent(t *testing.T) {
	// collectProfilingSample only derives instructionsPerCycle from
	// whatever readCounters happened to report; on platforms without a
	// "cycles" counter (this package's own readCounters reports jiffies or
	// nothing), DerivedStats stays nil. Assert the contract rather than a
	// platform-specific counter value.
	sample := collectProfilingSample(1000)
	if _, hasCycles := sample.Counters["cycles"]; !hasCycles {
		if sample.DerivedStats != nil {
			t.Errorf("expected no DerivedStats without a cycles counter, got %v", sample.DerivedStats)
		}
	}
}
