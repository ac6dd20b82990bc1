//go:build linux
// +build linux

package simengine

import (
	"os"
	"strconv"
	"strings"
)

// readCounters samples /proc/self/stat's utime/stime jiffy counters as a
// coarse stand-in for hardware cycle counters, since perf_event_open
// requires privileges simengine should not assume it has. Real cycle and
// cache-miss counters would need a raw perf_event_open syscall wrapper;
// this is deliberately the cheap approximation.
func readCounters() map[string]uint64 {
	counters := make(map[string]uint64)

	data, err := os.ReadFile("/proc/self/stat")
	if err != nil {
		return counters
	}
	fields := strings.Fields(string(data))
	// utime is field 14, stime is field 15 (1-indexed) per proc(5).
	if len(fields) < 15 {
		return counters
	}
	utime, err1 := strconv.ParseUint(fields[13], 10, 64)
	stime, err2 := strconv.ParseUint(fields[14], 10, 64)
	if err1 == nil && err2 == nil {
		counters["cpuJiffies"] = utime + stime
	}
	return counters
}
