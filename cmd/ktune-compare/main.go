// Command ktune-compare compares two persisted tuning result sets (each
// written by "ktune tune --format json") and reports regressions, adapted
// from GUDA's own cmd/compare baseline tool.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	json "github.com/goccy/go-json"
)

// resultRecord mirrors ktune's Reporter.WriteJSON output shape.
type resultRecord struct {
	KernelName   string         `json:"kernel_name"`
	Parameters   map[string]int `json:"parameters"`
	DurationNs   int64          `json:"duration_ns"`
	OverheadNs   int64          `json:"overhead_ns,omitempty"`
	Status       string         `json:"status"`
	ErrorMessage string         `json:"error_message,omitempty"`
}

type comparison struct {
	Key    string
	Status string // "PASS", "FAIL", "SLOWER", "FASTER", "MISSING"

	BaselineDurationNs int64
	CurrentDurationNs  int64
	SpeedupFactor      float64
	Message            string
}

func main() {
	var (
		baselineFile = flag.String("baseline", "baseline.json", "baseline results file")
		currentFile  = flag.String("current", "current.json", "current results file")
		perfRegress  = flag.Float64("perf-regress", 1.1, "performance regression threshold (1.1 = 10% slower)")
	)
	flag.Parse()

	baseline, err := loadResults(*baselineFile)
	if err != nil {
		log.Fatalf("failed to load baseline: %v", err)
	}
	current, err := loadResults(*currentFile)
	if err != nil {
		log.Fatalf("failed to load current results: %v", err)
	}

	comparisons := compareResults(baseline, current, *perfRegress)
	printSummary(comparisons)

	for _, comp := range comparisons {
		if comp.Status == "FAIL" || comp.Status == "MISSING" {
			os.Exit(1)
		}
	}
}

func loadResults(filename string) ([]resultRecord, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var results []resultRecord
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func recordKey(r resultRecord) string {
	var b strings.Builder
	b.WriteString(r.KernelName)
	for _, name := range sortedKeys(r.Parameters) {
		fmt.Fprintf(&b, "|%s=%d", name, r.Parameters[name])
	}
	return b.String()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}

func compareResults(baseline, current []resultRecord, perfRegress float64) []comparison {
	currentMap := make(map[string]resultRecord, len(current))
	for _, r := range current {
		currentMap[recordKey(r)] = r
	}

	comparisons := make([]comparison, 0, len(baseline))
	for _, base := range baseline {
		key := recordKey(base)
		comp := comparison{Key: key, BaselineDurationNs: base.DurationNs}

		curr, ok := currentMap[key]
		if !ok {
			comp.Status = "MISSING"
			comp.Message = "configuration missing from current results"
			comparisons = append(comparisons, comp)
			continue
		}

		comp.CurrentDurationNs = curr.DurationNs
		if curr.Status != "Valid" {
			comp.Status = "FAIL"
			comp.Message = fmt.Sprintf("current status %s: %s", curr.Status, curr.ErrorMessage)
			comparisons = append(comparisons, comp)
			continue
		}
		if base.Status != "Valid" {
			comp.Status = "PASS"
			comp.Message = "baseline was invalid, current validates"
			comparisons = append(comparisons, comp)
			continue
		}

		comp.SpeedupFactor = float64(base.DurationNs) / float64(curr.DurationNs)
		switch {
		case comp.SpeedupFactor < 1.0/perfRegress:
			comp.Status = "SLOWER"
			comp.Message = fmt.Sprintf("regression: %.2fx slower", 1.0/comp.SpeedupFactor)
		case comp.SpeedupFactor > 1.2:
			comp.Status = "FASTER"
			comp.Message = fmt.Sprintf("improvement: %.2fx faster", comp.SpeedupFactor)
		default:
			comp.Status = "PASS"
		}
		comparisons = append(comparisons, comp)
	}
	return comparisons
}

func printSummary(comparisons []comparison) {
	fmt.Println("=== ktune baseline comparison ===")
	fmt.Println()

	counts := make(map[string]int)
	for _, c := range comparisons {
		counts[c.Status]++
	}

	fmt.Printf("Total configurations: %d\n", len(comparisons))
	fmt.Printf("  PASS:    %d\n", counts["PASS"])
	fmt.Printf("  FAIL:    %d\n", counts["FAIL"])
	fmt.Printf("  SLOWER:  %d\n", counts["SLOWER"])
	fmt.Printf("  FASTER:  %d\n", counts["FASTER"])
	fmt.Printf("  MISSING: %d\n", counts["MISSING"])
	fmt.Println()

	if counts["FAIL"] > 0 || counts["MISSING"] > 0 {
		fmt.Println("FAILURES:")
		for _, c := range comparisons {
			if c.Status == "FAIL" || c.Status == "MISSING" {
				fmt.Printf("  %s: %s\n", c.Key, c.Message)
			}
		}
		fmt.Println()
	}

	if counts["SLOWER"] > 0 || counts["FASTER"] > 0 {
		fmt.Println("PERFORMANCE CHANGES:")
		for _, c := range comparisons {
			if c.Status == "SLOWER" || c.Status == "FASTER" {
				fmt.Printf("  %s: %s (%.3fms -> %.3fms)\n", c.Key, c.Message,
					float64(c.BaselineDurationNs)/1e6, float64(c.CurrentDurationNs)/1e6)
			}
		}
		fmt.Println()
	}

	fmt.Println("DETAILED RESULTS:")
	fmt.Printf("%-50s %-8s %12s %12s %8s\n", "Configuration", "Status", "Baseline(ms)", "Current(ms)", "Speedup")
	fmt.Println(strings.Repeat("-", 95))
	for _, c := range comparisons {
		fmt.Printf("%-50s %-8s %12.3f %12.3f %8.2f\n",
			c.Key, c.Status,
			float64(c.BaselineDurationNs)/1e6,
			float64(c.CurrentDurationNs)/1e6,
			c.SpeedupFactor)
	}
}
