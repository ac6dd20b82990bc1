package ktune

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"sync"
	"text/tabwriter"
	"time"

	json "github.com/goccy/go-json"
)

// RunStatus is the outcome of one TuningResult.
type RunStatus int

const (
	StatusValid RunStatus = iota
	StatusInvalid
	StatusFailed
)

func (s RunStatus) String() string {
	switch s {
	case StatusValid:
		return "Valid"
	case StatusInvalid:
		return "Invalid"
	case StatusFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// TuningResult is the outcome of running one configuration: the kernel
// name, the configuration itself, how long computation took, whether the
// result validated, an optional diagnostic message, and any time spent in
// orchestrator code outside device execution.
type TuningResult struct {
	KernelName    string
	Configuration KernelConfiguration
	DurationNs    int64
	OverheadNs    int64
	Status        RunStatus
	ErrorMessage  string
	Profiling     *ProfilingSample
	Timestamp     time.Time
}

// BestOf returns the valid result with minimum computation duration among
// results, and whether any valid result was present.
func BestOf(results []TuningResult) (TuningResult, bool) {
	var best TuningResult
	found := false
	for _, r := range results {
		if r.Status != StatusValid {
			continue
		}
		if !found || r.DurationNs < best.DurationNs {
			best = r
			found = true
		}
	}
	return best, found
}

// ResultStore is an append-only, per-kernel collection of TuningResult
// values, in insertion order, adapted from the teacher's BenchmarkLogger:
// results accumulate in memory and can be flushed to a JSON sink on demand
// rather than being written on every append.
type ResultStore struct {
	mu      sync.Mutex
	results map[string][]TuningResult
	order   []string // kernel names in first-seen order, for stable reporting
}

// NewResultStore creates an empty result store.
func NewResultStore() *ResultStore {
	return &ResultStore{results: make(map[string][]TuningResult)}
}

// Record appends one result under its kernel name.
func (s *ResultStore) Record(r TuningResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, seen := s.results[r.KernelName]; !seen {
		s.order = append(s.order, r.KernelName)
	}
	s.results[r.KernelName] = append(s.results[r.KernelName], r)
}

// Results returns every recorded result for kernelName, in insertion order.
func (s *ResultStore) Results(kernelName string) []TuningResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TuningResult, len(s.results[kernelName]))
	copy(out, s.results[kernelName])
	return out
}

// All returns every recorded result across every kernel, grouped by
// first-seen kernel order.
func (s *ResultStore) All() []TuningResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []TuningResult
	for _, name := range s.order {
		out = append(out, s.results[name]...)
	}
	return out
}

// Best returns the best (minimum valid duration) result for kernelName.
func (s *ResultStore) Best(kernelName string) (TuningResult, bool) {
	return BestOf(s.Results(kernelName))
}

// PrintingTimeUnit selects the unit Reporter renders durations in.
type PrintingTimeUnit int

const (
	UnitNanoseconds PrintingTimeUnit = iota
	UnitMicroseconds
	UnitMilliseconds
	UnitSeconds
)

func (u PrintingTimeUnit) scale() float64 {
	switch u {
	case UnitMicroseconds:
		return 1e3
	case UnitMilliseconds:
		return 1e6
	case UnitSeconds:
		return 1e9
	default:
		return 1
	}
}

func (u PrintingTimeUnit) suffix() string {
	switch u {
	case UnitMicroseconds:
		return "us"
	case UnitMilliseconds:
		return "ms"
	case UnitSeconds:
		return "s"
	default:
		return "ns"
	}
}

// Reporter formats a ResultStore's contents in verbose, CSV, or JSON form.
// Invalid-result printing is togglable; all three formats preserve
// insertion order.
type Reporter struct {
	TimeUnit     PrintingTimeUnit
	PrintInvalid bool
}

// NewReporter creates a Reporter with nanosecond output and invalid results
// included, matching the teacher's "print everything by default" stance.
func NewReporter() *Reporter {
	return &Reporter{TimeUnit: UnitNanoseconds, PrintInvalid: true}
}

func (r *Reporter) filtered(results []TuningResult) []TuningResult {
	if r.PrintInvalid {
		return results
	}
	out := make([]TuningResult, 0, len(results))
	for _, res := range results {
		if res.Status == StatusValid {
			out = append(out, res)
		}
	}
	return out
}

// WriteVerbose writes a dense, human-oriented table to w. There is no
// compatibility guarantee on this format's exact layout (spec.md §6.4).
func (r *Reporter) WriteVerbose(w io.Writer, results []TuningResult) error {
	results = r.filtered(results)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "KERNEL\tCONFIGURATION\tDURATION\tSTATUS\tERROR\n")
	for _, res := range results {
		fmt.Fprintf(tw, "%s\t%s\t%.3f%s\t%s\t%s\n",
			res.KernelName,
			formatConfiguration(res.Configuration),
			float64(res.DurationNs)/r.TimeUnit.scale(),
			r.TimeUnit.suffix(),
			res.Status,
			res.ErrorMessage,
		)
	}
	return tw.Flush()
}

// WriteCSV writes results per spec.md §6.4: leading columns are parameter
// names in declaration order, trailing columns are DurationNs, Status,
// ErrorMessage. The header row uses the same literal order. All rows share
// the first result's parameter-name order; results from a different
// parameter space than the first row are skipped.
func (r *Reporter) WriteCSV(w io.Writer, results []TuningResult) error {
	results = r.filtered(results)
	cw := csv.NewWriter(w)
	if len(results) == 0 {
		cw.Flush()
		return cw.Error()
	}

	header := append(append([]string(nil), results[0].Configuration.ParameterNames()...), "DurationNs", "Status", "ErrorMessage")
	if err := cw.Write(header); err != nil {
		return err
	}

	names := results[0].Configuration.ParameterNames()
	for _, res := range results {
		if !sameParameterNames(names, res.Configuration.ParameterNames()) {
			continue
		}
		row := make([]string, 0, len(header))
		for _, name := range names {
			v, _ := res.Configuration.Value(name)
			row = append(row, strconv.Itoa(v))
		}
		row = append(row, strconv.FormatInt(res.DurationNs, 10), res.Status.String(), res.ErrorMessage)
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// jsonResult is the JSON-sink shape for one TuningResult, grounded on the
// teacher's BenchmarkResult: a flat, timestamped record suitable for
// flushing to disk after every run.
type jsonResult struct {
	KernelName   string         `json:"kernel_name"`
	Parameters   map[string]int `json:"parameters"`
	DurationNs   int64          `json:"duration_ns"`
	OverheadNs   int64          `json:"overhead_ns,omitempty"`
	Status       string         `json:"status"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
}

// WriteJSON writes results as a JSON array, using github.com/goccy/go-json
// for parity with the teacher's own JSON-based result persistence tooling.
func (r *Reporter) WriteJSON(w io.Writer, results []TuningResult) error {
	results = r.filtered(results)
	out := make([]jsonResult, 0, len(results))
	for _, res := range results {
		params := make(map[string]int)
		for _, name := range res.Configuration.ParameterNames() {
			params[name], _ = res.Configuration.Value(name)
		}
		out = append(out, jsonResult{
			KernelName:   res.KernelName,
			Parameters:   params,
			DurationNs:   res.DurationNs,
			OverheadNs:   res.OverheadNs,
			Status:       res.Status.String(),
			ErrorMessage: res.ErrorMessage,
			Timestamp:    res.Timestamp,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func sameParameterNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func formatConfiguration(c KernelConfiguration) string {
	names := c.ParameterNames()
	s := ""
	for i, name := range names {
		if i > 0 {
			s += ", "
		}
		v, _ := c.Value(name)
		s += fmt.Sprintf("%s=%d", name, v)
	}
	return s
}
