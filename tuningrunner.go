package ktune

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/accel-tune/ktune/search"
)

// RunMode selects whether a TuningRunner may perform validation and
// reference-result setup. Computation mode exists for deployments that
// only ever execute a single, already-chosen configuration and have no
// reference implementation to validate against (spec.md §4.G).
type RunMode int

const (
	ModeTuning RunMode = iota
	ModeComputation
)

// TuningRunner is the Tuning Runner (component G): it drives the
// end-to-end tuning loop for one kernel, pulling configurations from a
// Searcher, dispatching each to the Kernel Runner, judging it with the
// Validator, recording the outcome, and clearing device buffers between
// iterations.
type TuningRunner struct {
	registry  *KernelRegistry
	args      *ArgumentStore
	engine    ComputeEngine
	runner    *KernelRunner
	validator *Validator
	store     *ResultStore

	mode    RunMode
	seed    int64
	limiter *rate.Limiter
}

// NewTuningRunner creates a TuningRunner in Tuning mode, wiring a fresh
// Kernel Runner and Validator over the given engine, argument store, and
// registry.
func NewTuningRunner(engine ComputeEngine, args *ArgumentStore, registry *KernelRegistry, store *ResultStore) *TuningRunner {
	runner := NewKernelRunner(engine, args, registry)
	return &TuningRunner{
		registry:  registry,
		args:      args,
		engine:    engine,
		runner:    runner,
		validator: NewValidator(args, runner),
		store:     store,
		mode:      ModeTuning,
		seed:      1,
	}
}

// NewComputationRunner creates a TuningRunner in Computation mode: a
// reduced surface that executes a single chosen configuration without
// validation or reference-result setup (spec.md §4.G).
func NewComputationRunner(engine ComputeEngine, args *ArgumentStore, registry *KernelRegistry, store *ResultStore) *TuningRunner {
	t := NewTuningRunner(engine, args, registry, store)
	t.mode = ModeComputation
	return t
}

// SetSeed fixes the RNG seed used by SimulatedAnnealing, ParticleSwarm, and
// RandomSearch on the next TuneKernel call, for reproducible tests
// (spec.md §8 "Searcher state").
func (t *TuningRunner) SetSeed(seed int64) {
	t.seed = seed
}

// SetLaunchLimiter paces TuneKernel's per-configuration launches against
// limiter, so a search against a shared physical device does not hammer it
// (spec.md §4.J). A nil limiter (the default) disables pacing.
func (t *TuningRunner) SetLaunchLimiter(limiter *rate.Limiter) {
	t.limiter = limiter
}

// TuneKernel drives the full tuning loop for kernelId per spec.md §4.G and
// returns every recorded TuningResult. It fails outright (without
// recording a result) when the runner is in computation mode, kernelId is
// unknown, the reference result cannot be computed, or the kernel has no
// valid configuration; per-configuration run/validation failures are
// captured into individual failed/invalid results instead.
func (t *TuningRunner) TuneKernel(kernelId KernelId) ([]TuningResult, error) {
	if t.mode == ModeComputation {
		return nil, newError(ErrInvalidMode, "TuneKernel", "kernel tuning cannot be performed in computation mode")
	}

	k, err := t.registry.Kernel(kernelId)
	if err != nil {
		return nil, err
	}

	if err := t.validator.EnsureReferenceResult(k); err != nil {
		return nil, err
	}

	generator := NewConfigurationGenerator(k, true)
	configs, idxs := generator.AllIndexed()
	if len(configs) == 0 {
		return nil, newError(ErrConfigurationInvalid, "TuneKernel", "kernel has no valid configurations")
	}

	searcher := t.buildSearcher(k, idxs)

	var results []TuningResult
	for searcher.Remaining() > 0 {
		i, ok := searcher.Next()
		if !ok {
			break
		}
		cfg := configs[i]

		paceLaunches(t.limiter)
		result := t.runOne(k, cfg)
		t.store.Record(result)
		results = append(results, result)

		if result.Status == StatusFailed {
			searcher.Advance(math.Inf(1))
		} else {
			searcher.Advance(float64(result.DurationNs))
		}

		t.engine.ClearBuffersByAccess(AccessReadWrite)
		t.engine.ClearBuffersByAccess(AccessWriteOnly)
		if k.orchestrator != nil {
			t.engine.ClearBuffersByAccess(AccessReadOnly)
		}
	}

	t.engine.ClearBuffers()
	t.validator.ClearReferenceResults(kernelId)
	return results, nil
}

// runOne executes one configuration, marks it failed when it took longer
// than the kernel's time budget (if one is set), and otherwise validates it,
// producing a fully-populated TuningResult.
func (t *TuningRunner) runOne(k *Kernel, cfg KernelConfiguration) TuningResult {
	result := t.runner.RunKernel(k, cfg, nil)
	if result.Status != StatusValid {
		return result
	}
	if k.timeoutMillis > 0 && result.DurationNs+result.OverheadNs > k.timeoutMillis*1_000_000 {
		result.Status = StatusFailed
		result.ErrorMessage = newError(ErrTimeout, "TuneKernel", "run exceeded its "+strconv.FormatInt(k.timeoutMillis, 10)+"ms time budget").Error()
		return result
	}

	correct, err := t.validator.Validate(k)
	if err != nil {
		result.Status = StatusFailed
		result.ErrorMessage = err.Error()
		return result
	}
	if !correct {
		result.Status = StatusInvalid
		result.ErrorMessage = "validation failed: results differ from reference"
	}
	return result
}

// RunKernel executes kernelId at a single, explicitly chosen configuration
// (by parameter name/value pairs) and downloads the requested outputs,
// without searching or validating (spec.md §4.G "non-tuning execution").
// Available in both run modes.
func (t *TuningRunner) RunKernel(kernelId KernelId, values map[string]int, outputs []OutputDescriptor) (TuningResult, error) {
	k, err := t.registry.Kernel(kernelId)
	if err != nil {
		return TuningResult{}, err
	}

	global, local, ok := deriveGeometry(k.global, k.local, k.parameters, values, true)
	if !ok {
		return TuningResult{}, newError(ErrConfigurationInvalid, "RunKernel", "requested configuration has invalid launch geometry")
	}
	order := make([]string, 0, len(values))
	for _, p := range k.parameters {
		if _, present := values[p.Name]; present {
			order = append(order, p.Name)
		}
	}
	cfg := KernelConfiguration{values: cloneIntMap(values), order: order, global: global, local: local}

	result := t.runner.RunKernel(k, cfg, outputs)
	t.engine.ClearBuffers()
	return result, nil
}

// buildSearcher constructs the Searcher matching k's configured search
// method and arguments, defaulting unspecified arguments per defaults.go.
func (t *TuningRunner) buildSearcher(k *Kernel, idxs [][]int) search.Searcher {
	n := len(idxs)
	sizes := make([]int, len(k.parameters))
	for i, p := range k.parameters {
		sizes[i] = len(p.Values)
	}

	switch k.searchMethod {
	case SearchRandom:
		fraction := DefaultRandomFraction
		if args := k.searchArguments; len(args) >= 1 {
			fraction = args[0]
		}
		return search.NewRandomSearch(n, fraction, t.seed)

	case SearchAnnealing:
		t0, alpha := DefaultAnnealingInitialTemperature, DefaultAnnealingCoolingRate
		if args := k.searchArguments; len(args) >= 2 {
			t0, alpha = args[0], args[1]
		}
		space := buildSearchSpace(sizes, idxs)
		return search.NewSimulatedAnnealing(space, t0, alpha, n, t.seed)

	case SearchPSO:
		swarmSize := DefaultSwarmSize
		w, phiP, phiG, clamp := DefaultInertiaWeight, DefaultCognitiveWeight, DefaultSocialWeight, DefaultVelocityClamp
		if args := k.searchArguments; len(args) >= 5 {
			swarmSize = int(args[0])
			w, phiP, phiG, clamp = args[1], args[2], args[3], args[4]
		}
		if swarmSize < 1 {
			swarmSize = 1
		}
		iterations := n / swarmSize
		if iterations < 1 {
			iterations = 1
		}
		space := buildSearchSpace(sizes, idxs)
		return search.NewParticleSwarm(space, swarmSize, w, phiP, phiG, clamp, iterations, t.seed)

	default: // SearchFull
		return search.NewFullSearch(n)
	}
}

// buildSearchSpace derives a search.Space from a materialised index-tuple
// list: its Valid/Index closures both reduce to membership in the same
// lookup table, since the tuple list already names exactly the admissible
// combinations.
func buildSearchSpace(sizes []int, idxs [][]int) search.Space {
	lookup := make(map[string]int, len(idxs))
	for i, idx := range idxs {
		lookup[idxKey(idx)] = i
	}
	return search.Space{
		Sizes: sizes,
		Valid: func(idx []int) bool {
			_, ok := lookup[idxKey(idx)]
			return ok
		},
		Index: func(idx []int) (int, bool) {
			v, ok := lookup[idxKey(idx)]
			return v, ok
		},
		Configurations: idxs,
	}
}

func idxKey(idx []int) string {
	var b strings.Builder
	for i, v := range idx {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(v))
	}
	return b.String()
}

func cloneIntMap(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
