package ktune

import (
	"os"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"
)

// LoggingLevel selects slog verbosity for CLI front-ends consuming a
// TunerConfig (spec.md §6.5).
type LoggingLevel int

const (
	LoggingOff LoggingLevel = iota
	LoggingError
	LoggingWarning
	LoggingInfo
	LoggingDebug
)

func parseLoggingLevel(s string) LoggingLevel {
	switch s {
	case "Error":
		return LoggingError
	case "Warning":
		return LoggingWarning
	case "Info":
		return LoggingInfo
	case "Debug":
		return LoggingDebug
	default:
		return LoggingOff
	}
}

func parseValidationMethod(s string) ValidationMethod {
	switch s {
	case "SideBySideComparison":
		return ValidationSideBySideComparison
	case "SideBySideRelative":
		return ValidationSideBySideRelative
	default:
		return ValidationAbsoluteDifference
	}
}

func parsePrintingTimeUnit(s string) PrintingTimeUnit {
	switch s {
	case "Microseconds":
		return UnitMicroseconds
	case "Milliseconds":
		return UnitMilliseconds
	case "Seconds":
		return UnitSeconds
	default:
		return UnitNanoseconds
	}
}

func parseSearchMethod(s string) SearchMethod {
	switch s {
	case "RandomSearch":
		return SearchRandom
	case "SimulatedAnnealing":
		return SearchAnnealing
	case "ParticleSwarm":
		return SearchPSO
	default:
		return SearchFull
	}
}

func parseGlobalSizeType(s string) GlobalSizeType {
	if s == "CUDA" {
		return GlobalSizeCUDA
	}
	return GlobalSizeOpenCL
}

// tunerConfigDocument is the literal YAML shape from spec.md §6.6, kept
// separate from TunerConfig so the exported type can use ktune's own enums
// rather than raw strings.
type tunerConfigDocument struct {
	Validation struct {
		Method    string  `yaml:"method"`
		Tolerance float64 `yaml:"tolerance"`
	} `yaml:"validation"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
	Printing struct {
		TimeUnit string `yaml:"timeUnit"`
	} `yaml:"printing"`
	Search struct {
		Method    string    `yaml:"method"`
		Arguments []float64 `yaml:"arguments"`
	} `yaml:"search"`
	Engine struct {
		CompilerOptions      []string `yaml:"compilerOptions"`
		GlobalSizeType       string   `yaml:"globalSizeType"`
		MaxLaunchesPerSecond float64  `yaml:"maxLaunchesPerSecond"`
	} `yaml:"engine"`
}

// TunerConfig holds every externally-configurable knob named in
// spec.md §6.5, plus engine-facing additions (compiler options,
// global-size semantics, launch pacing) from SPEC_FULL.md §4.J. Unset
// fields take the documented defaults.
type TunerConfig struct {
	ValidationMethod    ValidationMethod
	ToleranceThreshold  float64
	LoggingLevel        LoggingLevel
	PrintingTimeUnit    PrintingTimeUnit
	SearchMethod        SearchMethod
	SearchArguments     []float64
	CompilerOptions     []string
	GlobalSizeType      GlobalSizeType
	MaxLaunchesPerSecond float64
}

// DefaultTunerConfig returns the documented defaults: auto-correction
// enabled, FullSearch, AbsoluteDifference with tolerance 1e-5, Off
// logging, Nanoseconds printing, OpenCL global-size semantics, no launch
// pacing.
func DefaultTunerConfig() TunerConfig {
	return TunerConfig{
		ValidationMethod:   ValidationAbsoluteDifference,
		ToleranceThreshold: 1e-5,
		LoggingLevel:       LoggingOff,
		PrintingTimeUnit:   UnitNanoseconds,
		SearchMethod:       SearchFull,
		GlobalSizeType:     GlobalSizeOpenCL,
	}
}

// LoadTunerConfig reads and parses a YAML tuner configuration file, per
// spec.md §6.6. Missing sections or fields fall back to
// DefaultTunerConfig's values rather than failing.
func LoadTunerConfig(path string) (TunerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return TunerConfig{}, wrapError(ErrConfigurationInvalid, "LoadTunerConfig", "reading config file failed", err)
	}
	return ParseTunerConfig(data)
}

// ParseTunerConfig parses a YAML tuner configuration document already read
// into memory.
func ParseTunerConfig(data []byte) (TunerConfig, error) {
	var doc tunerConfigDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return TunerConfig{}, wrapError(ErrConfigurationInvalid, "ParseTunerConfig", "invalid YAML", err)
	}

	cfg := DefaultTunerConfig()
	if doc.Validation.Method != "" {
		cfg.ValidationMethod = parseValidationMethod(doc.Validation.Method)
	}
	if doc.Validation.Tolerance != 0 {
		cfg.ToleranceThreshold = doc.Validation.Tolerance
	}
	if doc.Logging.Level != "" {
		cfg.LoggingLevel = parseLoggingLevel(doc.Logging.Level)
	}
	if doc.Printing.TimeUnit != "" {
		cfg.PrintingTimeUnit = parsePrintingTimeUnit(doc.Printing.TimeUnit)
	}
	if doc.Search.Method != "" {
		cfg.SearchMethod = parseSearchMethod(doc.Search.Method)
	}
	cfg.SearchArguments = append([]float64(nil), doc.Search.Arguments...)
	cfg.CompilerOptions = append([]string(nil), doc.Engine.CompilerOptions...)
	if doc.Engine.GlobalSizeType != "" {
		cfg.GlobalSizeType = parseGlobalSizeType(doc.Engine.GlobalSizeType)
	}
	cfg.MaxLaunchesPerSecond = doc.Engine.MaxLaunchesPerSecond

	if err := cfg.validate(); err != nil {
		return TunerConfig{}, err
	}
	return cfg, nil
}

func (c TunerConfig) validate() error {
	if c.ToleranceThreshold < 0 || c.ToleranceThreshold > 1 {
		return newError(ErrConfigurationInvalid, "TunerConfig", "toleranceThreshold must be within [0, 1]")
	}
	if c.MaxLaunchesPerSecond < 0 {
		return newError(ErrConfigurationInvalid, "TunerConfig", "maxLaunchesPerSecond must not be negative")
	}
	return nil
}

// LaunchLimiter builds a rate.Limiter pacing configuration launches to
// MaxLaunchesPerSecond, or nil when pacing is disabled (zero value).
func (c TunerConfig) LaunchLimiter() *rate.Limiter {
	if c.MaxLaunchesPerSecond <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(c.MaxLaunchesPerSecond), 1)
}

// ApplyToEngine forwards the engine-facing knobs (compiler options,
// global-size semantics, automatic correction) to a ComputeEngine.
func (c TunerConfig) ApplyToEngine(engine ComputeEngine, autoCorrect bool) {
	if len(c.CompilerOptions) > 0 {
		engine.SetCompilerOptions(c.CompilerOptions)
	}
	engine.SetGlobalSizeType(c.GlobalSizeType)
	engine.SetAutomaticGlobalSizeCorrection(autoCorrect)
}

// paceLaunches blocks until the limiter admits one more launch, a no-op
// when limiter is nil. TuningRunner.TuneKernel calls it before each
// configuration launch to spread launches out under MaxLaunchesPerSecond.
func paceLaunches(limiter *rate.Limiter) {
	if limiter == nil {
		return
	}
	reservation := limiter.Reserve()
	if d := reservation.Delay(); d > 0 {
		time.Sleep(d)
	}
}
