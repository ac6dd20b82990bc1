package ktune

import (
	"testing"
	"time"
)

func TestDefaultTunerConfig(t *testing.T) {
	cfg := DefaultTunerConfig()
	if cfg.ValidationMethod != ValidationAbsoluteDifference {
		t.Errorf("ValidationMethod = %v, want ValidationAbsoluteDifference", cfg.ValidationMethod)
	}
	if cfg.ToleranceThreshold != 1e-5 {
		t.Errorf("ToleranceThreshold = %v, want 1e-5", cfg.ToleranceThreshold)
	}
	if cfg.LoggingLevel != LoggingOff {
		t.Errorf("LoggingLevel = %v, want LoggingOff", cfg.LoggingLevel)
	}
	if cfg.PrintingTimeUnit != UnitNanoseconds {
		t.Errorf("PrintingTimeUnit = %v, want UnitNanoseconds", cfg.PrintingTimeUnit)
	}
	if cfg.SearchMethod != SearchFull {
		t.Errorf("SearchMethod = %v, want SearchFull", cfg.SearchMethod)
	}
	if cfg.GlobalSizeType != GlobalSizeOpenCL {
		t.Errorf("GlobalSizeType = %v, want GlobalSizeOpenCL", cfg.GlobalSizeType)
	}
	if cfg.MaxLaunchesPerSecond != 0 {
		t.Errorf("MaxLaunchesPerSecond = %v, want 0", cfg.MaxLaunchesPerSecond)
	}
}

func TestParseTunerConfigOverridesOnlySpecifiedFields(t *testing.T) {
	yamlDoc := `
validation:
  method: SideBySideRelative
  tolerance: 0.01
logging:
  level: Debug
search:
  method: RandomSearch
  arguments: [0.3]
engine:
  compilerOptions: ["-O3"]
  globalSizeType: CUDA
  maxLaunchesPerSecond: 50
`
	cfg, err := ParseTunerConfig([]byte(yamlDoc))
	if err != nil {
		t.Fatalf("ParseTunerConfig: %v", err)
	}
	if cfg.ValidationMethod != ValidationSideBySideRelative {
		t.Errorf("ValidationMethod = %v, want ValidationSideBySideRelative", cfg.ValidationMethod)
	}
	if cfg.ToleranceThreshold != 0.01 {
		t.Errorf("ToleranceThreshold = %v, want 0.01", cfg.ToleranceThreshold)
	}
	if cfg.LoggingLevel != LoggingDebug {
		t.Errorf("LoggingLevel = %v, want LoggingDebug", cfg.LoggingLevel)
	}
	if cfg.SearchMethod != SearchRandom {
		t.Errorf("SearchMethod = %v, want SearchRandom", cfg.SearchMethod)
	}
	if len(cfg.SearchArguments) != 1 || cfg.SearchArguments[0] != 0.3 {
		t.Errorf("SearchArguments = %v, want [0.3]", cfg.SearchArguments)
	}
	if len(cfg.CompilerOptions) != 1 || cfg.CompilerOptions[0] != "-O3" {
		t.Errorf("CompilerOptions = %v, want [-O3]", cfg.CompilerOptions)
	}
	if cfg.GlobalSizeType != GlobalSizeCUDA {
		t.Errorf("GlobalSizeType = %v, want GlobalSizeCUDA", cfg.GlobalSizeType)
	}
	if cfg.MaxLaunchesPerSecond != 50 {
		t.Errorf("MaxLaunchesPerSecond = %v, want 50", cfg.MaxLaunchesPerSecond)
	}
	// untouched field keeps its default.
	if cfg.PrintingTimeUnit != UnitNanoseconds {
		t.Errorf("PrintingTimeUnit = %v, want the default UnitNanoseconds", cfg.PrintingTimeUnit)
	}
}

func TestParseTunerConfigEmptyDocumentYieldsDefaults(t *testing.T) {
	cfg, err := ParseTunerConfig([]byte(""))
	if err != nil {
		t.Fatalf("ParseTunerConfig(empty): %v", err)
	}
	want := DefaultTunerConfig()
	if cfg.ValidationMethod != want.ValidationMethod ||
		cfg.ToleranceThreshold != want.ToleranceThreshold ||
		cfg.LoggingLevel != want.LoggingLevel ||
		cfg.PrintingTimeUnit != want.PrintingTimeUnit ||
		cfg.SearchMethod != want.SearchMethod ||
		cfg.GlobalSizeType != want.GlobalSizeType ||
		cfg.MaxLaunchesPerSecond != want.MaxLaunchesPerSecond ||
		len(cfg.SearchArguments) != 0 || len(cfg.CompilerOptions) != 0 {
		t.Fatalf("ParseTunerConfig(empty) = %+v, want the documented defaults", cfg)
	}
}

func TestParseTunerConfigRejectsInvalidYAML(t *testing.T) {
	if _, err := ParseTunerConfig([]byte("search:\n  arguments: [1, 2")); err == nil {
		t.Fatal("expected an error for malformed YAML")
	}
}

func TestParseTunerConfigRejectsOutOfRangeTolerance(t *testing.T) {
	if _, err := ParseTunerConfig([]byte("validation:\n  tolerance: 1.5\n")); err == nil {
		t.Fatal("expected an error for a tolerance outside [0, 1]")
	}
}

func TestParseTunerConfigRejectsNegativeLaunchRate(t *testing.T) {
	if _, err := ParseTunerConfig([]byte("engine:\n  maxLaunchesPerSecond: -1\n")); err == nil {
		t.Fatal("expected an error for a negative maxLaunchesPerSecond")
	}
}

func TestLoadTunerConfigMissingFile(t *testing.T) {
	if _, err := LoadTunerConfig("/nonexistent/path/to/ktune.yaml"); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestLaunchLimiterNilWhenPacingDisabled(t *testing.T) {
	cfg := DefaultTunerConfig()
	if cfg.LaunchLimiter() != nil {
		t.Fatal("expected a zero MaxLaunchesPerSecond to produce a nil limiter")
	}
}

func TestLaunchLimiterConfiguredWhenPacingEnabled(t *testing.T) {
	cfg := DefaultTunerConfig()
	cfg.MaxLaunchesPerSecond = 100
	if cfg.LaunchLimiter() == nil {
		t.Fatal("expected a positive MaxLaunchesPerSecond to produce a non-nil limiter")
	}
}

func TestPaceLaunchesNoopWithNilLimiter(t *testing.T) {
	start := time.Now()
	paceLaunches(nil)
	if time.Since(start) > 50*time.Millisecond {
		t.Fatal("expected paceLaunches(nil) to return immediately")
	}
}

// fakeEngine records ApplyToEngine's forwarded calls without implementing
// any real execution.
type fakeEngine struct {
	compilerOptions []string
	globalSizeType  GlobalSizeType
	autoCorrect     bool
	autoCorrectSet  bool
}

func (f *fakeEngine) RunKernel(RuntimeData, []*KernelArgument, []OutputDescriptor) (EngineResult, error) {
	return EngineResult{}, nil
}
func (f *fakeEngine) UploadArgument(*KernelArgument) error                { return nil }
func (f *fakeEngine) UpdateArgument(ArgumentId, []byte, int) error        { return nil }
func (f *fakeEngine) DownloadArgument(ArgumentId, []byte, int) error      { return nil }
func (f *fakeEngine) ClearBuffer(ArgumentId) error                       { return nil }
func (f *fakeEngine) ClearBuffers() error                                { return nil }
func (f *fakeEngine) ClearBuffersByAccess(AccessMode) error              { return nil }
func (f *fakeEngine) SetCompilerOptions(opts []string)                   { f.compilerOptions = opts }
func (f *fakeEngine) SetGlobalSizeType(t GlobalSizeType)                 { f.globalSizeType = t }
func (f *fakeEngine) SetAutomaticGlobalSizeCorrection(enabled bool) {
	f.autoCorrect = enabled
	f.autoCorrectSet = true
}
func (f *fakeEngine) GetPlatformInfo() PlatformInfo                  { return PlatformInfo{} }
func (f *fakeEngine) GetDeviceInfo(int) ([]DeviceInfo, error)        { return nil, nil }
func (f *fakeEngine) GetCurrentDeviceInfo() DeviceInfo               { return DeviceInfo{} }

func TestApplyToEngineForwardsKnobs(t *testing.T) {
	cfg := DefaultTunerConfig()
	cfg.CompilerOptions = []string{"-ffast-math"}
	cfg.GlobalSizeType = GlobalSizeCUDA

	engine := &fakeEngine{}
	cfg.ApplyToEngine(engine, true)

	if len(engine.compilerOptions) != 1 || engine.compilerOptions[0] != "-ffast-math" {
		t.Errorf("compilerOptions = %v, want [-ffast-math]", engine.compilerOptions)
	}
	if engine.globalSizeType != GlobalSizeCUDA {
		t.Errorf("globalSizeType = %v, want GlobalSizeCUDA", engine.globalSizeType)
	}
	if !engine.autoCorrectSet || !engine.autoCorrect {
		t.Error("expected ApplyToEngine to forward autoCorrect=true")
	}
}

func TestApplyToEngineSkipsEmptyCompilerOptions(t *testing.T) {
	cfg := DefaultTunerConfig()
	engine := &fakeEngine{compilerOptions: []string{"should-not-be-touched"}}
	cfg.ApplyToEngine(engine, false)
	if len(engine.compilerOptions) != 1 || engine.compilerOptions[0] != "should-not-be-touched" {
		t.Errorf("expected SetCompilerOptions not to be called for an empty CompilerOptions slice, got %v", engine.compilerOptions)
	}
}
