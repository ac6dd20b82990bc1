package ktune

import (
	"testing"

	"github.com/accel-tune/ktune/simengine"
)

// recordingKernelFunc counts invocations so orchestrator_test.go can assert
// RunContext.RunKernel actually reached the engine.
func recordingKernelFunc(calls *int) simengine.KernelFunc {
	return func(tid ThreadID, args []*KernelArgument, defines map[string]int) {
		*calls++
	}
}

func buildOrchestratorContext(t *testing.T) (*RunContext, KernelId, *ArgumentStore) {
	t.Helper()
	registry := NewKernelRegistry()
	store := NewArgumentStore()

	aId, err := store.AddArgument(ArgFloat, 4, AccessReadOnly, LocalityDevice, UploadVector, make([]byte, 16), true)
	if err != nil {
		t.Fatalf("AddArgument: %v", err)
	}
	bId, err := store.AddArgument(ArgFloat, 4, AccessReadOnly, LocalityDevice, UploadVector, make([]byte, 16), true)
	if err != nil {
		t.Fatalf("AddArgument: %v", err)
	}

	kernelId := registry.AddKernel("// body", "k", Dim3{X: 64}, Dim3{X: 1})
	if err := registry.BindArguments(kernelId, []ArgumentId{aId, bId}); err != nil {
		t.Fatalf("BindArguments: %v", err)
	}
	k, err := registry.Kernel(kernelId)
	if err != nil {
		t.Fatalf("Kernel: %v", err)
	}

	calls := 0
	engine := simengine.New(1)
	engine.RegisterKernelFunc("k", recordingKernelFunc(&calls))

	cfg := KernelConfiguration{
		values: map[string]int{},
		order:  nil,
		global: k.GlobalSize(),
		local:  k.LocalSize(),
	}

	ctx := &RunContext{
		engine:      engine,
		registry:    registry,
		args:        store,
		config:      cfg,
		runtimeArgs: map[KernelId][]ArgumentId{kernelId: {aId, bId}},
	}
	return ctx, kernelId, store
}

func TestRunContextRunKernelReachesTheEngine(t *testing.T) {
	ctx, kernelId, _ := buildOrchestratorContext(t)
	calls := 0
	ctx.engine.(*simengine.Engine).RegisterKernelFunc("k", recordingKernelFunc(&calls))
	if err := ctx.RunKernel(kernelId); err != nil {
		t.Fatalf("RunKernel: %v", err)
	}
	if calls == 0 {
		t.Fatal("expected RunKernel to invoke the engine's registered KernelFunc")
	}
}

func TestRunContextGetCurrentSizesMatchConfiguration(t *testing.T) {
	ctx, kernelId, _ := buildOrchestratorContext(t)
	if got := ctx.GetCurrentGlobalSize(kernelId); got != (Dim3{X: 64}) {
		t.Errorf("GetCurrentGlobalSize = %v, want {64 0 0}", got)
	}
	if got := ctx.GetCurrentLocalSize(kernelId); got != (Dim3{X: 1}) {
		t.Errorf("GetCurrentLocalSize = %v, want {1 0 0}", got)
	}
}

func TestRunContextUpdateArgumentScalarUpdatesStoreAndEngine(t *testing.T) {
	ctx, kernelId, store := buildOrchestratorContext(t)
	ids := ctx.runtimeArgs[kernelId]
	scalarId := ids[0]

	// re-register the argument as a scalar so UpdateArgumentScalar's
	// single-float payload matches its element count.
	if err := store.UpdateArgument(scalarId, float32ToBytes([]float32{1}), 1); err != nil {
		t.Fatalf("UpdateArgument: %v", err)
	}

	if err := ctx.UpdateArgumentScalar(scalarId, 42.5); err != nil {
		t.Fatalf("UpdateArgumentScalar: %v", err)
	}
	arg, err := store.GetArgument(scalarId)
	if err != nil {
		t.Fatalf("GetArgument: %v", err)
	}
	if got := arg.Float32()[0]; got != 42.5 {
		t.Errorf("stored value = %v, want 42.5", got)
	}
	engineBytes, ok := ctx.engine.(*simengine.Engine).Pool().Bytes(scalarId)
	if !ok || len(engineBytes) < 4 {
		t.Fatalf("engine holds no buffer for argument %d", scalarId)
	}
	if got := bytesToFloat32(engineBytes)[0]; got != 42.5 {
		t.Errorf("engine value = %v, want 42.5", got)
	}
}

func TestRunContextSwapKernelArgumentsExchangesPositions(t *testing.T) {
	ctx, kernelId, _ := buildOrchestratorContext(t)
	before := append([]ArgumentId(nil), ctx.runtimeArgs[kernelId]...)

	if err := ctx.SwapKernelArguments(kernelId, 0, 1); err != nil {
		t.Fatalf("SwapKernelArguments: %v", err)
	}
	after := ctx.runtimeArgs[kernelId]
	if after[0] != before[1] || after[1] != before[0] {
		t.Fatalf("after swap = %v, want %v", after, []ArgumentId{before[1], before[0]})
	}
}

func TestRunContextSwapKernelArgumentsRejectsOutOfRangePosition(t *testing.T) {
	ctx, kernelId, _ := buildOrchestratorContext(t)
	if err := ctx.SwapKernelArguments(kernelId, 0, 5); err == nil {
		t.Fatal("expected an error for an out-of-range argument position")
	}
}

func TestRunContextChangeKernelArgumentsReplacesBindingAndCopies(t *testing.T) {
	ctx, kernelId, store := buildOrchestratorContext(t)
	newId, err := store.AddArgument(ArgFloat, 4, AccessWriteOnly, LocalityDevice, UploadVector, make([]byte, 16), true)
	if err != nil {
		t.Fatalf("AddArgument: %v", err)
	}

	replacement := []ArgumentId{newId}
	ctx.ChangeKernelArguments(kernelId, replacement)
	replacement[0] = 999 // mutating the caller's slice must not affect the stored binding

	got := ctx.runtimeArgs[kernelId]
	if len(got) != 1 || got[0] != newId {
		t.Fatalf("runtimeArgs[kernelId] = %v, want [%d] (a copy unaffected by later caller mutation)", got, newId)
	}
}

func TestRunContextGetParameterValueDelegatesToConfiguration(t *testing.T) {
	ctx, _, _ := buildOrchestratorContext(t)
	ctx.config = KernelConfiguration{values: map[string]int{"N": 7}, order: []string{"N"}}
	v, ok := ctx.GetParameterValue("N")
	if !ok || v != 7 {
		t.Fatalf("GetParameterValue(N) = (%d, %v), want (7, true)", v, ok)
	}
	if _, ok := ctx.GetParameterValue("MISSING"); ok {
		t.Fatal("expected GetParameterValue to report ok=false for an unknown parameter")
	}
}
