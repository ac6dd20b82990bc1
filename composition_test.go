package ktune

import "testing"

func buildTestComposition(t *testing.T, registry *KernelRegistry, params []KernelParameter, constraints []KernelConstraint) (*KernelComposition, KernelId, KernelId) {
	t.Helper()
	a := registry.AddKernel("// a", "a", Dim3{X: 64}, Dim3{X: 1})
	b := registry.AddKernel("// b", "b", Dim3{X: 128}, Dim3{X: 1})
	cid, err := registry.AddComposition("ab", []KernelId{a, b})
	if err != nil {
		t.Fatalf("AddComposition: %v", err)
	}
	for _, p := range params {
		if err := registry.AddCompositionParameter(cid, p); err != nil {
			t.Fatalf("AddCompositionParameter(%q): %v", p.Name, err)
		}
	}
	for _, c := range constraints {
		if err := registry.AddCompositionConstraint(cid, c); err != nil {
			t.Fatalf("AddCompositionConstraint: %v", err)
		}
	}
	comp, err := registry.Composition(cid)
	if err != nil {
		t.Fatalf("Composition: %v", err)
	}
	return comp, a, b
}

func TestCompositionAccessors(t *testing.T) {
	comp, a, b := buildTestComposition(t, NewKernelRegistry(), nil, nil)
	if comp.Name() != "ab" {
		t.Errorf("Name() = %q, want %q", comp.Name(), "ab")
	}
	ids := comp.KernelIds()
	if len(ids) != 2 || ids[0] != a || ids[1] != b {
		t.Fatalf("KernelIds() = %v, want [%d %d]", ids, a, b)
	}
	if comp.Kernel(a) == nil || comp.Kernel(b) == nil {
		t.Fatal("Kernel() returned nil for a registered sub-kernel id")
	}
}

func TestCompositionArgumentsForIncludesSharedAndPerKernel(t *testing.T) {
	registry := NewKernelRegistry()
	comp, a, b := buildTestComposition(t, registry, nil, nil)
	cid := comp.Id()

	store := NewArgumentStore()
	shared, _ := store.AddArgument(ArgFloat, 4, AccessReadOnly, LocalityDevice, UploadVector, make([]byte, 16), true)
	onlyA, _ := store.AddArgument(ArgFloat, 4, AccessReadWrite, LocalityDevice, UploadVector, make([]byte, 16), true)

	if err := registry.SetSharedArguments(cid, []ArgumentId{shared}); err != nil {
		t.Fatalf("SetSharedArguments: %v", err)
	}
	if err := registry.BindCompositionArguments(cid, a, []ArgumentId{onlyA}); err != nil {
		t.Fatalf("BindCompositionArguments: %v", err)
	}

	comp, err := registry.Composition(cid)
	if err != nil {
		t.Fatalf("Composition: %v", err)
	}
	forA := comp.ArgumentsFor(a)
	if len(forA) != 2 || forA[0] != shared || forA[1] != onlyA {
		t.Fatalf("ArgumentsFor(a) = %v, want [%d %d]", forA, shared, onlyA)
	}
	forB := comp.ArgumentsFor(b)
	if len(forB) != 1 || forB[0] != shared {
		t.Fatalf("ArgumentsFor(b) = %v, want [%d]", forB, shared)
	}
}

func TestCompositionConfigurationGeneratorCountsCartesianProduct(t *testing.T) {
	comp, _, _ := buildTestComposition(t, NewKernelRegistry(), []KernelParameter{
		{Name: "X", Values: []int{1, 2}},
		{Name: "Y", Values: []int{10, 20, 30}},
	}, nil)

	gen := NewCompositionConfigurationGenerator(comp, true)
	if got, want := gen.Count(), 6; got != want {
		t.Fatalf("Count() = %d, want %d", got, want)
	}
}

func TestCompositionConfigurationGeneratorAppliesScopedModifierToOneSubKernel(t *testing.T) {
	registry := NewKernelRegistry()
	comp, a, b := buildTestComposition(t, registry, nil, nil)
	cid := comp.Id()

	if err := registry.AddCompositionParameter(cid, KernelParameter{
		Name:   "LOCAL_A",
		Values: []int{2, 4},
		Modifier: ThreadModifier{
			Scope:     ModifierLocal,
			Op:        OpMultiply,
			Dimension: DimX,
			KernelId:  a,
		},
	}); err != nil {
		t.Fatalf("AddCompositionParameter: %v", err)
	}
	comp, err := registry.Composition(cid)
	if err != nil {
		t.Fatalf("Composition: %v", err)
	}

	gen := NewCompositionConfigurationGenerator(comp, true)
	for _, cfg := range gen.All() {
		v, _ := cfg.Value("LOCAL_A")
		if got := cfg.SubKernelLocalSize(a).X; got != v {
			t.Fatalf("LOCAL_A=%d: sub-kernel a local size X = %d, want %d", v, got, v)
		}
		if got := cfg.SubKernelLocalSize(b).X; got != 1 {
			t.Fatalf("LOCAL_A=%d: sub-kernel b local size X = %d, want 1 (unscoped, untouched)", v, got)
		}
	}
}

func TestCompositionConfigurationGeneratorSkipsCombinationsInvalidForAnySubKernel(t *testing.T) {
	registry := NewKernelRegistry()
	comp, _, _ := buildTestComposition(t, registry, nil, nil)
	cid := comp.Id()

	// 64 (kernel a's base global) is divisible by 8 and 16 but not by 7.
	if err := registry.AddCompositionParameter(cid, KernelParameter{
		Name:   "LOCAL",
		Values: []int{7, 8, 16},
		Modifier: ThreadModifier{
			Scope:     ModifierLocal,
			Op:        OpMultiply,
			Dimension: DimX,
		},
	}); err != nil {
		t.Fatalf("AddCompositionParameter: %v", err)
	}
	comp, err := registry.Composition(cid)
	if err != nil {
		t.Fatalf("Composition: %v", err)
	}

	gen := NewCompositionConfigurationGenerator(comp, false)
	configs := gen.All()
	for _, cfg := range configs {
		v, _ := cfg.Value("LOCAL")
		if v == 7 {
			t.Fatalf("expected LOCAL=7 to be rejected (64 and 128 are not divisible by 7 without auto-correction), got it in %v", configs)
		}
	}
	if len(configs) != 2 {
		t.Fatalf("expected 2 valid configurations (LOCAL=8, LOCAL=16), got %d", len(configs))
	}
}

func TestCompositionConfigurationGeneratorFiltersByConstraint(t *testing.T) {
	comp, _, _ := buildTestComposition(t, NewKernelRegistry(), []KernelParameter{
		{Name: "X", Values: []int{1, 2, 3, 4}},
	}, []KernelConstraint{
		{ParameterNames: []string{"X"}, Predicate: func(v []int) bool { return v[0]%2 == 0 }},
	})

	gen := NewCompositionConfigurationGenerator(comp, true)
	configs := gen.All()
	if len(configs) != 2 {
		t.Fatalf("expected 2 configurations passing the even-only constraint, got %d", len(configs))
	}
}

func TestCompositionConfigurationGeneratorNoParametersYieldsOneConfiguration(t *testing.T) {
	comp, a, b := buildTestComposition(t, NewKernelRegistry(), nil, nil)
	gen := NewCompositionConfigurationGenerator(comp, true)
	configs := gen.All()
	if len(configs) != 1 {
		t.Fatalf("expected exactly one configuration for a parameterless composition, got %d", len(configs))
	}
	if configs[0].SubKernelGlobalSize(a) != (Dim3{X: 64}) {
		t.Fatalf("SubKernelGlobalSize(a) = %v, want {64 0 0}", configs[0].SubKernelGlobalSize(a))
	}
	if configs[0].SubKernelGlobalSize(b) != (Dim3{X: 128}) {
		t.Fatalf("SubKernelGlobalSize(b) = %v, want {128 0 0}", configs[0].SubKernelGlobalSize(b))
	}
}
