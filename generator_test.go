package ktune

import "testing"

func buildTestKernel(t *testing.T, registry *KernelRegistry, params []KernelParameter, constraints []KernelConstraint) *Kernel {
	t.Helper()
	id := registry.AddKernel("// body", "test_kernel", Dim3{X: 1024}, Dim3{X: 1})
	for _, p := range params {
		if err := registry.AddParameter(id, p); err != nil {
			t.Fatalf("AddParameter(%q): %v", p.Name, err)
		}
	}
	for _, c := range constraints {
		if err := registry.AddConstraint(id, c); err != nil {
			t.Fatalf("AddConstraint: %v", err)
		}
	}
	k, err := registry.Kernel(id)
	if err != nil {
		t.Fatalf("Kernel: %v", err)
	}
	return k
}

func TestConfigurationGeneratorCountsCartesianProduct(t *testing.T) {
	registry := NewKernelRegistry()
	k := buildTestKernel(t, registry, []KernelParameter{
		{Name: "A", Values: []int{1, 2, 3}},
		{Name: "B", Values: []int{10, 20}},
	}, nil)

	gen := NewConfigurationGenerator(k, true)
	if got, want := gen.Count(), 6; got != want {
		t.Fatalf("Count() = %d, want %d", got, want)
	}
	if got, want := len(gen.All()), 6; got != want {
		t.Fatalf("len(All()) = %d, want %d", got, want)
	}
}

func TestConfigurationGeneratorNoParametersYieldsOneConfiguration(t *testing.T) {
	registry := NewKernelRegistry()
	k := buildTestKernel(t, registry, nil, nil)

	gen := NewConfigurationGenerator(k, true)
	configs := gen.All()
	if len(configs) != 1 {
		t.Fatalf("expected exactly one configuration for a parameterless kernel, got %d", len(configs))
	}
	if configs[0].GlobalSize() != (Dim3{X: 1024}) {
		t.Fatalf("expected base global size to pass through unmodified, got %v", configs[0].GlobalSize())
	}
}

func TestConfigurationGeneratorFiltersByConstraint(t *testing.T) {
	registry := NewKernelRegistry()
	k := buildTestKernel(t, registry, []KernelParameter{
		{Name: "A", Values: []int{1, 2, 3, 4}},
	}, []KernelConstraint{
		{ParameterNames: []string{"A"}, Predicate: func(v []int) bool { return v[0]%2 == 0 }},
	})

	gen := NewConfigurationGenerator(k, true)
	configs := gen.All()
	if len(configs) != 2 {
		t.Fatalf("expected 2 configurations passing the even-only constraint, got %d", len(configs))
	}
	for _, c := range configs {
		v, _ := c.Value("A")
		if v%2 != 0 {
			t.Fatalf("constraint violated: A=%d is odd", v)
		}
	}
}

func TestConfigurationGeneratorDeclarationOrderIsSlowestFirst(t *testing.T) {
	registry := NewKernelRegistry()
	k := buildTestKernel(t, registry, []KernelParameter{
		{Name: "SLOW", Values: []int{1, 2}},
		{Name: "FAST", Values: []int{10, 20}},
	}, nil)

	gen := NewConfigurationGenerator(k, true)
	configs := gen.All()
	wantSlow := []int{1, 1, 2, 2}
	wantFast := []int{10, 20, 10, 20}
	if len(configs) != len(wantSlow) {
		t.Fatalf("expected %d configurations, got %d", len(wantSlow), len(configs))
	}
	for i, c := range configs {
		slow, _ := c.Value("SLOW")
		fast, _ := c.Value("FAST")
		if slow != wantSlow[i] || fast != wantFast[i] {
			t.Fatalf("configuration %d: got SLOW=%d FAST=%d, want SLOW=%d FAST=%d", i, slow, fast, wantSlow[i], wantFast[i])
		}
	}
}

func TestDeriveGeometryAppliesLocalModifierDirectly(t *testing.T) {
	registry := NewKernelRegistry()
	k := buildTestKernel(t, registry, []KernelParameter{
		{
			Name:   "WORK_GROUP_SIZE",
			Values: []int{32, 64, 128},
			Modifier: ThreadModifier{
				Scope:     ModifierLocal,
				Op:        OpMultiply,
				Dimension: DimX,
			},
		},
	}, nil)

	gen := NewConfigurationGenerator(k, true)
	for _, c := range gen.All() {
		wg, _ := c.Value("WORK_GROUP_SIZE")
		if got := c.LocalSize().X; got != wg {
			t.Fatalf("WORK_GROUP_SIZE=%d: local size X = %d, want %d (base local is 1, so 1*value == value)", wg, got, wg)
		}
	}
}

func TestDeriveGeometryRejectsMisdivisibleWithoutAutoCorrect(t *testing.T) {
	registry := NewKernelRegistry()
	id := registry.AddKernel("// body", "odd_kernel", Dim3{X: 100}, Dim3{X: 1})
	if err := registry.AddParameter(id, KernelParameter{
		Name:   "LOCAL",
		Values: []int{7},
		Modifier: ThreadModifier{
			Scope:     ModifierLocal,
			Op:        OpMultiply,
			Dimension: DimX,
		},
	}); err != nil {
		t.Fatalf("AddParameter: %v", err)
	}
	k, err := registry.Kernel(id)
	if err != nil {
		t.Fatalf("Kernel: %v", err)
	}

	gen := NewConfigurationGenerator(k, false)
	if got := gen.Count(); got != 0 {
		t.Fatalf("expected the mis-divisible configuration (100 global, local 7) to be rejected without auto-correction, got %d valid configurations", got)
	}
}

func TestDeriveGeometryAutoCorrectsRoundsUp(t *testing.T) {
	registry := NewKernelRegistry()
	id := registry.AddKernel("// body", "odd_kernel", Dim3{X: 100}, Dim3{X: 1})
	if err := registry.AddParameter(id, KernelParameter{
		Name:   "LOCAL",
		Values: []int{7},
		Modifier: ThreadModifier{
			Scope:     ModifierLocal,
			Op:        OpMultiply,
			Dimension: DimX,
		},
	}); err != nil {
		t.Fatalf("AddParameter: %v", err)
	}
	k, err := registry.Kernel(id)
	if err != nil {
		t.Fatalf("Kernel: %v", err)
	}

	gen := NewConfigurationGenerator(k, true)
	configs := gen.All()
	if len(configs) != 1 {
		t.Fatalf("expected exactly one auto-corrected configuration, got %d", len(configs))
	}
	if got := configs[0].GlobalSize().X; got != 105 {
		t.Fatalf("expected global size rounded up to 105 (next multiple of 7 >= 100), got %d", got)
	}
}
