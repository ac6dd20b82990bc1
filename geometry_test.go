package ktune

import "testing"

func TestDim3Size(t *testing.T) {
	d := Dim3{X: 4, Y: 3, Z: 2}
	if got, want := d.Size(), 24; got != want {
		t.Fatalf("Size() = %d, want %d", got, want)
	}
}

func TestDim3AtAndWith(t *testing.T) {
	d := Dim3{X: 1, Y: 2, Z: 3}
	for dim, want := range map[Dimension]int{DimX: 1, DimY: 2, DimZ: 3} {
		if got := d.At(dim); got != want {
			t.Fatalf("At(%v) = %d, want %d", dim, got, want)
		}
	}
	updated := d.With(DimY, 99)
	if updated.Y != 99 || updated.X != 1 || updated.Z != 3 {
		t.Fatalf("With(DimY, 99) = %+v, want Y replaced and other axes untouched", updated)
	}
	if d.Y != 2 {
		t.Fatalf("With must not mutate the receiver, got Y=%d", d.Y)
	}
}

func TestDim3DivisibleBy(t *testing.T) {
	a := Dim3{X: 256, Y: 1, Z: 1}
	b := Dim3{X: 64, Y: 1, Z: 1}
	if !a.DivisibleBy(b) {
		t.Fatal("expected 256 to be divisible by 64")
	}
	c := Dim3{X: 100, Y: 1, Z: 1}
	if c.DivisibleBy(b) {
		t.Fatal("expected 100 not to be divisible by 64")
	}
	d := Dim3{X: 100}
	zero := Dim3{X: 0}
	if d.DivisibleBy(zero) {
		t.Fatal("a zero local size must never be considered divisible")
	}
}

func TestDim3RoundUpTo(t *testing.T) {
	got := Dim3{X: 100}.RoundUpTo(Dim3{X: 7})
	if got.X != 105 {
		t.Fatalf("RoundUpTo(7) on 100 = %d, want 105", got.X)
	}
	exact := Dim3{X: 256}.RoundUpTo(Dim3{X: 64})
	if exact.X != 256 {
		t.Fatalf("RoundUpTo must leave an already-exact size unchanged, got %d", exact.X)
	}
}

func TestDim3Positive(t *testing.T) {
	if !(Dim3{X: 1, Y: 1, Z: 1}).Positive() {
		t.Fatal("expected {1,1,1} to be positive")
	}
	if (Dim3{X: 0, Y: 1, Z: 1}).Positive() {
		t.Fatal("expected a zero component to make Positive() false")
	}
}

func TestThreadIDGlobal(t *testing.T) {
	tid := ThreadID{BlockIdx: Dim3{X: 3}, ThreadIdx: Dim3{X: 5}, BlockDim: Dim3{X: 64}}
	if got, want := tid.Global(), 3*64+5; got != want {
		t.Fatalf("Global() = %d, want %d", got, want)
	}
}

func TestRenderGlobalSizeOpenCLPassesThrough(t *testing.T) {
	global := Dim3{X: 1024}
	local := Dim3{X: 64}
	got := RenderGlobalSize(global, local, GlobalSizeOpenCL)
	if got != global {
		t.Fatalf("OpenCL RenderGlobalSize = %+v, want unmodified %+v", got, global)
	}
}

func TestRenderGlobalSizeCUDAConvertsToBlockCount(t *testing.T) {
	global := Dim3{X: 1024}
	local := Dim3{X: 64}
	got := RenderGlobalSize(global, local, GlobalSizeCUDA)
	if want := (Dim3{X: 16}); got != want {
		t.Fatalf("CUDA RenderGlobalSize = %+v, want %+v (block count)", got, want)
	}
}
