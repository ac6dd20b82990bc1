package demo

import (
	"github.com/accel-tune/ktune"
	"github.com/accel-tune/ktune/simengine"
)

func vectorAdd(tid ktune.ThreadID, args []*ktune.KernelArgument, defines map[string]int) {
	i := tid.Global()
	if i >= defines["N"] {
		return
	}
	a := args[0].Float32()
	b := args[1].Float32()
	c := args[2].Float32()
	c[i] = a[i] + b[i]
}

// vectorAddReference computes c = a + b directly in Go, standing in for a
// trusted reference implementation run once per tuning session.
type vectorAddReference struct {
	a, b []float32
}

func (r vectorAddReference) ComputeReference(hostBuffer []byte, argumentId ktune.ArgumentId) error {
	out := bytesToFloat32View(hostBuffer)
	for i := range out {
		out[i] = r.a[i] + r.b[i]
	}
	return nil
}

// NewVectorAdd builds a tunable vector-add kernel of n elements, sweeping
// work-group size from 32 to 512.
func NewVectorAdd(n int) *Kernel {
	store := ktune.NewArgumentStore()
	registry := ktune.NewKernelRegistry()

	a := ktune.GenerateSequence(n, 0, 1)
	b := ktune.GenerateSequence(n, 0, 2)
	c := make([]float32, n)

	aId, err := store.AddArgument(ktune.ArgFloat, n, ktune.AccessReadOnly, ktune.LocalityDevice, ktune.UploadVector, float32sToBytes(a), true)
	check(err)
	bId, err := store.AddArgument(ktune.ArgFloat, n, ktune.AccessReadOnly, ktune.LocalityDevice, ktune.UploadVector, float32sToBytes(b), true)
	check(err)
	cId, err := store.AddArgument(ktune.ArgFloat, n, ktune.AccessWriteOnly, ktune.LocalityDevice, ktune.UploadVector, float32sToBytes(c), true)
	check(err)

	// Local size starts at 1 along X; the WORK_GROUP_SIZE modifier multiplies
	// it up to whatever the configuration picks, so the parameter's values
	// are the actual work-group sizes under test rather than scale factors.
	kernelId := registry.AddKernel("c[i] = a[i] + b[i];", "vector_add", ktune.Dim3{X: n}, ktune.Dim3{X: 1})
	check(registry.AddParameter(kernelId, ktune.KernelParameter{Name: "N", Values: []int{n}}))
	check(registry.AddParameter(kernelId, ktune.KernelParameter{
		Name:   "WORK_GROUP_SIZE",
		Values: []int{32, 64, 128, 256, 512},
		Modifier: ktune.ThreadModifier{
			Scope:     ktune.ModifierLocal,
			Op:        ktune.OpMultiply,
			Dimension: ktune.DimX,
		},
	}))
	check(registry.BindArguments(kernelId, []ktune.ArgumentId{aId, bId, cId}))
	check(registry.SetReferenceComputer(kernelId, vectorAddReference{a: a, b: b}, []ktune.ArgumentId{cId}))
	check(registry.SetValidationMethod(kernelId, ktune.ValidationAbsoluteDifference, 1e-5))

	engine := simengine.NewEngine()
	engine.RegisterKernelFunc("vector_add", vectorAdd)

	return &Kernel{Registry: registry, Store: store, Engine: engine, Id: kernelId, Name: "vectoradd"}
}
