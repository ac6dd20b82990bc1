// Package demo builds small, self-contained tunable kernels (vector-add,
// tree reduction) shared by the ktune CLI and the ktune-server HTTP server,
// so neither has to duplicate argument wiring and reference setup.
package demo

import (
	"unsafe"

	"github.com/accel-tune/ktune"
	"github.com/accel-tune/ktune/simengine"
)

// Kernel bundles everything a driver needs to tune or run a demo kernel:
// the registry and store it is registered in, the engine its KernelFunc
// runs on, and its id.
type Kernel struct {
	Registry *ktune.KernelRegistry
	Store    *ktune.ArgumentStore
	Engine   *simengine.Engine
	Id       ktune.KernelId
	Name     string
}

// NewRunner builds a TuningRunner over k's registry, store, and engine,
// backed by a fresh ResultStore.
func (k *Kernel) NewRunner() *ktune.TuningRunner {
	return ktune.NewTuningRunner(k.Engine, k.Store, k.Registry, ktune.NewResultStore())
}

// Catalogue lists the demo kernels selectable by name from the CLI.
var Catalogue = map[string]func(n int) *Kernel{
	"vectoradd": NewVectorAdd,
	"reduction": NewReduction,
}

func float32sToBytes(f []float32) []byte {
	if len(f) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&f[0])), len(f)*4)
}

func bytesToFloat32View(b []byte) []float32 {
	if len(b) == 0 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&b[0])), len(b)/4)
}

func int32sToBytes(v []int32) []byte {
	if len(v) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)*4)
}
