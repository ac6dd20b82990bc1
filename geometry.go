package ktune

// Dim3 represents a 3D launch-geometry vector. It is used for both global
// and local (work-group/block) sizes, matching CUDA's dim3 and OpenCL's
// work-size triples.
type Dim3 struct {
	X, Y, Z int
}

// Size returns the total element count of the dimension (X*Y*Z).
func (d Dim3) Size() int {
	return d.X * d.Y * d.Z
}

// At returns the component for the given dimension index, used when a
// thread modifier's dimension is only known at runtime.
func (d Dim3) At(dim Dimension) int {
	switch dim {
	case DimX:
		return d.X
	case DimY:
		return d.Y
	case DimZ:
		return d.Z
	default:
		return 0
	}
}

// With returns a copy of d with the given dimension set to v.
func (d Dim3) With(dim Dimension, v int) Dim3 {
	switch dim {
	case DimX:
		d.X = v
	case DimY:
		d.Y = v
	case DimZ:
		d.Z = v
	}
	return d
}

// DivisibleBy reports whether every component of d is an exact multiple of
// the corresponding component of local, and every component of local is
// strictly positive.
func (d Dim3) DivisibleBy(local Dim3) bool {
	if local.X <= 0 || local.Y <= 0 || local.Z <= 0 {
		return false
	}
	return d.X%local.X == 0 && d.Y%local.Y == 0 && d.Z%local.Z == 0
}

// RoundUpTo returns the smallest Dim3 componentwise greater than or equal to
// d whose components are exact multiples of local's. Used by the automatic
// global-size correction policy.
func (d Dim3) RoundUpTo(local Dim3) Dim3 {
	round := func(v, m int) int {
		if m <= 0 {
			return v
		}
		if v%m == 0 {
			return v
		}
		return ((v / m) + 1) * m
	}
	return Dim3{
		X: round(d.X, local.X),
		Y: round(d.Y, local.Y),
		Z: round(d.Z, local.Z),
	}
}

// Positive reports whether every component of d is strictly positive.
func (d Dim3) Positive() bool {
	return d.X > 0 && d.Y > 0 && d.Z > 0
}

// ThreadID identifies one thread's position within a kernel launch's
// execution hierarchy, with the same indexing semantics as CUDA's built-in
// blockIdx/threadIdx/blockDim/gridDim variables. simengine hands one of
// these to a registered KernelFunc per thread executed.
type ThreadID struct {
	BlockIdx  Dim3
	ThreadIdx Dim3
	BlockDim  Dim3
	GridDim   Dim3
}

// Global returns the thread's flattened global index along X, as CUDA
// kernels conventionally compute it.
func (tid ThreadID) Global() int {
	return tid.BlockIdx.X*tid.BlockDim.X + tid.ThreadIdx.X
}

// GlobalX, GlobalY, and GlobalZ return the thread's global index along each
// axis.
func (tid ThreadID) GlobalX() int { return tid.BlockIdx.X*tid.BlockDim.X + tid.ThreadIdx.X }
func (tid ThreadID) GlobalY() int { return tid.BlockIdx.Y*tid.BlockDim.Y + tid.ThreadIdx.Y }
func (tid ThreadID) GlobalZ() int { return tid.BlockIdx.Z*tid.BlockDim.Z + tid.ThreadIdx.Z }

// Dimension identifies one axis of a Dim3 for use in thread modifiers.
type Dimension int

const (
	DimX Dimension = iota
	DimY
	DimZ
)

func (d Dimension) String() string {
	switch d {
	case DimX:
		return "X"
	case DimY:
		return "Y"
	case DimZ:
		return "Z"
	default:
		return "?"
	}
}

// GlobalSizeType distinguishes how the compute engine expects the declared
// global size to be interpreted. OpenCL treats it as the total grid size;
// CUDA treats it as the block count, with local size giving the block's own
// dimensions.
type GlobalSizeType int

const (
	GlobalSizeOpenCL GlobalSizeType = iota
	GlobalSizeCUDA
)

func (g GlobalSizeType) String() string {
	if g == GlobalSizeCUDA {
		return "CUDA"
	}
	return "OpenCL"
}

// RenderGlobalSize converts an OpenCL-style total global size into whatever
// the given GlobalSizeType expects the engine to receive, given the
// companion local size.
func RenderGlobalSize(global, local Dim3, t GlobalSizeType) Dim3 {
	if t == GlobalSizeOpenCL {
		return global
	}
	// CUDA: the engine wants block counts, i.e. global/local componentwise.
	blocks := func(g, l int) int {
		if l <= 0 {
			return g
		}
		return g / l
	}
	return Dim3{X: blocks(global.X, local.X), Y: blocks(global.Y, local.Y), Z: blocks(global.Z, local.Z)}
}
