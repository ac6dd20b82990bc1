package simengine

import (
	"strconv"
	"strings"
	"sync"

	"github.com/accel-tune/ktune"
)

// KernelFunc is the CPU-executable body registered for one kernel name.
// simengine invokes it once per thread, the same execution model the
// rendered source's #define geometry describes to a real OpenCL/CUDA
// compiler. defines holds every #define NAME VALUE line parsed out of the
// kernel's rendered source for this launch.
type KernelFunc func(tid ktune.ThreadID, args []*ktune.KernelArgument, defines map[string]int)

// parseDefines extracts integer-valued #define lines from rendered kernel
// source, the same lines sourceWithDefines prepends ahead of the kernel
// body.
func parseDefines(source string) map[string]int {
	defines := make(map[string]int)
	for _, line := range strings.Split(source, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "#define ") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			continue
		}
		v, err := strconv.Atoi(fields[2])
		if err != nil {
			continue
		}
		defines[fields[1]] = v
	}
	return defines
}

// linearTo3D converts a linear index in [0, dim.Size()) into its 3D
// coordinate within dim, row-major with X varying fastest.
func linearTo3D(linear int, dim ktune.Dim3) ktune.Dim3 {
	x := dim.X
	y := dim.Y
	if x <= 0 {
		x = 1
	}
	if y <= 0 {
		y = 1
	}
	return ktune.Dim3{
		X: linear % x,
		Y: (linear / x) % y,
		Z: linear / (x * y),
	}
}

// launch runs fn once per thread across grid x block, partitioning blocks
// contiguously across workers goroutines. Each worker owns a disjoint span
// of block indices so kernel bodies writing to distinct output elements per
// thread never race with each other.
func launch(workers int, grid, block ktune.Dim3, fn KernelFunc, args []*ktune.KernelArgument, defines map[string]int) {
	// A zero Y or Z extent marks an unused axis and counts as 1, the same
	// reading linearTo3D applies.
	extent := func(d ktune.Dim3) int {
		if d.Y == 0 {
			d.Y = 1
		}
		if d.Z == 0 {
			d.Z = 1
		}
		return d.Size()
	}
	gridSize := extent(grid)
	blockSize := extent(block)
	if gridSize <= 0 || blockSize <= 0 {
		return
	}
	if workers <= 0 {
		workers = defaultWorkers()
	}
	if workers > gridSize {
		workers = gridSize
	}

	blocksPerWorker := (gridSize + workers - 1) / workers
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		start := w * blocksPerWorker
		end := start + blocksPerWorker
		if end > gridSize {
			end = gridSize
		}
		if start >= end {
			wg.Done()
			continue
		}
		go func(start, end int) {
			defer wg.Done()
			for blockLinear := start; blockLinear < end; blockLinear++ {
				blockIdx := linearTo3D(blockLinear, grid)
				for threadLinear := 0; threadLinear < blockSize; threadLinear++ {
					threadIdx := linearTo3D(threadLinear, block)
					tid := ktune.ThreadID{
						BlockIdx:  blockIdx,
						ThreadIdx: threadIdx,
						BlockDim:  block,
						GridDim:   grid,
					}
					fn(tid, args, defines)
				}
			}
		}(start, end)
	}
	wg.Wait()
}
