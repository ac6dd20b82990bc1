package simengine

import (
	"fmt"
	"sync"

	"github.com/accel-tune/ktune"
)

// Pool is simengine's device buffer bookkeeping, keyed by ArgumentId.
//
// simengine has no real host/device boundary: a registered argument's
// KernelFunc reads and writes the same backing array the ArgumentStore
// owns, through the no-copy typed views KernelArgument already exposes.
// Pool exists so ClearBuffer/ClearBuffers/ClearBuffersByAccess and the
// Upload/Update/Download half of ComputeEngine — all of which only ever
// see an ArgumentId, not a live *KernelArgument — can still reach that
// same backing array. Register captures the live handle the first time an
// argument passes through RunKernel or UploadArgument; every Pool method
// after that mutates through the handle's current Bytes(), never a stale
// snapshot, so a later ArgumentStore resize is still visible.
//
// An id touched only via UpdateArgument before ever being registered (a
// RunContext mutating a composition's intermediate buffer the runner
// hasn't launched yet) falls back to a plain byte buffer until a handle
// shows up.
type Pool struct {
	mu       sync.Mutex
	handles  map[ktune.ArgumentId]*ktune.KernelArgument
	fallback map[ktune.ArgumentId][]byte
	access   map[ktune.ArgumentId]ktune.AccessMode
	gen      map[ktune.ArgumentId]int
}

// NewPool creates an empty buffer pool.
func NewPool() *Pool {
	return &Pool{
		handles:  make(map[ktune.ArgumentId]*ktune.KernelArgument),
		fallback: make(map[ktune.ArgumentId][]byte),
		access:   make(map[ktune.ArgumentId]ktune.AccessMode),
		gen:      make(map[ktune.ArgumentId]int),
	}
}

// Register records a live handle for arg's id, taking over from any
// fallback buffer previously held for the same id.
func (p *Pool) Register(arg *ktune.KernelArgument) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := arg.Id()
	p.handles[id] = arg
	p.access[id] = arg.Access()
	delete(p.fallback, id)
}

// bytes returns id's current live buffer under lock. Callers must hold p.mu.
func (p *Pool) bytes(id ktune.ArgumentId) ([]byte, bool) {
	if h, ok := p.handles[id]; ok {
		return h.Bytes(), true
	}
	if b, ok := p.fallback[id]; ok {
		return b, true
	}
	return nil, false
}

// Bytes returns a view of id's current buffer.
func (p *Pool) Bytes(id ktune.ArgumentId) ([]byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bytes(id)
}

// Update overwrites id's buffer contents with data, through the registered
// handle when one exists.
func (p *Pool) Update(id ktune.ArgumentId, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if h, ok := p.handles[id]; ok {
		dst := h.Bytes()
		if len(dst) != len(data) {
			return fmt.Errorf("simengine: argument %d buffer is %d bytes, update supplied %d", id, len(dst), len(data))
		}
		copy(dst, data)
		p.gen[id]++
		return nil
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	p.fallback[id] = buf
	p.gen[id]++
	return nil
}

// Download copies up to len(dst) bytes of id's current buffer into dst.
func (p *Pool) Download(id ktune.ArgumentId, dst []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	src, ok := p.bytes(id)
	if !ok {
		return fmt.Errorf("simengine: argument %d has no buffer to download", id)
	}
	n := len(dst)
	if len(src) < n {
		n = len(src)
	}
	copy(dst, src[:n])
	return nil
}

// Clear zeroes one buffer's contents and bumps its generation counter.
func (p *Pool) Clear(id ktune.ArgumentId) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	buf, ok := p.bytes(id)
	if !ok {
		return fmt.Errorf("simengine: argument %d has no buffer to clear", id)
	}
	for i := range buf {
		buf[i] = 0
	}
	p.gen[id]++
	return nil
}

// ClearAll zeroes every known buffer in the pool.
func (p *Pool) ClearAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id := range p.handles {
		p.zeroLocked(id)
	}
	for id := range p.fallback {
		p.zeroLocked(id)
	}
}

// ClearByAccess zeroes every buffer declared with the given access mode.
// Fallback buffers with no recorded access mode are left untouched, since
// they were never declared through an argument.
func (p *Pool) ClearByAccess(access ktune.AccessMode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, mode := range p.access {
		if mode == access {
			p.zeroLocked(id)
		}
	}
}

func (p *Pool) zeroLocked(id ktune.ArgumentId) {
	buf, ok := p.bytes(id)
	if !ok {
		return
	}
	for i := range buf {
		buf[i] = 0
	}
	p.gen[id]++
}

// Generation returns id's current generation counter, for tests asserting
// that a clear occurred.
func (p *Pool) Generation(id ktune.ArgumentId) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gen[id]
}
