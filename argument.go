package ktune

import (
	"fmt"
	"sync"
)

// ArgumentKind tags the element type stored in a KernelArgument. Byte width
// is derived from the kind rather than carried separately.
type ArgumentKind int

const (
	ArgInt8 ArgumentKind = iota
	ArgUint8
	ArgInt16
	ArgUint16
	ArgInt32
	ArgUint32
	ArgInt64
	ArgUint64
	ArgHalf
	ArgFloat
	ArgDouble
)

// ElementSize returns the byte width of one element of the given kind.
func (k ArgumentKind) ElementSize() int {
	switch k {
	case ArgInt8, ArgUint8:
		return 1
	case ArgInt16, ArgUint16, ArgHalf:
		return 2
	case ArgInt32, ArgUint32, ArgFloat:
		return 4
	case ArgInt64, ArgUint64, ArgDouble:
		return 8
	default:
		return 0
	}
}

func (k ArgumentKind) String() string {
	switch k {
	case ArgInt8:
		return "Int8"
	case ArgUint8:
		return "Uint8"
	case ArgInt16:
		return "Int16"
	case ArgUint16:
		return "Uint16"
	case ArgInt32:
		return "Int32"
	case ArgUint32:
		return "Uint32"
	case ArgInt64:
		return "Int64"
	case ArgUint64:
		return "Uint64"
	case ArgHalf:
		return "Half"
	case ArgFloat:
		return "Float"
	case ArgDouble:
		return "Double"
	default:
		return "Unknown"
	}
}

// AccessMode describes how a kernel is permitted to use an argument.
type AccessMode int

const (
	AccessReadOnly AccessMode = iota
	AccessWriteOnly
	AccessReadWrite
)

// MemoryLocality describes where an argument's backing memory lives.
type MemoryLocality int

const (
	LocalityDevice MemoryLocality = iota
	LocalityHostZeroCopy
)

// UploadKind describes how an argument is passed to a kernel launch.
type UploadKind int

const (
	UploadVector UploadKind = iota
	UploadScalar
	UploadLocal
)

// ArgumentId stably identifies a KernelArgument for the lifetime of the
// ArgumentStore that created it.
type ArgumentId int

// KernelArgument is a typed, host-side buffer: a single tagged byte buffer
// plus an element count, with typed views derived on read. Data is either
// owned (a private copy held by the store) or referenced (a non-owning view
// into caller-supplied memory; the caller guarantees its lifetime).
type KernelArgument struct {
	id         ArgumentId
	kind       ArgumentKind
	count      int
	access     AccessMode
	locality   MemoryLocality
	upload     UploadKind
	owned      bool
	data       []byte
}

// Id returns the argument's stable identifier.
func (a *KernelArgument) Id() ArgumentId { return a.id }

// Kind returns the argument's element kind.
func (a *KernelArgument) Kind() ArgumentKind { return a.kind }

// Count returns the number of elements the argument holds.
func (a *KernelArgument) Count() int { return a.count }

// Access returns the argument's declared access mode.
func (a *KernelArgument) Access() AccessMode { return a.access }

// Locality returns where the argument's memory lives.
func (a *KernelArgument) Locality() MemoryLocality { return a.locality }

// Upload returns how the argument is passed to a kernel launch.
func (a *KernelArgument) Upload() UploadKind { return a.upload }

// Owned reports whether the store holds a private copy of the data.
func (a *KernelArgument) Owned() bool { return a.owned }

// SizeBytes returns count * kind.ElementSize(), the invariant size of the
// argument's data.
func (a *KernelArgument) SizeBytes() int { return a.count * a.kind.ElementSize() }

// Bytes returns the raw backing buffer. Callers must not retain a reference
// across an Update call when Owned() is false.
func (a *KernelArgument) Bytes() []byte { return a.data }

// Float32 returns a typed view over the argument's data, valid only when
// Kind() == ArgFloat.
func (a *KernelArgument) Float32() []float32 {
	return bytesToFloat32(a.data)
}

// Float64 returns a typed view over the argument's data, valid only when
// Kind() == ArgDouble.
func (a *KernelArgument) Float64() []float64 {
	return bytesToFloat64(a.data)
}

// Int32 returns a typed view over the argument's data, valid only when
// Kind() == ArgInt32.
func (a *KernelArgument) Int32() []int32 {
	return bytesToInt32(a.data)
}

// ArgumentStore owns kernel-argument buffers. It issues stable ids on
// registration and is the single writer of host argument data.
type ArgumentStore struct {
	mu      sync.Mutex
	nextId  ArgumentId
	args    map[ArgumentId]*KernelArgument
}

// NewArgumentStore creates an empty argument store.
func NewArgumentStore() *ArgumentStore {
	return &ArgumentStore{args: make(map[ArgumentId]*KernelArgument)}
}

// AddArgument allocates a new entry, assigns the next sequential id, and
// copies data into the store when owned is true. When owned is false, data
// is kept as a non-owning reference and the caller must guarantee its
// lifetime for as long as the store exists.
//
// It fails with ErrInvalidArgument when count is zero or the supplied data
// does not match count*kind.ElementSize() in length.
func (s *ArgumentStore) AddArgument(kind ArgumentKind, count int, access AccessMode, locality MemoryLocality, upload UploadKind, data []byte, owned bool) (ArgumentId, error) {
	if count <= 0 {
		return 0, newError(ErrInvalidArgument, "AddArgument", "count must be positive")
	}
	want := count * kind.ElementSize()
	if data != nil && len(data) != want {
		return 0, newError(ErrInvalidArgument, "AddArgument", fmt.Sprintf("data length %d does not match expected %d bytes", len(data), want))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	buf := data
	if owned {
		buf = make([]byte, want)
		copy(buf, data)
	} else if buf == nil {
		return 0, newError(ErrInvalidArgument, "AddArgument", "referenced argument requires non-nil data")
	}

	id := s.nextId
	s.nextId++
	s.args[id] = &KernelArgument{
		id:       id,
		kind:     kind,
		count:    count,
		access:   access,
		locality: locality,
		upload:   upload,
		owned:    owned,
		data:     buf,
	}
	return id, nil
}

// UpdateArgument replaces an argument's contents. The kind is fixed for the
// lifetime of the argument; count may change. Fails with ErrInvalidId on an
// unknown id.
func (s *ArgumentStore) UpdateArgument(id ArgumentId, data []byte, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	arg, ok := s.args[id]
	if !ok {
		return newError(ErrInvalidId, "UpdateArgument", fmt.Sprintf("unknown argument id %d", id))
	}
	want := count * arg.kind.ElementSize()
	if len(data) != want {
		return newError(ErrInvalidArgument, "UpdateArgument", fmt.Sprintf("data length %d does not match expected %d bytes", len(data), want))
	}

	if arg.owned {
		if cap(arg.data) >= want {
			arg.data = arg.data[:want]
		} else {
			arg.data = make([]byte, want)
		}
		copy(arg.data, data)
	} else {
		arg.data = data
	}
	arg.count = count
	return nil
}

// GetArgument returns a read handle for id, or ErrInvalidId if unknown.
func (s *ArgumentStore) GetArgument(id ArgumentId) (*KernelArgument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	arg, ok := s.args[id]
	if !ok {
		return nil, newError(ErrInvalidId, "GetArgument", fmt.Sprintf("unknown argument id %d", id))
	}
	return arg, nil
}

// GetArguments returns read handles for every id in ids, in order. Fails
// with ErrInvalidId at the first unknown id.
func (s *ArgumentStore) GetArguments(ids []ArgumentId) ([]*KernelArgument, error) {
	out := make([]*KernelArgument, 0, len(ids))
	for _, id := range ids {
		arg, err := s.GetArgument(id)
		if err != nil {
			return nil, err
		}
		out = append(out, arg)
	}
	return out, nil
}
