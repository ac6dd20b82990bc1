package ktune

// ReferenceComputer is the externally-provided capability that fills a host
// buffer with the expected contents for a named argument, given the
// current input data (spec.md §6.3).
type ReferenceComputer interface {
	ComputeReference(hostBuffer []byte, argumentId ArgumentId) error
}

// ReferenceSpec is the authoritative expected output for a kernel: either
// another registered kernel id run at a fixed configuration, or an
// externally-provided ReferenceComputer, compared against a set of marked
// argument ids.
type ReferenceSpec struct {
	// Kernel-based reference.
	KernelId KernelId
	Config   map[string]int

	// Computer-based reference.
	Computer ReferenceComputer

	ArgumentIds []ArgumentId
}

// isComputerBased reports whether the reference is a ReferenceComputer
// rather than another kernel.
func (r *ReferenceSpec) isComputerBased() bool {
	return r.Computer != nil
}
