// Package comm provides the collective communication primitives used by the
// mesh refinement and redistribution algorithms.
//
// The model is SPMD: every participant (rank) executes the same program and
// meets the others at collective operations. Each collective is a full
// barrier - no rank returns from a collective for round k until every rank
// has entered it - which is what the fixed-point algorithms in the refine
// package rely on for their round-ordering guarantee.
//
// Two implementations are provided: Serial for single-process operation, and
// Group for running N ranks inside one process on goroutines, which is how
// the distributed algorithms are exercised in tests and tools.
package comm

// Communicator is the process-group handle carried by a distributed mesh.
// All methods are collective: every rank in the group must call them in the
// same order with compatible arguments.
type Communicator interface {
	// Rank returns this participant's index in [0, Size).
	Rank() int

	// Size returns the number of participants in the group.
	Size() int

	// SumInt returns the sum of v across all ranks. The reduction doubles
	// as a barrier: it carries the termination payload of fixed-point
	// loops, and no rank proceeds until all have contributed.
	SumInt(v int) int

	// AllGatherInt returns the values contributed by all ranks, indexed by
	// rank. Summation or comparison over the result is deterministic
	// because the order is always rank 0..Size-1.
	AllGatherInt(v int) []int

	// Exchange performs an all-to-all: send[i] is delivered to rank i, and
	// the result's element i is what rank i sent here. A nil entry means
	// "nothing for that rank". Payloads are opaque; use AllToAll for typed
	// slices.
	Exchange(send []any) []any
}

// AllToAll exchanges typed per-destination buffers through c. send[i] goes to
// rank i; the returned slice holds what each rank sent here, indexed by
// source rank. Empty or nil send buffers are permitted.
func AllToAll[T any](c Communicator, send [][]T) [][]T {
	out := make([]any, c.Size())
	for i := range send {
		if len(send[i]) > 0 {
			out[i] = send[i]
		}
	}
	in := c.Exchange(out)
	recv := make([][]T, c.Size())
	for i, p := range in {
		if p != nil {
			recv[i] = p.([]T)
		}
	}
	return recv
}
