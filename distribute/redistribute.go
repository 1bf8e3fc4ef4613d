package distribute

import (
	"fmt"

	"github.com/notargets/meshadapt/comm"
	"github.com/notargets/meshadapt/mesh"
)

// Redistribute moves a collection of tagged values, addressed by global
// cell index under some prior layout, onto the ranks that own those cells
// in the target mesh. The result is a collection addressed by target-local
// cell index.
//
// Values whose cells are locally owned are applied directly through the
// target's global-to-local lookup. The rest are resolved with one
// off-process ownership query, packed into paired per-destination index
// and value buffers, and moved in a single all-to-all. The index and value
// buffers are filled and drained in lockstep and never reordered
// independently. A cell owned by several ranks receives the value on each
// of them; application is idempotent.
//
// Collective: every rank must call, with its own (possibly empty) source
// collection. Requires a global cell numbering on the target mesh.
func Redistribute[T Value](src *ValueCollection[T], target *mesh.Mesh) (*ValueCollection[T], error) {
	if !target.HasGlobalCellNumbering() {
		return nil, fmt.Errorf("redistribute values: %w", mesh.ErrNoGlobalNumbering)
	}
	c := target.Comm()
	out := NewValueCollection[T](src.Dim)

	// Apply locally owned values; collect the rest for resolution.
	var unresolved []Entry[T]
	var query []int
	queried := make(map[int]bool)
	for _, e := range src.Entries() {
		if local, ok := target.GlobalToLocalCell(e.Cell); ok {
			out.Set(local, e.Entity, e.Value)
			continue
		}
		unresolved = append(unresolved, e)
		if !queried[e.Cell] {
			queried[e.Cell] = true
			query = append(query, e.Cell)
		}
	}

	located, err := target.LocateOffProcessCells(query)
	if err != nil {
		return nil, err
	}

	// Pack per-destination buffers: (local cell on owner, entity) index
	// pairs alongside the values.
	sendIdx := make([][]int, c.Size())
	sendVal := make([][]T, c.Size())
	for _, e := range unresolved {
		dests := located[e.Cell]
		if len(dests) == 0 {
			return nil, fmt.Errorf("redistribute values: global cell %d has no owner", e.Cell)
		}
		for _, d := range dests {
			sendIdx[d.Rank] = append(sendIdx[d.Rank], d.Local, e.Entity)
			sendVal[d.Rank] = append(sendVal[d.Rank], e.Value)
		}
	}

	recvIdx := comm.AllToAll(c, sendIdx)
	recvVal := comm.AllToAll(c, sendVal)

	for src := range recvIdx {
		idx := recvIdx[src]
		val := recvVal[src]
		if len(idx) != 2*len(val) {
			return nil, fmt.Errorf("redistribute values: mismatched buffers from rank %d: %d index entries, %d values",
				src, len(idx), len(val))
		}
		for i, v := range val {
			out.Set(idx[2*i], idx[2*i+1], v)
		}
	}
	return out, nil
}
