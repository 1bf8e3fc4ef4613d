package refine

import (
	"fmt"

	"github.com/notargets/meshadapt/comm"
	"github.com/notargets/meshadapt/distribute"
	"github.com/notargets/meshadapt/mesh"
)

// Refiner holds the distributed state of one refinement pass over a mesh:
// the edge marker set, the edge-to-new-vertex assignment, and the builder
// accumulating child cells. Markers are monotone within a pass: they are
// only ever added.
type Refiner struct {
	m      *mesh.Mesh
	marked []bool

	// newVertex maps global edge index -> global index of the vertex
	// created at the edge midpoint. Populated by CreateNewVertices; one
	// entry per globally marked edge, shared by all ranks holding it.
	newVertex map[int]int

	builder *mesh.Builder
}

// NewRefiner prepares a refinement pass over m. The original vertices are
// registered with the output builder up front; midpoint vertices join them
// during CreateNewVertices.
func NewRefiner(m *mesh.Mesh) *Refiner {
	b := mesh.NewBuilder(m.Tdim(), m.Gdim())
	for v := 0; v < m.NumVertices(); v++ {
		b.AddVertex(m.VertexGlobal(v), m.VertexCoords(v))
	}
	return &Refiner{
		m:       m,
		marked:  make([]bool, m.NumEdges()),
		builder: b,
	}
}

// Mesh returns the input mesh of the pass.
func (r *Refiner) Mesh() *mesh.Mesh { return r.m }

// IsMarked reports whether local edge e is marked.
func (r *Refiner) IsMarked(e int) bool { return r.marked[e] }

// MarkEdge marks local edge e for bisection.
func (r *Refiner) MarkEdge(e int) { r.marked[e] = true }

// MarkAll marks every local edge.
func (r *Refiner) MarkAll() {
	for e := range r.marked {
		r.marked[e] = true
	}
}

// MarkCells marks all edges of every cell flagged in the per-cell marker.
func (r *Refiner) MarkCells(cellMarker []bool) {
	for c, flagged := range cellMarker {
		if !flagged {
			continue
		}
		for _, e := range r.m.CellEdges(c) {
			r.marked[e] = true
		}
	}
}

// MarkByPredicate marks every local edge the predicate selects.
func (r *Refiner) MarkByPredicate(pred func(edge int) bool) {
	for e := range r.marked {
		if pred(e) {
			r.marked[e] = true
		}
	}
}

// MarkedEdgeList returns the cell-local positions of the marked edges of
// cell c.
func (r *Refiner) MarkedEdgeList(c int) []int {
	var list []int
	for k, e := range r.m.CellEdges(c) {
		if r.marked[e] {
			list = append(list, k)
		}
	}
	return list
}

// SyncMarkers makes markers on shared edges consistent across ranks: every
// rank sends the identity (global vertex pair) of its marked shared edges
// to the other holders and adopts what it receives. Marks only ever
// spread, so redundant sends are harmless. Collective.
func (r *Refiner) SyncMarkers() {
	c := r.m.Comm()
	if c.Size() == 1 {
		return
	}
	send := make([][]int, c.Size())
	for e := range r.marked {
		if !r.marked[e] {
			continue
		}
		ranks := r.m.SharedEdgeRanks(e)
		if len(ranks) == 0 {
			continue
		}
		ev := r.m.EdgeVertices(e)
		ga, gb := r.m.VertexGlobal(ev[0]), r.m.VertexGlobal(ev[1])
		for _, rank := range ranks {
			send[rank] = append(send[rank], ga, gb)
		}
	}
	for _, pairs := range comm.AllToAll(c, send) {
		for i := 0; i+1 < len(pairs); i += 2 {
			if e, ok := r.m.LookupEdge(pairs[i], pairs[i+1]); ok {
				r.marked[e] = true
			}
		}
	}
}

// CreateNewVertices assigns one new global vertex to every globally marked
// edge and registers its midpoint coordinates with the output builder. A
// shared edge's vertex is created once, by the lowest rank holding the
// edge, and pushed to the other holders; the index assignment is therefore
// identical everywhere. Collective.
func (r *Refiner) CreateNewVertices() error {
	r.SyncMarkers()
	m := r.m
	c := m.Comm()
	m.AssignGlobalEdgeNumbering()

	// Owned marked edges get consecutive indices after the existing global
	// vertices, rank by rank.
	numOwned := 0
	for e := range r.marked {
		if r.marked[e] && r.ownsEdge(e) {
			numOwned++
		}
	}
	counts := c.AllGatherInt(numOwned)
	next := m.NumGlobalVertices()
	for rank := 0; rank < c.Rank(); rank++ {
		next += counts[rank]
	}

	r.newVertex = make(map[int]int)
	for e := range r.marked {
		if r.marked[e] && r.ownsEdge(e) {
			r.newVertex[m.EdgeGlobal(e)] = next
			next++
		}
	}

	if c.Size() > 1 {
		send := make([][]int, c.Size())
		for e := range r.marked {
			if !r.marked[e] || !r.ownsEdge(e) {
				continue
			}
			for _, rank := range m.SharedEdgeRanks(e) {
				send[rank] = append(send[rank], m.EdgeGlobal(e), r.newVertex[m.EdgeGlobal(e)])
			}
		}
		for _, pairs := range comm.AllToAll(c, send) {
			for i := 0; i+1 < len(pairs); i += 2 {
				r.newVertex[pairs[i]] = pairs[i+1]
			}
		}
	}

	// Midpoint coordinates are computable locally for every marked edge.
	for e := range r.marked {
		if !r.marked[e] {
			continue
		}
		g, ok := r.newVertex[m.EdgeGlobal(e)]
		if !ok {
			return fmt.Errorf("%w: marked edge %d (global %d) has no new vertex",
				ErrInvariant, e, m.EdgeGlobal(e))
		}
		r.builder.AddVertex(g, m.EdgeMidpoint(e))
	}
	return nil
}

// NewVertexMap returns the global-edge to new-vertex assignment of the
// pass. Valid after CreateNewVertices.
func (r *Refiner) NewVertexMap() map[int]int { return r.newVertex }

// NewCell appends a child cell, given by global vertex indices, to the
// output builder.
func (r *Refiner) NewCell(globalVerts []int) { r.builder.AddCell(globalVerts) }

// Builder exposes the output builder accumulating the refined mesh.
func (r *Refiner) Builder() *mesh.Builder { return r.builder }

// BuildLocal finalizes the accumulated cells into a mesh without moving
// any cell between ranks. Collective on multi-rank meshes.
func (r *Refiner) BuildLocal() (*mesh.Mesh, error) {
	nm, err := r.builder.Build(r.m.Comm())
	if err != nil {
		return nil, err
	}
	nm.AssignGlobalCellNumbering()
	return nm, nil
}

// Partition distributes the accumulated cells across ranks and finalizes
// the result. With rebalance false every child stays on its parent's rank;
// with rebalance true ownership is rebalanced by block-partitioning the
// global child cell list, and parent provenance is lost. Collective.
func (r *Refiner) Partition(rebalance bool) (*mesh.Mesh, error) {
	if !rebalance {
		return r.BuildLocal()
	}
	c := r.m.Comm()

	counts := c.AllGatherInt(r.builder.NumCells())
	offset := 0
	for rank := 0; rank < c.Rank(); rank++ {
		offset += counts[rank]
	}
	total := 0
	for _, n := range counts {
		total += n
	}

	layout := distribute.NewBlockLayout(total, c.Size())

	// Pack cells per destination: vertex index tuples in one buffer,
	// vertex coordinates in a parallel buffer. The two are consumed in
	// lockstep on receipt and must never be reordered independently.
	nv := r.m.Tdim() + 1
	gdim := r.m.Gdim()
	sendIdx := make([][]int, c.Size())
	sendCoord := make([][]float64, c.Size())
	for i, cell := range r.builder.Cells() {
		dst := layout.PartitionOf(offset + i)
		sendIdx[dst] = append(sendIdx[dst], cell...)
		for _, g := range cell {
			x, ok := r.builder.VertexCoords(g)
			if !ok {
				return nil, fmt.Errorf("%w: cell references vertex %d with no coordinates",
					ErrInvariant, g)
			}
			sendCoord[dst] = append(sendCoord[dst], x...)
		}
	}

	recvIdx := comm.AllToAll(c, sendIdx)
	recvCoord := comm.AllToAll(c, sendCoord)

	out := mesh.NewBuilder(r.m.Tdim(), gdim)
	for src := range recvIdx {
		idx := recvIdx[src]
		coord := recvCoord[src]
		if len(idx)*gdim != len(coord) {
			return nil, fmt.Errorf("%w: mismatched cell and coordinate buffers from rank %d",
				ErrInvariant, src)
		}
		for i := 0; i+nv <= len(idx); i += nv {
			cell := idx[i : i+nv]
			for j, g := range cell {
				at := (i + j) * gdim
				out.AddVertex(g, coord[at:at+gdim])
			}
			out.AddCell(cell)
		}
	}

	nm, err := out.Build(c)
	if err != nil {
		return nil, err
	}
	nm.AssignGlobalCellNumbering()
	return nm, nil
}

// ownsEdge reports whether this rank is responsible for local edge e: the
// lowest rank holding an edge owns it.
func (r *Refiner) ownsEdge(e int) bool {
	for _, rank := range r.m.SharedEdgeRanks(e) {
		if rank < r.m.Comm().Rank() {
			return false
		}
	}
	return true
}
