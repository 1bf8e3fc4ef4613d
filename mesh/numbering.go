package mesh

import (
	"fmt"
	"sort"

	"github.com/notargets/meshadapt/comm"
)

// CellLocation identifies a cell on its owning rank.
type CellLocation struct {
	Rank  int
	Local int
}

// buildSharedEdges determines which local edges are replicated on other
// ranks. Every rank broadcasts the global vertex pairs of all its edges;
// an edge is shared with each rank that reports the same pair. Collective.
func (m *Mesh) buildSharedEdges() {
	c := m.c
	mine := make([]int, 0, 2*len(m.edges))
	for _, ev := range m.edges {
		mine = append(mine, m.vertexGlobal[ev[0]], m.vertexGlobal[ev[1]])
	}
	send := make([][]int, c.Size())
	for r := range send {
		if r != c.Rank() {
			send[r] = mine
		}
	}
	recv := comm.AllToAll(c, send)
	for r, keys := range recv {
		for i := 0; i+1 < len(keys); i += 2 {
			if e, ok := m.edgeIndex[edgeKey{keys[i], keys[i+1]}]; ok {
				m.sharedEdges[e] = append(m.sharedEdges[e], r)
			}
		}
	}
	for e := range m.sharedEdges {
		sort.Ints(m.sharedEdges[e])
	}
}

// HasGlobalCellNumbering reports whether AssignGlobalCellNumbering ran.
func (m *Mesh) HasGlobalCellNumbering() bool { return m.cellGlobal != nil }

// AssignGlobalCellNumbering gives every cell a globally unique index. Cells
// are uniquely owned, so rank r's cells are numbered consecutively after
// all cells of lower ranks. Collective.
func (m *Mesh) AssignGlobalCellNumbering() {
	counts := m.c.AllGatherInt(len(m.cells))
	offset := 0
	for r := 0; r < m.c.Rank(); r++ {
		offset += counts[r]
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	m.cellGlobal = make([]int, len(m.cells))
	m.globalToLocalCell = make(map[int]int, len(m.cells))
	for i := range m.cells {
		m.cellGlobal[i] = offset + i
		m.globalToLocalCell[offset+i] = i
	}
	m.numGlobalCells = total
}

// CellGlobal returns the global index of local cell c.
func (m *Mesh) CellGlobal(c int) int { return m.cellGlobal[c] }

// NumGlobalCells returns the number of cells across all ranks.
func (m *Mesh) NumGlobalCells() int { return m.numGlobalCells }

// GlobalToLocalCell maps a global cell index to its local index, if this
// rank owns the cell.
func (m *Mesh) GlobalToLocalCell(g int) (int, bool) {
	l, ok := m.globalToLocalCell[g]
	return l, ok
}

// HasGlobalEdgeNumbering reports whether AssignGlobalEdgeNumbering ran.
func (m *Mesh) HasGlobalEdgeNumbering() bool { return m.edgeGlobal != nil }

// NumGlobalEdges returns the number of distinct edges across all ranks.
// Valid after AssignGlobalEdgeNumbering.
func (m *Mesh) NumGlobalEdges() int { return m.numGlobalEdges }

// EdgeGlobal returns the global index of local edge e.
func (m *Mesh) EdgeGlobal(e int) int { return m.edgeGlobal[e] }

// GlobalToLocalEdge maps a global edge index to its local index, if this
// rank holds the edge.
func (m *Mesh) GlobalToLocalEdge(g int) (int, bool) {
	l, ok := m.globalToLocalEdge[g]
	return l, ok
}

// AssignGlobalEdgeNumbering gives every edge a globally unique index. A
// shared edge is owned by the lowest rank holding it; owners number their
// edges consecutively by rank, then push assignments for shared edges to
// the other holders. Idempotent; collective.
func (m *Mesh) AssignGlobalEdgeNumbering() {
	if m.edgeGlobal != nil {
		return
	}
	c := m.c
	owned := make([]bool, len(m.edges))
	numOwned := 0
	for e := range m.edges {
		owned[e] = true
		for _, r := range m.sharedEdges[e] {
			if r < c.Rank() {
				owned[e] = false
				break
			}
		}
		if owned[e] {
			numOwned++
		}
	}

	counts := c.AllGatherInt(numOwned)
	offset := 0
	for r := 0; r < c.Rank(); r++ {
		offset += counts[r]
	}
	total := 0
	for _, n := range counts {
		total += n
	}

	m.edgeGlobal = make([]int, len(m.edges))
	for e := range m.edgeGlobal {
		m.edgeGlobal[e] = -1
	}
	next := offset
	for e := range m.edges {
		if owned[e] {
			m.edgeGlobal[e] = next
			next++
		}
	}

	if c.Size() > 1 {
		// Send (gv0, gv1, globalEdge) for owned shared edges to the other
		// holders; adopt assignments received from owners.
		send := make([][]int, c.Size())
		for e, ranks := range m.sharedEdges {
			if !owned[e] {
				continue
			}
			ev := m.edges[e]
			for _, r := range ranks {
				send[r] = append(send[r],
					m.vertexGlobal[ev[0]], m.vertexGlobal[ev[1]], m.edgeGlobal[e])
			}
		}
		recv := comm.AllToAll(c, send)
		for _, triples := range recv {
			for i := 0; i+2 < len(triples); i += 3 {
				if e, ok := m.edgeIndex[edgeKey{triples[i], triples[i+1]}]; ok {
					m.edgeGlobal[e] = triples[i+2]
				}
			}
		}
	}

	m.globalToLocalEdge = make(map[int]int, len(m.edges))
	for e, g := range m.edgeGlobal {
		m.globalToLocalEdge[g] = e
	}
	m.numGlobalEdges = total
}

// LocateOffProcessCells resolves ownership of the given global cell
// indices. The result maps each global index to the (rank, local index)
// destinations that own it. Requires a global cell numbering. Collective:
// every rank must call with its own (possibly empty) query list.
func (m *Mesh) LocateOffProcessCells(globals []int) (map[int][]CellLocation, error) {
	if !m.HasGlobalCellNumbering() {
		return nil, fmt.Errorf("locate off-process cells: %w", ErrNoGlobalNumbering)
	}
	c := m.c

	// Round 1: broadcast the query list to every rank.
	send := make([][]int, c.Size())
	for r := range send {
		send[r] = globals
	}
	queries := comm.AllToAll(c, send)

	// Round 2: answer the queries this rank can resolve.
	reply := make([][]int, c.Size())
	for r, q := range queries {
		for _, g := range q {
			if l, ok := m.globalToLocalCell[g]; ok {
				reply[r] = append(reply[r], g, l)
			}
		}
	}
	answers := comm.AllToAll(c, reply)

	located := make(map[int][]CellLocation)
	for r, a := range answers {
		for i := 0; i+1 < len(a); i += 2 {
			located[a[i]] = append(located[a[i]], CellLocation{Rank: r, Local: a[i+1]})
		}
	}
	return located, nil
}
