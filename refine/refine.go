package refine

import (
	"fmt"

	"github.com/notargets/meshadapt/mesh"
)

// Relation captures what ties a refined mesh back to its parent: the
// edge-to-new-vertex assignment of the pass. Parent-cell and parent-facet
// arrays live on the refined mesh itself, under the "parent_cell" and
// "parent_facet" named data arrays.
type Relation struct {
	// EdgeToVertex maps global edge indices of the parent mesh to the
	// global index of the vertex created at the edge midpoint.
	EdgeToVertex map[int]int
}

// ParentCellData and ParentFacetData name the provenance arrays attached
// to a refined mesh.
const (
	ParentCellData  = "parent_cell"
	ParentFacetData = "parent_facet"
)

// RefineUniform bisects every edge of the mesh. All edges are marked, so
// no rule enforcement is needed. With rebalance true, ownership of the
// child cells is rebalanced across ranks and provenance is not retained.
func RefineUniform(m *mesh.Mesh, rebalance, parentFacets bool) (*mesh.Mesh, *Relation, error) {
	if err := checkDimension(m); err != nil {
		return nil, nil, err
	}
	longEdge := FaceLongEdge(m)
	r := NewRefiner(m)
	r.MarkAll()
	return doRefine(r, longEdge, rebalance, parentFacets)
}

// Refine bisects the cells flagged in cellMarker, plus whatever additional
// edges the conformity rule forces, so the result is a valid simplicial
// complex. With rebalance true, ownership of the child cells is rebalanced
// across ranks and provenance is not retained.
func Refine(m *mesh.Mesh, cellMarker []bool, rebalance, parentFacets bool) (*mesh.Mesh, *Relation, error) {
	if err := checkDimension(m); err != nil {
		return nil, nil, err
	}
	if len(cellMarker) != m.NumCells() {
		return nil, nil, fmt.Errorf("refine: marker length %d does not match %d cells",
			len(cellMarker), m.NumCells())
	}
	longEdge := FaceLongEdge(m)
	r := NewRefiner(m)
	r.MarkCells(cellMarker)
	EnforceRules(r, longEdge)
	return doRefine(r, longEdge, rebalance, parentFacets)
}

// checkDimension is the purely local precondition of a pass, evaluated
// from replicated input before any communication so no rank can diverge
// inside a collective.
func checkDimension(m *mesh.Mesh) error {
	if m.Tdim() != 2 && m.Tdim() != 3 {
		return fmt.Errorf("refine mesh: %w: got %d", mesh.ErrDimension, m.Tdim())
	}
	return nil
}

// doRefine runs the per-cell phase of a pass: create the new vertices
// collectively, generate the child simplices of every local cell, translate
// them to global vertex indices, and finalize locally or distribute.
func doRefine(r *Refiner, longEdge []int, rebalance, parentFacets bool) (*mesh.Mesh, *Relation, error) {
	m := r.Mesh()
	tdim := m.Tdim()
	numCellEdges := tdim*3 - 3
	numCellVertices := tdim + 1

	if err := r.CreateNewVertices(); err != nil {
		return nil, nil, err
	}
	newVertexMap := r.NewVertexMap()

	var parentCell []int
	// Per-cell slot-to-global translation array, [vertices][edge midpoints]:
	// 3+3 slots in 2D, 4+6 in 3D.
	indices := make([]int, numCellVertices+numCellEdges)

	for c := 0; c < m.NumCells(); c++ {
		for j, v := range m.CellVertices(c) {
			indices[j] = m.VertexGlobal(v)
		}

		markedList := r.MarkedEdgeList(c)
		if len(markedList) == 0 {
			// Untouched cell: re-emit with itself as provenance.
			r.NewCell(indices[:numCellVertices])
			parentCell = append(parentCell, c)
			continue
		}

		markers := make([]bool, numCellEdges)
		for _, p := range markedList {
			markers[p] = true
			edge := m.CellEdges(c)[p]
			nv, ok := newVertexMap[m.EdgeGlobal(edge)]
			if !ok {
				return nil, nil, fmt.Errorf("%w: cell %d edge %d marked but has no new vertex",
					ErrInvariant, c, edge)
			}
			indices[numCellVertices+p] = nv
		}

		// Longest edge of each facet of the cell, in cell-local edge
		// numbering: the four faces in 3D, the cell itself in 2D.
		var longestLocal []int
		if tdim == 3 {
			for _, f := range m.CellFaces(c) {
				le, err := cellLocalEdge(m, c, longEdge[f])
				if err != nil {
					return nil, nil, err
				}
				longestLocal = append(longestLocal, le)
			}
		} else {
			le, err := cellLocalEdge(m, c, longEdge[c])
			if err != nil {
				return nil, nil, err
			}
			longestLocal = []int{le}
		}

		simplices, err := GetSimplices(markers, longestLocal, tdim)
		if err != nil {
			return nil, nil, err
		}

		// Translate slot indices to global vertex indices.
		cell := make([]int, numCellVertices)
		for _, s := range simplices {
			for j, slot := range s {
				if slot < 0 || slot >= len(indices) ||
					(slot >= numCellVertices && !markers[slot-numCellVertices]) {
					return nil, nil, fmt.Errorf("%w: generated simplex references slot %d of cell %d",
						ErrInvariant, slot, c)
				}
				cell[j] = indices[slot]
			}
			r.NewCell(cell)
			parentCell = append(parentCell, c)
		}
	}

	serial := m.Comm().Size() == 1

	var refined *mesh.Mesh
	var err error
	if serial {
		refined, err = r.BuildLocal()
	} else {
		refined, err = r.Partition(rebalance)
	}
	if err != nil {
		return nil, nil, err
	}

	rel := &Relation{EdgeToVertex: newVertexMap}

	// Provenance survives only when ownership does.
	if serial || !rebalance {
		refined.SetData(ParentCellData, tdim, parentCell)
		if parentFacets {
			if err := mapParentFacets(m, refined, newVertexMap); err != nil {
				return nil, nil, err
			}
		}
	}
	return refined, rel, nil
}

// cellLocalEdge translates a mesh edge index to its position within the
// cell's edge list.
func cellLocalEdge(m *mesh.Mesh, c, edge int) (int, error) {
	for k, e := range m.CellEdges(c) {
		if e == edge {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: edge %d is not an edge of cell %d", ErrInvariant, edge, c)
}
