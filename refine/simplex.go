package refine

import "fmt"

// GetSimplices enumerates the child simplices of one cell from its edge
// marking pattern and the longest edge of each of its facets, in stencil
// slot numbering. For triangles longestEdge holds a single entry (the
// cell's own longest edge); for tetrahedra it holds one entry per facet,
// facet k opposite vertex k.
func GetSimplices(marked []bool, longestEdge []int, tdim int) ([][]int, error) {
	switch tdim {
	case 2:
		if len(longestEdge) != 1 {
			return nil, fmt.Errorf("%w: want 1 longest-edge entry for a triangle, got %d",
				ErrInvariant, len(longestEdge))
		}
		return GetTriangles(marked, longestEdge[0])
	case 3:
		if len(longestEdge) != 4 {
			return nil, fmt.Errorf("%w: want 4 longest-edge entries for a tetrahedron, got %d",
				ErrInvariant, len(longestEdge))
		}
		return GetTetrahedra(marked, longestEdge)
	}
	return nil, fmt.Errorf("get simplices: topological dimension %d not supported", tdim)
}

// GetTriangles bisects a triangle according to its marked edges. The
// longest edge must be marked: it is always bisected, and each of the two
// halves is split again if the edge bounding it is also marked, giving 2,
// 3 or 4 child triangles.
func GetTriangles(marked []bool, longestEdge int) ([][]int, error) {
	if len(marked) != triEdges {
		return nil, fmt.Errorf("%w: want %d edge markers, got %d", ErrInvariant, triEdges, len(marked))
	}
	if longestEdge < 0 || longestEdge >= triEdges {
		return nil, fmt.Errorf("%w: longest edge %d out of range", ErrInvariant, longestEdge)
	}
	if !marked[longestEdge] {
		return nil, fmt.Errorf("%w: longest edge %d is not marked", ErrInvariant, longestEdge)
	}

	// v2 is opposite the longest edge e2; v0 and v1 are its endpoints.
	v0 := (longestEdge + 1) % 3
	v1 := (longestEdge + 2) % 3
	v2 := longestEdge
	e0 := triMidpointSlot(v0)
	e1 := triMidpointSlot(v1)
	e2 := triMidpointSlot(v2)

	// Each half of the triangle becomes one or two children.
	var tris [][]int
	if marked[v0] {
		tris = append(tris, []int{e2, v2, e0}, []int{e2, e0, v1})
	} else {
		tris = append(tris, []int{e2, v2, v1})
	}
	if marked[v1] {
		tris = append(tris, []int{e2, v2, e1}, []int{e2, e1, v0})
	} else {
		tris = append(tris, []int{e2, v2, v0})
	}
	return tris, nil
}

// GetTetrahedra subdivides a tetrahedron according to its marked edges and
// the longest edge of each facet (facet k opposite vertex k, entries in
// cell-local edge numbering). It builds the 10x10 slot connectivity matrix
// and emits every 4-clique as a child tetrahedron. Slot tuples are emitted
// in strictly increasing order, so no tetrahedron can repeat.
func GetTetrahedra(marked []bool, longestEdge []int) ([][]int, error) {
	if len(marked) != tetEdges {
		return nil, fmt.Errorf("%w: want %d edge markers, got %d", ErrInvariant, tetEdges, len(marked))
	}
	for f, le := range longestEdge {
		if le < 0 || le >= tetEdges {
			return nil, fmt.Errorf("%w: facet %d longest edge %d out of range", ErrInvariant, f, le)
		}
	}

	// Slot connectivity: conn[i][j] means slots i and j form a valid child
	// edge. Only the upper triangle is read, but both entries are set
	// where that is simpler.
	var conn [tetSlots][tetSlots]bool

	for e := 0; e < tetEdges; e++ {
		v0 := tetEdgeVertices[e][0]
		v1 := tetEdgeVertices[e][1]

		if !marked[e] {
			// Unsplit edge: connect its end vertices directly.
			conn[v1][v0] = true
			conn[v0][v1] = true
			continue
		}

		// Split edge: midpoint connects to both endpoints.
		mid := tetMidpointSlot(e)
		conn[v1][mid] = true
		conn[v0][mid] = true

		// The two facets incident to edge e are numbered by the vertices
		// of the opposite edge.
		opp := tetOppositeEdge(e)
		for j := 0; j < 2; j++ {
			fj := tetEdgeVertices[opp][j]
			if longestEdge[fj] == e {
				// e is facet fj's longest edge: connect the midpoint to
				// the facet's opposite vertex.
				fk := tetEdgeVertices[opp][1-j]
				conn[fk][mid] = true

				// If e is also the longest edge of the adjacent facet
				// across it, and that facet's own longest edge (the
				// opposite edge) is marked, cut through the interior by
				// joining the two midpoints.
				if longestEdge[fk] == e && marked[opp] {
					conn[mid][tetMidpointSlot(opp)] = true
					conn[tetMidpointSlot(opp)][mid] = true
				}
			} else {
				// e is marked but not facet fj's longest edge: connect
				// back to that facet's longest-edge midpoint.
				conn[tetMidpointSlot(longestEdge[fj])][mid] = true
				conn[mid][tetMidpointSlot(longestEdge[fj])] = true
			}
		}
	}

	// Enumerate 4-cliques (i<j<k<l) in the slot connectivity graph. The
	// increasing order makes every child unique.
	var tets [][]int
	var third []int
	for i := 0; i < tetSlots; i++ {
		for j := i + 1; j < tetSlots; j++ {
			if !conn[i][j] {
				continue
			}
			third = third[:0]
			for k := j + 1; k < tetSlots; k++ {
				if conn[i][k] && conn[j][k] {
					third = append(third, k)
				}
			}
			for p := 0; p < len(third); p++ {
				for q := p + 1; q < len(third); q++ {
					if conn[third[p]][third[q]] {
						tets = append(tets, []int{i, j, third[p], third[q]})
					}
				}
			}
		}
	}
	return tets, nil
}
