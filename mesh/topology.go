package mesh

// Canonical entity tables for simplices with cell vertices in ascending
// global order. Entity k of a cell (or face) is opposite vertex k, except
// for tetrahedron edges, which follow the fixed six-edge table whose
// reflection e -> 5-e maps an edge to the opposite (non-touching) edge.

// triEdgeVertices lists, for each edge of a triangle, the two triangle
// vertices it joins. Edge k is opposite vertex k.
var triEdgeVertices = [3][2]int{{1, 2}, {0, 2}, {0, 1}}

// tetEdgeVertices lists, for each of the six edges of a tetrahedron, the
// two cell vertices it joins. Edge e and edge 5-e share no vertex, and the
// two facets incident to edge e are numbered by the vertices of edge 5-e.
var tetEdgeVertices = [6][2]int{{2, 3}, {1, 3}, {1, 2}, {0, 3}, {0, 2}, {0, 1}}

// tetFaceVertices lists, for each face of a tetrahedron, the three cell
// vertices it contains. Face k is opposite vertex k.
var tetFaceVertices = [4][3]int{{1, 2, 3}, {0, 2, 3}, {0, 1, 3}, {0, 1, 2}}

// buildTopology derives edges, faces and their incidence from the cell
// vertex lists. Local entity numbering is deterministic given the cell
// order: entities are numbered in order of first appearance.
func (m *Mesh) buildTopology() error {
	m.edgeIndex = make(map[edgeKey]int)
	m.cellEdges = make([][]int, len(m.cells))

	addEdge := func(va, vb int) int {
		ga, gb := m.vertexGlobal[va], m.vertexGlobal[vb]
		if ga > gb {
			va, vb = vb, va
			ga, gb = gb, ga
		}
		key := edgeKey{ga, gb}
		if e, ok := m.edgeIndex[key]; ok {
			return e
		}
		e := len(m.edges)
		m.edges = append(m.edges, [2]int{va, vb})
		m.edgeIndex[key] = e
		return e
	}

	if m.tdim == 2 {
		for c, cv := range m.cells {
			ce := make([]int, 3)
			for k, ev := range triEdgeVertices {
				ce[k] = addEdge(cv[ev[0]], cv[ev[1]])
			}
			m.cellEdges[c] = ce
		}
		return nil
	}

	// 3D: edges, then faces with their edge incidence.
	faceIndex := make(map[[3]int]int)
	m.cellFaces = make([][]int, len(m.cells))

	for c, cv := range m.cells {
		ce := make([]int, 6)
		for k, ev := range tetEdgeVertices {
			ce[k] = addEdge(cv[ev[0]], cv[ev[1]])
		}
		m.cellEdges[c] = ce

		cf := make([]int, 4)
		for k, fv := range tetFaceVertices {
			verts := []int{cv[fv[0]], cv[fv[1]], cv[fv[2]]}
			key := [3]int{
				m.vertexGlobal[verts[0]],
				m.vertexGlobal[verts[1]],
				m.vertexGlobal[verts[2]],
			}
			f, ok := faceIndex[key]
			if !ok {
				f = len(m.faces)
				faceIndex[key] = f
				m.faces = append(m.faces, verts)
				// Face edge k is opposite face vertex k.
				fe := make([]int, 3)
				for j, ev := range triEdgeVertices {
					fe[j] = addEdge(verts[ev[0]], verts[ev[1]])
				}
				m.faceEdges = append(m.faceEdges, fe)
			}
			cf[k] = f
		}
		m.cellFaces[c] = cf
	}
	return nil
}
