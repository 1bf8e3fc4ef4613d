// Package mesh provides the simplicial mesh data model used by the
// refinement and redistribution algorithms: triangle and tetrahedral cells
// with bidirectional adjacency between vertices, edges, faces and cells,
// per-entity global numbering, shared-entity information for distributed
// meshes, and a named-array store for auxiliary data such as parent-cell
// provenance.
//
// A distributed mesh is one local portion per rank. Cells are uniquely
// owned; vertices and edges on rank boundaries are replicated, and are
// identified across ranks by their global vertex indices. All collective
// operations (construction of shared-entity info, global numbering
// assignment, off-process lookups) go through the comm.Communicator carried
// by the mesh.
package mesh

import (
	"errors"
	"fmt"
	"sort"

	"github.com/notargets/meshadapt/comm"
	"gonum.org/v1/gonum/mat"
)

// Sentinel errors for mesh operations.
var (
	// ErrDimension indicates a topological dimension other than 2 or 3.
	ErrDimension = errors.New("mesh: topological dimension must be 2 or 3")

	// ErrNoGlobalNumbering indicates an operation needed a global entity
	// numbering that has not been assigned.
	ErrNoGlobalNumbering = errors.New("mesh: global numbering not assigned")
)

// NoParent is the sentinel stored in provenance arrays for entities that
// have no parent, such as facets created purely by interior cuts.
const NoParent = -1

// edgeKey identifies an edge by its two global vertex indices, smaller
// first. It is the cross-rank identity of an edge.
type edgeKey struct {
	A, B int
}

type dataKey struct {
	name string
	dim  int
}

// Mesh is one rank's portion of a simplicial mesh.
type Mesh struct {
	tdim int
	gdim int

	coords       *mat.Dense // numVertices x gdim
	vertexGlobal []int      // local vertex -> global vertex
	cells        [][]int    // cell -> local vertices, ascending global order

	c comm.Communicator

	// Derived topology. Edge and face local orderings follow the
	// opposite-entity convention: within a cell (or face), entity k is
	// opposite vertex k.
	edges     [][2]int // edge -> local vertices, smaller global first
	edgeIndex map[edgeKey]int
	cellEdges [][]int
	faces     [][]int // 3D only: face -> 3 local vertices, ascending global
	cellFaces [][]int // 3D only: face k opposite cell vertex k
	faceEdges [][]int // 3D only: edge k opposite face vertex k

	numGlobalVertices int

	cellGlobal        []int
	globalToLocalCell map[int]int
	numGlobalCells    int

	edgeGlobal        []int
	globalToLocalEdge map[int]int
	numGlobalEdges    int

	// sharedEdges maps a local edge index to the other ranks that also
	// hold a copy of it. Empty on serial meshes.
	sharedEdges map[int][]int

	data map[dataKey][]int
}

// New constructs a mesh from vertex coordinates, the local-to-global vertex
// map, and cells given as local vertex index tuples. Construction is
// collective: on a multi-rank communicator every rank must call New for its
// own portion, with globally consistent vertex numbering.
func New(tdim int, coords *mat.Dense, vertexGlobal []int, cells [][]int, c comm.Communicator) (*Mesh, error) {
	if tdim != 2 && tdim != 3 {
		return nil, fmt.Errorf("%w: got %d", ErrDimension, tdim)
	}
	if c == nil {
		c = comm.NewSerial()
	}
	// A rank may end up with no cells after redistribution; coords may be
	// nil in that case.
	var nv, gdim int
	if coords != nil {
		nv, gdim = coords.Dims()
	}
	if len(vertexGlobal) != nv {
		return nil, fmt.Errorf("vertexGlobal length %d does not match %d vertices", len(vertexGlobal), nv)
	}

	m := &Mesh{
		tdim:         tdim,
		gdim:         gdim,
		coords:       coords,
		vertexGlobal: vertexGlobal,
		cells:        make([][]int, len(cells)),
		c:            c,
		sharedEdges:  make(map[int][]int),
		data:         make(map[dataKey][]int),
	}

	for i, cell := range cells {
		if len(cell) != tdim+1 {
			return nil, fmt.Errorf("cell %d has %d vertices, want %d", i, len(cell), tdim+1)
		}
		cv := make([]int, len(cell))
		copy(cv, cell)
		for _, v := range cv {
			if v < 0 || v >= nv {
				return nil, fmt.Errorf("cell %d references vertex %d out of range [0,%d)", i, v, nv)
			}
		}
		// Order cell vertices by ascending global index so local entity
		// numbering conventions agree on every rank that sees the cell's
		// boundary entities.
		sort.Slice(cv, func(a, b int) bool {
			return vertexGlobal[cv[a]] < vertexGlobal[cv[b]]
		})
		m.cells[i] = cv
	}

	if err := m.buildTopology(); err != nil {
		return nil, err
	}

	// Global vertex count. Indices are dense, so the count is one past the
	// largest index held by any rank.
	maxGlobal := -1
	for _, g := range vertexGlobal {
		if g > maxGlobal {
			maxGlobal = g
		}
	}
	if c.Size() == 1 {
		m.numGlobalVertices = maxGlobal + 1
	} else {
		// A rank holding no cells has no coordinates and reports gdim 0;
		// adopt the group-wide geometric dimension so every rank packs and
		// unpacks coordinate buffers with the same stride.
		for _, g := range c.AllGatherInt(m.gdim) {
			if g > m.gdim {
				m.gdim = g
			}
		}
		for _, g := range c.AllGatherInt(maxGlobal) {
			if g+1 > m.numGlobalVertices {
				m.numGlobalVertices = g + 1
			}
		}
		m.buildSharedEdges()
	}

	return m, nil
}

// Tdim returns the topological dimension (2 or 3).
func (m *Mesh) Tdim() int { return m.tdim }

// Gdim returns the geometric dimension.
func (m *Mesh) Gdim() int { return m.gdim }

// Comm returns the process-group handle.
func (m *Mesh) Comm() comm.Communicator { return m.c }

// NumVertices returns the number of local vertices.
func (m *Mesh) NumVertices() int { return len(m.vertexGlobal) }

// NumCells returns the number of local cells.
func (m *Mesh) NumCells() int { return len(m.cells) }

// NumEdges returns the number of local edges.
func (m *Mesh) NumEdges() int { return len(m.edges) }

// NumGlobalVertices returns the number of vertices across all ranks.
func (m *Mesh) NumGlobalVertices() int { return m.numGlobalVertices }

// VertexGlobal returns the global index of local vertex v.
func (m *Mesh) VertexGlobal(v int) int { return m.vertexGlobal[v] }

// VertexCoords returns the coordinates of local vertex v. The slice aliases
// mesh storage and must not be modified.
func (m *Mesh) VertexCoords(v int) []float64 { return m.coords.RawRowView(v) }

// CellVertices returns the local vertex indices of cell c in ascending
// global order. The slice aliases mesh storage.
func (m *Mesh) CellVertices(c int) []int { return m.cells[c] }

// CellEdges returns the local edge indices of cell c: in 2D edge k is
// opposite cell vertex k; in 3D edge k joins the cell vertices given by the
// canonical tetrahedron edge table. The slice aliases mesh storage.
func (m *Mesh) CellEdges(c int) []int { return m.cellEdges[c] }

// EdgeVertices returns the two local vertices of edge e, smaller global
// index first.
func (m *Mesh) EdgeVertices(e int) [2]int { return m.edges[e] }

// LookupEdge returns the local index of the edge joining the two global
// vertex indices, if present on this rank.
func (m *Mesh) LookupEdge(gv0, gv1 int) (int, bool) {
	if gv0 > gv1 {
		gv0, gv1 = gv1, gv0
	}
	e, ok := m.edgeIndex[edgeKey{gv0, gv1}]
	return e, ok
}

// NumFaces returns the number of faces (2-dimensional entities): the faces
// of the tetrahedra in 3D, the cells themselves in 2D.
func (m *Mesh) NumFaces() int {
	if m.tdim == 2 {
		return len(m.cells)
	}
	return len(m.faces)
}

// FaceEdges returns the local edge indices of face f, with edge k opposite
// face vertex k. The slice aliases mesh storage.
func (m *Mesh) FaceEdges(f int) []int {
	if m.tdim == 2 {
		return m.cellEdges[f]
	}
	return m.faceEdges[f]
}

// FaceVertex returns the local vertex at position k of face f; it is the
// vertex opposite face edge k.
func (m *Mesh) FaceVertex(f, k int) int {
	if m.tdim == 2 {
		return m.cells[f][k]
	}
	return m.faces[f][k]
}

// CellFaces returns the local face indices of 3D cell c, face k opposite
// cell vertex k. The slice aliases mesh storage.
func (m *Mesh) CellFaces(c int) []int { return m.cellFaces[c] }

// NumFacets returns the number of facets (entities of dimension tdim-1).
func (m *Mesh) NumFacets() int {
	if m.tdim == 2 {
		return len(m.edges)
	}
	return len(m.faces)
}

// CellFacets returns the local facet indices of cell c, facet k opposite
// cell vertex k. The slice aliases mesh storage.
func (m *Mesh) CellFacets(c int) []int {
	if m.tdim == 2 {
		return m.cellEdges[c]
	}
	return m.cellFaces[c]
}

// FacetVertices returns the local vertex indices of facet f.
func (m *Mesh) FacetVertices(f int) []int {
	if m.tdim == 2 {
		e := m.edges[f]
		return []int{e[0], e[1]}
	}
	return m.faces[f]
}

// FacetEdges returns the local edges making up facet f: the facet itself in
// 2D, the three face edges in 3D.
func (m *Mesh) FacetEdges(f int) []int {
	if m.tdim == 2 {
		return []int{f}
	}
	return m.faceEdges[f]
}

// SharedEdgeRanks returns the other ranks holding a copy of local edge e,
// or nil if the edge is not shared.
func (m *Mesh) SharedEdgeRanks(e int) []int { return m.sharedEdges[e] }

// SetData attaches a named per-entity integer array for entities of the
// given dimension, replacing any previous array of the same name.
func (m *Mesh) SetData(name string, dim int, values []int) {
	m.data[dataKey{name, dim}] = values
}

// Data returns the named per-entity array for the given dimension.
func (m *Mesh) Data(name string, dim int) ([]int, bool) {
	v, ok := m.data[dataKey{name, dim}]
	return v, ok
}
