// Package refine implements rule-based longest-edge bisection of triangle
// and tetrahedral meshes (Plaza's algorithm generalized to 2D/3D), together
// with the distributed marker propagation and cell distribution that keep a
// refinement pass consistent across ranks.
//
// A pass runs in explicit synchronous rounds over a comm.Communicator:
// marker synchronization and the rule-enforcement fixed point, collective
// new-vertex creation, per-cell simplex generation, and either local
// finalization or partitioned distribution of the child cells. Parent-cell
// and parent-facet provenance is recorded on the refined mesh whenever
// ownership survives the pass.
package refine

import "errors"

// Sentinel errors for refinement.
var (
	// ErrInvariant indicates an internal consistency violation, such as a
	// marked edge without a new-vertex assignment or a generated simplex
	// referencing an out-of-range slot. These signal an upstream
	// algorithmic defect and are never retried.
	ErrInvariant = errors.New("refine: internal invariant violated")
)

// Refinement stencil slots. A cell being refined is described by a fixed
// set of slots: its original vertices followed by the potential midpoints
// of its edges. The generated child simplices are tuples of slot indices,
// mapped afterwards to global vertex indices.
//
// The numeric values are load-bearing: slot arithmetic (edge e occupies
// slot triVertexSlots+e in 2D and tetVertexSlots+e in 3D, and the
// reflection e -> tetOppositeEdge(e) pairs non-touching tetrahedron edges)
// is relied on by the connectivity construction.
const (
	// Triangle slots: vertices 0..2, edge midpoints 3..5 with midpoint of
	// edge e at slot triVertexSlots+e.
	triVertexSlots = 3
	triSlots       = 6

	// Tetrahedron slots: vertices 0..3, edge midpoints 4..9 with midpoint
	// of edge e at slot tetVertexSlots+e.
	tetVertexSlots = 4
	tetSlots       = 10

	triEdges = 3
	tetEdges = 6
)

// triMidpointSlot returns the stencil slot of the midpoint of triangle
// edge e.
func triMidpointSlot(e int) int { return triVertexSlots + e }

// tetMidpointSlot returns the stencil slot of the midpoint of tetrahedron
// edge e.
func tetMidpointSlot(e int) int { return tetVertexSlots + e }

// tetOppositeEdge returns the edge sharing no vertex with edge e. The two
// facets incident to edge e are numbered by the vertices of this opposite
// edge.
func tetOppositeEdge(e int) int { return 5 - e }

// tetEdgeVertices mirrors the mesh package's canonical tetrahedron edge
// table in slot numbering: edge e joins vertex slots tetEdgeVertices[e].
var tetEdgeVertices = [6][2]int{{2, 3}, {1, 3}, {1, 2}, {0, 3}, {0, 2}, {0, 1}}
