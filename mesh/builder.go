package mesh

import (
	"fmt"
	"sort"

	"github.com/notargets/meshadapt/comm"
	"gonum.org/v1/gonum/mat"
)

// Builder accumulates vertices and cells in global numbering and finalizes
// them into a Mesh. Refinement writes its output here, so callers never
// observe a partially built mesh: Build publishes the result only once the
// whole pass has completed.
type Builder struct {
	tdim   int
	gdim   int
	coords map[int][]float64 // global vertex -> coordinates
	cells  [][]int           // global vertex index tuples
}

// NewBuilder creates an empty builder for cells of topological dimension
// tdim embedded in gdim coordinates.
func NewBuilder(tdim, gdim int) *Builder {
	return &Builder{
		tdim:   tdim,
		gdim:   gdim,
		coords: make(map[int][]float64),
	}
}

// AddVertex records the coordinates of a global vertex. Re-adding the same
// vertex is harmless; coordinates of a shared vertex are identical on every
// rank by construction.
func (b *Builder) AddVertex(global int, x []float64) {
	c := make([]float64, len(x))
	copy(c, x)
	b.coords[global] = c
}

// AddCell appends a cell given by its global vertex indices.
func (b *Builder) AddCell(verts []int) {
	cv := make([]int, len(verts))
	copy(cv, verts)
	b.cells = append(b.cells, cv)
}

// NumCells returns the number of cells accumulated so far.
func (b *Builder) NumCells() int { return len(b.cells) }

// Cells returns the accumulated cells in global vertex numbering. The
// slices alias builder storage.
func (b *Builder) Cells() [][]int { return b.cells }

// VertexCoords returns the recorded coordinates of a global vertex.
func (b *Builder) VertexCoords(global int) ([]float64, bool) {
	x, ok := b.coords[global]
	return x, ok
}

// Build finalizes the accumulated cells into a Mesh on communicator c.
// Vertices referenced by cells must all have been added; a missing vertex
// is an upstream defect, not a recoverable condition.
func (b *Builder) Build(c comm.Communicator) (*Mesh, error) {
	// Local vertex order: ascending global index over referenced vertices.
	seen := make(map[int]bool)
	var globals []int
	for _, cell := range b.cells {
		for _, g := range cell {
			if !seen[g] {
				seen[g] = true
				globals = append(globals, g)
			}
		}
	}
	sort.Ints(globals)

	localOf := make(map[int]int, len(globals))
	var coords *mat.Dense
	if len(globals) > 0 {
		coords = mat.NewDense(len(globals), b.gdim, nil)
	}
	for i, g := range globals {
		localOf[g] = i
		x, ok := b.coords[g]
		if !ok {
			return nil, fmt.Errorf("build mesh: no coordinates for global vertex %d", g)
		}
		coords.SetRow(i, x)
	}

	cells := make([][]int, len(b.cells))
	for i, cell := range b.cells {
		cv := make([]int, len(cell))
		for j, g := range cell {
			cv[j] = localOf[g]
		}
		cells[i] = cv
	}

	return New(b.tdim, coords, globals, cells, c)
}
