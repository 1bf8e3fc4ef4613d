package mesh

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// EdgeLength returns the Euclidean length of edge e. The computation uses
// only the two endpoint coordinates, so shared edges evaluate identically
// on every rank that holds them.
func (m *Mesh) EdgeLength(e int) float64 {
	ev := m.edges[e]
	return floats.Distance(m.coords.RawRowView(ev[0]), m.coords.RawRowView(ev[1]), 2)
}

// CellMeasure returns the area (2D) or volume (3D) of cell c.
func (m *Mesh) CellMeasure(c int) float64 {
	cv := m.cells[c]
	p0 := m.coords.RawRowView(cv[0])
	if m.tdim == 2 {
		p1 := m.coords.RawRowView(cv[1])
		p2 := m.coords.RawRowView(cv[2])
		det := (p1[0]-p0[0])*(p2[1]-p0[1]) - (p2[0]-p0[0])*(p1[1]-p0[1])
		return math.Abs(det) / 2
	}
	var u, v, w [3]float64
	p1 := m.coords.RawRowView(cv[1])
	p2 := m.coords.RawRowView(cv[2])
	p3 := m.coords.RawRowView(cv[3])
	for i := 0; i < 3; i++ {
		u[i] = p1[i] - p0[i]
		v[i] = p2[i] - p0[i]
		w[i] = p3[i] - p0[i]
	}
	det := u[0]*(v[1]*w[2]-v[2]*w[1]) - u[1]*(v[0]*w[2]-v[2]*w[0]) + u[2]*(v[0]*w[1]-v[1]*w[0])
	return math.Abs(det) / 6
}

// EdgeMidpoint returns the midpoint coordinates of edge e.
func (m *Mesh) EdgeMidpoint(e int) []float64 {
	ev := m.edges[e]
	a := m.coords.RawRowView(ev[0])
	b := m.coords.RawRowView(ev[1])
	mid := make([]float64, m.gdim)
	floats.AddTo(mid, a, b)
	floats.Scale(0.5, mid)
	return mid
}
