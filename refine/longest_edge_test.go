package refine

import (
	"math"
	"testing"

	"github.com/notargets/meshadapt/mesh"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestFaceLongEdgeHypotenuse(t *testing.T) {
	m := refTriangle(t)
	longEdge := FaceLongEdge(m)
	require.Len(t, longEdge, 1)

	hyp, ok := m.LookupEdge(1, 2)
	require.True(t, ok)
	require.Equal(t, hyp, longEdge[0])
}

// TestFaceLongEdgeTieBreak uses an isosceles triangle whose two slanted
// edges have identical length: the winner is the edge whose opposite vertex
// has the larger global index.
func TestFaceLongEdgeTieBreak(t *testing.T) {
	coords := mat.NewDense(3, 2, []float64{
		0, 0,
		1, 0,
		0.5, 1,
	})
	m, err := mesh.New(2, coords, []int{0, 1, 2}, [][]int{{0, 1, 2}}, nil)
	require.NoError(t, err)

	// Candidates are the edges opposite vertices 0 and 1; the tie goes to
	// the edge opposite global vertex 1.
	want, ok := m.LookupEdge(0, 2)
	require.True(t, ok)
	require.Equal(t, want, FaceLongEdge(m)[0])
}

func TestFaceLongEdgeTet(t *testing.T) {
	m := refTet(t)
	longEdge := FaceLongEdge(m)
	require.Len(t, longEdge, 4)

	// Every facet of the reference tetrahedron contains at least one edge of
	// length sqrt(2), so no facet may pick a unit edge.
	for f, e := range longEdge {
		if got := m.EdgeLength(e); math.Abs(got-math.Sqrt2) > 1e-14 {
			t.Errorf("facet %d: longest edge length %v, want sqrt(2)", f, got)
		}
	}
}
