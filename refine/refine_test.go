package refine

import (
	"fmt"
	"math"
	"testing"

	"github.com/notargets/meshadapt/comm"
	"github.com/notargets/meshadapt/mesh"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// refTriangle builds the reference triangle (0,0),(1,0),(0,1) with global
// vertex indices 0,1,2. Its longest edge is the hypotenuse between globals
// 1 and 2.
func refTriangle(t *testing.T) *mesh.Mesh {
	t.Helper()
	coords := mat.NewDense(3, 2, []float64{
		0, 0,
		1, 0,
		0, 1,
	})
	m, err := mesh.New(2, coords, []int{0, 1, 2}, [][]int{{0, 1, 2}}, nil)
	require.NoError(t, err)
	return m
}

// refTet builds the reference tetrahedron with global vertex indices 0..3.
func refTet(t *testing.T) *mesh.Mesh {
	t.Helper()
	coords := mat.NewDense(4, 3, []float64{
		0, 0, 0,
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	})
	m, err := mesh.New(3, coords, []int{0, 1, 2, 3}, [][]int{{0, 1, 2, 3}}, nil)
	require.NoError(t, err)
	return m
}

// refSquare builds the unit square as two triangles sharing the diagonal
// between global vertices 1 and 2.
func refSquare(t *testing.T) *mesh.Mesh {
	t.Helper()
	coords := mat.NewDense(4, 2, []float64{
		0, 0,
		1, 0,
		0, 1,
		1, 1,
	})
	m, err := mesh.New(2, coords, []int{0, 1, 2, 3}, [][]int{{0, 1, 2}, {1, 3, 2}}, nil)
	require.NoError(t, err)
	return m
}

// splitSquare builds one rank's half of the unit square: rank 0 holds
// triangle {0,1,2}, rank 1 holds {1,2,3}, sharing the diagonal edge between
// global vertices 1 and 2.
func splitSquare(c comm.Communicator) (*mesh.Mesh, error) {
	if c.Rank() == 0 {
		coords := mat.NewDense(3, 2, []float64{
			0, 0,
			1, 0,
			0, 1,
		})
		return mesh.New(2, coords, []int{0, 1, 2}, [][]int{{0, 1, 2}}, c)
	}
	coords := mat.NewDense(3, 2, []float64{
		1, 0,
		0, 1,
		1, 1,
	})
	return mesh.New(2, coords, []int{1, 2, 3}, [][]int{{0, 2, 1}}, c)
}

func totalMeasure(m *mesh.Mesh) float64 {
	sum := 0.0
	for c := 0; c < m.NumCells(); c++ {
		sum += m.CellMeasure(c)
	}
	return sum
}

func TestRefineHypotenuseOnly(t *testing.T) {
	m := refTriangle(t)
	hyp, ok := m.LookupEdge(1, 2)
	require.True(t, ok)

	r := NewRefiner(m)
	r.MarkEdge(hyp)
	refined, rel, err := doRefine(r, FaceLongEdge(m), false, false)
	require.NoError(t, err)

	if refined.NumCells() != 2 || refined.NumVertices() != 4 {
		t.Fatalf("cells=%d vertices=%d, want 2 and 4", refined.NumCells(), refined.NumVertices())
	}
	require.Len(t, rel.EdgeToVertex, 1)

	// The new vertex is global 3, at the hypotenuse midpoint.
	nv, ok := rel.EdgeToVertex[m.EdgeGlobal(hyp)]
	require.True(t, ok)
	require.Equal(t, 3, nv)
	mid := refined.VertexCoords(3)
	if mid[0] != 0.5 || mid[1] != 0.5 {
		t.Errorf("midpoint = %v, want (0.5, 0.5)", mid)
	}

	if got := totalMeasure(refined); got != 0.5 {
		t.Errorf("total area = %v, want 0.5", got)
	}
}

func TestMarkByPredicate(t *testing.T) {
	m := refTriangle(t)

	// Selecting edges longer than 1.2 picks exactly the hypotenuse.
	r := NewRefiner(m)
	r.MarkByPredicate(func(e int) bool { return m.EdgeLength(e) > 1.2 })

	hyp, ok := m.LookupEdge(1, 2)
	require.True(t, ok)
	for e := 0; e < m.NumEdges(); e++ {
		require.Equal(t, e == hyp, r.IsMarked(e), "edge %d", e)
	}

	refined, _, err := doRefine(r, FaceLongEdge(m), false, false)
	require.NoError(t, err)
	require.Equal(t, 2, refined.NumCells())
}

func TestRefineUniformTriangle(t *testing.T) {
	m := refTriangle(t)

	once, _, err := RefineUniform(m, false, false)
	require.NoError(t, err)
	if once.NumCells() != 4 || once.NumVertices() != 6 {
		t.Fatalf("pass 1: cells=%d vertices=%d, want 4 and 6", once.NumCells(), once.NumVertices())
	}
	require.Equal(t, 0.5, totalMeasure(once))

	twice, _, err := RefineUniform(once, false, false)
	require.NoError(t, err)
	if twice.NumCells() != 16 || twice.NumVertices() != 15 {
		t.Fatalf("pass 2: cells=%d vertices=%d, want 16 and 15", twice.NumCells(), twice.NumVertices())
	}
	if got := totalMeasure(twice); math.Abs(got-0.5) > 1e-15 {
		t.Errorf("total area after two passes = %v, want 0.5", got)
	}
}

func TestRefineUniformTet(t *testing.T) {
	m := refTet(t)
	refined, rel, err := RefineUniform(m, false, false)
	require.NoError(t, err)

	if refined.NumCells() != 8 || refined.NumVertices() != 10 {
		t.Fatalf("cells=%d vertices=%d, want 8 and 10", refined.NumCells(), refined.NumVertices())
	}
	require.Len(t, rel.EdgeToVertex, 6)
	if got := totalMeasure(refined); math.Abs(got-1.0/6.0) > 1e-14 {
		t.Errorf("total volume = %v, want 1/6", got)
	}
}

func TestRefineNoMarks(t *testing.T) {
	m := refSquare(t)
	refined, rel, err := Refine(m, []bool{false, false}, false, false)
	require.NoError(t, err)

	if refined.NumCells() != 2 || refined.NumVertices() != 4 {
		t.Fatalf("cells=%d vertices=%d, want 2 and 4", refined.NumCells(), refined.NumVertices())
	}
	require.Empty(t, rel.EdgeToVertex)

	parent, ok := refined.Data(ParentCellData, 2)
	require.True(t, ok)
	require.Equal(t, []int{0, 1}, parent)
}

func TestRefineMarkerLength(t *testing.T) {
	m := refSquare(t)
	if _, _, err := Refine(m, []bool{true}, false, false); err == nil {
		t.Error("expected error for short cell marker")
	}
}

func TestRefineCellProvenance(t *testing.T) {
	m := refSquare(t)

	// Marking cell 0 marks its three edges; the rule then forces the shared
	// diagonal on cell 1, which is its own longest edge, so cell 1 is
	// bisected once.
	refined, rel, err := Refine(m, []bool{true, false}, false, false)
	require.NoError(t, err)

	if refined.NumCells() != 6 || refined.NumVertices() != 7 {
		t.Fatalf("cells=%d vertices=%d, want 6 and 7", refined.NumCells(), refined.NumVertices())
	}
	require.Len(t, rel.EdgeToVertex, 3)
	if got := totalMeasure(refined); got != 1.0 {
		t.Errorf("total area = %v, want 1", got)
	}

	parent, ok := refined.Data(ParentCellData, 2)
	require.True(t, ok)
	require.Equal(t, []int{0, 0, 0, 0, 1, 1}, parent)
}

func TestRefineParentFacets(t *testing.T) {
	m := refTriangle(t)
	refined, _, err := RefineUniform(m, false, true)
	require.NoError(t, err)

	facets, ok := refined.Data(ParentFacetData, 1)
	require.True(t, ok)
	require.Len(t, facets, refined.NumFacets())

	// Each of the three parent edges splits into two boundary children; the
	// three edges of the middle triangle are interior and have no parent.
	perParent := make(map[int]int)
	interior := 0
	for _, pf := range facets {
		if pf == mesh.NoParent {
			interior++
			continue
		}
		if pf < 0 || pf >= 3 {
			t.Fatalf("parent facet %d out of range", pf)
		}
		perParent[pf]++
	}
	require.Equal(t, 3, interior)
	for pf := 0; pf < 3; pf++ {
		require.Equalf(t, 2, perParent[pf], "parent facet %d", pf)
	}
}

func TestRefineParentFacetsTet(t *testing.T) {
	m := refTet(t)
	refined, _, err := RefineUniform(m, false, true)
	require.NoError(t, err)
	require.Equal(t, 24, refined.NumFacets())

	facets, ok := refined.Data(ParentFacetData, 2)
	require.True(t, ok)
	require.Len(t, facets, refined.NumFacets())

	// Each of the four parent faces splits into four coplanar children; the
	// eight faces created by interior cuts have no parent.
	perParent := make(map[int]int)
	interior := 0
	for _, pf := range facets {
		if pf == mesh.NoParent {
			interior++
			continue
		}
		if pf < 0 || pf >= 4 {
			t.Fatalf("parent facet %d out of range", pf)
		}
		perParent[pf]++
	}
	require.Equal(t, 8, interior)
	for pf := 0; pf < 4; pf++ {
		require.Equalf(t, 4, perParent[pf], "parent facet %d", pf)
	}
}

// TestRefineRebalanceOntoEmptyRank rebalances child cells onto a rank whose
// input mesh is empty. The empty rank has no coordinates of its own and must
// still unpack its peers' coordinate buffers with the group-wide geometric
// dimension.
func TestRefineRebalanceOntoEmptyRank(t *testing.T) {
	g, err := comm.NewGroup(2)
	require.NoError(t, err)

	err = g.Run(func(c comm.Communicator) error {
		var m *mesh.Mesh
		var err error
		if c.Rank() == 0 {
			coords := mat.NewDense(3, 2, []float64{0, 0, 1, 0, 0, 1})
			m, err = mesh.New(2, coords, []int{0, 1, 2}, [][]int{{0, 1, 2}}, c)
		} else {
			m, err = mesh.New(2, nil, nil, nil, c)
		}
		if err != nil {
			return err
		}
		if m.Gdim() != 2 {
			return fmt.Errorf("rank %d: gdim = %d, want group-wide 2", c.Rank(), m.Gdim())
		}

		refined, _, err := RefineUniform(m, true, false)
		if err != nil {
			return err
		}

		if refined.NumGlobalCells() != 4 {
			return fmt.Errorf("rank %d: NumGlobalCells = %d, want 4", c.Rank(), refined.NumGlobalCells())
		}
		if refined.NumCells() != 2 {
			return fmt.Errorf("rank %d: %d local cells after rebalance, want 2", c.Rank(), refined.NumCells())
		}
		if got := totalMeasure(refined); math.Abs(got-0.25) > 1e-15 {
			return fmt.Errorf("rank %d: local area = %v, want 0.25", c.Rank(), got)
		}
		return nil
	})
	require.NoError(t, err)
}

func TestRefineTwoRanksKeepOwnership(t *testing.T) {
	g, err := comm.NewGroup(2)
	require.NoError(t, err)

	err = g.Run(func(c comm.Communicator) error {
		m, err := splitSquare(c)
		if err != nil {
			return err
		}
		refined, _, err := RefineUniform(m, false, false)
		if err != nil {
			return err
		}

		if refined.NumCells() != 4 {
			return fmt.Errorf("rank %d: %d local cells, want 4", c.Rank(), refined.NumCells())
		}
		if refined.NumGlobalCells() != 8 {
			return fmt.Errorf("rank %d: %d global cells, want 8", c.Rank(), refined.NumGlobalCells())
		}
		// 4 original vertices plus one midpoint per distinct edge.
		if refined.NumGlobalVertices() != 9 {
			return fmt.Errorf("rank %d: %d global vertices, want 9", c.Rank(), refined.NumGlobalVertices())
		}

		parent, ok := refined.Data(ParentCellData, 2)
		if !ok {
			return fmt.Errorf("rank %d: missing parent-cell array", c.Rank())
		}
		for i, p := range parent {
			if p != 0 {
				return fmt.Errorf("rank %d: child %d has parent %d, want 0", c.Rank(), i, p)
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func TestRefineTwoRanksRebalance(t *testing.T) {
	g, err := comm.NewGroup(2)
	require.NoError(t, err)

	err = g.Run(func(c comm.Communicator) error {
		m, err := splitSquare(c)
		if err != nil {
			return err
		}
		refined, _, err := RefineUniform(m, true, false)
		if err != nil {
			return err
		}

		if got := c.SumInt(refined.NumCells()); got != 8 {
			return fmt.Errorf("rank %d: %d cells globally, want 8", c.Rank(), got)
		}
		if refined.NumGlobalCells() != 8 {
			return fmt.Errorf("rank %d: NumGlobalCells = %d, want 8", c.Rank(), refined.NumGlobalCells())
		}
		if refined.NumCells() != 4 {
			return fmt.Errorf("rank %d: %d local cells after rebalance, want 4", c.Rank(), refined.NumCells())
		}

		// Rebalancing moves cells, so provenance is dropped.
		if _, ok := refined.Data(ParentCellData, 2); ok {
			return fmt.Errorf("rank %d: unexpected provenance after rebalance", c.Rank())
		}

		// Area is conserved globally: each rank holds half the square.
		if got := totalMeasure(refined); math.Abs(got-0.5) > 1e-15 {
			return fmt.Errorf("rank %d: local area = %v, want 0.5", c.Rank(), got)
		}
		return nil
	})
	require.NoError(t, err)
}
