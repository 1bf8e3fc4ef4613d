package distribute

import (
	"errors"
	"fmt"
	"testing"

	"github.com/notargets/meshadapt/comm"
	"github.com/notargets/meshadapt/mesh"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// halfSquare builds one rank's half of the unit square: rank 0 holds
// triangle {0,1,2}, rank 1 holds {1,2,3}. With the rank-contiguous global
// cell numbering, rank r owns global cell r.
func halfSquare(c comm.Communicator) (*mesh.Mesh, error) {
	var coords *mat.Dense
	var global []int
	if c.Rank() == 0 {
		coords = mat.NewDense(3, 2, []float64{0, 0, 1, 0, 0, 1})
		global = []int{0, 1, 2}
	} else {
		coords = mat.NewDense(3, 2, []float64{1, 0, 0, 1, 1, 1})
		global = []int{1, 2, 3}
	}
	m, err := mesh.New(2, coords, global, [][]int{{0, 1, 2}}, c)
	if err != nil {
		return nil, err
	}
	m.AssignGlobalCellNumbering()
	return m, nil
}

func TestRedistributeRequiresNumbering(t *testing.T) {
	coords := mat.NewDense(3, 2, []float64{0, 0, 1, 0, 0, 1})
	m, err := mesh.New(2, coords, []int{0, 1, 2}, [][]int{{0, 1, 2}}, nil)
	require.NoError(t, err)

	_, err = Redistribute(NewValueCollection[int64](2), m)
	if !errors.Is(err, mesh.ErrNoGlobalNumbering) {
		t.Errorf("got %v, want ErrNoGlobalNumbering", err)
	}
}

func TestRedistributeSerial(t *testing.T) {
	coords := mat.NewDense(3, 2, []float64{0, 0, 1, 0, 0, 1})
	m, err := mesh.New(2, coords, []int{0, 1, 2}, [][]int{{0, 1, 2}}, nil)
	require.NoError(t, err)
	m.AssignGlobalCellNumbering()

	src := NewValueCollection[float64](1)
	src.Set(0, 0, 1.5)
	src.Set(0, 2, 2.5)

	out, err := Redistribute(src, m)
	require.NoError(t, err)
	require.Equal(t, src.Entries(), out.Entries())
	require.Equal(t, src.Dim, out.Dim)
}

// TestRedistributeTwoRanks sources each value on the rank that does NOT own
// its cell, so every entry must cross the rank boundary exactly once.
func TestRedistributeTwoRanks(t *testing.T) {
	g, err := comm.NewGroup(2)
	require.NoError(t, err)

	err = g.Run(func(c comm.Communicator) error {
		m, err := halfSquare(c)
		if err != nil {
			return err
		}

		peer := 1 - c.Rank()
		src := NewValueCollection[int64](2)
		for entity := 0; entity < 3; entity++ {
			src.Set(peer, entity, int64(100*peer+entity))
		}

		out, err := Redistribute(src, m)
		if err != nil {
			return err
		}

		// Nothing lost or duplicated globally.
		if got := c.SumInt(out.Len()); got != 6 {
			return fmt.Errorf("rank %d: %d values globally, want 6", c.Rank(), got)
		}

		// Every rank ends with its own cell's three values, locally indexed.
		if out.Len() != 3 {
			return fmt.Errorf("rank %d: %d local values, want 3", c.Rank(), out.Len())
		}
		for entity := 0; entity < 3; entity++ {
			v, ok := out.Get(0, entity)
			if !ok {
				return fmt.Errorf("rank %d: missing entity %d", c.Rank(), entity)
			}
			if want := int64(100*c.Rank() + entity); v != want {
				return fmt.Errorf("rank %d: entity %d = %d, want %d", c.Rank(), entity, v, want)
			}
		}
		return nil
	})
	require.NoError(t, err)
}

// TestRedistributeMixedOwnership keeps one value local and sends one away on
// each rank.
func TestRedistributeMixedOwnership(t *testing.T) {
	g, err := comm.NewGroup(2)
	require.NoError(t, err)

	err = g.Run(func(c comm.Communicator) error {
		m, err := halfSquare(c)
		if err != nil {
			return err
		}

		src := NewValueCollection[float64](2)
		src.Set(0, 0, 10.0) // rank 0 owns this
		src.Set(1, 0, 20.0) // rank 1 owns this

		out, err := Redistribute(src, m)
		if err != nil {
			return err
		}

		if out.Len() != 1 {
			return fmt.Errorf("rank %d: %d local values, want 1", c.Rank(), out.Len())
		}
		v, ok := out.Get(0, 0)
		if !ok {
			return fmt.Errorf("rank %d: missing value at (0,0)", c.Rank())
		}
		if want := float64(10 * (c.Rank() + 1)); v != want {
			return fmt.Errorf("rank %d: value %v, want %v", c.Rank(), v, want)
		}
		return nil
	})
	require.NoError(t, err)
}
