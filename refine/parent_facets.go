package refine

import (
	"fmt"

	"github.com/notargets/meshadapt/mesh"
)

// mapParentFacets recovers, for every facet of the refined mesh, the parent
// facet it descends from, purely from vertex-set containment: a child facet
// belongs to parent facet F when all its global vertices lie in F's vertex
// set augmented with the midpoints of F's split edges. Facets created by
// interior cuts match no parent set and are tagged mesh.NoParent - every
// parent cell is examined, not only boundary-adjacent ones, precisely so
// interior facets are resolved explicitly rather than left unset.
//
// The result is stored on the refined mesh as the "parent_facet" array over
// entities of dimension tdim-1, holding parent-mesh facet indices.
func mapParentFacets(parent, refined *mesh.Mesh, newVertexMap map[int]int) error {
	tdim := parent.Tdim()

	parentCell, ok := refined.Data(ParentCellData, tdim)
	if !ok {
		return fmt.Errorf("%w: refined mesh has no parent-cell array", ErrInvariant)
	}
	if len(parentCell) != refined.NumCells() {
		return fmt.Errorf("%w: parent-cell array has %d entries for %d cells",
			ErrInvariant, len(parentCell), refined.NumCells())
	}

	parentFacet := make([]int, refined.NumFacets())
	for i := range parentFacet {
		parentFacet[i] = mesh.NoParent
	}

	// Reverse parent -> children map, built once.
	children := make([][]int, parent.NumCells())
	for c := 0; c < refined.NumCells(); c++ {
		p := parentCell[c]
		if p < 0 || p >= parent.NumCells() {
			return fmt.Errorf("%w: cell %d has parent %d out of range", ErrInvariant, c, p)
		}
		children[p] = append(children[p], c)
	}

	for pc := 0; pc < parent.NumCells(); pc++ {
		// Eligible vertex set of each facet of the parent cell: its own
		// global vertices plus the new vertex of any of its edges that was
		// split this pass.
		pcFacets := parent.CellFacets(pc)
		sets := make([]map[int]bool, len(pcFacets))
		for i, f := range pcFacets {
			vset := make(map[int]bool)
			for _, v := range parent.FacetVertices(f) {
				vset[parent.VertexGlobal(v)] = true
			}
			for _, e := range parent.FacetEdges(f) {
				if nv, ok := newVertexMap[parent.EdgeGlobal(e)]; ok {
					vset[nv] = true
				}
			}
			sets[i] = vset
		}

		for _, cc := range children[pc] {
			for _, cf := range refined.CellFacets(cc) {
				if parentFacet[cf] != mesh.NoParent {
					continue
				}
				for i, vset := range sets {
					contained := true
					for _, v := range refined.FacetVertices(cf) {
						if !vset[refined.VertexGlobal(v)] {
							contained = false
							break
						}
					}
					if contained {
						parentFacet[cf] = pcFacets[i]
						break
					}
				}
			}
		}
	}

	refined.SetData(ParentFacetData, tdim-1, parentFacet)
	return nil
}
