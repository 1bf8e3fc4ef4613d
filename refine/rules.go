package refine

import "github.com/notargets/meshadapt/mesh"

// EnforceRules propagates the conformity rule: a face with any marked edge
// must have its longest edge marked. longEdge is the FaceLongEdge result
// for the refiner's mesh.
//
// The propagation is a distributed fixed point over synchronous rounds.
// Each round synchronizes markers across rank boundaries, scans local
// faces, marks longest edges where the rule is violated, and reduces the
// local update count globally; the reduction is the barrier that keeps all
// ranks in the same round. Marks are monotone within a pass and edges are
// finite, so the loop terminates; the round count is bounded by the
// propagation depth of the marking pattern.
func EnforceRules(r *Refiner, longEdge []int) {
	m := r.Mesh()
	for {
		r.SyncMarkers()
		updates := 0
		for f := 0; f < m.NumFaces(); f++ {
			le := longEdge[f]
			if r.IsMarked(le) {
				continue
			}
			anyMarked := false
			for _, e := range m.FaceEdges(f) {
				if r.IsMarked(e) {
					anyMarked = true
					break
				}
			}
			if anyMarked {
				r.MarkEdge(le)
				updates++
			}
		}
		if m.Comm().SumInt(updates) == 0 {
			return
		}
	}
}

// RuleViolations counts the local faces whose longest edge is unmarked
// while some other edge is marked. After EnforceRules it is zero on every
// rank.
func RuleViolations(r *Refiner, longEdge []int, m *mesh.Mesh) int {
	violations := 0
	for f := 0; f < m.NumFaces(); f++ {
		if r.IsMarked(longEdge[f]) {
			continue
		}
		for _, e := range m.FaceEdges(f) {
			if r.IsMarked(e) {
				violations++
				break
			}
		}
	}
	return violations
}
