package refine

import "github.com/notargets/meshadapt/mesh"

// FaceLongEdge determines the longest edge of every face of the mesh (the
// cells themselves in 2D). The result is indexed by face and holds local
// edge indices.
//
// Ties in length are broken by the global index of the vertex opposite the
// edge under consideration, larger index winning. The choice is a pure
// function of edge lengths and global vertex indices, both of which are
// identical on every rank holding the face, so shared faces resolve to the
// same edge everywhere.
func FaceLongEdge(m *mesh.Mesh) []int {
	longEdge := make([]int, m.NumFaces())
	for f := 0; f < m.NumFaces(); f++ {
		imax := 0
		gimax := 0
		maxLen := 0.0
		for k, e := range m.FaceEdges(f) {
			eLen := m.EdgeLength(e)
			gi := m.VertexGlobal(m.FaceVertex(f, k))
			if eLen > maxLen || (eLen == maxLen && gi > gimax) {
				maxLen = eLen
				imax = e
				gimax = gi
			}
		}
		longEdge[f] = imax
	}
	return longEdge
}
