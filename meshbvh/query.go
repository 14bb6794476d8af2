package meshbvh

import (
	"sort"

	"github.com/go-spatial/bvh/geom"
	"github.com/go-spatial/bvh/types"
)

const stackSafetyCap = 1 << 20

// Raycast returns every triangle hit within [0, maxDistance], sorted
// ascending by t.
func (m *Mesh) Raycast(r geom.Ray, maxDistance float32, cullBackface bool) []Hit {
	if m.root == nil {
		return nil
	}

	var hits []Hit
	stack := []*node{m.root}
	steps := 0

	for len(stack) > 0 {
		steps++
		if steps > stackSafetyCap {
			m.logger.Warning("meshbvh: raycast traversal exceeded safety cap, aborting")
			break
		}
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, ok := n.bounds.IntersectRay(r); !ok {
			continue
		}
		if n.isLeaf {
			for _, tri := range n.triangles {
				th, ok := tri.IntersectRay(r, cullBackface)
				if !ok || th.T < 0 || th.T > maxDistance {
					continue
				}
				hits = append(hits, Hit{
					TriangleIndex: tri.Index,
					T:             th.T,
					Point:         r.At(th.T),
					U:             th.U,
					V:             th.V,
					W:             th.W,
					Normal:        th.Normal,
					Payload:       tri.Payload,
				})
			}
			continue
		}
		stack = append(stack, n.left, n.right)
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].T < hits[j].T })
	return hits
}

// RaycastFirst returns the closest triangle hit, using a priority-ordered
// traversal that visits the nearer child first and prunes any subtree whose
// entry distance already exceeds the best hit found so far.
func (m *Mesh) RaycastFirst(r geom.Ray, maxDistance float32, cullBackface bool) (Hit, bool) {
	if m.root == nil {
		return Hit{}, false
	}

	type frame struct {
		n     *node
		entry float32
	}
	stack := []frame{{m.root, 0}}
	best := Hit{}
	bestT := maxDistance
	found := false
	steps := 0

	for len(stack) > 0 {
		steps++
		if steps > stackSafetyCap {
			m.logger.Warning("meshbvh: raycast_first traversal exceeded safety cap, aborting")
			break
		}
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if top.entry > bestT {
			continue
		}
		n := top.n

		if n.isLeaf {
			for _, tri := range n.triangles {
				th, ok := tri.IntersectRay(r, cullBackface)
				if !ok || th.T < 0 || th.T > bestT {
					continue
				}
				best = Hit{
					TriangleIndex: tri.Index,
					T:             th.T,
					Point:         r.At(th.T),
					U:             th.U,
					V:             th.V,
					W:             th.W,
					Normal:        th.Normal,
					Payload:       tri.Payload,
				}
				bestT = th.T
				found = true
			}
			continue
		}

		leftT, leftHit := n.left.bounds.IntersectRay(r)
		rightT, rightHit := n.right.bounds.IntersectRay(r)
		// IntersectRay reports the exit distance for a box that contains
		// the origin; such a child's entry distance is 0.
		if leftHit && n.left.bounds.Contains(r.Origin) {
			leftT = 0
		}
		if rightHit && n.right.bounds.Contains(r.Origin) {
			rightT = 0
		}

		switch {
		case leftHit && rightHit:
			if leftT <= rightT {
				stack = append(stack, frame{n.right, rightT}, frame{n.left, leftT})
			} else {
				stack = append(stack, frame{n.left, leftT}, frame{n.right, rightT})
			}
		case leftHit:
			stack = append(stack, frame{n.left, leftT})
		case rightHit:
			stack = append(stack, frame{n.right, rightT})
		}
	}

	return best, found
}

// RaycastWorld casts a world-space ray against a mesh whose local space is
// related to world space by worldMatrix. The ray is transformed into local
// space by the matrix's inverse (origin as a point, direction as a direction,
// re-normalized by NewRay), cast against the tree with RaycastFirst, and the
// resulting hit point is transformed back out to world space. The hit's T
// remains in the local-space ray's parameter space, per the reported-t
// convention for local/world conversion.
func (m *Mesh) RaycastWorld(worldRay geom.Ray, worldMatrix types.Mat4, maxDistance float32, cullBackface bool) (Hit, bool) {
	inverse := worldMatrix.Inverse()
	localOrigin := inverse.MulPoint(worldRay.Origin)
	localDirection := inverse.MulDir(worldRay.Direction)
	localRay := geom.NewRay(localOrigin, localDirection)

	hit, ok := m.RaycastFirst(localRay, maxDistance, cullBackface)
	if !ok {
		return Hit{}, false
	}
	hit.Point = worldMatrix.MulPoint(hit.Point)
	return hit, true
}

// RaycastBruteForce linearly scans every triangle, ignoring the tree
// entirely. It exists as a correctness reference for tests to check
// RaycastFirst against, not for production use.
func (m *Mesh) RaycastBruteForce(r geom.Ray, maxDistance float32, cullBackface bool) (Hit, bool) {
	best := Hit{}
	bestT := maxDistance
	found := false
	for _, tri := range m.triangles {
		th, ok := tri.IntersectRay(r, cullBackface)
		if !ok || th.T < 0 || th.T > bestT {
			continue
		}
		best = Hit{
			TriangleIndex: tri.Index,
			T:             th.T,
			Point:         r.At(th.T),
			U:             th.U,
			V:             th.V,
			W:             th.W,
			Normal:        th.Normal,
			Payload:       tri.Payload,
		}
		bestT = th.T
		found = true
	}
	return best, found
}
