package bvhtree

import (
	"math"
	"sort"

	"github.com/go-spatial/bvh/geom"
	"github.com/go-spatial/bvh/types"
)

// Hit is a single raycast result against a payload's bounding box.
type Hit struct {
	Payload interface{}
	T       float32
	Point   types.Vec3
	// Normal is the outward AABB-face normal at Point, an approximation
	// suitable for AABB proxies (see geom.AABB.HitNormal).
	Normal types.Vec3
}

// stackSafetyCap bounds traversal stacks against a corrupted tree (a cycle
// in the child graph). It's sized generously above any realistic tree built
// with the default max depth; tripping it is evidence of a bug report, not
// a normal code path.
const stackSafetyCap = 1 << 20

// Raycast returns every leaf whose bounds the ray hits within
// [0, maxDistance], sorted ascending by hit distance. The traversal visits
// the closer child first; since every hit is collected, subtrees are pruned
// only when the ray misses their bounds, never by distance.
func (t *Tree) Raycast(ray geom.Ray, maxDistance float32) []Hit {
	if t.root == nil {
		return nil
	}

	var hits []Hit
	type frame struct {
		node  *Node
		entry float32
	}
	stack := []frame{{t.root, 0}}
	steps := 0

	for len(stack) > 0 {
		steps++
		if steps > stackSafetyCap {
			t.logger.Warning("bvhtree: raycast traversal exceeded safety cap, aborting")
			break
		}
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		node := top.node

		if node.IsLeaf() {
			if !node.HasPayload() {
				continue
			}
			hitT, ok := node.Bounds.IntersectRay(ray)
			if !ok || hitT < 0 || hitT > maxDistance {
				continue
			}
			point := ray.At(hitT)
			hits = append(hits, Hit{
				Payload: node.Payload,
				T:       hitT,
				Point:   point,
				Normal:  node.Bounds.HitNormal(point),
			})
			continue
		}

		leftT, leftHit := node.Left.Bounds.IntersectRay(ray)
		rightT, rightHit := node.Right.Bounds.IntersectRay(ray)

		// Push the farther child first so the closer one pops next.
		switch {
		case leftHit && rightHit:
			if leftT > rightT {
				stack = append(stack, frame{node.Left, leftT}, frame{node.Right, rightT})
			} else {
				stack = append(stack, frame{node.Right, rightT}, frame{node.Left, leftT})
			}
		case leftHit:
			stack = append(stack, frame{node.Left, leftT})
		case rightHit:
			stack = append(stack, frame{node.Right, rightT})
		}
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].T < hits[j].T })
	return hits
}

// RaycastFirst returns the closest hit along the ray, if any. It prunes far
// more aggressively than Raycast: any subtree whose entry distance exceeds
// the current best hit is skipped outright.
func (t *Tree) RaycastFirst(ray geom.Ray, maxDistance float32) (Hit, bool) {
	if t.root == nil {
		return Hit{}, false
	}

	type frame struct {
		node  *Node
		entry float32
	}
	stack := []frame{{t.root, 0}}
	best := Hit{}
	bestT := maxDistance
	found := false
	steps := 0

	for len(stack) > 0 {
		steps++
		if steps > stackSafetyCap {
			t.logger.Warning("bvhtree: raycast_first traversal exceeded safety cap, aborting")
			break
		}
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if top.entry > bestT {
			continue
		}
		node := top.node

		if node.IsLeaf() {
			if !node.HasPayload() {
				continue
			}
			hitT, ok := node.Bounds.IntersectRay(ray)
			if !ok || hitT < 0 || hitT > bestT {
				continue
			}
			point := ray.At(hitT)
			best = Hit{
				Payload: node.Payload,
				T:       hitT,
				Point:   point,
				Normal:  node.Bounds.HitNormal(point),
			}
			bestT = hitT
			found = true
			continue
		}

		leftT, leftHit := node.Left.Bounds.IntersectRay(ray)
		rightT, rightHit := node.Right.Bounds.IntersectRay(ray)
		// IntersectRay reports the exit distance for a box that contains
		// the origin; such a child's entry distance is 0.
		if leftHit && node.Left.Bounds.Contains(ray.Origin) {
			leftT = 0
		}
		if rightHit && node.Right.Bounds.Contains(ray.Origin) {
			rightT = 0
		}

		switch {
		case leftHit && rightHit:
			if leftT > rightT {
				stack = append(stack, frame{node.Left, leftT}, frame{node.Right, rightT})
			} else {
				stack = append(stack, frame{node.Right, rightT}, frame{node.Left, leftT})
			}
		case leftHit:
			stack = append(stack, frame{node.Left, leftT})
		case rightHit:
			stack = append(stack, frame{node.Right, rightT})
		}
	}

	return best, found
}

// QueryRange returns every payload whose bounds' center lies within radius
// of center. Internal nodes are pruned with the cheap box test against
// [center-radius, center+radius]; the leaf test is the tighter
// center-to-center distance, since the box test alone over-reports diagonal
// neighbors in a regular grid.
func (t *Tree) QueryRange(center types.Vec3, radius float32) []interface{} {
	if t.root == nil {
		return nil
	}

	r := types.Vec3{radius, radius, radius}
	queryBox := geom.AABB{Min: center.Sub(r), Max: center.Add(r)}

	var out []interface{}
	stack := []*Node{t.root}
	steps := 0

	for len(stack) > 0 {
		steps++
		if steps > stackSafetyCap {
			t.logger.Warning("bvhtree: range query traversal exceeded safety cap, aborting")
			break
		}
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !node.Bounds.Overlaps(queryBox) {
			continue
		}
		if node.IsLeaf() {
			if node.HasPayload() && node.Bounds.Center().Distance(center) <= radius {
				out = append(out, node.Payload)
			}
			continue
		}
		stack = append(stack, node.Left, node.Right)
	}
	return out
}

// IntersectBounds returns every payload whose bounds overlap box.
func (t *Tree) IntersectBounds(box geom.AABB) []interface{} {
	if t.root == nil {
		return nil
	}

	var out []interface{}
	stack := []*Node{t.root}
	steps := 0

	for len(stack) > 0 {
		steps++
		if steps > stackSafetyCap {
			t.logger.Warning("bvhtree: bounds query traversal exceeded safety cap, aborting")
			break
		}
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !node.Bounds.Overlaps(box) {
			continue
		}
		if node.IsLeaf() {
			if node.HasPayload() {
				out = append(out, node.Payload)
			}
			continue
		}
		stack = append(stack, node.Left, node.Right)
	}
	return out
}

// FindNearest returns the payload whose bounds' closest point to point is
// nearest, provided that distance does not exceed maxDistance. Pass
// +Inf for maxDistance to search unbounded.
func (t *Tree) FindNearest(point types.Vec3, maxDistance float32) (interface{}, bool) {
	return t.FindNearestFiltered(point, maxDistance, nil)
}

// FindNearestFiltered is FindNearest restricted to payloads accepted by
// accept. A leaf whose payload fails accept is skipped without disturbing the
// priority-ordered pruning, so the true nearest accepted payload is still
// found in one traversal rather than by re-querying after excluding a
// rejected hit. A nil accept matches every payload.
func (t *Tree) FindNearestFiltered(point types.Vec3, maxDistance float32, accept func(interface{}) bool) (interface{}, bool) {
	if t.root == nil {
		return nil, false
	}

	type frame struct {
		node    *Node
		lowerBd float32
	}
	stack := []frame{{t.root, t.root.Bounds.ClosestDistance(point)}}
	best := maxDistance
	var bestPayload interface{}
	found := false
	steps := 0

	for len(stack) > 0 {
		steps++
		if steps > stackSafetyCap {
			t.logger.Warning("bvhtree: nearest-neighbor traversal exceeded safety cap, aborting")
			break
		}
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if top.lowerBd > best {
			continue
		}
		node := top.node

		if node.IsLeaf() {
			if !node.HasPayload() {
				continue
			}
			if accept != nil && !accept(node.Payload) {
				continue
			}
			d := node.Bounds.ClosestDistance(point)
			if d <= best {
				best = d
				bestPayload = node.Payload
				found = true
			}
			continue
		}

		leftD := node.Left.Bounds.ClosestDistance(point)
		rightD := node.Right.Bounds.ClosestDistance(point)

		// Visit the closer child next by pushing the farther one first.
		if leftD > rightD {
			stack = append(stack, frame{node.Left, leftD}, frame{node.Right, rightD})
		} else {
			stack = append(stack, frame{node.Right, rightD}, frame{node.Left, leftD})
		}
	}

	return bestPayload, found
}

// FindNearestUnbounded is a convenience wrapper for FindNearest with no
// distance cap.
func (t *Tree) FindNearestUnbounded(point types.Vec3) (interface{}, bool) {
	return t.FindNearest(point, float32(math.Inf(1)))
}
