package geom

import (
	"math"

	"github.com/go-spatial/bvh/types"
)

// AABB is an axis-aligned bounding box. The empty box has Min set to +Inf
// and Max to -Inf on every axis, so that Union with any real box yields
// that box unchanged.
type AABB struct {
	Min, Max types.Vec3
}

// EmptyAABB returns the canonical empty box, the identity element for Union.
func EmptyAABB() AABB {
	inf := float32(math.Inf(1))
	return AABB{
		Min: types.Vec3{inf, inf, inf},
		Max: types.Vec3{-inf, -inf, -inf},
	}
}

// NewAABB builds a box from two corners, without requiring the caller to
// know which corner is the min and which is the max on every axis.
func NewAABB(a, b types.Vec3) AABB {
	return AABB{Min: types.MinVec3(a, b), Max: types.MaxVec3(a, b)}
}

// IsEmpty reports whether the box has no volume in some axis where
// Min exceeds Max, the encoding used for the empty box.
func (bb AABB) IsEmpty() bool {
	return bb.Min[0] > bb.Max[0] || bb.Min[1] > bb.Max[1] || bb.Min[2] > bb.Max[2]
}

// Union returns the smallest box containing both bb and other.
func (bb AABB) Union(other AABB) AABB {
	return AABB{
		Min: types.MinVec3(bb.Min, other.Min),
		Max: types.MaxVec3(bb.Max, other.Max),
	}
}

// Expand grows bb, if needed, to also contain p.
func (bb AABB) Expand(p types.Vec3) AABB {
	return AABB{
		Min: types.MinVec3(bb.Min, p),
		Max: types.MaxVec3(bb.Max, p),
	}
}

// Center returns the midpoint of the box.
func (bb AABB) Center() types.Vec3 {
	return bb.Min.Add(bb.Max).Mul(0.5)
}

// Extents returns Max - Min, componentwise.
func (bb AABB) Extents() types.Vec3 {
	return bb.Max.Sub(bb.Min)
}

// Volume returns the box's volume, or 0 for an empty/degenerate box.
func (bb AABB) Volume() float32 {
	e := bb.Extents()
	if e[0] < 0 || e[1] < 0 || e[2] < 0 {
		return 0
	}
	return e[0] * e[1] * e[2]
}

// SurfaceArea returns the total surface area of the box's six faces.
func (bb AABB) SurfaceArea() float32 {
	e := bb.Extents()
	if e[0] < 0 || e[1] < 0 || e[2] < 0 {
		return 0
	}
	return 2 * (e[0]*e[1] + e[1]*e[2] + e[0]*e[2])
}

// LongestAxis returns the index (0=X, 1=Y, 2=Z) of the box's longest edge.
func (bb AABB) LongestAxis() int {
	e := bb.Extents()
	axis := 0
	if e[1] > e[axis] {
		axis = 1
	}
	if e[2] > e[axis] {
		axis = 2
	}
	return axis
}

// UnionVolume computes the volume of the union of two boxes directly in
// scalar arithmetic, without constructing an intermediate AABB. Used by the
// tree's insertion cost heuristic, which evaluates this in a hot loop.
func UnionVolume(a, b AABB) float32 {
	var vol float32 = 1
	for k := 0; k < 3; k++ {
		lo := a.Min[k]
		if b.Min[k] < lo {
			lo = b.Min[k]
		}
		hi := a.Max[k]
		if b.Max[k] > hi {
			hi = b.Max[k]
		}
		d := hi - lo
		if d < 0 {
			d = 0
		}
		vol *= d
	}
	return vol
}

// Overlaps reports whether two boxes intersect, using the separating-axis
// test on each of the three axes.
func (bb AABB) Overlaps(other AABB) bool {
	return bb.Min[0] <= other.Max[0] && other.Min[0] <= bb.Max[0] &&
		bb.Min[1] <= other.Max[1] && other.Min[1] <= bb.Max[1] &&
		bb.Min[2] <= other.Max[2] && other.Min[2] <= bb.Max[2]
}

// Contains reports whether p lies within (or on the boundary of) the box.
func (bb AABB) Contains(p types.Vec3) bool {
	return p[0] >= bb.Min[0] && p[0] <= bb.Max[0] &&
		p[1] >= bb.Min[1] && p[1] <= bb.Max[1] &&
		p[2] >= bb.Min[2] && p[2] <= bb.Max[2]
}

// ClosestPoint clamps p onto the box, returning p itself when p is already
// inside.
func (bb AABB) ClosestPoint(p types.Vec3) types.Vec3 {
	clamp := func(v, lo, hi float32) float32 {
		if v < lo {
			return lo
		}
		if v > hi {
			return hi
		}
		return v
	}
	return types.Vec3{
		clamp(p[0], bb.Min[0], bb.Max[0]),
		clamp(p[1], bb.Min[1], bb.Max[1]),
		clamp(p[2], bb.Min[2], bb.Max[2]),
	}
}

// ClosestDistance returns the distance from p to the nearest point on the
// box (0 if p is inside). Used by the nearest-neighbor query as the proxy
// distance for a payload.
func (bb AABB) ClosestDistance(p types.Vec3) float32 {
	return p.Distance(bb.ClosestPoint(p))
}

// IntersectRay runs the slab method against the box, returning the entry
// distance (or, if the ray origin is inside the box, the exit distance) and
// true on a hit. An empty box always misses.
//
// A ray whose origin is strictly inside the box reports the exit distance
// per the pinned convention (tMin is negative in that case; tMax, the exit,
// is what's returned).
func (bb AABB) IntersectRay(r Ray) (t float32, hit bool) {
	if bb.IsEmpty() {
		return 0, false
	}

	invD := r.InvDirection()
	tMin := float32(math.Inf(-1))
	tMax := float32(math.Inf(1))

	for k := 0; k < 3; k++ {
		t1 := (bb.Min[k] - r.Origin[k]) * invD[k]
		t2 := (bb.Max[k] - r.Origin[k]) * invD[k]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tMin {
			tMin = t1
		}
		if t2 < tMax {
			tMax = t2
		}
	}

	if tMax < tMin || tMax < 0 {
		return 0, false
	}
	if tMin >= 0 {
		return tMin, true
	}
	return tMax, true
}

// HitNormal estimates an outward-facing AABB normal at a hit point, using
// the largest-magnitude axis of (hit - center). This is an approximation:
// on a box with a non-cubic aspect ratio it can pick the wrong face, and not
// only near an edge, since the comparison ignores the box's extents. It's
// retained because it's cheap and adequate for AABB-proxy
// raycasts against opaque payloads; a mesh BVH reports true triangle
// normals instead.
func (bb AABB) HitNormal(hit types.Vec3) types.Vec3 {
	local := hit.Sub(bb.Center())
	ax, ay, az := float32(math.Abs(float64(local[0]))), float32(math.Abs(float64(local[1]))), float32(math.Abs(float64(local[2])))

	switch {
	case ax >= ay && ax >= az:
		if local[0] < 0 {
			return types.Vec3{-1, 0, 0}
		}
		return types.Vec3{1, 0, 0}
	case ay >= ax && ay >= az:
		if local[1] < 0 {
			return types.Vec3{0, -1, 0}
		}
		return types.Vec3{0, 1, 0}
	default:
		if local[2] < 0 {
			return types.Vec3{0, 0, -1}
		}
		return types.Vec3{0, 0, 1}
	}
}
