package geom

import "github.com/go-spatial/bvh/types"

// BoundingSphere is a utility bounding volume. It is never a hierarchy node
// (the tree only bounds with AABBs); it exists for callers that want a
// symmetric intersect test against a box or another sphere.
type BoundingSphere struct {
	Center types.Vec3
	Radius float32
}

// IntersectsAABB tests overlap using the closest-point-on-box distance.
func (s BoundingSphere) IntersectsAABB(bb AABB) bool {
	d := bb.ClosestDistance(s.Center)
	return d <= s.Radius
}

// IntersectsSphere tests overlap between two spheres.
func (s BoundingSphere) IntersectsSphere(other BoundingSphere) bool {
	d := s.Center.Distance(other.Center)
	return d <= s.Radius+other.Radius
}
