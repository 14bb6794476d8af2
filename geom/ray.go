package geom

import "github.com/go-spatial/bvh/types"

// reciprocalEpsilon guards the slab test's componentwise division: a
// direction component with magnitude below this is treated as the signed
// infinity, matching a division-by-zero without actually dividing by zero.
const reciprocalEpsilon = 1e-10

// Ray is a parametric line, origin + t*direction. direction is always unit
// length; NewRay normalizes it and Reciprocal is precomputed once so hot
// traversal loops never call Normalize or divide per node.
type Ray struct {
	Origin, Direction types.Vec3

	// invDirection is the guarded componentwise reciprocal of Direction,
	// precomputed once at construction for the slab test.
	invDirection types.Vec3
}

// NewRay builds a ray with a normalized direction. A zero-length direction
// normalizes to (0,0,1) rather than propagating NaNs through the tree.
func NewRay(origin, direction types.Vec3) Ray {
	if direction.Len() < 1e-12 {
		direction = types.Vec3{0, 0, 1}
	} else {
		direction = direction.Normalize()
	}
	return Ray{
		Origin:       origin,
		Direction:    direction,
		invDirection: direction.Reciprocal(reciprocalEpsilon),
	}
}

// InvDirection returns the guarded reciprocal of the ray direction.
func (r Ray) InvDirection() types.Vec3 {
	return r.invDirection
}

// At evaluates the ray's position at parameter t.
func (r Ray) At(t float32) types.Vec3 {
	return r.Origin.Add(r.Direction.Mul(t))
}
