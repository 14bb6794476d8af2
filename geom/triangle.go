package geom

import "github.com/go-spatial/bvh/types"

// triangleEpsilon is the Moller-Trumbore tolerance for the parallel-ray and
// behind-origin rejections.
const triangleEpsilon = 1e-8

// Triangle is a single mesh face plus bookkeeping the mesh BVH needs to
// report a hit back in terms of the original mesh: Index is the triangle's
// position in the source index/vertex stream, Payload is an opaque handle
// the caller attached at build time (e.g. a material id).
type Triangle struct {
	A, B, C types.Vec3
	Index   int
	Payload interface{}
}

// Centroid is the mean of the triangle's three vertices, used by the
// builder to assign a triangle to a partition.
func (t Triangle) Centroid() types.Vec3 {
	return t.A.Add(t.B).Add(t.C).Mul(1.0 / 3.0)
}

// BBox is the componentwise min/max of the triangle's vertices.
func (t Triangle) BBox() AABB {
	return AABB{
		Min: types.MinVec3(types.MinVec3(t.A, t.B), t.C),
		Max: types.MaxVec3(types.MaxVec3(t.A, t.B), t.C),
	}
}

// TriangleHit is the result of a ray-triangle intersection.
type TriangleHit struct {
	T          float32
	U, V, W    float32 // barycentric coordinates; W = 1-U-V
	Normal     types.Vec3
}

// IntersectRay implements the Moller-Trumbore ray-triangle test.
//
// cullBackface, when true, rejects hits on the triangle's back face
// (determinant < epsilon) instead of just the near-parallel case.
func (t Triangle) IntersectRay(r Ray, cullBackface bool) (TriangleHit, bool) {
	edge1 := t.B.Sub(t.A)
	edge2 := t.C.Sub(t.A)

	pvec := r.Direction.Cross(edge2)
	det := edge1.Dot(pvec)

	if cullBackface {
		if det < triangleEpsilon {
			return TriangleHit{}, false
		}
	} else {
		if det > -triangleEpsilon && det < triangleEpsilon {
			return TriangleHit{}, false
		}
	}

	invDet := 1.0 / det
	tvec := r.Origin.Sub(t.A)
	u := tvec.Dot(pvec) * invDet
	if u < 0 || u > 1 {
		return TriangleHit{}, false
	}

	qvec := tvec.Cross(edge1)
	v := r.Direction.Dot(qvec) * invDet
	if v < 0 || u+v > 1 {
		return TriangleHit{}, false
	}

	tHit := edge2.Dot(qvec) * invDet
	if tHit <= triangleEpsilon {
		return TriangleHit{}, false
	}

	return TriangleHit{
		T:      tHit,
		U:      u,
		V:      v,
		W:      1 - u - v,
		Normal: edge1.Cross(edge2).Normalize(),
	}, true
}
