package geom

import (
	"math"
	"testing"

	"github.com/go-spatial/bvh/types"
)

func TestAABBUnionAndVolume(t *testing.T) {
	a := NewAABB(types.Vec3{0, 0, 0}, types.Vec3{1, 1, 1})
	b := NewAABB(types.Vec3{2, 2, 2}, types.Vec3{3, 3, 3})

	u := a.Union(b)
	expMin := types.Vec3{0, 0, 0}
	expMax := types.Vec3{3, 3, 3}
	if u.Min != expMin || u.Max != expMax {
		t.Fatalf("expected union bounds %v/%v; got %v/%v", expMin, expMax, u.Min, u.Max)
	}

	if v := a.Volume(); v != 1 {
		t.Fatalf("expected unit cube volume 1; got %f", v)
	}
	if v := u.Volume(); v != 27 {
		t.Fatalf("expected union volume 27; got %f", v)
	}
}

func TestAABBEmptyIsIdentityForUnion(t *testing.T) {
	e := EmptyAABB()
	a := NewAABB(types.Vec3{-1, -1, -1}, types.Vec3{1, 1, 1})

	u := e.Union(a)
	if u.Min != a.Min || u.Max != a.Max {
		t.Fatalf("expected union with empty box to equal a; got %v/%v", u.Min, u.Max)
	}
	if !e.IsEmpty() {
		t.Fatal("expected canonical empty box to report IsEmpty")
	}
}

func TestAABBOverlapsAndContains(t *testing.T) {
	a := NewAABB(types.Vec3{0, 0, 0}, types.Vec3{2, 2, 2})
	b := NewAABB(types.Vec3{1, 1, 1}, types.Vec3{3, 3, 3})
	c := NewAABB(types.Vec3{5, 5, 5}, types.Vec3{6, 6, 6})

	if !a.Overlaps(b) {
		t.Fatal("expected a and b to overlap")
	}
	if a.Overlaps(c) {
		t.Fatal("expected a and c to not overlap")
	}
	if !a.Contains(types.Vec3{1, 1, 1}) {
		t.Fatal("expected a to contain (1,1,1)")
	}
	if a.Contains(types.Vec3{5, 5, 5}) {
		t.Fatal("expected a to not contain (5,5,5)")
	}
}

func TestAABBClosestDistance(t *testing.T) {
	box := NewAABB(types.Vec3{0, 0, 0}, types.Vec3{1, 1, 1})

	if d := box.ClosestDistance(types.Vec3{0.5, 0.5, 0.5}); d != 0 {
		t.Fatalf("expected 0 distance for a point inside the box; got %f", d)
	}

	d := box.ClosestDistance(types.Vec3{2, 0.5, 0.5})
	if math.Abs(float64(d-1)) > 1e-6 {
		t.Fatalf("expected distance 1; got %f", d)
	}
}

func TestAABBIntersectRaySlabMethod(t *testing.T) {
	box := NewAABB(types.Vec3{-1, -1, -1}, types.Vec3{1, 1, 1})

	r := NewRay(types.Vec3{-5, 0, 0}, types.Vec3{1, 0, 0})
	tHit, ok := box.IntersectRay(r)
	if !ok {
		t.Fatal("expected ray to hit box")
	}
	if math.Abs(float64(tHit-4)) > 1e-4 {
		t.Fatalf("expected entry distance 4; got %f", tHit)
	}

	miss := NewRay(types.Vec3{-5, 5, 0}, types.Vec3{1, 0, 0})
	if _, ok := box.IntersectRay(miss); ok {
		t.Fatal("expected parallel offset ray to miss")
	}

	if _, ok := EmptyAABB().IntersectRay(r); ok {
		t.Fatal("expected empty box to always miss")
	}
}

func TestAABBIntersectRayOriginInside(t *testing.T) {
	box := NewAABB(types.Vec3{-1, -1, -1}, types.Vec3{1, 1, 1})
	r := NewRay(types.Vec3{0, 0, 0}, types.Vec3{1, 0, 0})

	tHit, ok := box.IntersectRay(r)
	if !ok {
		t.Fatal("expected ray from inside the box to report a hit")
	}
	if math.Abs(float64(tHit-1)) > 1e-4 {
		t.Fatalf("expected exit distance 1 for an origin-inside ray; got %f", tHit)
	}
}

func TestAABBHitNormalPicksLargestAxis(t *testing.T) {
	box := NewAABB(types.Vec3{-1, -1, -1}, types.Vec3{1, 1, 1})
	n := box.HitNormal(types.Vec3{1, 0.1, -0.2})
	if n != (types.Vec3{1, 0, 0}) {
		t.Fatalf("expected +X face normal; got %v", n)
	}
}
