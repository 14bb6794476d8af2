package meshbvh

import (
	"math"
	"math/rand"
	"testing"

	"github.com/go-spatial/bvh/builder"
	"github.com/go-spatial/bvh/geom"
	"github.com/go-spatial/bvh/types"
)

func tessellateSphere(latSteps, lonSteps int) ([]types.Vec3, []int) {
	var positions []types.Vec3
	for lat := 0; lat <= latSteps; lat++ {
		theta := float64(lat) * math.Pi / float64(latSteps)
		sinTheta, cosTheta := math.Sin(theta), math.Cos(theta)
		for lon := 0; lon <= lonSteps; lon++ {
			phi := float64(lon) * 2 * math.Pi / float64(lonSteps)
			sinPhi, cosPhi := math.Sin(phi), math.Cos(phi)
			positions = append(positions, types.Vec3{
				float32(cosPhi * sinTheta), float32(cosTheta), float32(sinPhi * sinTheta),
			})
		}
	}
	var indices []int
	stride := lonSteps + 1
	for lat := 0; lat < latSteps; lat++ {
		for lon := 0; lon < lonSteps; lon++ {
			a := lat*stride + lon
			b := a + stride
			indices = append(indices, a, b, a+1)
			indices = append(indices, a+1, b, b+1)
		}
	}
	return positions, indices
}

func TestBuildFromGeometryTriangleCount(t *testing.T) {
	positions, indices := tessellateSphere(8, 8)
	m := BuildFromGeometry(positions, indices, nil, 10, 40, builder.SAH)
	stats := m.Stats()
	if stats.TriangleCount != len(indices)/3 {
		t.Fatalf("expected %d triangles; got %d", len(indices)/3, stats.TriangleCount)
	}
}

func TestBuildFromGeometryNoIndices(t *testing.T) {
	positions := []types.Vec3{
		{0, 0, 0}, {1, 0, 0}, {0, 1, 0},
		{1, 1, 0}, {2, 1, 0}, {1, 2, 0},
	}
	m := BuildFromGeometry(positions, nil, nil, 10, 40, builder.SAH)
	if m.Stats().TriangleCount != 2 {
		t.Fatalf("expected 2 triangles from 6 unindexed positions; got %d", m.Stats().TriangleCount)
	}
}

func TestMeshRaycastMatchesBruteForce(t *testing.T) {
	positions, indices := tessellateSphere(24, 24)
	m := BuildFromGeometry(positions, indices, nil, 10, 40, builder.SAH)

	rng := rand.New(rand.NewSource(11))
	mismatches := 0
	const rays = 200

	for i := 0; i < rays; i++ {
		theta := rng.Float64() * 2 * math.Pi
		phi := math.Acos(2*rng.Float64() - 1)
		origin := types.Vec3{
			10 * float32(math.Sin(phi)*math.Cos(theta)),
			10 * float32(math.Cos(phi)),
			10 * float32(math.Sin(phi)*math.Sin(theta)),
		}
		target := types.Vec3{
			(rng.Float32() - 0.5) * 0.3,
			(rng.Float32() - 0.5) * 0.3,
			(rng.Float32() - 0.5) * 0.3,
		}
		ray := geom.NewRay(origin, target.Sub(origin))

		bvhHit, bvhOk := m.RaycastFirst(ray, float32(math.Inf(1)), false)
		bruteHit, bruteOk := m.RaycastBruteForce(ray, float32(math.Inf(1)), false)

		if bvhOk != bruteOk {
			mismatches++
			continue
		}
		if bvhOk && math.Abs(float64(bvhHit.T-bruteHit.T)) > 1e-4 {
			mismatches++
		}
	}

	if mismatches != 0 {
		t.Fatalf("expected raycast_first to match brute force on every ray; %d/%d mismatched", mismatches, rays)
	}
}

func TestMeshRaycastAllHitsSortedAscending(t *testing.T) {
	positions, indices := tessellateSphere(16, 16)
	m := BuildFromGeometry(positions, indices, nil, 10, 40, builder.SAH)

	ray := geom.NewRay(types.Vec3{-10, 0, 0}, types.Vec3{1, 0, 0})
	hits := m.Raycast(ray, float32(math.Inf(1)), false)
	if len(hits) == 0 {
		t.Fatal("expected the ray through the sphere's center to hit at least one triangle on each side")
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].T < hits[i-1].T {
			t.Fatalf("expected hits sorted ascending by t; got %f before %f", hits[i-1].T, hits[i].T)
		}
	}
}

func TestMeshEmptyTriangleListYieldsNoHits(t *testing.T) {
	m := BuildFromTriangles(nil, 10, 40, builder.SAH)
	if _, ok := m.RaycastFirst(geom.NewRay(types.Vec3{0, 0, 0}, types.Vec3{1, 0, 0}), 100, false); ok {
		t.Fatal("expected no hit against an empty mesh")
	}
}
