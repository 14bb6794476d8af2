package cmd

import (
	"math"
	"math/rand"

	"github.com/go-spatial/bvh/geom"
	"github.com/go-spatial/bvh/meshbvh"
	"github.com/go-spatial/bvh/types"
	"github.com/urfave/cli"
)

// MeshBenchmark tessellates a unit sphere, builds a mesh BVH over it, and
// fires random rays from a surrounding sphere toward the origin, comparing
// the BVH's raycast_first against a brute-force linear scan.
func MeshBenchmark(ctx *cli.Context) error {
	setupLogging(ctx)

	resolution := ctx.Int("resolution")
	positions, indices := tessellateSphere(resolution, resolution)
	mesh := meshbvh.BuildFromTriangles(trianglesFromGeometry(positions, indices), 10, 40, strategyFromFlag(ctx.String("strategy")))

	stats := mesh.Stats()
	logger.Noticef("mesh bvh: %d triangles, %d nodes, %d leaves, max depth %d", stats.TriangleCount, stats.NodeCount, stats.LeafCount, stats.MaxDepth)

	rng := rand.New(rand.NewSource(int64(ctx.Int("seed"))))
	rayCount := ctx.Int("rays")
	var maxDelta float32
	mismatches := 0

	for i := 0; i < rayCount; i++ {
		origin := randomOnSphere(rng, 10)
		target := types.Vec3{
			(rng.Float32() - 0.5) * 0.5,
			(rng.Float32() - 0.5) * 0.5,
			(rng.Float32() - 0.5) * 0.5,
		}
		ray := geom.NewRay(origin, target.Sub(origin))

		bvhHit, bvhOk := mesh.RaycastFirst(ray, float32(math.Inf(1)), false)
		bruteHit, bruteOk := mesh.RaycastBruteForce(ray, float32(math.Inf(1)), false)

		if bvhOk != bruteOk {
			mismatches++
			continue
		}
		if bvhOk {
			delta := bvhHit.T - bruteHit.T
			if delta < 0 {
				delta = -delta
			}
			if delta > maxDelta {
				maxDelta = delta
			}
		}
	}

	logger.Noticef("%d rays cast, %d mismatches, max |Δt| = %g", rayCount, mismatches, maxDelta)
	return nil
}

func trianglesFromGeometry(positions []types.Vec3, indices []int) []geom.Triangle {
	tris := make([]geom.Triangle, 0, len(indices)/3)
	for i := 0; i < len(indices)/3; i++ {
		tris = append(tris, geom.Triangle{
			A:     positions[indices[i*3]],
			B:     positions[indices[i*3+1]],
			C:     positions[indices[i*3+2]],
			Index: i,
		})
	}
	return tris
}

// tessellateSphere builds a UV sphere of the given latitude/longitude
// resolution, returning a flat vertex list and a triangle index list.
func tessellateSphere(latSteps, lonSteps int) ([]types.Vec3, []int) {
	var positions []types.Vec3
	for lat := 0; lat <= latSteps; lat++ {
		theta := float64(lat) * math.Pi / float64(latSteps)
		sinTheta, cosTheta := math.Sin(theta), math.Cos(theta)
		for lon := 0; lon <= lonSteps; lon++ {
			phi := float64(lon) * 2 * math.Pi / float64(lonSteps)
			sinPhi, cosPhi := math.Sin(phi), math.Cos(phi)
			positions = append(positions, types.Vec3{
				float32(cosPhi * sinTheta),
				float32(cosTheta),
				float32(sinPhi * sinTheta),
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

func randomOnSphere(rng *rand.Rand, radius float32) types.Vec3 {
	theta := rng.Float64() * 2 * math.Pi
	phi := math.Acos(2*rng.Float64() - 1)
	return types.Vec3{
		radius * float32(math.Sin(phi)*math.Cos(theta)),
		radius * float32(math.Cos(phi)),
		radius * float32(math.Sin(phi)*math.Sin(theta)),
	}
}
