package cmd

import (
	"fmt"
	"math/rand"

	"github.com/go-spatial/bvh/bvhtree"
	"github.com/go-spatial/bvh/geom"
	"github.com/go-spatial/bvh/types"
	"github.com/urfave/cli"
)

// Raycast reproduces the two-cubes seed scenario against a tree that also
// contains a random scatter of decoy AABBs, then reports raycast and
// raycast_first results.
func Raycast(ctx *cli.Context) error {
	setupLogging(ctx)

	tree := bvhtree.NewTree(8, 32, true)
	tree.Insert(geom.AABB{Min: types.Vec3{-2, -1, -1}, Max: types.Vec3{-1, 1, 1}}, "cube-a")
	tree.Insert(geom.AABB{Min: types.Vec3{1, -1, -1}, Max: types.Vec3{2, 1, 1}}, "cube-b")

	rng := rand.New(rand.NewSource(int64(ctx.Int("seed"))))
	for i := 0; i < ctx.Int("decoys"); i++ {
		center := types.Vec3{
			(rng.Float32() - 0.5) * 40,
			(rng.Float32()-0.5)*40 + 20,
			(rng.Float32() - 0.5) * 40,
		}
		tree.Insert(geom.AABB{Min: center.Sub(types.Vec3{1, 1, 1}), Max: center.Add(types.Vec3{1, 1, 1})}, fmt.Sprintf("decoy-%d", i))
	}

	ray := geom.NewRay(types.Vec3{-10, 0, 0}, types.Vec3{1, 0, 0})
	hits := tree.Raycast(ray, 100)
	logger.Noticef("raycast found %d hit(s)", len(hits))
	for _, h := range hits {
		logger.Noticef("  payload=%v t=%.3f point=%v", h.Payload, h.T, h.Point)
	}

	first, ok := tree.RaycastFirst(ray, 100)
	if !ok {
		logger.Notice("raycast_first: no hit")
		return nil
	}
	logger.Noticef("raycast_first: payload=%v t=%.3f", first.Payload, first.T)
	return nil
}
