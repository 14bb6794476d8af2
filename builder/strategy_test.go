package builder

import (
	"testing"

	"github.com/go-spatial/bvh/geom"
	"github.com/go-spatial/bvh/types"
)

func spreadItems() []Item {
	items := make([]Item, 0, 8)
	for i := 0; i < 8; i++ {
		center := types.Vec3{float32(i) * 2, 0, 0}
		items = append(items, Item{
			Bounds:   geom.AABB{Min: center.Sub(types.Vec3{0.4, 0.4, 0.4}), Max: center.Add(types.Vec3{0.4, 0.4, 0.4})},
			ObjectID: int64(i),
		})
	}
	return items
}

func TestPartitionObjectMedianBalances(t *testing.T) {
	items := spreadItems()
	bounds := boundsOf(items)
	left, right, ok := partitionObjectMedian(items, bounds)
	if !ok {
		t.Fatal("expected object-median to find a split")
	}
	if len(left) != len(right) {
		t.Fatalf("expected balanced halves; got %d/%d", len(left), len(right))
	}
}

func TestPartitionSpatialMedianSplitsAtMidpoint(t *testing.T) {
	items := spreadItems()
	bounds := boundsOf(items)
	left, right, ok := partitionSpatialMedian(items, bounds)
	if !ok {
		t.Fatal("expected spatial-median to find a split")
	}
	mid := bounds.Center()[bounds.LongestAxis()]
	for _, item := range left {
		if item.Centroid()[bounds.LongestAxis()] >= mid {
			t.Fatal("found a left item whose centroid is not below the midpoint")
		}
	}
	for _, item := range right {
		if item.Centroid()[bounds.LongestAxis()] < mid {
			t.Fatal("found a right item whose centroid is below the midpoint")
		}
	}
}

func TestPartitionSAHReportsDegenerateForCoincidentCentroids(t *testing.T) {
	items := make([]Item, 10)
	for i := range items {
		items[i] = Item{Bounds: geom.AABB{Min: types.Vec3{0, 0, 0}, Max: types.Vec3{1, 1, 1}}, ObjectID: int64(i)}
	}
	bounds := boundsOf(items)
	_, _, outcome := partitionSAH(items, bounds, 4)
	if outcome != splitDegenerate {
		t.Fatalf("expected splitDegenerate when every centroid coincides; got %v", outcome)
	}
	// partition() must fall back to another strategy on a degenerate
	// result, not emit leaves outright.
	left, right, outcome := partition(items, bounds, SAH, 4)
	if outcome != splitFound || len(left) == 0 || len(right) == 0 {
		t.Fatalf("expected partition to fall back to a non-empty split; got outcome=%v left=%d right=%d", outcome, len(left), len(right))
	}
}

func TestPartitionSAHEmitsLeavesWhenSplitNotWorthwhile(t *testing.T) {
	// A handful of items packed tightly relative to maxLeafSize: any split
	// costs more than the traversal it buys, so the leaf-cost gate should
	// trip and report splitEmitLeaves distinctly from splitDegenerate.
	items := make([]Item, 3)
	for i := range items {
		center := types.Vec3{float32(i) * 0.01, 0, 0}
		items[i] = Item{
			Bounds:   geom.AABB{Min: center.Sub(types.Vec3{0.4, 0.4, 0.4}), Max: center.Add(types.Vec3{0.4, 0.4, 0.4})},
			ObjectID: int64(i),
		}
	}
	bounds := boundsOf(items)
	_, _, outcome := partitionSAH(items, bounds, 4)
	if outcome != splitEmitLeaves {
		t.Fatalf("expected splitEmitLeaves for a not-worth-splitting set within 2*maxLeafSize; got %v", outcome)
	}

	left, right, outcome := partition(items, bounds, SAH, 4)
	if outcome != splitEmitLeaves || left != nil || right != nil {
		t.Fatalf("expected partition to surface splitEmitLeaves without falling back to another strategy; got outcome=%v left=%d right=%d", outcome, len(left), len(right))
	}
}
