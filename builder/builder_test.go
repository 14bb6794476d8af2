package builder

import (
	"math/rand"
	"testing"

	"github.com/go-spatial/bvh/geom"
	"github.com/go-spatial/bvh/types"
)

func gridItems() []Item {
	items := make([]Item, 0, 64)
	id := int64(0)
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			for z := 0; z < 4; z++ {
				center := types.Vec3{float32(x) * 3, float32(y) * 3, float32(z) * 3}
				items = append(items, Item{
					Bounds:   geom.AABB{Min: center.Sub(types.Vec3{0.5, 0.5, 0.5}), Max: center.Add(types.Vec3{0.5, 0.5, 0.5})},
					Payload:  id,
					ObjectID: id,
				})
				id++
			}
		}
	}
	return items
}

func countTree(root *BuiltNode) (nodes, leaves int, items int) {
	if root == nil {
		return 0, 0, 0
	}
	stack := []*BuiltNode{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nodes++
		if n.IsLeaf {
			leaves++
			items++
			continue
		}
		stack = append(stack, n.Left, n.Right)
	}
	return
}

func TestBuildEmptyReturnsNilRoot(t *testing.T) {
	root, stats := Build(nil, 4, SAH)
	if root != nil {
		t.Fatal("expected nil root for empty input")
	}
	if stats.InputItems != 0 {
		t.Fatalf("expected 0 input items recorded; got %d", stats.InputItems)
	}
}

func TestBuildEveryItemReachable(t *testing.T) {
	for _, strategy := range []Strategy{SAH, ObjectMedian, SpatialMedian} {
		items := gridItems()
		root, _ := Build(items, 4, strategy)
		_, _, itemCount := countTree(root)
		if itemCount != len(items) {
			t.Fatalf("strategy %d: expected %d items reachable from the built tree; got %d", strategy, len(items), itemCount)
		}
	}
}

func TestBuildBoundsCoverAllItems(t *testing.T) {
	items := gridItems()
	root, _ := Build(items, 4, SAH)

	overall := geom.EmptyAABB()
	for _, item := range items {
		overall = overall.Union(item.Bounds)
	}
	if root.Bounds != overall {
		t.Fatalf("expected root bounds to equal the union of all items; got %v want %v", root.Bounds, overall)
	}
}

func TestBuildLeavesAreSingleItem(t *testing.T) {
	// Builder leaves always hold exactly one item: a subset at or below
	// max_leaf_size is placed via the standard one-by-one incremental
	// insert, which never groups more than one payload per leaf.
	items := gridItems()
	root, _ := Build(items, 4, ObjectMedian)

	stack := []*BuiltNode{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.IsLeaf {
			if n.ObjectID < 0 {
				t.Fatal("expected every leaf to carry a valid object id")
			}
			continue
		}
		if n.Left == nil || n.Right == nil {
			t.Fatal("expected every internal node to have both children")
		}
		stack = append(stack, n.Left, n.Right)
	}
}

func TestBuildDegenerateInputFallsBackToLeaves(t *testing.T) {
	// Every item shares the exact same bounds: no strategy can separate
	// them by centroid, so Build must still terminate and place every
	// item somewhere reachable.
	items := make([]Item, 20)
	for i := range items {
		items[i] = Item{
			Bounds:   geom.AABB{Min: types.Vec3{0, 0, 0}, Max: types.Vec3{1, 1, 1}},
			Payload:  i,
			ObjectID: int64(i),
		}
	}

	root, _ := Build(items, 4, SAH)
	_, _, itemCount := countTree(root)
	if itemCount != len(items) {
		t.Fatalf("expected all %d degenerate items reachable; got %d", len(items), itemCount)
	}
}

func TestBuildRandomPopulationTerminates(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	items := make([]Item, 2000)
	for i := range items {
		center := types.Vec3{(rng.Float32() - 0.5) * 500, (rng.Float32() - 0.5) * 500, (rng.Float32() - 0.5) * 500}
		items[i] = Item{
			Bounds:   geom.AABB{Min: center, Max: center.Add(types.Vec3{1, 1, 1})},
			Payload:  i,
			ObjectID: int64(i),
		}
	}

	root, stats := Build(items, 8, SAH)
	if stats.NodeCount == 0 {
		t.Fatal("expected a non-trivial tree for 2000 items")
	}
	_, _, itemCount := countTree(root)
	if itemCount != len(items) {
		t.Fatalf("expected all %d items reachable; got %d", len(items), itemCount)
	}
}
