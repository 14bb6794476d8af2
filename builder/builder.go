// Package builder constructs a balanced binary tree from a flat set of
// bounded items in one pass, for callers that want to bulk-load a bvhtree.Tree
// (or a mesh bvh) instead of inserting objects one at a time. It has no
// dependency on bvhtree so that package can import builder without creating
// a cycle; callers translate BuiltNode back into their own node type.
package builder

import (
	"github.com/go-spatial/bvh/geom"
	"github.com/go-spatial/bvh/log"
)

// Strategy selects how a work list is partitioned at each level of the tree.
type Strategy int

const (
	// SAH scores every candidate split with the binned surface area
	// heuristic and keeps the cheapest one found.
	SAH Strategy = iota
	// ObjectMedian sorts the work list along its longest axis and splits
	// at the median element, guaranteeing balanced leaf counts.
	ObjectMedian
	// SpatialMedian splits at the midpoint of the node bounds along its
	// longest axis, regardless of how items fall on either side.
	SpatialMedian
)

// Item is a single object to be placed in the tree: its bounds, an opaque
// payload the caller gets back at query time, and the id the caller uses to
// address it later (e.g. to feed a bvhtree object map).
type Item struct {
	Bounds   geom.AABB
	Payload  interface{}
	ObjectID int64
}

// BuiltNode is a self-contained tree node produced by Build. It mirrors the
// shape callers need to translate into their own node representation: leaves
// carry exactly one item, internal nodes exactly two children.
type BuiltNode struct {
	Bounds geom.AABB
	Left   *BuiltNode
	Right  *BuiltNode

	IsLeaf   bool
	ObjectID int64
	Payload  interface{}
	Depth    uint32
}

// Stats summarizes a single Build call, mainly for logging.
type Stats struct {
	InputItems int
	NodeCount  int
	LeafCount  int
	MaxDepth   uint32
}

// costTraversal and costIntersection are the SAH's relative weights for
// visiting an internal node versus testing a leaf's contents, matching the
// commonly used 1.0/1.25 split (a leaf test is assumed a bit more expensive
// than descending one more level).
const (
	costTraversal    = 1.0
	costIntersection = 1.25
	sahBinCount      = 32

	// buildLoopSafetyMultiplier bounds the total number of work-stack
	// iterations Build will perform, as a function of input size, so a
	// pathological input (e.g. every item sharing one centroid) can't
	// spin forever chasing a split that never separates anything.
	buildLoopSafetyMultiplier = 2
	buildLoopSafetyConstant   = 1000
)

type buildTask struct {
	items []Item
	depth uint32
	dest  **BuiltNode
}

// Build partitions items into a tree using an explicit work stack rather
// than recursion. A subset of at most maxLeafSize items is not partitioned
// further; its items are nested as single-item leaves. An empty items slice
// returns a nil root. maxLeafSize is clamped to >= 1.
func Build(items []Item, maxLeafSize uint32, strategy Strategy) (*BuiltNode, Stats) {
	stats := Stats{InputItems: len(items)}
	if len(items) == 0 {
		return nil, stats
	}
	if maxLeafSize < 1 {
		maxLeafSize = 1
	}

	var root *BuiltNode
	stack := []buildTask{{items: items, depth: 0, dest: &root}}
	safetyCap := len(items)*buildLoopSafetyMultiplier + buildLoopSafetyConstant
	steps := 0

	for len(stack) > 0 {
		steps++
		if steps > safetyCap {
			// Emit everything still queued as leaves (possibly
			// oversized) rather than looping indefinitely.
			log.New("builder").Warning("builder: build loop exceeded safety cap, force-emitting remaining subsets as leaves")
			for _, task := range stack {
				*task.dest = makeLeafGroup(task.items, task.depth)
				stats.LeafCount++
				stats.NodeCount++
				if task.depth > stats.MaxDepth {
					stats.MaxDepth = task.depth
				}
			}
			break
		}

		task := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if task.depth > stats.MaxDepth {
			stats.MaxDepth = task.depth
		}

		if uint32(len(task.items)) <= maxLeafSize {
			*task.dest = makeLeafGroup(task.items, task.depth)
			stats.LeafCount++
			stats.NodeCount++
			continue
		}

		bounds := boundsOf(task.items)
		left, right, outcome := partition(task.items, bounds, strategy, maxLeafSize)
		switch outcome {
		case splitEmitLeaves:
			// The heuristic judged no split worth taking and the set
			// is small enough to bound as leaves outright; stop
			// subdividing rather than force a split with another
			// strategy.
			*task.dest = makeLeafGroup(task.items, task.depth)
			stats.LeafCount++
			stats.NodeCount++
			continue
		case splitDegenerate:
			// No strategy could separate the set (e.g. every item
			// shares one centroid): fall back to an even split by
			// index so the tree still terminates.
			left, right = splitInHalf(task.items)
		}
		if len(left) == 0 || len(right) == 0 {
			*task.dest = makeLeafGroup(task.items, task.depth)
			stats.LeafCount++
			stats.NodeCount++
			continue
		}

		node := &BuiltNode{Bounds: bounds, Depth: task.depth}
		*task.dest = node
		stats.NodeCount++

		// The work stack is LIFO; push right before left so left ends up
		// on top and is processed first, per the specified subset order.
		stack = append(stack,
			buildTask{items: right, depth: task.depth + 1, dest: &node.Right},
			buildTask{items: left, depth: task.depth + 1, dest: &node.Left},
		)
	}

	return root, stats
}

// makeLeafGroup builds a chain of single-item leaves for a work list that
// has reached the leaf threshold, using the standard incremental-insert cost
// heuristic to decide how to nest them: the caller's own bvhtree does the
// same thing for one-at-a-time inserts, so a subset built here nests the
// same way a set of individual Insert calls would.
func makeLeafGroup(items []Item, depth uint32) *BuiltNode {
	if len(items) == 1 {
		return &BuiltNode{
			Bounds:   items[0].Bounds,
			IsLeaf:   true,
			ObjectID: items[0].ObjectID,
			Payload:  items[0].Payload,
			Depth:    depth,
		}
	}

	root := &BuiltNode{
		Bounds:   items[0].Bounds,
		IsLeaf:   true,
		ObjectID: items[0].ObjectID,
		Payload:  items[0].Payload,
		Depth:    depth,
	}
	for _, item := range items[1:] {
		root = insertIntoGroup(root, item, depth)
	}
	return root
}

// insertIntoGroup adds a single item into a small already-built subtree,
// descending toward whichever child's bounds would grow least, exactly as
// bvhtree's own incremental insert does.
func insertIntoGroup(root *BuiltNode, item Item, baseDepth uint32) *BuiltNode {
	newLeaf := &BuiltNode{Bounds: item.Bounds, IsLeaf: true, ObjectID: item.ObjectID, Payload: item.Payload}

	node := root
	for {
		if node.IsLeaf {
			union := node.Bounds.Union(newLeaf.Bounds)
			old := &BuiltNode{Bounds: node.Bounds, IsLeaf: true, ObjectID: node.ObjectID, Payload: node.Payload}
			node.IsLeaf = false
			node.ObjectID = 0
			node.Payload = nil
			node.Bounds = union
			node.Left = old
			node.Right = newLeaf
			break
		}

		node.Bounds = node.Bounds.Union(newLeaf.Bounds)
		growLeft := geom.UnionVolume(node.Left.Bounds, newLeaf.Bounds) - node.Left.Bounds.Volume()
		growRight := geom.UnionVolume(node.Right.Bounds, newLeaf.Bounds) - node.Right.Bounds.Volume()
		if growRight < growLeft {
			node = node.Right
		} else {
			node = node.Left
		}
	}

	fixDepths(root, baseDepth)
	return root
}

// fixDepths reassigns Depth across a freshly restructured small subtree,
// iteratively, since insertIntoGroup doesn't track it incrementally.
func fixDepths(root *BuiltNode, baseDepth uint32) {
	type frame struct {
		node  *BuiltNode
		depth uint32
	}
	stack := []frame{{root, baseDepth}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		top.node.Depth = top.depth
		if !top.node.IsLeaf {
			stack = append(stack, frame{top.node.Left, top.depth + 1}, frame{top.node.Right, top.depth + 1})
		}
	}
}

func boundsOf(items []Item) geom.AABB {
	b := geom.EmptyAABB()
	for _, item := range items {
		b = b.Union(item.Bounds)
	}
	return b
}

func splitInHalf(items []Item) ([]Item, []Item) {
	mid := len(items) / 2
	left := make([]Item, mid)
	right := make([]Item, len(items)-mid)
	copy(left, items[:mid])
	copy(right, items[mid:])
	return left, right
}
