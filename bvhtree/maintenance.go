package bvhtree

import (
	"fmt"

	"github.com/go-spatial/bvh/builder"
	"github.com/go-spatial/bvh/geom"
)

// Refit recomputes every internal node's bounds from its children in a
// single pass. Nodes are collected via an iterative depth-first sweep, then
// processed in order of descending depth so that a parent is always refit
// after both of its children.
func (t *Tree) Refit() {
	if t.root == nil {
		return
	}

	var nodes []*Node
	traverse(t.root, func(n *Node) bool {
		nodes = append(nodes, n)
		return true
	})

	// Stable sort by descending depth via counting buckets: depths are
	// small, bounded integers, so this avoids sort.Slice's comparator
	// overhead in a routine that runs every maintenance tick.
	maxDepth := uint32(0)
	for _, n := range nodes {
		if n.Depth > maxDepth {
			maxDepth = n.Depth
		}
	}
	buckets := make([][]*Node, maxDepth+1)
	for _, n := range nodes {
		buckets[n.Depth] = append(buckets[n.Depth], n)
	}
	for d := int(maxDepth); d >= 0; d-- {
		for _, n := range buckets[d] {
			n.recomputeBoundsFromChildren()
		}
	}
}

// Rebuild collects every live leaf, discards the current topology, and
// reconstructs the tree from scratch using strategy. next id allocation is
// left untouched.
func (t *Tree) Rebuild(strategy builder.Strategy) {
	if t.root == nil {
		return
	}

	items := make([]builder.Item, 0, t.count)
	traverse(t.root, func(n *Node) bool {
		if n.HasPayload() {
			items = append(items, builder.Item{
				Bounds:   n.Bounds,
				Payload:  n.Payload,
				ObjectID: n.ObjectID,
			})
		}
		return true
	})

	built, _ := builder.Build(items, t.maxLeafSize, strategy)

	t.root = convertBuiltTree(built)
	t.objectMap = make(map[uint64]*Node, len(items))
	if t.root != nil {
		traverse(t.root, func(n *Node) bool {
			if n.HasPayload() {
				t.objectMap[uint64(n.ObjectID)] = n
			}
			return true
		})
	}
}

// convertBuiltTree adapts the builder's own BuiltNode tree into a
// pointer/parent-backref Node tree, iteratively.
func convertBuiltTree(root *builder.BuiltNode) *Node {
	if root == nil {
		return nil
	}
	newRoot := nodeFromBuilt(root)

	type pending struct {
		built *builder.BuiltNode
		node  *Node
	}
	stack := []pending{{root, newRoot}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if top.built.IsLeaf {
			continue
		}
		left := nodeFromBuilt(top.built.Left)
		right := nodeFromBuilt(top.built.Right)
		top.node.setLeft(left)
		top.node.setRight(right)
		stack = append(stack, pending{top.built.Left, left}, pending{top.built.Right, right})
	}
	return newRoot
}

func nodeFromBuilt(b *builder.BuiltNode) *Node {
	if b.IsLeaf {
		return makeLeaf(b.Bounds, b.Payload, b.ObjectID, b.Depth)
	}
	return &Node{Bounds: b.Bounds, Depth: b.Depth}
}

// Stats is a point-in-time snapshot of tree shape.
type Stats struct {
	NodeCount           int
	LeafCount           int
	MaxDepth            uint32
	BalanceFactor       float32
	ObjectCount         int
	MemoryUsageEstimate int
}

// approxNodeSize is a rough per-node memory estimate (bounds + bookkeeping
// fields + a pointer-sized payload handle) used only for Stats' informative
// MemoryUsageEstimate field.
const approxNodeSize = 96

// Stats reports node/leaf counts, depth, balance, and a rough memory
// estimate. Traversal is iterative with a visited-set cycle guard.
func (t *Tree) Stats() Stats {
	s := Stats{ObjectCount: int(t.count)}
	if t.root == nil {
		return s
	}

	visited := make(map[*Node]bool)
	traverse(t.root, func(n *Node) bool {
		if visited[n] {
			return false
		}
		visited[n] = true
		s.NodeCount++
		if n.IsLeaf() {
			s.LeafCount++
		}
		if n.Depth > s.MaxDepth {
			s.MaxDepth = n.Depth
		}
		return true
	})
	s.MemoryUsageEstimate = s.NodeCount * approxNodeSize

	s.BalanceFactor = 1.0
	if !t.root.IsLeaf() && t.root.Left != nil && t.root.Right != nil {
		leftDepth := subtreeMaxDepth(t.root.Left)
		rightDepth := subtreeMaxDepth(t.root.Right)
		if leftDepth > 0 && rightDepth > 0 {
			lo, hi := leftDepth, rightDepth
			if hi < lo {
				lo, hi = hi, lo
			}
			s.BalanceFactor = float32(lo) / float32(hi)
		}
	}
	return s
}

func subtreeMaxDepth(root *Node) uint32 {
	max := uint32(0)
	traverse(root, func(n *Node) bool {
		if n.Depth > max {
			max = n.Depth
		}
		return true
	})
	return max
}

// ValidationError describes a single structural defect found by Validate.
type ValidationError struct {
	Kind    string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Validate walks the entire tree checking every invariant in §8 and
// returns a structured report; it never panics on a malformed tree.
func (t *Tree) Validate() (bool, []ValidationError) {
	var errs []ValidationError
	if t.root == nil {
		if len(t.objectMap) != 0 {
			errs = append(errs, ValidationError{"map-mismatch", "object map non-empty on an empty tree"})
		}
		return len(errs) == 0, errs
	}

	visited := make(map[*Node]bool)
	seenIDs := make(map[int64]bool)
	populated := 0

	type frame struct {
		node          *Node
		expectedDepth uint32
	}
	stack := []frame{{t.root, 0}}
	steps := 0

	for len(stack) > 0 {
		steps++
		if steps > stackSafetyCap {
			errs = append(errs, ValidationError{"cycle", "traversal exceeded safety cap; the child graph likely has a cycle"})
			break
		}
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := top.node

		if visited[n] {
			errs = append(errs, ValidationError{"cycle", "node visited more than once"})
			continue
		}
		visited[n] = true

		if n.Depth != top.expectedDepth {
			errs = append(errs, ValidationError{"depth-mismatch", fmt.Sprintf("node at expected depth %d has Depth=%d", top.expectedDepth, n.Depth)})
		}

		if n.IsLeaf() {
			if n.Left != nil || n.Right != nil {
				errs = append(errs, ValidationError{"leaf-with-children", "leaf node has a non-nil child"})
			}
			if n.HasPayload() {
				populated++
				if seenIDs[n.ObjectID] {
					errs = append(errs, ValidationError{"duplicate-id", fmt.Sprintf("object id %d appears more than once", n.ObjectID)})
				}
				seenIDs[n.ObjectID] = true

				mapped, ok := t.objectMap[uint64(n.ObjectID)]
				if !ok {
					errs = append(errs, ValidationError{"missing-map-entry", fmt.Sprintf("object id %d has no object map entry", n.ObjectID)})
				} else if mapped != n {
					errs = append(errs, ValidationError{"map-mismatch", fmt.Sprintf("object map entry for id %d points to a different node", n.ObjectID)})
				}
			}
			continue
		}

		if n.Left == nil {
			errs = append(errs, ValidationError{"missing-left-child", "internal node has no left child"})
		} else {
			if n.Left.Parent != n {
				errs = append(errs, ValidationError{"dangling-parent", "left child's parent back-reference is wrong"})
			}
			stack = append(stack, frame{n.Left, n.Depth + 1})
		}
		if n.Right != nil {
			if n.Right.Parent != n {
				errs = append(errs, ValidationError{"dangling-parent", "right child's parent back-reference is wrong"})
			}
			stack = append(stack, frame{n.Right, n.Depth + 1})
		}

		expected := geom.EmptyAABB()
		if n.Left != nil {
			expected = expected.Union(n.Left.Bounds)
		}
		if n.Right != nil {
			expected = expected.Union(n.Right.Bounds)
		}
		if expected != n.Bounds {
			errs = append(errs, ValidationError{"bounds-mismatch", "internal node bounds do not equal the union of its children"})
		}
	}

	if populated != int(t.count) {
		errs = append(errs, ValidationError{"count-mismatch", fmt.Sprintf("found %d populated leaves, tree.count is %d", populated, t.count)})
	}
	if len(t.objectMap) != populated {
		errs = append(errs, ValidationError{"map-mismatch", fmt.Sprintf("object map has %d entries, found %d populated leaves", len(t.objectMap), populated)})
	}

	return len(errs) == 0, errs
}
