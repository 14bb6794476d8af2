// Package bvhtree implements a dynamic bounding volume hierarchy over
// opaque payloads. Objects carry a caller-supplied AABB; the tree only
// borrows a handle to the payload and never allocates or frees it.
package bvhtree

import (
	"github.com/go-spatial/bvh/geom"
	"github.com/go-spatial/bvh/log"
)

const (
	defaultMaxLeafSize = 8
	defaultMaxDepth    = 32
)

// Tree is a dynamic, single-threaded object BVH. It is not safe for
// concurrent mutation; callers that need concurrent read-only queries must
// ensure the tree is quiescent for the duration.
type Tree struct {
	root *Node

	maxLeafSize uint32
	maxDepth    uint32

	// enableSAH is vestigial advisory state carried over from the source
	// project; the authoritative control over partitioning is the
	// Strategy argument passed to Rebuild.
	enableSAH bool

	count     uint32
	objectMap map[uint64]*Node
	nextID    uint64

	logger log.Logger
}

// NewTree creates an empty object BVH. A zero maxLeafSize or maxDepth is
// replaced by its default (8 and 32 respectively).
func NewTree(maxLeafSize, maxDepth uint32, enableSAH bool) *Tree {
	if maxLeafSize < 1 {
		maxLeafSize = defaultMaxLeafSize
	}
	if maxDepth < 1 {
		maxDepth = defaultMaxDepth
	}
	return &Tree{
		maxLeafSize: maxLeafSize,
		maxDepth:    maxDepth,
		enableSAH:   enableSAH,
		objectMap:   make(map[uint64]*Node),
		logger:      log.New("bvhtree"),
	}
}

// Count returns the number of live payloads currently tracked.
func (t *Tree) Count() int {
	return int(t.count)
}

// Insert adds a new object with the given bounds and payload, returning the
// freshly allocated object id. Invalid (e.g. empty or degenerate) bounds
// are accepted as-is; the tree performs no validation on insert, matching
// its "never fails" contract.
func (t *Tree) Insert(bounds geom.AABB, payload interface{}) uint64 {
	id := t.nextID
	t.nextID++

	leaf := makeLeaf(bounds, payload, int64(id), 0)
	t.objectMap[id] = leaf
	t.root = insertSubtree(t.root, leaf, t.maxDepth, t.objectMap)
	t.count++
	return id
}

// insertSubtree performs the cost-driven iterative descent described in
// §4.3: at each internal node, follow whichever child's bounds would grow
// least by absorbing leaf, updating that node's bounds on the way down so
// no separate upward refit pass is needed for the visited ancestors.
// objectMap is repointed at whichever node ends up holding a payload that
// this call places or moves.
func insertSubtree(root *Node, leaf *Node, maxDepth uint32, objectMap map[uint64]*Node) *Node {
	if root == nil {
		leaf.Depth = 0
		return leaf
	}

	node := root
	for {
		if node.IsLeaf() {
			if !node.HasPayload() {
				node.ObjectID = leaf.ObjectID
				node.Payload = leaf.Payload
				node.Bounds = leaf.Bounds
				objectMap[uint64(leaf.ObjectID)] = node
				return root
			}
			leaf.Depth = node.Depth + 1
			oldLeaf := splitLeafInPlace(node, leaf)
			objectMap[uint64(oldLeaf.ObjectID)] = oldLeaf
			return root
		}

		node.Bounds = node.Bounds.Union(leaf.Bounds)

		if node.Depth >= maxDepth-1 {
			forceSplitChild(node, leaf)
			return root
		}

		growLeft := geom.UnionVolume(node.Left.Bounds, leaf.Bounds) - node.Left.Bounds.Volume()
		growRight := geom.UnionVolume(node.Right.Bounds, leaf.Bounds) - node.Right.Bounds.Volume()
		if growRight < growLeft {
			node = node.Right
		} else {
			node = node.Left
		}
	}
}

// splitLeafInPlace converts the populated leaf node into an internal node
// holding its old payload and the new leaf as two children, ordered by the
// midpoint of their bounds along the longest axis of the union (smaller
// midpoint goes left; ties go left). It returns the fresh leaf that now
// carries the old payload.
func splitLeafInPlace(node *Node, newLeaf *Node) *Node {
	oldLeaf := makeLeaf(node.Bounds, node.Payload, node.ObjectID, newLeaf.Depth)
	union := node.Bounds.Union(newLeaf.Bounds)
	axis := union.LongestAxis()

	node.resetAsInternal()
	node.Bounds = union

	if newLeaf.Bounds.Center()[axis] < oldLeaf.Bounds.Center()[axis] {
		node.setLeft(newLeaf)
		node.setRight(oldLeaf)
	} else {
		node.setLeft(oldLeaf)
		node.setRight(newLeaf)
	}
	return oldLeaf
}

// forceSplitChild handles the depth-budget-exhausted case: rather than
// descending further, it wraps the cheaper child and the new leaf under a
// fresh internal node, replacing that child's slot in place. The wrapper
// sits at node.Depth+1, so both of its children (the re-parented old
// subtree and the new leaf) sit at node.Depth+2.
func forceSplitChild(node *Node, leaf *Node) {
	growLeft := geom.UnionVolume(node.Left.Bounds, leaf.Bounds) - node.Left.Bounds.Volume()
	growRight := geom.UnionVolume(node.Right.Bounds, leaf.Bounds) - node.Right.Bounds.Volume()

	leaf.Depth = node.Depth + 2
	if growRight < growLeft {
		old := node.Right
		incrementDepth(old, 1)
		wrapper := makeInternal(old.Bounds.Union(leaf.Bounds), old, leaf, node.Depth+1)
		node.setRight(wrapper)
	} else {
		old := node.Left
		incrementDepth(old, 1)
		wrapper := makeInternal(old.Bounds.Union(leaf.Bounds), old, leaf, node.Depth+1)
		node.setLeft(wrapper)
	}
}

// incrementDepth adds delta to the Depth of every node in the subtree
// rooted at n, iteratively. Used whenever a subtree is re-parented one
// level deeper (or shallower, with a negative delta).
func incrementDepth(n *Node, delta int) {
	if n == nil {
		return
	}
	stack := []*Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		cur.Depth = uint32(int(cur.Depth) + delta)
		if !cur.leaf {
			if cur.Left != nil {
				stack = append(stack, cur.Left)
			}
			if cur.Right != nil {
				stack = append(stack, cur.Right)
			}
		}
	}
}

// Update replaces an object's bounds in place and refits ancestors. It
// performs no rebalancing; callers driving many updates per frame should
// watch the dirty ratio and call Rebuild when the tree degrades.
func (t *Tree) Update(objectID uint64, newBounds geom.AABB) bool {
	leaf, ok := t.objectMap[objectID]
	if !ok {
		return false
	}
	leaf.Bounds = newBounds
	walkUpwardsRefit(leaf.Parent)
	return true
}

// Remove detaches an object from the tree. If the removed leaf had a
// sibling, the sibling is spliced into the grandparent's slot; otherwise
// the parent becomes an empty leaf. Ancestors are refit afterward.
func (t *Tree) Remove(objectID uint64) bool {
	leaf, ok := t.objectMap[objectID]
	if !ok {
		return false
	}
	delete(t.objectMap, objectID)
	t.count--

	if leaf == t.root {
		t.root = nil
		return true
	}

	parent := leaf.Parent
	sib := leaf.sibling()

	if sib == nil {
		parent.leaf = true
		parent.Left, parent.Right = nil, nil
		parent.ObjectID = noObject
		parent.Payload = nil
		parent.Bounds = geom.EmptyAABB()
		walkUpwardsRefit(parent.Parent)
		return true
	}

	grandparent := parent.Parent
	incrementDepth(sib, -1)
	if grandparent == nil {
		sib.Parent = nil
		t.root = sib
	} else if grandparent.Left == parent {
		grandparent.setLeft(sib)
	} else {
		grandparent.setRight(sib)
	}
	walkUpwardsRefit(sib)
	return true
}

// Clear removes every object and resets the tree to empty. next id
// allocation is left untouched so previously issued ids never recur.
func (t *Tree) Clear() {
	t.root = nil
	t.count = 0
	t.objectMap = make(map[uint64]*Node)
}
