package bvhtree

import "github.com/go-spatial/bvh/geom"

// refitSafetyCap bounds the iterative upward walk used after a leaf's
// bounds change. 64 comfortably exceeds any tree built with the default
// max depth of 32; if it's ever exhausted the parent chain has a cycle,
// which is a bug, not a case the tree needs to run fast for.
const refitSafetyCap = 64

// noObject is the sentinel ObjectID for a node with no payload, e.g. a
// parent turned into an empty leaf during Remove when the removed leaf had no
// sibling.
const noObject int64 = -1

// Node is an arena-owned tree node: an internal node with exactly two
// children (Left always populated; Right only transiently absent) or a leaf
// carrying a payload. Parent is a non-owning back-reference used only to
// walk upward during refit and remove.
type Node struct {
	Bounds geom.AABB
	Depth  uint32

	Left, Right *Node
	Parent      *Node

	leaf     bool
	ObjectID int64
	Payload  interface{}
}

// IsLeaf reports whether the node is a leaf (it may still be "empty", i.e.
// carry no payload, transiently between operations).
func (n *Node) IsLeaf() bool {
	return n.leaf
}

// HasPayload reports whether a leaf actually holds an object.
func (n *Node) HasPayload() bool {
	return n.leaf && n.ObjectID >= 0
}

func makeLeaf(bounds geom.AABB, payload interface{}, objectID int64, depth uint32) *Node {
	return &Node{
		Bounds:   bounds,
		Depth:    depth,
		leaf:     true,
		ObjectID: objectID,
		Payload:  payload,
	}
}

func makeInternal(bounds geom.AABB, left, right *Node, depth uint32) *Node {
	n := &Node{Bounds: bounds, Depth: depth}
	n.setLeft(left)
	n.setRight(right)
	return n
}

func (n *Node) setLeft(child *Node) {
	n.Left = child
	if child != nil {
		child.Parent = n
	}
}

func (n *Node) setRight(child *Node) {
	n.Right = child
	if child != nil {
		child.Parent = n
	}
}

// resetAsInternal converts a populated leaf into an empty internal node,
// clearing its payload. The caller is responsible for attaching children.
func (n *Node) resetAsInternal() {
	n.leaf = false
	n.ObjectID = noObject
	n.Payload = nil
}

// recomputeBoundsFromChildren sets n.Bounds to the union of its children's
// bounds, or the left child's bounds alone when Right is transiently absent.
// A leaf's bounds are authoritative (set directly by the caller), so this
// is a no-op for leaves; callers can pass a leaf as the start of a refit
// walk without special-casing it.
func (n *Node) recomputeBoundsFromChildren() {
	if n.leaf {
		return
	}
	if n.Right == nil {
		n.Bounds = n.Left.Bounds
		return
	}
	n.Bounds = n.Left.Bounds.Union(n.Right.Bounds)
}

// walkUpwardsRefit recomputes bounds from n up to the root, iteratively.
// A cap on the number of steps guards against a corrupted parent chain; if
// the cap is exhausted the loop simply stops, leaving the topmost
// unrefitted ancestor's bounds stale rather than looping forever.
func walkUpwardsRefit(n *Node) {
	for steps := 0; n != nil && steps < refitSafetyCap; steps++ {
		n.recomputeBoundsFromChildren()
		n = n.Parent
	}
}

// sibling returns the other child of n's parent, or nil if n is the root or
// the sibling slot is empty.
func (n *Node) sibling() *Node {
	if n.Parent == nil {
		return nil
	}
	if n.Parent.Left == n {
		return n.Parent.Right
	}
	return n.Parent.Left
}

// traverse walks the subtree rooted at n depth-first, left before right,
// using an explicit stack. visit returning false prunes that node's subtree.
func traverse(root *Node, visit func(*Node) bool) {
	if root == nil {
		return
	}
	stack := []*Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !visit(n) {
			continue
		}
		if !n.leaf {
			if n.Right != nil {
				stack = append(stack, n.Right)
			}
			if n.Left != nil {
				stack = append(stack, n.Left)
			}
		}
	}
}
