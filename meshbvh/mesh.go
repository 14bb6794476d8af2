// Package meshbvh builds a static, triangle-level bounding volume hierarchy
// over a mesh and answers ray casts against it with the exact
// Moller-Trumbore kernel rather than an AABB proxy.
package meshbvh

import (
	"github.com/go-spatial/bvh/builder"
	"github.com/go-spatial/bvh/geom"
	"github.com/go-spatial/bvh/log"
	"github.com/go-spatial/bvh/types"
)

const (
	defaultMaxLeafTriangles = 10
	defaultMaxDepth         = 40
)

// node is the mesh BVH's own tree representation: a leaf holds every
// triangle assigned to it (unlike the object BVH, which holds exactly one
// payload per leaf), since a mesh leaf groups several small triangles that
// share a bounding region.
type node struct {
	bounds geom.AABB
	depth  uint32

	left, right *node

	isLeaf    bool
	triangles []geom.Triangle
}

// Mesh is a static triangle BVH: it must be rebuilt from scratch if the
// underlying geometry changes shape.
type Mesh struct {
	root      *node
	triangles []geom.Triangle

	maxLeafTriangles uint32
	maxDepth         uint32
	strategy         builder.Strategy

	logger log.Logger
}

// Hit is a single ray-triangle intersection result.
type Hit struct {
	TriangleIndex int
	T             float32
	Point         types.Vec3
	U, V, W       float32
	Normal        types.Vec3
	Payload       interface{}
}

// Stats is a point-in-time snapshot of a mesh BVH's shape.
type Stats struct {
	NodeCount     int
	LeafCount     int
	MaxDepth      uint32
	TriangleCount int
}

// BuildFromGeometry assembles triangles from a flat position array (length
// 3*V) and an optional index array (length 3*T). When indices is nil, every
// three consecutive positions form one triangle. payloadOf, if non-nil, is
// called once per triangle (by triangle index) to attach an opaque handle.
func BuildFromGeometry(positions []types.Vec3, indices []int, payloadOf func(triangleIndex int) interface{}, maxLeafTriangles, maxDepth uint32, strategy builder.Strategy) *Mesh {
	var triCount int
	if indices != nil {
		triCount = len(indices) / 3
	} else {
		triCount = len(positions) / 3
	}

	triangles := make([]geom.Triangle, 0, triCount)
	for i := 0; i < triCount; i++ {
		var a, b, c types.Vec3
		if indices != nil {
			a = positions[indices[i*3]]
			b = positions[indices[i*3+1]]
			c = positions[indices[i*3+2]]
		} else {
			a = positions[i*3]
			b = positions[i*3+1]
			c = positions[i*3+2]
		}
		var payload interface{}
		if payloadOf != nil {
			payload = payloadOf(i)
		}
		triangles = append(triangles, geom.Triangle{A: a, B: b, C: c, Index: i, Payload: payload})
	}

	return BuildFromTriangles(triangles, maxLeafTriangles, maxDepth, strategy)
}

// BuildFromTriangles builds a mesh BVH directly from an already-assembled
// triangle list, using the same iterative work-stack partitioning as the
// object BVH's batch builder, adapted to triangle centroids/bounds.
func BuildFromTriangles(triangles []geom.Triangle, maxLeafTriangles, maxDepth uint32, strategy builder.Strategy) *Mesh {
	if maxLeafTriangles < 1 {
		maxLeafTriangles = defaultMaxLeafTriangles
	}
	if maxDepth < 1 {
		maxDepth = defaultMaxDepth
	}

	m := &Mesh{
		triangles:        triangles,
		maxLeafTriangles: maxLeafTriangles,
		maxDepth:         maxDepth,
		strategy:         strategy,
		logger:           log.New("meshbvh"),
	}
	m.root = m.build(triangles)
	return m
}

type buildTask struct {
	tris  []geom.Triangle
	depth uint32
	dest  **node
}

func (m *Mesh) build(triangles []geom.Triangle) *node {
	if len(triangles) == 0 {
		return nil
	}

	var root *node
	stack := []buildTask{{tris: triangles, depth: 0, dest: &root}}
	safetyCap := len(triangles)*2 + 1000
	steps := 0

	for len(stack) > 0 {
		steps++
		if steps > safetyCap {
			m.logger.Warning("meshbvh: build loop exceeded safety cap, force-emitting remaining subsets as leaves")
			for _, task := range stack {
				*task.dest = makeTriLeaf(task.tris, task.depth)
			}
			break
		}

		task := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if uint32(len(task.tris)) <= m.maxLeafTriangles || task.depth >= m.maxDepth {
			*task.dest = makeTriLeaf(task.tris, task.depth)
			continue
		}

		bounds := triBounds(task.tris)
		left, right, ok := partitionTriangles(task.tris, bounds, m.strategy)
		if !ok || len(left) == 0 || len(right) == 0 {
			*task.dest = makeTriLeaf(task.tris, task.depth)
			continue
		}

		n := &node{bounds: bounds, depth: task.depth}
		*task.dest = n
		stack = append(stack,
			buildTask{tris: left, depth: task.depth + 1, dest: &n.left},
			buildTask{tris: right, depth: task.depth + 1, dest: &n.right},
		)
	}

	return root
}

func makeTriLeaf(tris []geom.Triangle, depth uint32) *node {
	return &node{bounds: triBounds(tris), depth: depth, isLeaf: true, triangles: tris}
}

func triBounds(tris []geom.Triangle) geom.AABB {
	b := geom.EmptyAABB()
	for _, t := range tris {
		b = b.Union(t.BBox())
	}
	return b
}

// Stats reports node/leaf counts, depth, and triangle count via an
// iterative sweep.
func (m *Mesh) Stats() Stats {
	s := Stats{TriangleCount: len(m.triangles)}
	if m.root == nil {
		return s
	}
	stack := []*node{m.root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		s.NodeCount++
		if n.depth > s.MaxDepth {
			s.MaxDepth = n.depth
		}
		if n.isLeaf {
			s.LeafCount++
			continue
		}
		stack = append(stack, n.left, n.right)
	}
	return s
}
