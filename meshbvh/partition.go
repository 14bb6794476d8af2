package meshbvh

import (
	"sort"

	"github.com/go-spatial/bvh/builder"
	"github.com/go-spatial/bvh/geom"
)

const (
	sahBinCount      = 32
	costTraversal    = 1.0
	costIntersection = 1.25
)

// partitionTriangles mirrors builder's SAH/median strategies, specialized to
// triangle centroids and bounds instead of builder.Item, since a mesh leaf
// bundles many triangles rather than one payload per leaf.
func partitionTriangles(tris []geom.Triangle, bounds geom.AABB, strategy builder.Strategy) (left, right []geom.Triangle, ok bool) {
	switch strategy {
	case builder.ObjectMedian:
		return objectMedianSplit(tris, bounds)
	case builder.SpatialMedian:
		left, right, ok = spatialMedianSplit(tris, bounds)
		if !ok {
			return objectMedianSplit(tris, bounds)
		}
		return left, right, ok
	default:
		left, right, ok = sahSplit(tris, bounds)
		if !ok {
			return objectMedianSplit(tris, bounds)
		}
		return left, right, ok
	}
}

type bin struct {
	bounds geom.AABB
	count  int
}

func sahSplit(tris []geom.Triangle, bounds geom.AABB) (left, right []geom.Triangle, ok bool) {
	extents := bounds.Extents()
	axes := []int{bounds.LongestAxis(), 0, 1, 2}

	bestCost := float32(-1)
	var bestAxis, bestSplit int

	for _, axis := range axes {
		if extents[axis] <= 0 {
			continue
		}
		lo := bounds.Min[axis]
		binWidth := extents[axis] / float32(sahBinCount)
		if binWidth <= 0 {
			continue
		}

		bins := make([]bin, sahBinCount)
		for i := range bins {
			bins[i].bounds = geom.EmptyAABB()
		}
		indexOf := func(tri geom.Triangle) int {
			idx := int((tri.Centroid()[axis] - lo) / binWidth)
			if idx < 0 {
				idx = 0
			}
			if idx >= sahBinCount {
				idx = sahBinCount - 1
			}
			return idx
		}
		for _, tri := range tris {
			b := &bins[indexOf(tri)]
			b.bounds = b.bounds.Union(tri.BBox())
			b.count++
		}

		leftBounds := make([]geom.AABB, sahBinCount+1)
		leftCount := make([]int, sahBinCount+1)
		leftBounds[0] = geom.EmptyAABB()
		for i := 0; i < sahBinCount; i++ {
			leftBounds[i+1] = leftBounds[i].Union(bins[i].bounds)
			leftCount[i+1] = leftCount[i] + bins[i].count
		}

		rightBounds := make([]geom.AABB, sahBinCount+1)
		rightCount := make([]int, sahBinCount+1)
		rightBounds[sahBinCount] = geom.EmptyAABB()
		for i := sahBinCount - 1; i >= 0; i-- {
			rightBounds[i] = rightBounds[i+1].Union(bins[i].bounds)
			rightCount[i] = rightCount[i+1] + bins[i].count
		}

		parentArea := bounds.SurfaceArea()
		for split := 1; split < sahBinCount; split++ {
			lc, rc := leftCount[split], rightCount[split]
			if lc == 0 || rc == 0 {
				continue
			}
			var cost float32
			if parentArea > 0 {
				cost = costTraversal + (leftBounds[split].SurfaceArea()/parentArea)*float32(lc)*costIntersection +
					(rightBounds[split].SurfaceArea()/parentArea)*float32(rc)*costIntersection
			} else {
				cost = float32(lc)*leftBounds[split].SurfaceArea() + float32(rc)*rightBounds[split].SurfaceArea()
			}
			if bestCost < 0 || cost < bestCost {
				bestCost = cost
				bestAxis = axis
				bestSplit = split
			}
		}
	}

	if bestCost < 0 {
		return nil, nil, false
	}

	leafCost := float32(len(tris)) * costIntersection
	if bestCost >= leafCost && len(tris) <= 2*sahBinCount {
		return nil, nil, false
	}

	lo := bounds.Min[bestAxis]
	binWidth := extents[bestAxis] / float32(sahBinCount)
	for _, tri := range tris {
		idx := int((tri.Centroid()[bestAxis] - lo) / binWidth)
		if idx < 0 {
			idx = 0
		}
		if idx >= sahBinCount {
			idx = sahBinCount - 1
		}
		if idx < bestSplit {
			left = append(left, tri)
		} else {
			right = append(right, tri)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return nil, nil, false
	}
	return left, right, true
}

func spatialMedianSplit(tris []geom.Triangle, bounds geom.AABB) (left, right []geom.Triangle, ok bool) {
	axis := bounds.LongestAxis()
	mid := bounds.Center()[axis]
	for _, tri := range tris {
		if tri.Centroid()[axis] < mid {
			left = append(left, tri)
		} else {
			right = append(right, tri)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return nil, nil, false
	}
	return left, right, true
}

func objectMedianSplit(tris []geom.Triangle, bounds geom.AABB) (left, right []geom.Triangle, ok bool) {
	axis := bounds.LongestAxis()
	sorted := make([]geom.Triangle, len(tris))
	copy(sorted, tris)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Centroid()[axis] < sorted[j].Centroid()[axis]
	})
	mid := len(sorted) / 2
	left, right = sorted[:mid], sorted[mid:]
	if len(left) == 0 || len(right) == 0 {
		return nil, nil, false
	}
	return left, right, true
}
