package builder

import (
	"sort"

	"github.com/go-spatial/bvh/geom"
)

// splitOutcome distinguishes why a partition call produced no split, since
// the two reasons call for different fallbacks: a degenerate set (every
// centroid coincides) still needs *some* separating split so the tree
// terminates, while a set the heuristic judges not worth splitting further
// should be emitted as leaves outright, not forced apart by another
// strategy.
type splitOutcome int

const (
	splitFound splitOutcome = iota
	splitDegenerate
	splitEmitLeaves
)

// partition splits items into two non-empty groups according to strategy.
// outcome is splitDegenerate if the chosen strategy could not find any
// separating split at all (e.g. every centroid coincides), so the caller can
// fall back to a different split; it is splitEmitLeaves if the SAH cost
// model found the best split not worth taking, in which case the caller
// should stop subdividing this set and emit it as leaves rather than fall
// back to another strategy.
func partition(items []Item, bounds geom.AABB, strategy Strategy, maxLeafSize uint32) (left, right []Item, outcome splitOutcome) {
	switch strategy {
	case ObjectMedian:
		left, right, ok := partitionObjectMedian(items, bounds)
		return left, right, outcomeOf(ok)
	case SpatialMedian:
		left, right, ok := partitionSpatialMedian(items, bounds)
		if !ok {
			left, right, ok = partitionObjectMedian(items, bounds)
		}
		return left, right, outcomeOf(ok)
	default:
		left, right, outcome = partitionSAH(items, bounds, maxLeafSize)
		if outcome == splitDegenerate {
			left, right, ok := partitionObjectMedian(items, bounds)
			return left, right, outcomeOf(ok)
		}
		return left, right, outcome
	}
}

func outcomeOf(ok bool) splitOutcome {
	if ok {
		return splitFound
	}
	return splitDegenerate
}

// sahBin accumulates the bounds and count of every item whose centroid falls
// into it, along one axis.
type sahBin struct {
	bounds geom.AABB
	count  int
}

// partitionSAH scores sahBinCount evenly spaced bins along every axis with a
// positive extent (the longest axis first), and keeps the cheapest
// surface-area-heuristic split found. The
// cost model is cost = C_t + (leftArea/parentArea)*leftCount*C_i +
// (rightArea/parentArea)*rightCount*C_i, normalized against the parent's
// surface area so it is directly comparable to the flat leaf cost n*C_i: if
// even the best split found isn't cheaper than emitting every item into one
// leaf, and the leaf wouldn't be pathologically oversized, splitting further
// buys nothing.
func partitionSAH(items []Item, bounds geom.AABB, maxLeafSize uint32) (left, right []Item, outcome splitOutcome) {
	axes := []int{bounds.LongestAxis(), 0, 1, 2}

	bestCost := float32(-1)
	var bestAxis int
	var bestSplit int // bin index: items in bins < bestSplit go left

	extents := bounds.Extents()
	parentArea := bounds.SurfaceArea()

	for _, axis := range axes {
		if extents[axis] <= 0 {
			continue
		}
		lo := bounds.Min[axis]
		binWidth := extents[axis] / float32(sahBinCount)
		if binWidth <= 0 {
			continue
		}

		bins := make([]sahBin, sahBinCount)
		for i := range bins {
			bins[i].bounds = geom.EmptyAABB()
		}
		binOf := func(item Item) int {
			idx := int((item.Centroid()[axis] - lo) / binWidth)
			if idx < 0 {
				idx = 0
			}
			if idx >= sahBinCount {
				idx = sahBinCount - 1
			}
			return idx
		}
		for _, item := range items {
			b := &bins[binOf(item)]
			b.bounds = b.bounds.Union(item.Bounds)
			b.count++
		}

		// Prefix sweep left-to-right, suffix sweep right-to-left, so
		// each split point's left/right area and count are known in
		// O(sahBinCount) total instead of re-scanning per candidate.
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
		return nil, nil, splitDegenerate
	}

	leafCost := float32(len(items)) * costIntersection
	if bestCost >= leafCost && uint32(len(items)) <= 2*maxLeafSize {
		return nil, nil, splitEmitLeaves
	}

	lo := bounds.Min[bestAxis]
	binWidth := bounds.Extents()[bestAxis] / float32(sahBinCount)
	for _, item := range items {
		idx := int((item.Centroid()[bestAxis] - lo) / binWidth)
		if idx < 0 {
			idx = 0
		}
		if idx >= sahBinCount {
			idx = sahBinCount - 1
		}
		if idx < bestSplit {
			left = append(left, item)
		} else {
			right = append(right, item)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return nil, nil, splitDegenerate
	}
	return left, right, splitFound
}

// Centroid is the point used to assign an item to a partition bucket.
func (it Item) Centroid() [3]float32 {
	return it.Bounds.Center()
}

// partitionSpatialMedian splits at the midpoint of the node's longest axis,
// independent of how items actually distribute; a fast, cache-friendly, but
// potentially unbalanced strategy.
func partitionSpatialMedian(items []Item, bounds geom.AABB) (left, right []Item, ok bool) {
	axis := bounds.LongestAxis()
	mid := bounds.Center()[axis]
	for _, item := range items {
		if item.Centroid()[axis] < mid {
			left = append(left, item)
		} else {
			right = append(right, item)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return nil, nil, false
	}
	return left, right, true
}

// partitionObjectMedian sorts items by centroid along the longest axis and
// splits at the middle element, guaranteeing a balanced item count on both
// sides regardless of spatial distribution.
func partitionObjectMedian(items []Item, bounds geom.AABB) (left, right []Item, ok bool) {
	axis := bounds.LongestAxis()
	sorted := make([]Item, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Centroid()[axis] < sorted[j].Centroid()[axis]
	})

	mid := len(sorted) / 2
	left = sorted[:mid]
	right = sorted[mid:]
	if len(left) == 0 || len(right) == 0 {
		return nil, nil, false
	}
	return left, right, true
}
