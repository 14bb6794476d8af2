// Package facade couples a dynamic object BVH to an external scene-graph
// tick loop: colliders register themselves, mark themselves dirty when their
// world bounds move, and the facade decides once per maintenance tick
// whether an incremental refit is enough or the tree should be rebuilt from
// scratch.
package facade

import (
	"fmt"
	"sync"

	"github.com/go-spatial/bvh/builder"
	"github.com/go-spatial/bvh/bvhtree"
	"github.com/go-spatial/bvh/geom"
	"github.com/go-spatial/bvh/log"
	"github.com/go-spatial/bvh/types"
)

// Collider is the handle a scene-graph producer registers with the facade.
// The facade never interprets the payload identity; it only calls back into
// WorldBounds/IsEnabled and stashes the object id it was assigned.
type Collider interface {
	WorldBounds() geom.AABB
	IsEnabled() bool
}

// Options configures a Facade at Initialize time. Zero-value fields fall
// back to their documented default.
type Options struct {
	MaxLeafSize     uint32
	MaxDepth        uint32
	BuildStrategy   builder.Strategy
	AutoUpdate      *bool // nil means the default (true)
	UpdateInterval  uint32
}

const (
	defaultUpdateInterval = 1
	// dirtyRebuildRatio is the fraction of the collider population that
	// must be dirty in a single tick before a full rebuild is judged
	// cheaper than an incremental update+refit pass.
	dirtyRebuildRatio = 0.3
)

// Facade is the process-wide BVH/scene-graph bridge. There is at most one
// active facade at a time; Initialize and Teardown manage that slot.
type Facade struct {
	sync.Mutex

	tree     *bvhtree.Tree
	strategy builder.Strategy

	colliders map[uint64]Collider
	dirty     map[uint64]bool

	autoUpdate     bool
	updateInterval uint32
	tickCount      uint32

	logger log.Logger
}

var (
	globalMu sync.Mutex
	global   *Facade
)

// Initialize constructs a new Facade and installs it as the process-wide
// active instance. It returns an error if a facade is already active.
func Initialize(opts Options) (*Facade, error) {
	globalMu.Lock()
	defer globalMu.Unlock()

	if global != nil {
		return nil, fmt.Errorf("facade: a facade is already active; call Teardown first")
	}

	maxLeafSize := opts.MaxLeafSize
	if maxLeafSize == 0 {
		maxLeafSize = 8
	}
	maxDepth := opts.MaxDepth
	if maxDepth == 0 {
		maxDepth = 32
	}
	updateInterval := opts.UpdateInterval
	if updateInterval == 0 {
		updateInterval = defaultUpdateInterval
	}
	autoUpdate := true
	if opts.AutoUpdate != nil {
		autoUpdate = *opts.AutoUpdate
	}

	f := &Facade{
		tree:           bvhtree.NewTree(maxLeafSize, maxDepth, true),
		strategy:       opts.BuildStrategy,
		colliders:      make(map[uint64]Collider),
		dirty:          make(map[uint64]bool),
		autoUpdate:     autoUpdate,
		updateInterval: updateInterval,
		logger:         log.New("facade"),
	}
	global = f
	return f, nil
}

// Active returns the process-wide facade, if one is installed.
func Active() (*Facade, bool) {
	globalMu.Lock()
	defer globalMu.Unlock()
	return global, global != nil
}

// Teardown clears the active facade slot. It is a no-op if f is not the
// currently active facade (e.g. it was already torn down).
func (f *Facade) Teardown() {
	globalMu.Lock()
	defer globalMu.Unlock()
	if global == f {
		global = nil
	}
}

// Register inserts collider into the BVH and returns the object id it was
// assigned; callers should hold onto it to Unregister or MarkDirty later.
func (f *Facade) Register(collider Collider) uint64 {
	f.Lock()
	defer f.Unlock()

	id := f.tree.Insert(collider.WorldBounds(), collider)
	f.colliders[id] = collider
	return id
}

// Unregister removes a previously registered collider by id.
func (f *Facade) Unregister(id uint64) {
	f.Lock()
	defer f.Unlock()

	f.tree.Remove(id)
	delete(f.colliders, id)
	delete(f.dirty, id)
}

// MarkDirty flags a registered collider's world bounds as possibly stale,
// to be reconciled on the next maintenance tick.
func (f *Facade) MarkDirty(id uint64) {
	f.Lock()
	defer f.Unlock()
	if _, ok := f.colliders[id]; ok {
		f.dirty[id] = true
	}
}

// Tick advances the facade's per-frame counter and, on the configured
// interval, reconciles dirty colliders: each dirty collider's current world
// bounds are written into the tree, followed by a full Rebuild when more than
// 30% of the population is dirty, or a Refit otherwise.
func (f *Facade) Tick() {
	f.Lock()
	defer f.Unlock()

	if !f.autoUpdate {
		return
	}
	f.tickCount++
	if f.tickCount%f.updateInterval != 0 {
		return
	}
	f.reconcileLocked()
}

// reconcileLocked must be called with f's lock held.
func (f *Facade) reconcileLocked() {
	if len(f.dirty) == 0 {
		return
	}

	for id := range f.dirty {
		collider, ok := f.colliders[id]
		if !ok {
			continue
		}
		f.tree.Update(id, collider.WorldBounds())
	}

	total := len(f.colliders)
	ratio := float32(len(f.dirty)) / float32(total)

	if total > 0 && ratio > dirtyRebuildRatio {
		f.logger.Debugf("facade: %d/%d colliders dirty, rebuilding", len(f.dirty), total)
		f.tree.Rebuild(f.strategy)
		f.dirty = make(map[uint64]bool)
		return
	}

	f.tree.Refit()
	f.dirty = make(map[uint64]bool)
}

// Rebuild forces an immediate full rebuild regardless of dirty ratio, after
// writing every dirty collider's current world bounds into the tree.
func (f *Facade) Rebuild() {
	f.Lock()
	defer f.Unlock()
	for id := range f.dirty {
		if collider, ok := f.colliders[id]; ok {
			f.tree.Update(id, collider.WorldBounds())
		}
	}
	f.tree.Rebuild(f.strategy)
	f.dirty = make(map[uint64]bool)
}

func (f *Facade) filterEnabled(payloads []interface{}) []interface{} {
	out := payloads[:0]
	for _, p := range payloads {
		if c, ok := p.(Collider); ok && !c.IsEnabled() {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Raycast passes through to the tree, filtering results whose collider
// reports itself disabled.
func (f *Facade) Raycast(ray geom.Ray, maxDistance float32) []bvhtree.Hit {
	f.Lock()
	defer f.Unlock()
	hits := f.tree.Raycast(ray, maxDistance)
	filtered := hits[:0]
	for _, h := range hits {
		if c, ok := h.Payload.(Collider); ok && !c.IsEnabled() {
			continue
		}
		filtered = append(filtered, h)
	}
	return filtered
}

// RaycastFirst returns the closest enabled hit: it collects every hit with a
// single Raycast and returns the first one whose collider is enabled.
func (f *Facade) RaycastFirst(ray geom.Ray, maxDistance float32) (bvhtree.Hit, bool) {
	f.Lock()
	defer f.Unlock()
	hits := f.tree.Raycast(ray, maxDistance)
	for _, h := range hits {
		if c, ok := h.Payload.(Collider); ok && !c.IsEnabled() {
			continue
		}
		return h, true
	}
	return bvhtree.Hit{}, false
}

// QueryRange passes through to the tree, filtered by IsEnabled.
func (f *Facade) QueryRange(center types.Vec3, radius float32) []interface{} {
	f.Lock()
	defer f.Unlock()
	return f.filterEnabled(f.tree.QueryRange(center, radius))
}

// IntersectBounds passes through to the tree, filtered by IsEnabled.
func (f *Facade) IntersectBounds(box geom.AABB) []interface{} {
	f.Lock()
	defer f.Unlock()
	return f.filterEnabled(f.tree.IntersectBounds(box))
}

// FindNearest passes through to the tree, skipping disabled colliders
// in-traversal via FindNearestFiltered rather than testing only the single
// nearest result, so a disabled collider closer than any enabled one doesn't
// hide the enabled match behind it.
func (f *Facade) FindNearest(point types.Vec3, maxDistance float32) (interface{}, bool) {
	f.Lock()
	defer f.Unlock()
	return f.tree.FindNearestFiltered(point, maxDistance, func(payload interface{}) bool {
		c, isCollider := payload.(Collider)
		return !isCollider || c.IsEnabled()
	})
}
