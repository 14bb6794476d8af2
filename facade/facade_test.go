package facade

import (
	"testing"

	"github.com/go-spatial/bvh/builder"
	"github.com/go-spatial/bvh/geom"
	"github.com/go-spatial/bvh/types"
)

type fakeCollider struct {
	bounds  geom.AABB
	enabled bool
}

func (c *fakeCollider) WorldBounds() geom.AABB { return c.bounds }
func (c *fakeCollider) IsEnabled() bool        { return c.enabled }

func boxAt(center types.Vec3) geom.AABB {
	return geom.AABB{Min: center.Sub(types.Vec3{0.5, 0.5, 0.5}), Max: center.Add(types.Vec3{0.5, 0.5, 0.5})}
}

func newTestFacade(t *testing.T) *Facade {
	t.Helper()
	f, err := Initialize(Options{})
	if err != nil {
		t.Fatalf("expected Initialize to succeed; got %v", err)
	}
	t.Cleanup(f.Teardown)
	return f
}

func TestInitializeRejectsSecondActiveFacade(t *testing.T) {
	f := newTestFacade(t)
	if _, err := Initialize(Options{}); err == nil {
		t.Fatal("expected a second Initialize to fail while one facade is active")
	}
	if active, ok := Active(); !ok || active != f {
		t.Fatal("expected the first facade to remain the active one")
	}
}

func TestTeardownAllowsReinitialize(t *testing.T) {
	f, err := Initialize(Options{})
	if err != nil {
		t.Fatalf("expected Initialize to succeed; got %v", err)
	}
	f.Teardown()
	if _, ok := Active(); ok {
		t.Fatal("expected no active facade after Teardown")
	}
	f2, err := Initialize(Options{})
	if err != nil {
		t.Fatalf("expected Initialize to succeed after Teardown; got %v", err)
	}
	f2.Teardown()
}

func TestRegisterUnregister(t *testing.T) {
	f := newTestFacade(t)
	c := &fakeCollider{bounds: boxAt(types.Vec3{0, 0, 0}), enabled: true}
	id := f.Register(c)

	results := f.IntersectBounds(boxAt(types.Vec3{0, 0, 0}))
	if len(results) != 1 {
		t.Fatalf("expected the registered collider to be found; got %d results", len(results))
	}

	f.Unregister(id)
	if results := f.IntersectBounds(boxAt(types.Vec3{0, 0, 0})); len(results) != 0 {
		t.Fatalf("expected no results after unregister; got %d", len(results))
	}
}

func TestTickRebuildsWhenDirtyRatioExceeded(t *testing.T) {
	f := newTestFacade(t)
	var ids []uint64
	var colliders []*fakeCollider
	for i := 0; i < 10; i++ {
		c := &fakeCollider{bounds: boxAt(types.Vec3{float32(i) * 3, 0, 0}), enabled: true}
		colliders = append(colliders, c)
		ids = append(ids, f.Register(c))
	}

	// Move 5 of 10 (50%, above the 30% threshold) and mark them dirty.
	for i := 0; i < 5; i++ {
		colliders[i].bounds = boxAt(types.Vec3{float32(i) * 3, 100, 0})
		f.MarkDirty(ids[i])
	}
	f.Tick()

	for i := 0; i < 5; i++ {
		results := f.IntersectBounds(boxAt(types.Vec3{float32(i) * 3, 100, 0}))
		if len(results) != 1 {
			t.Fatalf("collider %d: expected the rebuild to reflect its moved bounds; got %d results", i, len(results))
		}
	}
	if len(f.dirty) != 0 {
		t.Fatalf("expected dirty set to be cleared after tick; got %d entries", len(f.dirty))
	}
}

func TestTickUpdatesWhenDirtyRatioLow(t *testing.T) {
	f := newTestFacade(t)
	var ids []uint64
	var colliders []*fakeCollider
	for i := 0; i < 10; i++ {
		c := &fakeCollider{bounds: boxAt(types.Vec3{float32(i) * 3, 0, 0}), enabled: true}
		colliders = append(colliders, c)
		ids = append(ids, f.Register(c))
	}

	// Move only 1 of 10 (10%, below the 30% threshold).
	colliders[0].bounds = boxAt(types.Vec3{0, 100, 0})
	f.MarkDirty(ids[0])
	f.Tick()

	results := f.IntersectBounds(boxAt(types.Vec3{0, 100, 0}))
	if len(results) != 1 {
		t.Fatalf("expected the low-dirty-ratio update+refit path to reflect the moved bounds; got %d results", len(results))
	}
}

func TestTickNoOpWhenAutoUpdateDisabled(t *testing.T) {
	disabled := false
	f, err := Initialize(Options{AutoUpdate: &disabled})
	if err != nil {
		t.Fatalf("expected Initialize to succeed; got %v", err)
	}
	defer f.Teardown()

	c := &fakeCollider{bounds: boxAt(types.Vec3{0, 0, 0}), enabled: true}
	id := f.Register(c)
	c.bounds = boxAt(types.Vec3{50, 50, 50})
	f.MarkDirty(id)
	f.Tick()

	if results := f.IntersectBounds(boxAt(types.Vec3{50, 50, 50})); len(results) != 0 {
		t.Fatal("expected Tick to be a no-op when auto-update is disabled")
	}
}

func TestQueriesFilterDisabledColliders(t *testing.T) {
	f := newTestFacade(t)
	enabled := &fakeCollider{bounds: boxAt(types.Vec3{0, 0, 0}), enabled: true}
	disabled := &fakeCollider{bounds: boxAt(types.Vec3{0.1, 0, 0}), enabled: false}
	f.Register(enabled)
	f.Register(disabled)

	bounds := f.IntersectBounds(geom.AABB{Min: types.Vec3{-1, -1, -1}, Max: types.Vec3{1, 1, 1}})
	if len(bounds) != 1 {
		t.Fatalf("expected only the enabled collider from IntersectBounds; got %d", len(bounds))
	}
	if bounds[0].(*fakeCollider) != enabled {
		t.Fatal("expected the surviving result to be the enabled collider")
	}

	nearest, ok := f.FindNearest(types.Vec3{0.1, 0, 0}, 100)
	if !ok {
		t.Fatal("expected find_nearest to fall through to an enabled collider")
	}
	if nearest.(*fakeCollider) != enabled {
		t.Fatal("expected find_nearest to skip the disabled collider even though it's closer")
	}

	ray := geom.NewRay(types.Vec3{-10, 0, 0}, types.Vec3{1, 0, 0})
	hit, ok := f.RaycastFirst(ray, 100)
	if !ok || hit.Payload.(*fakeCollider) != enabled {
		t.Fatalf("expected raycast_first to skip the disabled collider; got %+v ok=%v", hit, ok)
	}

	inRange := f.QueryRange(types.Vec3{0, 0, 0}, 5)
	if len(inRange) != 1 {
		t.Fatalf("expected query_range to filter out the disabled collider; got %d", len(inRange))
	}
}

func TestRebuildForcesImmediateRebuild(t *testing.T) {
	f := newTestFacade(t)
	c := &fakeCollider{bounds: boxAt(types.Vec3{0, 0, 0}), enabled: true}
	id := f.Register(c)
	c.bounds = boxAt(types.Vec3{9, 9, 9})
	f.MarkDirty(id)

	f.Rebuild()

	if results := f.IntersectBounds(boxAt(types.Vec3{9, 9, 9})); len(results) != 1 {
		t.Fatalf("expected forced rebuild to reflect the moved bounds; got %d results", len(results))
	}
	if len(f.dirty) != 0 {
		t.Fatal("expected Rebuild to clear the dirty set")
	}
}

func TestInitializeUsesRequestedStrategy(t *testing.T) {
	f, err := Initialize(Options{BuildStrategy: builder.ObjectMedian})
	if err != nil {
		t.Fatalf("expected Initialize to succeed; got %v", err)
	}
	defer f.Teardown()
	if f.strategy != builder.ObjectMedian {
		t.Fatalf("expected the facade to retain the requested strategy; got %v", f.strategy)
	}
}
