package mapper

import (
	"testing"

	"github.com/dbsmedya/congregate/internal/model"
)

func TestDeferred(t *testing.T) {
	r := ResolvedRef(42)
	if id, ok := r.Resolved(); !ok || id != 42 {
		t.Errorf("expected resolved 42, got %d (ok=%v)", id, ok)
	}

	p := PendingRef("group:9")
	if _, ok := p.Resolved(); ok {
		t.Error("expected pending ref to be unresolved")
	}
	if p.Key() != "group:9" {
		t.Errorf("expected key group:9, got %q", p.Key())
	}
}

func TestDeferredLinks_ResolveAll(t *testing.T) {
	d := NewDeferredLinks()

	first := &model.GroupLocation{}
	first.ID = 101
	second := &model.GroupLocation{}
	second.ID = 102
	third := &model.GroupLocation{}
	third.ID = 103

	d.Defer("group:2", first)
	d.Defer("group:1", second)
	d.Defer("group:2", third)

	if d.Len() != 2 {
		t.Fatalf("expected 2 distinct owner keys, got %d", d.Len())
	}

	ids := map[string]int64{"group:2": 20, "group:1": 10}
	resolved, dropped := d.ResolveAll(func(key string) (int64, bool) {
		id, ok := ids[key]
		return id, ok
	})

	if len(dropped) != 0 {
		t.Errorf("expected nothing dropped, got %v", dropped)
	}
	if len(resolved) != 3 {
		t.Fatalf("expected 3 links, got %d", len(resolved))
	}

	// Insertion order: group:2's links first, then group:1's.
	if resolved[0].GroupLocationID != 101 || resolved[0].GroupID != 20 {
		t.Errorf("unexpected first link: %+v", resolved[0])
	}
	if resolved[1].GroupLocationID != 103 || resolved[1].GroupID != 20 {
		t.Errorf("unexpected second link: %+v", resolved[1])
	}
	if resolved[2].GroupLocationID != 102 || resolved[2].GroupID != 10 {
		t.Errorf("unexpected third link: %+v", resolved[2])
	}

	// The owning rows had their group bound in place too.
	if first.GroupID != 20 || third.GroupID != 20 || second.GroupID != 10 {
		t.Error("expected group ids bound on the deferred rows")
	}
}

func TestDeferredLinks_DroppedKeys(t *testing.T) {
	d := NewDeferredLinks()
	link := &model.GroupLocation{}
	link.ID = 7
	d.Defer("group:missing", link)

	resolved, dropped := d.ResolveAll(func(string) (int64, bool) { return 0, false })

	if len(resolved) != 0 {
		t.Errorf("expected no resolved links, got %v", resolved)
	}
	if len(dropped) != 1 || dropped[0] != "group:missing" {
		t.Errorf("expected the key reported as dropped, got %v", dropped)
	}
}

func TestDeferredLinks_ClearedAfterResolve(t *testing.T) {
	d := NewDeferredLinks()
	link := &model.GroupLocation{}
	link.ID = 1
	d.Defer("group:1", link)

	d.ResolveAll(func(string) (int64, bool) { return 5, true })

	if d.Len() != 0 {
		t.Errorf("expected table cleared after resolve, got %d entries", d.Len())
	}
}
