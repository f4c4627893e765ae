package mapper

import (
	"github.com/elliotchance/orderedmap/v2"

	"github.com/dbsmedya/congregate/internal/model"
	"github.com/dbsmedya/congregate/internal/store"
)

// Deferred is a cross-reference that may not be resolvable until commit:
// either an already-resolved destination id or a pending natural key to be
// looked up after the referenced entity gets its id.
type Deferred struct {
	id  int64
	key string
}

// ResolvedRef builds a Deferred holding a known id.
func ResolvedRef(id int64) Deferred {
	return Deferred{id: id}
}

// PendingRef builds a Deferred holding a natural key for later lookup.
func PendingRef(key string) Deferred {
	return Deferred{key: key}
}

// Resolved returns the id and true when the reference is already resolved.
func (d Deferred) Resolved() (int64, bool) {
	return d.id, d.id != 0
}

// Key returns the pending natural key ("" when resolved).
func (d Deferred) Key() string {
	return d.key
}

// DeferredLinks accumulates group location rows whose owning group had no
// id when the row was built. Entries are keyed by the owner's full natural
// key and kept in insertion order so the second pass runs deterministically
// in scan order.
type DeferredLinks struct {
	links *orderedmap.OrderedMap[string, []*model.GroupLocation]
}

// NewDeferredLinks creates an empty deferral table.
func NewDeferredLinks() *DeferredLinks {
	return &DeferredLinks{
		links: orderedmap.NewOrderedMap[string, []*model.GroupLocation](),
	}
}

// Defer records a group location awaiting the owner identified by key.
func (d *DeferredLinks) Defer(key string, link *model.GroupLocation) {
	pending, _ := d.links.Get(key)
	d.links.Set(key, append(pending, link))
}

// Len returns the number of distinct owner keys with pending links.
func (d *DeferredLinks) Len() int {
	return d.links.Len()
}

// ResolveAll walks the table in insertion order, resolving each owner key
// to its now-assigned id. Resolvable entries become second-pass link
// updates; unresolvable keys are returned for the caller to count and log
// (the links are dropped, never retried).
func (d *DeferredLinks) ResolveAll(lookup func(key string) (int64, bool)) (resolved []store.GroupLocationLink, dropped []string) {
	for el := d.links.Front(); el != nil; el = el.Next() {
		groupID, ok := lookup(el.Key)
		if !ok {
			dropped = append(dropped, el.Key)
			continue
		}
		for _, link := range el.Value {
			link.GroupID = groupID
			resolved = append(resolved, store.GroupLocationLink{
				GroupLocationID: link.ID,
				GroupID:         groupID,
			})
		}
	}

	d.links = orderedmap.NewOrderedMap[string, []*model.GroupLocation]()
	return resolved, dropped
}
