// Package model defines the destination entities Congregate produces.
//
// Every imported entity carries an Origin: the source-system tag plus the
// legacy identifier of the row it came from. The (SourceTag, LegacyID) pair
// is unique per entity kind and is the sole mechanism for detecting prior
// imports across runs.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Origin is the cross-run identity of an imported entity.
type Origin struct {
	SourceTag string // source-system tag from the run configuration
	LegacyKey string // legacy identifier in its original string form
	LegacyID  int64  // numeric legacy identifier (0 when non-numeric)
}

// Meta holds the destination-side identity and audit stamps.
// GUID is assigned when the entity is built; ID when it is persisted.
type Meta struct {
	ID         int64
	GUID       uuid.UUID
	CreatedAt  time.Time
	ModifiedAt time.Time
}

// NewMeta returns a Meta with a fresh GUID and both stamps set to now.
func NewMeta() Meta {
	now := time.Now().UTC()
	return Meta{
		GUID:       uuid.New(),
		CreatedAt:  now,
		ModifiedAt: now,
	}
}
