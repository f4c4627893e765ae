// Package store persists destination entities and answers natural-key
// queries for the reference index. Two implementations exist: the MySQL
// SQLStore and the in-memory MemStore used by tests.
package store

import (
	"context"

	"github.com/dbsmedya/congregate/internal/model"
)

// Entity kinds, used to scope natural-key uniqueness.
const (
	KindPerson      = "person"
	KindFamily      = "family"
	KindGroup       = "group"
	KindBatch       = "batch"
	KindAccount     = "account"
	KindCampus      = "campus"
	KindTransaction = "transaction"
	KindPledge      = "pledge"
	KindNote        = "note"
	KindBankAccount = "bank_account"
	KindAttendance  = "attendance"
)

// DestinationTables lists every table the import writes to, for the
// pre-run accessibility check.
var DestinationTables = []string{
	"campuses",
	"groups",
	"group_attributes",
	"group_locations",
	"group_members",
	"people",
	"phone_numbers",
	"locations",
	"attendances",
	"notes",
	"financial_batches",
	"financial_transactions",
	"financial_transaction_details",
	"financial_transaction_refunds",
	"financial_pledges",
	"financial_accounts",
	"bank_accounts",
}

// PersonKeys is the composite identity of one previously-imported person:
// the destination ids plus the legacy individual and household keys.
type PersonKeys struct {
	PersonID      int64
	FamilyGroupID int64
	LegacyKey     string // legacy individual id
	HouseholdKey  string // legacy household id
}

// GroupLocationLink is one second-pass update binding a group location row
// to its owning group's freshly assigned id.
type GroupLocationLink struct {
	GroupLocationID int64
	GroupID         int64
}

// Store is the destination persistence layer.
//
// Preload methods bulk-load the natural keys of everything a prior run
// imported; Find methods are the point-lookup fallback for keys outside
// the preloaded window. Find methods report absence with a zero value and
// nil error; only infrastructure failures error.
type Store interface {
	// Preloads, one per entity kind the reference index caches.
	PreloadPeople(ctx context.Context, sourceTag string) ([]PersonKeys, error)
	PreloadGroups(ctx context.Context, sourceTag string) (map[string]int64, error)
	PreloadBatches(ctx context.Context, sourceTag string) (map[string]int64, error)
	PreloadAccounts(ctx context.Context) ([]model.FinancialAccount, error)
	PreloadCampuses(ctx context.Context) ([]model.Campus, error)
	PreloadTransactionKeys(ctx context.Context, sourceTag string) (map[string]bool, error)
	PreloadNoteKeys(ctx context.Context, sourceTag string) (map[string]bool, error)
	PreloadPledgeKeys(ctx context.Context, sourceTag string) (map[string]bool, error)
	PreloadLocationKeys(ctx context.Context, sourceTag string) (map[string]bool, error)
	PreloadBankFingerprints(ctx context.Context) (map[string]bool, error)

	// Point lookups by natural key.
	FindPerson(ctx context.Context, sourceTag, legacyKey string) (*PersonKeys, error)
	FindGroup(ctx context.Context, sourceTag, legacyKey string) (int64, error)
	FindBatch(ctx context.Context, sourceTag, legacyKey string) (int64, error)
	FindCampusByName(ctx context.Context, name string) (int64, error)

	// WithinTx runs fn inside one transaction. Any error rolls the whole
	// transaction back and propagates.
	WithinTx(ctx context.Context, fn func(Tx) error) error

	// Reset recycles the underlying session. Called at checkpoint
	// boundaries to bound per-session state on large imports.
	Reset(ctx context.Context) error

	Close() error
}

// Tx exposes the typed bulk writes available inside one transaction.
// Insert methods assign destination ids to the passed entities in place.
type Tx interface {
	InsertCampuses(ctx context.Context, campuses []*model.Campus) error
	InsertGroups(ctx context.Context, groups []*model.Group) error
	InsertPeople(ctx context.Context, people []*model.Person) error
	InsertPhoneNumbers(ctx context.Context, phones []*model.PhoneNumber) error
	InsertLocations(ctx context.Context, locations []*model.Location) error
	InsertGroupLocations(ctx context.Context, links []*model.GroupLocation) error
	InsertGroupMembers(ctx context.Context, members []*model.GroupMember) error
	InsertAttendance(ctx context.Context, records []*model.Attendance) error
	InsertNotes(ctx context.Context, notes []*model.Note) error
	InsertBatches(ctx context.Context, batches []*model.FinancialBatch) error
	InsertTransactions(ctx context.Context, txns []*model.FinancialTransaction) error
	InsertPledges(ctx context.Context, pledges []*model.FinancialPledge) error
	InsertAccounts(ctx context.Context, accounts []*model.FinancialAccount) error
	InsertBankAccounts(ctx context.Context, accounts []*model.BankAccount) error

	// LinkGroupLocations is the second pass of a checkpoint: group
	// location rows inserted before their owning group had an id are
	// bound to the now-assigned id within the same transaction.
	LinkGroupLocations(ctx context.Context, links []GroupLocationLink) error
}
