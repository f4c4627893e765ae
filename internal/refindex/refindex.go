// Package refindex maps legacy natural keys to destination ids.
//
// The index is built once per run: Preload bulk-loads the keys of every
// previously imported entity, Resolve consults the in-memory maps with a
// point-lookup fallback against the store, and Register grows the maps as
// the commit engine assigns new ids. The index lives for exactly one run
// and is never shared across processes.
package refindex

import (
	"context"
	"fmt"
	"strings"

	"github.com/dbsmedya/congregate/internal/model"
	"github.com/dbsmedya/congregate/internal/store"
)

// Kind selects which entity caches Preload fills. A run only preloads the
// kinds its selected mappers consult.
type Kind string

const (
	KindPeople       Kind = "people"
	KindGroups       Kind = "groups"
	KindBatches      Kind = "batches"
	KindAccounts     Kind = "accounts"
	KindCampuses     Kind = "campuses"
	KindTransactions Kind = "transactions"
	KindNotes        Kind = "notes"
	KindPledges      Kind = "pledges"
	KindLocations    Kind = "locations"
	KindBankAccounts Kind = "bank_accounts"
)

// Index is the per-run reference index.
type Index struct {
	store     store.Store
	sourceTag string

	people     map[string]store.PersonKeys // legacy individual key -> keys
	households map[string]int64            // legacy household key -> family group id
	groups     map[string]int64            // legacy group key -> group id
	batches    map[string]int64            // legacy batch key -> batch id
	campuses   map[string]int64            // lower-cased campus name -> campus id
	accounts   []model.FinancialAccount    // fund tree snapshot

	transactions map[string]bool // imported contribution keys
	notes        map[string]bool // imported note keys
	pledges      map[string]bool // imported pledge keys
	locations    map[string]bool // imported location keys
	fingerprints map[string]bool // saved bank account fingerprints
}

// New creates an empty index over the given store. Preload must run before
// any mapper starts.
func New(st store.Store, sourceTag string) *Index {
	return &Index{
		store:        st,
		sourceTag:    sourceTag,
		people:       make(map[string]store.PersonKeys),
		households:   make(map[string]int64),
		groups:       make(map[string]int64),
		batches:      make(map[string]int64),
		campuses:     make(map[string]int64),
		transactions: make(map[string]bool),
		notes:        make(map[string]bool),
		pledges:      make(map[string]bool),
		locations:    make(map[string]bool),
		fingerprints: make(map[string]bool),
	}
}

// Preload bulk-loads the caches for the given kinds.
func (ix *Index) Preload(ctx context.Context, kinds ...Kind) error {
	for _, kind := range kinds {
		if err := ix.preloadKind(ctx, kind); err != nil {
			return fmt.Errorf("failed to preload %s: %w", kind, err)
		}
	}
	return nil
}

func (ix *Index) preloadKind(ctx context.Context, kind Kind) error {
	switch kind {
	case KindPeople:
		keys, err := ix.store.PreloadPeople(ctx, ix.sourceTag)
		if err != nil {
			return err
		}
		for _, k := range keys {
			ix.people[k.LegacyKey] = k
			if k.HouseholdKey != "" && k.FamilyGroupID != 0 {
				ix.households[k.HouseholdKey] = k.FamilyGroupID
			}
		}
	case KindGroups:
		groups, err := ix.store.PreloadGroups(ctx, ix.sourceTag)
		if err != nil {
			return err
		}
		for key, id := range groups {
			ix.groups[key] = id
		}
	case KindBatches:
		batches, err := ix.store.PreloadBatches(ctx, ix.sourceTag)
		if err != nil {
			return err
		}
		for key, id := range batches {
			ix.batches[key] = id
		}
	case KindAccounts:
		accounts, err := ix.store.PreloadAccounts(ctx)
		if err != nil {
			return err
		}
		ix.accounts = accounts
	case KindCampuses:
		campuses, err := ix.store.PreloadCampuses(ctx)
		if err != nil {
			return err
		}
		for _, c := range campuses {
			ix.campuses[strings.ToLower(c.Name)] = c.ID
		}
	case KindTransactions:
		keys, err := ix.store.PreloadTransactionKeys(ctx, ix.sourceTag)
		if err != nil {
			return err
		}
		ix.transactions = keys
	case KindNotes:
		keys, err := ix.store.PreloadNoteKeys(ctx, ix.sourceTag)
		if err != nil {
			return err
		}
		ix.notes = keys
	case KindPledges:
		keys, err := ix.store.PreloadPledgeKeys(ctx, ix.sourceTag)
		if err != nil {
			return err
		}
		ix.pledges = keys
	case KindLocations:
		keys, err := ix.store.PreloadLocationKeys(ctx, ix.sourceTag)
		if err != nil {
			return err
		}
		ix.locations = keys
	case KindBankAccounts:
		fps, err := ix.store.PreloadBankFingerprints(ctx)
		if err != nil {
			return err
		}
		ix.fingerprints = fps
	default:
		return fmt.Errorf("unknown preload kind %q", kind)
	}
	return nil
}

// ResolvePerson maps a legacy individual key to its destination person id.
// On an in-memory miss it falls back to a store point lookup and, on a hit,
// writes the result through to the cache. Not-found is a normal outcome,
// never an error; only store failures error.
//
// householdKey is recorded alongside a fallback hit so later family-level
// resolution also benefits from the write-through.
func (ix *Index) ResolvePerson(ctx context.Context, legacyKey, householdKey string) (int64, bool, error) {
	if k, ok := ix.people[legacyKey]; ok {
		return k.PersonID, true, nil
	}

	k, err := ix.store.FindPerson(ctx, ix.sourceTag, legacyKey)
	if err != nil {
		return 0, false, err
	}
	if k == nil {
		return 0, false, nil
	}

	ix.people[legacyKey] = *k
	if k.HouseholdKey != "" && k.FamilyGroupID != 0 {
		ix.households[k.HouseholdKey] = k.FamilyGroupID
	} else if householdKey != "" && k.FamilyGroupID != 0 {
		ix.households[householdKey] = k.FamilyGroupID
	}

	return k.PersonID, true, nil
}

// ResolveFamily maps a legacy household key to its family group id.
// In-memory only: family groups are always created alongside their people,
// so a key absent here is absent everywhere.
func (ix *Index) ResolveFamily(householdKey string) (int64, bool) {
	id, ok := ix.households[householdKey]
	return id, ok
}

// ResolveGroup maps a legacy group key to its destination id with the same
// cache-aside fallback as ResolvePerson.
func (ix *Index) ResolveGroup(ctx context.Context, legacyKey string) (int64, bool, error) {
	if id, ok := ix.groups[legacyKey]; ok {
		return id, true, nil
	}

	id, err := ix.store.FindGroup(ctx, ix.sourceTag, legacyKey)
	if err != nil {
		return 0, false, err
	}
	if id == 0 {
		return 0, false, nil
	}

	ix.groups[legacyKey] = id
	return id, true, nil
}

// ResolveBatch maps a legacy batch key to its destination id with the same
// cache-aside fallback.
func (ix *Index) ResolveBatch(ctx context.Context, legacyKey string) (int64, bool, error) {
	if id, ok := ix.batches[legacyKey]; ok {
		return id, true, nil
	}

	id, err := ix.store.FindBatch(ctx, ix.sourceTag, legacyKey)
	if err != nil {
		return 0, false, err
	}
	if id == 0 {
		return 0, false, nil
	}

	ix.batches[legacyKey] = id
	return id, true, nil
}

// ResolveCampus maps a campus name (case-insensitive) to its id with a
// store fallback.
func (ix *Index) ResolveCampus(ctx context.Context, name string) (int64, bool, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return 0, false, nil
	}

	if id, ok := ix.campuses[key]; ok {
		return id, true, nil
	}

	id, err := ix.store.FindCampusByName(ctx, strings.TrimSpace(name))
	if err != nil {
		return 0, false, err
	}
	if id == 0 {
		return 0, false, nil
	}

	ix.campuses[key] = id
	return id, true, nil
}

// Accounts returns the preloaded fund tree snapshot. The contribution
// mapper maintains its own working copy as it creates funds.
func (ix *Index) Accounts() []model.FinancialAccount {
	return ix.accounts
}

// HasTransaction reports whether a contribution key was already imported.
func (ix *Index) HasTransaction(legacyKey string) bool {
	return ix.transactions[legacyKey]
}

// HasNote reports whether a note key was already imported.
func (ix *Index) HasNote(legacyKey string) bool {
	return ix.notes[legacyKey]
}

// HasPledge reports whether a pledge key was already imported.
func (ix *Index) HasPledge(legacyKey string) bool {
	return ix.pledges[legacyKey]
}

// HasLocation reports whether a location key was already imported.
func (ix *Index) HasLocation(legacyKey string) bool {
	return ix.locations[legacyKey]
}

// HasBankFingerprint reports whether a bank account fingerprint is saved.
func (ix *Index) HasBankFingerprint(fp string) bool {
	return ix.fingerprints[fp]
}

// RegisterPerson records a freshly assigned person. Called by the commit
// engine after ids are assigned, before any later row resolves the key.
func (ix *Index) RegisterPerson(k store.PersonKeys) {
	ix.people[k.LegacyKey] = k
	if k.HouseholdKey != "" && k.FamilyGroupID != 0 {
		ix.households[k.HouseholdKey] = k.FamilyGroupID
	}
}

// RegisterGroup records a freshly assigned group id.
func (ix *Index) RegisterGroup(legacyKey string, id int64) {
	ix.groups[legacyKey] = id
}

// RegisterBatch records a freshly assigned batch id.
func (ix *Index) RegisterBatch(legacyKey string, id int64) {
	ix.batches[legacyKey] = id
}

// RegisterAccount records an implicitly created fund so mappers that run
// later in the same process see the full tree.
func (ix *Index) RegisterAccount(account model.FinancialAccount) {
	ix.accounts = append(ix.accounts, account)
}

// RegisterCampus records a freshly assigned campus id.
func (ix *Index) RegisterCampus(name string, id int64) {
	ix.campuses[strings.ToLower(strings.TrimSpace(name))] = id
}

// RegisterTransaction records an imported contribution key.
func (ix *Index) RegisterTransaction(legacyKey string) {
	ix.transactions[legacyKey] = true
}

// RegisterNote records an imported note key.
func (ix *Index) RegisterNote(legacyKey string) {
	ix.notes[legacyKey] = true
}

// RegisterPledge records an imported pledge key.
func (ix *Index) RegisterPledge(legacyKey string) {
	ix.pledges[legacyKey] = true
}

// RegisterLocation records an imported location key.
func (ix *Index) RegisterLocation(legacyKey string) {
	ix.locations[legacyKey] = true
}

// RegisterBankFingerprint records a saved bank account fingerprint.
func (ix *Index) RegisterBankFingerprint(fp string) {
	ix.fingerprints[fp] = true
}
