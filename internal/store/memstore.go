package store

import (
	"context"

	"github.com/dbsmedya/congregate/internal/model"
)

// MemStore is an in-memory Store used by tests. Inserts assign sequential
// ids; Find* calls are counted so tests can assert cache behavior.
type MemStore struct {
	nextID int64

	People       []*model.Person
	Phones       []*model.PhoneNumber
	Groups       []*model.Group
	GroupMembers []*model.GroupMember
	Locations    []*model.Location
	GroupLinks   []*model.GroupLocation
	Attendances  []*model.Attendance
	Notes        []*model.Note
	Batches      []*model.FinancialBatch
	Transactions []*model.FinancialTransaction
	Pledges      []*model.FinancialPledge
	Accounts     []*model.FinancialAccount
	BankAccounts []*model.BankAccount
	Campuses     []*model.Campus

	// Call counters for cache-behavior assertions.
	FindPersonCalls int
	FindGroupCalls  int
	FindBatchCalls  int
	FindCampusCalls int
	ResetCalls      int
	CommitCalls     int

	// FailNextCommit makes the next WithinTx roll back with this error.
	FailNextCommit error
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{}
}

func (m *MemStore) assign() int64 {
	m.nextID++
	return m.nextID
}

func (m *MemStore) PreloadPeople(ctx context.Context, sourceTag string) ([]PersonKeys, error) {
	var keys []PersonKeys
	for _, p := range m.People {
		if p.SourceTag == sourceTag {
			keys = append(keys, PersonKeys{
				PersonID:      p.ID,
				FamilyGroupID: p.FamilyGroupID,
				LegacyKey:     p.LegacyKey,
				HouseholdKey:  p.HouseholdKey,
			})
		}
	}
	return keys, nil
}

func (m *MemStore) PreloadGroups(ctx context.Context, sourceTag string) (map[string]int64, error) {
	result := make(map[string]int64)
	for _, g := range m.Groups {
		if g.SourceTag == sourceTag {
			result[g.LegacyKey] = g.ID
		}
	}
	return result, nil
}

func (m *MemStore) PreloadBatches(ctx context.Context, sourceTag string) (map[string]int64, error) {
	result := make(map[string]int64)
	for _, b := range m.Batches {
		if b.SourceTag == sourceTag {
			result[b.LegacyKey] = b.ID
		}
	}
	return result, nil
}

func (m *MemStore) PreloadAccounts(ctx context.Context) ([]model.FinancialAccount, error) {
	accounts := make([]model.FinancialAccount, 0, len(m.Accounts))
	for _, a := range m.Accounts {
		accounts = append(accounts, *a)
	}
	return accounts, nil
}

func (m *MemStore) PreloadCampuses(ctx context.Context) ([]model.Campus, error) {
	campuses := make([]model.Campus, 0, len(m.Campuses))
	for _, c := range m.Campuses {
		campuses = append(campuses, *c)
	}
	return campuses, nil
}

func (m *MemStore) PreloadTransactionKeys(ctx context.Context, sourceTag string) (map[string]bool, error) {
	result := make(map[string]bool)
	for _, t := range m.Transactions {
		if t.SourceTag == sourceTag {
			result[t.LegacyKey] = true
		}
	}
	return result, nil
}

func (m *MemStore) PreloadNoteKeys(ctx context.Context, sourceTag string) (map[string]bool, error) {
	result := make(map[string]bool)
	for _, n := range m.Notes {
		if n.SourceTag == sourceTag {
			result[n.LegacyKey] = true
		}
	}
	return result, nil
}

func (m *MemStore) PreloadPledgeKeys(ctx context.Context, sourceTag string) (map[string]bool, error) {
	result := make(map[string]bool)
	for _, p := range m.Pledges {
		if p.SourceTag == sourceTag {
			result[p.LegacyKey] = true
		}
	}
	return result, nil
}

func (m *MemStore) PreloadLocationKeys(ctx context.Context, sourceTag string) (map[string]bool, error) {
	result := make(map[string]bool)
	for _, l := range m.Locations {
		if l.SourceTag == sourceTag {
			result[l.LegacyKey] = true
		}
	}
	return result, nil
}

func (m *MemStore) PreloadBankFingerprints(ctx context.Context) (map[string]bool, error) {
	result := make(map[string]bool)
	for _, a := range m.BankAccounts {
		result[a.Fingerprint] = true
	}
	return result, nil
}

func (m *MemStore) FindPerson(ctx context.Context, sourceTag, legacyKey string) (*PersonKeys, error) {
	m.FindPersonCalls++
	for _, p := range m.People {
		if p.SourceTag == sourceTag && p.LegacyKey == legacyKey {
			return &PersonKeys{
				PersonID:      p.ID,
				FamilyGroupID: p.FamilyGroupID,
				LegacyKey:     p.LegacyKey,
				HouseholdKey:  p.HouseholdKey,
			}, nil
		}
	}
	return nil, nil
}

func (m *MemStore) FindGroup(ctx context.Context, sourceTag, legacyKey string) (int64, error) {
	m.FindGroupCalls++
	for _, g := range m.Groups {
		if g.SourceTag == sourceTag && g.LegacyKey == legacyKey {
			return g.ID, nil
		}
	}
	return 0, nil
}

func (m *MemStore) FindBatch(ctx context.Context, sourceTag, legacyKey string) (int64, error) {
	m.FindBatchCalls++
	for _, b := range m.Batches {
		if b.SourceTag == sourceTag && b.LegacyKey == legacyKey {
			return b.ID, nil
		}
	}
	return 0, nil
}

func (m *MemStore) FindCampusByName(ctx context.Context, name string) (int64, error) {
	m.FindCampusCalls++
	for _, c := range m.Campuses {
		if c.Name == name {
			return c.ID, nil
		}
	}
	return 0, nil
}

// WithinTx runs fn against a staging copy of the store. Entities are only
// published to the store's slices when fn succeeds, mirroring transaction
// rollback semantics.
func (m *MemStore) WithinTx(ctx context.Context, fn func(Tx) error) error {
	if m.FailNextCommit != nil {
		err := m.FailNextCommit
		m.FailNextCommit = nil
		return err
	}

	staged := &memTx{store: m}
	if err := fn(staged); err != nil {
		return err
	}

	staged.publish()
	m.CommitCalls++
	return nil
}

func (m *MemStore) Reset(ctx context.Context) error {
	m.ResetCalls++
	return nil
}

func (m *MemStore) Close() error {
	return nil
}

// memTx stages inserts until publish. Ids are assigned eagerly so deferred
// resolution inside the transaction sees them, matching MySQL behavior.
type memTx struct {
	store *MemStore

	people       []*model.Person
	phones       []*model.PhoneNumber
	groups       []*model.Group
	members      []*model.GroupMember
	locations    []*model.Location
	groupLinks   []*model.GroupLocation
	attendances  []*model.Attendance
	notes        []*model.Note
	batches      []*model.FinancialBatch
	transactions []*model.FinancialTransaction
	pledges      []*model.FinancialPledge
	accounts     []*model.FinancialAccount
	bankAccounts []*model.BankAccount
	campuses     []*model.Campus
	links        []GroupLocationLink
}

func (t *memTx) publish() {
	s := t.store
	s.People = append(s.People, t.people...)
	s.Phones = append(s.Phones, t.phones...)
	s.Groups = append(s.Groups, t.groups...)
	s.GroupMembers = append(s.GroupMembers, t.members...)
	s.Locations = append(s.Locations, t.locations...)
	s.GroupLinks = append(s.GroupLinks, t.groupLinks...)
	s.Attendances = append(s.Attendances, t.attendances...)
	s.Notes = append(s.Notes, t.notes...)
	s.Batches = append(s.Batches, t.batches...)
	s.Transactions = append(s.Transactions, t.transactions...)
	s.Pledges = append(s.Pledges, t.pledges...)
	s.Accounts = append(s.Accounts, t.accounts...)
	s.BankAccounts = append(s.BankAccounts, t.bankAccounts...)
	s.Campuses = append(s.Campuses, t.campuses...)

	for _, link := range t.links {
		for _, gl := range s.GroupLinks {
			if gl.ID == link.GroupLocationID {
				gl.GroupID = link.GroupID
			}
		}
	}
}

func (t *memTx) InsertCampuses(ctx context.Context, campuses []*model.Campus) error {
	for _, c := range campuses {
		c.ID = t.store.assign()
	}
	t.campuses = append(t.campuses, campuses...)
	return nil
}

func (t *memTx) InsertGroups(ctx context.Context, groups []*model.Group) error {
	for _, g := range groups {
		g.ID = t.store.assign()
	}
	t.groups = append(t.groups, groups...)
	return nil
}

func (t *memTx) InsertPeople(ctx context.Context, people []*model.Person) error {
	for _, p := range people {
		p.ID = t.store.assign()
	}
	t.people = append(t.people, people...)
	return nil
}

func (t *memTx) InsertPhoneNumbers(ctx context.Context, phones []*model.PhoneNumber) error {
	for _, p := range phones {
		p.ID = t.store.assign()
	}
	t.phones = append(t.phones, phones...)
	return nil
}

func (t *memTx) InsertLocations(ctx context.Context, locations []*model.Location) error {
	for _, l := range locations {
		l.ID = t.store.assign()
	}
	t.locations = append(t.locations, locations...)
	return nil
}

func (t *memTx) InsertGroupLocations(ctx context.Context, links []*model.GroupLocation) error {
	for _, gl := range links {
		gl.ID = t.store.assign()
	}
	t.groupLinks = append(t.groupLinks, links...)
	return nil
}

func (t *memTx) InsertGroupMembers(ctx context.Context, members []*model.GroupMember) error {
	for _, m := range members {
		m.ID = t.store.assign()
	}
	t.members = append(t.members, members...)
	return nil
}

func (t *memTx) InsertAttendance(ctx context.Context, records []*model.Attendance) error {
	for _, a := range records {
		a.ID = t.store.assign()
	}
	t.attendances = append(t.attendances, records...)
	return nil
}

func (t *memTx) InsertNotes(ctx context.Context, notes []*model.Note) error {
	for _, n := range notes {
		n.ID = t.store.assign()
	}
	t.notes = append(t.notes, notes...)
	return nil
}

func (t *memTx) InsertBatches(ctx context.Context, batches []*model.FinancialBatch) error {
	for _, b := range batches {
		b.ID = t.store.assign()
	}
	t.batches = append(t.batches, batches...)
	return nil
}

func (t *memTx) InsertTransactions(ctx context.Context, txns []*model.FinancialTransaction) error {
	for _, txn := range txns {
		txn.ID = t.store.assign()
		for i := range txn.Details {
			txn.Details[i].ID = t.store.assign()
			txn.Details[i].TransactionID = txn.ID
		}
		if txn.Refund != nil {
			txn.Refund.ID = t.store.assign()
			txn.Refund.TransactionID = txn.ID
		}
	}
	t.transactions = append(t.transactions, txns...)
	return nil
}

func (t *memTx) InsertPledges(ctx context.Context, pledges []*model.FinancialPledge) error {
	for _, p := range pledges {
		p.ID = t.store.assign()
	}
	t.pledges = append(t.pledges, pledges...)
	return nil
}

func (t *memTx) InsertAccounts(ctx context.Context, accounts []*model.FinancialAccount) error {
	for _, a := range accounts {
		a.ID = t.store.assign()
	}
	t.accounts = append(t.accounts, accounts...)
	return nil
}

func (t *memTx) InsertBankAccounts(ctx context.Context, accounts []*model.BankAccount) error {
	for _, a := range accounts {
		a.ID = t.store.assign()
	}
	t.bankAccounts = append(t.bankAccounts, accounts...)
	return nil
}

func (t *memTx) LinkGroupLocations(ctx context.Context, links []GroupLocationLink) error {
	// Links may target rows staged in this same transaction.
	for _, link := range links {
		found := false
		for _, gl := range t.groupLinks {
			if gl.ID == link.GroupLocationID {
				gl.GroupID = link.GroupID
				found = true
			}
		}
		if !found {
			t.links = append(t.links, link)
		}
	}
	return nil
}
