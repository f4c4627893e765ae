package mapper

import (
	"context"
	"testing"

	"github.com/dbsmedya/congregate/internal/legacy"
	"github.com/dbsmedya/congregate/internal/model"
	"github.com/dbsmedya/congregate/internal/refindex"
	"github.com/dbsmedya/congregate/internal/store"
)

var peopleHeader = []string{
	"individual_id", "household_id", "last_name", "first_name",
	"family_role", "home_phone", "birth_date",
}

func peopleSource(t *testing.T, rows [][]legacy.Value) *fakeSource {
	t.Helper()
	return newFakeSource(t, NewPeopleMapper(nil).Schema(), peopleHeader, rows)
}

func TestPeopleMapper_FamiliesFromConsecutiveHouseholds(t *testing.T) {
	st := store.NewMemStore()
	env := testEnv(st, 100, 1000)
	m := NewPeopleMapper(env)

	src := peopleSource(t, [][]legacy.Value{
		{"1", "10", "Smith", "John", "", "312-555-0142", "3/4/1980"},
		{"2", "10", "Smith", "Jane", "", nil, ""},
		{"3", "10", "Smith", "Sam", "Child", nil, "2010-06-01"},
		{"4", "11", "Jones", "Mary", "", nil, ""},
	})

	count, err := m.Run(context.Background(), src)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if count != 4 {
		t.Errorf("expected 4 people produced, got %d", count)
	}

	if len(st.People) != 4 {
		t.Fatalf("expected 4 people stored, got %d", len(st.People))
	}
	if len(st.Groups) != 2 {
		t.Fatalf("expected 2 family groups, got %d", len(st.Groups))
	}
	if len(st.Phones) != 1 {
		t.Errorf("expected 1 phone, got %d", len(st.Phones))
	}

	// Household 10's three members share one family group.
	smithFamily := st.People[0].FamilyGroupID
	if smithFamily == 0 {
		t.Fatal("expected a family group id on the first person")
	}
	for _, p := range st.People[:3] {
		if p.FamilyGroupID != smithFamily {
			t.Errorf("expected person %s in family %d, got %d", p.LegacyKey, smithFamily, p.FamilyGroupID)
		}
	}
	if st.People[3].FamilyGroupID == smithFamily {
		t.Error("expected household 11 in its own family group")
	}

	// Family groups carry the namespaced household key.
	if st.Groups[0].LegacyKey != "household:10" {
		t.Errorf("expected household:10, got %q", st.Groups[0].LegacyKey)
	}
	if st.Groups[0].Type != model.GroupTypeFamily {
		t.Errorf("expected family group type, got %q", st.Groups[0].Type)
	}

	// Child role mapped.
	if st.People[2].FamilyRole != model.FamilyRoleChild {
		t.Errorf("expected child role, got %q", st.People[2].FamilyRole)
	}
}

func TestPeopleMapper_RerunIsIdempotent(t *testing.T) {
	st := store.NewMemStore()
	rows := [][]legacy.Value{
		{"1", "10", "Smith", "John", "", nil, ""},
		{"2", "10", "Smith", "Jane", "", nil, ""},
		{"3", "11", "Jones", "Mary", "", nil, ""},
	}

	env := testEnv(st, 100, 1000)
	src := peopleSource(t, rows)
	if _, err := NewPeopleMapper(env).Run(context.Background(), src); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	// Second run: fresh process, fresh index, same store, same source.
	env2 := testEnv(st, 100, 1000)
	if err := env2.Index.Preload(context.Background(), refindex.KindPeople); err != nil {
		t.Fatalf("preload failed: %v", err)
	}
	src.rewind()
	count, err := NewPeopleMapper(env2).Run(context.Background(), src)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	if count != 0 {
		t.Errorf("expected second run to produce nothing, got %d", count)
	}
	if len(st.People) != 3 {
		t.Errorf("expected 3 people after re-run, got %d", len(st.People))
	}
	if len(st.Groups) != 2 {
		t.Errorf("expected 2 family groups after re-run, got %d", len(st.Groups))
	}
}

func TestPeopleMapper_DedupWithinRun(t *testing.T) {
	st := store.NewMemStore()
	env := testEnv(st, 2, 2)
	m := NewPeopleMapper(env)

	// The duplicate of individual 1 arrives after the first checkpoint
	// committed it, so the index resolves it and the row is skipped.
	src := peopleSource(t, [][]legacy.Value{
		{"1", "10", "Smith", "John", "", nil, ""},
		{"2", "10", "Smith", "Jane", "", nil, ""},
		{"1", "10", "Smith", "John", "", nil, ""},
	})

	count, err := m.Run(context.Background(), src)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 people produced, got %d", count)
	}
	if len(st.People) != 2 {
		t.Errorf("expected 2 people stored, got %d", len(st.People))
	}
}

func TestPeopleMapper_MissingIdentitySkipped(t *testing.T) {
	st := store.NewMemStore()
	env := testEnv(st, 100, 1000)
	m := NewPeopleMapper(env)

	src := peopleSource(t, [][]legacy.Value{
		{nil, "10", "Smith", "John", "", nil, ""},
		{"2", nil, "Smith", "Jane", "", nil, ""},
		{"3", "11", "Jones", "Mary", "", nil, ""},
	})

	count, err := m.Run(context.Background(), src)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected only the complete row imported, got %d", count)
	}
}
