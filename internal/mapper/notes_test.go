package mapper

import (
	"context"
	"testing"
	"time"

	"github.com/dbsmedya/congregate/internal/legacy"
	"github.com/dbsmedya/congregate/internal/refindex"
	"github.com/dbsmedya/congregate/internal/store"
)

var notesHeader = []string{
	"note_id", "individual_id", "text", "type", "caption", "date", "is_alert", "is_private",
}

func notesSource(t *testing.T, rows [][]legacy.Value) *fakeSource {
	t.Helper()
	return newFakeSource(t, NewNotesMapper(nil).Schema(), notesHeader, rows)
}

func TestNotesMapper_Imports(t *testing.T) {
	st := store.NewMemStore()
	env := testEnv(st, 100, 1000)
	seedPerson(t, env)

	src := notesSource(t, [][]legacy.Value{
		{"300", "1", "Prayed with family", "Pastoral", "Hospital visit", "2020-03-04", "yes", "true"},
	})

	count, err := NewNotesMapper(env).Run(context.Background(), src)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 note, got %d", count)
	}

	n := st.Notes[0]
	if n.PersonID == 0 {
		t.Error("expected subject bound")
	}
	if n.Text != "Prayed with family" || n.Type != "Pastoral" || n.Caption != "Hospital visit" {
		t.Errorf("unexpected note fields: %+v", n)
	}
	want := time.Date(2020, time.March, 4, 0, 0, 0, 0, time.UTC)
	if n.NotedAt == nil || !n.NotedAt.Equal(want) {
		t.Errorf("unexpected noted-at %v", n.NotedAt)
	}
	if !n.IsAlert || !n.IsPrivate {
		t.Errorf("expected alert and private flags set, got %+v", n)
	}
	if n.LegacyKey != "300" {
		t.Errorf("unexpected legacy key %q", n.LegacyKey)
	}
}

func TestNotesMapper_FlagsDefaultFalse(t *testing.T) {
	st := store.NewMemStore()
	env := testEnv(st, 100, 1000)
	seedPerson(t, env)

	src := notesSource(t, [][]legacy.Value{
		{"300", "1", "Checked in", nil, nil, nil, nil, nil},
	})

	if _, err := NewNotesMapper(env).Run(context.Background(), src); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	n := st.Notes[0]
	if n.IsAlert || n.IsPrivate {
		t.Errorf("expected flags unset, got %+v", n)
	}
	if n.NotedAt != nil {
		t.Errorf("expected no noted-at, got %v", n.NotedAt)
	}
}

func TestNotesMapper_Skips(t *testing.T) {
	st := store.NewMemStore()
	env := testEnv(st, 100, 1000)
	seedPerson(t, env)

	src := notesSource(t, [][]legacy.Value{
		{nil, "1", "no id", nil, nil, nil, nil, nil},
		{"301", "1", nil, nil, nil, nil, nil, nil}, // no text
		{"302", "404", "orphan", nil, nil, nil, nil, nil},
		{"303", "1", "kept", nil, nil, nil, nil, nil},
	})

	count, err := NewNotesMapper(env).Run(context.Background(), src)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if count != 1 || len(st.Notes) != 1 {
		t.Errorf("expected only the complete row imported, got count=%d stored=%d",
			count, len(st.Notes))
	}
}

func TestNotesMapper_RerunIsIdempotent(t *testing.T) {
	st := store.NewMemStore()
	rows := [][]legacy.Value{
		{"300", "1", "Checked in", nil, nil, nil, nil, nil},
	}

	env := testEnv(st, 100, 1000)
	seedPerson(t, env)
	src := notesSource(t, rows)
	if _, err := NewNotesMapper(env).Run(context.Background(), src); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	env2 := testEnv(st, 100, 1000)
	for _, kind := range []refindex.Kind{refindex.KindPeople, refindex.KindNotes} {
		if err := env2.Index.Preload(context.Background(), kind); err != nil {
			t.Fatalf("preload failed: %v", err)
		}
	}
	src.rewind()
	count, err := NewNotesMapper(env2).Run(context.Background(), src)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if count != 0 || len(st.Notes) != 1 {
		t.Errorf("expected re-run to import nothing, got count=%d stored=%d",
			count, len(st.Notes))
	}
}
