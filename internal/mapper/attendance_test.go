package mapper

import (
	"context"
	"testing"
	"time"

	"github.com/dbsmedya/congregate/internal/legacy"
	"github.com/dbsmedya/congregate/internal/store"
)

var attendanceHeader = []string{"individual_id", "date", "group_id", "attended", "note"}

func attendanceSource(t *testing.T, rows [][]legacy.Value) *fakeSource {
	t.Helper()
	return newFakeSource(t, NewAttendanceMapper(nil).Schema(), attendanceHeader, rows)
}

func TestAttendanceMapper_Imports(t *testing.T) {
	st := store.NewMemStore()
	env := testEnv(st, 100, 1000)
	seedPersonAndGroup(t, env)

	src := attendanceSource(t, [][]legacy.Value{
		{"1", "2020-03-04", "5", nil, "arrived late"},
	})

	count, err := NewAttendanceMapper(env).Run(context.Background(), src)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 record, got %d", count)
	}

	a := st.Attendances[0]
	if a.PersonID == 0 {
		t.Error("expected attendee bound")
	}
	if a.GroupID != st.Groups[0].ID {
		t.Errorf("expected group %d, got %d", st.Groups[0].ID, a.GroupID)
	}
	want := time.Date(2020, time.March, 4, 0, 0, 0, 0, time.UTC)
	if !a.StartedAt.Equal(want) {
		t.Errorf("unexpected occurrence date %v", a.StartedAt)
	}
	if !a.DidAttend {
		t.Error("expected attendance to default to present")
	}
	if a.Note != "arrived late" {
		t.Errorf("unexpected note %q", a.Note)
	}
	// The person+date pair is the record's identity.
	if a.LegacyKey != "1:2020-03-04" {
		t.Errorf("unexpected legacy key %q", a.LegacyKey)
	}
}

func TestAttendanceMapper_ExplicitAbsence(t *testing.T) {
	st := store.NewMemStore()
	env := testEnv(st, 100, 1000)
	seedPersonAndGroup(t, env)

	src := attendanceSource(t, [][]legacy.Value{
		{"1", "2020-03-04", nil, "no", nil},
	})

	if _, err := NewAttendanceMapper(env).Run(context.Background(), src); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	a := st.Attendances[0]
	if a.DidAttend {
		t.Error("expected explicit absence recorded")
	}
	if a.GroupID != 0 {
		t.Errorf("expected unbound group, got %d", a.GroupID)
	}
}

func TestAttendanceMapper_MalformedDateAborts(t *testing.T) {
	st := store.NewMemStore()
	env := testEnv(st, 100, 1000)
	seedPersonAndGroup(t, env)

	src := attendanceSource(t, [][]legacy.Value{
		{"1", "sometime last spring", nil, nil, nil},
	})

	if _, err := NewAttendanceMapper(env).Run(context.Background(), src); err == nil {
		t.Fatal("expected a hard error for an unparseable occurrence date")
	}
	if len(st.Attendances) != 0 {
		t.Errorf("expected nothing stored, got %d", len(st.Attendances))
	}
}

func TestAttendanceMapper_UnknownPersonSkipped(t *testing.T) {
	st := store.NewMemStore()
	env := testEnv(st, 100, 1000)
	seedPersonAndGroup(t, env)

	src := attendanceSource(t, [][]legacy.Value{
		{"404", "2020-03-04", nil, nil, nil},
		{"1", "2020-03-04", nil, nil, nil},
	})

	count, err := NewAttendanceMapper(env).Run(context.Background(), src)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if count != 1 || len(st.Attendances) != 1 {
		t.Errorf("expected only the known person imported, got count=%d stored=%d",
			count, len(st.Attendances))
	}
}
