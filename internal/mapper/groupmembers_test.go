package mapper

import (
	"context"
	"testing"

	"github.com/dbsmedya/congregate/internal/legacy"
	"github.com/dbsmedya/congregate/internal/model"
	"github.com/dbsmedya/congregate/internal/store"
)

var memberHeader = []string{"group_id", "individual_id", "role", "is_active"}

func seedPersonAndGroup(t *testing.T, env *Env) {
	t.Helper()
	ctx := context.Background()

	personSrc := peopleSource(t, [][]legacy.Value{
		{"1", "10", "Smith", "John", "", nil, ""},
	})
	if _, err := NewPeopleMapper(env).Run(ctx, personSrc); err != nil {
		t.Fatalf("people seed failed: %v", err)
	}

	groupSrc := newFakeSource(t, NewGroupsMapper(env).Schema(),
		[]string{"group_id", "name"},
		[][]legacy.Value{{"5", "Tuesday Study"}})
	if _, err := NewGroupsMapper(env).Run(ctx, groupSrc); err != nil {
		t.Fatalf("groups seed failed: %v", err)
	}
}

func TestGroupMembersMapper_LinksResolvedReferences(t *testing.T) {
	st := store.NewMemStore()
	env := testEnv(st, 100, 1000)
	seedPersonAndGroup(t, env)

	src := newFakeSource(t, NewGroupMembersMapper(env).Schema(), memberHeader,
		[][]legacy.Value{
			{"5", "1", "Leader", "yes"},
		})

	count, err := NewGroupMembersMapper(env).Run(context.Background(), src)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 membership, got %d", count)
	}

	member := st.GroupMembers[0]
	if member.Role != model.GroupRoleLeader {
		t.Errorf("expected leader role, got %q", member.Role)
	}
	if member.GroupID == 0 || member.PersonID == 0 {
		t.Errorf("expected resolved ids, got group=%d person=%d", member.GroupID, member.PersonID)
	}
	if member.LegacyKey != "5:1" {
		t.Errorf("expected legacy key 5:1, got %q", member.LegacyKey)
	}
}

func TestGroupMembersMapper_ForwardReferenceSkipped(t *testing.T) {
	st := store.NewMemStore()
	env := testEnv(st, 100, 1000)
	seedPersonAndGroup(t, env)

	// Group 99 has not been imported: the membership is skipped, never
	// queued for retry. Running the groups table first is the operator's
	// responsibility (the runner orders it that way).
	src := newFakeSource(t, NewGroupMembersMapper(env).Schema(), memberHeader,
		[][]legacy.Value{
			{"99", "1", "", ""},
			{"5", "1", "", ""},
		})

	count, err := NewGroupMembersMapper(env).Run(context.Background(), src)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected only the resolvable membership, got %d", count)
	}
	if len(st.GroupMembers) != 1 {
		t.Errorf("expected 1 membership stored, got %d", len(st.GroupMembers))
	}
}

func TestGroupMembersMapper_UnknownPersonSkipped(t *testing.T) {
	st := store.NewMemStore()
	env := testEnv(st, 100, 1000)
	seedPersonAndGroup(t, env)

	src := newFakeSource(t, NewGroupMembersMapper(env).Schema(), memberHeader,
		[][]legacy.Value{
			{"5", "404", "", ""},
		})

	count, err := NewGroupMembersMapper(env).Run(context.Background(), src)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected no memberships, got %d", count)
	}
}
