package mapper

import (
	"context"
	"io"
	"strings"

	"github.com/dbsmedya/congregate/internal/legacy"
	"github.com/dbsmedya/congregate/internal/model"
	"github.com/dbsmedya/congregate/internal/refindex"
	"github.com/dbsmedya/congregate/internal/store"
)

// GroupMembersMapper links people into their small groups and ministries.
//
// Membership rows reference groups and people by legacy id. A reference to
// a group or person whose row has not been scanned yet resolves nothing
// and the membership is skipped, not retried; run the prerequisite tables
// first.
type GroupMembersMapper struct {
	env *Env
}

// NewGroupMembersMapper creates the group members mapper.
func NewGroupMembersMapper(env *Env) *GroupMembersMapper {
	return &GroupMembersMapper{env: env}
}

func (m *GroupMembersMapper) Name() string { return "groupmembers" }

func (m *GroupMembersMapper) Requires() []string { return []string{"people", "groups"} }

func (m *GroupMembersMapper) Preloads() []refindex.Kind {
	return []refindex.Kind{refindex.KindPeople, refindex.KindGroups}
}

func (m *GroupMembersMapper) Schema() legacy.Schema {
	return legacy.Schema{
		Table:    "groupmembers",
		Required: []string{"group_id", "individual_id"},
		Optional: []string{"role", "is_active"},
	}
}

func (m *GroupMembersMapper) Run(ctx context.Context, src legacy.Source) (int, error) {
	engine := NewCheckpointer[*model.GroupMember](
		m.env.engineOptions(m.Name(), src), m.flush, nil)

	for {
		row, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return engine.Completed(), err
		}

		groupLegacy := row.Str("group_id")
		personLegacy := row.Str("individual_id")
		if groupLegacy == "" || personLegacy == "" {
			continue
		}

		groupID, found, err := m.env.Index.ResolveGroup(ctx, groupKey(groupLegacy))
		if err != nil {
			return engine.Completed(), err
		}
		if !found {
			continue // unresolved group, soft skip
		}

		personID, found, err := m.env.Index.ResolvePerson(ctx, personLegacy, "")
		if err != nil {
			return engine.Completed(), err
		}
		if !found {
			continue // unresolved person, soft skip
		}

		member := &model.GroupMember{
			Meta: model.NewMeta(),
			Origin: model.Origin{
				SourceTag: m.env.tag(),
				LegacyKey: groupLegacy + ":" + personLegacy,
			},
			GroupID:  groupID,
			PersonID: personID,
			Role:     model.GroupRoleMember,
			IsActive: true,
		}

		if strings.EqualFold(row.Str("role"), "leader") {
			member.Role = model.GroupRoleLeader
		}
		if active, ok := row.Bool("is_active"); ok {
			member.IsActive = active
		}

		if err := engine.Add(ctx, member); err != nil {
			return engine.Completed(), err
		}
	}

	if err := engine.Flush(ctx); err != nil {
		return engine.Completed(), err
	}

	return engine.Completed(), nil
}

func (m *GroupMembersMapper) flush(ctx context.Context, tx store.Tx, batch []*model.GroupMember) error {
	return tx.InsertGroupMembers(ctx, batch)
}

var _ Mapper = (*GroupMembersMapper)(nil)
