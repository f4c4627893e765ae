package mapper

import (
	"context"
	"io"

	"github.com/dbsmedya/congregate/internal/legacy"
	"github.com/dbsmedya/congregate/internal/model"
	"github.com/dbsmedya/congregate/internal/refindex"
	"github.com/dbsmedya/congregate/internal/store"
)

// MinistriesMapper imports ministries as groups, optionally attaching the
// named leader as a group member.
type MinistriesMapper struct {
	env *Env
}

// NewMinistriesMapper creates the ministries mapper.
func NewMinistriesMapper(env *Env) *MinistriesMapper {
	return &MinistriesMapper{env: env}
}

func (m *MinistriesMapper) Name() string { return "ministries" }

func (m *MinistriesMapper) Requires() []string { return []string{"people"} }

func (m *MinistriesMapper) Preloads() []refindex.Kind {
	return []refindex.Kind{refindex.KindPeople, refindex.KindGroups}
}

func (m *MinistriesMapper) Schema() legacy.Schema {
	return legacy.Schema{
		Table:    "ministries",
		Required: []string{"ministry_id", "name"},
		Optional: []string{"description", "is_active", "leader_individual_id"},
	}
}

// pendingMinistry is one buffered ministry group with its optional leader
// membership (group id bound at flush).
type pendingMinistry struct {
	group  *model.Group
	leader *model.GroupMember
}

func (m *MinistriesMapper) Run(ctx context.Context, src legacy.Source) (int, error) {
	engine := NewCheckpointer[*pendingMinistry](
		m.env.engineOptions(m.Name(), src), m.flush, m.register)

	for {
		row, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return engine.Completed(), err
		}

		id := row.Str("ministry_id")
		name := row.Str("name")
		if id == "" || name == "" {
			continue
		}

		key := ministryKey(id)
		if _, found, err := m.env.Index.ResolveGroup(ctx, key); err != nil {
			return engine.Completed(), err
		} else if found {
			continue
		}

		group := &model.Group{
			Meta: model.NewMeta(),
			Origin: model.Origin{
				SourceTag: m.env.tag(),
				LegacyKey: key,
				LegacyID:  legacyID(id),
			},
			Type:        model.GroupTypeMinistry,
			Name:        name,
			Description: row.Str("description"),
			IsActive:    true,
		}
		if active, ok := row.Bool("is_active"); ok {
			group.IsActive = active
		}

		pending := &pendingMinistry{group: group}

		if leaderLegacy := row.Str("leader_individual_id"); leaderLegacy != "" {
			personID, found, err := m.env.Index.ResolvePerson(ctx, leaderLegacy, "")
			if err != nil {
				return engine.Completed(), err
			}
			if found {
				pending.leader = &model.GroupMember{
					Meta: model.NewMeta(),
					Origin: model.Origin{
						SourceTag: m.env.tag(),
						LegacyKey: key + ":" + leaderLegacy,
					},
					PersonID: personID,
					Role:     model.GroupRoleLeader,
					IsActive: true,
				}
			}
			// An unresolved leader drops the membership, not the ministry.
		}

		if err := engine.Add(ctx, pending); err != nil {
			return engine.Completed(), err
		}
	}

	if err := engine.Flush(ctx); err != nil {
		return engine.Completed(), err
	}

	return engine.Completed(), nil
}

func (m *MinistriesMapper) flush(ctx context.Context, tx store.Tx, batch []*pendingMinistry) error {
	groups := make([]*model.Group, 0, len(batch))
	for _, p := range batch {
		groups = append(groups, p.group)
	}
	if err := tx.InsertGroups(ctx, groups); err != nil {
		return err
	}

	var leaders []*model.GroupMember
	for _, p := range batch {
		if p.leader != nil {
			p.leader.GroupID = p.group.ID
			leaders = append(leaders, p.leader)
		}
	}
	return tx.InsertGroupMembers(ctx, leaders)
}

func (m *MinistriesMapper) register(batch []*pendingMinistry) {
	for _, p := range batch {
		m.env.Index.RegisterGroup(p.group.LegacyKey, p.group.ID)
	}
}

var _ Mapper = (*MinistriesMapper)(nil)
