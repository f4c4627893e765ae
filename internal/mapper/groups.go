package mapper

import (
	"context"
	"io"

	"github.com/dbsmedya/congregate/internal/legacy"
	"github.com/dbsmedya/congregate/internal/model"
	"github.com/dbsmedya/congregate/internal/refindex"
	"github.com/dbsmedya/congregate/internal/store"
)

// GroupsMapper imports small groups.
//
// Campuses are created implicitly the first time a row names one. The
// meeting address is deferred the same way company addresses are: the
// location row is inserted before its owning group has an id and bound in
// the checkpoint's second pass.
type GroupsMapper struct {
	env      *Env
	deferred *DeferredLinks

	// pendingCampuses holds campuses named by scanned-but-uncommitted
	// rows so one campus is created per distinct name.
	pendingCampuses map[string]*model.Campus
}

// NewGroupsMapper creates the groups mapper.
func NewGroupsMapper(env *Env) *GroupsMapper {
	return &GroupsMapper{
		env:             env,
		deferred:        NewDeferredLinks(),
		pendingCampuses: make(map[string]*model.Campus),
	}
}

func (m *GroupsMapper) Name() string { return "groups" }

func (m *GroupsMapper) Requires() []string { return []string{"people"} }

func (m *GroupsMapper) Preloads() []refindex.Kind {
	return []refindex.Kind{refindex.KindGroups, refindex.KindCampuses}
}

func (m *GroupsMapper) Schema() legacy.Schema {
	return legacy.Schema{
		Table:    "groups",
		Required: []string{"group_id", "name"},
		Optional: []string{
			"description", "campus", "is_active",
			"meeting_frequency", "meeting_day", "meeting_time",
			"category", "topic",
			"street1", "street2", "city", "state", "postal_code", "country",
		},
	}
}

// pendingGroup is one buffered small group with its implicit campus and
// deferred meeting address.
type pendingGroup struct {
	group   *model.Group
	campus  *model.Campus // nil when resolved or absent
	address *model.Location
	link    *model.GroupLocation
}

func (m *GroupsMapper) Run(ctx context.Context, src legacy.Source) (int, error) {
	engine := NewCheckpointer[*pendingGroup](
		m.env.engineOptions(m.Name(), src), m.flush, m.register)

	for {
		row, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return engine.Completed(), err
		}

		id := row.Str("group_id")
		name := row.Str("name")
		if id == "" || name == "" {
			continue // soft skip
		}

		key := groupKey(id)
		if _, found, err := m.env.Index.ResolveGroup(ctx, key); err != nil {
			return engine.Completed(), err
		} else if found {
			continue
		}

		pending, err := m.buildGroup(ctx, row, id, name)
		if err != nil {
			// Hard parse failure: malformed schedule aborts the mapper.
			return engine.Completed(), err
		}

		if pending.address != nil {
			m.deferred.Defer(key, pending.link)
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

func (m *GroupsMapper) buildGroup(ctx context.Context, row legacy.Row, id, name string) (*pendingGroup, error) {
	group := &model.Group{
		Meta: model.NewMeta(),
		Origin: model.Origin{
			SourceTag: m.env.tag(),
			LegacyKey: groupKey(id),
			LegacyID:  legacyID(id),
		},
		Type:        model.GroupTypeSmallGroup,
		Name:        name,
		Description: row.Str("description"),
		IsActive:    true,
	}

	if active, ok := row.Bool("is_active"); ok {
		group.IsActive = active
	}

	// Custom attributes; conflicting values are last-write-wins.
	for _, attr := range []string{"category", "topic"} {
		if v := row.Str(attr); v != "" {
			if group.Attributes == nil {
				group.Attributes = make(map[string]string)
			}
			group.Attributes[attr] = v
		}
	}

	if frequency := row.Str("meeting_frequency"); frequency != "" {
		schedule, err := buildSchedule(frequency,
			row.Str("meeting_day"), row.Str("meeting_time"), m.env.dateFormats())
		if err != nil {
			return nil, err
		}
		group.Schedule = schedule
	}

	pending := &pendingGroup{group: group}

	if err := m.resolveCampus(ctx, row.Str("campus"), pending); err != nil {
		return nil, err
	}

	if street := row.Str("street1"); street != "" {
		pending.address = &model.Location{
			Meta: model.NewMeta(),
			Origin: model.Origin{
				SourceTag: m.env.tag(),
				LegacyKey: groupKey(id),
				LegacyID:  legacyID(id),
			},
			Street1:    street,
			Street2:    row.Str("street2"),
			City:       row.Str("city"),
			State:      row.Str("state"),
			PostalCode: row.Str("postal_code"),
			Country:    row.Str("country"),
		}
		pending.link = &model.GroupLocation{
			Meta:     model.NewMeta(),
			Type:     model.AddressTypeMeeting,
			IsMapped: true,
		}
	}

	return pending, nil
}

// resolveCampus binds the row's campus, implicitly creating one the first
// time a name is seen.
func (m *GroupsMapper) resolveCampus(ctx context.Context, name string, pending *pendingGroup) error {
	if name == "" {
		return nil
	}

	if id, found, err := m.env.Index.ResolveCampus(ctx, name); err != nil {
		return err
	} else if found {
		pending.group.CampusID = id
		return nil
	}

	campus, ok := m.pendingCampuses[name]
	if !ok {
		campus = &model.Campus{
			Meta: model.NewMeta(),
			Origin: model.Origin{
				SourceTag: m.env.tag(),
				LegacyKey: "campus:" + name,
			},
			Name:     name,
			IsActive: true,
		}
		m.pendingCampuses[name] = campus
	}
	pending.campus = campus
	return nil
}

func (m *GroupsMapper) flush(ctx context.Context, tx store.Tx, batch []*pendingGroup) error {
	var campuses []*model.Campus
	seen := make(map[*model.Campus]bool)
	for _, p := range batch {
		if p.campus != nil && p.campus.ID == 0 && !seen[p.campus] {
			seen[p.campus] = true
			campuses = append(campuses, p.campus)
		}
	}
	if err := tx.InsertCampuses(ctx, campuses); err != nil {
		return err
	}

	groups := make([]*model.Group, 0, len(batch))
	for _, p := range batch {
		if p.campus != nil {
			p.group.CampusID = p.campus.ID
		}
		groups = append(groups, p.group)
	}
	if err := tx.InsertGroups(ctx, groups); err != nil {
		return err
	}

	var locations []*model.Location
	var links []*model.GroupLocation
	for _, p := range batch {
		if p.address != nil {
			locations = append(locations, p.address)
			links = append(links, p.link)
		}
	}
	if err := tx.InsertLocations(ctx, locations); err != nil {
		return err
	}
	for i, link := range links {
		link.LocationID = locations[i].ID
	}
	if err := tx.InsertGroupLocations(ctx, links); err != nil {
		return err
	}

	byKey := make(map[string]int64, len(batch))
	for _, p := range batch {
		byKey[p.group.LegacyKey] = p.group.ID
	}
	resolved, droppedKeys := m.deferred.ResolveAll(func(key string) (int64, bool) {
		id, ok := byKey[key]
		return id, ok
	})
	if len(droppedKeys) > 0 {
		m.env.Log.WithMapper(m.Name()).Debugw("dropped unresolvable meeting locations",
			"count", len(droppedKeys), "keys", droppedKeys)
	}
	if err := tx.LinkGroupLocations(ctx, resolved); err != nil {
		return err
	}

	return nil
}

func (m *GroupsMapper) register(batch []*pendingGroup) {
	for _, p := range batch {
		m.env.Index.RegisterGroup(p.group.LegacyKey, p.group.ID)
		if p.campus != nil {
			m.env.Index.RegisterCampus(p.campus.Name, p.campus.ID)
			delete(m.pendingCampuses, p.campus.Name)
		}
	}
}

var _ Mapper = (*GroupsMapper)(nil)
