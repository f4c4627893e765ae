package mapper

import (
	"context"
	"io"

	"github.com/dbsmedya/congregate/internal/legacy"
	"github.com/dbsmedya/congregate/internal/model"
	"github.com/dbsmedya/congregate/internal/refindex"
	"github.com/dbsmedya/congregate/internal/store"
)

// AttendanceMapper imports attendance records.
type AttendanceMapper struct {
	env *Env
}

// NewAttendanceMapper creates the attendance mapper.
func NewAttendanceMapper(env *Env) *AttendanceMapper {
	return &AttendanceMapper{env: env}
}

func (m *AttendanceMapper) Name() string { return "attendance" }

func (m *AttendanceMapper) Requires() []string { return []string{"people", "groups"} }

func (m *AttendanceMapper) Preloads() []refindex.Kind {
	return []refindex.Kind{refindex.KindPeople, refindex.KindGroups}
}

func (m *AttendanceMapper) Schema() legacy.Schema {
	return legacy.Schema{
		Table:    "attendance",
		Required: []string{"individual_id", "date"},
		Optional: []string{"group_id", "attended", "note"},
	}
}

func (m *AttendanceMapper) Run(ctx context.Context, src legacy.Source) (int, error) {
	engine := NewCheckpointer[*model.Attendance](
		m.env.engineOptions(m.Name(), src), m.flush, nil)

	for {
		row, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return engine.Completed(), err
		}

		personLegacy := row.Str("individual_id")
		if personLegacy == "" {
			continue
		}

		personID, found, err := m.env.Index.ResolvePerson(ctx, personLegacy, "")
		if err != nil {
			return engine.Completed(), err
		}
		if !found {
			continue // soft skip
		}

		// The occurrence date is mandatory; an unparseable value means
		// the source file is malformed and the run aborts.
		startedAt, err := row.MustDate("date")
		if err != nil {
			return engine.Completed(), err
		}

		record := &model.Attendance{
			Meta: model.NewMeta(),
			Origin: model.Origin{
				SourceTag: m.env.tag(),
				LegacyKey: personLegacy + ":" + startedAt.Format("2006-01-02"),
			},
			PersonID:  personID,
			StartedAt: startedAt,
			DidAttend: true,
			Note:      row.Str("note"),
		}

		if groupLegacy := row.Str("group_id"); groupLegacy != "" {
			groupID, found, err := m.env.Index.ResolveGroup(ctx, groupKey(groupLegacy))
			if err != nil {
				return engine.Completed(), err
			}
			if found {
				record.GroupID = groupID
			}
		}

		if attended, ok := row.Bool("attended"); ok {
			record.DidAttend = attended
		}

		if err := engine.Add(ctx, record); err != nil {
			return engine.Completed(), err
		}
	}

	if err := engine.Flush(ctx); err != nil {
		return engine.Completed(), err
	}

	return engine.Completed(), nil
}

func (m *AttendanceMapper) flush(ctx context.Context, tx store.Tx, batch []*model.Attendance) error {
	return tx.InsertAttendance(ctx, batch)
}

var _ Mapper = (*AttendanceMapper)(nil)
