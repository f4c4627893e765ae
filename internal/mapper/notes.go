package mapper

import (
	"context"
	"io"

	"github.com/dbsmedya/congregate/internal/legacy"
	"github.com/dbsmedya/congregate/internal/model"
	"github.com/dbsmedya/congregate/internal/refindex"
	"github.com/dbsmedya/congregate/internal/store"
)

// NotesMapper imports person notes.
type NotesMapper struct {
	env *Env
}

// NewNotesMapper creates the notes mapper.
func NewNotesMapper(env *Env) *NotesMapper {
	return &NotesMapper{env: env}
}

func (m *NotesMapper) Name() string { return "notes" }

func (m *NotesMapper) Requires() []string { return []string{"people"} }

func (m *NotesMapper) Preloads() []refindex.Kind {
	return []refindex.Kind{refindex.KindPeople, refindex.KindNotes}
}

func (m *NotesMapper) Schema() legacy.Schema {
	return legacy.Schema{
		Table:    "notes",
		Required: []string{"note_id", "individual_id", "text"},
		Optional: []string{"type", "caption", "date", "is_alert", "is_private"},
	}
}

func (m *NotesMapper) Run(ctx context.Context, src legacy.Source) (int, error) {
	engine := NewCheckpointer[*model.Note](
		m.env.engineOptions(m.Name(), src), m.flush, m.register)

	for {
		row, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return engine.Completed(), err
		}

		id := row.Str("note_id")
		text := row.Str("text")
		if id == "" || text == "" {
			continue
		}

		if m.env.Index.HasNote(id) {
			continue // already imported
		}

		personID, found, err := m.env.Index.ResolvePerson(ctx, row.Str("individual_id"), "")
		if err != nil {
			return engine.Completed(), err
		}
		if !found {
			continue // soft skip
		}

		note := &model.Note{
			Meta: model.NewMeta(),
			Origin: model.Origin{
				SourceTag: m.env.tag(),
				LegacyKey: id,
				LegacyID:  legacyID(id),
			},
			PersonID: personID,
			Type:     row.Str("type"),
			Caption:  row.Str("caption"),
			Text:     text,
		}

		if notedAt, ok := row.Date("date"); ok {
			note.NotedAt = &notedAt
		}
		if alert, ok := row.Bool("is_alert"); ok {
			note.IsAlert = alert
		}
		if private, ok := row.Bool("is_private"); ok {
			note.IsPrivate = private
		}

		if err := engine.Add(ctx, note); err != nil {
			return engine.Completed(), err
		}
	}

	if err := engine.Flush(ctx); err != nil {
		return engine.Completed(), err
	}

	return engine.Completed(), nil
}

func (m *NotesMapper) flush(ctx context.Context, tx store.Tx, batch []*model.Note) error {
	return tx.InsertNotes(ctx, batch)
}

func (m *NotesMapper) register(batch []*model.Note) {
	for _, n := range batch {
		m.env.Index.RegisterNote(n.LegacyKey)
	}
}

var _ Mapper = (*NotesMapper)(nil)
