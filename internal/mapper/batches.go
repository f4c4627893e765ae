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

// BatchesMapper imports financial batches.
type BatchesMapper struct {
	env *Env
}

// NewBatchesMapper creates the batches mapper.
func NewBatchesMapper(env *Env) *BatchesMapper {
	return &BatchesMapper{env: env}
}

func (m *BatchesMapper) Name() string { return "batches" }

func (m *BatchesMapper) Requires() []string { return nil }

func (m *BatchesMapper) Preloads() []refindex.Kind {
	return []refindex.Kind{refindex.KindBatches, refindex.KindCampuses}
}

func (m *BatchesMapper) Schema() legacy.Schema {
	return legacy.Schema{
		Table:    "batches",
		Required: []string{"batch_id"},
		Optional: []string{"name", "date", "amount", "status", "campus"},
	}
}

func (m *BatchesMapper) Run(ctx context.Context, src legacy.Source) (int, error) {
	engine := NewCheckpointer[*model.FinancialBatch](
		m.env.engineOptions(m.Name(), src), m.flush, m.register)

	for {
		row, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return engine.Completed(), err
		}

		id := row.Str("batch_id")
		if id == "" {
			continue
		}

		if _, found, err := m.env.Index.ResolveBatch(ctx, id); err != nil {
			return engine.Completed(), err
		} else if found {
			continue
		}

		batch := &model.FinancialBatch{
			Meta: model.NewMeta(),
			Origin: model.Origin{
				SourceTag: m.env.tag(),
				LegacyKey: id,
				LegacyID:  legacyID(id),
			},
			Name:   row.Str("name"),
			Status: model.BatchStatusClosed,
		}
		if batch.Name == "" {
			batch.Name = "Batch " + id
		}

		if strings.EqualFold(row.Str("status"), "open") {
			batch.Status = model.BatchStatusOpen
		}
		if date, ok := row.Date("date"); ok {
			batch.StartDate = &date
			batch.EndDate = &date
		}
		if amount, ok := row.Decimal("amount"); ok {
			batch.ControlAmount = amount
		}
		if campus := row.Str("campus"); campus != "" {
			campusID, found, err := m.env.Index.ResolveCampus(ctx, campus)
			if err != nil {
				return engine.Completed(), err
			}
			if found {
				batch.CampusID = campusID
			}
		}

		if err := engine.Add(ctx, batch); err != nil {
			return engine.Completed(), err
		}
	}

	if err := engine.Flush(ctx); err != nil {
		return engine.Completed(), err
	}

	return engine.Completed(), nil
}

func (m *BatchesMapper) flush(ctx context.Context, tx store.Tx, batch []*model.FinancialBatch) error {
	return tx.InsertBatches(ctx, batch)
}

func (m *BatchesMapper) register(batch []*model.FinancialBatch) {
	for _, b := range batch {
		m.env.Index.RegisterBatch(b.LegacyKey, b.ID)
	}
}

var _ Mapper = (*BatchesMapper)(nil)
