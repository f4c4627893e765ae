package mapper

import (
	"context"
	"io"

	"github.com/dbsmedya/congregate/internal/legacy"
	"github.com/dbsmedya/congregate/internal/model"
	"github.com/dbsmedya/congregate/internal/refindex"
	"github.com/dbsmedya/congregate/internal/store"
)

// PledgesMapper imports giving pledges, posting each to a fund resolved
// the same way contributions are. Rows are deduplicated by pledge id.
type PledgesMapper struct {
	env      *Env
	resolver *accountResolver
}

// NewPledgesMapper creates the pledges mapper.
func NewPledgesMapper(env *Env) *PledgesMapper {
	return &PledgesMapper{env: env}
}

func (m *PledgesMapper) Name() string { return "pledges" }

func (m *PledgesMapper) Requires() []string { return []string{"people"} }

func (m *PledgesMapper) Preloads() []refindex.Kind {
	return []refindex.Kind{
		refindex.KindPeople, refindex.KindAccounts, refindex.KindPledges,
	}
}

func (m *PledgesMapper) Schema() legacy.Schema {
	return legacy.Schema{
		Table:    "pledges",
		Required: []string{"pledge_id", "individual_id", "total_amount"},
		Optional: []string{
			"fund_name", "sub_fund_name", "start_date", "end_date", "frequency",
		},
	}
}

// pendingPledge is one buffered pledge; the fund id is bound at flush.
type pendingPledge struct {
	pledge  *model.FinancialPledge
	account *model.FinancialAccount
}

func (m *PledgesMapper) Run(ctx context.Context, src legacy.Source) (int, error) {
	m.resolver = newAccountResolver(m.env)
	engine := NewCheckpointer[*pendingPledge](
		m.env.engineOptions(m.Name(), src), m.flush, m.register)

	for {
		row, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return engine.Completed(), err
		}

		id := row.Str("pledge_id")
		if id == "" {
			continue
		}

		if m.env.Index.HasPledge(id) {
			continue // already imported
		}

		total, ok := row.Decimal("total_amount")
		if !ok {
			continue
		}

		personID, found, err := m.env.Index.ResolvePerson(ctx, row.Str("individual_id"), "")
		if err != nil {
			return engine.Completed(), err
		}
		if !found {
			continue // soft skip
		}

		pledge := &model.FinancialPledge{
			Meta: model.NewMeta(),
			Origin: model.Origin{
				SourceTag: m.env.tag(),
				LegacyKey: id,
				LegacyID:  legacyID(id),
			},
			PersonID:    personID,
			TotalAmount: total,
			Frequency:   row.Str("frequency"),
		}

		if start, ok := row.Date("start_date"); ok {
			pledge.StartDate = &start
		}
		if end, ok := row.Date("end_date"); ok {
			pledge.EndDate = &end
		}

		pending := &pendingPledge{pledge: pledge}

		if fund := row.Str("fund_name"); fund != "" {
			pending.account = m.resolver.resolve(fund, row.Str("sub_fund_name"))
		}

		// Duplicate rows inside the same buffer are skipped too.
		m.env.Index.RegisterPledge(id)

		if err := engine.Add(ctx, pending); err != nil {
			return engine.Completed(), err
		}
	}

	if err := engine.Flush(ctx); err != nil {
		return engine.Completed(), err
	}

	return engine.Completed(), nil
}

func (m *PledgesMapper) flush(ctx context.Context, tx store.Tx, batch []*pendingPledge) error {
	if err := m.resolver.flushCreated(ctx, tx); err != nil {
		return err
	}

	pledges := make([]*model.FinancialPledge, 0, len(batch))
	for _, p := range batch {
		if p.account != nil {
			p.pledge.AccountID = p.account.ID
		}
		pledges = append(pledges, p.pledge)
	}
	return tx.InsertPledges(ctx, pledges)
}

func (m *PledgesMapper) register(batch []*pendingPledge) {
	for _, account := range m.resolver.committed() {
		m.env.Index.RegisterAccount(*account)
	}
	for _, p := range batch {
		m.env.Index.RegisterPledge(p.pledge.LegacyKey)
	}
}

var _ Mapper = (*PledgesMapper)(nil)
