package mapper

import (
	"context"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dbsmedya/congregate/internal/legacy"
	"github.com/dbsmedya/congregate/internal/model"
	"github.com/dbsmedya/congregate/internal/refindex"
	"github.com/dbsmedya/congregate/internal/store"
)

// ContributionsMapper imports contributions.
//
// Each row posts to a fund resolved by a two-level (fund, sub-fund) name
// match with implicit account creation. A negative amount becomes a
// refunded transaction. Rows are deduplicated by contribution id.
type ContributionsMapper struct {
	env      *Env
	resolver *accountResolver
}

// NewContributionsMapper creates the contributions mapper.
func NewContributionsMapper(env *Env) *ContributionsMapper {
	return &ContributionsMapper{env: env}
}

func (m *ContributionsMapper) Name() string { return "contributions" }

func (m *ContributionsMapper) Requires() []string { return []string{"people", "batches"} }

func (m *ContributionsMapper) Preloads() []refindex.Kind {
	return []refindex.Kind{
		refindex.KindPeople, refindex.KindBatches,
		refindex.KindAccounts, refindex.KindTransactions,
	}
}

func (m *ContributionsMapper) Schema() legacy.Schema {
	return legacy.Schema{
		Table:    "contributions",
		Required: []string{"contribution_id", "individual_id", "amount"},
		Optional: []string{
			"batch_id", "fund_name", "sub_fund_name", "date",
			"payment_type", "check_number", "memo",
		},
	}
}

// pendingContribution is one buffered contribution; the posted account's
// id is bound at flush, after implicitly created funds are inserted.
type pendingContribution struct {
	txn     *model.FinancialTransaction
	account *model.FinancialAccount
	amount  decimal.Decimal
}

func (m *ContributionsMapper) Run(ctx context.Context, src legacy.Source) (int, error) {
	m.resolver = newAccountResolver(m.env)
	engine := NewCheckpointer[*pendingContribution](
		m.env.engineOptions(m.Name(), src), m.flush, m.register)

	for {
		row, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return engine.Completed(), err
		}

		id := row.Str("contribution_id")
		if id == "" {
			continue
		}

		if m.env.Index.HasTransaction(id) {
			continue // already imported
		}

		amount, ok := row.Decimal("amount")
		if !ok {
			continue // soft skip, no amount
		}

		personID, found, err := m.env.Index.ResolvePerson(ctx, row.Str("individual_id"), "")
		if err != nil {
			return engine.Completed(), err
		}
		if !found {
			continue // soft skip
		}

		txn := &model.FinancialTransaction{
			Meta: model.NewMeta(),
			Origin: model.Origin{
				SourceTag: m.env.tag(),
				LegacyKey: id,
				LegacyID:  legacyID(id),
			},
			AuthorizedPerson: personID,
			CurrencyType:     currencyType(row.Str("payment_type")),
			CheckNumber:      row.Str("check_number"),
			Summary:          row.Str("memo"),
		}

		if date, ok := row.Date("date"); ok {
			txn.TransactionDate = &date
		}

		if batchLegacy := row.Str("batch_id"); batchLegacy != "" {
			batchID, found, err := m.env.Index.ResolveBatch(ctx, batchLegacy)
			if err != nil {
				return engine.Completed(), err
			}
			if found {
				txn.BatchID = batchID
			}
			// A contribution outside any known batch still imports.
		}

		if amount.IsNegative() {
			txn.Refund = &model.FinancialTransactionRefund{
				Meta:   model.NewMeta(),
				Reason: "negative contribution amount in source",
			}
		}

		fund := row.Str("fund_name")
		if fund == "" {
			fund = "General Fund"
		}
		account := m.resolver.resolve(fund, row.Str("sub_fund_name"))

		pending := &pendingContribution{txn: txn, account: account, amount: amount}

		// Duplicate rows inside the same buffer are skipped too.
		m.env.Index.RegisterTransaction(id)

		if err := engine.Add(ctx, pending); err != nil {
			return engine.Completed(), err
		}
	}

	if err := engine.Flush(ctx); err != nil {
		return engine.Completed(), err
	}

	return engine.Completed(), nil
}

// currencyType maps the legacy payment type to a transaction source type.
func currencyType(paymentType string) string {
	switch strings.ToLower(paymentType) {
	case "check", "cheque":
		return model.CurrencyTypeCheck
	case "card", "credit", "credit card":
		return model.CurrencyTypeCard
	case "ach", "bank", "bank transfer":
		return model.CurrencyTypeACH
	case "online", "web":
		return model.CurrencyTypeOnline
	default:
		return model.CurrencyTypeCash
	}
}

func (m *ContributionsMapper) flush(ctx context.Context, tx store.Tx, batch []*pendingContribution) error {
	if err := m.resolver.flushCreated(ctx, tx); err != nil {
		return err
	}

	txns := make([]*model.FinancialTransaction, 0, len(batch))
	for _, p := range batch {
		p.txn.Details = []model.FinancialTransactionDetail{{
			Meta:      model.NewMeta(),
			AccountID: p.account.ID,
			Amount:    p.amount,
			Summary:   p.txn.Summary,
		}}
		txns = append(txns, p.txn)
	}
	return tx.InsertTransactions(ctx, txns)
}

func (m *ContributionsMapper) register(batch []*pendingContribution) {
	for _, account := range m.resolver.committed() {
		m.env.Index.RegisterAccount(*account)
	}
	for _, p := range batch {
		m.env.Index.RegisterTransaction(p.txn.LegacyKey)
	}
}

var _ Mapper = (*ContributionsMapper)(nil)
