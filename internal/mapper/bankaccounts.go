package mapper

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"

	"github.com/dbsmedya/congregate/internal/legacy"
	"github.com/dbsmedya/congregate/internal/model"
	"github.com/dbsmedya/congregate/internal/refindex"
	"github.com/dbsmedya/congregate/internal/store"
)

// BankAccountsMapper imports saved bank accounts used to match ACH
// contributions to people. Only a one-way fingerprint of the routing and
// account number is persisted; dedup runs on the fingerprint, so the same
// physical account never lands twice regardless of which run saw it first.
type BankAccountsMapper struct {
	env *Env
}

// NewBankAccountsMapper creates the bank accounts mapper.
func NewBankAccountsMapper(env *Env) *BankAccountsMapper {
	return &BankAccountsMapper{env: env}
}

func (m *BankAccountsMapper) Name() string { return "bankaccounts" }

func (m *BankAccountsMapper) Requires() []string { return []string{"people"} }

func (m *BankAccountsMapper) Preloads() []refindex.Kind {
	return []refindex.Kind{refindex.KindPeople, refindex.KindBankAccounts}
}

func (m *BankAccountsMapper) Schema() legacy.Schema {
	return legacy.Schema{
		Table:    "bankaccounts",
		Required: []string{"individual_id", "routing_number", "account_number"},
	}
}

// Fingerprint hashes a routing/account pair into the stored form.
func Fingerprint(routing, account string) string {
	sum := sha256.Sum256([]byte(routing + "|" + account))
	return hex.EncodeToString(sum[:])
}

func (m *BankAccountsMapper) Run(ctx context.Context, src legacy.Source) (int, error) {
	engine := NewCheckpointer[*model.BankAccount](
		m.env.engineOptions(m.Name(), src), m.flush, m.register)

	for {
		row, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return engine.Completed(), err
		}

		routing := row.Str("routing_number")
		account := row.Str("account_number")
		personLegacy := row.Str("individual_id")
		if routing == "" || account == "" || personLegacy == "" {
			continue
		}

		fp := Fingerprint(routing, account)
		if m.env.Index.HasBankFingerprint(fp) {
			continue // already saved
		}

		personID, found, err := m.env.Index.ResolvePerson(ctx, personLegacy, "")
		if err != nil {
			return engine.Completed(), err
		}
		if !found {
			continue // soft skip
		}

		bank := &model.BankAccount{
			Meta: model.NewMeta(),
			Origin: model.Origin{
				SourceTag: m.env.tag(),
				LegacyKey: personLegacy,
				LegacyID:  legacyID(personLegacy),
			},
			PersonID:    personID,
			Fingerprint: fp,
		}

		// Register immediately so duplicate rows within the same buffer
		// are also skipped.
		m.env.Index.RegisterBankFingerprint(fp)

		if err := engine.Add(ctx, bank); err != nil {
			return engine.Completed(), err
		}
	}

	if err := engine.Flush(ctx); err != nil {
		return engine.Completed(), err
	}

	return engine.Completed(), nil
}

func (m *BankAccountsMapper) flush(ctx context.Context, tx store.Tx, batch []*model.BankAccount) error {
	return tx.InsertBankAccounts(ctx, batch)
}

func (m *BankAccountsMapper) register(batch []*model.BankAccount) {
	for _, b := range batch {
		m.env.Index.RegisterBankFingerprint(b.Fingerprint)
	}
}

var _ Mapper = (*BankAccountsMapper)(nil)
