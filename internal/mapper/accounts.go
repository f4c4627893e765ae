package mapper

import (
	"context"
	"strings"

	"github.com/dbsmedya/congregate/internal/model"
	"github.com/dbsmedya/congregate/internal/store"
)

// accountResolver matches contribution fund names against the destination
// fund tree, creating accounts implicitly when no match exists.
//
// Matching is a two-level name match: top-level fund first, then sub-fund
// under it. The first sub-fund seen under a previously flat fund turns
// that fund into a parent. Created accounts get their ids at the next
// checkpoint; parents are always created (and therefore inserted) before
// their children.
type accountResolver struct {
	env *Env

	accounts []*model.FinancialAccount
	created  []*model.FinancialAccount
	parents  map[*model.FinancialAccount]*model.FinancialAccount
}

// newAccountResolver seeds the working set from the preloaded fund tree.
func newAccountResolver(env *Env) *accountResolver {
	r := &accountResolver{
		env:     env,
		parents: make(map[*model.FinancialAccount]*model.FinancialAccount),
	}
	for _, a := range env.Index.Accounts() {
		account := a
		r.accounts = append(r.accounts, &account)
	}
	return r
}

// resolve returns the account a contribution to (fund, subFund) posts to:
// the sub-fund account when subFund is set, otherwise the fund itself.
func (r *accountResolver) resolve(fund, subFund string) *model.FinancialAccount {
	parent := r.find(fund, nil)
	if parent == nil {
		parent = r.create(fund, nil)
	}

	if subFund == "" {
		return parent
	}

	child := r.find(subFund, parent)
	if child == nil {
		child = r.create(subFund, parent)
	}
	return child
}

// find locates an account by case-insensitive name under the given parent
// (nil for top level).
func (r *accountResolver) find(name string, parent *model.FinancialAccount) *model.FinancialAccount {
	for _, a := range r.accounts {
		if !strings.EqualFold(a.Name, name) {
			continue
		}
		if parent == nil {
			if a.ParentID == 0 && r.parents[a] == nil {
				return a
			}
		} else {
			if (parent.ID != 0 && a.ParentID == parent.ID) || r.parents[a] == parent {
				return a
			}
		}
	}
	return nil
}

func (r *accountResolver) create(name string, parent *model.FinancialAccount) *model.FinancialAccount {
	account := &model.FinancialAccount{
		Meta: model.NewMeta(),
		Origin: model.Origin{
			SourceTag: r.env.tag(),
			LegacyKey: accountKey(name, parent),
		},
		Name:       name,
		PublicName: name,
		IsActive:   true,
	}
	if parent != nil {
		r.parents[account] = parent
	}

	r.accounts = append(r.accounts, account)
	r.created = append(r.created, account)
	return account
}

// accountKey derives the natural key of an implicitly created fund.
func accountKey(name string, parent *model.FinancialAccount) string {
	if parent != nil {
		return "fund:" + parent.Name + "/" + name
	}
	return "fund:" + name
}

// flushCreated inserts the accounts created since the last checkpoint.
// One at a time, in creation order, so each child's parent already has its
// id when the child row is written.
func (r *accountResolver) flushCreated(ctx context.Context, tx store.Tx) error {
	for _, account := range r.created {
		if account.ID != 0 {
			continue
		}
		if parent := r.parents[account]; parent != nil {
			account.ParentID = parent.ID
		}
		if err := tx.InsertAccounts(ctx, []*model.FinancialAccount{account}); err != nil {
			return err
		}
	}
	return nil
}

// committed returns and clears the created list after a successful commit.
func (r *accountResolver) committed() []*model.FinancialAccount {
	created := r.created
	r.created = nil
	return created
}
