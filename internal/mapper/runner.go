package mapper

import (
	"context"
	"fmt"
	"sort"

	"github.com/dbsmedya/congregate/internal/graph"
	"github.com/dbsmedya/congregate/internal/legacy"
	"github.com/dbsmedya/congregate/internal/refindex"
)

// Runner owns the registered mappers and executes an import run: it
// orders the selected mappers by prerequisite, preloads the reference
// index once, then drains one source per mapper, sequentially.
type Runner struct {
	env     *Env
	opener  legacy.Opener
	mappers map[string]Mapper
}

// NewRunner creates a runner with all mappers registered.
func NewRunner(env *Env, opener legacy.Opener) *Runner {
	r := &Runner{
		env:     env,
		opener:  opener,
		mappers: make(map[string]Mapper),
	}

	for _, m := range []Mapper{
		NewPeopleMapper(env),
		NewCompaniesMapper(env),
		NewGroupsMapper(env),
		NewMinistriesMapper(env),
		NewGroupMembersMapper(env),
		NewAddressesMapper(env),
		NewNotesMapper(env),
		NewBankAccountsMapper(env),
		NewAttendanceMapper(env),
		NewBatchesMapper(env),
		NewContributionsMapper(env),
		NewPledgesMapper(env),
	} {
		r.mappers[m.Name()] = m
	}

	return r
}

// Names returns all registered mapper names, sorted.
func (r *Runner) Names() []string {
	names := make([]string, 0, len(r.mappers))
	for name := range r.mappers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns a mapper by name.
func (r *Runner) Get(name string) (Mapper, bool) {
	m, ok := r.mappers[name]
	return m, ok
}

// Order resolves the selection to an execution order. Prerequisite edges
// are only drawn between selected mappers: the operator may run a subset,
// in which case rows referencing entities from an unselected table simply
// fail to resolve and are skipped.
func (r *Runner) Order(selected []string) ([]Mapper, error) {
	if len(selected) == 0 {
		selected = r.Names()
	}

	g := graph.NewGraph()
	for _, name := range selected {
		m, ok := r.mappers[name]
		if !ok {
			return nil, fmt.Errorf("unknown import table %q", name)
		}
		g.AddNode(name)
		for _, req := range m.Requires() {
			if _, ok := r.mappers[req]; !ok {
				return nil, fmt.Errorf("mapper %q requires unknown mapper %q", name, req)
			}
			g.AddNode(req) // removed below if not selected
		}
	}

	// Draw edges only between selected mappers.
	selectedSet := make(map[string]bool, len(selected))
	for _, name := range selected {
		selectedSet[name] = true
	}
	for _, name := range selected {
		for _, req := range r.mappers[name].Requires() {
			if selectedSet[req] {
				g.AddEdge(req, name)
			}
		}
	}

	order, err := g.RunOrder()
	if err != nil {
		return nil, err
	}

	mappers := make([]Mapper, 0, len(selected))
	for _, name := range order {
		if selectedSet[name] {
			mappers = append(mappers, r.mappers[name])
		}
	}
	return mappers, nil
}

// Run executes the import for the selected tables (all when empty).
func (r *Runner) Run(ctx context.Context, selected []string) error {
	mappers, err := r.Order(selected)
	if err != nil {
		return err
	}

	// Preload once, before any mapper starts: mappers consult the index
	// before falling back to point queries.
	kinds := preloadKinds(mappers)
	if err := r.env.Index.Preload(ctx, kinds...); err != nil {
		return err
	}

	for _, m := range mappers {
		log := r.env.Log.WithMapper(m.Name())

		src, err := r.opener.Open(m.Name(), m.Schema())
		if err != nil {
			return fmt.Errorf("failed to open source for %s: %w", m.Name(), err)
		}

		log.Infow("importing", "table", m.Name())
		count, runErr := m.Run(ctx, src)
		if closeErr := src.Close(); closeErr != nil && runErr == nil {
			runErr = closeErr
		}
		if runErr != nil {
			return fmt.Errorf("import of %s failed after %d entities: %w", m.Name(), count, runErr)
		}

		log.Infow("imported", "table", m.Name(), "entities", count)
	}

	return nil
}

// preloadKinds unions the preload requirements of the selected mappers,
// preserving first-seen order.
func preloadKinds(mappers []Mapper) []refindex.Kind {
	var kinds []refindex.Kind
	seen := make(map[refindex.Kind]bool)
	for _, m := range mappers {
		for _, kind := range m.Preloads() {
			if !seen[kind] {
				seen[kind] = true
				kinds = append(kinds, kind)
			}
		}
	}
	return kinds
}
