package mapper

import (
	"context"
	"strconv"

	"github.com/dbsmedya/congregate/internal/config"
	"github.com/dbsmedya/congregate/internal/legacy"
	"github.com/dbsmedya/congregate/internal/logger"
	"github.com/dbsmedya/congregate/internal/progress"
	"github.com/dbsmedya/congregate/internal/refindex"
	"github.com/dbsmedya/congregate/internal/store"
)

// Mapper imports one source table. Each mapper drains its source exactly
// once and returns the count of rows that produced an entity (not the
// count of rows read).
type Mapper interface {
	// Name identifies the mapper; it doubles as the source table name.
	Name() string

	// Requires lists the mappers whose output this mapper resolves
	// against. The runner orders mappers so prerequisites run first.
	Requires() []string

	// Preloads lists the reference index caches this mapper consults.
	Preloads() []refindex.Kind

	// Schema declares the source columns this mapper reads.
	Schema() legacy.Schema

	// Run drains the source. Returns the produced-entity count.
	Run(ctx context.Context, src legacy.Source) (int, error)
}

// Env bundles the collaborators every mapper needs.
type Env struct {
	Store    store.Store
	Index    *refindex.Index
	Log      *logger.Logger
	Reporter progress.Reporter
	Config   *config.Config
}

// tag returns the configured source-system tag.
func (e *Env) tag() string {
	return e.Config.Source.Tag
}

// dateFormats returns the configured candidate date layouts.
func (e *Env) dateFormats() []string {
	return e.Config.Import.DateFormats
}

// engineOptions builds CheckpointerOptions for one mapper run.
// total is taken from the source when it can count its rows.
func (e *Env) engineOptions(label string, src legacy.Source) CheckpointerOptions {
	total := -1
	if counter, ok := src.(legacy.Counter); ok {
		if n, err := counter.Count(); err == nil {
			total = n
		}
	}

	return CheckpointerOptions{
		Store:       e.Store,
		Reporter:    e.Reporter,
		Log:         e.Log.WithMapper(label),
		Label:       label,
		ReportEvery: e.Config.Processing.ReportingInterval,
		CommitEvery: e.Config.Processing.CommitInterval,
		Total:       total,
	}
}

// Legacy keys for groups are namespaced by kind so ids from different
// source tables landing in the shared groups table cannot collide.
func groupKey(legacyID string) string {
	return "group:" + legacyID
}

func ministryKey(legacyID string) string {
	return "ministry:" + legacyID
}

func householdKey(legacyID string) string {
	return "household:" + legacyID
}

func companyKey(legacyID string) string {
	return "company:" + legacyID
}

// legacyID parses the numeric form of a legacy key, 0 when non-numeric.
func legacyID(key string) int64 {
	n, err := strconv.ParseInt(key, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
