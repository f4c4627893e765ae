package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dbsmedya/congregate/internal/database"
	"github.com/dbsmedya/congregate/internal/model"
)

// SQLStore is the MySQL implementation of Store.
type SQLStore struct {
	manager *database.Manager

	// DisableAuditing suppresses audit-trail triggers during bulk load.
	// Set once at construction from the run configuration.
	disableAuditing bool
}

// NewSQLStore creates a SQLStore over an already-connected manager.
func NewSQLStore(manager *database.Manager, disableAuditing bool) *SQLStore {
	return &SQLStore{
		manager:         manager,
		disableAuditing: disableAuditing,
	}
}

func (s *SQLStore) db() *sql.DB {
	return s.manager.Destination
}

// PreloadPeople loads the identity keys of every person a prior run with
// the same source tag imported.
func (s *SQLStore) PreloadPeople(ctx context.Context, sourceTag string) ([]PersonKeys, error) {
	query := `SELECT id, family_group_id, legacy_key, household_key
		FROM people WHERE source_tag = ?`

	rows, err := s.db().QueryContext(ctx, query, sourceTag)
	if err != nil {
		return nil, fmt.Errorf("failed to preload people: %w", err)
	}
	defer rows.Close()

	var keys []PersonKeys
	for rows.Next() {
		var k PersonKeys
		if err := rows.Scan(&k.PersonID, &k.FamilyGroupID, &k.LegacyKey, &k.HouseholdKey); err != nil {
			return nil, fmt.Errorf("failed to scan person keys: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to preload people: %w", err)
	}

	return keys, nil
}

// PreloadGroups loads legacy key -> group id for every imported group.
func (s *SQLStore) PreloadGroups(ctx context.Context, sourceTag string) (map[string]int64, error) {
	return s.preloadKeyed(ctx, "groups", sourceTag)
}

// PreloadBatches loads legacy key -> batch id for every imported batch.
func (s *SQLStore) PreloadBatches(ctx context.Context, sourceTag string) (map[string]int64, error) {
	return s.preloadKeyed(ctx, "financial_batches", sourceTag)
}

// preloadKeyed loads legacy_key -> id from one table filtered by source tag.
func (s *SQLStore) preloadKeyed(ctx context.Context, table, sourceTag string) (map[string]int64, error) {
	query := fmt.Sprintf("SELECT id, legacy_key FROM %s WHERE source_tag = ?", table)

	rows, err := s.db().QueryContext(ctx, query, sourceTag)
	if err != nil {
		return nil, fmt.Errorf("failed to preload %s: %w", table, err)
	}
	defer rows.Close()

	result := make(map[string]int64)
	for rows.Next() {
		var id int64
		var key string
		if err := rows.Scan(&id, &key); err != nil {
			return nil, fmt.Errorf("failed to scan %s keys: %w", table, err)
		}
		result[key] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to preload %s: %w", table, err)
	}

	return result, nil
}

// PreloadAccounts loads the whole fund tree. Fund matching is by name, so
// the index needs names and parent links, not just ids.
func (s *SQLStore) PreloadAccounts(ctx context.Context) ([]model.FinancialAccount, error) {
	query := `SELECT id, name, parent_id, campus_id, is_active FROM financial_accounts`

	rows, err := s.db().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to preload accounts: %w", err)
	}
	defer rows.Close()

	var accounts []model.FinancialAccount
	for rows.Next() {
		var a model.FinancialAccount
		var parentID sql.NullInt64
		if err := rows.Scan(&a.ID, &a.Name, &parentID, &a.CampusID, &a.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		a.ParentID = parentID.Int64
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to preload accounts: %w", err)
	}

	return accounts, nil
}

// PreloadCampuses loads all campuses. Campus matching is by name.
func (s *SQLStore) PreloadCampuses(ctx context.Context) ([]model.Campus, error) {
	query := `SELECT id, name, short_code, is_active FROM campuses`

	rows, err := s.db().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to preload campuses: %w", err)
	}
	defer rows.Close()

	var campuses []model.Campus
	for rows.Next() {
		var c model.Campus
		if err := rows.Scan(&c.ID, &c.Name, &c.ShortCode, &c.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan campus: %w", err)
		}
		campuses = append(campuses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to preload campuses: %w", err)
	}

	return campuses, nil
}

// PreloadTransactionKeys loads the legacy keys of imported contributions.
func (s *SQLStore) PreloadTransactionKeys(ctx context.Context, sourceTag string) (map[string]bool, error) {
	return s.preloadKeySet(ctx, "financial_transactions", sourceTag)
}

// PreloadNoteKeys loads the legacy keys of imported notes.
func (s *SQLStore) PreloadNoteKeys(ctx context.Context, sourceTag string) (map[string]bool, error) {
	return s.preloadKeySet(ctx, "notes", sourceTag)
}

// PreloadPledgeKeys loads the legacy keys of imported pledges.
func (s *SQLStore) PreloadPledgeKeys(ctx context.Context, sourceTag string) (map[string]bool, error) {
	return s.preloadKeySet(ctx, "financial_pledges", sourceTag)
}

// PreloadLocationKeys loads the legacy keys of imported locations.
func (s *SQLStore) PreloadLocationKeys(ctx context.Context, sourceTag string) (map[string]bool, error) {
	return s.preloadKeySet(ctx, "locations", sourceTag)
}

// preloadKeySet loads the set of legacy keys present in one table.
func (s *SQLStore) preloadKeySet(ctx context.Context, table, sourceTag string) (map[string]bool, error) {
	query := fmt.Sprintf("SELECT legacy_key FROM %s WHERE source_tag = ?", table)

	rows, err := s.db().QueryContext(ctx, query, sourceTag)
	if err != nil {
		return nil, fmt.Errorf("failed to preload %s keys: %w", table, err)
	}
	defer rows.Close()

	result := make(map[string]bool)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan %s key: %w", table, err)
		}
		result[key] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to preload %s keys: %w", table, err)
	}

	return result, nil
}

// PreloadBankFingerprints loads all saved bank account fingerprints.
func (s *SQLStore) PreloadBankFingerprints(ctx context.Context) (map[string]bool, error) {
	query := `SELECT fingerprint FROM bank_accounts`

	rows, err := s.db().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to preload bank fingerprints: %w", err)
	}
	defer rows.Close()

	result := make(map[string]bool)
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, fmt.Errorf("failed to scan bank fingerprint: %w", err)
		}
		result[fp] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to preload bank fingerprints: %w", err)
	}

	return result, nil
}

// FindPerson looks one person up by natural key. Returns nil when absent.
func (s *SQLStore) FindPerson(ctx context.Context, sourceTag, legacyKey string) (*PersonKeys, error) {
	query := `SELECT id, family_group_id, legacy_key, household_key
		FROM people WHERE source_tag = ? AND legacy_key = ?`

	var k PersonKeys
	err := s.db().QueryRowContext(ctx, query, sourceTag, legacyKey).
		Scan(&k.PersonID, &k.FamilyGroupID, &k.LegacyKey, &k.HouseholdKey)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find person %q: %w", legacyKey, err)
	}

	return &k, nil
}

// FindGroup looks one group up by natural key. Returns 0 when absent.
func (s *SQLStore) FindGroup(ctx context.Context, sourceTag, legacyKey string) (int64, error) {
	return s.findKeyed(ctx, "groups", sourceTag, legacyKey)
}

// FindBatch looks one batch up by natural key. Returns 0 when absent.
func (s *SQLStore) FindBatch(ctx context.Context, sourceTag, legacyKey string) (int64, error) {
	return s.findKeyed(ctx, "financial_batches", sourceTag, legacyKey)
}

func (s *SQLStore) findKeyed(ctx context.Context, table, sourceTag, legacyKey string) (int64, error) {
	query := fmt.Sprintf("SELECT id FROM %s WHERE source_tag = ? AND legacy_key = ?", table)

	var id int64
	err := s.db().QueryRowContext(ctx, query, sourceTag, legacyKey).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to find %s row %q: %w", table, legacyKey, err)
	}

	return id, nil
}

// FindCampusByName looks a campus up by name. Returns 0 when absent.
func (s *SQLStore) FindCampusByName(ctx context.Context, name string) (int64, error) {
	query := `SELECT id FROM campuses WHERE name = ?`

	var id int64
	err := s.db().QueryRowContext(ctx, query, name).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to find campus %q: %w", name, err)
	}

	return id, nil
}

// WithinTx runs fn inside one transaction. Session flags for audit
// suppression and change tracking are set before fn runs.
func (s *SQLStore) WithinTx(ctx context.Context, fn func(Tx) error) error {
	tx, err := s.db().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	// Rollback is a no-op after a successful commit (tx set to nil).
	defer func() {
		if tx != nil {
			tx.Rollback()
		}
	}()

	if s.disableAuditing {
		// Audit triggers on the destination schema check this session
		// variable and skip writing trail rows during bulk load.
		if _, err := tx.ExecContext(ctx, "SET @bulk_import_no_audit = 1"); err != nil {
			return fmt.Errorf("failed to disable auditing: %w", err)
		}
	}

	if err := fn(&sqlTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	return nil
}

// Reset recycles the destination session at a checkpoint boundary.
func (s *SQLStore) Reset(ctx context.Context) error {
	return s.manager.Recycle(ctx)
}

// Close closes the underlying connection.
func (s *SQLStore) Close() error {
	return s.manager.Close()
}
