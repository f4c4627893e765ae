package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dbsmedya/congregate/internal/model"
)

// sqlTx implements Tx over one open *sql.Tx.
type sqlTx struct {
	tx *sql.Tx
}

// nullTime converts an optional time for a nullable column.
func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// nullID converts an id for a nullable FK column; 0 means no reference.
func nullID(id int64) sql.NullInt64 {
	if id == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: id, Valid: true}
}

func (t *sqlTx) InsertCampuses(ctx context.Context, campuses []*model.Campus) error {
	stmt, err := t.tx.PrepareContext(ctx, `INSERT INTO campuses
		(guid, name, short_code, is_active, source_tag, legacy_key, legacy_id, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare campus insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range campuses {
		res, err := stmt.ExecContext(ctx,
			c.GUID.String(), c.Name, c.ShortCode, c.IsActive,
			c.SourceTag, c.LegacyKey, c.LegacyID, c.CreatedAt, c.ModifiedAt)
		if err != nil {
			return fmt.Errorf("failed to insert campus %q: %w", c.Name, err)
		}
		if c.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to read campus id: %w", err)
		}
	}
	return nil
}

func (t *sqlTx) InsertGroups(ctx context.Context, groups []*model.Group) error {
	stmt, err := t.tx.PrepareContext(ctx, `INSERT INTO groups
		(guid, type, name, description, campus_id, is_active, schedule_content,
		 source_tag, legacy_key, legacy_id, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare group insert: %w", err)
	}
	defer stmt.Close()

	attrStmt, err := t.tx.PrepareContext(ctx, `INSERT INTO group_attributes
		(group_id, name, value)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE value = VALUES(value)`)
	if err != nil {
		return fmt.Errorf("failed to prepare group attribute insert: %w", err)
	}
	defer attrStmt.Close()

	for _, g := range groups {
		var scheduleContent sql.NullString
		if g.Schedule != nil {
			scheduleContent = sql.NullString{String: g.Schedule.Content(), Valid: true}
		}

		res, err := stmt.ExecContext(ctx,
			g.GUID.String(), g.Type, g.Name, g.Description, nullID(g.CampusID),
			g.IsActive, scheduleContent,
			g.SourceTag, g.LegacyKey, g.LegacyID, g.CreatedAt, g.ModifiedAt)
		if err != nil {
			return fmt.Errorf("failed to insert group %q: %w", g.Name, err)
		}
		if g.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to read group id: %w", err)
		}

		// Custom attributes are last-write-wins on conflict.
		for name, value := range g.Attributes {
			if _, err := attrStmt.ExecContext(ctx, g.ID, name, value); err != nil {
				return fmt.Errorf("failed to insert group attribute %q: %w", name, err)
			}
		}
	}
	return nil
}

func (t *sqlTx) InsertPeople(ctx context.Context, people []*model.Person) error {
	stmt, err := t.tx.PrepareContext(ctx, `INSERT INTO people
		(guid, kind, first_name, nick_name, middle_name, last_name, gender, email,
		 birth_date, record_status, is_deceased, family_group_id, family_role,
		 household_key, source_tag, legacy_key, legacy_id, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare person insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range people {
		res, err := stmt.ExecContext(ctx,
			p.GUID.String(), p.Kind, p.FirstName, p.NickName, p.MiddleName,
			p.LastName, p.Gender, p.Email, nullTime(p.BirthDate),
			p.RecordStatus, p.IsDeceased, nullID(p.FamilyGroupID), p.FamilyRole,
			p.HouseholdKey, p.SourceTag, p.LegacyKey, p.LegacyID,
			p.CreatedAt, p.ModifiedAt)
		if err != nil {
			return fmt.Errorf("failed to insert person %q: %w", p.LegacyKey, err)
		}
		if p.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to read person id: %w", err)
		}
	}
	return nil
}

func (t *sqlTx) InsertPhoneNumbers(ctx context.Context, phones []*model.PhoneNumber) error {
	stmt, err := t.tx.PrepareContext(ctx, `INSERT INTO phone_numbers
		(guid, person_id, kind, country_code, number, extension, unlisted, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare phone insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range phones {
		res, err := stmt.ExecContext(ctx,
			p.GUID.String(), p.PersonID, p.Kind, p.CountryCode,
			p.Number, p.Extension, p.Unlisted, p.CreatedAt, p.ModifiedAt)
		if err != nil {
			return fmt.Errorf("failed to insert phone number: %w", err)
		}
		if p.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to read phone id: %w", err)
		}
	}
	return nil
}

func (t *sqlTx) InsertLocations(ctx context.Context, locations []*model.Location) error {
	stmt, err := t.tx.PrepareContext(ctx, `INSERT INTO locations
		(guid, street1, street2, city, state, postal_code, country,
		 source_tag, legacy_key, legacy_id, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare location insert: %w", err)
	}
	defer stmt.Close()

	for _, l := range locations {
		res, err := stmt.ExecContext(ctx,
			l.GUID.String(), l.Street1, l.Street2, l.City, l.State,
			l.PostalCode, l.Country,
			l.SourceTag, l.LegacyKey, l.LegacyID, l.CreatedAt, l.ModifiedAt)
		if err != nil {
			return fmt.Errorf("failed to insert location: %w", err)
		}
		if l.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to read location id: %w", err)
		}
	}
	return nil
}

func (t *sqlTx) InsertGroupLocations(ctx context.Context, links []*model.GroupLocation) error {
	stmt, err := t.tx.PrepareContext(ctx, `INSERT INTO group_locations
		(guid, group_id, location_id, type, is_mailing, is_mapped, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare group location insert: %w", err)
	}
	defer stmt.Close()

	for _, gl := range links {
		res, err := stmt.ExecContext(ctx,
			gl.GUID.String(), nullID(gl.GroupID), gl.LocationID, gl.Type,
			gl.IsMailing, gl.IsMapped, gl.CreatedAt, gl.ModifiedAt)
		if err != nil {
			return fmt.Errorf("failed to insert group location: %w", err)
		}
		if gl.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to read group location id: %w", err)
		}
	}
	return nil
}

func (t *sqlTx) InsertGroupMembers(ctx context.Context, members []*model.GroupMember) error {
	stmt, err := t.tx.PrepareContext(ctx, `INSERT INTO group_members
		(guid, group_id, person_id, role, is_active,
		 source_tag, legacy_key, legacy_id, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare group member insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range members {
		res, err := stmt.ExecContext(ctx,
			m.GUID.String(), m.GroupID, m.PersonID, m.Role, m.IsActive,
			m.SourceTag, m.LegacyKey, m.LegacyID, m.CreatedAt, m.ModifiedAt)
		if err != nil {
			return fmt.Errorf("failed to insert group member: %w", err)
		}
		if m.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to read group member id: %w", err)
		}
	}
	return nil
}

func (t *sqlTx) InsertAttendance(ctx context.Context, records []*model.Attendance) error {
	stmt, err := t.tx.PrepareContext(ctx, `INSERT INTO attendances
		(guid, group_id, person_id, location_id, started_at, did_attend, note,
		 source_tag, legacy_key, legacy_id, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare attendance insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range records {
		res, err := stmt.ExecContext(ctx,
			a.GUID.String(), nullID(a.GroupID), a.PersonID, nullID(a.LocationID),
			a.StartedAt, a.DidAttend, a.Note,
			a.SourceTag, a.LegacyKey, a.LegacyID, a.CreatedAt, a.ModifiedAt)
		if err != nil {
			return fmt.Errorf("failed to insert attendance: %w", err)
		}
		if a.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to read attendance id: %w", err)
		}
	}
	return nil
}

func (t *sqlTx) InsertNotes(ctx context.Context, notes []*model.Note) error {
	stmt, err := t.tx.PrepareContext(ctx, `INSERT INTO notes
		(guid, person_id, type, caption, text, is_alert, is_private, noted_at,
		 source_tag, legacy_key, legacy_id, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare note insert: %w", err)
	}
	defer stmt.Close()

	for _, n := range notes {
		res, err := stmt.ExecContext(ctx,
			n.GUID.String(), n.PersonID, n.Type, n.Caption, n.Text,
			n.IsAlert, n.IsPrivate, nullTime(n.NotedAt),
			n.SourceTag, n.LegacyKey, n.LegacyID, n.CreatedAt, n.ModifiedAt)
		if err != nil {
			return fmt.Errorf("failed to insert note: %w", err)
		}
		if n.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to read note id: %w", err)
		}
	}
	return nil
}

func (t *sqlTx) InsertBatches(ctx context.Context, batches []*model.FinancialBatch) error {
	stmt, err := t.tx.PrepareContext(ctx, `INSERT INTO financial_batches
		(guid, name, status, control_amount, start_date, end_date, campus_id,
		 source_tag, legacy_key, legacy_id, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch insert: %w", err)
	}
	defer stmt.Close()

	for _, b := range batches {
		res, err := stmt.ExecContext(ctx,
			b.GUID.String(), b.Name, b.Status, b.ControlAmount.String(),
			nullTime(b.StartDate), nullTime(b.EndDate), nullID(b.CampusID),
			b.SourceTag, b.LegacyKey, b.LegacyID, b.CreatedAt, b.ModifiedAt)
		if err != nil {
			return fmt.Errorf("failed to insert batch %q: %w", b.Name, err)
		}
		if b.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to read batch id: %w", err)
		}
	}
	return nil
}

func (t *sqlTx) InsertTransactions(ctx context.Context, txns []*model.FinancialTransaction) error {
	stmt, err := t.tx.PrepareContext(ctx, `INSERT INTO financial_transactions
		(guid, batch_id, authorized_person_id, transaction_date, currency_type,
		 check_number, summary, source_tag, legacy_key, legacy_id, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare transaction insert: %w", err)
	}
	defer stmt.Close()

	detailStmt, err := t.tx.PrepareContext(ctx, `INSERT INTO financial_transaction_details
		(guid, transaction_id, account_id, amount, summary, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare transaction detail insert: %w", err)
	}
	defer detailStmt.Close()

	refundStmt, err := t.tx.PrepareContext(ctx, `INSERT INTO financial_transaction_refunds
		(guid, transaction_id, reason, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare refund insert: %w", err)
	}
	defer refundStmt.Close()

	for _, txn := range txns {
		res, err := stmt.ExecContext(ctx,
			txn.GUID.String(), nullID(txn.BatchID), nullID(txn.AuthorizedPerson),
			nullTime(txn.TransactionDate), txn.CurrencyType, txn.CheckNumber,
			txn.Summary, txn.SourceTag, txn.LegacyKey, txn.LegacyID,
			txn.CreatedAt, txn.ModifiedAt)
		if err != nil {
			return fmt.Errorf("failed to insert transaction %q: %w", txn.LegacyKey, err)
		}
		if txn.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to read transaction id: %w", err)
		}

		for i := range txn.Details {
			d := &txn.Details[i]
			d.TransactionID = txn.ID
			dres, err := detailStmt.ExecContext(ctx,
				d.GUID.String(), d.TransactionID, d.AccountID,
				d.Amount.String(), d.Summary, d.CreatedAt, d.ModifiedAt)
			if err != nil {
				return fmt.Errorf("failed to insert transaction detail: %w", err)
			}
			if d.ID, err = dres.LastInsertId(); err != nil {
				return fmt.Errorf("failed to read transaction detail id: %w", err)
			}
		}

		if txn.Refund != nil {
			txn.Refund.TransactionID = txn.ID
			rres, err := refundStmt.ExecContext(ctx,
				txn.Refund.GUID.String(), txn.Refund.TransactionID,
				txn.Refund.Reason, txn.Refund.CreatedAt, txn.Refund.ModifiedAt)
			if err != nil {
				return fmt.Errorf("failed to insert refund: %w", err)
			}
			if txn.Refund.ID, err = rres.LastInsertId(); err != nil {
				return fmt.Errorf("failed to read refund id: %w", err)
			}
		}
	}
	return nil
}

func (t *sqlTx) InsertPledges(ctx context.Context, pledges []*model.FinancialPledge) error {
	stmt, err := t.tx.PrepareContext(ctx, `INSERT INTO financial_pledges
		(guid, person_id, account_id, total_amount, start_date, end_date, frequency,
		 source_tag, legacy_key, legacy_id, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare pledge insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range pledges {
		res, err := stmt.ExecContext(ctx,
			p.GUID.String(), p.PersonID, nullID(p.AccountID),
			p.TotalAmount.String(), nullTime(p.StartDate), nullTime(p.EndDate),
			p.Frequency, p.SourceTag, p.LegacyKey, p.LegacyID,
			p.CreatedAt, p.ModifiedAt)
		if err != nil {
			return fmt.Errorf("failed to insert pledge %q: %w", p.LegacyKey, err)
		}
		if p.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to read pledge id: %w", err)
		}
	}
	return nil
}

func (t *sqlTx) InsertAccounts(ctx context.Context, accounts []*model.FinancialAccount) error {
	stmt, err := t.tx.PrepareContext(ctx, `INSERT INTO financial_accounts
		(guid, name, public_name, parent_id, campus_id, is_active,
		 source_tag, legacy_key, legacy_id, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare account insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range accounts {
		res, err := stmt.ExecContext(ctx,
			a.GUID.String(), a.Name, a.PublicName, nullID(a.ParentID),
			nullID(a.CampusID), a.IsActive,
			a.SourceTag, a.LegacyKey, a.LegacyID, a.CreatedAt, a.ModifiedAt)
		if err != nil {
			return fmt.Errorf("failed to insert account %q: %w", a.Name, err)
		}
		if a.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to read account id: %w", err)
		}
	}
	return nil
}

func (t *sqlTx) InsertBankAccounts(ctx context.Context, accounts []*model.BankAccount) error {
	stmt, err := t.tx.PrepareContext(ctx, `INSERT INTO bank_accounts
		(guid, person_id, fingerprint, source_tag, legacy_key, legacy_id, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare bank account insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range accounts {
		res, err := stmt.ExecContext(ctx,
			a.GUID.String(), a.PersonID, a.Fingerprint,
			a.SourceTag, a.LegacyKey, a.LegacyID, a.CreatedAt, a.ModifiedAt)
		if err != nil {
			return fmt.Errorf("failed to insert bank account: %w", err)
		}
		if a.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to read bank account id: %w", err)
		}
	}
	return nil
}

// LinkGroupLocations binds group location rows to their owning group ids.
func (t *sqlTx) LinkGroupLocations(ctx context.Context, links []GroupLocationLink) error {
	stmt, err := t.tx.PrepareContext(ctx,
		`UPDATE group_locations SET group_id = ? WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare group location link: %w", err)
	}
	defer stmt.Close()

	for _, link := range links {
		if _, err := stmt.ExecContext(ctx, link.GroupID, link.GroupLocationID); err != nil {
			return fmt.Errorf("failed to link group location %d: %w", link.GroupLocationID, err)
		}
	}
	return nil
}
