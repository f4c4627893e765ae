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

// PeopleMapper imports individuals and their family households.
//
// Consecutive rows sharing a household id collapse into one family group.
// The source does not guarantee a household's rows are contiguous; when it
// violates that, a duplicate family group is created. That is a documented
// property of the source data, not silently repaired here.
type PeopleMapper struct {
	env *Env
}

// NewPeopleMapper creates the people mapper.
func NewPeopleMapper(env *Env) *PeopleMapper {
	return &PeopleMapper{env: env}
}

func (m *PeopleMapper) Name() string { return "people" }

func (m *PeopleMapper) Requires() []string { return nil }

func (m *PeopleMapper) Preloads() []refindex.Kind {
	return []refindex.Kind{refindex.KindPeople}
}

func (m *PeopleMapper) Schema() legacy.Schema {
	return legacy.Schema{
		Table:    "people",
		Required: []string{"individual_id", "household_id", "last_name"},
		Optional: []string{
			"first_name", "nick_name", "middle_name", "gender", "email",
			"birth_date", "family_role", "record_status", "is_deceased",
			"home_phone", "work_phone", "mobile_phone", "household_name",
		},
	}
}

// pendingPerson is one buffered person plus the family group created for
// it (family is shared across the household's consecutive rows; its id is
// assigned at flush).
type pendingPerson struct {
	person *model.Person
	phones []*model.PhoneNumber
	family *model.Group // nil when the family was resolved from a prior run
}

func (m *PeopleMapper) Run(ctx context.Context, src legacy.Source) (int, error) {
	engine := NewCheckpointer[*pendingPerson](
		m.env.engineOptions(m.Name(), src), m.flush, m.register)

	// Consecutive-household grouping state.
	var lastHousehold string
	var currentFamily *model.Group
	var currentFamilyID int64

	for {
		row, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return engine.Completed(), err
		}

		individualKey := row.Str("individual_id")
		household := row.Str("household_id")
		if individualKey == "" || household == "" {
			continue // soft skip, required identity missing
		}

		// Idempotent re-run: an already-imported individual is skipped.
		if _, found, err := m.env.Index.ResolvePerson(ctx, individualKey, household); err != nil {
			return engine.Completed(), err
		} else if found {
			continue
		}

		if household != lastHousehold {
			lastHousehold = household
			currentFamily = nil
			currentFamilyID = 0

			if id, ok := m.env.Index.ResolveFamily(household); ok {
				currentFamilyID = id
			} else {
				name := row.Str("household_name")
				if name == "" {
					name = row.Str("last_name") + " Family"
				}
				currentFamily = &model.Group{
					Meta: model.NewMeta(),
					Origin: model.Origin{
						SourceTag: m.env.tag(),
						LegacyKey: householdKey(household),
						LegacyID:  legacyID(household),
					},
					Type:     model.GroupTypeFamily,
					Name:     name,
					IsActive: true,
				}
			}
		}

		person := m.buildPerson(row, individualKey, household)
		person.FamilyGroupID = currentFamilyID

		pending := &pendingPerson{
			person: person,
			phones: m.buildPhones(row),
			family: currentFamily,
		}

		if err := engine.Add(ctx, pending); err != nil {
			return engine.Completed(), err
		}
	}

	if err := engine.Flush(ctx); err != nil {
		return engine.Completed(), err
	}

	return engine.Completed(), nil
}

func (m *PeopleMapper) buildPerson(row legacy.Row, individualKey, household string) *model.Person {
	p := &model.Person{
		Meta: model.NewMeta(),
		Origin: model.Origin{
			SourceTag: m.env.tag(),
			LegacyKey: individualKey,
			LegacyID:  legacyID(individualKey),
		},
		Kind:         model.PersonKindIndividual,
		FirstName:    row.Str("first_name"),
		NickName:     row.Str("nick_name"),
		MiddleName:   row.Str("middle_name"),
		LastName:     row.Str("last_name"),
		Email:        row.Str("email"),
		RecordStatus: model.RecordStatusActive,
		HouseholdKey: household,
		FamilyRole:   model.FamilyRoleAdult,
	}

	switch strings.ToLower(row.Str("gender")) {
	case "m", "male":
		p.Gender = "male"
	case "f", "female":
		p.Gender = "female"
	}

	if birth, ok := row.Date("birth_date"); ok {
		p.BirthDate = &birth
	}

	if strings.EqualFold(row.Str("family_role"), "child") {
		p.FamilyRole = model.FamilyRoleChild
	}

	switch strings.ToLower(row.Str("record_status")) {
	case "inactive":
		p.RecordStatus = model.RecordStatusInactive
	case "pending":
		p.RecordStatus = model.RecordStatusPending
	}

	if deceased, ok := row.Bool("is_deceased"); ok {
		p.IsDeceased = deceased
	}

	return p
}

// buildPhones normalizes the three phone columns. PersonID is bound at
// flush, after the person has an id.
func (m *PeopleMapper) buildPhones(row legacy.Row) []*model.PhoneNumber {
	columns := []struct {
		column string
		kind   string
	}{
		{"home_phone", model.PhoneKindHome},
		{"work_phone", model.PhoneKindWork},
		{"mobile_phone", model.PhoneKindMobile},
	}

	var phones []*model.PhoneNumber
	for _, c := range columns {
		phone, ok := NormalizePhone(row.Str(c.column), m.env.Config.Import.DefaultCountryCode)
		if !ok {
			continue
		}
		phones = append(phones, &model.PhoneNumber{
			Meta:        model.NewMeta(),
			Kind:        c.kind,
			CountryCode: phone.CountryCode,
			Number:      phone.Number,
			Extension:   phone.Extension,
		})
	}
	return phones
}

// flush persists one batch: new family groups first so their members can
// carry the assigned id, then people, then phones.
func (m *PeopleMapper) flush(ctx context.Context, tx store.Tx, batch []*pendingPerson) error {
	var families []*model.Group
	seen := make(map[*model.Group]bool)
	for _, p := range batch {
		if p.family != nil && p.family.ID == 0 && !seen[p.family] {
			seen[p.family] = true
			families = append(families, p.family)
		}
	}
	if err := tx.InsertGroups(ctx, families); err != nil {
		return err
	}

	people := make([]*model.Person, 0, len(batch))
	for _, p := range batch {
		if p.family != nil {
			p.person.FamilyGroupID = p.family.ID
		}
		people = append(people, p.person)
	}
	if err := tx.InsertPeople(ctx, people); err != nil {
		return err
	}

	var phones []*model.PhoneNumber
	for _, p := range batch {
		for _, phone := range p.phones {
			phone.PersonID = p.person.ID
			phones = append(phones, phone)
		}
	}
	if err := tx.InsertPhoneNumbers(ctx, phones); err != nil {
		return err
	}

	return nil
}

// register records the committed batch in the reference index before any
// later row can reference it.
func (m *PeopleMapper) register(batch []*pendingPerson) {
	for _, p := range batch {
		m.env.Index.RegisterPerson(store.PersonKeys{
			PersonID:      p.person.ID,
			FamilyGroupID: p.person.FamilyGroupID,
			LegacyKey:     p.person.LegacyKey,
			HouseholdKey:  p.person.HouseholdKey,
		})
	}
}

var _ Mapper = (*PeopleMapper)(nil)
