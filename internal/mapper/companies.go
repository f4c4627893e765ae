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

// CompaniesMapper imports businesses as person records.
//
// Each company row produces a business person inside its own family group,
// optionally an auxiliary contact person, and a home address attached to
// the family group. The address row is built before the group has an id,
// so the link is deferred and bound in a second pass at checkpoint, keyed
// by the group's full natural key.
type CompaniesMapper struct {
	env      *Env
	deferred *DeferredLinks
}

// NewCompaniesMapper creates the companies mapper.
func NewCompaniesMapper(env *Env) *CompaniesMapper {
	return &CompaniesMapper{env: env, deferred: NewDeferredLinks()}
}

func (m *CompaniesMapper) Name() string { return "companies" }

func (m *CompaniesMapper) Requires() []string { return []string{"people"} }

func (m *CompaniesMapper) Preloads() []refindex.Kind {
	return []refindex.Kind{refindex.KindPeople}
}

func (m *CompaniesMapper) Schema() legacy.Schema {
	return legacy.Schema{
		Table:    "companies",
		Required: []string{"company_id", "name"},
		Optional: []string{
			"contact_name", "phone", "email",
			"street1", "street2", "city", "state", "postal_code", "country",
		},
	}
}

// pendingCompany is one buffered company with its family group, optional
// contact person, phones and deferred home address.
type pendingCompany struct {
	company *model.Person
	contact *model.Person // nil when the row has no contact name
	family  *model.Group
	phones  []*model.PhoneNumber
	address *model.Location      // nil when the row has no street
	link    *model.GroupLocation // home address link, group bound at flush
}

func (m *CompaniesMapper) Run(ctx context.Context, src legacy.Source) (int, error) {
	engine := NewCheckpointer[*pendingCompany](
		m.env.engineOptions(m.Name(), src), m.flush, m.register)

	for {
		row, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return engine.Completed(), err
		}

		id := row.Str("company_id")
		name := row.Str("name")
		if id == "" || name == "" {
			continue // soft skip
		}

		key := companyKey(id)
		if _, found, err := m.env.Index.ResolvePerson(ctx, key, key); err != nil {
			return engine.Completed(), err
		} else if found {
			continue
		}

		pending := m.buildCompany(row, id, name)

		if pending.address != nil {
			m.deferred.Defer(pending.family.LegacyKey, pending.link)
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

func (m *CompaniesMapper) buildCompany(row legacy.Row, id, name string) *pendingCompany {
	key := companyKey(id)

	family := &model.Group{
		Meta: model.NewMeta(),
		Origin: model.Origin{
			SourceTag: m.env.tag(),
			LegacyKey: key,
			LegacyID:  legacyID(id),
		},
		Type:     model.GroupTypeFamily,
		Name:     name,
		IsActive: true,
	}

	company := &model.Person{
		Meta: model.NewMeta(),
		Origin: model.Origin{
			SourceTag: m.env.tag(),
			LegacyKey: key,
			LegacyID:  legacyID(id),
		},
		Kind:         model.PersonKindBusiness,
		LastName:     name,
		Email:        row.Str("email"),
		RecordStatus: model.RecordStatusActive,
		HouseholdKey: key,
		FamilyRole:   model.FamilyRoleAdult,
	}

	pending := &pendingCompany{
		company: company,
		contact: m.buildContact(row, id, key),
		family:  family,
	}

	if phone, ok := NormalizePhone(row.Str("phone"), m.env.Config.Import.DefaultCountryCode); ok {
		pending.phones = append(pending.phones, &model.PhoneNumber{
			Meta:        model.NewMeta(),
			Kind:        model.PhoneKindWork,
			CountryCode: phone.CountryCode,
			Number:      phone.Number,
			Extension:   phone.Extension,
		})
	}

	if street := row.Str("street1"); street != "" {
		pending.address = &model.Location{
			Meta: model.NewMeta(),
			Origin: model.Origin{
				SourceTag: m.env.tag(),
				LegacyKey: key,
				LegacyID:  legacyID(id),
			},
			Street1:    street,
			Street2:    row.Str("street2"),
			City:       row.Str("city"),
			State:      row.Str("state"),
			PostalCode: row.Str("postal_code"),
			Country:    row.Str("country"),
		}
		pending.link = &model.GroupLocation{
			Meta:      model.NewMeta(),
			Type:      model.AddressTypeHome,
			IsMailing: true,
		}
	}

	return pending
}

// buildContact splits the free-text contact name on the first space:
// first token is the first name, the remainder (possibly empty) the last
// name. A row with no contact name simply has no contact person.
func (m *CompaniesMapper) buildContact(row legacy.Row, id, familyKey string) *model.Person {
	name := row.Str("contact_name")
	if name == "" {
		return nil
	}

	first, last := name, ""
	if i := strings.Index(name, " "); i >= 0 {
		first = name[:i]
		last = strings.TrimSpace(name[i+1:])
	}

	return &model.Person{
		Meta: model.NewMeta(),
		Origin: model.Origin{
			SourceTag: m.env.tag(),
			LegacyKey: "company-contact:" + id,
			LegacyID:  legacyID(id),
		},
		Kind:         model.PersonKindIndividual,
		FirstName:    first,
		LastName:     last,
		RecordStatus: model.RecordStatusActive,
		HouseholdKey: familyKey,
		FamilyRole:   model.FamilyRoleAdult,
	}
}

func (m *CompaniesMapper) flush(ctx context.Context, tx store.Tx, batch []*pendingCompany) error {
	families := make([]*model.Group, 0, len(batch))
	for _, p := range batch {
		families = append(families, p.family)
	}
	if err := tx.InsertGroups(ctx, families); err != nil {
		return err
	}

	var people []*model.Person
	for _, p := range batch {
		p.company.FamilyGroupID = p.family.ID
		people = append(people, p.company)
		if p.contact != nil {
			p.contact.FamilyGroupID = p.family.ID
			people = append(people, p.contact)
		}
	}
	if err := tx.InsertPeople(ctx, people); err != nil {
		return err
	}

	var phones []*model.PhoneNumber
	var locations []*model.Location
	var links []*model.GroupLocation
	for _, p := range batch {
		for _, phone := range p.phones {
			phone.PersonID = p.company.ID
			phones = append(phones, phone)
		}
		if p.address != nil {
			locations = append(locations, p.address)
			links = append(links, p.link)
		}
	}
	if err := tx.InsertPhoneNumbers(ctx, phones); err != nil {
		return err
	}
	if err := tx.InsertLocations(ctx, locations); err != nil {
		return err
	}
	for i, link := range links {
		link.LocationID = locations[i].ID
	}
	if err := tx.InsertGroupLocations(ctx, links); err != nil {
		return err
	}

	// Second pass: bind address links to the family ids assigned above.
	byKey := make(map[string]int64, len(batch))
	for _, p := range batch {
		byKey[p.family.LegacyKey] = p.family.ID
	}
	resolved, droppedKeys := m.deferred.ResolveAll(func(key string) (int64, bool) {
		id, ok := byKey[key]
		return id, ok
	})
	if len(droppedKeys) > 0 {
		m.env.Log.WithMapper(m.Name()).Debugw("dropped unresolvable address links",
			"count", len(droppedKeys), "keys", droppedKeys)
	}
	if err := tx.LinkGroupLocations(ctx, resolved); err != nil {
		return err
	}

	return nil
}

func (m *CompaniesMapper) register(batch []*pendingCompany) {
	for _, p := range batch {
		m.env.Index.RegisterPerson(store.PersonKeys{
			PersonID:      p.company.ID,
			FamilyGroupID: p.family.ID,
			LegacyKey:     p.company.LegacyKey,
			HouseholdKey:  p.company.HouseholdKey,
		})
		if p.contact != nil {
			m.env.Index.RegisterPerson(store.PersonKeys{
				PersonID:      p.contact.ID,
				FamilyGroupID: p.family.ID,
				LegacyKey:     p.contact.LegacyKey,
				HouseholdKey:  p.contact.HouseholdKey,
			})
		}
	}
}

var _ Mapper = (*CompaniesMapper)(nil)
