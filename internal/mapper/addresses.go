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

// AddressesMapper imports family addresses by type. The owning family
// group is committed by the people mapper before this one runs, so the
// link is direct; a household whose family cannot be resolved is skipped.
// Rows are deduplicated by the household+type location key.
type AddressesMapper struct {
	env *Env
}

// NewAddressesMapper creates the addresses mapper.
func NewAddressesMapper(env *Env) *AddressesMapper {
	return &AddressesMapper{env: env}
}

func (m *AddressesMapper) Name() string { return "addresses" }

func (m *AddressesMapper) Requires() []string { return []string{"people"} }

func (m *AddressesMapper) Preloads() []refindex.Kind {
	return []refindex.Kind{refindex.KindPeople, refindex.KindLocations}
}

func (m *AddressesMapper) Schema() legacy.Schema {
	return legacy.Schema{
		Table:    "addresses",
		Required: []string{"household_id", "street1"},
		Optional: []string{
			"address_type", "street2", "city", "state", "postal_code", "country",
		},
	}
}

// pendingAddress is one buffered family address.
type pendingAddress struct {
	location *model.Location
	link     *model.GroupLocation
}

func (m *AddressesMapper) Run(ctx context.Context, src legacy.Source) (int, error) {
	engine := NewCheckpointer[*pendingAddress](
		m.env.engineOptions(m.Name(), src), m.flush, m.register)

	for {
		row, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return engine.Completed(), err
		}

		household := row.Str("household_id")
		street := row.Str("street1")
		if household == "" || street == "" {
			continue
		}

		familyID, ok := m.env.Index.ResolveFamily(household)
		if !ok {
			continue // unresolved family, soft skip
		}

		addressType := model.AddressTypeHome
		switch strings.ToLower(row.Str("address_type")) {
		case "work":
			addressType = model.AddressTypeWork
		case "previous":
			addressType = model.AddressTypePrevious
		}

		key := householdKey(household) + ":" + addressType
		if m.env.Index.HasLocation(key) {
			continue // already imported
		}

		pending := &pendingAddress{
			location: &model.Location{
				Meta: model.NewMeta(),
				Origin: model.Origin{
					SourceTag: m.env.tag(),
					LegacyKey: key,
					LegacyID:  legacyID(household),
				},
				Street1:    street,
				Street2:    row.Str("street2"),
				City:       row.Str("city"),
				State:      row.Str("state"),
				PostalCode: row.Str("postal_code"),
				Country:    row.Str("country"),
			},
			link: &model.GroupLocation{
				Meta:      model.NewMeta(),
				GroupID:   familyID,
				Type:      addressType,
				IsMailing: addressType == model.AddressTypeHome,
				IsMapped:  addressType == model.AddressTypeHome,
			},
		}

		// Duplicate rows inside the same buffer are skipped too.
		m.env.Index.RegisterLocation(key)

		if err := engine.Add(ctx, pending); err != nil {
			return engine.Completed(), err
		}
	}

	if err := engine.Flush(ctx); err != nil {
		return engine.Completed(), err
	}

	return engine.Completed(), nil
}

func (m *AddressesMapper) flush(ctx context.Context, tx store.Tx, batch []*pendingAddress) error {
	locations := make([]*model.Location, 0, len(batch))
	for _, p := range batch {
		locations = append(locations, p.location)
	}
	if err := tx.InsertLocations(ctx, locations); err != nil {
		return err
	}

	links := make([]*model.GroupLocation, 0, len(batch))
	for _, p := range batch {
		p.link.LocationID = p.location.ID
		links = append(links, p.link)
	}
	return tx.InsertGroupLocations(ctx, links)
}

func (m *AddressesMapper) register(batch []*pendingAddress) {
	for _, p := range batch {
		m.env.Index.RegisterLocation(p.location.LegacyKey)
	}
}

var _ Mapper = (*AddressesMapper)(nil)
