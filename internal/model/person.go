package model

import "time"

// Record status of a person in the destination system.
const (
	RecordStatusActive   = "active"
	RecordStatusInactive = "inactive"
	RecordStatusPending  = "pending"
)

// Person kinds. Businesses are represented as person records so that
// contributions and pledges attach uniformly.
const (
	PersonKindIndividual = "individual"
	PersonKindBusiness   = "business"
)

// Person is one individual (or business stand-in) in the destination system.
type Person struct {
	Meta
	Origin

	Kind         string // PersonKindIndividual or PersonKindBusiness
	FirstName    string
	NickName     string
	MiddleName   string
	LastName     string
	Gender       string
	Email        string
	BirthDate    *time.Time
	RecordStatus string
	IsDeceased   bool

	// HouseholdKey is the legacy household identifier this person belongs
	// to. People sharing a household key land in one family group.
	HouseholdKey  string
	FamilyGroupID int64
	FamilyRole    string // adult or child

	Phones []PhoneNumber
}

// Family roles within a household group.
const (
	FamilyRoleAdult = "adult"
	FamilyRoleChild = "child"
)

// PhoneNumber is one normalized phone number attached to a person.
type PhoneNumber struct {
	Meta
	PersonID    int64
	Kind        string // home, work, mobile
	CountryCode string
	Number      string
	Extension   string
	Unlisted    bool
}

// Phone kinds.
const (
	PhoneKindHome   = "home"
	PhoneKindWork   = "work"
	PhoneKindMobile = "mobile"
)
