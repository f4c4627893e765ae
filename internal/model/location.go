package model

// Address types on a group location.
const (
	AddressTypeHome     = "home"
	AddressTypeWork     = "work"
	AddressTypePrevious = "previous"
	AddressTypeMeeting  = "meeting"
)

// Location is a postal address.
type Location struct {
	Meta
	Origin

	Street1    string
	Street2    string
	City       string
	State      string
	PostalCode string
	Country    string
}

// GroupLocation attaches a location to a group with an address type.
// GroupID is assigned during checkpoint, after the owning group has been
// persisted in the same buffer.
type GroupLocation struct {
	Meta

	GroupID    int64
	LocationID int64
	Type       string
	IsMailing  bool
	IsMapped   bool
}
