package model

// Group types. Households, businesses, small groups and ministries are all
// groups in the destination schema, distinguished by type.
const (
	GroupTypeFamily     = "family"
	GroupTypeSmallGroup = "small_group"
	GroupTypeMinistry   = "ministry"
)

// Group is a family household, small group or ministry.
type Group struct {
	Meta
	Origin

	Type        string
	Name        string
	Description string
	CampusID    int64 // 0 when the group has no campus
	IsActive    bool

	// Schedule is the group's meeting schedule, nil when none.
	Schedule *Schedule

	// Attributes are custom group attributes keyed by attribute name.
	// Conflicting values across source rows are last-write-wins.
	Attributes map[string]string

	Members []GroupMember
}

// Group member roles.
const (
	GroupRoleLeader = "leader"
	GroupRoleMember = "member"
)

// GroupMember links a person to a group with a role.
type GroupMember struct {
	Meta
	Origin

	GroupID  int64
	PersonID int64
	Role     string
	IsActive bool
}

// Campus is a physical site of the organization. Campuses are created
// implicitly the first time a source row names one.
type Campus struct {
	Meta
	Origin

	Name      string
	ShortCode string
	IsActive  bool
}
