// Package domain contains core concepts of the renovation collaboration
// system: identifiers, roles and the plain records the other packages
// exchange. No runtime, storage, or transport logic should be added here.
package domain

type RenovationID int64

type ChannelID int64

type UserID int64

// MemberRole governs what a renovation member may see in the activity feed.
// The zero value is OWNER, matching the role ordinal persisted upstream.
type MemberRole int

const (
	RoleOwner MemberRole = iota
	RoleMember
)

func (r MemberRole) String() string {
	if r == RoleOwner {
		return "OWNER"
	}
	return "MEMBER"
}

// Member relates a user to a renovation with a visibility role.
type Member struct {
	UserID UserID
	Role   MemberRole
}

type User struct {
	ID   UserID
	Name string
}

type Renovation struct {
	ID      RenovationID
	Name    string
	OwnerID UserID
}

// Channel is a chat channel owned by a renovation. Membership is tracked
// separately so a renovation member is not automatically in every channel.
type Channel struct {
	ID           ChannelID
	RenovationID RenovationID
	Name         string
}
