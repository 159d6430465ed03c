package organization

import (
	"time"
)

// InviteTTL is the window during which an invite token can be accepted.
const InviteTTL = 7 * 24 * time.Hour

// Sentinel payload returned when the invited email has no account yet.
// Clients match on these exact strings; do not reword.
const (
	InviteRegisterFirstType    = "register-user-first"
	InviteRegisterFirstMessage = "Please register first before accepting the invite"
)

// Invite is a time-boxed, single-use token inviting an email address
// into an organization. Expiry is derived from ExpiresAt at read time;
// only acceptance is a stored state transition.
type Invite struct {
	ID             int64     `json:"id" gorm:"primaryKey"`
	Email          string    `json:"email" gorm:"not null"`
	OrganizationID int64     `json:"organization_id" gorm:"not null"`
	InviterID      int64     `json:"inviter_id" gorm:"not null"`
	Token          string    `json:"-" gorm:"uniqueIndex;not null"`
	Accepted       bool      `json:"accepted" gorm:"default:false"`
	ExpiresAt      time.Time `json:"expires_at" gorm:"not null"`
	CreatedAt      time.Time `json:"created_at"`
}

func (Invite) TableName() string { return "invites" }

func (i *Invite) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// Usable reports whether the invite can still be validated or accepted.
func (i *Invite) Usable(now time.Time) bool {
	return !i.Accepted && !i.Expired(now)
}

// AcceptOutcome is the result of AcceptInvite: either a session token
// scoped to the organization, or the register-first sentinel.
type AcceptOutcome struct {
	Token                string
	RequiresRegistration bool
	InviteToken          string
	Email                string
}
