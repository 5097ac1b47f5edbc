package checkin

import "strings"

// UserInfo is the profile Check-in returns from the OIDC userinfo endpoint
// and from the group membership API. Every field is optional; callers must
// cope with any of them being absent.
type UserInfo struct {
	CheckinUserID string   `json:"voperson_id"`
	UserName      string   `json:"preferred_username"`
	FirstName     string   `json:"given_name"`
	LastName      string   `json:"family_name"`
	FullName      string   `json:"name"`
	Email         string   `json:"email"`
	EmailVerified bool     `json:"email_verified"`
	Entitlements  []string `json:"eduperson_entitlement"`
	Assurances    []string `json:"eduperson_assurance"`
}

// GetFullName returns the full name, composed from the name parts when the
// provider did not send one.
func (u *UserInfo) GetFullName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

type groupMembers struct {
	Users []UserInfo `json:"users"`
}
