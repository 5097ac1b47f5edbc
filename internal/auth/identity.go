// Package auth derives the security identity used for authorization from
// the userinfo payload delivered by Check-in.
package auth

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/egi-ims/messages-backend/internal/checkin"
)

// CapabilityIMSUser marks membership in the configured VO, which is the
// capability gating access to the messaging endpoints.
const CapabilityIMSUser = "ims"

const (
	entitlementPrefix = "urn:mace:egi.eu:group:"
	entitlementSuffix = "#aai.egi.eu"
)

// Matches Check-in backed assurance entitlements, e.g.
// https://aai.egi.eu/LoA#Substantial
var assuranceRex = regexp.MustCompile(`^https?://(aai[^.]*\.egi\.eu)/LoA#([^:#/]+)$`)

// Identity is the derived security identity of one request. It is never
// persisted and carries everything downstream authorization needs.
type Identity struct {
	Anonymous bool

	CheckinUserID  string
	UserName       string
	FirstName      string
	LastName       string
	FullName       string
	Email          string
	EmailVerified  bool
	AssuranceLevel string

	capabilities map[string]struct{}
}

// HasCapability reports whether the identity was granted a capability.
func (i *Identity) HasCapability(capability string) bool {
	_, ok := i.capabilities[capability]
	return ok
}

// Capabilities returns the granted capabilities.
func (i *Identity) Capabilities() []string {
	caps := make([]string, 0, len(i.capabilities))
	for c := range i.capabilities {
		caps = append(caps, c)
	}
	return caps
}

func (i *Identity) grant(capability string) {
	if i.capabilities == nil {
		i.capabilities = make(map[string]struct{})
	}
	i.capabilities[capability] = struct{}{}
}

// Derive builds the identity for a request from the raw userinfo payload.
//
// Anonymous callers get an identity with no capabilities and the payload is
// not touched. A missing payload is not a failure either, it just leaves
// the identity unprivileged. A malformed payload is logged and swallowed,
// so the request proceeds as authenticated-but-unprivileged instead of
// being rejected here.
func Derive(anonymous bool, rawUserinfo string, vo string, log zerolog.Logger) *Identity {
	if anonymous {
		return &Identity{Anonymous: true}
	}

	identity := &Identity{}
	if rawUserinfo == "" {
		return identity
	}

	var userInfo checkin.UserInfo
	if err := json.Unmarshal([]byte(rawUserinfo), &userInfo); err != nil {
		log.Warn().Str("userinfo", rawUserinfo).Msg("Cannot deserialize OIDC userinfo")
		return identity
	}

	identity.CheckinUserID = userInfo.CheckinUserID
	identity.UserName = userInfo.UserName
	identity.FirstName = userInfo.FirstName
	identity.LastName = userInfo.LastName
	identity.FullName = userInfo.GetFullName()
	identity.Email = userInfo.Email
	identity.EmailVerified = userInfo.EmailVerified

	// Only the first Check-in backed assurance level is retained, in the
	// order the provider returned them.
	for _, a := range userInfo.Assurances {
		if m := assuranceRex.FindStringSubmatch(a); m != nil {
			identity.AssuranceLevel = strings.ToLower(m[2])
			break
		}
	}

	// Members of the configured VO get access to IMS messaging.
	membership := entitlementPrefix + strings.ToLower(vo) + ":role=member" + entitlementSuffix
	for _, e := range userInfo.Entitlements {
		if matchesMembership(e, membership) {
			identity.grant(CapabilityIMSUser)
			break
		}
	}

	return identity
}

// matchesMembership compares an entitlement against the membership
// entitlement of the configured VO. Only the VO segment is compared
// case-insensitively, everything else must match verbatim.
func matchesMembership(entitlement, membership string) bool {
	if entitlement == membership {
		return true
	}
	if !strings.HasPrefix(entitlement, entitlementPrefix) {
		return false
	}
	rest := entitlement[len(entitlementPrefix):]
	sep := strings.Index(rest, ":")
	if sep < 0 {
		return false
	}
	return strings.ToLower(rest[:sep])+rest[sep:] == membership
}
