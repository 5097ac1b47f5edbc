package auth

import (
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"

	"github.com/egi-ims/messages-backend/internal/checkin"
)

const testVo = "vo.tools.egi.eu"

// buildUserinfo marshals a Check-in profile the way the userinfo endpoint
// delivers it.
func buildUserinfo(t *testing.T, u checkin.UserInfo) string {
	t.Helper()
	raw, err := json.Marshal(u)
	if err != nil {
		t.Fatalf("marshaling userinfo: %v", err)
	}
	return string(raw)
}

func memberEntitlement(vo string) string {
	return "urn:mace:egi.eu:group:" + vo + ":role=member#aai.egi.eu"
}

func TestDeriveGrantsMembership(t *testing.T) {
	t.Parallel()

	userinfo := buildUserinfo(t, checkin.UserInfo{
		CheckinUserID: "e9c37aa0@egi.eu",
		Entitlements: []string{
			"urn:mace:egi.eu:group:vo.access.egi.eu:role=member#aai.egi.eu",
			"urn:mace:egi.eu:group:vo.access.egi.eu:role=vm_operator#aai.egi.eu",
			memberEntitlement(testVo),
		},
	})

	identity := Derive(false, userinfo, testVo, zerolog.Nop())

	if identity.Anonymous {
		t.Error("identity should not be anonymous")
	}
	if !identity.HasCapability(CapabilityIMSUser) {
		t.Errorf("VO member should have the %q capability", CapabilityIMSUser)
	}
}

func TestDeriveMembershipIsCaseInsensitiveOnVoOnly(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		configVo    string
		entitlement string
		member      bool
	}{
		{"upper-case configured VO", "VO.Tools.EGI.EU", memberEntitlement(testVo), true},
		{"upper-case VO in entitlement", testVo, memberEntitlement("VO.TOOLS.EGI.EU"), true},
		{"upper-case role segment", testVo, "urn:mace:egi.eu:group:" + testVo + ":ROLE=MEMBER#aai.egi.eu", false},
		{"different role", testVo, "urn:mace:egi.eu:group:" + testVo + ":role=process_owner#aai.egi.eu", false},
		{"different VO", testVo, memberEntitlement("vo.access.egi.eu"), false},
		{"wrong suffix", testVo, "urn:mace:egi.eu:group:" + testVo + ":role=member#aai.eosc.eu", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			userinfo := buildUserinfo(t, checkin.UserInfo{
				CheckinUserID: "user@egi.eu",
				Entitlements:  []string{tt.entitlement},
			})

			identity := Derive(false, userinfo, tt.configVo, zerolog.Nop())
			if got := identity.HasCapability(CapabilityIMSUser); got != tt.member {
				t.Errorf("HasCapability(%q) = %v, want %v", CapabilityIMSUser, got, tt.member)
			}
		})
	}
}

func TestDeriveWithoutMembershipGrantsNothing(t *testing.T) {
	t.Parallel()

	userinfo := buildUserinfo(t, checkin.UserInfo{
		CheckinUserID: "user@egi.eu",
		Entitlements: []string{
			"urn:mace:egi.eu:group:vo.access.egi.eu:role=member#aai.egi.eu",
		},
	})

	identity := Derive(false, userinfo, testVo, zerolog.Nop())
	if caps := identity.Capabilities(); len(caps) != 0 {
		t.Errorf("expected no capabilities, got %v", caps)
	}
}

func TestDeriveAnonymous(t *testing.T) {
	t.Parallel()

	identity := Derive(true, "", testVo, zerolog.Nop())

	if !identity.Anonymous {
		t.Error("identity should be anonymous")
	}
	if len(identity.Capabilities()) != 0 {
		t.Error("anonymous identity should have no capabilities")
	}
}

func TestDeriveMalformedPayloadDoesNotFail(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"not json at all", `{"voperson_id": 42}`, `[`} {
		identity := Derive(false, raw, testVo, zerolog.Nop())
		if identity == nil {
			t.Fatalf("Derive(%q) returned nil", raw)
		}
		if len(identity.Capabilities()) != 0 {
			t.Errorf("Derive(%q) granted capabilities %v", raw, identity.Capabilities())
		}
	}
}

func TestDeriveMissingPayload(t *testing.T) {
	t.Parallel()

	identity := Derive(false, "", testVo, zerolog.Nop())

	if identity.Anonymous {
		t.Error("identity should not be anonymous")
	}
	if len(identity.Capabilities()) != 0 {
		t.Error("identity without payload should have no capabilities")
	}
}

func TestDeriveProfileFields(t *testing.T) {
	t.Parallel()

	userinfo := buildUserinfo(t, checkin.UserInfo{
		CheckinUserID: "user@egi.eu",
		UserName:      "jdoe",
		FirstName:     "Jamie",
		LastName:      "Doe",
		Email:         "jamie@example.org",
		EmailVerified: true,
	})

	identity := Derive(false, userinfo, testVo, zerolog.Nop())

	if identity.CheckinUserID != "user@egi.eu" {
		t.Errorf("CheckinUserID = %q", identity.CheckinUserID)
	}
	if identity.UserName != "jdoe" {
		t.Errorf("UserName = %q", identity.UserName)
	}
	if identity.FullName != "Jamie Doe" {
		t.Errorf("FullName = %q, want composed from name parts", identity.FullName)
	}
	if !identity.EmailVerified {
		t.Error("EmailVerified should be true")
	}
}

func TestDeriveAssuranceLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		assurances []string
		want       string
	}{
		{
			"first match wins in provider order",
			[]string{
				"https://refeds.org/assurance/IAP/low",
				"https://aai.egi.eu/LoA#Substantial",
				"https://aai.egi.eu/LoA#Low",
			},
			"substantial",
		},
		{
			"http scheme accepted",
			[]string{"http://aai-demo.egi.eu/LoA#Low"},
			"low",
		},
		{
			"no Check-in backed assurance",
			[]string{"https://refeds.org/assurance/IAP/high"},
			"",
		},
		{
			"foreign host rejected",
			[]string{"https://aai.example.org/LoA#High"},
			"",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			userinfo := buildUserinfo(t, checkin.UserInfo{
				CheckinUserID: "user@egi.eu",
				Assurances:    tt.assurances,
			})

			identity := Derive(false, userinfo, testVo, zerolog.Nop())
			if identity.AssuranceLevel != tt.want {
				t.Errorf("AssuranceLevel = %q, want %q", identity.AssuranceLevel, tt.want)
			}
		})
	}
}
