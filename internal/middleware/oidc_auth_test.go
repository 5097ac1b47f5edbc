package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/egi-ims/messages-backend/internal/apperrors"
	"github.com/egi-ims/messages-backend/internal/auth"
	"github.com/egi-ims/messages-backend/pkg/logx"
)

const testVo = "vo.tools.egi.eu"

type stubProvider struct {
	userinfo string
	err      error
}

func (p *stubProvider) GetUserInfo(_ context.Context, _ string) (json.RawMessage, error) {
	if p.err != nil {
		return nil, p.err
	}
	return json.RawMessage(p.userinfo), nil
}

func memberUserinfo(userID string) string {
	return fmt.Sprintf(
		`{"voperson_id":%q,"eduperson_entitlement":["urn:mace:egi.eu:group:%s:role=member#aai.egi.eu"]}`,
		userID, testVo)
}

// signedToken creates a JWT with the given expiry. The signature does not
// matter, the middleware never verifies it.
func signedToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "test",
		"exp": expiresAt.Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

func setupAuthServer(provider UserInfoProvider, capability string) *echo.Echo {
	e := echo.New()
	g := e.Group("/api")
	g.Use(OIDCAuth(provider, testVo, logx.Nop()))
	if capability != "" {
		g.Use(RequireCapability(capability))
	}
	g.GET("/probe", func(c echo.Context) error {
		identity := GetIdentity(c)
		if identity == nil {
			return c.String(http.StatusInternalServerError, "no identity")
		}
		return c.JSON(http.StatusOK, map[string]any{
			"anonymous":     identity.Anonymous,
			"checkinUserId": identity.CheckinUserID,
			"capabilities":  identity.Capabilities(),
		})
	})
	return e
}

func probe(e *echo.Echo, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/probe", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)
	return w
}

func TestOIDCAuthAnonymous(t *testing.T) {
	t.Parallel()

	e := setupAuthServer(&stubProvider{}, "")

	w := probe(e, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var body struct {
		Anonymous bool `json:"anonymous"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !body.Anonymous {
		t.Error("identity should be anonymous without credentials")
	}
}

func TestOIDCAuthInvalidHeader(t *testing.T) {
	t.Parallel()

	e := setupAuthServer(&stubProvider{}, "")

	w := probe(e, "Basic dXNlcjpwYXNz")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestOIDCAuthExpiredToken(t *testing.T) {
	t.Parallel()

	e := setupAuthServer(&stubProvider{userinfo: memberUserinfo("a@egi.eu")}, "")

	w := probe(e, "Bearer "+signedToken(t, time.Now().Add(-time.Hour)))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestOIDCAuthDerivesIdentity(t *testing.T) {
	t.Parallel()

	e := setupAuthServer(&stubProvider{userinfo: memberUserinfo("a@egi.eu")}, "")

	// Opaque token: the provider is the source of truth.
	w := probe(e, "Bearer opaque-access-token")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var body struct {
		CheckinUserID string   `json:"checkinUserId"`
		Capabilities  []string `json:"capabilities"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body.CheckinUserID != "a@egi.eu" {
		t.Errorf("checkinUserId = %q", body.CheckinUserID)
	}
	if len(body.Capabilities) != 1 || body.Capabilities[0] != auth.CapabilityIMSUser {
		t.Errorf("capabilities = %v", body.Capabilities)
	}
}

func TestOIDCAuthRejectedToken(t *testing.T) {
	t.Parallel()

	e := setupAuthServer(&stubProvider{err: apperrors.NewForbidden("token rejected by Check-in")}, "")

	w := probe(e, "Bearer opaque-access-token")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestOIDCAuthProviderUnavailable(t *testing.T) {
	t.Parallel()

	e := setupAuthServer(&stubProvider{err: apperrors.NewUnavailable("userinfo request failed")}, "")

	w := probe(e, "Bearer opaque-access-token")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestRequireCapability(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		userinfo string
		header   string
		want     int
	}{
		{"anonymous", memberUserinfo("a@egi.eu"), "", http.StatusUnauthorized},
		{"member", memberUserinfo("a@egi.eu"), "Bearer opaque", http.StatusOK},
		{"non-member", `{"voperson_id":"a@egi.eu"}`, "Bearer opaque", http.StatusForbidden},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := setupAuthServer(&stubProvider{userinfo: tt.userinfo}, auth.CapabilityIMSUser)
			w := probe(e, tt.header)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}
