// Package checkin talks to EGI Check-in, the external identity provider.
// It resolves bearer tokens into userinfo payloads and answers which users
// hold a given role within an IMS process.
package checkin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/egi-ims/messages-backend/internal/apperrors"
)

const defaultTimeout = 10 * time.Second

// Config holds the Check-in endpoint and the API credentials used for
// group membership queries.
type Config struct {
	Server   string // OIDC issuer, e.g. https://aai.egi.eu/auth/realms/egi
	Username string
	Password string
}

// Client is a REST client for Check-in.
type Client struct {
	server   string
	username string
	password string
	http     *http.Client
	log      zerolog.Logger
}

// New creates a Check-in client. The server URL is mandatory; the API
// credentials are only needed for ListUsersWithGroupRole and are checked
// there, so a client without them can still resolve userinfo.
func New(cfg Config, log zerolog.Logger) (*Client, error) {
	if cfg.Server == "" {
		return nil, apperrors.NewInvalidConfig("Check-in server not configured")
	}

	return &Client{
		server:   cfg.Server,
		username: cfg.Username,
		password: cfg.Password,
		http:     &http.Client{Timeout: defaultTimeout},
		log:      log,
	}, nil
}

// GetUserInfo fetches the raw userinfo payload for a bearer token. The
// payload is returned unparsed so role derivation can log it verbatim when
// it turns out to be malformed.
func (c *Client) GetUserInfo(ctx context.Context, accessToken string) (json.RawMessage, error) {
	endpoint := c.server + "/protocol/openid-connect/userinfo"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, apperrors.NewInvalidConfig("building userinfo request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.NewUnavailable("userinfo request failed: %v", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, apperrors.NewForbidden("token rejected by Check-in")
	case resp.StatusCode != http.StatusOK:
		return nil, apperrors.NewUnavailable("userinfo returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewUnavailable("reading userinfo response: %v", err)
	}

	return body, nil
}

// ListUsersWithGroupRole returns the users holding a role within an IMS
// process. Fails with an invalid-config error when the API credentials are
// missing, with an unavailable error when Check-in cannot be reached.
func (c *Client) ListUsersWithGroupRole(ctx context.Context, process, role string) ([]UserInfo, error) {
	if c.username == "" || c.password == "" {
		return nil, apperrors.NewInvalidConfig("Check-in API credentials not configured")
	}

	endpoint := fmt.Sprintf("%s/api/v2/groups/%s/roles/%s/members",
		c.server, url.PathEscape(process), url.PathEscape(role))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, apperrors.NewInvalidConfig("building group members request: %v", err)
	}
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.NewUnavailable("group members request failed: %v", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, apperrors.NewInvalidConfig("Check-in API credentials rejected")
	case resp.StatusCode != http.StatusOK:
		return nil, apperrors.NewUnavailable("group members returned status %d", resp.StatusCode)
	}

	var members groupMembers
	if err := json.NewDecoder(resp.Body).Decode(&members); err != nil {
		return nil, apperrors.NewUnavailable("decoding group members response: %v", err)
	}

	c.log.Debug().Str("process", process).Str("role", role).
		Int("count", len(members.Users)).Msg("Listed users with group role")

	return members.Users, nil
}
