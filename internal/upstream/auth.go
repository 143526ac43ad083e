package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"ucloud-proxy/internal/errs"
	"ucloud-proxy/internal/model"
)

// AuthClient performs the upstream credential exchange: password login
// and refresh-token renewal against the blade-auth token endpoint.
type AuthClient struct {
	http    *http.Client
	baseURL string
	log     *zap.Logger
}

// NewAuthClient constructs an AuthClient ("" means the production host).
func NewAuthClient(baseURL string, log *zap.Logger) *AuthClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &AuthClient{
		http:    &http.Client{Timeout: 30 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log,
	}
}

// Login exchanges username/password for a fresh session.
func (c *AuthClient) Login(ctx context.Context, username, password string) (*model.Session, error) {
	form := url.Values{
		"username":   {username},
		"password":   {password},
		"grant_type": {"password"},
		"scope":      {"all"},
	}
	sess, err := c.token(ctx, form)
	if err != nil {
		return nil, err
	}
	sess.Username = username
	return sess, nil
}

// Refresh exchanges a refresh token for a fresh session.
func (c *AuthClient) Refresh(ctx context.Context, refreshToken string) (*model.Session, error) {
	form := url.Values{
		"refresh_token": {refreshToken},
		"grant_type":    {"refresh_token"},
		"scope":         {"all"},
	}
	return c.token(ctx, form)
}

func (c *AuthClient) token(ctx context.Context, form url.Values) (*model.Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/blade-auth/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", portalAuthorization)
	req.Header.Set("Tenant-Id", tenantID)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("%w: decode token response: %v", errs.ErrUpstreamUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK && tr.AccessToken != "":
		return &model.Session{
			AccessToken:  tr.AccessToken,
			RefreshToken: tr.RefreshToken,
			UserID:       tr.UserID,
		}, nil
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized:
		c.log.Info("upstream rejected credentials", zap.String("error", tr.Error))
		return nil, fmt.Errorf("%w: %s", errs.ErrInvalidCredentials, tr.ErrorDescription)
	default:
		return nil, fmt.Errorf("%w: token endpoint: %s", errs.ErrUpstreamUnavailable, resp.Status)
	}
}
