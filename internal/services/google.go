package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/geekheaven/identity/internal/config"
	"github.com/geekheaven/identity/internal/models"
	"golang.org/x/oauth2"
)

// GoogleUserInfo is the claim set returned by Google's userinfo endpoint.
type GoogleUserInfo struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	Picture       string `json:"picture"`
}

// DisplayName prefers the full name, falling back to the given name.
func (u *GoogleUserInfo) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.GivenName
}

// GoogleVerifier exchanges a caller-supplied OAuth access token for the
// provider's userinfo.
type GoogleVerifier interface {
	Verify(ctx context.Context, accessToken string) (*GoogleUserInfo, error)
}

// HTTPGoogleVerifier calls the userinfo endpoint over HTTPS with a bounded
// request timeout so a slow provider cannot stall sign-in.
type HTTPGoogleVerifier struct {
	userInfoURL string
	timeout     time.Duration
}

func NewGoogleVerifier(cfg *config.GoogleConfig) *HTTPGoogleVerifier {
	return &HTTPGoogleVerifier{
		userInfoURL: cfg.UserInfoURL,
		timeout:     cfg.RequestTimeout,
	}
}

// Verify fetches userinfo with the supplied bearer token. Any non-200
// response or missing email maps to ErrInvalidToken.
func (v *HTTPGoogleVerifier) Verify(ctx context.Context, accessToken string) (*GoogleUserInfo, error) {
	if accessToken == "" {
		return nil, models.ErrInvalidToken
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	client := oauth2.NewClient(ctx, source)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build userinfo request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("userinfo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, models.ErrInvalidToken
	}

	var info GoogleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode userinfo response: %w", err)
	}

	if info.Email == "" {
		return nil, models.ErrInvalidToken
	}

	return &info, nil
}
