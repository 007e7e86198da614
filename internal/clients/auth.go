package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tutorhub/frontend/internal/models"
)

// Cookie names used by the auth API when it issues tokens as cookies
const (
	accessTokenCookie  = "access_token"
	refreshTokenCookie = "refresh_token"
)

// AuthClient talks to the authentication endpoints of the remote API
type AuthClient struct {
	baseClient
}

// NewAuthClient creates a new auth API client.
// A nil transport uses http.DefaultTransport. Calls are traced, so the transport must not be traced already.
func NewAuthClient(baseURL string, timeout time.Duration, transport http.RoundTripper) *AuthClient {
	return &AuthClient{baseClient: newBaseClient(baseURL, timeout, transport)}
}

// Register posts the registration fields to /auth/register and returns the decoded JSON response.
func (c *AuthClient) Register(ctx context.Context, fields map[string]any) (map[string]any, error) {
	out := map[string]any{}
	if _, err := c.do(ctx, request{method: http.MethodPost, path: "/auth/register", body: fields}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SignIn posts email and password to /auth/login and returns the issued credentials.
// Tokens are read from the JSON body first and from Set-Cookie headers otherwise.
func (c *AuthClient) SignIn(ctx context.Context, email, password string) (models.Credentials, error) {
	var body models.Credentials
	resp, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/login",
		body:   map[string]any{"email": email, "login": email, "password": password},
	}, &body)
	if err != nil {
		return models.Credentials{}, err
	}

	creds := mergeCookieTokens(body, resp)
	if creds.IsZero() {
		return models.Credentials{}, fmt.Errorf("%w: login response carried no access token", ErrRequestFailed)
	}
	return creds, nil
}

// GetSession returns the user owning the credentials.
// A missing or expired session yields (nil, nil).
func (c *AuthClient) GetSession(ctx context.Context, creds models.Credentials) (*models.User, error) {
	if creds.IsZero() {
		return nil, nil
	}

	var raw json.RawMessage
	_, err := c.do(ctx, request{method: http.MethodGet, path: "/auth/session", token: creds.AccessToken}, &raw)
	if err != nil {
		if isAbsent(err) {
			return nil, nil
		}
		return nil, err
	}

	return decodeSessionUser(raw)
}

// Refresh exchanges the refresh token for a new credential pair
func (c *AuthClient) Refresh(ctx context.Context, creds models.Credentials) (models.Credentials, error) {
	if creds.RefreshToken == "" {
		return models.Credentials{}, fmt.Errorf("%w: no refresh token", ErrUnauthorized)
	}

	var body models.Credentials
	resp, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/refresh",
		body:   map[string]string{"refresh_token": creds.RefreshToken},
	}, &body)
	if err != nil {
		return models.Credentials{}, err
	}

	fresh := mergeCookieTokens(body, resp)
	if fresh.IsZero() {
		return models.Credentials{}, fmt.Errorf("%w: refresh response carried no access token", ErrRequestFailed)
	}
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = creds.RefreshToken
	}
	return fresh, nil
}

// SignOut invalidates the session on the API side
func (c *AuthClient) SignOut(ctx context.Context, creds models.Credentials) error {
	if creds.IsZero() {
		return nil
	}
	_, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/logout",
		token:  creds.AccessToken,
		body:   map[string]string{"refresh_token": creds.RefreshToken},
	}, nil)
	return err
}

func isAbsent(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusNotFound
}

// decodeSessionUser accepts both {"user": {...}} and a bare user object
func decodeSessionUser(raw json.RawMessage) (*models.User, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var envelope struct {
		User *models.User `json:"user"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%w: failed to decode session: %v", ErrRequestFailed, err)
	}
	if envelope.User != nil {
		return envelope.User, nil
	}

	var user models.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("%w: failed to decode session: %v", ErrRequestFailed, err)
	}
	if user.ID == "" && user.Email == "" {
		return nil, nil
	}
	return &user, nil
}

func mergeCookieTokens(creds models.Credentials, resp *http.Response) models.Credentials {
	if resp == nil {
		return creds
	}
	for _, cookie := range resp.Cookies() {
		switch cookie.Name {
		case accessTokenCookie:
			if creds.AccessToken == "" {
				creds.AccessToken = cookie.Value
			}
		case refreshTokenCookie:
			if creds.RefreshToken == "" {
				creds.RefreshToken = cookie.Value
			}
		}
	}
	return creds
}
