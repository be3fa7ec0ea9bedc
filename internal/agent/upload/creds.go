package upload

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// loginResponse mirrors the backend's auth payload.
type loginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// PasswordCredentials obtains access tokens by operator login and caches
// them until shortly before expiry. It satisfies CredentialProvider; the
// sync engine asks for a token once per drain cycle.
type PasswordCredentials struct {
	client   *HTTPClient
	username string
	password string

	// tokens are refreshed this long before their stated expiry
	skew time.Duration

	mu        sync.Mutex
	token     string
	expiresAt time.Time

	// test seam
	now func() time.Time
}

// NewPasswordCredentials builds a provider that logs in through client.
func NewPasswordCredentials(client *HTTPClient, username, password string) *PasswordCredentials {
	return &PasswordCredentials{
		client:   client,
		username: username,
		password: password,
		skew:     30 * time.Second,
		now:      time.Now,
	}
}

// Token returns a cached access token, logging in again when the cached one
// is missing or about to expire.
func (p *PasswordCredentials) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token != "" && p.now().Before(p.expiresAt.Add(-p.skew)) {
		return p.token, nil
	}

	body := map[string]string{"username": p.username, "password": p.password}
	var resp loginResponse
	if err := p.client.doJSON(ctx, http.MethodPost, "/v1/auth/login", "", body, &resp); err != nil {
		return "", fmt.Errorf("login failed: %w", err)
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("login returned empty token")
	}

	p.token = resp.AccessToken
	p.expiresAt = resp.ExpiresAt
	return p.token, nil
}

// Invalidate drops the cached token, forcing a fresh login on next use.
func (p *PasswordCredentials) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = ""
	p.expiresAt = time.Time{}
}
