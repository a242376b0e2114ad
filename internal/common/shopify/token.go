// internal/common/shopify/token.go
package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"provider-verify/internal/common/config"
)

// refreshMargin forces a refresh when less than this much validity remains,
// so an in-flight request never rides an about-to-expire token.
const refreshMargin = 5 * time.Minute

// TokenProvider holds the client-credentials access token for the store's
// admin API and refreshes it lazily before use.
type TokenProvider struct {
	storeURL     string
	clientID     string
	clientSecret string

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
	now         func() time.Time
}

func NewTokenProvider(cfg config.ShopifyConfig) *TokenProvider {
	return &TokenProvider{
		storeURL:     strings.TrimSuffix(cfg.StoreURL, "/"),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		now:          time.Now,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// CurrentOrRefreshed returns a token with at least refreshMargin of validity
// left, refreshing through the OAuth client-credentials grant when needed.
func (p *TokenProvider) CurrentOrRefreshed(ctx context.Context, httpClient *http.Client) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.accessToken != "" && p.now().Before(p.expiresAt.Add(-refreshMargin)) {
		return p.accessToken, nil
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {p.clientID},
		"client_secret": {p.clientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.storeURL+"/admin/oauth/access_token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token refresh failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token refresh failed (status %d): %s", resp.StatusCode, truncate(body))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("token response contained no access token")
	}

	p.accessToken = tr.AccessToken
	p.expiresAt = p.now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	return p.accessToken, nil
}
