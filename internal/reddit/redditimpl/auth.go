package redditimpl

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/davidnys/redgrid/internal/reddit"
	"github.com/davidnys/redgrid/pkg/config"
	"github.com/davidnys/redgrid/pkg/logger"
	"github.com/davidnys/redgrid/pkg/retry"
	"go.uber.org/fx"
)

const (
	defaultTokenURL = "https://www.reddit.com/api/v1/access_token"

	// Tokens are considered expired this long before their real expiry so
	// an in-flight request never carries a token that lapses mid-request.
	tokenExpiryMargin = 60 * time.Second

	// How often waiters poll while another caller's refresh is in flight.
	refreshPollInterval = 50 * time.Millisecond
)

// AuthManager owns the OAuth bearer token. Concurrent refresh attempts are
// single-flighted: the first caller refreshes, the rest poll until the
// refresh settles. A failed refresh yields an empty token and callers
// proceed unauthenticated.
type AuthManager struct {
	cfg        *config.Config
	logger     logger.Logger
	httpClient *http.Client
	tokenURL   string
	now        func() time.Time

	mu         sync.Mutex
	token      string
	expiresAt  time.Time
	refreshing bool
}

type AuthOpts struct {
	fx.In

	Config *config.Config
	Logger logger.Logger
}

func NewAuthManager(opts AuthOpts) *AuthManager {
	return &AuthManager{
		cfg:        opts.Config,
		logger:     opts.Logger.WithComponent("AuthManager"),
		httpClient: &http.Client{Timeout: opts.Config.Fetcher.RequestTimeout},
		tokenURL:   defaultTokenURL,
		now:        time.Now,
	}
}

var _ reddit.TokenSource = (*AuthManager)(nil)

// Token returns a valid bearer token, refreshing if necessary, or "" when
// no credentials are configured or the refresh failed.
func (a *AuthManager) Token(ctx context.Context) string {
	for {
		a.mu.Lock()
		if a.token != "" && a.now().Before(a.expiresAt) {
			token := a.token
			a.mu.Unlock()
			return token
		}
		if a.cfg.Reddit.ClientID == "" || a.cfg.Reddit.ClientSecret == "" {
			a.mu.Unlock()
			return ""
		}
		if !a.refreshing {
			a.refreshing = true
			a.mu.Unlock()
			break
		}
		a.mu.Unlock()

		select {
		case <-ctx.Done():
			return ""
		case <-time.After(refreshPollInterval):
		}
	}

	token, expiresAt, err := a.requestToken(ctx)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.refreshing = false
	if err != nil {
		a.logger.Error("Token refresh failed, continuing unauthenticated", "error", err)
		a.token = ""
		return ""
	}
	a.token = token
	a.expiresAt = expiresAt
	return token
}

// Invalidate drops the cached token so the next caller re-authenticates.
// Used on HTTP 401 from the API host.
func (a *AuthManager) Invalidate() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.token = ""
	a.expiresAt = time.Time{}
}

type tokenResponse struct {
	AccessToken string  `json:"access_token"`
	TokenType   string  `json:"token_type"`
	ExpiresIn   float64 `json:"expires_in"`
	Error       string  `json:"error"`
}

func (a *AuthManager) requestToken(ctx context.Context) (string, time.Time, error) {
	form := url.Values{}
	if a.cfg.Reddit.Username != "" && a.cfg.Reddit.Password != "" {
		// Script-app mode: higher rate limit.
		form.Set("grant_type", "password")
		form.Set("username", a.cfg.Reddit.Username)
		form.Set("password", a.cfg.Reddit.Password)
	} else {
		form.Set("grant_type", "client_credentials")
	}

	var tr tokenResponse
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.tokenURL, strings.NewReader(form.Encode()))
		if err != nil {
			return err
		}
		req.SetBasicAuth(a.cfg.Reddit.ClientID, a.cfg.Reddit.ClientSecret)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("User-Agent", a.cfg.Reddit.UserAgent)

		resp, err := a.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("token endpoint returned %d", resp.StatusCode)
		}

		tr = tokenResponse{}
		if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
			return fmt.Errorf("decoding token response: %w", err)
		}
		if tr.Error != "" {
			return fmt.Errorf("token endpoint error: %s", tr.Error)
		}
		if tr.AccessToken == "" {
			return fmt.Errorf("token endpoint returned no token")
		}
		return nil
	}

	if err := retry.Do(ctx, a.logger, "reddit_token_refresh", operation, retry.DefaultConfig()); err != nil {
		return "", time.Time{}, err
	}

	expiresAt := a.now().Add(time.Duration(tr.ExpiresIn)*time.Second - tokenExpiryMargin)
	a.logger.Info("Acquired reddit access token", "expires_at", expiresAt.Format(time.RFC3339))
	return tr.AccessToken, expiresAt, nil
}
