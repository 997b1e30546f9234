package redditimpl

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/davidnys/redgrid/internal/domain"
	"github.com/davidnys/redgrid/internal/reddit"
	"github.com/davidnys/redgrid/pkg/config"
	"github.com/davidnys/redgrid/pkg/logger"
	"go.uber.org/fx"
)

const (
	publicBaseURL = "https://www.reddit.com"
	oauthBaseURL  = "https://oauth.reddit.com"

	maxAttempts = 3

	// Default wait on a 429 with no Retry-After header.
	defaultRetryAfter = 60 * time.Second

	// Cap on honoring server retry hints: min(hint, 30s * 2^attempt).
	rateLimitBackoffBase = 30 * time.Second
)

// Impl fetches feeds over Reddit's HTTP API. Authenticated requests go to
// the OAuth host, unauthenticated ones to the public host.
type Impl struct {
	cfg        *config.Config
	logger     logger.Logger
	tokens     reddit.TokenSource
	httpClient *http.Client

	publicBase string
	oauthBase  string
	sleep      func(time.Duration)
}

type Opts struct {
	fx.In

	Config *config.Config
	Logger logger.Logger
	Tokens reddit.TokenSource
}

func New(opts Opts) *Impl {
	return &Impl{
		cfg:        opts.Config,
		logger:     opts.Logger.WithComponent("FeedFetcher"),
		tokens:     opts.Tokens,
		httpClient: &http.Client{Timeout: opts.Config.Fetcher.RequestTimeout},
		publicBase: publicBaseURL,
		oauthBase:  oauthBaseURL,
		sleep:      time.Sleep,
	}
}

var _ reddit.Client = (*Impl)(nil)

// Fetch retrieves the raw posts for one feed config, retrying up to
// maxAttempts on rate limits and transient failures. A feed that stays
// unavailable returns reddit.ErrFeedUnavailable; it never aborts a batch.
func (f *Impl) Fetch(ctx context.Context, cfg domain.FeedConfig, nsfw domain.NsfwMode) ([]reddit.Post, error) {
	path := f.listingPath(cfg, nsfw)
	if cfg.IsSearch() {
		path = f.searchPath(cfg, nsfw)
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		token := f.tokens.Token(ctx)
		base := f.publicBase
		if token != "" {
			base = f.oauthBase
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+path, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", f.cfg.Reddit.UserAgent)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := f.httpClient.Do(req)
		if err != nil {
			lastErr = err
			f.backoff(attempt, cfg.Subreddit, err)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			posts, err := decodeListing(resp)
			if err != nil {
				lastErr = err
				f.backoff(attempt, cfg.Subreddit, err)
				continue
			}
			return posts, nil

		case resp.StatusCode == http.StatusTooManyRequests:
			wait := retryAfterWait(resp, attempt)
			resp.Body.Close()
			lastErr = fmt.Errorf("rate limited (429)")
			f.logger.Warn("Rate limited, backing off",
				"subreddit", cfg.Subreddit, "attempt", attempt+1, "wait", wait.String())
			if attempt+1 < maxAttempts {
				f.sleep(wait)
			}

		case resp.StatusCode == http.StatusUnauthorized:
			resp.Body.Close()
			lastErr = fmt.Errorf("unauthorized (401)")
			// Token likely revoked; the next attempt re-authenticates.
			f.tokens.Invalidate()
			f.backoff(attempt, cfg.Subreddit, lastErr)

		default:
			resp.Body.Close()
			lastErr = fmt.Errorf("unexpected status %d", resp.StatusCode)
			f.backoff(attempt, cfg.Subreddit, lastErr)
		}
	}

	f.logger.Error("Feed fetch failed after all attempts",
		"subreddit", cfg.Subreddit, "error", lastErr)
	return nil, fmt.Errorf("%w: r/%s: %v", reddit.ErrFeedUnavailable, cfg.Subreddit, lastErr)
}

func (f *Impl) backoff(attempt int, subreddit string, err error) {
	if attempt+1 >= maxAttempts {
		return
	}
	wait := time.Duration(1<<attempt) * time.Second
	f.logger.Warn("Feed fetch attempt failed, retrying",
		"subreddit", subreddit, "attempt", attempt+1, "wait", wait.String(), "error", err)
	f.sleep(wait)
}

// retryAfterWait reads the server's Retry-After hint (seconds, default 60)
// and bounds it by an exponential ceiling.
func retryAfterWait(resp *http.Response, attempt int) time.Duration {
	hint := defaultRetryAfter
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			hint = time.Duration(secs) * time.Second
		}
	}
	ceiling := rateLimitBackoffBase * time.Duration(1<<attempt)
	if hint < ceiling {
		return hint
	}
	return ceiling
}

func decodeListing(resp *http.Response) ([]reddit.Post, error) {
	defer resp.Body.Close()

	var listing reddit.Listing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("decoding listing: %w", err)
	}

	posts := make([]reddit.Post, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		posts = append(posts, child.Data)
	}
	return posts, nil
}

// listingPath builds /r/{subreddit}/{sort}.json. The timeframe parameter is
// appended only for top listings, and the over-18 parameter only when the
// global setting is nsfw — SFW is the upstream default and stays
// unparameterized.
func (f *Impl) listingPath(cfg domain.FeedConfig, nsfw domain.NsfwMode) string {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(f.cfg.Fetcher.PostLimit))
	if cfg.SortType == domain.SortTop && cfg.Timeframe != "" {
		params.Set("t", string(cfg.Timeframe))
	}
	if nsfw == domain.NsfwModeNsfw {
		params.Set("include_over_18", "on")
	}
	return fmt.Sprintf("/r/%s/%s.json?%s", cfg.Subreddit, cfg.SortType, params.Encode())
}

// searchPath builds a subreddit-restricted search URL with the same
// timeframe and NSFW rules as listings.
func (f *Impl) searchPath(cfg domain.FeedConfig, nsfw domain.NsfwMode) string {
	params := url.Values{}
	params.Set("q", cfg.Keywords)
	params.Set("restrict_sr", "on")
	params.Set("sort", string(cfg.SortType))
	params.Set("limit", strconv.Itoa(f.cfg.Fetcher.PostLimit))
	if cfg.SortType == domain.SortTop && cfg.Timeframe != "" {
		params.Set("t", string(cfg.Timeframe))
	}
	if nsfw == domain.NsfwModeNsfw {
		params.Set("include_over_18", "on")
	}
	return fmt.Sprintf("/r/%s/search.json?%s", cfg.Subreddit, params.Encode())
}
