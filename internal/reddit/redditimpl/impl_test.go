package redditimpl

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/davidnys/redgrid/internal/domain"
	"github.com/davidnys/redgrid/internal/reddit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTokens struct {
	token       string
	invalidated int32
}

func (f *fakeTokens) Token(context.Context) string { return f.token }
func (f *fakeTokens) Invalidate() {
	atomic.AddInt32(&f.invalidated, 1)
	f.token = ""
}

func newTestFetcher(t *testing.T, srv *httptest.Server, tokens *fakeTokens) (*Impl, *[]time.Duration) {
	t.Helper()
	f := New(Opts{Config: testConfig(), Logger: testLogger(), Tokens: tokens})
	f.httpClient = srv.Client()
	f.publicBase = srv.URL
	f.oauthBase = srv.URL
	waits := &[]time.Duration{}
	f.sleep = func(d time.Duration) { *waits = append(*waits, d) }
	return f, waits
}

const sampleListing = `{
	"kind": "Listing",
	"data": {
		"after": "t3_next",
		"children": [
			{"kind": "t3", "data": {"id": "aaa", "title": "First", "author": "alice", "subreddit": "pics", "created_utc": 1700000100, "ups": 42, "permalink": "/r/pics/comments/aaa/first/", "url": "https://i.redd.it/aaa.jpg"}},
			{"kind": "t3", "data": {"id": "bbb", "title": "Second", "author": "bob", "subreddit": "pics", "created_utc": 1700000000, "ups": 7, "permalink": "/r/pics/comments/bbb/second/", "selftext": "hello"}}
		]
	}
}`

func TestFetchDecodesListing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/r/pics/hot.json", r.URL.Path)
		assert.Equal(t, "redgrid-test/1.0", r.Header.Get("User-Agent"))
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, sampleListing)
	}))
	defer srv.Close()

	f, _ := newTestFetcher(t, srv, &fakeTokens{})
	posts, err := f.Fetch(context.Background(), domain.FeedConfig{Subreddit: "pics", SortType: domain.SortHot}, domain.NsfwModeSfw)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "aaa", posts[0].ID)
	assert.Equal(t, "alice", posts[0].Author)
	assert.EqualValues(t, 1700000000, posts[1].CreatedUTC)
}

func TestFetchSendsBearerWhenTokenPresent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sometoken", r.Header.Get("Authorization"))
		fmt.Fprint(w, sampleListing)
	}))
	defer srv.Close()

	f, _ := newTestFetcher(t, srv, &fakeTokens{token: "sometoken"})
	_, err := f.Fetch(context.Background(), domain.FeedConfig{Subreddit: "pics", SortType: domain.SortHot}, domain.NsfwModeSfw)
	require.NoError(t, err)
}

func TestFetchRetryBoundOnServerError(t *testing.T) {
	var requests int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&requests, 1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	f, waits := newTestFetcher(t, srv, &fakeTokens{})
	posts, err := f.Fetch(context.Background(), domain.FeedConfig{Subreddit: "pics", SortType: domain.SortHot}, domain.NsfwModeSfw)

	require.ErrorIs(t, err, reddit.ErrFeedUnavailable)
	assert.Empty(t, posts)
	assert.EqualValues(t, 3, atomic.LoadInt64(&requests), "exactly three attempts")
	// Exponential backoff between attempts, none after the last.
	assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second}, *waits)
}

func TestFetchHonorsRetryAfterHint(t *testing.T) {
	var requests int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&requests, 1) == 1 {
			w.Header().Set("Retry-After", "5")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, sampleListing)
	}))
	defer srv.Close()

	f, waits := newTestFetcher(t, srv, &fakeTokens{})
	posts, err := f.Fetch(context.Background(), domain.FeedConfig{Subreddit: "pics", SortType: domain.SortHot}, domain.NsfwModeSfw)
	require.NoError(t, err)
	assert.Len(t, posts, 2)
	assert.Equal(t, []time.Duration{5 * time.Second}, *waits)
}

func TestFetchCapsLargeRetryAfterHint(t *testing.T) {
	var requests int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&requests, 1) == 1 {
			w.Header().Set("Retry-After", "600")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, sampleListing)
	}))
	defer srv.Close()

	f, waits := newTestFetcher(t, srv, &fakeTokens{})
	_, err := f.Fetch(context.Background(), domain.FeedConfig{Subreddit: "pics", SortType: domain.SortHot}, domain.NsfwModeSfw)
	require.NoError(t, err)
	// min(600s, 30s * 2^0) on the first attempt.
	assert.Equal(t, []time.Duration{30 * time.Second}, *waits)
}

func TestFetchMissingRetryAfterDefaults(t *testing.T) {
	var requests int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&requests, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, sampleListing)
	}))
	defer srv.Close()

	f, waits := newTestFetcher(t, srv, &fakeTokens{})
	_, err := f.Fetch(context.Background(), domain.FeedConfig{Subreddit: "pics", SortType: domain.SortHot}, domain.NsfwModeSfw)
	require.NoError(t, err)
	// Default hint is 60s, capped at 30s * 2^0.
	assert.Equal(t, []time.Duration{30 * time.Second}, *waits)
}

func TestFetchInvalidatesTokenOn401(t *testing.T) {
	var requests int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&requests, 1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, sampleListing)
	}))
	defer srv.Close()

	tokens := &fakeTokens{token: "stale"}
	f, _ := newTestFetcher(t, srv, tokens)
	posts, err := f.Fetch(context.Background(), domain.FeedConfig{Subreddit: "pics", SortType: domain.SortHot}, domain.NsfwModeSfw)
	require.NoError(t, err)
	assert.Len(t, posts, 2)
	assert.EqualValues(t, 1, atomic.LoadInt32(&tokens.invalidated))
}

func TestListingPath(t *testing.T) {
	f := New(Opts{Config: testConfig(), Logger: testLogger(), Tokens: &fakeTokens{}})

	cases := []struct {
		name string
		cfg  domain.FeedConfig
		nsfw domain.NsfwMode
		want string
	}{
		{
			"hot sfw",
			domain.FeedConfig{Subreddit: "earthporn", SortType: domain.SortHot},
			domain.NsfwModeSfw,
			"/r/earthporn/hot.json?limit=25",
		},
		{
			"top with timeframe",
			domain.FeedConfig{Subreddit: "pics", SortType: domain.SortTop, Timeframe: domain.TimeframeWeek},
			domain.NsfwModeSfw,
			"/r/pics/top.json?limit=25&t=week",
		},
		{
			"timeframe ignored for non-top",
			domain.FeedConfig{Subreddit: "pics", SortType: domain.SortNew, Timeframe: domain.TimeframeWeek},
			domain.NsfwModeSfw,
			"/r/pics/new.json?limit=25",
		},
		{
			"nsfw adds over-18 param",
			domain.FeedConfig{Subreddit: "pics", SortType: domain.SortHot},
			domain.NsfwModeNsfw,
			"/r/pics/hot.json?include_over_18=on&limit=25",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, f.listingPath(tc.cfg, tc.nsfw))
		})
	}
}

func TestSearchPath(t *testing.T) {
	f := New(Opts{Config: testConfig(), Logger: testLogger(), Tokens: &fakeTokens{}})

	cfg := domain.FeedConfig{
		Subreddit: "aww",
		SortType:  domain.SortRelevance,
		Keywords:  "cats AND dogs",
	}
	got := f.searchPath(cfg, domain.NsfwModeSfw)
	assert.Equal(t, "/r/aww/search.json?limit=25&q=cats+AND+dogs&restrict_sr=on&sort=relevance", got)
}
