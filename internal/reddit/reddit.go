// Package reddit defines the upstream API contract: the listing/search
// client, the OAuth token source, and the raw wire types posts arrive in.
package reddit

import (
	"context"
	"errors"

	"github.com/davidnys/redgrid/internal/domain"
)

var (
	// ErrFeedUnavailable is returned when a feed could not be fetched after
	// all retry attempts. Callers treat it as "no posts from this feed".
	ErrFeedUnavailable = errors.New("feed unavailable")
)

//go:generate go run go.uber.org/mock/mockgen -source=reddit.go -destination=mocks/mock.go

// Client fetches raw posts for a single feed configuration. Whether the
// listing or the search endpoint is used depends on the config's keywords.
type Client interface {
	Fetch(ctx context.Context, cfg domain.FeedConfig, nsfw domain.NsfwMode) ([]Post, error)
}

// TokenSource hands out OAuth bearer tokens, refreshing as needed. An empty
// token is a valid result: requests proceed unauthenticated at a degraded
// rate limit.
type TokenSource interface {
	Token(ctx context.Context) string
	Invalidate()
}

// Listing is the conventional envelope both the listing and search endpoints
// return: data.children[].data.
type Listing struct {
	Kind string `json:"kind"`
	Data struct {
		After    string `json:"after"`
		Children []struct {
			Kind string `json:"kind"`
			Data Post   `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// Post is the raw, heterogeneous post record as returned by Reddit. It is
// consumed once by the media extractor and discarded.
type Post struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Title      string  `json:"title"`
	Selftext   string  `json:"selftext"`
	Author     string  `json:"author"`
	Subreddit  string  `json:"subreddit"`
	Permalink  string  `json:"permalink"`
	URL        string  `json:"url"`
	Thumbnail  string  `json:"thumbnail"`
	CreatedUTC float64 `json:"created_utc"`
	Ups        int     `json:"ups"`
	Over18     bool    `json:"over_18"`
	IsVideo    bool    `json:"is_video"`
	IsGallery  bool    `json:"is_gallery"`

	Media         *Media               `json:"media"`
	SecureMedia   *Media               `json:"secure_media"`
	Preview       *Preview             `json:"preview"`
	GalleryData   *GalleryData         `json:"gallery_data"`
	MediaMetadata map[string]MediaMeta `json:"media_metadata"`
}

// Media is the media object attached to embed and native-video posts.
type Media struct {
	Type        string       `json:"type"`
	Oembed      *Oembed      `json:"oembed"`
	RedditVideo *RedditVideo `json:"reddit_video"`
}

// Oembed is an embedded external player.
type Oembed struct {
	Type         string `json:"type"`
	HTML         string `json:"html"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	ProviderName string `json:"provider_name"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// RedditVideo is Reddit's natively hosted video object.
type RedditVideo struct {
	HLSURL      string `json:"hls_url"`
	DashURL     string `json:"dash_url"`
	FallbackURL string `json:"fallback_url"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Duration    int    `json:"duration"`
	IsGif       bool   `json:"is_gif"`
	HasAudio    bool   `json:"has_audio"`
}

// Preview carries pre-rendered image variants of a post's media.
type Preview struct {
	Images []PreviewImage `json:"images"`
}

// PreviewImage is one previewed image with its resolution ladder.
type PreviewImage struct {
	Source      ImageSource   `json:"source"`
	Resolutions []ImageSource `json:"resolutions"`
}

// ImageSource is a single image URL with dimensions.
type ImageSource struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// GalleryData lists the ordered media items of a multi-image post.
type GalleryData struct {
	Items []GalleryDataItem `json:"items"`
}

// GalleryDataItem references an entry in the post's media metadata map.
type GalleryDataItem struct {
	MediaID string `json:"media_id"`
	ID      int    `json:"id"`
}

// MediaMeta holds the size metadata for one gallery entry.
type MediaMeta struct {
	Status string       `json:"status"`
	E      string       `json:"e"`
	M      string       `json:"m"`
	S      *MetaSource  `json:"s"`
	P      []MetaSource `json:"p"`
}

// MetaSource is a single rendition inside the media metadata map.
type MetaSource struct {
	U string `json:"u"`
	X int    `json:"x"`
	Y int    `json:"y"`
}
