package media

import (
	"testing"

	"github.com/davidnys/redgrid/internal/domain"
	"github.com/davidnys/redgrid/internal/reddit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractOembedWinsOverEverything(t *testing.T) {
	raw := &reddit.Post{
		URL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		Media: &reddit.Media{
			Oembed: &reddit.Oembed{
				HTML:   `&lt;iframe src="https://player.example/embed"&gt;&lt;/iframe&gt;`,
				Width:  640,
				Height: 360,
			},
		},
		Preview: &reddit.Preview{
			Images: []reddit.PreviewImage{{Source: reddit.ImageSource{URL: "https://preview.redd.it/x.jpg", Width: 1920}}},
		},
	}

	info := Extract(raw)
	assert.Equal(t, domain.MediaTypeVideo, info.MediaType)
	assert.Equal(t, `<iframe src="https://player.example/embed"></iframe>`, info.OembedHTML)
	require.NotNil(t, info.Video)
	assert.Equal(t, 640, info.Video.Width)
	assert.Equal(t, 360, info.Video.Height)
}

func TestExtractGallery(t *testing.T) {
	raw := &reddit.Post{
		IsGallery: true,
		GalleryData: &reddit.GalleryData{
			Items: []reddit.GalleryDataItem{{MediaID: "abc"}, {MediaID: "def"}, {MediaID: "missing"}},
		},
		MediaMetadata: map[string]reddit.MediaMeta{
			"abc": {S: &reddit.MetaSource{U: "https://i.redd.it/abc.jpg?width=100&amp;crop=smart", X: 1024, Y: 768}},
			"def": {P: []reddit.MetaSource{
				{U: "https://i.redd.it/def-small.jpg", X: 320},
				{U: "https://i.redd.it/def-large.jpg", X: 960},
			}},
		},
	}

	info := Extract(raw)
	assert.Equal(t, domain.MediaTypeGallery, info.MediaType)
	require.Len(t, info.Gallery, 2)

	// Source rendition preferred, entities decoded.
	assert.Equal(t, "https://i.redd.it/abc.jpg?width=100&crop=smart", info.Gallery[0].URL)
	// No source: largest preview wins.
	assert.Equal(t, "https://i.redd.it/def-large.jpg", info.Gallery[1].URL)
	assert.Equal(t, info.Gallery[0].URL, info.MediaURL)
}

func TestExtractRedditVideoPrefersManifests(t *testing.T) {
	cases := []struct {
		name  string
		video reddit.RedditVideo
		want  string
	}{
		{
			"hls over dash over fallback",
			reddit.RedditVideo{HLSURL: "https://v.redd.it/x/HLSPlaylist.m3u8", DashURL: "https://v.redd.it/x/DASH.mpd", FallbackURL: "https://v.redd.it/x/DASH_720.mp4"},
			"https://v.redd.it/x/HLSPlaylist.m3u8",
		},
		{
			"dash over fallback",
			reddit.RedditVideo{DashURL: "https://v.redd.it/x/DASH.mpd", FallbackURL: "https://v.redd.it/x/DASH_720.mp4"},
			"https://v.redd.it/x/DASH.mpd",
		},
		{
			"fallback last",
			reddit.RedditVideo{FallbackURL: "https://v.redd.it/x/DASH_720.mp4"},
			"https://v.redd.it/x/DASH_720.mp4",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw := &reddit.Post{Media: &reddit.Media{RedditVideo: &tc.video}}
			info := Extract(raw)
			assert.Equal(t, domain.MediaTypeVideo, info.MediaType)
			assert.Equal(t, tc.want, info.MediaURL)
		})
	}
}

func TestExtractGifFlaggedVideo(t *testing.T) {
	raw := &reddit.Post{
		Media: &reddit.Media{RedditVideo: &reddit.RedditVideo{
			FallbackURL: "https://v.redd.it/g/DASH_480.mp4",
			IsGif:       true,
		}},
	}
	info := Extract(raw)
	assert.Equal(t, domain.MediaTypeGif, info.MediaType)
	require.NotNil(t, info.Video)
	assert.True(t, info.Video.IsGif)
}

func TestExtractSecureMediaFallback(t *testing.T) {
	raw := &reddit.Post{
		SecureMedia: &reddit.Media{RedditVideo: &reddit.RedditVideo{
			HLSURL:   "https://v.redd.it/s/HLSPlaylist.m3u8",
			HasAudio: true,
		}},
	}
	info := Extract(raw)
	assert.Equal(t, domain.MediaTypeVideo, info.MediaType)
	assert.Equal(t, "https://v.redd.it/s/HLSPlaylist.m3u8", info.MediaURL)
	require.NotNil(t, info.Video)
	assert.True(t, info.Video.HasAudio)
}

func TestExtractDirectURL(t *testing.T) {
	cases := []struct {
		name     string
		url      string
		wantType domain.MediaType
		wantURL  string
	}{
		{"jpeg", "https://i.imgur.com/cat.jpg", domain.MediaTypeImage, "https://i.imgur.com/cat.jpg"},
		{"png with query", "https://example.com/pic.png?raw=1", domain.MediaTypeImage, "https://example.com/pic.png?raw=1"},
		{"gifv normalized", "https://i.imgur.com/loop.gifv", domain.MediaTypeGif, "https://i.imgur.com/loop.gif"},
		{"imgur album guess", "https://imgur.com/a/xyz123", domain.MediaTypeImage, "https://imgur.com/a/xyz123.jpg"},
		{"mp4", "https://example.com/clip.mp4", domain.MediaTypeVideo, "https://example.com/clip.mp4"},
		{"video host", "https://vimeo.com/123456", domain.MediaTypeVideo, "https://vimeo.com/123456"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			info := Extract(&reddit.Post{URL: tc.url})
			assert.Equal(t, tc.wantType, info.MediaType)
			assert.Equal(t, tc.wantURL, info.MediaURL)
		})
	}
}

func TestExtractPreviewImageFallback(t *testing.T) {
	raw := &reddit.Post{
		URL: "https://blog.example.com/article",
		Preview: &reddit.Preview{
			Images: []reddit.PreviewImage{{
				Source: reddit.ImageSource{URL: "https://preview.redd.it/p.jpg?auto=webp&amp;s=sig", Width: 1200},
			}},
		},
	}
	info := Extract(raw)
	assert.Equal(t, domain.MediaTypeImage, info.MediaType)
	assert.Equal(t, "https://preview.redd.it/p.jpg?auto=webp&s=sig", info.MediaURL)
}

func TestExtractDefaultsToText(t *testing.T) {
	info := Extract(&reddit.Post{Title: "just text", Selftext: "body"})
	assert.Equal(t, domain.MediaTypeText, info.MediaType)
	assert.Empty(t, info.MediaURL)
	assert.Empty(t, info.ThumbnailURL)
}

func TestExtractNeverPanicsOnMalformedInput(t *testing.T) {
	malformed := []*reddit.Post{
		{},
		{Media: &reddit.Media{}},
		{SecureMedia: &reddit.Media{}},
		{GalleryData: &reddit.GalleryData{Items: []reddit.GalleryDataItem{{MediaID: "x"}}}},
		{Preview: &reddit.Preview{}},
		{Media: &reddit.Media{RedditVideo: &reddit.RedditVideo{}}},
	}
	for _, raw := range malformed {
		assert.NotPanics(t, func() {
			info := Extract(raw)
			assert.Equal(t, domain.MediaTypeText, info.MediaType)
		})
	}
}
