// Package media classifies raw Reddit posts into a normalized media shape.
// Classification is an ordered priority chain: the first rule that matches
// wins, and a post that matches nothing degrades to plain text. Extraction
// never fails; malformed fields simply fall through to the next rule.
package media

import (
	"strings"

	"github.com/davidnys/redgrid/internal/domain"
	"github.com/davidnys/redgrid/internal/reddit"
	"github.com/davidnys/redgrid/pkg/formatter"
)

// classifier inspects a raw post and returns a MediaInfo when it recognizes
// the post's media shape, or nil to let the next rule try.
type classifier func(raw *reddit.Post) *domain.MediaInfo

// chain is evaluated top to bottom; order is the contract.
var chain = []classifier{
	classifyOembed,
	classifyGallery,
	classifyRedditVideo,
	classifySecureVideo,
	classifyDirectURL,
	classifyPreviewImage,
}

// Extract determines the media kind of a raw post and resolves its best
// URL and thumbnail.
func Extract(raw *reddit.Post) domain.MediaInfo {
	info := domain.MediaInfo{MediaType: domain.MediaTypeText}
	for _, classify := range chain {
		if m := classify(raw); m != nil {
			info = *m
			break
		}
	}
	info.ThumbnailURL = Thumbnail(raw)
	return info
}

func classifyOembed(raw *reddit.Post) *domain.MediaInfo {
	if raw.Media == nil || raw.Media.Oembed == nil || raw.Media.Oembed.HTML == "" {
		return nil
	}
	oe := raw.Media.Oembed
	return &domain.MediaInfo{
		MediaType:  domain.MediaTypeVideo,
		MediaURL:   raw.URL,
		OembedHTML: formatter.DecodeEntities(oe.HTML),
		Video: &domain.VideoInfo{
			Width:  oe.Width,
			Height: oe.Height,
		},
	}
}

func classifyGallery(raw *reddit.Post) *domain.MediaInfo {
	if raw.GalleryData == nil || len(raw.GalleryData.Items) == 0 || len(raw.MediaMetadata) == 0 {
		return nil
	}

	var items []domain.GalleryItem
	for _, entry := range raw.GalleryData.Items {
		meta, ok := raw.MediaMetadata[entry.MediaID]
		if !ok {
			continue
		}
		src := bestMetaSource(meta)
		if src == nil || src.U == "" {
			continue
		}
		items = append(items, domain.GalleryItem{
			MediaID: entry.MediaID,
			URL:     formatter.DecodeEntities(src.U),
			Width:   src.X,
			Height:  src.Y,
		})
	}
	if len(items) == 0 {
		return nil
	}

	return &domain.MediaInfo{
		MediaType: domain.MediaTypeGallery,
		MediaURL:  items[0].URL,
		Gallery:   items,
	}
}

// bestMetaSource prefers the explicit source rendition, falling back to the
// largest listed preview.
func bestMetaSource(meta reddit.MediaMeta) *reddit.MetaSource {
	if meta.S != nil && meta.S.U != "" {
		return meta.S
	}
	var best *reddit.MetaSource
	for i := range meta.P {
		if meta.P[i].U == "" {
			continue
		}
		if best == nil || meta.P[i].X > best.X {
			best = &meta.P[i]
		}
	}
	return best
}

func classifyRedditVideo(raw *reddit.Post) *domain.MediaInfo {
	if raw.Media == nil || raw.Media.RedditVideo == nil {
		return nil
	}
	return videoInfoFrom(raw.Media.RedditVideo)
}

// classifySecureVideo handles items that only duplicate the video object
// under secure_media.
func classifySecureVideo(raw *reddit.Post) *domain.MediaInfo {
	if raw.SecureMedia == nil || raw.SecureMedia.RedditVideo == nil {
		return nil
	}
	return videoInfoFrom(raw.SecureMedia.RedditVideo)
}

// videoInfoFrom picks a playback URL for a hosted video. Manifests come
// first because the static fallback file often lacks the audio track:
// HLS over DASH over fallback.
func videoInfoFrom(v *reddit.RedditVideo) *domain.MediaInfo {
	url := v.HLSURL
	if url == "" {
		url = v.DashURL
	}
	if url == "" {
		url = v.FallbackURL
	}
	if url == "" {
		return nil
	}

	mediaType := domain.MediaTypeVideo
	if v.IsGif {
		mediaType = domain.MediaTypeGif
	}

	return &domain.MediaInfo{
		MediaType: mediaType,
		MediaURL:  formatter.DecodeEntities(url),
		Video: &domain.VideoInfo{
			Width:    v.Width,
			Height:   v.Height,
			Duration: float64(v.Duration),
			HasAudio: v.HasAudio,
			IsGif:    v.IsGif,
		},
	}
}

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".webp"}
var videoExtensions = []string{".mp4", ".webm", ".mov"}

// videoHosts are known video-sharing and embed-hosting domains, matched by
// hostname substring.
var videoHosts = []string{
	"youtube.com",
	"youtu.be",
	"vimeo.com",
	"streamable.com",
	"gfycat.com",
	"redgifs.com",
	"twitch.tv",
}

func classifyDirectURL(raw *reddit.Post) *domain.MediaInfo {
	url := raw.URL
	if url == "" || !strings.HasPrefix(url, "http") {
		return nil
	}
	lower := strings.ToLower(stripQuery(url))

	for _, ext := range imageExtensions {
		if strings.HasSuffix(lower, ext) {
			return &domain.MediaInfo{MediaType: domain.MediaTypeImage, MediaURL: url}
		}
	}

	if strings.HasSuffix(lower, ".gif") || strings.HasSuffix(lower, ".gifv") {
		return &domain.MediaInfo{
			MediaType: domain.MediaTypeGif,
			MediaURL:  strings.TrimSuffix(url, "v"),
		}
	}

	// Imgur album/gallery links point at multi-image pages. Guessing a
	// direct single-image URL with a .jpg suffix is a documented
	// best-effort approximation, not guaranteed correct for albums.
	if strings.Contains(lower, "imgur.com/a/") || strings.Contains(lower, "imgur.com/gallery/") {
		guess := url
		if !hasImageExtension(lower) {
			guess = url + ".jpg"
		}
		return &domain.MediaInfo{MediaType: domain.MediaTypeImage, MediaURL: guess}
	}

	for _, ext := range videoExtensions {
		if strings.HasSuffix(lower, ext) {
			return &domain.MediaInfo{MediaType: domain.MediaTypeVideo, MediaURL: url}
		}
	}

	for _, host := range videoHosts {
		if strings.Contains(lower, host) {
			return &domain.MediaInfo{MediaType: domain.MediaTypeVideo, MediaURL: url}
		}
	}

	return nil
}

func classifyPreviewImage(raw *reddit.Post) *domain.MediaInfo {
	src := previewSource(raw)
	if src == nil {
		return nil
	}
	return &domain.MediaInfo{
		MediaType: domain.MediaTypeImage,
		MediaURL:  formatter.DecodeEntities(src.URL),
	}
}

func previewSource(raw *reddit.Post) *reddit.ImageSource {
	if raw.Preview == nil || len(raw.Preview.Images) == 0 {
		return nil
	}
	src := raw.Preview.Images[0].Source
	if src.URL == "" {
		return nil
	}
	return &src
}

func stripQuery(url string) string {
	if i := strings.IndexByte(url, '?'); i >= 0 {
		return url[:i]
	}
	return url
}

func hasImageExtension(lower string) bool {
	for _, ext := range imageExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return strings.HasSuffix(lower, ".gif")
}
