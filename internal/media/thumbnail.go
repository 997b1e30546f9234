package media

import (
	"regexp"
	"strings"

	"github.com/davidnys/redgrid/internal/reddit"
	"github.com/davidnys/redgrid/pkg/formatter"
)

// Reddit uses these sentinel strings in the thumbnail field for posts that
// have no real thumbnail.
var thumbnailPlaceholders = map[string]bool{
	"self":    true,
	"default": true,
	"nsfw":    true,
	"spoiler": true,
	"image":   true,
}

const (
	thumbTargetMinWidth = 320
	thumbTargetMaxWidth = 640
)

// Thumbnail resolves the best thumbnail URL for a raw post, or "" when none
// is usable. Video posts prefer a preview source over the listed thumbnail,
// and preview ladders yield a mid-sized rendition rather than the largest to
// bound payload size.
func Thumbnail(raw *reddit.Post) string {
	if raw.IsVideo || hasNativeVideo(raw) {
		if url := youtubeThumbnail(raw.URL); url != "" {
			return url
		}
		if url := midSizedPreview(raw); url != "" {
			return url
		}
	}

	if url := youtubeThumbnail(raw.URL); url != "" {
		return url
	}

	if usableThumbnail(raw.Thumbnail) {
		return raw.Thumbnail
	}

	return midSizedPreview(raw)
}

func usableThumbnail(thumb string) bool {
	if thumb == "" || thumbnailPlaceholders[thumb] {
		return false
	}
	return strings.HasPrefix(thumb, "http")
}

func hasNativeVideo(raw *reddit.Post) bool {
	if raw.Media != nil && raw.Media.RedditVideo != nil {
		return true
	}
	return raw.SecureMedia != nil && raw.SecureMedia.RedditVideo != nil
}

// midSizedPreview walks the preview resolution ladder and picks the largest
// rendition at or under the target width, falling back to the source image.
func midSizedPreview(raw *reddit.Post) string {
	if raw.Preview == nil || len(raw.Preview.Images) == 0 {
		return ""
	}
	img := raw.Preview.Images[0]

	var best *reddit.ImageSource
	for i := range img.Resolutions {
		res := &img.Resolutions[i]
		if res.URL == "" || res.Width > thumbTargetMaxWidth {
			continue
		}
		if best == nil || res.Width > best.Width {
			best = res
		}
	}
	if best != nil && best.Width >= thumbTargetMinWidth {
		return formatter.DecodeEntities(best.URL)
	}
	if best == nil && img.Source.URL != "" {
		return formatter.DecodeEntities(img.Source.URL)
	}
	if best != nil {
		return formatter.DecodeEntities(best.URL)
	}
	return ""
}

// The three YouTube URL shapes a post link can take.
var youtubePatterns = []*regexp.Regexp{
	regexp.MustCompile(`youtube\.com/watch\?(?:[^#]*&)?v=([A-Za-z0-9_-]{6,})`),
	regexp.MustCompile(`youtu\.be/([A-Za-z0-9_-]{6,})`),
	regexp.MustCompile(`youtube\.com/embed/([A-Za-z0-9_-]{6,})`),
}

// youtubeThumbnail derives a deterministic thumbnail URL from a recognizable
// YouTube video ID. An unrecognized URL yields no thumbnail.
func youtubeThumbnail(url string) string {
	if url == "" {
		return ""
	}
	for _, re := range youtubePatterns {
		if m := re.FindStringSubmatch(url); m != nil {
			return "https://img.youtube.com/vi/" + m[1] + "/hqdefault.jpg"
		}
	}
	return ""
}
