package domain

// MediaType classifies the primary media carried by a post.
type MediaType string

const (
	MediaTypeImage   MediaType = "image"
	MediaTypeGif     MediaType = "gif"
	MediaTypeVideo   MediaType = "video"
	MediaTypeGallery MediaType = "gallery"
	MediaTypeText    MediaType = "text"
)

// VideoInfo carries playback metadata for native and embedded videos.
type VideoInfo struct {
	Width    int     `json:"width,omitempty"`
	Height   int     `json:"height,omitempty"`
	Duration float64 `json:"duration,omitempty"`
	HasAudio bool    `json:"hasAudio,omitempty"`
	IsGif    bool    `json:"isGif,omitempty"`
}

// GalleryItem is a single resolved image of a multi-image post.
type GalleryItem struct {
	MediaID string `json:"mediaId"`
	URL     string `json:"url"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
}

// MediaInfo is the result of classifying a raw feed item. Immutable once
// computed; embedded into Post.
type MediaInfo struct {
	MediaType    MediaType     `json:"mediaType"`
	MediaURL     string        `json:"mediaUrl,omitempty"`
	ThumbnailURL string        `json:"thumbnailUrl,omitempty"`
	Video        *VideoInfo    `json:"video,omitempty"`
	Gallery      []GalleryItem `json:"gallery,omitempty"`
	OembedHTML   string        `json:"oembedHtml,omitempty"`
}

// Post is the normalized, consumer-facing entity. Replaced wholesale on each
// successful fetch cycle; never partially updated.
type Post struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Subreddit string `json:"subreddit"`
	CreatedAt int64  `json:"createdAt"`
	Upvotes   int    `json:"upvotes"`
	Permalink string `json:"permalink"`
	SelfText  string `json:"selfText,omitempty"`
	EmojiTag  string `json:"emojiTag,omitempty"`

	MediaInfo
}
