package domain

// SortType is a Reddit listing or search sort order.
type SortType string

const (
	SortHot       SortType = "hot"
	SortNew       SortType = "new"
	SortRising    SortType = "rising"
	SortTop       SortType = "top"
	SortRelevance SortType = "relevance"
	SortComments  SortType = "comments"
)

// Timeframe narrows a "top" listing or a search to a time window.
type Timeframe string

const (
	TimeframeHour  Timeframe = "hour"
	TimeframeDay   Timeframe = "day"
	TimeframeWeek  Timeframe = "week"
	TimeframeMonth Timeframe = "month"
	TimeframeYear  Timeframe = "year"
	TimeframeAll   Timeframe = "all"
)

// NsfwMode is the global over-18 content setting.
type NsfwMode string

const (
	NsfwModeSfw  NsfwMode = "sfw"
	NsfwModeNsfw NsfwMode = "nsfw"
)

// FeedConfig is one saved subreddit request definition. Keywords set means
// the config targets the search endpoint instead of the listing endpoint;
// Timeframe is only meaningful when SortType is top (or for searches).
type FeedConfig struct {
	ID        string    `json:"id"`
	Subreddit string    `json:"subreddit"`
	SortType  SortType  `json:"sortType"`
	Timeframe Timeframe `json:"timeframe,omitempty"`
	Keywords  string    `json:"keywords,omitempty"`
	Position  int       `json:"-"`
}

// IsSearch reports whether the config uses the search endpoint.
func (c FeedConfig) IsSearch() bool {
	return c.Keywords != ""
}
