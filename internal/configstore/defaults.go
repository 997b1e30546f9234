package configstore

import (
	"fmt"
	"time"

	"github.com/davidnys/redgrid/internal/domain"
)

// defaultFeeds is the fixed seed set: SFW, picture-oriented subreddits,
// mostly hot, one weekly top.
var defaultFeeds = []struct {
	subreddit string
	sort      domain.SortType
	timeframe domain.Timeframe
}{
	{"EarthPorn", domain.SortHot, ""},
	{"itookapicture", domain.SortHot, ""},
	{"aww", domain.SortHot, ""},
	{"pics", domain.SortHot, ""},
	{"NatureIsCool", domain.SortHot, ""},
	{"CityPorn", domain.SortHot, ""},
	{"FoodPorn", domain.SortHot, ""},
	{"astrophotography", domain.SortTop, domain.TimeframeWeek},
}

// DefaultConfigs materializes the seed set with unique IDs.
func DefaultConfigs(now time.Time) []domain.FeedConfig {
	configs := make([]domain.FeedConfig, 0, len(defaultFeeds))
	for i, f := range defaultFeeds {
		timeframe := string(f.timeframe)
		if timeframe == "" {
			timeframe = "none"
		}
		configs = append(configs, domain.FeedConfig{
			ID:        fmt.Sprintf("%s-%s-%s-feed-%d", f.subreddit, f.sort, timeframe, now.UnixMilli()+int64(i)),
			Subreddit: f.subreddit,
			SortType:  f.sort,
			Timeframe: f.timeframe,
			Position:  i,
		})
	}
	return configs
}
