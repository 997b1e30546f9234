// Package orchestrator fans a fetch out across every configured feed,
// normalizes the raw results, and merges them into one deduplicated,
// recency-ordered post list.
package orchestrator

import (
	"context"
	"hash/fnv"
	"sort"
	"sync"

	"github.com/davidnys/redgrid/internal/domain"
	"github.com/davidnys/redgrid/internal/media"
	"github.com/davidnys/redgrid/internal/reddit"
	"github.com/davidnys/redgrid/pkg/errors"
	"github.com/davidnys/redgrid/pkg/formatter"
	"github.com/davidnys/redgrid/pkg/logger"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/fx"
)

const selfTextLimit = 200

// ErrAllFeedsFailed is returned only when every configured feed failed;
// individual feed failures just contribute zero posts.
var ErrAllFeedsFailed = errors.New("all feeds failed")

// ConfigSource supplies the feed configurations and the NSFW mode a fetch
// round runs with.
type ConfigSource interface {
	List(ctx context.Context) ([]domain.FeedConfig, error)
	NsfwMode(ctx context.Context) domain.NsfwMode
}

type Service struct {
	reddit  reddit.Client
	configs ConfigSource
	logger  logger.Logger
}

type Opts struct {
	fx.In

	Reddit  reddit.Client
	Configs ConfigSource
	Logger  logger.Logger
}

func New(opts Opts) *Service {
	return &Service{
		reddit:  opts.Reddit,
		configs: opts.Configs,
		logger:  opts.Logger.WithComponent("Orchestrator"),
	}
}

// FetchAll fetches every configured feed simultaneously and returns the
// merged post list, deduplicated by post ID (first occurrence wins) and
// sorted by creation time, newest first.
func (s *Service) FetchAll(ctx context.Context) ([]domain.Post, error) {
	configs, err := s.configs.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(configs) == 0 {
		return nil, nil
	}

	nsfw := s.configs.NsfwMode(ctx)

	// Every feed fires at once: the pool is sized to the config count.
	pool, err := ants.NewPool(len(configs), ants.WithPreAlloc(true))
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	results := make([][]domain.Post, len(configs))
	failures := make([]bool, len(configs))
	var wg sync.WaitGroup

	for i, cfg := range configs {
		wg.Add(1)
		idx, feedCfg := i, cfg

		submitErr := pool.Submit(func() {
			defer wg.Done()
			raw, err := s.reddit.Fetch(ctx, feedCfg, nsfw)
			if err != nil {
				s.logger.Warn("Feed contributed no posts",
					"subreddit", feedCfg.Subreddit, "error", err)
				failures[idx] = true
				return
			}
			results[idx] = s.normalize(feedCfg, raw)
		})
		if submitErr != nil {
			wg.Done()
			failures[idx] = true
			s.logger.Error("Failed to submit feed fetch", "subreddit", feedCfg.Subreddit, "error", submitErr)
		}
	}

	wg.Wait()

	failed := 0
	var merged []domain.Post
	for i := range results {
		if failures[i] {
			failed++
		}
		merged = append(merged, results[i]...)
	}

	if failed == len(configs) {
		return nil, ErrAllFeedsFailed
	}

	merged = dedupe(merged)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt > merged[j].CreatedAt
	})
	return merged, nil
}

func (s *Service) normalize(cfg domain.FeedConfig, raw []reddit.Post) []domain.Post {
	posts := make([]domain.Post, 0, len(raw))
	for i := range raw {
		item := &raw[i]
		if item.ID == "" {
			continue
		}
		posts = append(posts, domain.Post{
			ID:        item.ID,
			Title:     item.Title,
			Author:    item.Author,
			Subreddit: cfg.Subreddit,
			CreatedAt: int64(item.CreatedUTC),
			Upvotes:   item.Ups,
			Permalink: item.Permalink,
			SelfText:  formatter.Truncate(item.Selftext, selfTextLimit),
			EmojiTag:  emojiTag(cfg.Subreddit),
			MediaInfo: media.Extract(item),
		})
	}
	return posts
}

// dedupe keeps the first occurrence of each post ID, in input order.
func dedupe(posts []domain.Post) []domain.Post {
	seen := make(map[string]bool, len(posts))
	out := posts[:0]
	for _, p := range posts {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		out = append(out, p)
	}
	return out
}

// emojiTags decorate posts per feed; the pick is a stable hash of the
// subreddit name so a feed keeps its tag across refreshes.
var emojiTags = []string{"🌄", "📷", "🐾", "🖼️", "🌿", "🏙️", "🍜", "🌌", "🎬", "🔥"}

func emojiTag(subreddit string) string {
	h := fnv.New32a()
	h.Write([]byte(subreddit))
	return emojiTags[h.Sum32()%uint32(len(emojiTags))]
}
