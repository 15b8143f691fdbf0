package reddit

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"aha_collector/internal/domain"
	"aha_collector/internal/source"
)

const SourceName = "Reddit"

// Config holds Reddit source configuration.
type Config struct {
	BaseURL    string
	PageSize   int
	BodyLimit  int
	Queries    []string
	Subreddits []string
	Client     source.ClientConfig
}

type target struct {
	query     string
	subreddit string
}

// Source pages through Reddit search results and subreddit listings.
type Source struct {
	client    *source.Client
	baseURL   string
	pageSize  int
	bodyLimit int
	targets   []target
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a new Reddit source. Search queries are traversed before subreddit listings.
func New(cfg Config, logger *slog.Logger) *Source {
	logger = logger.With("platform", domain.PlatformReddit)

	var targets []target
	for _, q := range cfg.Queries {
		targets = append(targets, target{query: q})
	}
	for _, s := range cfg.Subreddits {
		targets = append(targets, target{subreddit: s})
	}

	return &Source{
		client:    source.NewClient(cfg.Client, logger),
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		pageSize:  cfg.PageSize,
		bodyLimit: cfg.BodyLimit,
		targets:   targets,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *Source) Platform() domain.Platform {
	return domain.PlatformReddit
}

func (s *Source) Name() string {
	return SourceName
}

// FetchPage fetches the listing page at cursor.
func (s *Source) FetchPage(ctx context.Context, cursor string) (*domain.Page, error) {
	if len(s.targets) == 0 {
		return &domain.Page{Done: true}, nil
	}

	c, err := source.ParseCursor(cursor)
	if err != nil || c.Target >= len(s.targets) {
		s.logger.Warn("discarding unusable cursor", "cursor", cursor)
		c = source.Cursor{}
	}

	var listing Listing
	if err := s.client.GetJSON(ctx, s.pageURL(s.targets[c.Target], c.Token), &listing); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", s.describe(s.targets[c.Target]), err)
	}

	nextToken := ""
	if listing.Data.After != nil {
		nextToken = *listing.Data.After
	}
	next, done := c.Advance(nextToken, len(s.targets))

	page := &domain.Page{
		Posts:      s.transform(listing.Data.Children),
		NextCursor: next.String(),
		Done:       done,
	}

	s.logger.Debug("fetched page",
		"target", s.describe(s.targets[c.Target]),
		"posts", len(page.Posts),
		"next_cursor", page.NextCursor,
	)

	return page, nil
}

func (s *Source) pageURL(t target, after string) string {
	q := url.Values{}
	q.Set("limit", fmt.Sprint(s.pageSize))
	q.Set("raw_json", "1")
	if after != "" {
		q.Set("after", after)
	}

	if t.subreddit != "" {
		return fmt.Sprintf("%s/r/%s/new.json?%s", s.baseURL, url.PathEscape(t.subreddit), q.Encode())
	}
	q.Set("q", t.query)
	q.Set("sort", "new")
	q.Set("type", "link")
	return fmt.Sprintf("%s/search.json?%s", s.baseURL, q.Encode())
}

func (s *Source) describe(t target) string {
	if t.subreddit != "" {
		return "r/" + t.subreddit
	}
	return "search " + t.query
}

func (s *Source) transform(children []Child) []domain.RawPost {
	posts := make([]domain.RawPost, 0, len(children))
	fetchedAt := s.now().UTC()

	for _, child := range children {
		p := child.Data
		if p.ID == "" {
			continue
		}
		if child.Kind != "" && child.Kind != "t3" {
			continue
		}

		posts = append(posts, domain.RawPost{
			Platform:    domain.PlatformReddit,
			ID:          p.ID,
			Title:       p.Title,
			Body:        source.Truncate(p.Selftext, s.bodyLimit),
			URL:         "https://reddit.com" + p.Permalink,
			Author:      p.Author,
			Timestamp:   time.Unix(int64(p.CreatedUTC), 0).UTC(),
			Score:       p.Score,
			NumComments: p.NumComments,
			Community:   p.Subreddit,
			FetchedAt:   fetchedAt,
		})
	}

	return posts
}
