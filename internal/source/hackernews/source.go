package hackernews

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"aha_collector/internal/domain"
	"aha_collector/internal/source"
)

const (
	SourceName = "Hacker News"
	itemURL    = "https://news.ycombinator.com/item?id="
)

// Config holds Hacker News source configuration.
type Config struct {
	BaseURL   string
	PageSize  int
	BodyLimit int
	Queries   []string
	Client    source.ClientConfig
}

// Source pages through Algolia story searches, newest first.
type Source struct {
	client    *source.Client
	baseURL   string
	pageSize  int
	bodyLimit int
	queries   []string
	logger    *slog.Logger
	now       func() time.Time
}

func New(cfg Config, logger *slog.Logger) *Source {
	logger = logger.With("platform", domain.PlatformHackerNews)
	return &Source{
		client:    source.NewClient(cfg.Client, logger),
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		pageSize:  cfg.PageSize,
		bodyLimit: cfg.BodyLimit,
		queries:   cfg.Queries,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *Source) Platform() domain.Platform {
	return domain.PlatformHackerNews
}

func (s *Source) Name() string {
	return SourceName
}

// FetchPage fetches the search page at cursor. The cursor token is the Algolia page number.
func (s *Source) FetchPage(ctx context.Context, cursor string) (*domain.Page, error) {
	if len(s.queries) == 0 {
		return &domain.Page{Done: true}, nil
	}

	c, err := source.ParseCursor(cursor)
	pageNum := 0
	if err == nil && c.Token != "" {
		pageNum, err = strconv.Atoi(c.Token)
	}
	if err != nil || c.Target >= len(s.queries) || pageNum < 0 {
		s.logger.Warn("discarding unusable cursor", "cursor", cursor)
		c, pageNum = source.Cursor{}, 0
	}

	query := s.queries[c.Target]

	var resp SearchResponse
	if err := s.client.GetJSON(ctx, s.pageURL(query, pageNum), &resp); err != nil {
		return nil, fmt.Errorf("search %q page %d: %w", query, pageNum, err)
	}

	nextToken := ""
	if pageNum+1 < resp.NbPages {
		nextToken = strconv.Itoa(pageNum + 1)
	}
	next, done := c.Advance(nextToken, len(s.queries))

	page := &domain.Page{
		Posts:      s.transform(resp.Hits),
		NextCursor: next.String(),
		Done:       done,
	}

	s.logger.Debug("fetched page",
		"query", query,
		"page", pageNum,
		"pages", resp.NbPages,
		"posts", len(page.Posts),
	)

	return page, nil
}

func (s *Source) pageURL(query string, page int) string {
	q := url.Values{}
	q.Set("query", query)
	q.Set("tags", "story")
	q.Set("hitsPerPage", strconv.Itoa(s.pageSize))
	q.Set("page", strconv.Itoa(page))
	return fmt.Sprintf("%s/search_by_date?%s", s.baseURL, q.Encode())
}

func (s *Source) transform(hits []Hit) []domain.RawPost {
	posts := make([]domain.RawPost, 0, len(hits))
	fetchedAt := s.now().UTC()

	for _, h := range hits {
		if h.ObjectID == "" {
			continue
		}

		discussion := itemURL + h.ObjectID
		link := discussion
		if h.URL != nil && *h.URL != "" {
			link = *h.URL
		}

		post := domain.RawPost{
			Platform:      domain.PlatformHackerNews,
			ID:            h.ObjectID,
			Title:         h.Title,
			URL:           link,
			Author:        h.Author,
			Timestamp:     time.Unix(h.CreatedAtI, 0).UTC(),
			DiscussionURL: discussion,
			FetchedAt:     fetchedAt,
		}
		if h.StoryText != nil {
			post.Body = source.Truncate(stripTags(*h.StoryText), s.bodyLimit)
		}
		if h.Points != nil {
			post.Score = *h.Points
		}
		if h.NumComments != nil {
			post.NumComments = *h.NumComments
		}

		posts = append(posts, post)
	}

	return posts
}

// stripTags flattens the small HTML subset Algolia returns in story_text.
// Paragraph, line break and pre elements start a new line.
func stripTags(s string) string {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(b.String())
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			switch atom.Lookup(name) {
			case atom.P, atom.Br, atom.Pre:
				b.WriteByte('\n')
			}
		}
	}
}
