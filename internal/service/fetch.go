package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"aha_collector/internal/domain"
	"aha_collector/internal/filter"
	"aha_collector/internal/storage"
)

// FetchService pages one platform, keeps the posts that match the keyword
// set and appends the unseen ones to the raw log.
type FetchService struct {
	source    Source
	raw       storage.Log[domain.RawPost]
	cursors   storage.CursorStore
	txManager TransactionManager
	matcher   *filter.Matcher
	extractor Extractor
	logger    *slog.Logger
	maxPages  int
}

// NewFetchService creates a fetch service. extractor may be nil.
func NewFetchService(
	source Source,
	raw storage.Log[domain.RawPost],
	cursors storage.CursorStore,
	txManager TransactionManager,
	matcher *filter.Matcher,
	extractor Extractor,
	logger *slog.Logger,
	maxPages int,
) *FetchService {
	if maxPages < 1 {
		maxPages = 1
	}
	return &FetchService{
		source:    source,
		raw:       raw,
		cursors:   cursors,
		txManager: txManager,
		matcher:   matcher,
		extractor: extractor,
		logger:    logger.With("platform", source.Platform()),
		maxPages:  maxPages,
	}
}

func (s *FetchService) Platform() domain.Platform {
	return s.source.Platform()
}

// Fetch resumes from the stored cursor. Each page's new posts and the cursor
// after it are committed together, so a failure keeps every earlier page and
// the next run picks up at the failed page.
func (s *FetchService) Fetch(ctx context.Context) (*domain.FetchStats, error) {
	startTime := time.Now()
	platform := s.source.Platform()
	stats := &domain.FetchStats{Platform: platform}

	cursor, err := s.cursors.Get(ctx, platform)
	if err != nil {
		return stats, fmt.Errorf("load cursor: %w", err)
	}

	s.logger.Info("starting fetch",
		"source_name", s.source.Name(),
		"cursor", cursor,
		"max_pages", s.maxPages,
	)

	for stats.Pages < s.maxPages {
		page, err := s.source.FetchPage(ctx, cursor)
		if err != nil {
			stats.Partial = true
			stats.Duration = time.Since(startTime)
			s.logger.Error("fetch interrupted",
				"cursor", cursor,
				"pages", stats.Pages,
				"new", stats.New,
				"error", err,
			)
			return stats, fmt.Errorf("fetch %s page: %w", platform, err)
		}
		stats.Pages++
		stats.Fetched += len(page.Posts)

		matched := s.match(ctx, page.Posts)
		stats.Matched += len(matched)

		// A finished traversal, or one cut short by the page budget, starts
		// from the newest page next time.
		next := page.NextCursor
		if page.Done || stats.Pages >= s.maxPages {
			next = ""
		}

		added, dups, err := s.store(ctx, matched, next)
		if err != nil {
			stats.Partial = true
			stats.Duration = time.Since(startTime)
			return stats, fmt.Errorf("store %s page: %w", platform, err)
		}
		stats.New += added
		stats.Duplicates += dups

		if page.Done {
			break
		}
		cursor = page.NextCursor
	}

	stats.Duration = time.Since(startTime)
	s.logger.Info("fetch completed",
		"pages", stats.Pages,
		"fetched", stats.Fetched,
		"matched", stats.Matched,
		"new", stats.New,
		"duplicates", stats.Duplicates,
		"duration", stats.Duration,
	)

	return stats, nil
}

func (s *FetchService) match(ctx context.Context, posts []domain.RawPost) []domain.RawPost {
	var matched []domain.RawPost
	for _, post := range posts {
		keyword, ok := s.matcher.Match(post.Title, post.Body)
		if !ok {
			continue
		}
		post.MatchedKeyword = keyword
		post.AITool = s.matcher.Tool(post.Title + " " + post.Body)

		if post.Body == "" && s.extractor != nil && post.URL != "" && post.URL != post.DiscussionURL {
			s.enrich(ctx, &post)
		}
		matched = append(matched, post)
	}
	return matched
}

// enrich fills an empty body from the linked page. Failures leave the post as is.
func (s *FetchService) enrich(ctx context.Context, post *domain.RawPost) {
	if known, err := s.raw.Contains(ctx, post.Key()); err != nil || known {
		return
	}

	text, err := s.extractor.Extract(ctx, post.URL)
	if err != nil {
		s.logger.Debug("linked content unavailable", "url", post.URL, "error", err)
		return
	}
	post.Body = text
}

func (s *FetchService) store(ctx context.Context, posts []domain.RawPost, next string) (added, dups int, err error) {
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		added, dups = 0, 0
		for _, post := range posts {
			if err := s.raw.Append(txCtx, post); err != nil {
				if errors.Is(err, domain.ErrDuplicate) {
					dups++
					continue
				}
				return fmt.Errorf("append post %s: %w", post.Key(), err)
			}
			added++
		}

		if err := s.cursors.Save(txCtx, s.source.Platform(), next); err != nil {
			return fmt.Errorf("save cursor: %w", err)
		}
		return nil
	})
	return added, dups, err
}
