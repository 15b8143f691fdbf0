package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"aha_collector/internal/domain"
	"aha_collector/internal/storage"
)

// SelectPublishable returns the accepted classifications that are not yet
// published, joined with their raw post. The first accepted classification
// of a post wins; accepted records whose post is unknown are left out.
func SelectPublishable(
	classified []domain.ClassifiedMoment,
	raw []domain.RawPost,
	published []domain.PublishedMoment,
) []domain.PublishedMoment {
	posts := make(map[string]domain.RawPost, len(raw))
	for _, p := range raw {
		posts[p.Key()] = p
	}

	done := make(map[string]struct{}, len(published))
	for _, p := range published {
		done[p.Key()] = struct{}{}
	}

	var out []domain.PublishedMoment
	for _, m := range classified {
		if !m.Accepted {
			continue
		}
		key := domain.PublishedKeyForPost(m.SourceID)
		if _, ok := done[key]; ok {
			continue
		}
		post, ok := posts[m.SourceID]
		if !ok {
			continue
		}

		done[key] = struct{}{}
		out = append(out, domain.PublishedMoment{
			ClassifiedMoment: m,
			Platform:         post.Platform,
			Title:            post.Title,
			URL:              post.URL,
			Author:           post.Author,
			AITool:           post.AITool,
		})
	}
	return out
}

type PublishService struct {
	raw        storage.Log[domain.RawPost]
	classified storage.Log[domain.ClassifiedMoment]
	published  storage.Log[domain.PublishedMoment]
	publisher  Publisher
	logger     *slog.Logger
}

// NewPublishService creates a publish service. publisher may be nil.
func NewPublishService(
	raw storage.Log[domain.RawPost],
	classified storage.Log[domain.ClassifiedMoment],
	published storage.Log[domain.PublishedMoment],
	publisher Publisher,
	logger *slog.Logger,
) *PublishService {
	return &PublishService{
		raw:        raw,
		classified: classified,
		published:  published,
		publisher:  publisher,
		logger:     logger.With("stage", "publish"),
	}
}

func (s *PublishService) Publish(ctx context.Context) (*domain.PublishStats, error) {
	stats := &domain.PublishStats{}

	classified, err := s.classified.ReadAll(ctx)
	if err != nil {
		return stats, fmt.Errorf("read classified moments: %w", err)
	}
	raw, err := s.raw.ReadAll(ctx)
	if err != nil {
		return stats, fmt.Errorf("read raw posts: %w", err)
	}
	published, err := s.published.ReadAll(ctx)
	if err != nil {
		return stats, fmt.Errorf("read published moments: %w", err)
	}

	candidates := SelectPublishable(classified, raw, published)
	stats.Candidates = len(candidates)

	for i := range candidates {
		moment := &candidates[i]
		if err := s.published.Append(ctx, *moment); err != nil {
			if errors.Is(err, domain.ErrDuplicate) {
				stats.Skipped++
				continue
			}
			return stats, fmt.Errorf("append published moment %s: %w", moment.Key(), err)
		}
		stats.Published++

		if s.publisher != nil {
			if err := s.publisher.Publish(ctx, moment); err != nil {
				s.logger.Warn("failed to notify", "key", moment.Key(), "error", err)
			} else {
				stats.Notified++
			}
		}
	}

	s.logger.Info("publish completed",
		"candidates", stats.Candidates,
		"published", stats.Published,
		"skipped", stats.Skipped,
		"notified", stats.Notified,
	)

	return stats, nil
}
