package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"aha_collector/internal/domain"
	"aha_collector/internal/storage"
)

type ClassifyService struct {
	classifier       Classifier
	raw              storage.Log[domain.RawPost]
	classified       storage.Log[domain.ClassifiedMoment]
	logger           *slog.Logger
	retryAPIFailures bool
}

func NewClassifyService(
	classifier Classifier,
	raw storage.Log[domain.RawPost],
	classified storage.Log[domain.ClassifiedMoment],
	logger *slog.Logger,
	retryAPIFailures bool,
) *ClassifyService {
	return &ClassifyService{
		classifier:       classifier,
		raw:              raw,
		classified:       classified,
		logger:           logger.With("stage", "classify"),
		retryAPIFailures: retryAPIFailures,
	}
}

// Pending returns the raw posts that still need a classification, in raw log order.
func (s *ClassifyService) Pending(ctx context.Context) ([]domain.RawPost, error) {
	posts, err := s.raw.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read raw posts: %w", err)
	}
	moments, err := s.classified.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read classified moments: %w", err)
	}

	latest := make(map[string]domain.ClassifiedMoment, len(moments))
	for _, m := range moments {
		latest[m.SourceID] = m
	}

	var pending []domain.RawPost
	for _, post := range posts {
		m, seen := latest[post.Key()]
		switch {
		case !seen:
			pending = append(pending, post)
		case s.retryAPIFailures && !m.Accepted && m.RejectionReason == domain.ReasonAPIFailure:
			pending = append(pending, post)
		}
	}
	return pending, nil
}

// Classify classifies every pending post and appends one record per attempt.
func (s *ClassifyService) Classify(ctx context.Context) (*domain.ClassifyStats, error) {
	startTime := time.Now()
	stats := &domain.ClassifyStats{}

	pending, err := s.Pending(ctx)
	if err != nil {
		return stats, err
	}
	stats.Pending = len(pending)
	s.logger.Info("starting classification", "pending", stats.Pending)

	for i, post := range pending {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		moment := s.classifier.Classify(ctx, post)

		// An attempt cut short by shutdown is not a real api_failure.
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		if err := s.classified.Append(ctx, moment); err != nil {
			return stats, fmt.Errorf("append classification for %s: %w", post.Key(), err)
		}

		switch {
		case moment.Accepted:
			stats.Accepted++
		case moment.RejectionReason == domain.ReasonAPIFailure:
			stats.APIFailures++
		default:
			stats.Rejected++
		}

		s.logger.Debug("post classified",
			"progress", fmt.Sprintf("%d/%d", i+1, len(pending)),
			"source_id", moment.SourceID,
			"accepted", moment.Accepted,
			"reason", moment.RejectionReason,
		)
	}

	stats.Duration = time.Since(startTime)
	s.logger.Info("classification completed",
		"accepted", stats.Accepted,
		"rejected", stats.Rejected,
		"api_failures", stats.APIFailures,
		"duration", stats.Duration,
	)

	return stats, nil
}
