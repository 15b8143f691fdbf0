package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"aha_collector/internal/domain"
)

// Pipeline runs fetch, classify, publish and render in order. A failing
// stage is recorded and the later stages still run on whatever is stored.
type Pipeline struct {
	fetchers []*FetchService
	classify *ClassifyService
	publish  *PublishService
	render   *RenderService
	logger   *slog.Logger
}

func NewPipeline(
	fetchers []*FetchService,
	classify *ClassifyService,
	publish *PublishService,
	render *RenderService,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		fetchers: fetchers,
		classify: classify,
		publish:  publish,
		render:   render,
		logger:   logger,
	}
}

func (p *Pipeline) Run(ctx context.Context) (*domain.RunStats, error) {
	startTime := time.Now()
	stats := &domain.RunStats{}
	var errs []error

	for _, f := range p.fetchers {
		fs, err := f.Fetch(ctx)
		if fs != nil {
			stats.Fetch = append(stats.Fetch, *fs)
		}
		if err != nil {
			p.logger.Error("fetch failed", "platform", f.Platform(), "error", err)
			errs = append(errs, err)
		}
	}

	if p.classify != nil {
		cs, err := p.classify.Classify(ctx)
		stats.Classify = cs
		if err != nil {
			p.logger.Error("classification failed", "error", err)
			errs = append(errs, fmt.Errorf("classify: %w", err))
		}
	}

	if p.publish != nil {
		ps, err := p.publish.Publish(ctx)
		stats.Publish = ps
		if err != nil {
			p.logger.Error("publish failed", "error", err)
			errs = append(errs, fmt.Errorf("publish: %w", err))
		}
	}

	if p.render != nil {
		rs, err := p.render.Render(ctx)
		stats.Render = rs
		if err != nil {
			p.logger.Error("render failed", "error", err)
			errs = append(errs, fmt.Errorf("render: %w", err))
		}
	}

	stats.Duration = time.Since(startTime)
	p.logger.Info("pipeline run completed",
		"duration", stats.Duration,
		"failed_stages", len(errs),
	)

	return stats, errors.Join(errs...)
}
