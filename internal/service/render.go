package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"aha_collector/internal/domain"
	"aha_collector/internal/storage"
)

type RenderService struct {
	published  storage.Log[domain.PublishedMoment]
	renderer   Renderer
	outputPath string
	logger     *slog.Logger
}

func NewRenderService(
	published storage.Log[domain.PublishedMoment],
	renderer Renderer,
	outputPath string,
	logger *slog.Logger,
) *RenderService {
	return &RenderService{
		published:  published,
		renderer:   renderer,
		outputPath: outputPath,
		logger:     logger.With("stage", "render"),
	}
}

// Moments reads the published log and drops entries that break the
// published invariant, such as hand-written curated lines with a bad layer.
// Layer and growth lever come back in their canonical spelling.
func (s *RenderService) Moments(ctx context.Context) ([]domain.PublishedMoment, int, error) {
	all, err := s.published.ReadAll(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("read published moments: %w", err)
	}

	valid := make([]domain.PublishedMoment, 0, len(all))
	dropped := 0
	for _, m := range all {
		if err := m.Validate(); err != nil {
			dropped++
			s.logger.Warn("dropping invalid published moment", "key", m.Key(), "error", err)
			continue
		}
		// Hand-written entries may spell the enums in any case.
		m.Layer, _ = domain.ParseLayer(string(m.Layer))
		m.GrowthLever, _ = domain.ParseGrowthLever(string(m.GrowthLever))
		valid = append(valid, m)
	}
	return valid, dropped, nil
}

// Render regenerates the dashboard file. The previous file stays in place
// until the new one is complete.
func (s *RenderService) Render(ctx context.Context) (*domain.RenderStats, error) {
	moments, dropped, err := s.Moments(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.write(moments); err != nil {
		return nil, err
	}

	stats := &domain.RenderStats{
		Cards:   len(moments),
		Dropped: dropped,
		Path:    s.outputPath,
	}
	s.logger.Info("dashboard rendered", "cards", stats.Cards, "dropped", stats.Dropped, "path", stats.Path)
	return stats, nil
}

func (s *RenderService) write(moments []domain.PublishedMoment) error {
	dir := filepath.Dir(s.outputPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".render-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := s.renderer.Render(tmp, moments); err != nil {
		tmp.Close()
		return fmt.Errorf("render dashboard: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync dashboard: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}

	if err := os.Rename(tmp.Name(), s.outputPath); err != nil {
		return fmt.Errorf("replace %s: %w", s.outputPath, err)
	}
	return nil
}
