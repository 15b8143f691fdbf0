package server

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"aha_collector/internal/domain"
)

// MomentReader returns the valid published moments and how many were dropped.
type MomentReader interface {
	Moments(ctx context.Context) ([]domain.PublishedMoment, int, error)
}

type Renderer interface {
	Render(w io.Writer, moments []domain.PublishedMoment) error
}

type Handler struct {
	moments  MomentReader
	renderer Renderer
	logger   *slog.Logger
}

func NewHandler(moments MomentReader, renderer Renderer, logger *slog.Logger) *Handler {
	return &Handler{
		moments:  moments,
		renderer: renderer,
		logger:   logger,
	}
}

// Dashboard renders the same document the render command writes to disk.
func (h *Handler) Dashboard(c *gin.Context) {
	moments, _, err := h.moments.Moments(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to read published moments", "error", err)
		c.String(http.StatusInternalServerError, "published moments unavailable")
		return
	}

	var buf bytes.Buffer
	if err := h.renderer.Render(&buf, moments); err != nil {
		h.logger.Error("failed to render dashboard", "error", err)
		c.String(http.StatusInternalServerError, "render failed")
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

type momentsResponse struct {
	Total   int                      `json:"total"`
	Dropped int                      `json:"dropped"`
	Moments []domain.PublishedMoment `json:"moments"`
}

// ListMoments returns published moments as JSON, optionally narrowed by
// ?layer= and ?growth_lever= (case-insensitive).
func (h *Handler) ListMoments(c *gin.Context) {
	var layer domain.Layer
	if q := c.Query("layer"); q != "" {
		l, ok := domain.ParseLayer(q)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown layer " + q})
			return
		}
		layer = l
	}

	var lever domain.GrowthLever
	if q := c.Query("growth_lever"); q != "" {
		g, ok := domain.ParseGrowthLever(q)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown growth_lever " + q})
			return
		}
		lever = g
	}

	moments, dropped, err := h.moments.Moments(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to read published moments", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "published moments unavailable"})
		return
	}

	out := make([]domain.PublishedMoment, 0, len(moments))
	for _, m := range moments {
		if layer != "" && m.Layer != layer {
			continue
		}
		if lever != "" && m.GrowthLever != lever {
			continue
		}
		out = append(out, m)
	}

	c.JSON(http.StatusOK, momentsResponse{
		Total:   len(out),
		Dropped: dropped,
		Moments: out,
	})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
