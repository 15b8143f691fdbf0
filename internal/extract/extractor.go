package extract

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"

	"aha_collector/internal/domain"
	"aha_collector/internal/source"
)

const maxPageBytes = 2 << 20

type Config struct {
	Timeout   time.Duration
	UserAgent string
	BodyLimit int
}

// Extractor fetches a linked article and reduces it to its readable text.
type Extractor struct {
	httpClient *http.Client
	userAgent  string
	bodyLimit  int
	logger     *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Extractor {
	return &Extractor{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		userAgent:  cfg.UserAgent,
		bodyLimit:  cfg.BodyLimit,
		logger:     logger,
	}
}

// Extract returns the main text of the page at rawURL, truncated to the body limit.
func (e *Extractor) Extract(ctx context.Context, rawURL string) (string, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil || (pageURL.Scheme != "http" && pageURL.Scheme != "https") {
		return "", fmt.Errorf("unsupported url %q", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: fetch %s: %w", domain.ErrNetwork, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: fetch %s: unexpected status %d", domain.ErrNetwork, rawURL, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
		return "", fmt.Errorf("not an html page: %s", ct)
	}

	article, err := readability.FromReader(io.LimitReader(resp.Body, maxPageBytes), pageURL)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	text := strings.Join(strings.Fields(article.TextContent), " ")
	if text == "" {
		return "", fmt.Errorf("no content extracted from %s", rawURL)
	}

	e.logger.Debug("content extracted",
		"url", rawURL,
		"title", article.Title,
		"content_length", len(text),
	)

	return source.Truncate(text, e.bodyLimit), nil
}
