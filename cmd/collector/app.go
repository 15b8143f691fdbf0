package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"aha_collector/internal/classifier"
	"aha_collector/internal/config"
	"aha_collector/internal/extract"
	"aha_collector/internal/filter"
	"aha_collector/internal/llm/anthropic"
	"aha_collector/internal/llm/gemini"
	"aha_collector/internal/publisher"
	"aha_collector/internal/render"
	"aha_collector/internal/retry"
	"aha_collector/internal/service"
	"aha_collector/internal/source"
	"aha_collector/internal/source/hackernews"
	"aha_collector/internal/source/reddit"
	"aha_collector/internal/storage"
	"aha_collector/internal/storage/jsonl"
	"aha_collector/internal/storage/sqlstore"
)

// app holds the wired services for one command invocation.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	stores   *storage.Stores
	notifier *publisher.RabbitMQ
	renderer *render.Renderer

	fetchers []*service.FetchService
	classify *service.ClassifyService
	publish  *service.PublishService
	render   *service.RenderService
	pipeline *service.Pipeline
}

// newApp wires every component. The generation client is only built when
// withClassifier is set, so fetch and render run without a credential.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, withClassifier bool) (*app, error) {
	stores, err := openStores(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, stores: stores}

	a.renderer, err = render.New(cfg.Render.Title)
	if err != nil {
		a.Close()
		return nil, err
	}

	matcher, err := filter.NewMatcher(filter.DefaultKeywords, filter.DefaultTools)
	if err != nil {
		a.Close()
		return nil, err
	}

	var extractor service.Extractor
	if cfg.Fetch.ExtractLinkedContent {
		extractor = extract.New(extract.Config{
			Timeout:   cfg.Fetch.ExtractTimeout,
			UserAgent: cfg.HackerNews.UserAgent,
			BodyLimit: cfg.Fetch.BodyLimit,
		}, logger)
	}

	for _, src := range buildSources(cfg, logger) {
		a.fetchers = append(a.fetchers, service.NewFetchService(
			src.source,
			stores.Raw,
			stores.Cursors,
			stores.Tx,
			matcher,
			extractor,
			logger,
			src.maxPages,
		))
	}

	if withClassifier {
		gen, err := newGenerator(ctx, cfg.Classifier)
		if err != nil {
			a.Close()
			return nil, err
		}
		cls := classifier.New(gen, classifier.Config{
			RequestInterval: cfg.Classifier.RequestInterval,
			Retry:           retryConfig(cfg.Classifier.Retry),
		}, logger)
		a.classify = service.NewClassifyService(cls, stores.Raw, stores.Classified, logger, cfg.Classifier.ShouldRetryAPIFailures())
	}

	var notifier service.Publisher
	if cfg.RabbitMQ.Enabled() {
		a.notifier, err = publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		notifier = a.notifier
	}

	a.publish = service.NewPublishService(stores.Raw, stores.Classified, stores.Published, notifier, logger)
	a.render = service.NewRenderService(stores.Published, a.renderer, cfg.Render.OutputPath, logger)
	a.pipeline = service.NewPipeline(a.fetchers, a.classify, a.publish, a.render, logger)

	return a, nil
}

func (a *app) Close() {
	if a.notifier != nil {
		if err := a.notifier.Close(); err != nil {
			a.logger.Warn("failed to close rabbitmq", "error", err)
		}
	}
	if err := a.stores.Close(); err != nil {
		a.logger.Warn("failed to close stores", "error", err)
	}
}

func openStores(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (*storage.Stores, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
		db, err := sqlstore.Open(ctx, sqlstore.DriverSQLite, sqlstore.SQLiteDSN(cfg.SQLitePath))
		if err != nil {
			return nil, err
		}
		stores, err := sqlstore.NewStores(ctx, db, logger)
		if err != nil {
			db.Close()
			return nil, err
		}
		return stores, nil

	case config.BackendPostgres:
		db, err := sqlstore.Open(ctx, sqlstore.DriverPostgres, cfg.Database.DSN())
		if err != nil {
			return nil, err
		}
		stores, err := sqlstore.NewStores(ctx, db, logger)
		if err != nil {
			db.Close()
			return nil, err
		}
		return stores, nil

	default:
		return jsonl.NewStores(cfg.DataDir, logger)
	}
}

type configuredSource struct {
	source   service.Source
	maxPages int
}

func buildSources(cfg *config.Config, logger *slog.Logger) []configuredSource {
	var sources []configuredSource

	if cfg.Reddit.IsEnabled() {
		sources = append(sources, configuredSource{
			source: reddit.New(reddit.Config{
				BaseURL:    cfg.Reddit.BaseURL,
				PageSize:   cfg.Reddit.PageSize,
				BodyLimit:  cfg.Fetch.BodyLimit,
				Queries:    cfg.Reddit.Queries,
				Subreddits: cfg.Reddit.Subreddits,
				Client:     clientConfig(cfg.Reddit),
			}, logger),
			maxPages: cfg.Reddit.MaxPages,
		})
	}

	if cfg.HackerNews.IsEnabled() {
		sources = append(sources, configuredSource{
			source: hackernews.New(hackernews.Config{
				BaseURL:   cfg.HackerNews.BaseURL,
				PageSize:  cfg.HackerNews.PageSize,
				BodyLimit: cfg.Fetch.BodyLimit,
				Queries:   cfg.HackerNews.Queries,
				Client:    clientConfig(cfg.HackerNews),
			}, logger),
			maxPages: cfg.HackerNews.MaxPages,
		})
	}

	return sources
}

func clientConfig(s config.SourceConfig) source.ClientConfig {
	return source.ClientConfig{
		Timeout:         s.Timeout,
		RequestInterval: s.RequestInterval,
		UserAgent:       s.UserAgent,
		Retry:           retryConfig(s.Retry),
	}
}

func retryConfig(r config.RetryConfig) retry.Config {
	return retry.Config{
		MaxAttempts:    r.MaxAttempts,
		InitialBackoff: r.InitialBackoff,
		MaxBackoff:     r.MaxBackoff,
	}
}

func newGenerator(ctx context.Context, cfg config.ClassifierConfig) (classifier.Generator, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return gemini.New(ctx, gemini.Config{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			MaxTokens: cfg.MaxTokens,
			Timeout:   cfg.Timeout,
		})
	default:
		return anthropic.New(anthropic.Config{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			MaxTokens: cfg.MaxTokens,
			Timeout:   cfg.Timeout,
		}), nil
	}
}
