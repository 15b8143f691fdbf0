package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"io"

	"aha_collector/internal/domain"
)

type Source interface {
	Platform() domain.Platform
	Name() string
	FetchPage(ctx context.Context, cursor string) (*domain.Page, error)
}

type Extractor interface {
	Extract(ctx context.Context, url string) (string, error)
}

type Classifier interface {
	Classify(ctx context.Context, post domain.RawPost) domain.ClassifiedMoment
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Publisher interface {
	Publish(ctx context.Context, moment *domain.PublishedMoment) error
	Close() error
}

type Renderer interface {
	Render(w io.Writer, moments []domain.PublishedMoment) error
}
