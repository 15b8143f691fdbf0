package classifier

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"aha_collector/internal/domain"
	"aha_collector/internal/llm"
	"aha_collector/internal/retry"
)

// Generator is a text-generation backend.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
	Model() string
}

type Config struct {
	RequestInterval time.Duration
	Retry           retry.Config
}

// Classifier turns raw posts into classification records.
type Classifier struct {
	gen     Generator
	retry   retry.Config
	limiter *rate.Limiter
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string
}

func New(gen Generator, cfg Config, logger *slog.Logger) *Classifier {
	limit := rate.Inf
	if cfg.RequestInterval > 0 {
		limit = rate.Every(cfg.RequestInterval)
	}
	return &Classifier{
		gen:     gen,
		retry:   cfg.Retry,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger.With("model", gen.Model()),
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Classify always returns a record. Retryable API errors are retried with
// backoff; when they persist the record is rejected as api_failure. A reply
// without a usable completion is rejected as malformed_response.
func (c *Classifier) Classify(ctx context.Context, post domain.RawPost) domain.ClassifiedMoment {
	system, prompt := BuildPrompt(post)

	var response string
	err := retry.Do(ctx, c.retry, c.logger, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return retry.Permanent(err)
		}
		out, err := c.gen.Generate(ctx, system, prompt)
		if err != nil {
			if !llm.IsRetryable(err) {
				return retry.Permanent(err)
			}
			return err
		}
		response = out
		return nil
	})

	moment := domain.ClassifiedMoment{
		ID:            c.newID(),
		SourceID:      post.Key(),
		PromptVersion: PromptVersion,
		Model:         c.gen.Model(),
		ClassifiedAt:  c.now().UTC(),
	}

	if errors.Is(err, llm.ErrMalformedResponse) {
		c.logger.Info("classification rejected",
			"source_id", moment.SourceID,
			"reason", domain.ReasonMalformedResponse,
			"error", err,
		)
		moment.RejectionReason = domain.ReasonMalformedResponse
		return moment
	}
	if err != nil {
		c.logger.Error("classification call failed",
			"source_id", moment.SourceID,
			"error", err,
		)
		moment.RejectionReason = domain.ReasonAPIFailure
		return moment
	}

	v := Evaluate(response)
	if !v.Accepted {
		c.logger.Info("classification rejected",
			"source_id", moment.SourceID,
			"reason", v.Reason,
		)
		moment.RejectionReason = v.Reason
		return moment
	}

	moment.Accepted = true
	moment.Layer = v.Layer
	moment.GrowthLever = v.GrowthLever
	moment.Realization = v.Realization
	moment.Provocation = v.Provocation
	moment.Quote = v.Quote
	moment.UseCase = v.UseCase
	return moment
}
