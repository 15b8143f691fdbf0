package service

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"aha_collector/internal/domain"
	"aha_collector/internal/service/mocks"
	"aha_collector/internal/storage/memory"
)

type ClassifyServiceTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller
	ctx  context.Context

	classifier *mocks.MockClassifier
	raw        *memory.Log[domain.RawPost]
	classified *memory.Log[domain.ClassifiedMoment]
	logger     *slog.Logger
}

func (s *ClassifyServiceTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.ctx = context.Background()
	s.classifier = mocks.NewMockClassifier(s.ctrl)
	s.raw = memory.NewLog[domain.RawPost]()
	s.classified = memory.NewLog[domain.ClassifiedMoment]()
	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func (s *ClassifyServiceTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestClassifyServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ClassifyServiceTestSuite))
}

func accepted(id string, post domain.RawPost) domain.ClassifiedMoment {
	return domain.ClassifiedMoment{
		ID:           id,
		SourceID:     post.Key(),
		Layer:        domain.LayerWow,
		GrowthLever:  domain.LeverActivation,
		Realization:  "It understood the whole repo",
		Provocation:  "What if the first prompt was 'explain my code'?",
		Accepted:     true,
		ClassifiedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func rejected(id string, post domain.RawPost, reason string) domain.ClassifiedMoment {
	return domain.ClassifiedMoment{ID: id, SourceID: post.Key(), RejectionReason: reason}
}

func (s *ClassifyServiceTestSuite) TestClassify_OnlyUnclassifiedPosts() {
	done := redditPost("p1", "aha moment with Claude")
	fresh := redditPost("p2", "Claude finally clicked")
	s.Require().NoError(s.raw.Append(s.ctx, done))
	s.Require().NoError(s.raw.Append(s.ctx, fresh))
	s.Require().NoError(s.classified.Append(s.ctx, accepted("c1", done)))

	s.classifier.EXPECT().Classify(gomock.Any(), fresh).Return(
		rejected("c2", fresh, "missing_field:provocation"),
	)

	stats, err := NewClassifyService(s.classifier, s.raw, s.classified, s.logger, true).Classify(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, stats.Pending)
	s.Equal(1, stats.Rejected)

	all, _ := s.classified.ReadAll(s.ctx)
	s.Require().Len(all, 2)
	s.Equal("missing_field:provocation", all[1].RejectionReason)
	s.False(all[1].Accepted)
}

func (s *ClassifyServiceTestSuite) TestClassify_RetriesAPIFailuresWhenEnabled() {
	post := redditPost("p1", "aha moment with Claude")
	s.Require().NoError(s.raw.Append(s.ctx, post))
	s.Require().NoError(s.classified.Append(s.ctx, rejected("c1", post, domain.ReasonAPIFailure)))

	s.classifier.EXPECT().Classify(gomock.Any(), post).Return(accepted("c2", post))

	stats, err := NewClassifyService(s.classifier, s.raw, s.classified, s.logger, true).Classify(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, stats.Accepted)

	all, _ := s.classified.ReadAll(s.ctx)
	s.Len(all, 2)
}

func (s *ClassifyServiceTestSuite) TestClassify_KeepsAPIFailuresWhenDisabled() {
	post := redditPost("p1", "aha moment with Claude")
	s.Require().NoError(s.raw.Append(s.ctx, post))
	s.Require().NoError(s.classified.Append(s.ctx, rejected("c1", post, domain.ReasonAPIFailure)))

	stats, err := NewClassifyService(s.classifier, s.raw, s.classified, s.logger, false).Classify(s.ctx)
	s.Require().NoError(err)
	s.Equal(0, stats.Pending)
}

func (s *ClassifyServiceTestSuite) TestClassify_PolicyRejectionIsFinal() {
	post := redditPost("p1", "aha moment with Claude")
	s.Require().NoError(s.raw.Append(s.ctx, post))
	s.Require().NoError(s.classified.Append(s.ctx, rejected("c1", post, "invalid_enum:layer")))

	pending, err := NewClassifyService(s.classifier, s.raw, s.classified, s.logger, true).Pending(s.ctx)
	s.Require().NoError(err)
	s.Empty(pending)
}

func (s *ClassifyServiceTestSuite) TestClassify_CountsAPIFailures() {
	post := redditPost("p1", "aha moment with Claude")
	s.Require().NoError(s.raw.Append(s.ctx, post))

	s.classifier.EXPECT().Classify(gomock.Any(), post).Return(rejected("c1", post, domain.ReasonAPIFailure))

	stats, err := NewClassifyService(s.classifier, s.raw, s.classified, s.logger, true).Classify(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, stats.APIFailures)

	ok, _ := s.classified.Contains(s.ctx, "c1")
	s.True(ok)
}

func (s *ClassifyServiceTestSuite) TestClassify_StopsOnCancellation() {
	p1 := redditPost("p1", "aha moment with Claude")
	p2 := redditPost("p2", "Claude finally clicked")
	s.Require().NoError(s.raw.Append(s.ctx, p1))
	s.Require().NoError(s.raw.Append(s.ctx, p2))

	ctx, cancel := context.WithCancel(s.ctx)
	s.classifier.EXPECT().Classify(gomock.Any(), p1).DoAndReturn(
		func(context.Context, domain.RawPost) domain.ClassifiedMoment {
			cancel()
			return rejected("c1", p1, domain.ReasonAPIFailure)
		},
	)

	_, err := NewClassifyService(s.classifier, s.raw, s.classified, s.logger, true).Classify(ctx)
	s.ErrorIs(err, context.Canceled)

	all, _ := s.classified.ReadAll(s.ctx)
	s.Empty(all)
}
