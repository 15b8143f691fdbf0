package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"aha_collector/internal/classifier"
	"aha_collector/internal/domain"
	"aha_collector/internal/filter"
	"aha_collector/internal/render"
	"aha_collector/internal/retry"
	"aha_collector/internal/service/mocks"
	"aha_collector/internal/storage"
	"aha_collector/internal/storage/memory"
)

// cannedGenerator answers every prompt with the same completion.
type cannedGenerator struct {
	response string
	err      error
}

func (g *cannedGenerator) Generate(context.Context, string, string) (string, error) {
	return g.response, g.err
}

func (g *cannedGenerator) Model() string { return "canned" }

const wowActivation = `{
  "layer": "Wow",
  "growth_lever": "Activation",
  "realization": "Claude refactored a whole module in one pass",
  "provocation": "What if the first session started with the user's own repo?",
  "quote": "It refactored my whole module.",
  "use_case": "Refactoring"
}`

const missingProvocation = `{
  "layer": "Wow",
  "growth_lever": "Activation",
  "realization": "Claude refactored a whole module in one pass"
}`

type PipelineTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller
	ctx  context.Context

	reddit *mocks.MockSource
	hn     *mocks.MockSource
	stores *storage.Stores
	gen    *cannedGenerator
	output string
	logger *slog.Logger
}

func (s *PipelineTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.ctx = context.Background()
	s.stores = memory.NewStores()
	s.gen = &cannedGenerator{}
	s.output = filepath.Join(s.T().TempDir(), "index.html")
	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	s.reddit = mocks.NewMockSource(s.ctrl)
	s.reddit.EXPECT().Platform().Return(domain.PlatformReddit).AnyTimes()
	s.reddit.EXPECT().Name().Return("Reddit").AnyTimes()

	s.hn = mocks.NewMockSource(s.ctrl)
	s.hn.EXPECT().Platform().Return(domain.PlatformHackerNews).AnyTimes()
	s.hn.EXPECT().Name().Return("Hacker News").AnyTimes()
}

func (s *PipelineTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestPipelineTestSuite(t *testing.T) {
	suite.Run(t, new(PipelineTestSuite))
}

func (s *PipelineTestSuite) newPipeline() *Pipeline {
	matcher, err := filter.NewMatcher(filter.DefaultKeywords, filter.DefaultTools)
	s.Require().NoError(err)

	renderer, err := render.New("Aha-ggregator")
	s.Require().NoError(err)

	cls := classifier.New(s.gen, classifier.Config{Retry: retry.Config{MaxAttempts: 1}}, s.logger)

	fetchers := []*FetchService{
		NewFetchService(s.reddit, s.stores.Raw, s.stores.Cursors, s.stores.Tx, matcher, nil, s.logger, 1),
		NewFetchService(s.hn, s.stores.Raw, s.stores.Cursors, s.stores.Tx, matcher, nil, s.logger, 1),
	}
	return NewPipeline(
		fetchers,
		NewClassifyService(cls, s.stores.Raw, s.stores.Classified, s.logger, true),
		NewPublishService(s.stores.Raw, s.stores.Classified, s.stores.Published, nil, s.logger),
		NewRenderService(s.stores.Published, renderer, s.output, s.logger),
		s.logger,
	)
}

func ahaPost() domain.RawPost {
	post := redditPost("p1", "had an aha moment with Claude today")
	post.Body = "It refactored my whole module."
	return post
}

func (s *PipelineTestSuite) cards() int {
	data, err := os.ReadFile(s.output)
	s.Require().NoError(err)
	return strings.Count(string(data), `<div class="card" `)
}

func (s *PipelineTestSuite) TestRun_AhaPostBecomesCard() {
	s.gen.response = wowActivation
	s.reddit.EXPECT().FetchPage(gomock.Any(), "").Return(&domain.Page{
		Posts: []domain.RawPost{ahaPost()},
		Done:  true,
	}, nil)
	s.hn.EXPECT().FetchPage(gomock.Any(), "").Return(&domain.Page{Done: true}, nil)

	stats, err := s.newPipeline().Run(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, stats.Classify.Accepted)
	s.Equal(1, stats.Publish.Published)
	s.Equal(1, stats.Render.Cards)

	published, _ := s.stores.Published.ReadAll(s.ctx)
	s.Require().Len(published, 1)
	s.Equal(domain.LayerWow, published[0].Layer)
	s.Equal(domain.LeverActivation, published[0].GrowthLever)
	s.Equal("Claude", published[0].AITool)
	s.Equal("reddit:p1", published[0].SourceID)

	raw, _ := s.stores.Raw.ReadAll(s.ctx)
	s.Require().Len(raw, 1)
	s.Equal(domain.PlatformReddit, raw[0].Platform)
	s.Equal("aha moment", raw[0].MatchedKeyword)

	s.Equal(1, s.cards())
}

func (s *PipelineTestSuite) TestRun_RerunLeavesPublishedUnchanged() {
	s.gen.response = wowActivation
	page := &domain.Page{Posts: []domain.RawPost{ahaPost()}, Done: true}
	s.reddit.EXPECT().FetchPage(gomock.Any(), "").Return(page, nil).Times(2)
	s.hn.EXPECT().FetchPage(gomock.Any(), "").Return(&domain.Page{Done: true}, nil).Times(2)

	p := s.newPipeline()
	_, err := p.Run(s.ctx)
	s.Require().NoError(err)
	first, _ := s.stores.Published.ReadAll(s.ctx)

	stats, err := p.Run(s.ctx)
	s.Require().NoError(err)
	s.Equal(0, stats.Classify.Pending)
	s.Equal(0, stats.Publish.Published)

	second, _ := s.stores.Published.ReadAll(s.ctx)
	s.Equal(first, second)
}

func (s *PipelineTestSuite) TestRun_CuratedEntryIsRenderedWithoutSourcePost() {
	s.Require().NoError(s.stores.Published.Append(s.ctx, domain.PublishedMoment{
		ClassifiedMoment: domain.ClassifiedMoment{
			ID:          "hand-1",
			Layer:       domain.LayerHow,
			GrowthLever: domain.LeverRetention,
			Realization: "It kept context across a week of sessions",
			Provocation: "What if the product greeted me with yesterday's thread?",
		},
		Curated: true,
	}))
	s.reddit.EXPECT().FetchPage(gomock.Any(), "").Return(&domain.Page{Done: true}, nil)
	s.hn.EXPECT().FetchPage(gomock.Any(), "").Return(&domain.Page{Done: true}, nil)

	stats, err := s.newPipeline().Run(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, stats.Render.Cards)
	s.Equal(1, s.cards())
}

func (s *PipelineTestSuite) TestRun_RejectedClassificationLeavesDashboardUnchanged() {
	s.gen.response = missingProvocation
	s.reddit.EXPECT().FetchPage(gomock.Any(), "").Return(&domain.Page{
		Posts: []domain.RawPost{ahaPost()},
		Done:  true,
	}, nil)
	s.hn.EXPECT().FetchPage(gomock.Any(), "").Return(&domain.Page{Done: true}, nil)

	stats, err := s.newPipeline().Run(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, stats.Classify.Rejected)
	s.Equal(0, stats.Publish.Published)

	classified, _ := s.stores.Classified.ReadAll(s.ctx)
	s.Require().Len(classified, 1)
	s.Equal("missing_field:provocation", classified[0].RejectionReason)

	published, _ := s.stores.Published.ReadAll(s.ctx)
	s.Empty(published)
	s.Equal(0, s.cards())
}

func (s *PipelineTestSuite) TestRun_SourceFailureDoesNotStopOtherStages() {
	s.gen.response = wowActivation
	s.reddit.EXPECT().FetchPage(gomock.Any(), "").Return(&domain.Page{
		Posts: []domain.RawPost{ahaPost()},
		Done:  true,
	}, nil)
	s.hn.EXPECT().FetchPage(gomock.Any(), "").Return(nil, domain.ErrNetwork)

	stats, err := s.newPipeline().Run(s.ctx)
	s.Error(err)
	s.True(errors.Is(err, domain.ErrNetwork))

	s.Require().Len(stats.Fetch, 2)
	s.False(stats.Fetch[0].Partial)
	s.True(stats.Fetch[1].Partial)
	s.Equal(1, stats.Publish.Published)
	s.Equal(1, s.cards())
}

func (s *PipelineTestSuite) TestRun_APIFailureIsRetriedNextRun() {
	s.gen.err = errors.New("503 service unavailable")
	s.reddit.EXPECT().FetchPage(gomock.Any(), "").Return(&domain.Page{
		Posts: []domain.RawPost{ahaPost()},
		Done:  true,
	}, nil).Times(2)
	s.hn.EXPECT().FetchPage(gomock.Any(), "").Return(&domain.Page{Done: true}, nil).Times(2)

	p := s.newPipeline()
	stats, err := p.Run(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, stats.Classify.APIFailures)

	s.gen.err = nil
	s.gen.response = wowActivation

	stats, err = p.Run(s.ctx)
	s.Require().NoError(err)
	s.Equal(0, stats.Fetch[0].New)
	s.Equal(1, stats.Classify.Accepted)
	s.Equal(1, stats.Publish.Published)

	classified, _ := s.stores.Classified.ReadAll(s.ctx)
	s.Len(classified, 2)
}
