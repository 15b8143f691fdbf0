package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"aha_collector/internal/domain"
	"aha_collector/internal/filter"
	"aha_collector/internal/service/mocks"
	"aha_collector/internal/storage/memory"
)

type FetchServiceTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller
	ctx  context.Context

	source    *mocks.MockSource
	txManager *mocks.MockTransactionManager
	extractor *mocks.MockExtractor
	raw       *memory.Log[domain.RawPost]
	cursors   *memory.CursorStore
	matcher   *filter.Matcher
	logger    *slog.Logger
}

func (s *FetchServiceTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.ctx = context.Background()

	s.source = mocks.NewMockSource(s.ctrl)
	s.txManager = mocks.NewMockTransactionManager(s.ctrl)
	s.extractor = mocks.NewMockExtractor(s.ctrl)
	s.raw = memory.NewLog[domain.RawPost]()
	s.cursors = memory.NewCursorStore()

	matcher, err := filter.NewMatcher(filter.DefaultKeywords, filter.DefaultTools)
	s.Require().NoError(err)
	s.matcher = matcher

	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	s.source.EXPECT().Platform().Return(domain.PlatformReddit).AnyTimes()
	s.source.EXPECT().Name().Return("Reddit").AnyTimes()
	s.txManager.EXPECT().WithTransaction(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		},
	).AnyTimes()
}

func (s *FetchServiceTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestFetchServiceTestSuite(t *testing.T) {
	suite.Run(t, new(FetchServiceTestSuite))
}

func (s *FetchServiceTestSuite) newService(extractor Extractor, maxPages int) *FetchService {
	return NewFetchService(s.source, s.raw, s.cursors, s.txManager, s.matcher, extractor, s.logger, maxPages)
}

func redditPost(id, title string) domain.RawPost {
	return domain.RawPost{
		Platform: domain.PlatformReddit,
		ID:       id,
		Title:    title,
		URL:      "https://reddit.com/r/ClaudeAI/comments/" + id,
	}
}

func (s *FetchServiceTestSuite) TestFetch_StoresMatchingPosts() {
	s.source.EXPECT().FetchPage(gomock.Any(), "").Return(&domain.Page{
		Posts: []domain.RawPost{
			redditPost("p1", "had an aha moment with Claude today"),
			redditPost("p2", "weekly meme thread"),
			redditPost("p3", "mind blown, no AI involved"),
		},
		NextCursor: "0:t3_p3",
	}, nil)
	s.source.EXPECT().FetchPage(gomock.Any(), "0:t3_p3").Return(&domain.Page{
		Posts: []domain.RawPost{redditPost("p4", "ChatGPT was a game changer for my thesis")},
		Done:  true,
	}, nil)

	stats, err := s.newService(nil, 5).Fetch(s.ctx)
	s.Require().NoError(err)

	s.Equal(2, stats.Pages)
	s.Equal(4, stats.Fetched)
	s.Equal(2, stats.Matched)
	s.Equal(2, stats.New)
	s.False(stats.Partial)

	posts, _ := s.raw.ReadAll(s.ctx)
	s.Require().Len(posts, 2)
	s.Equal("p1", posts[0].ID)
	s.Equal(domain.PlatformReddit, posts[0].Platform)
	s.Equal("aha moment", posts[0].MatchedKeyword)
	s.Equal("Claude", posts[0].AITool)
	s.Equal("game changer", posts[1].MatchedKeyword)

	cur, _ := s.cursors.Get(s.ctx, domain.PlatformReddit)
	s.Empty(cur)
}

func (s *FetchServiceTestSuite) TestFetch_DuplicatesAreSkipped() {
	existing := redditPost("p1", "had an aha moment with Claude today")
	existing.MatchedKeyword = "aha moment"
	s.Require().NoError(s.raw.Append(s.ctx, existing))

	s.source.EXPECT().FetchPage(gomock.Any(), "").Return(&domain.Page{
		Posts: []domain.RawPost{
			redditPost("p1", "had an aha moment with Claude today (edited)"),
			redditPost("p2", "Claude finally clicked for me"),
		},
		Done: true,
	}, nil)

	stats, err := s.newService(nil, 2).Fetch(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, stats.New)
	s.Equal(1, stats.Duplicates)

	posts, _ := s.raw.ReadAll(s.ctx)
	s.Require().Len(posts, 2)
	s.Equal("had an aha moment with Claude today", posts[0].Title)
}

func (s *FetchServiceTestSuite) TestFetch_ResumesFromStoredCursor() {
	s.Require().NoError(s.cursors.Save(s.ctx, domain.PlatformReddit, "1:t3_zz"))

	s.source.EXPECT().FetchPage(gomock.Any(), "1:t3_zz").Return(&domain.Page{Done: true}, nil)

	_, err := s.newService(nil, 2).Fetch(s.ctx)
	s.Require().NoError(err)
}

func (s *FetchServiceTestSuite) TestFetch_FailureKeepsEarlierPagesAndCursor() {
	s.source.EXPECT().FetchPage(gomock.Any(), "").Return(&domain.Page{
		Posts:      []domain.RawPost{redditPost("p1", "aha moment with Claude")},
		NextCursor: "0:t3_p1",
	}, nil)
	s.source.EXPECT().FetchPage(gomock.Any(), "0:t3_p1").Return(nil, fmt.Errorf("%w: 503", domain.ErrNetwork))

	stats, err := s.newService(nil, 5).Fetch(s.ctx)
	s.Error(err)
	s.True(errors.Is(err, domain.ErrNetwork))
	s.True(stats.Partial)
	s.Equal(1, stats.New)

	ok, _ := s.raw.Contains(s.ctx, "reddit:p1")
	s.True(ok)

	cur, _ := s.cursors.Get(s.ctx, domain.PlatformReddit)
	s.Equal("0:t3_p1", cur)
}

func (s *FetchServiceTestSuite) TestFetch_PageBudgetResetsCursor() {
	s.source.EXPECT().FetchPage(gomock.Any(), "").Return(&domain.Page{NextCursor: "0:a"}, nil)
	s.source.EXPECT().FetchPage(gomock.Any(), "0:a").Return(&domain.Page{NextCursor: "0:b"}, nil)

	stats, err := s.newService(nil, 2).Fetch(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, stats.Pages)

	cur, _ := s.cursors.Get(s.ctx, domain.PlatformReddit)
	s.Empty(cur)
}

func (s *FetchServiceTestSuite) TestFetch_TransactionFailureIsPartial() {
	txManager := mocks.NewMockTransactionManager(s.ctrl)
	txManager.EXPECT().WithTransaction(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))

	s.source.EXPECT().FetchPage(gomock.Any(), "").Return(&domain.Page{
		Posts: []domain.RawPost{redditPost("p1", "aha moment with Claude")},
		Done:  true,
	}, nil)

	svc := NewFetchService(s.source, s.raw, s.cursors, txManager, s.matcher, nil, s.logger, 2)
	stats, err := svc.Fetch(s.ctx)
	s.Error(err)
	s.True(stats.Partial)
	s.Equal(0, stats.New)
}

func (s *FetchServiceTestSuite) TestFetch_ExtractsLinkedContentForEmptyBodies() {
	link := domain.RawPost{
		Platform:      domain.PlatformReddit,
		ID:            "l1",
		Title:         "LLM changed everything about how I read papers",
		URL:           "https://blog.example.com/papers",
		DiscussionURL: "https://reddit.com/r/x/comments/l1",
	}
	self := redditPost("s1", "Copilot was a lightbulb moment")
	self.Body = "already has text"

	s.source.EXPECT().FetchPage(gomock.Any(), "").Return(&domain.Page{
		Posts: []domain.RawPost{link, self},
		Done:  true,
	}, nil)
	s.extractor.EXPECT().Extract(gomock.Any(), "https://blog.example.com/papers").Return("full article text", nil)

	_, err := s.newService(s.extractor, 1).Fetch(s.ctx)
	s.Require().NoError(err)

	posts, _ := s.raw.ReadAll(s.ctx)
	s.Require().Len(posts, 2)
	s.Equal("full article text", posts[0].Body)
	s.Equal("already has text", posts[1].Body)
}

func (s *FetchServiceTestSuite) TestFetch_ExtractionFailureIsIgnored() {
	link := domain.RawPost{
		Platform: domain.PlatformReddit,
		ID:       "l1",
		Title:    "ChatGPT blew my mind",
		URL:      "https://blog.example.com/post",
	}
	s.source.EXPECT().FetchPage(gomock.Any(), "").Return(&domain.Page{Posts: []domain.RawPost{link}, Done: true}, nil)
	s.extractor.EXPECT().Extract(gomock.Any(), link.URL).Return("", errors.New("timeout"))

	stats, err := s.newService(s.extractor, 1).Fetch(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, stats.New)
}
