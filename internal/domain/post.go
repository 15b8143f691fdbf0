package domain

import (
	"fmt"
	"time"
)

type Platform string

const (
	PlatformReddit     Platform = "reddit"
	PlatformHackerNews Platform = "hn"
)

func (p Platform) Valid() bool {
	return p == PlatformReddit || p == PlatformHackerNews
}

// Label returns the name shown on dashboard cards.
func (p Platform) Label() string {
	switch p {
	case PlatformReddit:
		return "Reddit"
	case PlatformHackerNews:
		return "Hacker News"
	default:
		return string(p)
	}
}

// RawPost is a fetched post that matched the keyword set. Identity is (Platform, ID).
type RawPost struct {
	Platform       Platform  `json:"platform"`
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Body           string    `json:"body"`
	URL            string    `json:"url"`
	Author         string    `json:"author"`
	Timestamp      time.Time `json:"timestamp"`
	MatchedKeyword string    `json:"matched_keyword"`

	Score         int       `json:"score,omitempty"`
	NumComments   int       `json:"num_comments,omitempty"`
	Community     string    `json:"community,omitempty"` // subreddit for reddit posts
	AITool        string    `json:"ai_tool,omitempty"`
	DiscussionURL string    `json:"discussion_url,omitempty"`
	FetchedAt     time.Time `json:"fetched_at"`
}

func PostKey(platform Platform, id string) string {
	return fmt.Sprintf("%s:%s", platform, id)
}

func (p RawPost) Key() string {
	return PostKey(p.Platform, p.ID)
}

// Page is one batch of posts returned by a source together with the cursor
// that resumes the traversal after it.
type Page struct {
	Posts      []RawPost
	NextCursor string
	Done       bool
}
