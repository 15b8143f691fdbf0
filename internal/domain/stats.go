package domain

import "time"

// FetchStats holds statistics about fetching one platform.
type FetchStats struct {
	Platform   Platform
	Pages      int
	Fetched    int
	Matched    int
	New        int
	Duplicates int
	Partial    bool
	Duration   time.Duration
}

type ClassifyStats struct {
	Pending     int
	Accepted    int
	Rejected    int
	APIFailures int
	Duration    time.Duration
}

type PublishStats struct {
	Candidates int
	Published  int
	Skipped    int
	Notified   int
}

type RenderStats struct {
	Cards   int
	Dropped int
	Path    string
}

// RunStats aggregates one pipeline run.
type RunStats struct {
	Fetch    []FetchStats
	Classify *ClassifyStats
	Publish  *PublishStats
	Render   *RenderStats
	Duration time.Duration
}
