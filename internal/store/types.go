package store

import (
	"context"
	"time"
)

// EpisodeRecord is the persisted audit trail of one completed episode:
// everything needed to explain a reward after the fact.
type EpisodeRecord struct {
	ID          string
	Question    string
	GroundTruth string
	RawResponse string
	Extracted   string
	Reward      float64
	Breakdown   map[string]float64
	Passed      bool
	Details     string
	FailureKind string
	Policy      string
	LatencyMs   int64
	CreatedAt   time.Time
}

// EpisodeFilter narrows episode listings.
type EpisodeFilter struct {
	Policy string
	Limit  int
}

// Summary aggregates stored episodes.
type Summary struct {
	Episodes   int
	Passed     int
	MeanReward float64
}

// Store persists completed episodes for audit and history queries.
type Store interface {
	SaveEpisode(ctx context.Context, rec *EpisodeRecord) error
	GetEpisode(ctx context.Context, id string) (*EpisodeRecord, error)
	ListEpisodes(ctx context.Context, filter EpisodeFilter) ([]*EpisodeRecord, error)
	Summarize(ctx context.Context) (*Summary, error)
	Close() error
}
