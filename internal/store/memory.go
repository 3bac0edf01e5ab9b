package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and ephemeral runs.
type MemoryStore struct {
	mu       sync.Mutex
	episodes []*EpisodeRecord
	byID     map[string]*EpisodeRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]*EpisodeRecord)}
}

// SaveEpisode appends one completed episode.
func (m *MemoryStore) SaveEpisode(ctx context.Context, rec *EpisodeRecord) error {
	if m == nil {
		return errors.New("store: nil store")
	}
	if rec == nil {
		return errors.New("store: nil episode")
	}
	if strings.TrimSpace(rec.ID) == "" {
		return errors.New("store: episode missing id")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	cp := *rec
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.episodes = append(m.episodes, &cp)
	m.byID[cp.ID] = &cp
	return nil
}

// GetEpisode loads one episode by id.
func (m *MemoryStore) GetEpisode(ctx context.Context, id string) (*EpisodeRecord, error) {
	if m == nil {
		return nil, errors.New("store: nil store")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byID[strings.TrimSpace(id)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	cp := *rec
	return &cp, nil
}

// ListEpisodes returns episodes newest first.
func (m *MemoryStore) ListEpisodes(ctx context.Context, filter EpisodeFilter) ([]*EpisodeRecord, error) {
	if m == nil {
		return nil, errors.New("store: nil store")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	wantPolicy := strings.TrimSpace(filter.Policy)

	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*EpisodeRecord, 0, limit)
	for i := len(m.episodes) - 1; i >= 0 && len(out) < limit; i-- {
		rec := m.episodes[i]
		if wantPolicy != "" && rec.Policy != wantPolicy {
			continue
		}
		cp := *rec
		out = append(out, &cp)
	}
	return out, nil
}

// Summarize aggregates all stored episodes.
func (m *MemoryStore) Summarize(ctx context.Context) (*Summary, error) {
	if m == nil {
		return nil, errors.New("store: nil store")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sum := &Summary{Episodes: len(m.episodes)}
	var total float64
	for _, rec := range m.episodes {
		if rec.Passed {
			sum.Passed++
		}
		total += rec.Reward
	}
	if sum.Episodes > 0 {
		sum.MeanReward = total / float64(sum.Episodes)
	}
	return sum, nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error { return nil }
