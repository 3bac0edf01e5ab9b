package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const defaultListLimit = 50

// ErrNotFound reports a lookup for an unknown episode.
var ErrNotFound = errors.New("store: episode not found")

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB

	insertStmt *sql.Stmt
	getStmt    *sql.Stmt
}

// NewSQLiteStore opens or creates a SQLite store at the given path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("store: empty sqlite path")
	}
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("store: create sqlite dir: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping sqlite: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	st := &SQLiteStore{db: db}
	if err := st.prepareStatements(); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`PRAGMA journal_mode = WAL`,
		`CREATE TABLE IF NOT EXISTS episodes (
			id TEXT PRIMARY KEY,
			question TEXT NOT NULL,
			ground_truth TEXT NOT NULL,
			raw_response TEXT NOT NULL,
			extracted TEXT,
			reward REAL NOT NULL,
			breakdown_json TEXT,
			passed INTEGER NOT NULL,
			details TEXT,
			failure_kind TEXT,
			policy TEXT,
			latency_ms INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_episodes_policy ON episodes(policy)`,
		`CREATE INDEX IF NOT EXISTS idx_episodes_created_at ON episodes(created_at)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("store: init schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) prepareStatements() error {
	insert, err := s.db.Prepare(`INSERT INTO episodes
		(id, question, ground_truth, raw_response, extracted, reward, breakdown_json, passed, details, failure_kind, policy, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare insert: %w", err)
	}
	s.insertStmt = insert

	get, err := s.db.Prepare(`SELECT id, question, ground_truth, raw_response, extracted, reward, breakdown_json, passed, details, failure_kind, policy, latency_ms, created_at
		FROM episodes WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("store: prepare get: %w", err)
	}
	s.getStmt = get
	return nil
}

// SaveEpisode persists one completed episode.
func (s *SQLiteStore) SaveEpisode(ctx context.Context, rec *EpisodeRecord) error {
	if s == nil || s.db == nil {
		return errors.New("store: nil store")
	}
	if rec == nil {
		return errors.New("store: nil episode")
	}
	if strings.TrimSpace(rec.ID) == "" {
		return errors.New("store: episode missing id")
	}

	var breakdown []byte
	if rec.Breakdown != nil {
		b, err := json.Marshal(rec.Breakdown)
		if err != nil {
			return fmt.Errorf("store: marshal breakdown: %w", err)
		}
		breakdown = b
	}

	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	_, err := s.insertStmt.ExecContext(ctx,
		rec.ID,
		rec.Question,
		rec.GroundTruth,
		rec.RawResponse,
		rec.Extracted,
		rec.Reward,
		string(breakdown),
		boolToInt(rec.Passed),
		rec.Details,
		rec.FailureKind,
		rec.Policy,
		rec.LatencyMs,
		created.Unix(),
	)
	if err != nil {
		return fmt.Errorf("store: save episode: %w", err)
	}
	return nil
}

// GetEpisode loads one episode by id.
func (s *SQLiteStore) GetEpisode(ctx context.Context, id string) (*EpisodeRecord, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store: nil store")
	}

	row := s.getStmt.QueryRowContext(ctx, strings.TrimSpace(id))
	rec, err := scanEpisode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return rec, err
}

// ListEpisodes returns episodes newest first.
func (s *SQLiteStore) ListEpisodes(ctx context.Context, filter EpisodeFilter) ([]*EpisodeRecord, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store: nil store")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `SELECT id, question, ground_truth, raw_response, extracted, reward, breakdown_json, passed, details, failure_kind, policy, latency_ms, created_at
		FROM episodes`
	args := make([]any, 0, 2)
	if p := strings.TrimSpace(filter.Policy); p != "" {
		query += ` WHERE policy = ?`
		args = append(args, p)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list episodes: %w", err)
	}
	defer rows.Close()

	var out []*EpisodeRecord
	for rows.Next() {
		rec, err := scanEpisode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list episodes: %w", err)
	}
	return out, nil
}

// Summarize aggregates all stored episodes.
func (s *SQLiteStore) Summarize(ctx context.Context) (*Summary, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store: nil store")
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(passed), 0), COALESCE(AVG(reward), 0) FROM episodes`)

	var sum Summary
	if err := row.Scan(&sum.Episodes, &sum.Passed, &sum.MeanReward); err != nil {
		return nil, fmt.Errorf("store: summarize: %w", err)
	}
	return &sum, nil
}

// Close releases prepared statements and the database handle.
func (s *SQLiteStore) Close() error {
	if s == nil {
		return nil
	}
	if s.insertStmt != nil {
		_ = s.insertStmt.Close()
	}
	if s.getStmt != nil {
		_ = s.getStmt.Close()
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEpisode(row rowScanner) (*EpisodeRecord, error) {
	var rec EpisodeRecord
	var breakdown sql.NullString
	var extracted, details, failureKind, policyName sql.NullString
	var passed int
	var createdAt int64

	err := row.Scan(
		&rec.ID,
		&rec.Question,
		&rec.GroundTruth,
		&rec.RawResponse,
		&extracted,
		&rec.Reward,
		&breakdown,
		&passed,
		&details,
		&failureKind,
		&policyName,
		&rec.LatencyMs,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("store: scan episode: %w", err)
	}

	rec.Extracted = extracted.String
	rec.Details = details.String
	rec.FailureKind = failureKind.String
	rec.Policy = policyName.String
	rec.Passed = passed != 0
	rec.CreatedAt = time.Unix(createdAt, 0)

	if b := strings.TrimSpace(breakdown.String); b != "" {
		if err := json.Unmarshal([]byte(b), &rec.Breakdown); err != nil {
			return nil, fmt.Errorf("store: parse breakdown: %w", err)
		}
	}
	return &rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
