package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PathStat is one delivered path request.
type PathStat struct {
	RequestID      uuid.UUID
	FailReason     string
	Duration       time.Duration
	PathLength     float64
	Points         int
	NodesVisited   int
	NodesProcessed int
	CreatedAt      time.Time
}

// ReasonSummary aggregates path requests sharing a fail reason.
type ReasonSummary struct {
	FailReason   string
	Count        int64
	MeanDuration time.Duration
	MeanLength   float64
}

// PathStatRepository stores path request statistics.
type PathStatRepository struct {
	db *pgxpool.Pool
}

// NewPathStatRepository creates a new PathStatRepository.
func NewPathStatRepository(db *pgxpool.Pool) *PathStatRepository {
	return &PathStatRepository{db: db}
}

// Record inserts a single stat. A zero CreatedAt is stored as now.
func (r *PathStatRepository) Record(ctx context.Context, s PathStat) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO path_stats (request_id, fail_reason, duration_us, path_length,
		                        points, nodes_visited, nodes_processed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, now()))`,
		s.RequestID, s.FailReason, s.Duration.Microseconds(), s.PathLength,
		s.Points, s.NodesVisited, s.NodesProcessed, createdAt(s),
	)
	if err != nil {
		return fmt.Errorf("recording path stat %s: %w", s.RequestID, err)
	}
	return nil
}

// RecordBatch bulk-inserts stats with COPY.
func (r *PathStatRepository) RecordBatch(ctx context.Context, stats []PathStat) error {
	if len(stats) == 0 {
		return nil
	}

	now := time.Now()
	rows := make([][]any, 0, len(stats))
	for _, s := range stats {
		at := s.CreatedAt
		if at.IsZero() {
			at = now
		}
		rows = append(rows, []any{
			s.RequestID, s.FailReason, s.Duration.Microseconds(), s.PathLength,
			s.Points, s.NodesVisited, s.NodesProcessed, at,
		})
	}

	_, err := r.db.CopyFrom(ctx,
		pgx.Identifier{"path_stats"},
		[]string{"request_id", "fail_reason", "duration_us", "path_length",
			"points", "nodes_visited", "nodes_processed", "created_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("copying %d path stats: %w", len(stats), err)
	}
	return nil
}

// Summary groups the stats recorded since the given time by fail reason.
func (r *PathStatRepository) Summary(ctx context.Context, since time.Time) ([]ReasonSummary, error) {
	query := `
		SELECT fail_reason, COUNT(*), AVG(duration_us)::BIGINT, AVG(path_length)
		FROM path_stats
		WHERE created_at >= $1
		GROUP BY fail_reason
		ORDER BY fail_reason
	`

	rows, err := r.db.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("querying path stats since %v: %w", since, err)
	}
	defer rows.Close()

	result := make([]ReasonSummary, 0, 8)
	for rows.Next() {
		var (
			s      ReasonSummary
			meanUs int64
		)
		if err := rows.Scan(&s.FailReason, &s.Count, &meanUs, &s.MeanLength); err != nil {
			return nil, fmt.Errorf("scanning path stat summary: %w", err)
		}
		s.MeanDuration = time.Duration(meanUs) * time.Microsecond
		result = append(result, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating path stat summary: %w", err)
	}

	return result, nil
}

// Prune deletes stats older than before and returns how many were removed.
func (r *PathStatRepository) Prune(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM path_stats WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("pruning path stats before %v: %w", before, err)
	}
	return tag.RowsAffected(), nil
}

func createdAt(s PathStat) *time.Time {
	if s.CreatedAt.IsZero() {
		return nil
	}
	return &s.CreatedAt
}
