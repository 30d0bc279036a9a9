// Package usage records per-request accounting rows in Postgres. Recording
// is best-effort: entries flow through a bounded channel into a background
// writer and are dropped with a warning when it backs up, so accounting can
// never block or fail a request.
package usage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Entry is one completed dispatch.
type Entry struct {
	Mode      string
	Voice     string
	Chars     int
	CacheHit  bool
	Status    string
	LatencyMs int64
}

// ModeSummary aggregates usage for one mode.
type ModeSummary struct {
	Mode         string  `json:"mode"`
	Requests     int64   `json:"requests"`
	CacheHits    int64   `json:"cache_hits"`
	Chars        int64   `json:"chars"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
}

type Service struct {
	db      *pgxpool.Pool
	entries chan Entry
}

func NewService(db *pgxpool.Pool) *Service {
	s := &Service{
		db:      db,
		entries: make(chan Entry, 1024),
	}
	go s.writeLoop()
	return s
}

// Record queues an entry without blocking.
func (s *Service) Record(e Entry) {
	select {
	case s.entries <- e:
	default:
		slog.Warn("usage queue full, dropping entry", "mode", e.Mode)
	}
}

func (s *Service) writeLoop() {
	for e := range s.entries {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_, err := s.db.Exec(ctx,
			`INSERT INTO tts_usage (mode, voice, chars, cache_hit, status, latency_ms)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			e.Mode, e.Voice, e.Chars, e.CacheHit, e.Status, e.LatencyMs,
		)
		cancel()
		if err != nil {
			slog.Error("failed to record usage", "error", err)
		}
	}
}

// Summary aggregates usage per mode since the given time.
func (s *Service) Summary(ctx context.Context, since time.Time) ([]ModeSummary, error) {
	rows, err := s.db.Query(ctx,
		`SELECT mode,
		        count(*),
		        count(*) FILTER (WHERE cache_hit),
		        coalesce(sum(chars), 0),
		        coalesce(avg(latency_ms), 0)
		 FROM tts_usage
		 WHERE created_at >= $1
		 GROUP BY mode
		 ORDER BY mode`,
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("query usage summary: %w", err)
	}
	defer rows.Close()

	var summaries []ModeSummary
	for rows.Next() {
		var ms ModeSummary
		if err := rows.Scan(&ms.Mode, &ms.Requests, &ms.CacheHits, &ms.Chars, &ms.AvgLatencyMs); err != nil {
			return nil, fmt.Errorf("scan usage summary: %w", err)
		}
		summaries = append(summaries, ms)
	}
	return summaries, rows.Err()
}
