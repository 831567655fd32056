package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// GenerationMetric records metadata for a single plan generation.
type GenerationMetric struct {
	Policy    string
	Language  string
	Locked    int
	Sentinels int
	Latency   time.Duration
	Timestamp time.Time
}

// Recorder accepts generation metrics.
type Recorder interface {
	Record(ctx context.Context, m GenerationMetric) error
}

// Store handles persistence of metrics to SQLite.
type Store struct {
	db *sql.DB
}

// NewStore initializes the Store with an existing database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Record saves a metric to the database.
func (s *Store) Record(ctx context.Context, m GenerationMetric) error {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO generation_metrics (policy, language, locked, sentinels, latency_us, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		m.Policy, m.Language, m.Locked, m.Sentinels, m.Latency.Microseconds(), ts.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert generation metric: %w", err)
	}
	return nil
}

// DailyUsage represents generation totals for a single day.
type DailyUsage struct {
	Date          string  `json:"date"`
	Generations   int     `json:"generations"`
	LockedSlots   int     `json:"lockedSlots"`
	Placeholders  int     `json:"placeholders"`
	AvgLatencyMS  float64 `json:"avgLatencyMs"`
	WeightedShare float64 `json:"weightedShare"`
}

// GetDailyUsage retrieves usage for the last N days, newest first.
func (s *Store) GetDailyUsage(ctx context.Context, days int) ([]DailyUsage, error) {
	since := time.Now().UTC().AddDate(0, 0, -days).Format(time.RFC3339)
	rows, err := s.db.QueryContext(ctx, `
		SELECT date(timestamp) AS day,
		       COUNT(*),
		       COALESCE(SUM(locked), 0),
		       COALESCE(SUM(sentinels), 0),
		       COALESCE(AVG(latency_us), 0),
		       COALESCE(SUM(CASE WHEN policy = 'weighted' THEN 1 ELSE 0 END), 0)
		FROM generation_metrics
		WHERE timestamp >= ?
		GROUP BY day
		ORDER BY day DESC`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily usage: %w", err)
	}
	defer rows.Close()

	var results []DailyUsage
	for rows.Next() {
		var (
			u        DailyUsage
			day      sql.NullString
			avgUS    float64
			weighted int
		)
		if err := rows.Scan(&day, &u.Generations, &u.LockedSlots, &u.Placeholders, &avgUS, &weighted); err != nil {
			return nil, fmt.Errorf("failed to scan daily usage: %w", err)
		}
		u.Date = "Unknown"
		if day.Valid {
			u.Date = day.String
		}
		u.AvgLatencyMS = avgUS / 1000
		if u.Generations > 0 {
			u.WeightedShare = float64(weighted) / float64(u.Generations)
		}
		results = append(results, u)
	}
	return results, rows.Err()
}

// Cleanup removes records older than the specified number of days.
func (s *Store) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	threshold := time.Now().UTC().AddDate(0, 0, -olderThanDays).Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx, `DELETE FROM generation_metrics WHERE timestamp < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up generation metrics: %w", err)
	}
	return res.RowsAffected()
}
