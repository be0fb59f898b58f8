package storage

import (
	"database/sql"
	"errors"
	"fmt"
)

// ErrInvalidTrend is returned when a trend record fails write validation.
var ErrInvalidTrend = errors.New("invalid trend record")

// UpsertTrend archives a trend keyword. A keyword already collected today
// has its mention count and score refreshed instead of gaining a second
// row, so re-archiving the same snapshot stays idempotent within a day.
// Returns true when a new row was created.
func (s *Store) UpsertTrend(t TrendRecord) (bool, error) {
	if t.Keyword == "" {
		return false, fmt.Errorf("%w: keyword is required", ErrInvalidTrend)
	}
	if t.Category == "" {
		t.Category = "general"
	}
	if t.Source == "" {
		t.Source = "manual"
	}

	tx, err := s.db.Begin()
	if err != nil {
		return false, fmt.Errorf("beginning trend transaction: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRow(`SELECT id FROM trends WHERE keyword = ? AND DATE(collected_at) = DATE('now')`, t.Keyword).Scan(&id)
	switch {
	case err == sql.ErrNoRows:
		_, err = tx.Exec(`
			INSERT INTO trends (keyword, category, mention_count, trend_score, source, is_valid)
			VALUES (?, ?, ?, ?, ?, 1)`,
			t.Keyword, t.Category, t.MentionCount, t.TrendScore, t.Source,
		)
		if err != nil {
			return false, fmt.Errorf("inserting trend %q: %w", t.Keyword, err)
		}
		return true, tx.Commit()
	case err != nil:
		return false, fmt.Errorf("looking up trend %q: %w", t.Keyword, err)
	default:
		_, err = tx.Exec(`
			UPDATE trends SET mention_count = ?, trend_score = ?, category = ?, source = ?, collected_at = CURRENT_TIMESTAMP
			WHERE id = ?`,
			t.MentionCount, t.TrendScore, t.Category, t.Source, id,
		)
		if err != nil {
			return false, fmt.Errorf("updating trend %q: %w", t.Keyword, err)
		}
		return false, tx.Commit()
	}
}

// RecentTrends returns the freshest valid trend keywords, newest first and
// highest-scoring first within the same collection time.
func (s *Store) RecentTrends(limit int) ([]TrendRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(`
		SELECT id, keyword, category, mention_count, trend_score, source, collected_at, is_valid
		FROM trends
		WHERE is_valid = 1
		ORDER BY collected_at DESC, trend_score DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying trends: %w", err)
	}
	defer rows.Close()

	var results []TrendRecord
	for rows.Next() {
		var t TrendRecord
		var collectedAt string
		if err := rows.Scan(&t.ID, &t.Keyword, &t.Category, &t.MentionCount, &t.TrendScore, &t.Source, &collectedAt, &t.IsValid); err != nil {
			return nil, err
		}
		if ts, err := parseStoreTime(collectedAt); err == nil {
			t.CollectedAt = ts
		}
		results = append(results, t)
	}
	return results, rows.Err()
}

// InvalidateTrend marks a keyword's rows stale so RecentTrends skips them.
func (s *Store) InvalidateTrend(keyword string) error {
	res, err := s.db.Exec(`UPDATE trends SET is_valid = 0 WHERE keyword = ?`, keyword)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
