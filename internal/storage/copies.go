package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidCopy is returned when a copy fails write validation.
var ErrInvalidCopy = errors.New("invalid marketing copy")

// sortColumns whitelists the ORDER BY clause per sort key. Unknown keys
// fall back to conversion_rate.
var sortColumns = map[string]string{
	"latest":           "send_date DESC",
	"conversion_rate":  "conversion_rate DESC, ctr DESC",
	"ctr":              "ctr DESC, conversion_rate DESC",
	"impression_count": "impression_count DESC",
	"click_count":      "click_count DESC",
	"conversion_count": "conversion_count DESC",
}

// CopyFilter narrows ListCopies results.
type CopyFilter struct {
	TeamID  int    // 0 = any team
	Channel string // "" = any channel
	SortBy  string // key into sortColumns
	Limit   int
}

// SaveCopy validates and writes a marketing copy in a single transaction,
// returning the assigned copy ID. team_id and a valid channel are
// mandatory; any failure rolls back the write.
func (s *Store) SaveCopy(c MarketingCopy) (int64, error) {
	if c.TeamID <= 0 {
		return 0, fmt.Errorf("%w: team_id is required", ErrInvalidCopy)
	}
	if c.Channel == "" {
		return 0, fmt.Errorf("%w: channel is required", ErrInvalidCopy)
	}
	if !ValidChannel(c.Channel) {
		return 0, fmt.Errorf("%w: channel must be %s or %s, got %q", ErrInvalidCopy, ChannelAppPush, ChannelRCS, c.Channel)
	}

	contentJSON, err := json.Marshal(c.ContentData)
	if err != nil {
		return 0, fmt.Errorf("%w: encoding content_data: %v", ErrInvalidCopy, err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning copy transaction: %w", err)
	}

	res, err := tx.Exec(`
		INSERT INTO marketing_copies
		(team_id, channel, content_data, keywords, target_audience, tone,
		 reference_text, send_date, impression_count, click_count, ctr,
		 conversion_count, conversion_rate, trend_keywords, is_ai_generated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.TeamID, c.Channel, string(contentJSON), c.Keywords, c.TargetAudience,
		c.Tone, c.ReferenceText, c.SendDate, c.ImpressionCount, c.ClickCount,
		c.CTR, c.ConversionCount, c.ConversionRate, c.TrendKeywords, c.IsAIGenerated,
	)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("inserting copy: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("reading copy id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing copy: %w", err)
	}
	return id, nil
}

const copyColumns = `copy_id, team_id, channel, content_data, keywords,
	target_audience, tone, reference_text, send_date, impression_count,
	click_count, ctr, conversion_count, conversion_rate, trend_keywords,
	is_ai_generated, created_at`

// GetCopy returns a single copy by ID.
func (s *Store) GetCopy(id int64) (MarketingCopy, error) {
	row := s.db.QueryRow(`SELECT `+copyColumns+` FROM marketing_copies WHERE copy_id = ?`, id)
	c, err := scanCopy(row)
	if err == sql.ErrNoRows {
		return MarketingCopy{}, ErrNotFound
	}
	return c, err
}

// ListCopies returns copies matching the filter, best performers first
// according to the requested sort key.
func (s *Store) ListCopies(f CopyFilter) ([]MarketingCopy, error) {
	order, ok := sortColumns[f.SortBy]
	if !ok {
		order = sortColumns["conversion_rate"]
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + copyColumns + ` FROM marketing_copies WHERE 1=1`
	var args []any
	if f.TeamID > 0 {
		query += ` AND team_id = ?`
		args = append(args, f.TeamID)
	}
	if f.Channel != "" {
		query += ` AND channel = ?`
		args = append(args, f.Channel)
	}
	query += ` ORDER BY ` + order + ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying copies: %w", err)
	}
	defer rows.Close()

	var results []MarketingCopy
	for rows.Next() {
		c, err := scanCopy(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

// CopiesWithContent returns every copy whose content_data is non-empty,
// in ID order. This is the source scan for a full vector-index rebuild.
func (s *Store) CopiesWithContent() ([]MarketingCopy, error) {
	rows, err := s.db.Query(`SELECT ` + copyColumns + ` FROM marketing_copies
		WHERE content_data IS NOT NULL AND content_data != '' ORDER BY copy_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying copies with content: %w", err)
	}
	defer rows.Close()

	var results []MarketingCopy
	for rows.Next() {
		c, err := scanCopy(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

// CountCopies returns the number of stored copies.
func (s *Store) CountCopies() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM marketing_copies").Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCopy(row rowScanner) (MarketingCopy, error) {
	var c MarketingCopy
	var contentJSON, keywords, targetAudience, tone, referenceText, sendDate, trendKeywords sql.NullString
	var createdAt string
	err := row.Scan(
		&c.CopyID, &c.TeamID, &c.Channel, &contentJSON, &keywords,
		&targetAudience, &tone, &referenceText, &sendDate, &c.ImpressionCount,
		&c.ClickCount, &c.CTR, &c.ConversionCount, &c.ConversionRate,
		&trendKeywords, &c.IsAIGenerated, &createdAt,
	)
	if err != nil {
		return MarketingCopy{}, err
	}

	if contentJSON.String != "" {
		if err := json.Unmarshal([]byte(contentJSON.String), &c.ContentData); err != nil {
			return MarketingCopy{}, fmt.Errorf("decoding content_data for copy %d: %w", c.CopyID, err)
		}
	}
	c.Keywords = keywords.String
	c.TargetAudience = targetAudience.String
	c.Tone = tone.String
	c.ReferenceText = referenceText.String
	c.SendDate = sendDate.String
	c.TrendKeywords = trendKeywords.String

	if t, err := parseStoreTime(createdAt); err == nil {
		c.CreatedAt = t
	}
	return c, nil
}

// parseStoreTime accepts both SQLite's CURRENT_TIMESTAMP format and RFC3339.
func parseStoreTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", s)
}
