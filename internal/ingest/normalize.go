// Package ingest normalizes externally sourced copy rows and writes them in
// best-effort batches. Normalization owns every boundary quirk: percentage
// metrics, legacy field names, loose date formats, and team names instead of
// IDs. Rows reaching storage are already in canonical shape.
package ingest

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/adcraft-io/copygen/internal/storage"
	"github.com/adcraft-io/copygen/internal/teams"
)

const defaultRCSButton = "자세히 보기"

// Ratio is a rate field that accepts either a JSON number or a formatted
// string such as "12.5%", "0.08", or "1,234". The value is kept as parsed;
// percentage-to-ratio conversion happens in Normalize.
type Ratio float64

func (r *Ratio) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = Ratio(parseRatioString(s))
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*r = Ratio(f)
	return nil
}

// Record is one raw ingestion row before normalization. Legacy sources name
// the RCS fields content/button_name and may identify the team by name only.
type Record struct {
	TeamID          int    `json:"team_id,omitempty"`
	TeamName        string `json:"team_name,omitempty"`
	Channel         string `json:"channel"`
	Title           string `json:"title,omitempty"`
	Message         string `json:"message,omitempty"`
	Button          string `json:"button,omitempty"`
	Content         string `json:"content,omitempty"`
	ButtonName      string `json:"button_name,omitempty"`
	Keywords        string `json:"keywords,omitempty"`
	TargetAudience  string `json:"target_audience,omitempty"`
	Tone            string `json:"tone,omitempty"`
	ReferenceText   string `json:"reference_text,omitempty"`
	SendDate        string `json:"send_date,omitempty"`
	ImpressionCount int    `json:"impression_count,omitempty"`
	ClickCount      int    `json:"click_count,omitempty"`
	CTR             Ratio  `json:"ctr,omitempty"`
	ConversionCount int    `json:"conversion_count,omitempty"`
	ConversionRate  Ratio  `json:"conversion_rate,omitempty"`
	TrendKeywords   string `json:"trend_keywords,omitempty"`
}

// Normalize converts a raw row into a canonical MarketingCopy. It resolves
// the team against the given table, validates the channel, maps legacy
// content fields, converts percentage metrics to ratios, and normalizes the
// send date to YYYY-MM-DD.
func Normalize(rec Record, table *teams.Table) (storage.MarketingCopy, error) {
	channel := strings.ToUpper(strings.TrimSpace(rec.Channel))
	if !storage.ValidChannel(channel) {
		return storage.MarketingCopy{}, fmt.Errorf("%w: unknown channel %q", storage.ErrInvalidCopy, rec.Channel)
	}

	teamID := rec.TeamID
	if teamID <= 0 && rec.TeamName != "" {
		id, ok := table.Lookup(rec.TeamName)
		if !ok {
			return storage.MarketingCopy{}, fmt.Errorf("%w: unknown team %q", storage.ErrInvalidCopy, rec.TeamName)
		}
		teamID = id
	}
	if teamID <= 0 {
		return storage.MarketingCopy{}, fmt.Errorf("%w: team_id or team_name is required", storage.ErrInvalidCopy)
	}

	message := firstNonEmpty(rec.Message, rec.Content)
	content := storage.ContentData{Message: message}
	switch channel {
	case storage.ChannelAppPush:
		content.Title = strings.TrimSpace(rec.Title)
	case storage.ChannelRCS:
		content.Button = firstNonEmpty(rec.Button, rec.ButtonName)
		if content.Button == "" {
			content.Button = defaultRCSButton
		}
	}

	return storage.MarketingCopy{
		TeamID:          teamID,
		Channel:         channel,
		ContentData:     content,
		Keywords:        strings.TrimSpace(rec.Keywords),
		TargetAudience:  strings.TrimSpace(rec.TargetAudience),
		Tone:            strings.TrimSpace(rec.Tone),
		ReferenceText:   rec.ReferenceText,
		SendDate:        NormalizeSendDate(rec.SendDate),
		ImpressionCount: clampCount(rec.ImpressionCount),
		ClickCount:      clampCount(rec.ClickCount),
		CTR:             ratioValue(float64(rec.CTR)),
		ConversionCount: clampCount(rec.ConversionCount),
		ConversionRate:  ratioValue(float64(rec.ConversionRate)),
		TrendKeywords:   strings.TrimSpace(rec.TrendKeywords),
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func clampCount(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// ratioValue converts a rate to the canonical [0,1] ratio. Source sheets mix
// percentages and ratios in the same column, so any value above 1 is read as
// a percentage.
func ratioValue(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return v / 100
	}
	return v
}

// parseRatioString parses a formatted rate string. A trailing percent sign
// forces percentage interpretation even for values at or below 1.
func parseRatioString(s string) float64 {
	t := strings.TrimSpace(s)
	if t == "" {
		return 0
	}
	percent := strings.HasSuffix(t, "%")
	t = strings.ReplaceAll(strings.TrimSuffix(t, "%"), ",", "")
	num, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
	if err != nil {
		return 0
	}
	if percent {
		return num / 100
	}
	return num
}

// parseCount parses an integer that may carry thousands separators or be
// written as a float. Unparseable cells count as zero rather than failing
// the row.
func parseCount(s string) int {
	t := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if t == "" {
		return 0
	}
	f, err := strconv.ParseFloat(t, 64)
	if err != nil || f < 0 {
		return 0
	}
	return int(f)
}

var (
	compactDateRe = regexp.MustCompile(`^\d{8}$`)
	fullDateRe    = regexp.MustCompile(`(\d{2,4})[.\-/](\d{1,2})[.\-/](\d{1,2})`)
	monthDayRe    = regexp.MustCompile(`(\d{1,2})[.\-/](\d{1,2})`)
)

// NormalizeSendDate converts the date formats seen across source sheets
// ("20250801", "25.08.01", "2025-08-01", "8/1(금)") to YYYY-MM-DD. Two-digit
// years are read as 20YY; a month/day without a year gets year 0000. Returns
// "" when nothing date-like is found.
func NormalizeSendDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if compactDateRe.MatchString(s) {
		return s[:4] + "-" + s[4:6] + "-" + s[6:8]
	}
	if m := fullDateRe.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if year < 100 {
			year += 2000
		}
		return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
	}
	if m := monthDayRe.FindStringSubmatch(s); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		return fmt.Sprintf("0000-%02d-%02d", month, day)
	}
	return ""
}
