package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Delivery channels. Channel determines which ContentData fields apply.
const (
	ChannelAppPush = "APP_PUSH"
	ChannelRCS     = "RCS"
)

// ValidChannel reports whether c is a known delivery channel.
func ValidChannel(c string) bool {
	return c == ChannelAppPush || c == ChannelRCS
}

// ContentData is the channel-specific payload of a marketing copy.
// APP_PUSH uses Title+Message, RCS uses Button+Message.
type ContentData struct {
	Title   string `json:"title,omitempty"`
	Message string `json:"message,omitempty"`
	Button  string `json:"button,omitempty"`
}

// MarketingCopy is one persisted piece of marketing content with its
// delivery performance metrics. CTR and ConversionRate are stored as
// ratios in [0,1], never percentages.
type MarketingCopy struct {
	CopyID          int64       `json:"copy_id"`
	TeamID          int         `json:"team_id"`
	Channel         string      `json:"channel"`
	ContentData     ContentData `json:"content_data"`
	Keywords        string      `json:"keywords,omitempty"`
	TargetAudience  string      `json:"target_audience,omitempty"`
	Tone            string      `json:"tone,omitempty"`
	ReferenceText   string      `json:"reference_text,omitempty"`
	SendDate        string      `json:"send_date,omitempty"`
	ImpressionCount int         `json:"impression_count"`
	ClickCount      int         `json:"click_count"`
	CTR             float64     `json:"ctr"`
	ConversionCount int         `json:"conversion_count"`
	ConversionRate  float64     `json:"conversion_rate"`
	TrendKeywords   string      `json:"trend_keywords,omitempty"`
	IsAIGenerated   bool        `json:"is_ai_generated"`
	CreatedAt       time.Time   `json:"created_at"`
}

// HeadText returns the short lead text of the copy: the title for
// APP_PUSH, the button label for RCS.
func (c MarketingCopy) HeadText() string {
	if c.Channel == ChannelRCS {
		return c.ContentData.Button
	}
	return c.ContentData.Title
}

// BodyText returns the message body of the copy.
func (c MarketingCopy) BodyText() string {
	return c.ContentData.Message
}

// TrendRecord is one keyword observed as trending on a given day.
// At most one row exists per (keyword, calendar day of CollectedAt).
type TrendRecord struct {
	ID           int64     `json:"id,omitempty"`
	Keyword      string    `json:"keyword"`
	Category     string    `json:"category,omitempty"`
	MentionCount int       `json:"mention_count"`
	TrendScore   float64   `json:"trend_score"`
	Source       string    `json:"source,omitempty"`
	CollectedAt  time.Time `json:"collected_at,omitempty"`
	IsValid      bool      `json:"is_valid"`
}

// Job is a queued background task, currently only copy indexing.
type Job struct {
	ID          string
	Type        string
	PayloadJSON string
	Status      string // "pending", "running", "completed", "failed"
	Attempts    int
	MaxAttempts int
	RunAfter    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastError   string
}
