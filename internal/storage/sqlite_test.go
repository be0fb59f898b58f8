package storage

import (
	"errors"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestMigrationsIdempotent runs Open twice on the same database and verifies
// the schema_version count stays correct (migration not re-applied).
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}

	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}

	if len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
}

// TestMigrationsOrdered verifies migrations are applied in ascending numeric order.
func TestMigrationsOrdered(t *testing.T) {
	s := openTestStore(t)

	versions, err := s.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}

	if len(versions) == 0 {
		t.Fatal("expected at least one applied migration")
	}

	for i := 1; i < len(versions); i++ {
		if versions[i] <= versions[i-1] {
			t.Errorf("migrations not in ascending order: %v", versions)
			break
		}
	}
}

// TestIndexesExist verifies the migration creates the expected indexes.
func TestIndexesExist(t *testing.T) {
	s := openTestStore(t)

	indexes := []string{
		"idx_marketing_copies_team", "idx_marketing_copies_channel",
		"idx_trends_keyword", "idx_trends_collected",
		"idx_phrase_vectors_copy", "idx_jobs_status",
	}
	for _, idx := range indexes {
		var count int
		err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?", idx).Scan(&count)
		if err != nil {
			t.Fatalf("querying sqlite_master for %q: %v", idx, err)
		}
		if count != 1 {
			t.Errorf("index %q not found in sqlite_master", idx)
		}
	}
}

// TestPhraseVectorsTableExists verifies the phrase_vectors table supports a round-trip.
func TestPhraseVectorsTableExists(t *testing.T) {
	s := openTestStore(t)

	_, err := s.db.Exec(`INSERT INTO phrase_vectors (id, copy_id, team_id, channel, embedding, title, message)
		VALUES ('v1', 1, 7, 'RCS', X'00000000', '가을 세일', '본문입니다')`)
	if err != nil {
		t.Fatalf("INSERT into phrase_vectors: %v", err)
	}

	var id, channel, title string
	var copyID, teamID int
	err = s.db.QueryRow(`SELECT id, copy_id, team_id, channel, title FROM phrase_vectors WHERE id = 'v1'`).
		Scan(&id, &copyID, &teamID, &channel, &title)
	if err != nil {
		t.Fatalf("SELECT from phrase_vectors: %v", err)
	}
	if id != "v1" || copyID != 1 || teamID != 7 || channel != "RCS" || title != "가을 세일" {
		t.Errorf("round-trip mismatch: got id=%q copy_id=%d team_id=%d channel=%q title=%q", id, copyID, teamID, channel, title)
	}
}

// TestSaveAndGetCopy saves a marketing copy and retrieves it by ID.
func TestSaveAndGetCopy(t *testing.T) {
	s := openTestStore(t)

	want := MarketingCopy{
		TeamID:  7,
		Channel: ChannelRCS,
		ContentData: ContentData{
			Title:   "",
			Message: "(광고)[브랜드] 가을 신상 최대 50% 할인",
			Button:  "혜택 확인하기",
		},
		Keywords:        "가을,세일",
		TargetAudience:  "20-30대 여성",
		Tone:            "친근한",
		SendDate:        "2025-09-15",
		ImpressionCount: 10000,
		ClickCount:      150,
		CTR:             0.015,
		ConversionCount: 30,
		ConversionRate:  0.003,
		TrendKeywords:   "가을코디",
		IsAIGenerated:   true,
	}

	id, err := s.SaveCopy(want)
	if err != nil {
		t.Fatalf("SaveCopy: %v", err)
	}
	if id <= 0 {
		t.Fatalf("SaveCopy returned id %d, want > 0", id)
	}

	got, err := s.GetCopy(id)
	if err != nil {
		t.Fatalf("GetCopy: %v", err)
	}

	if got.TeamID != want.TeamID {
		t.Errorf("TeamID = %d, want %d", got.TeamID, want.TeamID)
	}
	if got.Channel != want.Channel {
		t.Errorf("Channel = %q, want %q", got.Channel, want.Channel)
	}
	if got.ContentData != want.ContentData {
		t.Errorf("ContentData = %+v, want %+v", got.ContentData, want.ContentData)
	}
	if got.CTR != want.CTR {
		t.Errorf("CTR = %v, want %v", got.CTR, want.CTR)
	}
	if got.ConversionRate != want.ConversionRate {
		t.Errorf("ConversionRate = %v, want %v", got.ConversionRate, want.ConversionRate)
	}
	if !got.IsAIGenerated {
		t.Error("IsAIGenerated = false, want true")
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt is zero, want populated")
	}
}

// TestSaveCopyValidation rejects writes missing team or carrying an unknown channel.
func TestSaveCopyValidation(t *testing.T) {
	s := openTestStore(t)

	cases := []struct {
		name string
		copy MarketingCopy
	}{
		{"missing team", MarketingCopy{Channel: ChannelAppPush}},
		{"missing channel", MarketingCopy{TeamID: 1}},
		{"unknown channel", MarketingCopy{TeamID: 1, Channel: "SMS"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.SaveCopy(tc.copy)
			if !errors.Is(err, ErrInvalidCopy) {
				t.Errorf("SaveCopy error = %v, want ErrInvalidCopy", err)
			}
		})
	}

	count, err := s.CountCopies()
	if err != nil {
		t.Fatalf("CountCopies: %v", err)
	}
	if count != 0 {
		t.Errorf("CountCopies = %d after rejected writes, want 0", count)
	}
}

// TestGetCopyNotFound verifies a missing ID returns ErrNotFound.
func TestGetCopyNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetCopy(999)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

// TestListCopiesFilterAndSort seeds copies across teams and channels and
// checks filtering plus the conversion-rate default ordering.
func TestListCopiesFilterAndSort(t *testing.T) {
	s := openTestStore(t)

	seed := []MarketingCopy{
		{TeamID: 1, Channel: ChannelRCS, ContentData: ContentData{Message: "a"}, CTR: 0.010, ConversionRate: 0.001, SendDate: "2025-01-01"},
		{TeamID: 1, Channel: ChannelRCS, ContentData: ContentData{Message: "b"}, CTR: 0.020, ConversionRate: 0.004, SendDate: "2025-03-01"},
		{TeamID: 1, Channel: ChannelAppPush, ContentData: ContentData{Message: "c"}, CTR: 0.030, ConversionRate: 0.002, SendDate: "2025-02-01"},
		{TeamID: 2, Channel: ChannelRCS, ContentData: ContentData{Message: "d"}, CTR: 0.050, ConversionRate: 0.009, SendDate: "2025-04-01"},
	}
	for i, c := range seed {
		if _, err := s.SaveCopy(c); err != nil {
			t.Fatalf("SaveCopy seed %d: %v", i, err)
		}
	}

	got, err := s.ListCopies(CopyFilter{TeamID: 1, Channel: ChannelRCS})
	if err != nil {
		t.Fatalf("ListCopies: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ContentData.Message != "b" || got[1].ContentData.Message != "a" {
		t.Errorf("default sort order = [%q %q], want [b a]", got[0].ContentData.Message, got[1].ContentData.Message)
	}

	got, err = s.ListCopies(CopyFilter{TeamID: 1, SortBy: "ctr"})
	if err != nil {
		t.Fatalf("ListCopies ctr: %v", err)
	}
	if len(got) != 3 || got[0].ContentData.Message != "c" {
		t.Errorf("ctr sort first = %q (len %d), want c (len 3)", got[0].ContentData.Message, len(got))
	}

	got, err = s.ListCopies(CopyFilter{SortBy: "latest", Limit: 1})
	if err != nil {
		t.Fatalf("ListCopies latest: %v", err)
	}
	if len(got) != 1 || got[0].ContentData.Message != "d" {
		t.Errorf("latest first = %+v, want message d", got)
	}
}

// TestCopiesWithContent skips rows whose content_data is empty.
func TestCopiesWithContent(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.SaveCopy(MarketingCopy{TeamID: 1, Channel: ChannelRCS, ContentData: ContentData{Message: "keep"}}); err != nil {
		t.Fatalf("SaveCopy: %v", err)
	}
	if _, err := s.db.Exec(`INSERT INTO marketing_copies (team_id, channel, content_data) VALUES (1, 'RCS', '')`); err != nil {
		t.Fatalf("raw insert: %v", err)
	}
	if _, err := s.db.Exec(`INSERT INTO marketing_copies (team_id, channel, content_data) VALUES (1, 'RCS', NULL)`); err != nil {
		t.Fatalf("raw insert null: %v", err)
	}

	got, err := s.CopiesWithContent()
	if err != nil {
		t.Fatalf("CopiesWithContent: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].ContentData.Message != "keep" {
		t.Errorf("Message = %q, want keep", got[0].ContentData.Message)
	}
}
