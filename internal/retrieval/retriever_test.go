package retrieval

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
)

// fakeVectorStore serves canned scored records or a fixed error.
type fakeVectorStore struct {
	results []ScoredRecord
	err     error
	lastF   Filter
}

func (f *fakeVectorStore) Insert(records []Record) error { return nil }
func (f *fakeVectorStore) Search(vector []float32, topK int, fl Filter) ([]ScoredRecord, error) {
	f.lastF = fl
	if f.err != nil {
		return nil, f.err
	}
	if len(f.results) > topK {
		return f.results[:topK], nil
	}
	return f.results, nil
}
func (f *fakeVectorStore) DeleteByCopy(copyID int64) error { return nil }
func (f *fakeVectorStore) DeleteAll() error                { return nil }
func (f *fakeVectorStore) Count() (int, error)             { return len(f.results), nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func scored(copyID int64, title, message string, ctr float64, score float32) ScoredRecord {
	return ScoredRecord{
		Record: Record{CopyID: copyID, Title: title, Message: message, CTR: ctr},
		Score:  score,
	}
}

func newTestRetriever(store VectorStore) *Retriever {
	return NewRetriever(NewEmbedder(&fakeEmbedClient{dim: 8}, "nomic-embed-text"), store, testLogger(), 20, 0.6)
}

func TestQueryText_FixedOrder(t *testing.T) {
	q := Query{
		TargetAudience: "20대",
		Brand:          "뷰티브랜드",
		Topic:          "가을 세일",
		DiscountType:   "50% 할인",
	}
	want := "가을 세일 50% 할인 뷰티브랜드 20대"
	if got := q.Text(); got != want {
		t.Errorf("Text() = %q, want %q", got, want)
	}
}

func TestQueryText_Empty(t *testing.T) {
	if got := (Query{}).Text(); got != "" {
		t.Errorf("Text() = %q, want empty", got)
	}
}

func TestSearchPhrases_RanksByCTR(t *testing.T) {
	store := &fakeVectorStore{results: []ScoredRecord{
		scored(1, "a", "m1", 0.01, 0.95),
		scored(2, "b", "m2", 0.05, 0.90),
		scored(3, "c", "m3", 0.03, 0.85),
	}}
	r := newTestRetriever(store)

	got := r.SearchPhrases(context.Background(), "가을 세일", 3, Filter{})
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	wantOrder := []int64{2, 3, 1}
	for i, id := range wantOrder {
		if got[i].CopyID != id {
			t.Errorf("got[%d].CopyID = %d, want %d", i, got[i].CopyID, id)
		}
	}
}

func TestSearchPhrases_SimilarityCut(t *testing.T) {
	store := &fakeVectorStore{results: []ScoredRecord{
		scored(1, "a", "m1", 0.05, 0.95),
		scored(2, "b", "m2", 0.09, 0.40), // below 0.6 cut despite high CTR
	}}
	r := newTestRetriever(store)

	got := r.SearchPhrases(context.Background(), "query", 5, Filter{})
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].CopyID != 1 {
		t.Errorf("CopyID = %d, want 1", got[0].CopyID)
	}
}

func TestSearchPhrases_DedupFirstWins(t *testing.T) {
	store := &fakeVectorStore{results: []ScoredRecord{
		scored(1, "같은 타이틀", "같은 본문", 0.02, 0.95),
		scored(2, "같은 타이틀", "같은 본문", 0.08, 0.90), // duplicate text, dropped
		scored(3, "다른 타이틀", "다른 본문", 0.01, 0.85),
	}}
	r := newTestRetriever(store)

	got := r.SearchPhrases(context.Background(), "query", 5, Filter{})
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	for _, p := range got {
		if p.CopyID == 2 {
			t.Error("duplicate record survived dedup")
		}
	}
	// The first (most similar) duplicate is the one kept.
	if got[0].CopyID != 1 && got[1].CopyID != 1 {
		t.Error("first-seen duplicate was not kept")
	}
}

func TestSearchPhrases_Truncates(t *testing.T) {
	store := &fakeVectorStore{results: []ScoredRecord{
		scored(1, "a", "m1", 0.01, 0.9),
		scored(2, "b", "m2", 0.02, 0.9),
		scored(3, "c", "m3", 0.03, 0.9),
		scored(4, "d", "m4", 0.04, 0.9),
	}}
	r := newTestRetriever(store)

	got := r.SearchPhrases(context.Background(), "query", 2, Filter{})
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	// Highest CTR survive truncation.
	if got[0].CopyID != 4 || got[1].CopyID != 3 {
		t.Errorf("order = [%d %d], want [4 3]", got[0].CopyID, got[1].CopyID)
	}
}

func TestSearchPhrases_TopKZero(t *testing.T) {
	store := &fakeVectorStore{results: []ScoredRecord{scored(1, "a", "m", 0.01, 0.9)}}
	r := newTestRetriever(store)

	got := r.SearchPhrases(context.Background(), "query", 0, Filter{})
	if len(got) != 0 {
		t.Errorf("len = %d for topK=0, want 0", len(got))
	}
}

func TestSearchPhrases_StoreErrorDegrades(t *testing.T) {
	store := &fakeVectorStore{err: errors.New("index corrupt")}
	r := newTestRetriever(store)

	got := r.SearchPhrases(context.Background(), "query", 3, Filter{})
	if got == nil {
		t.Fatal("got nil, want empty slice")
	}
	if len(got) != 0 {
		t.Errorf("len = %d on store error, want 0", len(got))
	}
}

func TestSearchPhrases_EmbedErrorDegrades(t *testing.T) {
	store := &fakeVectorStore{results: []ScoredRecord{scored(1, "a", "m", 0.01, 0.9)}}
	embedder := NewEmbedder(&fakeEmbedClient{err: errors.New("model offline")}, "nomic-embed-text")
	r := NewRetriever(embedder, store, testLogger(), 20, 0.6)

	got := r.SearchPhrases(context.Background(), "query", 3, Filter{})
	if len(got) != 0 {
		t.Errorf("len = %d on embed error, want 0", len(got))
	}
}

func TestSearchPhrases_PassesFilter(t *testing.T) {
	store := &fakeVectorStore{}
	r := newTestRetriever(store)

	f := Filter{TeamID: 7, Channel: "RCS", MinCTR: 0.01, MinConversionRate: 0.005}
	r.SearchPhrases(context.Background(), "query", 3, f)
	if store.lastF != f {
		t.Errorf("filter passed to store = %+v, want %+v", store.lastF, f)
	}
}
