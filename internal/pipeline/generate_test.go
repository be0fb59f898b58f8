package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/adcraft-io/copygen/internal/indexer"
	"github.com/adcraft-io/copygen/internal/parser"
	"github.com/adcraft-io/copygen/internal/retrieval"
	"github.com/adcraft-io/copygen/internal/storage"
)

type fakeGenClient struct {
	response   string
	err        error
	lastPrompt string
	lastTemp   float64
}

func (f *fakeGenClient) Generate(ctx context.Context, model, prompt string, temperature float64) (string, error) {
	f.lastPrompt = prompt
	f.lastTemp = temperature
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

type fakeEmbedClient struct{}

func (fakeEmbedClient) Embed(ctx context.Context, model, text string) ([]float32, error) {
	v := make([]float32, 8)
	for i := range v {
		v[i] = 0.5
	}
	return v, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestGenerator(t *testing.T, gen GenerateClient) (*Generator, *storage.Store) {
	t.Helper()
	s, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	embedder := retrieval.NewEmbedder(fakeEmbedClient{}, "nomic-embed-text")
	vectors := retrieval.NewSQLiteStore(s.DB())
	retriever := retrieval.NewRetriever(embedder, vectors, testLogger(), 20, 0.6)
	p := parser.New("[브랜드]", testLogger())

	g := NewGenerator(retriever, s, gen, p, testLogger(), Options{
		GenModel:          "exaone3.5",
		TopK:              3,
		MinCTR:            0.01,
		MinConversionRate: 0.005,
	})
	return g, s
}

const appPushResponse = "1. 타이틀: 가을 세일\n본문: (광고) 최대 50% 할인\n2. 타이틀: 신상 오픈\n본문: (광고) 지금 확인하세요"

func TestGenerate_TopicRequired(t *testing.T) {
	g, _ := newTestGenerator(t, &fakeGenClient{response: appPushResponse})

	if _, err := g.Generate(context.Background(), Request{}); !errors.Is(err, ErrTopicRequired) {
		t.Errorf("error = %v, want ErrTopicRequired", err)
	}
}

func TestGenerate_InvalidChannel(t *testing.T) {
	g, _ := newTestGenerator(t, &fakeGenClient{response: appPushResponse})

	if _, err := g.Generate(context.Background(), Request{Topic: "세일", Channel: "SMS"}); err == nil {
		t.Error("expected error for unknown channel")
	}
}

func TestGenerate_AppPushHappyPath(t *testing.T) {
	client := &fakeGenClient{response: appPushResponse}
	g, _ := newTestGenerator(t, client)

	res, err := g.Generate(context.Background(), Request{Topic: "가을 세일", Channel: storage.ChannelAppPush})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(res.Copies) != 2 {
		t.Fatalf("copies = %d, want 2", len(res.Copies))
	}
	if res.Copies[0].Title != "가을 세일" {
		t.Errorf("Copies[0].Title = %q", res.Copies[0].Title)
	}
	if len(res.SavedCopyIDs) != 0 {
		t.Errorf("SavedCopyIDs = %v without team_id, want none", res.SavedCopyIDs)
	}
	if client.lastTemp != 2.0 {
		t.Errorf("temperature = %v, want default 2.0", client.lastTemp)
	}
	if !strings.Contains(client.lastPrompt, "가을 세일") {
		t.Error("prompt missing topic")
	}
}

func TestGenerate_DefaultsApplied(t *testing.T) {
	client := &fakeGenClient{response: "1. 버튼: 보기\n메시지: 내용"}
	g, _ := newTestGenerator(t, client)

	res, err := g.Generate(context.Background(), Request{Topic: "세일"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	// Default channel is RCS, so the brand tag invariant applies.
	if len(res.Copies) != 1 {
		t.Fatalf("copies = %d, want 1", len(res.Copies))
	}
	if !strings.HasPrefix(res.Copies[0].Message, "[브랜드]\n") {
		t.Errorf("Message = %q, want brand-prefixed RCS output", res.Copies[0].Message)
	}
	if !strings.Contains(client.lastPrompt, "일반 대중") {
		t.Error("prompt missing default target audience")
	}
	if !strings.Contains(client.lastPrompt, "전문적이고 친근한") {
		t.Error("prompt missing default tone")
	}
}

func TestGenerate_ClientErrorPropagates(t *testing.T) {
	g, _ := newTestGenerator(t, &fakeGenClient{err: errors.New("connection refused")})

	if _, err := g.Generate(context.Background(), Request{Topic: "세일"}); err == nil {
		t.Error("expected error when the model call fails")
	}
}

func TestGenerate_SavesForTeam(t *testing.T) {
	g, s := newTestGenerator(t, &fakeGenClient{response: appPushResponse})

	res, err := g.Generate(context.Background(), Request{Topic: "가을 세일", TeamID: 7, Channel: storage.ChannelAppPush})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(res.SavedCopyIDs) != 2 {
		t.Fatalf("SavedCopyIDs = %v, want 2 ids", res.SavedCopyIDs)
	}

	saved, err := s.GetCopy(res.SavedCopyIDs[0])
	if err != nil {
		t.Fatalf("GetCopy: %v", err)
	}
	if !saved.IsAIGenerated {
		t.Error("saved copy not flagged as AI generated")
	}
	if saved.TeamID != 7 {
		t.Errorf("saved TeamID = %d, want 7", saved.TeamID)
	}

	// Each save queues an index job.
	job, err := s.ClaimNextJob([]string{indexer.JobTypeIndexCopy})
	if err != nil {
		t.Fatalf("ClaimNextJob: %v", err)
	}
	if job == nil {
		t.Error("no index job queued for saved copy")
	}
}

func TestGenerate_TrendKeywordsInPrompt(t *testing.T) {
	client := &fakeGenClient{response: appPushResponse}
	g, s := newTestGenerator(t, client)

	for _, kw := range []string{"가을코디", "캠핑"} {
		if _, err := s.UpsertTrend(storage.TrendRecord{Keyword: kw, TrendScore: 5}); err != nil {
			t.Fatalf("UpsertTrend: %v", err)
		}
	}

	if _, err := g.Generate(context.Background(), Request{Topic: "세일", Channel: storage.ChannelAppPush}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(client.lastPrompt, "최신 트렌드 키워드") {
		t.Error("prompt missing trend section")
	}
	if !strings.Contains(client.lastPrompt, "가을코디") {
		t.Error("prompt missing trend keyword")
	}
}

func TestGenerate_UnparseableOutputYieldsEmpty(t *testing.T) {
	g, _ := newTestGenerator(t, &fakeGenClient{response: "형식이 전혀 다른 출력"})

	res, err := g.Generate(context.Background(), Request{Topic: "세일", Channel: storage.ChannelAppPush})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(res.Copies) != 0 {
		t.Errorf("copies = %d for unparseable output, want 0", len(res.Copies))
	}
}

func TestRequest_TeamIDFromStringOrNumber(t *testing.T) {
	cases := map[string]TeamID{
		`{"topic":"가을 세일","team_id":"6"}`:    6,
		`{"topic":"가을 세일","team_id":6}`:      6,
		`{"topic":"가을 세일","team_id":" 12 "}`: 12,
		`{"topic":"가을 세일","team_id":""}`:     0,
		`{"topic":"가을 세일"}`:                  0,
	}
	for in, want := range cases {
		var req Request
		if err := json.Unmarshal([]byte(in), &req); err != nil {
			t.Errorf("Unmarshal(%s): %v", in, err)
			continue
		}
		if req.TeamID != want {
			t.Errorf("TeamID = %d for %s, want %d", req.TeamID, in, want)
		}
	}

	var req Request
	if err := json.Unmarshal([]byte(`{"topic":"세일","team_id":"여섯"}`), &req); err == nil {
		t.Error("expected error for non-numeric team_id string")
	}
}
