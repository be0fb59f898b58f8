package retrieval

import (
	"context"
	"errors"
	"testing"
)

// fakeEmbedClient returns canned vectors or a fixed error.
type fakeEmbedClient struct {
	dim  int
	err  error
	seen []string
}

func (f *fakeEmbedClient) Embed(ctx context.Context, model, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.seen = append(f.seen, text)
	v := make([]float32, f.dim)
	for i := range v {
		v[i] = float32(len(text)%7) + float32(i)*0.01
	}
	return v, nil
}

func TestEmbed_ReturnsDimension(t *testing.T) {
	e := NewEmbedder(&fakeEmbedClient{dim: 768}, "nomic-embed-text")

	vec, err := e.Embed(context.Background(), "가을 할인 이벤트")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 768 {
		t.Errorf("dimension = %d, want 768", len(vec))
	}
}

func TestEmbed_ClientError(t *testing.T) {
	e := NewEmbedder(&fakeEmbedClient{err: errors.New("connection refused")}, "nomic-embed-text")

	if _, err := e.Embed(context.Background(), "text"); err == nil {
		t.Fatal("expected error from failing client")
	}
}

func TestEmbedBatch_CountMatches(t *testing.T) {
	e := NewEmbedder(&fakeEmbedClient{dim: 16}, "nomic-embed-text")

	texts := []string{"첫번째", "두번째", "세번째"}
	vecs, err := e.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(vecs) != len(texts) {
		t.Fatalf("got %d vectors, want %d", len(vecs), len(texts))
	}
	for i, v := range vecs {
		if len(v) != 16 {
			t.Errorf("vecs[%d] dimension = %d, want 16", i, len(v))
		}
	}
}

func TestEmbedBatch_ClientError(t *testing.T) {
	e := NewEmbedder(&fakeEmbedClient{err: errors.New("boom")}, "nomic-embed-text")

	if _, err := e.EmbedBatch(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("expected error from failing client")
	}
}

func TestEmbedBatch_EmptyInput(t *testing.T) {
	e := NewEmbedder(&fakeEmbedClient{dim: 16}, "nomic-embed-text")

	vecs, err := e.EmbedBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if vecs != nil {
		t.Errorf("got %v, want nil for empty input", vecs)
	}
}
