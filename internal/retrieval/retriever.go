package retrieval

import (
	"context"
	"log/slog"
	"sort"
	"strings"
)

// Phrase is a historical marketing phrase surfaced for prompt assembly.
type Phrase struct {
	CopyID          int64   `json:"copy_id"`
	TeamID          int     `json:"team_id"`
	Channel         string  `json:"channel"`
	Title           string  `json:"title"`
	Message         string  `json:"message"`
	Keywords        string  `json:"keywords"`
	TargetAudience  string  `json:"target_audience"`
	Tone            string  `json:"tone"`
	CTR             float64 `json:"ctr"`
	ConversionRate  float64 `json:"conversion_rate"`
	ImpressionCount int     `json:"impression_count"`
	ClickCount      int     `json:"click_count"`
	ConversionCount int     `json:"conversion_count"`
	SendDate        string  `json:"send_date"`
	Similarity      float64 `json:"similarity"`
}

// Query carries the campaign attributes that form the retrieval query text.
type Query struct {
	Topic          string
	DiscountType   string
	AppealPoint    string
	Brand          string
	EventName      string
	TargetAudience string
}

// Text joins the non-empty query parts in a fixed order. The same campaign
// always produces the same query text, so retrieval stays reproducible.
func (q Query) Text() string {
	parts := make([]string, 0, 6)
	for _, p := range []string{q.Topic, q.DiscountType, q.AppealPoint, q.Brand, q.EventName, q.TargetAudience} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	return strings.Join(parts, " ")
}

// Retriever combines embedding and vector search to find the best-performing
// similar phrases. Retrieval failures degrade to an empty result so copy
// generation proceeds without examples.
type Retriever struct {
	embedder       *Embedder
	store          VectorStore
	logger         *slog.Logger
	candidateLimit int
	minSimilarity  float64
}

// NewRetriever creates a Retriever. candidateLimit bounds the raw vector
// search; minSimilarity cuts candidates below that cosine similarity.
func NewRetriever(embedder *Embedder, store VectorStore, logger *slog.Logger, candidateLimit int, minSimilarity float64) *Retriever {
	if candidateLimit <= 0 {
		candidateLimit = 20
	}
	return &Retriever{
		embedder:       embedder,
		store:          store,
		logger:         logger,
		candidateLimit: candidateLimit,
		minSimilarity:  minSimilarity,
	}
}

// SearchPhrases embeds the query and returns up to topK deduplicated
// phrases passing the filter, ranked by CTR descending. Never returns an
// error: any failure is logged and yields an empty slice.
func (r *Retriever) SearchPhrases(ctx context.Context, query string, topK int, f Filter) []Phrase {
	if topK <= 0 || strings.TrimSpace(query) == "" {
		return []Phrase{}
	}

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.logger.Warn("phrase search degraded to empty", "stage", "embed", "error", err)
		return []Phrase{}
	}

	scored, err := r.store.Search(vec, r.candidateLimit, f)
	if err != nil {
		r.logger.Warn("phrase search degraded to empty", "stage", "search", "error", err)
		return []Phrase{}
	}

	// Similarity cut, then dedup on (title, message). Candidates arrive in
	// similarity order, so first-wins keeps the closest duplicate.
	seen := make(map[string]struct{}, len(scored))
	phrases := make([]Phrase, 0, len(scored))
	for _, s := range scored {
		if float64(s.Score) < r.minSimilarity {
			continue
		}
		key := s.Title + "|" + s.Message
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		phrases = append(phrases, Phrase{
			CopyID:          s.CopyID,
			TeamID:          s.TeamID,
			Channel:         s.Channel,
			Title:           s.Title,
			Message:         s.Message,
			Keywords:        s.Keywords,
			TargetAudience:  s.TargetAudience,
			Tone:            s.Tone,
			CTR:             s.CTR,
			ConversionRate:  s.ConversionRate,
			ImpressionCount: s.ImpressionCount,
			ClickCount:      s.ClickCount,
			ConversionCount: s.ConversionCount,
			SendDate:        s.SendDate,
			Similarity:      float64(s.Score),
		})
	}

	// Proven performers first.
	sort.SliceStable(phrases, func(i, j int) bool {
		return phrases[i].CTR > phrases[j].CTR
	})

	if len(phrases) > topK {
		phrases = phrases[:topK]
	}
	return phrases
}
