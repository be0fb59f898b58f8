// Package trends analyzes raw trend snippets into scored keywords ready for
// archival.
package trends

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/adcraft-io/copygen/internal/llm"
)

const analysisTimeout = 30 * time.Second

// Chatter is the interface for structured chat completion.
type Chatter interface {
	Chat(ctx context.Context, model string, messages []llm.Message, jsonSchema *llm.Schema) (string, error)
}

// Keyword is one extracted trend keyword with its score and category.
type Keyword struct {
	Keyword    string  `json:"keyword"`
	Category   string  `json:"category"`
	TrendScore float64 `json:"trend_score"`
}

type analysis struct {
	Keywords []Keyword `json:"keywords"`
}

// Analyzer uses the local LLM to distill raw trend text into keywords.
type Analyzer struct {
	client Chatter
	model  string
	logger *slog.Logger
}

// NewAnalyzer creates an Analyzer using the given client and model name.
func NewAnalyzer(client Chatter, model string, logger *slog.Logger) *Analyzer {
	return &Analyzer{client: client, model: model, logger: logger}
}

// Analyze extracts up to five scored keywords from the raw trend text.
// On any failure (timeout, malformed JSON, model error) it returns an empty
// slice; trend analysis is advisory and must never block archival.
func (a *Analyzer) Analyze(ctx context.Context, raw string) []Keyword {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, analysisTimeout)
	defer cancel()

	out, err := a.client.Chat(ctx, a.model, buildMessages(raw), keywordSchema())
	if err != nil {
		a.logger.Warn("trend analysis chat failed", "error", err)
		return nil
	}

	var result analysis
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		a.logger.Warn("failed to unmarshal trend analysis", "error", err, "response", out)
		return nil
	}

	keywords := make([]Keyword, 0, len(result.Keywords))
	for _, k := range result.Keywords {
		if strings.TrimSpace(k.Keyword) == "" {
			continue
		}
		if k.Category == "" {
			k.Category = "general"
		}
		keywords = append(keywords, k)
		if len(keywords) == 5 {
			break
		}
	}
	return keywords
}

func buildMessages(raw string) []llm.Message {
	return []llm.Message{
		{Role: "system", Content: "당신은 마케팅 트렌드 분석가입니다. 주어진 트렌드 데이터에서 핵심 키워드를 추출합니다."},
		{Role: "user", Content: "다음은 최근 수집된 트렌드 데이터입니다:\n" + raw + "\n\n이 데이터를 분석해서 주요 키워드 5개를 추출하고, 각 키워드의 중요도 점수(1-10)와 카테고리를 분류해주세요."},
	}
}

// keywordSchema returns the JSON schema for structured keyword output.
func keywordSchema() *llm.Schema {
	return &llm.Schema{
		Type: "object",
		Properties: map[string]llm.SchemaProperty{
			"keywords": {
				Type:        "array",
				Description: "Extracted trend keywords with score and category",
				Items:       &llm.SchemaProperty{Type: "object"},
			},
		},
		Required: []string{"keywords"},
	}
}
