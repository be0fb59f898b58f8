// Package pipeline orchestrates copy generation: retrieval, prompt assembly,
// the model call, parsing, and optional persistence of the results.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/adcraft-io/copygen/internal/indexer"
	"github.com/adcraft-io/copygen/internal/parser"
	"github.com/adcraft-io/copygen/internal/prompt"
	"github.com/adcraft-io/copygen/internal/retrieval"
	"github.com/adcraft-io/copygen/internal/storage"
)

// ErrTopicRequired is returned when a generation request has no topic.
var ErrTopicRequired = errors.New("topic is required")

// TeamID accepts either a JSON number or a numeric string on the wire.
type TeamID int

func (t *TeamID) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	if len(s) >= 2 && s[0] == '"' {
		var quoted string
		if err := json.Unmarshal(b, &quoted); err != nil {
			return err
		}
		s = strings.TrimSpace(quoted)
		if s == "" {
			*t = 0
			return nil
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("team_id: %w", err)
	}
	*t = TeamID(n)
	return nil
}

// Request is a copy generation request. Unset optional fields take the
// documented defaults in applyDefaults.
type Request struct {
	Topic          string  `json:"topic"`
	TeamID         TeamID  `json:"team_id,omitempty"`
	TargetAudience string  `json:"target_audience,omitempty"`
	Tone           string  `json:"tone,omitempty"`
	Count          int     `json:"count,omitempty"`
	ReferenceText  string  `json:"reference_text,omitempty"`
	DiscountType   string  `json:"discount_type,omitempty"`
	AppealPoint    string  `json:"appeal_point,omitempty"`
	Brand          string  `json:"brand,omitempty"`
	EventName      string  `json:"event_name,omitempty"`
	Channel        string  `json:"channel,omitempty"`
	UseEmoji       string  `json:"use_emoji,omitempty"` // string-encoded boolean, wire contract
	Temperature    float64 `json:"temperature,omitempty"`
}

// Result is the generation response.
type Result struct {
	Copies            []storage.ContentData `json:"copies"`
	ReferencedPhrases []retrieval.Phrase    `json:"referenced_phrases"`
	SavedCopyIDs      []int64               `json:"saved_copy_ids,omitempty"`
}

// GenerateClient is the completion side of the LLM client.
type GenerateClient interface {
	Generate(ctx context.Context, model, prompt string, temperature float64) (string, error)
}

// Store is the persistence surface the pipeline needs: trend lookup plus
// the save-and-index path for generated copies.
type Store interface {
	RecentTrends(limit int) ([]storage.TrendRecord, error)
	SaveCopy(c storage.MarketingCopy) (int64, error)
	EnqueueJob(job storage.Job) error
}

// Generator runs the end-to-end generation pipeline.
type Generator struct {
	retriever *retrieval.Retriever
	store     Store
	client    GenerateClient
	parser    *parser.Parser
	logger    *slog.Logger

	genModel          string
	topK              int
	minCTR            float64
	minConversionRate float64
}

// Options carries the retrieval thresholds and model selection.
type Options struct {
	GenModel          string
	TopK              int
	MinCTR            float64
	MinConversionRate float64
}

// NewGenerator wires the pipeline together.
func NewGenerator(retriever *retrieval.Retriever, store Store, client GenerateClient, p *parser.Parser, logger *slog.Logger, opts Options) *Generator {
	if opts.TopK <= 0 {
		opts.TopK = 3
	}
	return &Generator{
		retriever:         retriever,
		store:             store,
		client:            client,
		parser:            p,
		logger:            logger,
		genModel:          opts.GenModel,
		topK:              opts.TopK,
		minCTR:            opts.MinCTR,
		minConversionRate: opts.MinConversionRate,
	}
}

func applyDefaults(req Request) Request {
	if req.TargetAudience == "" {
		req.TargetAudience = "일반 대중"
	}
	if req.Tone == "" {
		req.Tone = "전문적이고 친근한"
	}
	if req.Count <= 0 {
		req.Count = 5
	}
	if req.Channel == "" {
		req.Channel = storage.ChannelRCS
	}
	if req.UseEmoji == "" {
		req.UseEmoji = "true"
	}
	if req.Temperature == 0 {
		req.Temperature = 2.0
	}
	return req
}

// Generate runs the full pipeline for one request. Retrieval and trend
// lookup degrade to empty on failure; a model transport failure is the one
// error that propagates, with no internal retry.
func (g *Generator) Generate(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.Topic) == "" {
		return Result{}, ErrTopicRequired
	}
	req = applyDefaults(req)
	if !storage.ValidChannel(req.Channel) {
		return Result{}, fmt.Errorf("unknown channel %q", req.Channel)
	}

	query := retrieval.Query{
		Topic:          req.Topic,
		DiscountType:   req.DiscountType,
		AppealPoint:    req.AppealPoint,
		Brand:          req.Brand,
		EventName:      req.EventName,
		TargetAudience: req.TargetAudience,
	}.Text()

	phrases := g.retriever.SearchPhrases(ctx, query, g.topK, retrieval.Filter{
		TeamID:            int(req.TeamID),
		Channel:           req.Channel,
		MinCTR:            g.minCTR,
		MinConversionRate: g.minConversionRate,
	})

	trendKeywords := g.trendKeywords()

	promptText := prompt.Build(prompt.Params{
		Channel:        req.Channel,
		Topic:          req.Topic,
		TargetAudience: req.TargetAudience,
		Tone:           req.Tone,
		Count:          req.Count,
		DiscountType:   req.DiscountType,
		AppealPoint:    req.AppealPoint,
		Brand:          req.Brand,
		EventName:      req.EventName,
		ReferenceText:  req.ReferenceText,
		UseEmoji:       strings.EqualFold(req.UseEmoji, "true"),
		Examples:       phrases,
		TrendKeywords:  trendKeywords,
	})

	raw, err := g.client.Generate(ctx, g.genModel, promptText, req.Temperature)
	if err != nil {
		return Result{}, fmt.Errorf("generating copy: %w", err)
	}

	copies := g.parser.Parse(raw, req.Channel, req.Count)
	g.logger.Info("generation complete",
		"channel", req.Channel,
		"requested", req.Count,
		"parsed", len(copies),
		"examples", len(phrases),
	)

	result := Result{
		Copies:            copies,
		ReferencedPhrases: phrases,
	}

	// Generated copies are archived only when the request names a team;
	// anonymous requests stay ephemeral.
	if req.TeamID > 0 {
		result.SavedCopyIDs = g.saveCopies(req, copies, trendKeywords)
	}

	return result, nil
}

// trendKeywords returns the top-5 recent valid keywords, empty on failure.
func (g *Generator) trendKeywords() []string {
	records, err := g.store.RecentTrends(5)
	if err != nil {
		g.logger.Warn("trend lookup failed", "error", err)
		return nil
	}
	keywords := make([]string, len(records))
	for i, r := range records {
		keywords[i] = r.Keyword
	}
	return keywords
}

// saveCopies persists generated copies best-effort and queues each saved
// one for indexing. A failed save is logged and skipped, never fatal.
func (g *Generator) saveCopies(req Request, copies []storage.ContentData, trendKeywords []string) []int64 {
	var ids []int64
	for _, c := range copies {
		id, err := g.store.SaveCopy(storage.MarketingCopy{
			TeamID:         int(req.TeamID),
			Channel:        req.Channel,
			ContentData:    c,
			Keywords:       req.Topic,
			TargetAudience: req.TargetAudience,
			Tone:           req.Tone,
			ReferenceText:  req.ReferenceText,
			TrendKeywords:  strings.Join(trendKeywords, ","),
			IsAIGenerated:  true,
		})
		if err != nil {
			g.logger.Warn("saving generated copy failed", "error", err)
			continue
		}
		ids = append(ids, id)

		payload, _ := json.Marshal(indexer.IndexPayload{CopyID: id})
		if err := g.store.EnqueueJob(storage.Job{
			ID:          uuid.New().String(),
			Type:        indexer.JobTypeIndexCopy,
			PayloadJSON: string(payload),
			RunAfter:    time.Now().UTC(),
		}); err != nil {
			g.logger.Warn("enqueueing index job failed", "copy_id", id, "error", err)
		}
	}
	return ids
}
