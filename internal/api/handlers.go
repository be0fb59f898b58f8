// Package api exposes the copy generation service over HTTP and MCP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/adcraft-io/copygen/internal/ingest"
	"github.com/adcraft-io/copygen/internal/pipeline"
	"github.com/adcraft-io/copygen/internal/retrieval"
	"github.com/adcraft-io/copygen/internal/storage"
	"github.com/adcraft-io/copygen/internal/trends"
)

const maxRequestBodySize = 1 << 20  // 1MB
const maxBulkBodySize = 10 << 20    // 10MB

// CopyGenerator runs the generation pipeline.
type CopyGenerator interface {
	Generate(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
}

// Reindexer rebuilds the vector index from the relational store.
type Reindexer interface {
	ReindexAll(ctx context.Context) (int, error)
}

// TrendAnalyzer extracts scored keywords from raw trend text.
type TrendAnalyzer interface {
	Analyze(ctx context.Context, raw string) []trends.Keyword
}

// PhraseSearcher finds similar historical phrases.
type PhraseSearcher interface {
	SearchPhrases(ctx context.Context, query string, topK int, f retrieval.Filter) []retrieval.Phrase
}

// AppDeps holds the handler dependencies.
type AppDeps struct {
	Store     *storage.Store
	Writer    *ingest.Writer
	Generator CopyGenerator
	Indexer   Reindexer
	Analyzer  TrendAnalyzer // optional; if nil, trend analysis returns 503
	Searcher  PhraseSearcher
	Logger    *slog.Logger
}

// NewAppHandler builds the HTTP API router.
func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth())
	r.Post("/api/generate", handleGenerate(deps))
	r.Get("/api/copies", handleListCopies(deps))
	r.Post("/api/copies", handleAddCopy(deps))
	r.Post("/api/copies/bulk", handleBulkCopies(deps))
	r.Get("/api/trends", handleListTrends(deps))
	r.Post("/api/trends/archive", handleArchiveTrends(deps))
	r.Post("/api/trends/analyze", handleAnalyzeTrends(deps))
	r.Post("/api/reindex", handleReindex(deps))

	return r
}

func handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	}
}

func handleGenerate(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

		var req pipeline.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		req.Channel = strings.ToUpper(strings.TrimSpace(req.Channel))
		if req.Channel != "" && !storage.ValidChannel(req.Channel) {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "unknown channel %q", req.Channel)
			return
		}

		result, err := deps.Generator.Generate(r.Context(), req)
		if errors.Is(err, pipeline.ErrTopicRequired) {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "topic is required")
			return
		}
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "generation failed: %v", err)
			return
		}

		writeJSON(w, result)
	}
}

func handleListCopies(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := storage.CopyFilter{
			TeamID:  parseIntParam(r, "team_id", 0, 0),
			Channel: strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("channel"))),
			SortBy:  r.URL.Query().Get("sort_by"),
			Limit:   parseIntParam(r, "limit", 50, 500),
		}
		if filter.Channel != "" && !storage.ValidChannel(filter.Channel) {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "unknown channel %q", filter.Channel)
			return
		}

		copies, err := deps.Store.ListCopies(filter)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list copies: %v", err)
			return
		}
		if copies == nil {
			copies = []storage.MarketingCopy{}
		}

		writeJSON(w, copies)
	}
}

func handleAddCopy(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

		var rec ingest.Record
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		res := deps.Writer.WriteBatch([]ingest.Record{rec})
		if res.SuccessCount == 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "copy rejected, see server log")
			return
		}

		writeJSON(w, map[string]string{"status": "saved"})
	}
}

func handleBulkCopies(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBulkBodySize)

		var req struct {
			Records []ingest.Record `json:"records"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if len(req.Records) == 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "records is required")
			return
		}

		writeJSON(w, deps.Writer.WriteBatch(req.Records))
	}
}

func handleListTrends(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 10, 100)

		records, err := deps.Store.RecentTrends(limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list trends: %v", err)
			return
		}
		if records == nil {
			records = []storage.TrendRecord{}
		}

		writeJSON(w, records)
	}
}

func handleArchiveTrends(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

		var records []storage.TrendRecord
		if err := json.NewDecoder(r.Body).Decode(&records); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		var created, updated, failed int
		for _, rec := range records {
			wasCreated, err := deps.Store.UpsertTrend(rec)
			if err != nil {
				deps.Logger.Warn("archiving trend failed", "keyword", rec.Keyword, "error", err)
				failed++
				continue
			}
			if wasCreated {
				created++
			} else {
				updated++
			}
		}

		writeJSON(w, map[string]int{
			"created": created,
			"updated": updated,
			"failed":  failed,
		})
	}
}

func handleAnalyzeTrends(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Analyzer == nil {
			httpError(w, http.StatusServiceUnavailable, "api_error", "trend analysis is not configured")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

		var req struct {
			Raw string `json:"raw"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if strings.TrimSpace(req.Raw) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "raw is required")
			return
		}

		keywords := deps.Analyzer.Analyze(r.Context(), req.Raw)

		var archived int
		for _, k := range keywords {
			if _, err := deps.Store.UpsertTrend(storage.TrendRecord{
				Keyword:    k.Keyword,
				Category:   k.Category,
				TrendScore: k.TrendScore,
				Source:     "llm",
			}); err != nil {
				deps.Logger.Warn("archiving analyzed trend failed", "keyword", k.Keyword, "error", err)
				continue
			}
			archived++
		}

		writeJSON(w, map[string]any{
			"keywords": keywords,
			"archived": archived,
		})
	}
}

func handleReindex(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count, err := deps.Indexer.ReindexAll(r.Context())
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "reindex failed: %v", err)
			return
		}

		writeJSON(w, map[string]int{"indexed": count})
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}
