// Package indexer maintains the phrase vector index as a derived projection
// of the marketing_copies table.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/adcraft-io/copygen/internal/retrieval"
	"github.com/adcraft-io/copygen/internal/storage"
)

// CopySource lists the copies eligible for indexing.
type CopySource interface {
	CopiesWithContent() ([]storage.MarketingCopy, error)
}

// Indexer embeds copy text and writes it to the vector store. The relational
// store stays the source of truth; everything here can be rebuilt from it.
type Indexer struct {
	copies   CopySource
	vectors  retrieval.VectorStore
	embedder *retrieval.Embedder
	logger   *slog.Logger

	// Serializes full rebuilds. Incremental IndexCopy calls are not blocked
	// by the mutex; a rebuild running concurrently re-reads their rows anyway.
	reindexMu sync.Mutex
}

// New creates an Indexer.
func New(copies CopySource, vectors retrieval.VectorStore, embedder *retrieval.Embedder, logger *slog.Logger) *Indexer {
	return &Indexer{
		copies:   copies,
		vectors:  vectors,
		embedder: embedder,
		logger:   logger,
	}
}

// embedText builds the text that gets embedded for a copy: head and body,
// newline-joined, skipping empty parts.
func embedText(c storage.MarketingCopy) string {
	parts := make([]string, 0, 2)
	if head := strings.TrimSpace(c.HeadText()); head != "" {
		parts = append(parts, head)
	}
	if body := strings.TrimSpace(c.BodyText()); body != "" {
		parts = append(parts, body)
	}
	return strings.Join(parts, "\n")
}

// recordFromCopy denormalizes a copy into an index record.
func recordFromCopy(c storage.MarketingCopy, vec []float32) retrieval.Record {
	return retrieval.Record{
		ID:              uuid.New().String(),
		CopyID:          c.CopyID,
		TeamID:          c.TeamID,
		Channel:         c.Channel,
		Embedding:       vec,
		Title:           c.HeadText(),
		Message:         c.BodyText(),
		Keywords:        c.Keywords,
		TargetAudience:  c.TargetAudience,
		Tone:            c.Tone,
		CTR:             c.CTR,
		ConversionRate:  c.ConversionRate,
		ImpressionCount: c.ImpressionCount,
		ClickCount:      c.ClickCount,
		ConversionCount: c.ConversionCount,
		SendDate:        c.SendDate,
		CreatedAt:       time.Now().UTC(),
	}
}

// IndexCopy embeds one copy and replaces its index records. Re-running for
// the same copy leaves exactly one record, so retries are safe.
func (ix *Indexer) IndexCopy(ctx context.Context, c storage.MarketingCopy) error {
	text := embedText(c)
	if text == "" {
		ix.logger.Warn("skipping copy with no text", "copy_id", c.CopyID)
		return nil
	}

	vec, err := ix.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embedding copy %d: %w", c.CopyID, err)
	}

	if err := ix.vectors.DeleteByCopy(c.CopyID); err != nil {
		return fmt.Errorf("removing stale records for copy %d: %w", c.CopyID, err)
	}
	if err := ix.vectors.Insert([]retrieval.Record{recordFromCopy(c, vec)}); err != nil {
		return fmt.Errorf("inserting record for copy %d: %w", c.CopyID, err)
	}
	return nil
}

// ReindexAll rebuilds the whole index from the relational store: rescan,
// re-embed, wipe, bulk insert. Returns the number of indexed copies.
// Only one rebuild runs at a time; the wipe happens after embedding so the
// old index keeps serving searches until the new one is ready.
func (ix *Indexer) ReindexAll(ctx context.Context) (int, error) {
	ix.reindexMu.Lock()
	defer ix.reindexMu.Unlock()

	copies, err := ix.copies.CopiesWithContent()
	if err != nil {
		return 0, fmt.Errorf("scanning copies: %w", err)
	}

	// Copies with no usable text are skipped, matching IndexCopy.
	eligible := make([]storage.MarketingCopy, 0, len(copies))
	texts := make([]string, 0, len(copies))
	for _, c := range copies {
		if text := embedText(c); text != "" {
			eligible = append(eligible, c)
			texts = append(texts, text)
		}
	}

	vecs, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding %d copies: %w", len(texts), err)
	}

	records := make([]retrieval.Record, len(eligible))
	for i, c := range eligible {
		records[i] = recordFromCopy(c, vecs[i])
	}

	if err := ix.vectors.DeleteAll(); err != nil {
		return 0, fmt.Errorf("wiping index: %w", err)
	}
	if len(records) > 0 {
		if err := ix.vectors.Insert(records); err != nil {
			return 0, fmt.Errorf("inserting %d records: %w", len(records), err)
		}
	}

	ix.logger.Info("index rebuilt", "copies", len(records))
	return len(records), nil
}
