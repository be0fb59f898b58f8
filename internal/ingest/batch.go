package ingest

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/adcraft-io/copygen/internal/indexer"
	"github.com/adcraft-io/copygen/internal/storage"
	"github.com/adcraft-io/copygen/internal/teams"
)

// Store is the persistence surface batch ingestion needs.
type Store interface {
	SaveCopy(c storage.MarketingCopy) (int64, error)
	EnqueueJob(job storage.Job) error
}

// Result reports batch ingestion counts. A batch never fails as a whole;
// callers read ErrorCount to see how many rows were dropped.
type Result struct {
	SuccessCount int `json:"success_count"`
	ErrorCount   int `json:"error_count"`
}

// Writer persists normalized rows and queues each saved copy for indexing.
type Writer struct {
	store  Store
	teams  *teams.Table
	logger *slog.Logger
}

// NewWriter creates a batch Writer resolving team names against table.
func NewWriter(store Store, table *teams.Table, logger *slog.Logger) *Writer {
	return &Writer{store: store, teams: table, logger: logger}
}

// WriteBatch normalizes and saves every record. A row that fails
// normalization or the save is logged, counted, and skipped; the batch
// continues. Index jobs are queued best-effort per saved row.
func (w *Writer) WriteBatch(records []Record) Result {
	var res Result
	for i, rec := range records {
		copyRow, err := Normalize(rec, w.teams)
		if err != nil {
			w.logger.Warn("skipping ingestion row", "row", i+1, "error", err)
			res.ErrorCount++
			continue
		}

		id, err := w.store.SaveCopy(copyRow)
		if err != nil {
			w.logger.Warn("saving ingestion row failed", "row", i+1, "error", err)
			res.ErrorCount++
			continue
		}
		res.SuccessCount++

		payload, _ := json.Marshal(indexer.IndexPayload{CopyID: id})
		if err := w.store.EnqueueJob(storage.Job{
			ID:          uuid.New().String(),
			Type:        indexer.JobTypeIndexCopy,
			PayloadJSON: string(payload),
			RunAfter:    time.Now().UTC(),
		}); err != nil {
			w.logger.Warn("enqueueing index job failed", "copy_id", id, "error", err)
		}
	}

	w.logger.Info("ingestion batch complete",
		"total", len(records),
		"saved", res.SuccessCount,
		"errors", res.ErrorCount,
	)
	return res
}
