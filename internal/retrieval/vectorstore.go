package retrieval

import "time"

// VectorStore is the interface for phrase vector storage and similarity
// search backends. The current implementation uses SQLite with brute-force
// cosine similarity; the index is a derived projection of marketing_copies
// and can be dropped and rebuilt at any time.
type VectorStore interface {
	// Insert adds records to the index.
	Insert(records []Record) error

	// Search returns the top-K records most similar to the vector among
	// those passing the metadata filter.
	Search(vector []float32, topK int, f Filter) ([]ScoredRecord, error)

	// DeleteByCopy removes all index records derived from a copy.
	DeleteByCopy(copyID int64) error

	// DeleteAll wipes the index. Used before a full rebuild.
	DeleteAll() error

	// Count returns the number of indexed records.
	Count() (int, error)
}

// Filter narrows a Search to records matching the campaign metadata.
// Zero values mean "no constraint" for that field.
type Filter struct {
	TeamID            int
	Channel           string
	MinCTR            float64
	MinConversionRate float64
}

// Record is one indexed phrase with the copy metadata needed for ranking
// and prompt assembly, denormalized from marketing_copies.
type Record struct {
	ID              string
	CopyID          int64
	TeamID          int
	Channel         string
	Embedding       []float32
	Title           string
	Message         string
	Keywords        string
	TargetAudience  string
	Tone            string
	CTR             float64
	ConversionRate  float64
	ImpressionCount int
	ClickCount      int
	ConversionCount int
	SendDate        string
	CreatedAt       time.Time
}

// ScoredRecord is a Record with a cosine similarity score attached.
type ScoredRecord struct {
	Record
	Score float32
}
