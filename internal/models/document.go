package models

// Document is a raw file pulled from the blob store. Content holds the
// original bytes until extraction; Text is filled by the extractor and
// the bytes are released afterwards.
type Document struct {
	ID       string
	Source   string // container-relative blob path
	Name     string
	Content  []byte
	Text     string
	Metadata map[string]interface{}
}

// Chunk is the unit of embedding and retrieval: a bounded span of a
// document's extracted text. Chunks are immutable once produced.
type Chunk struct {
	ID         string // "<documentID>_<index>"
	DocumentID string
	Source     string
	Index      int
	Text       string
	TokenCount int
}

// SearchResult pairs a chunk with its similarity score, higher is closer.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// IngestFailure records one document that could not be ingested.
type IngestFailure struct {
	Source string
	Reason string
}

// IngestReport summarizes one ingestion run. A failed document lands in
// Failures and never aborts the rest of the batch.
type IngestReport struct {
	Fetched   int
	Extracted int
	Chunks    int
	Failures  []IngestFailure
}
