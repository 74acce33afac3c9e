package types

import (
	"context"

	"ragpipe/internal/models"
)

// Fetcher lists and downloads raw documents from the configured source.
type Fetcher interface {
	List(ctx context.Context) ([]string, error)
	Fetch(ctx context.Context, name string) (models.Document, error)
}

// Extractor turns a document's raw bytes into plain text.
type Extractor interface {
	Extract(ctx context.Context, doc models.Document) (string, error)
}

// Chunker splits extracted text into retrieval-sized chunks.
type Chunker interface {
	Chunk(doc models.Document) []models.Chunk
}

// Embedder converts text into fixed-dimension vectors. Both ingestion
// and query embedding must go through the same implementation.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorStore persists embedding records and answers similarity queries.
// Upsert replaces records that share a chunk ID instead of duplicating.
type VectorStore interface {
	Upsert(ctx context.Context, chunks []models.Chunk, vectors [][]float32) error
	Search(ctx context.Context, vector []float32, k int) ([]models.SearchResult, error)
	Count(ctx context.Context) (int, error)
	Close()
}

// Generator produces an answer grounded in the retrieved chunks.
type Generator interface {
	Answer(ctx context.Context, query string, results []models.SearchResult) (string, error)
	AnswerStream(ctx context.Context, query string, results []models.SearchResult) (<-chan string, error)
}
