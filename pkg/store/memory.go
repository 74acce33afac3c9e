package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"ragpipe/internal/models"
	"ragpipe/pkg/errs"
)

// MemoryStore is a brute-force in-memory vector index. It mirrors the
// pgvector store's contract for single-process runs: idempotent upsert
// by chunk ID and cosine ranking with insertion-order tie breaking.
// Reads take the lock shared; ingestion writes are exclusive.
type MemoryStore struct {
	mu        sync.RWMutex
	dimension int
	positions map[string]int // chunk ID -> slot, preserves first-insert order
	chunks    []models.Chunk
	vectors   [][]float32
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		positions: make(map[string]int),
	}
}

// Upsert stores embedding records. A chunk ID seen before replaces the
// existing record in place, keeping its original insertion position.
func (s *MemoryStore) Upsert(ctx context.Context, chunks []models.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("store: %d chunks but %d vectors", len(chunks), len(vectors))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, chunk := range chunks {
		vec := vectors[i]
		if s.dimension == 0 {
			s.dimension = len(vec)
		}
		if len(vec) != s.dimension {
			return fmt.Errorf("store: vector dimension %d does not match index dimension %d",
				len(vec), s.dimension)
		}

		if pos, ok := s.positions[chunk.ID]; ok {
			s.chunks[pos] = chunk
			s.vectors[pos] = vec
			continue
		}
		s.positions[chunk.ID] = len(s.chunks)
		s.chunks = append(s.chunks, chunk)
		s.vectors = append(s.vectors, vec)
	}
	return nil
}

// Search returns up to k records ranked by descending cosine
// similarity. Equal scores keep insertion order.
func (s *MemoryStore) Search(ctx context.Context, vector []float32, k int) ([]models.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.chunks) == 0 {
		return nil, errs.ErrIndexEmpty
	}
	if k <= 0 {
		k = 5
	}

	results := make([]models.SearchResult, 0, len(s.chunks))
	for i, chunk := range s.chunks {
		results = append(results, models.SearchResult{
			Chunk: chunk,
			Score: cosine(vector, s.vectors[i]),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}

func (s *MemoryStore) Close() {}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
