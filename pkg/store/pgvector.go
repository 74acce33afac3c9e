package store

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"ragpipe/internal/models"
	"ragpipe/pkg/errs"
)

type VectorStoreConfig struct {
	ConnString string
	TableName  string
	VectorDim  int
}

// VectorStore persists embedding records in Postgres with the pgvector
// extension. Records are keyed by chunk ID; a monotonically assigned
// sequence column preserves first-insert order for tie breaking.
type VectorStore struct {
	config VectorStoreConfig
	pool   *pgxpool.Pool
}

func NewWithConfig(ctx context.Context, config VectorStoreConfig) (*VectorStore, error) {
	if config.TableName == "" {
		config.TableName = "chunks"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 768
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	vs := &VectorStore{
		config: config,
		pool:   pool,
	}

	if err := vs.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return vs, nil
}

func (vs *VectorStore) initialize(ctx context.Context) error {
	_, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %v", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			source TEXT NOT NULL,
			content TEXT,
			chunk_index INTEGER,
			token_count INTEGER,
			seq BIGSERIAL,
			embedding vector(%d)
		)`, vs.config.TableName, vs.config.VectorDim)

	_, err = vs.pool.Exec(ctx, createTable)
	if err != nil {
		return fmt.Errorf("failed to create table: %v", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		vs.config.TableName, vs.config.TableName)

	_, err = vs.pool.Exec(ctx, createIndex)
	if err != nil {
		return fmt.Errorf("failed to create index: %v", err)
	}

	return nil
}

// Upsert writes embedding records in one transaction. Re-ingesting a
// chunk ID replaces the record; seq is untouched on conflict, so the
// original insertion order survives re-ingestion.
func (vs *VectorStore) Upsert(ctx context.Context, chunks []models.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("store: %d chunks but %d vectors", len(chunks), len(vectors))
	}

	tx, err := vs.pool.Begin(ctx)
	if err != nil {
		return errs.TransientDependency("vector store", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, document_id, source, content, chunk_index, token_count, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			token_count = EXCLUDED.token_count,
			embedding = EXCLUDED.embedding`,
		vs.config.TableName)

	for i, chunk := range chunks {
		vec := vectors[i]
		if len(vec) != vs.config.VectorDim {
			return fmt.Errorf("store: vector dimension %d does not match index dimension %d",
				len(vec), vs.config.VectorDim)
		}

		_, err = tx.Exec(ctx, stmt,
			chunk.ID,
			chunk.DocumentID,
			chunk.Source,
			sanitizeUTF8(chunk.Text),
			chunk.Index,
			chunk.TokenCount,
			pgvector.NewVector(vec),
		)
		if err != nil {
			return errs.TransientDependency("vector store", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errs.TransientDependency("vector store", err)
	}

	return nil
}

// Search returns up to k records by descending cosine similarity, ties
// broken by insertion order.
func (vs *VectorStore) Search(ctx context.Context, vector []float32, k int) ([]models.SearchResult, error) {
	if k <= 0 {
		k = 5
	}

	query := fmt.Sprintf(`
		SELECT id, document_id, source, content, chunk_index, token_count,
		       1 - (embedding <=> $1) AS score
		FROM %s
		ORDER BY embedding <=> $1, seq
		LIMIT $2`,
		vs.config.TableName)

	rows, err := vs.pool.Query(ctx, query, pgvector.NewVector(vector), k)
	if err != nil {
		return nil, errs.TransientDependency("vector store", err)
	}
	defer rows.Close()

	var results []models.SearchResult
	for rows.Next() {
		var r models.SearchResult
		err := rows.Scan(
			&r.Chunk.ID,
			&r.Chunk.DocumentID,
			&r.Chunk.Source,
			&r.Chunk.Text,
			&r.Chunk.Index,
			&r.Chunk.TokenCount,
			&r.Score,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.TransientDependency("vector store", err)
	}

	// k >= 1 against a non-empty table always yields rows
	if len(results) == 0 {
		return nil, errs.ErrIndexEmpty
	}

	return results, nil
}

func (vs *VectorStore) Count(ctx context.Context) (int, error) {
	var count int
	query := fmt.Sprintf("SELECT count(*) FROM %s", vs.config.TableName)
	if err := vs.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, errs.TransientDependency("vector store", err)
	}
	return count, nil
}

func (vs *VectorStore) Close() {
	if vs.pool != nil {
		vs.pool.Close()
	}
}

func sanitizeUTF8(s string) string {
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for i, r := range s {
			if r == utf8.RuneError {
				_, size := utf8.DecodeRuneInString(s[i:])
				if size == 1 {
					continue
				}
			}
			v = append(v, r)
		}
		return string(v)
	}
	return s
}
