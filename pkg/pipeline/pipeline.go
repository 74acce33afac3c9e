package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"

	"ragpipe/internal/models"
	"ragpipe/internal/types"
	"ragpipe/pkg/errs"
)

type Config struct {
	// BatchSize bounds how many chunks are embedded and upserted per
	// round trip during ingestion.
	BatchSize int
	// TopK is the default retrieval depth when the caller passes 0.
	TopK int
	// OnProgress, when set, is called once per completed pipeline step
	// so the CLI can drive progress bars.
	OnProgress func(stage string)
}

// Pipeline wires the stages together: fetch, extract, chunk, embed,
// store at ingest time; embed, search, generate at query time. The
// ordering is this explicit sequence, nothing runs implicitly.
type Pipeline struct {
	config    Config
	fetcher   types.Fetcher
	extractor types.Extractor
	chunker   types.Chunker
	embedder  types.Embedder
	store     types.VectorStore
	generator types.Generator
}

func New(config Config, fetcher types.Fetcher, extractor types.Extractor,
	chunker types.Chunker, embedder types.Embedder,
	store types.VectorStore, generator types.Generator) *Pipeline {

	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if config.TopK <= 0 {
		config.TopK = 5
	}

	return &Pipeline{
		config:    config,
		fetcher:   fetcher,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		store:     store,
		generator: generator,
	}
}

// Ingest runs the offline half of the pipeline over every document in
// the source. One document's failure is recorded and skipped; the rest
// of the batch always continues.
func (p *Pipeline) Ingest(ctx context.Context) (models.IngestReport, error) {
	var report models.IngestReport

	names, err := p.fetcher.List(ctx)
	if err != nil {
		return report, err
	}

	for _, name := range names {
		doc, err := p.fetcher.Fetch(ctx, name)
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			report.Failures = append(report.Failures, models.IngestFailure{
				Source: name,
				Reason: err.Error(),
			})
			log.Printf("ingest: fetch %s: %v", name, err)
			continue
		}
		report.Fetched++
		p.progress("fetch")

		text, err := p.extractor.Extract(ctx, doc)
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			report.Failures = append(report.Failures, models.IngestFailure{
				Source: doc.Source,
				Reason: err.Error(),
			})
			log.Printf("ingest: extract %s: %v", doc.Source, err)
			continue
		}
		doc.Text = text
		doc.Content = nil
		report.Extracted++
		p.progress("extract")

		chunks := p.chunker.Chunk(doc)
		if len(chunks) == 0 {
			continue
		}

		if err := p.embedAndStore(ctx, chunks); err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			report.Failures = append(report.Failures, models.IngestFailure{
				Source: doc.Source,
				Reason: err.Error(),
			})
			log.Printf("ingest: index %s: %v", doc.Source, err)
			continue
		}
		report.Chunks += len(chunks)
		p.progress("index")
	}

	return report, nil
}

func (p *Pipeline) embedAndStore(ctx context.Context, chunks []models.Chunk) error {
	for start := 0; start < len(chunks); start += p.config.BatchSize {
		end := start + p.config.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Text
		}

		vectors, err := p.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return err
		}
		if err := p.store.Upsert(ctx, batch, vectors); err != nil {
			return err
		}
	}
	return nil
}

// Retrieve embeds the query and returns the k most similar chunks.
// An empty index surfaces as errs.ErrIndexEmpty, not a crash.
func (p *Pipeline) Retrieve(ctx context.Context, query string, k int) ([]models.SearchResult, error) {
	if k <= 0 {
		k = p.config.TopK
	}

	vector, err := p.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	return p.store.Search(ctx, vector, k)
}

// Answer runs retrieve-then-generate for one query. It returns the
// answer text alongside the chunks that grounded it. An empty index
// yields no results and no answer.
func (p *Pipeline) Answer(ctx context.Context, query string, k int) (string, []models.SearchResult, error) {
	results, err := p.Retrieve(ctx, query, k)
	if err != nil {
		if errors.Is(err, errs.ErrIndexEmpty) {
			return "", nil, nil
		}
		return "", nil, err
	}

	answer, err := p.generator.Answer(ctx, query, results)
	if err != nil {
		return "", results, fmt.Errorf("generation failed: %w", err)
	}
	return answer, results, nil
}

// AnswerStream is Answer with an incrementally delivered response.
func (p *Pipeline) AnswerStream(ctx context.Context, query string, k int) (<-chan string, []models.SearchResult, error) {
	results, err := p.Retrieve(ctx, query, k)
	if err != nil {
		if errors.Is(err, errs.ErrIndexEmpty) {
			empty := make(chan string)
			close(empty)
			return empty, nil, nil
		}
		return nil, nil, err
	}

	stream, err := p.generator.AnswerStream(ctx, query, results)
	if err != nil {
		return nil, results, fmt.Errorf("generation failed: %w", err)
	}
	return stream, results, nil
}

func (p *Pipeline) progress(stage string) {
	if p.config.OnProgress != nil {
		p.config.OnProgress(stage)
	}
}
