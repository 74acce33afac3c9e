package processor

import (
	"fmt"
	"strings"

	"ragpipe/internal/models"
)

type ProcessorConfig struct {
	// ChunkSize is the maximum chunk length in runes.
	ChunkSize int
	// ChunkOverlap is how many trailing runes of one chunk reappear at
	// the start of the next.
	ChunkOverlap int
}

// Processor splits extracted text into fixed-size overlapping chunks.
// Chunks are cut on hard rune boundaries: for size S and overlap O the
// windows are [0,S), [S-O,2S-O), ... with the last one shorter. Dropping
// the first O runes of every chunk after the first reconstructs the
// input exactly.
type Processor struct {
	config ProcessorConfig
}

func NewWithConfig(config ProcessorConfig) Processor {
	if config.ChunkSize <= 0 {
		config.ChunkSize = 1000
	}
	if config.ChunkOverlap < 0 {
		config.ChunkOverlap = 0
	}
	if config.ChunkOverlap >= config.ChunkSize {
		config.ChunkOverlap = config.ChunkSize / 5
	}

	return Processor{config: config}
}

// Chunk splits one document's extracted text. Empty text yields no
// chunks; text at or under the size limit yields exactly one.
func (p Processor) Chunk(doc models.Document) []models.Chunk {
	spans := p.Split(doc.Text)

	chunks := make([]models.Chunk, 0, len(spans))
	for i, span := range spans {
		chunks = append(chunks, models.Chunk{
			ID:         fmt.Sprintf("%s_%d", doc.ID, i),
			DocumentID: doc.ID,
			Source:     doc.Source,
			Index:      i,
			Text:       span,
			TokenCount: len(strings.Fields(span)),
		})
	}
	return chunks
}

// Split returns the raw window texts in original order.
func (p Processor) Split(text string) []string {
	if text == "" {
		return nil
	}

	runes := []rune(text)
	size := p.config.ChunkSize
	if len(runes) <= size {
		return []string{text}
	}

	stride := size - p.config.ChunkOverlap
	var spans []string
	for start := 0; ; start += stride {
		end := start + size
		if end >= len(runes) {
			spans = append(spans, string(runes[start:]))
			break
		}
		spans = append(spans, string(runes[start:end]))
	}
	return spans
}

// Reassemble inverts Split: it concatenates spans after removing each
// one's leading overlap. Used by tests to assert nothing is dropped.
func (p Processor) Reassemble(spans []string) string {
	var b strings.Builder
	for i, span := range spans {
		runes := []rune(span)
		if i > 0 {
			if len(runes) < p.config.ChunkOverlap {
				runes = nil
			} else {
				runes = runes[p.config.ChunkOverlap:]
			}
		}
		b.WriteString(string(runes))
	}
	return b.String()
}
