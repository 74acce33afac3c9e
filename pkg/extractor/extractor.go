package extractor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"

	"ragpipe/internal/models"
	"ragpipe/pkg/errs"
)

type ExtractorConfig struct {
	// DocIntel handles formats this package cannot parse locally
	// (scanned images, office documents). Optional; without it those
	// formats fail extraction.
	DocIntel *DocIntelClient
}

type Extractor struct {
	config ExtractorConfig
}

func NewWithConfig(config ExtractorConfig) *Extractor {
	return &Extractor{config: config}
}

// Extract converts a document's raw bytes into plain text, routing by
// file extension. Failures are errs.ErrExtractionFailed so the caller
// can skip the document and keep the batch going.
func (e *Extractor) Extract(ctx context.Context, doc models.Document) (string, error) {
	ext := strings.ToLower(filepath.Ext(doc.Name))

	switch ext {
	case ".txt", ".md":
		return cleanText(string(doc.Content)), nil
	case ".html", ".htm":
		text, err := extractHTML(doc.Content)
		if err != nil {
			return "", errs.ExtractionFailed(doc.Source, err)
		}
		return text, nil
	case ".pdf":
		text, err := extractPDF(doc.Content)
		if err != nil {
			return "", errs.ExtractionFailed(doc.Source, err)
		}
		return text, nil
	default:
		if e.config.DocIntel == nil {
			return "", errs.ExtractionFailed(doc.Source,
				fmt.Errorf("unsupported format %q and no document intelligence endpoint configured", ext))
		}
		return e.config.DocIntel.Analyze(ctx, doc.Content)
	}
}

func extractHTML(content []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return "", err
	}

	// Prefer a main content area over the full body
	selectors := []string{
		"main",
		"article",
		".content",
		"#content",
		".documentation",
		"#documentation",
	}

	var text string
	for _, selector := range selectors {
		if selected := doc.Find(selector); selected.Length() > 0 {
			text = selected.Text()
			break
		}
	}
	if text == "" {
		text = doc.Find("body").Text()
	}

	return cleanText(text), nil
}

func extractPDF(content []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", err
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return cleanText(buf.String()), nil
}

// cleanText collapses runs of whitespace into single spaces.
func cleanText(text string) string {
	return strings.TrimSpace(strings.Join(strings.Fields(text), " "))
}
