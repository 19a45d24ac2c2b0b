package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// parsePDF extracts text page by page, joining pages with form feeds so
// downstream chunking can stay page-scoped.
func parsePDF(data []byte) (*Result, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}

	numPages := reader.NumPage()
	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page should not sink the whole
			// document.
			pages = append(pages, "")
			continue
		}
		pages = append(pages, strings.TrimSpace(text))
	}

	joined := strings.Join(pages, "\f")
	if strings.TrimSpace(strings.ReplaceAll(joined, "\f", "")) == "" {
		return nil, fmt.Errorf("pdf contains no extractable text")
	}

	return &Result{
		Text:      joined,
		CharCount: len(joined),
		PageCount: numPages,
	}, nil
}
