package parser

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnsupportedType is returned for file types the pipeline cannot
// ingest. Callers surface it as a client error rather than a processing
// failure.
var ErrUnsupportedType = errors.New("unsupported file type")

// Result is the normalized output of parsing one uploaded file.
type Result struct {
	// Text is the extracted plain text. Page-structured formats
	// separate pages with form feeds.
	Text      string
	CharCount int
	PageCount int
	// Markdown marks content that kept Markdown structure, which
	// makes it eligible for section-based chunking.
	Markdown bool
}

// Parse extracts text from an uploaded document, dispatching on the
// declared content type with the file extension as a tiebreaker.
func Parse(data []byte, contentType, filename string) (*Result, error) {
	switch normalizeType(contentType, filename) {
	case "pdf":
		return parsePDF(data)
	case "md":
		text := string(data)
		return &Result{Text: text, CharCount: len(text), Markdown: true}, nil
	case "txt":
		text := string(data)
		return &Result{Text: text, CharCount: len(text)}, nil
	case "docx":
		return parseDOCX(data)
	case "xlsx":
		return parseXLSX(data)
	default:
		return nil, fmt.Errorf("%w: %s (%s)", ErrUnsupportedType, filepath.Ext(filename), contentType)
	}
}

func normalizeType(contentType, filename string) string {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	switch ct {
	case "application/pdf":
		return "pdf"
	case "text/markdown":
		return "md"
	case "text/plain":
		// Markdown frequently arrives as text/plain.
		if strings.EqualFold(filepath.Ext(filename), ".md") {
			return "md"
		}
		return "txt"
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return "docx"
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return "xlsx"
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "pdf"
	case ".md", ".markdown":
		return "md"
	case ".txt":
		return "txt"
	case ".docx":
		return "docx"
	case ".xlsx":
		return "xlsx"
	}
	return ""
}
