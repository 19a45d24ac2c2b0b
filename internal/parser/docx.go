package parser

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// parseDOCX reads word/document.xml out of the package and walks the
// XML stream, collecting run text and mapping paragraph ends to blank
// lines.
func parseDOCX(data []byte) (*Result, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open docx: %w", err)
	}

	var doc io.ReadCloser
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc, err = f.Open()
			if err != nil {
				return nil, fmt.Errorf("failed to read docx body: %w", err)
			}
			break
		}
	}
	if doc == nil {
		return nil, fmt.Errorf("docx has no document body")
	}
	defer doc.Close()

	var sb strings.Builder
	decoder := xml.NewDecoder(doc)
	inText := false
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("malformed docx body: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteString("\n\n")
			case "br", "cr":
				sb.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return nil, fmt.Errorf("docx contains no extractable text")
	}
	return &Result{Text: text, CharCount: len(text)}, nil
}
