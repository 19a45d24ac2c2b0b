package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// parseXLSX flattens each sheet into labeled rows. When a sheet has a
// header row, cells render as "Header: value" pairs so column meaning
// survives into the chunk text.
func parseXLSX(data []byte) (*Result, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer f.Close()

	var sections []string
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}

		var sb strings.Builder
		sb.WriteString("# " + sheet + "\n")

		header := rows[0]
		if isHeaderRow(header) && len(rows) > 1 {
			for _, row := range rows[1:] {
				line := renderLabeledRow(header, row)
				if line != "" {
					sb.WriteString("\n" + line + "\n")
				}
			}
		} else {
			for _, row := range rows {
				line := strings.TrimSpace(strings.Join(row, " | "))
				if line != "" && line != "|" {
					sb.WriteString("\n" + line)
				}
			}
		}
		sections = append(sections, sb.String())
	}

	text := strings.TrimSpace(strings.Join(sections, "\n\n"))
	if text == "" {
		return nil, fmt.Errorf("xlsx contains no extractable text")
	}
	return &Result{Text: text, CharCount: len(text), Markdown: true}, nil
}

// isHeaderRow guesses whether a first row is a header: every non-empty
// cell is short text without digits.
func isHeaderRow(row []string) bool {
	nonEmpty := 0
	for _, cell := range row {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue
		}
		nonEmpty++
		if len(cell) > 40 || strings.ContainsAny(cell, "0123456789") {
			return false
		}
	}
	return nonEmpty > 0
}

func renderLabeledRow(header, row []string) string {
	var parts []string
	for i, cell := range row {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue
		}
		if i < len(header) && strings.TrimSpace(header[i]) != "" {
			parts = append(parts, strings.TrimSpace(header[i])+": "+cell)
		} else {
			parts = append(parts, cell)
		}
	}
	return strings.Join(parts, ". ")
}
