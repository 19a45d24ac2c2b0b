package parser

import (
	"archive/zip"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestParsePlainTextExactPassthrough(t *testing.T) {
	content := "Line one.\n\nLine two with trailing spaces.  \n"
	res, err := Parse([]byte(content), "text/plain", "notes.txt")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.Text != content {
		t.Errorf("text was altered: %q", res.Text)
	}
	if res.CharCount != len(content) {
		t.Errorf("char count = %d, want %d", res.CharCount, len(content))
	}
	if res.Markdown {
		t.Error("plain text flagged as markdown")
	}
}

func TestParseMarkdownByExtension(t *testing.T) {
	res, err := Parse([]byte("# Title\n\nBody."), "text/plain", "README.md")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !res.Markdown {
		t.Error("md extension not detected under text/plain")
	}
}

func TestParseUnsupportedType(t *testing.T) {
	_, err := Parse([]byte("binary"), "image/png", "photo.png")
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestParseCorruptPDF(t *testing.T) {
	if _, err := Parse([]byte("not a pdf at all"), "application/pdf", "doc.pdf"); err == nil {
		t.Fatal("expected error for corrupt pdf")
	}
}

func TestParseDOCX(t *testing.T) {
	body := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>
    <w:p><w:r><w:t>Second </w:t></w:r><w:r><w:t>paragraph.</w:t></w:r></w:p>
  </w:body>
</w:document>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(body)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	res, err := Parse(buf.Bytes(),
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "doc.docx")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !strings.Contains(res.Text, "First paragraph.") {
		t.Errorf("missing first paragraph: %q", res.Text)
	}
	if !strings.Contains(res.Text, "Second paragraph.") {
		t.Errorf("split runs not joined: %q", res.Text)
	}
	if !strings.Contains(res.Text, "First paragraph.\n\nSecond") {
		t.Errorf("paragraph break missing: %q", res.Text)
	}
}

func TestParseXLSXWithHeaderRow(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	f.SetCellValue(sheet, "A1", "Unit")
	f.SetCellValue(sheet, "B1", "Rent")
	f.SetCellValue(sheet, "A2", "204")
	f.SetCellValue(sheet, "B2", "$1,250")

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}

	res, err := Parse(buf.Bytes(),
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "units.xlsx")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !strings.Contains(res.Text, "Unit: 204") || !strings.Contains(res.Text, "Rent: $1,250") {
		t.Errorf("header labels not applied: %q", res.Text)
	}
}
