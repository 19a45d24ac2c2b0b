package extractor

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Extraction is the distilled content of one HTML page.
type Extraction struct {
	Title string
	// Text is Markdown: structured entities first, then FAQ pairs,
	// then the page's generic content.
	Text string
	// EntityCount is how many structured entities JSON-LD yielded.
	EntityCount int
	// Warnings flag extraction quality problems worth surfacing on
	// the knowledge source.
	Warnings []string
}

const minExtractedLength = 100

// Extract distills an HTML page into Markdown for chunking. Structured
// data (JSON-LD entities, FAQ markup) is rendered first because it
// carries the highest-precision facts, then the generic page content is
// appended with anything already covered by an entity deduplicated
// away.
func Extract(html, pageURL string) (*Extraction, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	ex := &Extraction{Title: strings.TrimSpace(doc.Find("title").First().Text())}

	entities := extractJSONLD(doc)
	ex.EntityCount = len(entities)

	var blocks []string
	var fingerprints []string
	for _, e := range entities {
		blocks = append(blocks, e.render())
		fingerprints = append(fingerprints, e.fingerprints()...)
	}

	for _, pair := range extractFAQ(doc) {
		blocks = append(blocks, pair)
	}

	generic := extractGeneric(doc, pageURL, fingerprints)
	if generic != "" {
		blocks = append(blocks, generic)
	}

	text := strings.TrimSpace(strings.Join(blocks, "\n\n"))
	if len(text) < minExtractedLength {
		// Structured extraction came up empty, fall back to whatever
		// text the body holds.
		body := collapseWhitespace(doc.Find("body").Text())
		if len(body) > len(text) {
			text = body
		}
	}

	if len(text) < minExtractedLength {
		scripts := doc.Find("script").Length()
		if scripts > 5 {
			ex.Warnings = append(ex.Warnings, "page appears to be a client-rendered shell with no server-side content")
		} else {
			ex.Warnings = append(ex.Warnings, "page yielded very little text content")
		}
	}
	if ex.EntityCount == 0 && doc.Find(".listing, .property, .product, [itemtype*='Product'], [itemtype*='Offer']").Length() > 0 {
		ex.Warnings = append(ex.Warnings, "listing markup present but no structured entity data found")
	}

	ex.Text = text
	return ex, nil
}

// extractGeneric converts the page's main content region to Markdown,
// skipping blocks whose text is already covered by a structured entity.
func extractGeneric(doc *goquery.Document, pageURL string, fingerprints []string) string {
	base, _ := url.Parse(pageURL)

	content := doc.Clone()
	// details and dl blocks were already captured as FAQ pairs.
	content.Find("script, style, noscript, iframe, svg, form, nav, header, footer, aside, details, dl").Remove()

	// Prefer an explicit main-content region when the page marks one.
	root := content.Find("body")
	for _, selector := range []string{"main", "article", "[role='main']", "#content", ".content", ".main-content"} {
		if sel := content.Find(selector); sel.Length() > 0 {
			root = sel.First()
			break
		}
	}

	var r markdownRenderer
	r.base = base
	root.Contents().Each(func(_ int, s *goquery.Selection) {
		r.renderSelection(s)
	})

	var kept []string
	for _, block := range r.blocks() {
		if isDuplicateOfEntity(block, fingerprints) {
			continue
		}
		kept = append(kept, block)
	}
	return strings.Join(kept, "\n\n")
}

// isDuplicateOfEntity drops a generic block when its text already
// appears inside a structured entity, either direction of containment.
func isDuplicateOfEntity(block string, fingerprints []string) bool {
	flat := collapseWhitespace(stripMarkdown(block))
	if flat == "" {
		return true
	}
	for _, fp := range fingerprints {
		if len(fp) < 10 {
			continue
		}
		if strings.Contains(flat, fp) || strings.Contains(fp, flat) {
			return true
		}
	}
	return false
}

var (
	markdownLinkRe = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
)

func stripMarkdown(s string) string {
	s = markdownLinkRe.ReplaceAllString(s, "$1")
	s = strings.NewReplacer("#", "", "*", "", "- ", "").Replace(s)
	return s
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}
