package fetcher

import (
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"rag-chatbot-platform/internal/config"

	"github.com/andybalholm/brotli"
)

func testConfig() *config.Config {
	return &config.Config{
		FetchTimeout:  5 * time.Second,
		RenderTimeout: 5 * time.Second,
		CrawlMaxPages: 5,
	}
}

func TestFetchFallsThroughToStatic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><body><p>hello from static</p></body></html>"))
	}))
	defer srv.Close()

	// No render providers configured, the chain ends at static fetch.
	page, err := New(testConfig()).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if page.Tier != "static" {
		t.Errorf("tier = %q", page.Tier)
	}
	if !strings.Contains(page.HTML, "hello from static") {
		t.Errorf("body = %q", page.HTML)
	}
}

func TestFetchStaticDecompressesGzip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		gz.Write([]byte("<html><body>gzipped page body</body></html>"))
		gz.Close()
		w.Header().Set("Content-Type", "text/html")
		w.Header().Set("Content-Encoding", "gzip")
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	page, err := New(testConfig()).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !strings.Contains(page.HTML, "gzipped page body") {
		t.Errorf("body not decompressed: %q", page.HTML)
	}
}

func TestFetchStaticDecompressesBrotli(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		br := brotli.NewWriter(&buf)
		br.Write([]byte("<html><body>brotli page body</body></html>"))
		br.Close()
		w.Header().Set("Content-Type", "text/html")
		w.Header().Set("Content-Encoding", "br")
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	page, err := New(testConfig()).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !strings.Contains(page.HTML, "brotli page body") {
		t.Errorf("body not decompressed: %q", page.HTML)
	}
}

func TestFetchStaticRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	if _, err := New(testConfig()).Fetch(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error for 404")
	}
}

func TestRenderProviderPreferred(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte("# Rendered Title\n\nRendered markdown body."))
	}))
	defer provider.Close()

	cfg := testConfig()
	cfg.RenderProviderURL = provider.URL
	cfg.RenderProviderKey = "test-key"

	page, err := New(cfg).Fetch(context.Background(), "http://example.com/app")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if page.Tier != "render_primary" {
		t.Errorf("tier = %q", page.Tier)
	}
	if !strings.Contains(page.Markdown, "Rendered markdown body.") {
		t.Errorf("markdown = %q", page.Markdown)
	}
	if page.Title != "Rendered Title" {
		t.Errorf("title = %q, want first heading", page.Title)
	}
}

func TestRenderProviderJSONResponse(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"title":"Floor Plans","markdown":"Two bedroom units.\n\n\n\n\nPet friendly building."}`))
	}))
	defer provider.Close()

	cfg := testConfig()
	cfg.RenderProviderURL = provider.URL
	cfg.RenderProviderKey = "test-key"

	page, err := New(cfg).Fetch(context.Background(), "http://example.com/plans")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if page.Title != "Floor Plans" {
		t.Errorf("title = %q", page.Title)
	}
	if page.Markdown != "Two bedroom units.\n\nPet friendly building." {
		t.Errorf("blank lines not collapsed: %q", page.Markdown)
	}
}

func TestStaticTargetSkipsRenderTiers(t *testing.T) {
	for _, u := range []string{
		"https://example.com/sitemap.xml",
		"https://example.com/robots.txt",
		"https://example.com/sitemap_index.xml",
	} {
		if !isStaticTarget(u) {
			t.Errorf("%s should bypass render tiers", u)
		}
	}
	if isStaticTarget("https://example.com/listings") {
		t.Error("html page should use the full chain")
	}
}

func TestNormalizeURL(t *testing.T) {
	if got := normalizeURL("https://example.com/about/#team"); got != "https://example.com/about" {
		t.Errorf("normalizeURL = %q", got)
	}
}

func TestIsCrawlableLink(t *testing.T) {
	for _, link := range []string{"https://example.com/a.pdf", "mailto:x@y.com", "tel:5551234567", "https://example.com/logo.png"} {
		if isCrawlableLink(link) {
			t.Errorf("%s should be skipped", link)
		}
	}
	if !isCrawlableLink("https://example.com/pricing") {
		t.Error("content link rejected")
	}
}
