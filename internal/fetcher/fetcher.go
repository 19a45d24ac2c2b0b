package fetcher

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"rag-chatbot-platform/internal/config"
	"rag-chatbot-platform/internal/logger"

	"github.com/andybalholm/brotli"
	"github.com/chromedp/chromedp"
	"golang.org/x/net/html/charset"
)

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// Page is the outcome of fetching one URL through whichever tier
// succeeded first. Render tiers fill Markdown and Title, the HTML
// tiers fill HTML.
type Page struct {
	URL      string
	HTML     string
	Markdown string
	Title    string
	Tier     string
}

// Fetcher retrieves web pages through an ordered chain of providers:
// hosted render APIs first (they execute JavaScript and return clean
// Markdown), then a local headless browser, then a plain HTTP fetch
// with browser headers. A tier failing is routine, the next tier just
// takes over.
type Fetcher struct {
	cfg    *config.Config
	client *http.Client
}

func New(cfg *config.Config) *Fetcher {
	return &Fetcher{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.FetchTimeout,
			Transport: &http.Transport{
				DisableCompression: false,
			},
		},
	}
}

// Fetch runs the provider chain for one URL. Sitemaps and other
// non-HTML targets skip the render tiers, there is nothing for a
// browser to execute.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	if isStaticTarget(rawURL) {
		return f.fetchStatic(ctx, rawURL)
	}

	if f.cfg.RenderProviderKey != "" && f.cfg.RenderProviderURL != "" {
		page, err := f.fetchRendered(ctx, f.cfg.RenderProviderURL, f.cfg.RenderProviderKey, rawURL, "render_primary")
		if err == nil {
			return page, nil
		}
		logger.Debug("render provider failed, falling through", "url", rawURL, "error", err)
	}

	if f.cfg.FallbackProviderKey != "" && f.cfg.FallbackProviderURL != "" {
		page, err := f.fetchRendered(ctx, f.cfg.FallbackProviderURL, f.cfg.FallbackProviderKey, rawURL, "render_fallback")
		if err == nil {
			return page, nil
		}
		logger.Debug("fallback render provider failed, falling through", "url", rawURL, "error", err)
	}

	if f.cfg.LocalRenderEnabled {
		page, err := f.renderLocal(ctx, rawURL)
		if err == nil {
			return page, nil
		}
		logger.Debug("local render failed, falling through", "url", rawURL, "error", err)
	}

	return f.fetchStatic(ctx, rawURL)
}

// fetchRendered calls a hosted render API that loads the page in a real
// browser and returns Markdown.
func (f *Fetcher) fetchRendered(ctx context.Context, providerURL, key, target, tier string) (*Page, error) {
	endpoint := providerURL + "?url=" + url.QueryEscape(target)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Accept", "text/markdown")

	client := &http.Client{Timeout: f.cfg.RenderTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("render provider returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, err
	}

	markdown := string(body)
	var title string
	if strings.Contains(resp.Header.Get("Content-Type"), "json") {
		var parsed struct {
			Markdown string `json:"markdown"`
			Content  string `json:"content"`
			Title    string `json:"title"`
		}
		if err := json.Unmarshal(body, &parsed); err != nil {
			return nil, fmt.Errorf("render provider returned invalid JSON: %w", err)
		}
		markdown = parsed.Markdown
		if markdown == "" {
			markdown = parsed.Content
		}
		title = parsed.Title
	}

	markdown = normalizeMarkdown(markdown)
	if markdown == "" {
		return nil, fmt.Errorf("render provider returned empty body")
	}
	if title == "" {
		title = markdownTitle(markdown)
	}
	return &Page{URL: target, Markdown: markdown, Title: title, Tier: tier}, nil
}

var blankRunRe = regexp.MustCompile(`\n[ \t]*\n[\s]*\n`)

// normalizeMarkdown trims the document and collapses runs of blank
// lines down to single paragraph breaks.
func normalizeMarkdown(markdown string) string {
	return blankRunRe.ReplaceAllString(strings.TrimSpace(markdown), "\n\n")
}

// markdownTitle pulls the first top-level heading, if any.
func markdownTitle(markdown string) string {
	for _, line := range strings.Split(markdown, "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, "# "); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}

// renderLocal launches a headless browser, waits for readiness, then
// reads the rendered HTML.
func (f *Fetcher) renderLocal(ctx context.Context, rawURL string) (*Page, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.RenderTimeout)
	defer cancel()

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx,
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.UserAgent(browserUserAgent),
	)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	if err := chromedp.Run(browserCtx, chromedp.Navigate(rawURL)); err != nil {
		return nil, err
	}

	// Soft-fail readiness wait, some pages never settle.
	stepCtx, cancelStep := context.WithTimeout(browserCtx, 10*time.Second)
	_ = chromedp.Run(stepCtx, chromedp.WaitReady("body", chromedp.ByQuery))
	cancelStep()

	var html string
	if err := chromedp.Run(browserCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, err
	}
	if strings.TrimSpace(html) == "" {
		return nil, fmt.Errorf("headless render produced empty document")
	}
	return &Page{URL: rawURL, HTML: html, Tier: "render_local"}, nil
}

// fetchStatic does a plain GET with browser headers. Setting
// Accept-Encoding by hand disables the transport's automatic gzip
// handling, so both gzip and brotli are decompressed here, then the
// body is decoded to UTF-8 based on the declared charset.
func (f *Fetcher) fetchStatic(ctx context.Context, rawURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "gzip, br")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch returned %d for %s", resp.StatusCode, rawURL)
	}

	var bodyReader io.Reader = io.LimitReader(resp.Body, 10<<20)
	switch {
	case strings.Contains(resp.Header.Get("Content-Encoding"), "br"):
		bodyReader = brotli.NewReader(bodyReader)
	case strings.Contains(resp.Header.Get("Content-Encoding"), "gzip"):
		gz, err := gzip.NewReader(bodyReader)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress response: %w", err)
		}
		defer gz.Close()
		bodyReader = gz
	}

	contentType := resp.Header.Get("Content-Type")
	if utf8Reader, err := charset.NewReader(bodyReader, contentType); err == nil {
		bodyReader = utf8Reader
	}

	body, err := io.ReadAll(bodyReader)
	if err != nil {
		return nil, err
	}
	return &Page{URL: rawURL, HTML: string(body), Tier: "static"}, nil
}

// isStaticTarget reports whether a URL points at machine-readable
// content that render tiers would only mangle.
func isStaticTarget(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	path := strings.ToLower(u.Path)
	return strings.HasSuffix(path, ".xml") ||
		strings.HasSuffix(path, ".txt") ||
		strings.HasSuffix(path, "/robots.txt") ||
		strings.Contains(path, "sitemap")
}
