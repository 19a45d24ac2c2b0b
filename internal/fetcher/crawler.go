package fetcher

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"rag-chatbot-platform/internal/logger"

	"github.com/andybalholm/brotli"
	colly "github.com/gocolly/colly/v2"
	"golang.org/x/net/html/charset"
)

// Crawl walks a site breadth-first from startURL, staying on the same
// host and collecting up to maxPages HTML pages. Pages come back in
// discovery order with the start page first.
func (f *Fetcher) Crawl(startURL string, maxPages int) ([]Page, error) {
	start, err := url.Parse(startURL)
	if err != nil {
		return nil, fmt.Errorf("invalid start url: %w", err)
	}
	if maxPages <= 0 {
		maxPages = f.cfg.CrawlMaxPages
	}

	var (
		mu      sync.Mutex
		pages   []Page
		visited = make(map[string]bool)
	)

	c := colly.NewCollector(
		colly.AllowedDomains(start.Hostname()),
		colly.MaxDepth(3),
		colly.Async(true),
	)
	c.UserAgent = browserUserAgent
	c.SetRequestTimeout(f.cfg.FetchTimeout)
	c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 2,
		Delay:       200 * time.Millisecond,
	})

	c.OnResponse(func(r *colly.Response) {
		contentType := r.Headers.Get("Content-Type")
		if contentType != "" && !strings.Contains(contentType, "text/html") &&
			!strings.Contains(contentType, "application/xhtml+xml") {
			return
		}

		var bodyReader io.Reader = bytes.NewReader(r.Body)
		if strings.Contains(r.Headers.Get("Content-Encoding"), "br") {
			if decompressed, err := io.ReadAll(brotli.NewReader(bodyReader)); err == nil {
				r.Body = decompressed
				bodyReader = bytes.NewReader(decompressed)
			}
		}
		if utf8Reader, err := charset.NewReader(bodyReader, contentType); err == nil {
			if decoded, err := io.ReadAll(utf8Reader); err == nil && len(decoded) > 0 {
				r.Body = decoded
			}
		}

		pageURL := normalizeURL(r.Request.URL.String())

		mu.Lock()
		defer mu.Unlock()
		if visited[pageURL] || len(pages) >= maxPages {
			return
		}
		visited[pageURL] = true
		pages = append(pages, Page{URL: pageURL, HTML: string(r.Body), Tier: "crawl"})
	})

	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		link := normalizeURL(e.Request.AbsoluteURL(e.Attr("href")))
		if link == "" || !isCrawlableLink(link) {
			return
		}

		mu.Lock()
		full := len(pages) >= maxPages
		seen := visited[link]
		mu.Unlock()
		if full || seen {
			return
		}
		e.Request.Visit(link)
	})

	c.OnError(func(r *colly.Response, err error) {
		logger.Debug("crawl request failed", "url", r.Request.URL.String(), "error", err)
	})

	if err := c.Visit(startURL); err != nil {
		return nil, err
	}
	c.Wait()

	if len(pages) == 0 {
		return nil, fmt.Errorf("crawl of %s yielded no pages", startURL)
	}
	return pages, nil
}

// normalizeURL strips fragments and trailing slashes so the same page
// is never visited twice under different spellings.
func normalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	u.Fragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")
	return u.String()
}

// isCrawlableLink filters out binary assets and non-content paths.
func isCrawlableLink(link string) bool {
	lower := strings.ToLower(link)
	for _, ext := range []string{".pdf", ".jpg", ".jpeg", ".png", ".gif", ".svg", ".css", ".js", ".zip", ".ico", ".woff", ".woff2", ".mp4", ".webp"} {
		if strings.HasSuffix(lower, ext) {
			return false
		}
	}
	for _, prefix := range []string{"mailto:", "tel:", "javascript:"} {
		if strings.HasPrefix(lower, prefix) {
			return false
		}
	}
	return true
}
