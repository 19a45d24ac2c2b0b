package extractor

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// markdownRenderer walks a DOM subtree and emits Markdown blocks.
// Headings keep their level, links become absolute so chunks stay
// useful outside the page, list items get dashes, everything else
// flattens to paragraphs.
type markdownRenderer struct {
	base *url.URL
	out  []string
}

func (r *markdownRenderer) blocks() []string {
	var blocks []string
	for _, b := range r.out {
		if strings.TrimSpace(b) != "" {
			blocks = append(blocks, strings.TrimSpace(b))
		}
	}
	return blocks
}

func (r *markdownRenderer) renderSelection(s *goquery.Selection) {
	for _, node := range s.Nodes {
		r.renderNode(node)
	}
}

func (r *markdownRenderer) renderNode(n *html.Node) {
	if n.Type == html.TextNode {
		if text := collapseWhitespace(n.Data); text != "" {
			r.out = append(r.out, text)
		}
		return
	}
	if n.Type != html.ElementNode {
		return
	}

	switch n.Data {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		level := int(n.Data[1] - '0')
		if text := collapseWhitespace(r.inlineText(n)); text != "" {
			r.out = append(r.out, strings.Repeat("#", level)+" "+text)
		}
	case "p", "blockquote", "figcaption", "caption":
		if text := collapseWhitespace(r.inlineText(n)); text != "" {
			r.out = append(r.out, text)
		}
	case "ul", "ol":
		var items []string
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == "li" {
				if text := collapseWhitespace(r.inlineText(c)); text != "" {
					items = append(items, "- "+text)
				}
			}
		}
		if len(items) > 0 {
			r.out = append(r.out, strings.Join(items, "\n"))
		}
	case "table":
		r.renderTable(n)
	case "br", "hr", "img", "button", "input", "select", "label":
		// No block content.
	default:
		// Containers: recurse into children.
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			r.renderNode(c)
		}
	}
}

// renderTable flattens rows into "cell | cell" lines.
func (r *markdownRenderer) renderTable(n *html.Node) {
	var rows []string
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && node.Data == "tr" {
			var cells []string
			for c := node.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
					if text := collapseWhitespace(r.inlineText(c)); text != "" {
						cells = append(cells, text)
					}
				}
			}
			if len(cells) > 0 {
				rows = append(rows, strings.Join(cells, " | "))
			}
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	if len(rows) > 0 {
		r.out = append(r.out, strings.Join(rows, "\n"))
	}
}

// inlineText renders the inline content of a node, turning anchors into
// Markdown links with absolute URLs.
func (r *markdownRenderer) inlineText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
			return
		}
		if node.Type != html.ElementNode {
			return
		}
		if node.Data == "a" {
			href := attrValue(node, "href")
			var label strings.Builder
			for c := node.FirstChild; c != nil; c = c.NextSibling {
				collectText(c, &label)
			}
			text := collapseWhitespace(label.String())
			abs := r.absoluteURL(href)
			if text != "" && abs != "" {
				sb.WriteString("[" + text + "](" + abs + ")")
			} else {
				sb.WriteString(text)
			}
			return
		}
		if node.Data == "br" {
			sb.WriteString(" ")
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	return sb.String()
}

func (r *markdownRenderer) absoluteURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if r.base == nil {
		return ref.String()
	}
	return r.base.ResolveReference(ref).String()
}

func collectText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb)
	}
}

func attrValue(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}
