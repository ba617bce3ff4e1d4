package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

// placeholderURL anchors relative links during readability extraction;
// uploaded files have no real origin.
var placeholderURL, _ = url.Parse("https://localhost/upload")

var markdownConverter = newMarkdownConverter()

func newMarkdownConverter() *md.Converter {
	c := md.NewConverter("", true, nil)
	c.Use(plugin.GitHubFlavored())
	return c
}

// extractContent pulls text out of an attachment for use as analysis
// context. Types with no extractor (e.g. PDF) upload with empty content.
func extractContent(f File) (string, error) {
	base := strings.TrimSpace(strings.SplitN(strings.ToLower(f.Type), ";", 2)[0])
	switch {
	case base == "application/json":
		if !json.Valid(f.Data) {
			return "", fmt.Errorf("file is not valid JSON")
		}
		return string(f.Data), nil
	case base == "text/html":
		return extractHTML(f.Data)
	case strings.HasPrefix(base, "text/"):
		return string(f.Data), nil
	default:
		return "", nil
	}
}

// extractHTML reduces an HTML document to markdown: readability isolates
// the main content, then the markdown converter flattens it. A document
// readability cannot parse falls back to plain text extraction.
func extractHTML(data []byte) (string, error) {
	article, err := readability.FromReader(bytes.NewReader(data), placeholderURL)
	if err != nil {
		return extractHTMLText(data)
	}
	markdown, err := markdownConverter.ConvertString(article.Content)
	if err != nil {
		return extractHTMLText(data)
	}
	markdown = strings.TrimSpace(markdown)
	if title := strings.TrimSpace(article.Title); title != "" {
		markdown = "# " + title + "\n\n" + markdown
	}
	return markdown, nil
}

// extractHTMLText walks the parse tree and concatenates text nodes,
// skipping script and style elements.
func extractHTMLText(data []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("parse HTML: %w", err)
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				b.WriteString(text)
				b.WriteString("\n")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.TrimSpace(b.String()), nil
}
