package collector

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// WebSource harvests visible text from one web page.
type WebSource struct {
	url    string
	client *http.Client
}

// NewWebSource creates a WebSource for url.
func NewWebSource(url string) *WebSource {
	return &WebSource{
		url:    url,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// Name returns the page URL.
func (s *WebSource) Name() string { return s.url }

// Collect fetches the page and extracts paragraph-level text.
func (s *WebSource) Collect(ctx context.Context) ([]Sample, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("collector: build request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("collector: fetch %s: %w", s.url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("collector: fetch %s: status %d", s.url, resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("collector: parse %s: %w", s.url, err)
	}

	now := time.Now().UTC()
	var samples []Sample
	for _, text := range extractText(doc) {
		samples = append(samples, Sample{Source: s.url, Text: text, CollectedAt: now})
	}
	return samples, nil
}

// textTags are the elements whose text content is worth harvesting.
var textTags = map[string]bool{
	"p": true, "li": true, "h1": true, "h2": true, "h3": true,
	"td": true, "blockquote": true,
}

// skipTags never contribute text, whatever they contain.
var skipTags = map[string]bool{
	"script": true, "style": true, "noscript": true,
}

// extractText walks the DOM and returns the trimmed text of content-bearing
// elements, skipping fragments too short to be useful.
func extractText(n *html.Node) []string {
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if skipTags[n.Data] {
				return
			}
			if textTags[n.Data] {
				if text := strings.TrimSpace(nodeText(n)); len(text) >= 20 {
					out = append(out, text)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && skipTags[c.Data] {
				continue
			}
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
