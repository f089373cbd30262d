// Package doctext downloads meeting documents and extracts searchable
// text from them. PDF text comes through an optional extractor
// capability; HTML is flattened locally. Like minutes extraction, every
// failure mode degrades to a status code.
package doctext

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/civicwatch/civicwatch/pkg/logging"
	"github.com/civicwatch/civicwatch/pkg/textutil"
)

// Extraction statuses.
const (
	StatusOK                 = "ok"
	StatusMissingURL         = "missing_url"
	StatusDownloadFailed     = "download_failed"
	StatusUnsupportedContent = "unsupported_content"
	StatusHTMLParseEmpty     = "html_parse_empty"
	StatusParserUnavailable  = "parser_unavailable"
	StatusParseFailed        = "parse_failed"
)

const (
	// excerptLimit caps the stored excerpt, in bytes.
	excerptLimit = 5000
	// pdfPages is how many leading pages feed the extraction.
	pdfPages = 8
)

// TextExtractor turns a binary document into a page count and leading
// text. Shared shape with the minutes extractor; each package declares
// the capability it consumes.
type TextExtractor interface {
	Extract(data []byte, maxPages int) (pageCount int, text string, err error)
}

// Extraction is the stored text-extraction result for one document.
type Extraction struct {
	MeetingID   int64
	DocumentID  int64
	Title       string
	URL         string
	ContentType string
	TextExcerpt string
	TextLength  int
	Status      string
}

// Extractor fetches documents and produces text extractions.
type Extractor struct {
	client *http.Client
	pdf    TextExtractor
	logger logging.Logger
}

// NewExtractor creates a document text extractor. pdf may be nil.
func NewExtractor(client *http.Client, pdf TextExtractor, logger logging.Logger) *Extractor {
	if client == nil {
		client = http.DefaultClient
	}
	return &Extractor{
		client: client,
		pdf:    pdf,
		logger: logger.With(logging.F("component", "doctext_extractor")),
	}
}

// Extract downloads one document and extracts its text. The error return
// is reserved for context cancellation; everything else maps to a status.
func (e *Extractor) Extract(ctx context.Context, title, url string) (Extraction, error) {
	normalizedTitle := textutil.Normalize(title)
	normalizedURL := textutil.Normalize(url)
	out := Extraction{Title: normalizedTitle, URL: normalizedURL}

	if normalizedURL == "" {
		out.Status = StatusMissingURL
		return out, nil
	}

	body, contentType, err := e.download(ctx, normalizedURL)
	if err != nil {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		e.logger.Warn("document download failed",
			logging.F("url", normalizedURL), logging.Err(err))
		out.Status = StatusDownloadFailed
		return out, nil
	}
	out.ContentType = contentType

	text, status := e.extractBody(body, contentType, normalizedURL)
	out.Status = status
	if status == StatusOK && out.ContentType == "" {
		if looksHTML(string(body), contentType) {
			out.ContentType = "text/html"
		} else {
			out.ContentType = "text/plain"
		}
	}

	// Keep the title in context for entity extraction when body text is
	// sparse.
	if normalizedTitle != "" && !strings.Contains(text, normalizedTitle) {
		text = textutil.Normalize(normalizedTitle + " " + text)
	}
	text = textutil.Normalize(text)

	out.TextExcerpt = textutil.Snippet(text, excerptLimit)
	out.TextLength = utf8.RuneCountInString(text)
	return out, nil
}

func (e *Extractor) extractBody(body []byte, contentType, url string) (string, string) {
	if strings.Contains(contentType, "pdf") || strings.HasSuffix(strings.ToLower(url), ".pdf") {
		if e.pdf == nil {
			return "", StatusParserUnavailable
		}
		_, text, err := e.pdf.Extract(body, pdfPages)
		if err != nil {
			return "", StatusParseFailed
		}
		return textutil.Normalize(text), StatusOK
	}

	decoded := string(body)
	if looksHTML(decoded, contentType) {
		text := FlattenHTML(decoded)
		if text == "" {
			return "", StatusHTMLParseEmpty
		}
		return text, StatusOK
	}
	if normalized := textutil.Normalize(decoded); normalized != "" {
		return normalized, StatusOK
	}
	return "", StatusUnsupportedContent
}

func looksHTML(decoded, contentType string) bool {
	lower := strings.ToLower(decoded)
	return strings.Contains(lower, "<html") ||
		strings.Contains(contentType, "text/html") ||
		strings.Contains(lower, "aspose.words")
}

// FlattenHTML strips markup and returns the visible text with whitespace
// collapsed. Script, style, and noscript subtrees are dropped.
func FlattenHTML(markup string) string {
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return ""
	}
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			}
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return textutil.Normalize(b.String())
}

func (e *Extractor) download(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read body: %w", err)
	}

	contentType := strings.ToLower(strings.TrimSpace(
		strings.SplitN(resp.Header.Get("Content-Type"), ";", 2)[0]))
	return body, contentType, nil
}
