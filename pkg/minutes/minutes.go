// Package minutes detects minutes-like meeting documents and extracts
// lightweight metadata from them: a detected meeting date, a page count,
// and a leading text excerpt. Extraction failures degrade to a status
// code; they are never fatal to an ingest.
package minutes

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/civicwatch/civicwatch/pkg/logging"
	"github.com/civicwatch/civicwatch/pkg/textutil"
)

// Extraction statuses.
const (
	StatusOK                = "ok"
	StatusNotMinutes        = "not_minutes"
	StatusNonPDF            = "minutes_non_pdf"
	StatusDownloadFailed    = "download_failed"
	StatusParserUnavailable = "parser_unavailable"
	StatusParseFailed       = "parse_failed"
)

// excerptLimit caps the stored text excerpt, in bytes.
const excerptLimit = 1200

// excerptPages is how many leading pages feed the excerpt.
const excerptPages = 2

var minutesRE = regexp.MustCompile(`(?i)\b(meeting\s+minutes?|minutes?)\b`)

// IsMinutesDocument reports whether a document title looks like meeting
// minutes.
func IsMinutesDocument(title string) bool {
	return minutesRE.MatchString(textutil.Normalize(title))
}

// TextExtractor turns a binary document into a page count and leading
// text. A nil extractor or ErrExtractorUnavailable degrades the result to
// StatusParserUnavailable.
type TextExtractor interface {
	Extract(data []byte, maxPages int) (pageCount int, text string, err error)
}

// Metadata is the extraction result for one minutes-like document.
type Metadata struct {
	MeetingID    int64
	DocumentID   int64
	Title        string
	URL          string
	DetectedDate string
	PageCount    *int
	TextExcerpt  string
	Status       string
}

// Extractor fetches minutes documents and extracts their metadata.
type Extractor struct {
	client *http.Client
	pdf    TextExtractor
	logger logging.Logger
}

// NewExtractor creates a minutes extractor. pdf may be nil when no PDF
// parsing capability is deployed.
func NewExtractor(client *http.Client, pdf TextExtractor, logger logging.Logger) *Extractor {
	if client == nil {
		client = http.DefaultClient
	}
	return &Extractor{
		client: client,
		pdf:    pdf,
		logger: logger.With(logging.F("component", "minutes_extractor")),
	}
}

// Extract computes minutes metadata for one document. Every failure mode
// maps to a status; the error return is reserved for context
// cancellation.
func (e *Extractor) Extract(ctx context.Context, title, url string) (Metadata, error) {
	normalizedTitle := textutil.Normalize(title)
	normalizedURL := textutil.Normalize(url)
	meta := Metadata{Title: normalizedTitle, URL: normalizedURL}

	if !IsMinutesDocument(normalizedTitle) {
		meta.Status = StatusNotMinutes
		return meta, nil
	}

	meta.DetectedDate = textutil.FindLongDate(normalizedTitle)

	if !strings.Contains(strings.ToLower(normalizedURL), ".pdf") {
		meta.Status = StatusNonPDF
		return meta, nil
	}

	body, err := e.download(ctx, normalizedURL)
	if err != nil {
		if ctx.Err() != nil {
			return meta, ctx.Err()
		}
		e.logger.Warn("minutes download failed",
			logging.F("url", normalizedURL), logging.Err(err))
		meta.Status = StatusDownloadFailed
		return meta, nil
	}

	if e.pdf == nil {
		meta.Status = StatusParserUnavailable
		return meta, nil
	}

	pageCount, text, err := e.pdf.Extract(body, excerptPages)
	if err != nil {
		e.logger.Warn("minutes parse failed",
			logging.F("url", normalizedURL), logging.Err(err))
		meta.Status = StatusParseFailed
		return meta, nil
	}

	meta.PageCount = &pageCount
	meta.TextExcerpt = textutil.Snippet(textutil.Normalize(text), excerptLimit)
	meta.Status = StatusOK

	if meta.DetectedDate == "" && meta.TextExcerpt != "" {
		meta.DetectedDate = textutil.FindLongDate(meta.TextExcerpt)
	}
	return meta, nil
}

func (e *Extractor) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	return body, nil
}
