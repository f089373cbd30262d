// Package civicweb provides the HTTP client for a CivicWeb-style meeting
// publishing service. The service exposes three JSON operations: list
// meetings in a date range, fetch one meeting's metadata, and fetch one
// meeting's document set (including the rendered agenda HTML).
//
// Raw response bytes are returned alongside decoded values so callers can
// persist verbatim payloads for later re-parsing without re-fetching.
package civicweb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	cwerrors "github.com/civicwatch/civicwatch/pkg/errors"
)

const meetingsServicePath = "/Services/MeetingsService.svc/meetings"

// MeetingSummary is one entry of a date-range listing.
type MeetingSummary struct {
	ID   int64  `json:"Id"`
	Name string `json:"Name"`
	Date string `json:"Date"`
}

// MeetingData is the metadata payload for one meeting.
type MeetingData struct {
	Name                   string `json:"Name"`
	Location               string `json:"Location"`
	Time                   string `json:"Time"`
	TypeID                 int    `json:"TypeId"`
	MeetingExternalLinkURL string `json:"MeetingExternalLinkUrl"`
}

// MeetingDocument is one entry of a meeting's document set. The agenda
// container carries DocumentType 1 and a rendered HTML body.
type MeetingDocument struct {
	ID           int64  `json:"Id"`
	DocumentType int    `json:"DocumentType"`
	Title        string `json:"Title"`
	HTML         string `json:"Html"`
}

// AgendaHTML returns the rendered agenda markup from a document set, or ""
// when the meeting has no published agenda.
func AgendaHTML(docs []MeetingDocument) string {
	for _, d := range docs {
		if d.DocumentType == 1 && d.HTML != "" {
			return d.HTML
		}
	}
	return ""
}

// Client talks to one CivicWeb instance.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the given CivicWeb base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// ListMeetings lists the meetings scheduled in [from, to], both ISO dates.
// An empty upstream result is "no data", not an error.
func (c *Client) ListMeetings(ctx context.Context, from, to string) ([]MeetingSummary, []byte, error) {
	q := url.Values{}
	q.Set("from", from)
	q.Set("to", to)

	raw, err := c.get(ctx, meetingsServicePath+"?"+q.Encode())
	if err != nil {
		return nil, nil, err
	}
	if len(raw) == 0 {
		return nil, raw, nil
	}

	var meetings []MeetingSummary
	if err := json.Unmarshal(raw, &meetings); err != nil {
		// Some instances wrap a single object instead of an array.
		var one MeetingSummary
		if err2 := json.Unmarshal(raw, &one); err2 != nil {
			return nil, raw, fmt.Errorf("failed to decode meeting list: %w", err)
		}
		meetings = []MeetingSummary{one}
	}
	return meetings, raw, nil
}

// GetMeetingData fetches one meeting's metadata.
func (c *Client) GetMeetingData(ctx context.Context, meetingID int64) (*MeetingData, []byte, error) {
	raw, err := c.get(ctx, fmt.Sprintf("%s/%d/meetingData", meetingsServicePath, meetingID))
	if err != nil {
		return nil, nil, err
	}
	if len(raw) == 0 {
		return &MeetingData{}, raw, nil
	}

	var data MeetingData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, raw, fmt.Errorf("failed to decode meeting data for %d: %w", meetingID, err)
	}
	return &data, raw, nil
}

// GetMeetingDocuments fetches one meeting's document set.
func (c *Client) GetMeetingDocuments(ctx context.Context, meetingID int64) ([]MeetingDocument, []byte, error) {
	raw, err := c.get(ctx, fmt.Sprintf("%s/%d/meetingDocuments?$format=json", meetingsServicePath, meetingID))
	if err != nil {
		return nil, nil, err
	}
	if len(raw) == 0 {
		return nil, raw, nil
	}

	var docs []MeetingDocument
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, raw, fmt.Errorf("failed to decode meeting documents for %d: %w", meetingID, err)
	}
	return docs, raw, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %v: %w", path, err, cwerrors.ErrFetch)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("GET %s: status %d: %w", path, resp.StatusCode, cwerrors.ErrFetch)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("GET %s: read body: %v: %w", path, err, cwerrors.ErrFetch)
	}
	return body, nil
}
