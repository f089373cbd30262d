package minutes

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicwatch/civicwatch/pkg/logging"
)

type fakePDF struct {
	pageCount int
	text      string
	err       error
}

func (f *fakePDF) Extract(data []byte, maxPages int) (int, string, error) {
	if f.err != nil {
		return 0, "", f.err
	}
	return f.pageCount, f.text, nil
}

func TestIsMinutesDocument(t *testing.T) {
	tests := []struct {
		title string
		want  bool
	}{
		{title: "City Council Budget Work Session - February 7, 2026 - Minutes - Pdf", want: true},
		{title: "Meeting Minutes", want: true},
		{title: "minutes", want: true},
		{title: "Approve Resolution 052-2026", want: false},
		{title: "Agenda Packet", want: false},
		{title: "", want: false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsMinutesDocument(tt.title), tt.title)
	}
}

func TestExtractNotMinutes(t *testing.T) {
	e := NewExtractor(nil, nil, logging.NewNopLogger())

	meta, err := e.Extract(context.Background(),
		"Approve Resolution 052-2026", "https://example.test/document/148875/sample.pdf")
	require.NoError(t, err)
	assert.Equal(t, StatusNotMinutes, meta.Status)
	assert.Equal(t, "", meta.DetectedDate)
}

func TestExtractDateSurvivesDownloadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	e := NewExtractor(srv.Client(), &fakePDF{}, logging.NewNopLogger())
	meta, err := e.Extract(context.Background(),
		"City Council Budget Work Session - February 7, 2026 - Minutes - Pdf",
		srv.URL+"/document/149076/session.pdf")
	require.NoError(t, err)
	assert.Equal(t, StatusDownloadFailed, meta.Status)
	assert.Equal(t, "2026-02-07", meta.DetectedDate)
	assert.Nil(t, meta.PageCount)
}

func TestExtractNonPDFURL(t *testing.T) {
	e := NewExtractor(nil, nil, logging.NewNopLogger())

	meta, err := e.Extract(context.Background(),
		"Planning Commission Minutes - January 13, 2026",
		"https://example.test/document/149000/view")
	require.NoError(t, err)
	assert.Equal(t, StatusNonPDF, meta.Status)
	assert.Equal(t, "2026-01-13", meta.DetectedDate)
}

func TestExtractParserUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("%PDF-1.7 fake"))
	}))
	defer srv.Close()

	e := NewExtractor(srv.Client(), nil, logging.NewNopLogger())
	meta, err := e.Extract(context.Background(),
		"Meeting Minutes - Pdf", srv.URL+"/document/1/minutes.pdf")
	require.NoError(t, err)
	assert.Equal(t, StatusParserUnavailable, meta.Status)
}

func TestExtractParseFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not a pdf"))
	}))
	defer srv.Close()

	e := NewExtractor(srv.Client(), &fakePDF{err: errors.New("bad xref")}, logging.NewNopLogger())
	meta, err := e.Extract(context.Background(),
		"Meeting Minutes - Pdf", srv.URL+"/document/1/minutes.pdf")
	require.NoError(t, err)
	assert.Equal(t, StatusParseFailed, meta.Status)
}

func TestExtractOKFallsBackToExcerptDate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("%PDF-1.7 fake"))
	}))
	defer srv.Close()

	pdf := &fakePDF{pageCount: 4, text: "City Council Meeting held on March 3, 2026 at City Hall"}
	e := NewExtractor(srv.Client(), pdf, logging.NewNopLogger())

	meta, err := e.Extract(context.Background(),
		"Meeting Minutes - Pdf", srv.URL+"/document/1/minutes.pdf")
	require.NoError(t, err)
	assert.Equal(t, StatusOK, meta.Status)
	require.NotNil(t, meta.PageCount)
	assert.Equal(t, 4, *meta.PageCount)
	assert.Equal(t, "2026-03-03", meta.DetectedDate)
	assert.Contains(t, meta.TextExcerpt, "City Council Meeting")
}
