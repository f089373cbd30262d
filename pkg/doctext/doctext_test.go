package doctext

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
	text string
	err  error
}

func (f *fakePDF) Extract(data []byte, maxPages int) (int, string, error) {
	if f.err != nil {
		return 0, "", f.err
	}
	return 1, f.text, nil
}

func TestExtractMissingURL(t *testing.T) {
	e := NewExtractor(nil, nil, logging.NewNopLogger())

	out, err := e.Extract(context.Background(), "Staff Report", "")
	require.NoError(t, err)
	assert.Equal(t, StatusMissingURL, out.Status)
	assert.Equal(t, 0, out.TextLength)
}

func TestExtractDownloadFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	e := NewExtractor(srv.Client(), nil, logging.NewNopLogger())
	out, err := e.Extract(context.Background(), "Staff Report", srv.URL+"/document/1")
	require.NoError(t, err)
	assert.Equal(t, StatusDownloadFailed, out.Status)
}

func TestExtractHTMLDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head><style>p{color:red}</style>
			<script>alert("x")</script></head>
			<body><p>Rezone 1234 Douglas Ave from C-H to PUD</p></body></html>`))
	}))
	defer srv.Close()

	e := NewExtractor(srv.Client(), nil, logging.NewNopLogger())
	out, err := e.Extract(context.Background(), "Staff Report", srv.URL+"/document/1")
	require.NoError(t, err)
	assert.Equal(t, StatusOK, out.Status)
	assert.Equal(t, "text/html", out.ContentType)
	assert.Contains(t, out.TextExcerpt, "Rezone 1234 Douglas Ave from C-H to PUD")
	assert.NotContains(t, out.TextExcerpt, "alert")
	assert.NotContains(t, out.TextExcerpt, "color:red")
}

func TestExtractHTMLParseEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><script>var x = 1;</script></body></html>`))
	}))
	defer srv.Close()

	e := NewExtractor(srv.Client(), nil, logging.NewNopLogger())
	out, err := e.Extract(context.Background(), "", srv.URL+"/document/1")
	require.NoError(t, err)
	assert.Equal(t, StatusHTMLParseEmpty, out.Status)
}

func TestExtractPDFStatuses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.7 fake"))
	}))
	defer srv.Close()

	t.Run("parser unavailable", func(t *testing.T) {
		e := NewExtractor(srv.Client(), nil, logging.NewNopLogger())
		out, err := e.Extract(context.Background(), "Minutes", srv.URL+"/document/1/minutes.pdf")
		require.NoError(t, err)
		assert.Equal(t, StatusParserUnavailable, out.Status)
	})

	t.Run("parse failed", func(t *testing.T) {
		e := NewExtractor(srv.Client(), &fakePDF{err: errors.New("bad xref")}, logging.NewNopLogger())
		out, err := e.Extract(context.Background(), "Minutes", srv.URL+"/document/1/minutes.pdf")
		require.NoError(t, err)
		assert.Equal(t, StatusParseFailed, out.Status)
	})

	t.Run("ok", func(t *testing.T) {
		e := NewExtractor(srv.Client(), &fakePDF{text: "Ordinance 2026-14 adopted"}, logging.NewNopLogger())
		out, err := e.Extract(context.Background(), "Minutes", srv.URL+"/document/1/minutes.pdf")
		require.NoError(t, err)
		assert.Equal(t, StatusOK, out.Status)
		assert.Contains(t, out.TextExcerpt, "Ordinance 2026-14 adopted")
	})
}

func TestExtractPrependsTitleWhenBodyOmitsIt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("body text only"))
	}))
	defer srv.Close()

	e := NewExtractor(srv.Client(), nil, logging.NewNopLogger())
	out, err := e.Extract(context.Background(), "Staff Report", srv.URL+"/document/1")
	require.NoError(t, err)
	assert.Equal(t, StatusOK, out.Status)
	assert.Equal(t, "Staff Report body text only", out.TextExcerpt)
	assert.Equal(t, len("Staff Report body text only"), out.TextLength)
}

func TestFlattenHTML(t *testing.T) {
	text := FlattenHTML(`<div><p>First</p><p>Second &amp; third</p></div>`)
	assert.Equal(t, "First Second & third", text)

	assert.Equal(t, "", FlattenHTML(""))
}
