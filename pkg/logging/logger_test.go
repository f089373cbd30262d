package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONOutputIncludesFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&Config{
		Level:       LevelDebug,
		ServiceName: "test",
		JSONFormat:  true,
		Output:      &buf,
	})

	log.Info("meeting ingested", F("meeting_id", 1408), F("mentions", 12))

	out := buf.String()
	assert.Contains(t, out, `"meeting_id":1408`)
	assert.Contains(t, out, `"mentions":12`)
	assert.Contains(t, out, `"service_name":"test"`)
	assert.Contains(t, out, `"message":"meeting ingested"`)
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&Config{
		Level:      LevelWarn,
		JSONFormat: true,
		Output:     &buf,
	})

	log.Debug("dropped")
	log.Info("dropped too")
	log.Warn("kept")

	require.Equal(t, 1, strings.Count(buf.String(), "\n"))
	assert.Contains(t, buf.String(), "kept")
}

func TestWithAttachesFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&Config{
		Level:      LevelInfo,
		JSONFormat: true,
		Output:     &buf,
	})

	log.With(F("component", "crawl")).Info("job started")

	assert.Contains(t, buf.String(), `"component":"crawl"`)
}

func TestNopLogger(t *testing.T) {
	log := NewNopLogger()
	// Must not panic and With must keep returning a usable logger.
	log.With(F("k", "v")).Error("ignored", Err(assert.AnError))
}
