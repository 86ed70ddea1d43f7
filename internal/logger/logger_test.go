package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_ProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(&buf, false)

	l.Info("project created", slog.String("project_id", "abc"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), buf.String())
	assert.Equal(t, "project created", entry["msg"])
	assert.Equal(t, "abc", entry["project_id"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Contains(t, entry, "time")
}

func TestSetup_ProductionSkipsDebug(t *testing.T) {
	var buf bytes.Buffer
	Setup(&buf, false).Debug("noise")
	assert.Empty(t, buf.String())
}

func TestSetup_DevelopmentWritesText(t *testing.T) {
	var buf bytes.Buffer
	Setup(&buf, true).Debug("details", slog.Int("n", 3))

	out := buf.String()
	assert.True(t, strings.Contains(out, "msg=details"), out)
	assert.Contains(t, out, "n=3")
}
