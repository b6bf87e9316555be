package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(logrus.DebugLevel)
	l.SetOutput(&buf)
	l.WithField("url", "https://x.com").Debug("queued")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line), buf.String())
	assert.Equal(t, "https://x.com", line["url"])
	assert.Equal(t, "queued", line["msg"])
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(logrus.InfoLevel)
	l.SetOutput(&buf)

	entry := WithComponent(l, "sitetree")
	entry.Debug("hidden")
	entry.Info("built")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line), buf.String())
	assert.Equal(t, "sitetree", line["component"])
	assert.Equal(t, "built", line["msg"])
}
