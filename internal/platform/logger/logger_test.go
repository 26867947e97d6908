package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardledger/internal/platform/config"
)

func TestNewWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, config.LogConfig{Level: "warn", Format: "json"})

	log.Info("dropped")
	log.Warn("kept", "card_id", "c-1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "kept", line["msg"])
	assert.Equal(t, "c-1", line["card_id"])
}

func TestNewWithWriterTextAndBadLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, config.LogConfig{Level: "loud", Format: "text"})

	log.Debug("hidden")
	log.Info("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown")
}
