package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupJSON(t *testing.T) {
	var buf bytes.Buffer
	SetupTo(&buf, "debug", true)
	t.Cleanup(func() { SetupTo(&bytes.Buffer{}, "info", false) })

	log.WithField("component", "test").Debug("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "test", entry["component"])
	assert.Equal(t, log.DebugLevel, log.GetLevel())
}

func TestSetupUnknownLevel(t *testing.T) {
	var buf bytes.Buffer
	SetupTo(&buf, "chatty", false)
	t.Cleanup(func() { SetupTo(&bytes.Buffer{}, "info", false) })

	assert.Equal(t, log.InfoLevel, log.GetLevel())
	assert.Contains(t, buf.String(), "unknown log level")
}
