package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetVerbose(false)
	})
	return &buf
}

func TestDebugAndInfoRespectVerbose(t *testing.T) {
	buf := captureOutput(t)

	SetVerbose(false)
	Debug("hidden %d", 1)
	Info("hidden %d", 2)
	assert.Empty(t, buf.String())

	SetVerbose(true)
	assert.True(t, IsVerbose())
	Debug("shown %d", 1)
	Info("shown %d", 2)
	assert.Contains(t, buf.String(), "[DEBUG] shown 1")
	assert.Contains(t, buf.String(), "[INFO] shown 2")
}

func TestWarnAlwaysPrints(t *testing.T) {
	buf := captureOutput(t)

	SetVerbose(false)
	Warn("broadcast failed: %s", "sink closed")
	assert.Contains(t, buf.String(), "[WARN] broadcast failed: sink closed")
}
