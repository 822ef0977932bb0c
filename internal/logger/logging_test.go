package logger

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

func TestNewWithConfigWritesPrefix(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithConfig(&buf, "fill", log.InfoLevel, false, false, log.LogfmtFormatter)

	l.Info("done", "results", 3)
	l.Debug("hidden")

	out := buf.String()
	assert.Contains(t, out, "prefix=fill")
	assert.Contains(t, out, "results=3")
	assert.NotContains(t, out, "hidden")
}

func TestSetup(t *testing.T) {
	defer log.SetLevel(log.GetLevel())

	Setup(true)
	assert.Equal(t, log.DebugLevel, log.GetLevel())

	Setup(false)
	assert.Equal(t, log.WarnLevel, log.GetLevel())
}
