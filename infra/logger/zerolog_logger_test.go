package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologLoggerMethods(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	l := NewZerologLogger("test")
	if l == nil {
		t.Fatalf("nil logger")
	}
	l.Debugf("debug %d", 1)
	l.Debugw("debug", map[string]any{"k": 1})
	l.Infof("info %s", "test")
	l.Infow("info", map[string]any{"k": 2})
	l.Warnf("warn")
	l.Errorf("error")
}

func TestZerologLoggerComponentField(t *testing.T) {
	var buf bytes.Buffer
	l := newZerolog("allocator", &buf)
	l.Infow("allocated", map[string]any{"total_kw": 1.5})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "allocator", line["component"])
	assert.Equal(t, "allocated", line["message"])
	assert.InDelta(t, 1.5, line["total_kw"], 1e-9)
}

func TestConfigureFileAndLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "offload.log")
	closer, err := Configure(Options{Level: "warn", Format: "json", File: path, MaxSizeMB: 1})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = closer.Close()
		_, _ = Configure(Options{})
	})

	l := New("file")
	l.Infof("dropped")
	l.Warnf("kept %d", 1)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), "kept 1")
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
}

func TestConfigureRejectsUnknownLevel(t *testing.T) {
	_, err := Configure(Options{Level: "loud"})
	assert.Error(t, err)
}
