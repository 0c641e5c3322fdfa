package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterLogger_Debug(t *testing.T) {
	tests := []struct {
		name      string
		envValue  string
		debug     bool
		expectLog bool
	}{
		{
			name:      "logs when RADAR_DEBUG is set",
			envValue:  "1",
			expectLog: true,
		},
		{
			name:      "logs when debug flag is set",
			debug:     true,
			expectLog: true,
		},
		{
			name:      "does not log when neither is set",
			expectLog: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("RADAR_DEBUG", tt.envValue)

			var buf bytes.Buffer
			l := New(&buf, "[test]", tt.debug)
			l.Debug("test message %s", "arg")

			if tt.expectLog {
				assert.Contains(t, buf.String(), "[test] DEBUG: test message arg")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestWriterLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "[server]", false)

	l.Info("info message %d", 42)
	l.Warn("warning message")
	l.Error("error: %s", "failed")

	out := buf.String()
	assert.Contains(t, out, "[server] info message 42")
	assert.Contains(t, out, "[server] WARN: warning message")
	assert.Contains(t, out, "[server] ERROR: error: failed")
}

func TestWriterLogger_NoPrefix(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "", false)
	l.Warn("bare")
	assert.Contains(t, buf.String(), "WARN: bare")
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	base := New(&buf, "[server]", false)
	child := With(base, "[engine]")
	child.Info("hello")
	assert.Contains(t, buf.String(), "[engine] hello")

	noop := Noop()
	assert.Same(t, noop, With(noop, "[x]"))
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "radar.log")

	l, closer, err := Open(path, "[client]", false)
	require.NoError(t, err)
	l.Info("written to file")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[client] written to file")
}

func TestOpen_EmptyPathUsesStderr(t *testing.T) {
	l, closer, err := Open("", "[client]", false)
	require.NoError(t, err)
	assert.NotNil(t, l)
	assert.NoError(t, closer.Close())
}

func TestOpen_BadPath(t *testing.T) {
	_, _, err := Open(filepath.Join(t.TempDir(), "missing", "radar.log"), "", false)
	assert.Error(t, err)
}

func TestNoopLogger(t *testing.T) {
	l := Noop()

	// Should not panic
	l.Debug("debug")
	l.Info("info")
	l.Warn("warn")
	l.Error("error")
}

func TestBufferLogger(t *testing.T) {
	l := NewBufferLogger()

	l.Debug("debug %d", 1)
	l.Info("info %d", 2)
	l.Warn("warn %d", 3)
	l.Error("error %d", 4)

	msgs := l.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, LogMessage{Level: "debug", Message: "debug 1"}, msgs[0])
	assert.Equal(t, LogMessage{Level: "info", Message: "info 2"}, msgs[1])
	assert.Equal(t, LogMessage{Level: "warn", Message: "warn 3"}, msgs[2])
	assert.Equal(t, LogMessage{Level: "error", Message: "error 4"}, msgs[3])

	assert.True(t, l.HasLevel("warn"))
	assert.True(t, l.Contains("error 4"))
	assert.False(t, l.Contains("missing"))

	l.Clear()
	assert.Empty(t, l.Messages())
	assert.False(t, l.HasLevel("warn"))
}

func TestBufferLogger_Concurrent(t *testing.T) {
	l := NewBufferLogger()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				l.Info("worker %d", n)
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, l.Messages(), 400)
}
