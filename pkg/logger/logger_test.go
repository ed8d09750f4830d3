package logger

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"emotedl/pkg/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(buf *bytes.Buffer) *zerologLogger {
	zlog := zerolog.New(buf).Level(zerolog.DebugLevel)
	return &zerologLogger{logger: &zlog, fields: make(map[string]interface{})}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{"info level", &config.LoggingConfig{Level: "info"}, false},
		{"debug level", &config.LoggingConfig{Level: "debug"}, false},
		{"invalid level", &config.LoggingConfig{Level: "loud"}, true},
		{"file output", &config.LoggingConfig{Level: "info", File: filepath.Join(t.TempDir(), "logs", "emotedl.log")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"INFO", zerolog.InfoLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		level, err := parseLogLevel(tt.level)
		assert.Equal(t, tt.wantErr, err != nil, tt.level)
		assert.Equal(t, tt.expected, level, tt.level)
	}
}

func TestFileOutputIsJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emotedl.log")
	var console bytes.Buffer

	l, err := NewWithWriter(&config.LoggingConfig{Level: "info", File: path}, &console)
	require.NoError(t, err)

	l.WithField("user_id", "abc").Info("Materializing catalog")
	l.Debug("filtered out")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"user_id":"abc"`)
	assert.Contains(t, string(data), `"app":"emotedl"`)
	assert.NotContains(t, string(data), "filtered out")
	assert.Contains(t, console.String(), "Materializing catalog")
}

func TestWithFieldsDoesNotLeakIntoParent(t *testing.T) {
	var buf bytes.Buffer
	parent := newBufferLogger(&buf)

	parent.WithField("component", "downloader").Info("child")
	parent.Info("parent")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Contains(t, string(lines[0]), `"component":"downloader"`)
	assert.NotContains(t, string(lines[1]), "component")
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf)

	assert.Same(t, l, l.WithError(nil))

	l.WithError(errors.New("disk full")).Error("write failed")
	assert.Contains(t, buf.String(), `"error":"disk full"`)
}

func TestStructuredFieldTypes(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf)

	l.InfoWithFields("emote saved", map[string]interface{}{
		"name":   "Kappa",
		"size":   1024,
		"ok":     true,
		"status": errors.New("none"),
	})

	out := buf.String()
	assert.Contains(t, out, `"name":"Kappa"`)
	assert.Contains(t, out, `"size":1024`)
	assert.Contains(t, out, `"ok":true`)
	assert.Contains(t, out, `"status":"none"`)
}

func TestLogRequestLevels(t *testing.T) {
	tl := NewTestLogger()

	LogRequest(tl, "GET", "https://cdn/a", 200, 1.5)
	LogRequest(tl, "GET", "https://cdn/b", 404, 1.5)
	LogRequest(tl, "GET", "https://cdn/c", 503, 1.5)

	assert.Len(t, tl.GetMessagesByLevel("DEBUG"), 1)
	assert.Len(t, tl.GetMessagesByLevel("WARN"), 1)
	assert.Len(t, tl.GetMessagesByLevel("ERROR"), 1)
}

func TestTestLoggerSharesCapture(t *testing.T) {
	tl := NewTestLogger()
	child := tl.WithField("run_id", "r1").WithError(errors.New("boom"))

	child.Warn("retrying")
	tl.Info("done")

	msgs := tl.GetMessages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "r1", msgs[0].Fields["run_id"])
	assert.EqualError(t, msgs[0].Error, "boom")
	assert.Nil(t, msgs[1].Error)
	assert.True(t, tl.HasMessage("retrying"))
	assert.Contains(t, tl.String(), "[WARN] retrying run_id=r1 error=boom")

	tl.Clear()
	assert.Empty(t, tl.GetMessages())
}

func TestGlobalLogger(t *testing.T) {
	require.NoError(t, Initialize(&config.LoggingConfig{Level: "error"}))
	assert.NotNil(t, GetLogger())

	tl := NewTestLogger()
	SetLogger(tl)
	defer SetLogger(nil)

	Info("info message")
	WithField("key", "value").Warn("with field")
	WithError(errors.New("x")).Error("with error")

	assert.Len(t, tl.GetMessages(), 3)
	assert.True(t, tl.HasError())
}
