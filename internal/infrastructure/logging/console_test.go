package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/itemize-reconcile/internal/infrastructure/config"
)

func newTestLogger(buf *bytes.Buffer, level slog.Level) *slog.Logger {
	return slog.New(NewConsoleHandler(buf, &ConsoleOptions{Level: level, HideTimestamps: true}))
}

func TestConsoleHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, slog.LevelInfo).With("system", "sync")

	logger.Info("Pulled ledger", "fetched", 3, "payee", "AMAZON MKTPL", "took", 1500*time.Millisecond)

	assert.Equal(t, "[INFO] [sync] Pulled ledger fetched=3 payee=\"AMAZON MKTPL\" took=1.5s\n", buf.String())
}

func TestConsoleHandler_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, slog.LevelWarn)

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("shown")
	logger.Error("failed", "error", errors.New("boom"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "[WARN] shown", lines[0])
	assert.Equal(t, "[ERROR] failed error=boom", lines[1])
}

func TestConsoleHandler_Groups(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, slog.LevelInfo)

	logger.WithGroup("push").With("run", 7).Info("done",
		slog.Group("counts", "pushed", 2, "failed", 1),
		"note", "")

	assert.Equal(t, "[INFO] done push.run=7 push.counts.pushed=2 push.counts.failed=1 push.note=\"\"\n", buf.String())
}

func TestConsoleHandler_WithAttrsDoesNotLeak(t *testing.T) {
	var buf bytes.Buffer
	base := newTestLogger(&buf, slog.LevelInfo)

	base.With("charge_id", "c1").Info("one")
	base.Info("two")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "[INFO] one charge_id=c1", lines[0])
	assert.Equal(t, "[INFO] two", lines[1])
}

func TestNewLoggerTo_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, config.LoggingConfig{Level: "debug", Format: "json"})

	logger.Debug("Rebuilt category index", "records", 4)
	assert.Contains(t, buf.String(), `"msg":"Rebuilt category index"`)
	assert.Contains(t, buf.String(), `"records":4`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("chatty"))
}
