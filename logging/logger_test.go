package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(level LogLevel) (*PipelineLogger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	cfg := DefaultLoggerConfig()
	cfg.Output = buf
	cfg.Level = level
	cfg.AddSource = false
	return NewLogger(cfg), buf
}

func TestPipelineLogger_ContextAttrs(t *testing.T) {
	l, buf := newBufferLogger(LogLevelInfo)
	l.WithComponent("research").WithSubject("joes", "run-1").Info("hello", "steps", 6)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "research", entry["component"])
	assert.Equal(t, "joes", entry["subject_id"])
	assert.Equal(t, "run-1", entry["run_id"])
	assert.EqualValues(t, 6, entry["steps"])
}

func TestPipelineLogger_LevelFiltering(t *testing.T) {
	l, buf := newBufferLogger(LogLevelWarn)
	l.Info("dropped")
	l.Debug("dropped")
	assert.Zero(t, buf.Len())

	l.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestPipelineLogger_CloneIsolation(t *testing.T) {
	base, buf := newBufferLogger(LogLevelInfo)
	_ = base.WithContext("k", "v")
	base.Info("base")
	assert.NotContains(t, buf.String(), `"k"`)
}

func TestStepExecution_Helpers(t *testing.T) {
	l, buf := newBufferLogger(LogLevelDebug)
	StepExecution(l, "icp", "scoring-segments", 2, time.Millisecond, errors.New("boom"))
	StageExecution(l, "icp", 7, time.Second, nil)
	ProviderCall(l, "generate", "mock", 10, time.Millisecond, nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "Step execution failed")
	assert.Contains(t, lines[1], "Stage execution completed")
	assert.Contains(t, lines[2], "Provider call completed")

	// plain loggers must not panic
	StepExecution(NoOpLogger{}, "icp", "x", 1, 0, nil)
	ProviderCall(NoOpLogger{}, "embed", "m", 0, 0, errors.New("x"))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LogLevelDebug, ParseLevel("debug"))
	assert.Equal(t, LogLevelWarn, ParseLevel("warn"))
	assert.Equal(t, LogLevelError, ParseLevel("ERROR"))
	assert.Equal(t, LogLevelInfo, ParseLevel("nope"))
	assert.Equal(t, "WARN", LogLevelWarn.String())
}
