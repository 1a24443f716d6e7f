package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlogLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogLoggerTo(&buf, LogLevelInfo, "json", false)

	logger.Info("task assigned", "task_id", "t1", "agent_id", "a1")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "task assigned", entry["msg"])
	assert.Equal(t, "t1", entry["task_id"])
	assert.Equal(t, "a1", entry["agent_id"])
}

func TestSlogLoggerHonorsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogLoggerTo(&buf, LogLevelWarn, "text", false)

	logger.Debug("hidden")
	logger.Info("hidden too")
	assert.Zero(t, buf.Len())

	logger.Warn("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestLogLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LogLevelDebug.String())
	assert.Equal(t, "INFO", LogLevelInfo.String())
	assert.Equal(t, "WARN", LogLevelWarn.String())
	assert.Equal(t, "ERROR", LogLevelError.String())
	assert.Equal(t, "UNKNOWN", LogLevel(99).String())
}

// recordingLogger captures calls for MeshLogger assertions.
type recordingLogger struct {
	msgs  []string
	attrs [][]any
}

func (r *recordingLogger) log(msg string, args ...any) {
	r.msgs = append(r.msgs, msg)
	r.attrs = append(r.attrs, args)
}

func (r *recordingLogger) Debug(msg string, args ...any) { r.log(msg, args...) }
func (r *recordingLogger) Info(msg string, args ...any)  { r.log(msg, args...) }
func (r *recordingLogger) Warn(msg string, args ...any)  { r.log(msg, args...) }
func (r *recordingLogger) Error(msg string, args ...any) { r.log(msg, args...) }

func TestMeshLoggerStickyAttributes(t *testing.T) {
	rec := &recordingLogger{}
	logger := NewMeshLogger(rec).WithComponent("orchestrator").WithWorkflow("wf-1")

	logger.Info("workflow submitted", "tasks", 4)

	require.Len(t, rec.attrs, 1)
	assert.Equal(t, []any{"component", "orchestrator", "workflow_id", "wf-1", "tasks", 4}, rec.attrs[0])
}

func TestMeshLoggerCopiesAreIndependent(t *testing.T) {
	rec := &recordingLogger{}
	base := NewMeshLogger(rec).WithComponent("agent")

	withTask := base.WithTask("t1")
	withTask.Info("one")
	base.Info("two")

	require.Len(t, rec.attrs, 2)
	assert.Contains(t, rec.attrs[0], "task_id")
	assert.NotContains(t, rec.attrs[1], "task_id")
}

func TestNewMeshLoggerNilFallsBackToNoOp(t *testing.T) {
	logger := NewMeshLogger(nil)
	// Must not panic.
	logger.WithAgent("a1").Error("boom", "key", "value")
}
