package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josephgoksu/taskflow/internal/workflow"
)

func TestNew_Defaults(t *testing.T) {
	var buf bytes.Buffer
	log, closer, err := New(Options{Output: &buf})
	require.NoError(t, err)
	defer closer.Close()

	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, log.Formatter)

	log.Debug("hidden")
	log.Info("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNew_InvalidLevel(t *testing.T) {
	_, _, err := New(Options{Level: "loud"})
	assert.Error(t, err)
}

func TestNew_JSONToFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "taskflow.log")

	log, closer, err := New(Options{Level: "debug", Format: "json", File: path, Output: &buf})
	require.NoError(t, err)

	log.WithField("task_id", 4).Debug("advanced")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, buf.String(), string(data))

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &line))
	assert.Equal(t, "advanced", line["msg"])
	assert.Equal(t, float64(4), line["task_id"])
}

func TestTransitionSink_Levels(t *testing.T) {
	var buf bytes.Buffer
	log, _, err := New(Options{Format: "json", Output: &buf})
	require.NoError(t, err)

	sink := NewTransitionSink(log)
	at := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	sink.Emit(context.Background(), workflow.TransitionEvent{
		ID: "e1", Kind: workflow.KindAdvance, TaskID: 9, TypeID: 1,
		FromStatus: 1, ToStatus: 2, Accepted: true,
		Message: "Advancement validated successfully", At: at,
	})
	sink.Emit(context.Background(), workflow.TransitionEvent{
		ID: "e2", Kind: workflow.KindClose, TaskID: 9, TypeID: 1,
		FromStatus: 2, ToStatus: 2, Requirement: "x",
		Message: "Task can only be closed from final status", At: at,
	})

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var first, second map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &first))
	require.NoError(t, json.Unmarshal(lines[1], &second))

	assert.Equal(t, "info", first["level"])
	assert.Equal(t, string(workflow.KindAdvance), first["operation"])
	assert.Equal(t, float64(9), first["task_id"])
	assert.NotContains(t, first, "requirement")

	assert.Equal(t, "warning", second["level"])
	assert.Equal(t, "x", second["requirement"])
	assert.Equal(t, "Task can only be closed from final status", second["msg"])
}

func TestTransitionSink_RequestID(t *testing.T) {
	var buf bytes.Buffer
	log, _, err := New(Options{Format: "json", Output: &buf})
	require.NoError(t, err)

	ev := workflow.TransitionEvent{
		ID: "e1", Kind: workflow.KindReverse, TaskID: 3, TypeID: 2,
		FromStatus: 2, ToStatus: 1, Accepted: true, Message: "Reversal validated successfully",
	}
	sink := NewTransitionSink(log)
	sink.Emit(WithRequestID(context.Background(), "req-42"), ev)
	sink.Emit(context.Background(), ev)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var withID, withoutID map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &withID))
	require.NoError(t, json.Unmarshal(lines[1], &withoutID))
	assert.Equal(t, "req-42", withID["request_id"])
	assert.NotContains(t, withoutID, "request_id")
}

func TestRequestIDFrom_Empty(t *testing.T) {
	assert.Empty(t, RequestIDFrom(context.Background()))
}
