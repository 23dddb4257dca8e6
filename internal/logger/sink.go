package logger

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/josephgoksu/taskflow/internal/workflow"
)

// TransitionSink logs every workflow transition. Accepted transitions log at
// info level, rejected ones at warn.
type TransitionSink struct {
	log *logrus.Logger
}

// NewTransitionSink returns a sink that writes to log.
func NewTransitionSink(log *logrus.Logger) *TransitionSink {
	return &TransitionSink{log: log}
}

func (s *TransitionSink) Emit(ctx context.Context, ev workflow.TransitionEvent) {
	entry := s.log.WithFields(logrus.Fields{
		"operation":   string(ev.Kind),
		"event_id":    ev.ID,
		"task_id":     ev.TaskID,
		"type_id":     ev.TypeID,
		"from_status": ev.FromStatus,
		"to_status":   ev.ToStatus,
	})
	if id := RequestIDFrom(ctx); id != "" {
		entry = entry.WithField("request_id", id)
	}
	if ev.Requirement != "" {
		entry = entry.WithField("requirement", ev.Requirement)
	}

	if ev.Accepted {
		entry.Info(ev.Message)
		return
	}
	entry.Warn(ev.Message)
}
