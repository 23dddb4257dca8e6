package workflow

import (
	"context"
	"time"
)

// TransitionKind names a workflow operation.
type TransitionKind string

const (
	KindCreate  TransitionKind = "create"
	KindAdvance TransitionKind = "advance"
	KindReverse TransitionKind = "reverse"
	KindClose   TransitionKind = "close"
	KindDelete  TransitionKind = "delete"
)

// TransitionEvent describes one attempted transition, accepted or not.
type TransitionEvent struct {
	ID          string         `json:"id"`
	Kind        TransitionKind `json:"kind"`
	TaskID      int64          `json:"taskId"`
	TypeID      int            `json:"typeId"`
	FromStatus  int            `json:"fromStatus"`
	ToStatus    int            `json:"toStatus"`
	Requirement string         `json:"requirement,omitempty"`
	Accepted    bool           `json:"accepted"`
	Message     string         `json:"message,omitempty"`
	At          time.Time      `json:"at"`
}

// EventSink receives transition events after the transaction settles.
// Implementations must not block.
type EventSink interface {
	Emit(ctx context.Context, ev TransitionEvent)
}

// MultiSink fans an event out to several sinks.
type MultiSink []EventSink

func (m MultiSink) Emit(ctx context.Context, ev TransitionEvent) {
	for _, s := range m {
		if s != nil {
			s.Emit(ctx, ev)
		}
	}
}

type noopSink struct{}

func (noopSink) Emit(context.Context, TransitionEvent) {}
