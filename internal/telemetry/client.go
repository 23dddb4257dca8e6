package telemetry

import (
	"context"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/posthog/posthog-go"

	"github.com/josephgoksu/taskflow/internal/workflow"
)

// EventTransition is the PostHog event name for workflow transitions.
const EventTransition = "task_transition"

// Client records workflow transitions as anonymous usage events. It is a
// workflow.EventSink, so the service can emit into it directly.
type Client interface {
	workflow.EventSink
	// TrackTransition queues one transition event. It never blocks on the network.
	TrackTransition(ev workflow.TransitionEvent)
	Close() error
}

// queue is the part of the PostHog client the recorder needs.
type queue interface {
	io.Closer
	Enqueue(msg posthog.Message) error
}

// Options configures Open.
type Options struct {
	APIKey string
	// Endpoint overrides the PostHog host for self-hosted instances.
	Endpoint string
	Version  string
	// State carries the enabled flag and the anonymous installation id.
	State *Config
}

// Open returns a PostHog-backed client when telemetry is enabled and an API
// key is set. Otherwise it returns a NoopClient.
func Open(opts Options) (Client, error) {
	if opts.State == nil || !opts.State.IsEnabled() || opts.APIKey == "" {
		return NewNoopClient(), nil
	}

	phConfig := posthog.Config{
		BatchSize: 10,
		Interval:  time.Second,
		// Transport warnings must not end up in CLI output or server logs.
		Logger: silentLogger{},
	}
	if opts.Endpoint != "" {
		phConfig.Endpoint = opts.Endpoint
	}
	ph, err := posthog.NewWithConfig(opts.APIKey, phConfig)
	if err != nil {
		return nil, err
	}
	return newRecorder(ph, opts.State.AnonymousID, opts.Version), nil
}

// Recorder turns transition events into PostHog captures.
type Recorder struct {
	mu          sync.Mutex
	q           queue
	anonymousID string
	version     string
	closed      bool
}

func newRecorder(q queue, anonymousID, version string) *Recorder {
	return &Recorder{q: q, anonymousID: anonymousID, version: version}
}

func (r *Recorder) Emit(_ context.Context, ev workflow.TransitionEvent) {
	r.TrackTransition(ev)
}

// TrackTransition sends the operation kind, the task type, both statuses and
// the outcome. Task ids, requirement text and messages stay local.
func (r *Recorder) TrackTransition(ev workflow.TransitionEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}

	props := posthog.NewProperties().
		Set("kind", string(ev.Kind)).
		Set("type_id", ev.TypeID).
		Set("from_status", ev.FromStatus).
		Set("to_status", ev.ToStatus).
		Set("accepted", ev.Accepted).
		Set("os", runtime.GOOS).
		Set("arch", runtime.GOARCH).
		Set("app_version", r.version).
		Set("$process_person_profile", false)

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	_ = r.q.Enqueue(posthog.Capture{
		DistinctId: r.anonymousID,
		Event:      EventTransition,
		Timestamp:  at,
		Properties: props,
	})
}

// Close flushes queued events. Later transitions are dropped.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.q.Close()
}

// NoopClient drops every event.
type NoopClient struct{}

// NewNoopClient returns a client that does nothing.
func NewNoopClient() *NoopClient {
	return &NoopClient{}
}

func (*NoopClient) Emit(context.Context, workflow.TransitionEvent) {}

func (*NoopClient) TrackTransition(workflow.TransitionEvent) {}

func (*NoopClient) Close() error { return nil }

type silentLogger struct{}

func (silentLogger) Debugf(string, ...interface{}) {}
func (silentLogger) Logf(string, ...interface{})   {}
func (silentLogger) Warnf(string, ...interface{})  {}
func (silentLogger) Errorf(string, ...interface{}) {}
