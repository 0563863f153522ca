package events

import (
	"log/slog"

	"safepool/core/types"
)

// Event represents a structured state change emitted by an engine.
type Event interface {
	EventType() string
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter satisfies the Emitter interface while discarding all events. It
// is the default wired into engines until the node installs a real sink.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// LogEmitter writes every event to a structured logger. The daemon installs
// it as the default sink.
type LogEmitter struct {
	Log *slog.Logger
}

// Emit implements the Emitter interface.
func (l *LogEmitter) Emit(evt Event) {
	if l == nil || evt == nil {
		return
	}
	log := l.Log
	if log == nil {
		log = slog.Default()
	}
	payload := evt.Event()
	if payload == nil {
		return
	}
	attrs := make([]any, 0, 2*len(payload.Attributes))
	for key, value := range payload.Attributes {
		attrs = append(attrs, slog.String(key, value))
	}
	log.Info(payload.Type, attrs...)
}

// Recorder captures emitted events in order. Tests use it to assert on the
// exact transition stream an operation produced.
type Recorder struct {
	Events []*types.Event
}

// Emit implements the Emitter interface.
func (r *Recorder) Emit(evt Event) {
	if r == nil || evt == nil {
		return
	}
	if payload := evt.Event(); payload != nil {
		r.Events = append(r.Events, payload)
	}
}

// Types returns the event type strings in emission order.
func (r *Recorder) Types() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.Events))
	for _, evt := range r.Events {
		out = append(out, evt.Type)
	}
	return out
}
