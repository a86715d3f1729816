// Package event is the seam between the link decoders and their consumers.
package event

import (
	"encoding/json"
)

// Event is a decoded record produced by a link decoder.
type Event interface {
	EventType() string
}

// Sink consumes events. Emit must not block the producer for long.
type Sink interface {
	Emit(Event)
}

// SinkFunc is func type of Sink.
type SinkFunc func(Event)

// Emit implements Sink.
func (f SinkFunc) Emit(ev Event) {
	f(ev)
}

// Mux fans an event out to multiple sinks in order.
type Mux []Sink

// Emit implements Sink.
func (m Mux) Emit(ev Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(ev)
		}
	}
}

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

// Event types of the link-level notifications.
const (
	StatusType = "status"
	ErrorType  = "error"
)

// Status reports a change of the reader, e.g. connected or stopped.
type Status struct {
	Message string `json:"message"`
}

// EventType implements Event.
func (s *Status) EventType() string { return StatusType }

// Error reports a terminal transport error of a reader.
type Error struct {
	Err error `json:"-"`
}

// EventType implements Event.
func (e *Error) EventType() string { return ErrorType }

// Error implements error.
func (e *Error) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error { return e.Err }

// MarshalJSON encodes the error message.
func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Message string `json:"message"`
	}{e.Error()})
}
