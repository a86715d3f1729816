package msgs

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/robotalks/sensorlink/pkg/event"
	"github.com/robotalks/sensorlink/pkg/link/telemetry"
	"github.com/robotalks/sensorlink/pkg/pixel"
)

// Typed wraps an event with type information and the time it was seen.
type Typed struct {
	Type  string
	Time  time.Time
	Event event.Event
}

// ErrUnknownType indicates unknown event type.
type ErrUnknownType struct {
	Type string
}

// Error implements error.
func (e *ErrUnknownType) Error() string {
	return fmt.Sprintf("unknown type: %q", e.Type)
}

// ErrNotSerializable indicates the event can't be wrapped.
var ErrNotSerializable = errors.New("not serializable event")

// MessageTypes are predefined mapping of event type to events.
var MessageTypes = map[string]func() event.Event{
	pixel.EventType:            func() event.Event { return &pixel.Frame{} },
	telemetry.TempHumidityType: func() event.Event { return &telemetry.TempHumidity{} },
	telemetry.PredictionType:   func() event.Event { return &telemetry.Prediction{} },
	event.StatusType:           func() event.Event { return &event.Status{} },
	event.ErrorType:            func() event.Event { return &ErrorMessage{} },
}

// ErrorMessage is the decoded form of an event.Error.
type ErrorMessage struct {
	Message string `json:"message" cbor:"message"`
}

// EventType implements event.Event.
func (m *ErrorMessage) EventType() string { return event.ErrorType }

// Error implements error.
func (m *ErrorMessage) Error() string { return m.Message }

// frameRecord is the compact CBOR form of a frame: packed RGB triples.
type frameRecord struct {
	Width  int    `cbor:"width"`
	Height int    `cbor:"height"`
	Pix    []byte `cbor:"rgb"`
}

type jsonTyped struct {
	Type string          `json:"type"`
	Time time.Time       `json:"time"`
	Data json.RawMessage `json:"data"`
}

type cborTyped struct {
	Type string          `cbor:"type"`
	Time time.Time       `cbor:"time"`
	Data cbor.RawMessage `cbor:"data"`
}

var cborEnc cbor.EncMode

func init() {
	var err error
	if cborEnc, err = (cbor.EncOptions{Time: cbor.TimeRFC3339Nano}).EncMode(); err != nil {
		panic(err)
	}
}

// TypedFrom wraps an event stamped with the current time.
func TypedFrom(ev event.Event) (*Typed, error) {
	return TypedAt(ev, time.Now())
}

// TypedAt wraps an event stamped with t.
func TypedAt(ev event.Event, t time.Time) (*Typed, error) {
	if ev == nil {
		return nil, ErrNotSerializable
	}
	typ := ev.EventType()
	if _, ok := MessageTypes[typ]; !ok {
		return nil, &ErrUnknownType{Type: typ}
	}
	return &Typed{Type: typ, Time: t.UTC(), Event: ev}, nil
}

// EncodeJSON encodes the Typed as a JSON envelope.
func (p Typed) EncodeJSON() ([]byte, error) {
	data, err := json.Marshal(p.Event)
	if err != nil {
		return nil, err
	}
	return json.Marshal(&jsonTyped{Type: p.Type, Time: p.Time, Data: data})
}

// EncodeCBOR encodes the Typed as a CBOR envelope.
func (p Typed) EncodeCBOR() ([]byte, error) {
	data, err := cborEnc.Marshal(cborPayload(p.Event))
	if err != nil {
		return nil, err
	}
	return cborEnc.Marshal(&cborTyped{Type: p.Type, Time: p.Time, Data: data})
}

// DecodeJSON decodes a JSON envelope.
func DecodeJSON(data []byte) (*Typed, error) {
	var env jsonTyped
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	newEvent, ok := MessageTypes[env.Type]
	if !ok {
		return nil, &ErrUnknownType{Type: env.Type}
	}
	ev := newEvent()
	if err := json.Unmarshal(env.Data, ev); err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.Type, err)
	}
	return &Typed{Type: env.Type, Time: env.Time, Event: ev}, nil
}

// DecodeCBOR decodes a CBOR envelope.
func DecodeCBOR(data []byte) (*Typed, error) {
	var env cborTyped
	if err := cbor.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	newEvent, ok := MessageTypes[env.Type]
	if !ok {
		return nil, &ErrUnknownType{Type: env.Type}
	}
	var ev event.Event
	if env.Type == pixel.EventType {
		var rec frameRecord
		if err := cbor.Unmarshal(env.Data, &rec); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		frame, err := unpackFrame(&rec)
		if err != nil {
			return nil, err
		}
		ev = frame
	} else {
		ev = newEvent()
		if err := cbor.Unmarshal(env.Data, ev); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
	}
	return &Typed{Type: env.Type, Time: env.Time, Event: ev}, nil
}

func cborPayload(ev event.Event) interface{} {
	switch e := ev.(type) {
	case *pixel.Frame:
		return packFrame(e)
	case *event.Error:
		return &ErrorMessage{Message: e.Error()}
	}
	return ev
}

func packFrame(f *pixel.Frame) *frameRecord {
	rec := &frameRecord{Width: f.Width, Height: f.Height, Pix: make([]byte, 0, len(f.Pix)*3)}
	for _, c := range f.Pix {
		rec.Pix = append(rec.Pix, c.R, c.G, c.B)
	}
	return rec
}

func unpackFrame(rec *frameRecord) (*pixel.Frame, error) {
	if rec.Width < 0 || rec.Height < 0 || len(rec.Pix) != rec.Width*rec.Height*3 {
		return nil, fmt.Errorf("frame %dx%d with %d bytes", rec.Width, rec.Height, len(rec.Pix))
	}
	f := &pixel.Frame{Width: rec.Width, Height: rec.Height, Pix: make([]pixel.RGB, rec.Width*rec.Height)}
	for i := range f.Pix {
		f.Pix[i] = pixel.RGB{R: rec.Pix[i*3], G: rec.Pix[i*3+1], B: rec.Pix[i*3+2]}
	}
	return f, nil
}
