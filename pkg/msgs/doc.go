// Package msgs provides the typed envelope used to carry link events
// across process boundaries (MQTT, WebSocket, capture files).
//
// An envelope is {"type", "time", "data"} where data is the event payload.
// It is encoded as JSON for the text transports and as CBOR for capture
// files.
package msgs
