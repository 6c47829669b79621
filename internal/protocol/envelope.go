// Package protocol defines the line-delimited JSON envelope shared by
// game clients and the upstream game server, plus the framing limits
// and error codes both directions rely on.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Header carries routing and timing fields. Request and response share
// the struct; response-only fields stay empty on ingress.
type Header struct {
	EventType    string `json:"eventType"`
	ClientID     int64  `json:"clientId,omitempty"`
	Hash         string `json:"hash,omitempty"`
	RequestID    string `json:"requestId,omitempty"`
	ClientSendMs int64  `json:"clientSendMs,omitempty"`

	Status           string `json:"status,omitempty"`
	Timestamp        string `json:"timestamp,omitempty"`
	Version          string `json:"version,omitempty"`
	ServerRecvMs     int64  `json:"serverRecvMs,omitempty"`
	ServerSendMs     int64  `json:"serverSendMs,omitempty"`
	ClientSendMsEcho int64  `json:"clientSendMsEcho,omitempty"`
	RequestIDEcho    string `json:"requestIdEcho,omitempty"`
}

// Envelope is one wire frame. Body stays raw until the dispatcher knows
// the payload type for the event.
type Envelope struct {
	Header Header          `json:"header"`
	Body   json.RawMessage `json:"body,omitempty"`
}

// ParseEnvelope decodes a complete frame, body kept raw.
func ParseEnvelope(frame []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Envelope{}, fmt.Errorf("parse envelope: %w", err)
	}
	if env.Header.EventType == "" {
		return Envelope{}, fmt.Errorf("parse envelope: missing eventType")
	}
	return env, nil
}

// ParseHeader decodes only the header of a frame. The ping fast path
// uses this to skip body handling entirely.
func ParseHeader(frame []byte) (Header, error) {
	var probe struct {
		Header Header `json:"header"`
	}
	if err := json.Unmarshal(frame, &probe); err != nil {
		return Header{}, fmt.Errorf("parse header: %w", err)
	}
	return probe.Header, nil
}
