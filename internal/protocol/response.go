package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// Version is stamped into every response header.
const Version = "1.0"

// Response status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Meta carries the request fields a response must echo for the
// client-side lag compensation: clientSendMs, requestId and the
// server-side receive stamp taken at the frame boundary.
type Meta struct {
	ClientSendMs int64
	RequestID    string
	ServerRecvMs int64
}

// NowMs returns wall-clock milliseconds, the unit of all wire timestamps.
func NowMs() int64 {
	return time.Now().UnixMilli()
}

// ErrorBody is the body of a validation failure response.
type ErrorBody struct {
	ErrorCode string `json:"errorCode"`
	Message   string `json:"message"`
}

// MarshalResponse builds one framed response line answering a specific
// request: echoes stamped, serverSendMs sampled immediately before the
// write, '\n' terminated.
func MarshalResponse(eventType, status string, meta Meta, body any) ([]byte, error) {
	h := Header{
		EventType:        eventType,
		Status:           status,
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
		Version:          Version,
		ServerRecvMs:     meta.ServerRecvMs,
		ServerSendMs:     NowMs(),
		ClientSendMsEcho: meta.ClientSendMs,
		RequestIDEcho:    meta.RequestID,
	}
	return marshalFrame(h, body)
}

// MarshalBroadcast builds a server-initiated line with no request echoes.
func MarshalBroadcast(eventType string, body any) ([]byte, error) {
	h := Header{
		EventType:    eventType,
		Status:       StatusSuccess,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Version:      Version,
		ServerSendMs: NowMs(),
	}
	return marshalFrame(h, body)
}

// MarshalRequest builds an upstream-bound line, the chunk server acting
// as the client side of the game-server link.
func MarshalRequest(eventType string, clientID int64, hash string, body any) ([]byte, error) {
	h := Header{
		EventType:    eventType,
		ClientID:     clientID,
		Hash:         hash,
		ClientSendMs: NowMs(),
	}
	return marshalFrame(h, body)
}

func marshalFrame(h Header, body any) ([]byte, error) {
	env := struct {
		Header Header `json:"header"`
		Body   any    `json:"body,omitempty"`
	}{Header: h, Body: body}
	b, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s frame: %w", h.EventType, err)
	}
	return append(b, '\n'), nil
}
