// Package testutil provides helpers for integration tests against a
// running chunk server.
package testutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"net"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mistvale/chunkserver/internal/protocol"
)

// Client drives the chunk server's line-JSON protocol in tests. It
// manages framing, request ids and read deadlines; connections close
// via t.Cleanup.
type Client struct {
	t        testing.TB
	conn     net.Conn
	clientID int64
	hash     string
	timeout  time.Duration

	buf []byte // unconsumed read bytes
}

// Dial connects to a chunk server. Dial retries briefly so tests can
// start the server and client concurrently.
func Dial(t testing.TB, addr string, clientID int64) *Client {
	t.Helper()

	var conn net.Conn
	var err error
	for attempt := range 10 {
		conn, err = net.DialTimeout("tcp", addr, 5*time.Second)
		if err == nil {
			break
		}
		if attempt < 9 {
			time.Sleep(time.Duration(20<<min(attempt, 6)) * time.Millisecond)
		}
	}
	if err != nil {
		t.Fatalf("dial chunk server: %v", err)
	}

	// SO_LINGER=0 sends an immediate RST on close so mass test runs do
	// not exhaust ephemeral ports in TIME_WAIT.
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		_ = tcpConn.SetLinger(0)
	}

	c := &Client{
		t:        t,
		conn:     conn,
		clientID: clientID,
		hash:     uuid.NewString(),
		timeout:  5 * time.Second,
	}
	t.Cleanup(func() { _ = conn.Close() })
	return c
}

// ClientID returns the id this client stamps into headers.
func (c *Client) ClientID() int64 { return c.clientID }

// Close terminates the connection early.
func (c *Client) Close() { _ = c.conn.Close() }

// Send writes one request frame and returns its generated request id.
func (c *Client) Send(eventType string, body any) string {
	c.t.Helper()

	requestID := uuid.NewString()
	frame := map[string]any{
		"header": map[string]any{
			"eventType":    eventType,
			"clientId":     c.clientID,
			"hash":         c.hash,
			"requestId":    requestID,
			"clientSendMs": time.Now().UnixMilli(),
		},
	}
	if body != nil {
		frame["body"] = body
	}
	b, err := json.Marshal(frame)
	if err != nil {
		c.t.Fatalf("marshal %s frame: %v", eventType, err)
	}
	c.SendRaw(append(b, '\n'))
	return requestID
}

// SendRaw writes bytes verbatim, for malformed and oversize frame tests.
func (c *Client) SendRaw(line []byte) {
	c.t.Helper()
	c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	if _, err := c.conn.Write(line); err != nil {
		c.t.Fatalf("write frame: %v", err)
	}
}

// Join sends joinGameClient and waits for its ack, skipping any
// broadcasts that arrive first.
func (c *Client) Join(characterID int64) protocol.Envelope {
	c.t.Helper()
	body := map[string]any{}
	if characterID != 0 {
		body["id"] = characterID
	}
	c.Send(protocol.EvJoinGameClient, body)
	return c.RecvType(protocol.EvJoinGameClient)
}

// Recv returns the next frame from the server.
func (c *Client) Recv() protocol.Envelope {
	c.t.Helper()

	frame, err := c.readFrame(time.Now().Add(c.timeout))
	if err != nil {
		c.t.Fatalf("read frame: %v", err)
	}
	env, err := protocol.ParseEnvelope(frame)
	if err != nil {
		c.t.Fatalf("parse frame %q: %v", frame, err)
	}
	return env
}

// RecvType reads frames until one matches eventType. Broadcasts from
// other clients' activity interleave freely, so tests wait by type.
func (c *Client) RecvType(eventType string) protocol.Envelope {
	c.t.Helper()

	for range 50 {
		env := c.Recv()
		if env.Header.EventType == eventType {
			return env
		}
	}
	c.t.Fatalf("no %s frame within 50 frames", eventType)
	return protocol.Envelope{}
}

// ExpectSilence asserts no frame arrives within d and the connection
// stays open. Used for requests the server must ignore.
func (c *Client) ExpectSilence(d time.Duration) {
	c.t.Helper()

	frame, err := c.readFrame(time.Now().Add(d))
	if err == nil {
		c.t.Fatalf("expected silence, got frame %q", frame)
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return
	}
	c.t.Fatalf("expected open connection, read failed: %v", err)
}

// ExpectClosed asserts the server closes the connection within d.
func (c *Client) ExpectClosed(d time.Duration) {
	c.t.Helper()

	for {
		_, err := c.readFrame(time.Now().Add(d))
		if err == nil {
			continue // drain frames sent before the close
		}
		if errors.Is(err, os.ErrDeadlineExceeded) {
			c.t.Fatalf("expected connection close, still open after %v", d)
		}
		return
	}
}

// readFrame accumulates bytes until a newline. Partial reads survive a
// deadline error, so a timed-out wait does not lose data.
func (c *Client) readFrame(deadline time.Time) ([]byte, error) {
	scratch := make([]byte, 4096)
	for {
		if i := bytes.IndexByte(c.buf, '\n'); i >= 0 {
			frame := append([]byte(nil), bytes.TrimSpace(c.buf[:i])...)
			c.buf = append(c.buf[:0], c.buf[i+1:]...)
			return frame, nil
		}
		c.conn.SetReadDeadline(deadline)
		n, err := c.conn.Read(scratch)
		c.buf = append(c.buf, scratch[:n]...)
		if err != nil {
			if bytes.IndexByte(c.buf, '\n') >= 0 {
				continue
			}
			return nil, err
		}
	}
}

// DecodeBody unmarshals an envelope body into T.
func DecodeBody[T any](t testing.TB, env protocol.Envelope) T {
	t.Helper()
	var v T
	if len(env.Body) > 0 {
		if err := json.Unmarshal(env.Body, &v); err != nil {
			t.Fatalf("decode %s body: %v", env.Header.EventType, err)
		}
	}
	return v
}

// ListenLocal opens a listener on an ephemeral localhost port, closed
// via t.Cleanup.
func ListenLocal(t testing.TB) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })
	return ln
}
