package chunkserver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mistvale/chunkserver/internal/config"
	"github.com/mistvale/chunkserver/internal/events"
	"github.com/mistvale/chunkserver/internal/protocol"
	"github.com/mistvale/chunkserver/internal/testutil"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.ChunkServer.Host = "127.0.0.1"
	cfg.ChunkServer.Port = 0
	cfg.GameServer.Host = "" // no upstream in tests
	cfg.Queues.Capacity = 256
	cfg.Queues.Workers = 4
	cfg.Queues.WorkerQueue = 256
	return cfg
}

// startApp boots a full app on an ephemeral port and returns it with
// its bound address.
func startApp(t *testing.T, mutate func(*config.Config)) (*App, string) {
	t.Helper()

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	app := NewApp(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("app did not stop after cancel")
		}
	})

	deadline := time.Now().Add(2 * time.Second)
	for app.server.Addr() == nil {
		require.True(t, time.Now().Before(deadline), "listener never came up")
		time.Sleep(10 * time.Millisecond)
	}
	return app, app.server.Addr().String()
}

func TestAppPingRoundTrip(t *testing.T) {
	_, addr := startApp(t, nil)

	c := testutil.Dial(t, addr, 1)
	c.Join(0)

	reqID := c.Send(protocol.EvPingClient, nil)
	env := c.RecvType(protocol.EvPingClient)

	require.Equal(t, protocol.StatusSuccess, env.Header.Status)
	require.Equal(t, protocol.Version, env.Header.Version)
	require.Equal(t, reqID, env.Header.RequestIDEcho)
	require.NotEmpty(t, env.Header.Timestamp)
	require.Positive(t, env.Header.ServerRecvMs)
	require.Positive(t, env.Header.ServerSendMs)
	require.GreaterOrEqual(t, env.Header.ServerSendMs, env.Header.ServerRecvMs)
}

func TestAppJoinAndMoveBroadcast(t *testing.T) {
	_, addr := startApp(t, nil)

	a := testutil.Dial(t, addr, 1)
	a.Join(0)
	a.Send(protocol.EvJoinGameCharacter, map[string]any{
		"id": 10, "name": "Asha", "level": 3,
		"currentHealth": 90, "maxHealth": 90,
	})
	joinAck := a.RecvType(protocol.EvJoinGameCharacter)
	require.Equal(t, protocol.StatusSuccess, joinAck.Header.Status)

	b := testutil.Dial(t, addr, 2)
	b.Join(0)

	a.Send(protocol.EvMoveCharacter, map[string]any{"id": 10, "posX": 42.5, "posY": -7.0})

	echo := a.RecvType(protocol.EvMoveCharacter)
	require.Equal(t, protocol.StatusSuccess, echo.Header.Status)

	seen := testutil.DecodeBody[events.MoveCharacter](t, b.RecvType(protocol.EvMoveCharacter))
	require.Equal(t, int64(10), seen.CharacterID)
	require.Equal(t, 42.5, seen.PosX)
	require.Equal(t, -7.0, seen.PosY)
}

func TestAppDisconnectBroadcast(t *testing.T) {
	_, addr := startApp(t, nil)

	a := testutil.Dial(t, addr, 1)
	a.Join(0)
	a.Send(protocol.EvJoinGameCharacter, map[string]any{"id": 10, "name": "Asha"})
	a.RecvType(protocol.EvJoinGameCharacter)

	b := testutil.Dial(t, addr, 2)
	b.Join(0)

	a.Close()

	left := testutil.DecodeBody[characterLeft](t, b.RecvType(protocol.EvCharacterLeft))
	require.Equal(t, int64(10), left.CharacterID)
	require.Equal(t, "Asha", left.Name)
}

func TestAppRejectsBeyondMaxClients(t *testing.T) {
	_, addr := startApp(t, func(cfg *config.Config) {
		cfg.ChunkServer.MaxClients = 1
	})

	a := testutil.Dial(t, addr, 1)
	a.Join(0)

	b := testutil.Dial(t, addr, 2)
	b.ExpectClosed(2 * time.Second)
}

func TestAppSurvivesMalformedFrame(t *testing.T) {
	_, addr := startApp(t, nil)

	c := testutil.Dial(t, addr, 1)
	c.Join(0)

	// Garbage gets logged and skipped: no reply, no teardown.
	c.SendRaw([]byte("{oops:\n"))
	c.ExpectSilence(300 * time.Millisecond)

	c.Send(protocol.EvPingClient, nil)
	env := c.RecvType(protocol.EvPingClient)
	require.Equal(t, protocol.StatusSuccess, env.Header.Status)
}

func TestAppDropsUnknownEventType(t *testing.T) {
	_, addr := startApp(t, nil)

	c := testutil.Dial(t, addr, 1)
	c.Join(0)

	c.Send("teleportHome", map[string]any{"where": "town"})
	c.ExpectSilence(300 * time.Millisecond)

	c.Send(protocol.EvPingClient, nil)
	env := c.RecvType(protocol.EvPingClient)
	require.Equal(t, protocol.StatusSuccess, env.Header.Status)
}

func TestAppGracefulShutdown(t *testing.T) {
	cfg := testConfig()
	app := NewApp(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for app.server.Addr() == nil {
		require.True(t, time.Now().Before(deadline), "listener never came up")
		time.Sleep(10 * time.Millisecond)
	}

	c := testutil.Dial(t, app.server.Addr().String(), 1)
	c.Join(0)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not shut down")
	}

	c.ExpectClosed(2 * time.Second)
}
