package daemon

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/lulkien/hyprvisor/internal/broadcast"
	"github.com/lulkien/hyprvisor/internal/ipc"
	"github.com/lulkien/hyprvisor/internal/metrics"
	"github.com/lulkien/hyprvisor/internal/registry"
	"github.com/lulkien/hyprvisor/internal/snapshot"
)

func newTestDispatcher(t *testing.T, onKill func()) (*Dispatcher, *registry.Registry, *FeedStates, string) {
	t.Helper()
	sockPath := filepath.Join(t.TempDir(), "hyprvisor-test.sock")
	listener, err := net.Listen("unix", sockPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { listener.Close() })

	reg := registry.New()
	states := NewFeedStates()
	metricsReg := metrics.NewRegistry()
	d := NewDispatcher(listener, reg, metricsReg, states, zerolog.Nop(), DispatcherConfig{
		HandshakeAttempts: 3,
		MaxMessageSize:    8192,
		AcceptRatePerSec:  1000,
		AcceptBurst:       100,
	}, onKill)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go d.Run(ctx)

	return d, reg, states, sockPath
}

func TestDispatcherPing(t *testing.T) {
	_, _, _, sockPath := newTestDispatcher(t, nil)

	conn, err := ipc.Connect(sockPath, 10, 10*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	resp, err := ipc.SendAndReceiveMessage(conn, ipc.New(ipc.KindCommand, ipc.EncodeCommandPayload(ipc.CommandPing)), 8192)
	if err != nil {
		t.Fatal(err)
	}
	if string(resp.Payload) != PongPayload {
		t.Fatalf("got %q, want %q", resp.Payload, PongPayload)
	}
}

func TestDispatcherKillInvokesCallback(t *testing.T) {
	killed := make(chan struct{})
	_, _, _, sockPath := newTestDispatcher(t, func() { close(killed) })

	conn, err := ipc.Connect(sockPath, 10, 10*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	resp, err := ipc.SendAndReceiveMessage(conn, ipc.New(ipc.KindCommand, ipc.EncodeCommandPayload(ipc.CommandKill)), 8192)
	if err != nil {
		t.Fatal(err)
	}
	if string(resp.Payload) != ShutdownNotice {
		t.Fatalf("got %q", resp.Payload)
	}

	select {
	case <-killed:
	case <-time.After(2 * time.Second):
		t.Fatal("onKill callback was never invoked")
	}
}

func TestDispatcherSubscriptionSeedsCurrentStateThenBroadcasts(t *testing.T) {
	_, reg, states, sockPath := newTestDispatcher(t, nil)

	seed := snapshot.WindowSnapshot{Class: "kitty", Title: "zsh"}
	states.SetWindow(seed)

	conn, err := ipc.Connect(sockPath, 10, 10*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	sub := ipc.New(ipc.KindSubscription, ipc.EncodeClientInfo(ipc.ClientInfo{Kind: ipc.KindWindow, Pid: 42}))
	if err := ipc.WriteMessage(conn, sub); err != nil {
		t.Fatal(err)
	}

	initial, err := ipc.ReadMessage(conn, 8192)
	if err != nil {
		t.Fatal(err)
	}
	got, err := snapshot.DecodeWindow(initial.Payload)
	if err != nil {
		t.Fatal(err)
	}
	if got != seed {
		t.Fatalf("initial seed got %+v, want %+v", got, seed)
	}

	if reg.Count(ipc.KindWindow) != 1 {
		t.Fatalf("expected 1 subscriber registered, got %d", reg.Count(ipc.KindWindow))
	}

	update := snapshot.WindowSnapshot{Class: "firefox", Title: "example.com"}
	if err := broadcast.Send(reg, nil, ipc.KindWindow, snapshot.EncodeWindow(update), 2); err != nil {
		t.Fatal(err)
	}

	msg, err := ipc.ReadMessage(conn, 8192)
	if err != nil {
		t.Fatal(err)
	}
	got2, err := snapshot.DecodeWindow(msg.Payload)
	if err != nil {
		t.Fatal(err)
	}
	if got2 != update {
		t.Fatalf("broadcast update got %+v, want %+v", got2, update)
	}
}

func TestDispatcherRejectsMalformedSubscription(t *testing.T) {
	_, _, _, sockPath := newTestDispatcher(t, nil)

	conn, err := ipc.Connect(sockPath, 10, 10*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	bad := ipc.New(ipc.KindSubscription, []byte{0x01, 0x02})
	if err := ipc.WriteMessage(conn, bad); err != nil {
		t.Fatal(err)
	}

	// The dispatcher closes the connection instead of responding.
	buf := make([]byte, 1)
	conn.SetReadDeadline(time.Now().Add(time.Second))
	if n, err := conn.Read(buf); n != 0 && err == nil {
		t.Fatalf("expected connection to be closed, got %d bytes", n)
	}
}
