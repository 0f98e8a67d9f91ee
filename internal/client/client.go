package client

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/lulkien/hyprvisor/internal/ipc"
	"github.com/lulkien/hyprvisor/internal/snapshot"
)

// Config carries the tunables the client consumer needs, mirroring the
// daemon side's retry/backoff knobs (spec §4.10, §6).
type Config struct {
	SocketPath      string
	ConnectAttempts int
	ConnectDelayMs  int
	MaxMessageSize  int
}

// Subscribe dials the daemon, sends a Subscription for kind, and invokes
// onSnapshot with each Response payload's raw bytes until the connection
// closes or ctx-less read loop hits an unrecoverable error. The daemon
// never reads again after the handshake (spec §9), so the client writes
// exactly once.
func Subscribe(log zerolog.Logger, cfg Config, kind ipc.SubscriptionKind, onSnapshot func([]byte) error) error {
	conn, err := ipc.Connect(cfg.SocketPath, cfg.ConnectAttempts, msToDuration(cfg.ConnectDelayMs))
	if err != nil {
		return fmt.Errorf("client: connect: %w", err)
	}
	defer conn.Close()

	info := ipc.ClientInfo{Kind: kind, Pid: uint32(os.Getpid())}
	sub := ipc.New(ipc.KindSubscription, ipc.EncodeClientInfo(info))
	if err := ipc.WriteMessage(conn, sub); err != nil {
		return fmt.Errorf("client: send subscription: %w", err)
	}

	for {
		msg, err := ipc.ReadMessage(conn, cfg.MaxMessageSize)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("client: read response: %w", err)
		}
		if msg.Kind != ipc.KindResponse {
			log.Debug().Str("kind", msg.Kind.String()).Msg("ignoring unexpected message")
			continue
		}
		if err := onSnapshot(msg.Payload); err != nil {
			return err
		}
	}
}

// Ping sends a Command/Ping and reports whether a response was received.
func Ping(cfg Config) error {
	conn, err := ipc.Connect(cfg.SocketPath, cfg.ConnectAttempts, msToDuration(cfg.ConnectDelayMs))
	if err != nil {
		return fmt.Errorf("client: connect: %w", err)
	}
	defer conn.Close()

	resp, err := ipc.SendAndReceiveMessage(conn, ipc.New(ipc.KindCommand, ipc.EncodeCommandPayload(ipc.CommandPing)), cfg.MaxMessageSize)
	if err != nil {
		return fmt.Errorf("client: ping: %w", err)
	}
	if !resp.IsValid() {
		return fmt.Errorf("client: ping: malformed response")
	}
	fmt.Println(string(resp.Payload))
	return nil
}

// Kill sends a Command/Kill and reports the daemon's shutdown notice.
func Kill(cfg Config) error {
	conn, err := ipc.Connect(cfg.SocketPath, cfg.ConnectAttempts, msToDuration(cfg.ConnectDelayMs))
	if err != nil {
		return fmt.Errorf("client: connect: %w", err)
	}
	defer conn.Close()

	resp, err := ipc.SendAndReceiveMessage(conn, ipc.New(ipc.KindCommand, ipc.EncodeCommandPayload(ipc.CommandKill)), cfg.MaxMessageSize)
	if err != nil {
		return fmt.Errorf("client: kill: %w", err)
	}
	fmt.Println(string(resp.Payload))
	return nil
}

// PrintWorkspaces subscribes to the Workspaces feed and prints each update
// as rendered JSON until the daemon closes the connection.
func PrintWorkspaces(log zerolog.Logger, cfg Config, fix *int) error {
	return Subscribe(log, cfg, ipc.KindWorkspaces, func(payload []byte) error {
		ws, err := snapshot.DecodeWorkspaces(payload)
		if err != nil {
			return err
		}
		out, err := RenderWorkspaces(ws, fix)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	})
}

// PrintWindow subscribes to the Window feed and prints each update.
func PrintWindow(log zerolog.Logger, cfg Config, titleLength *int) error {
	return Subscribe(log, cfg, ipc.KindWindow, func(payload []byte) error {
		w, err := snapshot.DecodeWindow(payload)
		if err != nil {
			return err
		}
		out, err := RenderWindow(w, titleLength)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	})
}

// PrintWifi subscribes to the Wifi feed and prints each update.
func PrintWifi(log zerolog.Logger, cfg Config, ssidLength *int) error {
	return Subscribe(log, cfg, ipc.KindWifi, func(payload []byte) error {
		w, err := snapshot.DecodeWifi(payload)
		if err != nil {
			return err
		}
		out, err := RenderWifi(w, ssidLength)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	})
}

// PrintBluetooth subscribes to the Bluetooth feed and prints each update.
func PrintBluetooth(log zerolog.Logger, cfg Config) error {
	return Subscribe(log, cfg, ipc.KindBluetooth, func(payload []byte) error {
		b, err := snapshot.DecodeBluetooth(payload)
		if err != nil {
			return err
		}
		out, err := RenderBluetooth(b)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	})
}

func msToDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
