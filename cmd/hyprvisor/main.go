// Command hyprvisor is both the daemon and the client described in
// SPEC_FULL.md §6: `hyprvisor daemon` runs the session daemon; the other
// subcommands speak the same socket protocol as one-shot or long-lived
// clients.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/lulkien/hyprvisor/internal/client"
	"github.com/lulkien/hyprvisor/internal/config"
	"github.com/lulkien/hyprvisor/internal/daemon"
	"github.com/lulkien/hyprvisor/internal/logging"
	"github.com/lulkien/hyprvisor/internal/producer/bluetooth"
	"github.com/lulkien/hyprvisor/internal/producer/wifi"
	"github.com/lulkien/hyprvisor/internal/producer/windowmanager"
)

func main() {
	if _, err := maxprocs.Set(); err != nil {
		fmt.Fprintf(os.Stderr, "hyprvisor: automaxprocs: %v\n", err)
	}

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	args, verbose := splitVerbose(os.Args[1:])
	if len(args) < 1 {
		usage()
		os.Exit(1)
	}

	cmd, rest := args[0], args[1:]

	var err error
	switch cmd {
	case "daemon", "d":
		err = runDaemon(verbose)
	case "ping", "p":
		err = runPing(verbose)
	case "kill", "k":
		err = runKill(verbose)
	case "workspaces", "ws":
		err = runWorkspaces(verbose, rest)
	case "window", "w":
		err = runWindow(verbose, rest)
	case "wifi":
		err = runWifi(verbose, rest)
	case "bluetooth", "bt":
		err = runBluetooth(verbose)
	default:
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "hyprvisor: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: hyprvisor [-v|--verbose] <command> [args]

commands:
  daemon|d                        start the daemon
  ping|p                          ping a running daemon
  kill|k                          stop a running daemon
  workspaces|ws [fix]             subscribe to the workspace feed
  window|w [title_length]         subscribe to the focused-window feed
  wifi [ssid_length]              subscribe to the wifi feed
  bluetooth|bt                    subscribe to the bluetooth feed`)
}

// splitVerbose pulls -v/--verbose out of args, wherever it appears.
func splitVerbose(args []string) ([]string, bool) {
	out := make([]string, 0, len(args))
	verbose := false
	for _, a := range args {
		if a == "-v" || a == "--verbose" {
			verbose = true
			continue
		}
		out = append(out, a)
	}
	return out, verbose
}

func optionalInt(args []string) *int {
	if len(args) == 0 {
		return nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return nil
	}
	return &n
}

func clientConfig(cfg config.Config) client.Config {
	return client.Config{
		SocketPath:      config.DaemonSocketPath(),
		ConnectAttempts: cfg.ConnectAttempts,
		ConnectDelayMs:  cfg.ConnectDelayMs,
		MaxMessageSize:  cfg.MaxMessageSize,
	}
}

func runPing(verbose bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if _, err := logging.New(logging.ClientLogPath, verbose, verbose); err != nil {
		return err
	}
	return client.Ping(clientConfig(cfg))
}

func runKill(verbose bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if _, err := logging.New(logging.ClientLogPath, verbose, verbose); err != nil {
		return err
	}
	return client.Kill(clientConfig(cfg))
}

func runWorkspaces(verbose bool, rest []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logging.New(logging.ClientLogPath, verbose, verbose)
	if err != nil {
		return err
	}
	return client.PrintWorkspaces(log, clientConfig(cfg), optionalInt(rest))
}

func runWindow(verbose bool, rest []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logging.New(logging.ClientLogPath, verbose, verbose)
	if err != nil {
		return err
	}
	return client.PrintWindow(log, clientConfig(cfg), optionalInt(rest))
}

func runWifi(verbose bool, rest []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logging.New(logging.ClientLogPath, verbose, verbose)
	if err != nil {
		return err
	}
	return client.PrintWifi(log, clientConfig(cfg), optionalInt(rest))
}

func runBluetooth(verbose bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logging.New(logging.ClientLogPath, verbose, verbose)
	if err != nil {
		return err
	}
	return client.PrintBluetooth(log, clientConfig(cfg))
}

// runDaemon bootstraps the daemon, spawns one task per producer, and
// serves connections until killed or signaled.
func runDaemon(verbose bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logging.New(logging.ServerLogPath, verbose, false)
	if err != nil {
		return err
	}

	d := daemon.New(log, cfg)
	if err := d.Bootstrap(); err != nil {
		return err
	}
	defer d.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d.ServeMetrics(ctx)
	go sampleRSS(ctx, d)

	signature, _ := config.HyprlandSignature()
	cmdSock, eventSock := config.HyprSocketPaths(signature)

	wmProducer, err := newWindowManagerProducer(d, log, cfg, cmdSock, eventSock)
	if err != nil {
		return err
	}

	wifiProducer := wifi.New(unconfiguredWifiBackend, d.Registry, d.Metrics, log, wifi.Config{
		MaxAttemptRetry:   cfg.MaxAttemptRetry,
		RebootDelay:       cfg.RebootDelay(),
		PollingInterval:   cfg.PollingInterval(),
		BroadcastAttempts: cfg.BroadcastAttempts,
	})
	wifiProducer.OnChange(d.States.SetWifi)

	btProducer := bluetooth.New(unconfiguredBluetoothBackend, d.Registry, d.Metrics, log, bluetooth.Config{
		MaxAttemptRetry:   cfg.MaxAttemptRetry,
		RebootDelay:       cfg.RebootDelay(),
		PollingInterval:   cfg.PollingInterval(),
		BroadcastAttempts: cfg.BroadcastAttempts,
	})
	btProducer.OnChange(d.States.SetBluetooth)

	go func() {
		if err := wmProducer.Run(); err != nil {
			log.Error().Err(err).Msg("window manager producer exited; this is a hard dependency, shutting down")
			stop()
		}
	}()
	go func() {
		if err := wifiProducer.Run(ctx); err != nil && ctx.Err() == nil {
			log.Warn().Err(err).Msg("wifi producer exhausted its reconnect attempts")
		}
	}()
	go func() {
		if err := btProducer.Run(ctx); err != nil && ctx.Err() == nil {
			log.Warn().Err(err).Msg("bluetooth producer exhausted its reconnect attempts")
		}
	}()

	onKillOnce := make(chan struct{})
	dispatcher := d.Dispatcher(func() {
		close(onKillOnce)
	})

	go dispatcher.Run(ctx)

	select {
	case <-ctx.Done():
		log.Info().Msg("received shutdown signal")
	case <-onKillOnce:
		log.Info().Msg("received kill command")
	}

	return nil
}

func sampleRSS(ctx context.Context, d *daemon.Daemon) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Metrics.SampleProcessRSS()
		}
	}
}

// newWindowManagerProducer dials the window manager's event socket
// (bounded retry) and wraps the command socket in a SocketQuerier, per
// SPEC_FULL.md §6's socket path conventions.
func newWindowManagerProducer(d *daemon.Daemon, log zerolog.Logger, cfg config.Config, cmdSock, eventSock string) (*windowmanager.Producer, error) {
	events, err := windowmanager.ConnectEventSource(eventSock, cfg.ConnectAttempts, cfg.ConnectDelay())
	if err != nil {
		return nil, fmt.Errorf("connect window manager event socket: %w", err)
	}

	querier := windowmanager.SocketQuerier{Path: cmdSock}
	p := windowmanager.New(events, querier, d.Registry, d.Metrics, log, cfg.BroadcastAttempts)
	p.OnWindowChange(d.States.SetWindow)
	p.OnWorkspacesChange(d.States.SetWorkspaces)
	return p, nil
}

// unconfiguredWifiBackend and unconfiguredBluetoothBackend stand in for the
// concrete radio backends, which SPEC_FULL.md treats as opaque external
// collaborators supplied by the deployment (iwd/NetworkManager over D-Bus,
// BlueZ over D-Bus). Wiring a real backend means providing an
// OpenSessionFunc here.
var errBackendUnconfigured = errors.New("no radio backend wired into this build")

func unconfiguredWifiBackend() (wifi.Session, error) {
	return nil, errBackendUnconfigured
}

func unconfiguredBluetoothBackend() (bluetooth.Session, error) {
	return nil, errBackendUnconfigured
}
