// Package daemon implements the bootstrap/command path and connection
// dispatcher for the hyprvisor server process (spec §4.4, §4.9, §4.11).
package daemon

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/lulkien/hyprvisor/internal/config"
	"github.com/lulkien/hyprvisor/internal/ipc"
	"github.com/lulkien/hyprvisor/internal/metrics"
	"github.com/lulkien/hyprvisor/internal/registry"
)

// Daemon bundles the process-wide state owned by the bootstrap: the
// registry, the per-feed states, and the metrics registry.
type Daemon struct {
	Registry *registry.Registry
	States   *FeedStates
	Metrics  *metrics.Registry

	socketPath string
	log        zerolog.Logger
	cfg        config.Config

	listener net.Listener
}

// New constructs a Daemon ready for Bootstrap.
func New(log zerolog.Logger, cfg config.Config) *Daemon {
	return &Daemon{
		Registry: registry.New(),
		States:   NewFeedStates(),
		Metrics:  metrics.NewRegistry(),
		log:      log,
		cfg:      cfg,
	}
}

// Bootstrap resolves the daemon socket path, ensures no other daemon is
// running, removes a stale socket file, and binds the listener. It does
// not yet accept connections; call Dispatcher().Run for that.
func (d *Daemon) Bootstrap() error {
	if _, ok := config.HyprlandSignature(); !ok {
		return fmt.Errorf("daemon: HYPRLAND_INSTANCE_SIGNATURE is not set")
	}

	d.socketPath = config.DaemonSocketPath()

	if err := d.checkNotRunning(); err != nil {
		return err
	}

	if err := d.cleanupStaleSocket(); err != nil {
		return fmt.Errorf("daemon: cleanup stale socket: %w", err)
	}

	listener, err := net.Listen("unix", d.socketPath)
	if err != nil {
		return fmt.Errorf("daemon: listen on %s: %w", d.socketPath, err)
	}
	d.listener = listener
	d.log.Info().Str("socket", d.socketPath).Msg("daemon listening")
	return nil
}

// checkNotRunning probes for an existing daemon two ways: pinging the
// socket (the authoritative liveness check, spec §6), and scanning live
// processes for another instance of this binary (§4.11's
// belt-and-suspenders addition).
func (d *Daemon) checkNotRunning() error {
	if conn, err := ipc.Connect(d.socketPath, 1, 0); err == nil {
		resp, pingErr := ipc.SendAndReceiveMessage(conn, ipc.New(ipc.KindCommand, ipc.EncodeCommandPayload(ipc.CommandPing)), d.cfg.MaxMessageSize)
		conn.Close()
		if pingErr == nil && resp.IsValid() {
			return ErrDaemonRunning
		}
	}

	if running, err := d.anotherProcessRunning(); err == nil && running {
		return ErrDaemonRunning
	}
	return nil
}

func (d *Daemon) anotherProcessRunning() (bool, error) {
	self := os.Getpid()
	selfName, err := exeBaseName()
	if err != nil {
		return false, err
	}

	procs, err := process.Processes()
	if err != nil {
		return false, err
	}

	for _, p := range procs {
		if int(p.Pid) == self {
			continue
		}
		name, err := p.Name()
		if err != nil || name != selfName {
			continue
		}
		return true, nil
	}
	return false, nil
}

func exeBaseName() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Base(exe), nil
}

// cleanupStaleSocket removes a leftover socket file when no live daemon
// answered the ping check above.
func (d *Daemon) cleanupStaleSocket() error {
	if _, err := os.Stat(d.socketPath); err == nil {
		return os.Remove(d.socketPath)
	} else if !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Dispatcher builds a Dispatcher bound to this daemon's listener and
// shared state.
func (d *Daemon) Dispatcher(onKill func()) *Dispatcher {
	return NewDispatcher(d.listener, d.Registry, d.Metrics, d.States, d.log, DispatcherConfig{
		HandshakeAttempts: d.cfg.HandshakeAttempts,
		MaxMessageSize:    d.cfg.MaxMessageSize,
		AcceptRatePerSec:  d.cfg.AcceptRatePerSec,
		AcceptBurst:       d.cfg.AcceptBurst,
	}, onKill)
}

// Close releases the listener and removes the socket file.
func (d *Daemon) Close() {
	if d.listener != nil {
		d.listener.Close()
	}
	os.Remove(d.socketPath)
}

// ServeMetrics starts the optional loopback Prometheus endpoint described
// in SPEC_FULL §4.11, if cfg.MetricsAddr is non-empty. It returns
// immediately; the server runs until ctx is canceled.
func (d *Daemon) ServeMetrics(ctx context.Context) {
	if d.cfg.MetricsAddr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", d.Metrics.Handler())

	srv := &http.Server{Addr: d.cfg.MetricsAddr, Handler: mux}

	go func() {
		d.log.Info().Str("addr", d.cfg.MetricsAddr).Msg("metrics endpoint listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			d.log.Warn().Err(err).Msg("metrics server error")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}
