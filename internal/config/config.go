// Package config loads the daemon and client tunables from the
// environment, following the <SERVICE>_<FIELD> convention used across the
// teacher corpus's server drafts.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every runtime tunable named in the spec: retry counts,
// polling/reconnect intervals, and the buffer size used by ReadMessage.
type Config struct {
	PollingIntervalMs  int `env:"HYPRVISOR_POLLING_INTERVAL_MS" envDefault:"500"`
	MaxAttemptRetry    int `env:"HYPRVISOR_MAX_RETRY" envDefault:"10"`
	RebootDelayMs      int `env:"HYPRVISOR_REBOOT_DELAY_MS" envDefault:"2500"`
	MaxMessageSize     int `env:"HYPRVISOR_MAX_MESSAGE_SIZE" envDefault:"8192"`
	HandshakeAttempts  int `env:"HYPRVISOR_HANDSHAKE_ATTEMPTS" envDefault:"3"`
	BroadcastAttempts  int `env:"HYPRVISOR_BROADCAST_ATTEMPTS" envDefault:"2"`
	ConnectAttempts    int `env:"HYPRVISOR_CONNECT_ATTEMPTS" envDefault:"5"`
	ConnectDelayMs     int `env:"HYPRVISOR_CONNECT_DELAY_MS" envDefault:"500"`
	MetricsAddr        string `env:"HYPRVISOR_METRICS_ADDR" envDefault:""`
	Verbose            bool   `env:"HYPRVISOR_VERBOSE" envDefault:"false"`

	// AcceptRatePerSec/AcceptBurst bound how fast the dispatcher's accept
	// loop spawns handshake goroutines, guarding against a misbehaving
	// local subscriber stuck in a reconnect loop.
	AcceptRatePerSec float64 `env:"HYPRVISOR_ACCEPT_RATE" envDefault:"50"`
	AcceptBurst      int     `env:"HYPRVISOR_ACCEPT_BURST" envDefault:"20"`
}

// Load reads configuration from an optional .env file (development
// convenience only) and then from the environment, which always wins.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "hyprvisor: warning: failed to load .env: %v\n", err)
	}

	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse environment: %w", err)
	}
	return cfg, nil
}

// PollingInterval returns PollingIntervalMs as a time.Duration.
func (c Config) PollingInterval() time.Duration {
	return time.Duration(c.PollingIntervalMs) * time.Millisecond
}

// RebootDelay returns RebootDelayMs as a time.Duration.
func (c Config) RebootDelay() time.Duration {
	return time.Duration(c.RebootDelayMs) * time.Millisecond
}

// ConnectDelay returns ConnectDelayMs as a time.Duration.
func (c Config) ConnectDelay() time.Duration {
	return time.Duration(c.ConnectDelayMs) * time.Millisecond
}

// DaemonSocketPath constructs the daemon's own listening socket path from
// the environment, per spec §6: $XDG_RUNTIME_DIR/hyprvisor.sock, falling
// back to /tmp/hyprvisor.sock.
func DaemonSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "hyprvisor.sock")
	}
	return "/tmp/hyprvisor.sock"
}

// HyprlandSignature returns the HYPRLAND_INSTANCE_SIGNATURE environment
// marker and whether it was set, the bootstrap precondition from spec §6.
func HyprlandSignature() (string, bool) {
	sig := os.Getenv("HYPRLAND_INSTANCE_SIGNATURE")
	return sig, sig != ""
}

// HyprSocketPaths returns the window manager's command and event socket
// paths for a given instance signature, preferring $XDG_RUNTIME_DIR/hypr
// and falling back to /tmp/hypr.
func HyprSocketPaths(signature string) (command, event string) {
	root := "/tmp/hypr"
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		root = filepath.Join(dir, "hypr")
	}
	base := filepath.Join(root, signature)
	return filepath.Join(base, ".socket.sock"), filepath.Join(base, ".socket2.sock")
}
