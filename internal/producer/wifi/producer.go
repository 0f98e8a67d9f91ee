package wifi

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lulkien/hyprvisor/internal/broadcast"
	"github.com/lulkien/hyprvisor/internal/ipc"
	"github.com/lulkien/hyprvisor/internal/metrics"
	"github.com/lulkien/hyprvisor/internal/registry"
	"github.com/lulkien/hyprvisor/internal/snapshot"
)

// Config carries the tunables named in spec §4.6.
type Config struct {
	MaxAttemptRetry   int
	RebootDelay       time.Duration
	PollingInterval   time.Duration
	BroadcastAttempts int
}

// Producer owns the WifiSnapshot producer state.
type Producer struct {
	open    OpenSessionFunc
	reg     *registry.Registry
	metrics *metrics.Registry
	log     zerolog.Logger
	cfg     Config

	last   snapshot.WifiSnapshot
	onChange func(snapshot.WifiSnapshot)
}

// New constructs a wifi Producer.
func New(open OpenSessionFunc, reg *registry.Registry, metricsReg *metrics.Registry, log zerolog.Logger, cfg Config) *Producer {
	return &Producer{open: open, reg: reg, metrics: metricsReg, log: log, cfg: cfg}
}

// OnChange registers a callback invoked after every broadcast.
func (p *Producer) OnChange(f func(snapshot.WifiSnapshot)) { p.onChange = f }

// Run drives the outer reconnect loop: up to MaxAttemptRetry attempts,
// sleeping RebootDelay between them, each attempt opening a session and
// polling until the backend reports Disabled or a backend fault occurs
// (spec §4.6, §7).
func (p *Producer) Run(ctx context.Context) error {
	for attempt := 0; attempt < p.cfg.MaxAttemptRetry; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		p.log.Info().Int("attempt", attempt+1).Int("max", p.cfg.MaxAttemptRetry).Msg("starting wifi producer attempt")
		if p.metrics != nil {
			p.metrics.RecordReconnect("wifi")
		}

		if err := p.connectAndPoll(ctx); err != nil {
			p.log.Warn().Err(err).Msg("wifi backend down, rebooting")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.cfg.RebootDelay):
		}
	}

	return fmt.Errorf("wifi: out of attempts")
}

func (p *Producer) connectAndPoll(ctx context.Context) error {
	session, err := p.open()
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}

	device, err := session.Device()
	if err != nil {
		return fmt.Errorf("get device: %w", err)
	}

	mode, err := device.Mode()
	if err != nil {
		return fmt.Errorf("get mode: %w", err)
	}
	if mode != ModeStation {
		return ErrUnsupportedMode
	}

	station, err := device.Station()
	if err != nil {
		return fmt.Errorf("get station: %w", err)
	}

	return p.pollLoop(ctx, station)
}

func (p *Producer) pollLoop(ctx context.Context, station Station) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		next := p.sample(station)
		p.handleSnapshot(next)

		if next.State == snapshot.WifiDisabled {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.cfg.PollingInterval):
		}
	}
}

func (p *Producer) sample(station Station) snapshot.WifiSnapshot {
	raw, err := station.State()
	if err != nil {
		p.log.Error().Err(err).Msg("cannot get wifi state")
		return snapshot.WifiSnapshot{State: snapshot.WifiDisabled, Icon: snapshot.WifiDisabled.Icon()}
	}

	state := mapState(raw)
	ssid := ""
	if state == snapshot.WifiConnected {
		if name, err := station.ConnectedNetworkName(); err == nil {
			ssid = name
		}
	}

	return snapshot.WifiSnapshot{State: state, SSID: ssid, Icon: state.Icon()}
}

func mapState(raw string) snapshot.WifiState {
	switch stateFromString(raw) {
	case stateDisabled:
		return snapshot.WifiDisabled
	case stateDisconnected:
		return snapshot.WifiDisconnected
	case stateConnecting:
		return snapshot.WifiConnecting
	case stateConnected:
		return snapshot.WifiConnected
	default:
		return snapshot.WifiUnknown
	}
}

func (p *Producer) handleSnapshot(next snapshot.WifiSnapshot) {
	if p.last.Equal(next) {
		return
	}
	p.last = next

	payload := snapshot.EncodeWifi(next)
	if err := broadcast.Send(p.reg, p.metrics, ipc.KindWifi, payload, p.cfg.BroadcastAttempts); err != nil && err != broadcast.ErrNoSubscriber {
		p.log.Debug().Err(err).Msg("broadcast wifi")
	}
	if p.onChange != nil {
		p.onChange(next)
	}
}
