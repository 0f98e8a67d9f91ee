package bluetooth

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

// Config carries the tunables named in spec §4.7.
type Config struct {
	MaxAttemptRetry   int
	RebootDelay       time.Duration
	PollingInterval   time.Duration
	BroadcastAttempts int
}

// Producer owns the BluetoothSnapshot producer state.
type Producer struct {
	open    OpenSessionFunc
	reg     *registry.Registry
	metrics *metrics.Registry
	log     zerolog.Logger
	cfg     Config

	powered  bool
	last     snapshot.BluetoothSnapshot
	onChange func(snapshot.BluetoothSnapshot)
}

// New constructs a bluetooth Producer.
func New(open OpenSessionFunc, reg *registry.Registry, metricsReg *metrics.Registry, log zerolog.Logger, cfg Config) *Producer {
	return &Producer{open: open, reg: reg, metrics: metricsReg, log: log, cfg: cfg}
}

// OnChange registers a callback invoked after every broadcast.
func (p *Producer) OnChange(f func(snapshot.BluetoothSnapshot)) { p.onChange = f }

// Run mirrors the wifi producer's outer reconnect loop (spec §4.7).
func (p *Producer) Run(ctx context.Context) error {
	for attempt := 0; attempt < p.cfg.MaxAttemptRetry; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		p.log.Info().Int("attempt", attempt+1).Int("max", p.cfg.MaxAttemptRetry).Msg("starting bluetooth producer attempt")
		if p.metrics != nil {
			p.metrics.RecordReconnect("bluetooth")
		}

		if err := p.connectAndPoll(ctx); err != nil {
			p.log.Warn().Err(err).Msg("bluetooth backend down, rebooting")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.cfg.RebootDelay):
		}
	}

	return fmt.Errorf("bluetooth: out of attempts")
}

func (p *Producer) connectAndPoll(ctx context.Context) error {
	session, err := p.open()
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}

	adapter, err := session.Adapter()
	if err != nil {
		return fmt.Errorf("get adapter: %w", err)
	}

	return p.pollLoop(ctx, adapter)
}

func (p *Producer) pollLoop(ctx context.Context, adapter Adapter) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		powered, err := adapter.Powered()
		if err != nil {
			return fmt.Errorf("read powered: %w", err)
		}

		if powered != p.powered {
			p.powered = powered
			if !powered {
				p.handleSnapshot(snapshot.BluetoothSnapshot{})
			}
		}

		if !powered {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.cfg.PollingInterval):
			}
			continue
		}

		next, err := p.enumerate(adapter)
		if err != nil {
			return fmt.Errorf("enumerate devices: %w", err)
		}
		next.Powered = true
		p.handleSnapshot(next)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.cfg.PollingInterval):
		}
	}
}

func (p *Producer) enumerate(adapter Adapter) (snapshot.BluetoothSnapshot, error) {
	addresses, err := adapter.KnownAddresses()
	if err != nil {
		return snapshot.BluetoothSnapshot{}, err
	}

	var connected []snapshot.BluetoothDevice
	for _, addr := range addresses {
		dev, err := adapter.Device(addr)
		if err != nil {
			continue
		}
		ok, err := dev.Connected()
		if err != nil || !ok {
			continue
		}
		name := DefaultDeviceName
		if n, err := dev.Name(); err == nil && n != "" {
			name = n
		}
		connected = append(connected, snapshot.BluetoothDevice{Name: name, Address: addr})
	}

	return snapshot.BluetoothSnapshot{Connected: connected}, nil
}

func (p *Producer) handleSnapshot(next snapshot.BluetoothSnapshot) {
	if p.last.Equal(next) {
		return
	}
	p.last = next

	payload := snapshot.EncodeBluetooth(next)
	if err := broadcast.Send(p.reg, p.metrics, ipc.KindBluetooth, payload, p.cfg.BroadcastAttempts); err != nil && err != broadcast.ErrNoSubscriber {
		p.log.Debug().Err(err).Msg("broadcast bluetooth")
	}
	if p.onChange != nil {
		p.onChange(next)
	}
}
