package daemon

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/lulkien/hyprvisor/internal/ipc"
	"github.com/lulkien/hyprvisor/internal/metrics"
	"github.com/lulkien/hyprvisor/internal/registry"
	"github.com/lulkien/hyprvisor/internal/snapshot"
)

// DispatcherConfig carries the tunables the connection dispatcher needs.
type DispatcherConfig struct {
	HandshakeAttempts int
	MaxMessageSize    int
	AcceptRatePerSec  float64
	AcceptBurst       int
}

// Dispatcher accepts connections on the daemon socket and routes each to
// the command handler or the subscription handler (spec §4.4).
type Dispatcher struct {
	listener net.Listener
	reg      *registry.Registry
	metrics  *metrics.Registry
	states   *FeedStates
	log      zerolog.Logger
	cfg      DispatcherConfig
	limiter  *rate.Limiter
	wg       sync.WaitGroup

	// onKill is invoked once the Kill command's response has drained; it
	// triggers process shutdown from the bootstrap layer.
	onKill func()
}

// NewDispatcher constructs a Dispatcher over an already-bound listener.
func NewDispatcher(listener net.Listener, reg *registry.Registry, metricsReg *metrics.Registry, states *FeedStates, log zerolog.Logger, cfg DispatcherConfig, onKill func()) *Dispatcher {
	rl := rate.NewLimiter(rate.Limit(cfg.AcceptRatePerSec), cfg.AcceptBurst)
	return &Dispatcher{listener: listener, reg: reg, metrics: metricsReg, states: states, log: log, cfg: cfg, limiter: rl, onKill: onKill}
}

// Run accepts connections until ctx is canceled or the listener closes.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		conn, err := d.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			d.log.Error().Err(err).Msg("accept error")
			return
		}

		if !d.limiter.Allow() {
			d.log.Debug().Msg("accept rate limit exceeded, dropping connection")
			conn.Close()
			continue
		}

		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.handleConnection(conn)
		}()
	}
}

// Wait blocks until every in-flight connection handler has returned.
func (d *Dispatcher) Wait() { d.wg.Wait() }

func (d *Dispatcher) handleConnection(conn net.Conn) {
	msg, err := ipc.TryReadMessage(conn, d.cfg.MaxMessageSize, d.cfg.HandshakeAttempts)
	if err != nil {
		d.log.Debug().Err(err).Msg("handshake read failed")
		conn.Close()
		return
	}

	if !msg.IsValid() {
		d.log.Debug().Msg("rejecting invalid message")
		conn.Close()
		return
	}

	switch msg.Kind {
	case ipc.KindCommand:
		d.handleCommand(conn, msg.Payload)
	case ipc.KindSubscription:
		d.handleSubscription(conn, msg.Payload)
	case ipc.KindResponse:
		d.log.Debug().Msg("rejecting unexpected response from client")
		conn.Close()
	default:
		d.log.Debug().Msg("rejecting message of unknown kind")
		conn.Close()
	}
}

func (d *Dispatcher) handleCommand(conn net.Conn, payload []byte) {
	defer conn.Close()

	response, shouldExit, err := HandleCommand(d.log, payload)
	if err != nil {
		d.log.Debug().Err(err).Msg("invalid command")
		return
	}

	if err := ipc.WriteMessage(conn, response); err != nil {
		d.log.Debug().Err(err).Msg("failed to write command response")
		return
	}

	if shouldExit {
		time.Sleep(KillDrainDelay)
		if d.onKill != nil {
			d.onKill()
		}
	}
}

func (d *Dispatcher) handleSubscription(conn net.Conn, payload []byte) {
	info, err := ipc.DecodeClientInfo(payload)
	if err != nil || info.Kind == ipc.KindInvalid {
		d.log.Debug().Msg("rejecting invalid subscription")
		conn.Close()
		return
	}

	initial := d.seedPayload(info.Kind)
	if err := ipc.WriteMessage(conn, ipc.New(ipc.KindResponse, initial)); err != nil {
		d.log.Debug().Err(err).Uint32("pid", info.Pid).Msg("failed to write initial snapshot")
		conn.Close()
		return
	}

	// The daemon is push-only after subscription: the read half is simply
	// never read from again. Only the write half (conn itself, via its
	// Write method) is retained, per spec's "write half only" resolution
	// of the open question in §9.
	d.reg.Insert(info.Kind, info.Pid, conn)
	if d.metrics != nil {
		d.metrics.ObserveSubscriberCount(info.Kind, d.reg.Count(info.Kind))
	}
	d.log.Info().Str("kind", info.Kind.String()).Uint32("pid", info.Pid).Msg("subscribed")
}

func (d *Dispatcher) seedPayload(kind ipc.SubscriptionKind) []byte {
	switch kind {
	case ipc.KindWorkspaces:
		return snapshot.EncodeWorkspaces(d.states.Workspaces())
	case ipc.KindWindow:
		return snapshot.EncodeWindow(d.states.Window())
	case ipc.KindWifi:
		return snapshot.EncodeWifi(d.states.Wifi())
	case ipc.KindBluetooth:
		return snapshot.EncodeBluetooth(d.states.Bluetooth())
	default:
		return nil
	}
}
