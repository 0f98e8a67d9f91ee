package bluetooth

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/lulkien/hyprvisor/internal/metrics"
	"github.com/lulkien/hyprvisor/internal/registry"
	"github.com/lulkien/hyprvisor/internal/snapshot"
)

var errOpenFailed = errors.New("bluetooth: fake open failure")

type fakeDevice struct {
	connected bool
	name      string
	nameErr   error
}

func (d *fakeDevice) Connected() (bool, error) { return d.connected, nil }
func (d *fakeDevice) Name() (string, error)    { return d.name, d.nameErr }

type fakeAdapter struct {
	mu      sync.Mutex
	powered bool
	devices map[string]*fakeDevice
}

func (a *fakeAdapter) Powered() (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.powered, nil
}

func (a *fakeAdapter) KnownAddresses() ([]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	addrs := make([]string, 0, len(a.devices))
	for addr := range a.devices {
		addrs = append(addrs, addr)
	}
	return addrs, nil
}

func (a *fakeAdapter) Device(address string) (Device, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.devices[address], nil
}

func (a *fakeAdapter) setPowered(p bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.powered = p
}

type fakeSession struct{ adapter Adapter }

func (s *fakeSession) Adapter() (Adapter, error) { return s.adapter, nil }

func fastConfig() Config {
	return Config{
		MaxAttemptRetry:   3,
		RebootDelay:       time.Millisecond,
		PollingInterval:   time.Millisecond,
		BroadcastAttempts: 1,
	}
}

func TestProducerEnumeratesConnectedDevices(t *testing.T) {
	adapter := &fakeAdapter{
		powered: true,
		devices: map[string]*fakeDevice{
			"AA:BB": {connected: true, name: "Headphones"},
			"CC:DD": {connected: false, name: "Mouse"},
		},
	}
	open := func() (Session, error) { return &fakeSession{adapter: adapter}, nil }

	p := New(open, registry.New(), metrics.NewRegistry(), zerolog.Nop(), fastConfig())

	changes := make(chan snapshot.BluetoothSnapshot, 4)
	p.OnChange(func(s snapshot.BluetoothSnapshot) { changes <- s })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	first := <-changes
	if !first.Powered || len(first.Connected) != 1 || first.Connected[0].Address != "AA:BB" {
		t.Fatalf("got %+v", first)
	}
}

func TestProducerPowerOnPublishesConnectedDevices(t *testing.T) {
	adapter := &fakeAdapter{powered: false, devices: map[string]*fakeDevice{}}
	open := func() (Session, error) { return &fakeSession{adapter: adapter}, nil }

	p := New(open, registry.New(), metrics.NewRegistry(), zerolog.Nop(), fastConfig())

	changes := make(chan snapshot.BluetoothSnapshot, 4)
	p.OnChange(func(s snapshot.BluetoothSnapshot) { changes <- s })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	adapter.setPowered(true)
	adapter.mu.Lock()
	adapter.devices["EE:FF"] = &fakeDevice{connected: true, name: "Watch"}
	adapter.mu.Unlock()

	var last snapshot.BluetoothSnapshot
	for i := 0; i < 4; i++ {
		last = <-changes
		if last.Powered && len(last.Connected) == 1 {
			break
		}
	}
	if !last.Powered || len(last.Connected) != 1 || last.Connected[0].Name != "Watch" {
		t.Fatalf("expected powered snapshot with Watch, got %+v", last)
	}
}

func TestProducerDeviceNameDefaultsWhenUnresolved(t *testing.T) {
	adapter := &fakeAdapter{
		powered: true,
		devices: map[string]*fakeDevice{
			"11:22": {connected: true, name: "", nameErr: nil},
		},
	}
	open := func() (Session, error) { return &fakeSession{adapter: adapter}, nil }

	p := New(open, registry.New(), metrics.NewRegistry(), zerolog.Nop(), fastConfig())

	changes := make(chan snapshot.BluetoothSnapshot, 4)
	p.OnChange(func(s snapshot.BluetoothSnapshot) { changes <- s })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	first := <-changes
	if len(first.Connected) != 1 || first.Connected[0].Name != DefaultDeviceName {
		t.Fatalf("got %+v", first)
	}
}

func TestProducerOutOfAttemptsWhenOpenFails(t *testing.T) {
	var opens int32
	open := func() (Session, error) {
		atomic.AddInt32(&opens, 1)
		return nil, errOpenFailed
	}

	p := New(open, registry.New(), metrics.NewRegistry(), zerolog.Nop(), fastConfig())
	err := p.Run(context.Background())
	if err == nil {
		t.Fatal("expected out-of-attempts error")
	}
	if atomic.LoadInt32(&opens) != 3 {
		t.Fatalf("expected 3 opens, got %d", opens)
	}
}
