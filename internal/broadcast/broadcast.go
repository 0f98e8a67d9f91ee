// Package broadcast implements the fan-out protocol shared by every
// producer (spec §4.8): serialize a snapshot once, attempt a bounded
// write to each subscriber of the matching kind, and evict any that fail.
package broadcast

import (
	"errors"

	"github.com/lulkien/hyprvisor/internal/ipc"
	"github.com/lulkien/hyprvisor/internal/metrics"
	"github.com/lulkien/hyprvisor/internal/registry"
)

// ErrNoSubscriber is returned when a producer broadcasts to a kind with no
// live subscribers. It is benign: producers log it at debug and move on
// (spec §7).
var ErrNoSubscriber = errors.New("broadcast: no subscriber")

// Send broadcasts payload (already encoded for kind) to every subscriber
// of kind, evicting any whose write fails after maxAttempts. It returns
// ErrNoSubscriber if the bucket was empty, never a transport error — a
// per-subscriber failure only removes that subscriber.
func Send(reg *registry.Registry, metricsReg *metrics.Registry, kind ipc.SubscriptionKind, payload []byte, maxAttempts int) error {
	msg := ipc.New(ipc.KindResponse, payload)

	sawSubscriber := false
	var evicted []uint32

	reg.WithLock(kind, func(bucket map[uint32]ipc.CanWrite, evict func(uint32)) {
		if len(bucket) == 0 {
			return
		}
		sawSubscriber = true
		if metricsReg != nil {
			metricsReg.RecordBroadcast(kind)
		}

		for pid, writer := range bucket {
			if err := ipc.TryWriteMessage(writer, msg, maxAttempts); err != nil {
				evicted = append(evicted, pid)
			}
		}
		for _, pid := range evicted {
			evict(pid)
			if metricsReg != nil {
				metricsReg.RecordEviction(kind)
			}
		}
		if metricsReg != nil && len(evicted) > 0 {
			metricsReg.ObserveSubscriberCount(kind, len(bucket))
		}
	})

	if !sawSubscriber {
		return ErrNoSubscriber
	}
	return nil
}
