// Package registry implements the process-wide subscription fan-out table:
// one bucket per feed kind, mapping subscriber pid to its write-half
// handle. A single mutex guards the whole structure; contention is bounded
// by the number of feeds times subscribers per broadcast (spec §4.3).
package registry

import (
	"sync"

	"github.com/lulkien/hyprvisor/internal/ipc"
)

// Registry is the process-wide mapping kind -> pid -> writer. The zero
// value is not usable; construct with New.
type Registry struct {
	mu      sync.Mutex
	buckets map[ipc.SubscriptionKind]map[uint32]ipc.CanWrite
}

// New returns an empty Registry with a bucket pre-created for every known
// subscription kind, so ForEach never observes a nil inner map.
func New() *Registry {
	r := &Registry{
		buckets: make(map[ipc.SubscriptionKind]map[uint32]ipc.CanWrite),
	}
	for _, kind := range []ipc.SubscriptionKind{ipc.KindWorkspaces, ipc.KindWindow, ipc.KindWifi, ipc.KindBluetooth} {
		r.buckets[kind] = make(map[uint32]ipc.CanWrite)
	}
	return r
}

// Insert creates the inner bucket for kind if absent and stores writer
// under pid, overwriting any prior entry for (kind, pid).
func (r *Registry) Insert(kind ipc.SubscriptionKind, pid uint32, writer ipc.CanWrite) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bucket, ok := r.buckets[kind]
	if !ok {
		bucket = make(map[uint32]ipc.CanWrite)
		r.buckets[kind] = bucket
	}
	bucket[pid] = writer
}

// Remove deletes the (kind, pid) entry if present. The kind's bucket, if
// it existed, is never deleted by Remove.
func (r *Registry) Remove(kind ipc.SubscriptionKind, pid uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if bucket, ok := r.buckets[kind]; ok {
		delete(bucket, pid)
	}
}

// ForEach gives f exclusive access to the (pid, writer) pairs subscribed
// to kind, under the registry lock. f may be called zero times if the
// bucket is absent or empty.
func (r *Registry) ForEach(kind ipc.SubscriptionKind, f func(pid uint32, writer ipc.CanWrite)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for pid, writer := range r.buckets[kind] {
		f(pid, writer)
	}
}

// Count returns the number of subscribers currently registered for kind.
func (r *Registry) Count(kind ipc.SubscriptionKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buckets[kind])
}

// removeLocked deletes pid from kind's bucket; callers must hold r.mu.
// Exposed as WithLock's evict callback for the broadcast path, which already holds the
// lock across its write attempts and must not re-acquire it.
func (r *Registry) removeLocked(kind ipc.SubscriptionKind, pid uint32) {
	if bucket, ok := r.buckets[kind]; ok {
		delete(bucket, pid)
	}
}

// WithLock runs f with the registry lock held, giving f access to both
// iteration and eviction in one critical section. This is the primitive
// the broadcast protocol (§4.8) builds on: a single lock acquisition spans
// reading the bucket, writing to every subscriber, and evicting failures.
func (r *Registry) WithLock(kind ipc.SubscriptionKind, f func(bucket map[uint32]ipc.CanWrite, evict func(pid uint32))) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bucket := r.buckets[kind]
	f(bucket, func(pid uint32) { r.removeLocked(kind, pid) })
}
