package daemon

import (
	"sync"

	"github.com/lulkien/hyprvisor/internal/snapshot"
)

// FeedStates holds the last-published snapshot of every feed. Each field
// is mutated exclusively by its owning producer task; the dispatcher only
// reads it, to seed a newly-subscribed client with the current value
// (spec §3 "Ownership").
type FeedStates struct {
	mu         sync.RWMutex
	workspaces snapshot.WorkspaceSnapshot
	window     snapshot.WindowSnapshot
	wifi       snapshot.WifiSnapshot
	bluetooth  snapshot.BluetoothSnapshot
}

// NewFeedStates returns a FeedStates seeded with zero-value snapshots.
func NewFeedStates() *FeedStates {
	return &FeedStates{}
}

func (s *FeedStates) Workspaces() snapshot.WorkspaceSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.workspaces
}

func (s *FeedStates) SetWorkspaces(v snapshot.WorkspaceSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workspaces = v
}

func (s *FeedStates) Window() snapshot.WindowSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.window
}

func (s *FeedStates) SetWindow(v snapshot.WindowSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.window = v
}

func (s *FeedStates) Wifi() snapshot.WifiSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.wifi
}

func (s *FeedStates) SetWifi(v snapshot.WifiSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wifi = v
}

func (s *FeedStates) Bluetooth() snapshot.BluetoothSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bluetooth
}

func (s *FeedStates) SetBluetooth(v snapshot.BluetoothSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bluetooth = v
}
