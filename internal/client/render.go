// Package client implements the wire-contract-only consumer described in
// spec §4.10: connect, subscribe, loop reading Response messages, and
// render each according to its feed's formatting rule.
package client

import (
	"encoding/json"
	"sort"

	"github.com/lulkien/hyprvisor/internal/snapshot"
)

// RenderWorkspaces applies the §4.10/§8.7 padding rule. A nil fix, or
// fix == 0, is an explicit no-op (spec §9 preserves the source's
// "fix=0 short-circuits to no formatting" behavior): the received list is
// rendered as-is.
func RenderWorkspaces(ws snapshot.WorkspaceSnapshot, fix *int) (string, error) {
	out := ws
	if fix != nil && *fix > 0 {
		out = padWorkspaces(ws, *fix)
	}
	b, err := json.Marshal(out)
	return string(b), err
}

// padWorkspaces pads ws up to n entries with defaults {occupied:false,
// active:false} for every id in [1, n] not already present, then sorts
// ascending by id.
func padWorkspaces(ws snapshot.WorkspaceSnapshot, n int) snapshot.WorkspaceSnapshot {
	byID := make(map[uint32]snapshot.Workspace, len(ws))
	for _, w := range ws {
		byID[w.ID] = w
	}

	out := make(snapshot.WorkspaceSnapshot, 0, n)
	for id := uint32(1); id <= uint32(n); id++ {
		if w, ok := byID[id]; ok {
			out = append(out, w)
		} else {
			out = append(out, snapshot.Workspace{ID: id, Occupied: false, Active: false})
		}
	}
	// Any received id beyond n is preserved rather than silently dropped.
	for _, w := range ws {
		if w.ID > uint32(n) {
			out = append(out, w)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// truncate cuts s to at most n bytes and appends "..." when it does.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// RenderWindow truncates Title to titleLength bytes, if supplied.
func RenderWindow(w snapshot.WindowSnapshot, titleLength *int) (string, error) {
	if titleLength != nil {
		w.Title = truncate(w.Title, *titleLength)
	}
	b, err := json.Marshal(w)
	return string(b), err
}

// RenderWifi truncates SSID to ssidLength bytes, if supplied.
func RenderWifi(w snapshot.WifiSnapshot, ssidLength *int) (string, error) {
	if ssidLength != nil {
		w.SSID = truncate(w.SSID, *ssidLength)
	}
	b, err := json.Marshal(w)
	return string(b), err
}

// RenderBluetooth performs no truncation (spec §4.10).
func RenderBluetooth(b snapshot.BluetoothSnapshot) (string, error) {
	out, err := json.Marshal(b)
	return string(out), err
}
