// Package snapshot defines the per-feed value types broadcast to
// subscribers and their compact binary encoding for the Response payload.
// The codec here is self-describing enough for the client to decode
// without any schema beyond the SubscriptionKind it subscribed under
// (spec §4.1: "Response payload: opaque to the codec; interpretation is
// per-feed").
package snapshot

import (
	"encoding/binary"
	"fmt"
	"sort"
)

// Workspace is one entry of a WorkspaceSnapshot.
type Workspace struct {
	ID       uint32 `json:"id"`
	Occupied bool   `json:"occupied"`
	Active   bool   `json:"active"`
}

// WorkspaceSnapshot is the ordered workspace feed value. Comparison is by
// value: two snapshots with the same entries in the same order are equal.
type WorkspaceSnapshot []Workspace

// Equal reports whether two WorkspaceSnapshots carry the same ordered
// entries.
func (s WorkspaceSnapshot) Equal(other WorkspaceSnapshot) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// WindowSnapshot is the focused-window feed value.
type WindowSnapshot struct {
	Class string `json:"class"`
	Title string `json:"title"`
}

// Equal reports value equality between two WindowSnapshots.
func (s WindowSnapshot) Equal(other WindowSnapshot) bool {
	return s == other
}

// WifiState enumerates the radio state of the Wi-Fi feed.
type WifiState uint8

const (
	WifiDisabled WifiState = iota
	WifiDisconnected
	WifiConnecting
	WifiConnected
	WifiUnknown
)

// Icon is the pure function from WifiState to the glyph shown by a status
// bar (spec §6).
func (s WifiState) Icon() string {
	switch s {
	case WifiDisabled:
		return "󰖪"
	case WifiConnected:
		return "󰖩"
	case WifiConnecting:
		return "󱛇"
	case WifiDisconnected:
		return "󱛅"
	default:
		return "󱚵"
	}
}

// MarshalJSON renders the state by name rather than its wire ordinal, since
// the client's JSON output is for status-bar consumption (spec §4.10).
func (s WifiState) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

func (s WifiState) String() string {
	switch s {
	case WifiDisabled:
		return "Disabled"
	case WifiDisconnected:
		return "Disconnected"
	case WifiConnecting:
		return "Connecting"
	case WifiConnected:
		return "Connected"
	default:
		return "Unknown"
	}
}

// WifiSnapshot is the Wi-Fi feed value.
type WifiSnapshot struct {
	State WifiState `json:"state"`
	SSID  string    `json:"ssid"`
	Icon  string    `json:"icon"`
}

// Equal reports value equality between two WifiSnapshots.
func (s WifiSnapshot) Equal(other WifiSnapshot) bool {
	return s == other
}

// BluetoothDevice is one connected peer in a BluetoothSnapshot.
type BluetoothDevice struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// BluetoothSnapshot is the Bluetooth feed value. The device set is
// order-insensitive for comparison (spec §3).
type BluetoothSnapshot struct {
	Powered   bool              `json:"powered"`
	Connected []BluetoothDevice `json:"connected"`
}

// Equal reports value equality between two BluetoothSnapshots, ignoring
// the order of Connected.
func (s BluetoothSnapshot) Equal(other BluetoothSnapshot) bool {
	if s.Powered != other.Powered || len(s.Connected) != len(other.Connected) {
		return false
	}

	index := func(devices []BluetoothDevice) map[BluetoothDevice]int {
		m := make(map[BluetoothDevice]int, len(devices))
		for _, d := range devices {
			m[d]++
		}
		return m
	}

	a, b := index(s.Connected), index(other.Connected)
	if len(a) != len(b) {
		return false
	}
	for d, n := range a {
		if b[d] != n {
			return false
		}
	}
	return true
}

// --- wire encoding ---
//
// Every snapshot is encoded with a small length-prefixed, fixed-field
// scheme: fixed-width numeric fields first, then length-prefixed strings.
// This keeps the codec allocation-light and dependency-free, matching how
// the daemon's own message codec is built (spec §4.1's "self-describing or
// fixed serializer agreed by both daemon and client").

func putString(buf []byte, s string) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}

func takeString(buf []byte) (string, []byte, error) {
	if len(buf) < 4 {
		return "", nil, fmt.Errorf("snapshot: truncated string length")
	}
	n := binary.LittleEndian.Uint32(buf[:4])
	buf = buf[4:]
	if uint64(len(buf)) < uint64(n) {
		return "", nil, fmt.Errorf("snapshot: truncated string body")
	}
	return string(buf[:n]), buf[n:], nil
}

// EncodeWorkspaces serializes a WorkspaceSnapshot: count(4) then per-entry
// id(4) | occupied(1) | active(1).
func EncodeWorkspaces(s WorkspaceSnapshot) []byte {
	buf := make([]byte, 0, 4+len(s)*6)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(s)))
	for _, ws := range s {
		buf = binary.LittleEndian.AppendUint32(buf, ws.ID)
		buf = append(buf, boolByte(ws.Occupied), boolByte(ws.Active))
	}
	return buf
}

// DecodeWorkspaces parses the payload produced by EncodeWorkspaces.
func DecodeWorkspaces(payload []byte) (WorkspaceSnapshot, error) {
	if len(payload) < 4 {
		return nil, fmt.Errorf("snapshot: truncated workspace count")
	}
	count := binary.LittleEndian.Uint32(payload[:4])
	rest := payload[4:]

	out := make(WorkspaceSnapshot, 0, count)
	for i := uint32(0); i < count; i++ {
		if len(rest) < 6 {
			return nil, fmt.Errorf("snapshot: truncated workspace entry %d", i)
		}
		id := binary.LittleEndian.Uint32(rest[:4])
		occupied := rest[4] != 0
		active := rest[5] != 0
		rest = rest[6:]
		out = append(out, Workspace{ID: id, Occupied: occupied, Active: active})
	}
	return out, nil
}

// EncodeWindow serializes a WindowSnapshot.
func EncodeWindow(s WindowSnapshot) []byte {
	buf := putString(nil, s.Class)
	return putString(buf, s.Title)
}

// DecodeWindow parses the payload produced by EncodeWindow.
func DecodeWindow(payload []byte) (WindowSnapshot, error) {
	class, rest, err := takeString(payload)
	if err != nil {
		return WindowSnapshot{}, err
	}
	title, _, err := takeString(rest)
	if err != nil {
		return WindowSnapshot{}, err
	}
	return WindowSnapshot{Class: class, Title: title}, nil
}

// EncodeWifi serializes a WifiSnapshot.
func EncodeWifi(s WifiSnapshot) []byte {
	buf := []byte{byte(s.State)}
	buf = putString(buf, s.SSID)
	buf = putString(buf, s.Icon)
	return buf
}

// DecodeWifi parses the payload produced by EncodeWifi.
func DecodeWifi(payload []byte) (WifiSnapshot, error) {
	if len(payload) < 1 {
		return WifiSnapshot{}, fmt.Errorf("snapshot: truncated wifi state")
	}
	state := WifiState(payload[0])
	ssid, rest, err := takeString(payload[1:])
	if err != nil {
		return WifiSnapshot{}, err
	}
	icon, _, err := takeString(rest)
	if err != nil {
		return WifiSnapshot{}, err
	}
	return WifiSnapshot{State: state, SSID: ssid, Icon: icon}, nil
}

// EncodeBluetooth serializes a BluetoothSnapshot. Device order is
// normalized (sorted by address) before encoding so two value-equal
// snapshots always produce identical bytes, which matters for the
// idempotent-producer invariant (spec §8.6).
func EncodeBluetooth(s BluetoothSnapshot) []byte {
	devices := append([]BluetoothDevice(nil), s.Connected...)
	sort.Slice(devices, func(i, j int) bool { return devices[i].Address < devices[j].Address })

	buf := []byte{boolByte(s.Powered)}
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(devices)))
	for _, d := range devices {
		buf = putString(buf, d.Name)
		buf = putString(buf, d.Address)
	}
	return buf
}

// DecodeBluetooth parses the payload produced by EncodeBluetooth.
func DecodeBluetooth(payload []byte) (BluetoothSnapshot, error) {
	if len(payload) < 5 {
		return BluetoothSnapshot{}, fmt.Errorf("snapshot: truncated bluetooth header")
	}
	powered := payload[0] != 0
	count := binary.LittleEndian.Uint32(payload[1:5])
	rest := payload[5:]

	devices := make([]BluetoothDevice, 0, count)
	for i := uint32(0); i < count; i++ {
		name, r, err := takeString(rest)
		if err != nil {
			return BluetoothSnapshot{}, err
		}
		addr, r2, err := takeString(r)
		if err != nil {
			return BluetoothSnapshot{}, err
		}
		rest = r2
		devices = append(devices, BluetoothDevice{Name: name, Address: addr})
	}
	return BluetoothSnapshot{Powered: powered, Connected: devices}, nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
