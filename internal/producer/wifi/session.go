// Package wifi implements the polling producer over an opaque Wi-Fi
// session backend (spec §4.6). The concrete radio backend (iwd,
// NetworkManager, ...) is out of scope; this package only depends on the
// three capability interfaces below.
package wifi

import "errors"

// Mode is the device operating mode reported by the backend.
type Mode int

const (
	ModeUnknown Mode = iota
	ModeStation
)

// Device exposes the capability surface needed to enter station mode.
type Device interface {
	Mode() (Mode, error)
	Station() (Station, error)
}

// Station exposes the per-poll state query surface.
type Station interface {
	// State returns the backend's raw state string (e.g. "connected",
	// "disconnected", "connecting", "disabled").
	State() (string, error)
	// ConnectedNetworkName returns the SSID of the currently connected
	// network. Only called when State reports connected.
	ConnectedNetworkName() (string, error)
}

// Session is the opened backend session; OpenSession is the sole
// construction hook a concrete backend must supply.
type Session interface {
	Device() (Device, error)
}

// OpenSessionFunc opens a new backend session, mirroring the original
// "Session::new()" entry point.
type OpenSessionFunc func() (Session, error)

// ErrUnsupportedMode signals the device is not in Station mode: a
// configuration fault, not a transient radio fault, but still surfaced
// through the same reconnect loop (spec §4.6 step 2).
var ErrUnsupportedMode = errors.New("wifi: device not in station mode")

func stateFromString(s string) wifiStateString {
	return wifiStateString(s)
}

type wifiStateString string

const (
	stateDisabled     wifiStateString = "disabled"
	stateDisconnected wifiStateString = "disconnected"
	stateConnecting   wifiStateString = "connecting"
	stateConnected    wifiStateString = "connected"
)
