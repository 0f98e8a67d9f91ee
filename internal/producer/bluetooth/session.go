// Package bluetooth implements the polling producer over an opaque
// Bluetooth session backend (spec §4.7). The concrete backend (BlueZ via
// D-Bus, ...) is out of scope; this package only depends on the
// capability interfaces below.
package bluetooth

// Adapter exposes the adapter-level power state and known device
// addresses.
type Adapter interface {
	Powered() (bool, error)
	KnownAddresses() ([]string, error)
	// Device returns the per-address connectivity/name lookup handle.
	Device(address string) (Device, error)
}

// Device exposes per-device connectivity queried during enumeration.
type Device interface {
	Connected() (bool, error)
	// Name returns the device's advertised name; backends may fail to
	// resolve it, in which case the producer substitutes a default.
	Name() (string, error)
}

// Session is the opened backend session.
type Session interface {
	Adapter() (Adapter, error)
}

// OpenSessionFunc opens a new backend session.
type OpenSessionFunc func() (Session, error)

// DefaultDeviceName is substituted when a connected device's name cannot
// be resolved (spec §4.7 step 3).
const DefaultDeviceName = "Unknown device"
