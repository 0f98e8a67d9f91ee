package daemon

import "errors"

// Bootstrap-level sentinel errors (spec §7).
var (
	ErrDaemonRunning = errors.New("daemon: another instance is already running")
	ErrNoDaemon      = errors.New("daemon: no daemon is running")
)
