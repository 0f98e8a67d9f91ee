// Package ipc implements the wire framing and bounded-retry socket
// primitives shared by the daemon and the client.
package ipc

import "errors"

// Sentinel errors observable by callers via errors.Is. They mirror the
// error kinds named in the protocol design: transport failures are wrapped
// as IpcError, protocol/framing failures keep their own identity so a
// dispatcher can tell a short read apart from a malformed message.
var (
	ErrShortHeader     = errors.New("ipc: short header")
	ErrShortPayload    = errors.New("ipc: short payload")
	ErrInvalidMessage  = errors.New("ipc: invalid message")
	ErrShortWrite      = errors.New("ipc: short write")
	ErrRetriesExceeded = errors.New("ipc: retries exceeded")
	ErrIpc             = errors.New("ipc: transport error")
)
