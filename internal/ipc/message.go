package ipc

import (
	"encoding/binary"
	"fmt"
)

// HeaderWidth is the size of the message header on the wire: one kind byte
// plus payload_len, which is fixed at 8 bytes regardless of host word size so daemon and client
// binaries built for different architectures stay interoperable (spec §9:
// "implementations targeting cross-architecture clients MUST fix it").
const HeaderWidth = 1 + 8

// MessageKind tags the payload carried by a Message.
type MessageKind uint8

const (
	KindCommand MessageKind = iota
	KindSubscription
	KindResponse
)

func (k MessageKind) String() string {
	switch k {
	case KindCommand:
		return "Command"
	case KindSubscription:
		return "Subscription"
	case KindResponse:
		return "Response"
	default:
		return "Unknown"
	}
}

// SubscriptionKind tags which feed a ClientInfo or broadcast belongs to.
// KindInvalid never appears on the wire as a valid subscription; any byte
// outside the four named values decodes to it and is rejected by callers.
type SubscriptionKind uint8

const (
	KindWorkspaces SubscriptionKind = iota
	KindWindow
	KindWifi
	KindBluetooth
	KindInvalid SubscriptionKind = 0xFF
)

func (k SubscriptionKind) String() string {
	switch k {
	case KindWorkspaces:
		return "Workspaces"
	case KindWindow:
		return "Window"
	case KindWifi:
		return "Wifi"
	case KindBluetooth:
		return "Bluetooth"
	default:
		return "Invalid"
	}
}

func subscriptionKindFromByte(b byte) SubscriptionKind {
	switch b {
	case byte(KindWorkspaces):
		return KindWorkspaces
	case byte(KindWindow):
		return KindWindow
	case byte(KindWifi):
		return KindWifi
	case byte(KindBluetooth):
		return KindBluetooth
	default:
		return KindInvalid
	}
}

// CommandCode enumerates the Command payload values.
type CommandCode uint8

const (
	CommandPing CommandCode = iota
	CommandKill
)

// Message is the single wire envelope exchanged over the daemon socket.
// It is immutable once constructed; New derives payload_len from the
// supplied payload so an invalid Message can never be built from this
// package's own constructor.
type Message struct {
	Kind       MessageKind
	PayloadLen uint64
	Payload    []byte
}

// New builds a Message with payload_len derived from payload, which is
// always valid by construction.
func New(kind MessageKind, payload []byte) Message {
	return Message{Kind: kind, PayloadLen: uint64(len(payload)), Payload: payload}
}

// IsValid reports whether payload_len matches the actual payload length,
// the one well-formedness check the spec requires before dispatch.
func (m Message) IsValid() bool {
	return int(m.PayloadLen) == len(m.Payload)
}

// Encode serializes m to the wire format: kind(1) | payload_len(8 LE) | payload.
func Encode(m Message) []byte {
	buf := make([]byte, HeaderWidth+len(m.Payload))
	buf[0] = byte(m.Kind)
	binary.LittleEndian.PutUint64(buf[1:HeaderWidth], uint64(len(m.Payload)))
	copy(buf[HeaderWidth:], m.Payload)
	return buf
}

// Decode parses a Message out of buf. buf must contain at least the header
// and the full declared payload; any bytes after the declared payload are
// ignored.
func Decode(buf []byte) (Message, error) {
	if len(buf) < HeaderWidth {
		return Message{}, ErrShortHeader
	}

	kind := MessageKind(buf[0])
	payloadLen := binary.LittleEndian.Uint64(buf[1:HeaderWidth])

	rest := buf[HeaderWidth:]
	if uint64(len(rest)) < payloadLen {
		return Message{}, ErrShortPayload
	}

	payload := make([]byte, payloadLen)
	copy(payload, rest[:payloadLen])

	return Message{Kind: kind, PayloadLen: payloadLen, Payload: payload}, nil
}

// ClientInfo is the Subscription payload: a fixed 5-byte encoding of the
// requested feed kind plus the subscribing process's pid.
type ClientInfo struct {
	Kind SubscriptionKind
	Pid  uint32
}

// EncodeClientInfo serializes a ClientInfo to its fixed 5-byte wire form.
func EncodeClientInfo(ci ClientInfo) []byte {
	buf := make([]byte, 5)
	buf[0] = byte(ci.Kind)
	binary.LittleEndian.PutUint32(buf[1:5], ci.Pid)
	return buf
}

// DecodeClientInfo parses a ClientInfo out of a Subscription payload.
func DecodeClientInfo(payload []byte) (ClientInfo, error) {
	if len(payload) != 5 {
		return ClientInfo{}, fmt.Errorf("%w: subscription payload must be 5 bytes, got %d", ErrInvalidMessage, len(payload))
	}
	return ClientInfo{
		Kind: subscriptionKindFromByte(payload[0]),
		Pid:  binary.LittleEndian.Uint32(payload[1:5]),
	}, nil
}

// DecodeCommandPayload parses a Command payload, which is exactly one byte.
func DecodeCommandPayload(payload []byte) (CommandCode, error) {
	if len(payload) != 1 {
		return 0, fmt.Errorf("%w: command payload must be 1 byte, got %d", ErrInvalidMessage, len(payload))
	}
	code := CommandCode(payload[0])
	if code != CommandPing && code != CommandKill {
		return 0, fmt.Errorf("%w: unknown command code %d", ErrInvalidMessage, payload[0])
	}
	return code, nil
}

// EncodeCommandPayload serializes a CommandCode to its 1-byte wire form.
func EncodeCommandPayload(code CommandCode) []byte {
	return []byte{byte(code)}
}
