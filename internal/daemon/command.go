package daemon

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/lulkien/hyprvisor/internal/ipc"
)

// KillDrainDelay is how long the command handler waits after writing the
// shutdown notice before exiting the process, so the peer has time to
// drain the response (spec §4.9).
const KillDrainDelay = 100 * time.Millisecond

// ShutdownNotice is the payload of the Response sent in reply to Kill.
const ShutdownNotice = "hyprvisor: shutting down"

// PongPayload is the payload of the Response sent in reply to Ping.
const PongPayload = "Pong"

// HandleCommand dispatches a Command message's payload and returns the
// Response to send back. shouldExit is true when the command is Kill; the
// caller then shuts down after the response has been written and drained.
func HandleCommand(log zerolog.Logger, payload []byte) (response ipc.Message, shouldExit bool, err error) {
	code, err := ipc.DecodeCommandPayload(payload)
	if err != nil {
		return ipc.Message{}, false, err
	}

	switch code {
	case ipc.CommandPing:
		log.Debug().Msg("handling ping command")
		return ipc.New(ipc.KindResponse, []byte(PongPayload)), false, nil
	case ipc.CommandKill:
		log.Info().Msg("handling kill command")
		return ipc.New(ipc.KindResponse, []byte(ShutdownNotice)), true, nil
	default:
		return ipc.Message{}, false, ipc.ErrInvalidMessage
	}
}
