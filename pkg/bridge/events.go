package bridge

// NetEventType identifies what the network side observed.
type NetEventType int

const (
	// NetClientConnected reports a newly established WebSocket connection.
	NetClientConnected NetEventType = iota

	// NetClientDisconnected reports that a connection has gone away.
	NetClientDisconnected

	// NetPayload carries a complete, reassembled inbound message.
	NetPayload

	// NetDownloadRequest carries a synthesized request from an HTTP
	// download endpoint parked on behalf of a live session.
	NetDownloadRequest

	// NetInterrupted reports that the process received a termination
	// signal and the application loop should wind down.
	NetInterrupted
)

// NetEvent flows from the network reactor to the application goroutine.
// Ownership of Payload transfers with the event.
type NetEvent struct {
	Type      NetEventType
	ConnID    uint64
	SessionID string
	Payload   []byte
}

// AppEvent flows from the application goroutine to the network reactor,
// carrying an outbound payload for one connection. A non-zero CloseStatus
// asks the reactor to close the connection after sending.
type AppEvent struct {
	ConnID      uint64
	Payload     []byte
	CloseStatus int
}
