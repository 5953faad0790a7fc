package server

import (
	"errors"
	"fmt"
)

// Sentinel errors for connection and queue error conditions.
var (
	// ErrPacketQueueFull is returned when enqueueing past a packet
	// queue's fixed capacity.
	ErrPacketQueueFull = errors.New("server: packet queue full")

	// ErrConnectionClosed is returned when an operation is attempted on
	// a closed connection.
	ErrConnectionClosed = errors.New("server: connection closed")

	// ErrConnectionNotFound is returned when a connection id or session
	// id does not resolve to a live connection.
	ErrConnectionNotFound = errors.New("server: connection not found")

	// ErrServerClosed is returned when the server has been shut down.
	ErrServerClosed = errors.New("server: server closed")

	// ErrDownloadPending is returned when registering a download id that
	// is already awaiting completion.
	ErrDownloadPending = errors.New("server: download already pending")
)

// ConnError wraps an error with connection context for debugging.
type ConnError struct {
	ConnID    uint64
	SessionID string
	Op        string // Operation that failed
	Err       error  // Underlying error
}

// Error returns the error message with connection context.
func (e *ConnError) Error() string {
	if e.SessionID == "" {
		return fmt.Sprintf("server: conn %d: %s: %v", e.ConnID, e.Op, e.Err)
	}
	return fmt.Sprintf("server: conn %d (%s): %s: %v", e.ConnID, e.SessionID, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *ConnError) Unwrap() error {
	return e.Err
}

// NewConnError creates a new ConnError.
func NewConnError(connID uint64, sessionID, op string, err error) *ConnError {
	return &ConnError{
		ConnID:    connID,
		SessionID: sessionID,
		Op:        op,
		Err:       err,
	}
}
