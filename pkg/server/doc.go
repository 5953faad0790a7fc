// Package server owns the WebSocket side of the house: it upgrades
// connections, tracks them in a registry keyed by opaque connection ids,
// and shuttles payloads between the sockets and the application goroutine
// through a bridge.Events pair.
//
// Outbound traffic is paced by per-connection packet queues: exactly one
// packet is written per writability signal, and a queue that still holds
// packets re-signals itself. Only the per-connection write loop touches
// the socket's write side, so the transport never sees two writers.
package server
