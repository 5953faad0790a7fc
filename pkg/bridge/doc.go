// Package bridge connects the network reactor with an independent
// application goroutine through two mutex-guarded FIFO event queues and a
// loopback wakeup channel.
//
// The network side pushes NetEvents (connects, payloads, disconnects) and
// pops AppEvents (outbound payloads, closes). The application side does the
// reverse. Each push wakes the opposite side by writing one byte to a
// loopback TCP pair, so a side blocked in Wait always observes at least one
// wakeup per push and drains its queue until empty.
package bridge
