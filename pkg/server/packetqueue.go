package server

import "sync"

// Packet is one outbound unit for a connection. A non-zero CloseStatus
// makes the write loop close the connection with that status instead of
// sending a data frame.
type Packet struct {
	Data        []byte
	Binary      bool
	CloseStatus int
}

// PacketQueue is a fixed-capacity ring buffer of outbound packets.
// Enqueueing past capacity fails with ErrPacketQueueFull; the producer
// decides whether that tears the connection down. Ownership of a packet
// moves to the caller on dequeue.
type PacketQueue struct {
	mu      sync.Mutex
	packets []Packet
	head    int
	count   int
}

// NewPacketQueue creates a queue with the given capacity.
func NewPacketQueue(capacity int) *PacketQueue {
	if capacity <= 0 {
		capacity = 1
	}
	return &PacketQueue{packets: make([]Packet, capacity)}
}

// Enqueue appends a packet to the tail.
func (q *PacketQueue) Enqueue(p Packet) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == len(q.packets) {
		return ErrPacketQueueFull
	}
	q.packets[(q.head+q.count)%len(q.packets)] = p
	q.count++
	return nil
}

// Dequeue removes and returns the packet at the head.
func (q *PacketQueue) Dequeue() (Packet, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		return Packet{}, false
	}
	p := q.packets[q.head]
	q.packets[q.head] = Packet{}
	q.head = (q.head + 1) % len(q.packets)
	q.count--
	return p, true
}

// Len returns the number of queued packets.
func (q *PacketQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Cap returns the queue's fixed capacity.
func (q *PacketQueue) Cap() int {
	return len(q.packets)
}
