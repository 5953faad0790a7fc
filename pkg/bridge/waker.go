package bridge

import (
	"errors"
	"net"
)

// ErrWakerClosed is returned when waiting on or waking a closed Waker.
var ErrWakerClosed = errors.New("bridge: waker closed")

// Waker is a loopback byte-stream wakeup channel. One Wake writes one byte;
// one Wait consumes one byte. A loop that calls Wait and then drains a queue
// until empty therefore never misses a push: the byte written after the push
// is either consumed by the current drain pass or forces the next Wait to
// return immediately.
type Waker struct {
	send net.Conn
	recv net.Conn
}

// NewWaker creates a connected loopback pair on 127.0.0.1.
func NewWaker() (*Waker, error) {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	defer ln.Close()

	type accepted struct {
		conn net.Conn
		err  error
	}
	ch := make(chan accepted, 1)
	go func() {
		c, err := ln.Accept()
		ch <- accepted{c, err}
	}()

	send, err := net.Dial("tcp4", ln.Addr().String())
	if err != nil {
		return nil, err
	}
	a := <-ch
	if a.err != nil {
		send.Close()
		return nil, a.err
	}

	if tc, ok := send.(*net.TCPConn); ok {
		tc.SetNoDelay(true)
	}
	return &Waker{send: send, recv: a.conn}, nil
}

// Wake writes a single byte to the pair. Safe for concurrent use.
func (w *Waker) Wake() error {
	if _, err := w.send.Write([]byte{'x'}); err != nil {
		return ErrWakerClosed
	}
	return nil
}

// Wait blocks until a byte written by Wake arrives, consuming exactly one.
func (w *Waker) Wait() error {
	buf := make([]byte, 1)
	if _, err := w.recv.Read(buf); err != nil {
		return ErrWakerClosed
	}
	return nil
}

// Close tears down both ends. Blocked Wait calls return ErrWakerClosed.
func (w *Waker) Close() error {
	serr := w.send.Close()
	rerr := w.recv.Close()
	if serr != nil {
		return serr
	}
	return rerr
}
