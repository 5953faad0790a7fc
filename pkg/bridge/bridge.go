package bridge

// Bridge pairs two event queues with their wakeup channels. N events travel
// from the network side to the application side, A events the other way.
// Each queue preserves FIFO order; pushes on one side wake the other.
type Bridge[N, A any] struct {
	netEvents Queue[N]
	appEvents Queue[A]

	// appWaker wakes the application loop after a PushNet.
	appWaker *Waker
	// netWaker wakes the network reactor after a PushApp.
	netWaker *Waker
}

// Events is the bridge instantiated with the standard event types.
type Events = Bridge[NetEvent, AppEvent]

// New creates a bridge with both wakeup pairs connected.
func New[N, A any]() (*Bridge[N, A], error) {
	appWaker, err := NewWaker()
	if err != nil {
		return nil, err
	}
	netWaker, err := NewWaker()
	if err != nil {
		appWaker.Close()
		return nil, err
	}
	return &Bridge[N, A]{appWaker: appWaker, netWaker: netWaker}, nil
}

// PushNet queues an event for the application side and wakes it.
func (b *Bridge[N, A]) PushNet(e N) error {
	b.netEvents.Push(e)
	return b.appWaker.Wake()
}

// PopNet dequeues the next event pushed by the network side.
func (b *Bridge[N, A]) PopNet() (N, bool) {
	return b.netEvents.Pop()
}

// WaitApp blocks the application loop until the network side pushes.
func (b *Bridge[N, A]) WaitApp() error {
	return b.appWaker.Wait()
}

// PushApp queues an event for the network reactor and wakes it.
func (b *Bridge[N, A]) PushApp(e A) error {
	b.appEvents.Push(e)
	return b.netWaker.Wake()
}

// PopApp dequeues the next event pushed by the application side.
func (b *Bridge[N, A]) PopApp() (A, bool) {
	return b.appEvents.Pop()
}

// WaitNet blocks the network reactor until the application side pushes.
func (b *Bridge[N, A]) WaitNet() error {
	return b.netWaker.Wait()
}

// Close tears down both wakeup pairs. Blocked Wait calls return
// ErrWakerClosed; queued events remain poppable.
func (b *Bridge[N, A]) Close() error {
	aerr := b.appWaker.Close()
	nerr := b.netWaker.Close()
	if aerr != nil {
		return aerr
	}
	return nerr
}
