package queue

import "sync"

// fifo is an unbounded first-in first-out list. Pushes never block;
// signal receives a token whenever an item is added.
type fifo[T any] struct {
	mu     sync.Mutex
	items  []T
	sealed bool
	signal chan struct{}
}

func newFIFO[T any]() *fifo[T] {
	return &fifo[T]{signal: make(chan struct{}, 1)}
}

func (f *fifo[T]) push(item T) {
	f.mu.Lock()
	f.items = append(f.items, item)
	f.mu.Unlock()

	select {
	case f.signal <- struct{}{}:
	default:
	}
}

// pushIf appends item unless the list is sealed or admit rejects the
// current length. The checks and the append happen under one lock.
func (f *fifo[T]) pushIf(item T, admit func(n int) error) error {
	f.mu.Lock()
	if f.sealed {
		f.mu.Unlock()
		return ErrQueueClosed
	}
	if admit != nil {
		if err := admit(len(f.items)); err != nil {
			f.mu.Unlock()
			return err
		}
	}
	f.items = append(f.items, item)
	f.mu.Unlock()

	select {
	case f.signal <- struct{}{}:
	default:
	}
	return nil
}

// seal makes every later pushIf fail with ErrQueueClosed
func (f *fifo[T]) seal() {
	f.mu.Lock()
	f.sealed = true
	f.mu.Unlock()
}

func (f *fifo[T]) pop() (T, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var zero T
	if len(f.items) == 0 {
		return zero, false
	}
	item := f.items[0]
	f.items[0] = zero
	f.items = f.items[1:]
	return item, true
}

func (f *fifo[T]) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}
