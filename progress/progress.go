// Package progress implements an unbounded, best-effort message queue used by targets to report progress to
// whoever renders it.
package progress

import (
	"errors"
	"fmt"
	"sync"
)

var ErrClosed = errors.New("progress receiver is closed")

// Queue is a single-producer, single-consumer queue of human-readable messages.
// Send never blocks: messages are buffered until the receiver reads them from Messages. Once the receiver calls
// Close, further messages are dropped.
// The receiver must either drain Messages until it is closed or call Close. Otherwise the goroutine delivering
// messages stays blocked forever.
type Queue struct {
	mtx     sync.Mutex
	pending []string
	done    bool
	closed  bool

	wake chan struct{}
	out  chan string
	stop chan struct{}
	once sync.Once
}

func New() *Queue {
	q := &Queue{
		wake: make(chan struct{}, 1),
		out:  make(chan string),
		stop: make(chan struct{}),
	}

	go q.pump()

	return q
}

// Send enqueues a message. It returns ErrClosed if the receiver has gone away, which senders are free to ignore.
// Send is safe to call on a nil Queue, in which case the message is discarded.
func (q *Queue) Send(msg string) error {
	if q == nil {
		return nil
	}

	q.mtx.Lock()
	if q.closed || q.done {
		q.mtx.Unlock()
		return ErrClosed
	}
	q.pending = append(q.pending, msg)
	q.mtx.Unlock()

	q.notify()
	return nil
}

// Sendf is a fmt.Sprintf shorthand for Send.
func (q *Queue) Sendf(format string, args ...any) error {
	return q.Send(fmt.Sprintf(format, args...))
}

// Messages returns the channel messages are delivered on. It is closed after Done once all pending messages have
// been delivered, or right after Close.
func (q *Queue) Messages() <-chan string {
	return q.out
}

// Done is called by the sender to signal no more messages will be sent.
func (q *Queue) Done() {
	q.mtx.Lock()
	q.done = true
	q.mtx.Unlock()

	q.notify()
}

// Close is called by the receiver to stop receiving messages. Pending messages are discarded.
func (q *Queue) Close() {
	q.mtx.Lock()
	q.closed = true
	q.pending = nil
	q.mtx.Unlock()

	q.once.Do(func() {
		close(q.stop)
	})
}

func (q *Queue) notify() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) pump() {
	defer close(q.out)

	for {
		q.mtx.Lock()
		if q.closed {
			q.mtx.Unlock()
			return
		}

		if len(q.pending) == 0 {
			done := q.done
			q.mtx.Unlock()

			if done {
				return
			}

			select {
			case <-q.wake:
			case <-q.stop:
				return
			}

			continue
		}

		msg := q.pending[0]
		q.pending = q.pending[1:]
		q.mtx.Unlock()

		select {
		case q.out <- msg:
		case <-q.stop:
			return
		}
	}
}
