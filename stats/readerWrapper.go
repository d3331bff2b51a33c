package stats

import (
	"io"
	"sync"
	"sync/atomic"
)

// ReaderWrapper wraps an io.Reader, counting the bytes read through it. OnDone, if set, is called with the total
// number of bytes read when the underlying reader returns its first error, that can be EOF, or when it gets Close()d.
// OnDone is called at most once.
// If the underlying reader implements io.Closer, ReaderWrapper will forward calls to Close() to it. Otherwise, the
// Close() operation always returns nil.
// BytesRead may be called concurrently with Read.
type ReaderWrapper struct {
	Underlying io.Reader
	OnDone     func(totalRead uint64)

	read uint64
	once sync.Once
}

func (w *ReaderWrapper) Read(p []byte) (n int, err error) {
	n, err = w.Underlying.Read(p)
	atomic.AddUint64(&w.read, uint64(n))

	if err != nil {
		w.report()
	}

	return
}

func (w *ReaderWrapper) BytesRead() uint64 {
	return atomic.LoadUint64(&w.read)
}

func (w *ReaderWrapper) Close() (err error) {
	if closer, ok := w.Underlying.(io.Closer); ok {
		err = closer.Close()
	}

	w.report()
	return
}

func (w *ReaderWrapper) report() {
	w.once.Do(func() {
		if w.OnDone != nil {
			w.OnDone(w.BytesRead())
		}
	})
}
