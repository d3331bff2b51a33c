// Package peeker reads a bounded amount of bytes from a body within a bounded amount of time.
package peeker

import (
	"context"
	"errors"
	"io"
	"time"
)

type Peeker struct {
	SizeBytes int64
	Timeout   time.Duration
}

var ErrPeekTimeout = errors.New("peek timed out")

type peekResult struct {
	read int64
	err  error
}

// Peek reads and discards up to SizeBytes from body, returning how many bytes were read.
// If Timeout expires first, ErrPeekTimeout is returned. The read keeps going in the background until the body
// returns, so callers should close the body to stop it.
func (p *Peeker) Peek(body io.Reader) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), p.Timeout)
	defer cancel()

	return p.PeekContext(ctx, body)
}

// PeekContext is like Peek, but is bounded by ctx instead of Timeout. This allows the deadline to be shared with the
// request body is read from: errors returned by body after ctx is done are reported as ErrPeekTimeout too.
func (p *Peeker) PeekContext(ctx context.Context, body io.Reader) (int64, error) {
	readChan := p.readContext(ctx, body)

	select {
	case result := <-readChan:
		if result.err != nil && ctx.Err() != nil {
			return result.read, ErrPeekTimeout
		}

		return result.read, result.err
	case <-ctx.Done():
		return 0, ErrPeekTimeout
	}
}

func (p *Peeker) readContext(ctx context.Context, body io.Reader) chan peekResult {
	res := make(chan peekResult)

	go func() {
		result := peekResult{}
		result.read, result.err = io.Copy(io.Discard, io.LimitReader(body, p.SizeBytes))

		select {
		case <-ctx.Done():
		case res <- result:
		}
	}()

	return res
}
