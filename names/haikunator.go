// Package names generates human-friendly names for speed test workers, so their log lines are easy to tell apart.
package names

import (
	"sync/atomic"
	"time"

	"github.com/yelinaung/go-haikunator"
)

var sequence int64

// Haiku returns a random haiku-like name.
func Haiku() string {
	// Workers are usually named in a burst, the sequence keeps their seeds apart within the same clock tick.
	seed := time.Now().UTC().UnixNano() + atomic.AddInt64(&sequence, 1)
	return haikunator.New(seed).Haikunate()
}
