// Package fake implements a target returning a fixed list of mirrors, for tests.
package fake

import (
	"roob.re/mirrorrank/mirror"
	"roob.re/mirrorrank/progress"
)

type Fake struct {
	Mirrors []mirror.Mirror
	// Messages are sent to the progress queue before anything else, whether Err is set or not.
	Messages []string
	Err      error
}

func (f Fake) FetchMirrors(q *progress.Queue) ([]mirror.Mirror, error) {
	for _, msg := range f.Messages {
		_ = q.Send(msg)
	}

	if f.Err != nil {
		return nil, f.Err
	}

	_ = q.Sendf("FETCHED MIRRORS: %d", len(f.Mirrors))

	return append([]mirror.Mirror(nil), f.Mirrors...), nil
}

func (f Fake) FormatComment(message string) string {
	return "# " + message
}

func (f Fake) FormatMirror(m mirror.Mirror) string {
	return m.URL.String()
}
