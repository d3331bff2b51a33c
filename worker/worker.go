package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"roob.re/mirrorrank/mirror"
	"roob.re/mirrorrank/pool/peeker"
	"roob.re/mirrorrank/stats"
)

var (
	ErrRequest = errors.New("error performing request")
	ErrCode    = errors.New("received non-ok status code")
)

// Worker measures the throughput of mirrors by downloading the beginning of their test URL.
type Worker struct {
	Name   string
	Peeker peeker.Peeker
	Stats  *stats.Stats
	Client *http.Client
}

type Result struct {
	Mirror mirror.Mirror
	Sample stats.Sample
	Err    error
}

func (r Result) Throughput() float64 {
	return r.Sample.Throughput()
}

func (w Worker) String() string {
	return w.Name
}

// Test downloads up to Peeker.SizeBytes from the mirror's test URL within Peeker.Timeout. If the time runs out while
// reading the body, whatever was read until then is taken as the sample. The sample is recorded in Stats under the mirror URL.
func (w Worker) Test(m mirror.Mirror) Result {
	result := Result{Mirror: m}

	client := w.Client
	if client == nil {
		client = http.DefaultClient
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.Peeker.Timeout)
	defer cancel()

	url := m.URLToTest.String()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		result.Err = fmt.Errorf("building request for %q: %w", url, err)
		return result
	}

	// Prevent servers from gzipping the response, which would skew the measurement.
	req.Header.Add("accept-encoding", "identity")

	log.Debugf("%s %s %s", w.Name, req.Method, url)

	start := time.Now()
	response, err := client.Do(req)
	if err != nil {
		result.Err = fmt.Errorf("%w: %v", ErrRequest, err)
		return result
	}

	body := &stats.ReaderWrapper{Underlying: response.Body}
	defer body.Close()

	if response.StatusCode != http.StatusOK {
		result.Err = fmt.Errorf("%w: %d", ErrCode, response.StatusCode)
		return result
	}

	// Headers and body share a single deadline. Reads failing because it expired count as a timeout.
	_, err = w.Peeker.PeekContext(ctx, body)
	result.Sample = stats.Sample{
		Bytes:    body.BytesRead(),
		Duration: time.Since(start),
	}

	if err != nil && !errors.Is(err, peeker.ErrPeekTimeout) {
		result.Err = fmt.Errorf("reading body of %q: %w", url, err)
		return result
	}

	if w.Stats != nil && !w.Stats.Update(m.URL.String(), result.Sample) {
		result.Err = fmt.Errorf("sample for %q too small to be meaningful: %s", url, result.Sample.String())
		return result
	}

	log.Debugf("%s: %s", w.Name, result.Sample.String())

	return result
}
