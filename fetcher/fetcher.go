// Package fetcher downloads mirror lists from a primary source, falling back to a secondary one exactly once.
package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"roob.re/mirrorrank/progress"
)

var ErrStatus = errors.New("received non-ok status code")

// Source is a pair of URLs serving the same mirror list. Primary is usually a caching proxy, and Fallback the
// canonical upstream.
type Source struct {
	Primary  string
	Fallback string
}

// FetchError is returned when both the primary and the fallback fetch failed.
type FetchError struct {
	Source     Source
	PrimaryErr error
	// Err is the error of the fallback attempt.
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching mirror list: %s: %v; fallback %s: %v", e.Source.Primary, e.PrimaryErr, e.Source.Fallback, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ParseError is returned by decoders when the body was read but does not have the expected structure.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing mirror list: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Decoder consumes a response body. Returning an error makes the attempt count as failed.
type Decoder func(body io.Reader) error

// JSON returns a Decoder that unmarshals the body into v. v is only written to if the whole body decodes.
func JSON[T any](v *T) Decoder {
	return func(body io.Reader) error {
		var decoded T
		err := json.NewDecoder(body).Decode(&decoded)
		if err != nil {
			return &ParseError{Err: err}
		}

		*v = decoded
		return nil
	}
}

// Text returns a Decoder that reads the whole body as UTF-8 text into s. Invalid sequences are replaced.
func Text(s *string) Decoder {
	return func(body io.Reader) error {
		raw, err := io.ReadAll(body)
		if err != nil {
			return fmt.Errorf("reading body: %w", err)
		}

		*s = strings.ToValidUTF8(string(raw), "�")
		return nil
	}
}

type Fetcher struct {
	Client *http.Client
	// Timeout bounds each attempt separately.
	Timeout time.Duration
}

// Fetch GETs source.Primary and feeds the body to decode. If anything fails, it reports the fallback on the progress
// queue and tries source.Fallback once. A *FetchError is returned if both attempts fail.
func (f Fetcher) Fetch(q *progress.Queue, source Source, decode Decoder) error {
	primaryErr := f.get(source.Primary, decode)
	if primaryErr == nil {
		return nil
	}

	log.Warnf("Fetching mirror list from %s failed, falling back to %s: %v", source.Primary, source.Fallback, primaryErr)
	_ = q.Sendf("falling back mirrorlist url to %s", source.Fallback)

	err := f.get(source.Fallback, decode)
	if err != nil {
		return &FetchError{
			Source:     source,
			PrimaryErr: primaryErr,
			Err:        err,
		}
	}

	return nil
}

func (f Fetcher) get(url string, decode Decoder) error {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	ctx := context.Background()
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request for %q: %w", url, err)
	}

	log.Infof("Requesting mirrorlist from %s", url)
	response, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("requesting %q: %w", url, err)
	}

	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return fmt.Errorf("%w: %d", ErrStatus, response.StatusCode)
	}

	return decode(response.Body)
}
