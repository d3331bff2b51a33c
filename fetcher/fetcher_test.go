package fetcher_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"roob.re/mirrorrank/fetcher"
	"roob.re/mirrorrank/progress"
)

type payload struct {
	Name string `json:"name"`
}

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()

	s := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(status)
		_, _ = rw.Write([]byte(body))
	}))
	t.Cleanup(s.Close)

	return s
}

// unreachable returns the URL of a server that has already been shut down.
func unreachable(t *testing.T) string {
	t.Helper()

	s := httptest.NewServer(http.NotFoundHandler())
	url := s.URL
	s.Close()

	return url
}

func drain(q *progress.Queue) []string {
	q.Done()

	var messages []string
	for msg := range q.Messages() {
		messages = append(messages, msg)
	}

	return messages
}

func TestFetch_Primary(t *testing.T) {
	t.Parallel()

	primary := serve(t, http.StatusOK, `{"name": "primary"}`)
	fallback := serve(t, http.StatusOK, `{"name": "fallback"}`)

	q := progress.New()
	var p payload
	err := fetcher.Fetcher{Timeout: time.Second}.Fetch(q, fetcher.Source{Primary: primary.URL, Fallback: fallback.URL}, fetcher.JSON(&p))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if p.Name != "primary" {
		t.Fatalf("expected primary payload, got %q", p.Name)
	}

	if messages := drain(q); len(messages) != 0 {
		t.Fatalf("expected no diagnostics, got %v", messages)
	}
}

func TestFetch_Falls_Back(t *testing.T) {
	t.Parallel()

	slow := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(slow.Close)

	for _, tc := range []struct {
		name    string
		primary string
	}{
		{name: "Unreachable", primary: unreachable(t)},
		{name: "Server_Error", primary: serve(t, http.StatusInternalServerError, `{"name": "primary"}`).URL},
		{name: "Malformed_Body", primary: serve(t, http.StatusOK, `{"name": `).URL},
		{name: "Wrong_Structure", primary: serve(t, http.StatusOK, `["primary"]`).URL},
		{name: "Timeout", primary: slow.URL},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			fallback := serve(t, http.StatusOK, `{"name": "fallback"}`)

			q := progress.New()
			var p payload
			err := fetcher.Fetcher{Timeout: 500 * time.Millisecond}.Fetch(q, fetcher.Source{Primary: tc.primary, Fallback: fallback.URL}, fetcher.JSON(&p))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if p.Name != "fallback" {
				t.Fatalf("expected fallback payload, got %q", p.Name)
			}

			messages := drain(q)
			if len(messages) != 1 || !strings.Contains(messages[0], fallback.URL) {
				t.Fatalf("expected one diagnostic mentioning the fallback, got %v", messages)
			}
		})
	}
}

func TestFetch_Both_Fail(t *testing.T) {
	t.Parallel()

	var calls int32
	fallback := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		rw.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(fallback.Close)

	source := fetcher.Source{Primary: unreachable(t), Fallback: fallback.URL}

	var p payload
	err := fetcher.Fetcher{Timeout: time.Second}.Fetch(progress.New(), source, fetcher.JSON(&p))

	var fetchErr *fetcher.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %v", err)
	}

	if fetchErr.PrimaryErr == nil {
		t.Fatalf("expected primary error to be recorded")
	}

	if !errors.Is(err, fetcher.ErrStatus) {
		t.Fatalf("expected underlying cause to be a status error, got %v", err)
	}

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("expected exactly one fallback attempt, got %d", n)
	}

	if p.Name != "" {
		t.Fatalf("payload should be untouched on failure, got %q", p.Name)
	}
}

func TestFetch_Parse_Error_Propagates(t *testing.T) {
	t.Parallel()

	source := fetcher.Source{
		Primary:  serve(t, http.StatusOK, `not json`).URL,
		Fallback: serve(t, http.StatusOK, `not json either`).URL,
	}

	var p payload
	err := fetcher.Fetcher{Timeout: time.Second}.Fetch(nil, source, fetcher.JSON(&p))

	var parseErr *fetcher.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError as cause, got %v", err)
	}
}

func TestText(t *testing.T) {
	t.Parallel()

	source := fetcher.Source{
		Primary:  serve(t, http.StatusOK, "Server = https://example.org/\xff\n").URL,
		Fallback: unreachable(t),
	}

	var text string
	err := fetcher.Fetcher{Timeout: time.Second}.Fetch(nil, source, fetcher.Text(&text))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if text != "Server = https://example.org/�\n" {
		t.Fatalf("unexpected text %q", text)
	}
}
