package interceptor

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/kbukum/httpware/fetch"
	"github.com/kbukum/httpware/logger"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

// stubTransport answers with a fixed status and body and keeps the last
// request it saw.
type stubTransport struct {
	mu     sync.Mutex
	status int
	body   string
	header http.Header
	last   *http.Request
	calls  int
}

func (s *stubTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	s.mu.Lock()
	s.last = req
	s.calls++
	s.mu.Unlock()

	status := s.status
	if status == 0 {
		status = http.StatusOK
	}
	h := http.Header{}
	for k, v := range s.header {
		h[k] = v
	}
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     h,
		Body:       io.NopCloser(strings.NewReader(s.body)),
		Request:    req,
	}, nil
}

func (s *stubTransport) lastRequest() *http.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// trackedBody records whether Close was called.
type trackedBody struct {
	io.Reader
	closed bool
}

func (b *trackedBody) Close() error {
	b.closed = true
	return nil
}

func newFetcher(rt http.RoundTripper, interceptors ...fetch.Interceptor) *fetch.Fetcher {
	return fetch.New(
		fetch.WithTransport(rt),
		fetch.WithLogger(logger.Nop()),
		fetch.WithMiddlewares(interceptors...),
	)
}

func mustFetch(t *testing.T, f *fetch.Fetcher, url string, opts ...fetch.RequestOption) *http.Response {
	t.Helper()
	resp, err := f.Fetch(context.Background(), url, opts...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return resp
}

func readAll(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(b)
}
