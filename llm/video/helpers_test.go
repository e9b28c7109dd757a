package video

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/BaSui01/mediagen/llm/retry"
)

func fastRetryPolicy() *retry.RetryPolicy {
	return &retry.RetryPolicy{
		MaxRetries:   2,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		Multiplier:   2,
	}
}

// fakeOperationClient scripts Submit/Status/Download responses.
type fakeOperationClient struct {
	mu sync.Mutex

	submitErr  error
	statuses   []*OperationStatus // consumed in order; the last one repeats
	statusErrs []error            // consumed before statuses
	payload    []byte
	downloadFn func(w io.Writer) error

	submitted   []*SubmitRequest
	statusCalls int
	downloads   []string
}

func (f *fakeOperationClient) Submit(_ context.Context, _ string, req *SubmitRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, req)
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return "operations/op-123", nil
}

func (f *fakeOperationClient) Status(_ context.Context, _ string) (*OperationStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	if len(f.statusErrs) > 0 {
		err := f.statusErrs[0]
		f.statusErrs = f.statusErrs[1:]
		return nil, err
	}
	if len(f.statuses) == 0 {
		return &OperationStatus{}, nil
	}
	s := f.statuses[0]
	if len(f.statuses) > 1 {
		f.statuses = f.statuses[1:]
	}
	return s, nil
}

func (f *fakeOperationClient) Download(_ context.Context, uri string, w io.Writer) error {
	f.mu.Lock()
	f.downloads = append(f.downloads, uri)
	fn := f.downloadFn
	payload := f.payload
	f.mu.Unlock()
	if fn != nil {
		return fn(w)
	}
	_, err := io.Copy(w, bytes.NewReader(payload))
	return err
}

func (f *fakeOperationClient) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusCalls
}

// fakeRunner returns a fixed output and records the input it was called with.
type fakeRunner struct {
	output any
	err    error

	model string
	input map[string]any
	calls int
}

func (f *fakeRunner) Run(_ context.Context, model string, input map[string]any) (any, error) {
	f.calls++
	f.model = model
	f.input = input
	return f.output, f.err
}

type urlObject struct{ u string }

func (o urlObject) URL() string { return o.u }

// artifactServer serves body at every path.
func artifactServer(t *testing.T, status int, body []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}
