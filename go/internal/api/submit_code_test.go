package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mcdev12/classroom/go/internal/runner"
)

type fakeRunner struct {
	got []string
	res *runner.Result
	err error
}

func (f *fakeRunner) Run(ctx context.Context, code string) (*runner.Result, error) {
	f.got = append(f.got, code)
	if f.err != nil {
		return nil, f.err
	}
	return f.res, nil
}

func newCodeServer(t *testing.T, r CodeRunner) *httptest.Server {
	t.Helper()
	ts := newTestServer(t, "", 0)
	h := NewHandler(ts.manager)
	if r != nil {
		h = h.WithCodeRunner(r)
	}
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHandler_SubmitCode(t *testing.T) {
	fr := &fakeRunner{res: &runner.Result{Stdout: "hi\n", Stderr: "warn\n", ExitCode: 1, Duration: 42 * time.Millisecond}}
	srv := &testServer{Server: newCodeServer(t, fr)}

	tests := []struct {
		name string
		body string
		want string
	}{
		{"plain", `{"code":"print('hi')"}`, "print('hi')"},
		{"editor form", `{"codeSample":{"code":"print('wrapped')"}}`, "print('wrapped')"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp SubmitCodeResponse
			if code := srv.do(t, http.MethodPut, "/api/submitCode", tt.body, &resp); code != http.StatusOK {
				t.Fatalf("status = %d", code)
			}
			if resp.Status != StatusReceived || resp.Out != "hi\n" || resp.Err != "warn\n" || resp.ExitCode != 1 || resp.DurationMS != 42 {
				t.Errorf("response = %+v", resp)
			}
			if got := fr.got[len(fr.got)-1]; got != tt.want {
				t.Errorf("ran %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHandler_SubmitCodeErrors(t *testing.T) {
	tests := []struct {
		name   string
		runner CodeRunner
		body   string
		want   int
	}{
		{"disabled", nil, `{"code":"x"}`, http.StatusNotImplemented},
		{"empty code", &fakeRunner{err: runner.ErrEmptyCode}, `{"code":""}`, http.StatusBadRequest},
		{"too large", &fakeRunner{err: runner.ErrCodeTooLarge}, `{"code":"x"}`, http.StatusRequestEntityTooLarge},
		{"malformed", &fakeRunner{}, `{"code":`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := &testServer{Server: newCodeServer(t, tt.runner)}
			var resp StatusResponse
			if code := srv.do(t, http.MethodPut, "/api/submitCode", tt.body, &resp); code != tt.want {
				t.Errorf("status = %d, want %d", code, tt.want)
			}
			if resp.Status != StatusError || resp.Message == "" {
				t.Errorf("response = %+v", resp)
			}
		})
	}
}
