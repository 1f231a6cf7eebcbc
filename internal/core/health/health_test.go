package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLiveness_Handler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()

	Liveness()(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	ct := rr.Header().Get("Content-Type")
	if !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("content-type=%q want text/plain", ct)
	}
	if got := strings.TrimSpace(rr.Body.String()); got != "ok" {
		t.Fatalf("body=%q want ok", got)
	}
}

type fakeReporter struct {
	ready bool
	n     int
}

func (f fakeReporter) Readiness() (bool, int, string) { return f.ready, f.n, "file" }

func TestReadiness_Handler(t *testing.T) {
	cases := []struct {
		name string
		rep  fakeReporter
		code int
		body string
	}{
		{"ready", fakeReporter{ready: true, n: 3}, http.StatusOK, `"status":"ready","records":3,"source":"file"`},
		{"not ready", fakeReporter{}, http.StatusServiceUnavailable, `"status":"not_ready"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			Readiness(tc.rep)(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			if rr.Code != tc.code {
				t.Fatalf("status=%d want %d", rr.Code, tc.code)
			}
			if !strings.Contains(rr.Body.String(), tc.body) {
				t.Fatalf("body=%s want %s", rr.Body.String(), tc.body)
			}
		})
	}
}

func TestReadiness_FailingCheck(t *testing.T) {
	var calls int
	ok := Check{Name: "redis", Run: func(context.Context) error { calls++; return nil }}
	down := Check{Name: "redis", Run: func(context.Context) error { return errors.New("redis ping: connection refused") }}

	rr := httptest.NewRecorder()
	Readiness(fakeReporter{ready: true, n: 2}, ok)(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusOK || calls != 1 {
		t.Fatalf("status=%d calls=%d", rr.Code, calls)
	}

	rr = httptest.NewRecorder()
	Readiness(fakeReporter{ready: true, n: 2}, down)(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d want 503", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"failing":{"redis":"redis ping: connection refused"}`) {
		t.Fatalf("body=%s", rr.Body.String())
	}
}
