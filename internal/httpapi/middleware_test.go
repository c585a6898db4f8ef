package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

func TestRequestIDGeneratesWhenMissing(t *testing.T) {
	var gotFromCtx string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotFromCtx = RequestIDFromContext(r.Context())
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	RequestID(next).ServeHTTP(rec, req)

	if gotFromCtx == "" {
		t.Fatal("expected a request id to be attached to the context")
	}
	if rec.Header().Get("X-Request-Id") != gotFromCtx {
		t.Fatalf("expected response header to echo the context request id, got %q vs %q", rec.Header().Get("X-Request-Id"), gotFromCtx)
	}
}

func TestRequestIDPreservesIncomingHeader(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "client-supplied-id")

	RequestID(next).ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-Id"); got != "client-supplied-id" {
		t.Fatalf("expected incoming request id to be preserved, got %q", got)
	}
}

func TestSecurityHeadersSetsHardeningHeaders(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	SecurityHeaders(next).ServeHTTP(rec, req)

	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
	} {
		if got := rec.Header().Get(header); got != want {
			t.Fatalf("expected %s=%q, got %q", header, want, got)
		}
	}
}

func TestMaxBodyBytesRejectsOversizedBody(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("expected a payload over the limit to be rejected before the handler")
	})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/record", strings.NewReader("0123456789"))

	MaxBodyBytes(next, 4).ServeHTTP(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 for a body over the limit, got %d", rec.Code)
	}
}

func TestRateLimitAllowsBurstThenRejects(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RateLimit(next, 2, 1)

	req := httptest.NewRequest(http.MethodGet, "/format", nil)
	req.RemoteAddr = "203.0.113.5:1234"

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200 within burst, got %d", i, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 once the burst is exhausted, got %d", rec.Code)
	}
}

func TestRateLimitTracksClientsIndependently(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RateLimit(next, 1, 1)

	reqA := httptest.NewRequest(http.MethodGet, "/format", nil)
	reqA.RemoteAddr = "198.51.100.1:1"
	reqB := httptest.NewRequest(http.MethodGet, "/format", nil)
	reqB.RemoteAddr = "198.51.100.2:1"

	recA := httptest.NewRecorder()
	handler.ServeHTTP(recA, reqA)
	if recA.Code != http.StatusOK {
		t.Fatalf("client A's first request should be allowed, got %d", recA.Code)
	}

	recB := httptest.NewRecorder()
	handler.ServeHTTP(recB, reqB)
	if recB.Code != http.StatusOK {
		t.Fatalf("client B's first request should be allowed independently of A's bucket, got %d", recB.Code)
	}
}

// Exercises the RateLimit bucket map under concurrent access; run with
// -race to confirm the mutex guards every read/write/delete path.
func TestRateLimitConcurrentAccessDoesNotRace(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	handler := RateLimit(next, 100, 100)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodGet, "/format", nil)
			req.RemoteAddr = "203.0.113.9:1234"
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
		}(i)
	}
	wg.Wait()
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.2")

	if got := clientIP(req); got != "203.0.113.7" {
		t.Fatalf("expected first X-Forwarded-For entry, got %q", got)
	}
}

func TestClientIPFallsBackToRemoteAddr(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"

	if got := clientIP(req); got != "10.0.0.1" {
		t.Fatalf("expected host portion of RemoteAddr, got %q", got)
	}
}
