package reqid

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMiddlewareGeneratesIDWhenAbsent(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	Middleware(next).ServeHTTP(rec, req)

	if seen == "" {
		t.Fatalf("expected a generated request id in context")
	}
	if got := rec.Header().Get(Header); got != seen {
		t.Fatalf("response header %q = %q, want %q", Header, got, seen)
	}
}

func TestMiddlewarePreservesIncomingID(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(Header, "client-supplied-id")
	rec := httptest.NewRecorder()
	Middleware(next).ServeHTTP(rec, req)

	if seen != "client-supplied-id" {
		t.Fatalf("seen = %q, want the client-supplied id", seen)
	}
	if got := rec.Header().Get(Header); got != "client-supplied-id" {
		t.Fatalf("response header = %q, want the client-supplied id echoed back", got)
	}
}

func TestFromContextEmptyWhenUnset(t *testing.T) {
	if got := FromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context()); got != "" {
		t.Fatalf("FromContext on a bare context = %q, want empty", got)
	}
}

func TestMiddlewareGeneratesDistinctIDsAcrossRequests(t *testing.T) {
	var ids []string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids = append(ids, FromContext(r.Context()))
	})
	h := Middleware(next)

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
	}

	seen := map[string]bool{}
	for _, id := range ids {
		if seen[id] {
			t.Fatalf("duplicate request id generated: %q", id)
		}
		seen[id] = true
	}
}
