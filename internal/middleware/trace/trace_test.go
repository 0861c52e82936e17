package trace

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"arwaeduc/internal/log"
)

func newTestLogger(buf *bytes.Buffer) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Format = "json"
	cfg.Output = buf
	return log.New(cfg)
}

func TestHandlerAssignsRequestIDAndLogsRoute(t *testing.T) {
	var buf bytes.Buffer
	m := NewMiddleware(newTestLogger(&buf), func(*http.Request) string { return "10.0.0.9" })

	var seen string
	r := chi.NewRouter()
	r.Use(m.Handler)
	r.Get("/api/payments/{id}", func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusNotFound)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/payments/abc", nil))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rr.Code)
	}
	if seen == "" || !strings.HasPrefix(seen, "req_") {
		t.Fatalf("request id = %q", seen)
	}
	if got := rr.Header().Get(RequestIDHeader); got != seen {
		t.Fatalf("header id = %q, want %q", got, seen)
	}
	out := buf.String()
	for _, want := range []string{`"status_code":404`, `"client_ip":"10.0.0.9"`, `"level":"WARN"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %s: %s", want, out)
		}
	}
}

func TestHandlerKeepsValidIncomingID(t *testing.T) {
	var buf bytes.Buffer
	m := NewMiddleware(newTestLogger(&buf), nil)
	h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(FromRequest(r)))
	}))

	tests := []struct {
		name, in string
		keep     bool
	}{
		{"plain", "abc-123", true},
		{"injection", "abc\nlevel=ERROR", false},
		{"too long", strings.Repeat("a", 65), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(RequestIDHeader, tt.in)
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if got := rr.Body.String() == tt.in; got != tt.keep {
				t.Fatalf("kept = %v, want %v (body %q)", got, tt.keep, rr.Body.String())
			}
		})
	}
}

func TestRoutePatternUnmatched(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/nowhere", nil)
	if got := routePattern(req); got != "unmatched" {
		t.Fatalf("routePattern = %q", got)
	}
}
