package security

import (
	"bytes"
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"arwaeduc/internal/log"
)

func newDetector(t *testing.T, buf *bytes.Buffer) *Detector {
	t.Helper()
	cfg := log.DefaultConfig()
	cfg.Output = buf
	d, err := NewDetector(DefaultTrustedProxies, log.New(cfg))
	if err != nil {
		t.Fatalf("NewDetector: %v", err)
	}
	return d
}

func TestNewDetectorRejectsBadCIDR(t *testing.T) {
	if _, err := NewDetector([]string{"10.0.0.0/33"}, log.New(log.DefaultConfig())); err == nil {
		t.Fatal("expected error")
	}
}

func TestClientIP(t *testing.T) {
	d := newDetector(t, &bytes.Buffer{})
	tests := []struct {
		name, remote, xff, xri, want string
	}{
		{"direct", "203.0.113.5:4000", "", "", "203.0.113.5"},
		{"untrusted peer ignores xff", "203.0.113.5:4000", "1.2.3.4", "", "203.0.113.5"},
		{"trusted peer uses xff", "10.1.2.3:4000", "198.51.100.7, 10.1.2.3", "", "198.51.100.7"},
		{"trusted peer bad xff falls to xri", "127.0.0.1:4000", "garbage", "198.51.100.8", "198.51.100.8"},
		{"no port", "192.168.1.1", "", "", "192.168.1.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			if got := d.ClientIP(r); got != tt.want {
				t.Fatalf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReason(t *testing.T) {
	d := newDetector(t, &bytes.Buffer{})
	tests := []struct {
		name, method, target, agent, want string
	}{
		{"clean", http.MethodGet, "/api/payroll", "Mozilla/5.0", ""},
		{"dotenv", http.MethodGet, "/.env", "", "pattern"},
		{"sql in query", http.MethodGet, "/api/dashboard?q=1%20union%20select", "", "pattern"},
		{"sql with plus", http.MethodGet, "/api/dashboard?q=1+UNION+SELECT", "", "pattern"},
		{"encoded traversal", http.MethodGet, "/api/x?f=%2e%2e%2fetc%2fpasswd", "", "pattern"},
		{"encoded script", http.MethodGet, "/?q=%3Cscript%3E", "", "pattern"},
		{"clean query", http.MethodGet, "/api/reconciliation?year=2024&month=3", "", ""},
		{"scanner", http.MethodGet, "/", "sqlmap/1.7", "user_agent"},
		{"trace", "TRACE", "/", "", "method"},
		{"long url", http.MethodGet, "/?" + strings.Repeat("a", maxURLLength), "", "url_length"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, tt.target, nil)
			r.Header.Set("User-Agent", tt.agent)
			if got := d.Reason(r); got != tt.want {
				t.Fatalf("Reason = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReasonMalformedEscapeScansRawQuery(t *testing.T) {
	d := newDetector(t, &bytes.Buffer{})
	r := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	r.URL.RawQuery = "q=%zz&x=../etc"
	if got := d.Reason(r); got != "pattern" {
		t.Fatalf("Reason = %q, want %q", got, "pattern")
	}
}

func TestMiddlewareLogsButServes(t *testing.T) {
	var buf bytes.Buffer
	d := newDetector(t, &buf)
	h := d.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/wp-admin", nil))
	if rr.Code != http.StatusTeapot {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(buf.String(), "Suspicious request") {
		t.Fatalf("expected warning, got %q", buf.String())
	}
}

func TestHeaders(t *testing.T) {
	h := Headers(DefaultHeadersConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if got := rr.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("X-Frame-Options = %q", got)
	}
	if strings.Contains(rr.Header().Get("Content-Security-Policy"), "unpkg") {
		t.Fatal("CSP must not allow third-party scripts")
	}
	if rr.Header().Get("Strict-Transport-Security") != "" {
		t.Fatal("HSTS over plain HTTP")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.TLS = &tls.ConnectionState{}
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get("Strict-Transport-Security"); got != "max-age=31536000; includeSubDomains" {
		t.Fatalf("HSTS = %q", got)
	}
}

func TestCacheStatic(t *testing.T) {
	h := CacheStatic(3600)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/static/app.css", nil))
	if got := rr.Header().Get("Cache-Control"); got != "public, max-age=3600, immutable" {
		t.Fatalf("Cache-Control = %q", got)
	}
}
