// Package http serves the JSON API, the dashboard page and the operational
// endpoints (health, readiness, metrics).
package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"arwaeduc/internal/amqp"
	"arwaeduc/internal/core"
	"arwaeduc/internal/log"
	"arwaeduc/internal/metrics"
	"arwaeduc/internal/middleware/security"
	"arwaeduc/internal/middleware/trace"
	"arwaeduc/internal/report"
	"arwaeduc/internal/services"
	appweb "arwaeduc/web"
)

// Ports the handlers depend on. The services package provides them.
type (
	Analytics interface {
		Now() time.Time
		Location() *time.Location
		GetAnalytics(ctx context.Context, source services.Source, p core.Period) (core.Analytics, error)
		Dashboard(ctx context.Context, now time.Time) (core.Dashboard, error)
		Reconciliation(ctx context.Context, p core.Period) (core.Reconciliation, error)
		StudentBalances(ctx context.Context, p core.Period) ([]core.StudentBalance, error)
		Payroll(ctx context.Context) (core.PayrollSummary, error)
		MonthlyReport(ctx context.Context, p core.Period, school string) (report.Monthly, error)
	}

	Recorder interface {
		RecordStudent(ctx context.Context, st core.Student) (core.Student, error)
		RecordInscription(ctx context.Context, i core.Inscription) (core.Inscription, error)
		RecordPayment(ctx context.Context, p core.Payment) (core.Payment, error)
		RecordTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		Receipt(ctx context.Context, paymentID string) (core.Payment, core.Student, error)
	}

	Attendance interface {
		Sheet(ctx context.Context, groupID string, year, month int) (core.AttendanceSheet, error)
		Mark(ctx context.Context, groupID, studentID string, date time.Time, status core.AttendanceStatus) (core.AttendanceSheet, error)
		Summary(ctx context.Context, groupID string, p core.Period) (core.AttendanceSummary, error)
	}

	ReportQueue interface {
		PublishReportRequested(ctx context.Context, year, month int) error
	}
)

var _ ReportQueue = (*amqp.Client)(nil)

// Deps wires the server. Reports and Ready may be nil.
type Deps struct {
	Analytics  Analytics
	Recorder   Recorder
	Attendance Attendance
	Reports    ReportQueue
	Formatter  report.Formatter
	School     string
	Logger     *log.Logger
	Detector   *security.Detector

	// RateLimitPerMinute caps POSTs per client address; 0 disables it.
	RateLimitPerMinute int

	// Ready reports whether backing services answer; nil means always ready.
	Ready func(ctx context.Context) error
}

type Server struct {
	http.Server
	deps         Deps
	templates    *template.Template
	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = log.New(log.DefaultConfig())
	}
	if deps.Detector == nil {
		deps.Detector, _ = security.NewDetector(security.DefaultTrustedProxies, deps.Logger)
	}
	logger := deps.Logger.WithComponent(log.ComponentHTTP)

	s := &Server{deps: deps}

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", log.FieldError, err)
	}
	s.templates = t

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(trace.NewMiddleware(logger, deps.Detector.ClientIP).Handler)
	r.Use(log.Middleware(logger))
	r.Use(log.RequestIDMiddleware(trace.FromRequest))
	r.Use(deps.Detector.Middleware)
	r.Use(security.Headers(security.DefaultHeadersConfig()))

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", metrics.Handler())

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		r.With(security.CacheStatic(3600)).
			Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(sub))))
	} else {
		logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}
	r.Get("/", s.handleIndex)

	r.Route("/api", func(r chi.Router) {
		r.Get("/analytics/{source}", s.handleAnalytics)
		r.Get("/dashboard", s.handleDashboard)
		r.Get("/reconciliation", s.handleReconciliation)
		r.Get("/payroll", s.handlePayroll)
		r.Get("/payments/{id}/receipt", s.handleReceipt)
		r.Get("/reports/{year}/{month}.{format}", s.handleDownloadReport)
		r.Get("/attendance/{groupID}", s.handleAttendance)

		r.Group(func(r chi.Router) {
			if deps.RateLimitPerMinute > 0 {
				r.Use(httprate.Limit(deps.RateLimitPerMinute, time.Minute,
					httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
						return deps.Detector.ClientIP(r), nil
					}),
					httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
						logger.WarnContext(r.Context(), "Rate limit exceeded",
							log.FieldClientIP, deps.Detector.ClientIP(r), log.FieldPath, r.URL.Path)
						writeProblem(w, http.StatusTooManyRequests, "rate limit exceeded, retry in a minute")
					}),
				))
			}
			r.Post("/students", s.handleCreateStudent)
			r.Post("/inscriptions", s.handleCreateInscription)
			r.Post("/payments", s.handleCreatePayment)
			r.Post("/transactions", s.handleCreateTransaction)
			r.Post("/attendance", s.handleMarkAttendance)
			r.Post("/reports/{year}/{month}", s.handleEnqueueReport)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, http.StatusNotFound, "no route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, http.StatusMethodNotAllowed, r.Method+" not allowed on "+r.URL.Path)
	})

	s.Server = http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Ready(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
