// Package metrics exposes the service's Prometheus collectors. Collectors
// exist from package init so callers never nil-check; Init registers them.
package metrics

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "arwaeduc"

	ResultSuccess = "success"
	ResultError   = "error"
)

var (
	registerOnce sync.Once
	registerErr  error

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status class.",
	}, []string{"method", "route", "status"})

	httpLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	recordsCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_created_total",
		Help:      "Records persisted by kind.",
	}, []string{"kind"})

	reportsGenerated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reports_generated_total",
		Help:      "Report exports by format and result.",
	}, []string{"format", "result"})

	reportLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "report_duration_seconds",
		Help:      "Monthly report generation latency in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"result"})

	messagesConsumed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_consumed_total",
		Help:      "AMQP messages handled by queue and result.",
	}, []string{"queue", "result"})

	cacheBumps = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "analytics_cache_bumps_total",
		Help:      "Analytics cache invalidations.",
	})

	suspiciousRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "suspicious_requests_total",
		Help:      "Requests flagged by the security detector, by reason.",
	}, []string{"reason"})
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		httpRequests, httpLatency, recordsCreated, reportsGenerated,
		reportLatency, messagesConsumed, cacheBumps, suspiciousRequests,
	}
}

// Init registers every collector with reg (the default registerer when nil).
// Only the first call has an effect.
func Init(reg prometheus.Registerer) error {
	registerOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		for _, c := range collectors() {
			if err := reg.Register(c); err != nil {
				var already prometheus.AlreadyRegisteredError
				if errors.As(err, &already) {
					continue
				}
				registerErr = err
				return
			}
		}
	})
	return registerErr
}

// Handler serves the default gatherer.
func Handler() http.Handler { return promhttp.Handler() }

func ObserveHTTP(method, route string, status int, d time.Duration) {
	httpRequests.WithLabelValues(method, route, statusClass(status)).Inc()
	httpLatency.WithLabelValues(method, route).Observe(d.Seconds())
}

func RecordCreated(kind string) { recordsCreated.WithLabelValues(kind).Inc() }

func ReportGenerated(format string, err error) {
	reportsGenerated.WithLabelValues(format, result(err)).Inc()
}

func ObserveReport(d time.Duration, err error) {
	reportLatency.WithLabelValues(result(err)).Observe(d.Seconds())
}

func MessageConsumed(queue string, err error) {
	messagesConsumed.WithLabelValues(queue, result(err)).Inc()
}

func CacheBumped() { cacheBumps.Inc() }

func SuspiciousRequest(reason string) { suspiciousRequests.WithLabelValues(reason).Inc() }

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultSuccess
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
