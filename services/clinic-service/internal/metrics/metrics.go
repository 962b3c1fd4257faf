package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "clinic"

// Metrics holds the Prometheus collectors of the clinic service.
type Metrics struct {
	AppointmentsBooked prometheus.Counter
	BookingRejections  *prometheus.CounterVec
	StatusChanges      *prometheus.CounterVec
	CheckDuration      *prometheus.HistogramVec
	OutboxPublished    prometheus.Counter
	OutboxErrors       prometheus.Counter
	HTTPRequests       *prometheus.CounterVec
	HTTPDuration       *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New registers the collectors on reg. Tests pass a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		AppointmentsBooked: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "appointments_booked_total",
			Help:      "Appointments created",
		}),
		BookingRejections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_rejections_total",
			Help:      "Booking attempts rejected by validation or the slot checkers",
		}, []string{"reason"}),
		StatusChanges: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "appointment_status_changes_total",
			Help:      "Appointment status transitions",
		}, []string{"from", "to"}),
		CheckDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "slot_check_duration_seconds",
			Help:      "Time spent in the availability and conflict checks",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1},
		}, []string{"check"}),
		OutboxPublished: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_published_total",
			Help:      "Outbox events written to Kafka",
		}),
		OutboxErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_publish_errors_total",
			Help:      "Failed outbox publish batches",
		}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern and status code",
		}, []string{"route", "code"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		gatherer: reg,
	}
}

func (m *Metrics) IncRejection(reason string) {
	m.BookingRejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncStatusChange(from, to string) {
	m.StatusChanges.WithLabelValues(from, to).Inc()
}

func (m *Metrics) ObserveCheck(check string, start time.Time) {
	m.CheckDuration.WithLabelValues(check).Observe(time.Since(start).Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency keyed by the matched mux
// pattern, so it must wrap the ServeMux directly.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequests.WithLabelValues(route, strconv.Itoa(sw.status)).Inc()
		m.HTTPDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
