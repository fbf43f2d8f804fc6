package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the booking
// and waitlist engines. A nil receiver is a no-op, so services can carry it
// optionally.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	bookingsCreated   prometheus.Counter
	bookingsCancelled prometheus.Counter
	waitlistJoins     prometheus.Counter
	promotions        prometheus.Counter
	promotionRetries  prometheus.Counter
	lifecycleMoves    *prometheus.CounterVec
}

// NewMetricsService registers the core collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	bookingsCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bookings_created_total",
		Help: "Total bookings created, including re-enrollments and promotions",
	})

	bookingsCancelled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bookings_cancelled_total",
		Help: "Total bookings cancelled",
	})

	waitlistJoins := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "waitlist_joins_total",
		Help: "Total waitlist entries created",
	})

	promotions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "waitlist_promotions_total",
		Help: "Total successful waitlist promotions",
	})

	promotionRetries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "waitlist_promotion_retries_total",
		Help: "Promotion attempts that moved on to the next candidate",
	})

	lifecycleMoves := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "membership_transitions_total",
		Help: "Membership status transitions applied by the lifecycle job",
	}, []string{"target_status"})

	registry.MustRegister(requestDuration, requestTotal, bookingsCreated, bookingsCancelled,
		waitlistJoins, promotions, promotionRetries, lifecycleMoves)

	return &MetricsService{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		bookingsCreated:   bookingsCreated,
		bookingsCancelled: bookingsCancelled,
		waitlistJoins:     waitlistJoins,
		promotions:        promotions,
		promotionRetries:  promotionRetries,
		lifecycleMoves:    lifecycleMoves,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (s *MetricsService) Handler() http.Handler {
	if s == nil {
		return http.NotFoundHandler()
	}
	return s.handler
}

// ObserveHTTPRequest records one request in the duration and total vectors.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if s == nil {
		return
	}
	labels := prometheus.Labels{"method": method, "path": path, "status": strconv.Itoa(status)}
	s.requestDuration.With(labels).Observe(duration.Seconds())
	s.requestTotal.With(labels).Inc()
}

// CountBookingCreated increments the created-bookings counter.
func (s *MetricsService) CountBookingCreated() {
	if s == nil {
		return
	}
	s.bookingsCreated.Inc()
}

// CountBookingCancelled increments the cancelled-bookings counter.
func (s *MetricsService) CountBookingCancelled() {
	if s == nil {
		return
	}
	s.bookingsCancelled.Inc()
}

// CountWaitlistJoin increments the waitlist-joins counter.
func (s *MetricsService) CountWaitlistJoin() {
	if s == nil {
		return
	}
	s.waitlistJoins.Inc()
}

// CountPromotion increments the successful-promotions counter.
func (s *MetricsService) CountPromotion() {
	if s == nil {
		return
	}
	s.promotions.Inc()
}

// CountPromotionRetry increments the promotion-retry counter.
func (s *MetricsService) CountPromotionRetry() {
	if s == nil {
		return
	}
	s.promotionRetries.Inc()
}

// CountMembershipTransitions adds lifecycle transitions by target status.
func (s *MetricsService) CountMembershipTransitions(targetStatus string, n int64) {
	if s == nil || n <= 0 {
		return
	}
	s.lifecycleMoves.WithLabelValues(targetStatus).Add(float64(n))
}
