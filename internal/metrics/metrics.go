package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zeiterfassung_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "zeiterfassung_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	calendarDerivations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "zeiterfassung_calendar_derivation_duration_seconds",
		Help:    "Duration of working-time calendar derivations",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})

	calendarUsers = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zeiterfassung_calendar_users_total",
		Help: "Number of user calendars derived",
	})

	holidayCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zeiterfassung_public_holiday_cache_lookups_total",
		Help: "Public holiday cache lookups by result",
	}, []string{"result"})

	eventsHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zeiterfassung_events_handled_total",
		Help: "Count of consumed integration events by stream and result",
	}, []string{"stream", "result"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveCalendarDerivation records one batch derivation and how many user calendars it produced
func ObserveCalendarDerivation(result string, users int, duration time.Duration) {
	calendarDerivations.WithLabelValues(result).Observe(duration.Seconds())
	calendarUsers.Add(float64(users))
}

// ObserveHolidayCache counts a cache lookup ("hit", "miss" or "error")
func ObserveHolidayCache(result string) {
	holidayCacheLookups.WithLabelValues(result).Inc()
}

// ObserveEvent counts a consumed event ("handled", "skipped" or "failed")
func ObserveEvent(stream, result string) {
	eventsHandled.WithLabelValues(stream, result).Inc()
}
