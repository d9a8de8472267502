// Package metrics declares the Prometheus collectors shared across packages.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "addrkit"

var (
	// RegionDetections counts finished detections by winning method and region.
	RegionDetections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "region_detections_total",
		Help:      "Region detections by method and resulting region",
	}, []string{"method", "region"})

	// CountriesFetch counts directory fetches by result (ok, error).
	CountriesFetch = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "countries_fetch_total",
		Help:      "Country directory fetches by result",
	}, []string{"result"})

	// CountriesCache counts catalog cache lookups by result (hit, miss, expired).
	CountriesCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "countries_cache_total",
		Help:      "Country catalog cache lookups by result",
	}, []string{"result"})

	// WidgetLoads counts postcode widget script loads by result (ok, error).
	WidgetLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "widget_loads_total",
		Help:      "External widget script loads by result",
	}, []string{"result"})

	// AddressEmissions counts normalized addresses handed out, by kind. A
	// cleared value is recorded as kind "none".
	AddressEmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "address_emissions_total",
		Help:      "Canonical address values emitted by providers",
	}, []string{"kind"})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"method", "route", "status"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request count and latency labelled by the chi route
// pattern, so path parameters do not explode label cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := strconv.Itoa(sw.status)
		httpRequests.WithLabelValues(r.Method, route, status).Inc()
		httpDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
