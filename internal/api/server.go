// Package api exposes region detection, the country catalog and address
// normalization over HTTP.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/addrkit/internal/catalog"
	"github.com/sells-group/addrkit/internal/config"
	"github.com/sells-group/addrkit/internal/metrics"
	"github.com/sells-group/addrkit/internal/provider"
	"github.com/sells-group/addrkit/internal/region"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Deps are the services behind the API.
type Deps struct {
	Catalog     *catalog.Catalog
	Detector    *region.Detector
	Registry    *provider.Registry
	Region      config.RegionConfig
	CORSOrigins []string
}

// Server holds the HTTP handlers.
type Server struct {
	deps Deps
}

// New creates a Server.
func New(deps Deps) *Server {
	return &Server{deps: deps}
}

// Router builds the chi router with every route registered.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	origins := s.deps.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Accept-Language", "Content-Type", "X-Timezone"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Get("/region", s.handleRegion)

		r.Get("/countries", s.handleCountries)
		r.Post("/countries/refresh", s.handleRefreshCountries)
		r.Get("/countries/{code}", s.handleCountry)

		r.Post("/address/resolve", s.handleResolve)
		r.Post("/address/{kind}", s.handleAddress)

		r.Get("/postcode/script", s.handlePostcodeScript)
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// requestLogger logs one line per request with the chi request id.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("api: request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}
