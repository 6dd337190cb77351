// Package api exposes pipeline results, diagnostics and analysis over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/yegors/flightrecon/pkg/logger"
)

// Router builds the HTTP routes
type Router struct {
	handler   *Handler
	reportDir string // PDF output directory, empty when PDFs are not written
	logger    *logger.Logger
}

// NewRouter creates a router around a handler
func NewRouter(handler *Handler, reportDir string, log *logger.Logger) *Router {
	return &Router{
		handler:   handler,
		reportDir: reportDir,
		logger:    log.Named("router"),
	}
}

// Routes returns the root handler
func (rt *Router) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(rt.requestLogger)

	h := rt.handler
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.GetHealth)

		r.Get("/runs/latest", h.GetLatestRun)
		r.Post("/runs", h.TriggerRun)

		r.Get("/aircraft", h.GetAircraft)
		r.Get("/flights", h.GetFlights)
		r.Get("/merged", h.GetMerged)

		r.Get("/reports/missing", h.GetMissingReports)
		r.Get("/reports/missing.pdf", h.GetMissingReportsPDF)
		if rt.reportDir != "" {
			files := NewReportFileHandler(rt.reportDir, rt.logger)
			r.Handle("/reports/files/*", http.StripPrefix("/api/v1/reports/files", files))
		}

		r.Route("/analysis", func(r chi.Router) {
			r.Get("/variance", h.GetBlockVariance)
			r.Get("/delay-status", h.GetDelayStatus)
			r.Get("/cancellations", h.GetCancellations)
			r.Get("/monthly-delays", h.GetMonthlyDelays)
			r.Get("/utilisation", h.GetUtilisation)
			r.Get("/day-of-week", h.GetDayOfWeek)
			r.Get("/manufacturers", h.GetManufacturers)
			r.Get("/families", h.GetFamilies)
			r.Get("/months", h.GetMonths)
			r.Get("/cancellations-by-date", h.GetCancellationsByDate)
		})

		r.Get("/reference/{kind}", h.GetReference)
	})
	r.Get("/ws", h.HandleWebSocket)

	return r
}

func (rt *Router) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		rt.logger.Debug("HTTP request",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", ww.Status()),
			logger.Int("bytes", ww.BytesWritten()),
			logger.Duration("duration", time.Since(start)),
			logger.String("request_id", middleware.GetReqID(r.Context())))
	})
}
