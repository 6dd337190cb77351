package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/yegors/flightrecon/internal/analysis"
	"github.com/yegors/flightrecon/internal/pipeline"
	"github.com/yegors/flightrecon/internal/refdata"
	"github.com/yegors/flightrecon/internal/registry"
	"github.com/yegors/flightrecon/internal/report"
	"github.com/yegors/flightrecon/internal/websocket"
	"github.com/yegors/flightrecon/pkg/logger"
)

// ReferenceSource serves cached reference lists
type ReferenceSource interface {
	Get(ctx context.Context, kind refdata.Kind) (any, error)
}

// Handler contains the API handlers
type Handler struct {
	service   *pipeline.Service
	reference ReferenceSource // nil when reference lookups are disabled
	wsServer  *websocket.Server
	version   string
	logger    *logger.Logger
}

// NewHandler creates a new API handler
func NewHandler(service *pipeline.Service, reference ReferenceSource, wsServer *websocket.Server, version string, log *logger.Logger) *Handler {
	return &Handler{
		service:   service,
		reference: reference,
		wsServer:  wsServer,
		version:   version,
		logger:    log.Named("api"),
	}
}

// latestRun writes 503 and returns nil when no run has completed yet
func (h *Handler) latestRun(w http.ResponseWriter) *pipeline.Run {
	run, err := h.service.Latest()
	if err != nil {
		http.Error(w, "No pipeline run available", http.StatusServiceUnavailable)
		return nil
	}
	return run
}

// GetHealth returns the health status of the API
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":  "ok",
		"version": h.version,
	}
	if run, err := h.service.Latest(); err == nil {
		response["last_run_id"] = run.ID
		response["last_run_at"] = run.FinishedAt
	} else {
		response["status"] = "waiting"
	}

	WriteJSON(w, http.StatusOK, response)
}

// GetLatestRun returns the summary of the most recent run
func (h *Handler) GetLatestRun(w http.ResponseWriter, r *http.Request) {
	run := h.latestRun(w)
	if run == nil {
		return
	}
	WriteJSON(w, http.StatusOK, run.Summary())
}

// TriggerRun re-runs the pipeline and returns its summary
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.service.Trigger(r.Context())
	if err != nil {
		h.logger.Error("Pipeline run failed", logger.Error(err))
		http.Error(w, "Pipeline run failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	WriteJSON(w, http.StatusOK, run.Summary())
}

// GetAircraft returns the cleaned registry, optionally filtered by manufacturer
func (h *Handler) GetAircraft(w http.ResponseWriter, r *http.Request) {
	run := h.latestRun(w)
	if run == nil {
		return
	}

	records := run.Registry.Records
	// Manufacturers are stored uppercased
	manufacturer := cases.Upper(language.Und).String(strings.TrimSpace(r.URL.Query().Get("manufacturer")))
	if manufacturer != "" {
		filtered := make([]registry.AircraftRecord, 0)
		for _, a := range records {
			if a.Manufacturer == manufacturer {
				filtered = append(filtered, a)
			}
		}
		records = filtered
	}

	limit, offset := parsePaginationParams(r)
	page := paginate(records, limit, offset)
	WriteJSON(w, http.StatusOK, map[string]any{
		"run_id":   run.ID,
		"total":    len(records),
		"count":    len(page),
		"aircraft": page,
	})
}

// GetFlights returns the cleaned flight log
func (h *Handler) GetFlights(w http.ResponseWriter, r *http.Request) {
	run := h.latestRun(w)
	if run == nil {
		return
	}

	limit, offset := parsePaginationParams(r)
	page := paginate(run.Flights.Records, limit, offset)
	WriteJSON(w, http.StatusOK, map[string]any{
		"run_id":  run.ID,
		"total":   len(run.Flights.Records),
		"count":   len(page),
		"flights": page,
	})
}

// GetMerged returns the reconciled dataset, optionally for one tail number
func (h *Handler) GetMerged(w http.ResponseWriter, r *http.Request) {
	run := h.latestRun(w)
	if run == nil {
		return
	}

	records := run.Merged
	if tail := r.URL.Query().Get("tail"); tail != "" {
		filtered := records[:0:0]
		for _, m := range records {
			if m.Registration == tail {
				filtered = append(filtered, m)
			}
		}
		records = filtered
	}

	limit, offset := parsePaginationParams(r)
	page := paginate(records, limit, offset)
	WriteJSON(w, http.StatusOK, map[string]any{
		"run_id": run.ID,
		"total":  len(records),
		"count":  len(page),
		"merged": page,
	})
}

// GetMissingReports returns the BEFORE/AFTER missing-value reports
func (h *Handler) GetMissingReports(w http.ResponseWriter, r *http.Request) {
	run := h.latestRun(w)
	if run == nil {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"run_id":  run.ID,
		"reports": run.Reports(),
	})
}

// GetMissingReportsPDF renders the missing-value reports as a PDF document
func (h *Handler) GetMissingReportsPDF(w http.ResponseWriter, r *http.Request) {
	run := h.latestRun(w)
	if run == nil {
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="missing-values.pdf"`)
	if err := report.WritePDF(w, run.Reports()...); err != nil {
		h.logger.Error("Failed to render missing-value PDF", logger.Error(err))
		http.Error(w, "Failed to render report", http.StatusInternalServerError)
	}
}

// GetBlockVariance returns mean block variance grouped by the "by" parameter
func (h *Handler) GetBlockVariance(w http.ResponseWriter, r *http.Request) {
	run := h.latestRun(w)
	if run == nil {
		return
	}

	by := r.URL.Query().Get("by")
	if by == "" {
		by = string(analysis.ByAircraftType)
	}
	key, err := analysis.ParseGroupKey(by)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ranking := analysis.BlockVarianceBy(run.Merged, key)
	if n, ok := intParam(r, "top"); ok {
		ranking = ranking.Top(n)
	} else if n, ok := intParam(r, "bottom"); ok {
		ranking = ranking.Bottom(n)
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"run_id": run.ID,
		"by":     key,
		"groups": ranking,
	})
}

// GetDelayStatus returns the delay-status distribution
func (h *Handler) GetDelayStatus(w http.ResponseWriter, r *http.Request) {
	run := h.latestRun(w)
	if run == nil {
		return
	}
	counts, unclassified := analysis.DelayStatusCounts(run.Merged)
	WriteJSON(w, http.StatusOK, map[string]any{
		"run_id":       run.ID,
		"statuses":     counts,
		"unclassified": unclassified,
	})
}

// GetCancellations returns cancellation reasons among cancelled flights
func (h *Handler) GetCancellations(w http.ResponseWriter, r *http.Request) {
	run := h.latestRun(w)
	if run == nil {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"run_id":  run.ID,
		"reasons": analysis.CancellationReasons(run.Merged),
	})
}

// GetMonthlyDelays returns delay totals per month
func (h *Handler) GetMonthlyDelays(w http.ResponseWriter, r *http.Request) {
	run := h.latestRun(w)
	if run == nil {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"run_id": run.ID,
		"months": analysis.MonthlyDelays(run.Merged),
	})
}

// GetUtilisation returns monthly air time per fleet tail
func (h *Handler) GetUtilisation(w http.ResponseWriter, r *http.Request) {
	run := h.latestRun(w)
	if run == nil {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"run_id":      run.ID,
		"fleet":       run.Fleet,
		"utilisation": analysis.MonthlyUtilisation(run.Merged, run.Fleet),
	})
}

// GetDayOfWeek returns flight counts per weekday
func (h *Handler) GetDayOfWeek(w http.ResponseWriter, r *http.Request) {
	run := h.latestRun(w)
	if run == nil {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"run_id": run.ID,
		"days":   analysis.DayOfWeekCounts(run.Merged),
	})
}

// GetManufacturers returns cleaned aircraft counts per manufacturer
func (h *Handler) GetManufacturers(w http.ResponseWriter, r *http.Request) {
	run := h.latestRun(w)
	if run == nil {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"run_id":        run.ID,
		"manufacturers": analysis.ManufacturerCounts(run.Registry.Records),
	})
}

// GetFamilies returns cleaned aircraft counts per aircraft family
func (h *Handler) GetFamilies(w http.ResponseWriter, r *http.Request) {
	run := h.latestRun(w)
	if run == nil {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"run_id":   run.ID,
		"families": analysis.AircraftFamilyCounts(run.Registry.Records),
	})
}

// GetMonths returns flight counts per month
func (h *Handler) GetMonths(w http.ResponseWriter, r *http.Request) {
	run := h.latestRun(w)
	if run == nil {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"run_id": run.ID,
		"months": analysis.MonthCounts(run.Merged),
	})
}

// GetCancellationsByDate returns cancellation counts per departure date
func (h *Handler) GetCancellationsByDate(w http.ResponseWriter, r *http.Request) {
	run := h.latestRun(w)
	if run == nil {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"run_id": run.ID,
		"dates":  analysis.CancellationsByDate(run.Merged),
	})
}

// GetReference returns a cached airline or airport list
func (h *Handler) GetReference(w http.ResponseWriter, r *http.Request) {
	if h.reference == nil {
		http.Error(w, "Reference data is disabled", http.StatusNotFound)
		return
	}

	kind, err := refdata.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	data, err := h.reference.Get(r.Context(), kind)
	if err != nil {
		h.logger.Error("Failed to fetch reference data",
			logger.String("kind", string(kind)),
			logger.Error(err))
		status := http.StatusBadGateway
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		http.Error(w, "Failed to fetch reference data", status)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"timestamp": time.Now(),
		"kind":      kind,
		"data":      data,
	})
}

// HandleWebSocket handles WebSocket connections
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	h.wsServer.HandleConnection(w, r)
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func parsePaginationParams(r *http.Request) (int, int) {
	limit := 100 // Default limit
	offset := 0  // Default offset

	if l, ok := intParam(r, "limit"); ok && l > 0 {
		limit = l
	}
	if o, ok := intParam(r, "offset"); ok && o >= 0 {
		offset = o
	}
	return limit, offset
}

func intParam(r *http.Request, name string) (int, bool) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
