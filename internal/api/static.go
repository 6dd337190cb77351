package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/yegors/flightrecon/pkg/logger"
)

// ReportFileHandler serves rendered PDF reports from a directory without caching
type ReportFileHandler struct {
	dir    string
	logger *logger.Logger
}

// NewReportFileHandler creates a handler for files written under dir
func NewReportFileHandler(dir string, log *logger.Logger) *ReportFileHandler {
	return &ReportFileHandler{
		dir:    dir,
		logger: log.Named("report-files"),
	}
}

// ServeHTTP serves a single report file; directory listings are refused
func (h *ReportFileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(filepath.Clean("/"+r.URL.Path), "/")
	if name == "" {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	absDir, err := filepath.Abs(h.dir)
	if err != nil {
		h.logger.Error("Failed to get absolute path for report directory", logger.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	fullPath := filepath.Join(absDir, name)
	if !strings.HasPrefix(fullPath, absDir+string(filepath.Separator)) {
		h.logger.Warn("Attempted directory traversal",
			logger.String("requested_path", r.URL.Path),
			logger.String("full_path", fullPath))
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("Failed to stat report", logger.Error(err), logger.String("path", fullPath))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if info.IsDir() {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	// Reports are rewritten by every run
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")

	h.logger.Debug("Serving report file", logger.String("file_path", fullPath))
	http.ServeFile(w, r, fullPath)
}
