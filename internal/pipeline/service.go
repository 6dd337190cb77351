package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/yegors/flightrecon/internal/config"
	"github.com/yegors/flightrecon/pkg/logger"
)

// ErrNoRun is returned before the first successful run
var ErrNoRun = errors.New("no pipeline run available")

// Service serialises pipeline runs and publishes the latest successful one
type Service struct {
	pipeline *Pipeline
	reports  config.ReportConfig
	out      io.Writer  // console report destination
	runMu    sync.Mutex // held for the duration of a run
	mu       sync.RWMutex
	latest   *Run
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithReports renders the missing-value reports after every successful run.
// Console tables go to w.
func WithReports(cfg config.ReportConfig, w io.Writer) ServiceOption {
	return func(s *Service) {
		s.reports = cfg
		if w != nil {
			s.out = w
		}
	}
}

// NewService wraps a pipeline
func NewService(p *Pipeline, opts ...ServiceOption) *Service {
	s := &Service{pipeline: p, out: io.Discard}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Trigger runs the pipeline, waiting for any run already in progress.
// A failed run keeps the previous result published. A run whose reports
// cannot be written is still published and returned along with the error.
func (s *Service) Trigger(ctx context.Context) (*Run, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	run, err := s.pipeline.Run(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.latest = run
	s.mu.Unlock()

	paths, err := WriteReports(run, s.reports, s.out)
	if err != nil {
		return run, fmt.Errorf("run %s: %w", run.ID, err)
	}
	for _, p := range paths {
		s.pipeline.logger.Debug("Wrote missing-value report",
			logger.String("run_id", run.ID),
			logger.String("path", p))
	}
	return run, nil
}

// Latest returns the most recent successful run
func (s *Service) Latest() (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return nil, ErrNoRun
	}
	return s.latest, nil
}
