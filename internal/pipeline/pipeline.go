// Package pipeline runs the registry and flight cleaners and reconciles their output.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yegors/flightrecon/internal/config"
	"github.com/yegors/flightrecon/internal/dataset"
	"github.com/yegors/flightrecon/internal/fleet"
	"github.com/yegors/flightrecon/internal/flights"
	"github.com/yegors/flightrecon/internal/reconcile"
	"github.com/yegors/flightrecon/internal/registry"
	"github.com/yegors/flightrecon/internal/report"
	"github.com/yegors/flightrecon/pkg/logger"
)

// Stage names a completed pipeline step
type Stage string

const (
	StageRegistry  Stage = "registry"
	StageFlights   Stage = "flights"
	StageReconcile Stage = "reconcile"
	StageFleet     Stage = "fleet"
)

// Observer is notified as a run progresses. Calls may come from several goroutines.
type Observer interface {
	RunStarted(runID string)
	StageCompleted(runID string, stage Stage, stats any)
	RunCompleted(summary Summary)
	RunFailed(runID string, err error)
}

type nopObserver struct{}

func (nopObserver) RunStarted(string)                 {}
func (nopObserver) StageCompleted(string, Stage, any) {}
func (nopObserver) RunCompleted(Summary)              {}
func (nopObserver) RunFailed(string, error)           {}

// Run is the immutable output of one pipeline execution
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Registry   *registry.Result
	Flights    *flights.Result
	Merged     []reconcile.MergedRecord
	Reconcile  reconcile.Stats
	Fleet      []string
}

// Summary is the serialisable overview of a run
type Summary struct {
	RunID      string          `json:"run_id"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	DurationMS int64           `json:"duration_ms"`
	Registry   registry.Stats  `json:"registry"`
	Flights    flights.Stats   `json:"flights"`
	Reconcile  reconcile.Stats `json:"reconcile"`
	FleetSize  int             `json:"fleet_size"`
}

// Summary returns the run overview
func (r *Run) Summary() Summary {
	return Summary{
		RunID:      r.ID,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		DurationMS: r.FinishedAt.Sub(r.StartedAt).Milliseconds(),
		Registry:   r.Registry.Stats,
		Flights:    r.Flights.Stats,
		Reconcile:  r.Reconcile,
		FleetSize:  len(r.Fleet),
	}
}

// Reports returns the BEFORE and AFTER missing-value reports of both datasets
func (r *Run) Reports() []report.MissingValues {
	return []report.MissingValues{r.Registry.Before, r.Registry.After, r.Flights.Before, r.Flights.After}
}

// Pipeline wires the cleaners and the reconciler
type Pipeline struct {
	config     *config.Config
	registry   *registry.Cleaner
	flights    *flights.Cleaner
	reconciler *reconcile.Reconciler
	observer   Observer
	logger     *logger.Logger
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithObserver registers a progress observer
func WithObserver(o Observer) Option {
	return func(p *Pipeline) {
		p.observer = o
	}
}

// New creates a pipeline from a validated configuration
func New(cfg *config.Config, log *logger.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		config:     cfg,
		registry:   registry.NewCleaner(log),
		flights:    flights.NewCleaner(cfg.Flights.InvalidDatePolicy, log),
		reconciler: reconcile.NewReconciler(log),
		observer:   nopObserver{},
		logger:     log.Named("pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes one batch run. The two cleaners run concurrently and share no data;
// reconciliation starts once both have finished.
func (p *Pipeline) Run(ctx context.Context) (*Run, error) {
	run := &Run{ID: uuid.NewString(), StartedAt: time.Now()}
	runLogger := p.logger.With(logger.String("run_id", run.ID))

	runLogger.Info("Pipeline run started",
		logger.String("aircraft_path", p.config.Sources.AircraftPath),
		logger.String("flights_path", p.config.Sources.FlightsPath))
	p.observer.RunStarted(run.ID)

	if err := p.execute(ctx, run); err != nil {
		runLogger.Error("Pipeline run failed", logger.Error(err))
		p.observer.RunFailed(run.ID, err)
		return nil, err
	}

	run.FinishedAt = time.Now()
	runLogger.Info("Pipeline run completed",
		logger.Int("merged_rows", len(run.Merged)),
		logger.Duration("duration", run.FinishedAt.Sub(run.StartedAt)))
	p.observer.RunCompleted(run.Summary())
	return run, nil
}

func (p *Pipeline) execute(ctx context.Context, run *Run) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		table, err := dataset.Open(registry.DatasetName, p.config.Sources.AircraftPath)
		if err != nil {
			return err
		}
		if err := gctx.Err(); err != nil {
			return err
		}
		result, err := p.registry.CleanTable(table)
		if err != nil {
			return fmt.Errorf("registry cleaning failed: %w", err)
		}
		run.Registry = result
		p.observer.StageCompleted(run.ID, StageRegistry, result.Stats)
		return nil
	})

	g.Go(func() error {
		table, err := dataset.Open(flights.DatasetName, p.config.Sources.FlightsPath)
		if err != nil {
			return err
		}
		if err := gctx.Err(); err != nil {
			return err
		}
		result, err := p.flights.CleanTable(table)
		if err != nil {
			return fmt.Errorf("flight cleaning failed: %w", err)
		}
		run.Flights = result
		p.observer.StageCompleted(run.ID, StageFlights, result.Stats)
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	run.Merged, run.Reconcile = p.reconciler.Merge(run.Registry.Records, run.Flights.Records)
	p.observer.StageCompleted(run.ID, StageReconcile, run.Reconcile)

	tails, err := fleet.Resolve(ctx, p.config.Fleet, p.logger)
	if err != nil {
		return fmt.Errorf("fleet lookup failed: %w", err)
	}
	run.Fleet = tails
	p.observer.StageCompleted(run.ID, StageFleet, map[string]int{"tails": len(tails)})
	return nil
}
