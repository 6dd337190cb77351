// Package reconcile joins cleaned flights to the cleaned aircraft registry.
package reconcile

import (
	"github.com/yegors/flightrecon/internal/flights"
	"github.com/yegors/flightrecon/internal/registry"
	"github.com/yegors/flightrecon/pkg/logger"
)

// MergedRecord is a flight joined to one registry entry sharing its tail number
type MergedRecord struct {
	flights.FlightRecord
	AircraftID     string  `json:"aircraft_id"`
	Manufacturer   string  `json:"manufacturer"`
	AircraftType   string  `json:"aircraft_type"`
	AircraftFamily *string `json:"aircraft_family"`
	Registration   string  `json:"registration"`
}

// Stats describes the join
type Stats struct {
	FlightsIn          int     `json:"flights_in"`
	AircraftIn         int     `json:"aircraft_in"`
	MatchedFlights     int     `json:"matched_flights"`
	UnmatchedFlights   int     `json:"unmatched_flights"`
	RetainedPct        float64 `json:"retained_pct"`
	JoinedRows         int     `json:"joined_rows"`
	DroppedMissingType int     `json:"dropped_missing_type"`
	Rows               int     `json:"rows"`
	UniqueAircraft     int     `json:"unique_aircraft"`
}

// Reconciler inner-joins flights and aircraft
type Reconciler struct {
	logger *logger.Logger
}

// NewReconciler creates a reconciler
func NewReconciler(log *logger.Logger) *Reconciler {
	return &Reconciler{logger: log.Named("reconciler")}
}

// Merge joins FlightRecord.TailNumber to AircraftRecord.Registration by exact string match.
// A registration held by several aircraft yields one row per pair. Rows whose aircraft
// has no type are dropped. An empty result is valid.
func (r *Reconciler) Merge(aircraft []registry.AircraftRecord, records []flights.FlightRecord) ([]MergedRecord, Stats) {
	stats := Stats{FlightsIn: len(records), AircraftIn: len(aircraft)}

	byRegistration := make(map[string][]int, len(aircraft))
	for i, a := range aircraft {
		byRegistration[a.Registration] = append(byRegistration[a.Registration], i)
	}

	merged := make([]MergedRecord, 0)
	tails := make(map[string]struct{})
	for _, f := range records {
		if f.TailNumber == nil {
			stats.UnmatchedFlights++
			continue
		}
		matches := byRegistration[*f.TailNumber]
		if len(matches) == 0 {
			stats.UnmatchedFlights++
			continue
		}
		stats.MatchedFlights++

		for _, idx := range matches {
			a := aircraft[idx]
			stats.JoinedRows++
			if a.AircraftType == nil {
				stats.DroppedMissingType++
				continue
			}
			merged = append(merged, MergedRecord{
				FlightRecord:   f,
				AircraftID:     a.ID,
				Manufacturer:   a.Manufacturer,
				AircraftType:   *a.AircraftType,
				AircraftFamily: a.AircraftFamily,
				Registration:   a.Registration,
			})
			tails[a.Registration] = struct{}{}
		}
	}

	stats.Rows = len(merged)
	stats.UniqueAircraft = len(tails)
	if stats.FlightsIn > 0 {
		stats.RetainedPct = float64(stats.MatchedFlights) / float64(stats.FlightsIn) * 100
	}

	r.logger.Info("Datasets reconciled",
		logger.Int("flights_in", stats.FlightsIn),
		logger.Int("aircraft_in", stats.AircraftIn),
		logger.Int("matched_flights", stats.MatchedFlights),
		logger.Float64("retained_pct", stats.RetainedPct),
		logger.Int("dropped_missing_type", stats.DroppedMissingType),
		logger.Int("rows", stats.Rows),
		logger.Int("unique_aircraft", stats.UniqueAircraft))
	if stats.Rows == 0 {
		r.logger.Warn("Merged dataset is empty")
	}

	return merged, stats
}
