package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yegors/flightrecon/internal/flights"
	"github.com/yegors/flightrecon/internal/registry"
	"github.com/yegors/flightrecon/pkg/logger"
)

func str(s string) *string { return &s }

func aircraft(id, registration string, aircraftType *string) registry.AircraftRecord {
	return registry.AircraftRecord{
		ID:           id,
		Manufacturer: registry.Boeing,
		AircraftType: aircraftType,
		Registration: registration,
	}
}

func flight(id string, tail *string) flights.FlightRecord {
	return flights.FlightRecord{ID: id, TailNumber: tail}
}

func TestMergeInnerJoinCardinality(t *testing.T) {
	fleet := []registry.AircraftRecord{
		aircraft("a1", "N1", str("737-800")),
		aircraft("a2", "N2", str("787-9")),
		aircraft("a3", "N3", str("777-300ER")),
	}
	log := []flights.FlightRecord{
		flight("f1", str("N1")),
		flight("f2", str("N9")),
		flight("f3", str("N2")),
		flight("f4", nil),
		flight("f5", str("N1")),
	}

	merged, stats := NewReconciler(logger.NewNop()).Merge(fleet, log)

	require.Len(t, merged, 3)
	assert.Equal(t, []string{"f1", "f3", "f5"}, []string{merged[0].ID, merged[1].ID, merged[2].ID})
	for _, m := range merged {
		assert.NotEmpty(t, m.AircraftType)
		assert.Equal(t, *m.TailNumber, m.Registration)
	}
	assert.Equal(t, 3, stats.MatchedFlights)
	assert.Equal(t, 2, stats.UnmatchedFlights)
	assert.InDelta(t, 60.0, stats.RetainedPct, 1e-9)
	assert.Equal(t, 2, stats.UniqueAircraft)
}

func TestMergeIsExactMatch(t *testing.T) {
	merged, stats := NewReconciler(logger.NewNop()).Merge(
		[]registry.AircraftRecord{aircraft("a1", "N123AA", str("A321"))},
		[]flights.FlightRecord{flight("f1", str("n123aa")), flight("f2", str(" N123AA"))},
	)
	assert.Empty(t, merged)
	assert.Zero(t, stats.MatchedFlights)
}

func TestMergeDuplicateRegistrationMultipliesRows(t *testing.T) {
	merged, stats := NewReconciler(logger.NewNop()).Merge(
		[]registry.AircraftRecord{
			aircraft("a1", "N1", str("737-800")),
			aircraft("a2", "N1", str("737-900")),
		},
		[]flights.FlightRecord{flight("f1", str("N1"))},
	)

	require.Len(t, merged, 2)
	assert.Equal(t, "a1", merged[0].AircraftID)
	assert.Equal(t, "a2", merged[1].AircraftID)
	assert.Equal(t, 1, stats.MatchedFlights)
	assert.Equal(t, 2, stats.JoinedRows)
	assert.Equal(t, 1, stats.UniqueAircraft)
}

func TestMergeDropsMissingAircraftType(t *testing.T) {
	merged, stats := NewReconciler(logger.NewNop()).Merge(
		[]registry.AircraftRecord{
			aircraft("a1", "N1", nil),
			aircraft("a2", "N2", str("A320")),
		},
		[]flights.FlightRecord{flight("f1", str("N1")), flight("f2", str("N2"))},
	)

	require.Len(t, merged, 1)
	assert.Equal(t, "A320", merged[0].AircraftType)
	assert.Equal(t, 1, stats.DroppedMissingType)
	assert.Equal(t, 1, stats.Rows)
}

func TestMergeEmpty(t *testing.T) {
	merged, stats := NewReconciler(logger.NewNop()).Merge(nil, nil)
	assert.NotNil(t, merged)
	assert.Empty(t, merged)
	assert.Zero(t, stats.RetainedPct)

	merged, stats = NewReconciler(logger.NewNop()).Merge(
		[]registry.AircraftRecord{aircraft("a1", "N1", str("A320"))},
		[]flights.FlightRecord{flight("f1", str("N2"))},
	)
	assert.Empty(t, merged)
	assert.Equal(t, 1, stats.UnmatchedFlights)
}
