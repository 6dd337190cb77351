package flights

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yegors/flightrecon/internal/config"
	"github.com/yegors/flightrecon/internal/dataset"
	"github.com/yegors/flightrecon/internal/report"
	"github.com/yegors/flightrecon/pkg/logger"
)

const flightsHeader = "YEAR,MONTH,DAY,DAY_OF_WEEK,AIRLINE,FLIGHT_NUMBER,TAIL_NUMBER,ORIGIN_AIRPORT,DESTINATION_AIRPORT," +
	"SCHEDULED_DEPARTURE,DEPARTURE_TIME,DEPARTURE_DELAY,TAXI_OUT,WHEELS_OFF,SCHEDULED_TIME,ELAPSED_TIME,AIR_TIME," +
	"DISTANCE,WHEELS_ON,TAXI_IN,SCHEDULED_ARRIVAL,ARRIVAL_TIME,ARRIVAL_DELAY,DIVERTED,CANCELLED,CANCELLATION_REASON," +
	"AIR_SYSTEM_DELAY,SECURITY_DELAY,AIRLINE_DELAY,LATE_AIRCRAFT_DELAY,WEATHER_DELAY"

func flightsCSV(rows ...string) string {
	return flightsHeader + "\n" + strings.Join(rows, "\n") + "\n"
}

func sampleFlights(t *testing.T) *dataset.Table {
	t.Helper()
	table, err := dataset.ReadCSV(DatasetName, strings.NewReader(flightsCSV(
		"2015,1,1,4,AS,98,N407AS,ANC,SEA,0005,2354,-11,21,0015,205,194,169,1448,0404,4,0430,0408,-22,0,0,,,,,,",
		"2015,1,1,4,AA,2336,N3KUAA,LAX,PBI,0010,0002,-8,12,0014,280,279,263,2330,0737,4,0750,0741,70,0,0,,20,0,50,0,0",
		"2015,2,30,1,US,840,N171US,SFO,CLT,0020,0018,-2,16,0034,286,293,266,2296,0800,11,0806,0811,5,1,0,,,,,,",
		"2015,1,2,5,AA,258,N3HYAA,LAX,MIA,0020,,,,,285,,,2342,,,0805,,,0,1,B,,,,,",
	)))
	require.NoError(t, err)
	return table
}

func TestCleanTableExcludesMalformedDates(t *testing.T) {
	result, err := NewCleaner(config.DatePolicyExclude, logger.NewNop()).CleanTable(sampleFlights(t))
	require.NoError(t, err)

	assert.Equal(t, 4, result.Stats.Input)
	assert.Equal(t, 1, result.Stats.MalformedDates)
	assert.Equal(t, 3, result.Stats.Output)
	require.Len(t, result.DateFailures, 1)
	assert.Equal(t, 2, result.DateFailures[0].Row)
	assert.Equal(t, "2", result.DateFailures[0].ID)

	require.Len(t, result.Records, 3)
	first := result.Records[0]
	assert.Equal(t, "0", first.ID, "positional id when the first column is data")
	assert.Equal(t, "Thursday", first.DayOfWeek)
	assert.Equal(t, "2015-01-01", first.DepartureDate.Format(DateLayout))
	assert.Equal(t, "0015", *first.WheelsOff, "clock times keep leading zeros")
	require.NotNil(t, first.BlockTime)
	assert.Equal(t, 169.0+21+4, *first.BlockTime)
	assert.Equal(t, 25.0, *first.BlockVariance)
	assert.Equal(t, OnTime, *first.DelayStatus)

	assert.Equal(t, HighlyDelayed, *result.Records[1].DelayStatus)

	cancelled := result.Records[2]
	assert.Equal(t, Cancelled, *cancelled.DelayStatus)
	assert.Equal(t, "1", *cancelled.CancellationReason)
	assert.Nil(t, cancelled.BlockTime)
	assert.Equal(t, 1, result.Stats.MissingBlockTime)
	assert.Equal(t, 1, result.Stats.RemappedCancellations)
}

func TestCleanTableFailPolicy(t *testing.T) {
	_, err := NewCleaner(config.DatePolicyFail, logger.NewNop()).CleanTable(sampleFlights(t))
	require.ErrorIs(t, err, ErrMalformedDate)
	assert.Contains(t, err.Error(), "row 2")
}

func TestCleanTableReports(t *testing.T) {
	result, err := NewCleaner("", logger.NewNop()).CleanTable(sampleFlights(t))
	require.NoError(t, err)

	assert.Equal(t, report.Before, result.Before.Stage)
	assert.Equal(t, DatasetName, result.Before.Dataset)
	assert.Equal(t, 4, result.Before.Rows)
	_, ok := result.Before.Fraction(ColumnFlightNumber)
	assert.True(t, ok)

	assert.Equal(t, report.After, result.After.Stage)
	assert.Equal(t, 3, result.After.Rows)
	for _, col := range PrunedColumns {
		_, ok := result.After.Fraction(col)
		assert.False(t, ok, "%s is pruned", col)
	}
	frac, ok := result.After.Fraction(ColumnBlockTime)
	require.True(t, ok)
	assert.InDelta(t, 1.0/3, frac, 1e-9)
	frac, ok = result.After.Fraction(ColumnDepartureDate)
	require.True(t, ok)
	assert.Zero(t, frac)
}

func TestBlockTimeLaw(t *testing.T) {
	result, err := NewCleaner("", logger.NewNop()).CleanTable(sampleFlights(t))
	require.NoError(t, err)

	for _, r := range result.Records {
		if r.AirTime == nil || r.TaxiOut == nil || r.TaxiIn == nil {
			assert.Nil(t, r.BlockTime)
			continue
		}
		require.NotNil(t, r.BlockTime)
		assert.Equal(t, *r.AirTime+*r.TaxiOut+*r.TaxiIn, *r.BlockTime)
		assert.Equal(t, *r.BlockTime-*r.AirTime, *r.BlockVariance)
	}
}

func TestParseTableUsesIDColumn(t *testing.T) {
	csv := "ID," + flightsHeader + "\n" +
		"f-1,2015,3,8,7,DL,1,N1,ATL,JFK,0600,0600,0,10,0610,120,118,100,760,0750,8,0800,0758,-2,0,0,,,,,,\n"
	table, err := dataset.ReadCSV(DatasetName, strings.NewReader(csv))
	require.NoError(t, err)

	rows, err := ParseTable(table)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "f-1", rows[0].ID)
}

func TestParseTableErrors(t *testing.T) {
	table, err := dataset.ReadCSV(DatasetName, strings.NewReader("YEAR,MONTH,DAY\n2015,1,1\n"))
	require.NoError(t, err)
	_, err = ParseTable(table)
	require.ErrorIs(t, err, dataset.ErrMissingColumn)

	table, err = dataset.ReadCSV(DatasetName, strings.NewReader(flightsCSV(
		"2015,1,1,4,AS,98,N407AS,ANC,SEA,0005,2354,-11,21,0015,205,194,fast,1448,0404,4,0430,0408,-22,0,0,,,,,,",
	)))
	require.NoError(t, err)
	_, err = ParseTable(table)
	require.ErrorIs(t, err, dataset.ErrInvalidValue)
	assert.Contains(t, err.Error(), ColumnAirTime)
}

const minimalHeader = "YEAR,MONTH,DAY,TAIL_NUMBER,AIR_TIME,TAXI_OUT,TAXI_IN,ARRIVAL_DELAY,DIVERTED,CANCELLED,CANCELLATION_REASON"

func minimalFlights(t *testing.T, rows ...string) *dataset.Table {
	t.Helper()
	csv := minimalHeader + "\n" + strings.Join(rows, "\n") + "\n"
	table, err := dataset.ReadCSV(DatasetName, strings.NewReader(csv))
	require.NoError(t, err)
	return table
}

func TestCleanTableAfterFollowsSourceColumns(t *testing.T) {
	result, err := NewCleaner("", logger.NewNop()).CleanTable(minimalFlights(t,
		"2015,1,1,N1,100,10,5,20,0,0,",
		"2015,1,2,N2,,10,5,,0,1,A",
	))
	require.NoError(t, err)

	want := []string{
		ColumnID, ColumnYear, ColumnMonth, ColumnDay, ColumnDepartureDate, ColumnDayOfWeek,
		ColumnTailNumber, ColumnTaxiOut, ColumnAirTime, ColumnTaxiIn, ColumnArrivalDelay,
		ColumnDiverted, ColumnCancelled, ColumnCancellationReason,
		ColumnBlockTime, ColumnBlockVariance, ColumnDelayStatus,
	}
	assert.Len(t, result.After.Columns, len(want))
	for _, col := range want {
		_, ok := result.After.Fraction(col)
		assert.True(t, ok, "%s is in the cleaned table", col)
	}
	for _, col := range []string{ColumnAirline, ColumnOriginAirport, ColumnDistance, ColumnWheelsOn} {
		_, ok := result.After.Fraction(col)
		assert.False(t, ok, "%s is absent from the source", col)
	}
	frac, ok := result.After.Fraction(ColumnBlockTime)
	require.True(t, ok)
	assert.InDelta(t, 0.5, frac, 1e-9)
}

func TestOutputColumnsKeepsAllowListOrder(t *testing.T) {
	got := OutputColumns([]string{ColumnTailNumber, "GATE", ColumnYear, ColumnFlightNumber})
	assert.Equal(t, []string{
		ColumnID, ColumnYear, ColumnDepartureDate, ColumnDayOfWeek, ColumnTailNumber,
		ColumnBlockTime, ColumnBlockVariance, ColumnDelayStatus,
	}, got)

	_, err := Table([]string{ColumnFlightNumber}, nil)
	assert.Error(t, err)
}

func TestNonNumericDatePartFollowsPolicy(t *testing.T) {
	table := minimalFlights(t,
		"2015,1,1,N1,100,10,5,20,0,0,",
		"2015,Feb,3,N2,100,10,5,20,0,0,",
	)

	result, err := NewCleaner(config.DatePolicyExclude, logger.NewNop()).CleanTable(table)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Stats.MalformedDates)
	require.Len(t, result.DateFailures, 1)
	assert.Equal(t, 1, result.DateFailures[0].Row)
	assert.Contains(t, result.DateFailures[0].Reason, ColumnMonth)
	assert.Len(t, result.Records, 1)

	_, err = NewCleaner(config.DatePolicyFail, logger.NewNop()).CleanTable(table)
	require.ErrorIs(t, err, ErrMalformedDate)
	assert.Contains(t, err.Error(), "row 1")
}
