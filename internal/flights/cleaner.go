// Package flights cleans the historical flight log and derives block time,
// block variance and delay status.
package flights

import (
	"fmt"
	"time"

	"github.com/yegors/flightrecon/internal/config"
	"github.com/yegors/flightrecon/internal/dataset"
	"github.com/yegors/flightrecon/internal/report"
	"github.com/yegors/flightrecon/pkg/logger"
)

// DateFailure records a row excluded for a malformed departure date
type DateFailure struct {
	Row    int    `json:"row"`
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// Stats counts what the cleaner did
type Stats struct {
	Input                 int `json:"input"`
	MalformedDates        int `json:"malformed_dates"`
	Output                int `json:"output"`
	MissingBlockTime      int `json:"missing_block_time"`
	UnclassifiedDelay     int `json:"unclassified_delay"`
	RemappedCancellations int `json:"remapped_cancellations"`
}

// Result is the cleaned flight log with its diagnostics
type Result struct {
	Records      []FlightRecord       `json:"-"`
	Stats        Stats                `json:"stats"`
	DateFailures []DateFailure        `json:"date_failures,omitempty"`
	Before       report.MissingValues `json:"before"`
	After        report.MissingValues `json:"after"`
}

// Cleaner normalizes raw flight rows
type Cleaner struct {
	datePolicy string
	logger     *logger.Logger
}

// NewCleaner creates a flight cleaner. An empty policy means config.DatePolicyExclude.
func NewCleaner(datePolicy string, log *logger.Logger) *Cleaner {
	if datePolicy == "" {
		datePolicy = config.DatePolicyExclude
	}
	return &Cleaner{
		datePolicy: datePolicy,
		logger:     log.Named("flight-cleaner"),
	}
}

// CleanTable parses, cleans and reports on a flight source table
func (c *Cleaner) CleanTable(table *dataset.Table) (*Result, error) {
	before := report.FromTable(report.Before, table)

	rows, err := ParseTable(table)
	if err != nil {
		return nil, err
	}

	result, err := c.Clean(rows)
	if err != nil {
		return nil, err
	}

	afterTable, err := Table(OutputColumns(table.Columns()), result.Records)
	if err != nil {
		return nil, err
	}
	result.Before = before
	result.After = report.FromTable(report.After, afterTable)
	return result, nil
}

// Clean derives the cleaned records. With the fail policy the first malformed date aborts the run.
func (c *Cleaner) Clean(rows []RawFlight) (*Result, error) {
	result := &Result{
		Records: make([]FlightRecord, 0, len(rows)),
		Stats:   Stats{Input: len(rows)},
	}

	for i, raw := range rows {
		var date time.Time
		err := raw.DateError
		if err == nil {
			date, err = DepartureDate(raw.Year, raw.Month, raw.Day)
		}
		if err != nil {
			if c.datePolicy == config.DatePolicyFail {
				return nil, fmt.Errorf("%s row %d (id %s): %w", DatasetName, i, raw.ID, err)
			}
			result.Stats.MalformedDates++
			result.DateFailures = append(result.DateFailures, DateFailure{Row: i, ID: raw.ID, Reason: err.Error()})
			c.logger.Debug("Excluded flight with malformed date",
				logger.Int("row", i),
				logger.String("id", raw.ID),
				logger.Error(err))
			continue
		}

		record := derive(raw, date)
		if record.BlockTime == nil {
			result.Stats.MissingBlockTime++
		}
		if record.DelayStatus == nil {
			result.Stats.UnclassifiedDelay++
		}
		if raw.CancellationReason != nil && record.CancellationReason != raw.CancellationReason {
			result.Stats.RemappedCancellations++
		}
		result.Records = append(result.Records, record)
	}
	result.Stats.Output = len(result.Records)

	if result.Stats.MalformedDates > 0 {
		c.logger.Warn("Excluded flights with malformed departure dates",
			logger.Int("count", result.Stats.MalformedDates))
	}
	c.logger.Info("Flights cleaned",
		logger.Int("input", result.Stats.Input),
		logger.Int("output", result.Stats.Output),
		logger.Int("missing_block_time", result.Stats.MissingBlockTime),
		logger.Int("unclassified_delay", result.Stats.UnclassifiedDelay))

	return result, nil
}

func derive(raw RawFlight, date time.Time) FlightRecord {
	r := FlightRecord{
		ID:                 raw.ID,
		Year:               *raw.Year,
		Month:              *raw.Month,
		Day:                *raw.Day,
		DepartureDate:      date,
		DayOfWeek:          date.Weekday().String(),
		Airline:            raw.Airline,
		TailNumber:         raw.TailNumber,
		OriginAirport:      raw.OriginAirport,
		DestinationAirport: raw.DestinationAirport,
		DepartureTime:      raw.DepartureTime,
		DepartureDelay:     raw.DepartureDelay,
		TaxiOut:            raw.TaxiOut,
		WheelsOff:          raw.WheelsOff,
		ScheduledTime:      raw.ScheduledTime,
		AirTime:            raw.AirTime,
		Distance:           raw.Distance,
		WheelsOn:           raw.WheelsOn,
		TaxiIn:             raw.TaxiIn,
		ArrivalTime:        raw.ArrivalTime,
		ArrivalDelay:       raw.ArrivalDelay,
		Diverted:           raw.Diverted,
		Cancelled:          raw.Cancelled,
		CancellationReason: RemapCancellationReason(raw.CancellationReason),
		AirSystemDelay:     raw.AirSystemDelay,
		SecurityDelay:      raw.SecurityDelay,
		AirlineDelay:       raw.AirlineDelay,
		LateAircraftDelay:  raw.LateAircraftDelay,
		WeatherDelay:       raw.WeatherDelay,
	}
	r.BlockTime = BlockTime(r.AirTime, r.TaxiOut, r.TaxiIn)
	r.BlockVariance = BlockVariance(r.BlockTime, r.AirTime)
	r.DelayStatus = ClassifyDelay(&r)
	return r
}
