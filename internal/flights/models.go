package flights

import (
	"fmt"
	"strconv"
	"time"

	"github.com/yegors/flightrecon/internal/dataset"
)

// DatasetName labels the flight log in diagnostics
const DatasetName = "FLIGHTS"

// DateLayout is the layout of DEPARTURE_DATE cells
const DateLayout = "2006-01-02"

// Source and output column names
const (
	ColumnID                 = "ID"
	ColumnYear               = "YEAR"
	ColumnMonth              = "MONTH"
	ColumnDay                = "DAY"
	ColumnDepartureDate      = "DEPARTURE_DATE"
	ColumnDayOfWeek          = "DAY_OF_WEEK"
	ColumnAirline            = "AIRLINE"
	ColumnFlightNumber       = "FLIGHT_NUMBER"
	ColumnTailNumber         = "TAIL_NUMBER"
	ColumnOriginAirport      = "ORIGIN_AIRPORT"
	ColumnDestinationAirport = "DESTINATION_AIRPORT"
	ColumnScheduledDeparture = "SCHEDULED_DEPARTURE"
	ColumnDepartureTime      = "DEPARTURE_TIME"
	ColumnDepartureDelay     = "DEPARTURE_DELAY"
	ColumnTaxiOut            = "TAXI_OUT"
	ColumnWheelsOff          = "WHEELS_OFF"
	ColumnScheduledTime      = "SCHEDULED_TIME"
	ColumnElapsedTime        = "ELAPSED_TIME"
	ColumnAirTime            = "AIR_TIME"
	ColumnDistance           = "DISTANCE"
	ColumnWheelsOn           = "WHEELS_ON"
	ColumnTaxiIn             = "TAXI_IN"
	ColumnScheduledArrival   = "SCHEDULED_ARRIVAL"
	ColumnArrivalTime        = "ARRIVAL_TIME"
	ColumnArrivalDelay       = "ARRIVAL_DELAY"
	ColumnDiverted           = "DIVERTED"
	ColumnCancelled          = "CANCELLED"
	ColumnCancellationReason = "CANCELLATION_REASON"
	ColumnAirSystemDelay     = "AIR_SYSTEM_DELAY"
	ColumnSecurityDelay      = "SECURITY_DELAY"
	ColumnAirlineDelay       = "AIRLINE_DELAY"
	ColumnLateAircraftDelay  = "LATE_AIRCRAFT_DELAY"
	ColumnWeatherDelay       = "WEATHER_DELAY"
	ColumnBlockTime          = "BLOCK_TIME"
	ColumnBlockVariance      = "BLOCK_FLIGHT_VARIANCE"
	ColumnDelayStatus        = "DELAY_STATUS"
)

var requiredColumns = []string{
	ColumnYear, ColumnMonth, ColumnDay, ColumnTailNumber,
	ColumnAirTime, ColumnTaxiOut, ColumnTaxiIn, ColumnArrivalDelay,
	ColumnDiverted, ColumnCancelled, ColumnCancellationReason,
}

// PrunedColumns are source columns superseded by derived fields or not needed downstream
var PrunedColumns = []string{ColumnFlightNumber, ColumnScheduledDeparture, ColumnElapsedTime, ColumnScheduledArrival}

// Columns is the allow list of a cleaned flight table, in output order
var Columns = []string{
	ColumnID,
	ColumnYear,
	ColumnMonth,
	ColumnDay,
	ColumnDepartureDate,
	ColumnDayOfWeek,
	ColumnAirline,
	ColumnTailNumber,
	ColumnOriginAirport,
	ColumnDestinationAirport,
	ColumnDepartureTime,
	ColumnDepartureDelay,
	ColumnTaxiOut,
	ColumnWheelsOff,
	ColumnScheduledTime,
	ColumnAirTime,
	ColumnDistance,
	ColumnWheelsOn,
	ColumnTaxiIn,
	ColumnArrivalTime,
	ColumnArrivalDelay,
	ColumnDiverted,
	ColumnCancelled,
	ColumnCancellationReason,
	ColumnAirSystemDelay,
	ColumnSecurityDelay,
	ColumnAirlineDelay,
	ColumnLateAircraftDelay,
	ColumnWeatherDelay,
	ColumnBlockTime,
	ColumnBlockVariance,
	ColumnDelayStatus,
}

// derivedColumns are produced by the cleaner whatever the source carries
var derivedColumns = map[string]bool{
	ColumnID:            true,
	ColumnDepartureDate: true,
	ColumnDayOfWeek:     true,
	ColumnBlockTime:     true,
	ColumnBlockVariance: true,
	ColumnDelayStatus:   true,
}

var columnIndex = func() map[string]int {
	index := make(map[string]int, len(Columns))
	for i, col := range Columns {
		index[col] = i
	}
	return index
}()

// OutputColumns is the cleaned schema for a source header: the allow-listed
// columns the source actually has, plus the derived columns
func OutputColumns(source []string) []string {
	present := make(map[string]bool, len(source))
	for _, col := range source {
		present[col] = true
	}
	columns := make([]string, 0, len(Columns))
	for _, col := range Columns {
		if derivedColumns[col] || present[col] {
			columns = append(columns, col)
		}
	}
	return columns
}

// RawFlight is one flight-log row with its cells parsed but nothing derived.
// Clock times (hhmm) stay text so leading zeros survive.
type RawFlight struct {
	ID                 string
	Year               *int
	Month              *int
	Day                *int
	Airline            *string
	TailNumber         *string
	OriginAirport      *string
	DestinationAirport *string
	DepartureTime      *string
	DepartureDelay     *float64
	TaxiOut            *float64
	WheelsOff          *string
	ScheduledTime      *float64
	AirTime            *float64
	Distance           *float64
	WheelsOn           *string
	TaxiIn             *float64
	ArrivalTime        *string
	ArrivalDelay       *float64
	Diverted           bool
	Cancelled          bool
	CancellationReason *string
	AirSystemDelay     *float64
	SecurityDelay      *float64
	AirlineDelay       *float64
	LateAircraftDelay  *float64
	WeatherDelay       *float64

	// DateError is set when YEAR, MONTH or DAY holds a non-numeric value.
	// It wraps ErrMalformedDate so the configured date policy applies.
	DateError error
}

// FlightRecord is a cleaned flight with its derived fields
type FlightRecord struct {
	ID                 string       `json:"id"`
	Year               int          `json:"year"`
	Month              int          `json:"month"`
	Day                int          `json:"day"`
	DepartureDate      time.Time    `json:"departure_date"`
	DayOfWeek          string       `json:"day_of_week"`
	Airline            *string      `json:"airline"`
	TailNumber         *string      `json:"tail_number"`
	OriginAirport      *string      `json:"origin_airport"`
	DestinationAirport *string      `json:"destination_airport"`
	DepartureTime      *string      `json:"departure_time"`
	DepartureDelay     *float64     `json:"departure_delay"`
	TaxiOut            *float64     `json:"taxi_out"`
	WheelsOff          *string      `json:"wheels_off"`
	ScheduledTime      *float64     `json:"scheduled_time"`
	AirTime            *float64     `json:"air_time"`
	Distance           *float64     `json:"distance"`
	WheelsOn           *string      `json:"wheels_on"`
	TaxiIn             *float64     `json:"taxi_in"`
	ArrivalTime        *string      `json:"arrival_time"`
	ArrivalDelay       *float64     `json:"arrival_delay"`
	Diverted           bool         `json:"diverted"`
	Cancelled          bool         `json:"cancelled"`
	CancellationReason *string      `json:"cancellation_reason"`
	AirSystemDelay     *float64     `json:"air_system_delay"`
	SecurityDelay      *float64     `json:"security_delay"`
	AirlineDelay       *float64     `json:"airline_delay"`
	LateAircraftDelay  *float64     `json:"late_aircraft_delay"`
	WeatherDelay       *float64     `json:"weather_delay"`
	BlockTime          *float64     `json:"block_time"`
	BlockVariance      *float64     `json:"block_variance"`
	DelayStatus        *DelayStatus `json:"delay_status"`
}

// Values returns the record's cells in Columns order
func (r FlightRecord) Values() []*string {
	return []*string{
		text(r.ID),
		text(strconv.Itoa(r.Year)),
		text(strconv.Itoa(r.Month)),
		text(strconv.Itoa(r.Day)),
		text(r.DepartureDate.Format(DateLayout)),
		text(r.DayOfWeek),
		r.Airline,
		r.TailNumber,
		r.OriginAirport,
		r.DestinationAirport,
		r.DepartureTime,
		number(r.DepartureDelay),
		number(r.TaxiOut),
		r.WheelsOff,
		number(r.ScheduledTime),
		number(r.AirTime),
		number(r.Distance),
		r.WheelsOn,
		number(r.TaxiIn),
		r.ArrivalTime,
		number(r.ArrivalDelay),
		flag(r.Diverted),
		flag(r.Cancelled),
		r.CancellationReason,
		number(r.AirSystemDelay),
		number(r.SecurityDelay),
		number(r.AirlineDelay),
		number(r.LateAircraftDelay),
		number(r.WeatherDelay),
		number(r.BlockTime),
		number(r.BlockVariance),
		statusCell(r.DelayStatus),
	}
}

// idFromPosition reports whether the source lacks a positional identifier column,
// in which case the first column is data and the row index becomes the ID.
func idFromPosition(first string) bool {
	for _, col := range Columns {
		if col == first && col != ColumnID {
			return true
		}
	}
	for _, col := range PrunedColumns {
		if col == first {
			return true
		}
	}
	return false
}

// ParseTable reads flight rows from a source table. Cells are parsed by type;
// a non-numeric value in a numeric column aborts with its row and column.
// Unparseable date parts are left to the date policy through RawFlight.DateError.
func ParseTable(table *dataset.Table) ([]RawFlight, error) {
	if err := table.Require(requiredColumns...); err != nil {
		return nil, err
	}

	var idColumn string
	if cols := table.Columns(); len(cols) > 0 && !idFromPosition(cols[0]) {
		idColumn = cols[0]
	}

	rows := make([]RawFlight, table.Len())
	for i := range rows {
		p := rowParser{table: table, row: i}
		raw := RawFlight{
			Year:               p.datePart(ColumnYear),
			Month:              p.datePart(ColumnMonth),
			Day:                p.datePart(ColumnDay),
			Airline:            table.Value(i, ColumnAirline),
			TailNumber:         table.Value(i, ColumnTailNumber),
			OriginAirport:      table.Value(i, ColumnOriginAirport),
			DestinationAirport: table.Value(i, ColumnDestinationAirport),
			DepartureTime:      table.Value(i, ColumnDepartureTime),
			DepartureDelay:     p.float(ColumnDepartureDelay),
			TaxiOut:            p.float(ColumnTaxiOut),
			WheelsOff:          table.Value(i, ColumnWheelsOff),
			ScheduledTime:      p.float(ColumnScheduledTime),
			AirTime:            p.float(ColumnAirTime),
			Distance:           p.float(ColumnDistance),
			WheelsOn:           table.Value(i, ColumnWheelsOn),
			TaxiIn:             p.float(ColumnTaxiIn),
			ArrivalTime:        table.Value(i, ColumnArrivalTime),
			ArrivalDelay:       p.float(ColumnArrivalDelay),
			Diverted:           p.flag(ColumnDiverted),
			Cancelled:          p.flag(ColumnCancelled),
			CancellationReason: table.Value(i, ColumnCancellationReason),
			AirSystemDelay:     p.float(ColumnAirSystemDelay),
			SecurityDelay:      p.float(ColumnSecurityDelay),
			AirlineDelay:       p.float(ColumnAirlineDelay),
			LateAircraftDelay:  p.float(ColumnLateAircraftDelay),
			WeatherDelay:       p.float(ColumnWeatherDelay),
		}
		if p.err != nil {
			return nil, p.err
		}
		raw.DateError = p.dateErr

		if idColumn == "" {
			raw.ID = strconv.Itoa(i)
		} else if v := table.Value(i, idColumn); v != nil {
			raw.ID = *v
		}
		rows[i] = raw
	}
	return rows, nil
}

// Table converts cleaned records into a table with the given columns, a subset of Columns
func Table(columns []string, records []FlightRecord) (*dataset.Table, error) {
	for _, col := range columns {
		if _, ok := columnIndex[col]; !ok {
			return nil, fmt.Errorf("%s column %s is not an output column", DatasetName, col)
		}
	}

	rows := make([][]*string, len(records))
	for i, r := range records {
		values := r.Values()
		row := make([]*string, len(columns))
		for j, col := range columns {
			row[j] = values[columnIndex[col]]
		}
		rows[i] = row
	}
	return dataset.FromRecords(DatasetName, columns, rows)
}

// rowParser keeps the first parse error of a row
type rowParser struct {
	table   *dataset.Table
	row     int
	err     error
	dateErr error // first unparseable date part
}

func (p *rowParser) float(col string) *float64 {
	if p.err != nil {
		return nil
	}
	v, err := p.table.Float(p.row, col)
	p.err = err
	return v
}

func (p *rowParser) datePart(col string) *int {
	v, err := p.table.Int(p.row, col)
	if err != nil {
		if p.dateErr == nil {
			p.dateErr = fmt.Errorf("%w: %v", ErrMalformedDate, err)
		}
		return nil
	}
	return v
}

func (p *rowParser) flag(col string) bool {
	if p.err != nil {
		return false
	}
	v, err := p.table.Flag(p.row, col)
	p.err = err
	return v
}

func text(s string) *string {
	return &s
}

func number(f *float64) *string {
	if f == nil {
		return nil
	}
	return text(strconv.FormatFloat(*f, 'f', -1, 64))
}

func flag(b bool) *string {
	if b {
		return text("1")
	}
	return text("0")
}

func statusCell(s *DelayStatus) *string {
	if s == nil {
		return nil
	}
	return text(strconv.Itoa(int(*s)))
}
