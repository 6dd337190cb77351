package flights

import (
	"errors"
	"fmt"
	"time"
)

// ErrMalformedDate is returned when YEAR/MONTH/DAY do not form a calendar date
var ErrMalformedDate = errors.New("malformed departure date")

// DelayStatus classifies the outcome of a flight
type DelayStatus int

const (
	OnTime DelayStatus = iota
	Delayed
	HighlyDelayed
	Diverted
	Cancelled
)

// DelayStatuses lists every status in code order
var DelayStatuses = []DelayStatus{OnTime, Delayed, HighlyDelayed, Diverted, Cancelled}

func (s DelayStatus) String() string {
	switch s {
	case OnTime:
		return "on-time"
	case Delayed:
		return "delayed"
	case HighlyDelayed:
		return "highly delayed"
	case Diverted:
		return "diverted"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Delay thresholds in minutes of arrival delay
const (
	OnTimeThreshold        = 15.0
	HighlyDelayedThreshold = 60.0
)

// statusRule assigns a status when its predicate holds
type statusRule struct {
	status  DelayStatus
	applies func(r *FlightRecord) bool
}

// delayRules are evaluated in order and the last matching rule wins.
// An arrival delay of exactly 15 matches the first two rules and ends as Delayed.
var delayRules = []statusRule{
	{OnTime, func(r *FlightRecord) bool { return r.ArrivalDelay != nil && *r.ArrivalDelay <= OnTimeThreshold }},
	{Delayed, func(r *FlightRecord) bool { return r.ArrivalDelay != nil && *r.ArrivalDelay >= OnTimeThreshold }},
	{HighlyDelayed, func(r *FlightRecord) bool { return r.ArrivalDelay != nil && *r.ArrivalDelay >= HighlyDelayedThreshold }},
	{Diverted, func(r *FlightRecord) bool { return r.Diverted }},
	{Cancelled, func(r *FlightRecord) bool { return r.Cancelled }},
}

// ClassifyDelay returns the delay status of a flight, or nil when no rule matches
func ClassifyDelay(r *FlightRecord) *DelayStatus {
	var status *DelayStatus
	for _, rule := range delayRules {
		if rule.applies(r) {
			s := rule.status
			status = &s
		}
	}
	return status
}

// cancellationCodes maps BTS letter codes to numeric codes
var cancellationCodes = map[string]string{
	"A": "0",
	"B": "1",
	"C": "2",
	"D": "3",
}

var cancellationLabels = map[string]string{
	"0": "carrier",
	"1": "weather",
	"2": "national air system",
	"3": "security",
}

// RemapCancellationReason converts A-D to 0-3. Any other value, including nil, is returned unchanged.
func RemapCancellationReason(reason *string) *string {
	if reason == nil {
		return nil
	}
	if code, ok := cancellationCodes[*reason]; ok {
		return &code
	}
	return reason
}

// CancellationLabel returns the meaning of a remapped cancellation code
func CancellationLabel(code string) string {
	if label, ok := cancellationLabels[code]; ok {
		return label
	}
	return code
}

// DepartureDate builds the calendar date from YEAR*10000 + MONTH*100 + DAY read as YYYYMMDD.
// Month and day are range checked first so that no carry between fields can produce a valid-looking value.
func DepartureDate(year, month, day *int) (time.Time, error) {
	if year == nil || month == nil || day == nil {
		return time.Time{}, fmt.Errorf("%w: year, month and day are required", ErrMalformedDate)
	}
	y, m, d := *year, *month, *day
	if y < 1 || y > 9999 {
		return time.Time{}, fmt.Errorf("%w: year %d out of range", ErrMalformedDate, y)
	}
	if m < 1 || m > 12 {
		return time.Time{}, fmt.Errorf("%w: month %d out of range", ErrMalformedDate, m)
	}
	if d < 1 || d > 31 {
		return time.Time{}, fmt.Errorf("%w: day %d out of range", ErrMalformedDate, d)
	}

	composed := y*10000 + m*100 + d
	date, err := time.Parse("20060102", fmt.Sprintf("%08d", composed))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %08d is not a calendar date", ErrMalformedDate, composed)
	}
	return date, nil
}

// BlockTime is air time plus taxi-out and taxi-in, nil if any part is nil
func BlockTime(airTime, taxiOut, taxiIn *float64) *float64 {
	if airTime == nil || taxiOut == nil || taxiIn == nil {
		return nil
	}
	v := *airTime + *taxiOut + *taxiIn
	return &v
}

// BlockVariance is block time minus air time
func BlockVariance(blockTime, airTime *float64) *float64 {
	if blockTime == nil || airTime == nil {
		return nil
	}
	v := *blockTime - *airTime
	return &v
}
