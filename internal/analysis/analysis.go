// Package analysis aggregates the merged dataset for reporting.
package analysis

import (
	"fmt"
	"sort"
	"time"

	"github.com/yegors/flightrecon/internal/flights"
	"github.com/yegors/flightrecon/internal/reconcile"
	"github.com/yegors/flightrecon/internal/registry"
)

// GroupKey selects the dimension block variance is grouped by
type GroupKey string

const (
	ByAircraftType   GroupKey = "aircraft_type"
	ByAircraftFamily GroupKey = "aircraft_family"
	ByAirline        GroupKey = "airline"
	ByOrigin         GroupKey = "origin"
)

// GroupKeys lists the supported grouping dimensions
var GroupKeys = []GroupKey{ByAircraftType, ByAircraftFamily, ByAirline, ByOrigin}

// ParseGroupKey validates a grouping dimension name
func ParseGroupKey(s string) (GroupKey, error) {
	for _, k := range GroupKeys {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown group key %q", s)
}

func (k GroupKey) value(r *reconcile.MergedRecord) *string {
	switch k {
	case ByAircraftType:
		return &r.AircraftType
	case ByAircraftFamily:
		return r.AircraftFamily
	case ByAirline:
		return r.Airline
	case ByOrigin:
		return r.OriginAirport
	}
	return nil
}

// GroupMean is the mean block variance of one group
type GroupMean struct {
	Key     string  `json:"key"`
	Mean    float64 `json:"mean"`
	Flights int     `json:"flights"`
}

// Ranking is ordered from highest to lowest mean
type Ranking []GroupMean

// Top returns the n groups with the highest mean
func (r Ranking) Top(n int) Ranking {
	if n < 0 || n >= len(r) {
		return r
	}
	return r[:n]
}

// Bottom returns the n groups with the lowest mean, lowest first
func (r Ranking) Bottom(n int) Ranking {
	if n < 0 || n > len(r) {
		n = len(r)
	}
	out := make(Ranking, 0, n)
	for i := len(r) - 1; i >= len(r)-n; i-- {
		out = append(out, r[i])
	}
	return out
}

// BlockVarianceBy averages block variance per group. Rows with a null key or variance are skipped.
func BlockVarianceBy(records []reconcile.MergedRecord, key GroupKey) Ranking {
	type acc struct {
		sum float64
		n   int
	}
	groups := make(map[string]*acc)
	for i := range records {
		r := &records[i]
		k := key.value(r)
		if k == nil || r.BlockVariance == nil {
			continue
		}
		a, ok := groups[*k]
		if !ok {
			a = &acc{}
			groups[*k] = a
		}
		a.sum += *r.BlockVariance
		a.n++
	}

	ranking := make(Ranking, 0, len(groups))
	for k, a := range groups {
		ranking = append(ranking, GroupMean{Key: k, Mean: a.sum / float64(a.n), Flights: a.n})
	}
	sort.Slice(ranking, func(i, j int) bool {
		if ranking[i].Mean != ranking[j].Mean {
			return ranking[i].Mean > ranking[j].Mean
		}
		return ranking[i].Key < ranking[j].Key
	})
	return ranking
}

// StatusCount is the number of flights with one delay status
type StatusCount struct {
	Status int    `json:"status"`
	Label  string `json:"label"`
	Count  int    `json:"count"`
}

// DelayStatusCounts returns the count per delay status in code order, plus unclassified flights
func DelayStatusCounts(records []reconcile.MergedRecord) ([]StatusCount, int) {
	counts := make(map[flights.DelayStatus]int)
	unclassified := 0
	for i := range records {
		if s := records[i].DelayStatus; s != nil {
			counts[*s]++
		} else {
			unclassified++
		}
	}

	out := make([]StatusCount, 0, len(flights.DelayStatuses))
	for _, s := range flights.DelayStatuses {
		out = append(out, StatusCount{Status: int(s), Label: s.String(), Count: counts[s]})
	}
	return out, unclassified
}

// ReasonCount is the number of cancellations with one reason code
type ReasonCount struct {
	Code  string `json:"code"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// CancellationReasons counts reason codes among cancelled flights, most frequent first
func CancellationReasons(records []reconcile.MergedRecord) []ReasonCount {
	counts := make(map[string]int)
	for i := range records {
		r := &records[i]
		if r.DelayStatus == nil || *r.DelayStatus != flights.Cancelled {
			continue
		}
		code := "unknown"
		if r.CancellationReason != nil {
			code = *r.CancellationReason
		}
		counts[code]++
	}

	out := make([]ReasonCount, 0, len(counts))
	for code, n := range counts {
		out = append(out, ReasonCount{Code: code, Label: flights.CancellationLabel(code), Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Code < out[j].Code
	})
	return out
}

// MonthDelay summarises arrival delay of delayed flights in one month
type MonthDelay struct {
	Month        int     `json:"month"`
	Flights      int     `json:"flights"`
	TotalDelay   float64 `json:"total_delay"`
	MeanDelay    float64 `json:"mean_delay"`
	AirSystem    float64 `json:"air_system_delay"`
	Security     float64 `json:"security_delay"`
	Airline      float64 `json:"airline_delay"`
	LateAircraft float64 `json:"late_aircraft_delay"`
	Weather      float64 `json:"weather_delay"`
}

// MonthlyDelays aggregates delayed and highly delayed flights per month, in month order
func MonthlyDelays(records []reconcile.MergedRecord) []MonthDelay {
	months := make(map[int]*MonthDelay)
	for i := range records {
		r := &records[i]
		if r.DelayStatus == nil || (*r.DelayStatus != flights.Delayed && *r.DelayStatus != flights.HighlyDelayed) {
			continue
		}
		m, ok := months[r.Month]
		if !ok {
			m = &MonthDelay{Month: r.Month}
			months[r.Month] = m
		}
		m.Flights++
		m.TotalDelay += deref(r.ArrivalDelay)
		m.AirSystem += deref(r.AirSystemDelay)
		m.Security += deref(r.SecurityDelay)
		m.Airline += deref(r.AirlineDelay)
		m.LateAircraft += deref(r.LateAircraftDelay)
		m.Weather += deref(r.WeatherDelay)
	}

	out := make([]MonthDelay, 0, len(months))
	for _, m := range months {
		m.MeanDelay = m.TotalDelay / float64(m.Flights)
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// TailMonth is the summed air time of one aircraft in one month
type TailMonth struct {
	Tail    string  `json:"tail"`
	Month   int     `json:"month"`
	Flights int     `json:"flights"`
	AirTime float64 `json:"air_time"`
}

// MonthlyUtilisation sums air time per tail and month for the given fleet.
// An empty fleet means every tail in the merged set.
func MonthlyUtilisation(records []reconcile.MergedRecord, tails []string) []TailMonth {
	fleet := make(map[string]bool, len(tails))
	for _, t := range tails {
		fleet[t] = true
	}

	type key struct {
		tail  string
		month int
	}
	usage := make(map[key]*TailMonth)
	for i := range records {
		r := &records[i]
		if len(fleet) > 0 && !fleet[r.Registration] {
			continue
		}
		k := key{r.Registration, r.Month}
		u, ok := usage[k]
		if !ok {
			u = &TailMonth{Tail: r.Registration, Month: r.Month}
			usage[k] = u
		}
		u.Flights++
		u.AirTime += deref(r.AirTime)
	}

	out := make([]TailMonth, 0, len(usage))
	for _, u := range usage {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Tail != out[j].Tail {
			return out[i].Tail < out[j].Tail
		}
		return out[i].Month < out[j].Month
	})
	return out
}

// DayCount is the number of flights on one weekday
type DayCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// DayOfWeekCounts counts flights per weekday, Monday first
func DayOfWeekCounts(records []reconcile.MergedRecord) []DayCount {
	counts := make(map[string]int)
	for i := range records {
		counts[records[i].DayOfWeek]++
	}

	days := []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday}
	out := make([]DayCount, 0, len(days))
	for _, d := range days {
		out = append(out, DayCount{Day: d.String(), Count: counts[d.String()]})
	}
	return out
}

// Count is the number of items sharing one key
type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// ManufacturerCounts counts cleaned aircraft per manufacturer, most frequent first
func ManufacturerCounts(aircraft []registry.AircraftRecord) []Count {
	counts := make(map[string]int)
	for i := range aircraft {
		counts[aircraft[i].Manufacturer]++
	}
	return rank(counts)
}

// AircraftFamilyCounts counts cleaned aircraft per family, most frequent first.
// Aircraft without a family are not counted.
func AircraftFamilyCounts(aircraft []registry.AircraftRecord) []Count {
	counts := make(map[string]int)
	for i := range aircraft {
		if f := aircraft[i].AircraftFamily; f != nil {
			counts[*f]++
		}
	}
	return rank(counts)
}

// MonthCount is the number of flights in one month
type MonthCount struct {
	Month   int `json:"month"`
	Flights int `json:"flights"`
}

// MonthCounts counts flights per month in calendar order
func MonthCounts(records []reconcile.MergedRecord) []MonthCount {
	counts := make(map[int]int)
	for i := range records {
		counts[records[i].Month]++
	}

	out := make([]MonthCount, 0, len(counts))
	for m, n := range counts {
		out = append(out, MonthCount{Month: m, Flights: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// DateCount is the number of cancellations on one departure date
type DateCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// CancellationsByDate counts cancelled flights carrying a reason code per departure date,
// in date order. A date whose cancelled flights all lack a reason reports zero.
func CancellationsByDate(records []reconcile.MergedRecord) []DateCount {
	counts := make(map[string]int)
	for i := range records {
		r := &records[i]
		if r.DelayStatus == nil || *r.DelayStatus != flights.Cancelled {
			continue
		}
		date := r.DepartureDate.Format(flights.DateLayout)
		if r.CancellationReason != nil {
			counts[date]++
		} else if _, ok := counts[date]; !ok {
			counts[date] = 0
		}
	}

	out := make([]DateCount, 0, len(counts))
	for d, n := range counts {
		out = append(out, DateCount{Date: d, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// rank orders counts descending, ties by key
func rank(counts map[string]int) []Count {
	out := make([]Count, 0, len(counts))
	for k, n := range counts {
		out = append(out, Count{Key: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
