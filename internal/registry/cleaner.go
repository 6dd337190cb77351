// Package registry cleans the global aircraft registry down to the canonical
// per-aircraft records of the three manufacturers in scope.
package registry

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/yegors/flightrecon/internal/dataset"
	"github.com/yegors/flightrecon/internal/report"
	"github.com/yegors/flightrecon/pkg/logger"
)

// InferenceRule maps a keyword found in the aircraft type text to a manufacturer
type InferenceRule struct {
	Keyword      string
	Manufacturer string
}

// DefaultInferenceRules are evaluated in order. Matching is case-sensitive containment.
var DefaultInferenceRules = []InferenceRule{
	{Keyword: "ATR", Manufacturer: ATR},
	{Keyword: "Airbus", Manufacturer: Airbus},
	{Keyword: "Boeing", Manufacturer: Boeing},
}

// Stats counts what each cleaning rule did
type Stats struct {
	Input                  int `json:"input"`
	BackfilledFromCompany  int `json:"backfilled_from_company"`
	InferredFromType       int `json:"inferred_from_type"`
	OutOfScope             int `json:"out_of_scope"`
	MissingRegistration    int `json:"missing_registration"`
	Output                 int `json:"output"`
	ExactDuplicates        int `json:"exact_duplicates"`
	DuplicateRegistrations int `json:"duplicate_registrations"`
}

// Result is the cleaned registry with its diagnostics
type Result struct {
	Records []AircraftRecord     `json:"-"`
	Stats   Stats                `json:"stats"`
	Before  report.MissingValues `json:"before"`
	After   report.MissingValues `json:"after"`
}

// Cleaner normalizes raw registry rows
type Cleaner struct {
	rules  []InferenceRule
	scope  map[string]bool
	logger *logger.Logger
}

// NewCleaner creates a registry cleaner using DefaultInferenceRules
func NewCleaner(log *logger.Logger) *Cleaner {
	scope := make(map[string]bool, len(Manufacturers))
	for _, m := range Manufacturers {
		scope[m] = true
	}
	return &Cleaner{
		rules:  DefaultInferenceRules,
		scope:  scope,
		logger: log.Named("registry-cleaner"),
	}
}

// CleanTable parses, cleans and reports on a registry source table
func (c *Cleaner) CleanTable(table *dataset.Table) (*Result, error) {
	before := report.FromTable(report.Before, table)

	rows, err := ParseTable(table)
	if err != nil {
		return nil, err
	}

	records, stats := c.Clean(rows)

	columns := OutputColumns(table.RenameFirst(ColumnID).Columns())
	afterTable, err := Table(columns, records)
	if err != nil {
		return nil, err
	}

	return &Result{
		Records: records,
		Stats:   stats,
		Before:  before,
		After:   report.FromTable(report.After, afterTable),
	}, nil
}

// Clean applies the registry rules in order. Each rule only affects rows left unresolved by earlier rules.
func (c *Cleaner) Clean(rows []RawAircraft) ([]AircraftRecord, Stats) {
	stats := Stats{Input: len(rows)}
	upper := cases.Upper(language.Und)
	records := make([]AircraftRecord, 0, len(rows))

	for _, row := range rows {
		manufacturer := row.Manufacturer

		// Back-fill from company
		if manufacturer == nil && row.Company != nil {
			manufacturer = row.Company
			stats.BackfilledFromCompany++
		}

		// Infer from the aircraft type text
		if manufacturer == nil {
			if inferred, ok := inferManufacturer(row.AircraftType, c.rules); ok {
				manufacturer = &inferred
				stats.InferredFromType++
			}
		}

		// Uppercase and restrict to the manufacturers in scope
		if manufacturer == nil {
			stats.OutOfScope++
			continue
		}
		canonical := upper.String(*manufacturer)
		if !c.scope[canonical] {
			stats.OutOfScope++
			continue
		}

		// A row without registration cannot be linked to any flight
		if row.Registration == nil || *row.Registration == "" {
			stats.MissingRegistration++
			continue
		}

		var id string
		if row.ID != nil {
			id = *row.ID
		}
		records = append(records, AircraftRecord{
			ID:             id,
			Manufacturer:   canonical,
			AircraftType:   row.AircraftType,
			AircraftFamily: row.AircraftFamily,
			Registration:   *row.Registration,
			SerialNumber:   row.SerialNumber,
			Model:          row.Model,
			Extra:          row.Extra,
		})
	}

	stats.Output = len(records)
	stats.ExactDuplicates, stats.DuplicateRegistrations = c.detectDuplicates(records)

	c.logger.Info("Registry cleaned",
		logger.Int("input", stats.Input),
		logger.Int("backfilled_from_company", stats.BackfilledFromCompany),
		logger.Int("inferred_from_type", stats.InferredFromType),
		logger.Int("out_of_scope", stats.OutOfScope),
		logger.Int("missing_registration", stats.MissingRegistration),
		logger.Int("output", stats.Output))
	if stats.MissingRegistration > 0 {
		c.logger.Warn("Dropped aircraft without registration",
			logger.Int("count", stats.MissingRegistration))
	}

	return records, stats
}

// inferManufacturer returns the manufacturer of the first rule whose keyword occurs in the type text.
// Once a rule fills the value later rules never see the row.
func inferManufacturer(aircraftType *string, rules []InferenceRule) (string, bool) {
	if aircraftType == nil {
		return "", false
	}
	for _, rule := range rules {
		if strings.Contains(*aircraftType, rule.Keyword) {
			return rule.Manufacturer, true
		}
	}
	return "", false
}

// detectDuplicates counts exact-duplicate rows and repeated registrations. Nothing is removed.
func (c *Cleaner) detectDuplicates(records []AircraftRecord) (exact, registrations int) {
	seenRows := make(map[string]bool, len(records))
	seenRegs := make(map[string]bool, len(records))
	var samples []string

	for _, r := range records {
		key := r.key()
		if seenRows[key] {
			exact++
		}
		seenRows[key] = true

		if seenRegs[r.Registration] {
			registrations++
			if len(samples) < 10 {
				samples = append(samples, r.Registration)
			}
		}
		seenRegs[r.Registration] = true
	}

	if exact > 0 {
		c.logger.Warn("Exact duplicate aircraft rows detected", logger.Int("count", exact))
	}
	if registrations > 0 {
		c.logger.Warn("Duplicate registrations detected",
			logger.Int("count", registrations),
			logger.Any("sample", samples))
	}
	return exact, registrations
}
