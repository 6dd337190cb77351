package registry

import (
	"sort"
	"strings"

	"github.com/yegors/flightrecon/internal/dataset"
)

// DatasetName labels the registry in diagnostics
const DatasetName = "AIRCRAFT"

// Source column names
const (
	ColumnID             = "ID"
	ColumnManufacturer   = "Manufacturer"
	ColumnCompany        = "Company"
	ColumnAircraftType   = "Aircraft_type"
	ColumnAircraftFamily = "Aircraft_family"
	ColumnRegistration   = "Registration"
	ColumnSerialNumber   = "Serial_number"
	ColumnModel          = "Model"
	ColumnLineNumber     = "Line_number"
	ColumnClassification = "Classification"
	ColumnEmitter        = "Emitter"
)

// Canonical manufacturers kept by the cleaner
const (
	Airbus = "AIRBUS"
	Boeing = "BOEING"
	ATR    = "ATR"
)

// Manufacturers is the scope of the cleaned registry
var Manufacturers = []string{Airbus, Boeing, ATR}

// requiredColumns must be present in every registry source
var requiredColumns = []string{ColumnManufacturer, ColumnCompany, ColumnAircraftType, ColumnRegistration}

// DroppedColumns are removed from the cleaned registry as operationally irrelevant
var DroppedColumns = []string{ColumnLineNumber, ColumnClassification, ColumnEmitter, ColumnCompany}

// RecordColumns are the typed fields of a cleaned AircraftRecord
var RecordColumns = []string{
	ColumnID,
	ColumnManufacturer,
	ColumnAircraftType,
	ColumnAircraftFamily,
	ColumnRegistration,
	ColumnSerialNumber,
	ColumnModel,
}

var recordIndex = indexOf(RecordColumns)

// knownColumns are the source columns the cleaner reads into typed fields
var knownColumns = indexOf(append(append([]string{}, RecordColumns...),
	ColumnCompany, ColumnLineNumber, ColumnClassification, ColumnEmitter))

// OutputColumns is the cleaned schema for a source header (first column already named ID):
// every source column in source order except DroppedColumns
func OutputColumns(source []string) []string {
	dropped := indexOf(DroppedColumns)
	columns := make([]string, 0, len(source))
	for _, col := range source {
		if _, ok := dropped[col]; !ok {
			columns = append(columns, col)
		}
	}
	return columns
}

// RawAircraft is one registry row as read from the source
type RawAircraft struct {
	ID             *string
	Manufacturer   *string
	Company        *string
	AircraftType   *string
	AircraftFamily *string
	Registration   *string
	SerialNumber   *string
	Model          *string
	LineNumber     *string
	Classification *string
	Emitter        *string
	Extra          map[string]*string // Source columns without a typed field, passed through
}

// AircraftRecord is a cleaned registry entry.
// Manufacturer is always one of Manufacturers and Registration is never empty.
type AircraftRecord struct {
	ID             string  `json:"id"`
	Manufacturer   string  `json:"manufacturer"`
	AircraftType   *string `json:"aircraft_type"`
	AircraftFamily *string `json:"aircraft_family"`
	Registration   string  `json:"registration"`
	SerialNumber   *string `json:"serial_number,omitempty"`
	Model          *string `json:"model,omitempty"`

	Extra map[string]*string `json:"extra,omitempty"`
}

// Values returns the record's typed cells in RecordColumns order
func (r AircraftRecord) Values() []*string {
	id, manufacturer, registration := r.ID, r.Manufacturer, r.Registration
	return []*string{&id, &manufacturer, r.AircraftType, r.AircraftFamily, &registration, r.SerialNumber, r.Model}
}

// cells returns the record's cells for the given columns
func (r AircraftRecord) cells(columns []string) []*string {
	values := r.Values()
	out := make([]*string, len(columns))
	for i, col := range columns {
		if j, ok := recordIndex[col]; ok {
			out[i] = values[j]
		} else {
			out[i] = r.Extra[col]
		}
	}
	return out
}

// Raw re-expresses a cleaned record as a source row
func (r AircraftRecord) Raw() RawAircraft {
	id, manufacturer, registration := r.ID, r.Manufacturer, r.Registration
	return RawAircraft{
		ID:             &id,
		Manufacturer:   &manufacturer,
		AircraftType:   r.AircraftType,
		AircraftFamily: r.AircraftFamily,
		Registration:   &registration,
		SerialNumber:   r.SerialNumber,
		Model:          r.Model,
		Extra:          r.Extra,
	}
}

// key identifies a record for exact-duplicate detection
func (r AircraftRecord) key() string {
	var b strings.Builder
	for _, v := range r.Values() {
		if v == nil {
			b.WriteString("\x00null")
		} else {
			b.WriteString("\x00=")
			b.WriteString(*v)
		}
	}

	extra := make([]string, 0, len(r.Extra))
	for col := range r.Extra {
		extra = append(extra, col)
	}
	sort.Strings(extra)
	for _, col := range extra {
		b.WriteString("\x00" + col)
		if v := r.Extra[col]; v == nil {
			b.WriteString("\x00null")
		} else {
			b.WriteString("\x00=")
			b.WriteString(*v)
		}
	}
	return b.String()
}

// ParseTable reads registry rows from a source table, naming its first column ID
func ParseTable(table *dataset.Table) ([]RawAircraft, error) {
	table = table.RenameFirst(ColumnID)
	if err := table.Require(requiredColumns...); err != nil {
		return nil, err
	}

	var extra []string
	for _, col := range table.Columns() {
		if _, ok := knownColumns[col]; !ok {
			extra = append(extra, col)
		}
	}

	rows := make([]RawAircraft, table.Len())
	for i := range rows {
		rows[i] = RawAircraft{
			ID:             table.Value(i, ColumnID),
			Manufacturer:   table.Value(i, ColumnManufacturer),
			Company:        table.Value(i, ColumnCompany),
			AircraftType:   table.Value(i, ColumnAircraftType),
			AircraftFamily: table.Value(i, ColumnAircraftFamily),
			Registration:   table.Value(i, ColumnRegistration),
			SerialNumber:   table.Value(i, ColumnSerialNumber),
			Model:          table.Value(i, ColumnModel),
			LineNumber:     table.Value(i, ColumnLineNumber),
			Classification: table.Value(i, ColumnClassification),
			Emitter:        table.Value(i, ColumnEmitter),
		}
		if len(extra) > 0 {
			rows[i].Extra = make(map[string]*string, len(extra))
			for _, col := range extra {
				rows[i].Extra[col] = table.Value(i, col)
			}
		}
	}
	return rows, nil
}

// Table converts cleaned records back into a table with the given columns
func Table(columns []string, records []AircraftRecord) (*dataset.Table, error) {
	rows := make([][]*string, len(records))
	for i, r := range records {
		rows[i] = r.cells(columns)
	}
	return dataset.FromRecords(DatasetName, columns, rows)
}

func indexOf(columns []string) map[string]int {
	index := make(map[string]int, len(columns))
	for i, col := range columns {
		index[col] = i
	}
	return index
}
