package pipeline

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/yegors/flightrecon/internal/config"
	"github.com/yegors/flightrecon/internal/report"
)

// WriteReports prints the missing-value tables to w when enabled and saves the
// PDF charts when a directory is configured. It returns the PDF paths written.
func WriteReports(run *Run, cfg config.ReportConfig, w io.Writer) ([]string, error) {
	if cfg.Console {
		for _, m := range run.Reports() {
			if err := report.WriteTable(w, m); err != nil {
				return nil, fmt.Errorf("failed to print %s report: %w", m.Dataset, err)
			}
			fmt.Fprintln(w)
		}
	}

	if cfg.PDFDir == "" {
		return nil, nil
	}
	return report.SavePDF(cfg.PDFDir, run.Reports()...)
}

// WriteSummary prints the run statistics as a two-column table
func WriteSummary(w io.Writer, s Summary) error {
	if _, err := fmt.Fprintf(w, "Run %s (%d ms)\n", s.RunID, s.DurationMS); err != nil {
		return err
	}

	tableConfig := tablewriter.Config{}
	tableConfig.Row.Alignment = tw.CellAlignment{PerColumn: []tw.Align{tw.AlignLeft, tw.AlignRight}}
	table := tablewriter.NewTable(w, tablewriter.WithConfig(tableConfig))
	table.Header("Metric", "Value")

	rows := [][]any{
		{"aircraft in", s.Registry.Input},
		{"aircraft backfilled from company", s.Registry.BackfilledFromCompany},
		{"aircraft inferred from type", s.Registry.InferredFromType},
		{"aircraft out of scope", s.Registry.OutOfScope},
		{"aircraft without registration", s.Registry.MissingRegistration},
		{"aircraft out", s.Registry.Output},
		{"exact duplicate aircraft", s.Registry.ExactDuplicates},
		{"duplicate registrations", s.Registry.DuplicateRegistrations},
		{"flights in", s.Flights.Input},
		{"malformed dates", s.Flights.MalformedDates},
		{"flights out", s.Flights.Output},
		{"flights matched", s.Reconcile.MatchedFlights},
		{"retained", fmt.Sprintf("%.2f%%", s.Reconcile.RetainedPct)},
		{"dropped missing aircraft type", s.Reconcile.DroppedMissingType},
		{"merged rows", s.Reconcile.Rows},
		{"unique aircraft", s.Reconcile.UniqueAircraft},
		{"fleet size", s.FleetSize},
	}
	for _, row := range rows {
		if err := table.Append(row...); err != nil {
			return err
		}
	}
	return table.Render()
}
