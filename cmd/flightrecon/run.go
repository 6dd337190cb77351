package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yegors/flightrecon/internal/pipeline"
	"github.com/yegors/flightrecon/internal/refdata"
	"github.com/yegors/flightrecon/pkg/logger"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline once and print a summary",
	Long: `Run loads both datasets, cleans them, reconciles flights against the
registry and prints a summary. Missing-value reports are printed and written
as PDF according to the [report] section.`,
	RunE: runOnce,
}

func runOnce(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	log.Info("Starting flightrecon run",
		logger.String("version", Version),
		logger.String("config_path", configPath))

	run, err := pipeline.New(cfg, log).Run(ctx)
	if err != nil {
		return fmt.Errorf("pipeline run failed: %w", err)
	}

	if err := pipeline.WriteSummary(out, run.Summary()); err != nil {
		return err
	}

	paths, err := pipeline.WriteReports(run, cfg.Report, out)
	if err != nil {
		return err
	}
	for _, p := range paths {
		log.Info("Wrote missing-value report", logger.String("path", p))
	}

	if cfg.Reference.Enabled {
		client := refdata.NewClient(cfg.Reference, log)
		for _, kind := range []refdata.Kind{refdata.Airlines, refdata.Airports} {
			data, err := client.Fetch(ctx, kind)
			if err != nil {
				// Reference lookups are optional enrichment
				log.Warn("Reference fetch failed", logger.String("kind", string(kind)), logger.Error(err))
				continue
			}
			fmt.Fprintf(out, "Reference %s: %d entries\n", kind, countEntries(data))
		}
	}

	return nil
}

// countEntries counts list items in a decoded reference payload, either a bare
// array or an object carrying the list under "data"
func countEntries(v any) int {
	switch t := v.(type) {
	case []any:
		return len(t)
	case map[string]any:
		if items, ok := t["data"].([]any); ok {
			return len(items)
		}
	}
	return 0
}
