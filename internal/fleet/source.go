// Package fleet reads an operator's fleet tail numbers from a relational table.
package fleet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"github.com/yegors/flightrecon/internal/config"
	"github.com/yegors/flightrecon/pkg/logger"
	_ "modernc.org/sqlite"
)

// ErrInvalidIdentifier is returned when a configured table or column name is not a plain SQL identifier
var ErrInvalidIdentifier = errors.New("invalid SQL identifier")

// Optional schema prefix, then a plain identifier
var identifierPattern = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*\.)?[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateIdentifier checks that name can be interpolated into a query safely
func ValidateIdentifier(name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}
	return nil
}

// Source is a fleet table behind database/sql
type Source struct {
	db         *sql.DB
	table      string
	tailColumn string
	logger     *logger.Logger
}

// Open connects to the fleet database described by cfg
func Open(cfg config.FleetConfig, log *logger.Logger) (*Source, error) {
	fleetLogger := log.Named("fleet")

	if err := ValidateIdentifier(cfg.Table); err != nil {
		return nil, fmt.Errorf("fleet table: %w", err)
	}
	if err := ValidateIdentifier(cfg.TailColumn); err != nil {
		return nil, fmt.Errorf("fleet tail column: %w", err)
	}

	fleetLogger.Info("Opening fleet source",
		logger.String("driver", cfg.Driver),
		logger.String("table", cfg.Table))

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open fleet database: %w", err)
	}

	// Read-only access from a single goroutine
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.Driver == "sqlite" {
		if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set busy timeout: %w", err)
		}
	}

	return &Source{
		db:         db,
		table:      cfg.Table,
		tailColumn: cfg.TailColumn,
		logger:     fleetLogger,
	}, nil
}

// Close closes the database connection
func (s *Source) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Tails returns the distinct non-empty tail numbers of the fleet, sorted
func (s *Source) Tails(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf(
		"SELECT DISTINCT %[1]s FROM %[2]s WHERE %[1]s IS NOT NULL AND %[1]s <> '' ORDER BY %[1]s",
		s.tailColumn, s.table)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query fleet table %s: %w", s.table, err)
	}
	defer rows.Close()

	var tails []string
	for rows.Next() {
		var tail string
		if err := rows.Scan(&tail); err != nil {
			return nil, fmt.Errorf("failed to scan fleet row: %w", err)
		}
		tails = append(tails, tail)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fleet rows: %w", err)
	}

	s.logger.Info("Loaded fleet", logger.Int("tails", len(tails)))
	return tails, nil
}

// Resolve returns the fleet tails: read from the database when the source is enabled,
// otherwise the statically configured list.
func Resolve(ctx context.Context, cfg config.FleetConfig, log *logger.Logger) ([]string, error) {
	if !cfg.Enabled {
		return cfg.Tails, nil
	}

	src, err := Open(cfg, log)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	return src.Tails(ctx)
}
