package fleet

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yegors/flightrecon/internal/config"
	"github.com/yegors/flightrecon/pkg/logger"
)

func seedFleet(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fleet.db")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE fleet (id INTEGER PRIMARY KEY, tail_number TEXT, model TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO fleet (tail_number, model) VALUES
		('N2', '737-800'), ('N1', 'A320'), ('N2', '737-800'), (NULL, 'A321'), ('', 'ATR72')`)
	require.NoError(t, err)
	return path
}

func fleetConfig(dsn string) config.FleetConfig {
	return config.FleetConfig{
		Enabled:    true,
		Driver:     "sqlite",
		DSN:        dsn,
		Table:      "fleet",
		TailColumn: "tail_number",
	}
}

func TestTails(t *testing.T) {
	src, err := Open(fleetConfig(seedFleet(t)), logger.NewNop())
	require.NoError(t, err)
	defer src.Close()

	tails, err := src.Tails(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"N1", "N2"}, tails)
}

func TestResolve(t *testing.T) {
	tails, err := Resolve(context.Background(), fleetConfig(seedFleet(t)), logger.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{"N1", "N2"}, tails)

	static := config.FleetConfig{Tails: []string{"N9"}}
	tails, err = Resolve(context.Background(), static, logger.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{"N9"}, tails)
}

func TestOpenRejectsInvalidIdentifiers(t *testing.T) {
	cfg := fleetConfig(seedFleet(t))
	cfg.Table = "fleet; DROP TABLE fleet"
	_, err := Open(cfg, logger.NewNop())
	require.ErrorIs(t, err, ErrInvalidIdentifier)

	cfg = fleetConfig(seedFleet(t))
	cfg.TailColumn = "tail number"
	_, err = Open(cfg, logger.NewNop())
	require.ErrorIs(t, err, ErrInvalidIdentifier)
}

func TestValidateIdentifier(t *testing.T) {
	for _, ok := range []string{"fleet", "ops.fleet", "_t1", "TAIL_NUMBER"} {
		assert.NoError(t, ValidateIdentifier(ok), ok)
	}
	for _, bad := range []string{"", "1fleet", "a.b.c", "fleet--", "a b", "\"fleet\""} {
		assert.ErrorIs(t, ValidateIdentifier(bad), ErrInvalidIdentifier, bad)
	}
}

func TestTailsMissingTable(t *testing.T) {
	cfg := fleetConfig(seedFleet(t))
	cfg.Table = "aircraft"
	src, err := Open(cfg, logger.NewNop())
	require.NoError(t, err)
	defer src.Close()

	_, err = src.Tails(context.Background())
	assert.Error(t, err)
}
