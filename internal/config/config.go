package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Invalid date policies for the flight cleaner
const (
	DatePolicyExclude = "exclude" // Drop rows whose YEAR/MONTH/DAY is not a calendar date
	DatePolicyFail    = "fail"    // Abort the run on the first malformed date
)

// Config represents the main application configuration structure
// containing all configuration sections
type Config struct {
	Logging   LoggingConfig   `toml:"logging"`   // Application logging settings
	Sources   SourcesConfig   `toml:"sources"`   // Raw dataset locations
	Flights   FlightsConfig   `toml:"flights"`   // Flight cleaning policies
	Reference ReferenceConfig `toml:"reference"` // Remote airline/airport lookups
	Fleet     FleetConfig     `toml:"fleet"`     // Relational fleet source
	Report    ReportConfig    `toml:"report"`    // Missing-value diagnostics output
	Server    ServerConfig    `toml:"server"`    // HTTP server settings (serve mode)
}

// LoggingConfig contains application logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`  // Log level: "debug", "info", "warn", or "error"
	Format string `toml:"format"` // Log format: "json" (structured) or "console" (human-readable)
}

// SourcesConfig points at the two raw tabular datasets
type SourcesConfig struct {
	AircraftPath string `toml:"aircraft_path"` // Global aircraft registry CSV
	FlightsPath  string `toml:"flights_path"`  // Historical flight operations CSV
}

// FlightsConfig contains flight cleaning settings
type FlightsConfig struct {
	InvalidDatePolicy string `toml:"invalid_date_policy"` // "exclude" (default) or "fail"
}

// ReferenceConfig contains settings for the aviation reference data API
type ReferenceConfig struct {
	Enabled               bool   `toml:"enabled"`                 // Fetch airlines/airports lookups
	BaseURL               string `toml:"base_url"`                // API base URL (e.g., http://api.aviationstack.com/v1)
	AccessKey             string `toml:"access_key"`              // Access key sent as the access_key query parameter
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"` // HTTP request timeout in seconds
	MaxRetries            int    `toml:"max_retries"`             // Retry attempts after the first failure (0 = no retry)
	CacheExpiryMinutes    int    `toml:"cache_expiry_minutes"`    // How long fetched lookups are served from cache
}

// FleetConfig describes the relational source holding the operator's own fleet.
// It replaces interactive credential prompting: everything needed to connect is supplied here.
type FleetConfig struct {
	Enabled    bool     `toml:"enabled"`     // Read fleet tails from the relational source
	Driver     string   `toml:"driver"`      // database/sql driver name (only "sqlite" is bundled)
	DSN        string   `toml:"dsn"`         // Driver specific data source name
	Table      string   `toml:"table"`       // Table or view holding the fleet
	TailColumn string   `toml:"tail_column"` // Column holding the tail number / registration
	Tails      []string `toml:"tails"`       // Static fleet list, used when the relational source is disabled
}

// ReportConfig contains missing-value diagnostic settings
type ReportConfig struct {
	Console bool   `toml:"console"` // Print the missing-value tables to stdout
	PDFDir  string `toml:"pdf_dir"` // Directory to write missing-value bar charts to (empty = disabled)
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port             int    `toml:"port"`                  // HTTP port for the server
	Host             string `toml:"host"`                  // Host address to bind to
	ReadTimeoutSecs  int    `toml:"read_timeout_seconds"`  // Maximum duration for reading the entire request
	WriteTimeoutSecs int    `toml:"write_timeout_seconds"` // Maximum duration for writing the response
	IdleTimeoutSecs  int    `toml:"idle_timeout_seconds"`  // Maximum keep-alive idle time
}

// Load loads the configuration from the specified file path
func Load(path string) (*Config, error) {
	var config Config

	// Check if the file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	// Read the config file
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	return &config, nil
}

// LoadWithFallback loads the configuration by checking multiple locations in order of preference
func LoadWithFallback(preferredPath string) (*Config, error) {
	// List of paths to check in order of preference
	searchPaths := []string{
		preferredPath,         // User-specified path (if provided)
		"configs/config.toml", // configs/ folder
		"config.toml",         // Root directory
	}

	// Remove duplicates while preserving order
	uniquePaths := make([]string, 0, len(searchPaths))
	seen := make(map[string]bool)
	for _, path := range searchPaths {
		if path != "" && !seen[path] {
			uniquePaths = append(uniquePaths, path)
			seen[path] = true
		}
	}

	var lastErr error
	for _, path := range uniquePaths {
		if _, err := os.Stat(path); err == nil {
			config, err := Load(path)
			if err != nil {
				lastErr = fmt.Errorf("failed to load config from %s: %w", path, err)
				continue
			}
			return config, nil
		}
		lastErr = fmt.Errorf("config file not found: %s", path)
	}

	return nil, fmt.Errorf("config file not found in any of the expected locations: %v. Last error: %w", uniquePaths, lastErr)
}

// Validate applies defaults and validates the configuration
func (c *Config) Validate() error {
	if err := c.ValidateLogging(); err != nil {
		return err
	}
	if err := c.ValidateSources(); err != nil {
		return err
	}
	if err := c.ValidateFlights(); err != nil {
		return err
	}
	if err := c.ValidateReference(); err != nil {
		return err
	}
	if err := c.ValidateFleet(); err != nil {
		return err
	}
	return c.ValidateServer()
}

// ValidateLogging validates the logging configuration
func (c *Config) ValidateLogging() error {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}
	return nil
}

// ValidateSources validates the dataset locations
func (c *Config) ValidateSources() error {
	if c.Sources.AircraftPath == "" {
		return fmt.Errorf("sources aircraft_path is required")
	}
	if c.Sources.FlightsPath == "" {
		return fmt.Errorf("sources flights_path is required")
	}
	return nil
}

// ValidateFlights validates the flight cleaning configuration
func (c *Config) ValidateFlights() error {
	c.Flights.InvalidDatePolicy = strings.ToLower(c.Flights.InvalidDatePolicy)
	if c.Flights.InvalidDatePolicy == "" {
		c.Flights.InvalidDatePolicy = DatePolicyExclude
	}
	if c.Flights.InvalidDatePolicy != DatePolicyExclude && c.Flights.InvalidDatePolicy != DatePolicyFail {
		return fmt.Errorf("invalid flights invalid_date_policy: %s (must be '%s' or '%s')",
			c.Flights.InvalidDatePolicy, DatePolicyExclude, DatePolicyFail)
	}
	return nil
}

// ValidateReference validates the reference data configuration
func (c *Config) ValidateReference() error {
	if !c.Reference.Enabled {
		return nil // Skip validation if reference lookups are disabled
	}

	if c.Reference.BaseURL == "" {
		c.Reference.BaseURL = "http://api.aviationstack.com/v1"
	}
	if c.Reference.RequestTimeoutSeconds == 0 {
		c.Reference.RequestTimeoutSeconds = 30
	}
	if c.Reference.CacheExpiryMinutes == 0 {
		c.Reference.CacheExpiryMinutes = 60
	}

	if c.Reference.AccessKey == "" {
		return fmt.Errorf("reference access_key is required when reference lookups are enabled")
	}
	if c.Reference.RequestTimeoutSeconds < 0 {
		return fmt.Errorf("reference request_timeout_seconds must be positive: %d", c.Reference.RequestTimeoutSeconds)
	}
	if c.Reference.MaxRetries < 0 {
		return fmt.Errorf("reference max_retries must be 0 or greater: %d", c.Reference.MaxRetries)
	}
	if c.Reference.CacheExpiryMinutes < 0 {
		return fmt.Errorf("reference cache_expiry_minutes must be positive: %d", c.Reference.CacheExpiryMinutes)
	}
	return nil
}

// ValidateFleet validates the fleet source configuration
func (c *Config) ValidateFleet() error {
	if !c.Fleet.Enabled {
		return nil
	}

	if c.Fleet.Driver == "" {
		c.Fleet.Driver = "sqlite"
	}
	if c.Fleet.TailColumn == "" {
		c.Fleet.TailColumn = "tail_number"
	}

	if c.Fleet.Driver != "sqlite" {
		return fmt.Errorf("invalid fleet driver: %s (only 'sqlite' is supported)", c.Fleet.Driver)
	}
	if c.Fleet.DSN == "" {
		return fmt.Errorf("fleet dsn is required when the fleet source is enabled")
	}
	if c.Fleet.Table == "" {
		return fmt.Errorf("fleet table is required when the fleet source is enabled")
	}
	return nil
}

// ValidateServer validates the HTTP server configuration
func (c *Config) ValidateServer() error {
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeoutSecs == 0 {
		c.Server.ReadTimeoutSecs = 15
	}
	if c.Server.IdleTimeoutSecs == 0 {
		c.Server.IdleTimeoutSecs = 60
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeoutSecs < 0 || c.Server.WriteTimeoutSecs < 0 || c.Server.IdleTimeoutSecs < 0 {
		return fmt.Errorf("server timeouts must be 0 or greater")
	}
	return nil
}
