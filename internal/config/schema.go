package config

import (
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/chameleon-db/entityview/pkg/engine"
	"github.com/chameleon-db/entityview/pkg/flush"
)

// Config represents the complete .entityview.yml configuration
type Config struct {
	Version   string         `yaml:"version"`
	CreatedAt time.Time      `yaml:"created_at"`
	Database  DatabaseConfig `yaml:"database"`
	Schema    SchemaConfig   `yaml:"schema"`
	Flush     FlushConfig    `yaml:"flush"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver            string `yaml:"driver"`            // postgresql
	ConnectionString  string `yaml:"connection_string"` // ${DATABASE_URL} or hardcoded
	MaxConnections    int    `yaml:"max_connections,omitempty"`
	ConnectionTimeout int    `yaml:"connection_timeout,omitempty"` // seconds
}

// SchemaConfig points at the JSON schema describing entities and their
// collection relations.
type SchemaConfig struct {
	Path string `yaml:"path"`
}

// FlushConfig selects how dirty view attributes are written
type FlushConfig struct {
	Strategy          string `yaml:"strategy"`                     // query or entity
	ForceEntity       bool   `yaml:"force_entity,omitempty"`       // removals through the entity graph
	SupportsReturning bool   `yaml:"supports_returning,omitempty"` // DELETE ... RETURNING
	Debug             string `yaml:"debug,omitempty"`              // none, sql, trace, explain
	LogFile           string `yaml:"log_file,omitempty"`           // rotated JSON log
}

// Defaults returns a Config with sensible defaults
func Defaults() *Config {
	return &Config{
		Version:   "0.1.0",
		CreatedAt: time.Now(),
		Database: DatabaseConfig{
			Driver:            "postgresql",
			ConnectionString:  "${DATABASE_URL}",
			MaxConnections:    10,
			ConnectionTimeout: 30,
		},
		Schema: SchemaConfig{
			Path: "schema.json",
		},
		Flush: FlushConfig{
			Strategy:          "query",
			SupportsReturning: true,
			Debug:             "none",
		},
	}
}

// Validate checks if config is valid
func (c *Config) Validate() error {
	if c.Database.Driver == "" {
		return &ConfigError{
			Field:  "database.driver",
			Reason: "Database driver is required",
		}
	}
	if c.Database.Driver != "postgresql" {
		return &ConfigError{
			Field:      "database.driver",
			Reason:     "Unsupported driver '" + c.Database.Driver + "'",
			Suggestion: "Only postgresql is supported",
		}
	}

	switch c.Flush.Strategy {
	case "":
		c.Flush.Strategy = "query"
	case "query", "entity":
	default:
		return &ConfigError{
			Field:      "flush.strategy",
			Reason:     "Unknown strategy '" + c.Flush.Strategy + "'",
			Suggestion: "Use 'query' or 'entity'",
		}
	}

	switch c.Flush.Debug {
	case "", "none", "sql", "trace", "explain":
	default:
		return &ConfigError{
			Field:      "flush.debug",
			Reason:     "Unknown debug level '" + c.Flush.Debug + "'",
			Suggestion: "Use none, sql, trace or explain",
		}
	}

	if c.Database.ConnectionTimeout < 1 {
		c.Database.ConnectionTimeout = 30
	}

	return nil
}

// DebugContext builds the engine debug output for the configured level.
func (f FlushConfig) DebugContext(w io.Writer) *engine.DebugContext {
	return engine.NewDebugContext(engine.ParseDebugLevel(f.Debug), w, f.LogFile)
}

// Options translates the flush section into UpdateContext options.
func (f FlushConfig) Options(logger *zap.Logger) []flush.Option {
	opts := []flush.Option{
		flush.WithStrategy(flush.ParseStrategy(f.Strategy)),
		flush.WithReturning(f.SupportsReturning),
		flush.WithLogger(logger),
	}
	if f.ForceEntity {
		opts = append(opts, flush.ForceEntity())
	}
	return opts
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field      string
	Reason     string
	Suggestion string
}

func (e *ConfigError) Error() string {
	msg := "Configuration error: " + e.Field + ": " + e.Reason
	if e.Suggestion != "" {
		msg += "\nSuggestion: " + e.Suggestion
	}
	return msg
}
