package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the project configuration file looked up in the work dir.
const FileName = ".entityview.yml"

// Loader handles loading and parsing .entityview.yml
type Loader struct {
	filePath string
	workDir  string
}

// NewLoader creates a new config loader
func NewLoader(workDir string) *Loader {
	return &Loader{
		filePath: filepath.Join(workDir, FileName),
		workDir:  workDir,
	}
}

// Path returns the config file location
func (l *Loader) Path() string { return l.filePath }

// Load reads and parses .entityview.yml
func (l *Loader) Load() (*Config, error) {
	if _, err := os.Stat(l.filePath); err != nil {
		return nil, fmt.Errorf("config file not found: %s\nRun 'entityview config init' to create one", l.filePath)
	}

	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Expand environment variables in connection string
	cfg.Database.ConnectionString = os.ExpandEnv(cfg.Database.ConnectionString)

	if err := l.resolvePaths(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// resolvePaths converts relative paths to absolute
func (l *Loader) resolvePaths(cfg *Config) error {
	if cfg.Schema.Path != "" {
		abs, err := l.resolvePath(cfg.Schema.Path)
		if err != nil {
			return fmt.Errorf("invalid schema path '%s': %w", cfg.Schema.Path, err)
		}
		cfg.Schema.Path = abs
	}

	if cfg.Flush.LogFile != "" {
		abs, err := l.resolvePath(cfg.Flush.LogFile)
		if err != nil {
			return fmt.Errorf("invalid log_file path '%s': %w", cfg.Flush.LogFile, err)
		}
		cfg.Flush.LogFile = abs
	}

	return nil
}

// resolvePath converts relative or absolute path to absolute
func (l *Loader) resolvePath(path string) (string, error) {
	if filepath.IsAbs(path) {
		return path, nil
	}
	return filepath.Abs(filepath.Join(l.workDir, path))
}

// LoadOrDefault loads config or returns defaults
func (l *Loader) LoadOrDefault() (*Config, error) {
	cfg, err := l.Load()
	if err != nil {
		// Not found = return defaults
		if strings.Contains(err.Error(), "not found") {
			return Defaults(), nil
		}
		return nil, err
	}
	return cfg, nil
}

// Save writes config to file
func (l *Loader) Save(cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(l.filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Template returns the template content for .entityview.yml
func Template() string {
	return `# EntityView Configuration
# Generated at {{.CreatedAt}}

version: "0.1.0"
created_at: {{.CreatedAt}}

# Database connection settings
database:
  driver: "postgresql"
  # Use environment variable
  connection_string: ${DATABASE_URL}
  # OR hardcode (not recommended for production)
  # connection_string: "postgresql://localhost:5432/myapp_dev"

  # Connection pool settings
  max_connections: 10
  connection_timeout: 30  # seconds

# Entities and their collection relations
schema:
  path: "schema.json"

# Flush behaviour
flush:
  # query: collection table statements, entity: mutate the entity graph
  strategy: query

  # Route removals through the entity graph even with the query strategy
  force_entity: false

  # Read cascaded ids back with DELETE ... RETURNING
  supports_returning: true

  # none, sql, trace or explain
  debug: none

  # Also write debug output as JSON to a rotated file
  # log_file: ".entityview/flush.log"
`
}
