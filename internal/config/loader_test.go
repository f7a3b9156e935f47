package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/chameleon-db/entityview/pkg/engine"
	"github.com/chameleon-db/entityview/pkg/flush"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
}

func TestNewLoader(t *testing.T) {
	workDir := "/test/work/dir"
	loader := NewLoader(workDir)

	if loader == nil {
		t.Fatal("Expected non-nil loader")
	}

	expectedPath := filepath.Join(workDir, ".entityview.yml")
	if loader.Path() != expectedPath {
		t.Errorf("Expected filePath %s, got %s", expectedPath, loader.Path())
	}

	if loader.workDir != workDir {
		t.Errorf("Expected workDir %s, got %s", workDir, loader.workDir)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	loader := NewLoader(t.TempDir())

	_, err := loader.Load()
	if err == nil {
		t.Fatal("Expected error when config file doesn't exist")
	}

	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("Expected 'not found' error, got: %v", err)
	}
}

func TestLoad_Success(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, `version: "0.1.0"
database:
  driver: "postgresql"
  connection_string: "postgresql://localhost:5432/test"
  max_connections: 10
  connection_timeout: 30

schema:
  path: "schema.json"

flush:
  strategy: entity
  force_entity: true
  supports_returning: true
  debug: trace
`)

	cfg, err := NewLoader(tmpDir).Load()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.Version != "0.1.0" {
		t.Errorf("Expected version 0.1.0, got %s", cfg.Version)
	}

	if cfg.Database.MaxConnections != 10 {
		t.Errorf("Expected max_connections 10, got %d", cfg.Database.MaxConnections)
	}

	if cfg.Flush.Strategy != "entity" {
		t.Errorf("Expected strategy entity, got %s", cfg.Flush.Strategy)
	}

	if !cfg.Flush.ForceEntity || !cfg.Flush.SupportsReturning {
		t.Error("Expected force_entity and supports_returning to be true")
	}

	if cfg.Flush.Debug != "trace" {
		t.Errorf("Expected debug trace, got %s", cfg.Flush.Debug)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, `version: "0.1.0"
database:
  driver: postgresql
  connection_string: [this is invalid yaml syntax
`)

	_, err := NewLoader(tmpDir).Load()
	if err == nil {
		t.Fatal("Expected error when parsing invalid YAML")
	}

	if !strings.Contains(err.Error(), "failed to parse") {
		t.Errorf("Expected 'failed to parse' error, got: %v", err)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
	}{
		{
			name:    "missing driver",
			content: "database:\n  connection_string: x\n",
			field:   "database.driver",
		},
		{
			name:    "unsupported driver",
			content: "database:\n  driver: mysql\n",
			field:   "database.driver",
		},
		{
			name:    "unknown strategy",
			content: "database:\n  driver: postgresql\nflush:\n  strategy: batch\n",
			field:   "flush.strategy",
		},
		{
			name:    "unknown debug level",
			content: "database:\n  driver: postgresql\nflush:\n  debug: verbose\n",
			field:   "flush.debug",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			writeConfig(t, tmpDir, tt.content)

			_, err := NewLoader(tmpDir).Load()
			ce, ok := err.(*ConfigError)
			if !ok {
				t.Fatalf("Expected *ConfigError, got %T (%v)", err, err)
			}
			if ce.Field != tt.field {
				t.Errorf("Expected field %s, got %s", tt.field, ce.Field)
			}
		})
	}
}

func TestLoad_DefaultsStrategyAndTimeout(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, "database:\n  driver: postgresql\n")

	cfg, err := NewLoader(tmpDir).Load()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.Flush.Strategy != "query" {
		t.Errorf("Expected default strategy query, got %s", cfg.Flush.Strategy)
	}

	if cfg.Database.ConnectionTimeout != 30 {
		t.Errorf("Expected default timeout 30, got %d", cfg.Database.ConnectionTimeout)
	}
}

func TestLoad_ExpandsEnvironmentVariables(t *testing.T) {
	tmpDir := t.TempDir()

	testDBURL := "postgresql://testhost:5432/testdb"
	t.Setenv("TEST_DATABASE_URL", testDBURL)

	writeConfig(t, tmpDir, `version: "0.1.0"
database:
  driver: "postgresql"
  connection_string: "${TEST_DATABASE_URL}"
`)

	cfg, err := NewLoader(tmpDir).Load()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.Database.ConnectionString != testDBURL {
		t.Errorf("Expected connection string %s, got %s", testDBURL, cfg.Database.ConnectionString)
	}
}

func TestResolvePaths(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, `database:
  driver: "postgresql"
schema:
  path: "./schemas/app.json"
flush:
  log_file: "logs/flush.log"
`)

	cfg, err := NewLoader(tmpDir).Load()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if !filepath.IsAbs(cfg.Schema.Path) {
		t.Errorf("Expected absolute schema path, got relative: %s", cfg.Schema.Path)
	}

	if !filepath.IsAbs(cfg.Flush.LogFile) {
		t.Errorf("Expected absolute log_file path, got relative: %s", cfg.Flush.LogFile)
	}

	if !strings.HasPrefix(cfg.Flush.LogFile, tmpDir) {
		t.Errorf("Expected log_file under %s, got %s", tmpDir, cfg.Flush.LogFile)
	}
}

func TestLoadOrDefault_FileNotFound(t *testing.T) {
	cfg, err := NewLoader(t.TempDir()).LoadOrDefault()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg == nil {
		t.Fatal("Expected default config, got nil")
	}

	defaults := Defaults()
	if cfg.Version != defaults.Version {
		t.Errorf("Expected default version %s, got %s", defaults.Version, cfg.Version)
	}
}

func TestLoadOrDefault_InvalidFileIsAnError(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, "database:\n  driver: sqlite\n")

	if _, err := NewLoader(tmpDir).LoadOrDefault(); err == nil {
		t.Fatal("Expected validation error to surface")
	}
}

func TestSave(t *testing.T) {
	tmpDir := t.TempDir()
	loader := NewLoader(tmpDir)

	cfg := Defaults()
	cfg.Database.ConnectionString = "postgresql://localhost:5432/savetest"
	cfg.Flush.Strategy = "entity"

	if err := loader.Save(cfg); err != nil {
		t.Fatalf("Expected no error saving config, got: %v", err)
	}

	if _, err := os.Stat(filepath.Join(tmpDir, ".entityview.yml")); err != nil {
		t.Fatalf("Config file was not created")
	}

	loadedCfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Expected no error loading config, got: %v", err)
	}

	if loadedCfg.Database.ConnectionString != "postgresql://localhost:5432/savetest" {
		t.Errorf("Expected connection string to be saved correctly")
	}

	if loadedCfg.Flush.Strategy != "entity" {
		t.Errorf("Expected strategy to round-trip, got %s", loadedCfg.Flush.Strategy)
	}
}

func TestTemplate(t *testing.T) {
	template := Template()

	if template == "" {
		t.Fatal("Expected non-empty template")
	}

	for _, section := range []string{"EntityView Configuration", "database:", "schema:", "flush:"} {
		if !strings.Contains(template, section) {
			t.Errorf("Template should contain %q", section)
		}
	}
}

// ============================================================
// FLUSH SECTION
// ============================================================

func TestFlushConfig_Options(t *testing.T) {
	fc := FlushConfig{Strategy: "entity", ForceEntity: true, SupportsReturning: true}
	uc := flush.NewUpdateContext(nil, nil, fc.Options(zap.NewNop())...)

	if uc.Strategy() != flush.StrategyEntity {
		t.Errorf("Expected entity strategy, got %s", uc.Strategy())
	}
	if !uc.IsForceEntity() {
		t.Error("Expected force entity")
	}
	if !uc.SupportsReturning() {
		t.Error("Expected RETURNING support")
	}
}

func TestFlushConfig_DebugContext(t *testing.T) {
	var buf bytes.Buffer

	dc := FlushConfig{Debug: "sql"}.DebugContext(&buf)
	if dc.Level != engine.DebugSQL {
		t.Fatalf("Expected sql level, got %s", dc.Level)
	}
	dc.LogSQL("User.tags", "DELETE FROM user_tags WHERE user_id = $1", []interface{}{1})
	if !strings.Contains(buf.String(), "DELETE FROM user_tags") {
		t.Errorf("Expected statement in debug output, got %q", buf.String())
	}

	if got := (FlushConfig{}).DebugContext(&buf).Level; got != engine.DebugNone {
		t.Errorf("Expected none by default, got %s", got)
	}
}
