package main

import (
	"strings"
	"testing"
	"time"

	"github.com/chameleon-db/entityview/internal/config"
)

func TestWriteConfigTemplate(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATABASE_URL", "postgresql://localhost:5432/app")
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	path, err := writeConfigTemplate(dir, false, now)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.HasSuffix(path, config.FileName) {
		t.Errorf("expected path ending in %s, got %s", config.FileName, path)
	}

	cfg, err := config.NewLoader(dir).Load()
	if err != nil {
		t.Fatalf("rendered template does not load: %v", err)
	}
	if !cfg.CreatedAt.Equal(now) {
		t.Errorf("expected created_at %v, got %v", now, cfg.CreatedAt)
	}
	if cfg.Database.ConnectionString != "postgresql://localhost:5432/app" {
		t.Errorf("expected expanded connection string, got %s", cfg.Database.ConnectionString)
	}
	if cfg.Flush.Strategy != "query" {
		t.Errorf("expected query strategy, got %s", cfg.Flush.Strategy)
	}
}

func TestWriteConfigTemplateRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	if _, err := writeConfigTemplate(dir, false, now); err != nil {
		t.Fatalf("first write failed: %v", err)
	}

	_, err := writeConfigTemplate(dir, false, now)
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected 'already exists' error, got %v", err)
	}

	if _, err := writeConfigTemplate(dir, true, now); err != nil {
		t.Fatalf("forced write failed: %v", err)
	}
}
