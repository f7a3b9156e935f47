package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/chameleon-db/entityview/internal/config"
	"github.com/chameleon-db/entityview/pkg/engine"
)

// legacyConfigFile is the TOML connector file older projects keep next to
// their schema.
const legacyConfigFile = ".chameleon"

// LoadConnectorConfig loads config from:
// 1. DATABASE_URL environment variable (priority)
// 2. database.connection_string in .entityview.yml
// 3. .chameleon file in current directory
func LoadConnectorConfig() (engine.ConnectorConfig, error) {
	// 1. Try DATABASE_URL env var (Heroku, Railway, etc.)
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		cfg, err := engine.ParseConnectionString(databaseURL)
		if err != nil {
			return engine.ConnectorConfig{}, fmt.Errorf("invalid DATABASE_URL: %w", err)
		}
		if verbose {
			printInfo("Using DATABASE_URL from environment")
		}
		return cfg, nil
	}

	// 2. Try the project config
	if workDir, err := os.Getwd(); err == nil {
		if project, err := config.NewLoader(workDir).Load(); err == nil {
			connStr := strings.TrimSpace(project.Database.ConnectionString)
			if connStr != "" && !strings.Contains(connStr, "${") {
				cfg, err := engine.ParseConnectionString(connStr)
				if err != nil {
					return engine.ConnectorConfig{}, fmt.Errorf("invalid database.connection_string: %w", err)
				}
				if project.Database.MaxConnections > 0 {
					cfg.MaxConns = int32(project.Database.MaxConnections)
				}
				if verbose {
					printInfo("Using %s", config.FileName)
				}
				return cfg, nil
			}
		}
	}

	// 3. Try .chameleon file
	if _, err := os.Stat(legacyConfigFile); err == nil {
		fileConfig := struct {
			Database struct {
				Host     string `toml:"host"`
				Port     int    `toml:"port"`
				Database string `toml:"database"`
				User     string `toml:"user"`
				Password string `toml:"password"`
				MaxConns int32  `toml:"max_conns"`
				MinConns int32  `toml:"min_conns"`
			} `toml:"database"`
		}{}

		if _, err := toml.DecodeFile(legacyConfigFile, &fileConfig); err != nil {
			return engine.ConnectorConfig{}, fmt.Errorf("failed to parse %s: %w", legacyConfigFile, err)
		}

		cfg := engine.DefaultConfig()
		if fileConfig.Database.Host != "" {
			cfg.Host = fileConfig.Database.Host
		}
		if fileConfig.Database.Port != 0 {
			cfg.Port = fileConfig.Database.Port
		}
		if fileConfig.Database.Database != "" {
			cfg.Database = fileConfig.Database.Database
		}
		if fileConfig.Database.User != "" {
			cfg.User = fileConfig.Database.User
		}
		if fileConfig.Database.Password != "" {
			cfg.Password = fileConfig.Database.Password
		}
		if fileConfig.Database.MaxConns != 0 {
			cfg.MaxConns = fileConfig.Database.MaxConns
		}
		if fileConfig.Database.MinConns != 0 {
			cfg.MinConns = fileConfig.Database.MinConns
		}

		if verbose {
			printInfo("Using %s configuration file", legacyConfigFile)
		}
		return cfg, nil
	}

	// 4. Return defaults
	if verbose {
		printInfo("Using default configuration (localhost:5432)")
	}
	return engine.DefaultConfig(), nil
}

// loadProjectConfig reads .entityview.yml from the working directory, or
// defaults when there is none.
func loadProjectConfig() (*config.Config, error) {
	workDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return config.NewLoader(workDir).LoadOrDefault()
}
