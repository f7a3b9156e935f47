package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/chameleon-db/entityview/pkg/engine"
)

var (
	// Global flags
	verbose bool

	// Colors
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
)

var rootCmd = &cobra.Command{
	Use:   "entityview",
	Short: "EntityView - flush updatable entity views to PostgreSQL",
	Long: `EntityView decides how the changed attributes of an updatable entity view
are written back: targeted collection table statements, a full rewrite,
or mutations of the backing entity graph.

Get started:
  entityview config init
  entityview verify
  entityview plan scenario.yml --sql`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		printError("Error: %v", err)
		os.Exit(1)
	}
}

// Helper functions for consistent output
func printSuccess(format string, args ...interface{}) {
	successColor.Printf("✓ "+format+"\n", args...)
}

func printError(format string, args ...interface{}) {
	errorColor.Fprintf(os.Stderr, "✗ "+format+"\n", args...)
}

func printWarning(format string, args ...interface{}) {
	warningColor.Printf("⚠ "+format+"\n", args...)
}

func printInfo(format string, args ...interface{}) {
	infoColor.Printf("ℹ "+format+"\n", args...)
}

func getConnectorConfig() engine.ConnectorConfig {
	config, err := LoadConnectorConfig()
	if err != nil {
		printWarning("Could not read config: %v", err)
		return engine.DefaultConfig()
	}
	return config
}
