package main

import (
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/chameleon-db/entityview/internal/config"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the .entityview.yml project configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create .entityview.yml in the current directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		workDir, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}

		path, err := writeConfigTemplate(workDir, configForce, time.Now())
		if err != nil {
			return err
		}
		printSuccess("Created %s", path)
		printInfo("Set DATABASE_URL or edit database.connection_string")
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadProjectConfig()
		if err != nil {
			return err
		}

		out, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), string(out))

		if verbose {
			connCfg := getConnectorConfig()
			fmt.Fprintf(cmd.OutOrStdout(), "\n# connector: %s@%s:%d/%s\n", connCfg.User, connCfg.Host, connCfg.Port, connCfg.Database)
		}
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}

// writeConfigTemplate renders the config template into workDir.
func writeConfigTemplate(workDir string, force bool, now time.Time) (string, error) {
	loader := config.NewLoader(workDir)
	if _, err := os.Stat(loader.Path()); err == nil && !force {
		return "", fmt.Errorf("%s already exists (use --force to overwrite)", config.FileName)
	}

	tmpl, err := template.New(config.FileName).Parse(config.Template())
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, struct{ CreatedAt string }{now.UTC().Format(time.RFC3339)}); err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}

	if err := os.WriteFile(loader.Path(), []byte(b.String()), 0644); err != nil {
		return "", fmt.Errorf("failed to write config: %w", err)
	}
	return loader.Path(), nil
}
