package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chameleon-db/entityview/pkg/engine/introspect"
)

var verifySchema string

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify collection tables against the schema",
	Long: `Inspect the database and check that every plural relation of the
schema has its collection table with the owner, key and element columns
the flush statements address.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadProjectConfig()
		if err != nil {
			return err
		}

		path := verifySchema
		if path == "" {
			path = cfg.Schema.Path
		}
		schema, err := loadSchema(path)
		if err != nil {
			return err
		}

		ctx := context.Background()
		connCfg := getConnectorConfig()
		in, err := introspect.NewIntrospector(ctx, connCfg.ConnectionString())
		if err != nil {
			return err
		}
		defer in.Close()

		if verbose {
			printInfo("Connected to %s:%d/%s", connCfg.Host, connCfg.Port, connCfg.Database)
		}

		report, err := introspect.CheckCollectionTables(ctx, in, schema)
		if err != nil {
			return err
		}
		return printReport(cmd.OutOrStdout(), report)
	},
}

func init() {
	verifyCmd.Flags().StringVar(&verifySchema, "schema", "", "JSON schema (defaults to schema.path)")
	rootCmd.AddCommand(verifyCmd)
}

// printReport writes one line per collection table and fails when any
// check did.
func printReport(w io.Writer, report *introspect.Report) error {
	if len(report.Tables) == 0 {
		warningColor.Fprintln(w, "⚠ The schema declares no plural relations")
		return nil
	}

	fmt.Fprintln(w, "Collection tables:")
	for _, t := range report.Tables {
		label := fmt.Sprintf("%s.%s → %s", t.Entity, t.Relation, t.Table)
		switch {
		case t.OK():
			successColor.Fprintf(w, "  ✓ %s (%s)\n", label, strings.Join(t.Expected, ", "))
		case !t.Exists:
			errorColor.Fprintf(w, "  ✗ %s: table not found\n", label)
		default:
			errorColor.Fprintf(w, "  ✗ %s: missing %s\n", label, strings.Join(t.Missing, ", "))
		}
	}
	fmt.Fprintln(w)

	if !report.OK() {
		return fmt.Errorf("%d of %d collection tables failed verification", report.Problems(), len(report.Tables))
	}
	successColor.Fprintln(w, "✅ All collection tables verified")
	return nil
}
