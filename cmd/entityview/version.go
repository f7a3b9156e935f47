package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chameleon-db/entityview/pkg/engine"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show EntityView version",
	Long:  "Display the current version of the EntityView CLI and flush engine",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("EntityView v%s\n", engine.Version)

		if verbose {
			fmt.Println("\nComponents:")
			fmt.Printf("  CLI:    v%s\n", engine.Version)
			fmt.Printf("  Engine: v%s (PostgreSQL)\n", engine.Version)
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
