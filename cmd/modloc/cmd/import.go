package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/ModLoc/pkg/store/sqlite"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a PSM TSV file into a SQLite database",
	Long: `Read peptide-spectrum matches from a tab-separated file, drop site scores
outside the peptide or below the score floor, and store the valid matches.

Examples:
  # Import with the default modification set
  modloc import --in psms.tsv --db psms.db

  # Import with a score floor and custom modifications
  modloc import --in psms.tsv --db psms.db --min-score 5 --config modloc.yaml`,
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	store, err := sqlite.Open(importDB)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	fmt.Fprintf(msg, "Importing %s into %s...\n", importIn, importDB)
	stats, err := importMatches(cmd.Context(), importIn, s, store.Add)
	if err != nil {
		return err
	}

	fmt.Fprintf(msg, "\nImport complete!\n")
	printImportStats(stats)
	fmt.Fprintf(msg, "Output: %s\n", importDB)
	return nil
}
