package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/ModLoc/pkg/store/sqlite"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize [db]",
	Short: "Summarize a match database",
	Long:  `Print the number of stored matches, how many variable placements are confident, inferred or still ambiguous, and the recorded inference runs.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return fmt.Errorf("database does not exist: %s", path)
		}

		store, err := sqlite.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer store.Close()

		sum, err := store.Summarize(cmd.Context())
		if err != nil {
			return err
		}
		runs, err := store.Runs()
		if err != nil {
			return err
		}

		fmt.Printf("Database: %s\n", path)
		fmt.Printf("Matches: %d\n", sum.Matches)
		fmt.Printf("Variable placements: %d\n", sum.Variable)
		fmt.Printf("  confident: %d\n", sum.Confident)
		fmt.Printf("  inferred:  %d\n", sum.Inferred)
		fmt.Printf("  ambiguous: %d\n", sum.Ambiguous)

		if len(runs) == 0 {
			fmt.Printf("Runs: none\n")
			return nil
		}
		fmt.Printf("Runs: %d\n", len(runs))
		for _, r := range runs {
			status := "complete"
			if r.Cancelled {
				status = "cancelled"
			}
			fmt.Printf("  %s %s %s: %d matches, %d resolved, %d unresolved, %d errors (%s, %s)\n",
				r.Started.Local().Format("2006-01-02 15:04:05"), r.ID, r.Mode,
				r.Matches, r.Resolved, r.Unresolved, r.Errors, status, r.Finished.Sub(r.Started))
		}
		return nil
	},
}
