package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/ModLoc/pkg/core"
	"github.com/ChrisMcGann/ModLoc/pkg/inference"
	"github.com/ChrisMcGann/ModLoc/pkg/store/sqlite"
	"github.com/ChrisMcGann/ModLoc/pkg/writer/tsv"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored matches with their placements as TSV",
	Long: `Write every stored match with its current placements, its site scores, the
neutral mass of the modified peptide and the lists of confident and inferred
placements. The output can be imported again.

Examples:
  modloc export --db psms.db --out resolved.tsv
  modloc export --db psms.db | less -S`,
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	if exportOut == "-" {
		msg = os.Stderr
	}

	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	store, err := sqlite.Open(exportDB)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	n, err := exportMatches(cmd.Context(), store, exportOut, s.modDB)
	if err != nil {
		return err
	}
	fmt.Fprintf(msg, "Exported %d matches\n", n)
	return nil
}

// exportMatches writes every match of store to path, or stdout for "-"
func exportMatches(ctx context.Context, store inference.MatchStore, path string, modDB *core.ModDatabase) (int, error) {
	var out io.Writer = os.Stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return 0, fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	keys, err := store.Keys(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list spectrum matches: %w", err)
	}

	w := tsv.NewWriter(out, modDB)
	for _, key := range keys {
		m, err := store.Match(key)
		if err != nil {
			return w.Written(), err
		}
		if err := w.WriteMatch(m); err != nil {
			return w.Written(), err
		}
	}
	if err := w.Flush(); err != nil {
		return w.Written(), err
	}
	return w.Written(), nil
}
