package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/ModLoc/pkg/core"
	"github.com/ChrisMcGann/ModLoc/pkg/inference"
	"github.com/ChrisMcGann/ModLoc/pkg/store/memory"
	"github.com/ChrisMcGann/ModLoc/pkg/store/sqlite"
)

var inferCmd = &cobra.Command{
	Use:   "infer",
	Short: "Resolve ambiguous modification sites",
	Long: `Run site inference over every stored match. Matches with a confidently
localized modification lend their evidence to matches of the same, a longer or
a shorter peptide whose placement of the same mass is ambiguous.

Interrupting the run (Ctrl-C) keeps the matches already resolved.

Examples:
  # Infer directly from a TSV file and write the result
  modloc infer --in psms.tsv --out resolved.tsv

  # Infer on a database, importing new matches first
  modloc infer --db psms.db --in more.tsv --mode delta --parallel`,
	RunE: runInfer,
}

// inferenceStore is a match store that accepts imported matches
type inferenceStore interface {
	inference.MatchStore
	Add(m *core.SpectrumMatch) error
}

func runInfer(cmd *cobra.Command, args []string) error {
	if inferIn == "" && inferDB == "" {
		return fmt.Errorf("nothing to infer on, specify --in or --db")
	}
	if inferOut == "-" {
		msg = os.Stderr
	}

	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	var store inferenceStore
	var db *sqlite.Store
	if inferDB != "" {
		db, err = sqlite.Open(inferDB)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		store = db
	} else {
		store = memory.New()
	}

	if inferIn != "" {
		fmt.Fprintf(msg, "Reading %s...\n", inferIn)
		stats, err := importMatches(ctx, inferIn, s, store.Add)
		if err != nil {
			return err
		}
		printImportStats(stats)
	}

	fmt.Fprintf(msg, "Scoring mode: %s\n", s.mode)
	started := time.Now()
	engine := inference.New(store, s.modDB, inference.Options{
		Mode:     s.mode,
		Parallel: s.parallel,
		Log:      logrus.WithField("command", "infer"),
	})
	report, err := engine.Run(ctx)
	if err != nil {
		return fmt.Errorf("inference failed: %w", err)
	}

	if db != nil {
		run := &sqlite.Run{
			Mode:       s.mode.String(),
			Started:    started,
			Finished:   time.Now(),
			Matches:    report.Matches,
			Ambiguous:  report.Ambiguous,
			Resolved:   report.Resolved,
			Unresolved: report.Unresolved,
			Confident:  report.Confident,
			Inferred:   report.Inferred,
			Errors:     len(report.Errors),
			Cancelled:  report.Cancelled,
		}
		if err := db.RecordRun(run); err != nil {
			return err
		}
		logrus.WithField("run", run.ID).Debug("recorded run")
	}

	printReport(report)

	if inferOut != "" {
		n, err := exportMatches(context.Background(), store, inferOut, s.modDB)
		if err != nil {
			return err
		}
		fmt.Fprintf(msg, "Wrote %d matches to %s\n", n, inferOut)
	}
	return nil
}

func printReport(r *inference.Report) {
	if r.Cancelled {
		fmt.Fprintf(msg, "\nInference cancelled!\n")
	} else {
		fmt.Fprintf(msg, "\nInference complete!\n")
	}
	fmt.Fprintf(msg, "Matches: %d\n", r.Matches)
	fmt.Fprintf(msg, "Confident evidence: %d matches\n", r.Indexed)
	fmt.Fprintf(msg, "Ambiguous: %d matches\n", r.Ambiguous)
	fmt.Fprintf(msg, "Resolved: %d matches (%d confident, %d inferred placements)\n", r.Resolved, r.Confident, r.Inferred)
	if r.Unresolved > 0 {
		fmt.Fprintf(msg, "Unresolved: %d matches (no related evidence)\n", r.Unresolved)
	}
	if len(r.Errors) > 0 {
		fmt.Fprintf(msg, "Skipped: %d matches (errors)\n", len(r.Errors))
	}
}
