// Package cmd provides CLI command implementations
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/ModLoc/pkg/config"
	"github.com/ChrisMcGann/ModLoc/pkg/core"
	"github.com/ChrisMcGann/ModLoc/pkg/filter"
	"github.com/ChrisMcGann/ModLoc/pkg/reader/psmtsv"
)

var (
	// Global flags
	configFile  string
	scoringMode string
	parallel    bool
	minScore    float64
	verbose     bool

	// Flags for import command
	importIn string
	importDB string

	// Flags for infer command
	inferIn  string
	inferDB  string
	inferOut string

	// Flags for export command
	exportDB  string
	exportOut string
)

// msg receives the user-facing progress and summary lines; commands writing
// TSV to stdout move it to stderr
var msg io.Writer = os.Stdout

var rootCmd = &cobra.Command{
	Use:   "modloc",
	Short: "ModLoc - PTM site localization and cross-spectrum inference",
	Long: `ModLoc decides which residue each modification of a peptide-spectrum match
occupies, borrowing evidence from other spectra that confidently localized the
same modification on the same, a longer or a shorter peptide.

Matches are exchanged as tab-separated files and can be kept in a SQLite
database between runs. Each placement ends up confident, inferred, or left
ambiguous when no related evidence exists.`,
	Version: "1.0.0",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logrus.SetOutput(os.Stderr)
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		if verbose {
			logrus.SetLevel(logrus.DebugLevel)
		} else {
			logrus.SetLevel(logrus.InfoLevel)
		}
	},
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(inferCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(validateCmd)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "YAML configuration file")
	flags.StringVar(&scoringMode, "mode", "", "Scoring mode: probabilistic or delta (overrides config)")
	flags.BoolVar(&parallel, "parallel", false, "Scan matches on all cores (overrides config)")
	flags.Float64Var(&minScore, "min-score", 0, "Drop site scores below this value (overrides config)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	importCmd.Flags().StringVarP(&importIn, "in", "i", "", "Input PSM TSV file (required)")
	importCmd.Flags().StringVarP(&importDB, "db", "d", "", "SQLite database file (required)")
	importCmd.MarkFlagRequired("in")
	importCmd.MarkFlagRequired("db")

	inferCmd.Flags().StringVarP(&inferIn, "in", "i", "", "Input PSM TSV file, imported before inference")
	inferCmd.Flags().StringVarP(&inferDB, "db", "d", "", "SQLite database file (in-memory when omitted)")
	inferCmd.Flags().StringVarP(&inferOut, "out", "o", "", "Write resolved matches to this TSV file ('-' for stdout)")

	exportCmd.Flags().StringVarP(&exportDB, "db", "d", "", "SQLite database file (required)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "-", "Output TSV file ('-' for stdout)")
	exportCmd.MarkFlagRequired("db")
}

// settings are the effective run settings after applying flags to the config file
type settings struct {
	mode     core.ScoringMode
	parallel bool
	filter   *filter.Config
	modDB    *core.ModDatabase
}

func loadSettings(cmd *cobra.Command) (*settings, error) {
	cfg := config.Default()
	if configFile != "" {
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return nil, err
		}
		logrus.WithField("config", configFile).Debug("loaded configuration")
	}

	flags := cmd.Flags()
	if flags.Changed("mode") {
		cfg.ScoringMode = scoringMode
	}
	if flags.Changed("parallel") {
		cfg.Parallel = parallel
	}
	if flags.Changed("min-score") {
		cfg.MinScore = minScore
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	mode, err := cfg.Mode()
	if err != nil {
		return nil, err
	}
	modDB, err := cfg.ModDatabase()
	if err != nil {
		return nil, err
	}
	logrus.WithField("modifications", modDB.Len()).Debug("modification database ready")

	return &settings{
		mode:     mode,
		parallel: cfg.Parallel,
		filter:   &filter.Config{MinScore: cfg.MinScore, Mode: mode},
		modDB:    modDB,
	}, nil
}

// importStats counts the outcome of reading a PSM TSV file
type importStats struct {
	imported int
	skipped  int
	dropped  filter.Stats
}

// importMatches reads, cleans and validates the matches of path and hands
// each valid one to add. Invalid matches are skipped with a warning.
func importMatches(ctx context.Context, path string, s *settings, add func(*core.SpectrumMatch) error) (*importStats, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("input file does not exist: %s", path)
	}

	inFile, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer inFile.Close()

	reader := psmtsv.NewReader(inFile, s.modDB)
	stats := &importStats{}

	for reader.Next() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		m := reader.Match()

		dropped, err := s.filter.Apply(m)
		if err != nil {
			logrus.WithField("key", m.Key).WithError(err).Warn("skipping invalid spectrum match")
			stats.skipped++
			continue
		}
		stats.dropped.OutOfRange += dropped.OutOfRange
		stats.dropped.BelowFloor += dropped.BelowFloor
		stats.dropped.Scorings += dropped.Scorings

		if err := add(m); err != nil {
			return stats, fmt.Errorf("failed to store spectrum match %s: %w", m.Name(), err)
		}

		stats.imported++
		if stats.imported%1000 == 0 {
			fmt.Fprintf(msg, "Imported %d matches...\n", stats.imported)
		}
	}

	if err := reader.Err(); err != nil {
		return stats, fmt.Errorf("error reading input file: %w", err)
	}
	return stats, nil
}

func printImportStats(stats *importStats) {
	fmt.Fprintf(msg, "Imported: %d matches\n", stats.imported)
	if stats.skipped > 0 {
		fmt.Fprintf(msg, "Skipped: %d matches (validation errors)\n", stats.skipped)
	}
	if n := stats.dropped.OutOfRange + stats.dropped.BelowFloor; n > 0 {
		fmt.Fprintf(msg, "Dropped: %d site scores (%d outside the peptide, %d below the score floor)\n",
			n, stats.dropped.OutOfRange, stats.dropped.BelowFloor)
	}
}
