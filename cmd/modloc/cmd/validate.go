package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/ModLoc/pkg/reader/psmtsv"
)

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a PSM TSV file",
	Long:  `Check that a PSM TSV file parses and that every match has a known sequence, known modifications and consistent placements.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		s, err := loadSettings(cmd)
		if err != nil {
			return err
		}

		inFile, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open input file: %w", err)
		}
		defer inFile.Close()

		reader := psmtsv.NewReader(inFile, s.modDB)
		seen := make(map[string]int)
		valid, invalid := 0, 0

		for reader.Next() {
			m := reader.Match()
			if line, ok := seen[m.Key]; ok {
				logrus.WithFields(logrus.Fields{"key": m.Key, "line": reader.Line()}).
					Warnf("duplicate spectrum key, first seen on line %d", line)
				invalid++
				continue
			}
			seen[m.Key] = reader.Line()

			if err := m.Validate(); err != nil {
				logrus.WithFields(logrus.Fields{"key": m.Key, "line": reader.Line()}).WithError(err).Warn("invalid spectrum match")
				invalid++
				continue
			}
			valid++
		}
		if err := reader.Err(); err != nil {
			return fmt.Errorf("error reading input file: %w", err)
		}

		fmt.Printf("File: %s\n", path)
		fmt.Printf("Valid: %d matches\n", valid)
		if invalid > 0 {
			fmt.Printf("Invalid: %d matches\n", invalid)
			return fmt.Errorf("%d invalid matches in %s", invalid, path)
		}
		return nil
	},
}
