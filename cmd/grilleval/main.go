// Package main provides the CLI entry point for grilleval.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/grilleval/grilleval-go/pkg/grilleval"
	"github.com/grilleval/grilleval-go/pkg/grilleval/inspect"
	"github.com/grilleval/grilleval-go/pkg/grilleval/mapping"
	"github.com/grilleval/grilleval-go/pkg/grilleval/store"
)

var (
	mappingPath  string
	studentsPath string
	templatePath string
	outputDir    string
	debug        bool
	pretty       bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "grilleval",
		Short: "Fill student evaluation grilles from JSON records",
		Long: `grilleval materializes student evaluation records (JSON) into the
official xlsx grille template via a cell-address mapping configuration.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&mappingPath, "mapping", "mapping.json", "Mapping configuration file")
	rootCmd.PersistentFlags().StringVar(&studentsPath, "students", "students.json", "Student store file")
	rootCmd.PersistentFlags().StringVar(&templatePath, "template", "grille.xlsx", "Grille template workbook")
	rootCmd.PersistentFlags().StringVar(&outputDir, "outdir", "output", "Directory for generated workbooks")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	regenCmd := &cobra.Command{
		Use:   "regen [student-id]",
		Short: "Regenerate a student's workbook from the template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := newManager()
			if err != nil {
				return err
			}
			return mgr.Regenerate(cmd.Context(), args[0])
		},
	}

	fillCmd := &cobra.Command{
		Use:   "fill [student-id] [phase]",
		Short: "Apply one phase's record to an existing workbook",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := newManager()
			if err != nil {
				return err
			}
			return mgr.FillPhase(cmd.Context(), args[0], args[1])
		},
	}

	scoreCmd := &cobra.Command{
		Use:   "score [student-id] [phase]",
		Short: "Print the phase's computed score as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := newManager()
			if err != nil {
				return err
			}
			note, err := mgr.NoteCalculee(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			out, err := json.Marshal(map[string]*float64{"note_calculee": note})
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete [student-id]",
		Short: "Delete a student's record and generated workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := newManager()
			if err != nil {
				return err
			}
			return mgr.DeleteStudent(cmd.Context(), args[0])
		},
	}

	dumpCmd := &cobra.Command{
		Use:   "dump [workbook.xlsx]",
		Short: "Dump a generated workbook's cell contents as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wb, err := inspect.Dump(args[0])
			if err != nil {
				return err
			}
			var out []byte
			if pretty {
				out, err = json.MarshalIndent(wb, "", "  ")
			} else {
				out, err = json.Marshal(wb)
			}
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	dumpCmd.Flags().BoolVar(&pretty, "pretty", false, "Pretty-print JSON output")

	rootCmd.AddCommand(regenCmd, fillCmd, scoreCmd, deleteCmd, dumpCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newManager loads the mapping configuration and wires the manager. A
// configuration failure aborts before any command work starts.
func newManager() (*grilleval.Manager, error) {
	logger, err := newLogger()
	if err != nil {
		return nil, err
	}

	cfg, err := mapping.Load(mappingPath)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(templatePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("template file not found: %s", templatePath)
	}

	st := store.New(studentsPath)
	return grilleval.NewManager(cfg, st, templatePath, outputDir,
		grilleval.WithLogger(logger)), nil
}

func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}
