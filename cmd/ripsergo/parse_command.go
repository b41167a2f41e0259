package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"ripsergo/internal/ripser"
)

func newParseCommand(_ *commandContext) *cobra.Command {
	var jsonOut bool
	var intervals bool

	cmd := &cobra.Command{
		Use:         "parse <ripser-output-file|->",
		Short:       "Parse a saved ripser report",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			source := args[0]
			var (
				data []byte
				err  error
			)
			if source == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(source)
			}
			if err != nil {
				return fmt.Errorf("read ripser output: %w", err)
			}

			report, err := ripser.ParseReport(string(data))
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, report)
			}
			title := filepath.Base(source)
			if source == "-" {
				title = "stdin"
			}
			renderReport(cmd.OutOrStdout(), title, report, intervals, newCountFormatter(localeTag()))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the report as JSON")
	cmd.Flags().BoolVar(&intervals, "intervals", false, "List every interval, not just the per-dimension summary")
	return cmd
}
