package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ripsergo/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the ripser executable and working directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			lines := renderSectionHeader("Configuration", colorize)
			configDetail := ctx.configPath
			kind := statusOK
			if !ctx.configExists {
				configDetail = fmt.Sprintf("defaults (no file at %s)", ctx.configPath)
				kind = statusInfo
			}
			lines = append(lines, renderStatusLine("Config", kind, configDetail, colorize))
			lines = append(lines, renderStatusLine("Cache enabled", statusInfo, yesNo(cfg.Cache.Enabled), colorize))
			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
			lines = append(lines, dependencyLines(preflight.CheckSystemDeps(cfg), colorize)...)
			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Checks", colorize)...)

			results := preflight.RunAll(cmd.Context(), cfg)
			lines = append(lines, checkLines(results, colorize)...)
			for _, line := range lines {
				fmt.Fprintln(out, line)
			}

			failed := 0
			for _, result := range results {
				if !result.Passed {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d check(s) failed", failed)
			}
			return nil
		},
	}
}
