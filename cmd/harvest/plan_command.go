package main

import (
	"strings"

	"github.com/spf13/cobra"

	"harvest/internal/errkind"
	"harvest/internal/pipeline"
	"harvest/internal/report"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var datasetDir string
	var format string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show which files a run would extract and which it would skip",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := overridePath(datasetDir, &cfg.Paths.DatasetDir); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return errkind.Wrap(errkind.ErrConfiguration, "cli", "plan", "", err)
			}

			plan, err := pipeline.Plan(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch strings.ToLower(strings.TrimSpace(format)) {
			case "", report.FormatText:
				return report.RenderPlan(out, plan, report.ShouldColorize(out))
			case report.FormatJSON:
				return report.RenderJSON(out, plan)
			case report.FormatYAML:
				return report.RenderYAML(out, plan)
			default:
				return unknownFormat(format)
			}
		},
	}

	cmd.Flags().StringVar(&datasetDir, "dataset", "", "Dataset root directory (overrides paths.dataset_dir)")
	cmd.Flags().StringVarP(&format, "format", "f", report.FormatText, "Output format: text, json or yaml")
	return cmd
}
