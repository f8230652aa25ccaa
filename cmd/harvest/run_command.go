package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"harvest/internal/errkind"
	"harvest/internal/logging"
	"harvest/internal/pipeline"
	"harvest/internal/report"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var datasetDir string
	var outputPath string
	var format string
	var metricsFile string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Extract every recording under the dataset root into the output artifact",
		Long: `Walk the dataset root, extract every MAT and TDMS recording, reconcile the
per-file outcomes and write the consolidated artifact. The summary is printed
even when the run aborts; the exit status is non-zero in that case.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := overridePath(datasetDir, &cfg.Paths.DatasetDir); err != nil {
				return err
			}
			if err := overridePath(outputPath, &cfg.Paths.OutputPath); err != nil {
				return err
			}
			if err := overridePath(metricsFile, &cfg.Metrics.Textfile); err != nil {
				return err
			}
			if format != "" {
				cfg.Report.Format = format
			}
			if err := cfg.Validate(); err != nil {
				return errkind.Wrap(errkind.ErrConfiguration, "cli", "run", "", err)
			}

			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, logging.RetentionTarget{
				Dir:     cfg.Paths.LogDir,
				Pattern: "harvest*.log*",
				Exclude: []string{filepath.Join(cfg.Paths.LogDir, logging.LogFileName)},
			})

			result, runErr := pipeline.Run(cmd.Context(), pipeline.Options{Config: cfg, Logger: logger})
			out := cmd.OutOrStdout()
			if err := report.Render(out, cfg.Report.Format, report.FromResult(result), report.ShouldColorize(out)); err != nil {
				return err
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&datasetDir, "dataset", "", "Dataset root directory (overrides paths.dataset_dir)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output artifact path (overrides paths.output_path)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "Summary format: text, json or yaml")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus textfile metrics to this path")
	return cmd
}
