package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"harvest/internal/config"
	"harvest/internal/export"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Convert an artifact into other formats",
	}
	exportCmd.AddCommand(newExportCSVCommand(ctx))
	return exportCmd
}

func newExportCSVCommand(ctx *commandContext) *cobra.Command {
	var outDir string
	var modality string

	cmd := &cobra.Command{
		Use:   "csv FILE",
		Short: "Write one CSV file per extracted node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(outDir) == "" {
				return fmt.Errorf("--out is required")
			}
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve artifact path: %w", err)
			}
			dir, err := config.ExpandPath(outDir)
			if err != nil {
				return fmt.Errorf("resolve output directory: %w", err)
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			result, err := export.CSV(cmd.Context(), path, dir, export.Options{
				Modality: strings.TrimSpace(modality),
				Logger:   logger,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Converted %d, skipped %d, errors %d\n", result.Converted, result.Skipped, result.Errors)
			for _, file := range result.Files {
				fmt.Fprintf(out, "  wrote %s\n", file)
			}
			for _, note := range result.Notes {
				fmt.Fprintf(out, "  %s: %s\n", note.Node, note.Reason)
			}
			if result.Errors > 0 {
				return fmt.Errorf("%d node(s) could not be exported", result.Errors)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&outDir, "out", "", "Destination directory for CSV files")
	cmd.Flags().StringVar(&modality, "modality", "", "Only export this modality")
	return cmd
}
