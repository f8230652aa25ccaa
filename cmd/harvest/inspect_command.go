package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"harvest/internal/config"
	"harvest/internal/report"
	"harvest/internal/store"
)

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Print the hierarchy stored in an artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve artifact path: %w", err)
			}
			st, err := store.Open(path)
			if err != nil {
				return err
			}
			defer st.Close()

			run, err := st.Run(cmd.Context())
			if err != nil {
				return err
			}
			nodes, err := st.Describe(cmd.Context())
			if err != nil {
				return err
			}
			artifact := report.Artifact{Path: path, Run: run, Nodes: nodes}

			out := cmd.OutOrStdout()
			switch strings.ToLower(strings.TrimSpace(format)) {
			case "", report.FormatText:
				return report.RenderInspect(out, artifact, report.ShouldColorize(out))
			case report.FormatJSON:
				return report.RenderJSON(out, artifact)
			case report.FormatYAML:
				return report.RenderYAML(out, artifact)
			default:
				return unknownFormat(format)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", report.FormatText, "Output format: text, json or yaml")
	return cmd
}

func unknownFormat(format string) error {
	return fmt.Errorf("unknown format %q (want text, json, or yaml)", format)
}
