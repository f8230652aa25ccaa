package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/list"

	"harvest/internal/store"
)

// Artifact is the serialisable view of a stored artifact.
type Artifact struct {
	Path  string              `json:"path" yaml:"path"`
	Run   store.RunInfo       `json:"run" yaml:"run"`
	Nodes []store.NodeSummary `json:"nodes" yaml:"nodes"`
}

// RenderInspect writes the artifact hierarchy as a tree.
func RenderInspect(w io.Writer, a Artifact, colorize bool) error {
	var lines []string
	lines = append(lines, renderSectionHeader("Artifact", colorize)...)
	lines = append(lines,
		renderField("Path", a.Path),
		renderField("Run", a.Run.ID),
		renderField("Finished", a.Run.FinishedAt.Format("2006-01-02 15:04:05 MST")),
		renderField("Dataset", a.Run.DatasetDir),
		renderField("Totals", fmt.Sprintf("success %d, metadata_only %d, failure %d, skipped %d",
			a.Run.Totals.Success, a.Run.Totals.MetadataOnly, a.Run.Totals.Failure, a.Run.Totals.Skipped)),
		"",
	)

	lw := list.NewWriter()
	lw.SetStyle(list.StyleConnectedRounded)
	current := ""
	for _, n := range a.Nodes {
		if n.Modality != current {
			if current != "" {
				lw.UnIndent()
			}
			lw.AppendItem(n.Modality)
			lw.Indent()
			current = n.Modality
		}
		lw.AppendItem(fmt.Sprintf("%s [%s] %d attributes (%s)", n.Label, n.Outcome, n.Attributes, n.RelPath))
		if len(n.Channels) == 0 {
			continue
		}
		lw.Indent()
		for _, ch := range n.Channels {
			lw.AppendItem(fmt.Sprintf("%s: %d samples", ch.Name, ch.SampleCount))
		}
		lw.UnIndent()
	}
	if len(a.Nodes) == 0 {
		lines = append(lines, renderStatusLine("Nodes", statusWarn, "artifact holds no nodes", colorize))
	} else {
		lines = append(lines, lw.Render())
	}

	_, err := io.WriteString(w, strings.Join(lines, "\n")+"\n")
	return err
}
