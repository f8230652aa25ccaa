package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"harvest/internal/pipeline"
)

// RenderPlan writes the dry-run listing of a dataset root.
func RenderPlan(w io.Writer, plan *pipeline.PlanResult, colorize bool) error {
	if plan == nil {
		return nil
	}
	var lines []string
	lines = append(lines, renderSectionHeader("Plan", colorize)...)
	lines = append(lines,
		renderField("Dataset", plan.DatasetDir),
		renderField("Discovered", strconv.Itoa(plan.Discovered)),
		renderField("Candidates", strconv.Itoa(len(plan.Files))),
		renderField("Skipped", strconv.Itoa(len(plan.Skipped))),
		"",
	)

	if len(plan.Files) > 0 {
		rows := make([][]string, 0, len(plan.Files))
		for _, f := range plan.Files {
			label := f.Label
			note := ""
			switch {
			case f.ParseError != "":
				label = "-"
				note = "will fail: unparseable name"
			case !f.KnownCondition:
				note = "condition not in alias table"
			}
			rows = append(rows, []string{f.Candidate.RelPath, f.Candidate.Modality, string(f.Candidate.Format), label, note})
		}
		lines = append(lines, tableSpec{
			Title:   "Candidates",
			Headers: []string{"File", "Modality", "Format", "Label", "Note"},
			Rows:    rows,
		}.render(), "")
	}

	if len(plan.Skipped) > 0 {
		rows := make([][]string, 0, len(plan.Skipped))
		for _, s := range plan.Skipped {
			rows = append(rows, []string{s.RelPath, string(s.Reason)})
		}
		lines = append(lines, tableSpec{
			Title:   "Skipped",
			Headers: []string{"File", "Reason"},
			Rows:    rows,
		}.render(), "")
	}

	if len(plan.Collisions) == 0 {
		lines = append(lines, renderStatusLine("Descriptor keys", statusOK, "no collisions", colorize))
	}
	for _, c := range plan.Collisions {
		lines = append(lines, renderStatusLine("Collision", statusError,
			fmt.Sprintf("%s/%s from %s", c.Modality, c.Label, strings.Join(c.Files, ", ")), colorize))
	}

	_, err := io.WriteString(w, strings.Join(lines, "\n")+"\n")
	return err
}
