package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"harvest/internal/reconcile"
)

const reasonWidth = 72

// RenderText writes the human summary of a run.
func RenderText(w io.Writer, s Summary, colorize bool) error {
	var lines []string
	lines = append(lines, renderSectionHeader("Run summary", colorize)...)
	lines = append(lines,
		renderField("Run", s.RunID),
		renderField("Dataset", s.DatasetDir),
		renderField("Duration", s.Duration),
	)
	switch {
	case s.Written:
		lines = append(lines, renderStatusLine("Artifact", statusOK,
			fmt.Sprintf("%s (%d nodes, %d channels)", s.OutputPath, s.Nodes, s.Channels), colorize))
	case s.Error != "":
		lines = append(lines, renderStatusLine("Artifact", statusError, "not written; previous artifact left in place", colorize))
	default:
		lines = append(lines, renderStatusLine("Artifact", statusWarn, "not written", colorize))
	}
	lines = append(lines, "", totalsTable(s.Totals), "")

	lines = append(lines, renderSectionHeader("Reconciliation", colorize)...)
	if !s.Reconciled {
		lines = append(lines, renderStatusLine("Identities", statusWarn, "not checked; the run stopped before the last file", colorize))
	}
	for _, check := range s.Checks {
		kind := statusOK
		if !check.OK {
			kind = statusError
		}
		lines = append(lines, renderStatusLine(check.Name+" identity", kind, check.Equation, colorize))
	}
	lines = append(lines, "")

	lines = appendEntries(lines, "Failures", s.Files.Failure, true, colorize)
	lines = appendEntries(lines, "Metadata only", s.Files.MetadataOnly, false, colorize)
	lines = appendEntries(lines, "Skipped", s.Files.Skipped, true, colorize)
	lines = appendEntries(lines, "Extracted", s.Files.Success, false, colorize)

	if s.Error != "" {
		label := "Run error"
		if s.ErrorKind != "" {
			label = fmt.Sprintf("Run error (%s)", s.ErrorKind)
		}
		lines = append(lines, renderStatusLine(label, statusError, s.Error, colorize))
	}

	_, err := io.WriteString(w, strings.Join(lines, "\n")+"\n")
	return err
}

func totalsTable(t reconcile.Totals) string {
	rows := [][]string{
		{"Success", strconv.Itoa(t.Success)},
		{"Metadata only", strconv.Itoa(t.MetadataOnly)},
		{"Failure", strconv.Itoa(t.Failure)},
		{"Skipped", strconv.Itoa(t.Skipped)},
		{"Attempted", strconv.Itoa(t.Attempted)},
	}
	return tableSpec{
		Headers: []string{"Category", "Files"},
		Rows:    rows,
		Aligns:  []columnAlignment{alignLeft, alignRight},
		Footer:  []string{"Discovered", strconv.Itoa(t.Discovered)},
	}.render()
}

func appendEntries(lines []string, title string, entries []reconcile.Entry, withReason bool, colorize bool) []string {
	if len(entries) == 0 {
		return lines
	}
	lines = append(lines, renderSectionHeader(fmt.Sprintf("%s (%d)", title, len(entries)), colorize)...)
	headers := []string{"File", "Modality"}
	if withReason {
		headers = append(headers, "Reason")
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		row := []string{e.RelPath, e.Modality}
		if withReason {
			row = append(row, e.Reason)
		}
		rows = append(rows, row)
	}
	spec := tableSpec{Headers: headers, Rows: rows}
	if withReason {
		spec.MaxWidth = reasonWidth
	}
	return append(lines, spec.render(), "")
}
