package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"

	"harvest/internal/aggregate"
	"harvest/internal/extract"
	"harvest/internal/fileutil"
	"harvest/internal/logging"
	"harvest/internal/store"
	"harvest/internal/textutil"
)

// TimestampColumn is the header of the first CSV column.
const TimestampColumn = "Timestamp"

// Options narrows an export.
type Options struct {
	// Modality limits the export to one modality; empty exports every node.
	Modality string
	Logger   *slog.Logger
}

// Note records why a node was not converted.
type Note struct {
	Node   string `json:"node" yaml:"node"`
	Reason string `json:"reason" yaml:"reason"`
}

// Result counts converted, skipped, and failed nodes.
type Result struct {
	Converted int      `json:"converted" yaml:"converted"`
	Skipped   int      `json:"skipped" yaml:"skipped"`
	Errors    int      `json:"errors" yaml:"errors"`
	Files     []string `json:"files" yaml:"files"`
	Notes     []Note   `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// CSV reads the artifact at storePath and writes one CSV per node with
// channels into outDir. Problems with a single node are counted and noted;
// only failing to read the artifact returns an error.
func CSV(ctx context.Context, storePath, outDir string, opts Options) (*Result, error) {
	logger := logging.NewComponentLogger(opts.Logger, "export")
	st, err := store.Open(storePath)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	var tree *aggregate.Tree
	if opts.Modality != "" {
		tree, err = st.ReadModality(ctx, opts.Modality)
	} else {
		tree, err = st.ReadTree(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}

	result := &Result{}
	for _, group := range tree.Groups {
		for _, node := range group.Nodes {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			name := group.Modality + "/" + node.Label
			data, reason := encodeNode(node)
			if reason != "" {
				result.Skipped++
				result.Notes = append(result.Notes, Note{Node: name, Reason: reason})
				logger.Debug("node skipped", logging.String("node", name), logging.String("reason", reason))
				continue
			}
			target := filepath.Join(outDir,
				textutil.SanitizeFileName(group.Modality),
				textutil.SanitizeFileName(node.Label)+".csv")
			if err := fileutil.WriteFileAtomic(target, data, 0o644); err != nil {
				result.Errors++
				result.Notes = append(result.Notes, Note{Node: name, Reason: err.Error()})
				logger.Warn("csv not written", logging.String("node", name), logging.Error(err))
				continue
			}
			result.Converted++
			result.Files = append(result.Files, target)
			logger.Info("csv written",
				logging.String("node", name),
				logging.String("path", target),
				logging.Int("rows", len(node.Channels[0].Samples)),
			)
		}
	}
	return result, nil
}

// encodeNode renders a node as CSV, or returns why it cannot be.
func encodeNode(node *aggregate.Node) ([]byte, string) {
	if node.Outcome != extract.KindSuccess || len(node.Channels) == 0 {
		return nil, "metadata-only node has no channels"
	}
	rows := len(node.Channels[0].Samples)
	for _, ch := range node.Channels[1:] {
		if len(ch.Samples) != rows {
			return nil, fmt.Sprintf("channel %s has %d samples, %s has %d",
				ch.Name, len(ch.Samples), node.Channels[0].Name, rows)
		}
	}

	origin, _ := node.Attributes.Get(aggregate.AttrTimestampOrigin)
	if origin == nil {
		// Stores written before the attribute existed.
		origin = aggregate.TimestampOrigin(node.Attributes)
	}
	start, _ := node.Attributes.Float64("start_value")
	increment, _ := node.Attributes.Float64("increment")
	timed := origin == aggregate.TimestampFromIncrement && increment > 0

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := make([]string, 0, len(node.Channels)+1)
	header = append(header, TimestampColumn)
	for _, ch := range node.Channels {
		header = append(header, ch.Name)
	}
	_ = w.Write(header)

	record := make([]string, len(header))
	for i := 0; i < rows; i++ {
		if timed {
			record[0] = formatFloat(start + float64(i)*increment)
		} else {
			record[0] = strconv.Itoa(i)
		}
		for c, ch := range node.Channels {
			record[c+1] = formatFloat(ch.Samples[i])
		}
		_ = w.Write(record)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err.Error()
	}
	return buf.Bytes(), ""
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
