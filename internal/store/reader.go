package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"harvest/internal/aggregate"
	"harvest/internal/descriptor"
	"harvest/internal/discovery"
	"harvest/internal/extract"
)

// ErrNoRun is returned when an artifact carries no run row.
var ErrNoRun = errors.New("artifact has no run record")

// Store is a read handle on a written artifact.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens an existing artifact for reading and verifies its schema.
func Open(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("artifact %s does not exist", path)
		}
		return nil, fmt.Errorf("stat artifact: %w", err)
	}
	db, err := openDB(path,
		"PRAGMA query_only = ON",
		"PRAGMA busy_timeout = 5000",
	)
	if err != nil {
		return nil, err
	}
	if err := checkSchema(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the artifact path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Run returns the run record stored with the artifact.
func (s *Store) Run(ctx context.Context) (RunInfo, error) {
	ctx = ensureContext(ctx)
	var (
		info                 RunInfo
		startedRaw, finished string
		datasetDir           sql.NullString
	)
	t := &info.Totals
	err := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, dataset_dir,
                discovered, attempted, success, metadata_only, failure, skipped
         FROM runs LIMIT 1`,
	).Scan(&info.ID, &startedRaw, &finished, &datasetDir,
		&t.Discovered, &t.Attempted, &t.Success, &t.MetadataOnly, &t.Failure, &t.Skipped)
	if errors.Is(err, sql.ErrNoRows) {
		return RunInfo{}, ErrNoRun
	}
	if err != nil {
		return RunInfo{}, fmt.Errorf("read run: %w", err)
	}
	info.DatasetDir = datasetDir.String
	if started, err := parseTimeString(startedRaw); err == nil {
		info.StartedAt = started
	}
	if done, err := parseTimeString(finished); err == nil {
		info.FinishedAt = done
	}
	return info, nil
}

// ReadTree rebuilds the full hierarchy, samples included.
func (s *Store) ReadTree(ctx context.Context) (*aggregate.Tree, error) {
	return s.readTree(ctx, "")
}

// ReadModality rebuilds the hierarchy restricted to one modality.
func (s *Store) ReadModality(ctx context.Context, modality string) (*aggregate.Tree, error) {
	return s.readTree(ctx, modality)
}

func (s *Store) readTree(ctx context.Context, only string) (*aggregate.Tree, error) {
	ctx = ensureContext(ctx)
	tree := &aggregate.Tree{}

	rows, err := s.db.QueryContext(ctx,
		`SELECT n.id, m.name, n.label, n.source_file, n.relative_path,
                n.format, n.load, n.condition, n.severity, n.outcome
         FROM nodes n JOIN modalities m ON m.id = n.modality_id
         WHERE ? = '' OR m.name = ?
         ORDER BY m.position, n.position`, only, only)
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	type pending struct {
		id   int64
		node *aggregate.Node
	}
	var nodes []pending
	for rows.Next() {
		var (
			id       int64
			n        aggregate.Node
			format   string
			outcome  string
			severity sql.NullString
		)
		if err := rows.Scan(&id, &n.Modality, &n.Label, &n.SourceFile, &n.RelPath,
			&format, &n.Descriptor.Load, &n.Descriptor.Condition, &severity, &outcome); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan node: %w", err)
		}
		n.Format = discovery.Format(format)
		n.Outcome = extract.Kind(outcome)
		n.Descriptor.Severity = severity.String
		nodes = append(nodes, pending{id: id, node: &n})
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate nodes: %w", err)
	}
	_ = rows.Close()

	for _, p := range nodes {
		attrs, err := s.readAttributes(ctx, "node_attributes", "node_id", p.id)
		if err != nil {
			return nil, fmt.Errorf("node %s/%s: %w", p.node.Modality, p.node.Label, err)
		}
		p.node.Attributes = attrs
		channels, err := s.readChannels(ctx, p.id)
		if err != nil {
			return nil, fmt.Errorf("node %s/%s: %w", p.node.Modality, p.node.Label, err)
		}
		p.node.Channels = channels
		tree.AddGroup(p.node.Modality).AddNode(p.node)
	}
	return tree, nil
}

func (s *Store) readChannels(ctx context.Context, nodeID int64) ([]extract.Channel, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, sample_count, samples FROM channels WHERE node_id = ? ORDER BY position", nodeID)
	if err != nil {
		return nil, fmt.Errorf("query channels: %w", err)
	}
	type pending struct {
		id int64
		ch extract.Channel
	}
	var out []pending
	for rows.Next() {
		var (
			id    int64
			name  string
			count int
			blob  []byte
		)
		if err := rows.Scan(&id, &name, &count, &blob); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		samples, err := decodeSamples(blob, count)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("channel %s: %w", name, err)
		}
		out = append(out, pending{id: id, ch: extract.Channel{Name: name, Samples: samples}})
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate channels: %w", err)
	}
	_ = rows.Close()

	channels := make([]extract.Channel, 0, len(out))
	for _, p := range out {
		attrs, err := s.readAttributes(ctx, "channel_attributes", "channel_id", p.id)
		if err != nil {
			return nil, fmt.Errorf("channel %s: %w", p.ch.Name, err)
		}
		p.ch.Attributes = attrs
		channels = append(channels, p.ch)
	}
	return channels, nil
}

func (s *Store) readAttributes(ctx context.Context, table, owner string, ownerID int64) (extract.Metadata, error) {
	query := fmt.Sprintf("SELECT key, value_type, value FROM %s WHERE %s = ? ORDER BY position", table, owner)
	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	var attrs extract.Metadata
	for rows.Next() {
		var key, kind, text string
		if err := rows.Scan(&key, &kind, &text); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		value, err := decodeValue(kind, text)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", key, err)
		}
		attrs = append(attrs, extract.Attribute{Key: key, Value: value})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return attrs, nil
}

// NodeSummary describes one node without its samples.
type NodeSummary struct {
	Modality   string                `json:"modality" yaml:"modality"`
	Label      string                `json:"label" yaml:"label"`
	Outcome    extract.Kind          `json:"outcome" yaml:"outcome"`
	RelPath    string                `json:"relative_path" yaml:"relative_path"`
	Descriptor descriptor.Descriptor `json:"descriptor" yaml:"descriptor"`
	Attributes int                   `json:"attributes" yaml:"attributes"`
	Channels   []ChannelSummary      `json:"channels" yaml:"channels"`
}

// ChannelSummary describes one channel without its samples.
type ChannelSummary struct {
	Name        string `json:"name" yaml:"name"`
	SampleCount int    `json:"sample_count" yaml:"sample_count"`
}

// Describe lists the hierarchy in stored order without loading sample blobs.
func (s *Store) Describe(ctx context.Context) ([]NodeSummary, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT n.id, m.name, n.label, n.outcome, n.relative_path, n.load, n.condition, n.severity,
                (SELECT COUNT(1) FROM node_attributes a WHERE a.node_id = n.id)
         FROM nodes n JOIN modalities m ON m.id = n.modality_id
         ORDER BY m.position, n.position`)
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	var (
		ids       []int64
		summaries []NodeSummary
	)
	for rows.Next() {
		var (
			id       int64
			sum      NodeSummary
			outcome  string
			severity sql.NullString
		)
		if err := rows.Scan(&id, &sum.Modality, &sum.Label, &outcome, &sum.RelPath,
			&sum.Descriptor.Load, &sum.Descriptor.Condition, &severity, &sum.Attributes); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan node: %w", err)
		}
		sum.Outcome = extract.Kind(outcome)
		sum.Descriptor.Severity = severity.String
		ids = append(ids, id)
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate nodes: %w", err)
	}
	_ = rows.Close()

	for i, id := range ids {
		chRows, err := s.db.QueryContext(ctx,
			"SELECT name, sample_count FROM channels WHERE node_id = ? ORDER BY position", id)
		if err != nil {
			return nil, fmt.Errorf("query channels: %w", err)
		}
		for chRows.Next() {
			var ch ChannelSummary
			if err := chRows.Scan(&ch.Name, &ch.SampleCount); err != nil {
				_ = chRows.Close()
				return nil, fmt.Errorf("scan channel: %w", err)
			}
			summaries[i].Channels = append(summaries[i].Channels, ch)
		}
		if err := chRows.Err(); err != nil {
			_ = chRows.Close()
			return nil, fmt.Errorf("iterate channels: %w", err)
		}
		_ = chRows.Close()
	}
	return summaries, nil
}
