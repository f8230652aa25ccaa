package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"harvest/internal/aggregate"
	"harvest/internal/errkind"
	"harvest/internal/extract"
	"harvest/internal/fileutil"
	"harvest/internal/logging"
	"harvest/internal/reconcile"
)

// RunInfo describes the run that produced an artifact.
type RunInfo struct {
	ID         string           `json:"id" yaml:"id"`
	StartedAt  time.Time        `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time        `json:"finished_at" yaml:"finished_at"`
	DatasetDir string           `json:"dataset_dir" yaml:"dataset_dir"`
	Totals     reconcile.Totals `json:"totals" yaml:"totals"`
}

// Sink receives the finished hierarchy of a run.
type Sink interface {
	Write(ctx context.Context, tree *aggregate.Tree, info RunInfo) error
}

// SQLiteSink writes the hierarchy to a SQLite artifact at Path.
type SQLiteSink struct {
	Path   string
	logger *slog.Logger
}

// NewSQLiteSink returns a sink targeting path.
func NewSQLiteSink(path string, logger *slog.Logger) *SQLiteSink {
	return &SQLiteSink{Path: path, logger: logging.NewComponentLogger(logger, "store")}
}

// Write builds the artifact in a partial file and publishes it over Path.
// On any error the partial file is removed and Path is left untouched.
func (s *SQLiteSink) Write(ctx context.Context, tree *aggregate.Tree, info RunInfo) (err error) {
	ctx = ensureContext(ctx)
	if s.Path == "" {
		return errkind.Wrap(errkind.ErrSink, "store", "write", "output path is empty", nil)
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return errkind.Wrap(errkind.ErrSink, "store", "write", "create output directory", err)
	}

	partial := fileutil.PartialPath(s.Path, info.ID)
	if err := fileutil.Discard(partial); err != nil {
		return errkind.Wrap(errkind.ErrSink, "store", "write", "remove stale partial file", err)
	}
	defer func() {
		if err != nil {
			_ = fileutil.Discard(partial)
			_ = fileutil.Discard(partial + "-journal")
		}
	}()

	db, err := openDB(partial,
		"PRAGMA journal_mode = DELETE",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	)
	if err != nil {
		return errkind.Wrap(errkind.ErrSink, "store", "open", partial, err)
	}
	writeErr := retryOnBusy(ctx, func() error {
		return writeAll(ctx, db, tree, info)
	})
	closeErr := db.Close()
	if writeErr != nil {
		return errkind.Wrap(errkind.ErrSink, "store", "write", partial, writeErr)
	}
	if closeErr != nil {
		return errkind.Wrap(errkind.ErrSink, "store", "close", partial, closeErr)
	}
	if err := fileutil.Publish(partial, s.Path); err != nil {
		return errkind.Wrap(errkind.ErrSink, "store", "publish", s.Path, err)
	}

	if s.logger != nil {
		s.logger.Info("artifact written",
			logging.String(logging.FieldEventType, "artifact_written"),
			logging.String("path", s.Path),
			logging.Int("modalities", len(tree.Groups)),
			logging.Int("nodes", tree.NodeCount()),
			logging.Int("channels", tree.ChannelCount()),
		)
	}
	return nil
}

func writeAll(ctx context.Context, db *sql.DB, tree *aggregate.Tree, info RunInfo) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := createSchema(ctx, tx); err != nil {
		return err
	}
	if err := insertRun(ctx, tx, info); err != nil {
		return err
	}
	if tree != nil {
		for gi, group := range tree.Groups {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := insertGroup(ctx, tx, gi, group); err != nil {
				return err
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func insertRun(ctx context.Context, tx *sql.Tx, info RunInfo) error {
	if info.ID == "" {
		return errors.New("run id is empty")
	}
	t := info.Totals
	_, err := tx.ExecContext(ctx,
		`INSERT INTO runs (
            id, started_at, finished_at, dataset_dir,
            discovered, attempted, success, metadata_only, failure, skipped
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		info.ID,
		info.StartedAt.UTC().Format(time.RFC3339Nano),
		info.FinishedAt.UTC().Format(time.RFC3339Nano),
		nullableString(info.DatasetDir),
		t.Discovered, t.Attempted, t.Success, t.MetadataOnly, t.Failure, t.Skipped,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func insertGroup(ctx context.Context, tx *sql.Tx, position int, group *aggregate.Group) error {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO modalities (name, position) VALUES (?, ?)", group.Modality, position)
	if err != nil {
		return fmt.Errorf("insert modality %s: %w", group.Modality, err)
	}
	modalityID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}

	for ni, node := range group.Nodes {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO nodes (
                modality_id, label, position, source_file, relative_path,
                format, load, condition, severity, outcome
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			modalityID,
			node.Label,
			ni,
			node.SourceFile,
			node.RelPath,
			string(node.Format),
			node.Descriptor.Load,
			node.Descriptor.Condition,
			nullableString(node.Descriptor.Severity),
			string(node.Outcome),
		)
		if err != nil {
			return fmt.Errorf("insert node %s/%s: %w", group.Modality, node.Label, err)
		}
		nodeID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		if err := insertAttributes(ctx, tx, "node_attributes", "node_id", nodeID, node.Attributes); err != nil {
			return fmt.Errorf("node %s/%s: %w", group.Modality, node.Label, err)
		}
		for ci, ch := range node.Channels {
			res, err := tx.ExecContext(ctx,
				`INSERT INTO channels (node_id, position, name, sample_count, samples)
                 VALUES (?, ?, ?, ?, ?)`,
				nodeID, ci, ch.Name, len(ch.Samples), encodeSamples(ch.Samples),
			)
			if err != nil {
				return fmt.Errorf("insert channel %s/%s/%s: %w", group.Modality, node.Label, ch.Name, err)
			}
			channelID, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("last insert id: %w", err)
			}
			if err := insertAttributes(ctx, tx, "channel_attributes", "channel_id", channelID, ch.Attributes); err != nil {
				return fmt.Errorf("channel %s/%s/%s: %w", group.Modality, node.Label, ch.Name, err)
			}
		}
	}
	return nil
}

func insertAttributes(ctx context.Context, tx *sql.Tx, table, owner string, ownerID int64, attrs extract.Metadata) error {
	query := fmt.Sprintf(
		"INSERT INTO %s (%s, position, key, value_type, value) VALUES (?, ?, ?, ?, ?)", table, owner)
	for i, attr := range attrs {
		kind, text, err := encodeValue(attr.Value)
		if err != nil {
			return fmt.Errorf("attribute %q: %w", attr.Key, err)
		}
		if _, err := tx.ExecContext(ctx, query, ownerID, i, attr.Key, kind, text); err != nil {
			return fmt.Errorf("insert attribute %q: %w", attr.Key, err)
		}
	}
	return nil
}
