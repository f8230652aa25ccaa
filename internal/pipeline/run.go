package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"harvest/internal/aggregate"
	"harvest/internal/config"
	"harvest/internal/descriptor"
	"harvest/internal/discovery"
	"harvest/internal/errkind"
	"harvest/internal/extract"
	"harvest/internal/logging"
	"harvest/internal/metrics"
	"harvest/internal/preflight"
	"harvest/internal/reconcile"
	"harvest/internal/store"
)

// Options configures a run.
type Options struct {
	Config *config.Config
	Logger *slog.Logger
	// Sink receives the hierarchy; defaults to a SQLite sink at
	// Config.Paths.OutputPath.
	Sink store.Sink
	// Extractor overrides the format dispatcher, mainly for tests.
	Extractor extract.Extractor
	// Now overrides the clock.
	Now func() time.Time
}

// Run executes one pass. The returned Result is never nil; it carries the
// totals gathered so far even when err is non-nil.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	result := &Result{RunID: uuid.NewString(), StartedAt: now()}
	if opts.Config == nil {
		return finish(result, now, errkind.Wrap(errkind.ErrConfiguration, "pipeline", "run", "config is required", nil))
	}
	cfg := opts.Config
	result.DatasetDir = cfg.Paths.DatasetDir
	result.OutputPath = cfg.Paths.OutputPath

	ctx = logging.WithRunID(ctx, result.RunID)
	logger := logging.WithContext(ctx, logging.NewComponentLogger(opts.Logger, "pipeline"))
	logger.Info(
		"run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("dataset_dir", cfg.Paths.DatasetDir),
		logging.String("output", cfg.Paths.OutputPath),
	)

	err := execute(ctx, logger, cfg, opts, result)
	finish(result, now, err)
	observe(logger, cfg, result)

	if err != nil {
		logging.ErrorWithContext(logger, "run aborted", "run_failure",
			logging.String("error_kind", errkind.Kind(err)),
			logging.String(logging.FieldErrorHint, hintFor(err)),
			logging.Error(err),
		)
		return result, err
	}
	logger.Info(
		"run completed",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.Int("success", result.Totals.Success),
		logging.Int("metadata_only", result.Totals.MetadataOnly),
		logging.Int("failure", result.Totals.Failure),
		logging.Int("skipped", result.Totals.Skipped),
		logging.Int("nodes", result.Nodes),
		logging.Duration("elapsed", result.Duration()),
	)
	return result, nil
}

func execute(ctx context.Context, logger *slog.Logger, cfg *config.Config, opts Options, result *Result) error {
	parser, err := descriptor.NewParser(cfg.Conditions)
	if err != nil {
		return errkind.Wrap(errkind.ErrConfiguration, "pipeline", "condition table", "", err)
	}

	if failed := preflight.Failed(preflight.RunAll(cfg)); len(failed) > 0 {
		return errkind.Wrap(errkind.ErrConfiguration, "pipeline", "preflight", preflight.Summarize(failed), nil)
	}

	sink := opts.Sink
	if sink == nil {
		if cfg.Paths.OutputPath == "" {
			return errkind.Wrap(errkind.ErrConfiguration, "pipeline", "run", "output path is empty", nil)
		}
		lock, err := store.AcquireLock(cfg.Paths.OutputPath)
		if err != nil {
			return errkind.Wrap(errkind.ErrSink, "pipeline", "lock output", "", err)
		}
		defer func() {
			if err := lock.Release(); err != nil {
				logger.Warn("failed to release output lock", logging.Error(err))
			}
		}()
		sink = store.NewSQLiteSink(cfg.Paths.OutputPath, opts.Logger)
	}
	ex := opts.Extractor
	if ex == nil {
		ex = extract.NewDispatcher(cfg, opts.Logger)
	}

	entries, err := discovery.Walk(ctx, cfg.Paths.DatasetDir, cfg.Discovery.Modalities)
	if err != nil {
		return cancelled(err)
	}
	part := discovery.Filter(entries, discovery.FilterOptions{ArchiveExtensions: cfg.Discovery.ArchiveExtensions})
	counter := reconcile.NewCounter(len(entries), len(part.Candidates))
	logger.Info(
		"discovery complete",
		logging.String(logging.FieldEventType, "discovery_complete"),
		logging.Int("discovered", len(entries)),
		logging.Int("candidates", len(part.Candidates)),
		logging.Int("skipped", len(part.Skipped)),
	)

	for _, skipped := range part.Skipped {
		if err := counter.Skip(skipped); err != nil {
			return errkind.Wrap(errkind.ErrStructural, "pipeline", "count skip", skipped.RelPath, err)
		}
		logger.Debug("entry skipped",
			logging.String(logging.FieldSourceFile, skipped.RelPath),
			logging.String("reason", string(skipped.Reason)),
		)
	}

	accepted := make([]processed, 0, len(part.Candidates))
	for _, candidate := range part.Candidates {
		if err := ctx.Err(); err != nil {
			return cancelled(err)
		}
		p := processFile(ctx, logger, parser, ex, candidate)
		if err := counter.Record(candidate, p.outcome); err != nil {
			return errkind.Wrap(errkind.ErrStructural, "pipeline", "count outcome", candidate.RelPath, err)
		}
		if p.outcome.Kind != extract.KindFailure {
			accepted = append(accepted, p)
		}
	}

	reconcileErr := counter.Reconcile()
	if totals, err := counter.Totals(); err == nil {
		result.Totals = totals
		result.Checks = totals.Checks()
		result.Reconciled = true
	}
	if lists, err := counter.Lists(); err == nil {
		result.Lists = lists
	}
	if reconcileErr != nil {
		return reconcileErr
	}

	agg := aggregate.New()
	for _, p := range accepted {
		if err := agg.Add(p.candidate, p.descriptor, p.outcome); err != nil {
			return err
		}
	}
	tree := agg.Tree()
	result.Nodes = tree.NodeCount()
	result.Channels = tree.ChannelCount()

	if err := ctx.Err(); err != nil {
		return cancelled(err)
	}
	info := store.RunInfo{
		ID:         result.RunID,
		StartedAt:  result.StartedAt,
		FinishedAt: time.Now(),
		DatasetDir: cfg.Paths.DatasetDir,
		Totals:     result.Totals,
	}
	if err := sink.Write(ctx, tree, info); err != nil {
		if !errors.Is(err, errkind.ErrSink) {
			err = errkind.Wrap(errkind.ErrSink, "pipeline", "write artifact", "", err)
		}
		return err
	}
	result.Written = true
	return nil
}

func finish(result *Result, now func() time.Time, err error) (*Result, error) {
	result.FinishedAt = now()
	result.Err = err
	return result, err
}

// observe writes the metrics textfile when configured. Metrics problems are
// logged and never change the run result.
func observe(logger *slog.Logger, cfg *config.Config, result *Result) {
	if cfg.Metrics.Textfile == "" {
		return
	}
	rec, err := metrics.New()
	if err != nil {
		logger.Warn("metrics unavailable", logging.Error(err))
		return
	}
	rec.Observe(result.Totals, result.StartedAt, result.FinishedAt, result.Err)
	if err := rec.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		logging.WarnWithContext(logger, "metrics textfile not written", "metrics_write_failed",
			logging.String("path", cfg.Metrics.Textfile),
			logging.String(logging.FieldErrorHint, "check the metrics.textfile directory is writable"),
			logging.Error(err),
		)
	}
}

func cancelled(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("run aborted before the artifact was written: %w", err)
	}
	return err
}

func hintFor(err error) string {
	switch {
	case errors.Is(err, errkind.ErrConfiguration):
		return "check the dataset root and configuration file"
	case errors.Is(err, errkind.ErrStructural):
		return "two files share a descriptor key or the file counts do not balance; see the summary"
	case errors.Is(err, errkind.ErrSink):
		return "check the output path is writable and not locked by another run"
	default:
		return "check logs for details"
	}
}
