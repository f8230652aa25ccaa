package pipeline

import (
	"context"
	"log/slog"
	"time"

	"harvest/internal/descriptor"
	"harvest/internal/discovery"
	"harvest/internal/extract"
	"harvest/internal/logging"
)

// processed is one candidate with its parsed descriptor and outcome.
type processed struct {
	candidate  discovery.Candidate
	descriptor descriptor.Descriptor
	outcome    extract.Outcome
}

// processFile parses the descriptor and extracts one candidate. It never
// returns an error: an unparseable name or a decoder problem becomes a
// Failure outcome.
func processFile(ctx context.Context, logger *slog.Logger, parser *descriptor.Parser, ex extract.Extractor, candidate discovery.Candidate) processed {
	fileCtx := logging.WithModality(logging.WithSourceFile(ctx, candidate.RelPath), candidate.Modality)
	fileLogger := logger.With(logging.Args(
		logging.String(logging.FieldSourceFile, candidate.RelPath),
		logging.String(logging.FieldModality, candidate.Modality),
	)...)
	started := time.Now()

	fileLogger.Debug(
		"file started",
		logging.String(logging.FieldEventType, "file_start"),
		logging.String("format", string(candidate.Format)),
	)

	result := processed{candidate: candidate}
	desc, err := parser.Parse(candidate.Name)
	if err != nil {
		result.outcome = extract.Failed(err)
	} else {
		result.descriptor = desc
		result.outcome = ex.Extract(fileCtx, candidate)
	}

	if result.outcome.Kind == extract.KindFailure {
		logging.WarnWithContext(fileLogger, "file failed", "file_failure",
			logging.String(logging.FieldOutcome, string(result.outcome.Kind)),
			logging.String(logging.FieldErrorHint, result.outcome.Reason),
			logging.String(logging.FieldImpact, "file counted as failure and left out of the artifact"),
		)
		return result
	}

	fileLogger.Info(
		"file processed",
		logging.String(logging.FieldEventType, "file_complete"),
		logging.String(logging.FieldOutcome, string(result.outcome.Kind)),
		logging.String("label", desc.Label()),
		logging.Int("channels", len(result.outcome.Channels)),
		logging.Int("samples", result.outcome.SampleCount()),
		logging.Duration("elapsed", time.Since(started)),
	)
	return result
}
