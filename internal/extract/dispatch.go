package extract

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"harvest/internal/config"
	"harvest/internal/discovery"
	"harvest/internal/logging"
)

// Extractor turns one candidate into one outcome. Implementations must not
// return errors; every problem is expressed as a Failure outcome.
type Extractor interface {
	Extract(ctx context.Context, candidate discovery.Candidate) Outcome
}

// Dispatcher selects the format arm for each candidate.
type Dispatcher struct {
	MAT    Extractor
	TDMS   Extractor
	logger *slog.Logger
}

// NewDispatcher wires the MAT and TDMS arms from configuration.
func NewDispatcher(cfg *config.Config, logger *slog.Logger) *Dispatcher {
	mat := NewMATExtractor(nil)
	tdmsArm := NewTDMSExtractor("", nil)
	if cfg != nil {
		mat = NewMATExtractor(cfg.MAT.ContainerKeys)
		tdmsArm = NewTDMSExtractor(cfg.TDMS.Group, cfg.TDMS.Channels)
	}
	return &Dispatcher{
		MAT:    mat,
		TDMS:   tdmsArm,
		logger: logging.NewComponentLogger(logger, "extract"),
	}
}

// Extract runs the arm matching the candidate's format.
func (d *Dispatcher) Extract(ctx context.Context, candidate discovery.Candidate) Outcome {
	var arm Extractor
	switch candidate.Format {
	case discovery.FormatMAT:
		arm = d.MAT
	case discovery.FormatTDMS:
		arm = d.TDMS
	}
	if arm == nil {
		return Failedf("no extractor for format %q", candidate.Format)
	}
	return Safely(ctx, d.logger, arm, candidate)
}

// Safely runs ex and converts a panic into a Failure outcome.
func Safely(ctx context.Context, logger *slog.Logger, ex Extractor, candidate discovery.Candidate) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			if logger != nil {
				logger.Error("decoder panic",
					logging.String(logging.FieldEventType, "decoder_panic"),
					logging.String(logging.FieldSourceFile, candidate.RelPath),
					logging.Any("panic", r),
					logging.String("stack", string(debug.Stack())),
				)
			}
			out = Failedf("decoder panic: %v", r)
		}
	}()
	out = ex.Extract(ctx, candidate)
	if err := out.Validate(); err != nil {
		return Failed(fmt.Errorf("extractor broke outcome contract: %w", err))
	}
	return out
}
