package pipeline

import (
	"context"
	"errors"
	"io"
	"log"
)

// Runner drives the capture-detect-match-record loop: it pulls detections
// from the source one at a time and feeds them through the processor. One
// frame is processed at a time, so the history log sees a single writer.
type Runner struct {
	source    Source
	processor *Processor
}

func NewRunner(source Source, processor *Processor) *Runner {
	return &Runner{source: source, processor: processor}
}

// Run loops until the source is exhausted or the context is canceled. A
// failing source or a failing record means no sightings for that frame, not
// a failed run.
func (r *Runner) Run(ctx context.Context) error {
	for {
		det, err := r.source.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("[PIPE] detection source error: %v", err)
			continue
		}

		if _, err := r.processor.Process(ctx, det); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("[PIPE] dropping detection %q: %v", det.Label, err)
		}
	}
}
